package shieldauth

import (
	"fmt"

	"golang.org/x/oauth2"
)

// IdentityFromProvider normalizes the userinfo payload and token material
// a provider hands back into an OAuthIdentity the gate can act on.
// Google userinfo and the GitHub /user endpoint shape their fields
// differently; anything unrecognized yields an identity with only the
// provider tag set, which the gate then rejects for lack of an email.
func IdentityFromProvider(provider string, token *oauth2.Token, userInfo map[string]any) *OAuthIdentity {
	identity := &OAuthIdentity{Provider: provider}
	if userInfo == nil {
		return identity
	}

	identity.ProviderAccountID = stringField(userInfo, "id")
	identity.Email = stringField(userInfo, "email")
	identity.Name = stringField(userInfo, "name")

	switch provider {
	case ProviderGoogle:
		identity.AvatarURL = stringField(userInfo, "picture")
	case ProviderGithub:
		identity.AvatarURL = stringField(userInfo, "avatar_url")
		if identity.Name == "" {
			identity.Name = stringField(userInfo, "login")
		}
	}

	if token != nil {
		identity.AccessToken = token.AccessToken
		identity.RefreshToken = token.RefreshToken
		identity.TokenType = token.TokenType
		if !token.Expiry.IsZero() {
			identity.ExpiresAt = token.Expiry.Unix()
		}
		if idToken, ok := token.Extra("id_token").(string); ok {
			identity.IDToken = idToken
		}
		if scope, ok := token.Extra("scope").(string); ok {
			identity.Scope = scope
		}
	}
	return identity
}

// stringField reads a userinfo value as a string. GitHub serializes the
// numeric account id as a JSON number, so numbers are formatted rather
// than dropped.
func stringField(m map[string]any, key string) string {
	switch v := m[key].(type) {
	case string:
		return v
	case float64:
		return fmt.Sprintf("%.0f", v)
	case nil:
		return ""
	default:
		return fmt.Sprintf("%v", v)
	}
}
