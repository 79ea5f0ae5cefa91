// Package grpc propagates the authenticated principal between HTTP
// handlers and gRPC services via metadata, and enforces it with server
// interceptors.
package grpc

import (
	"context"

	"google.golang.org/grpc/metadata"

	sa "github.com/shieldauth/shieldauth"
)

// Default metadata keys for the authenticated principal.
const (
	DefaultMetadataKeyUserID = "x-user-id"
	DefaultMetadataKeyEmail  = "x-user-email"
	DefaultMetadataKeyRole   = "x-user-role"
)

// Principal is the identity carried in gRPC metadata. It is a projection
// of the session user, not a database read.
type Principal struct {
	UserID string
	Email  string
	Role   sa.Role
}

func (p *Principal) IsAdmin() bool {
	return p != nil && p.Role == sa.RoleAdmin
}

// Config holds the metadata key configuration for the principal.
type Config struct {
	MetadataKeyUserID string
	MetadataKeyEmail  string
	MetadataKeyRole   string
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		MetadataKeyUserID: DefaultMetadataKeyUserID,
		MetadataKeyEmail:  DefaultMetadataKeyEmail,
		MetadataKeyRole:   DefaultMetadataKeyRole,
	}
}

// EnsureDefaults fills in default values for any unset fields.
func (c *Config) EnsureDefaults() {
	if c.MetadataKeyUserID == "" {
		c.MetadataKeyUserID = DefaultMetadataKeyUserID
	}
	if c.MetadataKeyEmail == "" {
		c.MetadataKeyEmail = DefaultMetadataKeyEmail
	}
	if c.MetadataKeyRole == "" {
		c.MetadataKeyRole = DefaultMetadataKeyRole
	}
}

// PrincipalFromContext extracts the authenticated principal from incoming
// gRPC metadata. Returns nil if no user ID is present.
func PrincipalFromContext(ctx context.Context) *Principal {
	return PrincipalFromContextWithConfig(ctx, nil)
}

// PrincipalFromContextWithConfig extracts the principal using the
// specified config.
func PrincipalFromContextWithConfig(ctx context.Context, config *Config) *Principal {
	if config == nil {
		config = DefaultConfig()
	}
	config.EnsureDefaults()

	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return nil
	}

	userID := firstValue(md, config.MetadataKeyUserID)
	if userID == "" {
		return nil
	}

	return &Principal{
		UserID: userID,
		Email:  firstValue(md, config.MetadataKeyEmail),
		Role:   sa.Role(firstValue(md, config.MetadataKeyRole)),
	}
}

// PrincipalToOutgoingContext adds the session user to outgoing gRPC
// metadata using the default keys.
func PrincipalToOutgoingContext(ctx context.Context, user *sa.SessionUser) context.Context {
	return PrincipalToOutgoingContextWithConfig(ctx, user, nil)
}

// PrincipalToOutgoingContextWithConfig adds the session user to outgoing
// gRPC metadata using the specified config.
func PrincipalToOutgoingContextWithConfig(ctx context.Context, user *sa.SessionUser, config *Config) context.Context {
	if user == nil {
		return ctx
	}
	if config == nil {
		config = DefaultConfig()
	}
	config.EnsureDefaults()
	return metadata.AppendToOutgoingContext(ctx,
		config.MetadataKeyUserID, user.ID,
		config.MetadataKeyEmail, user.Email,
		config.MetadataKeyRole, string(user.Role),
	)
}

// IsAuthenticated returns true if there is an authenticated principal in
// the context.
func IsAuthenticated(ctx context.Context) bool {
	return PrincipalFromContext(ctx) != nil
}

func firstValue(md metadata.MD, key string) string {
	if values := md.Get(key); len(values) > 0 {
		return values[0]
	}
	return ""
}
