package grpc_test

import (
	"context"
	"testing"

	"google.golang.org/grpc/metadata"

	sa "github.com/shieldauth/shieldauth"
	sagrpc "github.com/shieldauth/shieldauth/grpc"
)

func incomingContext(pairs ...string) context.Context {
	return metadata.NewIncomingContext(context.Background(), metadata.Pairs(pairs...))
}

func TestPrincipalFromContext(t *testing.T) {
	t.Run("FullPrincipal", func(t *testing.T) {
		ctx := incomingContext(
			"x-user-id", "user-1",
			"x-user-email", "u@example.com",
			"x-user-role", "admin",
		)
		principal := sagrpc.PrincipalFromContext(ctx)
		if principal == nil {
			t.Fatal("expected a principal")
		}
		if principal.UserID != "user-1" || principal.Email != "u@example.com" {
			t.Errorf("unexpected principal: %+v", principal)
		}
		if !principal.IsAdmin() {
			t.Error("admin role not recognized")
		}
	})

	t.Run("NoMetadata", func(t *testing.T) {
		if principal := sagrpc.PrincipalFromContext(context.Background()); principal != nil {
			t.Errorf("expected nil, got %+v", principal)
		}
	})

	t.Run("MissingUserID", func(t *testing.T) {
		ctx := incomingContext("x-user-email", "u@example.com")
		if principal := sagrpc.PrincipalFromContext(ctx); principal != nil {
			t.Errorf("expected nil without a user id, got %+v", principal)
		}
	})

	t.Run("RegularUserIsNotAdmin", func(t *testing.T) {
		ctx := incomingContext("x-user-id", "user-1", "x-user-role", "user")
		principal := sagrpc.PrincipalFromContext(ctx)
		if principal == nil || principal.IsAdmin() {
			t.Errorf("unexpected principal: %+v", principal)
		}
	})
}

func TestPrincipalFromContextCustomKeys(t *testing.T) {
	config := &sagrpc.Config{MetadataKeyUserID: "x-custom-id"}
	ctx := incomingContext("x-custom-id", "user-1")

	principal := sagrpc.PrincipalFromContextWithConfig(ctx, config)
	if principal == nil || principal.UserID != "user-1" {
		t.Errorf("custom key not honored: %+v", principal)
	}

	// Default key no longer matches
	ctx = incomingContext("x-user-id", "user-1")
	if principal := sagrpc.PrincipalFromContextWithConfig(ctx, config); principal != nil {
		t.Errorf("default key matched under custom config: %+v", principal)
	}
}

func TestPrincipalToOutgoingContext(t *testing.T) {
	user := &sa.SessionUser{ID: "user-1", Email: "u@example.com", Role: sa.RoleAdmin, IsActive: true}

	ctx := sagrpc.PrincipalToOutgoingContext(context.Background(), user)
	md, ok := metadata.FromOutgoingContext(ctx)
	if !ok {
		t.Fatal("no outgoing metadata")
	}
	if got := md.Get("x-user-id"); len(got) != 1 || got[0] != "user-1" {
		t.Errorf("x-user-id = %v", got)
	}
	if got := md.Get("x-user-role"); len(got) != 1 || got[0] != "admin" {
		t.Errorf("x-user-role = %v", got)
	}

	// Nil user leaves the context untouched
	ctx = sagrpc.PrincipalToOutgoingContext(context.Background(), nil)
	if _, ok := metadata.FromOutgoingContext(ctx); ok {
		t.Error("nil user added metadata")
	}
}

func TestIsAuthenticated(t *testing.T) {
	if sagrpc.IsAuthenticated(context.Background()) {
		t.Error("empty context reported as authenticated")
	}
	if !sagrpc.IsAuthenticated(incomingContext("x-user-id", "user-1")) {
		t.Error("context with user id reported as anonymous")
	}
}
