package grpc_test

import (
	"context"
	"testing"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	sagrpc "github.com/shieldauth/shieldauth/grpc"
)

func unaryInvoke(t *testing.T, interceptor grpc.UnaryServerInterceptor, ctx context.Context, method string) error {
	t.Helper()
	info := &grpc.UnaryServerInfo{FullMethod: method}
	handler := func(ctx context.Context, req any) (any, error) { return "ok", nil }
	_, err := interceptor(ctx, nil, info, handler)
	return err
}

func TestUnaryAuthInterceptorRequiresAuth(t *testing.T) {
	interceptor := sagrpc.UnaryAuthInterceptor(sagrpc.DefaultInterceptorConfig())

	err := unaryInvoke(t, interceptor, context.Background(), "/shieldauth.Users/Get")
	if status.Code(err) != codes.Unauthenticated {
		t.Errorf("anonymous call: expected Unauthenticated, got %v", err)
	}

	ctx := incomingContext("x-user-id", "user-1")
	if err := unaryInvoke(t, interceptor, ctx, "/shieldauth.Users/Get"); err != nil {
		t.Errorf("authenticated call rejected: %v", err)
	}
}

func TestUnaryAuthInterceptorPublicMethods(t *testing.T) {
	config := sagrpc.NewPublicMethodsConfig("/shieldauth.Users/Register")
	interceptor := sagrpc.UnaryAuthInterceptor(config)

	if err := unaryInvoke(t, interceptor, context.Background(), "/shieldauth.Users/Register"); err != nil {
		t.Errorf("public method rejected: %v", err)
	}
	err := unaryInvoke(t, interceptor, context.Background(), "/shieldauth.Users/Get")
	if status.Code(err) != codes.Unauthenticated {
		t.Errorf("non-public method admitted anonymously: %v", err)
	}
}

func TestUnaryAuthInterceptorOptionalAuth(t *testing.T) {
	interceptor := sagrpc.UnaryAuthInterceptor(sagrpc.OptionalAuthConfig())

	if err := unaryInvoke(t, interceptor, context.Background(), "/shieldauth.Users/Get"); err != nil {
		t.Errorf("optional auth rejected anonymous call: %v", err)
	}
}

func TestUnaryAuthInterceptorAdminMethods(t *testing.T) {
	config := sagrpc.DefaultInterceptorConfig()
	config.AdminMethods["/shieldauth.Admin/SetUserActive"] = true
	interceptor := sagrpc.UnaryAuthInterceptor(config)

	t.Run("Anonymous", func(t *testing.T) {
		err := unaryInvoke(t, interceptor, context.Background(), "/shieldauth.Admin/SetUserActive")
		if status.Code(err) != codes.Unauthenticated {
			t.Errorf("expected Unauthenticated, got %v", err)
		}
	})

	t.Run("RegularUser", func(t *testing.T) {
		ctx := incomingContext("x-user-id", "user-1", "x-user-role", "user")
		err := unaryInvoke(t, interceptor, ctx, "/shieldauth.Admin/SetUserActive")
		if status.Code(err) != codes.PermissionDenied {
			t.Errorf("expected PermissionDenied, got %v", err)
		}
	})

	t.Run("Admin", func(t *testing.T) {
		ctx := incomingContext("x-user-id", "admin-1", "x-user-role", "admin")
		if err := unaryInvoke(t, interceptor, ctx, "/shieldauth.Admin/SetUserActive"); err != nil {
			t.Errorf("admin rejected: %v", err)
		}
	})

	t.Run("AdminOnNormalMethod", func(t *testing.T) {
		ctx := incomingContext("x-user-id", "user-1", "x-user-role", "user")
		if err := unaryInvoke(t, interceptor, ctx, "/shieldauth.Users/Get"); err != nil {
			t.Errorf("regular method rejected for regular user: %v", err)
		}
	})
}

type fakeServerStream struct {
	grpc.ServerStream
	ctx context.Context
}

func (s *fakeServerStream) Context() context.Context { return s.ctx }

func TestStreamAuthInterceptor(t *testing.T) {
	interceptor := sagrpc.StreamAuthInterceptor(sagrpc.DefaultInterceptorConfig())
	info := &grpc.StreamServerInfo{FullMethod: "/shieldauth.Users/Watch"}
	handler := func(srv any, stream grpc.ServerStream) error { return nil }

	err := interceptor(nil, &fakeServerStream{ctx: context.Background()}, info, handler)
	if status.Code(err) != codes.Unauthenticated {
		t.Errorf("anonymous stream: expected Unauthenticated, got %v", err)
	}

	stream := &fakeServerStream{ctx: incomingContext("x-user-id", "user-1")}
	if err := interceptor(nil, stream, info, handler); err != nil {
		t.Errorf("authenticated stream rejected: %v", err)
	}
}
