package middleware

import (
	"context"
	"strings"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	apiv1 "skytrack/internal/api/v1"
	"skytrack/internal/auth"
	"skytrack/internal/logger"
)

type ctxKey string

const (
	UserIDKey   ctxKey = "uid"
	ProviderKey ctxKey = "idp"
)

// UserID returns the uid the auth interceptor attached to ctx.
func UserID(ctx context.Context) (string, bool) {
	uid, ok := ctx.Value(UserIDKey).(string)
	return uid, ok && uid != ""
}

// WithUserID is what the auth interceptor does after a good token.
func WithUserID(ctx context.Context, uid, provider string) context.Context {
	ctx = context.WithValue(ctx, UserIDKey, uid)
	return context.WithValue(ctx, ProviderKey, provider)
}

func Auth(issuer *auth.Issuer, log *logger.Logger) grpc.UnaryServerInterceptor {
	log = log.WithComponent("auth")
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, next grpc.UnaryHandler) (any, error) {
		if apiv1.Public[info.FullMethod] {
			return next(ctx, req)
		}

		raw := bearer(ctx)
		if raw == "" {
			return nil, status.Error(codes.Unauthenticated, "no token")
		}
		claims, err := issuer.ParseToken(raw)
		if err != nil {
			log.LogSecurityEvent("bad_token", "", ClientIP(ctx))
			return nil, status.Error(codes.Unauthenticated, "bad token")
		}
		return next(WithUserID(ctx, claims.UserID, claims.Provider), req)
	}
}

// token from Authorization: Bearer <jwt>
func bearer(ctx context.Context) string {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return ""
	}
	vals := md.Get("authorization")
	if len(vals) == 0 {
		return ""
	}
	raw, ok := strings.CutPrefix(vals[0], "Bearer ")
	if !ok {
		return ""
	}
	return strings.TrimSpace(raw)
}
