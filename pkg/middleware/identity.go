package middleware

import (
	"context"
	"net/http"
)

type contextKeyType string

const (
	memberIDKey contextKeyType = "member_id"
	roleKey     contextKeyType = "role"
)

// RoleAdmin is the role value that grants access to other members' resources.
const RoleAdmin = "ADMIN"

// Identity extracts the caller identity from the X-Member-ID and X-Member-Role
// headers set by the API gateway after token validation, and stores them in
// the request context. Requests without an identity pass through; handlers
// decide whether anonymous access is allowed.
func Identity() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			if id := r.Header.Get("X-Member-ID"); id != "" {
				ctx = context.WithValue(ctx, memberIDKey, id)
			}
			if role := r.Header.Get("X-Member-Role"); role != "" {
				ctx = context.WithValue(ctx, roleKey, role)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// MemberIDFromContext extracts the caller's member ID from the request context.
func MemberIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(memberIDKey).(string); ok {
		return id
	}
	return ""
}

// RoleFromContext extracts the caller's role from the request context.
func RoleFromContext(ctx context.Context) string {
	if role, ok := ctx.Value(roleKey).(string); ok {
		return role
	}
	return ""
}

// IsAdmin reports whether the caller has the admin role.
func IsAdmin(ctx context.Context) bool {
	return RoleFromContext(ctx) == RoleAdmin
}
