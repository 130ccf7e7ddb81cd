package auth

import (
	"context"
	"time"
)

// User is the caller of an admin route.
type User struct {
	Username string
	// Method is the authentication type that admitted the user.
	Method    string
	ExpiresAt *time.Time
}

type userKey struct{}

func NewUserContext(ctx context.Context, u User) context.Context {
	return context.WithValue(ctx, userKey{}, u)
}

func UserFromContext(ctx context.Context) (User, bool) {
	u, ok := ctx.Value(userKey{}).(User)
	return u, ok
}

// UsernameFromContext returns the admin name for logging, or an empty string for
// unauthenticated requests.
func UsernameFromContext(ctx context.Context) string {
	if u, ok := UserFromContext(ctx); ok {
		return u.Username
	}
	return ""
}
