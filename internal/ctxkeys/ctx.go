package ctxkeys

import (
	"context"

	"github.com/adpanel/adpanel/internal/model"
)

// contextKey is a type for context keys to avoid collisions
type contextKey string

const (
	UserKey         contextKey = "user"
	ImpersonatorKey contextKey = "impersonator"
)

func User(ctx context.Context) *model.User {
	user, _ := ctx.Value(UserKey).(*model.User)
	return user
}

func WithUser(ctx context.Context, user *model.User) context.Context {
	return context.WithValue(ctx, UserKey, user)
}

// Impersonator returns the id of the admin behind a shadow login, or "".
func Impersonator(ctx context.Context) string {
	id, _ := ctx.Value(ImpersonatorKey).(string)
	return id
}

func WithImpersonator(ctx context.Context, adminID string) context.Context {
	return context.WithValue(ctx, ImpersonatorKey, adminID)
}
