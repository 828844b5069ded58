package identity

import (
	"context"

	"github.com/prudhivi99/Distributed-Systems/marketplace-go/internal/models"
)

type ctxKey struct{}

func WithUser(ctx context.Context, u *models.User) context.Context {
	return context.WithValue(ctx, ctxKey{}, u)
}

// UserFromContext returns nil when the request is anonymous.
func UserFromContext(ctx context.Context) *models.User {
	u, _ := ctx.Value(ctxKey{}).(*models.User)
	return u
}

// Provider supplies the current actor. Carts and orders are only reachable
// when it returns a user.
type Provider interface {
	CurrentUser(ctx context.Context) *models.User
}

// ContextProvider reads the user stored by WithUser.
type ContextProvider struct{}

func (ContextProvider) CurrentUser(ctx context.Context) *models.User {
	return UserFromContext(ctx)
}
