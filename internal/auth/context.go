package auth

import "context"

type contextKey struct{}

// AuthContext identifies the household a request acts for. The household id
// is the tenant key every store call is scoped by.
type AuthContext struct {
	HouseholdID int64
	SessionID   int64
	Token       string
}

func WithAuth(ctx context.Context, ac AuthContext) context.Context {
	return context.WithValue(ctx, contextKey{}, ac)
}

func FromContext(ctx context.Context) (AuthContext, bool) {
	ac, ok := ctx.Value(contextKey{}).(AuthContext)
	return ac, ok
}

func HouseholdID(ctx context.Context) int64 {
	ac, ok := FromContext(ctx)
	if !ok {
		return 0
	}
	return ac.HouseholdID
}
