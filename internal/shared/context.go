package shared

import "context"

// Scope identifies the company and acting user for a request. Every service
// and repository call takes one; repositories bind CompanyID into every query.
type Scope struct {
	CompanyID int64
	ActorID   int64
}

// Validate checks that the scope identifies a company.
func (s Scope) Validate() error {
	if s.CompanyID == 0 {
		return NewValidation("company id required")
	}
	return nil
}

type scopeContextKey struct{}

// ContextWithScope stores the request scope in context.
func ContextWithScope(ctx context.Context, scope Scope) context.Context {
	return context.WithValue(ctx, scopeContextKey{}, scope)
}

// ScopeFromContext extracts the request scope from context.
func ScopeFromContext(ctx context.Context) (Scope, bool) {
	scope, ok := ctx.Value(scopeContextKey{}).(Scope)
	return scope, ok
}
