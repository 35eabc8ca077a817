package middleware

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/brewhouse/cafe-backend/api/responses"
	"github.com/brewhouse/cafe-backend/pkg/enums"
	pkgerrors "github.com/brewhouse/cafe-backend/pkg/errors"
	"github.com/brewhouse/cafe-backend/pkg/logger"
)

type identityKey struct{}

// Identity is the authenticated caller.
type Identity struct {
	UserID uuid.UUID
	Role   enums.UserRole
}

// Operator reports whether the caller may act on orders it does not own.
func (i Identity) Operator() bool { return i.Role.IsOperator() }

func WithIdentity(ctx context.Context, id Identity) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, identityKey{}, id)
}

// IdentityFrom returns the caller Auth stored, if any.
func IdentityFrom(ctx context.Context) (Identity, bool) {
	if ctx == nil {
		return Identity{}, false
	}
	id, ok := ctx.Value(identityKey{}).(Identity)
	return id, ok && id.UserID != uuid.Nil
}

// UserIDFromContext is "" for anonymous requests.
func UserIDFromContext(ctx context.Context) string {
	if id, ok := IdentityFrom(ctx); ok {
		return id.UserID.String()
	}
	return ""
}

func IsOperator(r *http.Request) bool {
	id, _ := IdentityFrom(r.Context())
	return id.Operator()
}

// RequireOperator limits a route to staff and admins.
func RequireOperator(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !IsOperator(r) {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "operator role required"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
