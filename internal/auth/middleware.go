package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	httperrors "github.com/reviewarcade/platform/pkg/http/errors"
)

type claimsKey struct{}

// Middleware validates teacher bearer tokens and injects claims into the
// request context. Requests without an Authorization header pass through
// unauthenticated; handlers that need a teacher use RequireTeacher.
func Middleware(verifier *Verifier, logger zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				next.ServeHTTP(w, r)
				return
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || parts[0] != "Bearer" {
				httperrors.RespondUnauthorized(w, httperrors.ErrCodeAuthInvalid, "invalid authorization header")
				return
			}

			claims, err := verifier.Verify(parts[1])
			if err != nil {
				logger.Warn().Err(err).Msg("bearer token validation failed")
				httperrors.RespondUnauthorized(w, httperrors.ErrCodeAuthInvalid, "invalid or expired token")
				return
			}

			next.ServeHTTP(w, r.WithContext(WithClaims(r.Context(), claims)))
		})
	}
}

// WithClaims attaches verified teacher claims to a context.
func WithClaims(ctx context.Context, claims *TeacherClaims) context.Context {
	return context.WithValue(ctx, claimsKey{}, claims)
}

// ClaimsFromContext returns the verified teacher claims, if any.
func ClaimsFromContext(ctx context.Context) *TeacherClaims {
	claims, _ := ctx.Value(claimsKey{}).(*TeacherClaims)
	return claims
}

// RequireTeacher ensures the request carries verified teacher claims.
func RequireTeacher(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if ClaimsFromContext(r.Context()) == nil {
			httperrors.RespondUnauthorized(w, httperrors.ErrCodeAuthRequired, "teacher authentication required")
			return
		}
		next.ServeHTTP(w, r)
	})
}
