package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/askbase/knowledge-backend/internal/entity"
	"github.com/askbase/knowledge-backend/internal/pkg/response"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"
)

// TokenVerifier resolves a bearer token to a user id. Verification itself
// is an external collaborator.
type TokenVerifier interface {
	Verify(ctx context.Context, token string) (string, error)
}

type callerContextKey struct{}

// providerKeyHeader carries a caller-supplied model provider key (BYOK).
const providerKeyHeader = "X-Provider-Key"

// Auth resolves the caller identity. Anonymous requests pass through with
// an empty identity; a present but invalid bearer token is rejected.
func Auth(verifier TokenVerifier) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			caller := entity.Caller{
				ProviderKey: r.Header.Get(providerKeyHeader),
			}

			if auth := r.Header.Get("Authorization"); auth != "" {
				token, ok := strings.CutPrefix(auth, "Bearer ")
				if !ok {
					response.Error(w, http.StatusUnauthorized, "malformed authorization header")
					return
				}

				userID, err := verifier.Verify(r.Context(), token)
				if err != nil {
					ctxzap.Warn(r.Context(), "token verification failed", zap.Error(err))
					response.Error(w, http.StatusUnauthorized, "invalid access token")
					return
				}
				caller.UserID = &userID
			}

			ctx := context.WithValue(r.Context(), callerContextKey{}, caller)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// CallerFromContext returns the identity resolved by Auth. Zero value when
// the middleware did not run.
func CallerFromContext(ctx context.Context) entity.Caller {
	caller, _ := ctx.Value(callerContextKey{}).(entity.Caller)
	return caller
}
