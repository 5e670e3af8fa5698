package middleware

import (
	"log/slog"
	"net/http"
	"strings"

	dErrors "caseflow/pkg/domain-errors"
	"caseflow/pkg/platform/httputil"
	"caseflow/pkg/requestcontext"
)

// ActorValidator turns a bearer token into the acting officer's identity.
type ActorValidator interface {
	ValidateToken(tokenString string) (requestcontext.ActorIdentity, error)
}

// RequireActor rejects requests without a valid bearer token and stamps
// the actor identity into the request context for history and notes.
func RequireActor(validator ActorValidator, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			authHeader := r.Header.Get("Authorization")
			token, ok := strings.CutPrefix(authHeader, "Bearer ")
			if !ok {
				logger.WarnContext(ctx, "request without bearer token",
					"request_id", requestcontext.RequestID(ctx), "path", r.URL.Path)
				httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized,
					"missing or invalid Authorization header"))
				return
			}

			actor, err := validator.ValidateToken(token)
			if err != nil {
				logger.WarnContext(ctx, "invalid actor token",
					"request_id", requestcontext.RequestID(ctx), "error", err)
				httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized,
					"invalid or expired token"))
				return
			}

			next.ServeHTTP(w, r.WithContext(requestcontext.WithActor(ctx, actor)))
		})
	}
}
