package admin

import (
	"crypto/subtle"
	"log/slog"
	"net/http"

	dErrors "fairdraw/pkg/domain-errors"
	"fairdraw/pkg/platform/httputil"
	"fairdraw/pkg/requestcontext"
)

// TokenHeader carries the operator token on run-creating requests.
const TokenHeader = "X-Admin-Token"

// RequireAdminToken rejects requests that do not present the operator token.
func RequireAdminToken(expectedToken string, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := r.Header.Get(TokenHeader)
			// constant-time comparison
			if expectedToken == "" || subtle.ConstantTimeCompare([]byte(token), []byte(expectedToken)) != 1 {
				ctx := r.Context()
				logger.WarnContext(ctx, "admin token mismatch",
					"request_id", requestcontext.RequestID(ctx),
					"client_ip", requestcontext.ClientIP(ctx),
				)
				httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "admin token required"))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
