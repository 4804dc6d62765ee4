package api

import (
	"net/http"
	"strings"

	"github.com/calebds/userapi/auth"
	"github.com/calebds/userapi/webutil"
)

const bearerPrefix = "Bearer "

// RequireToken gates a route behind a valid bearer token. A missing
// header, a non-Bearer value, or a token failing validation all reject
// with 401 before the handler runs. The subject is not resolved here;
// gated routes only need to know the caller holds a live token.
func RequireToken(tokens *auth.TokenIssuer) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get(webutil.HeaderAuthorization)
			if !strings.HasPrefix(header, bearerPrefix) {
				webutil.RespondError(w, http.StatusUnauthorized, "Invalid or missing token")
				return
			}
			token := strings.TrimPrefix(header, bearerPrefix)
			if err := tokens.Validate(token); err != nil {
				webutil.RespondError(w, http.StatusUnauthorized, "Invalid or missing token")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
