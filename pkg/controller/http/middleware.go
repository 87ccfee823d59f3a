package http

import (
	"crypto/subtle"
	"net/http"
	"strings"
)

const bridgeTokenHeader = "X-Kizuna-Bridge-Token"

// bridgeTokenMiddleware rejects requests that do not carry the shared host token,
// either in the bridge header or as a bearer token.
func bridgeTokenMiddleware(token string) func(http.Handler) http.Handler {
	expected := []byte(token)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got := r.Header.Get(bridgeTokenHeader)
			if got == "" {
				got = strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
			}

			if got == "" {
				writeError(w, http.StatusUnauthorized, "bridge token required")
				return
			}
			if subtle.ConstantTimeCompare([]byte(got), expected) != 1 {
				writeError(w, http.StatusUnauthorized, "invalid bridge token")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
