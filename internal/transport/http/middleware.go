package http

import (
	"crypto/subtle"
	stdhttp "net/http"

	"github.com/rs/zerolog"
)

// RequireToken gates a handler behind the single shared connection token,
// passed as the "token" query parameter. Constant-time comparison; a
// mismatch answers 401 and the wrapped handler never runs.
func RequireToken(token string, next stdhttp.Handler, logger *zerolog.Logger) stdhttp.Handler {
	return stdhttp.HandlerFunc(func(w stdhttp.ResponseWriter, r *stdhttp.Request) {
		presented := r.URL.Query().Get("token")
		if subtle.ConstantTimeCompare([]byte(presented), []byte(token)) != 1 {
			logger.Warn().Str("remote", r.RemoteAddr).Msg("connection token validation failed")
			stdhttp.Error(w, "authentication error", stdhttp.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}
