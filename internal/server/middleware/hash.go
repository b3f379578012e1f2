package middleware

import (
	"bytes"
	"net/http"

	"github.com/Heidric/queueing/internal/crypto"
)

type hashResponseWriter struct {
	http.ResponseWriter
	buf    *bytes.Buffer
	status int
}

// HashMiddleware buffers the response, signs the body with HMAC-SHA256 and
// sends the hex signature in the HashSHA256 header ahead of the body. An empty
// key disables signing.
func HashMiddleware(key string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if key == "" {
				next.ServeHTTP(w, r)
				return
			}

			hrw := &hashResponseWriter{
				ResponseWriter: w,
				buf:            new(bytes.Buffer),
			}

			next.ServeHTTP(hrw, r)

			w.Header().Set(crypto.HeaderName, crypto.HashSHA256(hrw.buf.Bytes(), key))

			status := hrw.status
			if status == 0 {
				status = http.StatusOK
			}
			w.WriteHeader(status)
			w.Write(hrw.buf.Bytes())
		})
	}
}

// WriteHeader records the status; it is sent once the body is signed.
func (w *hashResponseWriter) WriteHeader(code int) {
	if w.status == 0 {
		w.status = code
	}
}

func (w *hashResponseWriter) Write(b []byte) (int, error) {
	return w.buf.Write(b)
}
