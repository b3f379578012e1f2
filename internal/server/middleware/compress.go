// Package middleware holds the HTTP middleware specific to the queue server.
package middleware

import (
	"bytes"
	"compress/gzip"
	"io"
	"net/http"

	"github.com/Heidric/queueing/internal/customerrors"
)

// DecompressMiddleware unpacks gzip request bodies. A body that claims gzip
// but is not gzip is passed through unchanged.
func DecompressMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Content-Encoding") != "gzip" {
			next.ServeHTTP(w, r)
			return
		}

		body, err := io.ReadAll(r.Body)
		if err != nil {
			customerrors.WriteError(w, http.StatusBadRequest, "could not read request body")
			return
		}

		gr, err := gzip.NewReader(bytes.NewReader(body))
		if err != nil {
			r.Body = io.NopCloser(bytes.NewReader(body))
			next.ServeHTTP(w, r)
			return
		}
		defer gr.Close()

		r.Header.Del("Content-Encoding")
		r.Body = gr

		next.ServeHTTP(w, r)
	})
}
