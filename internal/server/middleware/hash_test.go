package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Heidric/queueing/internal/crypto"
)

func TestHashMiddleware_PassThroughWhenKeyEmpty(t *testing.T) {
	body := []byte("hello")
	h := HashMiddleware("")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
		_, _ = w.Write(body)
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusTeapot, rec.Code)
	assert.Empty(t, rec.Header().Get(crypto.HeaderName))
	assert.Equal(t, string(body), rec.Body.String())
}

func TestHashMiddleware_SignsBody(t *testing.T) {
	key := "sekret"
	body := []byte(`{"model":"M/M/1","rho":0.4}`)

	h := HashMiddleware(key)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(body)
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	got := rec.Header().Get(crypto.HeaderName)
	assert.Equal(t, crypto.HashSHA256(body, key), got)
	assert.True(t, crypto.Verify(rec.Body.Bytes(), key, got))
	assert.Equal(t, string(body), rec.Body.String())
}

func TestHashMiddleware_KeepsStatus(t *testing.T) {
	h := HashMiddleware("sekret")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("unstable"))
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/evaluate/", nil))

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.NotEmpty(t, rec.Header().Get(crypto.HeaderName))
}
