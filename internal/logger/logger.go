package logger

import (
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/middleware"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/Heidric/queueing/pkg/log"
)

// Log is the process-wide zerolog logger. It discards everything until
// Initialize is called.
var Log = func() *zerolog.Logger { l := zerolog.Nop(); return &l }()

// Initialize builds the logger described by config on stderr and assigns it
// to Log.
func Initialize(config *log.Config) (*log.Logger, error) {
	logger, err := log.NewLogger(config, os.Stderr)
	if err != nil {
		return nil, errors.Wrap(err, "new logger")
	}

	Log = logger.Zerolog()

	return logger, nil
}

// Middleware writes one access log entry per request and exposes Log to the
// handlers through the request context (zerolog.Ctx), tagged with the chi
// request id when one is set.
func Middleware(next http.Handler) http.Handler {
	fn := func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		reqLog := Log.With().Str("request_id", middleware.GetReqID(r.Context())).Logger()
		r = r.WithContext(reqLog.WithContext(r.Context()))

		responseData := &responseData{}
		lw := loggingResponseWriter{
			ResponseWriter: w,
			responseData:   responseData,
		}
		next.ServeHTTP(&lw, r)

		status := responseData.status
		if status == 0 {
			status = http.StatusOK
		}

		reqLog.Info().
			Str("uri", r.RequestURI).
			Str("method", r.Method).
			Dur("duration", time.Since(start)).
			Int("status", status).
			Int("size", responseData.size).
			Msg("got HTTP request")
	}

	return http.HandlerFunc(fn)
}

type responseData struct {
	status int
	size   int
}

type loggingResponseWriter struct {
	http.ResponseWriter
	responseData *responseData
}

func (r *loggingResponseWriter) Write(b []byte) (int, error) {
	size, err := r.ResponseWriter.Write(b)
	r.responseData.size += size
	return size, err
}

func (r *loggingResponseWriter) WriteHeader(statusCode int) {
	r.ResponseWriter.WriteHeader(statusCode)
	r.responseData.status = statusCode
}
