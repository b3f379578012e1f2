package server

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi"
	chimiddleware "github.com/go-chi/chi/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/Heidric/queueing/internal/logger"
	"github.com/Heidric/queueing/internal/model"
	"github.com/Heidric/queueing/internal/server/middleware"
)

// SourceHeader names the client that asked for an evaluation (api, agent or cli).
const SourceHeader = "X-Evaluation-Source"

type Queue interface {
	Evaluate(ctx context.Context, source string, req *model.EvaluationRequest) (*model.Evaluation, error)
	Sweep(ctx context.Context, req *model.SweepRequest) ([]model.SweepPoint, error)
	History(ctx context.Context, limit int) ([]model.Evaluation, error)
	Get(ctx context.Context, id int64) (*model.Evaluation, error)
	Ping(ctx context.Context) error
}

type Server struct {
	Srv   *http.Server
	queue Queue
}

// NewServer wires the routes. A non-empty key signs every response body.
func NewServer(addr, key string, queue Queue) *Server {
	r := chi.NewRouter()
	s := &Server{
		Srv:   &http.Server{Addr: addr, Handler: r},
		queue: queue,
	}

	r.Use(chimiddleware.RequestID)
	r.Use(logger.Middleware)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.DecompressMiddleware)
	r.Use(chimiddleware.Compress(5, "application/json", "text/plain", "text/csv", "text/html"))
	r.Use(middleware.HashMiddleware(key))

	r.Route("/", func(r chi.Router) {
		r.Get("/", s.historyPageHandler)
		r.Get("/ping", s.pingHandler)
		r.Get("/evaluate/mm1/{lambda}/{mu}", s.evaluatePathHandler)
		r.Get("/evaluate/mmc/{lambda}/{mu}/{c}", s.evaluatePathHandler)
		r.Post("/evaluate/", s.evaluateJSONHandler)
		r.Post("/sweep/", s.sweepJSONHandler)
		r.Post("/sweep/csv", s.sweepCSVHandler)
		r.Get("/history/", s.historyJSONHandler)
		r.Get("/history/{id}", s.getEvaluationHandler)
		r.Get("/history/{id}/csv", s.getEvaluationCSVHandler)
	})

	r.NotFound(s.notFoundHandler)

	return s
}

func (s *Server) Run(ctx context.Context, runner *errgroup.Group) {
	logger.Log.Info().Str("address", s.Srv.Addr).Msg("Http server started.")

	runner.Go(func() error {
		if err := s.Srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})
}

// Shutdown drains connections for up to ten seconds. It still runs when ctx
// is already cancelled, which is the usual case on a signal.
func (s *Server) Shutdown(ctx context.Context) error {
	logger.Log.Info().Msg("Http server stopped.")

	nctx, stop := context.WithTimeout(context.WithoutCancel(ctx), time.Second*10)
	defer stop()

	return s.Srv.Shutdown(nctx)
}

func (s *Server) GetRouter() *chi.Mux {
	return s.Srv.Handler.(*chi.Mux)
}
