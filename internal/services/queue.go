package services

import (
	"context"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/Heidric/queueing/internal/customerrors"
	"github.com/Heidric/queueing/internal/db"
	"github.com/Heidric/queueing/internal/logger"
	"github.com/Heidric/queueing/internal/model"
	"github.com/Heidric/queueing/internal/queue"
)

const (
	DefaultSweepPoints = 100
	MaxSweepPoints     = 10000
)

type QueueService struct {
	storage      db.HistoryStorage
	historyLimit int
}

func NewQueueService(storage db.HistoryStorage, historyLimit int) *QueueService {
	return &QueueService{storage: storage, historyLimit: historyLimit}
}

func ctxLogger(ctx context.Context) *zerolog.Logger {
	if l := zerolog.Ctx(ctx); l.GetLevel() != zerolog.Disabled {
		return l
	}
	return logger.Log
}

func invalid(err error) error {
	return errors.Wrap(customerrors.ErrInvalidValue, err.Error())
}

func normalizeSource(source string) (string, error) {
	switch source {
	case "":
		return model.SourceAPI, nil
	case model.SourceAPI, model.SourceAgent, model.SourceCLI:
		return source, nil
	default:
		return "", errors.Wrapf(customerrors.ErrInvalidValue, "unknown source %q", source)
	}
}

// Evaluate runs the model named by req and records the outcome in history.
// A model error (unstable queue, bad server count, degenerate rates) is
// recorded too and returned together with the record. Failing to store the
// record is logged and does not change the result.
func (s *QueueService) Evaluate(ctx context.Context, source string, req *model.EvaluationRequest) (*model.Evaluation, error) {
	if req == nil {
		return nil, customerrors.ErrInvalidValue
	}

	src, err := normalizeSource(source)
	if err != nil {
		return nil, err
	}

	kind, err := model.ParseModelKind(string(req.Model))
	if err != nil {
		return nil, invalid(err)
	}

	e := &model.Evaluation{
		Source: src,
		Request: model.EvaluationRequest{
			Model:  kind,
			Lambda: req.Lambda,
			Mu:     req.Mu,
		},
	}
	if kind == model.ModelMMC {
		e.Request.C = req.C
	}

	res, evalErr := queue.Evaluate(kind, req.Lambda, req.Mu, req.C)
	if evalErr != nil {
		e.Error = evalErr.Error()
		var merr *queue.ModelError
		if errors.As(evalErr, &merr) {
			e.ErrorKind = merr.Kind.String()
		}
	} else {
		e.Metrics = &res
	}

	log := ctxLogger(ctx)
	if err := s.storage.Save(ctx, e); err != nil {
		log.Error().Err(err).Str("model", string(kind)).Msg("failed to record evaluation")
	}

	ev := log.Debug().
		Int64("id", e.ID).
		Str("source", src).
		Str("model", string(kind)).
		Float64("lambda", req.Lambda).
		Float64("mu", req.Mu)
	if evalErr != nil {
		ev.Str("error_kind", e.ErrorKind).Msg("evaluation rejected")
	} else {
		ev.Float64("rho", res.Rho).Msg("evaluation done")
	}

	return e, evalErr
}

// Sweep samples req.Metric across (0, req.LambdaMax]. It rewrites req.Metric
// to the canonical field name and fills in the default point count.
func (s *QueueService) Sweep(ctx context.Context, req *model.SweepRequest) ([]model.SweepPoint, error) {
	if req == nil {
		return nil, customerrors.ErrInvalidValue
	}

	kind, err := model.ParseModelKind(string(req.Model))
	if err != nil {
		return nil, invalid(err)
	}
	req.Model = kind

	metric, err := queue.ParseMetric(req.Metric)
	if err != nil {
		return nil, invalid(err)
	}
	req.Metric = metric.String()

	if req.Points == 0 {
		req.Points = DefaultSweepPoints
	}
	if req.Points > MaxSweepPoints {
		return nil, errors.Wrapf(customerrors.ErrInvalidValue, "points must be <= %d", MaxSweepPoints)
	}

	points, err := queue.SampleMetric(metric, kind, req.Mu, req.C, req.LambdaMax, req.Points)
	if err != nil {
		return nil, invalid(err)
	}

	ctxLogger(ctx).Debug().
		Str("metric", req.Metric).
		Str("model", string(kind)).
		Int("points", len(points)).
		Msg("sweep done")

	return points, nil
}

// History returns recent evaluations, newest first. A limit outside
// (0, historyLimit] is replaced by historyLimit.
func (s *QueueService) History(ctx context.Context, limit int) ([]model.Evaluation, error) {
	if limit <= 0 || limit > s.historyLimit {
		limit = s.historyLimit
	}
	return s.storage.List(ctx, limit)
}

func (s *QueueService) Get(ctx context.Context, id int64) (*model.Evaluation, error) {
	return s.storage.Get(ctx, id)
}

func (s *QueueService) Ping(ctx context.Context) error {
	return s.storage.Ping(ctx)
}
