package main

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/shirou/gopsutil/v3/cpu"
	"golang.org/x/sync/errgroup"

	"github.com/Heidric/queueing/internal/crypto"
	"github.com/Heidric/queueing/internal/customerrors"
	"github.com/Heidric/queueing/internal/logger"
	"github.com/Heidric/queueing/internal/model"
	"github.com/Heidric/queueing/internal/server"
)

var errBadSignature = errors.New("response signature mismatch")

const defaultReportInterval = 10 * time.Second

// HostProbe reads the host figures the agent turns into an M/M/c request.
type HostProbe interface {
	// Cores returns the number of logical CPUs.
	Cores(ctx context.Context) (int, error)
	// Utilization returns the busy fraction of all CPUs over window, in [0, 1].
	Utilization(ctx context.Context, window time.Duration) (float64, error)
}

type hostProbe struct{}

func (hostProbe) Cores(ctx context.Context) (int, error) {
	return cpu.CountsWithContext(ctx, true)
}

func (hostProbe) Utilization(ctx context.Context, window time.Duration) (float64, error) {
	percent, err := cpu.PercentWithContext(ctx, window, false)
	if err != nil {
		return 0, err
	}
	if len(percent) == 0 {
		return 0, errors.New("cpu: no utilization sample")
	}
	return percent[0] / 100, nil
}

type Sample struct {
	Cores       int
	Utilization float64
}

// Request models the host as c = Cores servers of rate mu each. The offered
// arrival rate is what keeps them at the measured utilization: λ = u·c·μ.
func (s Sample) Request(mu float64) model.EvaluationRequest {
	return model.EvaluationRequest{
		Model:  model.ModelMMC,
		Lambda: s.Utilization * float64(s.Cores) * mu,
		Mu:     mu,
		C:      s.Cores,
	}
}

type Agent struct {
	serverURL      string
	key            string
	serviceRate    float64
	sampleWindow   time.Duration
	reportInterval time.Duration
	probe          HostProbe
	client         *http.Client

	mu     sync.Mutex
	sample *Sample

	ctx    context.Context
	cancel context.CancelFunc
	loops  errgroup.Group
}

func NewAgent(serverAddr, key string, serviceRate float64, sampleWindow, reportInterval time.Duration, probe HostProbe) *Agent {
	if !strings.HasPrefix(serverAddr, "http://") && !strings.HasPrefix(serverAddr, "https://") {
		serverAddr = "http://" + serverAddr
	}

	if sampleWindow <= 0 {
		sampleWindow = time.Second
	}
	if reportInterval <= 0 {
		reportInterval = defaultReportInterval
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Agent{
		serverURL:      serverAddr,
		key:            key,
		serviceRate:    serviceRate,
		sampleWindow:   sampleWindow,
		reportInterval: reportInterval,
		probe:          probe,
		client:         &http.Client{Timeout: 5 * time.Second},
		ctx:            ctx,
		cancel:         cancel,
	}
}

func (a *Agent) Run() {
	a.loops.Go(func() error {
		a.pollHost()
		return nil
	})
	a.loops.Go(func() error {
		a.reportLoad()
		return nil
	})
}

// Stop cancels both loops and waits for them to return.
func (a *Agent) Stop() {
	a.cancel()
	_ = a.loops.Wait()
}

func (a *Agent) LastSample() (Sample, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.sample == nil {
		return Sample{}, false
	}
	return *a.sample, true
}

func (a *Agent) poll(ctx context.Context) error {
	cores, err := a.probe.Cores(ctx)
	if err != nil {
		return errors.Wrap(err, "count cpus")
	}
	util, err := a.probe.Utilization(ctx, a.sampleWindow)
	if err != nil {
		return errors.Wrap(err, "cpu utilization")
	}

	a.mu.Lock()
	a.sample = &Sample{Cores: cores, Utilization: util}
	a.mu.Unlock()
	return nil
}

// pollHost samples continuously; each Utilization call blocks for one window.
func (a *Agent) pollHost() {
	for {
		if err := a.poll(a.ctx); err != nil && a.ctx.Err() == nil {
			logger.Log.Warn().Err(err).Msg("host sample failed")
			select {
			case <-time.After(a.sampleWindow):
			case <-a.ctx.Done():
			}
		}

		if a.ctx.Err() != nil {
			return
		}
	}
}

func (a *Agent) reportLoad() {
	ticker := time.NewTicker(a.reportInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			sample, ok := a.LastSample()
			if !ok {
				continue
			}
			req := sample.Request(a.serviceRate)
			if req.Lambda <= 0 {
				logger.Log.Debug().Msg("host idle, nothing to report")
				continue
			}
			if err := a.send(a.ctx, &req); err != nil && a.ctx.Err() == nil {
				logger.Log.Error().Err(err).Msg("report failed")
			}
		case <-a.ctx.Done():
			return
		}
	}
}

func (a *Agent) compressData(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)

	if _, err := gz.Write(data); err != nil {
		return nil, err
	}

	if err := gz.Close(); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

// send posts one evaluation request and logs the server's verdict. An
// unstable host is a normal outcome, not an error.
func (a *Agent) send(ctx context.Context, r *model.EvaluationRequest) error {
	body, err := json.Marshal(r)
	if err != nil {
		return errors.Wrap(err, "encode request")
	}

	compressed, err := a.compressData(body)
	if err != nil {
		return errors.Wrap(err, "compress request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.serverURL+"/evaluate/", bytes.NewReader(compressed))
	if err != nil {
		return errors.Wrap(err, "new request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Content-Encoding", "gzip")
	req.Header.Set(server.SourceHeader, model.SourceAgent)

	resp, err := a.client.Do(req)
	if err != nil {
		return errors.Wrap(err, "post evaluation")
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.Wrap(err, "read response")
	}

	if a.key != "" && !crypto.Verify(data, a.key, resp.Header.Get(crypto.HeaderName)) {
		return errBadSignature
	}

	switch resp.StatusCode {
	case http.StatusOK:
		var e model.Evaluation
		if err := json.Unmarshal(data, &e); err != nil {
			return errors.Wrap(err, "decode evaluation")
		}
		if e.Metrics == nil {
			return errors.Errorf("evaluation %d has no metrics", e.ID)
		}
		logger.Log.Info().
			Int64("id", e.ID).
			Int("servers", r.C).
			Float64("rho", e.Metrics.Rho).
			Float64("Wq", e.Metrics.Wq).
			Float64("W", e.Metrics.W).
			Msg("host load evaluated")
		return nil
	case http.StatusUnprocessableEntity:
		var problem customerrors.CommonError
		if err := json.Unmarshal(data, &problem); err != nil {
			return errors.Wrap(err, "decode problem")
		}
		logger.Log.Warn().
			Int("servers", r.C).
			Float64("lambda", r.Lambda).
			Str("detail", problem.Details).
			Msg("host load rejected by model")
		return nil
	default:
		return errors.Errorf("unexpected status %d", resp.StatusCode)
	}
}
