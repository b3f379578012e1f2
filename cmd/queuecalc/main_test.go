package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/Heidric/queueing/internal/db"
	"github.com/Heidric/queueing/internal/model"
	"github.com/Heidric/queueing/internal/queue"
	"github.com/Heidric/queueing/internal/server"
	"github.com/Heidric/queueing/internal/services"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestMM1(t *testing.T) {
	t.Run("Text", func(t *testing.T) {
		out, err := run(t, "mm1", "--lambda", "2", "--mu", "5")
		require.NoError(t, err)
		assert.Contains(t, out, "Model: M/M/1\n")
		assert.Contains(t, out, "Lq (avg # in queue): 0.266667\n")
	})

	t.Run("JSON", func(t *testing.T) {
		out, err := run(t, "mm1", "-l", "2", "-m", "5", "-o", "json")
		require.NoError(t, err)

		var m model.Metrics
		require.NoError(t, json.Unmarshal([]byte(out), &m))
		assert.Equal(t, "M/M/1", m.Model)
		assert.InDelta(t, 1.0/3.0, m.W, 1e-12)
		assert.NotContains(t, out, "p0")
	})

	t.Run("Unstable", func(t *testing.T) {
		out, err := run(t, "mm1", "--lambda", "5", "--mu", "3")
		require.ErrorIs(t, err, queue.ErrUnstable)

		var reported *reportedError
		assert.ErrorAs(t, err, &reported)
		assert.Equal(t, "Error: System unstable (ρ >= 1)\n", out)
	})

	t.Run("Unstable as CSV", func(t *testing.T) {
		out, err := run(t, "mm1", "--lambda", "5", "--mu", "3", "--output", "csv")
		require.Error(t, err)
		assert.Equal(t, "error,System unstable (ρ >= 1)\n", out)
	})
}

func TestMMC(t *testing.T) {
	t.Run("YAML", func(t *testing.T) {
		out, err := run(t, "mmc", "--lambda", "5", "--mu", "3", "--servers", "3", "-o", "yaml")
		require.NoError(t, err)

		var m model.Metrics
		require.NoError(t, yaml.Unmarshal([]byte(out), &m))
		assert.Equal(t, "M/M/3", m.Model)
		require.NotNil(t, m.P0)
		assert.InDelta(t, 0.172662, *m.P0, 1e-6)
		assert.InDelta(t, 2.041367, m.L, 1e-6)
	})

	t.Run("CSV", func(t *testing.T) {
		out, err := run(t, "mmc", "--lambda", "5", "--mu", "3", "-c", "3", "-o", "csv")
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(out, "model,M/M/3\nlambda,5\nmu,3\nservers,3\n"), out)
	})

	t.Run("Invalid server count as JSON", func(t *testing.T) {
		out, err := run(t, "mmc", "--lambda", "1", "--mu", "3", "-c", "0", "-o", "json")
		require.ErrorIs(t, err, queue.ErrInvalidServerCount)

		var e errorOutput
		require.NoError(t, json.Unmarshal([]byte(out), &e))
		assert.Equal(t, "c must be >= 1", e.Error)
		assert.Equal(t, "invalid_server_count", e.Kind)
	})

	t.Run("Environment", func(t *testing.T) {
		t.Setenv("QUEUECALC_LAMBDA", "5")
		t.Setenv("QUEUECALC_MU", "3")
		t.Setenv("QUEUECALC_SERVERS", "3")

		out, err := run(t, "mmc")
		require.NoError(t, err)
		assert.Contains(t, out, "p0 (idle prob): 0.172662")
	})

	t.Run("Flag beats environment", func(t *testing.T) {
		t.Setenv("QUEUECALC_SERVERS", "1")

		out, err := run(t, "mmc", "--lambda", "5", "--mu", "3", "-c", "3")
		require.NoError(t, err)
		assert.Contains(t, out, "servers c: 3")
	})
}

func TestSweep(t *testing.T) {
	t.Run("Text with unstable tail", func(t *testing.T) {
		out, err := run(t, "sweep", "--metric", "Lq", "--model", "mm1", "--mu", "3", "--lambda-max", "5", "--points", "5")
		require.NoError(t, err)

		lines := strings.Split(strings.TrimSpace(out), "\n")
		require.Len(t, lines, 6)
		assert.True(t, strings.HasPrefix(lines[1], "0.000001"))
		assert.True(t, strings.HasSuffix(lines[5], "unstable"))
	})

	t.Run("JSON", func(t *testing.T) {
		out, err := run(t, "sweep", "--metric", "pw", "--model", "mmc", "--mu", "3", "-c", "3", "--lambda-max", "9", "--points", "4", "-o", "json")
		require.NoError(t, err)

		var s sweepOutput
		require.NoError(t, json.Unmarshal([]byte(out), &s))
		assert.Equal(t, "Pw", s.Metric)
		assert.Equal(t, 3, s.C)
		require.Len(t, s.Points, 4)
		assert.Nil(t, s.Points[3].Value)
		assert.Equal(t, 9.0, s.Points[3].Lambda)
	})

	t.Run("CSV", func(t *testing.T) {
		out, err := run(t, "sweep", "--metric", "rho", "--mu", "2", "--lambda-max", "3", "--points", "4", "-o", "csv")
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(out, "lambda,rho\n"))
		assert.True(t, strings.HasSuffix(out, "3,\n"))
	})

	t.Run("Metric unavailable for the model", func(t *testing.T) {
		_, err := run(t, "sweep", "--metric", "p0", "--model", "mm1", "--mu", "3", "--lambda-max", "2")
		assert.Error(t, err)
	})
}

func TestConfigFile(t *testing.T) {
	file := filepath.Join(t.TempDir(), "queuecalc.yaml")
	require.NoError(t, os.WriteFile(file, []byte("lambda: 2\nmu: 5\noutput: csv\n"), 0o644))

	out, err := run(t, "mm1", "--config", file)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "model,M/M/1\n"), out)

	_, err = run(t, "mm1", "--config", filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestBadOutputFormat(t *testing.T) {
	_, err := run(t, "mm1", "--lambda", "2", "--mu", "5", "-o", "xml")
	assert.ErrorContains(t, err, "unknown output format")
}

func TestRemoteEvaluation(t *testing.T) {
	store, err := db.NewMemoryStore("", 0)
	require.NoError(t, err)
	defer store.Close()

	service := services.NewQueueService(store, 10)
	ts := httptest.NewServer(server.NewServer("", "", service).Srv.Handler)
	defer ts.Close()

	out, err := run(t, "mmc", "--server", ts.URL, "--lambda", "5", "--mu", "3", "-c", "3")
	require.NoError(t, err)
	assert.Contains(t, out, "Model: M/M/3")

	out, err = run(t, "mm1", "--server", ts.URL, "--lambda", "5", "--mu", "3")
	require.Error(t, err)
	assert.Equal(t, "Error: System unstable (ρ >= 1)\n", out)

	history, err := service.History(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, model.SourceCLI, history[0].Source)
}
