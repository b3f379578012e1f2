package report

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Heidric/queueing/internal/model"
	"github.com/Heidric/queueing/internal/queue"
)

func TestText(t *testing.T) {
	t.Run("Single server omits multi-server fields", func(t *testing.T) {
		m, err := queue.EvaluateSingleServer(2, 5)
		require.NoError(t, err)

		var buf bytes.Buffer
		require.NoError(t, Text(&buf, m))

		out := buf.String()
		assert.Contains(t, out, "Model: M/M/1\n")
		assert.Contains(t, out, "λ (arrival rate): 2\n")
		assert.Contains(t, out, "ρ (utilization): 0.400000\n")
		assert.Contains(t, out, "Lq (avg # in queue): 0.266667\n")
		assert.Contains(t, out, "W (avg time in system): 0.333333\n")
		assert.NotContains(t, out, "p0")
		assert.NotContains(t, out, "servers c")
		assert.Len(t, strings.Split(strings.TrimSpace(out), "\n"), 8)
	})

	t.Run("Multi server", func(t *testing.T) {
		m, err := queue.EvaluateMultiServer(5, 3, 3)
		require.NoError(t, err)

		var buf bytes.Buffer
		require.NoError(t, Text(&buf, m))

		out := buf.String()
		assert.Contains(t, out, "Model: M/M/3\n")
		assert.Contains(t, out, "servers c: 3\n")
		assert.Contains(t, out, "p0 (idle prob): 0.172662\n")
		assert.Contains(t, out, "Pw (prob. must wait): 0.299760\n")
		assert.Contains(t, out, "L (avg # in system): 2.041367\n")
		assert.Len(t, strings.Split(strings.TrimSpace(out), "\n"), 12)
	})

	t.Run("Error", func(t *testing.T) {
		_, err := queue.EvaluateSingleServer(5, 3)
		require.Error(t, err)

		var buf bytes.Buffer
		require.NoError(t, TextError(&buf, err))
		assert.Equal(t, "Error: System unstable (ρ >= 1)\n", buf.String())
	})
}

func TestCSV(t *testing.T) {
	t.Run("Multi server", func(t *testing.T) {
		m, err := queue.EvaluateMultiServer(5, 3, 3)
		require.NoError(t, err)

		var buf bytes.Buffer
		require.NoError(t, CSV(&buf, m))

		lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
		require.Len(t, lines, 12)
		assert.Equal(t, "model,M/M/3", lines[0])
		assert.Equal(t, "lambda,5", lines[1])
		assert.Equal(t, "servers,3", lines[3])
		assert.True(t, strings.HasPrefix(lines[6], "p0,0.1726"))
	})

	t.Run("Single server", func(t *testing.T) {
		m, err := queue.EvaluateSingleServer(2, 5)
		require.NoError(t, err)

		var buf bytes.Buffer
		require.NoError(t, CSV(&buf, m))
		assert.True(t, strings.HasPrefix(buf.String(), "model,M/M/1\nlambda,2\nmu,5\nrho,0.4\n"), buf.String())
		assert.NotContains(t, buf.String(), "servers")
	})

	t.Run("Error quoting", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, ErrorCSV(&buf, `bad "c", try again`))
		assert.Equal(t, "error,\"bad \"\"c\"\", try again\"\n", buf.String())
	})
}

func TestSweepCSV(t *testing.T) {
	one := 1.5
	points := []model.SweepPoint{
		{Lambda: 0.5, Value: &one},
		{Lambda: 3},
	}

	var buf bytes.Buffer
	require.NoError(t, SweepCSV(&buf, "Lq", points))
	assert.Equal(t, "lambda,Lq\n0.5,1.5\n3,\n", buf.String())
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("disk full") }

func TestWriteFailure(t *testing.T) {
	m, err := queue.EvaluateSingleServer(2, 5)
	require.NoError(t, err)

	assert.Error(t, Text(failingWriter{}, m))
	assert.Error(t, CSV(failingWriter{}, m))
	assert.Error(t, SweepCSV(failingWriter{}, "L", nil))
}
