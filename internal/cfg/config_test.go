package cfg

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setenv(t *testing.T, key, value string) {
	t.Helper()
	old, had := os.LookupEnv(key)
	os.Setenv(key, value)
	t.Cleanup(func() {
		if had {
			os.Setenv(key, old)
		} else {
			os.Unsetenv(key)
		}
	})
}

func TestNormalizeSeconds(t *testing.T) {
	setenv(t, "X", "10")
	normalizeSeconds("X")
	assert.Equal(t, "10s", os.Getenv("X"))

	setenv(t, "X", "250ms")
	normalizeSeconds("X")
	assert.Equal(t, "250ms", os.Getenv("X"))

	os.Unsetenv("X")
	normalizeSeconds("X")
	assert.Equal(t, "", os.Getenv("X"))
}

func TestNewConfig(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		for key := range defaults {
			setenv(t, key, "")
		}

		config, err := NewConfig()
		require.NoError(t, err)

		assert.Equal(t, "localhost:8080", config.ServerAddress)
		assert.Equal(t, 300*time.Second, config.StoreInterval)
		assert.Equal(t, 10*time.Second, config.ReportInterval)
		assert.Equal(t, 50, config.HistoryLimit)
		assert.Equal(t, 100.0, config.ServiceRate)
		assert.Equal(t, "info", config.Logger.Level)
	})

	t.Run("environment overrides", func(t *testing.T) {
		setenv(t, "ADDRESS", "0.0.0.0:9090")
		setenv(t, "STORE_INTERVAL", "5")
		setenv(t, "KEY", "secret")
		setenv(t, "SERVICE_RATE", "2.5")

		config, err := NewConfig()
		require.NoError(t, err)

		assert.Equal(t, "0.0.0.0:9090", config.ServerAddress)
		assert.Equal(t, 5*time.Second, config.StoreInterval)
		assert.Equal(t, "secret", config.Key)
		assert.Equal(t, 2.5, config.ServiceRate)
	})

	t.Run("sub-second intervals", func(t *testing.T) {
		setenv(t, "REPORT_INTERVAL", "500ms")
		setenv(t, "SAMPLE_WINDOW", "250ms")

		config, err := NewConfig()
		require.NoError(t, err)

		assert.Equal(t, 500*time.Millisecond, config.ReportInterval)
		assert.Equal(t, 250*time.Millisecond, config.SampleWindow)
	})

	invalid := []struct {
		name, key, value string
	}{
		{"history limit", "HISTORY_LIMIT", "-3"},
		{"service rate", "SERVICE_RATE", "0"},
		{"negative store interval", "STORE_INTERVAL", "-5"},
		{"zero report interval", "REPORT_INTERVAL", "0"},
		{"negative report interval", "REPORT_INTERVAL", "-1s"},
		{"zero sample window", "SAMPLE_WINDOW", "0s"},
	}
	for _, tt := range invalid {
		t.Run("invalid "+tt.name, func(t *testing.T) {
			setenv(t, tt.key, tt.value)

			_, err := NewConfig()
			assert.ErrorContains(t, err, tt.key)
		})
	}
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			HistoryLimit:   10,
			ServiceRate:    1,
			ReportInterval: time.Second,
			SampleWindow:   time.Second,
		}
	}

	require.NoError(t, valid().Validate())

	c := valid()
	c.ReportInterval = 0
	assert.ErrorContains(t, c.Validate(), "REPORT_INTERVAL")

	c = valid()
	c.StoreInterval = -5 * time.Second
	assert.ErrorContains(t, c.Validate(), "STORE_INTERVAL")
}

func TestSecondsFlag(t *testing.T) {
	var d time.Duration
	s := Seconds(&d)

	require.NoError(t, s.Set("15"))
	assert.Equal(t, 15*time.Second, d)

	require.NoError(t, s.Set("1m30s"))
	assert.Equal(t, 90*time.Second, d)
	assert.Equal(t, "1m30s", s.String())

	require.NoError(t, s.Set("500ms"))
	assert.Equal(t, 500*time.Millisecond, d)

	assert.Error(t, s.Set("soon"))
	assert.Equal(t, "", seconds{}.String())
}
