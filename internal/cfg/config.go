package cfg

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/vrischmann/envconfig"

	"github.com/Heidric/queueing/pkg/log"
)

type Config struct {
	Logger          *log.Config
	ServerAddress   string        `envconfig:"ADDRESS"`
	DatabaseDSN     string        `envconfig:"DATABASE_DSN,optional"`
	FileStoragePath string        `envconfig:"FILE_STORAGE_PATH,optional"`
	StoreInterval   time.Duration `envconfig:"STORE_INTERVAL"`
	Key             string        `envconfig:"KEY,optional"`
	HistoryLimit    int           `envconfig:"HISTORY_LIMIT"`
	ReportInterval  time.Duration `envconfig:"REPORT_INTERVAL"`
	SampleWindow    time.Duration `envconfig:"SAMPLE_WINDOW"`
	ServiceRate     float64       `envconfig:"SERVICE_RATE"`
}

var defaults = map[string]string{
	"ADDRESS":         "localhost:8080",
	"STORE_INTERVAL":  "300s",
	"HISTORY_LIMIT":   "50",
	"REPORT_INTERVAL": "10s",
	"SAMPLE_WINDOW":   "1s",
	"SERVICE_RATE":    "100",
}

// durationKeys accept a bare number of seconds as well as a Go duration.
var durationKeys = []string{"STORE_INTERVAL", "REPORT_INTERVAL", "SAMPLE_WINDOW"}

// NewConfig reads .env (when present) and the process environment.
func NewConfig() (*Config, error) {
	_ = godotenv.Load()

	config := &Config{
		Logger: &log.Config{},
	}

	for key, value := range defaults {
		if os.Getenv(key) == "" {
			os.Setenv(key, value)
		}
	}
	normalizeSeconds(durationKeys...)

	if err := envconfig.Init(config); err != nil {
		return nil, errors.Wrap(err, "read environment")
	}

	config.Logger.SetDefault()

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Validate checks the values that the environment and command line flags can
// both set. Commands call it again after flag.Parse.
func (c *Config) Validate() error {
	switch {
	case c.HistoryLimit <= 0:
		return errors.Errorf("HISTORY_LIMIT must be > 0, got %d", c.HistoryLimit)
	case c.ServiceRate <= 0:
		return errors.Errorf("SERVICE_RATE must be > 0, got %v", c.ServiceRate)
	case c.StoreInterval < 0:
		return errors.Errorf("STORE_INTERVAL must be >= 0, got %v", c.StoreInterval)
	case c.ReportInterval <= 0:
		return errors.Errorf("REPORT_INTERVAL must be > 0, got %v", c.ReportInterval)
	case c.SampleWindow <= 0:
		return errors.Errorf("SAMPLE_WINDOW must be > 0, got %v", c.SampleWindow)
	}
	return nil
}

// normalizeSeconds rewrites integer values of keys ("10") as durations ("10s").
func normalizeSeconds(keys ...string) {
	for _, key := range keys {
		val := os.Getenv(key)
		if val == "" {
			continue
		}
		if sec, err := strconv.Atoi(val); err == nil {
			os.Setenv(key, strconv.Itoa(sec)+"s")
		}
	}
}
