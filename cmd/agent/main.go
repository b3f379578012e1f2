package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Heidric/queueing/internal/cfg"
	"github.com/Heidric/queueing/internal/logger"
)

type options struct {
	serverAddr     string
	key            string
	serviceRate    float64
	sampleWindow   time.Duration
	reportInterval time.Duration
	config         *cfg.Config
}

// parseFlags reads the environment first; flags given on the command line
// override it.
func parseFlags() (options, error) {
	config, err := cfg.NewConfig()
	if err != nil {
		return options{}, err
	}

	flag.StringVar(&config.ServerAddress, "a", config.ServerAddress, "HTTP server endpoint address")
	flag.StringVar(&config.Key, "k", config.Key, "key to verify the HashSHA256 response signature")
	flag.Float64Var(&config.ServiceRate, "s", config.ServiceRate, "service rate of one core, requests per second")
	flag.DurationVar(&config.SampleWindow, "w", config.SampleWindow, "CPU utilization sample window")
	flag.Var(cfg.Seconds(&config.ReportInterval), "r", "report interval, seconds or duration")
	flag.Parse()

	if err := config.Validate(); err != nil {
		return options{}, err
	}

	return options{
		serverAddr:     config.ServerAddress,
		key:            config.Key,
		serviceRate:    config.ServiceRate,
		sampleWindow:   config.SampleWindow,
		reportInterval: config.ReportInterval,
		config:         config,
	}, nil
}

func main() {
	opts, err := parseFlags()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	if _, err := logger.Initialize(opts.config.Logger); err != nil {
		fmt.Fprintf(os.Stderr, "Error initializing logger: %v\n", err)
		os.Exit(1)
	}

	agent := NewAgent(opts.serverAddr, opts.key, opts.serviceRate, opts.sampleWindow, opts.reportInterval, hostProbe{})
	agent.Run()

	logger.Log.Info().Str("server", opts.serverAddr).Dur("report_interval", opts.reportInterval).Msg("Agent started.")

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	agent.Stop()
	logger.Log.Info().Msg("Agent stopped.")
}
