package log

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/pkgerrors"
)

type Logger struct {
	zerolog zerolog.Logger
}

// NewLogger builds a zerolog logger writing to out. The parsed level becomes
// the global zerolog level.
func NewLogger(config *Config, out io.Writer) (*Logger, error) {
	config.SetDefault()
	level, err := zerolog.ParseLevel(strings.ToLower(config.Level))
	if err != nil {
		return nil, errors.Wrap(err, "parse level")
	}

	zerolog.SetGlobalLevel(level)
	zerolog.ErrorStackMarshaler = pkgerrors.MarshalStack

	ctx := zerolog.New(buildLoggerOutput(out, config.HumanFriendly, config.NoColoredOutput)).
		With().
		Timestamp()
	if config.Component != "" {
		ctx = ctx.Str("component", config.Component)
	}

	return &Logger{zerolog: ctx.Logger()}, nil
}

func (l *Logger) Zerolog() *zerolog.Logger {
	return &l.zerolog
}

func buildLoggerOutput(out io.Writer, isHumanFriendly, isNoColoredOutput bool) io.Writer {
	if !isHumanFriendly {
		return out
	}

	output := zerolog.ConsoleWriter{
		Out:        out,
		NoColor:    isNoColoredOutput,
		TimeFormat: time.RFC3339,
	}

	output.FormatLevel = func(i interface{}) string {
		ii, ok := i.(string)
		if !ok {
			return "| ????? |"
		}
		return fmt.Sprintf("| %-5s |", strings.ToUpper(ii))
	}

	return output
}
