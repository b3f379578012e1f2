package log

import "github.com/rs/zerolog"

// Config controls logger formatting and level.
// Fields are populated from the environment (LOGGER_* keys) by the cfg package.
type Config struct {
	HumanFriendly   bool   `envconfig:"optional"` // console format instead of JSON
	NoColoredOutput bool   `envconfig:"optional"` // disable ANSI colors in console format
	Level           string `envconfig:"optional"` // "trace" .. "panic", or "disabled"
	Component       string `envconfig:"optional"` // added to every entry as "component"
}

// SetDefault fills an empty Level with zerolog.InfoLevel.
func (c *Config) SetDefault() {
	if c.Level == "" {
		c.Level = zerolog.InfoLevel.String()
	}
}
