// Package logging holds the logging settings carechat reads back from the
// flags clay registers (--log-level, --log-format, --log-file, --with-caller).
// clay.InitLogger configures the global logger from them.
package logging

import (
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	FormatText = "text"
	FormatJSON = "json"
)

type Settings struct {
	Level      string `mapstructure:"log-level" yaml:"log-level"`
	Format     string `mapstructure:"log-format" yaml:"log-format"`
	File       string `mapstructure:"log-file" yaml:"log-file,omitempty"`
	WithCaller bool   `mapstructure:"with-caller" yaml:"with-caller"`
}

// Quiet keeps log output off the terminal while a full-screen program owns
// it. A logger writing to a log file is left alone.
func Quiet(s Settings) {
	if s.File != "" {
		return
	}
	log.Logger = zerolog.Nop()
}
