// Package config decodes carechat settings. clay.InitViper provides the
// CARECHAT_* environment, the $HOME/.carechat config file and the logging
// flags; this package adds defaults, a .env file, ./carechat.yaml and an
// explicit --config file on top.
package config

import (
	"io/fs"
	"net/url"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/go-go-golems/carechat/pkg/logging"
	"github.com/go-go-golems/carechat/pkg/transport"
	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

const (
	AppName         = "carechat"
	EnvPrefix       = "CARECHAT"
	LocalConfigFile = "carechat.yaml"
	DefaultEndpoint = "http://localhost:8000/api/chat/message"
	DefaultAddr     = "127.0.0.1:8080"
)

type Settings struct {
	Endpoint  string        `mapstructure:"endpoint" yaml:"endpoint"`
	Transport string        `mapstructure:"transport" yaml:"transport"`
	Timeout   time.Duration `mapstructure:"timeout" yaml:"timeout"`
	Language  string        `mapstructure:"language" yaml:"language,omitempty"`
	Pretty    bool          `mapstructure:"pretty" yaml:"pretty"`
	Addr      string        `mapstructure:"addr" yaml:"addr"`

	Logging logging.Settings `mapstructure:",squash" yaml:",inline"`
}

// SetDefaults registers every key, which also makes each one resolvable
// from the environment.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("endpoint", DefaultEndpoint)
	v.SetDefault("transport", transport.TypeHTTP)
	v.SetDefault("timeout", time.Duration(0))
	v.SetDefault("language", "")
	v.SetDefault("pretty", true)
	v.SetDefault("addr", DefaultAddr)
	v.SetDefault("log-level", "info")
	v.SetDefault("log-format", logging.FormatText)
	v.SetDefault("log-file", "")
	v.SetDefault("with-caller", false)
}

// LoadDotEnv loads a .env file into the process environment. A missing file
// is not an error; variables already set win.
func LoadDotEnv(path string) error {
	if path == "" {
		path = ".env"
	}
	err := godotenv.Load(path)
	if err == nil {
		log.Debug().Str("path", path).Msg("loaded env file")
		return nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return errors.Wrapf(err, "load env file %s", path)
}

// Init prepares v: defaults, environment binding, and a config file merged
// over whatever v already read. An explicit configFile must exist; otherwise
// ./carechat.yaml is merged when present.
func Init(v *viper.Viper, configFile string) error {
	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if configFile == "" {
		if _, err := os.Stat(LocalConfigFile); err != nil {
			return nil
		}
		configFile = LocalConfigFile
	}

	v.SetConfigFile(configFile)
	v.SetConfigType("yaml")
	if err := v.MergeInConfig(); err != nil {
		return errors.Wrapf(err, "read config %s", configFile)
	}
	log.Debug().Str("path", configFile).Msg("loaded config file")
	return nil
}

// Load decodes the effective settings from an initialised viper instance.
func Load(v *viper.Viper) (*Settings, error) {
	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return nil, errors.Wrap(err, "decode settings")
	}
	return &s, nil
}

// Validate checks the settings needed to talk to the backend. The
// websocket transport also accepts http and https endpoints, which it dials
// as ws and wss.
func (s *Settings) Validate() error {
	if strings.TrimSpace(s.Endpoint) == "" {
		return errors.New("endpoint is required")
	}
	u, err := url.Parse(s.Endpoint)
	if err != nil || u.Host == "" {
		return errors.Errorf("endpoint %q is not an absolute URL", s.Endpoint)
	}

	var schemes []string
	switch s.Transport {
	case transport.TypeHTTP:
		schemes = []string{"http", "https"}
	case transport.TypeWebSocket:
		schemes = []string{"ws", "wss", "http", "https"}
	default:
		return errors.Errorf("unknown transport %q (want %s or %s)", s.Transport, transport.TypeHTTP, transport.TypeWebSocket)
	}
	if !slices.Contains(schemes, u.Scheme) {
		return errors.Errorf("%s transport cannot use a %s:// endpoint", s.Transport, u.Scheme)
	}

	if s.Timeout < 0 {
		return errors.New("timeout must not be negative")
	}
	return nil
}

// YAML renders the settings the way a config file would hold them.
func (s *Settings) YAML() ([]byte, error) {
	out, err := yaml.Marshal(s)
	return out, errors.Wrap(err, "encode settings")
}
