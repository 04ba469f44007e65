// Package config loads epub2html settings from flags, environment and an
// optional config file.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	KeyLogLevel     = "log-level"
	KeyLogFormat    = "log-format"
	KeyServeAddr    = "serve.addr"
	KeyServeDir     = "serve.dir"
	KeyServeCacheMB = "serve.cache-mb"
	KeyServeRate    = "serve.rate"
	KeyCoverWidth   = "cover.width"
)

const (
	DefaultLogLevel   = "info"
	DefaultLogFormat  = "text"
	DefaultAddr       = ":8080"
	DefaultDir        = "."
	DefaultCacheMB    = 64
	DefaultRate       = 2.0
	DefaultCoverWidth = 0
)

// EnvPrefix is prepended to every environment variable, EPUB2HTML_SERVE_ADDR
// for serve.addr.
const EnvPrefix = "EPUB2HTML"

// defaultFile is looked up in the home directory when no --config is given.
const defaultFile = ".epub2html.yaml"

// Config is the resolved configuration.
type Config struct {
	LogLevel  string
	LogFormat string
	Serve     Serve
	Cover     Cover
}

// Serve configures the HTTP front-end.
type Serve struct {
	Addr    string
	Dir     string
	CacheMB int
	// Rate is the number of conversions started per second.
	Rate float64
}

// Cover configures cover extraction.
type Cover struct {
	// Width of the thumbnail; 0 keeps the original image.
	Width int
}

// flagNames maps keys to the flag a user sets them with.
var flagNames = map[string]string{
	KeyLogLevel:     "log-level",
	KeyLogFormat:    "log-format",
	KeyServeAddr:    "addr",
	KeyServeDir:     "dir",
	KeyServeCacheMB: "cache-mb",
	KeyServeRate:    "rate",
	KeyCoverWidth:   "width",
}

// FlagName returns the command-line flag bound to key.
func FlagName(key string) string {
	if name, ok := flagNames[key]; ok {
		return name
	}
	return key
}

// New returns a viper instance with defaults and environment lookup set up.
// When file is empty, $HOME/.epub2html.yaml is read if it exists.
func New(file string) (*viper.Viper, error) {
	v := viper.New()

	v.SetDefault(KeyLogLevel, DefaultLogLevel)
	v.SetDefault(KeyLogFormat, DefaultLogFormat)
	v.SetDefault(KeyServeAddr, DefaultAddr)
	v.SetDefault(KeyServeDir, DefaultDir)
	v.SetDefault(KeyServeCacheMB, DefaultCacheMB)
	v.SetDefault(KeyServeRate, DefaultRate)
	v.SetDefault(KeyCoverWidth, DefaultCoverWidth)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if file == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return v, nil
		}
		file = filepath.Join(home, defaultFile)
		if _, err := os.Stat(file); err != nil {
			return v, nil
		}
	}

	v.SetConfigFile(file)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config %s: %w", file, err)
	}
	return v, nil
}

// BindFlags binds every known key whose flag is defined in fs. Flags the
// user did not set leave config file and environment values in effect.
func BindFlags(v *viper.Viper, fs *pflag.FlagSet) error {
	for key, name := range flagNames {
		f := fs.Lookup(name)
		if f == nil {
			continue
		}
		if err := v.BindPFlag(key, f); err != nil {
			return fmt.Errorf("failed to bind --%s: %w", name, err)
		}
	}
	return nil
}

// Load resolves and validates the configuration held by v.
func Load(v *viper.Viper) (Config, error) {
	cfg := Config{
		LogLevel:  strings.ToLower(strings.TrimSpace(v.GetString(KeyLogLevel))),
		LogFormat: strings.ToLower(strings.TrimSpace(v.GetString(KeyLogFormat))),
		Serve: Serve{
			Addr:    v.GetString(KeyServeAddr),
			Dir:     v.GetString(KeyServeDir),
			CacheMB: v.GetInt(KeyServeCacheMB),
			Rate:    v.GetFloat64(KeyServeRate),
		},
		Cover: Cover{Width: v.GetInt(KeyCoverWidth)},
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate reports the first invalid setting, naming its flag.
func (c Config) Validate() error {
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return invalid(KeyLogLevel, c.LogLevel, "want debug, info, warn or error")
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		return invalid(KeyLogFormat, c.LogFormat, "want text or json")
	}
	if c.Serve.Addr == "" {
		return invalid(KeyServeAddr, c.Serve.Addr, "must not be empty")
	}
	if c.Serve.CacheMB < 0 {
		return invalid(KeyServeCacheMB, c.Serve.CacheMB, "must be >= 0")
	}
	if c.Serve.Rate <= 0 {
		return invalid(KeyServeRate, c.Serve.Rate, "must be > 0")
	}
	if c.Cover.Width < 0 {
		return invalid(KeyCoverWidth, c.Cover.Width, "must be >= 0")
	}
	return nil
}

// ErrInvalid is wrapped by every validation error.
var ErrInvalid = errors.New("invalid setting")

func invalid(key string, value any, reason string) error {
	return fmt.Errorf("%w: --%s=%v: %s", ErrInvalid, FlagName(key), value, reason)
}
