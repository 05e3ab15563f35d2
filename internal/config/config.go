// Package config loads sqlbridge settings from flags, SQLBRIDGE_* environment
// variables and an optional config file, then validates them against an
// embedded CUE schema.
package config

import (
	_ "embed"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"github.com/mitchellh/go-homedir"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/roach88/sqlbridge/internal/plugin"
	"github.com/roach88/sqlbridge/internal/session"
)

//go:embed schema.cue
var schemaSource string

// EnvPrefix prefixes every environment variable, e.g. SQLBRIDGE_DATABASES_DIR.
const EnvPrefix = "SQLBRIDGE"

// ConfigName is the base name searched for when no file is given.
const ConfigName = "sqlbridge"

// Keys.
const (
	KeyDatabasesDir   = "databases_dir"
	KeyBusyTimeoutMS  = "busy_timeout_ms"
	KeyLogLevel       = "log_level"
	KeyQueryAsMapList = "query_as_map_list"
	KeyLogFormat      = "log_format"
	KeyMetricsAddr    = "metrics_addr"
	KeyPlatform       = "platform"
	KeyMaxInFlight    = "max_in_flight"
)

// Config holds validated settings.
type Config struct {
	DatabasesDir   string `mapstructure:"databases_dir" json:"databases_dir"`
	BusyTimeoutMS  int    `mapstructure:"busy_timeout_ms" json:"busy_timeout_ms"`
	LogLevel       int    `mapstructure:"log_level" json:"log_level"`
	QueryAsMapList bool   `mapstructure:"query_as_map_list" json:"query_as_map_list"`
	LogFormat      string `mapstructure:"log_format" json:"log_format"`
	MetricsAddr    string `mapstructure:"metrics_addr" json:"metrics_addr"`
	Platform       string `mapstructure:"platform" json:"platform"`
	MaxInFlight    int    `mapstructure:"max_in_flight" json:"max_in_flight"`
}

// Defaults returns the built-in settings, with the databases directory under
// the user's home.
func Defaults() (Config, error) {
	home, err := homedir.Dir()
	if err != nil {
		return Config{}, fmt.Errorf("resolve home directory: %w", err)
	}
	return Config{
		DatabasesDir:  filepath.Join(home, ".sqflite"),
		BusyTimeoutMS: int(5 * time.Second / time.Millisecond),
		LogLevel:      int(session.LogLevelNone),
		LogFormat:     "text",
		Platform:      plugin.DefaultPlatform,
		MaxInFlight:   1,
	}, nil
}

// flagNames maps each key to its command-line flag.
var flagNames = map[string]string{
	KeyDatabasesDir:   "databases-dir",
	KeyBusyTimeoutMS:  "busy-timeout-ms",
	KeyLogLevel:       "log-level",
	KeyQueryAsMapList: "query-as-map-list",
	KeyLogFormat:      "log-format",
	KeyMetricsAddr:    "metrics-addr",
	KeyPlatform:       "platform",
	KeyMaxInFlight:    "max-in-flight",
}

// BindFlags registers one flag per key on fs.
func BindFlags(fs *pflag.FlagSet) {
	fs.String(flagNames[KeyDatabasesDir], "", "directory for relative database paths (default ~/.sqflite)")
	fs.Int(flagNames[KeyBusyTimeoutMS], 5000, "busy timeout in milliseconds")
	fs.Int(flagNames[KeyLogLevel], 0, "initial log level: 0 none, 1 sql, 2 verbose")
	fs.Bool(flagNames[KeyQueryAsMapList], false, "return query results as a list of maps")
	fs.String(flagNames[KeyLogFormat], "text", "log format: text or json")
	fs.String(flagNames[KeyMetricsAddr], "", "serve prometheus metrics on this address")
	fs.String(flagNames[KeyPlatform], plugin.DefaultPlatform, "value returned by getPlatformVersion")
	fs.Int(flagNames[KeyMaxInFlight], 1, "maximum concurrently running calls")
}

// Loader reads configuration.
type Loader struct {
	// File is an explicit config file. When empty, SearchPaths are searched
	// for a file named sqlbridge with any extension viper understands.
	File        string
	SearchPaths []string
}

// Load merges defaults, the config file, the environment and any flags
// registered by BindFlags, in increasing order of precedence.
func (l Loader) Load(fs *pflag.FlagSet) (Config, error) {
	defaults, err := Defaults()
	if err != nil {
		return Config{}, err
	}

	v := viper.New()
	v.SetDefault(KeyDatabasesDir, defaults.DatabasesDir)
	v.SetDefault(KeyBusyTimeoutMS, defaults.BusyTimeoutMS)
	v.SetDefault(KeyLogLevel, defaults.LogLevel)
	v.SetDefault(KeyQueryAsMapList, defaults.QueryAsMapList)
	v.SetDefault(KeyLogFormat, defaults.LogFormat)
	v.SetDefault(KeyMetricsAddr, defaults.MetricsAddr)
	v.SetDefault(KeyPlatform, defaults.Platform)
	v.SetDefault(KeyMaxInFlight, defaults.MaxInFlight)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if fs != nil {
		for key, name := range flagNames {
			flag := fs.Lookup(name)
			if flag == nil || !flag.Changed {
				continue
			}
			if err := v.BindPFlag(key, flag); err != nil {
				return Config{}, fmt.Errorf("bind flag %s: %w", name, err)
			}
		}
	}

	if err := l.readFile(v); err != nil {
		return Config{}, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode configuration: %w", err)
	}
	cfg.DatabasesDir, err = homedir.Expand(cfg.DatabasesDir)
	if err != nil {
		return Config{}, fmt.Errorf("expand %s: %w", KeyDatabasesDir, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (l Loader) readFile(v *viper.Viper) error {
	if l.File != "" {
		v.SetConfigFile(l.File)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("read config %s: %w", l.File, err)
		}
		return nil
	}
	if len(l.SearchPaths) == 0 {
		return nil
	}
	v.SetConfigName(ConfigName)
	for _, p := range l.SearchPaths {
		v.AddConfigPath(p)
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}
	return nil
}

// DefaultSearchPaths returns the working directory and the user's home.
func DefaultSearchPaths() []string {
	paths := []string{"."}
	if home, err := homedir.Dir(); err == nil {
		paths = append(paths, home)
	}
	return paths
}

// ValidationError reports settings rejected by the schema.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return "invalid configuration: " + strings.Join(e.Problems, "; ")
}

// Validate checks c against the embedded schema.
func (c Config) Validate() error {
	ctx := cuecontext.New()
	schema := ctx.CompileString(schemaSource, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return fmt.Errorf("compile config schema: %w", err)
	}
	unified := schema.Unify(ctx.Encode(c))
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		var problems []string
		for _, e := range cueerrors.Errors(err) {
			problems = append(problems, strings.TrimSpace(e.Error()))
		}
		return &ValidationError{Problems: problems}
	}
	return nil
}

// BusyTimeout returns the busy timeout as a duration.
func (c Config) BusyTimeout() time.Duration {
	return time.Duration(c.BusyTimeoutMS) * time.Millisecond
}

// Plugin returns the router settings.
func (c Config) Plugin() plugin.Config {
	return plugin.Config{
		DatabasesDir:   c.DatabasesDir,
		Platform:       c.Platform,
		BusyTimeout:    c.BusyTimeout(),
		LogLevel:       session.LogLevel(c.LogLevel),
		QueryAsMapList: c.QueryAsMapList,
	}
}
