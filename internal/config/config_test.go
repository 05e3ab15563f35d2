package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/mitchellh/go-homedir"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/sqlbridge/internal/session"
)

func flags(t *testing.T, args ...string) *pflag.FlagSet {
	t.Helper()
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	BindFlags(fs)
	require.NoError(t, fs.Parse(args))
	return fs
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Loader{}.Load(flags(t))
	require.NoError(t, err)

	home, err := homedir.Dir()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, ".sqflite"), cfg.DatabasesDir)
	assert.Equal(t, 5*time.Second, cfg.BusyTimeout())
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Equal(t, "Linux", cfg.Platform)
	assert.Equal(t, 1, cfg.MaxInFlight)
	assert.False(t, cfg.QueryAsMapList)
}

func TestLoad_Precedence(t *testing.T) {
	file := writeFile(t, "sqlbridge.yaml", `
databases_dir: /from/file
log_level: 1
platform: FilePlatform
max_in_flight: 4
`)
	t.Setenv("SQLBRIDGE_PLATFORM", "EnvPlatform")
	t.Setenv("SQLBRIDGE_QUERY_AS_MAP_LIST", "true")

	cfg, err := Loader{File: file}.Load(flags(t, "--max-in-flight=8"))
	require.NoError(t, err)

	assert.Equal(t, "/from/file", cfg.DatabasesDir)
	assert.Equal(t, 1, cfg.LogLevel)
	assert.Equal(t, "EnvPlatform", cfg.Platform, "env beats file")
	assert.True(t, cfg.QueryAsMapList)
	assert.Equal(t, 8, cfg.MaxInFlight, "flag beats file")
}

func TestLoad_SearchPaths(t *testing.T) {
	dir := filepath.Dir(writeFile(t, "sqlbridge.json", `{"busy_timeout_ms": 250}`))

	cfg, err := Loader{SearchPaths: []string{dir}}.Load(nil)
	require.NoError(t, err)
	assert.Equal(t, 250*time.Millisecond, cfg.BusyTimeout())

	_, err = Loader{SearchPaths: []string{t.TempDir()}}.Load(nil)
	assert.NoError(t, err, "a missing config file is not an error")
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	_, err := Loader{File: filepath.Join(t.TempDir(), "absent.yaml")}.Load(nil)
	assert.Error(t, err)
}

func TestLoad_ExpandsHome(t *testing.T) {
	cfg, err := Loader{}.Load(flags(t, "--databases-dir=~/dbs"))
	require.NoError(t, err)

	home, _ := homedir.Dir()
	assert.Equal(t, filepath.Join(home, "dbs"), cfg.DatabasesDir)
}

func TestValidate(t *testing.T) {
	valid, err := Defaults()
	require.NoError(t, err)
	require.NoError(t, valid.Validate())

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"log level out of range", func(c *Config) { c.LogLevel = 3 }},
		{"unknown log format", func(c *Config) { c.LogFormat = "xml" }},
		{"negative busy timeout", func(c *Config) { c.BusyTimeoutMS = -1 }},
		{"zero max in flight", func(c *Config) { c.MaxInFlight = 0 }},
		{"empty databases dir", func(c *Config) { c.DatabasesDir = "" }},
		{"empty platform", func(c *Config) { c.Platform = "" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid
			tt.mutate(&cfg)
			err := cfg.Validate()
			require.Error(t, err)
			var ve *ValidationError
			require.ErrorAs(t, err, &ve)
			assert.NotEmpty(t, ve.Problems)
		})
	}
}

func TestLoad_RejectsInvalidFlag(t *testing.T) {
	_, err := Loader{}.Load(flags(t, "--log-format=xml"))
	var ve *ValidationError
	assert.ErrorAs(t, err, &ve)
}

func TestPluginConfig(t *testing.T) {
	cfg, err := Defaults()
	require.NoError(t, err)
	cfg.LogLevel = 2
	cfg.BusyTimeoutMS = 100

	pc := cfg.Plugin()
	assert.Equal(t, session.LogLevelVerbose, pc.LogLevel)
	assert.Equal(t, 100*time.Millisecond, pc.BusyTimeout)
	assert.Equal(t, cfg.DatabasesDir, pc.DatabasesDir)
}
