package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	cfg, err := Load(New())
	require.NoError(t, err)
	assert.Equal(t, "./data/model", cfg.ModelDir)
	assert.Equal(t, "./data", cfg.DataDir)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Empty(t, cfg.CORSAllowedOrigins)
}

func TestPrecedence(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bp12.yaml")
	require.NoError(t, os.WriteFile(path, []byte("model_dir: /from/file\ndata_dir: /from/file/data\nport: \"7000\"\n"), 0o600))

	t.Setenv("BP12_DATA_DIR", "/from/env")
	t.Setenv("BP12_CORS_ALLOWED_ORIGINS", "https://a.example, https://b.example")

	v := New()
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	require.NoError(t, BindFlags(v, fs))
	require.NoError(t, fs.Parse([]string{"--config", path, "--port", "9090"}))

	cfg, err := Load(v)
	require.NoError(t, err)
	assert.Equal(t, "/from/file", cfg.ModelDir)
	assert.Equal(t, "/from/env", cfg.DataDir)
	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSAllowedOrigins)
}

func TestBindSelectedFlags(t *testing.T) {
	v := New()
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	require.NoError(t, BindFlags(v, fs, KeyModelDir))
	assert.NotNil(t, fs.Lookup("model-dir"))
	assert.Nil(t, fs.Lookup("port"))

	assert.Error(t, BindFlags(v, fs, "nope"))
}

func TestInvalidSettings(t *testing.T) {
	v := New()
	v.Set(KeyLogLevel, "loud")
	_, err := Load(v)
	assert.Error(t, err)

	v = New()
	v.Set(KeyLogFormat, "xml")
	_, err = Load(v)
	assert.Error(t, err)

	v = New()
	v.Set(KeyConfig, filepath.Join(t.TempDir(), "missing.yaml"))
	_, err = Load(v)
	assert.Error(t, err)
}

func TestNewLogger(t *testing.T) {
	cfg := &Config{LogLevel: "debug", LogFormat: "json"}
	log := cfg.NewLogger()
	assert.Equal(t, logrus.DebugLevel, log.GetLevel())
	assert.IsType(t, &logrus.JSONFormatter{}, log.Formatter)
}
