// Package config loads the settings shared by the bp12 binaries from flags,
// BP12_* environment variables and an optional config file, in that order
// of precedence.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Configuration keys.
const (
	KeyConfig             = "config"
	KeyModelDir           = "model_dir"
	KeyDataDir            = "data_dir"
	KeyPort               = "port"
	KeyLogLevel           = "log_level"
	KeyLogFormat          = "log_format"
	KeyCORSAllowedOrigins = "cors_allowed_origins"
)

// EnvPrefix prefixes every configuration environment variable.
const EnvPrefix = "BP12"

var options = []struct {
	key, usage string
	defaultVal interface{}
}{
	{key: KeyConfig, usage: "configuration file (yaml, toml or json)", defaultVal: ""},
	{key: KeyModelDir, usage: "directory holding <year>/BIOPERIANT12-CNCLNG01_<tag>_<category>.nc model output", defaultVal: "./data/model"},
	{key: KeyDataDir, usage: "directory holding GRID, FRONTS, BIOMES, OBS and shapefile reference data", defaultVal: "./data"},
	{key: KeyPort, usage: "HTTP listen port", defaultVal: "8080"},
	{key: KeyLogLevel, usage: "log level (trace, debug, info, warn, error)", defaultVal: "info"},
	{key: KeyLogFormat, usage: "log format (text or json)", defaultVal: "text"},
	{key: KeyCORSAllowedOrigins, usage: "comma-separated CORS origins; empty allows all", defaultVal: []string{}},
}

// Config holds the resolved settings.
type Config struct {
	ModelDir           string
	DataDir            string
	Port               string
	LogLevel           string
	LogFormat          string
	CORSAllowedOrigins []string
}

// New returns a viper instance with defaults and environment binding.
func New() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	for _, o := range options {
		v.SetDefault(o.key, o.defaultVal)
	}
	return v
}

// FlagName is the command-line flag of a configuration key.
func FlagName(key string) string { return strings.ReplaceAll(key, "_", "-") }

// BindFlags registers a flag for each key on fs and binds it to v. Flags
// that were not set on the command line leave lower layers in effect.
func BindFlags(v *viper.Viper, fs *pflag.FlagSet, keys ...string) error {
	if len(keys) == 0 {
		for _, o := range options {
			keys = append(keys, o.key)
		}
	}
	for _, key := range keys {
		found := false
		for _, o := range options {
			if o.key != key {
				continue
			}
			found = true
			name := FlagName(key)
			if fs.Lookup(name) == nil {
				switch d := o.defaultVal.(type) {
				case string:
					fs.String(name, d, o.usage)
				case []string:
					fs.StringSlice(name, d, o.usage)
				default:
					panic(fmt.Sprintf("config: unsupported default for %s", key))
				}
			}
			if err := v.BindPFlag(key, fs.Lookup(name)); err != nil {
				return fmt.Errorf("binding flag %s: %w", name, err)
			}
		}
		if !found {
			return fmt.Errorf("unknown configuration key %q", key)
		}
	}
	return nil
}

// Load reads the config file named by the config key, if any, and resolves
// the settings.
func Load(v *viper.Viper) (*Config, error) {
	if path := v.GetString(KeyConfig); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("problem reading configuration file: %w", err)
		}
	}
	cfg := &Config{
		ModelDir:           os.ExpandEnv(v.GetString(KeyModelDir)),
		DataDir:            os.ExpandEnv(v.GetString(KeyDataDir)),
		Port:               v.GetString(KeyPort),
		LogLevel:           v.GetString(KeyLogLevel),
		LogFormat:          v.GetString(KeyLogFormat),
		CORSAllowedOrigins: splitList(v.GetStringSlice(KeyCORSAllowedOrigins)),
	}
	if _, err := logrus.ParseLevel(cfg.LogLevel); err != nil {
		return nil, fmt.Errorf("invalid %s: %w", KeyLogLevel, err)
	}
	switch cfg.LogFormat {
	case "text", "json":
	default:
		return nil, fmt.Errorf("invalid %s %q: must be text or json", KeyLogFormat, cfg.LogFormat)
	}
	return cfg, nil
}

// splitList flattens comma-separated entries, as given by environment
// variables, and drops empty ones.
func splitList(in []string) []string {
	out := []string{}
	for _, s := range in {
		for _, part := range strings.Split(s, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

// NewLogger builds a logger with the configured level and format.
func (c *Config) NewLogger() *logrus.Logger {
	log := logrus.New()
	if lvl, err := logrus.ParseLevel(c.LogLevel); err == nil {
		log.SetLevel(lvl)
	}
	if c.LogFormat == "json" {
		log.SetFormatter(&logrus.JSONFormatter{})
	} else {
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	return log
}
