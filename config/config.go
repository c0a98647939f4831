// --- config/config.go ---
package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment variable the service reads,
// e.g. EMBER_URL or EMBER_ANON_KEY.
const EnvPrefix = "EMBER"

// Config holds everything needed to reach the backend and serve HTTP.
// Backend values are passed through untouched; a bad URL or key only shows up
// when the first query or auth call is made.
type Config struct {
	URL            string        `yaml:"url" mapstructure:"url"`
	AnonKey        string        `yaml:"anon_key" mapstructure:"anon_key"`
	ServiceRoleKey string        `yaml:"service_role_key" mapstructure:"service_role_key"`
	Driver         string        `yaml:"driver" mapstructure:"driver"`
	Addr           string        `yaml:"addr" mapstructure:"addr"`
	SocketPath     string        `yaml:"socket_path" mapstructure:"socket_path"`
	SessionTTL     time.Duration `yaml:"session_ttl" mapstructure:"session_ttl"`
}

// Defaults returns the configuration used when nothing overrides it.
func Defaults() Config {
	return Config{
		Driver:     "postgres",
		Addr:       ":8080",
		SocketPath: "/api/socket",
		SessionTTL: 24 * time.Hour,
	}
}

// Load reads the optional YAML file at path and then applies EMBER_*
// environment variables on top of it.
func Load(path string) (Config, error) {
	v := viper.New()

	d := Defaults()
	v.SetDefault("url", d.URL)
	v.SetDefault("anon_key", d.AnonKey)
	v.SetDefault("service_role_key", d.ServiceRoleKey)
	v.SetDefault("driver", d.Driver)
	v.SetDefault("addr", d.Addr)
	v.SetDefault("socket_path", d.SocketPath)
	v.SetDefault("session_ttl", d.SessionTTL)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return Config{}, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Redacted returns a copy safe to print: secrets are masked.
func (c Config) Redacted() Config {
	c.AnonKey = mask(c.AnonKey)
	c.ServiceRoleKey = mask(c.ServiceRoleKey)
	return c
}

func mask(s string) string {
	if s == "" {
		return ""
	}
	return "********"
}
