package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix namespaces every environment variable, e.g. CLOUD_SYNC_PORT.
const EnvPrefix = "CLOUD_SYNC"

type Config struct {
	Port         string        `mapstructure:"port"`
	LogLevel     string        `mapstructure:"log_level"`
	LogFile      string        `mapstructure:"log_file"`
	DatabaseURL  string        `mapstructure:"database_url"`
	AuthToken    string        `mapstructure:"auth_token"`
	AdminToken   string        `mapstructure:"admin_token"`
	MappingsFile string        `mapstructure:"mappings_file"`
	MaxClockSkew time.Duration `mapstructure:"max_clock_skew"`
	CORSOrigins  []string      `mapstructure:"cors_origins"`
}

func defaults(v *viper.Viper) {
	v.SetDefault("port", "8090")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_file", "")
	v.SetDefault("database_url", "file:countdownsync.db")
	v.SetDefault("auth_token", "")
	v.SetDefault("admin_token", "")
	v.SetDefault("mappings_file", "")
	v.SetDefault("max_clock_skew", "0s")
	v.SetDefault("cors_origins", []string{"*"})
}

// Load resolves configuration from, in increasing precedence: defaults, the
// optional file at path (yaml, toml or json by extension), CLOUD_SYNC_*
// environment variables and any flags changed on fs. A bare PORT variable
// overrides everything, as hosting platforms expect.
func Load(path string, fs *pflag.FlagSet) (Config, error) {
	v := viper.New()
	defaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()

	if strings.TrimSpace(path) != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
	}
	if fs != nil {
		if err := v.BindPFlags(fs); err != nil {
			return Config{}, fmt.Errorf("bind flags: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	if p := strings.TrimSpace(os.Getenv("PORT")); p != "" {
		cfg.Port = p
	}
	cfg.AuthToken = strings.TrimSpace(cfg.AuthToken)
	cfg.AdminToken = strings.TrimSpace(cfg.AdminToken)
	cfg.CORSOrigins = splitList(cfg.CORSOrigins)
	return cfg, cfg.validate()
}

func (c Config) validate() error {
	var errs []error
	if strings.TrimSpace(c.Port) == "" {
		errs = append(errs, errors.New("port must not be empty"))
	}
	if strings.TrimSpace(c.DatabaseURL) == "" {
		errs = append(errs, errors.New("database_url must not be empty"))
	}
	if c.MaxClockSkew < 0 {
		errs = append(errs, errors.New("max_clock_skew must not be negative"))
	}
	return errors.Join(errs...)
}

// splitList accepts both list values and comma separated strings, which is
// how a list arrives from the environment.
func splitList(in []string) []string {
	var out []string
	for _, item := range in {
		for _, part := range strings.Split(item, ",") {
			if p := strings.TrimSpace(part); p != "" {
				out = append(out, p)
			}
		}
	}
	return out
}
