package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds application level configuration aggregated from env/config files.
type Config struct {
	Server struct {
		Host string
		Port string
	}
	Database struct {
		Path    string
		Timeout time.Duration
	}
	Auth struct {
		JWTSecret string
		TokenTTL  time.Duration
	}
	CORS struct {
		Origins []string
	}
	Log struct {
		Level string
	}
	Client struct {
		APIURL    string
		TokenFile string
	}
}

// Addr is the listen address for the HTTP server.
func (c Config) Addr() string {
	return net.JoinHostPort(c.Server.Host, c.Server.Port)
}

// Load reads configuration from environment variables and optional config files.
func Load() (Config, error) {
	// .env never overrides variables already set in the environment
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("AUTHGATE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", "3000")
	v.SetDefault("database.path", "data/authgate.db")
	v.SetDefault("database.timeout", "5s")
	v.SetDefault("auth.jwtsecret", "")
	v.SetDefault("auth.tokenttl", "1h")
	v.SetDefault("cors.origins", []string{})
	v.SetDefault("log.level", "info")
	v.SetDefault("client.apiurl", "http://localhost:3000")
	v.SetDefault("client.tokenfile", defaultTokenFile())

	// unprefixed names kept for deployments that only set PORT / API_URL
	if err := v.BindEnv("server.port", "AUTHGATE_SERVER_PORT", "PORT"); err != nil {
		return Config{}, fmt.Errorf("bind server.port: %w", err)
	}
	if err := v.BindEnv("client.apiurl", "AUTHGATE_CLIENT_APIURL", "API_URL"); err != nil {
		return Config{}, fmt.Errorf("bind client.apiurl: %w", err)
	}

	v.SetConfigName("config")
	v.AddConfigPath(".")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	cfg.CORS.Origins = splitOrigins(cfg.CORS.Origins)
	if err := validateOrigins(cfg.CORS.Origins); err != nil {
		return Config{}, err
	}
	cfg.Client.APIURL = strings.TrimRight(cfg.Client.APIURL, "/")

	return cfg, nil
}

func defaultTokenFile() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".authctl", "token")
	}
	return filepath.Join(home, ".authctl", "token")
}

func splitOrigins(in []string) []string {
	var out []string
	for _, item := range in {
		for _, origin := range strings.Split(item, ",") {
			if origin = strings.TrimSpace(origin); origin != "" {
				out = append(out, origin)
			}
		}
	}
	return out
}

// validateOrigins rejects entries the CORS middleware would panic on.
func validateOrigins(origins []string) error {
	for _, origin := range origins {
		u, err := url.Parse(origin)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" || strings.Contains(origin, "*") {
			return fmt.Errorf("cors origin %q must be an absolute http(s) origin such as https://app.example.com", origin)
		}
		if (u.Path != "" && u.Path != "/") || u.RawQuery != "" {
			return fmt.Errorf("cors origin %q must not carry a path or query", origin)
		}
	}
	return nil
}
