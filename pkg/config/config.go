package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const DefaultPath = "barbook.yaml"

type Config struct {
	HTTPAddr string `yaml:"http_addr"`
	SyncAddr string `yaml:"sync_addr"`
	GRPCAddr string `yaml:"grpc_addr"`
	DBPath   string `yaml:"db_path"`
	LogLevel string `yaml:"log_level"`

	Auth   AuthConfig   `yaml:"auth"`
	Search SearchConfig `yaml:"search"`
}

type AuthConfig struct {
	JWTSecret      string `yaml:"jwt_secret"`
	JWTIssuer      string `yaml:"jwt_issuer"`
	JWTTTLHours    int    `yaml:"jwt_ttl_hours"`
	InviteTTLHours int    `yaml:"invite_ttl_hours"`
	AdminEmail     string `yaml:"admin_email"`
	AdminPassword  string `yaml:"admin_password"`
}

type SearchConfig struct {
	Threshold float64 `yaml:"threshold"`
}

func (a AuthConfig) JWTDuration() time.Duration {
	return time.Duration(a.JWTTTLHours) * time.Hour
}

func (a AuthConfig) InviteDuration() time.Duration {
	return time.Duration(a.InviteTTLHours) * time.Hour
}

func Default() Config {
	return Config{
		HTTPAddr: ":8080",
		SyncAddr: ":7070",
		GRPCAddr: ":9090",
		DBPath:   defaultDBPath(),
		LogLevel: "info",
		Auth: AuthConfig{
			// dev default (change for production)
			JWTSecret:      "dev-secret-change-me",
			JWTIssuer:      "barbook",
			JWTTTLHours:    24,
			InviteTTLHours: 72,
		},
		Search: SearchConfig{Threshold: 0.3},
	}
}

// Load reads defaults, then the YAML file at path, then BARBOOK_* env vars.
// A missing file is fine when path is empty or DefaultPath.
func Load(path string) (Config, error) {
	cfg := Default()

	explicit := path != "" && path != DefaultPath
	if path == "" {
		path = DefaultPath
	}

	b, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist) && !explicit:
	default:
		return Config{}, fmt.Errorf("read config %s: %w", path, err)
	}

	cfg.applyEnvOverrides()
	cfg.fillDefaults()
	return cfg, nil
}

func (c *Config) applyEnvOverrides() {
	setString(&c.HTTPAddr, "BARBOOK_HTTP_ADDR")
	setString(&c.SyncAddr, "BARBOOK_SYNC_ADDR")
	setString(&c.GRPCAddr, "BARBOOK_GRPC_ADDR")
	setString(&c.DBPath, "BARBOOK_DB_PATH")
	setString(&c.LogLevel, "BARBOOK_LOG_LEVEL")
	setString(&c.Auth.JWTSecret, "BARBOOK_JWT_SECRET")
	setString(&c.Auth.JWTIssuer, "BARBOOK_JWT_ISSUER")
	setString(&c.Auth.AdminEmail, "BARBOOK_ADMIN_EMAIL")
	setString(&c.Auth.AdminPassword, "BARBOOK_ADMIN_PASSWORD")

	if v, ok := envInt("BARBOOK_JWT_TTL_HOURS"); ok {
		c.Auth.JWTTTLHours = v
	}
	if v, ok := envInt("BARBOOK_INVITE_TTL_HOURS"); ok {
		c.Auth.InviteTTLHours = v
	}
	if s := strings.TrimSpace(os.Getenv("BARBOOK_SEARCH_THRESHOLD")); s != "" {
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			c.Search.Threshold = f
		}
	}
}

// fillDefaults repairs values a file or env var left unusable.
func (c *Config) fillDefaults() {
	def := Default()
	if c.Auth.JWTTTLHours <= 0 {
		c.Auth.JWTTTLHours = def.Auth.JWTTTLHours
	}
	if c.Auth.InviteTTLHours <= 0 {
		c.Auth.InviteTTLHours = def.Auth.InviteTTLHours
	}
	if c.Search.Threshold < 0 || c.Search.Threshold > 1 {
		c.Search.Threshold = def.Search.Threshold
	}
	if c.DBPath == "" {
		c.DBPath = def.DBPath
	}
	if c.Auth.JWTIssuer == "" {
		c.Auth.JWTIssuer = def.Auth.JWTIssuer
	}
	if c.Auth.JWTSecret == "" {
		c.Auth.JWTSecret = def.Auth.JWTSecret
	}
}

func setString(dst *string, key string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		*dst = v
	}
}

// envInt ignores unparsable values so a typo falls back to the default.
func envInt(key string) (int, bool) {
	s := strings.TrimSpace(os.Getenv(key))
	if s == "" {
		return 0, false
	}
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}

// local default: ~/.barbook/data.db
func defaultDBPath() string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		home = "."
	}
	return filepath.Join(home, ".barbook", "data.db")
}
