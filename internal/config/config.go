package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Insecure fallbacks for local development. Deployments must override them;
// main logs a warning whenever one is still in effect.
const (
	InsecureJWTSecret         = "secret"
	InsecureRegistrationToken = "static_registration_token"
)

const defaultConfigPath = "config.yaml"

// FileConfig represents configuration loaded from YAML plus env overrides.
type FileConfig struct {
	Port              string `yaml:"port"`
	DatabaseURL       string `yaml:"databaseURL"`
	JWTSecret         string `yaml:"jwtSecret"`
	TokenTTL          string `yaml:"tokenTTL"`
	RegistrationToken string `yaml:"registrationToken"`
	UploadDir         string `yaml:"uploadDir"`
	LogLevel          string `yaml:"logLevel"`

	RedisAddr                  string `yaml:"redisAddr"`
	RedisPassword              string `yaml:"redisPassword"`
	RegisterRateLimitPerMinute int    `yaml:"registerRateLimitPerMinute"`
	LoginRateLimitPerMinute    int    `yaml:"loginRateLimitPerMinute"`
}

// Load reads config from path (defaults to config.yaml; a missing file is
// fine), applies environment overrides, then fills in defaults.
func Load(path string) (FileConfig, error) {
	cfg := FileConfig{}
	if path == "" {
		path = defaultConfigPath
	}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config: %w", err)
		}
	case os.IsNotExist(err):
		// Env vars and defaults carry the whole configuration.
	default:
		return cfg, fmt.Errorf("read config: %w", err)
	}

	// Override with environment variables.
	if v := os.Getenv("PORT"); v != "" {
		cfg.Port = v
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.DatabaseURL = v
	}
	if v := os.Getenv("JWT_SECRET"); v != "" {
		cfg.JWTSecret = v
	}
	if v := os.Getenv("TOKEN_TTL"); v != "" {
		cfg.TokenTTL = v
	}
	if v := os.Getenv("REGISTRATION_TOKEN"); v != "" {
		cfg.RegistrationToken = v
	}
	if v := os.Getenv("UPLOAD_DIR"); v != "" {
		cfg.UploadDir = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		cfg.RedisAddr = v
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		cfg.RedisPassword = v
	}
	if v := os.Getenv("REGISTER_RATE_LIMIT_PER_MINUTE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.RegisterRateLimitPerMinute = n
		}
	}
	if v := os.Getenv("LOGIN_RATE_LIMIT_PER_MINUTE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.LoginRateLimitPerMinute = n
		}
	}

	applyDefaults(&cfg)
	if err := validate(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func applyDefaults(cfg *FileConfig) {
	if cfg.Port == "" {
		cfg.Port = "5000"
	}
	if cfg.JWTSecret == "" {
		cfg.JWTSecret = InsecureJWTSecret
	}
	if cfg.RegistrationToken == "" {
		cfg.RegistrationToken = InsecureRegistrationToken
	}
	if cfg.UploadDir == "" {
		cfg.UploadDir = "uploads"
	}
}

func validate(cfg FileConfig) error {
	if cfg.DatabaseURL == "" {
		return errors.New("config: databaseURL is required (set DATABASE_URL)")
	}
	if cfg.RegisterRateLimitPerMinute < 0 || cfg.LoginRateLimitPerMinute < 0 {
		return errors.New("config: rate limits must be >= 0")
	}
	if (cfg.RegisterRateLimitPerMinute > 0 || cfg.LoginRateLimitPerMinute > 0) && cfg.RedisAddr == "" {
		return errors.New("config: redisAddr is required when rate limits are set")
	}
	return nil
}

// ParseTokenTTL parses the optional token TTL duration string.
// Empty input means "use the issuer default".
func ParseTokenTTL(ttlStr string) (time.Duration, error) {
	if ttlStr == "" {
		return 0, nil
	}
	dur, err := time.ParseDuration(ttlStr)
	if err != nil {
		return 0, fmt.Errorf("invalid tokenTTL duration: %w", err)
	}
	return dur, nil
}
