// internal/common/config/loader.go
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// ErrMissingCredentials is returned when either required OpenAI value is unset.
var ErrMissingCredentials = errors.New("missing OPENAI_API_KEY or WORKER_ASSISTANT_ID in environment")

// AdminDisabled turns the admin listener off when used as admin_address.
const AdminDisabled = "off"

// envBindings maps config keys to the environment names the relay has always
// honoured. Keys not listed here still pick up KEY_WITH_UNDERSCORES overrides.
var envBindings = map[string][]string{
	"server.port":          {"PORT", "SERVER_PORT"},
	"server.admin_address": {"ADMIN_ADDRESS", "SERVER_ADMIN_ADDRESS"},
	"openai.api_key":       {"OPENAI_API_KEY"},
	"openai.assistant_id":  {"WORKER_ASSISTANT_ID", "OPENAI_ASSISTANT_ID"},
	"openai.poll_interval": {"ASSISTANT_POLL_INTERVAL_MS", "OPENAI_POLL_INTERVAL"},
	"openai.run_timeout":   {"ASSISTANT_RUN_TIMEOUT_MS", "OPENAI_RUN_TIMEOUT"},
	"app.environment":      {"APP_ENVIRONMENT"},
}

// Load reads .env, config.yaml and config.<env>.yaml (all optional), applies
// environment overrides and validates the result.
func Load() (*Config, error) {
	envFile := loadEnvFile()

	v := newViper()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./configs")
	v.AddConfigPath(".")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading base config: %w", err)
		}
	}

	env := v.GetString("app.environment")
	v.SetConfigName(fmt.Sprintf("config.%s", env))
	_ = v.MergeInConfig() // overlay is optional

	cfg, err := decode(v)
	if err != nil {
		return nil, err
	}
	cfg.EnvFile = envFile
	return cfg, nil
}

// LoadFromFile loads configuration from a specific file path
func LoadFromFile(path string) (*Config, error) {
	envFile := loadEnvFile()

	v := newViper()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	cfg, err := decode(v)
	if err != nil {
		return nil, err
	}
	cfg.EnvFile = envFile
	return cfg, nil
}

func newViper() *viper.Viper {
	v := viper.New()
	setDefaults(v)

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	for key, names := range envBindings {
		_ = v.BindEnv(append([]string{key}, names...)...)
	}
	return v
}

func decode(v *viper.Viper) (*Config, error) {
	expandEnvVars(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyDefaults(&cfg)

	if err := validateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "worker-relay")
	v.SetDefault("app.version", "1.0.0")
	v.SetDefault("app.environment", "development")

	v.SetDefault("server.port", 3001)
	v.SetDefault("server.admin_address", ":9091")
	v.SetDefault("server.read_header_timeout", 10000)
	v.SetDefault("server.idle_timeout", 60000)
	v.SetDefault("server.shutdown_timeout", 10000)

	v.SetDefault("openai.api_key", "")
	v.SetDefault("openai.assistant_id", "")
	v.SetDefault("openai.base_url", "")
	v.SetDefault("openai.org_id", "")
	v.SetDefault("openai.poll_interval", 5000)
	v.SetDefault("openai.run_timeout", 0)
	v.SetDefault("openai.request_timeout", 600000)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
}

// loadEnvFile loads the first .env found walking up towards the module root
// and returns its path, or "" when none was found.
func loadEnvFile() string {
	possiblePaths := []string{
		".env",
		"../.env",
		"../../.env",
	}
	if rootDir := findProjectRoot(); rootDir != "" {
		possiblePaths = append(possiblePaths, filepath.Join(rootDir, ".env"))
	}

	for _, path := range possiblePaths {
		if _, err := os.Stat(path); err == nil {
			if err := godotenv.Load(path); err == nil {
				return path
			}
		}
	}
	return ""
}

// Find project root by looking for go.mod
func findProjectRoot() string {
	dir, err := os.Getwd()
	if err != nil {
		return ""
	}

	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return ""
}

// expandEnvVars resolves ${VAR} placeholders in string values from config files.
func expandEnvVars(v *viper.Viper) {
	for _, key := range v.AllKeys() {
		strVal, ok := v.Get(key).(string)
		if !ok {
			continue
		}
		if strings.Contains(strVal, "${") || (strings.HasPrefix(strVal, "$") && len(strVal) > 1) {
			expanded := os.ExpandEnv(strVal)
			if expanded != strVal && expanded != "" {
				v.Set(key, expanded)
			}
		}
	}
}

// applyDefaults fills values a config file may have zeroed out.
func applyDefaults(cfg *Config) {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 3001
	}
	if cfg.Server.ReadHeaderTimeout == 0 {
		cfg.Server.ReadHeaderTimeout = 10000
	}
	if cfg.Server.IdleTimeout == 0 {
		cfg.Server.IdleTimeout = 60000
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = 10000
	}
	if cfg.OpenAI.PollInterval == 0 {
		cfg.OpenAI.PollInterval = 5000
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
}

// validateConfig validates critical configuration fields
func validateConfig(cfg *Config) error {
	if strings.TrimSpace(cfg.OpenAI.APIKey) == "" || strings.TrimSpace(cfg.OpenAI.AssistantID) == "" {
		return ErrMissingCredentials
	}
	if cfg.Server.Port < 1 || cfg.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535, got %d", cfg.Server.Port)
	}
	if cfg.OpenAI.PollInterval < 0 {
		return fmt.Errorf("openai.poll_interval must be positive, got %d", cfg.OpenAI.PollInterval)
	}
	if cfg.OpenAI.RunTimeout < 0 {
		return fmt.Errorf("openai.run_timeout must not be negative, got %d", cfg.OpenAI.RunTimeout)
	}
	if cfg.OpenAI.RequestTimeout < 0 {
		return fmt.Errorf("openai.request_timeout must not be negative, got %d", cfg.OpenAI.RequestTimeout)
	}
	return nil
}

// AdminEnabled reports whether the health/metrics listener should start.
func (c *Config) AdminEnabled() bool {
	addr := strings.TrimSpace(c.Server.AdminAddress)
	return addr != "" && addr != AdminDisabled
}

// GetDuration converts milliseconds from config to time.Duration
func GetDuration(milliseconds int) time.Duration {
	return time.Duration(milliseconds) * time.Millisecond
}
