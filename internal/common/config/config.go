// internal/common/config/config.go
package config

import "fmt"

// Config is the main application configuration struct.
type Config struct {
	App     AppConfig     `mapstructure:"app"`
	Server  ServerConfig  `mapstructure:"server"`
	OpenAI  OpenAIConfig  `mapstructure:"openai"`
	Logging LoggingConfig `mapstructure:"logging"`

	// EnvFile is the .env file that was loaded, if any.
	EnvFile string `mapstructure:"-"`
}

type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
}

// ServerConfig holds the relay listener and the admin side listener.
type ServerConfig struct {
	Port              int    `mapstructure:"port"`
	AdminAddress      string `mapstructure:"admin_address"`
	ReadHeaderTimeout int    `mapstructure:"read_header_timeout"` // milliseconds
	IdleTimeout       int    `mapstructure:"idle_timeout"`        // milliseconds
	ShutdownTimeout   int    `mapstructure:"shutdown_timeout"`    // milliseconds
}

// Address returns the relay listen address.
func (s ServerConfig) Address() string {
	return fmt.Sprintf(":%d", s.Port)
}

// OpenAIConfig holds the Assistants API credentials and polling behaviour.
type OpenAIConfig struct {
	APIKey         string `mapstructure:"api_key"`
	AssistantID    string `mapstructure:"assistant_id"`
	BaseURL        string `mapstructure:"base_url"`
	OrgID          string `mapstructure:"org_id"`
	PollInterval   int    `mapstructure:"poll_interval"`   // milliseconds
	RunTimeout     int    `mapstructure:"run_timeout"`     // milliseconds, 0 waits forever
	RequestTimeout int    `mapstructure:"request_timeout"` // milliseconds, per HTTP call
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}
