// internal/assistant/config.go
package assistant

import (
	"time"

	"worker-relay/internal/common/config"
)

const DefaultPollInterval = 5 * time.Second

type Config struct {
	APIKey       string
	AssistantID  string
	BaseURL      string
	OrgID        string
	PollInterval time.Duration
	// RunTimeout caps the wait for a terminal run state; zero waits forever.
	RunTimeout time.Duration
}

func LoadConfig(cfg *config.Config) *Config {
	c := &Config{
		APIKey:       cfg.OpenAI.APIKey,
		AssistantID:  cfg.OpenAI.AssistantID,
		BaseURL:      cfg.OpenAI.BaseURL,
		OrgID:        cfg.OpenAI.OrgID,
		PollInterval: config.GetDuration(cfg.OpenAI.PollInterval),
		RunTimeout:   config.GetDuration(cfg.OpenAI.RunTimeout),
	}
	if c.PollInterval <= 0 {
		c.PollInterval = DefaultPollInterval
	}
	return c
}
