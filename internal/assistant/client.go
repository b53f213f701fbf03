// internal/assistant/client.go
package assistant

import (
	"context"
	"time"

	"github.com/sashabaranov/go-openai"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"worker-relay/internal/common/errors"
	"worker-relay/internal/common/metrics"
)

const (
	opCreateThread  = "create_thread"
	opCreateMessage = "create_message"
	opCreateRun     = "create_run"
	opRetrieveRun   = "retrieve_run"
	opListMessages  = "list_messages"
)

// API is the part of *openai.Client the relay drives.
type API interface {
	CreateThread(ctx context.Context, request openai.ThreadRequest) (openai.Thread, error)
	CreateMessage(ctx context.Context, threadID string, request openai.MessageRequest) (openai.Message, error)
	CreateRun(ctx context.Context, threadID string, request openai.RunRequest) (openai.Run, error)
	RetrieveRun(ctx context.Context, threadID string, runID string) (openai.Run, error)
	ListMessage(ctx context.Context, threadID string, limit *int, order *string, after *string, before *string, runID *string) (openai.MessagesList, error)
}

type Logger interface {
	Debug(msg string, fields map[string]interface{})
	Info(msg string, fields map[string]interface{})
	Error(msg string, fields map[string]interface{})
	With(fields map[string]interface{}) Logger
}

// Recorder receives run outcomes and supplies the tracer for remote calls.
type Recorder interface {
	RecordRun(ctx context.Context, status string, duration time.Duration)
	Tracer() trace.Tracer
}

// NewOpenAIAPI builds the SDK client. httpClient may be nil to use the SDK's
// default transport.
func NewOpenAIAPI(cfg *Config, httpClient openai.HTTPDoer) *openai.Client {
	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}
	if cfg.OrgID != "" {
		clientConfig.OrgID = cfg.OrgID
	}
	if httpClient != nil {
		clientConfig.HTTPClient = httpClient
	}
	return openai.NewClientWithConfig(clientConfig)
}

type Client struct {
	config   *Config
	api      API
	logger   Logger
	recorder Recorder
	tracer   trace.Tracer
}

func NewClient(cfg *Config, api API, log Logger) *Client {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultPollInterval
	}
	return &Client{
		config: cfg,
		api:    api,
		logger: log.With(map[string]interface{}{
			"component":   "assistant",
			"assistantId": cfg.AssistantID,
		}),
		tracer: noop.NewTracerProvider().Tracer(""),
	}
}

func (c *Client) WithRecorder(r Recorder) *Client {
	c.recorder = r
	if r == nil {
		return c
	}
	if tracer := r.Tracer(); tracer != nil {
		c.tracer = tracer
	}
	return c
}

// Ask runs one full exchange: a fresh thread, the prompt as a user message,
// a run of the configured assistant, and the reply text once the run
// completes. Any terminal state other than completed is an error.
func (c *Client) Ask(ctx context.Context, prompt string) (string, error) {
	ctx, span := c.tracer.Start(ctx, "assistant.ask", trace.WithAttributes(
		attribute.String("assistant.id", c.config.AssistantID),
	))
	defer span.End()

	started := time.Now()
	narrative, status, err := c.ask(ctx, prompt)
	if c.recorder != nil {
		c.recorder.RecordRun(ctx, status, time.Since(started))
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return "", err
	}
	return narrative, nil
}

func (c *Client) ask(ctx context.Context, prompt string) (string, string, error) {
	thread, err := c.api.CreateThread(ctx, openai.ThreadRequest{})
	if err != nil {
		return "", "error", c.transportError(opCreateThread, err)
	}
	log := c.logger.With(map[string]interface{}{"threadId": thread.ID})

	if _, err := c.api.CreateMessage(ctx, thread.ID, openai.MessageRequest{
		Role:    openai.ChatMessageRoleUser,
		Content: prompt,
	}); err != nil {
		return "", "error", c.transportError(opCreateMessage, err)
	}

	run, err := c.api.CreateRun(ctx, thread.ID, openai.RunRequest{
		AssistantID: c.config.AssistantID,
	})
	if err != nil {
		return "", "error", c.transportError(opCreateRun, err)
	}
	log.Debug("run started", map[string]interface{}{
		"runId":  run.ID,
		"status": string(run.Status),
	})

	run, err = c.WaitForRun(ctx, thread.ID, run)
	if err != nil {
		return "", "error", err
	}

	status := string(run.Status)
	metrics.AssistantRuns.WithLabelValues(status).Inc()
	if run.Status != openai.RunStatusCompleted {
		fields := map[string]interface{}{
			"runId":         run.ID,
			"terminalState": status,
		}
		if run.LastError != nil {
			fields["lastErrorCode"] = string(run.LastError.Code)
			fields["lastErrorMessage"] = run.LastError.Message
		}
		log.Error("run ended without completing", fields)
		return "", status, errors.NewAssistantRunFailedError(status, run.ID)
	}

	limit := 1
	order := "desc"
	list, err := c.api.ListMessage(ctx, thread.ID, &limit, &order, nil, nil, nil)
	if err != nil {
		return "", status, c.transportError(opListMessages, err)
	}

	narrative := LatestText(list)
	log.Info("run completed", map[string]interface{}{
		"runId":         run.ID,
		"narrativeSize": len(narrative),
	})
	return narrative, status, nil
}

// WaitForRun polls the run every PollInterval while it is queued, in progress
// or cancelling, and returns it at the first other status.
func (c *Client) WaitForRun(ctx context.Context, threadID string, run openai.Run) (openai.Run, error) {
	if c.config.RunTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.config.RunTimeout)
		defer cancel()
	}

	ticker := time.NewTicker(c.config.PollInterval)
	defer ticker.Stop()

	for IsPending(run.Status) {
		select {
		case <-ctx.Done():
			return run, errors.NewAssistantRunTimeoutError(string(run.Status), run.ID, ctx.Err())
		case <-ticker.C:
		}

		metrics.AssistantRunPolls.Inc()
		next, err := c.api.RetrieveRun(ctx, threadID, run.ID)
		if err != nil {
			if ctx.Err() != nil {
				return run, errors.NewAssistantRunTimeoutError(string(run.Status), run.ID, ctx.Err())
			}
			return run, c.transportError(opRetrieveRun, err)
		}
		run = next
	}
	return run, nil
}

// IsPending reports whether a run status can still change on its own.
func IsPending(status openai.RunStatus) bool {
	switch status {
	case openai.RunStatusQueued, openai.RunStatusInProgress, openai.RunStatusCancelling:
		return true
	}
	return false
}

// LatestText returns the first text content of the first listed message, or
// "" when there is none.
func LatestText(list openai.MessagesList) string {
	if len(list.Messages) == 0 {
		return ""
	}
	for _, content := range list.Messages[0].Content {
		if content.Type == "text" && content.Text != nil {
			return content.Text.Value
		}
	}
	return ""
}

func (c *Client) transportError(operation string, err error) error {
	metrics.AssistantCallFailures.WithLabelValues(operation).Inc()
	c.logger.Error("assistant call failed", map[string]interface{}{
		"operation": operation,
		"error":     err.Error(),
	})
	return errors.NewAssistantTransportError(operation, err)
}
