// internal/relay/handler.go
package relay

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"worker-relay/internal/common/errors"
	"worker-relay/internal/common/metrics"
	"worker-relay/internal/common/validation"
)

const (
	Route = "/ask-worker"

	MsgMethodNotAllowed = "Only POST /ask-worker is allowed"
	MsgPromptRequired   = "Property 'prompt' is required"
	MsgWorkerFailed     = "Worker GPT failed"
)

var promptSchema = validation.MustCompile(map[string]interface{}{
	"type":     "object",
	"required": []interface{}{"prompt"},
	"properties": map[string]interface{}{
		"prompt": map[string]interface{}{
			"type":      "string",
			"minLength": 1,
		},
	},
})

// Asker runs one prompt against the remote assistant and returns its reply.
type Asker interface {
	Ask(ctx context.Context, prompt string) (string, error)
}

type Logger interface {
	Info(msg string, fields map[string]interface{})
	Warn(msg string, fields map[string]interface{})
	Error(msg string, fields map[string]interface{})
	With(fields map[string]interface{}) Logger
}

type Recorder interface {
	RecordRequest(ctx context.Context, status int)
}

type Handler struct {
	config   *Config
	asker    Asker
	logger   Logger
	recorder Recorder
}

func NewHandler(config *Config, asker Asker, log Logger) *Handler {
	if config.Route == "" {
		config.Route = Route
	}
	return &Handler{
		config: config,
		asker:  asker,
		logger: log.With(map[string]interface{}{
			"component": "relay",
		}),
	}
}

func (h *Handler) WithRecorder(r Recorder) *Handler {
	h.recorder = r
	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	started := time.Now()
	metrics.RelayRequestsInFlight.Inc()
	defer metrics.RelayRequestsInFlight.Dec()

	log := h.logger.With(map[string]interface{}{
		"requestId": uuid.NewString(),
		"method":    r.Method,
		"uri":       r.URL.RequestURI(),
	})

	status := h.handle(w, r, log)

	code := strconv.Itoa(status)
	metrics.RelayRequests.WithLabelValues(code).Inc()
	metrics.RelayRequestDuration.WithLabelValues(code).Observe(time.Since(started).Seconds())
	if h.recorder != nil {
		h.recorder.RecordRequest(r.Context(), status)
	}
}

func (h *Handler) handle(w http.ResponseWriter, r *http.Request, log Logger) int {
	if r.Method != http.MethodPost || r.URL.RequestURI() != h.config.Route {
		log.Warn("rejected request", nil)
		return writeJSON(w, http.StatusMethodNotAllowed, ErrorResponse{Error: MsgMethodNotAllowed})
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		return h.fail(w, log, errors.NewBodyReadFailedError(err))
	}

	req, err := ParseRequest(body)
	if err != nil {
		if errors.HasCode(err, errors.ErrCodePromptRequired) {
			log.Info("prompt missing", map[string]interface{}{"error": err.Error()})
			return writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: MsgPromptRequired})
		}
		return h.fail(w, log, err)
	}

	// The exchange runs to completion even if the caller goes away.
	narrative, err := h.asker.Ask(context.WithoutCancel(r.Context()), req.Prompt)
	if err != nil {
		return h.fail(w, log, err)
	}

	log.Info("request completed", map[string]interface{}{
		"promptSize":    len(req.Prompt),
		"narrativeSize": len(narrative),
	})
	return writeJSON(w, http.StatusOK, Response{Narrative: narrative})
}

func (h *Handler) fail(w http.ResponseWriter, log Logger, err error) int {
	stdErr := errors.Normalize(err)
	metrics.RelayFailures.WithLabelValues(string(stdErr.Code)).Inc()
	log.Error("worker request failed", stdErr.LogFields())
	return writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: MsgWorkerFailed})
}

// ParseRequest decodes a request body. An empty body counts as {}. Bodies
// that are not JSON, or are JSON null, fail with INVALID_JSON_BODY; a body
// without a non-empty string prompt fails with PROMPT_REQUIRED.
func ParseRequest(body []byte) (*Request, error) {
	if len(body) == 0 {
		body = []byte("{}")
	}

	var payload interface{}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, errors.NewInvalidJSONBodyError(err)
	}
	if payload == nil {
		return nil, errors.NewInvalidJSONBodyError(fmt.Errorf("body is JSON null"))
	}

	req, result := validate(payload)
	if !result.Valid {
		return nil, errors.NewPromptRequiredError(result.Summary())
	}
	return req, nil
}

// Validate reports whether payload, a decoded JSON value, carries a usable
// prompt.
func Validate(payload interface{}) (*Request, bool) {
	req, result := validate(payload)
	return req, result.Valid
}

func validate(payload interface{}) (*Request, *validation.ValidationResult) {
	result := promptSchema.Validate(payload)
	if !result.Valid {
		return nil, result
	}
	// The schema guarantees an object with a string prompt.
	prompt := payload.(map[string]interface{})["prompt"].(string)
	return &Request{Prompt: prompt}, result
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) int {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
	return status
}
