// Package assistanttest provides an in-memory stand-in for the Assistants
// REST API, served over httptest, for driving the real SDK in tests.
package assistanttest

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
)

const (
	ThreadID = "thread_test"
	RunID    = "run_test"
)

// Server answers the thread, message, run and list calls made for one
// relay request. Run statuses are served in order; the last one repeats.
type Server struct {
	*httptest.Server

	mu          sync.Mutex
	runStatuses []string
	reply       *string
	failures    map[string]int
	calls       []string
	prompts     []string
	assistantID string
	apiKey      string
	betaHeader  string
	listQuery   string
}

func NewServer(reply string, runStatuses ...string) *Server {
	if len(runStatuses) == 0 {
		runStatuses = []string{"completed"}
	}
	s := &Server{
		runStatuses: runStatuses,
		reply:       &reply,
		failures:    make(map[string]int),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/threads", s.createThread)
	mux.HandleFunc("POST /v1/threads/{thread}/messages", s.createMessage)
	mux.HandleFunc("POST /v1/threads/{thread}/runs", s.createRun)
	mux.HandleFunc("GET /v1/threads/{thread}/runs/{run}", s.retrieveRun)
	mux.HandleFunc("GET /v1/threads/{thread}/messages", s.listMessages)
	s.Server = httptest.NewServer(mux)
	return s
}

// BaseURL is the value for the SDK's BaseURL setting.
func (s *Server) BaseURL() string {
	return s.URL + "/v1"
}

// WithoutReply makes the message list come back empty.
func (s *Server) WithoutReply() *Server {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reply = nil
	return s
}

// FailOn answers the named operation (create_thread, create_message,
// create_run, retrieve_run, list_messages) with an API error and status.
func (s *Server) FailOn(operation string, status int) *Server {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[operation] = status
	return s
}

func (s *Server) Calls() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.calls...)
}

func (s *Server) Prompts() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.prompts...)
}

func (s *Server) AssistantID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.assistantID
}

// APIKey is the bearer token seen on the last call.
func (s *Server) APIKey() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.apiKey
}

// BetaHeader is the OpenAI-Beta header seen on the last call.
func (s *Server) BetaHeader() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.betaHeader
}

// ListQuery is the raw query string of the last message list call.
func (s *Server) ListQuery() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.listQuery
}

// record notes the call and reports whether it should fail.
func (s *Server) record(w http.ResponseWriter, r *http.Request, operation string) bool {
	s.mu.Lock()
	s.calls = append(s.calls, operation)
	s.apiKey = bearer(r.Header.Get("Authorization"))
	s.betaHeader = r.Header.Get("OpenAI-Beta")
	status, fail := s.failures[operation]
	s.mu.Unlock()

	if fail {
		writeJSON(w, status, map[string]interface{}{
			"error": map[string]interface{}{
				"message": fmt.Sprintf("%s failed", operation),
				"type":    "server_error",
			},
		})
	}
	return fail
}

func (s *Server) createThread(w http.ResponseWriter, r *http.Request) {
	if s.record(w, r, "create_thread") {
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"id":         ThreadID,
		"object":     "thread",
		"created_at": 1700000000,
	})
}

func (s *Server) createMessage(w http.ResponseWriter, r *http.Request) {
	if s.record(w, r, "create_message") {
		return
	}
	var body struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]interface{}{
			"error": map[string]interface{}{"message": err.Error(), "type": "invalid_request_error"},
		})
		return
	}
	s.mu.Lock()
	s.prompts = append(s.prompts, body.Content)
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, message("msg_user", body.Role, &body.Content))
}

func (s *Server) createRun(w http.ResponseWriter, r *http.Request) {
	if s.record(w, r, "create_run") {
		return
	}
	var body struct {
		AssistantID string `json:"assistant_id"`
	}
	_ = json.NewDecoder(r.Body).Decode(&body)

	s.mu.Lock()
	s.assistantID = body.AssistantID
	status := s.nextStatus()
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, run(r.PathValue("thread"), body.AssistantID, status))
}

func (s *Server) retrieveRun(w http.ResponseWriter, r *http.Request) {
	if s.record(w, r, "retrieve_run") {
		return
	}
	s.mu.Lock()
	status := s.nextStatus()
	assistantID := s.assistantID
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, run(r.PathValue("thread"), assistantID, status))
}

func (s *Server) listMessages(w http.ResponseWriter, r *http.Request) {
	if s.record(w, r, "list_messages") {
		return
	}
	s.mu.Lock()
	s.listQuery = r.URL.RawQuery
	reply := s.reply
	s.mu.Unlock()

	data := []interface{}{}
	if reply != nil {
		data = append(data, message("msg_reply", "assistant", reply))
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"object":   "list",
		"data":     data,
		"has_more": false,
	})
}

func (s *Server) nextStatus() string {
	status := s.runStatuses[0]
	if len(s.runStatuses) > 1 {
		s.runStatuses = s.runStatuses[1:]
	}
	return status
}

func run(threadID, assistantID, status string) map[string]interface{} {
	return map[string]interface{}{
		"id":           RunID,
		"object":       "thread.run",
		"created_at":   1700000000,
		"thread_id":    threadID,
		"assistant_id": assistantID,
		"status":       status,
	}
}

func message(id, role string, text *string) map[string]interface{} {
	content := []interface{}{}
	if text != nil {
		content = append(content, map[string]interface{}{
			"type": "text",
			"text": map[string]interface{}{
				"value":       *text,
				"annotations": []interface{}{},
			},
		})
	}
	return map[string]interface{}{
		"id":         id,
		"object":     "thread.message",
		"created_at": 1700000000,
		"thread_id":  ThreadID,
		"role":       role,
		"content":    content,
	}
}

func bearer(header string) string {
	const prefix = "Bearer "
	if len(header) > len(prefix) && header[:len(prefix)] == prefix {
		return header[len(prefix):]
	}
	return header
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
