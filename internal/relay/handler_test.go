package relay

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	commonerrors "worker-relay/internal/common/errors"
)

// ==========================
// Test doubles
// ==========================

type MockAsker struct {
	mock.Mock
}

func (m *MockAsker) Ask(ctx context.Context, prompt string) (string, error) {
	args := m.Called(ctx, prompt)
	return args.String(0), args.Error(1)
}

type TestLogger struct {
	t *testing.T
}

func (l *TestLogger) Info(msg string, fields map[string]interface{})  { l.t.Logf("INFO: %s %v", msg, fields) }
func (l *TestLogger) Warn(msg string, fields map[string]interface{})  { l.t.Logf("WARN: %s %v", msg, fields) }
func (l *TestLogger) Error(msg string, fields map[string]interface{}) { l.t.Logf("ERROR: %s %v", msg, fields) }
func (l *TestLogger) With(fields map[string]interface{}) Logger       { return l }

type statusRecorder struct {
	statuses []int
}

func (s *statusRecorder) RecordRequest(ctx context.Context, status int) {
	s.statuses = append(s.statuses, status)
}

// ==========================
// Helpers
// ==========================

func newTestHandler(t *testing.T, asker Asker) *Handler {
	return NewHandler(LoadConfig(), asker, &TestLogger{t})
}

func serve(h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func assertJSONResponse(t *testing.T, rec *httptest.ResponseRecorder, status int, body string) {
	t.Helper()
	assert.Equal(t, status, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.JSONEq(t, body, rec.Body.String())
}

// ==========================
// Routing
// ==========================

func TestHandler_RejectsOtherRoutes(t *testing.T) {
	tests := []struct {
		name   string
		method string
		target string
	}{
		{"GET on route", http.MethodGet, "/ask-worker"},
		{"PUT on route", http.MethodPut, "/ask-worker"},
		{"POST elsewhere", http.MethodPost, "/other"},
		{"POST root", http.MethodPost, "/"},
		{"POST with query", http.MethodPost, "/ask-worker?debug=1"},
		{"POST trailing slash", http.MethodPost, "/ask-worker/"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			asker := new(MockAsker)
			rec := serve(newTestHandler(t, asker), tt.method, tt.target, `{"prompt":"hello"}`)

			assertJSONResponse(t, rec, http.StatusMethodNotAllowed, `{"error":"Only POST /ask-worker is allowed"}`)
			asker.AssertNotCalled(t, "Ask", mock.Anything, mock.Anything)
		})
	}
}

// ==========================
// Validation
// ==========================

func TestHandler_PromptRequired(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"empty body", ""},
		{"empty object", `{}`},
		{"numeric prompt", `{"prompt": 42}`},
		{"null prompt", `{"prompt": null}`},
		{"object prompt", `{"prompt": {"text": "hi"}}`},
		{"empty prompt", `{"prompt": ""}`},
		{"array body", `["hello"]`},
		{"string body", `"hello"`},
		{"number body", `7`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			asker := new(MockAsker)
			rec := serve(newTestHandler(t, asker), http.MethodPost, Route, tt.body)

			assertJSONResponse(t, rec, http.StatusBadRequest, `{"error":"Property 'prompt' is required"}`)
			asker.AssertNotCalled(t, "Ask", mock.Anything, mock.Anything)
		})
	}
}

func TestHandler_UnparsableBody(t *testing.T) {
	for _, body := range []string{"not json", `{"prompt": "x"`, "null", " "} {
		t.Run(body, func(t *testing.T) {
			asker := new(MockAsker)
			rec := serve(newTestHandler(t, asker), http.MethodPost, Route, body)

			assertJSONResponse(t, rec, http.StatusInternalServerError, `{"error":"Worker GPT failed"}`)
			asker.AssertNotCalled(t, "Ask", mock.Anything, mock.Anything)
		})
	}
}

// ==========================
// Orchestration outcomes
// ==========================

func TestHandler_Success(t *testing.T) {
	asker := new(MockAsker)
	asker.On("Ask", mock.Anything, "hello").Return("world", nil).Once()

	rec := serve(newTestHandler(t, asker), http.MethodPost, Route, `{"prompt":"hello"}`)

	assertJSONResponse(t, rec, http.StatusOK, `{"narrative":"world"}`)
	asker.AssertExpectations(t)
}

func TestHandler_SuccessWithExtraFieldsAndEmptyNarrative(t *testing.T) {
	asker := new(MockAsker)
	asker.On("Ask", mock.Anything, "hello").Return("", nil).Once()

	rec := serve(newTestHandler(t, asker), http.MethodPost, Route, `{"prompt":"hello","temperature":1}`)

	assertJSONResponse(t, rec, http.StatusOK, `{"narrative":""}`)
}

func TestHandler_RemoteFailures(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"run failed", commonerrors.NewAssistantRunFailedError("failed", "run_1")},
		{"run expired", commonerrors.NewAssistantRunFailedError("expired", "run_1")},
		{"transport", commonerrors.NewAssistantTransportError("create_thread", errors.New("dial tcp: refused"))},
		{"untyped", errors.New("boom")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			asker := new(MockAsker)
			asker.On("Ask", mock.Anything, "hello").Return("", tt.err).Once()

			rec := serve(newTestHandler(t, asker), http.MethodPost, Route, `{"prompt":"hello"}`)

			assertJSONResponse(t, rec, http.StatusInternalServerError, `{"error":"Worker GPT failed"}`)
			asker.AssertExpectations(t)
		})
	}
}

func TestHandler_ClientCancellationDoesNotReachAsker(t *testing.T) {
	asker := new(MockAsker)
	asker.On("Ask", mock.MatchedBy(func(ctx context.Context) bool {
		return ctx.Err() == nil
	}), "hello").Return("world", nil).Once()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	req := httptest.NewRequest(http.MethodPost, Route, strings.NewReader(`{"prompt":"hello"}`)).WithContext(ctx)
	rec := httptest.NewRecorder()
	newTestHandler(t, asker).ServeHTTP(rec, req)

	assertJSONResponse(t, rec, http.StatusOK, `{"narrative":"world"}`)
	asker.AssertExpectations(t)
}

func TestHandler_RecordsStatus(t *testing.T) {
	asker := new(MockAsker)
	asker.On("Ask", mock.Anything, "hello").Return("world", nil)

	recorder := &statusRecorder{}
	h := newTestHandler(t, asker).WithRecorder(recorder)

	serve(h, http.MethodPost, Route, `{"prompt":"hello"}`)
	serve(h, http.MethodPost, Route, `{}`)
	serve(h, http.MethodGet, Route, "")
	serve(h, http.MethodPost, Route, "null")

	assert.Equal(t, []int{200, 400, 405, 500}, recorder.statuses)
}

// ==========================
// ParseRequest / Validate
// ==========================

func TestParseRequest(t *testing.T) {
	req, err := ParseRequest([]byte(`{"prompt":"hello","extra":true}`))
	require.NoError(t, err)
	assert.Equal(t, "hello", req.Prompt)

	_, err = ParseRequest(nil)
	assert.True(t, commonerrors.HasCode(err, commonerrors.ErrCodePromptRequired))

	_, err = ParseRequest([]byte(`{"prompt":1}`))
	assert.True(t, commonerrors.HasCode(err, commonerrors.ErrCodePromptRequired))

	_, err = ParseRequest([]byte(`{bad`))
	assert.True(t, commonerrors.HasCode(err, commonerrors.ErrCodeInvalidJSONBody))

	_, err = ParseRequest([]byte(`null`))
	assert.True(t, commonerrors.HasCode(err, commonerrors.ErrCodeInvalidJSONBody))
}

func TestValidate(t *testing.T) {
	req, ok := Validate(map[string]interface{}{"prompt": "hi"})
	require.True(t, ok)
	assert.Equal(t, "hi", req.Prompt)

	_, ok = Validate(map[string]interface{}{"prompt": 3.0})
	assert.False(t, ok)

	_, ok = Validate([]interface{}{"hi"})
	assert.False(t, ok)
}
