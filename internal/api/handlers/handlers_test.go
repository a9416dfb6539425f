package handlers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/matiasleandrokruk/cleverq/internal/api/ctxkeys"
	"github.com/matiasleandrokruk/cleverq/internal/domain/chat"
	"github.com/matiasleandrokruk/cleverq/internal/domain/session"
	"github.com/matiasleandrokruk/cleverq/internal/infra/llm"
)

// llmStub answers with reply and counts calls.
type llmStub struct {
	calls int
	reply func(string) (string, error)
}

func (s *llmStub) ChatCompletion(_ context.Context, req llm.ChatRequest) (*llm.ChatResponse, error) {
	s.calls++
	text, err := s.reply(req.Messages[0].Content)
	if err != nil {
		return nil, err
	}
	return &llm.ChatResponse{Content: text}, nil
}
func (s *llmStub) ModelInfo() llm.ModelMeta           { return llm.ModelMeta{ID: "stub", Provider: "stub"} }
func (s *llmStub) HealthCheck(context.Context) error { return nil }

func answer(text string) func(string) (string, error) {
	return func(string) (string, error) { return text, nil }
}

func newChat(stub *llmStub) *chat.Service {
	return chat.NewService(
		session.NewMemoryStore(time.Hour),
		llm.NewRouter(map[string]llm.LLMProvider{"stub": stub}, "stub"),
	)
}

// withSession mimics the session middleware.
func withSession(req *http.Request, id string) *http.Request {
	return req.WithContext(ctxkeys.WithValue(req.Context(), ctxkeys.SessionID, id))
}

func formRequest(path string, values url.Values) *http.Request {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return withSession(req, "s1")
}

func TestClassify(t *testing.T) {
	t.Parallel()

	cases := []struct {
		err    error
		status int
		msg    string
	}{
		{&chat.GenerationError{Err: errors.New("boom")}, http.StatusBadGateway, "Error generating response: boom"},
		{chat.ErrInputTooLong, http.StatusBadRequest, "Question is too long (maximum 300 characters)."},
		{session.ErrUnknownTab, http.StatusNotFound, "unknown tab"},
		{requestError{status: http.StatusTeapot, message: "tea"}, http.StatusTeapot, "tea"},
		{errors.New("disk on fire"), http.StatusInternalServerError, "internal error"},
	}
	for _, tc := range cases {
		got := classify(tc.err)
		if got.status != tc.status || got.message != tc.msg {
			t.Errorf("classify(%v) = %d %q; want %d %q", tc.err, got.status, got.message, tc.status, tc.msg)
		}
	}
}

func TestWriteError_JSONShape(t *testing.T) {
	t.Parallel()

	rr := httptest.NewRecorder()
	writeError(rr, http.StatusBadRequest, "bad")

	if rr.Code != http.StatusBadRequest || rr.Header().Get("Content-Type") != "application/json" {
		t.Fatalf("status=%d content-type=%q", rr.Code, rr.Header().Get("Content-Type"))
	}
	if strings.TrimSpace(rr.Body.String()) != `{"error":"bad"}` {
		t.Errorf("body = %q", rr.Body.String())
	}
}

func TestGetSessionID_Missing(t *testing.T) {
	t.Parallel()

	if _, err := getSessionID(context.Background()); err == nil {
		t.Error("expected error without session in context")
	}
}
