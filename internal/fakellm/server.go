// Package fakellm serves scripted Ollama and OpenAI-compatible chat
// endpoints over httptest so provider code can be exercised end to end
// without a model.
package fakellm

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
)

const maxRequestBodySize = 1 << 20 // 1MB

// ValidEntry is the assistant content returned when no reply is scripted.
const ValidEntry = `{"title":"Fake entry","content":"Written by the fake model.","tags":["fake"]}`

// Reply scripts one answer from a chat endpoint.
type Reply struct {
	// Status is the HTTP status to answer with; zero means 200.
	Status int
	// Content is the assistant message on success, or the error message
	// on a non-200 status.
	Content string
	// Body, when set, is written verbatim instead of a generated payload.
	Body string
	// Delay holds the response back. A cancelled request stops waiting.
	Delay time.Duration
}

// Message is a chat message as received by the fake.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatRequest is a recorded Ollama /api/chat request.
type ChatRequest struct {
	Model    string          `json:"model"`
	Messages []Message       `json:"messages"`
	Stream   bool            `json:"stream"`
	Format   json.RawMessage `json:"format,omitempty"`
	Options  map[string]any  `json:"options,omitempty"`
}

// CompletionRequest is a recorded OpenAI /v1/chat/completions request.
type CompletionRequest struct {
	Model          string    `json:"model"`
	Messages       []Message `json:"messages"`
	Temperature    float64   `json:"temperature"`
	ResponseFormat *struct {
		Type string `json:"type"`
	} `json:"response_format,omitempty"`
	// Authorization is the request's Authorization header.
	Authorization string `json:"-"`
}

// Server is a fake model backend. The zero value is not usable; call Start.
type Server struct {
	srv *httptest.Server

	mu          sync.Mutex
	models      []string
	chat        []Reply
	completions []Reply
	chats       []ChatRequest
	completes   []CompletionRequest
	pulls       []string
}

// Start launches a fake server that is closed when the test ends. The
// listed models are reported by /api/tags.
func Start(t testing.TB, models ...string) *Server {
	t.Helper()
	s := &Server{models: models}
	s.srv = httptest.NewServer(s.routes())
	t.Cleanup(s.srv.Close)
	return s
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()

	r.Get("/health", handleHealth)
	r.Get("/api/tags", s.handleTags)
	r.Post("/api/pull", s.handlePull)
	r.Post("/api/chat", s.handleChat)
	r.Post("/v1/chat/completions", s.handleCompletions)

	return r
}

// URL is the Ollama base URL.
func (s *Server) URL() string { return s.srv.URL }

// OpenAIURL is the OpenAI-compatible base URL.
func (s *Server) OpenAIURL() string { return s.srv.URL + "/v1" }

// Close shuts the server down early, e.g. to simulate an unreachable backend.
func (s *Server) Close() { s.srv.Close() }

// ScriptChat queues replies for /api/chat. Once the queue is drained the
// last reply repeats.
func (s *Server) ScriptChat(replies ...Reply) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.chat = append(s.chat, replies...)
}

// ScriptCompletions queues replies for /v1/chat/completions. Once the queue
// is drained the last reply repeats.
func (s *Server) ScriptCompletions(replies ...Reply) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.completions = append(s.completions, replies...)
}

// ChatRequests returns the /api/chat requests received so far.
func (s *Server) ChatRequests() []ChatRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]ChatRequest(nil), s.chats...)
}

// CompletionRequests returns the /v1/chat/completions requests received so far.
func (s *Server) CompletionRequests() []CompletionRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]CompletionRequest(nil), s.completes...)
}

// Pulls returns the model names requested through /api/pull.
func (s *Server) Pulls() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.pulls...)
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}

func (s *Server) handleTags(w http.ResponseWriter, r *http.Request) {
	type model struct {
		Name string `json:"name"`
	}
	s.mu.Lock()
	resp := struct {
		Models []model `json:"models"`
	}{Models: []model{}}
	for _, m := range s.models {
		resp.Models = append(resp.Models, model{Name: m})
	}
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handlePull(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBodySize)).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	s.mu.Lock()
	s.pulls = append(s.pulls, req.Name)
	s.models = append(s.models, req.Name+":latest")
	s.mu.Unlock()

	w.Header().Set("Content-Type", "application/x-ndjson")
	enc := json.NewEncoder(w)
	enc.Encode(map[string]any{"status": "pulling manifest"})
	enc.Encode(map[string]any{"status": "downloading", "total": 100, "completed": 100})
	enc.Encode(map[string]any{"status": "success"})
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req ChatRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBodySize)).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	s.mu.Lock()
	s.chats = append(s.chats, req)
	reply := next(&s.chat)
	s.mu.Unlock()

	if !wait(r, reply.Delay) {
		return
	}
	if reply.Body != "" {
		writeRaw(w, reply.status(), reply.Body)
		return
	}
	if reply.status() != http.StatusOK {
		writeJSON(w, reply.status(), map[string]string{"error": reply.Content})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"model":   req.Model,
		"message": Message{Role: "assistant", Content: reply.content()},
		"done":    true,
	})
}

func (s *Server) handleCompletions(w http.ResponseWriter, r *http.Request) {
	var req CompletionRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBodySize)).Decode(&req); err != nil {
		httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
		return
	}
	req.Authorization = r.Header.Get("Authorization")

	s.mu.Lock()
	s.completes = append(s.completes, req)
	reply := next(&s.completions)
	s.mu.Unlock()

	if !wait(r, reply.Delay) {
		return
	}
	if reply.Body != "" {
		writeRaw(w, reply.status(), reply.Body)
		return
	}
	if reply.status() != http.StatusOK {
		httpError(w, reply.status(), "api_error", "%s", reply.Content)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"id":      "chatcmpl-fake",
		"object":  "chat.completion",
		"created": 0,
		"model":   req.Model,
		"choices": []map[string]any{{
			"index":         0,
			"message":       Message{Role: "assistant", Content: reply.content()},
			"finish_reason": "stop",
		}},
	})
}

// next pops the head of the queue, keeping the last reply in place.
func next(queue *[]Reply) Reply {
	q := *queue
	switch len(q) {
	case 0:
		return Reply{}
	case 1:
		return q[0]
	}
	*queue = q[1:]
	return q[0]
}

func (r Reply) status() int {
	if r.Status == 0 {
		return http.StatusOK
	}
	return r.Status
}

func (r Reply) content() string {
	if r.Content == "" {
		return ValidEntry
	}
	return r.Content
}

// wait sleeps for d and reports false when the client went away first.
func wait(r *http.Request, d time.Duration) bool {
	if d <= 0 {
		return true
	}
	select {
	case <-time.After(d):
		return true
	case <-r.Context().Done():
		return false
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeRaw(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write([]byte(body))
}

func httpError(w http.ResponseWriter, status int, errType, format string, args ...any) {
	writeJSON(w, status, map[string]any{
		"error": map[string]any{
			"message": fmt.Sprintf(format, args...),
			"type":    errType,
		},
	})
}
