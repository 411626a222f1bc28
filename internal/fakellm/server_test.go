package fakellm

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"
)

func post(t *testing.T, url, body string, header map[string]string) (*http.Response, string) {
	t.Helper()
	req, err := http.NewRequest(http.MethodPost, url, strings.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	for k, v := range header {
		req.Header.Set(k, v)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("POST %s: %v", url, err)
	}
	defer resp.Body.Close()
	data, _ := io.ReadAll(resp.Body)
	return resp, string(data)
}

func TestTags(t *testing.T) {
	s := Start(t, "llama3.2:latest")

	resp, err := http.Get(s.URL() + "/api/tags")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	var tags struct {
		Models []struct {
			Name string `json:"name"`
		} `json:"models"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&tags); err != nil {
		t.Fatal(err)
	}
	if len(tags.Models) != 1 || tags.Models[0].Name != "llama3.2:latest" {
		t.Errorf("models = %+v", tags.Models)
	}
}

func TestChat_DefaultReplyAndRecording(t *testing.T) {
	s := Start(t)

	_, body := post(t, s.URL()+"/api/chat",
		`{"model":"m","messages":[{"role":"user","content":"hi"}],"stream":false,"format":{"type":"object"}}`, nil)

	var resp struct {
		Message Message `json:"message"`
		Done    bool    `json:"done"`
	}
	if err := json.Unmarshal([]byte(body), &resp); err != nil {
		t.Fatalf("decode: %v (%s)", err, body)
	}
	if resp.Message.Content != ValidEntry || !resp.Done {
		t.Errorf("resp = %+v", resp)
	}

	reqs := s.ChatRequests()
	if len(reqs) != 1 || reqs[0].Model != "m" || reqs[0].Messages[0].Content != "hi" {
		t.Fatalf("recorded = %+v", reqs)
	}
	if len(reqs[0].Format) == 0 {
		t.Error("format not recorded")
	}
}

func TestChat_ScriptQueueRepeatsLast(t *testing.T) {
	s := Start(t)
	s.ScriptChat(Reply{Content: "first"}, Reply{Status: http.StatusNotFound, Content: "model not found"})

	_, body := post(t, s.URL()+"/api/chat", `{"model":"m"}`, nil)
	if !strings.Contains(body, "first") {
		t.Errorf("first reply = %s", body)
	}
	for i := 0; i < 2; i++ {
		resp, body := post(t, s.URL()+"/api/chat", `{"model":"m"}`, nil)
		if resp.StatusCode != http.StatusNotFound || !strings.Contains(body, "model not found") {
			t.Errorf("reply %d = %d %s", i+2, resp.StatusCode, body)
		}
	}
}

func TestCompletions(t *testing.T) {
	s := Start(t)
	s.ScriptCompletions(Reply{Body: `not json`}, Reply{Status: http.StatusTooManyRequests, Content: "slow down"})

	_, body := post(t, s.OpenAIURL()+"/chat/completions",
		`{"model":"gpt","temperature":0.1,"response_format":{"type":"json_object"}}`,
		map[string]string{"Authorization": "Bearer sk-x"})
	if body != "not json" {
		t.Errorf("raw body = %q", body)
	}

	resp, body := post(t, s.OpenAIURL()+"/chat/completions", `{"model":"gpt"}`, nil)
	if resp.StatusCode != http.StatusTooManyRequests || !strings.Contains(body, `"message":"slow down"`) {
		t.Errorf("error reply = %d %s", resp.StatusCode, body)
	}

	reqs := s.CompletionRequests()
	if len(reqs) != 2 {
		t.Fatalf("recorded %d requests", len(reqs))
	}
	if reqs[0].Authorization != "Bearer sk-x" || reqs[0].ResponseFormat == nil || reqs[0].ResponseFormat.Type != "json_object" {
		t.Errorf("first request = %+v", reqs[0])
	}
	if reqs[1].ResponseFormat != nil {
		t.Error("response_format recorded when absent")
	}
}

func TestPullAddsModel(t *testing.T) {
	s := Start(t)

	_, body := post(t, s.URL()+"/api/pull", `{"name":"phi3"}`, nil)
	if !strings.Contains(body, `"status":"success"`) {
		t.Errorf("pull body = %s", body)
	}
	if pulls := s.Pulls(); len(pulls) != 1 || pulls[0] != "phi3" {
		t.Errorf("pulls = %v", pulls)
	}

	resp, err := http.Get(s.URL() + "/api/tags")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	data, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(data), "phi3:latest") {
		t.Errorf("tags after pull = %s", data)
	}
}

func TestDelayStopsOnCancel(t *testing.T) {
	s := Start(t)
	s.ScriptChat(Reply{Delay: 5 * time.Second})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	req, _ := http.NewRequestWithContext(ctx, http.MethodPost, s.URL()+"/api/chat", strings.NewReader(`{"model":"m"}`))

	start := time.Now()
	_, err := http.DefaultClient.Do(req)
	if err == nil {
		t.Fatal("expected error from cancelled request")
	}
	if time.Since(start) > 2*time.Second {
		t.Errorf("request took %v, want prompt return", time.Since(start))
	}
}

func TestCloseMakesServerUnreachable(t *testing.T) {
	s := Start(t)
	s.Close()

	if _, err := http.Get(s.URL() + "/health"); err == nil {
		t.Error("expected connection error after Close")
	}
}
