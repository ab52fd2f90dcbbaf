package ai

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/tstromberg/tagflow/pkg/vocab"
)

// ollamaServer answers /api/chat with reply and keeps the last request body.
func ollamaServer(t *testing.T, reply string, got *chatRequest) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/chat" {
			http.NotFound(w, r)
			return
		}
		if err := json.NewDecoder(r.Body).Decode(got); err != nil {
			t.Errorf("decode request: %v", err)
		}
		w.Header().Set("Content-Type", "application/x-ndjson")
		resp := map[string]any{
			"model":   got.Model,
			"message": map[string]string{"role": "assistant", "content": reply},
			"done":    true,
		}
		if err := json.NewEncoder(w).Encode(resp); err != nil {
			t.Errorf("encode response: %v", err)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

type chatRequest struct {
	Model    string `json:"model"`
	Messages []struct {
		Role    string   `json:"role"`
		Content string   `json:"content"`
		Images  []string `json:"images"`
	} `json:"messages"`
}

func TestOllamaDescribeWire(t *testing.T) {
	var req chatRequest
	srv := ollamaServer(t, "A striped tie.", &req)

	o, err := NewOllama(context.Background(), OllamaConfig{BaseURL: srv.URL, Model: "llava", Timeout: 10 * time.Second})
	if err != nil {
		t.Fatalf("NewOllama: %v", err)
	}

	got, err := o.Describe(context.Background(), writeTestImage(t, "tie.png", 40, 20))
	if err != nil {
		t.Fatalf("Describe: %v", err)
	}
	if got != "A striped tie." {
		t.Errorf("Describe() = %q, want %q", got, "A striped tie.")
	}

	if req.Model != "llava" || len(req.Messages) != 1 {
		t.Fatalf("request = %+v, want one message for llava", req)
	}
	m := req.Messages[0]
	if m.Content != DescribePrompt {
		t.Errorf("content = %q, want the describe prompt", m.Content)
	}
	if len(m.Images) != 1 {
		t.Fatalf("sent %d images, want 1", len(m.Images))
	}
	raw, err := base64.StdEncoding.DecodeString(m.Images[0])
	if err != nil {
		t.Fatalf("image is not bare base64: %v", err)
	}
	if !bytes.HasPrefix(raw, []byte{0xff, 0xd8}) {
		t.Errorf("image payload is not a JPEG: % x", raw[:min(len(raw), 4)])
	}
}

func TestOllamaTagWire(t *testing.T) {
	var req chatRequest
	srv := ollamaServer(t, "vest, trousers", &req)

	o, err := NewOllama(context.Background(), OllamaConfig{BaseURL: srv.URL, Model: "llama3.2:3b"})
	if err != nil {
		t.Fatalf("NewOllama: %v", err)
	}

	got, err := o.Tag(context.Background(), "a grey vest", vocab.New("vest", "trousers", "red"))
	if err != nil {
		t.Fatalf("Tag: %v", err)
	}
	if len(got) != 2 || got[0] != "vest" || got[1] != "trousers" {
		t.Errorf("Tag() = %v, want [vest trousers]", got)
	}
	if len(req.Messages) != 1 || len(req.Messages[0].Images) != 0 {
		t.Errorf("tag request = %+v, want one text-only message", req)
	}
}
