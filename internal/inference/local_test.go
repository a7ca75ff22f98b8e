package inference

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestLocalClientInvoke(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/generate" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		var req generateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if req.Model != "qwen2.5-coder:7b" {
			t.Errorf("model = %s", req.Model)
		}
		if req.Stream {
			t.Error("stream should be false")
		}
		if req.Options["num_ctx"] != float64(4096) {
			t.Errorf("num_ctx = %v", req.Options["num_ctx"])
		}
		json.NewEncoder(w).Encode(generateResponse{
			Model:           req.Model,
			Response:        "hello",
			Done:            true,
			EvalCount:       10,
			PromptEvalCount: 5,
			LoadDuration:    int64(2 * time.Second),
		})
	}))
	defer srv.Close()

	client := NewLocalClient(LocalConfig{BaseURL: srv.URL})
	resp, err := client.Invoke(context.Background(), "qwen2.5-coder:7b", "sys", "write code",
		Options{ContextWindow: 4096, KeepAlive: 5 * time.Minute})
	if err != nil {
		t.Fatalf("Invoke failed: %v", err)
	}
	if resp.Text != "hello" {
		t.Errorf("text = %q", resp.Text)
	}
	if resp.TokensUsed != 15 {
		t.Errorf("tokens = %d, want 15", resp.TokensUsed)
	}
	if resp.LoadDuration != 2*time.Second {
		t.Errorf("load duration = %v", resp.LoadDuration)
	}
}

func TestLocalClientModelUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	client := NewLocalClient(LocalConfig{BaseURL: srv.URL})
	_, err := client.Invoke(context.Background(), "missing:model", "", "hi", Options{})
	if !errors.Is(err, ErrModelUnavailable) {
		t.Errorf("expected ErrModelUnavailable, got %v", err)
	}
}

func TestLocalClientMalformedBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("not json"))
	}))
	defer srv.Close()

	client := NewLocalClient(LocalConfig{BaseURL: srv.URL})
	_, err := client.Invoke(context.Background(), "m", "", "hi", Options{})
	if !errors.Is(err, ErrMalformedResponse) {
		t.Errorf("expected ErrMalformedResponse, got %v", err)
	}
}

func TestLocalClientNetworkError(t *testing.T) {
	client := NewLocalClient(LocalConfig{BaseURL: "http://127.0.0.1:1", Timeout: 100 * time.Millisecond})
	_, err := client.Invoke(context.Background(), "m", "", "hi", Options{})
	if !errors.Is(err, ErrNetwork) {
		t.Errorf("expected ErrNetwork, got %v", err)
	}
}

func TestLocalClientRuntimeError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(generateResponse{Error: "model not pulled"})
	}))
	defer srv.Close()

	client := NewLocalClient(LocalConfig{BaseURL: srv.URL})
	_, err := client.Invoke(context.Background(), "m", "", "hi", Options{})
	if !errors.Is(err, ErrModelUnavailable) {
		t.Errorf("expected ErrModelUnavailable, got %v", err)
	}
}

func TestLocalClientReconfigure(t *testing.T) {
	respond := func(text string) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			json.NewEncoder(w).Encode(generateResponse{Response: text, Done: true})
		}
	}
	first := httptest.NewServer(respond("first"))
	defer first.Close()
	second := httptest.NewServer(respond("second"))
	defer second.Close()

	client := NewLocalClient(LocalConfig{BaseURL: first.URL})
	r, err := client.Invoke(context.Background(), "m", "", "hi", Options{})
	if err != nil || r.Text != "first" {
		t.Fatalf("before reconfigure: %v %v", r, err)
	}

	client.Reconfigure(LocalConfig{BaseURL: second.URL, Timeout: time.Second})
	r, err = client.Invoke(context.Background(), "m", "", "hi", Options{})
	if err != nil {
		t.Fatalf("after reconfigure: %v", err)
	}
	if r.Text != "second" {
		t.Errorf("text = %q, want response from the new endpoint", r.Text)
	}
}

func TestScriptedClientReplaysInOrder(t *testing.T) {
	c := (&ScriptedClient{}).Script("one").Script("two")

	r1, err := c.Invoke(context.Background(), "m", "", "p1", Options{})
	if err != nil || r1.Text != "one" {
		t.Fatalf("first call: %v %v", r1, err)
	}
	r2, _ := c.Invoke(context.Background(), "m", "", "p2", Options{})
	if r2.Text != "two" {
		t.Errorf("second call text = %q", r2.Text)
	}
	// Exhausted script repeats the last entry.
	r3, _ := c.Invoke(context.Background(), "m", "", "p3", Options{})
	if r3.Text != "two" {
		t.Errorf("third call text = %q", r3.Text)
	}
	if len(c.Calls()) != 3 {
		t.Errorf("recorded %d calls, want 3", len(c.Calls()))
	}
}
