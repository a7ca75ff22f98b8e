// Package inference abstracts the local model runtime. It is the only
// place the engine touches an inference backend; the orchestrator and the
// infinite-mode executor see just the Client interface.
package inference

import (
	"context"
	"errors"
	"time"
)

// Invocation errors. Callers classify failures with errors.Is.
var (
	// ErrNetwork covers transport failures and timeouts.
	ErrNetwork = errors.New("inference network error")

	// ErrModelUnavailable is returned when the runtime does not have the
	// requested model loaded or pulled.
	ErrModelUnavailable = errors.New("model unavailable")

	// ErrMalformedResponse is returned when the runtime answers with a
	// body the client cannot decode.
	ErrMalformedResponse = errors.New("malformed inference response")
)

// Options tune a single invocation. Zero values mean runtime defaults.
type Options struct {
	ContextWindow int
	KeepAlive     time.Duration
	Temperature   float64
}

// Response is the result of one model invocation.
type Response struct {
	Text         string
	Model        string
	TokensUsed   int
	LoadDuration time.Duration // model load cost; zero when the model was warm
}

// Client is the sole abstraction over the underlying inference runtime.
type Client interface {
	Invoke(ctx context.Context, model, systemPrompt, userPrompt string, opts Options) (*Response, error)
}
