package inference

import (
	"context"
	"sync"
)

// ScriptedClient replays canned responses in order. Used by engine tests;
// exported so other packages' tests can share it.
type ScriptedClient struct {
	mu        sync.Mutex
	responses []*Response
	errs      []error
	calls     []ScriptedCall
	next      int

	// Hook runs on every invocation when set, after recording the call.
	Hook func(call ScriptedCall)
}

// ScriptedCall records one invocation for assertions.
type ScriptedCall struct {
	Model        string
	SystemPrompt string
	UserPrompt   string
	Opts         Options
}

// NewScriptedClient builds a client that answers with the given responses.
// A nil entry in errs means success for that position. When the script is
// exhausted the last entry repeats.
func NewScriptedClient(responses []*Response, errs []error) *ScriptedClient {
	return &ScriptedClient{responses: responses, errs: errs}
}

// Script appends a successful response.
func (c *ScriptedClient) Script(text string) *ScriptedClient {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.responses = append(c.responses, &Response{Text: text, TokensUsed: len(text) / 4})
	c.errs = append(c.errs, nil)
	return c
}

// ScriptError appends a failing invocation.
func (c *ScriptedClient) ScriptError(err error) *ScriptedClient {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.responses = append(c.responses, nil)
	c.errs = append(c.errs, err)
	return c
}

// Invoke implements Client.
func (c *ScriptedClient) Invoke(ctx context.Context, model, systemPrompt, userPrompt string, opts Options) (*Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	c.mu.Lock()
	call := ScriptedCall{Model: model, SystemPrompt: systemPrompt, UserPrompt: userPrompt, Opts: opts}
	c.calls = append(c.calls, call)

	idx := c.next
	if idx >= len(c.responses) {
		idx = len(c.responses) - 1
	}
	c.next++
	hook := c.Hook

	var resp *Response
	var err error
	if idx >= 0 {
		resp, err = c.responses[idx], c.errs[idx]
	}
	c.mu.Unlock()

	if hook != nil {
		hook(call)
	}
	if idx < 0 {
		return &Response{Text: ""}, nil
	}
	if err != nil {
		return nil, err
	}
	out := *resp
	if out.Model == "" {
		out.Model = model
	}
	return &out, nil
}

// Calls returns a copy of the recorded invocations.
func (c *ScriptedClient) Calls() []ScriptedCall {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]ScriptedCall, len(c.calls))
	copy(out, c.calls)
	return out
}
