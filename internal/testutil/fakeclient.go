package testutil

import (
	"context"
	"errors"
	"sync"
)

// ErrNoScriptedResponse is returned by FakeClient when its queue is empty.
var ErrNoScriptedResponse = errors.New("no scripted response")

// FakeCall records one completion request.
type FakeCall struct {
	Prompt      string
	Temperature float64
	MaxTokens   int
}

type fakeResponse struct {
	err  error
	text string
}

// FakeClient is a scripted completion client. When Handler is set it answers
// every call; otherwise queued responses are returned in order.
type FakeClient struct {
	Handler func(prompt string) (string, error)
	queue   []fakeResponse
	calls   []FakeCall
	mu      sync.Mutex
}

// NewFakeClient returns a client that answers with texts in order.
func NewFakeClient(texts ...string) *FakeClient {
	f := &FakeClient{}
	for _, text := range texts {
		f.Enqueue(text)
	}
	return f
}

// Enqueue adds a response text.
func (f *FakeClient) Enqueue(text string) *FakeClient {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queue = append(f.queue, fakeResponse{text: text})
	return f
}

// EnqueueError adds a failing response.
func (f *FakeClient) EnqueueError(err error) *FakeClient {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queue = append(f.queue, fakeResponse{err: err})
	return f
}

// Complete implements the completion client interface.
func (f *FakeClient) Complete(ctx context.Context, prompt string, temperature float64, maxTokens int) (string, error) {
	f.mu.Lock()
	f.calls = append(f.calls, FakeCall{Prompt: prompt, Temperature: temperature, MaxTokens: maxTokens})
	handler := f.Handler
	var next *fakeResponse
	if handler == nil && len(f.queue) > 0 {
		next = &f.queue[0]
		f.queue = f.queue[1:]
	}
	f.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return "", err
	}
	if handler != nil {
		return handler(prompt)
	}
	if next == nil {
		return "", ErrNoScriptedResponse
	}
	return next.text, next.err
}

// Calls returns a copy of the recorded requests.
func (f *FakeClient) Calls() []FakeCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]FakeCall(nil), f.calls...)
}
