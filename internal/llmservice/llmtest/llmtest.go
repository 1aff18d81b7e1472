// Package llmtest provides a scripted llms.Model for tests.
package llmtest

import (
	"context"
	"sync"

	"github.com/tmc/langchaingo/llms"
)

// FakeModel replies with Responses in order, repeating the last one. When Err
// is set, the first FailTimes calls fail with it (all calls if FailTimes is 0).
type FakeModel struct {
	Responses []string
	Err       error
	FailTimes int

	mu       sync.Mutex
	calls    int
	messages [][]llms.MessageContent
}

func (f *FakeModel) GenerateContent(_ context.Context, messages []llms.MessageContent, _ ...llms.CallOption) (*llms.ContentResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls++
	f.messages = append(f.messages, messages)
	if f.Err != nil && (f.FailTimes == 0 || f.calls <= f.FailTimes) {
		return nil, f.Err
	}

	text := ""
	if len(f.Responses) > 0 {
		text = f.Responses[min(f.calls-1, len(f.Responses)-1)]
	}
	return &llms.ContentResponse{Choices: []*llms.ContentChoice{{Content: text}}}, nil
}

func (f *FakeModel) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	return llms.GenerateFromSinglePrompt(ctx, f, prompt, options...)
}

func (f *FakeModel) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// LastPrompt returns the concatenated text parts of the most recent call.
func (f *FakeModel) LastPrompt() string {
	f.mu.Lock()
	defer f.mu.Unlock()

	if len(f.messages) == 0 {
		return ""
	}
	var out string
	for _, m := range f.messages[len(f.messages)-1] {
		for _, p := range m.Parts {
			if tc, ok := p.(llms.TextContent); ok {
				out += tc.Text + "\n"
			}
		}
	}
	return out
}
