// Copyright 2025 Kadir Pekel
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package testutils provides fakes shared across this module's _test.go
// files: an LLM provider and a tool, each configurable with a
// function/delay/error trio, and a remote-tool source configurable with a
// discover function and error (no delay), so a test can script exactly the
// behavior it needs without a real model or network call.
package testutils

import (
	"context"
	"time"

	"github.com/kpekel/agentrun/pkg/llms"
)

// FakeLLMProvider implements llms.LLMProvider with caller-supplied
// behavior. A zero-value FakeLLMProvider echoes a canned reply; set
// GenerateFunc to script specific responses per call.
type FakeLLMProvider struct {
	Model       string
	MaxTokens   int
	Temperature float64

	// GenerateFunc, if set, backs Generate entirely. Reply is used
	// instead when GenerateFunc is nil.
	GenerateFunc func(ctx context.Context, messages []llms.Message, defs []llms.ToolDefinition) (string, []llms.ToolCall, int, error)
	Reply        string

	Delay time.Duration
	Err   error

	calls int
}

// NewFakeLLMProvider returns a FakeLLMProvider that always replies with
// reply.
func NewFakeLLMProvider(reply string) *FakeLLMProvider {
	return &FakeLLMProvider{Model: "fake-model", Reply: reply}
}

func (f *FakeLLMProvider) Generate(ctx context.Context, messages []llms.Message, defs []llms.ToolDefinition) (string, []llms.ToolCall, int, error) {
	f.calls++

	if f.Delay > 0 {
		select {
		case <-time.After(f.Delay):
		case <-ctx.Done():
			return "", nil, 0, ctx.Err()
		}
	}

	if f.Err != nil {
		return "", nil, 0, f.Err
	}

	if f.GenerateFunc != nil {
		return f.GenerateFunc(ctx, messages, defs)
	}

	return f.Reply, nil, len(f.Reply), nil
}

func (f *FakeLLMProvider) GenerateStreaming(ctx context.Context, messages []llms.Message, defs []llms.ToolDefinition) (<-chan llms.StreamChunk, error) {
	ch := make(chan llms.StreamChunk, 1)
	text, _, tokens, err := f.Generate(ctx, messages, defs)
	if err != nil {
		close(ch)
		return ch, err
	}
	ch <- llms.StreamChunk{Type: "text", Text: text, Tokens: tokens}
	close(ch)
	return ch, nil
}

func (f *FakeLLMProvider) GetModelName() string    { return f.Model }
func (f *FakeLLMProvider) GetMaxTokens() int       { return f.MaxTokens }
func (f *FakeLLMProvider) GetTemperature() float64 { return f.Temperature }
func (f *FakeLLMProvider) Close() error            { return nil }

// Calls reports how many times Generate has been invoked.
func (f *FakeLLMProvider) Calls() int { return f.calls }

var _ llms.LLMProvider = (*FakeLLMProvider)(nil)
