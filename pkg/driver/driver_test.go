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

package driver

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kpekel/agentrun/pkg/agenterrors"
	"github.com/kpekel/agentrun/pkg/agentstate"
	"github.com/kpekel/agentrun/pkg/llms"
	"github.com/kpekel/agentrun/pkg/sandbox"
	"github.com/kpekel/agentrun/pkg/step"
)

// repeatingLLM always replies with the same fixed text, useful for
// driving a run past its step budget without scripting exact call counts.
type repeatingLLM struct {
	reply string
}

func (l *repeatingLLM) Generate(ctx context.Context, messages []llms.Message, defs []llms.ToolDefinition) (string, []llms.ToolCall, int, error) {
	return l.reply, nil, len(l.reply), nil
}

func (l *repeatingLLM) GenerateStreaming(ctx context.Context, messages []llms.Message, defs []llms.ToolDefinition) (<-chan llms.StreamChunk, error) {
	ch := make(chan llms.StreamChunk)
	close(ch)
	return ch, nil
}

func (l *repeatingLLM) GetModelName() string    { return "repeating-test-model" }
func (l *repeatingLLM) GetMaxTokens() int       { return 4096 }
func (l *repeatingLLM) GetTemperature() float64 { return 0 }
func (l *repeatingLLM) Close() error            { return nil }

var _ llms.LLMProvider = (*repeatingLLM)(nil)

func newDriverWithCodeStrategy(llm llms.LLMProvider) *Driver {
	strategies := step.NewStrategyRegistry()
	_ = strategies.RegisterStrategy("code", step.NewCodeStrategy(llm, nil, sandbox.NewEvaluator()))
	return New("test-agent", llm, strategies)
}

func TestDriver_RunReturnsFinalAnswer(t *testing.T) {
	llm := &repeatingLLM{reply: "```go\nfinal_answer(\"42\")\n```"}
	d := newDriverWithCodeStrategy(llm)

	resp, err := d.Run(context.Background(), "answer the question", nil, 5)
	require.NoError(t, err)
	assert.True(t, resp.Terminated)
	assert.Equal(t, "42", resp.Answer)
}

func TestDriver_RunExceedsMaxSteps(t *testing.T) {
	llm := &repeatingLLM{reply: "```go\nx := 1\n```"}
	d := newDriverWithCodeStrategy(llm)

	_, err := d.Run(context.Background(), "never finishes", nil, 2)
	require.Error(t, err)
	var maxSteps *agenterrors.MaxStepsExceeded
	assert.True(t, errors.As(err, &maxSteps))
}

func TestDriver_RunHonorsCancellation(t *testing.T) {
	llm := &repeatingLLM{reply: "```go\nx := 1\n```"}
	d := newDriverWithCodeStrategy(llm)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := d.Run(ctx, "never finishes", nil, 5)
	require.Error(t, err)
	var cancelled *agenterrors.Cancelled
	assert.True(t, errors.As(err, &cancelled))
}

func TestDriver_RunStreamingEmitsOneChunkPerStepAndCloses(t *testing.T) {
	llm := &repeatingLLM{reply: "```go\nfinal_answer(\"done\")\n```"}
	d := newDriverWithCodeStrategy(llm)

	chunks := make(chan llms.StreamChunk, 10)
	err := d.RunStreaming(context.Background(), "say done", nil, 5, chunks)
	require.NoError(t, err)

	var got []llms.StreamChunk
	for c := range chunks {
		got = append(got, c)
	}
	require.Len(t, got, 1)
	assert.Equal(t, "text", got[0].Type)
}

func TestDriver_RunResumesProvidedState(t *testing.T) {
	llm := &repeatingLLM{reply: "```go\nfinal_answer(\"resumed\")\n```"}
	d := newDriverWithCodeStrategy(llm)

	state := agentstate.NewCodeAgentState("original task", &agentstate.Input{Query: "original task"})
	state.IncrementStep()

	resp, err := d.Run(context.Background(), "continue please", state, 5)
	require.NoError(t, err)
	assert.Equal(t, "resumed", resp.Answer)
	assert.Equal(t, "continue please", state.Task())
}

func TestDriver_ToolsetSetupFailureDoesNotAbortRun(t *testing.T) {
	llm := &repeatingLLM{reply: "```go\nfinal_answer(\"ok\")\n```"}
	d := newDriverWithCodeStrategy(llm)
	d.Toolsets = []Toolset{&failingToolset{}}

	resp, err := d.Run(context.Background(), "task", nil, 5)
	require.NoError(t, err)
	assert.True(t, resp.Terminated)
}

type failingToolset struct{ closed bool }

func (f *failingToolset) Name() string                    { return "failing" }
func (f *failingToolset) Setup(ctx context.Context) error { return errors.New("boom") }
func (f *failingToolset) Close() error                    { f.closed = true; return nil }
