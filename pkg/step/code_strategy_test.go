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

package step

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kpekel/agentrun/pkg/agentstate"
	"github.com/kpekel/agentrun/pkg/llms"
	"github.com/kpekel/agentrun/pkg/sandbox"
	"github.com/kpekel/agentrun/pkg/tools"
)

// scriptedLLM replies with one fixed string per call, in order, and
// errors if asked for more calls than were scripted.
type scriptedLLM struct {
	replies []string
	calls   int
}

func (l *scriptedLLM) Generate(ctx context.Context, messages []llms.Message, defs []llms.ToolDefinition) (string, []llms.ToolCall, int, error) {
	if l.calls >= len(l.replies) {
		return "", nil, 0, assertionError("scriptedLLM: out of replies")
	}
	reply := l.replies[l.calls]
	l.calls++
	return reply, nil, len(reply), nil
}

func (l *scriptedLLM) GenerateStreaming(ctx context.Context, messages []llms.Message, defs []llms.ToolDefinition) (<-chan llms.StreamChunk, error) {
	ch := make(chan llms.StreamChunk)
	close(ch)
	return ch, nil
}

func (l *scriptedLLM) GetModelName() string    { return "scripted-test-model" }
func (l *scriptedLLM) GetMaxTokens() int       { return 4096 }
func (l *scriptedLLM) GetTemperature() float64 { return 0 }
func (l *scriptedLLM) Close() error            { return nil }

type assertionError string

func (e assertionError) Error() string { return string(e) }

var _ llms.LLMProvider = (*scriptedLLM)(nil)

type addTestTool struct{}

func (addTestTool) GetInfo() tools.ToolInfo {
	return tools.ToolInfo{
		Name: "add",
		Parameters: []tools.ToolParameter{
			{Name: "a", Type: "number"},
			{Name: "b", Type: "number"},
		},
		Description: "adds two numbers",
	}
}

func (addTestTool) Execute(ctx context.Context, args map[string]interface{}) (tools.ToolResult, error) {
	a, _ := args["a"].(float64)
	if ai, ok := args["a"].(int64); ok {
		a = float64(ai)
	}
	b, _ := args["b"].(float64)
	if bi, ok := args["b"].(int64); ok {
		b = float64(bi)
	}
	return tools.ToolResult{Success: true, Output: a + b, ToolName: "add"}, nil
}

func (addTestTool) GetName() string        { return "add" }
func (addTestTool) GetDescription() string { return "adds two numbers" }

func newToolRegistry(t *testing.T) *tools.ToolRegistry {
	t.Helper()
	reg := tools.NewToolRegistry()
	require.NoError(t, reg.Register("add", tools.ToolEntry{
		Tool:       addTestTool{},
		Source:     nil,
		SourceType: "local",
		Name:       "add",
	}))
	return reg
}

func TestCodeStrategy_FinalAnswerTerminatesStep(t *testing.T) {
	llm := &scriptedLLM{replies: []string{"```go\nfinal_answer(\"done\")\n```"}}
	strategy := NewCodeStrategy(llm, nil, sandbox.NewEvaluator())

	state := agentstate.NewCodeAgentState("say done", &agentstate.Input{Query: "say done"})
	resp, err := strategy.Step(context.Background(), state)
	require.NoError(t, err)
	assert.True(t, resp.Terminated)
	assert.Equal(t, "done", resp.Answer)
	assert.True(t, state.IsFinalAnswer())
	assert.Equal(t, "done", state.FinalAnswerValue())
}

func TestCodeStrategy_ToolAssistedArithmetic(t *testing.T) {
	llm := &scriptedLLM{replies: []string{"```go\nsum := add(2, 3)\nfinal_answer(sum)\n```"}}
	reg := newToolRegistry(t)
	strategy := NewCodeStrategy(llm, reg, sandbox.NewEvaluator())

	state := agentstate.NewCodeAgentState("add two numbers", &agentstate.Input{Query: "add 2 and 3"})
	resp, err := strategy.Step(context.Background(), state)
	require.NoError(t, err)
	assert.True(t, resp.Terminated)
	assert.Equal(t, 5.0, state.FinalAnswerValue())
}

func TestCodeStrategy_ErrorObservationDoesNotTerminate(t *testing.T) {
	llm := &scriptedLLM{replies: []string{"```go\nthis is not valid Go\n```"}}
	strategy := NewCodeStrategy(llm, nil, sandbox.NewEvaluator())

	state := agentstate.NewCodeAgentState("do something", &agentstate.Input{Query: "do something"})
	resp, err := strategy.Step(context.Background(), state)
	require.NoError(t, err)
	assert.False(t, resp.Terminated)
	assert.Equal(t, 1, state.ErrorCount())

	last, ok := state.History().LastMessage()
	require.True(t, ok)
	assert.Contains(t, last.Content, "**Error in code block 1:**")
}

func TestCodeStrategy_ReflectionFiresOnceAfterThreeErrors(t *testing.T) {
	llm := &scriptedLLM{replies: []string{
		"```go\nbroken one\n```",
		"```go\nbroken two\n```",
		"```go\nbroken three\n```",
		"```go\nfinal_answer(\"ok\")\n```",
	}}
	strategy := NewCodeStrategy(llm, nil, sandbox.NewEvaluator())
	state := agentstate.NewCodeAgentState("retry", &agentstate.Input{Query: "retry"})

	for i := 0; i < 3; i++ {
		_, err := strategy.Step(context.Background(), state)
		require.NoError(t, err)
	}
	assert.Equal(t, 3, state.ErrorCount())

	fired, _ := state.GetMetadata(reflectedOnErrorsKey)
	assert.Equal(t, true, fired)

	reflections := 0
	for i := 0; i < state.History().Len(); i++ {
		m, _ := state.History().At(i)
		if m.Role == "user" && m.Content == "Before continuing, reflect on your approach so far: what has gone wrong, and what should change?" {
			reflections++
		}
	}
	assert.Equal(t, 1, reflections)

	// One further step, with the error count still at 3, must not inject a
	// second reflection message: the latch in metadata suppresses re-firing.
	_, err := strategy.Step(context.Background(), state)
	require.NoError(t, err)
	reflections = 0
	for i := 0; i < state.History().Len(); i++ {
		m, _ := state.History().At(i)
		if m.Role == "user" && m.Content == "Before continuing, reflect on your approach so far: what has gone wrong, and what should change?" {
			reflections++
		}
	}
	assert.Equal(t, 1, reflections)
}

func TestExtractCodeBlocks_StrictThenLooseFallback(t *testing.T) {
	strict := "intro\n```go\nfinal_answer(1)\n```\ntrailer"
	assert.Equal(t, []string{"final_answer(1)"}, extractCodeBlocks(strict))

	loose := "```final_answer(2)```"
	assert.Equal(t, []string{"final_answer(2)"}, extractCodeBlocks(loose))
}
