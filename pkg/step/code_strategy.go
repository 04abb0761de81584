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
	"fmt"
	"strings"
	"time"

	"github.com/kpekel/agentrun/pkg/agenterrors"
	"github.com/kpekel/agentrun/pkg/agentstate"
	"github.com/kpekel/agentrun/pkg/hook"
	"github.com/kpekel/agentrun/pkg/llms"
	"github.com/kpekel/agentrun/pkg/response"
	"github.com/kpekel/agentrun/pkg/sandbox"
	"github.com/kpekel/agentrun/pkg/tools"
)

// Metadata keys under which CodeStrategy latches a reflection trigger so
// it fires at most once per run, rather than re-firing on every step while
// its condition continues to hold.
const (
	reflectedOnErrorsKey     = "step.reflected_on_errors"
	reflectedOnScheduleKey   = "step.reflected_on_schedule"
	reflectedOnConfidenceKey = "step.reflected_on_confidence"
)

// CodeStrategy is the "code" route: a step that prompts the model to
// respond with fenced Go-expression-syntax code, runs every fenced block
// through the Sandboxed Code Evaluator in order, and stops at the first
// block that calls final_answer.
type CodeStrategy struct {
	LLM       llms.LLMProvider
	Tools     *tools.ToolRegistry
	Evaluator *sandbox.Evaluator

	// Hooks, if set, wraps every tool visible to the sandbox so direct
	// calls from evaluated code still run through the Tool Hook Layer.
	Hooks *hook.Registry

	// CustomTools are per-run additions layered over Tools, e.g. tools
	// scoped to a single task rather than registered for the agent's
	// whole lifetime.
	CustomTools map[string]tools.Tool

	// SystemPromptPreamble is appended after the base instructions and
	// tool listing, e.g. conversation context or state hints.
	SystemPromptPreamble string
}

func NewCodeStrategy(llm llms.LLMProvider, registry *tools.ToolRegistry, evaluator *sandbox.Evaluator) *CodeStrategy {
	return &CodeStrategy{LLM: llm, Tools: registry, Evaluator: evaluator}
}

var _ Strategy = (*CodeStrategy)(nil)

// Step implements Strategy.
func (s *CodeStrategy) Step(ctx context.Context, state *agentstate.CodeAgentState) (resp *response.Response, err error) {
	start := time.Now()
	defer func() {
		if resp != nil {
			resp.Info["duration_ms"] = time.Since(start).Milliseconds()
		}
	}()

	h := state.History()

	if h.Len() == 0 {
		h.Append(llms.Message{Role: "system", Content: s.systemPrompt()})
		query := state.Task()
		if input := state.Input(); input != nil && input.Query != "" {
			query = input.Query
		}
		h.Append(llms.Message{Role: "user", Content: query})
	}

	text, _, tokens, err := s.LLM.Generate(ctx, h.ToList(), s.toolDefinitions())
	if err != nil {
		return nil, &agenterrors.LLMProviderError{Provider: s.LLM.GetModelName(), Err: err}
	}
	h.Append(llms.Message{Role: "assistant", Content: text})

	resp = response.New(text)
	resp.Info["tokens"] = tokens

	toolMap := s.buildToolMap()

	for i, block := range extractCodeBlocks(text) {
		if n := len([]rune(block)); n > 2000 {
			h.Append(llms.Message{Role: "user", Content: fmt.Sprintf("**Code block %d refused:** %d characters exceeds the 2000-character limit", i+1, n)})
			continue
		}
		outcome := s.Evaluator.Evaluate(ctx, block, toolMap, s.CustomTools, state.State)

		state.RecordBlockResult(agentstate.CodeBlockResult{
			Index:         i,
			Source:        block,
			PrintOutput:   outcome.PrintOutput,
			ReturnValue:   outcome.Value,
			IsFinalAnswer: outcome.FinalAnswer,
			Err:           outcome.Err,
		})

		switch {
		case outcome.FinalAnswer:
			state.SetFinalAnswer(outcome.Value)
			h.Append(llms.Message{Role: "user", Content: fmt.Sprintf("**Final Answer Found:** %v", outcome.Value)})
			resp.Answer = fmt.Sprintf("%v", outcome.Value)
			resp.Terminated = true
			s.maybeInjectReflection(state)
			return resp, nil

		case outcome.Err != nil:
			state.IncrementErrors()
			h.Append(llms.Message{Role: "user", Content: fmt.Sprintf("**Error in code block %d:** %v", i+1, outcome.Err)})

		default:
			h.Append(llms.Message{Role: "user", Content: summarizeOutcome(outcome)})
		}
	}

	s.maybeInjectReflection(state)
	return resp, nil
}

func summarizeOutcome(outcome sandbox.Outcome) string {
	if outcome.PrintOutput != "" {
		return fmt.Sprintf("**Output:**\n%s\n**Result:** %v", outcome.PrintOutput, outcome.Value)
	}
	return fmt.Sprintf("**Result:** %v", outcome.Value)
}

// buildToolMap assembles the flat name->Tool map the sandbox dispatches
// calls against, wrapping each tool from the registry with the hook
// pipeline when one is configured. Direct sandbox calls bypass
// hook.Registry.Execute, the registry-level path that runs hooks around
// ToolRegistry.ExecuteTool, so this is the sandbox's sole hook entry point.
func (s *CodeStrategy) buildToolMap() map[string]tools.Tool {
	if s.Tools == nil {
		return nil
	}
	infos := s.Tools.ListToolsWithFilter(true)
	out := make(map[string]tools.Tool, len(infos))
	for _, info := range infos {
		t, err := s.Tools.GetTool(info.Name)
		if err != nil {
			continue
		}
		out[info.Name] = hook.Wrap(s.Hooks, t)
	}
	return out
}

func (s *CodeStrategy) toolDefinitions() []llms.ToolDefinition {
	if s.Tools == nil {
		return nil
	}
	infos := s.Tools.ListToolsWithFilter(true)
	defs := make([]llms.ToolDefinition, 0, len(infos))
	for _, info := range infos {
		defs = append(defs, llms.ConvertToolInfoToDefinition(info))
	}
	return defs
}

func (s *CodeStrategy) systemPrompt() string {
	var b strings.Builder
	b.WriteString("You solve tasks by writing Go code in fenced ```go blocks.\n")
	b.WriteString("Call tools as ordinary function calls using their listed parameter order.\n")
	b.WriteString("When you have the answer, call final_answer(value) to finish.\n")
	b.WriteString("Run independent tool calls concurrently with multi_tool_use.parallel(map[string]interface{}{\"tool_uses\": []interface{}{map[string]interface{}{\"recipient_name\": \"tool\", \"parameters\": map[string]interface{}{...}}, ...}}).\n")

	if s.Tools != nil {
		infos := s.Tools.ListToolsWithFilter(true)
		if len(infos) > 0 {
			b.WriteString("\nAvailable tools:\n")
			for _, info := range infos {
				fmt.Fprintf(&b, "- %s(%s): %s\n", info.Name, paramList(info.Parameters), info.Description)
			}
		}
	}

	if s.SystemPromptPreamble != "" {
		b.WriteString("\n")
		b.WriteString(s.SystemPromptPreamble)
	}

	return b.String()
}

func paramList(params []tools.ToolParameter) string {
	parts := make([]string, 0, len(params))
	for _, p := range params {
		parts = append(parts, fmt.Sprintf("%s %s", p.Name, p.Type))
	}
	return strings.Join(parts, ", ")
}

// maybeInjectReflection fires each trigger condition at most once per run
// (a metadata latch per trigger kind), rather than re-injecting a
// reflection prompt on every subsequent step while the condition remains
// true. A zero last_confidence is treated as "no confidence signal yet"
// rather than "confidence 0", since nothing distinguishes the two in the
// State's zero value; the confidence trigger only fires once a positive
// value under the threshold has actually been recorded.
func (s *CodeStrategy) maybeInjectReflection(state *agentstate.CodeAgentState) {
	triggers := []struct {
		key  string
		fire bool
	}{
		{reflectedOnErrorsKey, state.ErrorCount() >= 3},
		{reflectedOnScheduleKey, state.StepCount() > 0 && state.StepCount()%5 == 0},
		{reflectedOnConfidenceKey, state.LastConfidence() > 0 && state.LastConfidence() < 0.3},
	}

	for _, t := range triggers {
		if !t.fire {
			continue
		}
		if fired, _ := state.GetMetadata(t.key); fired == true {
			continue
		}
		state.History().Append(llms.Message{
			Role:    "user",
			Content: "Before continuing, reflect on your approach so far: what has gone wrong, and what should change?",
		})
		state.SetMetadata(t.key, true)
	}
}
