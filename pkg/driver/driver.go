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

// Package driver holds the Agent Driver: the top-level loop that alternates
// history compaction and Step Executor calls until a final answer, a step
// budget, or cancellation ends the run.
package driver

import (
	"context"
	"fmt"
	"strings"

	"github.com/kpekel/agentrun/pkg/agenterrors"
	"github.com/kpekel/agentrun/pkg/agentstate"
	"github.com/kpekel/agentrun/pkg/history"
	"github.com/kpekel/agentrun/pkg/llms"
	"github.com/kpekel/agentrun/pkg/logger"
	"github.com/kpekel/agentrun/pkg/modelinfo"
	"github.com/kpekel/agentrun/pkg/response"
	"github.com/kpekel/agentrun/pkg/step"
)

const (
	DefaultMaxSteps            = 25
	DefaultCompactionThreshold = 0.85
	DefaultCompactionKeepLast  = 6
	continuationTruncateChars  = 500
)

// Driver runs an agent's step loop to completion. One Driver is shared
// across runs; a fresh *agentstate.CodeAgentState is typically constructed
// per run, though the same State may be reused to resume a prior run (per
// §4.6 Run resumption).
type Driver struct {
	LLM        llms.LLMProvider
	Strategies *step.StrategyRegistry
	Toolsets   []Toolset

	// ModelTable and CompactionThreshold/CompactionKeepLast configure the
	// compaction check run before every step. Leave ModelTable nil to
	// disable compaction entirely.
	ModelTable          *modelinfo.Table
	CompactionThreshold float64
	CompactionKeepLast  int

	// DefaultRoute selects the Strategy used when an Input doesn't name
	// one explicitly.
	DefaultRoute string

	name string
}

// New builds a Driver identified by name (consulted by agentstate.Agent,
// the weak back-reference tools declaring NeedsState can read).
func New(name string, llmProvider llms.LLMProvider, strategies *step.StrategyRegistry) *Driver {
	return &Driver{
		LLM:                 llmProvider,
		Strategies:          strategies,
		CompactionThreshold: DefaultCompactionThreshold,
		CompactionKeepLast:  DefaultCompactionKeepLast,
		DefaultRoute:        "code",
		name:                name,
	}
}

// Name implements agentstate.Agent.
func (d *Driver) Name() string { return d.name }

var _ agentstate.Agent = (*Driver)(nil)

// Run blocks until the run reaches a final answer, the step budget is
// exhausted, or ctx is cancelled, returning the finalized Response.
func (d *Driver) Run(ctx context.Context, task string, state *agentstate.CodeAgentState, maxSteps int) (*response.Response, error) {
	return d.run(ctx, task, state, maxSteps, nil)
}

// RunStreaming shares the same loop as Run, but emits one llms.StreamChunk
// per completed step on chunks instead of returning a single Response.
// chunks is closed when the run ends, on every exit path.
func (d *Driver) RunStreaming(ctx context.Context, task string, state *agentstate.CodeAgentState, maxSteps int, chunks chan<- llms.StreamChunk) error {
	_, err := d.run(ctx, task, state, maxSteps, chunks)
	return err
}

func (d *Driver) run(ctx context.Context, task string, state *agentstate.CodeAgentState, maxSteps int, chunks chan<- llms.StreamChunk) (*response.Response, error) {
	if state == nil {
		state = agentstate.NewCodeAgentState(task, &agentstate.Input{Query: task})
	} else if task != "" {
		state.SetTask(task)
		if input := state.Input(); input != nil {
			updated := *input
			updated.Query = task
			state.SetInput(&updated)
		} else {
			state.SetInput(&agentstate.Input{Query: task})
		}
	}
	state.SetAgent(d)

	if chunks != nil {
		defer close(chunks)
	}

	d.setupToolsets(ctx)
	defer d.closeToolsets()

	if maxSteps <= 0 {
		maxSteps = DefaultMaxSteps
	}

	for {
		if err := ctx.Err(); err != nil {
			cancelled := &agenterrors.Cancelled{Err: err}
			d.emitError(chunks, cancelled)
			return nil, cancelled
		}

		d.maybeCompact(ctx, state)

		route := d.DefaultRoute
		if input := state.Input(); input != nil && input.Route != "" {
			route = input.Route
		}
		strategy, err := d.Strategies.GetStrategy(route)
		if err != nil {
			d.emitError(chunks, err)
			return nil, err
		}

		result, err := strategy.Step(ctx, state)
		if err != nil {
			d.emitError(chunks, err)
			return nil, err
		}

		if chunks != nil {
			chunks <- llms.StreamChunk{Type: "text", Text: result.RawResponse, Tokens: intFromInfo(result.Info)}
		}

		if isDone(result, state) {
			return finalize(result, state), nil
		}

		d.updateState(state, result)

		if state.StepCount() >= maxSteps {
			err := &agenterrors.MaxStepsExceeded{MaxSteps: maxSteps}
			d.emitError(chunks, err)
			return nil, err
		}
	}
}

func (d *Driver) emitError(chunks chan<- llms.StreamChunk, err error) {
	if chunks != nil {
		chunks <- llms.StreamChunk{Type: "error", Error: err}
	}
}

// setupToolsets sets up every owned Toolset. A Toolset whose setup fails
// is logged and skipped — per ToolsetSetupError's contract it simply
// yields no tools, it doesn't fail the run. Toolsets already set up
// (including ones set up by a prior Run on a resumed State) are left
// alone: Setup is idempotent.
func (d *Driver) setupToolsets(ctx context.Context) {
	for _, ts := range d.Toolsets {
		if err := ts.Setup(ctx); err != nil {
			logger.GetLogger().Warn("toolset setup failed, continuing without it", "toolset", ts.Name(), "error", err)
		}
	}
}

// closeToolsets closes every owned Toolset even if some of their Setup
// calls failed, and even if an earlier Close in the list errors.
func (d *Driver) closeToolsets() {
	for _, ts := range d.Toolsets {
		if err := ts.Close(); err != nil {
			logger.GetLogger().Warn("toolset close failed", "toolset", ts.Name(), "error", err)
		}
	}
}

// maybeCompact runs History.Compact in place when the estimated token
// count crosses CompactionThreshold of the model's context window.
// Compaction failures are logged and otherwise swallowed: history is left
// as-is and the run continues (per agenterrors.CompactionError's own
// non-fatal contract).
func (d *Driver) maybeCompact(ctx context.Context, state *agentstate.CodeAgentState) {
	if d.ModelTable == nil {
		return
	}
	model := d.LLM.GetModelName()
	should, err := state.History().ShouldCompact(model, d.ModelTable, d.CompactionThreshold)
	if err != nil || !should {
		return
	}

	keepLast := d.CompactionKeepLast
	if keepLast <= 0 {
		keepLast = DefaultCompactionKeepLast
	}
	compacted, err := state.History().Compact(ctx, &history.LLMSummarizer{Provider: d.LLM}, keepLast)
	if err != nil {
		logger.GetLogger().Warn("history compaction failed, continuing with uncompacted history", "error", err)
		return
	}
	state.SetHistory(compacted)
}

// isDone implements the driver's is_done policy: a final answer on state,
// a terminated result, or a "FINAL_ANSWER:" marker in the raw text all end
// the run.
func isDone(result *response.Response, state *agentstate.CodeAgentState) bool {
	if state.IsFinalAnswer() {
		return true
	}
	if result.Terminated {
		return true
	}
	if strings.Contains(result.RawResponse, "FINAL_ANSWER:") {
		return true
	}
	return false
}

// finalize implements the driver's finalize policy: prefer the state's
// recorded final-answer value, then the result's own Answer, then its raw
// text.
func finalize(result *response.Response, state *agentstate.CodeAgentState) *response.Response {
	switch {
	case state.IsFinalAnswer():
		result.Answer = fmt.Sprintf("%v", state.FinalAnswerValue())
	case result.Answer == "":
		result.Answer = result.RawResponse
	}
	result.Terminated = true
	return result
}

// updateState appends a continuation marker to history and re-points the
// input query at it, so the next step's LLM call sees a concise pointer to
// what just happened rather than repeating the whole prior turn verbatim.
// It also increments step_count and records a confidence score when the
// strategy reported one.
func (d *Driver) updateState(state *agentstate.CodeAgentState, result *response.Response) {
	if score, ok := result.Info["confidence"].(float64); ok {
		state.SetLastConfidence(score)
	}

	continuation := fmt.Sprintf("Continue the task. Previous step result: %s", truncateForContinuation(result.RawResponse))
	state.History().Append(llms.Message{Role: "user", Content: continuation})

	if input := state.Input(); input != nil {
		updated := *input
		updated.Query = continuation
		state.SetInput(&updated)
	} else {
		state.SetInput(&agentstate.Input{Query: continuation})
	}

	state.IncrementStep()
}

func truncateForContinuation(s string) string {
	if len(s) <= continuationTruncateChars {
		return s
	}
	return s[:continuationTruncateChars] + " …[truncated]"
}

func intFromInfo(info map[string]interface{}) int {
	if v, ok := info["tokens"].(int); ok {
		return v
	}
	return 0
}
