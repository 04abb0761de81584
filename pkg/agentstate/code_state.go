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

package agentstate

import (
	"sort"
	"sync"
)

// CodeBlockResult captures the outcome of evaluating one extracted code
// block within a single assistant turn.
type CodeBlockResult struct {
	Index        int
	Source       string
	PrintOutput  string
	ReturnValue  interface{}
	IsFinalAnswer bool
	Err          error
}

// CodeAgentState extends State with per-code-block results keyed by the
// block's position within the assistant message that produced it. The code
// strategy (§4.5) appends one entry per block it evaluates so later blocks
// in the same turn, and later steps, can inspect what earlier ones
// produced.
type CodeAgentState struct {
	*State

	mu      sync.Mutex
	results map[int]CodeBlockResult
}

// NewCodeAgentState wraps a fresh State for the code execution route.
func NewCodeAgentState(task string, input *Input) *CodeAgentState {
	return &CodeAgentState{
		State:   New(task, input),
		results: make(map[int]CodeBlockResult),
	}
}

// RecordBlockResult stores the result of evaluating the block at index i,
// overwriting any prior result for the same index (re-running a step
// replaces, rather than accumulates, its own block results).
func (s *CodeAgentState) RecordBlockResult(result CodeBlockResult) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.results[result.Index] = result
}

// BlockResult returns the recorded result for block index i, if any.
func (s *CodeAgentState) BlockResult(i int) (CodeBlockResult, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.results[i]
	return r, ok
}

// BlockResults returns every recorded result, in ascending index order.
func (s *CodeAgentState) BlockResults() []CodeBlockResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]CodeBlockResult, 0, len(s.results))
	for i := 0; i < len(s.results); i++ {
		if r, ok := s.results[i]; ok {
			out = append(out, r)
		}
	}
	// Any indices that weren't contiguous (a block skipped due to an
	// earlier final answer, say) are appended, then the whole slice is
	// sorted so they land in index order too.
	if len(out) != len(s.results) {
		seen := make(map[int]bool, len(out))
		for _, r := range out {
			seen[r.Index] = true
		}
		for idx, r := range s.results {
			if !seen[idx] {
				out = append(out, r)
			}
		}
		sort.Slice(out, func(a, b int) bool { return out[a].Index < out[b].Index })
	}
	return out
}

// ResetBlocks clears per-block results, used when CodeAgentState.Reset is
// called for a new task.
func (s *CodeAgentState) ResetBlocks() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.results = make(map[int]CodeBlockResult)
}

// Reset clears both the embedded State and the per-block results.
func (s *CodeAgentState) Reset() {
	s.State.Reset()
	s.ResetBlocks()
}
