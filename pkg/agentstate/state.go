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

// Package agentstate holds the agent's live execution context: the mutable
// State threaded through every step, and its code-execution extension.
package agentstate

import (
	"encoding/json"
	"sync"

	"github.com/kpekel/agentrun/pkg/history"
	"github.com/kpekel/agentrun/pkg/llms"
)

// Input is a task descriptor: what the agent was asked to do and how.
type Input struct {
	Query        string
	QueryType    string
	Route        string
	SystemPrompt string
	Tools        []string // optional override of the tool set visible this task
	Metadata     map[string]interface{}
}

// Agent is the minimal back-reference surface State needs. It is satisfied
// by *driver.Driver without agentstate importing pkg/driver (which would
// cycle back through agentstate for State itself).
type Agent interface {
	Name() string
}

// State is the agent's mutable execution context, threaded through every
// step of a run. Concurrent tool invocations (via the parallel helper) may
// read and write it from multiple goroutines, so every accessor goes
// through a mutex rather than relying on the caller to serialize access.
type State struct {
	mu sync.Mutex

	history *history.History

	stepCount  int
	errorCount int

	task  string
	input *Input

	isFinalAnswer    bool
	finalAnswerValue interface{}
	lastConfidence   float64

	metadata map[string]interface{}

	// agent is a weak/opaque back-reference, never serialized, consulted
	// only by tools that declare NeedsState.
	agent Agent
}

// New creates a State for a fresh run.
func New(task string, input *Input) *State {
	return &State{
		history:  history.New(),
		task:     task,
		input:    input,
		metadata: make(map[string]interface{}),
	}
}

func (s *State) History() *history.History {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.history
}

// SetHistory replaces the history log wholesale, e.g. with the compacted
// History Compact returns. Safe to call while other goroutines hold a
// reference to the prior *history.History; History itself is never
// mutated by this swap, only the State's pointer to it.
func (s *State) SetHistory(h *history.History) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history = h
}

func (s *State) StepCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stepCount
}

func (s *State) IncrementStep() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stepCount++
}

func (s *State) ErrorCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.errorCount
}

func (s *State) IncrementErrors() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.errorCount++
}

func (s *State) Task() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.task
}

func (s *State) SetTask(task string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.task = task
}

func (s *State) Input() *Input {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.input
}

func (s *State) SetInput(input *Input) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.input = input
}

// IsFinalAnswer reports whether the run has reached a terminal answer.
func (s *State) IsFinalAnswer() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.isFinalAnswer
}

// FinalAnswerValue returns the terminal value, if any.
func (s *State) FinalAnswerValue() interface{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.finalAnswerValue
}

// SetFinalAnswer marks the run done with the given value. The
// is_final_answer ⇒ final_answer_value != nil invariant is enforced at the
// call site (the Step Executor never calls this with a nil value).
func (s *State) SetFinalAnswer(value interface{}) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.isFinalAnswer = true
	s.finalAnswerValue = value
}

func (s *State) LastConfidence() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastConfidence
}

func (s *State) SetLastConfidence(confidence float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastConfidence = confidence
}

// Metadata returns the live metadata map. Callers holding it across other
// State calls risk a self-deadlock; prefer GetMetadata/SetMetadata for
// single keys.
func (s *State) Metadata() map[string]interface{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.metadata
}

func (s *State) GetMetadata(key string) (interface{}, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.metadata[key]
	return v, ok
}

func (s *State) SetMetadata(key string, value interface{}) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.metadata[key] = value
}

// Agent returns the weak back-reference to the owning agent, or nil.
func (s *State) Agent() Agent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.agent
}

func (s *State) SetAgent(agent Agent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.agent = agent
}

// Reset clears counters, history, and the final-answer flag for reuse
// across tasks, preserving an opaque "learned_patterns" list if the caller
// stashed one in metadata.
func (s *State) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	learned := s.metadata["learned_patterns"]

	s.history = history.New()
	s.stepCount = 0
	s.errorCount = 0
	s.isFinalAnswer = false
	s.finalAnswerValue = nil
	s.lastConfidence = 0
	s.metadata = make(map[string]interface{})

	if learned != nil {
		s.metadata["learned_patterns"] = learned
	}
}

// stateDoc mirrors the JSON-serializable view of State. The back-reference
// to Agent is intentionally absent.
type stateDoc struct {
	StepCount        int                    `json:"step_count"`
	ErrorCount       int                    `json:"error_count"`
	Task             string                 `json:"task"`
	IsFinalAnswer    bool                   `json:"is_final_answer"`
	FinalAnswerValue interface{}            `json:"final_answer_value"`
	LastConfidence   float64                `json:"last_confidence"`
	Metadata         map[string]interface{} `json:"metadata"`
	History          []llms.Message         `json:"history,omitempty"`
}

// MarshalJSON implements the to_dict side of the persisted-state layout.
func (s *State) MarshalJSON() ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc := stateDoc{
		StepCount:        s.stepCount,
		ErrorCount:       s.errorCount,
		Task:             s.task,
		IsFinalAnswer:    s.isFinalAnswer,
		FinalAnswerValue: s.finalAnswerValue,
		LastConfidence:   s.lastConfidence,
		Metadata:         s.metadata,
	}
	if s.history != nil {
		doc.History = s.history.ToList()
	}
	return json.Marshal(doc)
}

// UnmarshalJSON implements the from_dict side of the persisted-state
// layout, including the history log; a document without a "history" key
// restores an empty history.
func (s *State) UnmarshalJSON(data []byte) error {
	var doc stateDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.stepCount = doc.StepCount
	s.errorCount = doc.ErrorCount
	s.task = doc.Task
	s.isFinalAnswer = doc.IsFinalAnswer
	s.finalAnswerValue = doc.FinalAnswerValue
	s.lastConfidence = doc.LastConfidence
	s.metadata = doc.Metadata
	if s.metadata == nil {
		s.metadata = make(map[string]interface{})
	}
	s.history = history.FromList(doc.History)
	return nil
}
