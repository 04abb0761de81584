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

// Package history holds the ordered message log the Step Executor reads
// from and the Agent Driver appends to, plus the token-budget compactor
// that keeps it within a model's context window.
package history

import (
	"sync"

	"github.com/kpekel/agentrun/pkg/llms"
	"github.com/kpekel/agentrun/pkg/modelinfo"
	"github.com/kpekel/agentrun/pkg/utils"
)

// History is an ordered, role-tagged message log. Messages may be read by
// the step executor while a background compaction runs, so access is
// guarded by a RWMutex rather than left to the caller.
type History struct {
	mu       sync.RWMutex
	messages []llms.Message
}

// New returns an empty History.
func New() *History {
	return &History{}
}

// FromList rebuilds a History from a plain slice, e.g. after deserializing
// a checkpoint. The slice is copied; the caller's slice is not aliased.
func FromList(messages []llms.Message) *History {
	h := &History{messages: make([]llms.Message, len(messages))}
	copy(h.messages, messages)
	return h
}

// Append adds a message to the end of the log.
func (h *History) Append(msg llms.Message) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.messages = append(h.messages, msg)
}

// Extend appends every message in msgs, in order.
func (h *History) Extend(msgs []llms.Message) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.messages = append(h.messages, msgs...)
}

// Insert places msg at index i, shifting later messages back.
func (h *History) Insert(i int, msg llms.Message) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if i < 0 {
		i = 0
	}
	if i > len(h.messages) {
		i = len(h.messages)
	}
	h.messages = append(h.messages, llms.Message{})
	copy(h.messages[i+1:], h.messages[i:])
	h.messages[i] = msg
}

// Pop removes and returns the last message, or false if the log is empty.
func (h *History) Pop() (llms.Message, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.messages) == 0 {
		return llms.Message{}, false
	}
	last := h.messages[len(h.messages)-1]
	h.messages = h.messages[:len(h.messages)-1]
	return last, true
}

// Clear empties the log.
func (h *History) Clear() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.messages = nil
}

// Copy returns an independent History with the same messages.
func (h *History) Copy() *History {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return FromList(h.messages)
}

// Len returns the number of messages currently stored.
func (h *History) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.messages)
}

// At returns the message at index i.
func (h *History) At(i int) (llms.Message, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if i < 0 || i >= len(h.messages) {
		return llms.Message{}, false
	}
	return h.messages[i], true
}

// ToList returns a copy of the underlying messages, in order.
func (h *History) ToList() []llms.Message {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]llms.Message, len(h.messages))
	copy(out, h.messages)
	return out
}

// FilterByRole returns a new History containing only messages with the
// given role.
func (h *History) FilterByRole(role string) *History {
	h.mu.RLock()
	defer h.mu.RUnlock()
	var filtered []llms.Message
	for _, m := range h.messages {
		if m.Role == role {
			filtered = append(filtered, m)
		}
	}
	return FromList(filtered)
}

// GetRecent returns a new History holding the last n messages (or fewer,
// if the log is shorter).
func (h *History) GetRecent(n int) *History {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if n < 0 {
		n = 0
	}
	start := len(h.messages) - n
	if start < 0 {
		start = 0
	}
	return FromList(h.messages[start:])
}

// LastMessage returns the most recent message, or false if empty.
func (h *History) LastMessage() (llms.Message, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if len(h.messages) == 0 {
		return llms.Message{}, false
	}
	return h.messages[len(h.messages)-1], true
}

// LastOfRole returns the most recent message with the given role.
func (h *History) LastOfRole(role string) (llms.Message, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for i := len(h.messages) - 1; i >= 0; i-- {
		if h.messages[i].Role == role {
			return h.messages[i], true
		}
	}
	return llms.Message{}, false
}

// EstimateTokens sums per-message token estimates for model using
// tiktoken-go, falling back to the cl100k_base encoding for unknown models
// (see pkg/utils.TokenCounter).
func (h *History) EstimateTokens(model string) (int, error) {
	counter, err := utils.NewTokenCounter(model)
	if err != nil {
		return 0, err
	}
	h.mu.RLock()
	defer h.mu.RUnlock()

	total := 0
	for _, m := range h.messages {
		total += counter.CountMessages([]utils.Message{{Role: m.Role, Content: m.Content}})
	}
	return total, nil
}

// ShouldCompact reports whether estimated tokens exceed threshold (a
// fraction in (0,1]) of the model's max input tokens, per table.
func (h *History) ShouldCompact(model string, table *modelinfo.Table, threshold float64) (bool, error) {
	if threshold <= 0 || threshold > 1 {
		threshold = 0.85
	}
	tokens, err := h.EstimateTokens(model)
	if err != nil {
		return false, err
	}
	window := table.Lookup(model)
	return float64(tokens) > threshold*float64(window.MaxInputTokens), nil
}
