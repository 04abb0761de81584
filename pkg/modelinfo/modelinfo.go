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

// Package modelinfo holds the static per-model context-window table the
// History compactor consults. It is constructed explicitly and passed down
// rather than kept as a package-level mutable cache, so callers can supply
// their own table (e.g. loaded from config) without a process-wide
// singleton.
package modelinfo

// DefaultMaxInputTokens and DefaultMaxOutputTokens are returned for any
// model name absent from a Table.
const (
	DefaultMaxInputTokens  = 128000
	DefaultMaxOutputTokens = 4096
)

// ContextWindow describes a model's input/output token limits.
type ContextWindow struct {
	MaxInputTokens  int
	MaxOutputTokens int
}

// Table is a model name to ContextWindow lookup. The zero value is an empty
// table; Lookup always returns usable defaults regardless.
type Table struct {
	windows map[string]ContextWindow
}

// NewTable constructs a Table seeded with the given entries. Passing nil
// produces an empty table that still answers every Lookup with defaults.
func NewTable(seed map[string]ContextWindow) *Table {
	t := &Table{windows: make(map[string]ContextWindow, len(seed))}
	for k, v := range seed {
		t.windows[k] = v
	}
	return t
}

// Set registers or overrides the window for a model name.
func (t *Table) Set(model string, window ContextWindow) {
	if t.windows == nil {
		t.windows = make(map[string]ContextWindow)
	}
	t.windows[model] = window
}

// Lookup returns the context window for model, or the package defaults if
// the model is unknown.
func (t *Table) Lookup(model string) ContextWindow {
	if t != nil {
		if w, ok := t.windows[model]; ok {
			return w
		}
	}
	return ContextWindow{
		MaxInputTokens:  DefaultMaxInputTokens,
		MaxOutputTokens: DefaultMaxOutputTokens,
	}
}

// DefaultTable returns a Table seeded with context windows for the models
// the bundled OpenAI and Anthropic provider adapters commonly target. It is
// a reasonable starting point for a caller that hasn't loaded its own
// model-price configuration (per spec, model-price tables are injected
// data, not something this module fetches).
func DefaultTable() *Table {
	return NewTable(map[string]ContextWindow{
		"gpt-4o":                  {MaxInputTokens: 128000, MaxOutputTokens: 16384},
		"gpt-4o-mini":             {MaxInputTokens: 128000, MaxOutputTokens: 16384},
		"gpt-4-turbo":             {MaxInputTokens: 128000, MaxOutputTokens: 4096},
		"gpt-4":                  {MaxInputTokens: 8192, MaxOutputTokens: 4096},
		"gpt-3.5-turbo":           {MaxInputTokens: 16385, MaxOutputTokens: 4096},
		"o1":                      {MaxInputTokens: 200000, MaxOutputTokens: 100000},
		"o1-mini":                 {MaxInputTokens: 128000, MaxOutputTokens: 65536},
		"claude-3-5-sonnet-20241022": {MaxInputTokens: 200000, MaxOutputTokens: 8192},
		"claude-3-5-haiku-20241022":  {MaxInputTokens: 200000, MaxOutputTokens: 8192},
		"claude-3-opus-20240229":     {MaxInputTokens: 200000, MaxOutputTokens: 4096},
		"claude-opus-4-20250514":     {MaxInputTokens: 200000, MaxOutputTokens: 32000},
	})
}
