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

// Package llms holds the provider-agnostic message/tool-call types and the
// LLMProvider interface the rest of the runtime programs against, plus the
// concrete OpenAI and Anthropic adapters.
package llms

import "github.com/kpekel/agentrun/pkg/tools"

// Message is the universal format for multi-turn conversations with tool
// support, shared by every provider adapter.
type Message struct {
	Role       string     `json:"role"` // "user", "assistant", "system", "tool"
	Content    string     `json:"content,omitempty"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"`
	Name       string     `json:"name,omitempty"`
}

// ToolDefinition is a tool/function advertised to the LLM.
type ToolDefinition struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	Parameters  map[string]interface{} `json:"parameters"` // JSON Schema
}

// ToolCall is a tool invocation requested by the LLM.
type ToolCall struct {
	ID        string                 `json:"id"`
	Name      string                 `json:"name"`
	Arguments map[string]interface{} `json:"arguments"`
	RawArgs   string                 `json:"raw_args"`
}

// StreamChunk is one chunk of a streaming LLM response.
type StreamChunk struct {
	Type     string // "text", "tool_call", "done", "error"
	Text     string
	ToolCall *ToolCall
	Tokens   int
	Error    error
}

// StructuredOutputConfig configures provider-side structured output.
type StructuredOutputConfig struct {
	Format  string      `json:"format,omitempty" yaml:"format,omitempty"`
	Schema  interface{} `json:"schema,omitempty" yaml:"schema,omitempty"`
	Enum    []string    `json:"enum,omitempty" yaml:"enum,omitempty"`
	Prefill string      `json:"prefill,omitempty" yaml:"prefill,omitempty"`
}

// ConvertToolInfoToDefinition converts a tools.ToolInfo (the runtime's
// own Tool Protocol descriptor, see pkg/tools) into the JSON-Schema-shaped
// ToolDefinition providers expect on the wire.
func ConvertToolInfoToDefinition(info tools.ToolInfo) ToolDefinition {
	properties := make(map[string]interface{}, len(info.Parameters))
	required := make([]string, 0, len(info.Parameters))

	for _, p := range info.Parameters {
		prop := map[string]interface{}{
			"type":        p.Type,
			"description": p.Description,
		}
		if len(p.Enum) > 0 {
			prop["enum"] = p.Enum
		}
		if len(p.Items) > 0 {
			prop["items"] = p.Items
		}
		properties[p.Name] = prop

		if p.Required {
			required = append(required, p.Name)
		}
	}

	return ToolDefinition{
		Name:        info.Name,
		Description: info.Description,
		Parameters: map[string]interface{}{
			"type":       "object",
			"properties": properties,
			"required":   required,
		},
	}
}
