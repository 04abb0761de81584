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

package llms

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// AnthropicConfig configures an AnthropicProvider.
type AnthropicConfig struct {
	APIKey      string
	Model       string
	BaseURL     string
	MaxTokens   int
	Temperature float64
}

// AnthropicProvider implements LLMProvider on top of anthropic-sdk-go.
type AnthropicProvider struct {
	client      anthropic.Client
	model       string
	maxTokens   int
	temperature float64
}

// NewAnthropicProvider builds a provider from explicit config.
func NewAnthropicProvider(cfg AnthropicConfig) (*AnthropicProvider, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("anthropic: API key is required")
	}
	if cfg.Model == "" {
		cfg.Model = "claude-3-5-sonnet-20241022"
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 4096
	}

	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	return &AnthropicProvider{
		client:      anthropic.NewClient(opts...),
		model:       cfg.Model,
		maxTokens:   cfg.MaxTokens,
		temperature: cfg.Temperature,
	}, nil
}

func (p *AnthropicProvider) GetModelName() string   { return p.model }
func (p *AnthropicProvider) GetMaxTokens() int       { return p.maxTokens }
func (p *AnthropicProvider) GetTemperature() float64 { return p.temperature }
func (p *AnthropicProvider) Close() error            { return nil }

// splitSystem pulls out every system message, wherever it appears, joined
// with blank lines, since Anthropic carries the system prompt as a
// dedicated request field rather than as a message in the list.
func splitSystem(messages []Message) (system string, rest []Message) {
	for _, m := range messages {
		if m.Role == "system" {
			if system != "" {
				system += "\n\n"
			}
			system += m.Content
			continue
		}
		rest = append(rest, m)
	}
	return system, rest
}

func (p *AnthropicProvider) buildParams(messages []Message, toolDefs []ToolDefinition) (anthropic.MessageNewParams, error) {
	system, rest := splitSystem(messages)

	msgParams, err := toAnthropicMessages(rest)
	if err != nil {
		return anthropic.MessageNewParams{}, err
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(p.model),
		Messages:  msgParams,
		MaxTokens: int64(p.maxTokens),
	}
	if system != "" {
		params.System = []anthropic.TextBlockParam{{Type: "text", Text: system}}
	}
	if len(toolDefs) > 0 {
		tools, err := toAnthropicTools(toolDefs)
		if err != nil {
			return anthropic.MessageNewParams{}, err
		}
		params.Tools = tools
	}
	return params, nil
}

func (p *AnthropicProvider) Generate(ctx context.Context, messages []Message, toolDefs []ToolDefinition) (string, []ToolCall, int, error) {
	params, err := p.buildParams(messages, toolDefs)
	if err != nil {
		return "", nil, 0, fmt.Errorf("anthropic: %w", err)
	}

	resp, err := p.client.Messages.New(ctx, params)
	if err != nil {
		return "", nil, 0, fmt.Errorf("anthropic: message create: %w", err)
	}

	var text string
	var calls []ToolCall
	for _, block := range resp.Content {
		switch variant := block.AsAny().(type) {
		case anthropic.TextBlock:
			text += variant.Text
		case anthropic.ToolUseBlock:
			calls = append(calls, ToolCall{
				ID:      variant.ID,
				Name:    variant.Name,
				RawArgs: string(variant.Input),
			})
			var args map[string]interface{}
			_ = json.Unmarshal(variant.Input, &args)
			calls[len(calls)-1].Arguments = args
		}
	}

	tokens := int(resp.Usage.InputTokens + resp.Usage.OutputTokens)
	return text, calls, tokens, nil
}

func (p *AnthropicProvider) GenerateStreaming(ctx context.Context, messages []Message, toolDefs []ToolDefinition) (<-chan StreamChunk, error) {
	params, err := p.buildParams(messages, toolDefs)
	if err != nil {
		return nil, fmt.Errorf("anthropic: %w", err)
	}

	stream := p.client.Messages.NewStreaming(ctx, params)

	out := make(chan StreamChunk)
	go func() {
		defer close(out)

		var currentToolID, currentToolName string
		var currentToolInput string
		inToolBlock := false
		totalTokens := 0

		flush := func() {
			if inToolBlock {
				var args map[string]interface{}
				_ = json.Unmarshal([]byte(currentToolInput), &args)
				out <- StreamChunk{Type: "tool_call", ToolCall: &ToolCall{
					ID: currentToolID, Name: currentToolName,
					Arguments: args, RawArgs: currentToolInput,
				}}
				inToolBlock = false
				currentToolInput = ""
			}
		}

		for stream.Next() {
			event := stream.Current()
			switch variant := event.AsAny().(type) {
			case anthropic.MessageStartEvent:
				totalTokens += int(variant.Message.Usage.InputTokens)
			case anthropic.ContentBlockStartEvent:
				if tu, ok := variant.ContentBlock.AsAny().(anthropic.ToolUseBlock); ok {
					flush()
					inToolBlock = true
					currentToolID = tu.ID
					currentToolName = tu.Name
				}
			case anthropic.ContentBlockDeltaEvent:
				switch delta := variant.Delta.AsAny().(type) {
				case anthropic.TextDelta:
					out <- StreamChunk{Type: "text", Text: delta.Text}
				case anthropic.InputJSONDelta:
					currentToolInput += delta.PartialJSON
				}
			case anthropic.ContentBlockStopEvent:
				flush()
			case anthropic.MessageDeltaEvent:
				totalTokens += int(variant.Usage.OutputTokens)
			}

			select {
			case <-ctx.Done():
				out <- StreamChunk{Type: "error", Error: ctx.Err()}
				return
			default:
			}
		}
		if err := stream.Err(); err != nil {
			out <- StreamChunk{Type: "error", Error: fmt.Errorf("anthropic: stream: %w", err)}
			return
		}
		out <- StreamChunk{Type: "done", Tokens: totalTokens}
	}()

	return out, nil
}

func toAnthropicMessages(messages []Message) ([]anthropic.MessageParam, error) {
	var result []anthropic.MessageParam

	for _, msg := range messages {
		var content []anthropic.ContentBlockParamUnion

		if msg.Content != "" {
			content = append(content, anthropic.NewTextBlock(msg.Content))
		}

		if msg.Role == "tool" {
			content = append(content, anthropic.NewToolResultBlock(msg.ToolCallID, msg.Content, false))
			result = append(result, anthropic.NewUserMessage(content...))
			continue
		}

		for _, tc := range msg.ToolCalls {
			var input map[string]interface{}
			if tc.RawArgs != "" {
				if err := json.Unmarshal([]byte(tc.RawArgs), &input); err != nil {
					return nil, fmt.Errorf("invalid tool call input for %q: %w", tc.Name, err)
				}
			} else {
				input = tc.Arguments
			}
			content = append(content, anthropic.NewToolUseBlock(tc.ID, input, tc.Name))
		}

		if msg.Role == "assistant" {
			result = append(result, anthropic.NewAssistantMessage(content...))
		} else {
			result = append(result, anthropic.NewUserMessage(content...))
		}
	}

	return result, nil
}

func toAnthropicTools(defs []ToolDefinition) ([]anthropic.ToolUnionParam, error) {
	var result []anthropic.ToolUnionParam
	for _, d := range defs {
		raw, err := json.Marshal(d.Parameters)
		if err != nil {
			return nil, fmt.Errorf("marshal schema for %q: %w", d.Name, err)
		}
		var schema anthropic.ToolInputSchemaParam
		if err := json.Unmarshal(raw, &schema); err != nil {
			return nil, fmt.Errorf("invalid tool schema for %q: %w", d.Name, err)
		}

		toolParam := anthropic.ToolUnionParamOfTool(schema, d.Name)
		if toolParam.OfTool == nil {
			return nil, fmt.Errorf("invalid tool schema for %q: missing tool definition", d.Name)
		}
		toolParam.OfTool.Description = anthropic.String(d.Description)
		result = append(result, toolParam)
	}
	return result, nil
}

var _ LLMProvider = (*AnthropicProvider)(nil)
