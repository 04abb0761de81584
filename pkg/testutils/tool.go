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

package testutils

import (
	"context"
	"time"

	"github.com/kpekel/agentrun/pkg/tools"
)

// FakeTool implements tools.Tool with caller-supplied behavior, mirroring
// the Execute-func/delay/error configuration shape FakeLLMProvider uses.
type FakeTool struct {
	Name        string
	Description string
	Params      []tools.ToolParameter

	ExecuteFunc func(ctx context.Context, args map[string]interface{}) (tools.ToolResult, error)
	Delay       time.Duration
	Err         error

	calls int
}

// NewFakeTool returns a FakeTool that always succeeds with output.
func NewFakeTool(name string, output interface{}) *FakeTool {
	return &FakeTool{
		Name: name,
		ExecuteFunc: func(ctx context.Context, args map[string]interface{}) (tools.ToolResult, error) {
			return tools.ToolResult{Success: true, Output: output, ToolName: name}, nil
		},
	}
}

func (f *FakeTool) GetInfo() tools.ToolInfo {
	return tools.ToolInfo{Name: f.Name, Description: f.Description, Parameters: f.Params}
}

func (f *FakeTool) GetName() string        { return f.Name }
func (f *FakeTool) GetDescription() string { return f.Description }

func (f *FakeTool) Execute(ctx context.Context, args map[string]interface{}) (tools.ToolResult, error) {
	f.calls++

	if f.Delay > 0 {
		select {
		case <-time.After(f.Delay):
		case <-ctx.Done():
			return tools.ToolResult{}, ctx.Err()
		}
	}

	if f.Err != nil {
		return tools.ToolResult{}, f.Err
	}

	if f.ExecuteFunc != nil {
		return f.ExecuteFunc(ctx, args)
	}

	return tools.ToolResult{Success: true, ToolName: f.Name}, nil
}

// Calls reports how many times Execute has been invoked.
func (f *FakeTool) Calls() int { return f.calls }

var _ tools.Tool = (*FakeTool)(nil)
