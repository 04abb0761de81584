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

package tools_test

import (
	"context"
	"testing"

	"github.com/kpekel/agentrun/pkg/tools"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubTool is a minimal tools.Tool for registry-level tests that don't
// need the configurable behavior pkg/testutils.FakeTool offers (avoiding
// an import cycle risk is not the reason — pkg/tools is the lower-level
// package testutils itself depends on).
type stubTool struct {
	name   string
	output interface{}
}

func (s *stubTool) GetInfo() tools.ToolInfo { return tools.ToolInfo{Name: s.name} }
func (s *stubTool) GetName() string         { return s.name }
func (s *stubTool) GetDescription() string  { return "stub" }
func (s *stubTool) Execute(ctx context.Context, args map[string]interface{}) (tools.ToolResult, error) {
	return tools.ToolResult{Success: true, Output: s.output, ToolName: s.name}, nil
}

func TestToolRegistry_FirstRegistrationWinsOnNameCollision(t *testing.T) {
	registry := tools.NewToolRegistry()

	first, err := tools.NewLocalToolSourceWithTools("source-a", &stubTool{name: "add", output: "from-a"})
	require.NoError(t, err)
	require.NoError(t, registry.RegisterSource(first))

	second, err := tools.NewLocalToolSourceWithTools("source-b", &stubTool{name: "add", output: "from-b"})
	require.NoError(t, err)
	require.NoError(t, registry.RegisterSource(second))

	result, err := registry.ExecuteTool(context.Background(), "add", nil)
	require.NoError(t, err)
	assert.Equal(t, "from-a", result.Output)

	sourceName, err := registry.GetToolSource("add")
	require.NoError(t, err)
	assert.Equal(t, "source-a", sourceName)
}

func TestToolRegistry_ExecuteUnknownToolFails(t *testing.T) {
	registry := tools.NewToolRegistry()
	_, err := registry.ExecuteTool(context.Background(), "does_not_exist", nil)
	assert.Error(t, err)
}

func TestFinalAnswerTool_EchoesArgument(t *testing.T) {
	tool := tools.NewFinalAnswerTool()
	result, err := tool.Execute(context.Background(), map[string]interface{}{"answer": 42})
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, 42, result.Output)
}

func TestFinalAnswerTool_MissingArgDefaultsEmpty(t *testing.T) {
	tool := tools.NewFinalAnswerTool()
	result, err := tool.Execute(context.Background(), map[string]interface{}{})
	require.NoError(t, err)
	assert.Equal(t, "", result.Output)
}

func TestLocalToolSource_RemoveTool(t *testing.T) {
	source, err := tools.NewLocalToolSourceWithTools("local", &stubTool{name: "ping", output: "pong"})
	require.NoError(t, err)

	require.NoError(t, source.RemoveTool("ping"))
	_, ok := source.GetTool("ping")
	assert.False(t, ok)

	err = source.RemoveTool("ping")
	assert.Error(t, err)
}
