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
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kpekel/agentrun/pkg/llms"
)

func TestFakeLLMProvider_DefaultReply(t *testing.T) {
	llm := NewFakeLLMProvider("hello")
	text, _, tokens, err := llm.Generate(context.Background(), nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "hello", text)
	assert.Equal(t, 5, tokens)
	assert.Equal(t, 1, llm.Calls())
}

func TestFakeLLMProvider_ErrOverridesReply(t *testing.T) {
	llm := NewFakeLLMProvider("hello")
	llm.Err = errors.New("boom")
	_, _, _, err := llm.Generate(context.Background(), nil, nil)
	assert.EqualError(t, err, "boom")
}

func TestFakeLLMProvider_RespectsCancellationDuringDelay(t *testing.T) {
	llm := NewFakeLLMProvider("hello")
	llm.Delay = time.Hour
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, _, _, err := llm.Generate(ctx, nil, nil)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestFakeTool_DefaultsToSuccess(t *testing.T) {
	tool := NewFakeTool("echo", "ok")
	result, err := tool.Execute(context.Background(), nil)
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, "ok", result.Output)
	assert.Equal(t, 1, tool.Calls())
}

func TestFakeRemoteToolServer_DiscoverAndList(t *testing.T) {
	tool := NewFakeTool("add", 5.0)
	server := NewFakeRemoteToolServer("calc", tool)

	require.NoError(t, server.DiscoverTools(context.Background()))
	infos := server.ListTools()
	require.Len(t, infos, 1)
	assert.Equal(t, "add", infos[0].Name)

	got, ok := server.GetTool("add")
	require.True(t, ok)
	assert.Same(t, tool, got)

	require.NoError(t, server.Close())
	assert.True(t, server.ClosedCalled)
}

func TestFakeRemoteToolServer_DiscoverErrPropagates(t *testing.T) {
	server := NewFakeRemoteToolServer("calc")
	server.DiscoverErr = errors.New("connect refused")
	err := server.DiscoverTools(context.Background())
	assert.EqualError(t, err, "connect refused")
}

var _ llms.LLMProvider = (*FakeLLMProvider)(nil)
