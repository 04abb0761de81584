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

package hook_test

import (
	"context"
	"testing"

	"github.com/kpekel/agentrun/pkg/hook"
	"github.com/kpekel/agentrun/pkg/testutils"
	"github.com/kpekel/agentrun/pkg/tools"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// modifyArgsHook rewrites any matching call's args to a fixed replacement,
// exercising the ModifyArgs pre-hook decision.
type modifyArgsHook struct {
	pattern string
	args    map[string]interface{}
}

func (h *modifyArgsHook) Pattern() string { return h.pattern }
func (h *modifyArgsHook) Pre(ctx context.Context, toolName string, args map[string]interface{}) (hook.PreResult, error) {
	return hook.PreResult{Decision: hook.ModifyArgs, Args: h.args}, nil
}

// redactingPostHook blanks a ToolResult's Content, exercising the post-hook
// result-rewrite path.
type redactingPostHook struct{ pattern string }

func (h *redactingPostHook) Pattern() string { return h.pattern }
func (h *redactingPostHook) Post(ctx context.Context, toolName string, result tools.ToolResult) (tools.ToolResult, error) {
	result.Content = "[redacted]"
	return result, nil
}

func TestRegistry_RunPre_NoMatchAllowsByDefault(t *testing.T) {
	r := hook.NewRegistry()
	result, matched, err := r.RunPre(context.Background(), "anything", nil)
	require.NoError(t, err)
	assert.False(t, matched)
	assert.Equal(t, hook.Allow, result.Decision)
}

func TestRegistry_PreHookFirstMatchWins(t *testing.T) {
	r := hook.NewRegistry()
	r.AddPre(hook.NewAutoDenyHook("shell_*", "blocked by policy"))
	r.AddPre(hook.NewAutoAcceptHook("shell_*"))

	result, matched, err := r.RunPre(context.Background(), "shell_exec", nil)
	require.NoError(t, err)
	assert.True(t, matched)
	assert.Equal(t, hook.Deny, result.Decision)
	assert.Equal(t, "blocked by policy", result.Observation)
}

func TestRegistry_Execute_Deny(t *testing.T) {
	fake := testutils.NewFakeTool("danger", "should not run")
	registry := tools.NewToolRegistry()
	source, err := tools.NewLocalToolSourceWithTools("local", fake)
	require.NoError(t, err)
	require.NoError(t, registry.RegisterSource(source))

	hooks := hook.NewRegistry()
	hooks.AddPre(hook.NewAutoDenyHook("danger", "disabled"))

	result, err := hooks.Execute(context.Background(), registry, "danger", nil)
	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Equal(t, "disabled", result.Error)
	assert.Equal(t, 0, fake.Calls())
}

func TestRegistry_Execute_ModifyArgs(t *testing.T) {
	var seenArgs map[string]interface{}
	fake := &testutils.FakeTool{
		Name: "echo",
		ExecuteFunc: func(ctx context.Context, args map[string]interface{}) (tools.ToolResult, error) {
			seenArgs = args
			return tools.ToolResult{Success: true, ToolName: "echo"}, nil
		},
	}
	registry := tools.NewToolRegistry()
	source, err := tools.NewLocalToolSourceWithTools("local", fake)
	require.NoError(t, err)
	require.NoError(t, registry.RegisterSource(source))

	hooks := hook.NewRegistry()
	hooks.AddPre(&modifyArgsHook{pattern: "echo", args: map[string]interface{}{"s": "rewritten"}})

	_, err = hooks.Execute(context.Background(), registry, "echo", map[string]interface{}{"s": "original"})
	require.NoError(t, err)
	assert.Equal(t, "rewritten", seenArgs["s"])
}

func TestRegistry_Execute_PostHookRewritesResult(t *testing.T) {
	fake := testutils.NewFakeTool("fetch", nil)
	fake.ExecuteFunc = func(ctx context.Context, args map[string]interface{}) (tools.ToolResult, error) {
		return tools.ToolResult{Success: true, Content: "secret value", ToolName: "fetch"}, nil
	}
	registry := tools.NewToolRegistry()
	source, err := tools.NewLocalToolSourceWithTools("local", fake)
	require.NoError(t, err)
	require.NoError(t, registry.RegisterSource(source))

	hooks := hook.NewRegistry()
	hooks.AddPost(&redactingPostHook{pattern: "fetch"})

	result, err := hooks.Execute(context.Background(), registry, "fetch", nil)
	require.NoError(t, err)
	assert.Equal(t, "[redacted]", result.Content)
}

func TestWrap_NilRegistryReturnsToolUnchanged(t *testing.T) {
	fake := testutils.NewFakeTool("noop", "ok")
	wrapped := hook.Wrap(nil, fake)
	assert.Same(t, tools.Tool(fake), wrapped)
}

func TestWrap_DenyShortCircuitsUnderlyingTool(t *testing.T) {
	fake := testutils.NewFakeTool("danger", "should not run")
	hooks := hook.NewRegistry()
	hooks.AddPre(hook.NewAutoDenyHook("danger", "nope"))

	wrapped := hook.Wrap(hooks, fake)
	result, err := wrapped.Execute(context.Background(), nil)
	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Equal(t, "nope", result.Error)
	assert.Equal(t, 0, fake.Calls())
}

func TestDangerousCommandHook_DeniesShellMetacharacters(t *testing.T) {
	h := hook.NewDangerousCommandHook("run_command", "sudo")

	result, err := h.Pre(context.Background(), "run_command", map[string]interface{}{"cmd": "ls && rm -rf /"})
	require.NoError(t, err)
	assert.Equal(t, hook.Deny, result.Decision)

	result, err = h.Pre(context.Background(), "run_command", map[string]interface{}{"cmd": "sudo reboot"})
	require.NoError(t, err)
	assert.Equal(t, hook.Deny, result.Decision)

	result, err = h.Pre(context.Background(), "run_command", map[string]interface{}{"cmd": "ls -la"})
	require.NoError(t, err)
	assert.Equal(t, hook.Allow, result.Decision)
}
