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

package hook

import (
	"context"

	"github.com/kpekel/agentrun/pkg/tools"
)

// wrappedTool applies a Registry's pre/post hooks around a single Tool's
// Execute, so callers that invoke tools directly (the Sandboxed Code
// Evaluator's call dispatch, not the ToolRegistry.ExecuteTool path) still
// go through the same hook pipeline.
type wrappedTool struct {
	tools.Tool
	registry *Registry
}

// Wrap returns t unchanged if registry is nil, otherwise a Tool whose
// Execute runs registry's pre-hook, the call (unless denied), and the
// post-hook, in that order.
func Wrap(registry *Registry, t tools.Tool) tools.Tool {
	if registry == nil {
		return t
	}
	return &wrappedTool{Tool: t, registry: registry}
}

func (w *wrappedTool) Execute(ctx context.Context, args map[string]interface{}) (tools.ToolResult, error) {
	name := w.Tool.GetName()

	pre, _, err := w.registry.RunPre(ctx, name, args)
	if err != nil {
		return tools.ToolResult{Success: false, Error: err.Error(), ToolName: name}, err
	}
	switch pre.Decision {
	case Deny:
		return tools.ToolResult{Success: false, Error: pre.Observation, ToolName: name}, nil
	case ModifyArgs:
		args = pre.Args
	}

	result, execErr := w.Tool.Execute(ctx, args)
	if execErr != nil {
		return result, execErr
	}

	return w.registry.RunPost(ctx, name, result)
}

// NeedsState forwards to the wrapped tool when it implements
// tools.StateAwareTool, so wrapping a state-aware tool doesn't hide that
// capability from the sandbox's type assertion.
func (w *wrappedTool) NeedsState() bool {
	if aware, ok := w.Tool.(tools.StateAwareTool); ok {
		return aware.NeedsState()
	}
	return false
}

var (
	_ tools.Tool           = (*wrappedTool)(nil)
	_ tools.StateAwareTool = (*wrappedTool)(nil)
)
