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

// Package hook wraps tool invocations with pre- and post-hooks, matched by
// glob on tool name.
package hook

import (
	"context"
	"path"

	"github.com/kpekel/agentrun/pkg/tools"
)

// Decision is a pre-hook's verdict on whether (and how) a tool call
// proceeds.
type Decision int

const (
	// Allow proceeds with the original arguments.
	Allow Decision = iota
	// Deny skips invocation; the hook must set Observation.
	Deny
	// ModifyArgs proceeds with Args in place of the original arguments.
	ModifyArgs
)

// PreResult is the outcome of a pre-hook.
type PreResult struct {
	Decision    Decision
	Args        map[string]interface{} // used when Decision == ModifyArgs
	Observation string                  // used when Decision == Deny
}

// PreHook inspects (and may rewrite or block) a tool call before it runs.
type PreHook interface {
	Pattern() string
	Pre(ctx context.Context, toolName string, args map[string]interface{}) (PreResult, error)
}

// PostHook may rewrite a tool's result after it runs, e.g. for redaction.
type PostHook interface {
	Pattern() string
	Post(ctx context.Context, toolName string, result tools.ToolResult) (tools.ToolResult, error)
}

// Registry holds ordered pre- and post-hooks, matched by glob pattern
// against the tool name; first match wins within each list.
type Registry struct {
	pre  []PreHook
	post []PostHook
}

func NewRegistry() *Registry {
	return &Registry{}
}

func (r *Registry) AddPre(h PreHook) *Registry {
	r.pre = append(r.pre, h)
	return r
}

func (r *Registry) AddPost(h PostHook) *Registry {
	r.post = append(r.post, h)
	return r
}

func matches(pattern, name string) bool {
	ok, err := path.Match(pattern, name)
	return err == nil && ok
}

// RunPre runs the first matching pre-hook, if any. absence of a match is
// reported via matched=false and an implicit Allow.
func (r *Registry) RunPre(ctx context.Context, toolName string, args map[string]interface{}) (result PreResult, matched bool, err error) {
	for _, h := range r.pre {
		if !matches(h.Pattern(), toolName) {
			continue
		}
		result, err = h.Pre(ctx, toolName, args)
		return result, true, err
	}
	return PreResult{Decision: Allow}, false, nil
}

// RunPost runs the first matching post-hook, if any, returning the
// (possibly rewritten) result.
func (r *Registry) RunPost(ctx context.Context, toolName string, result tools.ToolResult) (tools.ToolResult, error) {
	for _, h := range r.post {
		if !matches(h.Pattern(), toolName) {
			continue
		}
		return h.Post(ctx, toolName, result)
	}
	return result, nil
}

// Execute runs a tool through the hook pipeline: pre-hook decision, the
// underlying call (unless denied), then the post-hook.
func (r *Registry) Execute(ctx context.Context, registry *tools.ToolRegistry, toolName string, args map[string]interface{}) (tools.ToolResult, error) {
	pre, _, err := r.RunPre(ctx, toolName, args)
	if err != nil {
		return tools.ToolResult{Success: false, Error: err.Error(), ToolName: toolName}, err
	}

	switch pre.Decision {
	case Deny:
		return tools.ToolResult{
			Success:  false,
			Error:    pre.Observation,
			ToolName: toolName,
		}, nil
	case ModifyArgs:
		args = pre.Args
	}

	result, execErr := registry.ExecuteTool(ctx, toolName, args)
	if execErr != nil {
		return result, execErr
	}

	return r.RunPost(ctx, toolName, result)
}
