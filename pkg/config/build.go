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

package config

import (
	"fmt"

	"github.com/kpekel/agentrun/pkg/driver"
	"github.com/kpekel/agentrun/pkg/hook"
	"github.com/kpekel/agentrun/pkg/llms"
	"github.com/kpekel/agentrun/pkg/modelinfo"
	"github.com/kpekel/agentrun/pkg/sandbox"
	"github.com/kpekel/agentrun/pkg/step"
	"github.com/kpekel/agentrun/pkg/tools"
)

// Runtime bundles everything a Config builds: the wired Driver plus the
// pieces a caller (typically cmd/agentrun) may still want direct access
// to, e.g. to register additional local tools before the first Run.
type Runtime struct {
	Driver *driver.Driver
	Tools  *tools.ToolRegistry
	Hooks  *hook.Registry
}

// Build wires a validated Config into a ready-to-run Runtime: constructs
// the configured LLM provider, a sandbox.Evaluator sized per Sandbox,
// a hook.Registry populated per Hooks, a ToolRegistry with every "mcp"
// Toolset's tools discovered and registered, and a Driver with one "code"
// CodeStrategy wired to all of it.
//
// MCP toolsets are connected and registered eagerly here rather than
// lazily at the Driver's first step: ToolRegistry.RegisterSource already
// discovers tools synchronously, so deferring it would just move the same
// blocking call later for no benefit. Each MCP source is also wrapped as
// a driver.Toolset purely so Driver.Run still closes its connection on
// every exit path; the wrapped Toolset's own Setup is a harmless no-op
// redial since MCPToolSource.connect is idempotent.
func Build(cfg *Config) (*Runtime, error) {
	llmProvider, err := buildLLMProvider(cfg.LLM)
	if err != nil {
		return nil, err
	}

	toolRegistry := tools.NewToolRegistry()
	if err := registerBuiltinTools(cfg.BuiltinTools, toolRegistry); err != nil {
		return nil, err
	}

	toolsets, err := buildToolsets(cfg.Toolsets, toolRegistry)
	if err != nil {
		return nil, err
	}

	hooks := buildHooks(cfg.Hooks)

	evaluator := sandbox.NewEvaluator()
	evaluator.MaxOperations = cfg.Sandbox.MaxOperations
	evaluator.MaxWhileIterations = cfg.Sandbox.MaxWhileIterations
	evaluator.MaxOutputLen = cfg.Sandbox.MaxOutputLen

	strategies := step.NewStrategyRegistry()
	codeStrategy := step.NewCodeStrategy(llmProvider, toolRegistry, evaluator)
	codeStrategy.Hooks = hooks
	if err := strategies.RegisterStrategy("code", codeStrategy); err != nil {
		return nil, fmt.Errorf("config: registering code strategy: %w", err)
	}

	d := driver.New(cfg.Agent.Name, llmProvider, strategies)
	d.DefaultRoute = cfg.Agent.DefaultRoute
	d.CompactionThreshold = cfg.Compaction.Threshold
	d.CompactionKeepLast = cfg.Compaction.KeepLast
	d.ModelTable = modelinfo.DefaultTable()
	d.Toolsets = toolsets

	return &Runtime{Driver: d, Tools: toolRegistry, Hooks: hooks}, nil
}

func buildLLMProvider(cfg LLMConfig) (llms.LLMProvider, error) {
	switch cfg.Provider {
	case "openai":
		return llms.NewOpenAIProvider(llms.OpenAIConfig{
			APIKey:      cfg.APIKey,
			Model:       cfg.Model,
			BaseURL:     cfg.BaseURL,
			MaxTokens:   cfg.MaxTokens,
			Temperature: cfg.Temperature,
		})
	case "anthropic":
		return llms.NewAnthropicProvider(llms.AnthropicConfig{
			APIKey:      cfg.APIKey,
			Model:       cfg.Model,
			BaseURL:     cfg.BaseURL,
			MaxTokens:   cfg.MaxTokens,
			Temperature: cfg.Temperature,
		})
	default:
		return nil, fmt.Errorf("config: unsupported llm provider %q", cfg.Provider)
	}
}

func buildToolsets(configs []ToolsetConfig, registry *tools.ToolRegistry) ([]driver.Toolset, error) {
	var toolsets []driver.Toolset

	for _, ts := range configs {
		if ts.Type != "mcp" {
			continue
		}

		source := tools.NewMCPToolSource(tools.MCPServerConfig{
			Name:      ts.Name,
			Transport: ts.Transport,
			Command:   ts.Command,
			Args:      ts.Args,
			Env:       ts.Env,
			URL:       ts.URL,
			Internal:  ts.Internal,
		})

		if err := registry.RegisterSource(source); err != nil {
			return nil, fmt.Errorf("config: toolset %q: %w", ts.Name, err)
		}

		toolsets = append(toolsets, driver.NewSourceToolset(source))
	}

	return toolsets, nil
}

// registerBuiltinTools wires the runtime's locally implemented tools into
// registry. final_answer and think are always registered — a code-route
// agent has no way to end a step or externalize reasoning without them.
// Command, ReadFile, and WebRequest are opt-in: each grants the sandboxed
// code real host access, so they're only registered when BuiltinTools
// names a sub-config for them.
func registerBuiltinTools(cfg BuiltinToolsConfig, registry *tools.ToolRegistry) error {
	builtins := []tools.Tool{
		tools.NewFinalAnswerTool(),
		tools.NewThinkTool(),
	}

	if cfg.Command != nil {
		builtins = append(builtins, tools.NewCommandTool(&tools.CommandToolConfig{
			AllowedCommands:  cfg.Command.AllowedCommands,
			WorkingDirectory: cfg.Command.WorkingDirectory,
			MaxExecutionTime: cfg.Command.MaxExecutionTime,
			EnableSandboxing: cfg.Command.EnableSandboxing,
		}))
	}

	if cfg.ReadFile != nil {
		builtins = append(builtins, tools.NewReadFileTool(&tools.ReadFileConfig{
			MaxFileSize:      cfg.ReadFile.MaxFileSize,
			WorkingDirectory: cfg.ReadFile.WorkingDirectory,
		}))
	}

	if cfg.WebRequest != nil {
		builtins = append(builtins, tools.NewWebRequestTool(&tools.WebRequestConfig{
			Timeout:         cfg.WebRequest.Timeout,
			MaxRetries:      cfg.WebRequest.MaxRetries,
			MaxRequestSize:  cfg.WebRequest.MaxRequestSize,
			MaxResponseSize: cfg.WebRequest.MaxResponseSize,
			AllowedDomains:  cfg.WebRequest.AllowedDomains,
			DeniedDomains:   cfg.WebRequest.DeniedDomains,
			AllowedMethods:  cfg.WebRequest.AllowedMethods,
			AllowRedirects:  cfg.WebRequest.AllowRedirects,
			MaxRedirects:    cfg.WebRequest.MaxRedirects,
			UserAgent:       cfg.WebRequest.UserAgent,
		}))
	}

	source, err := tools.NewLocalToolSourceWithTools("builtin", builtins...)
	if err != nil {
		return fmt.Errorf("config: registering builtin tools: %w", err)
	}

	return registry.RegisterSource(source)
}

func buildHooks(cfg HooksConfig) *hook.Registry {
	registry := hook.NewRegistry()

	for _, rule := range cfg.AutoDeny {
		registry.AddPre(hook.NewAutoDenyHook(rule.Pattern, rule.Reason))
	}
	for _, rule := range cfg.DangerousCommands {
		registry.AddPre(hook.NewDangerousCommandHook(rule.Pattern, rule.ExtraTerms...))
	}
	for _, pattern := range cfg.Log {
		registry.AddPost(hook.NewLoggingHook(pattern))
	}

	return registry
}
