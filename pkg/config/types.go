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

// Package config loads the runtime's static configuration: which LLM
// provider to drive, which toolsets to wire in, and the sandbox/
// compaction/hook knobs governing a run. Model-price and context-window
// tables are not part of this, they're static Go data in pkg/modelinfo.
package config

import "time"

// Config is the top-level shape unmarshalled from YAML.
type Config struct {
	Agent        AgentConfig        `yaml:"agent"`
	LLM          LLMConfig          `yaml:"llm"`
	Sandbox      SandboxConfig      `yaml:"sandbox"`
	Compaction   CompactionConfig   `yaml:"compaction"`
	Hooks        HooksConfig        `yaml:"hooks"`
	Toolsets     []ToolsetConfig    `yaml:"toolsets"`
	BuiltinTools BuiltinToolsConfig `yaml:"builtin_tools"`
}

// BuiltinToolsConfig enables the runtime's locally implemented, non-MCP
// tools. final_answer and think carry no host-access risk and are always
// registered by Build — they're required scaffolding for the code route,
// not an optional feature. CommandTool, ReadFileTool, and WebRequestTool
// each grant the sandboxed code real host access (process execution,
// filesystem reads, outbound network calls), so they're opt-in: a nil
// sub-config registers nothing.
type BuiltinToolsConfig struct {
	Command    *CommandToolConfig    `yaml:"command"`
	ReadFile   *ReadFileToolConfig   `yaml:"read_file"`
	WebRequest *WebRequestToolConfig `yaml:"web_request"`
}

// CommandToolConfig mirrors tools.CommandToolConfig with yaml tags.
type CommandToolConfig struct {
	AllowedCommands  []string      `yaml:"allowed_commands"`
	WorkingDirectory string        `yaml:"working_directory"`
	MaxExecutionTime time.Duration `yaml:"max_execution_time"`
	EnableSandboxing bool          `yaml:"enable_sandboxing"`
}

// ReadFileToolConfig mirrors tools.ReadFileConfig with yaml tags.
type ReadFileToolConfig struct {
	MaxFileSize      int    `yaml:"max_file_size"`
	WorkingDirectory string `yaml:"working_directory"`
}

// WebRequestToolConfig mirrors tools.WebRequestConfig with yaml tags.
type WebRequestToolConfig struct {
	Timeout         time.Duration `yaml:"timeout"`
	MaxRetries      int           `yaml:"max_retries"`
	MaxRequestSize  int64         `yaml:"max_request_size"`
	MaxResponseSize int64         `yaml:"max_response_size"`
	AllowedDomains  []string      `yaml:"allowed_domains"`
	DeniedDomains   []string      `yaml:"denied_domains"`
	AllowedMethods  []string      `yaml:"allowed_methods"`
	AllowRedirects  bool          `yaml:"allow_redirects"`
	MaxRedirects    int           `yaml:"max_redirects"`
	UserAgent       string        `yaml:"user_agent"`
}

// AgentConfig names the agent and picks its default route.
type AgentConfig struct {
	Name         string `yaml:"name"`
	DefaultRoute string `yaml:"default_route"`
	MaxSteps     int    `yaml:"max_steps"`
}

// LLMConfig selects a provider and model. APIKey is usually left empty in
// the file and resolved from the provider's conventional environment
// variable at load time (see ResolveCredentials).
type LLMConfig struct {
	Provider    string  `yaml:"provider"` // "openai" or "anthropic"
	Model       string  `yaml:"model"`
	APIKey      string  `yaml:"api_key"`
	BaseURL     string  `yaml:"base_url"`
	MaxTokens   int     `yaml:"max_tokens"`
	Temperature float64 `yaml:"temperature"`
}

// SandboxConfig mirrors sandbox.Evaluator's tunables.
type SandboxConfig struct {
	MaxOperations      int `yaml:"max_operations"`
	MaxWhileIterations int `yaml:"max_while_iterations"`
	MaxOutputLen       int `yaml:"max_output_len"`
}

// CompactionConfig mirrors driver.Driver's compaction tunables.
type CompactionConfig struct {
	Threshold float64 `yaml:"threshold"`
	KeepLast  int     `yaml:"keep_last"`
}

// HooksConfig lists the built-in Tool Hook Layer policies to chain, in
// order, ahead of any hooks the caller registers programmatically.
type HooksConfig struct {
	AutoDeny          []PatternReason `yaml:"auto_deny"`
	DangerousCommands []DangerousRule `yaml:"dangerous_commands"`
	Log               []string        `yaml:"log"` // glob patterns to log calls for
}

// PatternReason pairs a tool-name glob with the reason shown in a denial.
type PatternReason struct {
	Pattern string `yaml:"pattern"`
	Reason  string `yaml:"reason"`
}

// DangerousRule configures a DangerousCommandHook for tools matching
// Pattern, flagging any extra substrings as dangerous on top of the
// hook's built-in term list.
type DangerousRule struct {
	Pattern    string   `yaml:"pattern"`
	ExtraTerms []string `yaml:"extra_terms"`
}

// ToolsetConfig describes one Toolset: either "local" (no setup/teardown,
// just a name for logging) or "mcp" (a remote MCP server connection).
type ToolsetConfig struct {
	Name      string   `yaml:"name"`
	Type      string   `yaml:"type"` // "local" or "mcp"
	Transport string   `yaml:"transport"` // mcp: "stdio", "sse", "streamable_http"
	Command   string   `yaml:"command"`
	Args      []string `yaml:"args"`
	Env       []string `yaml:"env"`
	URL       string   `yaml:"url"`
	Internal  bool     `yaml:"internal"`
}
