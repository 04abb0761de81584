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

import "fmt"

// Validate checks a Config for the handful of mistakes that would
// otherwise surface much later as a confusing runtime error: an unknown
// LLM provider, a missing credential, or an MCP toolset missing the
// fields its transport requires.
func Validate(cfg *Config) error {
	switch cfg.LLM.Provider {
	case "openai", "anthropic":
	default:
		return fmt.Errorf("config: unsupported llm provider %q (want openai or anthropic)", cfg.LLM.Provider)
	}
	if cfg.LLM.Model == "" {
		return fmt.Errorf("config: llm.model is required")
	}
	if cfg.LLM.APIKey == "" {
		return fmt.Errorf("config: no api key for provider %q (set llm.api_key or %s)", cfg.LLM.Provider, providerAPIKeyEnvVar(cfg.LLM.Provider))
	}

	for _, ts := range cfg.Toolsets {
		if ts.Name == "" {
			return fmt.Errorf("config: toolset entry missing name")
		}
		switch ts.Type {
		case "local":
		case "mcp":
			if err := validateMCPToolset(ts); err != nil {
				return err
			}
		default:
			return fmt.Errorf("config: toolset %q has unknown type %q", ts.Name, ts.Type)
		}
	}

	return nil
}

func validateMCPToolset(ts ToolsetConfig) error {
	switch ts.Transport {
	case "stdio":
		if ts.Command == "" {
			return fmt.Errorf("config: mcp toolset %q uses stdio but has no command", ts.Name)
		}
	case "sse", "streamable_http":
		if ts.URL == "" {
			return fmt.Errorf("config: mcp toolset %q uses %s but has no url", ts.Name, ts.Transport)
		}
	default:
		return fmt.Errorf("config: mcp toolset %q has unknown transport %q", ts.Name, ts.Transport)
	}
	return nil
}
