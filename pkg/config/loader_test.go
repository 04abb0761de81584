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
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, yamlBody string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "agentrun.yaml")
	require.NoError(t, os.WriteFile(path, []byte(yamlBody), 0644))
	return path
}

func TestLoad_FillsDefaultsAndResolvesCredentials(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-from-env")

	path := writeConfig(t, `
llm:
  provider: openai
  model: gpt-4o
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "sk-from-env", cfg.LLM.APIKey)
	assert.Equal(t, "agentrun", cfg.Agent.Name)
	assert.Equal(t, "code", cfg.Agent.DefaultRoute)
	assert.Greater(t, cfg.Agent.MaxSteps, 0)
	assert.Greater(t, cfg.Sandbox.MaxOperations, 0)
	assert.Greater(t, cfg.Compaction.KeepLast, 0)
}

func TestLoad_ExpandsEnvVarReferences(t *testing.T) {
	t.Setenv("AGENTRUN_TEST_KEY", "expanded-value")

	path := writeConfig(t, `
llm:
  provider: anthropic
  model: claude-3-5-sonnet
  api_key: ${AGENTRUN_TEST_KEY}
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "expanded-value", cfg.LLM.APIKey)
}

func TestLoad_RejectsUnsupportedProvider(t *testing.T) {
	path := writeConfig(t, `
llm:
  provider: cohere
  model: command
  api_key: x
`)

	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoad_RejectsMissingCredential(t *testing.T) {
	path := writeConfig(t, `
llm:
  provider: openai
  model: gpt-4o
`)

	_, err := Load(path)
	assert.Error(t, err)
}

func TestValidate_RejectsMCPToolsetMissingURL(t *testing.T) {
	cfg := &Config{
		LLM: LLMConfig{Provider: "openai", Model: "gpt-4o", APIKey: "x"},
		Toolsets: []ToolsetConfig{
			{Name: "remote", Type: "mcp", Transport: "sse"},
		},
	}
	err := Validate(cfg)
	assert.Error(t, err)
}

func TestValidate_AcceptsLocalToolset(t *testing.T) {
	cfg := &Config{
		LLM:      LLMConfig{Provider: "openai", Model: "gpt-4o", APIKey: "x"},
		Toolsets: []ToolsetConfig{{Name: "builtin", Type: "local"}},
	}
	assert.NoError(t, Validate(cfg))
}
