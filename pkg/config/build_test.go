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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuild_WiresDriverFromMinimalConfig(t *testing.T) {
	cfg := &Config{
		LLM: LLMConfig{Provider: "openai", Model: "gpt-4o", APIKey: "sk-test"},
	}
	ApplyDefaults(cfg)

	rt, err := Build(cfg)
	require.NoError(t, err)
	require.NotNil(t, rt.Driver)
	assert.Equal(t, "agentrun", rt.Driver.Name())
	assert.NotNil(t, rt.Tools)
	assert.NotNil(t, rt.Hooks)
}

func TestBuild_RejectsUnknownProvider(t *testing.T) {
	cfg := &Config{LLM: LLMConfig{Provider: "made-up", Model: "x", APIKey: "x"}}
	_, err := Build(cfg)
	assert.Error(t, err)
}

func TestBuild_WiresHookPolicy(t *testing.T) {
	cfg := &Config{
		LLM: LLMConfig{Provider: "openai", Model: "gpt-4o", APIKey: "sk-test"},
		Hooks: HooksConfig{
			AutoDeny: []PatternReason{{Pattern: "danger_*", Reason: "disabled by policy"}},
			Log:      []string{"*"},
		},
	}
	ApplyDefaults(cfg)

	rt, err := Build(cfg)
	require.NoError(t, err)
	assert.NotNil(t, rt.Hooks)
}
