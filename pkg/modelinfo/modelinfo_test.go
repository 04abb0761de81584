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

package modelinfo_test

import (
	"testing"

	"github.com/kpekel/agentrun/pkg/modelinfo"
	"github.com/stretchr/testify/assert"
)

func TestTable_LookupUnknownModelReturnsDefaults(t *testing.T) {
	table := modelinfo.NewTable(nil)
	window := table.Lookup("some-model-nobody-registered")
	assert.Equal(t, modelinfo.DefaultMaxInputTokens, window.MaxInputTokens)
	assert.Equal(t, modelinfo.DefaultMaxOutputTokens, window.MaxOutputTokens)
}

func TestTable_NilTableReturnsDefaults(t *testing.T) {
	var table *modelinfo.Table
	window := table.Lookup("anything")
	assert.Equal(t, modelinfo.DefaultMaxInputTokens, window.MaxInputTokens)
}

func TestTable_SetOverridesLookup(t *testing.T) {
	table := modelinfo.NewTable(nil)
	table.Set("custom-model", modelinfo.ContextWindow{MaxInputTokens: 1000, MaxOutputTokens: 200})

	window := table.Lookup("custom-model")
	assert.Equal(t, 1000, window.MaxInputTokens)
	assert.Equal(t, 200, window.MaxOutputTokens)
}

func TestDefaultTable_KnownModelsResolve(t *testing.T) {
	table := modelinfo.DefaultTable()
	window := table.Lookup("gpt-4o")
	assert.Equal(t, 128000, window.MaxInputTokens)
	assert.NotEqual(t, modelinfo.ContextWindow{}, window)
}
