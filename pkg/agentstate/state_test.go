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

package agentstate_test

import (
	"encoding/json"
	"testing"

	"github.com/kpekel/agentrun/pkg/agentstate"
	"github.com/kpekel/agentrun/pkg/llms"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestState_ToDictFromDictRoundTrip(t *testing.T) {
	s := agentstate.New("summarize the README", &agentstate.Input{Query: "summarize the README"})
	s.IncrementStep()
	s.IncrementStep()
	s.IncrementErrors()
	s.SetLastConfidence(0.42)
	s.SetMetadata("learned_patterns", []string{"retry-on-timeout"})
	s.SetFinalAnswer("done")

	data, err := json.Marshal(s)
	require.NoError(t, err)

	restored := agentstate.New("", nil)
	require.NoError(t, json.Unmarshal(data, restored))

	assert.Equal(t, s.StepCount(), restored.StepCount())
	assert.Equal(t, s.ErrorCount(), restored.ErrorCount())
	assert.Equal(t, s.Task(), restored.Task())
	assert.Equal(t, s.IsFinalAnswer(), restored.IsFinalAnswer())
	assert.Equal(t, s.FinalAnswerValue(), restored.FinalAnswerValue())
	assert.Equal(t, s.LastConfidence(), restored.LastConfidence())
	assert.Equal(t, s.Metadata(), restored.Metadata())
}

func TestState_SetFinalAnswerInvariant(t *testing.T) {
	s := agentstate.New("t", nil)
	assert.False(t, s.IsFinalAnswer())
	assert.Nil(t, s.FinalAnswerValue())

	s.SetFinalAnswer(42)
	assert.True(t, s.IsFinalAnswer())
	assert.Equal(t, 42, s.FinalAnswerValue())
}

func TestState_ResetPreservesLearnedPatterns(t *testing.T) {
	s := agentstate.New("first task", nil)
	s.History().Append(llms.Message{Role: "user", Content: "hi"})
	s.IncrementStep()
	s.IncrementErrors()
	s.SetFinalAnswer("a")
	s.SetMetadata("learned_patterns", []string{"pattern-a"})
	s.SetMetadata("scratch", "discard me")

	s.Reset()

	assert.Equal(t, 0, s.StepCount())
	assert.Equal(t, 0, s.ErrorCount())
	assert.False(t, s.IsFinalAnswer())
	assert.Nil(t, s.FinalAnswerValue())
	assert.Equal(t, 0, s.History().Len())

	patterns, ok := s.GetMetadata("learned_patterns")
	require.True(t, ok)
	assert.Equal(t, []string{"pattern-a"}, patterns)

	_, ok = s.GetMetadata("scratch")
	assert.False(t, ok)
}

func TestState_ResetTwiceEqualsResetOnce(t *testing.T) {
	s := agentstate.New("task", nil)
	s.SetMetadata("learned_patterns", []string{"p"})
	s.IncrementStep()

	s.Reset()
	first, _ := json.Marshal(s)
	s.Reset()
	second, _ := json.Marshal(s)

	assert.JSONEq(t, string(first), string(second))
}

func TestCodeAgentState_BlockResultsOrdering(t *testing.T) {
	s := agentstate.NewCodeAgentState("task", nil)
	s.RecordBlockResult(agentstate.CodeBlockResult{Index: 1, ReturnValue: "second"})
	s.RecordBlockResult(agentstate.CodeBlockResult{Index: 0, ReturnValue: "first"})

	results := s.BlockResults()
	require.Len(t, results, 2)
	assert.Equal(t, 0, results[0].Index)
	assert.Equal(t, 1, results[1].Index)
}

func TestCodeAgentState_RecordBlockResultOverwrites(t *testing.T) {
	s := agentstate.NewCodeAgentState("task", nil)
	s.RecordBlockResult(agentstate.CodeBlockResult{Index: 0, ReturnValue: "first-try"})
	s.RecordBlockResult(agentstate.CodeBlockResult{Index: 0, ReturnValue: "re-run"})

	r, ok := s.BlockResult(0)
	require.True(t, ok)
	assert.Equal(t, "re-run", r.ReturnValue)
}

func TestCodeAgentState_ResetClearsBlocksAndEmbeddedState(t *testing.T) {
	s := agentstate.NewCodeAgentState("task", nil)
	s.RecordBlockResult(agentstate.CodeBlockResult{Index: 0, ReturnValue: "x"})
	s.IncrementStep()

	s.Reset()

	assert.Empty(t, s.BlockResults())
	assert.Equal(t, 0, s.StepCount())
}
