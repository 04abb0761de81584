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

package history_test

import (
	"context"
	"strings"
	"testing"

	"github.com/kpekel/agentrun/pkg/history"
	"github.com/kpekel/agentrun/pkg/llms"
	"github.com/kpekel/agentrun/pkg/modelinfo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// deterministicSummarizer returns a fixed, inspectable summary so
// compaction tests don't depend on a real LLM call.
type deterministicSummarizer struct {
	lastInput string
}

func (d *deterministicSummarizer) Summarize(_ context.Context, serialized string) (string, error) {
	d.lastInput = serialized
	return "summary of earlier turns", nil
}

func TestHistory_AppendAndAccessors(t *testing.T) {
	h := history.New()
	h.Append(llms.Message{Role: "system", Content: "you are a helpful agent"})
	h.Append(llms.Message{Role: "user", Content: "hello"})
	h.Append(llms.Message{Role: "assistant", Content: "hi there"})

	require.Equal(t, 3, h.Len())

	last, ok := h.LastMessage()
	require.True(t, ok)
	assert.Equal(t, "hi there", last.Content)

	sysOnly := h.FilterByRole("system")
	require.Equal(t, 1, sysOnly.Len())

	recent := h.GetRecent(2)
	require.Equal(t, 2, recent.Len())
	first, _ := recent.At(0)
	assert.Equal(t, "user", first.Role)
}

func TestHistory_PopAndClear(t *testing.T) {
	h := history.New()
	h.Append(llms.Message{Role: "user", Content: "a"})
	h.Append(llms.Message{Role: "user", Content: "b"})

	last, ok := h.Pop()
	require.True(t, ok)
	assert.Equal(t, "b", last.Content)
	assert.Equal(t, 1, h.Len())

	h.Clear()
	assert.Equal(t, 0, h.Len())
	_, ok = h.Pop()
	assert.False(t, ok)
}

func TestHistory_ToListFromList_RoundTrip(t *testing.T) {
	h := history.New()
	h.Extend([]llms.Message{
		{Role: "user", Content: "one"},
		{Role: "assistant", Content: "two"},
	})

	rebuilt := history.FromList(h.ToList())
	assert.Equal(t, h.ToList(), rebuilt.ToList())
}

func TestHistory_ShouldCompact(t *testing.T) {
	h := history.New()
	h.Append(llms.Message{Role: "system", Content: "be brief"})
	h.Append(llms.Message{Role: "user", Content: strings.Repeat("token ", 5000)})

	table := modelinfo.DefaultTable()
	should, err := h.ShouldCompact("gpt-4o-mini", table, 0.01)
	require.NoError(t, err)
	assert.True(t, should, "a large message against a tiny threshold should trigger compaction")

	should, err = h.ShouldCompact("gpt-4o-mini", table, 1.0)
	require.NoError(t, err)
	assert.False(t, should)
}

func TestHistory_Compact_PreservesSystemAndRecent(t *testing.T) {
	h := history.New()
	h.Append(llms.Message{Role: "system", Content: "system prompt"})
	for i := 0; i < 20; i++ {
		h.Append(llms.Message{Role: "user", Content: "turn"})
		h.Append(llms.Message{Role: "assistant", Content: "reply"})
	}

	summarizer := &deterministicSummarizer{}
	compacted, err := h.Compact(context.Background(), summarizer, 4)
	require.NoError(t, err)

	list := compacted.ToList()
	require.GreaterOrEqual(t, len(list), 1+1+4)
	assert.Equal(t, "system", list[0].Role)
	assert.Equal(t, "system prompt", list[0].Content)
	assert.True(t, strings.HasPrefix(list[1].Content, "Previous conversation summary: "))

	recent := list[len(list)-4:]
	for _, m := range recent {
		assert.NotEmpty(t, m.Content)
	}

	// Compacting again with a generous keep count should be a no-op copy,
	// not re-summarization of the synthetic summary message.
	again, err := compacted.Compact(context.Background(), summarizer, compacted.Len())
	require.NoError(t, err)
	assert.Equal(t, compacted.ToList(), again.ToList())
}

func TestHistory_Compact_NothingToSummarize(t *testing.T) {
	h := history.New()
	h.Append(llms.Message{Role: "user", Content: "only one turn"})

	summarizer := &deterministicSummarizer{}
	compacted, err := h.Compact(context.Background(), summarizer, 10)
	require.NoError(t, err)
	assert.Equal(t, h.ToList(), compacted.ToList())
	assert.Empty(t, summarizer.lastInput, "summarizer should not be called when nothing exceeds keepRecentN")
}
