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

package history

import (
	"context"
	"fmt"
	"strings"

	"github.com/kpekel/agentrun/pkg/agenterrors"
	"github.com/kpekel/agentrun/pkg/llms"
)

// maxSummarizerMessageChars truncates any single message fed to the
// summarizer, so one pathologically long tool result can't blow the
// summarizer's own context window.
const maxSummarizerMessageChars = 2000

// truncationMarker is appended to a message body truncated for the
// summarizer's input.
const truncationMarker = " …[truncated]"

// summaryPrefix tags the synthetic message Compact inserts. Compact gives a
// tagged message no special treatment: a later Compact call summarizes it
// along with the other older non-system messages.
const summaryPrefix = "Previous conversation summary: "

// Summarizer condenses a run of non-system messages into prose. LLMSummarizer
// is the production implementation; tests may supply a stub.
type Summarizer interface {
	Summarize(ctx context.Context, serialized string) (string, error)
}

// LLMSummarizer calls an llms.LLMProvider with a fixed instruction prompt to
// produce the summary text.
type LLMSummarizer struct {
	Provider llms.LLMProvider
}

// Summarize implements Summarizer.
func (s *LLMSummarizer) Summarize(ctx context.Context, serialized string) (string, error) {
	prompt := "Summarize the following conversation history concisely, " +
		"preserving any facts, decisions, or results a continuation would " +
		"need. Respond with the summary only, no preamble.\n\n" + serialized

	text, _, _, err := s.Provider.Generate(ctx, []llms.Message{
		{Role: "user", Content: prompt},
	}, nil)
	if err != nil {
		return "", fmt.Errorf("summarizer llm call: %w", err)
	}
	return text, nil
}

// serialize renders messages as "[ROLE]: content" lines, truncating each
// message body to maxSummarizerMessageChars.
func serialize(messages []llms.Message) string {
	var b strings.Builder
	for _, m := range messages {
		content := m.Content
		if len(content) > maxSummarizerMessageChars {
			content = content[:maxSummarizerMessageChars] + truncationMarker
		}
		fmt.Fprintf(&b, "[%s]: %s\n", strings.ToUpper(m.Role), content)
	}
	return b.String()
}

// Compact produces a new History containing: every original system message
// (preserved verbatim, gathered at the front), one synthetic assistant
// message holding the summary of all older non-system messages, then the
// last keepRecentN non-system messages. It never removes the first system
// message. System messages keep their relative order, as do the recent
// messages; a system message that came after non-system messages moves
// ahead of them.
//
// If the log doesn't have more than keepRecentN non-system messages there
// is nothing to summarize; Compact returns a copy of h unchanged.
func (h *History) Compact(ctx context.Context, summarizer Summarizer, keepRecentN int) (*History, error) {
	h.mu.RLock()
	all := make([]llms.Message, len(h.messages))
	copy(all, h.messages)
	h.mu.RUnlock()

	if keepRecentN < 0 {
		keepRecentN = 0
	}

	var systemMsgs, rest []llms.Message
	for _, m := range all {
		if m.Role == "system" {
			systemMsgs = append(systemMsgs, m)
		} else {
			rest = append(rest, m)
		}
	}

	if len(rest) <= keepRecentN {
		return FromList(all), nil
	}

	splitAt := len(rest) - keepRecentN
	toSummarize := rest[:splitAt]
	recent := rest[splitAt:]

	summary, err := summarizer.Summarize(ctx, serialize(toSummarize))
	if err != nil {
		return nil, &agenterrors.CompactionError{Err: err}
	}

	out := make([]llms.Message, 0, len(systemMsgs)+1+len(recent))
	out = append(out, systemMsgs...)
	out = append(out, llms.Message{Role: "assistant", Content: summaryPrefix + summary})
	out = append(out, recent...)

	return FromList(out), nil
}
