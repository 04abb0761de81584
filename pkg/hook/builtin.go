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

package hook

import (
	"context"
	"fmt"
	"strings"

	"github.com/kpekel/agentrun/pkg/logger"
	"github.com/kpekel/agentrun/pkg/tools"
)

// AutoAcceptHook always allows matching calls through unmodified. Useful as
// a terminal entry in a hook chain that otherwise denies by default.
type AutoAcceptHook struct {
	pattern string
}

func NewAutoAcceptHook(pattern string) *AutoAcceptHook {
	return &AutoAcceptHook{pattern: pattern}
}

func (h *AutoAcceptHook) Pattern() string { return h.pattern }

func (h *AutoAcceptHook) Pre(ctx context.Context, toolName string, args map[string]interface{}) (PreResult, error) {
	return PreResult{Decision: Allow}, nil
}

// AutoDenyHook always blocks matching calls with a fixed observation,
// e.g. to disable a tool entirely without removing it from the registry.
type AutoDenyHook struct {
	pattern string
	reason  string
}

func NewAutoDenyHook(pattern, reason string) *AutoDenyHook {
	if reason == "" {
		reason = "this tool is disabled"
	}
	return &AutoDenyHook{pattern: pattern, reason: reason}
}

func (h *AutoDenyHook) Pattern() string { return h.pattern }

func (h *AutoDenyHook) Pre(ctx context.Context, toolName string, args map[string]interface{}) (PreResult, error) {
	return PreResult{Decision: Deny, Observation: h.reason}, nil
}

// dangerousShellMetacharacters mirrors the command tool's own
// sandboxing stance (pkg/tools/command.go): a handful of shell
// metacharacters that chain, redirect, or substitute commands.
var dangerousShellMetacharacters = []string{";", "&&", "||", "|", "`", "$(", ">", "<"}

// DangerousCommandHook denies calls whose string arguments contain
// shell-metacharacter patterns commonly used to chain or escalate a
// command beyond what was intended, generalizing the allow-list/
// sandboxing-flag pattern in pkg/tools/command.go into a hook usable
// against any tool that takes a free-form command or path argument.
type DangerousCommandHook struct {
	pattern    string
	extraTerms []string
}

// NewDangerousCommandHook builds a hook matching toolNamePattern; extraTerms
// are additional substrings (e.g. "rm -rf", "sudo") treated as dangerous
// alongside the built-in shell metacharacter set.
func NewDangerousCommandHook(toolNamePattern string, extraTerms ...string) *DangerousCommandHook {
	return &DangerousCommandHook{pattern: toolNamePattern, extraTerms: extraTerms}
}

func (h *DangerousCommandHook) Pattern() string { return h.pattern }

func (h *DangerousCommandHook) Pre(ctx context.Context, toolName string, args map[string]interface{}) (PreResult, error) {
	for _, v := range args {
		s, ok := v.(string)
		if !ok {
			continue
		}
		if term := h.findDangerousTerm(s); term != "" {
			return PreResult{
				Decision:    Deny,
				Observation: fmt.Sprintf("denied by dangerous-command hook: argument contains %q", term),
			}, nil
		}
	}
	return PreResult{Decision: Allow}, nil
}

func (h *DangerousCommandHook) findDangerousTerm(s string) string {
	for _, term := range dangerousShellMetacharacters {
		if strings.Contains(s, term) {
			return term
		}
	}
	for _, term := range h.extraTerms {
		if strings.Contains(s, term) {
			return term
		}
	}
	return ""
}

// LoggingHook is a post-hook that structurally logs every matching tool
// call's outcome via pkg/logger, without rewriting the result.
type LoggingHook struct {
	pattern string
}

func NewLoggingHook(pattern string) *LoggingHook {
	return &LoggingHook{pattern: pattern}
}

func (h *LoggingHook) Pattern() string { return h.pattern }

func (h *LoggingHook) Post(ctx context.Context, toolName string, result tools.ToolResult) (tools.ToolResult, error) {
	logger.GetLogger().Info("tool executed",
		"tool", toolName,
		"success", result.Success,
		"duration_ms", result.ExecutionTime.Milliseconds(),
	)
	return result, nil
}

var (
	_ PreHook  = (*AutoAcceptHook)(nil)
	_ PreHook  = (*AutoDenyHook)(nil)
	_ PreHook  = (*DangerousCommandHook)(nil)
	_ PostHook = (*LoggingHook)(nil)
)
