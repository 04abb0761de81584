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

// Package agenterrors defines the runtime's error taxonomy. Each kind is a
// distinct type rather than a sentinel value so callers can errors.As into
// the one they care about and still recover the offending detail (line,
// tool name, step) instead of a bare string.
package agenterrors

import "fmt"

// InterpreterError originates inside the sandboxed code evaluator: syntax
// errors, forbidden operations, budget exhaustion, unknown names.
type InterpreterError struct {
	Reason string
	Line   int
	Err    error
}

func (e *InterpreterError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("interpreter error at line %d: %s", e.Line, e.Reason)
	}
	return fmt.Sprintf("interpreter error: %s", e.Reason)
}

func (e *InterpreterError) Unwrap() error { return e.Err }

// ToolInvocationError wraps a failure returned by a tool or its adapter.
type ToolInvocationError struct {
	ToolName string
	Err      error
}

func (e *ToolInvocationError) Error() string {
	return fmt.Sprintf("tool %q invocation failed: %v", e.ToolName, e.Err)
}

func (e *ToolInvocationError) Unwrap() error { return e.Err }

// ToolsetSetupError indicates a Toolset's setup() failed; the toolset
// yields no tools and the agent proceeds without them.
type ToolsetSetupError struct {
	ToolsetName string
	Err         error
}

func (e *ToolsetSetupError) Error() string {
	return fmt.Sprintf("toolset %q setup failed: %v", e.ToolsetName, e.Err)
}

func (e *ToolsetSetupError) Unwrap() error { return e.Err }

// LLMProviderError indicates a transport/auth/decoding failure from the
// model API that propagated past the provider adapter's own retries.
type LLMProviderError struct {
	Provider string
	Err      error
}

func (e *LLMProviderError) Error() string {
	return fmt.Sprintf("llm provider %q error: %v", e.Provider, e.Err)
}

func (e *LLMProviderError) Unwrap() error { return e.Err }

// MaxStepsExceeded indicates the driver loop hit max_steps without a final
// answer.
type MaxStepsExceeded struct {
	MaxSteps int
}

func (e *MaxStepsExceeded) Error() string {
	return fmt.Sprintf("exceeded maximum of %d steps without a final answer", e.MaxSteps)
}

// Cancelled indicates the caller cancelled the run via context.
type Cancelled struct {
	Err error
}

func (e *Cancelled) Error() string { return "run cancelled" }
func (e *Cancelled) Unwrap() error { return e.Err }

// CompactionError indicates the summarizer LLM call used by History
// compaction failed. Non-fatal: the caller surfaces it as a warning and
// leaves history as-is.
type CompactionError struct {
	Err error
}

func (e *CompactionError) Error() string {
	return fmt.Sprintf("compaction failed: %v", e.Err)
}

func (e *CompactionError) Unwrap() error { return e.Err }
