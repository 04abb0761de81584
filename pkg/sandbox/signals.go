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

package sandbox

// evalSignal is the family of typed panics the interpreter uses for
// non-local control flow (final_answer, return, break, continue, and
// budget exhaustion). They are recovered exactly once, at run's top-level
// boundary, and translated into an Outcome there — nothing outside this
// package ever observes a panic.
type evalSignal interface {
	isEvalSignal()
}

type finalAnswerSignal struct{ value interface{} }

func (finalAnswerSignal) isEvalSignal() {}

type returnSignal struct{ value interface{} }

func (returnSignal) isEvalSignal() {}

type breakSignal struct{}

func (breakSignal) isEvalSignal() {}

type continueSignal struct{}

func (continueSignal) isEvalSignal() {}

// budgetExceededSignal unwinds the whole evaluation; unlike the other
// signals it is never caught by a loop or function boundary, only by run.
type budgetExceededSignal struct{ reason string }

func (budgetExceededSignal) isEvalSignal() {}

// interpError wraps a non-control-flow runtime error (undefined name,
// forbidden identifier, type mismatch) so it too can unwind through
// arbitrarily nested statement/expression evaluation via panic/recover,
// without every call site threading an error return.
type interpError struct{ err error }
