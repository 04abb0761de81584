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

// Package sandbox evaluates LLM-generated code in a restricted subset of
// Go-expression syntax. It is the hardest component in this runtime: no
// third-party Go interpreter in the example corpus (goja, expr-lang/expr,
// yaegi, tengo, gopher-lua, govaluate all appear only as go.mod-only
// manifest stubs with no retrievable source) offers the specific security
// semantics this needs — per-AST-node operation budgeting, a dunder-style
// dangerous-identifier guard, and a distinguished final-answer unwind — so
// this one component is hand-built on go/parser, go/ast, and go/token.
package sandbox

import (
	"context"
	"fmt"
	"go/ast"
	"go/parser"
	"go/scanner"
	"go/token"
	"strings"

	"github.com/kpekel/agentrun/pkg/agenterrors"
	"github.com/kpekel/agentrun/pkg/agentstate"
	"github.com/kpekel/agentrun/pkg/tools"
)

// Default operation budgets, matching spec.md §4.4's ≈10^7 ceiling on AST
// node evaluations and a smaller hard cap on loop iterations (every for
// and range iteration counts against it).
const (
	DefaultMaxOperations      = 10_000_000
	DefaultMaxWhileIterations = 1_000_000
)

const wrapperPrefixLines = 2 // "package p\n" + "func _() {\n"

// Outcome is the tagged result the evaluator's panic/recover boundary
// translates exception-as-control-flow into (per §9's re-architecture
// guidance): finalAnswerSignal/returnSignal/breakSignal/continueSignal all
// stay internal to the evaluator as typed Go panics, and only this struct
// crosses the function boundary.
type Outcome struct {
	Value       interface{}
	FinalAnswer bool
	PrintOutput string
	Err         error
}

// Evaluator holds the tunable limits and authorized-namespace whitelist for
// one evaluation session. Callers typically construct one Evaluator and
// reuse it across every code block in a run.
type Evaluator struct {
	MaxOperations      int
	MaxWhileIterations int
	MaxOutputLen       int

	// AuthorizedImports is the fixed whitelist plus caller-configured
	// additions of host-provided namespaces exposed as
	// "namespace.Function" selector calls (e.g. "strings", "math"). There
	// is no real Go import statement inside sandboxed code; these names
	// are resolved directly against builtinNamespaces in builtins.go.
	AuthorizedImports map[string]bool
}

// NewEvaluator builds an Evaluator with the default budgets and the
// baseline authorized-namespace set (math/strings/strconv helpers only —
// no host filesystem/network/process namespaces).
func NewEvaluator(extraImports ...string) *Evaluator {
	authorized := map[string]bool{
		"math":    true,
		"strings": true,
		"strconv": true,
	}
	for _, imp := range extraImports {
		authorized[imp] = true
	}
	return &Evaluator{
		MaxOperations:      DefaultMaxOperations,
		MaxWhileIterations: DefaultMaxWhileIterations,
		MaxOutputLen:       4000,
		AuthorizedImports:  authorized,
	}
}

// Evaluate runs one code block against the given tool sets and state.
// staticTools are the agent's always-registered tools; customTools are
// per-run additions that take precedence on a name collision (first
// registration still wins at the registry layer — this is merely which
// map the interpreter probes first).
func (e *Evaluator) Evaluate(ctx context.Context, source string, staticTools, customTools map[string]tools.Tool, state *agentstate.State) Outcome {
	if e.MaxOperations <= 0 {
		e.MaxOperations = DefaultMaxOperations
	}
	if e.MaxWhileIterations <= 0 {
		e.MaxWhileIterations = DefaultMaxWhileIterations
	}

	body, err := parseBody(source)
	if err != nil {
		return Outcome{Err: err}
	}

	interp := &interpreter{
		ctx:             ctx,
		evaluator:       e,
		staticTools:     staticTools,
		customTools:     customTools,
		state:           state,
		out:             &strings.Builder{},
		operationBudget: e.MaxOperations,
	}

	root := newEnv(nil)
	installBuiltins(root, interp)

	return interp.run(body, root)
}

// parseBody parses source as the statement list of a synthetic function
// body, recovering real line numbers by subtracting the wrapper lines this
// function prepends.
func parseBody(source string) (*ast.BlockStmt, error) {
	wrapped := "package p\nfunc _() {\n" + source + "\n}\n"

	fset := token.NewFileSet()
	file, err := parser.ParseFile(fset, "", wrapped, parser.AllErrors)
	if err != nil {
		line := 0
		if errList, ok := err.(scanner.ErrorList); ok && len(errList) > 0 {
			line = errList[0].Pos.Line - wrapperPrefixLines
		}
		return nil, &agenterrors.InterpreterError{Reason: fmt.Sprintf("syntax error: %v", err), Line: line}
	}

	if len(file.Decls) == 0 {
		return nil, &agenterrors.InterpreterError{Reason: "no code to evaluate"}
	}
	fn, ok := file.Decls[0].(*ast.FuncDecl)
	if !ok || fn.Body == nil {
		return nil, &agenterrors.InterpreterError{Reason: "failed to parse code block"}
	}
	return fn.Body, nil
}
