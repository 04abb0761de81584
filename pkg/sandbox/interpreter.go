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

import (
	"context"
	"fmt"
	"go/ast"
	"strings"

	"github.com/kpekel/agentrun/pkg/agenterrors"
	"github.com/kpekel/agentrun/pkg/agentstate"
	"github.com/kpekel/agentrun/pkg/tools"
)

// dangerousIdentifierSuffix/Prefix guard against the attribute-access
// escapes the original dialect's sandbox hardened against (__class__,
// __globals__, __subclasses__ style introspection chains used to climb
// out of a restricted interpreter). Go has no such runtime reflection
// surface reachable from ordinary identifiers, but any name shaped like
// one is almost certainly an attempt to probe for it, or a copy-pasted
// fragment from the unrestricted dialect, so it is rejected outright.
const dunderMarker = "__"

func isDunder(name string) bool {
	return strings.HasPrefix(name, dunderMarker) && strings.HasSuffix(name, dunderMarker) && len(name) > len(dunderMarker)
}

// interpreter holds the per-Evaluate-call mutable state: the remaining
// operation budget, accumulated print output, and the tool/state
// bindings visible to the code being evaluated.
type interpreter struct {
	ctx       context.Context
	evaluator *Evaluator

	staticTools map[string]tools.Tool
	customTools map[string]tools.Tool
	state       *agentstate.State

	out *strings.Builder

	operationBudget int
	whileIterations int
}

// tick consumes one unit of operation budget, panicking with
// budgetExceededSignal once exhausted. Called once per AST node the
// interpreter evaluates, statement or expression alike.
func (in *interpreter) tick() {
	in.operationBudget--
	if in.operationBudget <= 0 {
		panic(budgetExceededSignal{reason: "operation budget exceeded"})
	}
	select {
	case <-in.ctx.Done():
		panic(budgetExceededSignal{reason: "evaluation cancelled: " + in.ctx.Err().Error()})
	default:
	}
}

// fail raises a non-control-flow interpreter error, unwinding to run's
// recover via panic.
func (in *interpreter) fail(format string, args ...interface{}) {
	panic(interpError{err: &agenterrors.InterpreterError{Reason: fmt.Sprintf(format, args...)}})
}

// lookupTool resolves a call-position identifier against the custom
// toolset first, then the static toolset, matching spec.md's
// first-registration-wins precedence applied at the caller's own layer
// rather than inside a shared registry.
func (in *interpreter) lookupTool(name string) (tools.Tool, bool) {
	if t, ok := in.customTools[name]; ok {
		return t, true
	}
	if t, ok := in.staticTools[name]; ok {
		return t, true
	}
	return nil, false
}

// knownNames collects every identifier the fuzzy matcher may suggest:
// scope variables, builtin function names, and registered tool names.
func (in *interpreter) knownNames(e *env) []string {
	names := e.names()
	for name := range builtinFuncs {
		names = append(names, name)
	}
	for name := range in.staticTools {
		names = append(names, name)
	}
	for name := range in.customTools {
		names = append(names, name)
	}
	return names
}

// callTool invokes a registered tool with positionally-mapped arguments,
// injecting the live State for tools implementing tools.StateAwareTool.
func (in *interpreter) callTool(t tools.Tool, posArgs []interface{}) (interface{}, error) {
	info := t.GetInfo()
	args := make(map[string]interface{}, len(posArgs))
	for i, v := range posArgs {
		if i < len(info.Parameters) {
			args[info.Parameters[i].Name] = v
		} else {
			args[fmt.Sprintf("arg%d", i)] = v
		}
	}
	return in.execTool(t, args)
}

// callToolNamed invokes a registered tool with an already-named argument
// map. multi_tool_use.parallel uses this: each tool_use entry supplies its
// own {"parameters": {...}} map instead of positional call arguments, so
// there's no index-to-name mapping to do first.
func (in *interpreter) callToolNamed(t tools.Tool, namedArgs map[string]interface{}) (interface{}, error) {
	args := make(map[string]interface{}, len(namedArgs))
	for k, v := range namedArgs {
		args[k] = v
	}
	return in.execTool(t, args)
}

func (in *interpreter) execTool(t tools.Tool, args map[string]interface{}) (interface{}, error) {
	if aware, ok := t.(tools.StateAwareTool); ok && aware.NeedsState() {
		args[tools.StateArgKey] = in.state
	}

	result, err := t.Execute(in.ctx, args)
	if err != nil {
		return nil, err
	}
	if !result.Success {
		return nil, &agenterrors.ToolInvocationError{ToolName: t.GetName(), Err: fmt.Errorf("%s", result.Error)}
	}
	if result.Output != nil {
		return result.Output, nil
	}
	return result.Content, nil
}

// closureValue is what a *ast.FuncLit evaluates to: the literal plus the
// environment it closed over, callable later from evalCall.
type closureValue struct {
	lit *ast.FuncLit
	env *env
}
