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
	"go/ast"
	"go/token"

	"github.com/kpekel/agentrun/pkg/agenterrors"
)

// run executes a parsed code block's statements and recovers exactly once
// at this boundary, translating whichever evalSignal unwound the stack
// (or a clean fallthrough) into an Outcome.
func (in *interpreter) run(body *ast.BlockStmt, root *env) (outcome Outcome) {
	defer func() {
		r := recover()
		if r == nil {
			return
		}
		switch sig := r.(type) {
		case finalAnswerSignal:
			outcome = Outcome{Value: sig.value, FinalAnswer: true, PrintOutput: in.out.String()}
		case returnSignal:
			outcome = Outcome{Value: sig.value, PrintOutput: in.out.String()}
		case budgetExceededSignal:
			outcome = Outcome{Err: &agenterrors.InterpreterError{Reason: sig.reason}, PrintOutput: in.out.String()}
		case breakSignal:
			outcome = Outcome{Err: &agenterrors.InterpreterError{Reason: "break outside of a loop"}, PrintOutput: in.out.String()}
		case continueSignal:
			outcome = Outcome{Err: &agenterrors.InterpreterError{Reason: "continue outside of a loop"}, PrintOutput: in.out.String()}
		case interpError:
			outcome = Outcome{Err: sig.err, PrintOutput: in.out.String()}
		default:
			// Not one of ours: a genuine bug in the interpreter. Re-panic
			// rather than silently swallowing it as a user-facing error.
			panic(r)
		}
	}()

	in.execStmtList(body.List, root)
	return Outcome{PrintOutput: in.out.String()}
}

func (in *interpreter) execStmtList(stmts []ast.Stmt, e *env) {
	for _, s := range stmts {
		in.execStmt(s, e)
	}
}

func (in *interpreter) execStmt(s ast.Stmt, e *env) {
	in.tick()

	switch node := s.(type) {
	case *ast.ExprStmt:
		in.evalExpr(node.X, e)

	case *ast.AssignStmt:
		in.execAssign(node, e)

	case *ast.IncDecStmt:
		in.execIncDec(node, e)

	case *ast.IfStmt:
		in.execIf(node, e)

	case *ast.ForStmt:
		in.execFor(node, e)

	case *ast.RangeStmt:
		in.execRange(node, e)

	case *ast.ReturnStmt:
		var value interface{}
		if len(node.Results) > 0 {
			value = in.evalExpr(node.Results[0], e)
		}
		panic(returnSignal{value: value})

	case *ast.BranchStmt:
		switch node.Tok {
		case token.BREAK:
			panic(breakSignal{})
		case token.CONTINUE:
			panic(continueSignal{})
		default:
			in.fail("unsupported branch statement %v", node.Tok)
		}

	case *ast.BlockStmt:
		in.execStmtList(node.List, e.child())

	case *ast.DeclStmt:
		in.execDecl(node, e)

	case *ast.EmptyStmt:
		// no-op, e.g. the trailing statement before a closing brace.

	default:
		in.fail("unsupported statement of type %T", s)
	}
}

func (in *interpreter) execDecl(d *ast.DeclStmt, e *env) {
	gen, ok := d.Decl.(*ast.GenDecl)
	if !ok || gen.Tok != token.VAR {
		in.fail("unsupported declaration")
	}
	for _, spec := range gen.Specs {
		vs, ok := spec.(*ast.ValueSpec)
		if !ok {
			continue
		}
		for i, name := range vs.Names {
			var v interface{}
			if i < len(vs.Values) {
				v = in.evalExpr(vs.Values[i], e)
			}
			e.define(name.Name, v)
		}
	}
}

func (in *interpreter) execIncDec(s *ast.IncDecStmt, e *env) {
	id, ok := s.X.(*ast.Ident)
	if !ok {
		in.fail("++/-- target must be a plain variable")
	}
	cur, ok := e.get(id.Name)
	if !ok {
		in.fail("undefined name %q", id.Name)
	}
	f, ok := asFloat(cur)
	if !ok {
		in.fail("++/-- requires a numeric variable, got %T", cur)
	}
	delta := 1.0
	if s.Tok == token.DEC {
		delta = -1.0
	}
	var next interface{}
	if _, isInt := cur.(int64); isInt {
		next = int64(f + delta)
	} else {
		next = f + delta
	}
	if !e.assign(id.Name, next) {
		in.fail("undefined name %q", id.Name)
	}
}

func (in *interpreter) execIf(s *ast.IfStmt, e *env) {
	branch := e.child()
	if s.Init != nil {
		in.execStmt(s.Init, branch)
	}
	cond := in.evalExpr(s.Cond, branch)
	b, ok := cond.(bool)
	if !ok {
		in.fail("if condition must be boolean, got %T", cond)
	}
	if b {
		in.execStmtList(s.Body.List, branch.child())
		return
	}
	switch els := s.Else.(type) {
	case *ast.BlockStmt:
		in.execStmtList(els.List, branch.child())
	case *ast.IfStmt:
		in.execIf(els, branch)
	case nil:
		// no else branch
	}
}

// execFor handles all three *ast.ForStmt shapes: the classic
// for init; cond; post {} loop, the while-style for cond {} loop (only
// Cond set), and the infinite for {} loop relying on an internal break.
func (in *interpreter) execFor(s *ast.ForStmt, e *env) {
	loopEnv := e.child()
	if s.Init != nil {
		in.execStmt(s.Init, loopEnv)
	}

	for {
		in.whileIterations++
		if in.whileIterations > in.evaluator.MaxWhileIterations {
			panic(budgetExceededSignal{reason: "loop iteration limit exceeded"})
		}

		if s.Cond != nil {
			cond := in.evalExpr(s.Cond, loopEnv)
			b, ok := cond.(bool)
			if !ok {
				in.fail("for condition must be boolean, got %T", cond)
			}
			if !b {
				break
			}
		}

		if in.execLoopBody(s.Body, loopEnv) {
			break
		}

		if s.Post != nil {
			in.execStmt(s.Post, loopEnv)
		}
	}
}

// execLoopBody runs one iteration's body in a fresh child scope, catching
// break/continue locally so only this loop (not an enclosing one) is
// affected. Returns true if the loop should stop (a break occurred).
func (in *interpreter) execLoopBody(body *ast.BlockStmt, loopEnv *env) (stop bool) {
	defer func() {
		r := recover()
		if r == nil {
			return
		}
		switch r.(type) {
		case breakSignal:
			stop = true
		case continueSignal:
			stop = false
		default:
			panic(r)
		}
	}()
	in.execStmtList(body.List, loopEnv.child())
	return false
}

func (in *interpreter) execRange(s *ast.RangeStmt, e *env) {
	subject := in.evalExpr(s.X, e)
	loopEnv := e.child()

	iterate := func(key, value interface{}) (stop bool) {
		iterEnv := loopEnv.child()
		if s.Key != nil {
			if id, ok := s.Key.(*ast.Ident); ok && id.Name != "_" {
				iterEnv.define(id.Name, key)
			}
		}
		if s.Value != nil {
			if id, ok := s.Value.(*ast.Ident); ok && id.Name != "_" {
				iterEnv.define(id.Name, value)
			}
		}
		return in.execLoopBody(&ast.BlockStmt{List: s.Body.List}, iterEnv)
	}

	switch c := subject.(type) {
	case []interface{}:
		for i, v := range c {
			in.whileIterations++
			if in.whileIterations > in.evaluator.MaxWhileIterations {
				panic(budgetExceededSignal{reason: "loop iteration limit exceeded"})
			}
			if iterate(int64(i), v) {
				return
			}
		}
	case map[string]interface{}:
		for k, v := range c {
			in.whileIterations++
			if in.whileIterations > in.evaluator.MaxWhileIterations {
				panic(budgetExceededSignal{reason: "loop iteration limit exceeded"})
			}
			if iterate(k, v) {
				return
			}
		}
	case string:
		for i, r := range c {
			in.whileIterations++
			if in.whileIterations > in.evaluator.MaxWhileIterations {
				panic(budgetExceededSignal{reason: "loop iteration limit exceeded"})
			}
			if iterate(int64(i), string(r)) {
				return
			}
		}
	default:
		in.fail("cannot range over value of type %T", subject)
	}
}
