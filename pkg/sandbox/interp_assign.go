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
)

// execAssign covers every *ast.AssignStmt shape the restricted dialect
// supports: single and parallel := / =, augmented assignment (+=, -=,
// ...), and the two-result comma-ok forms ("v, ok := m[k]" and
// "result, err := someTool(...)").
func (in *interpreter) execAssign(s *ast.AssignStmt, e *env) {
	if s.Tok != token.DEFINE && s.Tok != token.ASSIGN {
		in.execAugmentedAssign(s, e)
		return
	}

	if len(s.Lhs) == 2 && len(s.Rhs) == 1 {
		if in.execCommaOkAssign(s, e) {
			return
		}
	}

	if len(s.Lhs) != len(s.Rhs) {
		in.fail("assignment mismatch: %d variables but %d values", len(s.Lhs), len(s.Rhs))
	}

	values := make([]interface{}, len(s.Rhs))
	for i, rhs := range s.Rhs {
		values[i] = in.evalExpr(rhs, e)
	}
	for i, lhs := range s.Lhs {
		in.bind(lhs, values[i], s.Tok, e)
	}
}

// execCommaOkAssign handles the two shapes where a single right-hand
// expression yields two left-hand values: map comma-ok lookups and tool
// invocations returning (output, error). Returns false if neither shape
// applies, so the caller falls back to ordinary parallel assignment.
func (in *interpreter) execCommaOkAssign(s *ast.AssignStmt, e *env) bool {
	switch rhs := s.Rhs[0].(type) {
	case *ast.IndexExpr:
		value, ok := in.evalIndexOk(rhs, e)
		in.bind(s.Lhs[0], value, s.Tok, e)
		in.bind(s.Lhs[1], ok, s.Tok, e)
		return true

	case *ast.CallExpr:
		if id, isIdent := rhs.Fun.(*ast.Ident); isIdent {
			if t, ok := in.lookupTool(id.Name); ok {
				args := in.evalArgs(rhs, e)
				value, err := in.callTool(t, args)
				in.bind(s.Lhs[0], value, s.Tok, e)
				if err != nil {
					in.bind(s.Lhs[1], err.Error(), s.Tok, e)
				} else {
					in.bind(s.Lhs[1], nil, s.Tok, e)
				}
				return true
			}
		}
	}
	return false
}

func (in *interpreter) bind(lhs ast.Expr, value interface{}, tok token.Token, e *env) {
	id, ok := lhs.(*ast.Ident)
	if !ok {
		in.fail("unsupported assignment target of type %T", lhs)
	}
	if id.Name == "_" {
		return
	}
	if isDunder(id.Name) {
		in.fail("cannot assign to %q", id.Name)
	}
	if tok == token.DEFINE {
		e.define(id.Name, value)
		return
	}
	if !e.assign(id.Name, value) {
		// Plain "=" to a name the sandbox hasn't seen yet still defines it
		// in the current scope rather than erroring, matching the
		// forgiving feel of the dialect this evaluates: code transplanted
		// from a loop body or copy-pasted snippet should not fail just
		// because a variable's first appearance happened to use "=".
		e.define(id.Name, value)
	}
}

func (in *interpreter) execAugmentedAssign(s *ast.AssignStmt, e *env) {
	if len(s.Lhs) != 1 || len(s.Rhs) != 1 {
		in.fail("augmented assignment requires exactly one operand on each side")
	}
	id, ok := s.Lhs[0].(*ast.Ident)
	if !ok {
		in.fail("augmented assignment target must be a plain variable")
	}
	cur, ok := e.get(id.Name)
	if !ok {
		in.fail("undefined name %q", id.Name)
	}
	rhs := in.evalExpr(s.Rhs[0], e)

	op, ok := augmentedOp(s.Tok)
	if !ok {
		in.fail("unsupported augmented assignment operator %v", s.Tok)
	}
	next := in.applyBinary(op, cur, rhs)
	if !e.assign(id.Name, next) {
		in.fail("undefined name %q", id.Name)
	}
}

func augmentedOp(tok token.Token) (token.Token, bool) {
	switch tok {
	case token.ADD_ASSIGN:
		return token.ADD, true
	case token.SUB_ASSIGN:
		return token.SUB, true
	case token.MUL_ASSIGN:
		return token.MUL, true
	case token.QUO_ASSIGN:
		return token.QUO, true
	case token.REM_ASSIGN:
		return token.REM, true
	default:
		return 0, false
	}
}
