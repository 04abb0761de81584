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
	"fmt"
	"go/ast"
	"go/token"
	"strconv"

	"github.com/kpekel/agentrun/pkg/tools"
)

// evalExpr evaluates a single expression node. Every error path panics
// with interpError (or one of the other evalSignal kinds for control
// flow); callers do not thread error returns through the recursive
// descent, matching how run recovers exactly once at the top.
func (in *interpreter) evalExpr(x ast.Expr, e *env) interface{} {
	in.tick()

	switch node := x.(type) {
	case *ast.BasicLit:
		return in.evalBasicLit(node)

	case *ast.Ident:
		return in.evalIdent(node, e)

	case *ast.ParenExpr:
		return in.evalExpr(node.X, e)

	case *ast.UnaryExpr:
		return in.evalUnary(node, e)

	case *ast.BinaryExpr:
		return in.evalBinary(node, e)

	case *ast.CallExpr:
		return in.evalCall(node, e)

	case *ast.IndexExpr:
		return in.evalIndex(node, e)

	case *ast.SliceExpr:
		return in.evalSlice(node, e)

	case *ast.SelectorExpr:
		in.fail("selector %q is only valid in a call expression", selectorName(node))
		return nil

	case *ast.CompositeLit:
		return in.evalCompositeLit(node, e)

	case *ast.FuncLit:
		return closureValue{lit: node, env: e}

	default:
		in.fail("unsupported expression of type %T", x)
		return nil
	}
}

func (in *interpreter) evalBasicLit(lit *ast.BasicLit) interface{} {
	switch lit.Kind {
	case token.INT:
		n, err := strconv.ParseInt(lit.Value, 0, 64)
		if err != nil {
			in.fail("invalid integer literal %q", lit.Value)
		}
		return n
	case token.FLOAT:
		f, err := strconv.ParseFloat(lit.Value, 64)
		if err != nil {
			in.fail("invalid float literal %q", lit.Value)
		}
		return f
	case token.STRING:
		s, err := strconv.Unquote(lit.Value)
		if err != nil {
			in.fail("invalid string literal %q", lit.Value)
		}
		return s
	case token.CHAR:
		r, _, _, err := strconv.UnquoteChar(lit.Value[1:len(lit.Value)-1], '\'')
		if err != nil {
			in.fail("invalid char literal %q", lit.Value)
		}
		return int64(r)
	default:
		in.fail("unsupported literal kind %v", lit.Kind)
		return nil
	}
}

func (in *interpreter) evalIdent(id *ast.Ident, e *env) interface{} {
	switch id.Name {
	case "true":
		return true
	case "false":
		return false
	case "nil":
		return nil
	case "_":
		in.fail("cannot read blank identifier")
	}

	if isDunder(id.Name) {
		in.fail("access to %q is not permitted", id.Name)
	}

	if v, ok := e.get(id.Name); ok {
		return v
	}
	if t, ok := in.lookupTool(id.Name); ok {
		return t
	}

	if hint := suggestClosest(id.Name, in.knownNames(e)); hint != "" {
		in.fail("undefined name %q, did you mean %q?", id.Name, hint)
	}
	in.fail("undefined name %q", id.Name)
	return nil
}

func (in *interpreter) evalUnary(u *ast.UnaryExpr, e *env) interface{} {
	v := in.evalExpr(u.X, e)
	switch u.Op {
	case token.SUB:
		if f, ok := asFloat(v); ok {
			if n, ok := v.(int64); ok {
				return -n
			}
			return -f
		}
		in.fail("unary - requires a numeric operand, got %T", v)
	case token.ADD:
		if _, ok := asFloat(v); ok {
			return v
		}
		in.fail("unary + requires a numeric operand, got %T", v)
	case token.NOT:
		b, ok := v.(bool)
		if !ok {
			in.fail("! requires a boolean operand, got %T", v)
		}
		return !b
	default:
		in.fail("unsupported unary operator %v", u.Op)
	}
	return nil
}

func (in *interpreter) evalBinary(b *ast.BinaryExpr, e *env) interface{} {
	left := in.evalExpr(b.X, e)

	// Short-circuit boolean operators evaluate the right operand lazily.
	switch b.Op {
	case token.LAND:
		lb, ok := left.(bool)
		if !ok {
			in.fail("&& requires boolean operands, got %T", left)
		}
		if !lb {
			return false
		}
		rb, ok := in.evalExpr(b.Y, e).(bool)
		if !ok {
			in.fail("&& requires boolean operands")
		}
		return rb
	case token.LOR:
		lb, ok := left.(bool)
		if !ok {
			in.fail("|| requires boolean operands, got %T", left)
		}
		if lb {
			return true
		}
		rb, ok := in.evalExpr(b.Y, e).(bool)
		if !ok {
			in.fail("|| requires boolean operands")
		}
		return rb
	}

	right := in.evalExpr(b.Y, e)
	return in.applyBinary(b.Op, left, right)
}

func (in *interpreter) applyBinary(op token.Token, left, right interface{}) interface{} {
	if left == nil || right == nil {
		switch op {
		case token.EQL:
			return left == right
		case token.NEQ:
			return left != right
		default:
			in.fail("operator %v is not supported with a nil operand", op)
		}
	}

	ls, lIsStr := left.(string)
	rs, rIsStr := right.(string)
	if lIsStr && rIsStr {
		switch op {
		case token.ADD:
			return ls + rs
		case token.EQL:
			return ls == rs
		case token.NEQ:
			return ls != rs
		case token.LSS:
			return ls < rs
		case token.LEQ:
			return ls <= rs
		case token.GTR:
			return ls > rs
		case token.GEQ:
			return ls >= rs
		default:
			in.fail("operator %v is not supported on strings", op)
		}
	}

	lb, lIsBool := left.(bool)
	rb, rIsBool := right.(bool)
	if lIsBool && rIsBool {
		switch op {
		case token.EQL:
			return lb == rb
		case token.NEQ:
			return lb != rb
		default:
			in.fail("operator %v is not supported on booleans", op)
		}
	}

	lf, lok := asFloat(left)
	rf, rok := asFloat(right)
	if !lok || !rok {
		in.fail("operator %v requires numeric operands, got %T and %T", op, left, right)
	}

	_, lInt := left.(int64)
	_, rInt := right.(int64)
	bothInt := lInt && rInt && op != token.QUO

	switch op {
	case token.ADD:
		if bothInt {
			return int64(lf) + int64(rf)
		}
		return lf + rf
	case token.SUB:
		if bothInt {
			return int64(lf) - int64(rf)
		}
		return lf - rf
	case token.MUL:
		if bothInt {
			return int64(lf) * int64(rf)
		}
		return lf * rf
	case token.QUO:
		if rf == 0 {
			in.fail("division by zero")
		}
		if lInt && rInt {
			return int64(lf) / int64(rf)
		}
		return lf / rf
	case token.REM:
		if rf == 0 {
			in.fail("division by zero")
		}
		return int64(lf) % int64(rf)
	case token.EQL:
		return lf == rf
	case token.NEQ:
		return lf != rf
	case token.LSS:
		return lf < rf
	case token.LEQ:
		return lf <= rf
	case token.GTR:
		return lf > rf
	case token.GEQ:
		return lf >= rf
	default:
		in.fail("unsupported binary operator %v", op)
	}
	return nil
}

func selectorName(sel *ast.SelectorExpr) string {
	if id, ok := sel.X.(*ast.Ident); ok {
		return id.Name + "." + sel.Sel.Name
	}
	return sel.Sel.Name
}

func (in *interpreter) evalIndex(ix *ast.IndexExpr, e *env) interface{} {
	v, ok := in.evalIndexOk(ix, e)
	if !ok {
		in.fail("index out of range or key not found")
	}
	return v
}

// evalIndexOk is the comma-ok form used both by plain index expressions
// and by "v, ok := m[k]" assignments.
func (in *interpreter) evalIndexOk(ix *ast.IndexExpr, e *env) (interface{}, bool) {
	container := in.evalExpr(ix.X, e)
	key := in.evalExpr(ix.Index, e)

	switch c := container.(type) {
	case map[string]interface{}:
		k, ok := key.(string)
		if !ok {
			in.fail("map key must be a string, got %T", key)
		}
		v, found := c[k]
		if !found {
			if hint := suggestClosest(k, mapKeys(c)); hint != "" {
				in.fail("key %q not found in map, did you mean %q?", k, hint)
			}
		}
		return v, found
	case []interface{}:
		idx, ok := asFloat(key)
		if !ok {
			in.fail("list index must be numeric, got %T", key)
		}
		i := int(idx)
		if i < 0 || i >= len(c) {
			return nil, false
		}
		return c[i], true
	case string:
		idx, ok := asFloat(key)
		if !ok {
			in.fail("string index must be numeric, got %T", key)
		}
		i := int(idx)
		runes := []rune(c)
		if i < 0 || i >= len(runes) {
			return nil, false
		}
		return string(runes[i]), true
	default:
		in.fail("cannot index value of type %T", container)
		return nil, false
	}
}

func mapKeys(m map[string]interface{}) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}

func (in *interpreter) evalSlice(sl *ast.SliceExpr, e *env) interface{} {
	container := in.evalExpr(sl.X, e)

	length := 0
	switch c := container.(type) {
	case []interface{}:
		length = len(c)
	case string:
		length = len([]rune(c))
	default:
		in.fail("cannot slice value of type %T", container)
	}

	low := 0
	high := length
	if sl.Low != nil {
		f, ok := asFloat(in.evalExpr(sl.Low, e))
		if !ok {
			in.fail("slice bound must be numeric")
		}
		low = int(f)
	}
	if sl.High != nil {
		f, ok := asFloat(in.evalExpr(sl.High, e))
		if !ok {
			in.fail("slice bound must be numeric")
		}
		high = int(f)
	}
	if low < 0 || high > length || low > high {
		in.fail("slice bounds out of range [%d:%d] with length %d", low, high, length)
	}

	switch c := container.(type) {
	case []interface{}:
		out := make([]interface{}, high-low)
		copy(out, c[low:high])
		return out
	case string:
		return string([]rune(c)[low:high])
	}
	return nil
}

func (in *interpreter) evalCompositeLit(lit *ast.CompositeLit, e *env) interface{} {
	switch lit.Type.(type) {
	case *ast.ArrayType:
		out := make([]interface{}, 0, len(lit.Elts))
		for _, elt := range lit.Elts {
			out = append(out, in.evalExpr(elt, e))
		}
		return out
	case *ast.MapType:
		out := make(map[string]interface{}, len(lit.Elts))
		for _, elt := range lit.Elts {
			kv, ok := elt.(*ast.KeyValueExpr)
			if !ok {
				in.fail("map literal entries must be key: value pairs")
			}
			keyLit, ok := kv.Key.(*ast.BasicLit)
			var key string
			if ok && keyLit.Kind == token.STRING {
				key, _ = strconv.Unquote(keyLit.Value)
			} else {
				k := in.evalExpr(kv.Key, e)
				s, ok := k.(string)
				if !ok {
					in.fail("map keys must be strings")
				}
				key = s
			}
			out[key] = in.evalExpr(kv.Value, e)
		}
		return out
	default:
		in.fail("unsupported composite literal type %T", lit.Type)
		return nil
	}
}

func (in *interpreter) evalCall(call *ast.CallExpr, e *env) interface{} {
	switch fn := call.Fun.(type) {
	case *ast.Ident:
		return in.evalIdentCall(fn, call, e)
	case *ast.SelectorExpr:
		return in.evalSelectorCall(fn, call, e)
	default:
		in.fail("unsupported call target of type %T", call.Fun)
		return nil
	}
}

func (in *interpreter) evalArgs(call *ast.CallExpr, e *env) []interface{} {
	args := make([]interface{}, len(call.Args))
	for i, a := range call.Args {
		args[i] = in.evalExpr(a, e)
	}
	return args
}

func (in *interpreter) evalIdentCall(fn *ast.Ident, call *ast.CallExpr, e *env) interface{} {
	if fn.Name == "final_answer" {
		args := in.evalArgs(call, e)
		var value interface{}
		if len(args) > 0 {
			value = args[0]
		}
		panic(finalAnswerSignal{value: value})
	}

	args := in.evalArgs(call, e)

	if v, ok := e.get(fn.Name); ok {
		return in.invoke(v, args)
	}
	if t, ok := in.lookupTool(fn.Name); ok {
		v, err := in.callTool(t, args)
		if err != nil {
			in.fail("%v", err)
		}
		return v
	}
	if hint := suggestClosest(fn.Name, in.knownNames(e)); hint != "" {
		in.fail("undefined function %q, did you mean %q?", fn.Name, hint)
	}
	in.fail("undefined function %q", fn.Name)
	return nil
}

func (in *interpreter) evalSelectorCall(sel *ast.SelectorExpr, call *ast.CallExpr, e *env) interface{} {
	recv, ok := sel.X.(*ast.Ident)
	if !ok {
		in.fail("unsupported call target %q", selectorName(sel))
	}

	if recv.Name == "multi_tool_use" && sel.Sel.Name == "parallel" {
		return in.evalParallel(call, e)
	}

	if !in.evaluator.AuthorizedImports[recv.Name] {
		in.fail("namespace %q is not authorized", recv.Name)
	}
	ns, ok := builtinNamespaces[recv.Name]
	if !ok {
		in.fail("unknown namespace %q", recv.Name)
	}
	fn, ok := ns[sel.Sel.Name]
	if !ok {
		if hint := suggestClosest(sel.Sel.Name, namespaceNames(ns)); hint != "" {
			in.fail("%s has no function %q, did you mean %q?", recv.Name, sel.Sel.Name, hint)
		}
		in.fail("%s has no function %q", recv.Name, sel.Sel.Name)
	}

	args := in.evalArgs(call, e)
	v, err := fn(in, args)
	if err != nil {
		in.fail("%v", err)
	}
	return v
}

func namespaceNames(ns map[string]builtinFunc) []string {
	out := make([]string, 0, len(ns))
	for k := range ns {
		out = append(out, k)
	}
	return out
}

// evalParallel implements multi_tool_use.parallel, the sandbox's entry
// point for fanning a batch of tool calls out concurrently. It takes a
// single argument shaped like:
//
//	map[string]interface{}{"tool_uses": []interface{}{
//	    map[string]interface{}{"recipient_name": "search", "parameters": ...},
//	}}
//
// and returns {"results": [...], "total_calls", "successful_calls",
// "failed_calls"}. Each tool_use succeeds or fails independently — one
// call's error becomes its own results[i].error rather than aborting or
// discarding its siblings.
func (in *interpreter) evalParallel(call *ast.CallExpr, e *env) interface{} {
	if len(call.Args) != 1 {
		in.fail(`multi_tool_use.parallel expects a single {"tool_uses": [...]} argument`)
	}

	req, ok := in.evalExpr(call.Args[0], e).(map[string]interface{})
	if !ok {
		in.fail(`multi_tool_use.parallel argument must be a map with a "tool_uses" key`)
	}
	rawUses, _ := req["tool_uses"].([]interface{})

	recipients := make([]string, len(rawUses))
	calls := make([]func() (interface{}, error), len(rawUses))
	for i, raw := range rawUses {
		use, ok := raw.(map[string]interface{})
		if !ok {
			in.fail("multi_tool_use.parallel: tool_uses[%d] must be a map", i)
		}
		name, _ := use["recipient_name"].(string)
		params, _ := use["parameters"].(map[string]interface{})
		recipients[i] = name

		calls[i] = func() (interface{}, error) {
			t, ok := in.lookupTool(name)
			if !ok {
				return nil, fmt.Errorf("undefined tool %q", name)
			}
			return in.callToolNamed(t, params)
		}
	}

	outcomes := runParallel(in, calls)

	results := make([]interface{}, len(outcomes))
	successful := 0
	for i, outcome := range outcomes {
		entry := map[string]interface{}{
			"recipient_name": recipients[i],
			"success":        outcome.err == nil,
		}
		if outcome.err != nil {
			entry["error"] = outcome.err.Error()
		} else {
			entry["result"] = outcome.value
			successful++
		}
		results[i] = entry
	}

	return map[string]interface{}{
		"results":          results,
		"total_calls":      len(outcomes),
		"successful_calls": successful,
		"failed_calls":     len(outcomes) - successful,
	}
}

// invoke calls any first-class callable value: a closure, a builtinFunc,
// or a tool reference captured by identifier.
func (in *interpreter) invoke(callee interface{}, args []interface{}) interface{} {
	switch fn := callee.(type) {
	case closureValue:
		v, err := in.callClosure(fn, args)
		if err != nil {
			in.fail("%v", err)
		}
		return v
	case builtinFunc:
		v, err := fn(in, args)
		if err != nil {
			in.fail("%v", err)
		}
		return v
	case tools.Tool:
		v, err := in.callTool(fn, args)
		if err != nil {
			in.fail("%v", err)
		}
		return v
	default:
		in.fail("value of type %T is not callable", callee)
		return nil
	}
}

func (in *interpreter) callClosure(fn closureValue, args []interface{}) (interface{}, error) {
	call := fn.env.child()
	if fn.lit.Type.Params != nil {
		i := 0
		for _, field := range fn.lit.Type.Params.List {
			for _, name := range field.Names {
				var v interface{}
				if i < len(args) {
					v = args[i]
				}
				call.define(name.Name, v)
				i++
			}
		}
	}

	var result interface{}
	func() {
		defer func() {
			if r := recover(); r != nil {
				if ret, ok := r.(returnSignal); ok {
					result = ret.value
					return
				}
				panic(r)
			}
		}()
		in.execStmtList(fn.lit.Body.List, call)
	}()
	return result, nil
}
