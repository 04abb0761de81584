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
	"math"
	"strconv"
	"strings"

	"golang.org/x/sync/errgroup"
)

// builtinFunc is the type every free function available to sandboxed code
// carries, whether a top-level name (print, len) or a namespace member
// (math.Sqrt). Storing these as ordinary env values lets sandboxed code
// pass them around like any other first-class value.
type builtinFunc func(in *interpreter, args []interface{}) (interface{}, error)

// builtinFuncs are the top-level names available without a namespace
// prefix, deliberately small: the restricted dialect favors registered
// tools over a large standard-library surface.
var builtinFuncs = map[string]builtinFunc{
	"print":  builtinPrint,
	"len":    builtinLen,
	"str":    builtinStr,
	"int":    builtinInt,
	"float":  builtinFloat,
	"append": builtinAppend,
	"abs":    builtinAbs,
	"range":  builtinRangeValues,
}

// builtinNamespaces backs selector-call resolution for the authorized
// import whitelist (math.Sqrt(x), strings.ToUpper(s), ...); there is no
// real import statement in the sandboxed dialect, so these are the only
// meaning a "namespace.Name" selector call can have.
var builtinNamespaces = map[string]map[string]builtinFunc{
	"math": {
		"Sqrt":  wrap1f(math.Sqrt),
		"Abs":   wrap1f(math.Abs),
		"Floor": wrap1f(math.Floor),
		"Ceil":  wrap1f(math.Ceil),
		"Pow":   wrap2f(math.Pow),
		"Max":   wrap2f(math.Max),
		"Min":   wrap2f(math.Min),
	},
	"strings": {
		"ToUpper":    wrap1s(strings.ToUpper),
		"ToLower":    wrap1s(strings.ToLower),
		"TrimSpace":  wrap1s(strings.TrimSpace),
		"Contains":   builtinStringsContains,
		"HasPrefix":  builtinStringsHasPrefix,
		"HasSuffix":  builtinStringsHasSuffix,
		"Split":      builtinStringsSplit,
		"Join":       builtinStringsJoin,
		"Replace":    builtinStringsReplace,
		"Fields":     builtinStringsFields,
		"Index":      builtinStringsIndex,
		"Repeat":     builtinStringsRepeat,
		"TrimPrefix": builtinStringsTrimPrefix,
		"TrimSuffix": builtinStringsTrimSuffix,
	},
	"strconv": {
		"Itoa":      builtinStrconvItoa,
		"Atoi":      builtinStrconvAtoi,
		"FormatInt": builtinStrconvFormatInt,
	},
}

func installBuiltins(root *env, in *interpreter) {
	for name, fn := range builtinFuncs {
		root.define(name, fn)
	}
}

func asFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int64:
		return float64(n), true
	case int:
		return float64(n), true
	}
	return 0, false
}

func asString(v interface{}) (string, bool) {
	s, ok := v.(string)
	return s, ok
}

func toDisplayString(v interface{}) string {
	switch s := v.(type) {
	case string:
		return s
	case nil:
		return "<nil>"
	default:
		return fmt.Sprintf("%v", s)
	}
}

func builtinPrint(in *interpreter, args []interface{}) (interface{}, error) {
	parts := make([]string, len(args))
	for i, a := range args {
		parts[i] = toDisplayString(a)
	}
	line := strings.Join(parts, " ")
	if in.out.Len()+len(line) > in.evaluator.MaxOutputLen {
		return nil, fmt.Errorf("print output exceeds maximum length of %d bytes", in.evaluator.MaxOutputLen)
	}
	in.out.WriteString(line)
	in.out.WriteByte('\n')
	return nil, nil
}

func builtinLen(in *interpreter, args []interface{}) (interface{}, error) {
	if len(args) != 1 {
		return nil, fmt.Errorf("len: expected 1 argument, got %d", len(args))
	}
	switch v := args[0].(type) {
	case string:
		return int64(len(v)), nil
	case []interface{}:
		return int64(len(v)), nil
	case map[string]interface{}:
		return int64(len(v)), nil
	default:
		return nil, fmt.Errorf("len: unsupported type %T", v)
	}
}

func builtinStr(in *interpreter, args []interface{}) (interface{}, error) {
	if len(args) != 1 {
		return nil, fmt.Errorf("str: expected 1 argument, got %d", len(args))
	}
	return toDisplayString(args[0]), nil
}

func builtinInt(in *interpreter, args []interface{}) (interface{}, error) {
	if len(args) != 1 {
		return nil, fmt.Errorf("int: expected 1 argument, got %d", len(args))
	}
	switch v := args[0].(type) {
	case float64:
		return int64(v), nil
	case int64:
		return v, nil
	case string:
		n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("int: cannot convert %q", v)
		}
		return n, nil
	default:
		return nil, fmt.Errorf("int: unsupported type %T", v)
	}
}

func builtinFloat(in *interpreter, args []interface{}) (interface{}, error) {
	if len(args) != 1 {
		return nil, fmt.Errorf("float: expected 1 argument, got %d", len(args))
	}
	switch v := args[0].(type) {
	case float64:
		return v, nil
	case int64:
		return float64(v), nil
	case string:
		n, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return nil, fmt.Errorf("float: cannot convert %q", v)
		}
		return n, nil
	default:
		return nil, fmt.Errorf("float: unsupported type %T", v)
	}
}

func builtinAppend(in *interpreter, args []interface{}) (interface{}, error) {
	if len(args) < 1 {
		return nil, fmt.Errorf("append: expected at least 1 argument")
	}
	slice, ok := args[0].([]interface{})
	if !ok {
		return nil, fmt.Errorf("append: first argument must be a list, got %T", args[0])
	}
	out := make([]interface{}, len(slice), len(slice)+len(args)-1)
	copy(out, slice)
	out = append(out, args[1:]...)
	return out, nil
}

func builtinAbs(in *interpreter, args []interface{}) (interface{}, error) {
	if len(args) != 1 {
		return nil, fmt.Errorf("abs: expected 1 argument, got %d", len(args))
	}
	f, ok := asFloat(args[0])
	if !ok {
		return nil, fmt.Errorf("abs: unsupported type %T", args[0])
	}
	return math.Abs(f), nil
}

// builtinRangeValues exists so "range" resolves to something if ever used
// as a plain call rather than inside a for-range statement; real
// iteration is handled directly by the statement evaluator.
func builtinRangeValues(in *interpreter, args []interface{}) (interface{}, error) {
	return nil, fmt.Errorf("range is only valid in a for ... range statement")
}

func wrap1f(f func(float64) float64) builtinFunc {
	return func(in *interpreter, args []interface{}) (interface{}, error) {
		if len(args) != 1 {
			return nil, fmt.Errorf("expected 1 numeric argument, got %d", len(args))
		}
		x, ok := asFloat(args[0])
		if !ok {
			return nil, fmt.Errorf("expected numeric argument, got %T", args[0])
		}
		return f(x), nil
	}
}

func wrap2f(f func(float64, float64) float64) builtinFunc {
	return func(in *interpreter, args []interface{}) (interface{}, error) {
		if len(args) != 2 {
			return nil, fmt.Errorf("expected 2 numeric arguments, got %d", len(args))
		}
		x, ok1 := asFloat(args[0])
		y, ok2 := asFloat(args[1])
		if !ok1 || !ok2 {
			return nil, fmt.Errorf("expected numeric arguments")
		}
		return f(x, y), nil
	}
}

func wrap1s(f func(string) string) builtinFunc {
	return func(in *interpreter, args []interface{}) (interface{}, error) {
		if len(args) != 1 {
			return nil, fmt.Errorf("expected 1 string argument, got %d", len(args))
		}
		s, ok := asString(args[0])
		if !ok {
			return nil, fmt.Errorf("expected string argument, got %T", args[0])
		}
		return f(s), nil
	}
}

func builtinStringsContains(in *interpreter, args []interface{}) (interface{}, error) {
	if len(args) != 2 {
		return nil, fmt.Errorf("strings.Contains: expected 2 arguments")
	}
	s, _ := asString(args[0])
	sub, _ := asString(args[1])
	return strings.Contains(s, sub), nil
}

func builtinStringsHasPrefix(in *interpreter, args []interface{}) (interface{}, error) {
	if len(args) != 2 {
		return nil, fmt.Errorf("strings.HasPrefix: expected 2 arguments")
	}
	s, _ := asString(args[0])
	p, _ := asString(args[1])
	return strings.HasPrefix(s, p), nil
}

func builtinStringsHasSuffix(in *interpreter, args []interface{}) (interface{}, error) {
	if len(args) != 2 {
		return nil, fmt.Errorf("strings.HasSuffix: expected 2 arguments")
	}
	s, _ := asString(args[0])
	p, _ := asString(args[1])
	return strings.HasSuffix(s, p), nil
}

func builtinStringsTrimPrefix(in *interpreter, args []interface{}) (interface{}, error) {
	if len(args) != 2 {
		return nil, fmt.Errorf("strings.TrimPrefix: expected 2 arguments")
	}
	s, _ := asString(args[0])
	p, _ := asString(args[1])
	return strings.TrimPrefix(s, p), nil
}

func builtinStringsTrimSuffix(in *interpreter, args []interface{}) (interface{}, error) {
	if len(args) != 2 {
		return nil, fmt.Errorf("strings.TrimSuffix: expected 2 arguments")
	}
	s, _ := asString(args[0])
	p, _ := asString(args[1])
	return strings.TrimSuffix(s, p), nil
}

func builtinStringsSplit(in *interpreter, args []interface{}) (interface{}, error) {
	if len(args) != 2 {
		return nil, fmt.Errorf("strings.Split: expected 2 arguments")
	}
	s, _ := asString(args[0])
	sep, _ := asString(args[1])
	parts := strings.Split(s, sep)
	out := make([]interface{}, len(parts))
	for i, p := range parts {
		out[i] = p
	}
	return out, nil
}

func builtinStringsFields(in *interpreter, args []interface{}) (interface{}, error) {
	if len(args) != 1 {
		return nil, fmt.Errorf("strings.Fields: expected 1 argument")
	}
	s, _ := asString(args[0])
	parts := strings.Fields(s)
	out := make([]interface{}, len(parts))
	for i, p := range parts {
		out[i] = p
	}
	return out, nil
}

func builtinStringsJoin(in *interpreter, args []interface{}) (interface{}, error) {
	if len(args) != 2 {
		return nil, fmt.Errorf("strings.Join: expected 2 arguments")
	}
	list, ok := args[0].([]interface{})
	if !ok {
		return nil, fmt.Errorf("strings.Join: first argument must be a list")
	}
	sep, _ := asString(args[1])
	parts := make([]string, len(list))
	for i, v := range list {
		parts[i] = toDisplayString(v)
	}
	return strings.Join(parts, sep), nil
}

func builtinStringsReplace(in *interpreter, args []interface{}) (interface{}, error) {
	if len(args) != 4 {
		return nil, fmt.Errorf("strings.Replace: expected 4 arguments (s, old, new, n)")
	}
	s, _ := asString(args[0])
	old, _ := asString(args[1])
	repl, _ := asString(args[2])
	n, _ := asFloat(args[3])
	return strings.Replace(s, old, repl, int(n)), nil
}

func builtinStringsIndex(in *interpreter, args []interface{}) (interface{}, error) {
	if len(args) != 2 {
		return nil, fmt.Errorf("strings.Index: expected 2 arguments")
	}
	s, _ := asString(args[0])
	sub, _ := asString(args[1])
	return int64(strings.Index(s, sub)), nil
}

func builtinStringsRepeat(in *interpreter, args []interface{}) (interface{}, error) {
	if len(args) != 2 {
		return nil, fmt.Errorf("strings.Repeat: expected 2 arguments")
	}
	s, _ := asString(args[0])
	n, _ := asFloat(args[1])
	return strings.Repeat(s, int(n)), nil
}

func builtinStrconvItoa(in *interpreter, args []interface{}) (interface{}, error) {
	if len(args) != 1 {
		return nil, fmt.Errorf("strconv.Itoa: expected 1 argument")
	}
	n, ok := asFloat(args[0])
	if !ok {
		return nil, fmt.Errorf("strconv.Itoa: expected numeric argument")
	}
	return strconv.Itoa(int(n)), nil
}

func builtinStrconvAtoi(in *interpreter, args []interface{}) (interface{}, error) {
	if len(args) != 1 {
		return nil, fmt.Errorf("strconv.Atoi: expected 1 argument")
	}
	s, ok := asString(args[0])
	if !ok {
		return nil, fmt.Errorf("strconv.Atoi: expected string argument")
	}
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return nil, fmt.Errorf("strconv.Atoi: %w", err)
	}
	return int64(n), nil
}

func builtinStrconvFormatInt(in *interpreter, args []interface{}) (interface{}, error) {
	if len(args) != 2 {
		return nil, fmt.Errorf("strconv.FormatInt: expected 2 arguments")
	}
	n, _ := asFloat(args[0])
	base, _ := asFloat(args[1])
	return strconv.FormatInt(int64(n), int(base)), nil
}

// callOutcome is one call's result out of a runParallel batch.
type callOutcome struct {
	value interface{}
	err   error
}

// runParallel runs each call concurrently via an errgroup, writing into a
// pre-sized slice indexed by position so results line up with the caller's
// original order regardless of completion order. Unlike a typical errgroup
// user, every goroutine here always returns a nil error to the group: the
// call's own success or failure is captured in its callOutcome instead, so
// one failing call never cancels or discards its siblings — multi_tool_use
// .parallel needs per-call accounting, not first-error abort.
func runParallel(in *interpreter, calls []func() (interface{}, error)) []callOutcome {
	outcomes := make([]callOutcome, len(calls))
	g, _ := errgroup.WithContext(in.ctx)
	for i, call := range calls {
		i, call := i, call
		g.Go(func() error {
			v, err := call()
			outcomes[i] = callOutcome{value: v, err: err}
			return nil
		})
	}
	_ = g.Wait()
	return outcomes
}
