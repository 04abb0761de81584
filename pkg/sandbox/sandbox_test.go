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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kpekel/agentrun/pkg/agentstate"
	"github.com/kpekel/agentrun/pkg/tools"
)

// stubTool is a minimal tools.Tool used only by these tests; Execute
// delegates to fn, so each helper below scripts its own behavior.
type stubTool struct {
	name string
	fn   func(args map[string]interface{}) (tools.ToolResult, error)
}

func (t *stubTool) GetInfo() tools.ToolInfo {
	return tools.ToolInfo{
		Name: t.name,
		Parameters: []tools.ToolParameter{
			{Name: "a", Type: "number"},
			{Name: "b", Type: "number"},
		},
	}
}

func (t *stubTool) Execute(ctx context.Context, args map[string]interface{}) (tools.ToolResult, error) {
	return t.fn(args)
}

func (t *stubTool) GetName() string        { return t.name }
func (t *stubTool) GetDescription() string { return "test stub" }

func addTool() tools.Tool {
	return &stubTool{
		name: "add",
		fn: func(args map[string]interface{}) (tools.ToolResult, error) {
			a, _ := args["a"].(float64)
			if ai, ok := args["a"].(int64); ok {
				a = float64(ai)
			}
			b, _ := args["b"].(float64)
			if bi, ok := args["b"].(int64); ok {
				b = float64(bi)
			}
			return tools.ToolResult{Success: true, Output: a + b, ToolName: "add"}, nil
		},
	}
}

func failingTool() tools.Tool {
	return &stubTool{
		name: "fail_always",
		fn: func(args map[string]interface{}) (tools.ToolResult, error) {
			return tools.ToolResult{Success: false, Error: "boom", ToolName: "fail_always"}, nil
		},
	}
}

func newTestState() *agentstate.State {
	return agentstate.New("do the thing", &agentstate.Input{Query: "do the thing"})
}

func TestEvaluate_ConstantFinalAnswer(t *testing.T) {
	e := NewEvaluator()
	out := e.Evaluate(context.Background(), `final_answer("42")`, nil, nil, newTestState())
	require.NoError(t, out.Err)
	assert.True(t, out.FinalAnswer)
	assert.Equal(t, "42", out.Value)
}

func TestEvaluate_ToolAssistedArithmetic(t *testing.T) {
	e := NewEvaluator()
	static := map[string]tools.Tool{"add": addTool()}
	src := `
sum := add(2, 3)
final_answer(sum)
`
	out := e.Evaluate(context.Background(), src, static, nil, newTestState())
	require.NoError(t, out.Err)
	assert.True(t, out.FinalAnswer)
	assert.Equal(t, 5.0, out.Value)
}

func TestEvaluate_ParallelToolUse(t *testing.T) {
	e := NewEvaluator()
	static := map[string]tools.Tool{"add": addTool(), "fail_always": failingTool()}
	src := `
answer := multi_tool_use.parallel(map[string]interface{}{
	"tool_uses": []interface{}{
		map[string]interface{}{"recipient_name": "add", "parameters": map[string]interface{}{"a": 1.0, "b": 1.0}},
		map[string]interface{}{"recipient_name": "add", "parameters": map[string]interface{}{"a": 2.0, "b": 2.0}},
		map[string]interface{}{"recipient_name": "fail_always", "parameters": map[string]interface{}{}},
	},
})
final_answer(answer)
`
	out := e.Evaluate(context.Background(), src, static, nil, newTestState())
	require.NoError(t, out.Err)
	envelope, ok := out.Value.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, 3, envelope["total_calls"])
	assert.Equal(t, 2, envelope["successful_calls"])
	assert.Equal(t, 1, envelope["failed_calls"])

	results, ok := envelope["results"].([]interface{})
	require.True(t, ok)
	require.Len(t, results, 3)

	first, ok := results[0].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "add", first["recipient_name"])
	assert.Equal(t, true, first["success"])
	assert.Equal(t, 2.0, first["result"])

	last, ok := results[2].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "fail_always", last["recipient_name"])
	assert.Equal(t, false, last["success"])
	assert.NotEmpty(t, last["error"])
}

func TestEvaluate_ParallelToolUse_Empty(t *testing.T) {
	e := NewEvaluator()
	src := `
answer := multi_tool_use.parallel(map[string]interface{}{"tool_uses": []interface{}{}})
final_answer(answer)
`
	out := e.Evaluate(context.Background(), src, nil, nil, newTestState())
	require.NoError(t, out.Err)
	envelope, ok := out.Value.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, 0, envelope["total_calls"])
	assert.Equal(t, 0, envelope["successful_calls"])
	assert.Equal(t, 0, envelope["failed_calls"])
	assert.Equal(t, []interface{}{}, envelope["results"])
}

func TestEvaluate_ErrorRecoveryFromFailingTool(t *testing.T) {
	e := NewEvaluator()
	static := map[string]tools.Tool{"fail_always": failingTool()}
	src := `
result, err := fail_always(1, 2)
if err != nil {
	final_answer("recovered")
}
final_answer(result)
`
	out := e.Evaluate(context.Background(), src, static, nil, newTestState())
	require.NoError(t, out.Err)
	assert.True(t, out.FinalAnswer)
	assert.Equal(t, "recovered", out.Value)
}

func TestEvaluate_LoopAndMutation(t *testing.T) {
	e := NewEvaluator()
	src := `
total := 0
for i := 0; i < 5; i++ {
	total += i
}
final_answer(total)
`
	out := e.Evaluate(context.Background(), src, nil, nil, newTestState())
	require.NoError(t, out.Err)
	assert.Equal(t, int64(10), out.Value)
}

func TestEvaluate_WhileStyleLoopIterationCap(t *testing.T) {
	e := NewEvaluator()
	e.MaxWhileIterations = 10
	src := `
i := 0
for i < 1000000 {
	i++
}
final_answer(i)
`
	out := e.Evaluate(context.Background(), src, nil, nil, newTestState())
	require.Error(t, out.Err)
}

func TestEvaluate_OperationBudgetExhaustion(t *testing.T) {
	e := NewEvaluator()
	e.MaxOperations = 20
	src := `
total := 0
for i := 0; i < 1000; i++ {
	total += i
}
final_answer(total)
`
	out := e.Evaluate(context.Background(), src, nil, nil, newTestState())
	require.Error(t, out.Err)
}

func TestEvaluate_UndefinedNameSuggestsClosest(t *testing.T) {
	e := NewEvaluator()
	static := map[string]tools.Tool{"add": addTool()}
	out := e.Evaluate(context.Background(), `final_answer(adt(1, 2))`, static, nil, newTestState())
	require.Error(t, out.Err)
	assert.Contains(t, out.Err.Error(), `did you mean "add"`)
}

func TestEvaluate_DunderAccessDenied(t *testing.T) {
	e := NewEvaluator()
	out := e.Evaluate(context.Background(), `final_answer(__class__)`, nil, nil, newTestState())
	require.Error(t, out.Err)
	assert.Contains(t, out.Err.Error(), "not permitted")
}

func TestEvaluate_MapFuzzyKeyHint(t *testing.T) {
	e := NewEvaluator()
	src := `
m := map[string]interface{}{"result": 1}
x := m["resutl"]
final_answer(x)
`
	out := e.Evaluate(context.Background(), src, nil, nil, newTestState())
	require.Error(t, out.Err)
	assert.Contains(t, out.Err.Error(), `did you mean "result"`)
}

func TestEvaluate_NamespaceCall(t *testing.T) {
	e := NewEvaluator()
	out := e.Evaluate(context.Background(), `final_answer(strings.ToUpper("go"))`, nil, nil, newTestState())
	require.NoError(t, out.Err)
	assert.Equal(t, "GO", out.Value)
}

func TestEvaluate_PrintCapturedAsOutput(t *testing.T) {
	e := NewEvaluator()
	src := `
print("hello")
final_answer("done")
`
	out := e.Evaluate(context.Background(), src, nil, nil, newTestState())
	require.NoError(t, out.Err)
	assert.Contains(t, out.PrintOutput, "hello")
}

func TestEvaluate_SyntaxErrorReturnsInterpreterError(t *testing.T) {
	e := NewEvaluator()
	out := e.Evaluate(context.Background(), `this is not valid Go`, nil, nil, newTestState())
	require.Error(t, out.Err)
}

func TestEvaluate_CancellationStopsEvaluation(t *testing.T) {
	e := NewEvaluator()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	src := `
total := 0
for i := 0; i < 1000000; i++ {
	total += i
}
final_answer(total)
`
	out := e.Evaluate(ctx, src, nil, nil, newTestState())
	require.Error(t, out.Err)
}
