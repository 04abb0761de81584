package tools

import (
	"context"
	"time"
)

// FinalAnswerTool is the distinguished terminal-signal tool. Code running
// inside the Sandboxed Code Evaluator calls final_answer(value) to end a
// step; the evaluator recognizes this tool by name and translates the call
// into a finalAnswerSignal panic rather than a normal return value, so Execute
// here only runs when the tool is invoked directly (e.g. a dry run outside
// the sandbox, or introspection) and simply echoes its argument back.
type FinalAnswerTool struct{}

func NewFinalAnswerTool() *FinalAnswerTool {
	return &FinalAnswerTool{}
}

func (t *FinalAnswerTool) Execute(ctx context.Context, args map[string]interface{}) (ToolResult, error) {
	start := time.Now()
	value, ok := args["answer"]
	if !ok {
		value = ""
	}

	return ToolResult{
		Success:       true,
		Output:        value,
		ToolName:      t.GetName(),
		ExecutionTime: time.Since(start),
	}, nil
}

// finalAnswerArgs is FinalAnswerTool's schema source: GetInfo reflects its
// struct tags into ToolInfo.Parameters via paramsFromSchema instead of a
// hand-built literal.
type finalAnswerArgs struct {
	Answer string `json:"answer" jsonschema:"required,description=The final answer to the task"`
}

func (t *FinalAnswerTool) GetInfo() ToolInfo {
	return ToolInfo{
		Name:        t.GetName(),
		Description: t.GetDescription(),
		Parameters:  paramsFromSchema[finalAnswerArgs](),
		ServerURL:   "local",
	}
}

func (t *FinalAnswerTool) GetName() string { return "final_answer" }

func (t *FinalAnswerTool) GetDescription() string {
	return "Provide the final answer to the task and end the current step."
}

// ThinkTool lets the model externalize a reasoning step into an observation
// without taking any real action. It performs no analysis of its own — the
// reasoning is the thought text itself, already visible to the model — and
// simply records the thought so it shows up in history like any other tool
// observation.
type ThinkTool struct{}

func NewThinkTool() *ThinkTool {
	return &ThinkTool{}
}

func (t *ThinkTool) Execute(ctx context.Context, args map[string]interface{}) (ToolResult, error) {
	start := time.Now()

	thought, _ := args["thought"].(string)
	if thought == "" {
		return ToolResult{
			Success:       false,
			Error:         "thought parameter is required",
			ToolName:      t.GetName(),
			ExecutionTime: time.Since(start),
		}, nil
	}

	category, _ := args["category"].(string)
	if category == "" {
		category = "analysis"
	}

	return ToolResult{
		Success:       true,
		Content:       thought,
		ToolName:      t.GetName(),
		ExecutionTime: time.Since(start),
		Metadata: map[string]interface{}{
			"category": category,
		},
	}, nil
}

// thinkArgs is ThinkTool's schema source, reflected the same way
// finalAnswerArgs is.
type thinkArgs struct {
	Thought  string `json:"thought" jsonschema:"required,description=The current reasoning step to record"`
	Category string `json:"category,omitempty" jsonschema:"description=Thought category,enum=analysis|planning|debugging|decision|reflection"`
}

func (t *ThinkTool) GetInfo() ToolInfo {
	return ToolInfo{
		Name:        t.GetName(),
		Description: t.GetDescription(),
		Parameters:  paramsFromSchema[thinkArgs](),
		ServerURL:   "local",
	}
}

func (t *ThinkTool) GetName() string { return "think" }

func (t *ThinkTool) GetDescription() string {
	return "Internal thinking tool for agent reasoning and reflection. Has no side effects."
}

var _ Tool = (*FinalAnswerTool)(nil)
var _ Tool = (*ThinkTool)(nil)
