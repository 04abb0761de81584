package tools

import (
	"github.com/invopop/jsonschema"
)

// paramsFromSchema reflects T's struct tags into a []ToolParameter via
// invopop/jsonschema, the same struct-tag-driven schema generator the
// teacher's pkg/tool/functiontool/schema.go uses for locally-defined
// function tools, generalized here to this runtime's ToolInfo.Parameters
// shape (a slice the Step Executor renders into its tool listing) instead
// of the map[string]any the teacher hands straight to an LLM function-call
// API.
//
// Supported tags, matching the teacher's generateSchema[T]:
//   - json:"name" / json:",omitempty" - parameter name / optional
//   - jsonschema:"required" - explicitly mark as required
//   - jsonschema:"description=..." - parameter description
//   - jsonschema:"enum=val1|val2" - allowed values
func paramsFromSchema[T any]() []ToolParameter {
	reflector := &jsonschema.Reflector{
		RequiredFromJSONSchemaTags: true,
		ExpandedStruct:             true,
		DoNotReference:             true,
	}
	schema := reflector.Reflect(new(T))

	required := make(map[string]bool, len(schema.Required))
	for _, name := range schema.Required {
		required[name] = true
	}

	var params []ToolParameter
	if schema.Properties == nil {
		return params
	}
	for pair := schema.Properties.Oldest(); pair != nil; pair = pair.Next() {
		params = append(params, paramFromProperty(pair.Key, pair.Value, required[pair.Key]))
	}
	return params
}

func paramFromProperty(name string, prop *jsonschema.Schema, required bool) ToolParameter {
	param := ToolParameter{
		Name:        name,
		Type:        prop.Type,
		Description: prop.Description,
		Required:    required,
		Default:     prop.Default,
	}
	for _, e := range prop.Enum {
		if s, ok := e.(string); ok {
			param.Enum = append(param.Enum, s)
		}
	}
	return param
}
