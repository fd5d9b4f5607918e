package request

import (
	"encoding/json"

	"github.com/restql/restql/apperr"
	"github.com/restql/restql/ast"
)

// ParseFunctionCall builds a FunctionCall node for POST/GET /rpc/<fn> (spec
// §6). Args come from the JSON body, a flat object of argument values,
// unless Prefer: params=single-object was set, in which case the whole
// decoded body becomes the function's one parameter.
func ParseFunctionCall(schema, name string, body []byte, prefer Prefer, returnsScalar bool) (*ast.Node, error) {
	args := map[string]any{}
	switch {
	case prefer.SingleObject:
		var v any
		if len(body) > 0 {
			if err := json.Unmarshal(body, &v); err != nil {
				return nil, apperr.Parse(err.Error(), 1, "JSON")
			}
		}
		args = map[string]any{"": v}
	case len(body) > 0:
		if err := json.Unmarshal(body, &args); err != nil {
			return nil, apperr.Parse(err.Error(), 1, "JSON object")
		}
	}

	return &ast.Node{
		Kind: ast.FunctionCall,
		Function: &ast.FunctionCallSpec{
			Schema:        schema,
			Name:          name,
			Args:          args,
			SingleObject:  prefer.SingleObject,
			ReturnsScalar: returnsScalar,
		},
	}, nil
}
