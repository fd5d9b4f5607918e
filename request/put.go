package request

import (
	"fmt"

	"github.com/restql/restql/apperr"
	"github.com/restql/restql/ast"
	"github.com/restql/restql/catalog"
)

// validatePut enforces spec §4.4 step 7: a PUT's filter must be exactly
// equality on every primary-key column — no more, no fewer, no other
// operator or connective — and the payload must be a single object whose
// PK values agree with the filter.
func validatePut(node *ast.Node, obj *catalog.Object) error {
	const shapeErr = "Filters must include all and only primary key columns with 'eq' operators"

	pk := obj.PrimaryKey()
	eq := collectTopLevelEq(node.Where)
	if len(eq) != len(pk) {
		return apperr.PutMismatch(shapeErr)
	}
	for _, col := range pk {
		if _, ok := eq[col]; !ok {
			return apperr.PutMismatch(shapeErr)
		}
	}

	if node.Payload == nil || len(node.Payload.Rows) != 1 {
		return apperr.PutMismatch("Payload values do not match URL in primary key column(s)")
	}
	row := node.Payload.Rows[0]
	for col, val := range eq {
		rowVal, ok := row[col]
		if !ok {
			continue // column absent from the payload defers to the URL value
		}
		if fmt.Sprint(rowVal) != fmt.Sprint(val) {
			return apperr.PutMismatch("Payload values do not match URL in primary key column(s)")
		}
	}
	return nil
}

// collectTopLevelEq walks an unnegated top-level AND conjunction (or a
// single leaf) and returns the columns compared with a plain, unnegated Eq.
// Anything else anywhere in the tree — Or, a nested group, a non-eq op, a
// negation, an embedded-column reference — invalidates the whole shape, so
// callers see an empty map rather than a partial match.
func collectTopLevelEq(where *ast.Filter) map[string]any {
	if where == nil {
		return map[string]any{}
	}
	if !where.IsLogic() {
		if where.Op == ast.Eq && !where.Negated && where.Field.Table == "" {
			return map[string]any{where.Field.Name: where.Value}
		}
		return map[string]any{}
	}
	if where.Connective != ast.And || where.Negated {
		return map[string]any{}
	}
	out := map[string]any{}
	for _, c := range where.Children {
		if c.IsLogic() || c.Op != ast.Eq || c.Negated || c.Field.Table != "" {
			return map[string]any{}
		}
		out[c.Field.Name] = c.Value
	}
	return out
}
