package formatter

import (
	"fmt"

	"github.com/restql/restql/ast"
	"github.com/restql/restql/catalog"
	"github.com/restql/restql/request"
)

// Format compiles an authorized Abstract Request into one SQL statement,
// dispatching on node kind. Insert/Update/Delete nodes require a dialect
// with Dialect.SupportsReturning set (currently only Postgres); every other
// dialect's caller must drive FormatMutationTwoStage itself instead, since
// that path returns a stage-1 statement plus a stage-2 builder rather than
// a single (sql, params) pair.
func Format(node *ast.Node, d Dialect, cat *catalog.Catalog, prefer request.Prefer) (string, []any, error) {
	switch node.Kind {
	case ast.Select:
		return FormatSelect(node, d, cat, prefer.CountExact)
	case ast.FunctionCall:
		return FormatFunctionCall(node, d)
	case ast.Insert, ast.Update, ast.Delete:
		if !d.SupportsReturning {
			return "", nil, fmt.Errorf("formatter: dialect %s must use FormatMutationTwoStage for %s nodes", d.Name, node.Kind)
		}
		return FormatMutation(node, d, cat)
	default:
		return "", nil, fmt.Errorf("formatter: unknown node kind")
	}
}
