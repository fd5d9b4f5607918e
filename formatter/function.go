package formatter

import (
	"fmt"
	"sort"

	"github.com/restql/restql/ast"
	"github.com/restql/restql/sqlwrite"
)

// FormatFunctionCall compiles a stored-procedure invocation (POST/GET
// /rpc/<fn>, spec §6) into a statement shaped the same way a Select's is:
// one row carrying page_total and a JSON body, except a scalar-returning
// function's body is the bare return value rather than an array.
func FormatFunctionCall(node *ast.Node, d Dialect) (string, []any, error) {
	fn := node.Function
	if fn == nil {
		return "", nil, fmt.Errorf("formatter: function call node missing its FunctionCallSpec")
	}

	var args []sqlwrite.Snippet
	if fn.SingleObject {
		args = append(args, sqlwrite.ParamSnippet(sqlwrite.Param{Value: fn.Args[""], Type: "json"}))
	} else {
		keys := make([]string, 0, len(fn.Args))
		for k := range fn.Args {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			args = append(args, sqlwrite.Concat(
				d.quote(k), sqlwrite.Text(" := "), sqlwrite.ParamSnippet(sqlwrite.Param{Value: fn.Args[k], Type: "auto"}),
			))
		}
	}

	call := sqlwrite.Concat(d.qualified(fn.Schema, fn.Name), sqlwrite.Text("("), sqlwrite.Join(args, ", "), sqlwrite.Text(")"))

	var stmt sqlwrite.Snippet
	if fn.ReturnsScalar {
		stmt = sqlwrite.Concat(sqlwrite.Text("SELECT 1 AS page_total, "), call, sqlwrite.Text(" AS body"))
	} else {
		stmt = sqlwrite.Concat(
			sqlwrite.Text("SELECT COUNT(*) AS page_total, COALESCE("+d.JSONAggFn+"(r), "+d.EmptyArray+") AS body FROM "),
			call, sqlwrite.Text(" AS r"),
		)
	}

	sql, params := sqlwrite.Build(stmt, d.Placeholder)
	return sql, params, nil
}
