package formatter

import (
	"github.com/restql/restql/ast"
	"github.com/restql/restql/catalog"
	"github.com/restql/restql/sqlwrite"
)

// FormatSelect compiles a Select node into one statement whose single
// result row carries the page's row count, optionally the unfiltered-by-
// limit total, the JSON-array body, and (when the dialect supports it) the
// response-header/status GUC overrides (spec §4.6, §4.7).
func FormatSelect(node *ast.Node, d Dialect, cat *catalog.Catalog, countExact bool) (string, []any, error) {
	inner, err := compileSelectNode(node, &ctx{dialect: d, cat: cat}, nil)
	if err != nil {
		return "", nil, err
	}

	var cols []sqlwrite.Snippet
	cols = append(cols, sqlwrite.Text("COUNT(*) AS page_total"))

	if countExact {
		unlimited := *node
		unlimited.Limit = nil
		unlimited.Offset = nil
		totalInner, err := compileSelectNode(&unlimited, &ctx{dialect: d, cat: cat}, nil)
		if err != nil {
			return "", nil, err
		}
		cols = append(cols, sqlwrite.Concat(
			sqlwrite.Text("(SELECT COUNT(*) FROM "), totalInner, sqlwrite.Text(" AS counted) AS total_result_set"),
		))
	} else {
		cols = append(cols, sqlwrite.Text("NULL AS total_result_set"))
	}

	cols = append(cols, sqlwrite.Concat(
		sqlwrite.Text("COALESCE("+d.JSONAggFn+"(_row), "+d.EmptyArray+") AS body"),
	))

	if d.GUCExpr != nil {
		cols = append(cols, sqlwrite.Concat(d.GUCExpr("response.headers"), sqlwrite.Text(" AS response_headers")))
		cols = append(cols, sqlwrite.Concat(d.GUCExpr("response.status"), sqlwrite.Text(" AS response_status")))
	}

	stmt := sqlwrite.Concat(
		sqlwrite.Text("SELECT "), sqlwrite.Join(cols, ", "),
		sqlwrite.Text(" FROM "), inner, sqlwrite.Text(" AS page"),
	)
	sql, params := sqlwrite.Build(stmt, d.Placeholder)
	return sql, params, nil
}
