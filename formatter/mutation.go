package formatter

import (
	"fmt"
	"sort"

	"github.com/restql/restql/ast"
	"github.com/restql/restql/catalog"
	"github.com/restql/restql/sqlwrite"
)

// FormatMutation compiles an Insert/Update/Delete node for a dialect whose
// RETURNING clause can be consumed by a wrapping query (spec §4.6). Only
// Postgres sets Dialect.SupportsReturning; every other dialect must call
// FormatMutationTwoStage instead.
func FormatMutation(node *ast.Node, d Dialect, cat *catalog.Catalog) (string, []any, error) {
	if !d.SupportsReturning {
		return "", nil, fmt.Errorf("formatter: dialect %s requires the two-stage mutation path", d.Name)
	}
	obj, ok := cat.Object(node.From.Schema, node.From.Table)
	if !ok {
		return "", nil, fmt.Errorf("formatter: unknown relation %s.%s", node.From.Schema, node.From.Table)
	}

	core, err := compileMutationCore(node, d, obj)
	if err != nil {
		return "", nil, err
	}
	rowExpr, err := compileReturningRow(node, d, "mutated")
	if err != nil {
		return "", nil, err
	}

	stmt := sqlwrite.Concat(
		sqlwrite.Text("WITH mutated AS ("), core, sqlwrite.Text(") "),
		sqlwrite.Text("SELECT COUNT(*) AS page_total, COALESCE("+d.JSONAggFn+"("), rowExpr,
		sqlwrite.Text("), "+d.EmptyArray+") AS body FROM mutated"),
	)
	sql, params := sqlwrite.Build(stmt, d.Placeholder)
	return sql, params, nil
}

// FormatMutationTwoStage compiles the stage-1 statement for a dialect that
// can't consume RETURNING inside a wrapping query (every dialect besides
// Postgres, spec §4.6 "two-stage mutation"). Stage 1 commits the mutation;
// the caller is responsible for recovering which primary-key values it
// affected (the driver's last-insert-id for a single-row insert, or simply
// re-reading node.Filter's own eq-on-pk values for an update/delete whose
// shape already names them) and passing them to the returned stage2
// builder, which produces the ordinary Select statement — embeds included
// — that shapes the JSON response.
func FormatMutationTwoStage(node *ast.Node, d Dialect, cat *catalog.Catalog) (stage1SQL string, stage1Params []any, stage2 func(pkValues []map[string]any) (string, []any, error), err error) {
	obj, ok := cat.Object(node.From.Schema, node.From.Table)
	if !ok {
		return "", nil, nil, fmt.Errorf("formatter: unknown relation %s.%s", node.From.Schema, node.From.Table)
	}
	if len(obj.PrimaryKey()) == 0 {
		return "", nil, nil, fmt.Errorf("formatter: %s has no primary key, required for the two-stage mutation path", obj.Name)
	}

	core, err := compileMutationCore(node, d, obj)
	if err != nil {
		return "", nil, nil, err
	}
	sql, params := sqlwrite.Build(core, d.Placeholder)

	stage2 = func(pkValues []map[string]any) (string, []any, error) {
		if len(pkValues) == 0 {
			return fmt.Sprintf("SELECT 0 AS page_total, %s AS body", d.EmptyArray), nil, nil
		}
		keyed := keyedSelectNode(node, obj, pkValues)
		inner, err := compileSelectNode(keyed, &ctx{dialect: d, cat: cat}, nil)
		if err != nil {
			return "", nil, err
		}
		stmt := sqlwrite.Concat(
			sqlwrite.Text("SELECT COUNT(*) AS page_total, COALESCE("+d.JSONAggFn+"(_row), "+d.EmptyArray+") AS body FROM "),
			inner, sqlwrite.Text(" AS page"),
		)
		sql, params := sqlwrite.Build(stmt, d.Placeholder)
		return sql, params, nil
	}

	return sql, params, stage2, nil
}

func keyedSelectNode(node *ast.Node, obj *catalog.Object, pkValues []map[string]any) *ast.Node {
	var rowFilters []*ast.Filter
	for _, row := range pkValues {
		var eqs []*ast.Filter
		for _, c := range obj.PrimaryKey() {
			eqs = append(eqs, &ast.Filter{Field: ast.Field{Name: c}, Op: ast.Eq, Value: row[c]})
		}
		rowFilters = append(rowFilters, ast.And_(eqs...))
	}
	return &ast.Node{
		Kind:       ast.Select,
		From:       node.From,
		Select:     node.Returning,
		Where:      ast.Or_(rowFilters...),
		SubSelects: node.SubSelects,
	}
}

func compileMutationCore(node *ast.Node, d Dialect, obj *catalog.Object) (sqlwrite.Snippet, error) {
	switch node.Kind {
	case ast.Insert:
		return compileInsertCore(node, d, obj)
	case ast.Update:
		return compileUpdateCore(node, d, obj)
	case ast.Delete:
		return compileDeleteCore(node, d, obj)
	default:
		return sqlwrite.Snippet{}, fmt.Errorf("formatter: node kind %s is not a mutation", node.Kind)
	}
}

func compileInsertCore(node *ast.Node, d Dialect, obj *catalog.Object) (sqlwrite.Snippet, error) {
	if node.Payload == nil || len(node.Payload.Rows) == 0 {
		return sqlwrite.Snippet{}, fmt.Errorf("formatter: insert requires at least one payload row")
	}
	cols := payloadColumns(node.Payload)

	var rowSnips []sqlwrite.Snippet
	for _, row := range node.Payload.Rows {
		var vals []sqlwrite.Snippet
		for _, c := range cols {
			vals = append(vals, sqlwrite.ParamSnippet(sqlwrite.Param{Value: row[c], Type: "auto"}))
		}
		rowSnips = append(rowSnips, sqlwrite.Concat(sqlwrite.Text("("), sqlwrite.Join(vals, ", "), sqlwrite.Text(")")))
	}

	var colSnips []sqlwrite.Snippet
	for _, c := range cols {
		colSnips = append(colSnips, d.quote(c))
	}

	stmt := sqlwrite.Concat(
		sqlwrite.Text("INSERT INTO "), d.qualified(obj.Schema, obj.Name),
		sqlwrite.Text(" ("), sqlwrite.Join(colSnips, ", "), sqlwrite.Text(") VALUES "),
		sqlwrite.Join(rowSnips, ", "),
	)
	if node.OnConflict != nil && d.UpsertClause != nil {
		stmt = sqlwrite.Concat(stmt, sqlwrite.Text(" "), d.UpsertClause(node.OnConflict.Columns, cols, node.OnConflict.Resolution))
	}
	return sqlwrite.Concat(stmt, sqlwrite.Text(" RETURNING *")), nil
}

func compileUpdateCore(node *ast.Node, d Dialect, obj *catalog.Object) (sqlwrite.Snippet, error) {
	if node.Payload == nil || len(node.Payload.Rows) != 1 {
		return sqlwrite.Snippet{}, fmt.Errorf("formatter: update requires exactly one payload row")
	}
	row := node.Payload.Rows[0]
	cols := payloadColumns(node.Payload)

	var sets []sqlwrite.Snippet
	for _, c := range cols {
		sets = append(sets, sqlwrite.Concat(d.quote(c), sqlwrite.Text(" = "), sqlwrite.ParamSnippet(sqlwrite.Param{Value: row[c], Type: "auto"})))
	}

	where, err := compileFilter(node.Filter, d, obj.Name)
	if err != nil {
		return sqlwrite.Snippet{}, err
	}

	stmt := sqlwrite.Concat(
		sqlwrite.Text("UPDATE "), d.qualified(obj.Schema, obj.Name), sqlwrite.Text(" AS "+obj.Name),
		sqlwrite.Text(" SET "), sqlwrite.Join(sets, ", "),
	)
	if !where.IsEmpty() {
		stmt = sqlwrite.Concat(stmt, sqlwrite.Text(" WHERE "), where)
	}
	return sqlwrite.Concat(stmt, sqlwrite.Text(" RETURNING *")), nil
}

func compileDeleteCore(node *ast.Node, d Dialect, obj *catalog.Object) (sqlwrite.Snippet, error) {
	where, err := compileFilter(node.Filter, d, obj.Name)
	if err != nil {
		return sqlwrite.Snippet{}, err
	}
	stmt := sqlwrite.Concat(sqlwrite.Text("DELETE FROM "), d.qualified(obj.Schema, obj.Name), sqlwrite.Text(" AS "+obj.Name))
	if !where.IsEmpty() {
		stmt = sqlwrite.Concat(stmt, sqlwrite.Text(" WHERE "), where)
	}
	return sqlwrite.Concat(stmt, sqlwrite.Text(" RETURNING *")), nil
}

func payloadColumns(p *ast.Payload) []string {
	set := map[string]bool{}
	for _, row := range p.Rows {
		for k := range row {
			set[k] = true
		}
	}
	cols := make([]string, 0, len(set))
	for c := range set {
		cols = append(cols, c)
	}
	sort.Strings(cols)
	return cols
}

// compileReturningRow shapes a mutation's RETURNING columns (exposed by
// FormatMutation's "mutated" CTE) into the same JSON-object form a plain
// Select row takes; the two-stage path's stage 2 uses compileSelectNode. Function calls aren't meaningful in a returning
// list so they're rejected rather than silently dropped.
func compileReturningRow(node *ast.Node, d Dialect, alias string) (sqlwrite.Snippet, error) {
	if len(node.Returning) == 0 {
		return sqlwrite.Text("NULL"), nil
	}
	var fields []sqlwrite.Snippet
	for _, item := range node.Returning {
		if item.Kind == ast.FunctionItem {
			return sqlwrite.Snippet{}, fmt.Errorf("formatter: function calls are not supported in a mutation's returning list")
		}
		key, val, err := compileSelectItem(item, d, alias)
		if err != nil {
			return sqlwrite.Snippet{}, err
		}
		fields = append(fields, sqlwrite.ParamSnippet(sqlwrite.Param{Value: key, Type: "text"}), val)
	}
	return sqlwrite.Concat(sqlwrite.Text(d.JSONObjectFn+"("), sqlwrite.Join(fields, ", "), sqlwrite.Text(")")), nil
}
