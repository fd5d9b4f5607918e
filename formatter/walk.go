package formatter

import (
	"fmt"
	"strings"

	"github.com/go-openapi/inflect"
	"github.com/restql/restql/ast"
	"github.com/restql/restql/catalog"
	"github.com/restql/restql/sqlwrite"
)

// ctx threads the dialect and catalog through a single Format call and
// hands out unique table aliases so nested embeds never collide with their
// ancestors or siblings.
type ctx struct {
	dialect  Dialect
	cat      *catalog.Catalog
	aliasSeq int
}

func (c *ctx) nextAlias() string {
	c.aliasSeq++
	return fmt.Sprintf("t%d", c.aliasSeq)
}

// compileSelectNode compiles node into a parenthesized derived table whose
// single projected column, "_row", holds the shaped JSON for one row.
// correlationFn, when non-nil, is invoked with the alias this call assigns
// so the caller (an embed) can correlate against it — the alias doesn't
// exist until this call picks one, so the predicate is built lazily.
func compileSelectNode(node *ast.Node, c *ctx, correlationFn func(embeddedAlias string) sqlwrite.Snippet) (sqlwrite.Snippet, error) {
	obj, ok := c.cat.Object(node.From.Schema, node.From.Table)
	if !ok {
		return sqlwrite.Snippet{}, fmt.Errorf("formatter: unknown relation %s.%s", node.From.Schema, node.From.Table)
	}
	alias := c.nextAlias()

	var fields []sqlwrite.Snippet
	for _, item := range node.Select {
		key, val, err := compileSelectItem(item, c.dialect, alias)
		if err != nil {
			return sqlwrite.Snippet{}, err
		}
		fields = append(fields, sqlwrite.ParamSnippet(sqlwrite.Param{Value: key, Type: "text"}), val)
	}
	for _, sub := range node.SubSelects {
		key, val, err := compileEmbed(sub, c, alias, obj)
		if err != nil {
			return sqlwrite.Snippet{}, err
		}
		fields = append(fields, sqlwrite.ParamSnippet(sqlwrite.Param{Value: key, Type: "text"}), val)
	}
	rowExpr := sqlwrite.Concat(sqlwrite.Text(c.dialect.JSONObjectFn+"("), sqlwrite.Join(fields, ", "), sqlwrite.Text(")"))

	where, err := compileFilter(node.Where, c.dialect, alias)
	if err != nil {
		return sqlwrite.Snippet{}, err
	}
	if correlationFn != nil {
		corr := correlationFn(alias)
		switch {
		case where.IsEmpty():
			where = corr
		default:
			where = sqlwrite.Concat(corr, sqlwrite.Text(" AND "), where)
		}
	}

	stmt := sqlwrite.Concat(
		sqlwrite.Text("(SELECT "), rowExpr, sqlwrite.Text(" AS _row FROM "),
		c.dialect.qualified(node.From.Schema, node.From.Table), sqlwrite.Text(" AS "+alias),
	)
	if !where.IsEmpty() {
		stmt = sqlwrite.Concat(stmt, sqlwrite.Text(" WHERE "), where)
	}
	if len(node.Order) > 0 {
		orderSnip, err := compileOrder(node.Order, c.dialect, alias)
		if err != nil {
			return sqlwrite.Snippet{}, err
		}
		stmt = sqlwrite.Concat(stmt, sqlwrite.Text(" ORDER BY "), orderSnip)
	}
	stmt = sqlwrite.Concat(stmt, compileLimitOffset(node), sqlwrite.Text(")"))
	return stmt, nil
}

// compileEmbed resolves one sub-select into the scalar-subquery expression
// that becomes the parent row's value for that embed's JSON key: a single
// object-or-null for Parent, a JSON array for Child and Many.
func compileEmbed(sub ast.SubSelect, c *ctx, outerAlias string, outerObj *catalog.Object) (string, sqlwrite.Snippet, error) {
	key := sub.Node.From.Alias
	if key == "" {
		// No explicit alias (spec §4.3 "!alias" hint): a to-one embed reads
		// as a single nested object, so its key is singular regardless of
		// the underlying table name's own form; Child/Many embed a JSON
		// array, so their key is pluralized the same way.
		if sub.Join.Kind == ast.Parent {
			key = inflect.Singularize(sub.Node.From.Table)
		} else {
			key = inflect.Pluralize(sub.Node.From.Table)
		}
	}

	embeddedObj, ok := c.cat.Object(sub.Node.From.Schema, sub.Node.From.Table)
	if !ok {
		return "", sqlwrite.Snippet{}, fmt.Errorf("formatter: unknown embedded relation %s", sub.Node.From.Table)
	}

	var corrFn func(string) sqlwrite.Snippet
	switch sub.Join.Kind {
	case ast.Parent, ast.Child:
		corrFn = directCorrelation(sub.Join, outerAlias, c.dialect)
	case ast.Many:
		var err error
		corrFn, err = manyCorrelation(sub.Join, outerAlias, outerObj, embeddedObj, c.dialect)
		if err != nil {
			return "", sqlwrite.Snippet{}, err
		}
	}

	inner, err := compileSelectNode(sub.Node, c, corrFn)
	if err != nil {
		return "", sqlwrite.Snippet{}, err
	}

	if sub.Join.Kind == ast.Parent {
		value := sqlwrite.Concat(sqlwrite.Text("(SELECT _row FROM "), inner, sqlwrite.Text(" AS emb)"))
		return key, value, nil
	}

	agg := sqlwrite.Concat(
		sqlwrite.Text("(SELECT COALESCE("+c.dialect.JSONAggFn+"(_row), "+c.dialect.EmptyArray+") FROM "),
		inner,
		sqlwrite.Text(" AS emb)"),
	)
	return key, agg, nil
}

// directCorrelation builds the Parent/Child join predicate: the Join's
// This/ThatColumns are already stored in matching order by the catalog
// (catalog/relationship.go), regardless of which side "this" names for a
// given Kind, so both cases compile identically here.
func directCorrelation(join ast.Join, outerAlias string, d Dialect) func(string) sqlwrite.Snippet {
	return func(embeddedAlias string) sqlwrite.Snippet {
		var parts []sqlwrite.Snippet
		for i := range join.ThisColumns {
			lhs := sqlwrite.Concat(d.quote(outerAlias), sqlwrite.Text("."), d.quote(join.ThisColumns[i]))
			rhs := sqlwrite.Concat(d.quote(embeddedAlias), sqlwrite.Text("."), d.quote(join.ThatColumns[i]))
			parts = append(parts, sqlwrite.Concat(lhs, sqlwrite.Text(" = "), rhs))
		}
		return sqlwrite.Join(parts, " AND ")
	}
}

// manyCorrelation builds an EXISTS-against-the-junction predicate. The
// catalog's Relationship doesn't carry the junction FKs' referenced
// columns (only the owning side's own FK columns), so this assumes the
// common case that a junction's two FKs reference their endpoints' primary
// keys — true of every many-to-many junction table in the survey pack.
func manyCorrelation(join ast.Join, outerAlias string, outerObj, embeddedObj *catalog.Object, d Dialect) (func(string) sqlwrite.Snippet, error) {
	outerPK := outerObj.PrimaryKey()
	embeddedPK := embeddedObj.PrimaryKey()
	if len(outerPK) != len(join.JunctionThisFK) || len(embeddedPK) != len(join.JunctionThatFK) {
		return nil, fmt.Errorf("formatter: junction %s key arity does not match %s/%s primary keys", join.Name, outerObj.Name, embeddedObj.Name)
	}
	if join.Junction == nil {
		return nil, fmt.Errorf("formatter: many-to-many join %s has no junction table", join.Name)
	}

	return func(embeddedAlias string) sqlwrite.Snippet {
		jAlias := embeddedAlias + "_j"
		var eq []sqlwrite.Snippet
		for i := range join.JunctionThisFK {
			lhs := sqlwrite.Concat(d.quote(jAlias), sqlwrite.Text("."), d.quote(join.JunctionThisFK[i]))
			rhs := sqlwrite.Concat(d.quote(outerAlias), sqlwrite.Text("."), d.quote(outerPK[i]))
			eq = append(eq, sqlwrite.Concat(lhs, sqlwrite.Text(" = "), rhs))
		}
		for i := range join.JunctionThatFK {
			lhs := sqlwrite.Concat(d.quote(jAlias), sqlwrite.Text("."), d.quote(join.JunctionThatFK[i]))
			rhs := sqlwrite.Concat(d.quote(embeddedAlias), sqlwrite.Text("."), d.quote(embeddedPK[i]))
			eq = append(eq, sqlwrite.Concat(lhs, sqlwrite.Text(" = "), rhs))
		}
		return sqlwrite.Concat(
			sqlwrite.Text("EXISTS (SELECT 1 FROM "),
			d.qualified(join.Junction.Schema, join.Junction.Table),
			sqlwrite.Text(" AS "+jAlias+" WHERE "),
			sqlwrite.Join(eq, " AND "),
			sqlwrite.Text(")"),
		)
	}, nil
}

func compileFieldRef(f ast.Field, d Dialect, alias string) sqlwrite.Snippet {
	return sqlwrite.Concat(d.quote(alias), sqlwrite.Text("."), d.quote(f.Name))
}

func compileSelectItem(item ast.SelectItem, d Dialect, alias string) (string, sqlwrite.Snippet, error) {
	switch item.Kind {
	case ast.SimpleItem, ast.JSONPathItem:
		key := item.Alias
		if key == "" {
			key = item.FieldRef.Name
		}
		col := compileFieldRef(item.FieldRef, d, alias)
		if len(item.FieldRef.Path) > 0 {
			col = d.JSONAccessor(col, item.FieldRef.Path)
		}
		if err := validateCast(d, item.Cast); err != nil {
			return "", sqlwrite.Snippet{}, err
		}
		if item.Cast != "" {
			col = d.CastOperator(col, item.Cast)
		}
		return key, col, nil
	case ast.FunctionItem:
		key := item.Alias
		if key == "" {
			key = item.Name
		}
		expr, err := compileFunctionCall(item, d, alias)
		if err != nil {
			return "", sqlwrite.Snippet{}, err
		}
		return key, expr, nil
	case ast.LiteralItem:
		if err := validateCast(d, item.Cast); err != nil {
			return "", sqlwrite.Snippet{}, err
		}
		paramType := "auto"
		if item.Cast != "" {
			paramType = item.Cast
		}
		expr := sqlwrite.ParamSnippet(sqlwrite.Param{Value: item.Literal, Type: paramType})
		return item.Alias, expr, nil
	default:
		return "", sqlwrite.Snippet{}, fmt.Errorf("formatter: unknown select item kind")
	}
}

func compileFunctionCall(item ast.SelectItem, d Dialect, alias string) (sqlwrite.Snippet, error) {
	var args []sqlwrite.Snippet
	for _, a := range item.Args {
		_, val, err := compileSelectItem(a, d, alias)
		if err != nil {
			return sqlwrite.Snippet{}, err
		}
		args = append(args, val)
	}
	call := sqlwrite.Concat(sqlwrite.Text(item.Name+"("), sqlwrite.Join(args, ", "), sqlwrite.Text(")"))
	if item.Window == nil {
		return call, nil
	}

	var over []sqlwrite.Snippet
	if len(item.Window.PartitionBy) > 0 {
		var parts []sqlwrite.Snippet
		for _, f := range item.Window.PartitionBy {
			parts = append(parts, compileFieldRef(f, d, alias))
		}
		over = append(over, sqlwrite.Text("PARTITION BY "), sqlwrite.Join(parts, ", "))
	}
	if len(item.Window.OrderBy) > 0 {
		orderSnip, err := compileOrder(item.Window.OrderBy, d, alias)
		if err != nil {
			return sqlwrite.Snippet{}, err
		}
		if len(over) > 0 {
			over = append(over, sqlwrite.Text(" "))
		}
		over = append(over, sqlwrite.Text("ORDER BY "), orderSnip)
	}
	return sqlwrite.Concat(call, sqlwrite.Text(" OVER ("), sqlwrite.Concat(over...), sqlwrite.Text(")")), nil
}

func compileOrder(items []ast.OrderItem, d Dialect, alias string) (sqlwrite.Snippet, error) {
	var parts []sqlwrite.Snippet
	for _, o := range items {
		part := compileFieldRef(o.Field, d, alias)
		if len(o.Field.Path) > 0 {
			part = d.JSONAccessor(part, o.Field.Path)
		}
		switch o.Direction {
		case ast.Asc:
			part = sqlwrite.Concat(part, sqlwrite.Text(" ASC"))
		case ast.Desc:
			part = sqlwrite.Concat(part, sqlwrite.Text(" DESC"))
		}
		switch o.Nulls {
		case ast.NullsFirst:
			part = sqlwrite.Concat(part, sqlwrite.Text(" NULLS FIRST"))
		case ast.NullsLast:
			part = sqlwrite.Concat(part, sqlwrite.Text(" NULLS LAST"))
		}
		parts = append(parts, part)
	}
	return sqlwrite.Join(parts, ", "), nil
}

func compileLimitOffset(node *ast.Node) sqlwrite.Snippet {
	limit := node.Limit
	if node.MaxRows != nil && (limit == nil || *node.MaxRows < *limit) {
		limit = node.MaxRows
	}
	var out sqlwrite.Snippet
	if limit != nil {
		out = sqlwrite.Concat(out, sqlwrite.Text(" LIMIT "), sqlwrite.ParamSnippet(sqlwrite.Param{Value: *limit, Type: "int"}))
	}
	if node.Offset != nil {
		out = sqlwrite.Concat(out, sqlwrite.Text(" OFFSET "), sqlwrite.ParamSnippet(sqlwrite.Param{Value: *node.Offset, Type: "int"}))
	}
	return out
}

func compileFilter(f *ast.Filter, d Dialect, alias string) (sqlwrite.Snippet, error) {
	if f == nil {
		return sqlwrite.Snippet{}, nil
	}
	if f.IsLogic() {
		var parts []sqlwrite.Snippet
		for _, child := range f.Children {
			p, err := compileFilter(child, d, alias)
			if err != nil {
				return sqlwrite.Snippet{}, err
			}
			parts = append(parts, sqlwrite.Concat(sqlwrite.Text("("), p, sqlwrite.Text(")")))
		}
		sep := " AND "
		if f.Connective == ast.Or {
			sep = " OR "
		}
		combined := sqlwrite.Join(parts, sep)
		if f.Negated {
			combined = sqlwrite.Concat(sqlwrite.Text("NOT ("), combined, sqlwrite.Text(")"))
		}
		return combined, nil
	}
	return compileOpFilter(f, d, alias)
}

func compileOpFilter(f *ast.Filter, d Dialect, alias string) (sqlwrite.Snippet, error) {
	col := compileFieldRef(f.Field, d, alias)
	if len(f.Field.Path) > 0 {
		col = d.JSONAccessor(col, f.Field.Path)
	}

	var expr sqlwrite.Snippet
	switch f.Op {
	case ast.Eq:
		expr = binOp(col, "=", f.Value)
	case ast.Neq:
		expr = binOp(col, "<>", f.Value)
	case ast.Lt:
		expr = binOp(col, "<", f.Value)
	case ast.Lte:
		expr = binOp(col, "<=", f.Value)
	case ast.Gt:
		expr = binOp(col, ">", f.Value)
	case ast.Gte:
		expr = binOp(col, ">=", f.Value)
	case ast.Like:
		expr = binOp(col, "LIKE", f.Value)
	case ast.ILike:
		expr = binOp(col, "ILIKE", f.Value)
	case ast.Match:
		expr = binOp(col, "~", f.Value)
	case ast.IMatch:
		expr = binOp(col, "~*", f.Value)
	case ast.CS:
		expr = binOp(col, "@>", f.Value)
	case ast.CD:
		expr = binOp(col, "<@", f.Value)
	case ast.Ov:
		expr = binOp(col, "&&", f.Value)
	case ast.SL:
		expr = binOp(col, "<<", f.Value)
	case ast.SR:
		expr = binOp(col, ">>", f.Value)
	case ast.NXL:
		expr = binOp(col, "&>", f.Value)
	case ast.NXR:
		expr = binOp(col, "&<", f.Value)
	case ast.Adj:
		expr = binOp(col, "-|-", f.Value)
	case ast.In:
		vals, ok := f.Value.([]string)
		if !ok {
			return sqlwrite.Snippet{}, fmt.Errorf("formatter: in filter value must be a string list")
		}
		var params []sqlwrite.Snippet
		for _, v := range vals {
			params = append(params, sqlwrite.ParamSnippet(sqlwrite.Param{Value: v, Type: "text"}))
		}
		expr = sqlwrite.Concat(col, sqlwrite.Text(" IN ("), sqlwrite.Join(params, ", "), sqlwrite.Text(")"))
	case ast.Is:
		var word string
		switch v := f.Value.(type) {
		case nil:
			word = "NULL"
		case bool:
			if v {
				word = "TRUE"
			} else {
				word = "FALSE"
			}
		case string:
			word = strings.ToUpper(v)
		default:
			return sqlwrite.Snippet{}, fmt.Errorf("formatter: is filter value must be nil, bool, or string")
		}
		expr = sqlwrite.Concat(col, sqlwrite.Text(" IS "+word))
	case ast.FTS, ast.PLFTS:
		value, ok := f.Value.(string)
		if !ok {
			return sqlwrite.Snippet{}, fmt.Errorf("formatter: fts filter value must be a string")
		}
		if d.FTSExpr == nil {
			return sqlwrite.Snippet{}, fmt.Errorf("formatter: dialect %s does not support full text search", d.Name)
		}
		expr = d.FTSExpr(col, f.FTSLang, f.FTSKindV, sqlwrite.ParamSnippet(sqlwrite.Param{Value: value, Type: "text"}))
	default:
		return sqlwrite.Snippet{}, fmt.Errorf("formatter: unsupported filter operator")
	}

	if f.Negated {
		expr = sqlwrite.Concat(sqlwrite.Text("NOT ("), expr, sqlwrite.Text(")"))
	}
	return expr, nil
}

func binOp(col sqlwrite.Snippet, op string, value any) sqlwrite.Snippet {
	return sqlwrite.Concat(col, sqlwrite.Text(" "+op+" "), sqlwrite.ParamSnippet(sqlwrite.Param{Value: value, Type: "auto"}))
}
