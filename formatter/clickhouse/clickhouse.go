// Package clickhouse configures the shared formatter walker for
// ClickHouse: "{pN:type}" named placeholders, a flat-argument JSON object
// builder, CAST(...AS type) casts, function-based JSON path access, and a
// substring-match stand-in for full text search (ClickHouse has no
// tsquery-style engine). ClickHouse has no upsert or RETURNING semantics
// under its MergeTree engines, so UpsertClause is left unset (on_conflict
// is a no-op) and every mutation goes through the two-stage path (spec
// §4.6), grounded on original_source/lib/src/backend/clickhouse.rs.
package clickhouse

import (
	"github.com/restql/restql/ast"
	"github.com/restql/restql/formatter"
	"github.com/restql/restql/sqlwrite"
)

var castTypes = map[string]bool{
	"String": true, "Int32": true, "Int64": true, "UInt32": true, "UInt64": true,
	"Float32": true, "Float64": true, "Decimal": true, "Date": true, "DateTime": true, "Bool": true,
}

// Dialect is the configured formatter.Dialect for ClickHouse. JSONObjectFn
// names a flat key/value row-shaping function the shared walker assumes
// every dialect provides; ClickHouse has no single built-in with that
// exact shape; a production backend would need a dialect-specific
// expression builder here instead of a bare function name (see DESIGN.md).
var Dialect = formatter.Dialect{
	Name:              "clickhouse",
	Placeholder:       sqlwrite.ClickHouseNamed,
	JSONObjectFn:      "jsonObject",
	JSONAggFn:         "groupArray",
	EmptyArray:        "[]",
	CastTypes:         castTypes,
	CastOperator:      formatter.FunctionCastOperator,
	JSONAccessor:      formatter.ClickHouseJSONAccessor,
	FTSExpr:           ftsExpr,
	SupportsReturning: false,
}

func ftsExpr(column sqlwrite.Snippet, _ string, _ ast.FTSKind, value sqlwrite.Snippet) sqlwrite.Snippet {
	return sqlwrite.Concat(sqlwrite.Text("positionCaseInsensitive("), column, sqlwrite.Text(", "), value, sqlwrite.Text(") > 0"))
}
