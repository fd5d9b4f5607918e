// Package sqlite configures the shared formatter walker for SQLite:
// "$N" placeholders (accepted by the modernc driver), json_object/
// json_group_array, CAST(...AS type) casts, and FTS5's MATCH operator in
// place of Postgres's tsquery machinery. SQLite has no GUC-like mechanism,
// so response-header/status overrides aren't available, and its mutations
// always go through the two-stage path (spec §4.6), grounded on
// original_source/lib/src/backend/sqlite.rs.
package sqlite

import (
	"strings"

	"github.com/restql/restql/ast"
	"github.com/restql/restql/formatter"
	"github.com/restql/restql/sqlwrite"
)

var castTypes = map[string]bool{
	"text": true, "integer": true, "real": true, "numeric": true, "blob": true, "boolean": true,
}

// Dialect is the configured formatter.Dialect for SQLite.
var Dialect = formatter.Dialect{
	Name:              "sqlite",
	Placeholder:       sqlwrite.Dollar,
	JSONObjectFn:      "json_object",
	JSONAggFn:         "json_group_array",
	EmptyArray:        "'[]'",
	CastTypes:         castTypes,
	CastOperator:      formatter.FunctionCastOperator,
	JSONAccessor:      formatter.ArrowJSONAccessor,
	FTSExpr:           ftsExpr,
	SupportsReturning: false,
	UpsertClause:      upsertClause,
}

// ftsExpr assumes the column names a fts5 virtual table (a catalog-level
// convention, not something this formatter verifies); language selection
// has no SQLite equivalent so FTSLang is ignored.
func ftsExpr(column sqlwrite.Snippet, _ string, _ ast.FTSKind, value sqlwrite.Snippet) sqlwrite.Snippet {
	return sqlwrite.Concat(column, sqlwrite.Text(" MATCH "), value)
}

func upsertClause(conflictCols, payloadCols []string, resolution ast.Resolution) sqlwrite.Snippet {
	target := strings.Join(quoteAll(conflictCols), ", ")
	if resolution == ast.IgnoreDuplicates {
		return sqlwrite.Text("ON CONFLICT (" + target + ") DO NOTHING")
	}
	inConflict := map[string]bool{}
	for _, c := range conflictCols {
		inConflict[c] = true
	}
	var sets []string
	for _, c := range payloadCols {
		if inConflict[c] {
			continue
		}
		sets = append(sets, `"`+c+`" = excluded."`+c+`"`)
	}
	if len(sets) == 0 {
		return sqlwrite.Text("ON CONFLICT (" + target + ") DO NOTHING")
	}
	return sqlwrite.Text("ON CONFLICT (" + target + ") DO UPDATE SET " + strings.Join(sets, ", "))
}

func quoteAll(cols []string) []string {
	out := make([]string, len(cols))
	for i, c := range cols {
		out[i] = sqlwrite.Quote("sqlite", c)
	}
	return out
}
