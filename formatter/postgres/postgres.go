// Package postgres configures the shared formatter walker for PostgreSQL:
// "$N" placeholders, jsonb_build_object/jsonb_agg, "::type" casts, native
// ON CONFLICT upsert, and response.headers/response.status GUC reads. It
// is the one dialect whose RETURNING clause the walker nests inside a
// wrapping query directly (spec §4.6), grounded on
// original_source/lib/src/backend/postgresql.rs.
package postgres

import (
	"fmt"
	"strings"

	"github.com/restql/restql/ast"
	"github.com/restql/restql/formatter"
	"github.com/restql/restql/sqlwrite"
)

var castTypes = map[string]bool{
	"text": true, "varchar": true, "int": true, "integer": true, "bigint": true,
	"smallint": true, "numeric": true, "decimal": true, "real": true, "double precision": true,
	"boolean": true, "date": true, "timestamp": true, "timestamptz": true, "uuid": true,
	"json": true, "jsonb": true,
}

// Dialect is the configured formatter.Dialect for PostgreSQL.
var Dialect = formatter.Dialect{
	Name:              "postgres",
	Placeholder:       sqlwrite.Dollar,
	JSONObjectFn:      "jsonb_build_object",
	JSONAggFn:         "jsonb_agg",
	EmptyArray:        "'[]'::jsonb",
	CastTypes:         castTypes,
	CastOperator:      formatter.DefaultCastOperator,
	JSONAccessor:      formatter.ArrowJSONAccessor,
	FTSExpr:           ftsExpr,
	SupportsReturning: true,
	UpsertClause:      upsertClause,
	GUCExpr:           gucExpr,
}

func ftsExpr(column sqlwrite.Snippet, lang string, kind ast.FTSKind, value sqlwrite.Snippet) sqlwrite.Snippet {
	fn := "to_tsquery"
	switch kind {
	case ast.FTSPhrase:
		fn = "phraseto_tsquery"
	case ast.FTSWebsearch:
		fn = "websearch_to_tsquery"
	}
	var langArg sqlwrite.Snippet
	if lang != "" {
		langArg = sqlwrite.Concat(sqlwrite.ParamSnippet(sqlwrite.Param{Value: lang, Type: "text"}), sqlwrite.Text(", "))
	}
	return sqlwrite.Concat(
		sqlwrite.Text("to_tsvector("), column, sqlwrite.Text(") @@ "+fn+"("), langArg, value, sqlwrite.Text(")"),
	)
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
		sets = append(sets, fmt.Sprintf(`"%s" = EXCLUDED."%s"`, c, c))
	}
	if len(sets) == 0 {
		return sqlwrite.Text("ON CONFLICT (" + target + ") DO NOTHING")
	}
	return sqlwrite.Text("ON CONFLICT (" + target + ") DO UPDATE SET " + strings.Join(sets, ", "))
}

func quoteAll(cols []string) []string {
	out := make([]string, len(cols))
	for i, c := range cols {
		out[i] = sqlwrite.Quote("postgres", c)
	}
	return out
}

func gucExpr(name string) sqlwrite.Snippet {
	return sqlwrite.Concat(
		sqlwrite.Text("current_setting("),
		sqlwrite.ParamSnippet(sqlwrite.Param{Value: name, Type: "text"}),
		sqlwrite.Text(", true)"),
	)
}
