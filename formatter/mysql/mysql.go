// Package mysql configures the shared formatter walker for MySQL: "?"
// placeholders, JSON_OBJECT/JSON_ARRAYAGG, CAST(...AS type) casts,
// MATCH...AGAINST full-text search, and INSERT...ON DUPLICATE KEY UPDATE in
// place of a named-conflict-target upsert (MySQL resolves the conflicting
// key itself, so UpsertClause ignores conflictCols). MySQL has no
// RETURNING clause at all, so every mutation goes through the two-stage
// path (spec §4.6). Grounded on the teacher's go-sql-driver/mysql
// conventions and dialect/sql/driver.go's dialect-name switch, since
// original_source doesn't cover a MySQL backend.
package mysql

import (
	"strings"

	"github.com/restql/restql/ast"
	"github.com/restql/restql/formatter"
	"github.com/restql/restql/sqlwrite"
)

var castTypes = map[string]bool{
	"char": true, "signed": true, "unsigned": true, "decimal": true,
	"date": true, "datetime": true, "time": true, "json": true, "binary": true,
}

// Dialect is the configured formatter.Dialect for MySQL.
var Dialect = formatter.Dialect{
	Name:              "mysql",
	Placeholder:       sqlwrite.Question,
	JSONObjectFn:      "JSON_OBJECT",
	JSONAggFn:         "JSON_ARRAYAGG",
	EmptyArray:        "JSON_ARRAY()",
	CastTypes:         castTypes,
	CastOperator:      formatter.FunctionCastOperator,
	JSONAccessor:      formatter.ArrowJSONAccessor,
	FTSExpr:           ftsExpr,
	SupportsReturning: false,
	UpsertClause:      upsertClause,
}

func ftsExpr(column sqlwrite.Snippet, _ string, kind ast.FTSKind, value sqlwrite.Snippet) sqlwrite.Snippet {
	mode := "IN NATURAL LANGUAGE MODE"
	if kind == ast.FTSWebsearch {
		mode = "IN BOOLEAN MODE"
	}
	return sqlwrite.Concat(sqlwrite.Text("MATCH("), column, sqlwrite.Text(") AGAINST("), value, sqlwrite.Text(" "+mode+")"))
}

func upsertClause(_ []string, payloadCols []string, resolution ast.Resolution) sqlwrite.Snippet {
	if resolution == ast.IgnoreDuplicates {
		// MySQL has no row-preserving "do nothing" short of INSERT IGNORE,
		// which changes the statement's leading verb rather than appending
		// a clause; approximate it with a no-op self-assignment so the
		// statement still succeeds without overwriting any column.
		if len(payloadCols) == 0 {
			return sqlwrite.Snippet{}
		}
		c := payloadCols[0]
		return sqlwrite.Text("ON DUPLICATE KEY UPDATE `" + c + "` = `" + c + "`")
	}
	var sets []string
	for _, c := range payloadCols {
		sets = append(sets, "`"+c+"` = VALUES(`"+c+"`)")
	}
	return sqlwrite.Text("ON DUPLICATE KEY UPDATE " + strings.Join(sets, ", "))
}
