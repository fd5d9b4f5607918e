// Package formatter walks an authorized Abstract Request and emits one
// dialect-specific SQL statement whose single result row carries the
// shaped JSON body plus the response-metadata columns the response
// interpreter reads back (spec §4.6).
//
// Grounded on original_source/lib/src/backend/{postgresql,sqlite,
// clickhouse}.rs for dialect divergence and on the teacher's
// dialect/sql/stats.go (shared walker/builder idiom) and
// dialect/sql/sqlgraph/errors.go (structured build-time errors). The
// walker here is shared across dialects; each formatter/<dialect>
// subpackage supplies the switch points collected in Dialect: placeholder
// syntax, JSON constructor/aggregate names, cast compilation, the JSON path
// accessor, full-text search, the upsert clause, GUC reads, and whether
// RETURNING can be nested in a wrapping query.
package formatter

import (
	"fmt"

	"github.com/restql/restql/ast"
	"github.com/restql/restql/sqlwrite"
)

// Dialect collects every point where emitted SQL differs by target
// database (spec §9 "Dialect divergence... the only formatter switch
// points").
type Dialect struct {
	Name        string
	Placeholder sqlwrite.Placeholder

	// JSONObjectFn builds one JSON object from alternating key/value SQL
	// arguments: "jsonb_build_object" (Postgres), "json_object" (SQLite),
	// "JSON_OBJECT" (MySQL), "jsonObject" (ClickHouse).
	JSONObjectFn string
	// JSONAggFn aggregates rows of JSONObjectFn calls into a JSON array.
	JSONAggFn string
	// EmptyArray is substituted via coalesce() when an embed or the outer
	// result set has zero rows, so it reads as "[]" rather than null.
	EmptyArray string

	// CastTypes is the closed list of cast target names this dialect
	// accepts (spec §4.6 "cast target names are validated against a known
	// list").
	CastTypes map[string]bool
	// CastOperator renders expr cast to sqlType as a SQL fragment.
	CastOperator func(expr sqlwrite.Snippet, sqlType string) sqlwrite.Snippet
	// JSONAccessor compiles a chain of JsonPath steps against base.
	JSONAccessor func(base sqlwrite.Snippet, steps []ast.JSONStep) sqlwrite.Snippet
	// FTSExpr compiles a full-text-search comparison.
	FTSExpr func(column sqlwrite.Snippet, lang string, kind ast.FTSKind, value sqlwrite.Snippet) sqlwrite.Snippet

	// SupportsReturning is true only for the one dialect (Postgres) whose
	// RETURNING clause can be consumed by a wrapping CTE query. Every other
	// dialect (no native RETURNING at all, or one the survey pack flags as
	// unsafe to nest) uses the two-stage mutation path instead (spec §4.6).
	SupportsReturning bool
	// UpsertClause renders the conflict-resolution clause appended to an
	// INSERT: conflictCols is the on_conflict target, payloadCols every
	// column the insert actually supplies (merge-duplicates updates
	// payloadCols minus conflictCols). Dialects lacking native upsert leave
	// this nil; their INSERT is then emitted without any conflict handling
	// and the node's on_conflict spec is ignored.
	UpsertClause func(conflictCols, payloadCols []string, resolution ast.Resolution) sqlwrite.Snippet
	// GUCExpr renders a read of a session/request-scoped setting (Postgres
	// response.headers/response.status GUCs, spec §4.7); nil for dialects
	// with no equivalent mechanism.
	GUCExpr func(name string) sqlwrite.Snippet
}

func (d Dialect) quote(ident string) sqlwrite.Snippet { return sqlwrite.Ident(d.Name, ident) }

func (d Dialect) qualified(schema, name string) sqlwrite.Snippet {
	return sqlwrite.Text(sqlwrite.QuoteQualified(d.Name, schema, name))
}

// ArrowJSONAccessor implements the "->"/"->>" chain shared by Postgres,
// SQLite and MySQL's JSON operators; each key/index is bound as a
// parameter rather than concatenated, so a caller-supplied JSON key can
// never become part of the SQL text.
func ArrowJSONAccessor(base sqlwrite.Snippet, steps []ast.JSONStep) sqlwrite.Snippet {
	out := base
	for _, step := range steps {
		op := "->"
		if step.Text {
			op = "->>"
		}
		out = out.Append(sqlwrite.Text(op))
		if step.Index != nil {
			out = out.Append(sqlwrite.ParamSnippet(sqlwrite.Param{Value: *step.Index, Type: "int"}))
		} else {
			out = out.Append(sqlwrite.ParamSnippet(sqlwrite.Param{Value: step.Key, Type: "text"}))
		}
	}
	return out
}

// ClickHouseJSONAccessor compiles a JSON path chain via nested
// JSONExtractRaw/JSONExtractString calls, matching ClickHouse's function-
// based (rather than operator-based) JSON access.
func ClickHouseJSONAccessor(base sqlwrite.Snippet, steps []ast.JSONStep) sqlwrite.Snippet {
	expr := base
	for i, step := range steps {
		fn := "JSONExtractRaw"
		if step.Text && i == len(steps)-1 {
			fn = "JSONExtractString"
		}
		var key sqlwrite.Snippet
		if step.Index != nil {
			// ClickHouse indexes arrays from 1; a negative index already
			// counts from the end and passes through unchanged.
			idx := *step.Index
			if idx >= 0 {
				idx++
			}
			key = sqlwrite.ParamSnippet(sqlwrite.Param{Value: idx, Type: "Int64"})
		} else {
			key = sqlwrite.ParamSnippet(sqlwrite.Param{Value: step.Key, Type: "String"})
		}
		expr = sqlwrite.Concat(sqlwrite.Text(fn+"("), expr, sqlwrite.Text(", "), key, sqlwrite.Text(")"))
	}
	return expr
}

// DefaultCastOperator renders the "expr::type" form, used by Postgres.
func DefaultCastOperator(expr sqlwrite.Snippet, sqlType string) sqlwrite.Snippet {
	return sqlwrite.Concat(sqlwrite.Text("("), expr, sqlwrite.Text(")::"+sqlType))
}

// FunctionCastOperator renders "CAST(expr AS type)", used by SQLite, MySQL
// and ClickHouse.
func FunctionCastOperator(expr sqlwrite.Snippet, sqlType string) sqlwrite.Snippet {
	return sqlwrite.Concat(sqlwrite.Text("CAST("), expr, sqlwrite.Text(" AS "+sqlType+")"))
}

func validateCast(d Dialect, castType string) error {
	if castType == "" {
		return nil
	}
	if !d.CastTypes[castType] {
		return fmt.Errorf("formatter: cast type %q is not on the %s allow-list", castType, d.Name)
	}
	return nil
}
