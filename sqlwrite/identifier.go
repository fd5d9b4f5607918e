package sqlwrite

import "strings"

// Quote renders a validated identifier for the target dialect. Callers
// must only pass identifiers already resolved against the schema catalog
// (table, column, alias names); Quote does not validate, it only escapes —
// validation happens once, in the catalog lookup that produced the name.
func Quote(dialect, ident string) string {
	switch dialect {
	case "mysql":
		return "`" + strings.ReplaceAll(ident, "`", "``") + "`"
	default: // postgres, sqlite, clickhouse all use double quotes
		return `"` + strings.ReplaceAll(ident, `"`, `""`) + `"`
	}
}

// QuoteQualified quotes a schema-qualified identifier, e.g. "public"."projects".
func QuoteQualified(dialect, schema, name string) string {
	if schema == "" {
		return Quote(dialect, name)
	}
	return Quote(dialect, schema) + "." + Quote(dialect, name)
}

// Ident wraps a pre-validated identifier as static text, not a parameter —
// identifiers can never be bound positionally, only literal values can.
func Ident(dialect, ident string) Snippet {
	return Text(Quote(dialect, ident))
}
