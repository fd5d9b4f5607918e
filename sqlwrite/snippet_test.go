package sqlwrite

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBuildDollarPlaceholders(t *testing.T) {
	s := Concat(
		Text("select * from "),
		Ident("postgres", "projects"),
		Text(" where "),
		Ident("postgres", "id"),
		Text(" = "),
		ParamSnippet(Param{Value: 1, Type: "int4"}),
		Text(" and "),
		Ident("postgres", "name"),
		Text(" = "),
		ParamSnippet(Param{Value: "acme", Type: "text"}),
	)

	sql, params := Build(s, Dollar)
	require.Equal(t, `select * from "projects" where "id" = $1 and "name" = $2`, sql)
	require.Equal(t, []any{1, "acme"}, params)
}

func TestBuildQuestionPlaceholders(t *testing.T) {
	s := Concat(Ident("mysql", "x"), Text(" = "), ParamSnippet(Param{Value: 5}))
	sql, params := Build(s, Question)
	require.Equal(t, "`x` = ?", sql)
	require.Equal(t, []any{5}, params)
}

func TestBuildClickHouseNamedPlaceholders(t *testing.T) {
	s := Concat(Text("x = "), ParamSnippet(Param{Value: 5, Type: "Int64"}))
	sql, params := Build(s, ClickHouseNamed)
	require.Equal(t, "x = {p1:Int64}", sql)
	require.Equal(t, []any{5}, params)
}

func TestJoin(t *testing.T) {
	parts := []Snippet{Text("a"), Text("b"), Text("c")}
	sql, _ := Build(Join(parts, ", "), Dollar)
	require.Equal(t, "a, b, c", sql)

	require.True(t, Join(nil, ", ").IsEmpty())
}

func TestParameterOrderMatchesPlaceholderOrder(t *testing.T) {
	// Property 1: placeholder count equals len(params), in positional order.
	s := Concat(
		ParamSnippet(Param{Value: "a"}),
		Text(","),
		ParamSnippet(Param{Value: "b"}),
		Text(","),
		ParamSnippet(Param{Value: "c"}),
	)
	sql, params := Build(s, Dollar)
	require.Equal(t, "$1,$2,$3", sql)
	require.Len(t, params, 3)
	require.Equal(t, []any{"a", "b", "c"}, params)
}
