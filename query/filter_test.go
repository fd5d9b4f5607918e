package query

import (
	"strings"
	"testing"

	"github.com/restql/restql/ast"
	"github.com/stretchr/testify/require"
)

func TestParseFilterValue_Basic(t *testing.T) {
	f, err := ParseFilterValue(ast.Field{Name: "id"}, "gt.5")
	require.NoError(t, err)
	require.Equal(t, ast.Gt, f.Op)
	require.Equal(t, "5", f.Value)
	require.False(t, f.Negated)
}

func TestParseFilterValue_Negated(t *testing.T) {
	f, err := ParseFilterValue(ast.Field{Name: "id"}, "not.eq.5")
	require.NoError(t, err)
	require.True(t, f.Negated)
	require.Equal(t, ast.Eq, f.Op)
}

func TestParseFilterValue_In(t *testing.T) {
	f, err := ParseFilterValue(ast.Field{Name: "id"}, "in.(1,2,3)")
	require.NoError(t, err)
	require.Equal(t, ast.In, f.Op)
	require.Equal(t, []string{"1", "2", "3"}, f.Value)
}

func TestParseFilterValue_Is(t *testing.T) {
	f, err := ParseFilterValue(ast.Field{Name: "deleted_at"}, "is.null")
	require.NoError(t, err)
	require.Equal(t, ast.Is, f.Op)
	require.Nil(t, f.Value)
}

func TestParseFilterValue_FTSWithLang(t *testing.T) {
	f, err := ParseFilterValue(ast.Field{Name: "body"}, "fts(english).cat")
	require.NoError(t, err)
	require.Equal(t, ast.FTS, f.Op)
	require.Equal(t, "english", f.FTSLang)
	require.Equal(t, "cat", f.Value)
}

func TestParseFilterValue_UnknownOp(t *testing.T) {
	_, err := ParseFilterValue(ast.Field{Name: "id"}, "bogus.5")
	require.Error(t, err)
}

func TestFilterStringRoundTrip_PLFTSKeepsLang(t *testing.T) {
	// plfts(lang).term must not lose its language on the way back to text
	// (ast.PLFTS previously fell through to the default case in
	// opValueString, silently dropping FTSLang).
	orig, err := ParseFilterValue(ast.Field{Name: "body"}, "plfts(english).cat")
	require.NoError(t, err)
	require.Equal(t, ast.PLFTS, orig.Op)

	printed := FilterString(orig)
	require.Equal(t, "body=plfts(english).cat", printed)

	reparsed, err := ParseFilterValue(ast.Field{Name: "body"}, strings.TrimPrefix(printed, "body="))
	require.NoError(t, err)
	require.Equal(t, orig, reparsed)
}

func TestFilterStringRoundTrip(t *testing.T) {
	// Testable property 4: parse, print, reparse yields an equal tree.
	orig, err := ParseLogicTree(ast.And, false, "(id.eq.1,or(name.eq.foo,name.eq.bar))")
	require.NoError(t, err)

	printed := FilterString(orig)
	require.True(t, strings.HasPrefix(printed, "and="))
	reparsed, err := ParseLogicTree(ast.And, false, strings.TrimPrefix(printed, "and="))
	require.NoError(t, err)
	require.Equal(t, orig, reparsed)
}
