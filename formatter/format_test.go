package formatter_test

import (
	"strings"
	"testing"

	"github.com/restql/restql/ast"
	"github.com/restql/restql/catalog"
	"github.com/restql/restql/formatter"
	"github.com/restql/restql/formatter/postgres"
	"github.com/restql/restql/formatter/sqlite"
	"github.com/stretchr/testify/require"
)

const schemaJSON = `{
  "schemas": [
    {
      "name": "public",
      "objects": [
        {
          "name": "clients",
          "kind": "table",
          "columns": [
            {"name": "id", "data_type": "int", "primary_key": true},
            {"name": "name", "data_type": "text"}
          ]
        },
        {
          "name": "projects",
          "kind": "table",
          "columns": [
            {"name": "id", "data_type": "int", "primary_key": true},
            {"name": "name", "data_type": "text"},
            {"name": "client_id", "data_type": "int"}
          ],
          "foreign_keys": [
            {
              "name": "projects_client_id_fkey",
              "table": ["public", "projects"],
              "columns": ["client_id"],
              "referenced_table": ["public", "clients"],
              "referenced_columns": ["id"]
            }
          ]
        }
      ]
    }
  ]
}`

func testCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()
	cat, err := catalog.Load([]byte(schemaJSON), "postgresql")
	require.NoError(t, err)
	return cat
}

func selectItem(name string) ast.SelectItem {
	return ast.SelectItem{Kind: ast.SimpleItem, FieldRef: ast.Field{Name: name}}
}

func TestFormatSelect_Simple(t *testing.T) {
	cat := testCatalog(t)
	node := &ast.Node{
		Kind:   ast.Select,
		From:   ast.TableRef{Schema: "public", Table: "projects"},
		Select: []ast.SelectItem{selectItem("id"), selectItem("name")},
	}
	sql, params, err := formatter.FormatSelect(node, postgres.Dialect, cat, false)
	require.NoError(t, err)
	require.Equal(t, []any{"response.headers", "response.status", "id", "name"}, params)
	require.Contains(t, sql, `"public"."projects"`)
	require.Contains(t, sql, "jsonb_agg")
	require.Contains(t, sql, "page_total")
}

func TestFormatSelect_WithFilterAndLimit(t *testing.T) {
	cat := testCatalog(t)
	limit := 10
	node := &ast.Node{
		Kind:   ast.Select,
		From:   ast.TableRef{Schema: "public", Table: "projects"},
		Select: []ast.SelectItem{selectItem("id")},
		Where:  &ast.Filter{Field: ast.Field{Name: "name"}, Op: ast.Eq, Value: "Acme"},
		Limit:  &limit,
	}
	sql, params, err := formatter.FormatSelect(node, postgres.Dialect, cat, false)
	require.NoError(t, err)
	require.Equal(t, []any{"response.headers", "response.status", "id", "Acme", 10}, params)
	require.Contains(t, sql, "WHERE")
	require.Contains(t, sql, "LIMIT $5")
}

func TestFormatSelect_CountExactDuplicatesQuery(t *testing.T) {
	cat := testCatalog(t)
	node := &ast.Node{
		Kind:   ast.Select,
		From:   ast.TableRef{Schema: "public", Table: "projects"},
		Select: []ast.SelectItem{selectItem("id")},
	}
	sql, params, err := formatter.FormatSelect(node, postgres.Dialect, cat, true)
	require.NoError(t, err)
	require.Equal(t, []any{"id", "response.headers", "response.status", "id"}, params)
	require.Contains(t, sql, "total_result_set")
}

func TestFormatSelect_EmbedParent(t *testing.T) {
	cat := testCatalog(t)
	rel, err := cat.FindRelationship(catalog.ObjectRef{Schema: "public", Name: "projects"}, "", "clients", "")
	require.NoError(t, err)

	node := &ast.Node{
		Kind:   ast.Select,
		From:   ast.TableRef{Schema: "public", Table: "projects"},
		Select: []ast.SelectItem{selectItem("id")},
		SubSelects: []ast.SubSelect{
			{
				Join: rel.Join(),
				Node: &ast.Node{
					Kind:   ast.Select,
					From:   ast.TableRef{Schema: "public", Table: "clients"},
					Select: []ast.SelectItem{selectItem("id"), selectItem("name")},
				},
			},
		},
	}
	sql, _, err := formatter.FormatSelect(node, postgres.Dialect, cat, false)
	require.NoError(t, err)
	require.Contains(t, sql, `"public"."clients"`)
	require.Contains(t, sql, `"t1"."client_id" = "t2"."id"`)
}

func TestFormatMutation_InsertOnePostgres(t *testing.T) {
	cat := testCatalog(t)
	node := &ast.Node{
		Kind:      ast.Insert,
		From:      ast.TableRef{Schema: "public", Table: "clients"},
		Returning: []ast.SelectItem{selectItem("id"), selectItem("name")},
		Payload:   &ast.Payload{Rows: []map[string]any{{"name": "Acme"}}},
	}
	sql, params, err := formatter.FormatMutation(node, postgres.Dialect, cat)
	require.NoError(t, err)
	require.Equal(t, []any{"Acme"}, params)
	require.True(t, strings.HasPrefix(sql, "WITH mutated AS (INSERT INTO"))
	require.Contains(t, sql, "RETURNING *")
}

func TestFormatMutationTwoStage_UpdateSQLite(t *testing.T) {
	cat := testCatalog(t)
	node := &ast.Node{
		Kind:      ast.Update,
		From:      ast.TableRef{Schema: "public", Table: "clients"},
		Returning: []ast.SelectItem{selectItem("id"), selectItem("name")},
		Payload:   &ast.Payload{Rows: []map[string]any{{"name": "Acme Renamed"}}},
		Filter:    &ast.Filter{Field: ast.Field{Name: "id"}, Op: ast.Eq, Value: 19},
	}
	stage1, params, stage2, err := formatter.FormatMutationTwoStage(node, sqlite.Dialect, cat)
	require.NoError(t, err)
	require.Contains(t, stage1, "UPDATE")
	require.Equal(t, []any{"Acme Renamed", 19}, params)

	sql, _, err := stage2([]map[string]any{{"id": 19}})
	require.NoError(t, err)
	require.Contains(t, sql, "SELECT COUNT(*) AS page_total")
	require.Contains(t, sql, `"t1"."id" = $3`)
}

func TestFormatMutationTwoStage_EmptyResult(t *testing.T) {
	cat := testCatalog(t)
	node := &ast.Node{
		Kind:      ast.Delete,
		From:      ast.TableRef{Schema: "public", Table: "clients"},
		Returning: []ast.SelectItem{selectItem("id")},
		Filter:    &ast.Filter{Field: ast.Field{Name: "id"}, Op: ast.Eq, Value: 404},
	}
	_, _, stage2, err := formatter.FormatMutationTwoStage(node, sqlite.Dialect, cat)
	require.NoError(t, err)
	sql, params, err := stage2(nil)
	require.NoError(t, err)
	require.Nil(t, params)
	require.Contains(t, sql, "0 AS page_total")
}

func TestFormatFunctionCall_Scalar(t *testing.T) {
	node := &ast.Node{
		Kind: ast.FunctionCall,
		Function: &ast.FunctionCallSpec{
			Schema:        "public",
			Name:          "add_them",
			Args:          map[string]any{"a": 1, "b": 2},
			ReturnsScalar: true,
		},
	}
	sql, params, err := formatter.FormatFunctionCall(node, postgres.Dialect)
	require.NoError(t, err)
	require.Contains(t, sql, `"public"."add_them"`)
	require.Contains(t, sql, `"a" := $1`)
	require.Contains(t, sql, `"b" := $2`)
	require.Equal(t, []any{1, 2}, params)
}

func TestFormatSelect_IsNullTrueFalse(t *testing.T) {
	cat := testCatalog(t)
	for _, tc := range []struct {
		value any
		want  string
	}{
		{nil, "IS NULL"},
		{true, "IS TRUE"},
		{false, "IS FALSE"},
		{"unknown", "IS UNKNOWN"},
	} {
		node := &ast.Node{
			Kind:   ast.Select,
			From:   ast.TableRef{Schema: "public", Table: "projects"},
			Select: []ast.SelectItem{selectItem("id")},
			Where:  &ast.Filter{Field: ast.Field{Name: "name"}, Op: ast.Is, Value: tc.value},
		}
		sql, _, err := formatter.FormatSelect(node, postgres.Dialect, cat, false)
		require.NoError(t, err)
		require.Contains(t, sql, tc.want)
	}
}

func TestFormatSelect_FunctionItemLiteralAndFieldArgs(t *testing.T) {
	node := &ast.Node{
		Kind: ast.Select,
		From: ast.TableRef{Schema: "public", Table: "projects"},
		Select: []ast.SelectItem{
			{
				Kind: ast.FunctionItem,
				Name: "concat",
				Args: []ast.SelectItem{
					{Kind: ast.LiteralItem, Literal: "X-", Cast: "text"},
					{Kind: ast.SimpleItem, FieldRef: ast.Field{Name: "name"}},
				},
			},
		},
	}
	cat := testCatalog(t)
	sql, params, err := formatter.FormatSelect(node, postgres.Dialect, cat, false)
	require.NoError(t, err)
	require.Contains(t, sql, "concat(")
	require.Contains(t, params, "X-")
}
