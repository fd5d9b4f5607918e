package permission

import (
	"testing"

	"github.com/restql/restql/ast"
	"github.com/restql/restql/catalog"
	"github.com/stretchr/testify/require"
)

const permSchemaJSON = `{
  "schemas": [
    {
      "name": "public",
      "objects": [
        {
          "name": "accounts",
          "kind": "table",
          "columns": [
            {"name": "id", "data_type": "int", "primary_key": true},
            {"name": "name", "data_type": "text"},
            {"name": "ssn", "data_type": "text"}
          ],
          "permissions": [
            {
              "role": "webuser",
              "select": {
                "columns": ["id", "name"],
                "policy": [
                  {"field": "tenant_id", "op": "eq", "value": 7}
                ]
              },
              "insert": {"columns": ["name"]},
              "update": {"columns": ["name"]}
            }
          ]
        }
      ]
    }
  ]
}`

func permCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()
	cat, err := catalog.Load([]byte(permSchemaJSON), "postgresql")
	require.NoError(t, err)
	return cat
}

func selectNode(items ...ast.SelectItem) *ast.Node {
	return &ast.Node{
		Kind: ast.Select,
		From: ast.TableRef{Schema: "public", Table: "accounts"},
		Select: items,
	}
}

func TestCheck_DeniesUnpermittedColumn(t *testing.T) {
	cat := permCatalog(t)
	node := selectNode(
		ast.SelectItem{Kind: ast.SimpleItem, FieldRef: ast.Field{Name: "ssn"}},
	)
	err := Check(node, "webuser", cat, nil)
	require.Error(t, err)
}

func TestCheck_ExpandsSelectStar(t *testing.T) {
	cat := permCatalog(t)
	node := selectNode(
		ast.SelectItem{Kind: ast.SimpleItem, FieldRef: ast.Field{Name: "*"}},
	)
	err := Check(node, "webuser", cat, nil)
	require.NoError(t, err)
	require.Len(t, node.Select, 2)
	names := []string{node.Select[0].FieldRef.Name, node.Select[1].FieldRef.Name}
	require.ElementsMatch(t, []string{"id", "name"}, names)
}

func TestCheck_InjectsPolicyAtFront(t *testing.T) {
	cat := permCatalog(t)
	node := selectNode(ast.SelectItem{Kind: ast.SimpleItem, FieldRef: ast.Field{Name: "id"}})
	node.Where = &ast.Filter{Field: ast.Field{Name: "id"}, Op: ast.Gt, Value: "5"}

	err := Check(node, "webuser", cat, nil)
	require.NoError(t, err)
	require.True(t, node.Where.IsLogic())
	require.Equal(t, ast.And, node.Where.Connective)
	require.Len(t, node.Where.Children, 2)
	require.Equal(t, "tenant_id", node.Where.Children[0].Field.Name)
}

func TestCheck_RejectsUnsafeFunction(t *testing.T) {
	cat := permCatalog(t)
	node := selectNode(ast.SelectItem{Kind: ast.FunctionItem, Name: "random"})
	err := Check(node, "webuser", cat, nil)
	require.Error(t, err)
}

func TestCheck_DeniesUnpermittedWriteColumn(t *testing.T) {
	cat := permCatalog(t)
	node := &ast.Node{
		Kind: ast.Insert,
		From: ast.TableRef{Schema: "public", Table: "accounts"},
		Payload: &ast.Payload{Rows: []map[string]any{{"name": "Acme", "ssn": "123-45-6789"}}},
	}
	err := Check(node, "webuser", cat, nil)
	require.Error(t, err)
}

func TestCheck_RecursesIntoSubSelects(t *testing.T) {
	cat := permCatalog(t)
	node := selectNode(ast.SelectItem{Kind: ast.SimpleItem, FieldRef: ast.Field{Name: "id"}})
	node.SubSelects = []ast.SubSelect{
		{
			Join: ast.Join{Kind: ast.Parent},
			Node: selectNode(ast.SelectItem{Kind: ast.SimpleItem, FieldRef: ast.Field{Name: "ssn"}}),
		},
	}
	err := Check(node, "webuser", cat, nil)
	require.Error(t, err)
}
