package query

import (
	"testing"

	"github.com/restql/restql/ast"
	"github.com/stretchr/testify/require"
)

func TestParseSelect_SimpleAndAlias(t *testing.T) {
	res, err := ParseSelect("id,full_name:name")
	require.NoError(t, err)
	require.Len(t, res.Items, 2)
	require.Equal(t, "id", res.Items[0].FieldRef.Name)
	require.Equal(t, "full_name", res.Items[1].Alias)
	require.Equal(t, "name", res.Items[1].FieldRef.Name)
}

func TestParseSelect_Cast(t *testing.T) {
	res, err := ParseSelect("id::text")
	require.NoError(t, err)
	require.Len(t, res.Items, 1)
	require.Equal(t, "text", res.Items[0].Cast)
}

func TestParseSelect_JSONPath(t *testing.T) {
	res, err := ParseSelect("data->tags->>0")
	require.NoError(t, err)
	require.Len(t, res.Items, 1)
	item := res.Items[0]
	require.Equal(t, ast.JSONPathItem, item.Kind)
	require.Len(t, item.FieldRef.Path, 2)
	require.False(t, item.FieldRef.Path[0].Text)
	require.True(t, item.FieldRef.Path[1].Text)
	require.Equal(t, 0, *item.FieldRef.Path[1].Index)
}

func TestParseSelect_Embed(t *testing.T) {
	res, err := ParseSelect("id,name,client:clients!client_fkey(id,name),tasks(id)")
	require.NoError(t, err)
	require.Len(t, res.Items, 2)
	require.Len(t, res.Embeds, 2)
	require.Equal(t, "client", res.Embeds[0].Alias)
	require.Equal(t, "clients", res.Embeds[0].Name)
	require.Equal(t, "client_fkey", res.Embeds[0].Hint)
	require.Equal(t, "id,name", res.Embeds[0].Inner)
	require.Equal(t, "tasks", res.Embeds[1].Name)
}

func TestParseSelect_Function(t *testing.T) {
	res, err := ParseSelect("total:$sum(amount)")
	require.NoError(t, err)
	require.Len(t, res.Items, 1)
	item := res.Items[0]
	require.Equal(t, ast.FunctionItem, item.Kind)
	require.Equal(t, "sum", item.Name)
	require.Equal(t, "total", item.Alias)
	require.Len(t, item.Args, 1)
	require.Equal(t, "amount", item.Args[0].FieldRef.Name)
}

func TestParseSelect_FunctionLiteralAndFieldArgs(t *testing.T) {
	res, err := ParseSelect("$concat('X-'::text,name,1)")
	require.NoError(t, err)
	require.Len(t, res.Items, 1)
	item := res.Items[0]
	require.Equal(t, "concat", item.Name)
	require.Len(t, item.Args, 3)

	require.Equal(t, ast.LiteralItem, item.Args[0].Kind)
	require.Equal(t, "X-", item.Args[0].Literal)
	require.Equal(t, "text", item.Args[0].Cast)

	require.Equal(t, ast.SimpleItem, item.Args[1].Kind)
	require.Equal(t, "name", item.Args[1].FieldRef.Name)

	require.Equal(t, ast.LiteralItem, item.Args[2].Kind)
	require.Equal(t, float64(1), item.Args[2].Literal)
}

func TestParseSelect_WindowFunction(t *testing.T) {
	res, err := ParseSelect("rank:$row_number()-p(dept)-o(salary.desc)")
	require.NoError(t, err)
	require.Len(t, res.Items, 1)
	item := res.Items[0]
	require.NotNil(t, item.Window)
	require.Len(t, item.Window.PartitionBy, 1)
	require.Equal(t, "dept", item.Window.PartitionBy[0].Name)
	require.Len(t, item.Window.OrderBy, 1)
	require.Equal(t, ast.Desc, item.Window.OrderBy[0].Direction)
}

func TestParseOrder(t *testing.T) {
	items, err := ParseOrder("name.desc.nullslast,id.asc")
	require.NoError(t, err)
	require.Len(t, items, 2)
	require.Equal(t, ast.Desc, items[0].Direction)
	require.Equal(t, ast.NullsLast, items[0].Nulls)
	require.Equal(t, ast.Asc, items[1].Direction)
}
