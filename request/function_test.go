package request

import (
	"net/http"
	"net/url"
	"testing"

	"github.com/restql/restql/ast"
	"github.com/stretchr/testify/require"
)

func TestParse_FunctionCallPost(t *testing.T) {
	cat := testCatalog(t)
	res, err := Parse(Input{
		Method:        http.MethodPost,
		Object:        "search_clients",
		Catalog:       cat,
		Query:         url.Values{},
		Headers:       http.Header{},
		Body:          []byte(`{"term":"Acme"}`),
		IsFunction:    true,
		ReturnsScalar: false,
	})
	require.NoError(t, err)
	require.Equal(t, ast.FunctionCall, res.AR.Kind)
	require.Equal(t, "search_clients", res.AR.Function.Name)
	require.Equal(t, "Acme", res.AR.Function.Args["term"])
	require.False(t, res.AR.Function.SingleObject)
}

func TestParse_FunctionCallGetUsesQueryArgs(t *testing.T) {
	cat := testCatalog(t)
	q := url.Values{"term": {"Acme"}, "limit": {"5"}}
	res, err := Parse(Input{
		Method:        http.MethodGet,
		Object:        "search_clients",
		Catalog:       cat,
		Query:         q,
		Headers:       http.Header{},
		IsFunction:    true,
		ReturnsScalar: true,
	})
	require.NoError(t, err)
	require.Equal(t, ast.FunctionCall, res.AR.Kind)
	require.Equal(t, "Acme", res.AR.Function.Args["term"])
	require.Equal(t, "5", res.AR.Function.Args["limit"])
	require.True(t, res.AR.Function.ReturnsScalar)
}

func TestParse_FunctionCallSingleObjectPrefer(t *testing.T) {
	cat := testCatalog(t)
	h := http.Header{}
	h.Set("Prefer", "params=single-object")
	res, err := Parse(Input{
		Method:     http.MethodPost,
		Object:     "search_clients",
		Catalog:    cat,
		Query:      url.Values{},
		Headers:    h,
		Body:       []byte(`{"term":"Acme","limit":5}`),
		IsFunction: true,
	})
	require.NoError(t, err)
	require.True(t, res.AR.Function.SingleObject)
	decoded, ok := res.AR.Function.Args[""].(map[string]any)
	require.True(t, ok)
	require.Equal(t, "Acme", decoded["term"])
}

func TestParse_FunctionCallUnsupportedMethod(t *testing.T) {
	cat := testCatalog(t)
	_, err := Parse(Input{
		Method:     http.MethodDelete,
		Object:     "search_clients",
		Catalog:    cat,
		Query:      url.Values{},
		Headers:    http.Header{},
		IsFunction: true,
	})
	require.Error(t, err)
}
