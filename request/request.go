// Package request builds the Abstract Request (AR) tree from an HTTP
// method, path, query string, headers and body (spec §4.4). It is the one
// package that needs the schema catalog during parsing, since every
// embedding in a `select=` value must be resolved to a concrete
// relationship before the tree is handed to the permission layer.
//
// Grounded on original_source/src/postgrest.rs's ApiRequest construction
// (method dispatch, Prefer/Accept header parsing, PUT filter validation)
// translated into Go idiom, and on the teacher's dialect/sql/predicate.go
// for how a resolved column predicate composes into a node's filter tree.
package request

import (
	"encoding/json"
	"net/http"
	"net/url"
	"strings"

	"github.com/restql/restql/apperr"
	"github.com/restql/restql/ast"
	"github.com/restql/restql/catalog"
	"github.com/restql/restql/query"
)

// Input is everything the parser needs to build one AR tree. Route
// dispatch, JWT verification and content negotiation framing happen
// upstream (spec §1 Out of scope); this package only consumes their
// output.
type Input struct {
	Method  string
	Schema  string // resolved Accept-Profile (reads) / Content-Profile (writes); "" uses the catalog default
	Object  string
	Catalog *catalog.Catalog

	Query   url.Values
	Headers http.Header
	Body    []byte

	// MaxRows caps the root node's row count regardless of any
	// caller-supplied limit (spec §4.4 step 8). Zero means unlimited.
	MaxRows int

	// IsFunction routes Object as a stored-procedure name rather than a
	// relation, for `POST`/`GET /rpc/<function>` (spec §6). ReturnsScalar
	// selects the bare-value response shape; there is no catalog entry for
	// function return types, so the caller (route dispatch, which already
	// knows which functions it exposes) supplies it directly.
	IsFunction    bool
	ReturnsScalar bool
}

// Result is the parser's output: the AR tree plus the cross-cutting
// request properties the formatter and response interpreter need.
type Result struct {
	AR     *ast.Node
	Accept AcceptType
	Prefer Prefer
	// IsPut distinguishes a PUT upsert from a plain POST insert; both
	// produce an ast.Insert node, but the response interpreter applies
	// different status-code rules to each (spec §4.7).
	IsPut bool
	// HadColumns records whether the root relation's ?columns= whitelist
	// was supplied, since a zero-row PATCH only becomes 404 when it was
	// (spec §4.7).
	HadColumns bool
}

const defaultSchema = "public"

// Parse runs the full spec §4.4 pipeline: normalize method, partition the
// query string, resolve embeddings against the catalog, parse the payload,
// and validate PUT shape.
func Parse(in Input) (*Result, error) {
	schema := in.Schema
	if schema == "" {
		schema = defaultSchema
	}
	if in.Schema != "" && !in.Catalog.HasSchema(schema) {
		return nil, apperr.UnacceptableSchema(schema)
	}

	if in.IsFunction {
		return parseFunctionRequest(in, schema)
	}

	kind, err := nodeKindForMethod(in.Method)
	if err != nil {
		return nil, err
	}

	node, err := buildNode(kind, catalog.ObjectRef{Schema: schema, Name: in.Object}, in.Catalog, in.Query)
	if err != nil {
		return nil, err
	}

	prefer := parsePrefer(in.Headers.Get("Prefer"))
	accept := parseAccept(in.Headers.Get("Accept"))
	node.Resolution = prefer.Resolution

	hadColumns := false
	if kind != ast.Select {
		columnsRaw := firstOr(in.Query, "columns")
		hadColumns = columnsRaw != ""
		whitelist := splitCSV(columnsRaw)
		payload, err := parsePayload(in.Headers.Get("Content-Type"), in.Body, whitelist)
		if err != nil {
			return nil, err
		}
		node.Payload = payload
	}

	if oc := firstOr(in.Query, "on_conflict"); oc != "" {
		node.OnConflict = &ast.OnConflictSpec{Columns: splitCSV(oc), Resolution: prefer.Resolution}
	}

	isPut := strings.EqualFold(in.Method, http.MethodPut)
	if isPut {
		obj, ok := in.Catalog.Object(schema, in.Object)
		if !ok {
			return nil, apperr.NotFound(in.Object)
		}
		if err := validatePut(node, obj); err != nil {
			return nil, err
		}
		if node.OnConflict == nil {
			node.OnConflict = &ast.OnConflictSpec{Columns: obj.PrimaryKey(), Resolution: ast.MergeDuplicates}
		}
	}

	if in.MaxRows > 0 {
		mr := in.MaxRows
		node.MaxRows = &mr
	}

	return &Result{AR: node, Accept: accept, Prefer: prefer, IsPut: isPut, HadColumns: hadColumns}, nil
}

// parseFunctionRequest builds a FunctionCall node for `POST`/`GET
// /rpc/<function>` (spec §6). A GET call (read-only functions only, per the
// HTTP method itself rather than any function-volatility introspection this
// package doesn't have) takes its arguments from the query string instead of
// a JSON body, re-encoding them to the flat-object shape ParseFunctionCall
// already expects so both methods share one body parser.
func parseFunctionRequest(in Input, schema string) (*Result, error) {
	prefer := parsePrefer(in.Headers.Get("Prefer"))
	accept := parseAccept(in.Headers.Get("Accept"))

	body := in.Body
	switch {
	case strings.EqualFold(in.Method, http.MethodGet), strings.EqualFold(in.Method, http.MethodHead):
		args := make(map[string]any, len(in.Query))
		for k, v := range in.Query {
			if len(v) > 0 {
				args[k] = v[0]
			}
		}
		encoded, err := json.Marshal(args)
		if err != nil {
			return nil, apperr.Parse(err.Error(), 1, "JSON")
		}
		body = encoded
	case strings.EqualFold(in.Method, http.MethodPost):
		// body is already the raw request payload.
	default:
		return nil, apperr.Parse(in.Method, 1, "GET", "HEAD", "POST")
	}

	node, err := ParseFunctionCall(schema, in.Object, body, prefer, in.ReturnsScalar)
	if err != nil {
		return nil, err
	}
	return &Result{AR: node, Accept: accept, Prefer: prefer}, nil
}

// nodeKindForMethod maps the HTTP method to the Select/Insert/Update/Delete
// node kind (spec §4.4 step 1). PUT also produces an Insert node; Parse
// gives it a merge-duplicates conflict target on the full primary key
// (unless on_conflict was supplied), so the formatter emits it as an
// upsert.
func nodeKindForMethod(method string) (ast.NodeKind, error) {
	switch strings.ToUpper(method) {
	case http.MethodGet, http.MethodHead:
		return ast.Select, nil
	case http.MethodPost, http.MethodPut:
		return ast.Insert, nil
	case http.MethodPatch:
		return ast.Update, nil
	case http.MethodDelete:
		return ast.Delete, nil
	default:
		return 0, apperr.Parse(method, 1, "GET", "HEAD", "POST", "PUT", "PATCH", "DELETE")
	}
}

// buildNode parses one node of the AR tree — the root relation, or a
// sub-select recursed into via an embedding — from the slice of query
// values that belongs to it. Keys of the form "embed.rest" are routed to
// the matching embed's own values map before recursing (spec §4.4 step 3).
func buildNode(kind ast.NodeKind, ref catalog.ObjectRef, cat *catalog.Catalog, values url.Values) (*ast.Node, error) {
	obj, ok := cat.Object(ref.Schema, ref.Name)
	if !ok {
		return nil, apperr.NotFound(ref.Name)
	}
	node := &ast.Node{Kind: kind, From: ast.TableRef{Schema: obj.Schema, Table: obj.Name}}

	parsedSel, err := query.ParseSelect(firstOr(values, "select"))
	if err != nil {
		return nil, err
	}
	if kind == ast.Select {
		node.Select = parsedSel.Items
	} else {
		node.Returning = parsedSel.Items
	}

	embedKeys := make(map[string]bool, len(parsedSel.Embeds))
	for _, e := range parsedSel.Embeds {
		key := e.Alias
		if key == "" {
			key = e.Name
		}
		embedKeys[key] = true
	}

	var filters []*ast.Filter
	embedValues := map[string]url.Values{}

	for key, vals := range values {
		switch key {
		case "select", "limit", "offset", "order", "on_conflict", "columns":
			continue
		}
		if conn, neg, ok := query.ParseLogicKey(key); ok {
			for _, v := range vals {
				f, err := query.ParseLogicTree(conn, neg, v)
				if err != nil {
					return nil, err
				}
				filters = append(filters, f)
			}
			continue
		}
		if dot := strings.IndexByte(key, '.'); dot >= 0 && embedKeys[key[:dot]] {
			prefix, rest := key[:dot], key[dot+1:]
			childValues(embedValues, prefix)[rest] = append(childValues(embedValues, prefix)[rest], vals...)
			continue
		}
		field, err := query.ParseFieldPath(key)
		if err != nil {
			return nil, err
		}
		for _, v := range vals {
			f, err := query.ParseFilterValue(field, v)
			if err != nil {
				return nil, err
			}
			filters = append(filters, f)
		}
	}

	node.Where = ast.And_(filters...)
	if kind != ast.Select {
		node.Filter = node.Where
	}

	if raw := firstOr(values, "order"); raw != "" {
		order, err := query.ParseOrder(raw)
		if err != nil {
			return nil, err
		}
		node.Order = order
	}
	if raw := firstOr(values, "limit"); raw != "" {
		n, err := query.ParseLimitOffset("limit", raw)
		if err != nil {
			return nil, err
		}
		node.Limit = &n
	}
	if raw := firstOr(values, "offset"); raw != "" {
		n, err := query.ParseLimitOffset("offset", raw)
		if err != nil {
			return nil, err
		}
		node.Offset = &n
	}

	for _, e := range parsedSel.Embeds {
		key := e.Alias
		if key == "" {
			key = e.Name
		}
		rel, err := cat.FindRelationship(ref, "", e.Name, e.Hint)
		if err != nil {
			return nil, err
		}
		cv := embedValues[key]
		if cv == nil {
			cv = url.Values{}
		}
		if e.Inner != "" {
			cv.Set("select", e.Inner)
		}
		childRef := catalog.ObjectRef{Schema: rel.To.Schema, Name: rel.To.Name}
		child, err := buildNode(ast.Select, childRef, cat, cv)
		if err != nil {
			return nil, err
		}
		child.From.Alias = e.Alias
		node.SubSelects = append(node.SubSelects, ast.SubSelect{Join: rel.Join(), Node: child})
	}

	return node, nil
}

func childValues(m map[string]url.Values, key string) url.Values {
	v, ok := m[key]
	if !ok {
		v = url.Values{}
		m[key] = v
	}
	return v
}

func firstOr(values url.Values, key string) string {
	v, ok := values[key]
	if !ok || len(v) == 0 {
		return ""
	}
	return v[0]
}

func splitCSV(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}
