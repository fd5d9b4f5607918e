// Package query implements the filter and select mini-languages described
// in spec §4.3: recursive-descent parsers over string slices producing
// ast.Filter / ast.SelectItem trees.
//
// Grounded on querylanguage/types_test.go's documented operator vocabulary
// and on compiler/gen/sql's entql.go runtime-filter shape (RuntimeFilter,
// CompositeFilter, operator constants), restated by hand rather than
// generated, since restql parses one request at a time instead of emitting
// a fixed per-schema filter API.
package query

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/restql/restql/apperr"
	"github.com/restql/restql/ast"
	"golang.org/x/text/unicode/norm"
)

var opTable = map[string]ast.Operator{
	"eq":    ast.Eq,
	"neq":   ast.Neq,
	"lt":    ast.Lt,
	"lte":   ast.Lte,
	"gt":    ast.Gt,
	"gte":   ast.Gte,
	"like":  ast.Like,
	"ilike": ast.ILike,
	"match":  ast.Match,
	"imatch": ast.IMatch,
	"in":    ast.In,
	"is":    ast.Is,
	"fts":   ast.FTS,
	"plfts": ast.PLFTS,
	"cs":    ast.CS,
	"cd":    ast.CD,
	"ov":    ast.Ov,
	"sl":    ast.SL,
	"sr":    ast.SR,
	"nxl":   ast.NXL,
	"nxr":   ast.NXR,
	"adj":   ast.Adj,
}

var opNames = func() map[ast.Operator]string {
	m := make(map[ast.Operator]string, len(opTable))
	for k, v := range opTable {
		m[v] = k
	}
	return m
}()

// ParseFilterValue parses one `key=[not.]op.value` filter parameter value
// (the part after "="), where field names the already-split key. It
// handles the `in.(...)`, `is.*` and `fts`/`plfts`/`phfts`/`wfts` (each
// optionally `op(lang).value`) shapes in addition to the plain `op.value`
// form.
func ParseFilterValue(field ast.Field, value string) (*ast.Filter, error) {
	p := &parser{s: value}
	negated := false
	if p.consumeLiteral("not.") {
		negated = true
	}

	opToken, rest, err := p.splitOp()
	if err != nil {
		return nil, err
	}
	return buildFilter(field, negated, opToken, rest, value, p)
}

// buildFilter finishes parsing once the operator token and its remaining
// value text have been isolated, shared by ParseFilterValue (top-level
// "key=value" filters) and the and/or logic-tree leaf parser.
func buildFilter(field ast.Field, negated bool, opToken, rest, origin string, p *parser) (*ast.Filter, error) {
	var lang string
	kind := ast.FTSPlain
	opName := opToken
	if idx := strings.IndexByte(opToken, '('); idx >= 0 && strings.HasSuffix(opToken, ")") {
		opName = opToken[:idx]
		lang = opToken[idx+1 : len(opToken)-1]
	}
	switch opName {
	case "plfts":
		kind = ast.FTSPlain
	case "phfts":
		opName = "fts"
		kind = ast.FTSPhrase
	case "wfts":
		opName = "fts"
		kind = ast.FTSWebsearch
	}

	op, ok := opTable[opName]
	if !ok {
		col := 1
		if p != nil {
			col = p.col(origin)
		}
		return nil, apperr.Parse(opToken, col, expectedOps()...)
	}

	var val any
	switch op {
	case ast.In:
		items, err := parseInList(rest)
		if err != nil {
			return nil, err
		}
		val = items
	case ast.Is:
		val = parseIsValue(rest)
	case ast.FTS, ast.PLFTS:
		// Normalize composed/decomposed unicode variants of the same search
		// term (e.g. combining-accent vs. precomposed letters) to one form
		// before the dialect's text-search operator ever sees it, so "café"
		// typed either way matches the same tsvector/MATCH entry.
		val = norm.NFC.String(rest)
	default:
		val = rest
	}

	return &ast.Filter{
		Field:    field,
		Op:       op,
		Value:    val,
		Negated:  negated,
		FTSLang:  lang,
		FTSKindV: kind,
	}, nil
}

func expectedOps() []string {
	names := make([]string, 0, len(opTable))
	for k := range opTable {
		names = append(names, k)
	}
	return names
}

func parseIsValue(s string) any {
	switch strings.ToLower(s) {
	case "null":
		return nil
	case "true":
		return true
	case "false":
		return false
	case "unknown":
		return "unknown"
	default:
		return s
	}
}

func parseInList(s string) ([]string, error) {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "(") || !strings.HasSuffix(s, ")") {
		return nil, apperr.Parse(s, 1, "(")
	}
	inner := s[1 : len(s)-1]
	if inner == "" {
		return nil, nil
	}
	var items []string
	var cur strings.Builder
	quoted := false
	for i := 0; i < len(inner); i++ {
		c := inner[i]
		switch {
		case c == '"' :
			quoted = !quoted
		case c == ',' && !quoted:
			items = append(items, cur.String())
			cur.Reset()
		default:
			cur.WriteByte(c)
		}
	}
	items = append(items, cur.String())
	return items, nil
}

// parser is a minimal cursor over a string slice, shared by the filter and
// select grammars (spec §4.3 "recursive-descent parsers over string
// slices").
type parser struct {
	s   string
	pos int
}

func (p *parser) consumeLiteral(lit string) bool {
	if strings.HasPrefix(p.s[p.pos:], lit) {
		p.pos += len(lit)
		return true
	}
	return false
}

// splitOp splits "op.rest" on the first '.', returning an error
// citing the column if no '.' separator exists at all.
func (p *parser) splitOp() (op string, rest string, err error) {
	remainder := p.s[p.pos:]
	idx := strings.IndexByte(remainder, '.')
	if idx < 0 {
		return "", "", apperr.Parse(remainder, p.col(remainder), expectedOps()...)
	}
	return remainder[:idx], remainder[idx+1:], nil
}

func (p *parser) col(frag string) int {
	return len(p.s) - len(frag) + 1
}

// FilterString renders f back into the canonical `key=[not.]op.value` (leaf)
// or `[not.]and=(...)`/`[not.]or=(...)` (logic group) syntax, supporting
// testable property 4 (round-trip filter parsing).
func FilterString(f *ast.Filter) string {
	if f == nil {
		return ""
	}
	if f.IsLogic() {
		prefix := ""
		if f.Negated {
			prefix = "not."
		}
		conn := "and"
		if f.Connective == ast.Or {
			conn = "or"
		}
		return prefix + conn + "=" + groupBody(f)
	}
	return fieldString(f.Field) + "=" + opValueString(f)
}

// itemString renders f the way it appears as a *member* of a logic group:
// a nested group uses "[not.]conn(...)" (no leading field, no "="), a leaf
// uses "field.[not.]op.value" (dot, not "=").
func itemString(f *ast.Filter) string {
	if f.IsLogic() {
		prefix := ""
		if f.Negated {
			prefix = "not."
		}
		conn := "and"
		if f.Connective == ast.Or {
			conn = "or"
		}
		return prefix + conn + groupBody(f)
	}
	return exprString(f)
}

func groupBody(f *ast.Filter) string {
	parts := make([]string, len(f.Children))
	for i, c := range f.Children {
		parts[i] = itemString(c)
	}
	return "(" + strings.Join(parts, ",") + ")"
}

// exprString renders one leaf comparison as "field.[not.]op.value", the
// form a leaf takes as a member of a logic group; FilterString prints a
// top-level leaf as "field=" plus opValueString instead.
func exprString(f *ast.Filter) string {
	return fieldString(f.Field) + "." + opValueString(f)
}

func fieldString(f ast.Field) string {
	if f.Table != "" {
		return f.Table + "." + f.Name
	}
	return f.Name
}

func opValueString(f *ast.Filter) string {
	prefix := ""
	if f.Negated {
		prefix = "not."
	}
	name := opNames[f.Op]
	switch f.Op {
	case ast.In:
		items, _ := f.Value.([]string)
		return prefix + name + ".(" + strings.Join(items, ",") + ")"
	case ast.FTS, ast.PLFTS:
		token := name
		if f.Op == ast.FTS {
			switch f.FTSKindV {
			case ast.FTSPhrase:
				token = "phfts"
			case ast.FTSWebsearch:
				token = "wfts"
			}
		}
		if f.FTSLang != "" {
			token += "(" + f.FTSLang + ")"
		}
		return prefix + token + "." + fmt.Sprint(f.Value)
	default:
		return prefix + name + "." + fmt.Sprint(f.Value)
	}
}

// ParseOrder parses a comma list of `field[.(asc|desc)][.(nullsfirst|
// nullslast)]` entries (spec §4.3 "Ordering syntax").
func ParseOrder(value string) ([]ast.OrderItem, error) {
	if value == "" {
		return nil, nil
	}
	var items []ast.OrderItem
	for _, entry := range strings.Split(value, ",") {
		parts := strings.Split(entry, ".")
		if len(parts) == 0 || parts[0] == "" {
			return nil, apperr.Parse(entry, 1, "field name")
		}
		item := ast.OrderItem{Field: fieldFromPath(parts[0])}
		for _, qualifier := range parts[1:] {
			switch qualifier {
			case "asc":
				item.Direction = ast.Asc
			case "desc":
				item.Direction = ast.Desc
			case "nullsfirst":
				item.Nulls = ast.NullsFirst
			case "nullslast":
				item.Nulls = ast.NullsLast
			default:
				return nil, apperr.Parse(qualifier, 1, "asc", "desc", "nullsfirst", "nullslast")
			}
		}
		items = append(items, item)
	}
	return items, nil
}

func fieldFromPath(s string) ast.Field {
	if dot := strings.LastIndexByte(s, '.'); dot >= 0 {
		// table.column for an embedded ordering key.
		if !strings.ContainsAny(s, "(){}") {
			return ast.Field{Table: s[:dot], Name: s[dot+1:]}
		}
	}
	return ast.Field{Name: s}
}

// ParseLimitOffset converts the "limit"/"offset" query values to ints,
// returning a Parse Error on malformed input.
func ParseLimitOffset(key, value string) (int, error) {
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, apperr.Parse(value, 1, "integer")
	}
	return n, nil
}
