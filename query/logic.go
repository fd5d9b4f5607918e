package query

import (
	"strings"

	"github.com/restql/restql/apperr"
	"github.com/restql/restql/ast"
)

// ParseLogicKey recognizes "and", "or", "not.and", "not.or" as a logic-tree
// key, returning the connective, whether the whole group is negated, and
// ok=false for anything else (a plain column filter key).
func ParseLogicKey(key string) (connective ast.Connective, negated bool, ok bool) {
	rest := key
	if strings.HasPrefix(rest, "not.") {
		negated = true
		rest = rest[len("not."):]
	}
	switch rest {
	case "and":
		return ast.And, negated, true
	case "or":
		return ast.Or, negated, true
	default:
		return 0, false, false
	}
}

// ParseLogicTree parses one `and=(...)`/`or=(...)` value: a parenthesized,
// comma-separated list of leaf filters or nested `and(...)`/`or(...)`/
// `not.and(...)`/`not.or(...)` groups (spec §4.3 "Logic trees").
func ParseLogicTree(connective ast.Connective, negated bool, value string) (*ast.Filter, error) {
	value = strings.TrimSpace(value)
	if !strings.HasPrefix(value, "(") || !strings.HasSuffix(value, ")") {
		return nil, apperr.Parse(value, 1, "(")
	}
	inner := value[1 : len(value)-1]
	items, err := splitTopLevel(inner)
	if err != nil {
		return nil, err
	}
	children := make([]*ast.Filter, 0, len(items))
	for _, item := range items {
		child, err := parseLogicItem(item)
		if err != nil {
			return nil, err
		}
		children = append(children, child)
	}
	return &ast.Filter{Connective: connective, Children: children, Negated: negated}, nil
}

// parseLogicItem parses one comma-separated member of a logic group: a
// nested group ("and(...)", "or(...)", optionally "not."-prefixed) or a
// leaf comparison ("field.op.value", optionally "field.not.op.value").
func parseLogicItem(item string) (*ast.Filter, error) {
	negated := false
	rest := item
	if strings.HasPrefix(rest, "not.") {
		negated = true
		rest = rest[len("not."):]
	}
	if strings.HasPrefix(rest, "and(") || strings.HasPrefix(rest, "or(") {
		paren := strings.IndexByte(rest, '(')
		conn := ast.And
		if rest[:paren] == "or" {
			conn = ast.Or
		}
		return ParseLogicTree(conn, negated, rest[paren:])
	}
	return parseLeafExpr(rest)
}

// parseLeafExpr parses "field[.table].op.value", scanning dot-separated
// segments until one matches a known operator token (handling an
// interleaved "not" segment), then treating everything after as the
// value — so values may themselves contain dots (decimals, IPs, etc.)
// without confusing the grammar.
func parseLeafExpr(s string) (*ast.Filter, error) {
	parts := strings.Split(s, ".")
	negated := false
	var fieldParts []string
	i := 0
	for ; i < len(parts); i++ {
		seg := parts[i]
		if seg == "not" {
			negated = true
			continue
		}
		name := seg
		if idx := strings.IndexByte(seg, '('); idx >= 0 {
			name = seg[:idx]
		}
		if isOperatorToken(name) {
			break
		}
		fieldParts = append(fieldParts, seg)
	}
	if i >= len(parts) || len(fieldParts) == 0 {
		return nil, apperr.Parse(s, 1, expectedOps()...)
	}
	opToken := parts[i]
	restVal := strings.Join(parts[i+1:], ".")

	field := ast.Field{Name: fieldParts[len(fieldParts)-1]}
	if len(fieldParts) > 1 {
		field.Table = strings.Join(fieldParts[:len(fieldParts)-1], ".")
	}

	return buildFilter(field, negated, opToken, restVal, s, nil)
}

func isOperatorToken(name string) bool {
	switch name {
	case "phfts", "wfts":
		return true
	}
	_, ok := opTable[name]
	return ok
}

// splitTopLevel splits s on commas that aren't nested inside parentheses,
// so "a.eq.1,or(b.eq.2,c.eq.3)" yields ["a.eq.1", "or(b.eq.2,c.eq.3)"].
func splitTopLevel(s string) ([]string, error) {
	var items []string
	depth := 0
	start := 0
	for i, r := range s {
		switch r {
		case '(':
			depth++
		case ')':
			depth--
			if depth < 0 {
				return nil, apperr.Parse(s, i+1, ")")
			}
		case ',':
			if depth == 0 {
				items = append(items, s[start:i])
				start = i + 1
			}
		}
	}
	if depth != 0 {
		return nil, apperr.Parse(s, len(s), ")")
	}
	if start <= len(s) {
		items = append(items, s[start:])
	}
	return items, nil
}
