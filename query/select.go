package query

import (
	"strconv"
	"strings"

	"github.com/restql/restql/apperr"
	"github.com/restql/restql/ast"
)

// EmbedSpec is one comma-separated item of a `select=` value that carries
// a nested resource embedding: the raw hint text (possibly empty) plus the
// column list to recurse the select grammar into. The request parser
// resolves Hint against the catalog via FindRelationship.
type EmbedSpec struct {
	Alias string
	Name  string
	Hint  string
	Inner string // the "(...)" contents, unparsed — recursed into by the request parser
}

// ParseSelectResult is what ParseSelect returns: the flat, non-embedding
// select items for this node, plus the embed specs to resolve and recurse
// into separately (the request parser needs the catalog to do that, which
// this grammar-only package doesn't have access to).
type ParseSelectResult struct {
	Items  []ast.SelectItem
	Embeds []EmbedSpec
}

// ParseSelect parses a `select=` value: a comma list of
// `[alias:]path[::cast]` items, where path is a field (optionally with
// JSON arrow accessors), a `$fn(args)` function application, or a
// `name(...)`/`name!hint(...)` embedding (spec §4.3 "Select syntax").
func ParseSelect(value string) (ParseSelectResult, error) {
	var out ParseSelectResult
	if value == "" {
		return out, nil
	}
	items, err := splitTopLevel(value)
	if err != nil {
		return out, err
	}
	for _, raw := range items {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		alias, rest := splitAlias(raw)
		rest, cast := splitCast(rest)

		switch {
		case strings.HasPrefix(rest, "$"):
			item, err := parseFunctionApplication(alias, cast, rest[1:])
			if err != nil {
				return out, err
			}
			out.Items = append(out.Items, item)
		default:
			name, hint, inner, isEmbed := splitEmbed(rest)
			if isEmbed {
				out.Embeds = append(out.Embeds, EmbedSpec{Alias: alias, Name: name, Hint: hint, Inner: inner})
				continue
			}
			field, err := parseFieldPath(rest)
			if err != nil {
				return out, err
			}
			if len(field.Path) > 0 {
				out.Items = append(out.Items, ast.SelectItem{Kind: ast.JSONPathItem, FieldRef: field, Alias: alias, Cast: cast})
			} else {
				out.Items = append(out.Items, ast.SelectItem{Kind: ast.SimpleItem, FieldRef: field, Alias: alias, Cast: cast})
			}
		}
	}
	return out, nil
}

func splitAlias(s string) (alias, rest string) {
	// Alias is only recognized before a bare identifier, never inside a
	// JSON path or function call, so look for ':' before the first '(' or
	// '-' (which would start a "->" accessor).
	limit := len(s)
	if i := strings.IndexByte(s, '('); i >= 0 && i < limit {
		limit = i
	}
	if i := strings.Index(s, "->"); i >= 0 && i < limit {
		limit = i
	}
	// A "::cast" suffix is not an alias separator.
	if i := strings.Index(s, "::"); i >= 0 && i < limit {
		limit = i
	}
	if i := strings.IndexByte(s[:limit], ':'); i >= 0 {
		return s[:i], s[i+1:]
	}
	return "", s
}

func splitCast(s string) (rest, cast string) {
	if i := strings.LastIndex(s, "::"); i >= 0 && !strings.Contains(s[i+2:], ")") {
		return s[:i], s[i+2:]
	}
	return s, ""
}

// splitEmbed recognizes "name(...)" or "name!hint(...)" and returns the
// embedded name, hint, and inner column-list text.
func splitEmbed(s string) (name, hint, inner string, ok bool) {
	paren := strings.IndexByte(s, '(')
	if paren < 0 || !strings.HasSuffix(s, ")") {
		return "", "", "", false
	}
	head := s[:paren]
	inner = s[paren+1 : len(s)-1]
	if bang := strings.IndexByte(head, '!'); bang >= 0 {
		return head[:bang], head[bang+1:], inner, true
	}
	return head, "", inner, true
}

// ParseFieldPath parses a bare field reference — optionally table-qualified,
// optionally followed by a chain of JSON arrow accessors — the same way a
// select item's path is parsed. Exported for the request parser, which
// needs it to turn a raw filter/order query-string key into an ast.Field.
func ParseFieldPath(s string) (ast.Field, error) {
	return parseFieldPath(s)
}

func parseFieldPath(s string) (ast.Field, error) {
	table := ""
	name := s
	if dot := strings.IndexByte(s, '.'); dot >= 0 && !strings.Contains(s[:dot], "-") {
		// Only treat a leading "table.column" as two segments when there's
		// no arrow yet; JSON keys never legally precede the base field.
		if arrow := strings.Index(s, "->"); arrow < 0 || dot < arrow {
			table = s[:dot]
			name = s[dot+1:]
		}
	}
	arrowIdx := strings.Index(name, "->")
	if arrowIdx < 0 {
		return ast.Field{Table: table, Name: name}, nil
	}
	base := name[:arrowIdx]
	steps, err := parseJSONSteps(name[arrowIdx:])
	if err != nil {
		return ast.Field{}, err
	}
	return ast.Field{Table: table, Name: base, Path: steps}, nil
}

// parseJSONSteps parses a chain of "->key"/"->>key"/"->index" accessors.
// Only the terminal "->>" accessor yields text; every other step (and any
// non-terminal step regardless of arrow form) yields json (spec §9).
func parseJSONSteps(s string) ([]ast.JSONStep, error) {
	var steps []ast.JSONStep
	for len(s) > 0 {
		text := false
		if strings.HasPrefix(s, "->>") {
			text = true
			s = s[3:]
		} else if strings.HasPrefix(s, "->") {
			s = s[2:]
		} else {
			return nil, apperr.Parse(s, 1, "->", "->>")
		}
		end := strings.Index(s, "->")
		var tok string
		if end < 0 {
			tok, s = s, ""
		} else {
			tok, s = s[:end], s[end:]
		}
		step := ast.JSONStep{Text: text}
		if n, err := strconv.Atoi(tok); err == nil {
			step.Index = &n
		} else {
			step.Key = tok
		}
		steps = append(steps, step)
	}
	// Only the final step keeps its Text flag; earlier "->>"-marked steps
	// (a malformed but tolerated input) are coerced to json per spec §9.
	for i := range steps[:max(0, len(steps)-1)] {
		steps[i].Text = false
	}
	return steps, nil
}

// parseFunctionApplication parses the inside of a "$name(args)" or
// "$name(args)-p(cols)-o(cols)" window-annotated application.
func parseFunctionApplication(alias, cast, s string) (ast.SelectItem, error) {
	paren := strings.IndexByte(s, '(')
	if paren < 0 {
		return ast.SelectItem{}, apperr.Parse(s, 1, "(")
	}
	name := s[:paren]
	depth := 0
	close := -1
	for i := paren; i < len(s); i++ {
		switch s[i] {
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				close = i
			}
		}
		if close >= 0 {
			break
		}
	}
	if close < 0 {
		return ast.SelectItem{}, apperr.Parse(s, len(s), ")")
	}
	argsStr := s[paren+1 : close]
	args, err := parseFunctionArgs(argsStr)
	if err != nil {
		return ast.SelectItem{}, err
	}

	item := ast.SelectItem{Kind: ast.FunctionItem, Name: name, Args: args, Alias: alias, Cast: cast}

	window := s[close+1:]
	if window != "" {
		spec, err := parseWindowSpec(window)
		if err != nil {
			return ast.SelectItem{}, err
		}
		item.Window = spec
	}
	return item, nil
}

func parseFunctionArgs(s string) ([]ast.SelectItem, error) {
	if s == "" {
		return nil, nil
	}
	parts, err := splitTopLevel(s)
	if err != nil {
		return nil, err
	}
	args := make([]ast.SelectItem, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if strings.HasPrefix(p, "$") {
			fn, err := parseFunctionApplication("", "", p[1:])
			if err != nil {
				return nil, err
			}
			args = append(args, fn)
			continue
		}
		rest, cast := splitCast(p)
		if lit, ok := parseLiteralArg(rest); ok {
			args = append(args, ast.SelectItem{Kind: ast.LiteralItem, Literal: lit, Cast: cast})
			continue
		}
		field, err := parseFieldPath(rest)
		if err != nil {
			return nil, err
		}
		args = append(args, ast.SelectItem{Kind: ast.SimpleItem, FieldRef: field, Cast: cast})
	}
	return args, nil
}

// parseLiteralArg recognizes a single-quoted string ('X-') or a bare numeric
// token as a function argument's literal value (spec §3: a function
// argument is "a field, literal, or another application"), distinguishing
// it from a bare field-path argument such as "name".
func parseLiteralArg(s string) (any, bool) {
	if len(s) >= 2 && s[0] == '\'' && s[len(s)-1] == '\'' {
		return strings.ReplaceAll(s[1:len(s)-1], "''", "'"), true
	}
	if n, err := strconv.ParseFloat(s, 64); err == nil {
		return n, true
	}
	return nil, false
}

// parseWindowSpec parses the "-p(cols)-o(cols)" suffix that turns a
// function application into a window expression.
func parseWindowSpec(s string) (*ast.WindowSpec, error) {
	spec := &ast.WindowSpec{}
	for len(s) > 0 {
		if !strings.HasPrefix(s, "-") {
			return nil, apperr.Parse(s, 1, "-p(", "-o(")
		}
		s = s[1:]
		var kind byte
		if strings.HasPrefix(s, "p(") {
			kind = 'p'
			s = s[2:]
		} else if strings.HasPrefix(s, "o(") {
			kind = 'o'
			s = s[2:]
		} else {
			return nil, apperr.Parse(s, 1, "p(", "o(")
		}
		close := strings.IndexByte(s, ')')
		if close < 0 {
			return nil, apperr.Parse(s, len(s), ")")
		}
		body, rest := s[:close], s[close+1:]
		s = rest
		switch kind {
		case 'p':
			for _, col := range strings.Split(body, ",") {
				spec.PartitionBy = append(spec.PartitionBy, ast.Field{Name: col})
			}
		case 'o':
			order, err := ParseOrder(body)
			if err != nil {
				return nil, err
			}
			spec.OrderBy = order
		}
	}
	return spec, nil
}
