// Package sqlwrite provides the composable, lazily-flattened SQL fragment
// type every formatter builds statements from. A Snippet is an ordered list
// of chunks — literal text or a typed parameter reference — that only pays
// the cost of placeholder formatting and positional bookkeeping once, at
// Build time.
//
// Grounded on syssam/velox's dialect/sql driver/predicate idiom and on
// subzero's core/src/dynamic_statement.rs (SqlSnippetChunk::{Owned,
// Borrowed,Param}, the fold in generate()). Go strings are already
// reference-counted views into their backing array, so the Owned/Borrowed
// split in the Rust original collapses into a single text chunk here.
package sqlwrite

import "strconv"

// Param is a typed, positional value reference. Type names the target SQL
// type so ClickHouse's `{pN:type}` placeholder (the only dialect that needs
// it) can be emitted without re-inspecting the Go value.
type Param struct {
	Value any
	Type  string
}

// chunkKind distinguishes the two things a Snippet is built from.
type chunkKind uint8

const (
	chunkText chunkKind = iota
	chunkParam
)

type chunk struct {
	kind  chunkKind
	text  string
	param Param
}

// Snippet is an ordered sequence of chunks. The zero value is an empty
// snippet ready to use.
type Snippet struct {
	chunks []chunk
}

// Text appends a literal fragment — a keyword, punctuation, or an
// identifier that has already been validated/quoted by the caller. Text
// never introduces a parameter, so it must never carry a raw user value;
// that invariant is what keeps the emitted statement injection-free.
func Text(s string) Snippet {
	return Snippet{chunks: []chunk{{kind: chunkText, text: s}}}
}

// ParamSnippet returns a snippet holding a single typed parameter placeholder.
func ParamSnippet(p Param) Snippet {
	return Snippet{chunks: []chunk{{kind: chunkParam, param: p}}}
}

// Append concatenates other onto s and returns the combined snippet. s is
// not mutated; its backing slice may be shared, so callers should treat
// snippets as append-only values the way the Rust original treats them as
// moved-from.
func (s Snippet) Append(other Snippet) Snippet {
	out := make([]chunk, 0, len(s.chunks)+len(other.chunks))
	out = append(out, s.chunks...)
	out = append(out, other.chunks...)
	return Snippet{chunks: out}
}

// Len reports the number of chunks, matching SqlSnippet::len.
func (s Snippet) Len() int { return len(s.chunks) }

// IsEmpty reports whether the snippet has no chunks.
func (s Snippet) IsEmpty() bool { return len(s.chunks) == 0 }

// Join concatenates snippets with sep between each, matching the Rust
// JoinIterator trait. An empty input yields an empty snippet.
func Join(parts []Snippet, sep string) Snippet {
	var out Snippet
	for i, p := range parts {
		if i > 0 {
			out = out.Append(Text(sep))
		}
		out = out.Append(p)
	}
	return out
}

// Concat is a variadic convenience over Append for building a snippet from
// a fixed sequence of pieces.
func Concat(parts ...Snippet) Snippet {
	var out Snippet
	for _, p := range parts {
		out = out.Append(p)
	}
	return out
}

// Placeholder renders one parameter's placeholder for the target dialect.
// pos is 1-based and matches the position the value will occupy in the
// final params slice.
type Placeholder func(pos int, typ string) string

// Dollar is PostgreSQL/SQLite-style "$N" placeholders (SQLite's modernc
// driver also accepts this form).
func Dollar(pos int, _ string) string { return "$" + strconv.Itoa(pos) }

// Question is MySQL-style "?" placeholders (order-only, no type tag).
func Question(int, string) string { return "?" }

// ClickHouseNamed renders ClickHouse's "{pN:type}" named placeholder,
// falling back to "String" when the caller didn't pin a type.
func ClickHouseNamed(pos int, typ string) string {
	if typ == "" {
		typ = "String"
	}
	return "{p" + strconv.Itoa(pos) + ":" + typ + "}"
}

// Build flattens a snippet into (sql, params) using ph to render each
// parameter's placeholder. It walks the chunk list exactly once: O(total
// chunks), no per-parameter allocation beyond the returned slices.
//
// Parameter identity (spec §3 invariant: "the same value reference is
// never duplicated across snippets") is the caller's responsibility —
// Build does not deduplicate, it assigns positions in chunk order.
func Build(s Snippet, ph Placeholder) (string, []any) {
	var sql []byte
	params := make([]any, 0, len(s.chunks))
	pos := 1
	for _, c := range s.chunks {
		switch c.kind {
		case chunkText:
			sql = append(sql, c.text...)
		case chunkParam:
			sql = append(sql, ph(pos, c.param.Type)...)
			params = append(params, c.param.Value)
			pos++
		}
	}
	return string(sql), params
}
