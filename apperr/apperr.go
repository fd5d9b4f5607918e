// Package apperr defines the error vocabulary of the request-to-SQL
// compiler: the request and query parsers, the permission layer and the
// response interpreter fail through these types so a single switch at the
// edge of the pipeline can map any of them to an HTTP status. The catalog
// loader and the formatter return plain errors, which that switch maps to
// 500.
package apperr

import (
	"errors"
	"fmt"
)

// Kind identifies one of the error families from the error handling design.
// The numeric values are plain iota ordinals with no HTTP meaning;
// response.StatusFor maps each Kind to its HTTP status.
type Kind int

const (
	// KindParse is a bad filter/select grammar fragment. Carries a column
	// position and an "expected" set so the client can fix the request.
	KindParse Kind = iota
	// KindNotFound covers an unknown relation, an unknown rpc function, or
	// a PATCH with ?columns= that matched zero rows.
	KindNotFound
	// KindAmbiguous is returned when an embed hint resolves to more than
	// one relationship candidate at the lowest tier reached.
	KindAmbiguous
	// KindPermissionDenied covers column/table access refusals and unsafe
	// function calls.
	KindPermissionDenied
	// KindUnacceptableSchema is an Accept-Profile/Content-Profile value
	// outside the set of exposed schemas.
	KindUnacceptableSchema
	// KindSingularity is a SingularJSON request whose row count isn't 1.
	KindSingularity
	// KindPutMismatch is a PUT whose filter isn't exactly eq-on-every-PK,
	// or whose payload PK values disagree with the filter.
	KindPutMismatch
	// KindGUC is a malformed response-headers/response-status GUC value.
	KindGUC
	// KindDatabase is a passthrough database error; its Code carries the
	// driver-reported SQLSTATE/error number.
	KindDatabase
)

func (k Kind) String() string {
	switch k {
	case KindParse:
		return "parse_error"
	case KindNotFound:
		return "not_found"
	case KindAmbiguous:
		return "ambiguous_relationship"
	case KindPermissionDenied:
		return "permission_denied"
	case KindUnacceptableSchema:
		return "unacceptable_schema"
	case KindSingularity:
		return "singularity_error"
	case KindPutMismatch:
		return "put_matching_pk_error"
	case KindGUC:
		return "guc_error"
	case KindDatabase:
		return "database_error"
	default:
		return "unknown_error"
	}
}

// Sentinel errors. Use errors.Is against these, not against a Kind field,
// since every Error value also wraps one of these.
var (
	ErrParse              = errors.New("restql: parse error")
	ErrNotFound           = errors.New("restql: not found")
	ErrAmbiguous          = errors.New("restql: ambiguous relationship")
	ErrPermissionDenied   = errors.New("restql: permission denied")
	ErrUnacceptableSchema = errors.New("restql: unacceptable schema")
	ErrSingularity        = errors.New("restql: singularity error")
	ErrPutMismatch        = errors.New("restql: put matching pk error")
	ErrGUC                = errors.New("restql: guc error")
	ErrDatabase           = errors.New("restql: database error")
)

func sentinelFor(k Kind) error {
	switch k {
	case KindParse:
		return ErrParse
	case KindNotFound:
		return ErrNotFound
	case KindAmbiguous:
		return ErrAmbiguous
	case KindPermissionDenied:
		return ErrPermissionDenied
	case KindUnacceptableSchema:
		return ErrUnacceptableSchema
	case KindSingularity:
		return ErrSingularity
	case KindPutMismatch:
		return ErrPutMismatch
	case KindGUC:
		return ErrGUC
	default:
		return ErrDatabase
	}
}

// Error is the structured error body from spec §6: code/message/details/
// hint, all optional except Message. It is the error type the request,
// query, permission and response packages return; callers type-assert or
// use errors.As.
type Error struct {
	Kind    Kind
	Code    string // passthrough database code (e.g. SQLSTATE), if any
	Message string
	Details string
	Hint    string

	// Column is the 1-based column position of a parse failure.
	Column int
	// Expected lists the tokens a parser would have accepted at Column.
	Expected []string
	// Relation/ColumnName identify the offending object for permission
	// and not-found errors.
	Relation   string
	ColumnName string
	// Candidates lists relationship candidates for an ambiguous embed.
	Candidates []string
}

func (e *Error) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("%s: %s", e.Message, e.Details)
	}
	return e.Message
}

// Is lets errors.Is(err, apperr.ErrParse) (etc.) succeed against the
// matching Kind, the way velox's NotFoundError.Is matches ErrNotFound.
func (e *Error) Is(target error) bool {
	return target == sentinelFor(e.Kind)
}

// Unwrap exposes the underlying sentinel so errors.Is chains work without
// a bespoke Is on every Kind.
func (e *Error) Unwrap() error {
	return sentinelFor(e.Kind)
}

// Parse builds a KindParse error citing the offending fragment, its
// 1-based column, and the set of tokens that would have been accepted.
func Parse(fragment string, column int, expected ...string) *Error {
	return &Error{
		Kind:     KindParse,
		Message:  "Parse Error",
		Details:  fmt.Sprintf("unexpected %q", fragment),
		Column:   column,
		Expected: expected,
	}
}

// NotFound builds a KindNotFound error for an unknown relation/function.
func NotFound(relation string) *Error {
	return &Error{
		Kind:     KindNotFound,
		Message:  "Not Found",
		Details:  fmt.Sprintf("relation %q does not exist", relation),
		Relation: relation,
	}
}

// Ambiguous builds a KindAmbiguous error listing every tied candidate and
// a hint to disambiguate with "!name".
func Ambiguous(relation string, candidates []string) *Error {
	return &Error{
		Kind:       KindAmbiguous,
		Message:    "Ambiguous Relationship",
		Details:    fmt.Sprintf("more than one relationship was found for %q", relation),
		Hint:       "Try changing '" + relation + "' to one of the following: " + fmt.Sprint(candidates),
		Relation:   relation,
		Candidates: candidates,
	}
}

// PermissionDenied builds a KindPermissionDenied error naming the relation
// and column (column may be empty for table-level denials).
func PermissionDenied(relation, column, reason string) *Error {
	return &Error{
		Kind:       KindPermissionDenied,
		Message:    "Permission Denied",
		Details:    reason,
		Relation:   relation,
		ColumnName: column,
	}
}

// UnsafeFunction builds a KindPermissionDenied error for a select-time
// function call whose name isn't on the safe list (scenario f in spec §8).
func UnsafeFunction(name string) *Error {
	return &Error{
		Kind:    KindPermissionDenied,
		Message: "Unsafe functions called",
		Details: fmt.Sprintf("calling: '%s' is not allowed", name),
	}
}

// UnacceptableSchema builds a KindUnacceptableSchema error.
func UnacceptableSchema(profile string) *Error {
	return &Error{
		Kind:    KindUnacceptableSchema,
		Message: "Unacceptable Schema",
		Details: fmt.Sprintf("the requested profile %q is not exposed", profile),
	}
}

// Singularity builds a KindSingularity error reporting the actual row
// count (scenario d in spec §8).
func Singularity(rows int) *Error {
	return &Error{
		Kind:    KindSingularity,
		Message: "JSON object requested, multiple (or no) rows returned",
		Details: fmt.Sprintf("Results contain %d rows, application/vnd.pgrst.object+json requires 1 row", rows),
	}
}

// PutMismatch builds a KindPutMismatch error; reason distinguishes the
// "wrong filter shape" case (scenario e) from the "payload disagrees with
// URL" case.
func PutMismatch(reason string) *Error {
	return &Error{
		Kind:    KindPutMismatch,
		Message: reason,
	}
}

// GUCError builds a KindGUC error for a malformed response-status GUC.
func GUCError(raw string) *Error {
	return &Error{
		Kind:    KindGUC,
		Message: "response.status guc must be a valid status line",
		Details: fmt.Sprintf("invalid value: %q", raw),
	}
}

// Database wraps a passthrough database error, preserving its code.
func Database(code, message string) *Error {
	return &Error{Kind: KindDatabase, Code: code, Message: message}
}
