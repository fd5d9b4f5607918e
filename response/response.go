// Package response maps the compiled statement's result row — or, for the
// two-stage dialects, the stage-2 outcome — plus the original request's
// Accept type and Prefer header into an HTTP status/headers/body triple
// (spec §4.7). It never parses the body; the database built it already.
//
// Grounded on original_source/src/postgrest.rs's content_range_header,
// content_range_status and the status match arms immediately above them
// (method + node kind + page_total + total_result_set + preferences ->
// status code), translated into Go idiom. The teacher (syssam/velox) has
// no response-shaping layer of its own to draw from — it's a library, not
// an HTTP server — so this package's structure follows the Rust original
// directly rather than adapting a velox file.
package response

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/restql/restql/apperr"
	"github.com/restql/restql/ast"
	"github.com/restql/restql/request"
)

// Row is the single result row the formatter's main query projects, or
// the stage-2 outcome of a two-stage mutation (spec §4.6): page_total,
// total_result_set, body, the GUC-derived header/status overrides, and
// whether check/not-null constraints were satisfied (surfaced so a driver
// can tell a constraint violation from a plain zero-row result without
// inspecting the database error channel).
type Row struct {
	PageTotal            int
	TotalResultSet       *int
	Body                 string
	ConstraintsSatisfied bool
	ResponseHeaders      string // raw JSON array of single-key objects from the GUC, "" if unset
	ResponseStatus       string // raw integer text from the GUC, "" if unset
}

// Input gathers everything Interpret needs: the compiled node's shape,
// the original request's negotiated Accept/Prefer, the offset actually
// applied to the root node, and the result row (nil for a two-stage
// mutation whose stage 1 affected zero rows).
type Input struct {
	Kind  ast.NodeKind
	IsPut bool
	// HadColumns records whether a PATCH's ?columns= whitelist was
	// supplied; a zero-row PATCH only becomes 404 when it was.
	HadColumns bool
	Accept     request.AcceptType
	Prefer     request.Prefer
	Offset     int
	Row        *Row
}

// Response is the emitted (status, headers, body) triple plus the
// Content-Range and optional Preference-Applied headers (spec §6).
type Response struct {
	Status  int
	Headers http.Header
	Body    string
}

// Interpret runs the full spec §4.7 pipeline: singularity and PUT
// row-count enforcement, status-code derivation, Content-Range
// construction, GUC header/status override, and Preference-Applied.
func Interpret(in Input) (*Response, error) {
	pageTotal := 0
	var total *int
	body := ""
	var gucHeaders, gucStatus string
	if in.Row != nil {
		pageTotal = in.Row.PageTotal
		total = in.Row.TotalResultSet
		body = in.Row.Body
		gucHeaders = in.Row.ResponseHeaders
		gucStatus = in.Row.ResponseStatus
	}

	if in.Accept == request.AcceptSingular && pageTotal != 1 {
		return nil, apperr.Singularity(pageTotal)
	}
	if in.IsPut && pageTotal != 1 {
		return nil, apperr.PutMismatch("PUT Matching Pk Error")
	}

	lower := in.Offset
	upper := in.Offset + pageTotal - 1

	status := baseStatus(in, pageTotal, lower, upper, total)

	headers := http.Header{}
	headers.Set("Content-Range", contentRangeHeader(in.Kind, lower, upper, total))

	if gucHeaders != "" {
		if err := mergeGUCHeaders(headers, gucHeaders); err != nil {
			return nil, err
		}
	}
	if len(in.Prefer.Applied) > 0 {
		headers.Set("Preference-Applied", strings.Join(in.Prefer.Applied, "; "))
	}
	if gucStatus != "" {
		overridden, err := parseGUCStatus(gucStatus)
		if err != nil {
			return nil, err
		}
		status = overridden
	}

	return &Response{Status: status, Headers: headers, Body: body}, nil
}

// baseStatus mirrors original_source/src/postgrest.rs's status match: the
// mutation kinds each have their own fixed rule, everything else falls
// through to the generic range-based Select status.
func baseStatus(in Input, pageTotal, lower, upper int, total *int) int {
	switch in.Kind {
	case ast.Insert:
		if in.IsPut {
			if in.Prefer.Return == request.ReturnRepresentation {
				return http.StatusOK
			}
			return http.StatusNoContent
		}
		return http.StatusCreated
	case ast.Update:
		if pageTotal == 0 && in.HadColumns {
			return http.StatusNotFound
		}
		if in.Prefer.Return == request.ReturnRepresentation {
			return http.StatusOK
		}
		return http.StatusNoContent
	case ast.Delete:
		if in.Prefer.Return == request.ReturnRepresentation {
			return http.StatusOK
		}
		return http.StatusNoContent
	default: // Select, FunctionCall
		return contentRangeStatus(lower, upper, total)
	}
}

// contentRangeHeader builds the Content-Range value. POST and DELETE use
// the fixed (1, 0) bounds original_source hands to content_range_header
// regardless of actual row count — Insert/Delete responses describe "the
// row(s) this operation affected", not a page window, so there is no
// offset to report.
func contentRangeHeader(kind ast.NodeKind, lower, upper int, total *int) string {
	if kind == ast.Insert || kind == ast.Delete {
		lower, upper = 1, 0
	}
	rangeStr := "*"
	if total == nil || *total != 0 {
		if lower <= upper {
			rangeStr = strconv.Itoa(lower) + "-" + strconv.Itoa(upper)
		}
	}
	totalStr := "*"
	if total != nil {
		totalStr = strconv.Itoa(*total)
	}
	return rangeStr + "/" + totalStr
}

// contentRangeStatus is the Select-path status rule: 406 if the offset
// landed past the known total, 206 if fewer rows came back than the
// known total, 200 otherwise.
func contentRangeStatus(lower, upper int, total *int) int {
	if total == nil {
		return http.StatusOK
	}
	if lower > *total {
		return http.StatusNotAcceptable
	}
	if (1 + upper - lower) < *total {
		return http.StatusPartialContent
	}
	return http.StatusOK
}

// mergeGUCHeaders decodes the response_headers GUC: a JSON array of
// single-key objects, each merged into the outgoing header set. Any other
// shape is a malformed payload (spec §7 "GUC Headers / Status Error").
func mergeGUCHeaders(headers http.Header, raw string) error {
	var entries []map[string]string
	if err := json.Unmarshal([]byte(raw), &entries); err != nil {
		return apperr.GUCError(raw)
	}
	for _, entry := range entries {
		for k, v := range entry {
			headers.Add(k, v)
		}
	}
	return nil
}

// parseGUCStatus validates the response_status GUC is a bare 100-599
// integer (spec §4.7) before letting it override the computed status.
func parseGUCStatus(raw string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || n < 100 || n > 599 {
		return 0, apperr.GUCError(raw)
	}
	return n, nil
}

// StatusFor maps an error from any earlier stage (parser, catalog,
// permission layer, formatter) to the HTTP status spec §7's error table
// assigns it, for callers that never reach Interpret because the request
// was rejected before any SQL was built. Authenticated distinguishes the
// two Permission Denied statuses (400 unauthenticated, 403 authenticated,
// spec §7) since apperr.Error carries no session state of its own.
func StatusFor(err error, authenticated bool) int {
	var ae *apperr.Error
	if !errors.As(err, &ae) {
		return 500
	}
	switch ae.Kind {
	case apperr.KindParse:
		return 400
	case apperr.KindNotFound:
		return 404
	case apperr.KindAmbiguous:
		return 300
	case apperr.KindPermissionDenied:
		if authenticated {
			return 403
		}
		return 400
	case apperr.KindUnacceptableSchema:
		return 406
	case apperr.KindSingularity:
		return 406
	case apperr.KindPutMismatch:
		return 400
	case apperr.KindGUC:
		return 500
	case apperr.KindDatabase:
		return apperr.DatabaseStatus(ae.Code)
	default:
		return 500
	}
}
