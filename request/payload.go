package request

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"strings"

	"github.com/restql/restql/apperr"
	"github.com/restql/restql/ast"
)

// parsePayload decodes a mutation's body as JSON (object or array of
// objects with identical key sets) or CSV (header row defines the columns)
// per spec §4.4 step 2, then applies the ?columns= whitelist if present.
func parsePayload(contentType string, body []byte, whitelist []string) (*ast.Payload, error) {
	media := strings.ToLower(strings.TrimSpace(strings.SplitN(contentType, ";", 2)[0]))

	var rows []map[string]any
	var err error
	if media == "text/csv" {
		rows, err = parseCSVPayload(body)
	} else {
		rows, err = parseJSONPayload(body)
	}
	if err != nil {
		return nil, err
	}

	if len(whitelist) > 0 {
		allowed := make(map[string]bool, len(whitelist))
		for _, c := range whitelist {
			allowed[c] = true
		}
		for _, row := range rows {
			for k := range row {
				if !allowed[k] {
					delete(row, k)
				}
			}
		}
	}

	return &ast.Payload{Rows: rows, Columns: whitelist}, nil
}

func parseJSONPayload(body []byte) ([]map[string]any, error) {
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return nil, nil
	}
	if body[0] == '[' {
		var rows []map[string]any
		if err := json.Unmarshal(body, &rows); err != nil {
			return nil, apperr.Parse(err.Error(), 1, "JSON array of objects")
		}
		if err := requireUniformKeys(rows); err != nil {
			return nil, err
		}
		return rows, nil
	}
	var row map[string]any
	if err := json.Unmarshal(body, &row); err != nil {
		return nil, apperr.Parse(err.Error(), 1, "JSON object")
	}
	return []map[string]any{row}, nil
}

// requireUniformKeys rejects a JSON array whose objects don't all share the
// same key set (spec §4.4 step 2, "All object keys must match").
func requireUniformKeys(rows []map[string]any) error {
	if len(rows) == 0 {
		return nil
	}
	first := keySet(rows[0])
	for _, row := range rows[1:] {
		if !equalKeySets(first, keySet(row)) {
			return &apperr.Error{Kind: apperr.KindParse, Message: "All object keys must match"}
		}
	}
	return nil
}

func keySet(row map[string]any) map[string]bool {
	s := make(map[string]bool, len(row))
	for k := range row {
		s[k] = true
	}
	return s
}

func equalKeySets(a, b map[string]bool) bool {
	if len(a) != len(b) {
		return false
	}
	for k := range a {
		if !b[k] {
			return false
		}
	}
	return true
}

func parseCSVPayload(body []byte) ([]map[string]any, error) {
	r := csv.NewReader(bytes.NewReader(body))
	records, err := r.ReadAll()
	if err != nil {
		return nil, apperr.Parse(err.Error(), 1, "CSV")
	}
	if len(records) == 0 {
		return nil, nil
	}
	header := records[0]
	rows := make([]map[string]any, 0, len(records)-1)
	for _, rec := range records[1:] {
		row := make(map[string]any, len(header))
		for i, col := range header {
			if i < len(rec) {
				row[col] = rec[i]
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}
