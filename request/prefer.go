package request

import (
	"strings"

	"github.com/restql/restql/ast"
)

// ReturnPreference is the honored value of the Prefer: return directive.
type ReturnPreference uint8

const (
	ReturnDefault ReturnPreference = iota
	ReturnMinimal
	ReturnRepresentation
	ReturnHeadersOnly
)

// Prefer is the parsed Prefer header (spec §4.4 step 5, §6 "Recognized
// headers"). Applied records only the directives actually honored, for the
// response interpreter's Preference-Applied header (spec §9: unrecognized
// directives are ignored, not errors).
type Prefer struct {
	Return       ReturnPreference
	Resolution   ast.Resolution
	CountExact   bool
	SingleObject bool // params=single-object
	Applied      []string
}

func parsePrefer(header string) Prefer {
	var p Prefer
	for _, part := range strings.Split(header, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		kv := strings.SplitN(part, "=", 2)
		if len(kv) != 2 {
			continue
		}
		key, val := strings.TrimSpace(kv[0]), strings.TrimSpace(kv[1])
		switch key {
		case "return":
			switch val {
			case "minimal":
				p.Return = ReturnMinimal
			case "representation":
				p.Return = ReturnRepresentation
			case "headers-only":
				p.Return = ReturnHeadersOnly
			default:
				continue
			}
			p.Applied = append(p.Applied, part)
		case "resolution":
			switch val {
			case "merge-duplicates":
				p.Resolution = ast.MergeDuplicates
			case "ignore-duplicates":
				p.Resolution = ast.IgnoreDuplicates
			default:
				continue
			}
			p.Applied = append(p.Applied, part)
		case "count":
			if val != "exact" {
				continue
			}
			p.CountExact = true
			p.Applied = append(p.Applied, part)
		case "params":
			if val != "single-object" {
				continue // "multiple-objects" is the default, nothing to echo
			}
			p.SingleObject = true
			p.Applied = append(p.Applied, part)
		}
	}
	return p
}
