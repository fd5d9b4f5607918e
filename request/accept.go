package request

import "strings"

// AcceptType is the recognized response shape from spec §4.4 step 6.
type AcceptType uint8

const (
	AcceptJSON AcceptType = iota
	AcceptSingular
	AcceptCSV
)

// parseAccept reads the first recognized media type from an Accept header,
// defaulting to plain JSON (spec §6 "Recognized headers").
func parseAccept(header string) AcceptType {
	for _, part := range strings.Split(header, ",") {
		media := strings.TrimSpace(strings.SplitN(part, ";", 2)[0])
		switch media {
		case "application/vnd.pgrst.object+json", "application/vnd.pgrst.object":
			return AcceptSingular
		case "text/csv":
			return AcceptCSV
		case "application/json":
			return AcceptJSON
		}
	}
	return AcceptJSON
}
