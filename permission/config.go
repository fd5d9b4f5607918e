package permission

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// safeFunctionsDoc is the on-disk shape of an operator-authored function
// allow-list: a flat list of names, deliberately flatter than the grant
// JSON document since this list has no per-role or per-relation scope
// (spec §9 "configurable safe list").
type safeFunctionsDoc struct {
	Functions []string `yaml:"functions"`
}

// LoadSafeFunctions reads a YAML document of the form
//
//	functions: [count, sum, avg, upper]
//
// and returns it as the map shape Check expects, so an operator can
// replace DefaultSafeFunctions without recompiling restql.
func LoadSafeFunctions(raw []byte) (map[string]bool, error) {
	var doc safeFunctionsDoc
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("permission: decode safe function list: %w", err)
	}
	out := make(map[string]bool, len(doc.Functions))
	for _, name := range doc.Functions {
		out[name] = true
	}
	return out, nil
}
