package workbook

import (
	_ "embed"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed aliases.yaml
var defaultAliasesYAML []byte

// AliasTable maps an entity kind to the sheet names it may appear under.
// The first alias of each kind is its canonical name, used on export.
type AliasTable struct {
	Entities map[string][]string `yaml:"entities"`
	Ignore   []string            `yaml:"ignore"`
}

var defaultAliases AliasTable

func init() {
	t, err := parseAliases(defaultAliasesYAML)
	if err != nil {
		panic(fmt.Sprintf("workbook: embedded alias table: %v", err))
	}
	defaultAliases = t
}

// DefaultAliases returns the alias table compiled into the binary.
func DefaultAliases() AliasTable {
	return defaultAliases
}

// LoadAliases reads an alias table in the embedded YAML layout.
func LoadAliases(r io.Reader) (AliasTable, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return AliasTable{}, err
	}
	return parseAliases(data)
}

func parseAliases(data []byte) (AliasTable, error) {
	var t AliasTable
	if err := yaml.Unmarshal(data, &t); err != nil {
		return AliasTable{}, fmt.Errorf("parse alias table: %w", err)
	}
	for kind, names := range t.Entities {
		if len(names) == 0 {
			return AliasTable{}, fmt.Errorf("alias table: kind %q has no sheet names", kind)
		}
	}
	return t, nil
}

// Canonical returns the sheet name the exporter writes for kind.
func (t AliasTable) Canonical(kind string) string {
	if names := t.Entities[kind]; len(names) > 0 {
		return names[0]
	}
	return kind
}

// Resolve finds the sheet holding kind. Aliases are tried in table order so
// a specific name wins over a generic fallback when both are present.
func (t AliasTable) Resolve(kind string, sheets []string) (string, bool) {
	for _, alias := range t.Entities[kind] {
		for _, name := range sheets {
			if sameSheet(alias, name) {
				return name, true
			}
		}
	}
	return "", false
}

// ResolveAll resolves every kind in order. A sheet claimed by an earlier
// kind is not handed to a later one.
func (t AliasTable) ResolveAll(kinds []string, sheets []string) map[string]string {
	claimed := make(map[string]bool)
	out := make(map[string]string)
	for _, kind := range kinds {
		var remaining []string
		for _, s := range sheets {
			if !claimed[s] {
				remaining = append(remaining, s)
			}
		}
		if name, ok := t.Resolve(kind, remaining); ok {
			out[kind] = name
			claimed[name] = true
		}
	}
	return out
}

// Ignored reports whether name is a known non-entity sheet.
func (t AliasTable) Ignored(name string) bool {
	for _, s := range t.Ignore {
		if sameSheet(s, name) {
			return true
		}
	}
	return false
}

func sameSheet(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}
