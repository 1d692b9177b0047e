package core

import (
	"fmt"
	"sort"
	"sync"
)

var (
	registry   = make(map[string]*EntityDefinition)
	registryMu sync.RWMutex
)

// Register adds an entity definition. It panics on a duplicate kind or a
// definition that references an unknown column.
func Register(def EntityDefinition) {
	registryMu.Lock()
	defer registryMu.Unlock()

	if _, exists := registry[def.Kind]; exists {
		panic(fmt.Sprintf("entity already registered: %s", def.Kind))
	}
	if err := checkDefinition(&def); err != nil {
		panic(fmt.Sprintf("entity %s: %v", def.Kind, err))
	}
	if len(def.Unique) == 0 && len(def.NaturalKey) > 0 {
		def.Unique = [][]string{def.NaturalKey}
	}

	registry[def.Kind] = &def
}

func checkDefinition(def *EntityDefinition) error {
	if def.Kind == "" || def.Table == "" {
		return fmt.Errorf("kind and table are required")
	}
	cols := make(map[string]bool)
	for _, c := range def.Columns() {
		if c == "" {
			return fmt.Errorf("column name missing")
		}
		if cols[c] {
			return fmt.Errorf("column %s declared twice", c)
		}
		cols[c] = true
	}
	for _, c := range def.NaturalKey {
		if !cols[c] {
			return fmt.Errorf("natural key column %s is not declared", c)
		}
	}
	if def.LabelColumn != "" && !cols[def.LabelColumn] {
		return fmt.Errorf("label column %s is not declared", def.LabelColumn)
	}
	return nil
}

// Get returns the definition registered for kind.
func Get(kind string) (*EntityDefinition, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()

	def, ok := registry[kind]
	return def, ok
}

// Ordered returns every definition in import dependency order.
func Ordered() []*EntityDefinition {
	registryMu.RLock()
	defer registryMu.RUnlock()

	out := make([]*EntityDefinition, 0, len(registry))
	for _, def := range registry {
		out = append(out, def)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Order != out[j].Order {
			return out[i].Order < out[j].Order
		}
		return out[i].Kind < out[j].Kind
	})
	return out
}

// Kinds returns registered kinds in import order.
func Kinds() []string {
	defs := Ordered()
	kinds := make([]string, len(defs))
	for i, d := range defs {
		kinds[i] = d.Kind
	}
	return kinds
}
