// Package nodes provides ready-made pipeline nodes built on the vortex
// lifecycle hooks: LLM calls, HTTP requests, key-value access, shell
// commands, and small control helpers. Each node keeps its working data in
// the shared-context component named after it unless configured otherwise.
package nodes

import "sort"

// Definition describes a built-in node kind so tooling can list what is
// available and show a usage sketch.
type Definition struct {
	ID          string
	Description string
	Example     string
}

var catalog []Definition

// Register adds a node kind to the catalog, replacing any entry that
// already uses the same ID. Definitions without an ID are ignored.
func Register(def Definition) {
	if def.ID == "" {
		return
	}
	for i := range catalog {
		if catalog[i].ID == def.ID {
			catalog[i] = def
			return
		}
	}
	catalog = append(catalog, def)
	sort.Slice(catalog, func(i, j int) bool { return catalog[i].ID < catalog[j].ID })
}

// Registered returns a copy of the catalog, sorted by ID.
func Registered() []Definition {
	return append([]Definition(nil), catalog...)
}

// DefinitionFor returns the catalog entry for id.
func DefinitionFor(id string) (Definition, bool) {
	for _, def := range catalog {
		if def.ID == id {
			return def, true
		}
	}
	return Definition{}, false
}
