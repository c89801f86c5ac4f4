// Package catalog defines the read-only Schema Catalog collaborator
// (spec.md §3, Schema Catalog component). The query compiler consumes a
// Catalog; it never produces or mutates one. In production this interface
// is implemented by the schema-artifact generator (out of scope here,
// spec.md §1); Static is an in-memory implementation sufficient for
// compiling queries in tests and small embedders.
package catalog

import "github.com/elasticgraph/querycore/model"

// Catalog resolves schema types and the index definitions that back a
// GraphQL type's searches.
type Catalog interface {
	// ResolveType returns the concrete Type for a name, and false if the
	// schema has no such type.
	ResolveType(name string) (model.Type, bool)

	// IndexDefinitions returns every IndexDefinition backing searches
	// against typeName, in a stable order.
	IndexDefinitions(typeName string) []model.IndexDefinition

	// RouteWithFieldPaths returns the deduplicated set of route_with field
	// paths across every index definition passed in (spec.md §4.3 input).
	RouteWithFieldPaths(defs []model.IndexDefinition) []string
}

// Static is a plain in-memory Catalog built from Go values, with no
// dependency on a real schema DSL (out of scope per spec.md §1).
type Static struct {
	types   map[string]model.Type
	indices map[string][]model.IndexDefinition
}

// NewStatic builds a Static catalog from the given types and per-GraphQL-type
// index definitions.
func NewStatic(types []model.Type, indicesByType map[string][]model.IndexDefinition) *Static {
	s := &Static{
		types:   make(map[string]model.Type, len(types)),
		indices: make(map[string][]model.IndexDefinition, len(indicesByType)),
	}
	for _, t := range types {
		s.types[t.Name] = t
	}
	for name, defs := range indicesByType {
		s.indices[name] = append([]model.IndexDefinition(nil), defs...)
	}
	return s
}

func (s *Static) ResolveType(name string) (model.Type, bool) {
	t, ok := s.types[name]
	return t, ok
}

func (s *Static) IndexDefinitions(typeName string) []model.IndexDefinition {
	return append([]model.IndexDefinition(nil), s.indices[typeName]...)
}

func (s *Static) RouteWithFieldPaths(defs []model.IndexDefinition) []string {
	seen := map[string]bool{}
	var paths []string
	for _, d := range defs {
		if !d.HasRouting() || seen[d.RouteWithFieldPath] {
			continue
		}
		seen[d.RouteWithFieldPath] = true
		paths = append(paths, d.RouteWithFieldPath)
	}
	return paths
}
