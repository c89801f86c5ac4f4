// Package filter implements the Filter AST & Normalizer (spec.md §4.1) and
// the Filter Interpreter (spec.md §4.2): converting a client-supplied,
// untyped filter map into a canonical model.FilterNode tree, then walking
// that tree to emit the datastore's query DSL via package escore.
package filter

// ListKind classifies how a field path that holds a list is mapped in the
// datastore, which changes how any_satisfy is normalized (spec.md §4.1 item 5).
type ListKind int

const (
	// NotList is the default for non-list field paths, and for list-like
	// paths the caller's schema knows nothing about; any_satisfy on such a
	// path is treated the same as the list-of-scalars/object-mapped case.
	NotList ListKind = iota
	// ScalarList is a list of scalars; any_satisfy reduces to its inner
	// filter because the store's default list matching already provides
	// that semantics.
	ScalarList
	// ObjectList is a list of object-mapped sub-documents, flattened into
	// the parent document's arrays; any_satisfy also reduces to its inner
	// filter, the same as ScalarList.
	ObjectList
	// NestedList is a list mapped as a `nested` datastore type; any_satisfy
	// becomes a genuine AnySatisfy node translating to a `nested` query.
	NestedList
)

// Schema is the subset of the read-only Schema Catalog (spec.md §3) the
// normalizer needs: whether a given field path addresses a list, and if so,
// how that list is mapped in the datastore.
type Schema interface {
	ListKind(fieldPath string) ListKind
}

// StaticSchema is a plain in-memory Schema built from a field-path -> kind
// table, sufficient for tests and small embedders that don't wire the real
// schema-artifact catalog (out of scope per spec.md §1).
type StaticSchema map[string]ListKind

func (s StaticSchema) ListKind(fieldPath string) ListKind {
	if k, ok := s[fieldPath]; ok {
		return k
	}
	return NotList
}
