package model

import "fmt"

// FilterNode is the sum type at the heart of the filter AST (spec.md §3).
// Concrete variants are Leaf, Not, AnyOf, AllOf, AnySatisfy, and ListCount.
// Implementations are immutable; every rewrite in the normalizer produces a
// new node rather than mutating one in place.
type FilterNode interface {
	// filterNode is unexported so FilterNode can only be implemented in this
	// package — callers switch on the six concrete types, never add a
	// seventh.
	filterNode()
	// String renders a short debug form, used by error messages and by
	// DatastoreQuery.Explain (spec.md §10 supplemented feature).
	String() string
}

// Leaf is a predicate against one field path: predicates[op] = value.
type Leaf struct {
	FieldPath  string
	Predicates map[Operator]any
}

func (*Leaf) filterNode() {}

func (l *Leaf) String() string {
	return fmt.Sprintf("Leaf{%s: %v}", l.FieldPath, l.Predicates)
}

// Not negates its inner filter.
type Not struct {
	Inner FilterNode
}

func (*Not) filterNode() {}

func (n *Not) String() string {
	return fmt.Sprintf("Not(%s)", n.Inner.String())
}

// AnyOf is a semantic OR over its branches. An empty AnyOf is the
// always-false filter (spec.md §4.1 item 4).
type AnyOf struct {
	Branches []FilterNode
}

func (*AnyOf) filterNode() {}

func (a *AnyOf) String() string {
	return fmt.Sprintf("AnyOf%v", a.Branches)
}

// AllOf is a semantic AND over its branches — the implicit form of a map of
// sibling filter keys. An empty AllOf is a no-op (identity for AND).
type AllOf struct {
	Branches []FilterNode
}

func (*AllOf) filterNode() {}

func (a *AllOf) String() string {
	return fmt.Sprintf("AllOf%v", a.Branches)
}

// AnySatisfy applies Inner to each element of a list field.
type AnySatisfy struct {
	FieldPath string
	Inner     FilterNode
}

func (*AnySatisfy) filterNode() {}

func (a *AnySatisfy) String() string {
	return fmt.Sprintf("AnySatisfy{%s: %s}", a.FieldPath, a.Inner.String())
}

// ListCount filters on the indexed size of a list field (the count
// operator, rewritten per spec.md §4.1 item 7 to address the synthetic
// `__counts.<path>` sibling field).
type ListCount struct {
	FieldPath  string
	Predicates map[Operator]any
}

func (*ListCount) filterNode() {}

func (l *ListCount) String() string {
	return fmt.Sprintf("ListCount{%s: %v}", l.FieldPath, l.Predicates)
}

// AlwaysFalse is the canonical degenerate filter produced by `any_of: []`,
// `not: null`/`not: {}` (spec.md §4.1 item 4). It is represented as an AnyOf
// with zero branches so normal tree-walking code doesn't need a seventh
// case, but helpers below let callers recognize it directly.
func AlwaysFalse() FilterNode {
	return &AnyOf{Branches: nil}
}

// IsAlwaysFalse reports whether node is the always-false marker: an AnyOf
// with no branches, or a Not wrapping an always-true AllOf with no branches
// is NOT always-false (AllOf{} is a no-op, not always-true, so Not(AllOf{})
// is not folded here — only the literal shapes spec.md §4.1 enumerates).
func IsAlwaysFalse(node FilterNode) bool {
	if node == nil {
		return false
	}
	if a, ok := node.(*AnyOf); ok {
		return len(a.Branches) == 0
	}
	return false
}

// IsNoop reports whether node is the identity filter: a nil node, or an
// AllOf with no branches (spec.md §4.1 item 4, "all_of: [] / all_of: null is
// no-op").
func IsNoop(node FilterNode) bool {
	if node == nil {
		return true
	}
	if a, ok := node.(*AllOf); ok {
		return len(a.Branches) == 0
	}
	return false
}
