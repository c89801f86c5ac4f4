package model

// Cursor opaquely encodes a document's sort-key position for relay-style
// pagination; the core treats it as an opaque string token — encoding and
// decoding it into sort values is the GraphQL layer's concern.
type Cursor string

// DocumentPagination is the caller's requested page, in relay's
// first/after or last/before form. Exactly one of (First, After) or
// (Last, Before) is expected to be meaningfully set by callers, but the
// core does not enforce that — it is validated upstream.
type DocumentPagination struct {
	First  *uint32
	After  *Cursor
	Last   *uint32
	Before *Cursor
}

// Equal reports whether two pagination requests are identical, used by the
// merge "both non-nil equal → either" rule (spec.md §4.6).
func (p *DocumentPagination) Equal(other *DocumentPagination) bool {
	if p == nil || other == nil {
		return p == other
	}
	return uint32PtrEqual(p.First, other.First) &&
		cursorPtrEqual(p.After, other.After) &&
		uint32PtrEqual(p.Last, other.Last) &&
		cursorPtrEqual(p.Before, other.Before)
}

func uint32PtrEqual(a, b *uint32) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func cursorPtrEqual(a, b *Cursor) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
