package indexexpr

import (
	"time"

	"github.com/elasticgraph/querycore/model"
)

// dateLayouts are tried, in order, when parsing a timestamp bound value;
// ElasticGraph's Date scalar and DateTime scalar both flow through here
// (spec.md §4.4: "Date values and DateTime values at midnight are handled
// identically at bucket boundaries").
var dateLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02",
}

func parseTimestamp(v any) (time.Time, bool) {
	s, ok := v.(string)
	if !ok {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

// TimeDomain reduces node's constraints on timestampField to a Domain
// (spec.md §4.4's time-range reduction rules).
func TimeDomain(node model.FilterNode, timestampField string) Domain {
	if node == nil {
		return All()
	}
	switch n := node.(type) {
	case *model.Leaf:
		return leafTimeDomain(n, timestampField)
	case *model.Not:
		return TimeDomain(n.Inner, timestampField).Complement()
	case *model.AnyOf:
		if len(n.Branches) == 0 {
			// Always-false: no document matches, so no bucket is needed on
			// its account; treated as an identity element the same way the
			// Routing Picker does (spec.md §9 Open Question decision,
			// recorded in DESIGN.md).
			return All()
		}
		result := None()
		for _, b := range n.Branches {
			result = result.Union(TimeDomain(b, timestampField))
		}
		return result
	case *model.AllOf:
		result := All()
		for _, b := range n.Branches {
			result = result.Intersect(TimeDomain(b, timestampField))
		}
		return result
	case *model.AnySatisfy:
		return TimeDomain(n.Inner, timestampField)
	case *model.ListCount:
		return All()
	default:
		return All()
	}
}

func leafTimeDomain(leaf *model.Leaf, timestampField string) Domain {
	if leaf.FieldPath != timestampField {
		return All()
	}

	if vs, ok := leaf.Predicates[model.OpEqualToAnyOf]; ok {
		return equalToAnyOfTimeDomain(vs)
	}

	iv := Interval{}
	found := false
	// Lo is inclusive and Hi exclusive, so the open gt bound and the closed
	// lte bound both move one nanosecond past t.
	if v, ok := leaf.Predicates[model.OpGT]; ok {
		if t, ok := parseTimestamp(v); ok {
			iv.Lo, iv.HasLo, found = t.Add(time.Nanosecond), true, true
		}
	}
	if v, ok := leaf.Predicates[model.OpGTE]; ok {
		if t, ok := parseTimestamp(v); ok {
			iv.Lo, iv.HasLo, found = t, true, true
		}
	}
	if v, ok := leaf.Predicates[model.OpLT]; ok {
		if t, ok := parseTimestamp(v); ok {
			iv.Hi, iv.HasHi, found = t, true, true
		}
	}
	if v, ok := leaf.Predicates[model.OpLTE]; ok {
		if t, ok := parseTimestamp(v); ok {
			iv.Hi, iv.HasHi, found = t.Add(time.Nanosecond), true, true
		}
	}
	if !found {
		// Inexact/unrecognized operators on the timestamp field don't
		// narrow the range.
		return All()
	}
	return Some([]Interval{iv})
}

// equalToAnyOfTimeDomain implements spec.md §4.4: "allowed months are
// exactly the months containing listed instants (nil among others widens to
// All; only nil is None)".
func equalToAnyOfTimeDomain(vs any) Domain {
	list, _ := vs.([]any)
	var hasNil, hasValue bool
	var points []Interval
	for _, v := range list {
		if v == nil {
			hasNil = true
			continue
		}
		if t, ok := parseTimestamp(v); ok {
			hasValue = true
			points = append(points, Point(t))
		}
	}
	switch {
	case hasNil && hasValue:
		return All()
	case hasNil:
		return None()
	default:
		return Some(points)
	}
}
