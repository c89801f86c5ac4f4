// Package routing implements the Routing Picker (spec.md §4.3): walking a
// normalized filter to compute which shard routing values a search must
// contact, expressed with the same three-valued All/Some/None vocabulary
// the index expression builder uses for time ranges.
package routing

import (
	"sort"

	"github.com/elasticgraph/querycore/internal/threeval"
	"github.com/elasticgraph/querycore/model"
)

// Decision is the Routing Picker's final output (spec.md §4.3).
type Decision struct {
	kind   decisionKind
	values []string
}

type decisionKind int

const (
	kindAllShards decisionKind = iota
	kindShards
	kindNoShards
	kindFallbackShard
)

func AllShards() Decision     { return Decision{kind: kindAllShards} }
func NoShards() Decision      { return Decision{kind: kindNoShards} }
func FallbackShard() Decision { return Decision{kind: kindFallbackShard, values: []string{model.FallbackShardRoutingValue}} }
func Shards(values []string) Decision {
	return Decision{kind: kindShards, values: values}
}

func (d Decision) IsAllShards() bool { return d.kind == kindAllShards }
func (d Decision) IsNoShards() bool  { return d.kind == kindNoShards }

// RoutingHeader returns the comma-joined routing values for the search
// header, and false when no routing header should be emitted at all
// (spec.md §4.3: AllShards "emits no routing header").
func (d Decision) RoutingHeader() (string, bool) {
	if d.kind == kindAllShards || d.kind == kindNoShards {
		return "", false
	}
	joined := ""
	for i, v := range d.values {
		if i > 0 {
			joined += ","
		}
		joined += v
	}
	return joined, true
}

// Pick computes the routing Decision for a query (spec.md §4.3).
//
// routeWithFieldPaths is the deduplicated set of route_with field paths
// across all of the query's search indices; ignoredRoutingValues are values
// that never narrow the shard set (typically a sentinel used before a field
// was populated). hasAggregations distinguishes the NoShards/FallbackShard
// outcome for an empty final set.
func Pick(node model.FilterNode, routeWithFieldPaths []string, ignoredRoutingValues map[string]struct{}, hasAggregations bool) Decision {
	if len(routeWithFieldPaths) == 0 {
		return AllShards()
	}

	result := threeval.All[string]()
	for _, path := range routeWithFieldPaths {
		fieldResult := domainFor(node, path, ignoredRoutingValues)
		if fieldResult.IsAll() {
			// Any routing field resolving to All forces the overall result
			// to All (spec.md §4.3: "must fetch every shard to cover
			// documents routed by any").
			return AllShards()
		}
		result = result.Intersect(fieldResult)
	}

	switch {
	case result.IsAll():
		return AllShards()
	case result.IsNone():
		if hasAggregations {
			return FallbackShard()
		}
		return NoShards()
	default:
		// Values come from a set with no fixed order; sort them so the
		// routing header is deterministic.
		values := result.Values()
		sort.Strings(values)
		return Shards(values)
	}
}

// domainFor computes the three-valued routing-value domain for one field
// path by walking the whole filter tree (spec.md §4.3 rules).
func domainFor(node model.FilterNode, fieldPath string, ignored map[string]struct{}) threeval.Domain[string] {
	if node == nil {
		return threeval.All[string]()
	}

	switch n := node.(type) {
	case *model.Leaf:
		return leafDomain(n, fieldPath, ignored)

	case *model.Not:
		// A standalone Not over the routing field is always All: negation
		// widens the shard set (spec.md §4.3).
		return threeval.All[string]()

	case *model.AnyOf:
		if len(n.Branches) == 0 {
			// Always-false matches no documents; treated as an identity
			// element for routing purposes (no document to route), so it
			// contributes All rather than narrowing — consistent with the
			// Open Question decision recorded in DESIGN.md: always-false
			// is treated as an identity (not a narrowing None) outside the
			// filter interpreter.
			return threeval.All[string]()
		}
		result := threeval.None[string]()
		for _, b := range n.Branches {
			result = result.Union(domainFor(b, fieldPath, ignored))
		}
		return result

	case *model.AllOf:
		return allOfDomain(n, fieldPath, ignored)

	case *model.AnySatisfy:
		return domainFor(n.Inner, fieldPath, ignored)

	case *model.ListCount:
		// ListCount never narrows a routing field.
		return threeval.All[string]()

	default:
		return threeval.All[string]()
	}
}

func leafDomain(leaf *model.Leaf, fieldPath string, ignored map[string]struct{}) threeval.Domain[string] {
	if leaf.FieldPath != fieldPath {
		return threeval.All[string]()
	}

	vs, ok := leaf.Predicates[model.OpEqualToAnyOf]
	if !ok {
		// Inexact operators on the routing field -> All (spec.md §4.3).
		return threeval.All[string]()
	}

	list, _ := vs.([]any)
	if list == nil {
		return threeval.All[string]()
	}

	var values []string
	for _, v := range list {
		if v == nil {
			continue
		}
		s, ok := v.(string)
		if !ok {
			continue
		}
		if _, isIgnored := ignored[s]; isIgnored {
			continue
		}
		values = append(values, s)
	}
	if len(values) == 0 {
		// "If vs is nil or contains only ignored values -> All. Empty
		// (after nil removal) -> None." We've already excluded the nil-vs
		// case above, so an empty result here means every entry was either
		// nil or ignored, which the spec also routes to All: a genuinely
		// empty equal_to_any_of (no nils, no ignored, just []) would have
		// already been rewritten to the always-false marker by the
		// normalizer and never reaches this leaf at all.
		return threeval.All[string]()
	}
	return threeval.Some(values)
}

// allOfDomain handles the "sibling AND on the same routing field" rules:
// plain intersection per field, except the specific equal_to_any_of +
// Not{equal_to_any_of} combination, which is a set-difference rather than
// an intersection (spec.md §4.3).
func allOfDomain(n *model.AllOf, fieldPath string, ignored map[string]struct{}) threeval.Domain[string] {
	result := threeval.All[string]()
	var negatedSets []threeval.Domain[string]

	for _, b := range n.Branches {
		if not, ok := b.(*model.Not); ok {
			if leaf, ok := not.Inner.(*model.Leaf); ok && leaf.FieldPath == fieldPath {
				if _, hasEq := leaf.Predicates[model.OpEqualToAnyOf]; hasEq {
					negatedSets = append(negatedSets, leafDomain(leaf, fieldPath, ignored))
					continue
				}
			}
			// Any other Not sibling widens per the standalone rule.
			result = result.Intersect(threeval.All[string]())
			continue
		}
		result = result.Intersect(domainFor(b, fieldPath, ignored))
	}

	for _, neg := range negatedSets {
		result = result.Difference(neg)
	}
	return result
}
