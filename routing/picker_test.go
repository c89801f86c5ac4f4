package routing

import (
	"testing"

	"github.com/elasticgraph/querycore/model"
)

// TestPick_NoRoutingFieldsIsAllShards covers the degenerate case: an index
// with no route_with field paths must always fan out to every shard.
func TestPick_NoRoutingFieldsIsAllShards(t *testing.T) {
	leaf := &model.Leaf{FieldPath: "name", Predicates: map[model.Operator]any{model.OpEqualToAnyOf: []any{"abc"}}}
	d := Pick(leaf, nil, nil, false)
	if !d.IsAllShards() {
		t.Fatalf("want AllShards with no routing fields, got %+v", d)
	}
}

// TestPick_EqualToAnyOfPrunesShards is spec.md §8 scenario 2: route_with
// ["name"], filter {name:{equal_to_any_of:["abc","def"]}} -> routing header
// "abc,def".
func TestPick_EqualToAnyOfPrunesShards(t *testing.T) {
	leaf := &model.Leaf{FieldPath: "name", Predicates: map[model.Operator]any{model.OpEqualToAnyOf: []any{"abc", "def"}}}

	d := Pick(leaf, []string{"name"}, nil, false)
	header, ok := d.RoutingHeader()
	if !ok {
		t.Fatalf("want a routing header to be emitted")
	}
	if header != "abc,def" {
		t.Fatalf("want routing header %q, got %q", "abc,def", header)
	}
}

// TestPick_EmptyIntersectionWithAggregationsFallsBackToFallbackShard is
// spec.md §8 scenario 3: two disjoint equal_to_any_of clauses on the same
// routing field AND'd together (via AllOf) narrow to the empty set; with
// aggregations present the picker must still contact one shard (the
// fallback), not zero.
func TestPick_EmptyIntersectionWithAggregationsFallsBackToFallbackShard(t *testing.T) {
	leafA := &model.Leaf{FieldPath: "name", Predicates: map[model.Operator]any{model.OpEqualToAnyOf: []any{"abc", "def"}}}
	leafB := &model.Leaf{FieldPath: "name", Predicates: map[model.Operator]any{model.OpEqualToAnyOf: []any{"ghi", "jkl"}}}
	allOf := &model.AllOf{Branches: []model.FilterNode{leafA, leafB}}

	d := Pick(allOf, []string{"name"}, nil, true)
	header, ok := d.RoutingHeader()
	if !ok {
		t.Fatalf("want a routing header to be emitted")
	}
	if header != model.FallbackShardRoutingValue {
		t.Fatalf("want fallback shard routing value %q, got %q", model.FallbackShardRoutingValue, header)
	}
}

// TestPick_EmptyIntersectionWithoutAggregationsIsNoShards mirrors scenario 3
// but without aggregations: the same disjoint intersection should now
// short-circuit to NoShards (no document could possibly match), emitting no
// routing header at all since the query never reaches the datastore.
func TestPick_EmptyIntersectionWithoutAggregationsIsNoShards(t *testing.T) {
	leafA := &model.Leaf{FieldPath: "name", Predicates: map[model.Operator]any{model.OpEqualToAnyOf: []any{"abc", "def"}}}
	leafB := &model.Leaf{FieldPath: "name", Predicates: map[model.Operator]any{model.OpEqualToAnyOf: []any{"ghi", "jkl"}}}
	allOf := &model.AllOf{Branches: []model.FilterNode{leafA, leafB}}

	d := Pick(allOf, []string{"name"}, nil, false)
	if !d.IsNoShards() {
		t.Fatalf("want NoShards, got %+v", d)
	}
	if _, ok := d.RoutingHeader(); ok {
		t.Fatalf("want no routing header for NoShards")
	}
}

// TestPick_NegatedEqualToAnyOfWidensToAllShards covers the standalone Not
// rule: negating a routing predicate always widens to AllShards, since the
// complement of a finite set of routing values is not itself expressible as
// a finite shard list.
func TestPick_NegatedEqualToAnyOfWidensToAllShards(t *testing.T) {
	leaf := &model.Leaf{FieldPath: "name", Predicates: map[model.Operator]any{model.OpEqualToAnyOf: []any{"abc"}}}
	not := &model.Not{Inner: leaf}

	d := Pick(not, []string{"name"}, nil, false)
	if !d.IsAllShards() {
		t.Fatalf("want AllShards for negated routing predicate, got %+v", d)
	}
}

// TestPick_EqualToAnyOfMinusNegatedSiblingIsSetDifference covers the one
// AllOf special case: equal_to_any_of AND Not{equal_to_any_of} on the same
// field is a set difference, not a plain intersection.
func TestPick_EqualToAnyOfMinusNegatedSiblingIsSetDifference(t *testing.T) {
	pos := &model.Leaf{FieldPath: "name", Predicates: map[model.Operator]any{model.OpEqualToAnyOf: []any{"abc", "def"}}}
	negLeaf := &model.Leaf{FieldPath: "name", Predicates: map[model.Operator]any{model.OpEqualToAnyOf: []any{"def"}}}
	allOf := &model.AllOf{Branches: []model.FilterNode{pos, &model.Not{Inner: negLeaf}}}

	d := Pick(allOf, []string{"name"}, nil, false)
	header, ok := d.RoutingHeader()
	if !ok {
		t.Fatalf("want a routing header to be emitted")
	}
	if header != "abc" {
		t.Fatalf("want routing header %q (set difference), got %q", "abc", header)
	}
}

// TestPick_IgnoredRoutingValuesExcluded covers the ignored-values rule: a
// sentinel value present in ignoredRoutingValues never narrows the shard
// set, as if it weren't in the equal_to_any_of list at all.
func TestPick_IgnoredRoutingValuesExcluded(t *testing.T) {
	leaf := &model.Leaf{FieldPath: "name", Predicates: map[model.Operator]any{model.OpEqualToAnyOf: []any{"abc", "unset"}}}
	ignored := map[string]struct{}{"unset": {}}

	d := Pick(leaf, []string{"name"}, ignored, false)
	header, ok := d.RoutingHeader()
	if !ok {
		t.Fatalf("want a routing header to be emitted")
	}
	if header != "abc" {
		t.Fatalf("want routing header %q with ignored value excluded, got %q", "abc", header)
	}
}

// TestPick_OnlyIgnoredValuesIsAllShards covers the edge case where every
// entry in equal_to_any_of is an ignored sentinel: the routing field
// contributes no real narrowing information at all.
func TestPick_OnlyIgnoredValuesIsAllShards(t *testing.T) {
	leaf := &model.Leaf{FieldPath: "name", Predicates: map[model.Operator]any{model.OpEqualToAnyOf: []any{"unset"}}}
	ignored := map[string]struct{}{"unset": {}}

	d := Pick(leaf, []string{"name"}, ignored, false)
	if !d.IsAllShards() {
		t.Fatalf("want AllShards when every routing value is ignored, got %+v", d)
	}
}

// TestPick_InexactOperatorOnRoutingFieldIsAllShards covers range-style
// predicates on the routing field (spec.md §4.3): only equal_to_any_of can
// narrow the shard set.
func TestPick_InexactOperatorOnRoutingFieldIsAllShards(t *testing.T) {
	leaf := &model.Leaf{FieldPath: "name", Predicates: map[model.Operator]any{model.OpGT: "abc"}}
	d := Pick(leaf, []string{"name"}, nil, false)
	if !d.IsAllShards() {
		t.Fatalf("want AllShards for a non-equal_to_any_of predicate on the routing field, got %+v", d)
	}
}

// TestPick_MultipleRoutingFieldPathsAnyAllForcesAllShards covers the
// multi-field_path union rule: when a query spans multiple merged indices
// with different route_with field paths, any field resolving to All forces
// the whole decision to All, even if another field would have narrowed.
func TestPick_MultipleRoutingFieldPathsAnyAllForcesAllShards(t *testing.T) {
	leaf := &model.Leaf{FieldPath: "name", Predicates: map[model.Operator]any{model.OpEqualToAnyOf: []any{"abc"}}}
	d := Pick(leaf, []string{"name", "other_field"}, nil, false)
	if !d.IsAllShards() {
		t.Fatalf("want AllShards when an unconstrained routing field path is also in play, got %+v", d)
	}
}
