package filter

import (
	"testing"

	"github.com/elasticgraph/querycore/model"
)

func TestNormalize_EmptyAnyOfIsAlwaysFalse(t *testing.T) {
	n := NewNormalizer(StaticSchema{}, nil)
	node, err := n.Normalize(map[string]any{"any_of": []any{}})
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if !model.IsAlwaysFalse(node) {
		t.Fatalf("want always-false, got %v", node)
	}
}

func TestNormalize_NotNullIsAlwaysFalse(t *testing.T) {
	n := NewNormalizer(StaticSchema{}, nil)
	node, err := n.Normalize(map[string]any{"not": nil})
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if !model.IsAlwaysFalse(node) {
		t.Fatalf("want always-false, got %v", node)
	}
}

func TestNormalize_DoubleNegationCollapses(t *testing.T) {
	n := NewNormalizer(StaticSchema{}, nil)
	raw := map[string]any{
		"not": map[string]any{
			"not": map[string]any{
				"age": map[string]any{"gt": float64(10)},
			},
		},
	}
	node, err := n.Normalize(raw)
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	leaf, ok := node.(*model.Leaf)
	if !ok {
		t.Fatalf("want *model.Leaf after double-negation collapse, got %T", node)
	}
	if leaf.FieldPath != "age" {
		t.Fatalf("want field path age, got %q", leaf.FieldPath)
	}
}

func TestNormalize_RangeBoundsCollapseToTighter(t *testing.T) {
	n := NewNormalizer(StaticSchema{}, nil)
	raw := map[string]any{
		"age": map[string]any{"gt": float64(10), "gte": float64(20)},
	}
	node, err := n.Normalize(raw)
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	leaf, ok := node.(*model.Leaf)
	if !ok {
		t.Fatalf("want *model.Leaf, got %T", node)
	}
	if _, hasGt := leaf.Predicates[model.OpGT]; hasGt {
		t.Fatalf("want gt dropped in favor of tighter gte, got %v", leaf.Predicates)
	}
	if v := leaf.Predicates[model.OpGTE]; v != float64(20) {
		t.Fatalf("want gte=20 to survive, got %v", v)
	}
}

func TestNormalize_EqualToAnyOfEmptyIsAlwaysFalse(t *testing.T) {
	n := NewNormalizer(StaticSchema{}, nil)
	raw := map[string]any{"status": map[string]any{"equal_to_any_of": []any{}}}
	node, err := n.Normalize(raw)
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if !model.IsAlwaysFalse(node) {
		t.Fatalf("want always-false, got %v", node)
	}
}

func TestNormalize_UnknownOperatorIgnored(t *testing.T) {
	n := NewNormalizer(StaticSchema{}, nil)
	raw := map[string]any{"name": map[string]any{"bogus_op": "x"}}
	node, err := n.Normalize(raw)
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if node != nil {
		t.Fatalf("want nil (no-op) filter, got %v", node)
	}
}

func TestNormalize_AnySatisfyOnNestedList(t *testing.T) {
	schema := StaticSchema{"line_items": NestedList}
	n := NewNormalizer(schema, nil)
	raw := map[string]any{
		"line_items": map[string]any{
			"any_satisfy": map[string]any{
				"sku": map[string]any{"equal_to_any_of": []any{"abc"}},
			},
		},
	}
	node, err := n.Normalize(raw)
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	satisfy, ok := node.(*model.AnySatisfy)
	if !ok {
		t.Fatalf("want *model.AnySatisfy for nested list, got %T", node)
	}
	if satisfy.FieldPath != "line_items" {
		t.Fatalf("want field path line_items, got %q", satisfy.FieldPath)
	}
}

func TestNormalize_AnySatisfyOnScalarListReduces(t *testing.T) {
	schema := StaticSchema{"tags": ScalarList}
	n := NewNormalizer(schema, nil)
	raw := map[string]any{
		"tags": map[string]any{
			"any_satisfy": map[string]any{"equal_to_any_of": []any{"red"}},
		},
	}
	node, err := n.Normalize(raw)
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if _, ok := node.(*model.AnySatisfy); ok {
		t.Fatalf("want plain filter reduction for scalar list, got AnySatisfy")
	}
}

func TestNormalize_AnySatisfyMultipleClausesOnScalarListErrors(t *testing.T) {
	schema := StaticSchema{"tags": ScalarList}
	n := NewNormalizer(schema, nil)
	raw := map[string]any{
		"tags": map[string]any{
			"any_satisfy": map[string]any{
				"equal_to_any_of": []any{"red"},
				"matches":         "re",
			},
		},
	}
	_, err := n.Normalize(raw)
	if err == nil {
		t.Fatalf("want UserInputError for multiple sibling clauses under any_satisfy")
	}
	if _, ok := err.(*model.UserInputError); !ok {
		t.Fatalf("want *model.UserInputError, got %T", err)
	}
}

func TestNormalize_CountOnlyAdmitsRangeOperators(t *testing.T) {
	n := NewNormalizer(StaticSchema{}, nil)
	raw := map[string]any{
		"tags": map[string]any{
			"count": map[string]any{"gt": float64(0), "equal_to_any_of": []any{"x"}},
		},
	}
	node, err := n.Normalize(raw)
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	lc, ok := node.(*model.ListCount)
	if !ok {
		t.Fatalf("want *model.ListCount, got %T", node)
	}
	if len(lc.Predicates) != 1 {
		t.Fatalf("want only the range operator to survive, got %v", lc.Predicates)
	}
}
