package indexexpr

import (
	"context"
	"testing"

	"github.com/elasticgraph/querycore/model"
)

type fakeLister struct {
	names []string
}

func (f fakeLister) List(ctx context.Context, pattern string) ([]string, error) {
	return append([]string(nil), f.names...), nil
}

func monthlyWidgets() model.IndexDefinition {
	return model.IndexDefinition{
		Name:           "widgets_rollover",
		ClusterToQuery: "main",
		Rollover: &model.RolloverConfig{
			Granularity:        model.GranularityMonth,
			TimestampFieldPath: "created_at",
		},
		SearchIndexExpressionTemplate: "widgets_rollover__*",
	}
}

// TestBuild_NoRolloverPassesThroughIndexName covers a plain (non-rollover)
// index: the expression is just its own name, no listing call needed.
func TestBuild_NoRolloverPassesThroughIndexName(t *testing.T) {
	def := model.IndexDefinition{Name: "widgets", ClusterToQuery: "main"}
	b := NewBuilder(fakeLister{})

	expr, err := b.Build(context.Background(), def, nil, false)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if expr != "widgets" {
		t.Fatalf("want %q, got %q", "widgets", expr)
	}
}

// TestBuild_NilFilterIsAllBuckets covers the All domain: no filter on the
// rollover field means every known bucket could match, so the base glob
// pattern is used unpruned.
func TestBuild_NilFilterIsAllBuckets(t *testing.T) {
	lister := fakeLister{names: []string{"widgets_rollover__2021-01", "widgets_rollover__2021-02"}}
	b := NewBuilder(lister)

	expr, err := b.Build(context.Background(), monthlyWidgets(), nil, false)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if expr != "widgets_rollover__*" {
		t.Fatalf("want unpruned base pattern, got %q", expr)
	}
}

// TestBuild_MonthlyRolloverPrunesPastBuckets is spec.md §8 scenario 4: a
// gt bound on the rollover timestamp field excludes buckets that end before
// the bound, appending "-<excluded>" exclusions to the base pattern.
func TestBuild_MonthlyRolloverPrunesPastBuckets(t *testing.T) {
	lister := fakeLister{names: []string{
		"widgets_rollover__2021-01",
		"widgets_rollover__2021-02",
		"widgets_rollover__2021-03",
	}}
	b := NewBuilder(lister)

	filter := &model.Leaf{
		FieldPath:  "created_at",
		Predicates: map[model.Operator]any{model.OpGT: "2021-02-15T00:00:00Z"},
	}

	plan, err := b.Explain(context.Background(), monthlyWidgets(), filter, false)
	if err != nil {
		t.Fatalf("Explain: %v", err)
	}

	// January ends 2021-02-01, strictly before the 2021-02-15 bound, so it's
	// excluded. February (ends 2021-03-01) and March (ends 2021-04-01) both
	// overlap the open-ended [2021-02-15, +inf) admitted range and stay in.
	if len(plan.Excluded) != 1 || plan.Excluded[0] != "widgets_rollover__2021-01" {
		t.Fatalf("want only January excluded, got %v", plan.Excluded)
	}
	wantExpr := "widgets_rollover__*,-widgets_rollover__2021-01"
	if plan.Expression != wantExpr {
		t.Fatalf("want expression %q, got %q", wantExpr, plan.Expression)
	}
}

// TestBuild_NoneDomainWithoutAggregationsIsEmptyExpression covers the
// always-false-after-reduction case: an impossible time range (e.g. nil-only
// equal_to_any_of) needs no index at all when there are no aggregations to
// satisfy.
func TestBuild_NoneDomainWithoutAggregationsIsEmptyExpression(t *testing.T) {
	lister := fakeLister{names: []string{"widgets_rollover__2021-01"}}
	b := NewBuilder(lister)

	filter := &model.Leaf{
		FieldPath:  "created_at",
		Predicates: map[model.Operator]any{model.OpEqualToAnyOf: []any{nil}},
	}

	expr, err := b.Build(context.Background(), monthlyWidgets(), filter, false)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if expr != "" {
		t.Fatalf("want empty expression for a None domain with no aggregations, got %q", expr)
	}
}

// TestBuild_NoneDomainWithAggregationsPicksOneKnownIndex covers the same
// None domain but with aggregations present: the store still needs exactly
// one concrete index to return a shaped (zero-bucket) response.
func TestBuild_NoneDomainWithAggregationsPicksOneKnownIndex(t *testing.T) {
	lister := fakeLister{names: []string{"widgets_rollover__2021-01", "widgets_rollover__2021-02"}}
	b := NewBuilder(lister)

	filter := &model.Leaf{
		FieldPath:  "created_at",
		Predicates: map[model.Operator]any{model.OpEqualToAnyOf: []any{nil}},
	}

	plan, err := b.Explain(context.Background(), monthlyWidgets(), filter, true)
	if err != nil {
		t.Fatalf("Explain: %v", err)
	}
	if len(plan.Included) != 1 || plan.Included[0] != "widgets_rollover__2021-01" {
		t.Fatalf("want exactly one included index, got %v", plan.Included)
	}
}
