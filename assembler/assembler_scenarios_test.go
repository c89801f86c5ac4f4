package assembler

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/elasticgraph/querycore/aggregation"
	"github.com/elasticgraph/querycore/indexexpr"
	"github.com/elasticgraph/querycore/model"
)

// queryAsMap renders a *types.Query body value to its wire JSON shape and
// decodes it back into a plain map, so scenario assertions inspect structure
// rather than the typed client's own Go type.
func queryAsMap(t *testing.T, v any) map[string]any {
	t.Helper()
	b, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	var out map[string]any
	if err := json.Unmarshal(b, &out); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	return out
}

type noopLister struct{}

func (noopLister) List(ctx context.Context, pattern string) ([]string, error) { return nil, nil }

func newAssembler() *Assembler {
	cfg := Config{DefaultPageSize: 50, MaxPageSize: 500, DefaultAggSize: 50}
	return New(cfg, indexexpr.NewBuilder(noopLister{}), aggregation.NewNonComposite())
}

func mustAssemble(t *testing.T, a *Assembler, q *model.DatastoreQuery) Payload {
	t.Helper()
	p, err := a.Assemble(context.Background(), q)
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	return p
}

func plainIndex(name string) model.IndexDefinition {
	return model.IndexDefinition{Name: name, ClusterToQuery: "main"}
}

// TestAssemble_EmptyFilterScenario is spec.md §8 scenario 1: an empty filter
// omits the `query` key entirely, docs-needed gets the default tiebreaker
// sort, and size is default_page_size+1.
func TestAssemble_EmptyFilterScenario(t *testing.T) {
	q, err := model.New([]model.IndexDefinition{plainIndex("widgets")},
		model.WithRequestedFields([]string{"name"}))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	p := mustAssemble(t, newAssembler(), q)

	if _, ok := p.Body["query"]; ok {
		t.Fatalf("want no query key for an empty filter, got %v", p.Body["query"])
	}
	if p.Body["size"] != 51 {
		t.Fatalf("want size 51 (default 50 + 1), got %v", p.Body["size"])
	}
	sortList, ok := p.Body["sort"].([]map[string]any)
	if !ok || len(sortList) != 1 {
		t.Fatalf("want exactly one sort clause (the tiebreaker), got %v", p.Body["sort"])
	}
	idClause, ok := sortList[0]["id"].(map[string]any)
	if !ok {
		t.Fatalf("want the sort clause keyed on id, got %v", sortList[0])
	}
	if idClause["order"] != "asc" || idClause["missing"] != "_first" {
		t.Fatalf("want {order:asc,missing:_first}, got %v", idClause)
	}
}

// TestAssemble_NoDocsNeededOmitsSortAndSource covers the complementary case:
// when only aggregations are requested, no sort/_source/doc size appear.
func TestAssemble_NoDocsNeededOmitsSortAndSource(t *testing.T) {
	agg := &model.AggregationQuery{
		Name: "total_sales",
		Computations: []model.Computation{
			{SourceFieldPath: "amount", Function: model.FuncSum, ComputedFieldName: "sum", GraphQLFieldPath: "amount"},
		},
	}
	q, err := model.New([]model.IndexDefinition{plainIndex("widgets")}, model.WithAggregation(agg))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	p := mustAssemble(t, newAssembler(), q)

	if _, ok := p.Body["sort"]; ok {
		t.Fatalf("want no sort key when no docs are needed, got %v", p.Body["sort"])
	}
	if _, ok := p.Body["_source"]; ok {
		t.Fatalf("want no _source key when no docs are needed, got %v", p.Body["_source"])
	}
	if _, ok := p.Body["size"]; ok {
		t.Fatalf("want no size key when no docs are needed, got %v", p.Body["size"])
	}
	if _, ok := p.Body["aggs"]; !ok {
		t.Fatalf("want an aggs key, got %v", p.Body)
	}
}

// TestAssemble_MergePreservesBothEqualToAnyOfClauses is spec.md §8 scenario
// 7: merging two queries with equal_to_any_of on the same field keeps both
// terms clauses in the filter array rather than intersecting them.
func TestAssemble_MergePreservesBothEqualToAnyOfClauses(t *testing.T) {
	f1 := &model.Leaf{FieldPath: "age", Predicates: map[model.Operator]any{model.OpEqualToAnyOf: []any{float64(25), float64(30)}}}
	f2 := &model.Leaf{FieldPath: "age", Predicates: map[model.Operator]any{model.OpEqualToAnyOf: []any{float64(35), float64(30)}}}

	q1, err := model.New([]model.IndexDefinition{plainIndex("widgets")}, model.WithFilter(f1))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	q2, err := model.New([]model.IndexDefinition{plainIndex("widgets")}, model.WithFilter(f2))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	merged, err := model.Merge(q1, q2, nil)
	if err != nil {
		t.Fatalf("Merge: %v", err)
	}

	p := mustAssemble(t, newAssembler(), merged)

	rawQuery, ok := p.Body["query"]
	if !ok {
		t.Fatalf("want a query key, got %v", p.Body)
	}
	query := queryAsMap(t, rawQuery)
	boolQ, ok := query["bool"].(map[string]any)
	if !ok {
		t.Fatalf("want a bool query, got %v", query)
	}
	filters, ok := boolQ["filter"].([]any)
	if !ok || len(filters) != 2 {
		t.Fatalf("want 2 preserved (unintersected) filter clauses, got %v", boolQ["filter"])
	}
}

// TestAssemble_CombinedHeaderAcrossMultipleIndexDefinitions covers the
// header-combination rule: a query spanning several search index definitions
// renders one comma-joined index expression (spec.md §3, §6).
func TestAssemble_CombinedHeaderAcrossMultipleIndexDefinitions(t *testing.T) {
	q, err := model.New([]model.IndexDefinition{plainIndex("widgets"), plainIndex("gadgets")})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	p := mustAssemble(t, newAssembler(), q)
	if p.Header.Index != "widgets,gadgets" {
		t.Fatalf("want combined index expression %q, got %q", "widgets,gadgets", p.Header.Index)
	}
	if p.Header.HasRouting {
		t.Fatalf("want no routing header when neither index defines routing")
	}
}
