// Package assembler implements the Query Assembler (spec.md §4.6): composing
// a DatastoreQuery's filter, sort, pagination, projection, and aggregations
// into one search payload, alongside the per-index header the Batch Executor
// sends it with.
package assembler

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/elasticgraph/querycore/aggregation"
	"github.com/elasticgraph/querycore/filter"
	"github.com/elasticgraph/querycore/indexexpr"
	"github.com/elasticgraph/querycore/model"
	"github.com/elasticgraph/querycore/routing"
)

// Config is the operator-configured pagination bounds the assembler clamps
// against (spec.md §4.6: "Default first is the configured default_page_size;
// first > max_page_size is clamped to max_page_size").
type Config struct {
	DefaultPageSize int
	MaxPageSize     int
	DefaultAggSize  int
}

// Payload is one assembled search request: the header the Batch Executor
// sends alongside the body, and the body itself.
type Payload struct {
	Header Header
	Body   map[string]any
}

// Header is the per-query index header (spec.md §6: "{index, routing?}").
type Header struct {
	Index   string
	Routing string
	HasRouting bool
}

// Assembler composes DatastoreQuery values into Payloads, using an
// injectable Strategy: the caller chooses Composite or NonComposite when
// constructing the Assembler, and that one Strategy plans every aggregation
// (spec.md §4.5, §9).
type Assembler struct {
	cfg      Config
	builder  *indexexpr.Builder
	strategy aggregation.Strategy
}

func New(cfg Config, builder *indexexpr.Builder, strategy aggregation.Strategy) *Assembler {
	return &Assembler{cfg: cfg, builder: builder, strategy: strategy}
}

// Assemble renders the payload for q: one combined index expression and
// routing set across every search index definition the query targets
// (spec.md §3, §6: "Index header per query"), and the body shared by all of
// them.
func (a *Assembler) Assemble(ctx context.Context, q *model.DatastoreQuery) (Payload, error) {
	hasAggs := len(q.Aggregations()) > 0

	body, err := a.body(q, hasAggs)
	if err != nil {
		return Payload{}, err
	}

	header, err := a.header(ctx, q, hasAggs)
	if err != nil {
		return Payload{}, err
	}

	return Payload{Header: header, Body: body}, nil
}

func (a *Assembler) header(ctx context.Context, q *model.DatastoreQuery, hasAggs bool) (Header, error) {
	defs := q.SearchIndexDefinitions()

	exprs := make([]string, 0, len(defs))
	for _, def := range defs {
		expr, err := a.builder.Build(ctx, def, q.Filter(), hasAggs)
		if err != nil {
			return Header{}, fmt.Errorf("assembler: %w", err)
		}
		if expr != "" {
			exprs = append(exprs, expr)
		}
	}

	header := Header{Index: strings.Join(exprs, ",")}

	routeWithFieldPaths := dedupStrings(routingFieldPaths(defs))
	if len(routeWithFieldPaths) > 0 {
		ignored := mergeIgnored(defs)
		decision := routing.Pick(q.Filter(), routeWithFieldPaths, ignored, hasAggs)
		if v, ok := decision.RoutingHeader(); ok {
			header.Routing, header.HasRouting = v, true
		}
	}

	return header, nil
}

func routingFieldPaths(defs []model.IndexDefinition) []string {
	var out []string
	for _, def := range defs {
		if def.HasRouting() {
			out = append(out, def.RouteWithFieldPath)
		}
	}
	return out
}

func mergeIgnored(defs []model.IndexDefinition) map[string]struct{} {
	out := map[string]struct{}{}
	for _, def := range defs {
		for v := range def.IgnoredRoutingValues {
			out[v] = struct{}{}
		}
	}
	return out
}

func dedupStrings(in []string) []string {
	seen := map[string]bool{}
	out := make([]string, 0, len(in))
	for _, s := range in {
		if seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}

func (a *Assembler) body(q *model.DatastoreQuery, hasAggs bool) (map[string]any, error) {
	body := map[string]any{}

	if f := q.Filter(); f != nil {
		query, err := filter.Interpret(f)
		if err != nil {
			return nil, fmt.Errorf("assembler: interpreting filter: %w", err)
		}
		body["query"] = query
	}

	size := a.size(q)
	if size > 0 {
		body["size"] = size
	}

	if q.IndividualDocsNeeded() {
		if s := a.sort(q); len(s) > 0 {
			body["sort"] = s
		}
		body["_source"] = a.source(q)
	}

	if hasAggs {
		aggs, err := a.aggs(q)
		if err != nil {
			return nil, err
		}
		if len(aggs) > 0 {
			body["aggs"] = aggs
		}
	}

	if q.TotalDocumentCountNeeded() {
		body["track_total_hits"] = true
	}

	return body, nil
}

// size implements "size = min(first, max_page_size) + 1 when
// individual_docs_needed; size = 0 when no documents are needed"
// (spec.md §4.6).
func (a *Assembler) size(q *model.DatastoreQuery) int {
	if !q.IndividualDocsNeeded() {
		return 0
	}
	first := a.cfg.DefaultPageSize
	if p := q.DocumentPagination(); p != nil && p.First != nil {
		first = int(*p.First)
	}
	if first > a.cfg.MaxPageSize {
		first = a.cfg.MaxPageSize
	}
	return first + 1
}

// sort implements the tiebreaker-append/dedup rule (spec.md §4.6).
func (a *Assembler) sort(q *model.DatastoreQuery) []map[string]any {
	clauses := q.Sort()

	lastDir := model.SortAsc
	if len(clauses) > 0 {
		lastDir = clauses[len(clauses)-1].Direction
	}
	tiebreaker := model.NewSortClause(model.TiebreakerFieldPath, lastDir)

	deduped := dedupSortClauses(append(append([]model.SortClause(nil), clauses...), tiebreaker))

	out := make([]map[string]any, 0, len(deduped))
	for _, c := range deduped {
		out = append(out, map[string]any{
			c.FieldPath: map[string]any{
				"order":   string(c.Direction),
				"missing": string(c.Missing),
			},
		})
	}
	return out
}

// dedupSortClauses keeps the first occurrence of each field path, preserving
// its direction (spec.md §4.6: "Duplicate sort fields are deduplicated
// preserving the first direction encountered").
func dedupSortClauses(clauses []model.SortClause) []model.SortClause {
	seen := map[string]bool{}
	out := make([]model.SortClause, 0, len(clauses))
	for _, c := range clauses {
		if seen[c.FieldPath] {
			continue
		}
		seen[c.FieldPath] = true
		out = append(out, c)
	}
	return out
}

// source implements "_source: false if no non-id requested fields;
// otherwise {includes: [non_id_fields]}" (spec.md §4.6).
func (a *Assembler) source(q *model.DatastoreQuery) any {
	var includes []string
	for _, f := range q.RequestedFields() {
		if f == filter.IDFieldPath {
			continue
		}
		includes = append(includes, f)
	}
	if len(includes) == 0 {
		return false
	}
	sort.Strings(includes)
	return map[string]any{"includes": includes}
}

func (a *Assembler) aggs(q *model.DatastoreQuery) (map[string]any, error) {
	names := make([]string, 0, len(q.Aggregations()))
	byName := q.Aggregations()
	for name := range byName {
		names = append(names, name)
	}
	sort.Strings(names)

	out := map[string]any{}
	for _, name := range names {
		planned, err := a.strategy.Plan(byName[name], a.cfg.DefaultAggSize)
		if err != nil {
			return nil, fmt.Errorf("assembler: planning aggregation %q: %w", name, err)
		}
		for key, agg := range planned {
			out[key] = agg
		}
	}
	return out, nil
}
