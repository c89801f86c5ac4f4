package model

import (
	"fmt"
	"sort"
)

// Millis is a monotonic-clock deadline expressed in milliseconds since an
// unspecified epoch local to the process; only relative comparisons
// (smaller deadline wins) are meaningful (spec.md §3, §5).
type Millis int64

// DatastoreQuery is the aggregate root compiled by the GraphQL resolver,
// optionally merged with sibling queries, and passed once to the Batch
// Executor (spec.md §3). Every field is read-only from the outside; all
// mutation happens through With* constructors and Merge, neither of which
// ever modifies its receiver or argument in place.
type DatastoreQuery struct {
	searchIndexDefinitions []IndexDefinition
	filters                []FilterNode
	sort                   []SortClause
	documentPagination     *DocumentPagination
	requestedFields        map[string]struct{}
	individualDocsNeeded   bool
	totalDocumentCountNeeded bool
	aggregations           map[string]*AggregationQuery
	monotonicClockDeadline *Millis
}

// New constructs a DatastoreQuery over the given index definitions, which
// must all share a cluster_to_query (spec.md §3 invariant); otherwise New
// returns a *ConfigError.
func New(indices []IndexDefinition, opts ...Option) (*DatastoreQuery, error) {
	if len(indices) == 0 {
		return nil, &ConfigError{Reason: "a DatastoreQuery requires at least one search index definition"}
	}
	cluster := indices[0].ClusterToQuery
	for _, idx := range indices[1:] {
		if idx.ClusterToQuery != cluster {
			return nil, &ConfigError{Reason: "search_index_definitions must share one cluster_to_query, got " +
				cluster + " and " + idx.ClusterToQuery}
		}
	}

	q := &DatastoreQuery{
		searchIndexDefinitions: append([]IndexDefinition(nil), indices...),
		requestedFields:        map[string]struct{}{},
		aggregations:           map[string]*AggregationQuery{},
	}
	for _, opt := range opts {
		opt(q)
	}
	q.applyInvariants()
	return q, nil
}

// applyInvariants enforces the two derived-field invariants from spec.md §3
// that must hold regardless of how the query was assembled: requested
// fields force individual-docs-needed, and a doc-count-needing ungrouped
// aggregation forces total-document-count-needed.
func (q *DatastoreQuery) applyInvariants() {
	if len(q.requestedFields) > 0 {
		q.individualDocsNeeded = true
	}
	for _, agg := range q.aggregations {
		if agg.RequiresTotalDocCount() {
			q.totalDocumentCountNeeded = true
		}
	}
}

// Option configures a DatastoreQuery at construction time.
type Option func(*DatastoreQuery)

func WithFilter(f FilterNode) Option {
	return func(q *DatastoreQuery) {
		if f == nil || IsNoop(f) {
			return
		}
		q.filters = append(q.filters, f)
	}
}

func WithSort(sort []SortClause) Option {
	return func(q *DatastoreQuery) { q.sort = append([]SortClause(nil), sort...) }
}

func WithDocumentPagination(p *DocumentPagination) Option {
	return func(q *DatastoreQuery) { q.documentPagination = p }
}

func WithRequestedFields(fields []string) Option {
	return func(q *DatastoreQuery) {
		for _, f := range fields {
			q.requestedFields[f] = struct{}{}
		}
	}
}

func WithAggregation(agg *AggregationQuery) Option {
	return func(q *DatastoreQuery) { q.aggregations[agg.Name] = agg }
}

func WithIndividualDocsNeeded(v bool) Option {
	return func(q *DatastoreQuery) { q.individualDocsNeeded = v }
}

func WithTotalDocumentCountNeeded(v bool) Option {
	return func(q *DatastoreQuery) { q.totalDocumentCountNeeded = v }
}

func WithMonotonicClockDeadline(d Millis) Option {
	return func(q *DatastoreQuery) { q.monotonicClockDeadline = &d }
}

// --- read accessors ---

func (q *DatastoreQuery) SearchIndexDefinitions() []IndexDefinition {
	return append([]IndexDefinition(nil), q.searchIndexDefinitions...)
}

func (q *DatastoreQuery) ClusterToQuery() string {
	if len(q.searchIndexDefinitions) == 0 {
		return ""
	}
	return q.searchIndexDefinitions[0].ClusterToQuery
}

// Filter returns the conjunction (AND) of every filter in the set, or nil
// if there are none.
func (q *DatastoreQuery) Filter() FilterNode {
	switch len(q.filters) {
	case 0:
		return nil
	case 1:
		return q.filters[0]
	default:
		return &AllOf{Branches: append([]FilterNode(nil), q.filters...)}
	}
}

// Filters returns the unmerged filter set, as stored (used by Merge's set
// union rule, which must preserve multiplicty semantics per spec.md §8
// scenario 7: merging two equal_to_any_of filters preserves both terms
// clauses rather than intersecting them).
func (q *DatastoreQuery) Filters() []FilterNode {
	return append([]FilterNode(nil), q.filters...)
}

func (q *DatastoreQuery) Sort() []SortClause {
	if q.sort == nil {
		return nil
	}
	return append([]SortClause(nil), q.sort...)
}

func (q *DatastoreQuery) DocumentPagination() *DocumentPagination {
	return q.documentPagination
}

func (q *DatastoreQuery) RequestedFields() []string {
	fields := make([]string, 0, len(q.requestedFields))
	for f := range q.requestedFields {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	return fields
}

func (q *DatastoreQuery) IndividualDocsNeeded() bool      { return q.individualDocsNeeded }
func (q *DatastoreQuery) TotalDocumentCountNeeded() bool  { return q.totalDocumentCountNeeded }

func (q *DatastoreQuery) Aggregations() map[string]*AggregationQuery {
	out := make(map[string]*AggregationQuery, len(q.aggregations))
	for k, v := range q.aggregations {
		out[k] = v
	}
	return out
}

func (q *DatastoreQuery) MonotonicClockDeadline() *Millis {
	return q.monotonicClockDeadline
}

// Explain renders a short debug description of the query, used by
// SearchFailedError to name the offending query (spec.md §4.7 item 4;
// spec.md §10 supplemented feature).
func (q *DatastoreQuery) Explain() string {
	s := "DatastoreQuery{indices="
	for i, idx := range q.searchIndexDefinitions {
		if i > 0 {
			s += ","
		}
		s += idx.Name
	}
	s += fmt.Sprintf(", filters=%d, aggregations=%d, individual_docs_needed=%v}",
		len(q.filters), len(q.aggregations), q.individualDocsNeeded)
	return s
}
