package model

import "go.uber.org/zap"

// Merge combines a and b into one DatastoreQuery per the total merge
// contract in spec.md §4.6. Merge never mutates a or b; every field has a
// defined rule even when both operands are zero-valued for it. logger may
// be nil, in which case merge conflicts are not logged (zap.NewNop is used
// internally so callers never need to guard against a nil logger).
func Merge(a, b *DatastoreQuery, logger *zap.Logger) (*DatastoreQuery, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	if !indexSetsEqual(a.searchIndexDefinitions, b.searchIndexDefinitions) {
		return nil, &InvalidMergeError{
			LeftIndices:  indexNames(a.searchIndexDefinitions),
			RightIndices: indexNames(b.searchIndexDefinitions),
		}
	}

	merged := &DatastoreQuery{
		searchIndexDefinitions: append([]IndexDefinition(nil), a.searchIndexDefinitions...),
		requestedFields:        map[string]struct{}{},
		aggregations:           map[string]*AggregationQuery{},
	}

	// filters: set union, deduplicated by rendered form.
	merged.filters = unionFilters(a.filters, b.filters)

	// sort: non-nil one wins; equal → either; unequal → b wins with a warn.
	merged.sort = mergeSort(a.sort, b.sort, logger)

	// document_pagination: same shape of rule as sort.
	merged.documentPagination = mergePagination(a.documentPagination, b.documentPagination, logger)

	// requested_fields: union.
	for f := range a.requestedFields {
		merged.requestedFields[f] = struct{}{}
	}
	for f := range b.requestedFields {
		merged.requestedFields[f] = struct{}{}
	}

	// individual_docs_needed: logical OR.
	merged.individualDocsNeeded = a.individualDocsNeeded || b.individualDocsNeeded

	// aggregations: map union by name (names are unique within one query).
	for k, v := range a.aggregations {
		merged.aggregations[k] = v
	}
	for k, v := range b.aggregations {
		merged.aggregations[k] = v
	}

	// total_document_count_needed: logical OR, then forced true if any
	// aggregation requires it.
	merged.totalDocumentCountNeeded = a.totalDocumentCountNeeded || b.totalDocumentCountNeeded

	// monotonic_clock_deadline: nil if both nil, else the smaller non-nil
	// value — a caller's explicit deadline can only ever tighten a default.
	merged.monotonicClockDeadline = mergeDeadline(a.monotonicClockDeadline, b.monotonicClockDeadline)

	merged.applyInvariants()
	return merged, nil
}

func indexNames(defs []IndexDefinition) []string {
	names := make([]string, len(defs))
	for i, d := range defs {
		names[i] = d.Name
	}
	return names
}

// indexSetsEqual implements the InvalidMergeError trigger: "search_index_definitions
// must be equal; else error" (spec.md §4.6). Order does not matter; a
// DatastoreQuery's index set is conceptually a Set<IndexDefinition>.
func indexSetsEqual(a, b []IndexDefinition) bool {
	if len(a) != len(b) {
		return false
	}
	counts := map[string]int{}
	for _, d := range a {
		counts[d.Name]++
	}
	for _, d := range b {
		counts[d.Name]--
	}
	for _, c := range counts {
		if c != 0 {
			return false
		}
	}
	return true
}

func unionFilters(a, b []FilterNode) []FilterNode {
	seen := map[string]bool{}
	var out []FilterNode
	for _, f := range append(append([]FilterNode(nil), a...), b...) {
		key := f.String()
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, f)
	}
	return out
}

func mergeSort(a, b []SortClause, logger *zap.Logger) []SortClause {
	switch {
	case a == nil && b == nil:
		return nil
	case a == nil:
		return append([]SortClause(nil), b...)
	case b == nil:
		return append([]SortClause(nil), a...)
	}
	if sortClausesEqual(a, b) {
		return append([]SortClause(nil), a...)
	}
	logger.Warn("merge: conflicting sort clauses, right-hand query wins",
		zap.Any("left", a), zap.Any("right", b))
	return append([]SortClause(nil), b...)
}

func sortClausesEqual(a, b []SortClause) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func mergePagination(a, b *DocumentPagination, logger *zap.Logger) *DocumentPagination {
	switch {
	case a == nil && b == nil:
		return nil
	case a == nil:
		return b
	case b == nil:
		return a
	}
	if a.Equal(b) {
		return a
	}
	logger.Warn("merge: conflicting document pagination, right-hand query wins",
		zap.Any("left", a), zap.Any("right", b))
	return b
}

func mergeDeadline(a, b *Millis) *Millis {
	switch {
	case a == nil && b == nil:
		return nil
	case a == nil:
		return b
	case b == nil:
		return a
	case *a <= *b:
		return a
	default:
		return b
	}
}
