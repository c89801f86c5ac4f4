// Package escore builds Elasticsearch query-DSL and aggregation-DSL trees
// using the official typed client's own vocabulary
// (github.com/elastic/go-elasticsearch/v8/typedapi/types) — the same
// struct-literal construction converter_es.go uses for convertQueryInput and
// convertAggsInput, rather than a second query builder layered on top of it.
// Each function here populates a *types.Query or types.Aggregations value
// directly; callers (package filter, package aggregation) assemble those
// values into a tree and hand the tree straight to encoding/json, the same
// way converter_es.go's result flows into the search body untouched.
package escore

import "github.com/elastic/go-elasticsearch/v8/typedapi/types"

// Bool builds a bool query from already-interpreted clauses. Empty clause
// lists are left nil so they marshal as omitted rather than `[]`.
func Bool(must, filter, should, mustNot []types.Query, minimumShouldMatch string) *types.Query {
	b := &types.BoolQuery{}
	if len(must) > 0 {
		b.Must = must
	}
	if len(filter) > 0 {
		b.Filter = filter
	}
	if len(should) > 0 {
		b.Should = should
	}
	if len(mustNot) > 0 {
		b.MustNot = mustNot
	}
	if minimumShouldMatch != "" {
		b.MinimumShouldMatch = minimumShouldMatch
	}
	return &types.Query{Bool: b}
}

// BoolIsEmpty reports whether a bool query built from these four clause
// lists would have no clauses at all.
func BoolIsEmpty(must, filter, should, mustNot []types.Query) bool {
	return len(must) == 0 && len(filter) == 0 && len(should) == 0 && len(mustNot) == 0
}

// alwaysFalse is the canonical constant clause: a bool query whose must_not
// matches every document, so it matches none.
var alwaysFalse = &types.Query{
	Bool: &types.BoolQuery{MustNot: []types.Query{{MatchAll: &types.MatchAllQuery{}}}},
}

// AlwaysFalse returns the shared always-false clause.
func AlwaysFalse() *types.Query { return alwaysFalse }

// Ids addresses documents directly by _id.
func Ids(values []string) *types.Query {
	return &types.Query{Ids: &types.IdsQuery{Values: dedupStrings(values)}}
}

// Terms matches any of a set of values for one field.
func Terms(field string, values []types.FieldValue) *types.Query {
	return &types.Query{Terms: &types.TermsQuery{
		TermsQuery: map[string]types.TermsQueryField{field: dedupFieldValues(values)},
	}}
}

// NumberRange emits range: {field: {gt,gte,lt,lte}} over numeric bounds,
// already collapsed by the caller (the interpreter merges multiple range
// clauses on one field before calling this).
func NumberRange(field string, gt, gte, lt, lte *float64) *types.Query {
	r := types.NumberRangeQuery{}
	if gt != nil {
		v := types.Float64(*gt)
		r.Gt = &v
	}
	if gte != nil {
		v := types.Float64(*gte)
		r.Gte = &v
	}
	if lt != nil {
		v := types.Float64(*lt)
		r.Lt = &v
	}
	if lte != nil {
		v := types.Float64(*lte)
		r.Lte = &v
	}
	return &types.Query{Range: map[string]types.RangeQuery{field: r}}
}

// DateRange is NumberRange's counterpart for date-valued bounds (ISO-8601 or
// the datastore's date-math strings). converter_es.go only exercises the
// numeric range shape; this mirrors it for the date case, which the typed
// client supports via the same types.RangeQuery interface with string
// bounds instead of types.Float64.
func DateRange(field string, gt, gte, lt, lte *string) *types.Query {
	r := types.DateRangeQuery{}
	if gt != nil {
		r.Gt = gt
	}
	if gte != nil {
		r.Gte = gte
	}
	if lt != nil {
		r.Lt = lt
	}
	if lte != nil {
		r.Lte = lte
	}
	return &types.Query{Range: map[string]types.RangeQuery{field: r}}
}

// Match is emitted for matches_query. It is placed under bool.must, not
// bool.filter, by the caller, because match queries contribute to scoring.
func Match(field, query, fuzziness, operator string) *types.Query {
	mq := types.MatchQuery{Query: query}
	if fuzziness != "" {
		mq.Fuzziness = fuzziness
	}
	if operator != "" {
		op := types.Operator{Name: operator}
		mq.Operator = &op
	}
	return &types.Query{Match: map[string]types.MatchQuery{field: mq}}
}

// MatchPhrase is emitted for matches_phrase, via the same match_phrase query
// converter_es.go builds for ESQueryInput.MatchPhrase.
func MatchPhrase(field, query string) *types.Query {
	return &types.Query{MatchPhrase: map[string]types.MatchPhraseQuery{field: {Query: query}}}
}

// GeoDistance is emitted for near. converter_es.go's ESQueryInput doesn't
// carry a geo_distance case, so this is this package's own extension of the
// same direct struct-literal style to a query type the typed client exposes
// but the teacher's subset of inputs never reaches.
func GeoDistance(field, distance string, lat, lon float64) *types.Query {
	return &types.Query{GeoDistance: &types.GeoDistanceQuery{
		Distance:         distance,
		GeoDistanceQuery: map[string]types.LatLonGeoLocation{field: types.LatLonGeoLocation{Lat: lat, Lon: lon}},
	}}
}

// Script is emitted for time_of_day: a stored script filter whose
// parameters have already been converted to nanoseconds-of-day integers by
// the caller.
func Script(id string, params map[string]any) *types.Query {
	return &types.Query{Script: &types.ScriptQuery{Script: types.Script{Id: &id, Params: params}}}
}

// Exists matches documents that have any non-null value for a field.
func Exists(field string) *types.Query {
	return &types.Query{Exists: &types.ExistsQuery{Field: field}}
}

// Nested addresses a nested-mapped list field's hidden sub-documents, the
// same shape converter_es.go builds for ESQueryInput.Nested.
func Nested(path string, query *types.Query) *types.Query {
	return &types.Query{Nested: &types.NestedQuery{Path: path, Query: *query}}
}

func dedupStrings(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, v := range in {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

func dedupFieldValues(in []types.FieldValue) []types.FieldValue {
	seen := make(map[any]struct{}, len(in))
	out := make([]types.FieldValue, 0, len(in))
	for _, v := range in {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
