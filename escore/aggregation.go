package escore

import "github.com/elastic/go-elasticsearch/v8/typedapi/types"

// WithMeta attaches the planner's meta side-channel to an already-built
// aggregation node, via types.Aggregations' own Meta field rather than a
// wrapping type — the meta key sits alongside terms/date_histogram/etc. in
// the same object the way converter_es.go's agg.Aggregations field nests
// sub-aggregations directly on the Aggregations value itself.
func WithMeta(agg types.Aggregations, meta map[string]any) types.Aggregations {
	raw := make(types.Metadata, len(meta))
	for k, v := range meta {
		raw[k] = v
	}
	agg.Meta = raw
	return agg
}

func withSubAggs(agg types.Aggregations, subaggs map[string]types.Aggregations) types.Aggregations {
	if len(subaggs) > 0 {
		agg.Aggregations = subaggs
	}
	return agg
}

// Terms groups documents by distinct values of one field, the shape
// converter_es.go builds for ESAggInput.Terms.
func Terms(field string, size int, subaggs map[string]types.Aggregations) types.Aggregations {
	t := &types.TermsAggregation{Field: &field}
	if size > 0 {
		s := size
		t.Size = &s
	}
	return withSubAggs(types.Aggregations{Terms: t}, subaggs)
}

// ScriptedTerms groups by the result of a stored script instead of a plain
// field, used for derived groupings such as as_day_of_week/as_time_of_day.
// converter_es.go's ESAggInput never carries a scripted-terms case; this
// extends the same TermsAggregation struct with its Script field instead of
// Field, which the typed client's TermsAggregation exposes for exactly this
// purpose.
func ScriptedTerms(scriptID string, params map[string]any, size int, subaggs map[string]types.Aggregations) types.Aggregations {
	t := &types.TermsAggregation{Script: &types.Script{Id: &scriptID, Params: params}}
	if size > 0 {
		s := size
		t.Size = &s
	}
	return withSubAggs(types.Aggregations{Terms: t}, subaggs)
}

// DateHistogram buckets documents along a calendar interval, the shape
// converter_es.go builds for ESAggInput.DateHistogram (which itself notes
// the calendar-interval value needs its own enum conversion; this package
// carries that conversion through since, unlike the teacher, it must
// actually exercise every calendar interval the planner requests).
func DateHistogram(field, calendarInterval, offset, timeZone string, subaggs map[string]types.Aggregations) types.Aggregations {
	dh := &types.DateHistogramAggregation{Field: &field}
	if calendarInterval != "" {
		dh.CalendarInterval = &types.CalendarInterval{Name: calendarInterval}
	}
	if offset != "" {
		dh.Offset = &offset
	}
	if timeZone != "" {
		dh.TimeZone = &timeZone
	}
	return withSubAggs(types.Aggregations{DateHistogram: dh}, subaggs)
}

// CompositeSource is one entry of a composite aggregation's sources array.
// converter_es.go's ESAggInput subset never reaches composite aggregations,
// so these constructors are this package's own extension of the same
// struct-literal style to types.CompositeAggregationSource.
type CompositeSource struct {
	Name   string
	Source types.CompositeAggregationSource
}

// TermsSource builds a terms composite source. missingBucket, when true,
// emits missing_bucket: true so documents lacking the field get their own
// bucket rather than being dropped.
func TermsSource(name, field string, missingBucket bool) CompositeSource {
	t := &types.CompositeTermsAggregation{Field: &field}
	if missingBucket {
		t.MissingBucket = &missingBucket
	}
	return CompositeSource{Name: name, Source: types.CompositeAggregationSource{Terms: t}}
}

// ScriptedTermsSource builds a terms composite source keyed by a stored
// script instead of a plain field.
func ScriptedTermsSource(name, scriptID string, params map[string]any) CompositeSource {
	missing := true
	t := &types.CompositeTermsAggregation{
		Script:        &types.Script{Id: &scriptID, Params: params},
		MissingBucket: &missing,
	}
	return CompositeSource{Name: name, Source: types.CompositeAggregationSource{Terms: t}}
}

// DateHistogramSource builds a date_histogram composite source.
func DateHistogramSource(name, field, calendarInterval, offset, timeZone string) CompositeSource {
	dh := &types.CompositeDateHistogramAggregation{Field: &field}
	if calendarInterval != "" {
		dh.CalendarInterval = &types.CalendarInterval{Name: calendarInterval}
	}
	if offset != "" {
		dh.Offset = &offset
	}
	if timeZone != "" {
		dh.TimeZone = &timeZone
	}
	return CompositeSource{Name: name, Source: types.CompositeAggregationSource{DateHistogram: dh}}
}

// Composite builds a composite aggregation over the given sources with the
// given page size and sub-aggregations. The Composite strategy uses it in
// place of nested terms/date_histogram aggregations.
func Composite(sources []CompositeSource, size int, subaggs map[string]types.Aggregations) types.Aggregations {
	srcs := make([]map[string]types.CompositeAggregationSource, 0, len(sources))
	for _, s := range sources {
		srcs = append(srcs, map[string]types.CompositeAggregationSource{s.Name: s.Source})
	}
	c := &types.CompositeAggregation{Sources: srcs}
	if size > 0 {
		sz := size
		c.Size = &sz
	}
	return withSubAggs(types.Aggregations{Composite: c}, subaggs)
}

// Filter scopes its sub-aggregations to documents matching a query, the
// shape converter_es.go builds for ESAggInput.Filter.
func Filter(query *types.Query, subaggs map[string]types.Aggregations) types.Aggregations {
	return withSubAggs(types.Aggregations{Filter: query}, subaggs)
}

// Nested descends into a nested-mapped list field's hidden sub-documents
// for aggregation purposes, the shape converter_es.go builds for
// ESAggInput.Nested.
func Nested(path string, subaggs map[string]types.Aggregations) types.Aggregations {
	return withSubAggs(types.Aggregations{Nested: &types.NestedAggregation{Path: &path}}, subaggs)
}

// Missing buckets documents that have no value for a field, used for the
// missing sibling of a grouping on an optional field outside composite
// contexts. converter_es.go's ESAggInput subset never reaches a missing
// aggregation; this mirrors its Nested/Filter handling for
// types.MissingAggregation instead.
func Missing(field string, subaggs map[string]types.Aggregations) types.Aggregations {
	return withSubAggs(types.Aggregations{Missing: &types.MissingAggregation{Field: &field}}, subaggs)
}

func Sum(field string) types.Aggregations {
	return types.Aggregations{Sum: &types.SumAggregation{Field: &field}}
}

func Avg(field string) types.Aggregations {
	return types.Aggregations{Avg: &types.AverageAggregation{Field: &field}}
}

func Min(field string) types.Aggregations {
	return types.Aggregations{Min: &types.MinAggregation{Field: &field}}
}

func Max(field string) types.Aggregations {
	return types.Aggregations{Max: &types.MaxAggregation{Field: &field}}
}

func Cardinality(field string) types.Aggregations {
	return types.Aggregations{Cardinality: &types.CardinalityAggregation{Field: &field}}
}
