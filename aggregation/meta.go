// Package aggregation implements the Aggregation Planner (spec.md §4.5):
// translating an AggregationQuery into the datastore's aggregation DSL via
// package escore, under one of two selectable strategies (Composite,
// NonComposite), each preserving the meta side-channel the Response Decoder
// needs to walk buckets back into typed results.
package aggregation

// Meta carries the information the Response Decoder needs to interpret one
// aggregation node that Elasticsearch itself does not preserve
// (spec.md §4.5).
type Meta struct {
	Size            int
	BucketPath      string
	BucketsPath     string
	MergeIntoBucket bool
	GroupingFields  []string
	KeyPath         string
}

// toMap renders only the fields that are actually set, matching the
// spec's "{size, bucket_path?, buckets_path?, merge_into_bucket?,
// grouping_fields?, key_path?}" optional-field shape.
func (m Meta) toMap() map[string]any {
	out := map[string]any{"size": m.Size}
	if m.BucketPath != "" {
		out["bucket_path"] = m.BucketPath
	}
	if m.BucketsPath != "" {
		out["buckets_path"] = m.BucketsPath
	}
	if m.MergeIntoBucket {
		out["merge_into_bucket"] = true
	}
	if len(m.GroupingFields) > 0 {
		out["grouping_fields"] = m.GroupingFields
	}
	if m.KeyPath != "" {
		out["key_path"] = m.KeyPath
	}
	return out
}
