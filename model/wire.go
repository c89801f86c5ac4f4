package model

import (
	"fmt"
	"strings"
)

// CountsFieldPrefix is the reserved sidecar field storing pre-computed list
// sizes for count-filter support (spec.md glossary, __counts).
const CountsFieldPrefix = "__counts"

// CountsPathSeparator joins dotted parent path segments inside a __counts
// field name, since __counts itself lives at a fixed depth and can't use
// '.' without colliding with the mapping's own nesting (spec.md §6).
const CountsPathSeparator = "|"

// CountsFieldFor returns the synthetic sibling field name that stores the
// indexed size of the list at fieldPath, per spec.md §6: "the count of
// details.uniform_colors is at __counts.details|uniform_colors". Nested
// parents are handled by the caller, which must pass the path relative to
// the nested document root (spec.md §6, "Nested-mapped parents use a fresh
// __counts at the nested document root, not the parent's").
func CountsFieldFor(fieldPath string) string {
	encoded := strings.ReplaceAll(fieldPath, ".", CountsPathSeparator)
	return CountsFieldPrefix + "." + encoded
}

// FallbackShardRoutingValue is the synthetic routing value used when the
// routing picker's set is empty but the query has aggregations and must
// still reach a shard to preserve the response skeleton (spec.md §4.3).
const FallbackShardRoutingValue = "fallback_shard_routing_value"

// StrictDateTimeFormat is the literal date format used for every emitted
// date_histogram (spec.md §6).
const StrictDateTimeFormat = "strict_date_time"

// DefaultTimeZone is used whenever a caller does not specify one.
const DefaultTimeZone = "UTC"

// aggKeySeparator joins the three components of an aggregated-value leaf
// key (spec.md §4.5, §6).
const aggKeySeparator = ":"

// EncodeValueKey renders the deterministic key form for an aggregated-value
// leaf: "<agg_name>:<dot_path_of_graphql_names>:<computed_field_name>"
// (spec.md §4.5, §6). graphqlPath is already dot-joined by the caller.
func EncodeValueKey(aggName, graphqlPath, computedFieldName string) string {
	return strings.Join([]string{aggName, graphqlPath, computedFieldName}, aggKeySeparator)
}

// DecodeValueKey is the inverse of EncodeValueKey. It returns an error if
// key does not have exactly three colon-separated components — the
// round-trip property spec.md §8 requires only promises
// decode(encode(...)) == (...), not that arbitrary strings decode cleanly.
func DecodeValueKey(key string) (aggName, graphqlPath, computedFieldName string, err error) {
	parts := strings.SplitN(key, aggKeySeparator, 3)
	if len(parts) != 3 {
		return "", "", "", fmt.Errorf("malformed aggregated-value key %q: want 3 colon-separated parts, got %d", key, len(parts))
	}
	return parts[0], parts[1], parts[2], nil
}

// aggPathSeparator joins parent/child segments of a nested aggregation name
// (spec.md §6: "sub-aggregations are named <parent>:<child_segment> joined
// by colons forming a path").
const aggPathSeparator = ":"

// JoinAggPath builds the wire name of a (possibly nested) aggregation node
// from its ancestor segment names.
func JoinAggPath(segments ...string) string {
	return strings.Join(segments, aggPathSeparator)
}

// FilteredSuffix is appended to a sub-aggregation's name when it carries its
// own filter and must be wrapped in a `<name>:filtered` filter aggregation
// (spec.md §4.5).
const FilteredSuffix = "filtered"

// MissingBucketSuffix is appended to a terms grouping's key to name its
// sibling missing-value bucket in the NonComposite strategy (spec.md §4.5:
// "<key>:m: {missing: {field}, ...}").
const MissingBucketSuffix = "m"
