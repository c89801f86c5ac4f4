package indexexpr

import (
	"strings"
	"time"

	"github.com/elasticgraph/querycore/model"
)

// bucketLayouts maps a rollover granularity to the date suffix ElasticGraph
// appends to a concrete index name (spec.md §4.4 scenario: "widgets_rollover__2021-01").
var bucketLayouts = map[model.RolloverGranularity]string{
	model.GranularityDay:   "2006-01-02",
	model.GranularityMonth: "2006-01",
	model.GranularityYear:  "2006",
}

// ParseIndexSuffix splits a concrete rollover index name into the date
// suffix, given the index family's base glob pattern (e.g.
// "widgets_rollover__*" -> suffix "2021-01" for "widgets_rollover__2021-01").
func ParseIndexSuffix(indexName, basePattern string) (string, bool) {
	prefix := strings.TrimSuffix(basePattern, "*")
	if !strings.HasPrefix(indexName, prefix) {
		return "", false
	}
	return indexName[len(prefix):], true
}

// BucketBounds returns the half-open [start, end) time range a concrete
// rollover index covers, given its date suffix and granularity.
func BucketBounds(suffix string, granularity model.RolloverGranularity) (time.Time, time.Time, bool) {
	layout, ok := bucketLayouts[granularity]
	if !ok {
		return time.Time{}, time.Time{}, false
	}
	start, err := time.Parse(layout, suffix)
	if err != nil {
		return time.Time{}, time.Time{}, false
	}
	start = start.UTC()

	var end time.Time
	switch granularity {
	case model.GranularityDay:
		end = start.AddDate(0, 0, 1)
	case model.GranularityMonth:
		end = start.AddDate(0, 1, 0)
	case model.GranularityYear:
		end = start.AddDate(1, 0, 0)
	default:
		return time.Time{}, time.Time{}, false
	}
	return start, end, true
}
