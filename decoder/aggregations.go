package decoder

import (
	"encoding/json"
	"fmt"

	"github.com/elastic/go-elasticsearch/v8/typedapi/types"

	"github.com/elasticgraph/querycore/aggregation"
	"github.com/elasticgraph/querycore/model"
)

// Row is one decoded aggregation result: the grouping-field values that
// identify it (in grouping order) and the computed leaf values keyed by
// their aggregated-value key form (spec.md §4.5, §6).
type Row struct {
	GroupValues []string
	Values      map[string]float64
	DocCount    int64
}

// Result is the full decoded shape of one AggregationQuery's response.
type Result struct {
	Rows []Row
}

type responseEnvelope struct {
	Aggregations map[string]types.Aggregate `json:"aggregations"`
}

// Decode walks raw's aggregations using meta (the side-channel the
// Aggregation Planner attached) to reconstruct one Row per leaf tuple,
// decoding aggregated-value leaf keys with model.DecodeValueKey
// (spec.md §8's round-trip property). Grounded directly on the teacher's
// typed-aggregate switch in resolver.go/executor_es.go.
func Decode(meta aggregation.Meta, raw json.RawMessage) (Result, error) {
	var env responseEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return Result{}, fmt.Errorf("decoder: decoding aggregations envelope: %w", err)
	}

	root, ok := env.Aggregations[meta.KeyPath]
	if !ok {
		return Result{}, nil
	}

	rows, err := walk(root, nil)
	if err != nil {
		return Result{}, fmt.Errorf("decoder: walking %q: %w", meta.KeyPath, err)
	}
	return Result{Rows: rows}, nil
}

// walk recursively descends one aggregation node, accumulating the
// grouping-field values seen on the path from the root and emitting one Row
// per leaf (a bucket with no further grouping sub-aggregations, or a plain
// metric container).
func walk(agg types.Aggregate, path []string) ([]Row, error) {
	switch v := agg.(type) {
	case *types.StringTermsAggregate:
		return walkStringBuckets(v, path)
	case *types.LongTermsAggregate:
		return walkLongBuckets(v, path)
	case *types.DateHistogramAggregate:
		return walkDateHistogramBuckets(v, path)
	case *types.CompositeAggregate:
		return walkCompositeBuckets(v, path)
	case *types.FilterAggregate:
		return walkContainer(v.Aggregations, path, v.DocCount)
	case *types.NestedAggregate:
		return walkContainer(v.Aggregations, path, v.DocCount)
	case *types.MissingAggregate:
		return walkContainer(v.Aggregations, path, v.DocCount)
	default:
		return []Row{{GroupValues: path, Values: leafValues(agg)}}, nil
	}
}

func walkContainer(aggs map[string]types.Aggregate, path []string, docCount int64) ([]Row, error) {
	if len(aggs) == 0 {
		return []Row{{GroupValues: path, DocCount: docCount}}, nil
	}
	var rows []Row
	values := map[string]float64{}
	leafOnly := true
	for name, sub := range aggs {
		if _, _, _, err := model.DecodeValueKey(name); err == nil {
			if f, ok := leafValue(sub); ok {
				values[name] = f
				continue
			}
		}
		leafOnly = false
		sub := sub
		childRows, err := walk(sub, path)
		if err != nil {
			return nil, err
		}
		rows = append(rows, childRows...)
	}
	if leafOnly {
		return []Row{{GroupValues: path, Values: values, DocCount: docCount}}, nil
	}
	return rows, nil
}

func walkStringBuckets(agg *types.StringTermsAggregate, path []string) ([]Row, error) {
	buckets, ok := agg.Buckets.([]types.StringTermsBucket)
	if !ok {
		return nil, nil
	}
	var rows []Row
	for _, b := range buckets {
		key := fmt.Sprintf("%v", b.Key)
		childRows, err := walkContainer(b.Aggregations, append(append([]string(nil), path...), key), b.DocCount)
		if err != nil {
			return nil, err
		}
		rows = append(rows, childRows...)
	}
	return rows, nil
}

func walkLongBuckets(agg *types.LongTermsAggregate, path []string) ([]Row, error) {
	buckets, ok := agg.Buckets.([]types.LongTermsBucket)
	if !ok {
		return nil, nil
	}
	var rows []Row
	for _, b := range buckets {
		key := fmt.Sprintf("%d", b.Key)
		childRows, err := walkContainer(b.Aggregations, append(append([]string(nil), path...), key), b.DocCount)
		if err != nil {
			return nil, err
		}
		rows = append(rows, childRows...)
	}
	return rows, nil
}

func walkDateHistogramBuckets(agg *types.DateHistogramAggregate, path []string) ([]Row, error) {
	buckets, ok := agg.Buckets.([]types.DateHistogramBucket)
	if !ok {
		return nil, nil
	}
	var rows []Row
	for _, b := range buckets {
		key := b.KeyAsString
		if key == nil {
			k := fmt.Sprintf("%v", b.Key)
			key = &k
		}
		childRows, err := walkContainer(b.Aggregations, append(append([]string(nil), path...), *key), b.DocCount)
		if err != nil {
			return nil, err
		}
		rows = append(rows, childRows...)
	}
	return rows, nil
}

func walkCompositeBuckets(agg *types.CompositeAggregate, path []string) ([]Row, error) {
	var rows []Row
	for _, b := range agg.Buckets {
		keys := make([]string, 0, len(b.Key))
		for _, v := range b.Key {
			keys = append(keys, fmt.Sprintf("%v", v))
		}
		childRows, err := walkContainer(b.Aggregations, append(append([]string(nil), path...), keys...), b.DocCount)
		if err != nil {
			return nil, err
		}
		rows = append(rows, childRows...)
	}
	return rows, nil
}

func leafValues(agg types.Aggregate) map[string]float64 {
	if f, ok := leafValue(agg); ok {
		return map[string]float64{"value": f}
	}
	return nil
}

func leafValue(agg types.Aggregate) (float64, bool) {
	switch v := agg.(type) {
	case *types.SumAggregate:
		return valueOrZero(v.Value), true
	case *types.AvgAggregate:
		return valueOrZero(v.Value), true
	case *types.MinAggregate:
		return valueOrZero(v.Value), true
	case *types.MaxAggregate:
		return valueOrZero(v.Value), true
	case *types.CardinalityAggregate:
		return float64(v.Value), true
	default:
		return 0, false
	}
}

func valueOrZero(v *types.Float64) float64 {
	if v == nil {
		return 0
	}
	return float64(*v)
}
