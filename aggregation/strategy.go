package aggregation

import (
	"fmt"

	"github.com/elastic/go-elasticsearch/v8/typedapi/types"

	"github.com/elasticgraph/querycore/escore"
	"github.com/elasticgraph/querycore/filter"
	"github.com/elasticgraph/querycore/model"
)

// Strategy plans one AggregationQuery into the set of top-level aggregation
// entries it contributes, keyed by their final wire names (spec.md §4.5).
// Multiple AggregationQuery values on one DatastoreQuery flatten into one
// shared "aggs" object, so Plan returns a map rather than a single node.
type Strategy interface {
	Plan(q *model.AggregationQuery, defaultSize int) (map[string]types.Aggregations, error)
}

// resolveSize implements "default size 50 unless the query first is
// present" (spec.md §4.5), and the omission rule for First == 0.
func resolveSize(q *model.AggregationQuery, defaultSize int) (int, bool) {
	if q.First != nil {
		if *q.First == 0 {
			return 0, false
		}
		return int(*q.First), true
	}
	return defaultSize, true
}

// computationAggs builds the metric leaf aggregations for one
// AggregationQuery, keyed by the deterministic aggregated-value key form
// (spec.md §4.5, §6).
func computationAggs(aggName string, computations []model.Computation) (map[string]types.Aggregations, error) {
	out := map[string]types.Aggregations{}
	for _, c := range computations {
		key := model.EncodeValueKey(aggName, c.GraphQLFieldPath, c.ComputedFieldName)
		agg, err := metricAggregationFor(c)
		if err != nil {
			return nil, err
		}
		out[key] = agg
	}
	return out, nil
}

func metricAggregationFor(c model.Computation) (types.Aggregations, error) {
	switch c.Function {
	case model.FuncSum:
		return escore.Sum(c.SourceFieldPath), nil
	case model.FuncAvg:
		return escore.Avg(c.SourceFieldPath), nil
	case model.FuncMin:
		return escore.Min(c.SourceFieldPath), nil
	case model.FuncMax:
		return escore.Max(c.SourceFieldPath), nil
	case model.FuncCardinality:
		return escore.Cardinality(c.SourceFieldPath), nil
	default:
		return types.Aggregations{}, fmt.Errorf("aggregation: unknown function %q", c.Function)
	}
}

// wrapFiltered implements "when a sub-aggregation has a filter, a wrapping
// <name>:filtered filter aggregation is inserted" (spec.md §4.5). It
// returns the wire name to use for the wrapper and the wrapped aggregation.
func wrapFiltered(name string, filterNode model.FilterNode, inner map[string]types.Aggregations) (string, types.Aggregations, error) {
	q, err := filter.Interpret(filterNode)
	if err != nil {
		return "", types.Aggregations{}, fmt.Errorf("aggregation: interpreting filter for %q: %w", name, err)
	}
	return model.JoinAggPath(name, model.FilteredSuffix), escore.Filter(q, inner), nil
}
