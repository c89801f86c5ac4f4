package aggregation

import (
	"github.com/elastic/go-elasticsearch/v8/typedapi/types"

	"github.com/elasticgraph/querycore/escore"
	"github.com/elasticgraph/querycore/model"
)

// NonComposite plans a nested terms/date_histogram tree — one level of
// bucketing per grouping, computations and sub-aggregations attached at the
// innermost level (spec.md §4.5).
type NonComposite struct{}

func NewNonComposite() *NonComposite { return &NonComposite{} }

func (s *NonComposite) Plan(q *model.AggregationQuery, defaultSize int) (map[string]types.Aggregations, error) {
	size, ok := resolveSize(q, defaultSize)
	if !ok {
		// AggregationQuery.First == 0: omitted from the payload entirely.
		return nil, nil
	}

	leaf, err := s.leafAggs(q, defaultSize)
	if err != nil {
		return nil, err
	}

	var content map[string]types.Aggregations
	if len(q.Groupings) == 0 {
		content = leaf
	} else {
		content, err = s.buildGroupingLevel(q.Name, q.Groupings, 0, size, leaf)
		if err != nil {
			return nil, err
		}
	}

	if q.Filter != nil {
		name, wrapped, err := wrapFiltered(q.Name, q.Filter, content)
		if err != nil {
			return nil, err
		}
		return map[string]types.Aggregations{name: wrapped}, nil
	}
	return content, nil
}

func (s *NonComposite) leafAggs(q *model.AggregationQuery, defaultSize int) (map[string]types.Aggregations, error) {
	out, err := computationAggs(q.Name, q.Computations)
	if err != nil {
		return nil, err
	}
	for _, sa := range q.SubAggregations {
		childKey, childAgg, err := s.planSubAggregation(q.Name, sa, defaultSize)
		if err != nil {
			return nil, err
		}
		out[childKey] = childAgg
	}
	return out, nil
}

func (s *NonComposite) planSubAggregation(parentName string, sa model.SubAggregation, defaultSize int) (string, types.Aggregations, error) {
	inner, err := s.Plan(sa.Query, defaultSize)
	if err != nil {
		return "", types.Aggregations{}, err
	}
	size, _ := resolveSize(sa.Query, defaultSize)

	key := model.JoinAggPath(append([]string{parentName}, sa.PathInIndex...)...)
	nestedPath := joinDotted(sa.PathInIndex)

	nested := escore.Nested(nestedPath, inner)
	meta := Meta{Size: size, KeyPath: key}
	return key, escore.WithMeta(nested, meta.toMap()), nil
}

// buildGroupingLevel recursively builds one nesting level per grouping,
// attaching leafAggs at the deepest level (spec.md §4.5).
func (s *NonComposite) buildGroupingLevel(parentName string, groupings []model.Grouping, idx, size int, leafAggs map[string]types.Aggregations) (map[string]types.Aggregations, error) {
	if idx == len(groupings) {
		return leafAggs, nil
	}

	g := groupings[idx]
	key := model.JoinAggPath(parentName, g.Path())

	childAggs, err := s.buildGroupingLevel(key, groupings, idx+1, size, leafAggs)
	if err != nil {
		return nil, err
	}

	out := map[string]types.Aggregations{}
	meta := Meta{Size: size, GroupingFields: []string{groupingField(g)}, KeyPath: key}

	switch grouping := g.(type) {
	case *model.FieldTerm:
		terms := escore.Terms(grouping.FieldPath, size, childAggs)
		out[key] = escore.WithMeta(terms, meta.toMap())

		missing := escore.Missing(grouping.FieldPath, childAggs)
		missingKey := model.JoinAggPath(key, model.MissingBucketSuffix)
		out[missingKey] = escore.WithMeta(missing, meta.toMap())

	case *model.DateHistogram:
		tz := grouping.TimeZone
		if tz == "" {
			tz = model.DefaultTimeZone
		}
		offset := ""
		if grouping.Offset != nil {
			offset = *grouping.Offset
		}
		dh := escore.DateHistogram(grouping.FieldPath, grouping.CalendarInterval, offset, tz, childAggs)
		out[key] = escore.WithMeta(dh, meta.toMap())

	case *model.Script:
		terms := escore.ScriptedTerms(grouping.ScriptID, grouping.Params, size, childAggs)
		out[key] = escore.WithMeta(terms, meta.toMap())
	}

	return out, nil
}

func groupingField(g model.Grouping) string {
	switch grouping := g.(type) {
	case *model.FieldTerm:
		return grouping.FieldPath
	case *model.DateHistogram:
		return grouping.FieldPath
	case *model.Script:
		return grouping.FieldPath
	default:
		return ""
	}
}

func joinDotted(segments []string) string {
	out := ""
	for i, s := range segments {
		if i > 0 {
			out += "."
		}
		out += s
	}
	return out
}
