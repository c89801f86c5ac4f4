package aggregation

import (
	"github.com/elastic/go-elasticsearch/v8/typedapi/types"

	"github.com/elasticgraph/querycore/escore"
	"github.com/elasticgraph/querycore/model"
)

// Composite plans a single `composite` bucket over every grouping at once,
// with page size requested_first + 1 so the response decoder can detect
// another page (spec.md §4.5, §6).
type Composite struct{}

func NewComposite() *Composite { return &Composite{} }

func (s *Composite) Plan(q *model.AggregationQuery, defaultSize int) (map[string]types.Aggregations, error) {
	size, ok := resolveSize(q, defaultSize)
	if !ok {
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
		sources := make([]escore.CompositeSource, 0, len(q.Groupings))
		for _, g := range q.Groupings {
			sources = append(sources, compositeSourceFor(q.Name, g))
		}
		composite := escore.Composite(sources, size+1, leaf)
		meta := Meta{Size: size, GroupingFields: groupingFields(q.Groupings), KeyPath: q.Name}
		content = map[string]types.Aggregations{q.Name: escore.WithMeta(composite, meta.toMap())}
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

func (s *Composite) leafAggs(q *model.AggregationQuery, defaultSize int) (map[string]types.Aggregations, error) {
	out, err := computationAggs(q.Name, q.Computations)
	if err != nil {
		return nil, err
	}
	for _, sa := range q.SubAggregations {
		size, _ := resolveSize(sa.Query, defaultSize)
		inner, err := s.Plan(sa.Query, defaultSize)
		if err != nil {
			return nil, err
		}
		key := model.JoinAggPath(append([]string{q.Name}, sa.PathInIndex...)...)
		nested := escore.Nested(joinDotted(sa.PathInIndex), inner)
		meta := Meta{Size: size, KeyPath: key}
		out[key] = escore.WithMeta(nested, meta.toMap())
	}
	return out, nil
}

func compositeSourceFor(aggName string, g model.Grouping) escore.CompositeSource {
	name := model.JoinAggPath(aggName, g.Path())
	switch grouping := g.(type) {
	case *model.FieldTerm:
		return escore.TermsSource(name, grouping.FieldPath, true)
	case *model.DateHistogram:
		tz := grouping.TimeZone
		if tz == "" {
			tz = model.DefaultTimeZone
		}
		offset := ""
		if grouping.Offset != nil {
			offset = *grouping.Offset
		}
		return escore.DateHistogramSource(name, grouping.FieldPath, grouping.CalendarInterval, offset, tz)
	case *model.Script:
		return escore.ScriptedTermsSource(name, grouping.ScriptID, grouping.Params)
	default:
		return escore.TermsSource(name, "", true)
	}
}

func groupingFields(groupings []model.Grouping) []string {
	out := make([]string, 0, len(groupings))
	for _, g := range groupings {
		out = append(out, groupingField(g))
	}
	return out
}
