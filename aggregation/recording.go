package aggregation

import (
	"github.com/elastic/go-elasticsearch/v8/typedapi/types"

	"github.com/elasticgraph/querycore/model"
)

// RecordingStrategy wraps a real Strategy and records every AggregationQuery
// it was asked to plan, for tests that need to assert on planning calls
// without inspecting the rendered DSL tree.
type RecordingStrategy struct {
	Inner   Strategy
	Queries []*model.AggregationQuery
}

func NewRecordingStrategy(inner Strategy) *RecordingStrategy {
	return &RecordingStrategy{Inner: inner}
}

func (s *RecordingStrategy) Plan(q *model.AggregationQuery, defaultSize int) (map[string]types.Aggregations, error) {
	s.Queries = append(s.Queries, q)
	return s.Inner.Plan(q, defaultSize)
}
