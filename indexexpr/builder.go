package indexexpr

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/elasticgraph/querycore/model"
)

// Builder computes a search index expression for one IndexDefinition
// (spec.md §4.4).
type Builder struct {
	lister Lister
}

func NewBuilder(lister Lister) *Builder {
	return &Builder{lister: lister}
}

// Plan is the supplemented debug output of Build, recording the rendered
// expression and which concrete indices were included and excluded (no
// reason is recorded per index) (spec.md §10 supplemented feature, for
// operators diagnosing an unexpectedly narrow or wide search).
type Plan struct {
	Expression string
	Included   []string
	Excluded   []string
}

// Build renders the comma-separated index expression for def, given the
// query's filter and whether the query has aggregations (which changes the
// empty-after-pruning fallback per spec.md §4.4).
func (b *Builder) Build(ctx context.Context, def model.IndexDefinition, filter model.FilterNode, hasAggregations bool) (string, error) {
	plan, err := b.Explain(ctx, def, filter, hasAggregations)
	if err != nil {
		return "", err
	}
	return plan.Expression, nil
}

// Explain computes the same result as Build but returns the full Plan.
func (b *Builder) Explain(ctx context.Context, def model.IndexDefinition, filter model.FilterNode, hasAggregations bool) (Plan, error) {
	if def.Rollover == nil {
		return Plan{Expression: def.Name, Included: []string{def.Name}}, nil
	}

	basePattern := def.SearchIndexExpressionTemplate
	domain := TimeDomain(filter, def.Rollover.TimestampFieldPath)

	existing, err := b.lister.List(ctx, basePattern)
	if err != nil {
		return Plan{}, fmt.Errorf("indexexpr: building expression for %q: %w", def.Name, err)
	}
	sort.Strings(existing)

	if domain.Kind() == KindAll {
		return Plan{Expression: basePattern, Included: existing}, nil
	}

	if domain.Kind() == KindNone {
		if !hasAggregations || len(existing) == 0 {
			return Plan{Expression: ""}, nil
		}
		// Aggregation queries need exactly one known index so the store
		// still returns a shaped response (spec.md §4.4).
		first := existing[0]
		return Plan{Expression: first, Included: []string{first}}, nil
	}

	var excluded []string
	var included []string
	for _, name := range existing {
		suffix, ok := ParseIndexSuffix(name, basePattern)
		if !ok {
			// Doesn't look like a rollover bucket of this family; leave it
			// out of pruning decisions entirely rather than guess.
			included = append(included, name)
			continue
		}
		start, end, ok := BucketBounds(suffix, def.Rollover.Granularity)
		if !ok {
			included = append(included, name)
			continue
		}
		if domain.AdmitsBucket(start, end) {
			included = append(included, name)
		} else {
			excluded = append(excluded, name)
		}
	}

	expr := basePattern
	if len(excluded) > 0 {
		parts := make([]string, 0, len(excluded)+1)
		parts = append(parts, basePattern)
		for _, name := range excluded {
			parts = append(parts, "-"+name)
		}
		expr = strings.Join(parts, ",")
	}

	return Plan{Expression: expr, Included: included, Excluded: excluded}, nil
}
