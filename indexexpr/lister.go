package indexexpr

import (
	"context"
	"fmt"
	"sort"

	elastic "github.com/olivere/elastic/v7"
)

// Lister resolves a glob pattern to the concrete index names currently
// backing it (spec.md §4.4: "the set of concrete index names that currently
// exist for the pattern, supplied by the datastore via a lazy listing
// call"). It is deliberately narrow — cat-indices only — unlike the
// go-elasticsearch/v8 typed client used elsewhere in this module for search
// and response decoding, because index discovery is a distinct, simpler
// concern best served by olivere/elastic's CatIndicesService (the pattern
// other_examples/3eb35667_reveald-reveald__builder.go.go's sibling store
// access layer and jaegertracing/jaeger both use olivere/elastic/v7 for).
type Lister interface {
	List(ctx context.Context, pattern string) ([]string, error)
}

// ESLister lists indices via Elasticsearch/OpenSearch's cat API.
type ESLister struct {
	client *elastic.Client
}

func NewESLister(client *elastic.Client) *ESLister {
	return &ESLister{client: client}
}

func (l *ESLister) List(ctx context.Context, pattern string) ([]string, error) {
	rows, err := l.client.CatIndices().Index(pattern).Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("indexexpr: listing indices for %q: %w", pattern, err)
	}
	names := make([]string, 0, len(rows))
	for _, row := range rows {
		names = append(names, row.Index)
	}
	sort.Strings(names)
	return names, nil
}
