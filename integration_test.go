//go:build integration

// Package querycore_test exercises the full compiler pipeline — Filter
// Interpreter, Index Expression Builder, Shard Router, Aggregation Planner,
// Query Assembler, and Batch Executor — against a real Elasticsearch
// container, the way the teacher's elastic_test.go exercises its own typed
// query helpers end to end instead of mocking the client.
package querycore_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"testing"
	"time"

	elasticsearch "github.com/elastic/go-elasticsearch/v8"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/elasticgraph/querycore/aggregation"
	"github.com/elasticgraph/querycore/assembler"
	"github.com/elasticgraph/querycore/decoder"
	"github.com/elasticgraph/querycore/executor"
	"github.com/elasticgraph/querycore/indexexpr"
	"github.com/elasticgraph/querycore/model"
)

var (
	esContainer testcontainers.Container
	esClient    *elasticsearch.TypedClient
	esAddr      string
)

// TestMain brings up a single Elasticsearch container for the whole file,
// the same lifecycle the teacher's own integration test uses.
func TestMain(m *testing.M) {
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "docker.elastic.co/elasticsearch/elasticsearch:8.11.0",
		ExposedPorts: []string{"9200/tcp"},
		Env: map[string]string{
			"discovery.type":         "single-node",
			"xpack.security.enabled": "false",
			"ES_JAVA_OPTS":           "-Xms512m -Xmx512m",
		},
		WaitingFor: wait.ForHTTP("/").
			WithPort("9200").
			WithStartupTimeout(180 * time.Second).
			WithPollInterval(2 * time.Second),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		panic(fmt.Sprintf("failed to start container: %v", err))
	}
	esContainer = container

	host, err := container.Host(ctx)
	if err != nil {
		panic(err)
	}
	port, err := container.MappedPort(ctx, "9200")
	if err != nil {
		panic(err)
	}
	esAddr = fmt.Sprintf("http://%s:%s", host, port.Port())

	esClient, err = elasticsearch.NewTypedClient(elasticsearch.Config{
		Addresses: []string{esAddr},
	})
	if err != nil {
		panic(err)
	}

	code := m.Run()

	if err := container.Terminate(ctx); err != nil {
		fmt.Printf("failed to terminate container: %v\n", err)
	}
	os.Exit(code)
}

// setupWidgetsIndex creates a plain (non-rollover) index with a handful of
// documents exercising a terms filter, a range filter, and a grouped sum
// aggregation.
func setupWidgetsIndex(t *testing.T, indexName string) {
	t.Helper()
	ctx := context.Background()

	esClient.Indices.Delete(indexName).Do(ctx)

	mapping := map[string]any{
		"mappings": map[string]any{
			"properties": map[string]any{
				"name":     map[string]any{"type": "keyword"},
				"category": map[string]any{"type": "keyword"},
				"price":    map[string]any{"type": "double"},
			},
		},
	}
	mappingJSON, _ := json.Marshal(mapping)
	_, err := esClient.Indices.Create(indexName).Raw(bytes.NewReader(mappingJSON)).Do(ctx)
	require.NoError(t, err, "creating index")

	docs := []map[string]any{
		{"name": "widget-a", "category": "gadget", "price": 10.0},
		{"name": "widget-b", "category": "gadget", "price": 25.0},
		{"name": "widget-c", "category": "tool", "price": 40.0},
	}
	for i, doc := range docs {
		docJSON, _ := json.Marshal(doc)
		id := fmt.Sprintf("w%d", i+1)
		_, err := esClient.Index(indexName).Id(id).Raw(bytes.NewReader(docJSON)).Do(ctx)
		require.NoErrorf(t, err, "indexing document %s", id)
	}
	_, err = esClient.Indices.Refresh().Index(indexName).Do(ctx)
	require.NoError(t, err, "refreshing index")
}

func newPipeline() (*assembler.Assembler, *executor.Executor) {
	asm := assembler.New(
		assembler.Config{DefaultPageSize: 50, MaxPageSize: 500, DefaultAggSize: 50},
		indexexpr.NewBuilder(indexexpr.NewESLister(nil)),
		aggregation.NewNonComposite(),
	)
	transport := executor.NewESTransport(func(cluster string) (*elasticsearch.TypedClient, error) {
		return esClient, nil
	})
	return asm, executor.New(asm, transport.Execute)
}

// TestPipeline_FilterAndFetchDocs exercises a category filter through the
// Filter Interpreter and Query Assembler, the Batch Executor's single
// transport call, and the Response Decoder's hit extraction — end to end
// against a live cluster, with no component mocked.
func TestPipeline_FilterAndFetchDocs(t *testing.T) {
	indexName := "test_pipeline_docs"
	setupWidgetsIndex(t, indexName)

	_, ex := newPipeline()

	leaf := &model.Leaf{
		FieldPath:  "category",
		Predicates: map[model.Operator]any{model.OpEqualToAnyOf: []any{"gadget"}},
	}
	def := model.IndexDefinition{Name: indexName, ClusterToQuery: "main"}
	q, err := model.New([]model.IndexDefinition{def},
		model.WithFilter(leaf),
		model.WithRequestedFields([]string{"name", "category", "price"}))
	require.NoError(t, err)

	out, err := ex.Execute(context.Background(), []*model.DatastoreQuery{q})
	require.NoError(t, err)
	resp, ok := out[q]
	require.True(t, ok, "want a response for the query")
	require.Len(t, resp.Hits.Hits, 2, "want 2 gadget hits")

	// The Response Decoder operates on the same raw envelope shape the
	// Batch Executor wraps, so round-tripping SearchResponse through JSON
	// reproduces exactly the {hits:{hits:[...]}} shape it expects.
	raw, err := json.Marshal(resp)
	require.NoError(t, err)
	docs, err := decoder.DecodeHits(raw, []string{"name", "category", "price"})
	require.NoError(t, err)
	require.Len(t, docs, 2)
	for _, d := range docs {
		require.Equal(t, "gadget", d.Fields["category"])
	}
}

// TestPipeline_GroupedSumAggregation exercises the Aggregation Planner's
// NonComposite strategy through the Batch Executor against a live cluster:
// grouping by category and summing price must come back as a non-empty raw
// aggregations map.
func TestPipeline_GroupedSumAggregation(t *testing.T) {
	indexName := "test_pipeline_agg"
	setupWidgetsIndex(t, indexName)

	_, ex := newPipeline()

	agg := &model.AggregationQuery{
		Name: "by_category",
		Computations: []model.Computation{
			{SourceFieldPath: "price", Function: model.FuncSum, ComputedFieldName: "total_price", GraphQLFieldPath: "price"},
		},
		Groupings: []model.Grouping{
			&model.FieldTerm{FieldPath: "category", GraphQLPath: "category"},
		},
	}
	def := model.IndexDefinition{Name: indexName, ClusterToQuery: "main"}
	q, err := model.New([]model.IndexDefinition{def}, model.WithAggregation(agg))
	require.NoError(t, err)

	out, err := ex.Execute(context.Background(), []*model.DatastoreQuery{q})
	require.NoError(t, err)
	resp, ok := out[q]
	require.True(t, ok, "want a response for the query")
	require.NotEmpty(t, resp.Aggregations, "want a non-empty raw aggregations map")
}
