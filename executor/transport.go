package executor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/elastic/go-elasticsearch/v8"

	"github.com/elasticgraph/querycore/model"
)

// ClusterClients resolves a cluster_to_query name to the TypedClient that
// serves it, since a batch may span queries against more than one cluster
// (spec.md §4.7: "Groups queries by datastore cluster").
type ClusterClients func(cluster string) (*elasticsearch.TypedClient, error)

// ESTransport is the default Transport (spec.md §4.10), issuing one
// multi-search request per distinct cluster_to_query present in the batch.
// Grounded on the teacher's own typed-client usage in executor_es.go.
type ESTransport struct {
	clients ClusterClients
}

func NewESTransport(clients ClusterClients) *ESTransport {
	return &ESTransport{clients: clients}
}

func (t *ESTransport) Execute(ctx context.Context, requests map[*model.DatastoreQuery]Envelope) (map[*model.DatastoreQuery]json.RawMessage, error) {
	byCluster := map[string][]*model.DatastoreQuery{}
	for q := range requests {
		cluster := q.ClusterToQuery()
		byCluster[cluster] = append(byCluster[cluster], q)
	}

	out := make(map[*model.DatastoreQuery]json.RawMessage, len(requests))
	for cluster, queries := range byCluster {
		client, err := t.clients(cluster)
		if err != nil {
			return nil, fmt.Errorf("executor: resolving client for cluster %q: %w", cluster, err)
		}

		responses, err := t.msearch(ctx, client, queries, requests)
		if err != nil {
			return nil, fmt.Errorf("executor: msearch against cluster %q: %w", cluster, err)
		}
		for q, raw := range responses {
			out[q] = raw
		}
	}
	return out, nil
}

func (t *ESTransport) msearch(ctx context.Context, client *elasticsearch.TypedClient, queries []*model.DatastoreQuery, requests map[*model.DatastoreQuery]Envelope) (map[*model.DatastoreQuery]json.RawMessage, error) {
	var buf bytes.Buffer
	for _, q := range queries {
		env := requests[q]

		header := map[string]any{"index": env.Header.Index}
		if env.Header.HasRouting {
			header["routing"] = env.Header.Routing
		}
		if err := writeNDJSONLine(&buf, header); err != nil {
			return nil, err
		}
		if err := writeNDJSONLine(&buf, env.Body); err != nil {
			return nil, err
		}
	}

	resp, err := client.Msearch().Raw(&buf).Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("msearch request: %w", err)
	}
	if len(resp.Responses) != len(queries) {
		return nil, fmt.Errorf("msearch response count mismatch: want %d, got %d", len(queries), len(resp.Responses))
	}

	out := make(map[*model.DatastoreQuery]json.RawMessage, len(queries))
	for i, q := range queries {
		raw, err := json.Marshal(resp.Responses[i])
		if err != nil {
			return nil, fmt.Errorf("re-encoding msearch response %d: %w", i, err)
		}
		out[q] = raw
	}
	return out, nil
}

func writeNDJSONLine(buf *bytes.Buffer, v any) error {
	enc, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encoding msearch line: %w", err)
	}
	buf.Write(enc)
	buf.WriteByte('\n')
	return nil
}
