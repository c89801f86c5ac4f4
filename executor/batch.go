// Package executor implements the Batch Executor (spec.md §4.7): assembling
// every query in a batch, invoking a transport callback exactly once, and
// wrapping the raw responses with a stable empty fallback shape.
package executor

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/elasticgraph/querycore/assembler"
	"github.com/elasticgraph/querycore/model"
)

// Envelope is the (header, body) pair handed to the transport callback for
// one non-dropped query (spec.md §4.7 item 2).
type Envelope struct {
	Header assembler.Header
	Body   map[string]any
}

// Transport is the callback the Batch Executor invokes exactly once per
// batch (spec.md §4.7 item 3). Implementations are free to fan requests out
// in parallel under the hood; ordering of the input map is unspecified.
type Transport func(ctx context.Context, requests map[*model.DatastoreQuery]Envelope) (map[*model.DatastoreQuery]json.RawMessage, error)

// SearchFailedError reports that the transport callback's response map was
// missing an expected query (spec.md §4.7 item 4).
type SearchFailedError struct {
	Missing []string
}

func (e *SearchFailedError) Error() string {
	return fmt.Sprintf("search failed: missing responses for %d quer(y/ies): %v", len(e.Missing), e.Missing)
}

// SearchResponse wraps one raw response with the stable empty fallback shape
// (spec.md §4.7 item 5).
type SearchResponse struct {
	Hits struct {
		Hits  []json.RawMessage `json:"hits"`
		Total struct {
			Value int64 `json:"value"`
		} `json:"total"`
	} `json:"hits"`
	Aggregations map[string]json.RawMessage `json:"aggregations"`
}

func emptyResponse() *SearchResponse {
	resp := &SearchResponse{}
	resp.Hits.Hits = []json.RawMessage{}
	resp.Aggregations = map[string]json.RawMessage{}
	return resp
}

// Executor drives one batch of DatastoreQuery values through assembly,
// transport, and response wrapping.
type Executor struct {
	assembler *assembler.Assembler
	transport Transport
}

func New(asm *assembler.Assembler, transport Transport) *Executor {
	return &Executor{assembler: asm, transport: transport}
}

// Execute implements the full Batch Executor contract (spec.md §4.7).
func (e *Executor) Execute(ctx context.Context, queries []*model.DatastoreQuery) (map[*model.DatastoreQuery]*SearchResponse, error) {
	out := make(map[*model.DatastoreQuery]*SearchResponse, len(queries))
	requests := make(map[*model.DatastoreQuery]Envelope)
	var pending []*model.DatastoreQuery

	for _, q := range queries {
		if !needsPayload(q) {
			out[q] = emptyResponse()
			continue
		}

		payload, err := e.assembler.Assemble(ctx, q)
		if err != nil {
			return nil, fmt.Errorf("executor: assembling %s: %w", q.Explain(), err)
		}

		requests[q] = Envelope{Header: payload.Header, Body: payload.Body}
		pending = append(pending, q)
	}

	if len(pending) == 0 {
		return out, nil
	}

	raw, err := e.transport(ctx, requests)
	if err != nil {
		return nil, fmt.Errorf("executor: transport: %w", err)
	}

	var missing []string
	for _, q := range pending {
		if _, ok := raw[q]; !ok {
			missing = append(missing, q.Explain())
		}
	}
	if len(missing) > 0 {
		return nil, &SearchFailedError{Missing: missing}
	}

	for _, q := range pending {
		resp := emptyResponse()
		if err := json.Unmarshal(raw[q], resp); err != nil {
			return nil, fmt.Errorf("executor: decoding response for %s: %w", q.Explain(), err)
		}
		if resp.Hits.Hits == nil {
			resp.Hits.Hits = []json.RawMessage{}
		}
		if resp.Aggregations == nil {
			resp.Aggregations = map[string]json.RawMessage{}
		}
		out[q] = resp
	}

	return out, nil
}

// needsPayload implements "drop queries that produce no payload: no
// requested fields, no aggregations, no doc-count" (spec.md §4.7 item 1).
func needsPayload(q *model.DatastoreQuery) bool {
	return q.IndividualDocsNeeded() || len(q.Aggregations()) > 0 || q.TotalDocumentCountNeeded()
}
