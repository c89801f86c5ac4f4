// Package decoder implements the Response Decoder (spec.md §2 item 9,
// SPEC_FULL.md §4.9): reading raw hits and aggregation buckets back into
// typed shapes using the meta side-channel the Aggregation Planner attached,
// grounded on the teacher's own typed-aggregate switch in
// resolver.go/executor_es.go.
package decoder

import (
	"encoding/json"
	"fmt"
)

// Doc is one decoded document (spec.md §4.9).
type Doc struct {
	ID     string
	Fields map[string]any
}

type rawHit struct {
	ID     string          `json:"_id"`
	Source json.RawMessage `json:"_source"`
}

type rawHits struct {
	Hits struct {
		Hits []rawHit `json:"hits"`
	} `json:"hits"`
}

// DecodeHits decodes hits.hits[]._id/_source into Doc values, honoring
// `_source: false` (ID-only responses carry no _source at all) the same way
// the teacher's parseESResponse does.
func DecodeHits(raw json.RawMessage, requestedFields []string) ([]Doc, error) {
	var parsed rawHits
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("decoder: decoding hits: %w", err)
	}

	docs := make([]Doc, 0, len(parsed.Hits.Hits))
	for _, hit := range parsed.Hits.Hits {
		doc := Doc{ID: hit.ID}
		if len(hit.Source) > 0 {
			fields := map[string]any{}
			if err := json.Unmarshal(hit.Source, &fields); err != nil {
				return nil, fmt.Errorf("decoder: decoding _source for %q: %w", hit.ID, err)
			}
			doc.Fields = fields
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

// SearchFailedError wraps a missing-key batch response (spec.md §4.7 item 4),
// surfaced here too since decoding is often the first place a caller learns
// a response never arrived for one of its queries.
type SearchFailedError struct {
	Query string
}

func (e *SearchFailedError) Error() string {
	return fmt.Sprintf("search failed: no response for query %s", e.Query)
}
