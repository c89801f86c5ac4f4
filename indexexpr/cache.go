package indexexpr

import "context"

// RequestCache memoizes Lister.List by pattern for its own lifetime: each
// pattern is listed at most once per RequestCache instance, so callers that
// share one instance across the DatastoreQuery values of a request list each
// pattern once for the whole request.
type RequestCache struct {
	lister Lister
	seen   map[string][]string
}

func NewRequestCache(lister Lister) *RequestCache {
	return &RequestCache{lister: lister, seen: map[string][]string{}}
}

func (c *RequestCache) List(ctx context.Context, pattern string) ([]string, error) {
	if names, ok := c.seen[pattern]; ok {
		return names, nil
	}
	names, err := c.lister.List(ctx, pattern)
	if err != nil {
		return nil, err
	}
	c.seen[pattern] = names
	return names, nil
}
