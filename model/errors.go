package model

import "fmt"

// ConfigError reports a problem with schema references or cross-query
// configuration discovered at construction or merge time (spec.md §7).
type ConfigError struct {
	Reason string
	Cause  error
}

func (e *ConfigError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("config error: %s: %v", e.Reason, e.Cause)
	}
	return fmt.Sprintf("config error: %s", e.Reason)
}

func (e *ConfigError) Unwrap() error { return e.Cause }

// InvalidMergeError reports that two DatastoreQuery values could not be
// merged because their search_index_definitions disagree (spec.md §7).
type InvalidMergeError struct {
	LeftIndices  []string
	RightIndices []string
}

func (e *InvalidMergeError) Error() string {
	return fmt.Sprintf(
		"cannot merge queries targeting different indices: %v vs %v",
		e.LeftIndices, e.RightIndices,
	)
}

// UserInputError reports a client-supplied filter that the normalizer
// cannot safely compile — e.g. multiple sibling clauses under any_satisfy on
// a list-of-scalars field (spec.md §4.1 item 5, §7).
type UserInputError struct {
	FieldPath string
	Reason    string
}

func (e *UserInputError) Error() string {
	return fmt.Sprintf("invalid filter on %q: %s", e.FieldPath, e.Reason)
}
