package filter

import (
	"sort"

	"github.com/elasticgraph/querycore/model"
	"go.uber.org/zap"
)

// leafOperators are the keys that, when present in a field's predicate map,
// mark it as a leaf rather than a further object-subfield traversal
// (spec.md §4.1 item 2).
var leafOperators = map[string]model.Operator{
	string(model.OpEqualToAnyOf):  model.OpEqualToAnyOf,
	string(model.OpGT):            model.OpGT,
	string(model.OpGTE):           model.OpGTE,
	string(model.OpLT):            model.OpLT,
	string(model.OpLTE):           model.OpLTE,
	string(model.OpMatches):       model.OpMatches,
	string(model.OpMatchesQuery):  model.OpMatchesQuery,
	string(model.OpMatchesPhrase): model.OpMatchesPhrase,
	string(model.OpNear):          model.OpNear,
	string(model.OpTimeOfDay):     model.OpTimeOfDay,
}

const (
	keyAnySatisfy = "any_satisfy"
	keyCount      = "count"
	keyAnyOf      = "any_of"
	keyAllOf      = "all_of"
	keyNot        = "not"
)

// Normalizer converts the untyped filter map produced by the GraphQL layer
// into a canonical model.FilterNode tree (spec.md §4.1).
type Normalizer struct {
	schema Schema
	logger *zap.Logger
}

func NewNormalizer(schema Schema, logger *zap.Logger) *Normalizer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Normalizer{schema: schema, logger: logger}
}

// Normalize converts raw into a FilterNode, or nil if raw is empty/no-op.
func (n *Normalizer) Normalize(raw map[string]any) (model.FilterNode, error) {
	return n.normalizeNode("", raw)
}

// normalizeNode handles one map level: combinators (any_of/all_of/not) and
// field keys are all siblings contributing branches to an implicit AllOf
// (spec.md §4.1 item 1).
func (n *Normalizer) normalizeNode(path string, node map[string]any) (model.FilterNode, error) {
	if len(node) == 0 {
		return nil, nil
	}

	keys := make([]string, 0, len(node))
	for k := range node {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var branches []model.FilterNode
	for _, key := range keys {
		val := node[key]
		var (
			branch model.FilterNode
			err    error
		)
		switch key {
		case keyAnyOf:
			branch, err = n.normalizeAnyOf(path, val)
		case keyAllOf:
			branch, err = n.normalizeAllOf(path, val)
		case keyNot:
			branch, err = n.normalizeNot(path, val)
		default:
			branch, err = n.normalizeField(joinPath(path, key), val)
		}
		if err != nil {
			return nil, err
		}
		if branch != nil && !model.IsNoop(branch) {
			branches = append(branches, branch)
		}
	}

	return collapseAllOf(branches), nil
}

// collapseAllOf implements the no-op/single-branch collapsing that keeps
// the tree from accumulating meaningless wrapper nodes.
func collapseAllOf(branches []model.FilterNode) model.FilterNode {
	switch len(branches) {
	case 0:
		return nil
	case 1:
		return branches[0]
	default:
		return &model.AllOf{Branches: branches}
	}
}

func (n *Normalizer) normalizeAnyOf(path string, val any) (model.FilterNode, error) {
	list, ok := asList(val)
	if !ok {
		n.logger.Warn("filter: any_of value was not a list, ignoring", zap.String("path", path))
		return nil, nil
	}
	if len(list) == 0 {
		// any_of: [] is the always-false filter (spec.md §4.1 item 4).
		return model.AlwaysFalse(), nil
	}

	branches := make([]model.FilterNode, 0, len(list))
	for _, item := range list {
		sub, ok := asMap(item)
		if !ok {
			n.logger.Warn("filter: any_of branch was not a map, ignoring", zap.String("path", path))
			continue
		}
		node, err := n.normalizeNode(path, sub)
		if err != nil {
			return nil, err
		}
		if node == nil {
			// A no-op branch inside any_of contributes "always true", which
			// widens the whole disjunction to always-true. Since always-true
			// has no canonical marker, represent it by omitting the any_of
			// wrapper entirely (no filter node at all).
			return nil, nil
		}
		branches = append(branches, node)
	}
	if len(branches) == 0 {
		return model.AlwaysFalse(), nil
	}
	// any_of: [x] reduces to x semantically; wrapping in a single-branch
	// AnyOf preserves the observable shape without changing behavior.
	return &model.AnyOf{Branches: branches}, nil
}

func (n *Normalizer) normalizeAllOf(path string, val any) (model.FilterNode, error) {
	list, ok := asList(val)
	if !ok {
		if val == nil {
			return nil, nil
		}
		n.logger.Warn("filter: all_of value was not a list, ignoring", zap.String("path", path))
		return nil, nil
	}
	if len(list) == 0 {
		// all_of: [] / all_of: null is a no-op (spec.md §4.1 item 4).
		return nil, nil
	}

	var branches []model.FilterNode
	for _, item := range list {
		sub, ok := asMap(item)
		if !ok {
			n.logger.Warn("filter: all_of branch was not a map, ignoring", zap.String("path", path))
			continue
		}
		node, err := n.normalizeNode(path, sub)
		if err != nil {
			return nil, err
		}
		if node != nil && !model.IsNoop(node) {
			branches = append(branches, node)
		}
	}
	return collapseAllOf(branches), nil
}

func (n *Normalizer) normalizeNot(path string, val any) (model.FilterNode, error) {
	if val == nil {
		// not: null is always-false (spec.md §4.1 item 4).
		return model.AlwaysFalse(), nil
	}
	inner, ok := asMap(val)
	if !ok {
		n.logger.Warn("filter: not value was not a map, ignoring", zap.String("path", path))
		return nil, nil
	}
	if len(inner) == 0 {
		// not: {} is always-false (spec.md §4.1 item 4).
		return model.AlwaysFalse(), nil
	}

	innerNode, err := n.normalizeNode(path, inner)
	if err != nil {
		return nil, err
	}
	if innerNode == nil {
		// Not of a no-op (identity for AND, i.e. always-true) is always-false.
		return model.AlwaysFalse(), nil
	}
	// Not(Not(x)) ≡ x (spec.md §4.1 item 4).
	if not, ok := innerNode.(*model.Not); ok {
		return not.Inner, nil
	}
	return &model.Not{Inner: innerNode}, nil
}

// normalizeField handles one field key's predicate map: either it contains
// recognized leaf operators (a Leaf/AnySatisfy/ListCount terminal), or it
// contains none and is pure object-subfield traversal, dot-joined into a
// deeper field path (spec.md §4.1 item 2).
func (n *Normalizer) normalizeField(fieldPath string, val any) (model.FilterNode, error) {
	predMap, ok := asMap(val)
	if !ok {
		n.logger.Warn("filter: malformed filter subtree, ignoring", zap.String("path", fieldPath))
		return nil, nil
	}
	if len(predMap) == 0 {
		return nil, nil
	}

	if !hasAnyLeafShape(predMap) {
		// Pure object-subfield traversal: recurse with the extended path.
		return n.normalizeNode(fieldPath, predMap)
	}

	var branches []model.FilterNode
	predicates := map[model.Operator]any{}

	keys := make([]string, 0, len(predMap))
	for k := range predMap {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, key := range keys {
		val := predMap[key]
		switch key {
		case keyAnySatisfy:
			branch, err := n.normalizeAnySatisfy(fieldPath, val)
			if err != nil {
				return nil, err
			}
			if branch != nil {
				branches = append(branches, branch)
			}
		case keyCount:
			branch, err := n.normalizeCount(fieldPath, val)
			if err != nil {
				return nil, err
			}
			if branch != nil {
				branches = append(branches, branch)
			}
		default:
			op, known := leafOperators[key]
			if !known {
				// Unknown operators are ignored, logged at warn (spec.md
				// §4.1 item 3).
				n.logger.Warn("filter: unknown operator ignored",
					zap.String("path", fieldPath), zap.String("operator", key))
				continue
			}
			if val == nil {
				// op -> null is absent/no-op (spec.md §4.1 item 4).
				continue
			}
			predicates[op] = val
		}
	}

	leaf := buildLeaf(fieldPath, predicates)
	if leaf != nil {
		branches = append(branches, leaf)
	}
	return collapseAllOf(branches), nil
}

// buildLeaf applies range-collapse and equal_to_any_of always-false/no-op
// rules (spec.md §4.1 items 4 and 6), returning nil if nothing survives.
func buildLeaf(fieldPath string, predicates map[model.Operator]any) model.FilterNode {
	if len(predicates) == 0 {
		return nil
	}

	collapseRangeBounds(predicates)

	if vs, ok := predicates[model.OpEqualToAnyOf]; ok {
		list, _ := asList(vs)
		if len(list) == 0 {
			// equal_to_any_of: [] is always-false (spec.md §4.1 item 4).
			return model.AlwaysFalse()
		}
	}

	return &model.Leaf{FieldPath: fieldPath, Predicates: predicates}
}

// collapseRangeBounds implements: both gt/gte present -> larger (tighter)
// bound wins; both lt/lte present -> smaller (tighter) bound wins
// (spec.md §4.1 item 6). Comparison is done via compareBound, which
// understands numbers and strings (RFC3339 timestamps are parsed and compared
// as instants; other strings lexicographically), and falls back to leaving both bounds
// in place if the values aren't comparable.
func collapseRangeBounds(predicates map[model.Operator]any) {
	if gt, hasGt := predicates[model.OpGT]; hasGt {
		if gte, hasGte := predicates[model.OpGTE]; hasGte {
			if cmp, ok := compareBound(gt, gte); ok {
				if cmp >= 0 {
					delete(predicates, model.OpGTE)
				} else {
					delete(predicates, model.OpGT)
				}
			}
		}
	}
	if lt, hasLt := predicates[model.OpLT]; hasLt {
		if lte, hasLte := predicates[model.OpLTE]; hasLte {
			if cmp, ok := compareBound(lt, lte); ok {
				if cmp <= 0 {
					delete(predicates, model.OpLTE)
				} else {
					delete(predicates, model.OpLT)
				}
			}
		}
	}
}

// normalizeAnySatisfy implements spec.md §4.1 item 5.
func (n *Normalizer) normalizeAnySatisfy(fieldPath string, val any) (model.FilterNode, error) {
	inner, ok := asMap(val)
	if !ok || len(inner) == 0 {
		return nil, nil
	}

	kind := n.schema.ListKind(fieldPath)
	if kind == NestedList {
		innerNode, err := n.normalizeNode(fieldPath, inner)
		if err != nil {
			return nil, err
		}
		if innerNode == nil {
			return nil, nil
		}
		return &model.AnySatisfy{FieldPath: fieldPath, Inner: innerNode}, nil
	}

	// ScalarList, ObjectList, and the unclassified default all reduce
	// any_satisfy to its inner filter, because the store's default list
	// matching already provides "any element satisfies" semantics.
	if _, hasAnyOf := inner[keyAnyOf]; !hasAnyOf && len(inner) > 1 {
		return nil, &model.UserInputError{
			FieldPath: fieldPath,
			Reason:    "any_satisfy on a list-of-scalars supports a single clause or any_of, not multiple sibling clauses",
		}
	}
	return n.normalizeNode(fieldPath, inner)
}

// normalizeCount implements spec.md §4.1 item 7: the FilterNode produced
// here only carries the raw (already range-collapsed) predicates; the
// Filter Interpreter decides whether the admissible range includes zero and
// emits the __counts-missing fallback clause accordingly.
func (n *Normalizer) normalizeCount(fieldPath string, val any) (model.FilterNode, error) {
	predMap, ok := asMap(val)
	if !ok || len(predMap) == 0 {
		return nil, nil
	}

	predicates := map[model.Operator]any{}
	for key, v := range predMap {
		op, known := leafOperators[key]
		if !known || !model.IsRangeOperator(op) {
			if known {
				n.logger.Warn("filter: count only supports range operators, ignoring",
					zap.String("path", fieldPath), zap.String("operator", key))
			}
			continue
		}
		if v == nil {
			continue
		}
		predicates[op] = v
	}
	collapseRangeBounds(predicates)
	if len(predicates) == 0 {
		return nil, nil
	}
	return &model.ListCount{FieldPath: fieldPath, Predicates: predicates}, nil
}

func hasAnyLeafShape(predMap map[string]any) bool {
	if _, ok := predMap[keyAnySatisfy]; ok {
		return true
	}
	if _, ok := predMap[keyCount]; ok {
		return true
	}
	for key := range predMap {
		if _, known := leafOperators[key]; known {
			return true
		}
	}
	return false
}

func joinPath(parent, child string) string {
	if parent == "" {
		return child
	}
	return parent + "." + child
}

func asMap(v any) (map[string]any, bool) {
	m, ok := v.(map[string]any)
	return m, ok
}

func asList(v any) ([]any, bool) {
	if v == nil {
		return nil, false
	}
	l, ok := v.([]any)
	return l, ok
}
