package filter

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/elastic/go-elasticsearch/v8/typedapi/types"

	"github.com/elasticgraph/querycore/escore"
	"github.com/elasticgraph/querycore/model"
)

// IDFieldPath is the reserved field path addressing a document's own `_id`
// (spec.md §4.2: "Leaf on id with equal_to_any_of uses the ids.values
// primitive").
const IDFieldPath = "id"

// timeOfDayScriptID names the stored script every time_of_day filter
// references. It is a fixed value, not computed per query, because the
// script itself is registered once in the cluster out-of-band (indexer/ops
// concern, out of scope per spec.md §1); the "_<digest>" suffix documents
// which script body version this build expects to find registered.
var timeOfDayScriptID = "filter_by_time_of_day_" + shortDigest("elasticgraph-time-of-day-filter-v1")

func shortDigest(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])[:16]
}

// Interpret walks a normalized FilterNode and emits the datastore filter
// DSL (spec.md §4.2). A nil node means "no filters remain"; callers must
// omit the payload's query key entirely in that case rather than calling
// Interpret.
func Interpret(node model.FilterNode) (*types.Query, error) {
	if node == nil {
		return nil, nil
	}
	switch n := node.(type) {
	case *model.Leaf:
		return interpretLeaf(n)
	case *model.Not:
		inner, err := Interpret(n.Inner)
		if err != nil {
			return nil, err
		}
		return escore.Bool(nil, nil, nil, []types.Query{*inner}, ""), nil
	case *model.AnyOf:
		if len(n.Branches) == 0 {
			// Always-false: the canonical marker, reused by reference
			// (spec.md §4.2, §6).
			return escore.AlwaysFalse(), nil
		}
		should := make([]types.Query, 0, len(n.Branches))
		for _, b := range n.Branches {
			q, err := Interpret(b)
			if err != nil {
				return nil, err
			}
			should = append(should, *q)
		}
		return escore.Bool(nil, nil, should, nil, "1"), nil
	case *model.AllOf:
		return interpretAllOf(n)
	case *model.AnySatisfy:
		inner, err := Interpret(n.Inner)
		if err != nil {
			return nil, err
		}
		return escore.Nested(n.FieldPath, inner), nil
	case *model.ListCount:
		return interpretListCount(n)
	default:
		return nil, fmt.Errorf("filter: unknown FilterNode type %T", node)
	}
}

// interpretAllOf implements the must_not/filter distribution rule: siblings
// that are Not go straight into must_not (using their un-wrapped inner
// query), the rest go into filter (spec.md §4.2).
func interpretAllOf(n *model.AllOf) (*types.Query, error) {
	var mustNot, filterClauses []types.Query
	for _, branch := range n.Branches {
		if not, ok := branch.(*model.Not); ok {
			inner, err := Interpret(not.Inner)
			if err != nil {
				return nil, err
			}
			mustNot = append(mustNot, *inner)
			continue
		}
		q, err := Interpret(branch)
		if err != nil {
			return nil, err
		}
		filterClauses = append(filterClauses, *q)
	}
	return escore.Bool(nil, filterClauses, nil, mustNot, ""), nil
}

func interpretLeaf(leaf *model.Leaf) (*types.Query, error) {
	var clauses, must []types.Query

	if v, ok := leaf.Predicates[model.OpEqualToAnyOf]; ok {
		q, err := interpretEqualToAnyOf(leaf.FieldPath, v)
		if err != nil {
			return nil, err
		}
		clauses = append(clauses, *q)
	}

	if rangeQ := buildRangeQuery(leaf.FieldPath, leaf.Predicates); rangeQ != nil {
		clauses = append(clauses, *rangeQ)
	}

	if v, ok := leaf.Predicates[model.OpMatches]; ok {
		text, _ := v.(string)
		must = append(must, *escore.Match(leaf.FieldPath, text, "", ""))
	}

	if v, ok := leaf.Predicates[model.OpMatchesQuery]; ok {
		q, err := interpretMatchesQuery(leaf.FieldPath, v)
		if err != nil {
			return nil, err
		}
		must = append(must, *q)
	}

	if v, ok := leaf.Predicates[model.OpMatchesPhrase]; ok {
		phrase, _ := v.(string)
		must = append(must, *escore.MatchPhrase(leaf.FieldPath, phrase))
	}

	if v, ok := leaf.Predicates[model.OpNear]; ok {
		q, err := interpretNear(leaf.FieldPath, v)
		if err != nil {
			return nil, err
		}
		clauses = append(clauses, *q)
	}

	if v, ok := leaf.Predicates[model.OpTimeOfDay]; ok {
		q, err := interpretTimeOfDay(leaf.FieldPath, v)
		if err != nil {
			return nil, err
		}
		clauses = append(clauses, *q)
	}

	// Text-matching clauses contribute to scoring, so they go under
	// bool.must; every other clause of the leaf goes under bool.filter.
	if len(must) > 0 {
		return escore.Bool(must, clauses, nil, nil, ""), nil
	}

	switch len(clauses) {
	case 0:
		return nil, fmt.Errorf("filter: leaf on %q produced no clauses", leaf.FieldPath)
	case 1:
		return &clauses[0], nil
	default:
		return escore.Bool(nil, clauses, nil, nil, ""), nil
	}
}

// interpretEqualToAnyOf implements spec.md §4.1 item 4's nil-splitting
// semantics, bit-exact with spec.md §8 scenario 5.
func interpretEqualToAnyOf(fieldPath string, v any) (*types.Query, error) {
	list, _ := v.([]any)

	if fieldPath == IDFieldPath {
		ids := make([]string, 0, len(list))
		for _, item := range list {
			if item == nil {
				continue
			}
			if s, ok := item.(string); ok {
				ids = append(ids, s)
			}
		}
		return escore.Ids(ids), nil
	}

	var hasNil bool
	nonNil := make([]types.FieldValue, 0, len(list))
	for _, item := range list {
		if item == nil {
			hasNil = true
			continue
		}
		nonNil = append(nonNil, item)
	}

	existsClause := escore.Exists(fieldPath)
	isNullQuery := escore.Bool(nil, nil, nil, []types.Query{*escore.Bool(nil, []types.Query{*existsClause}, nil, nil, "")}, "")

	switch {
	case hasNil && len(nonNil) > 0:
		inQuery := escore.Bool(nil, []types.Query{*escore.Terms(fieldPath, nonNil)}, nil, nil, "")
		return escore.Bool(nil, nil, []types.Query{*inQuery, *isNullQuery}, nil, "1"), nil
	case hasNil:
		return isNullQuery, nil
	default:
		return escore.Terms(fieldPath, nonNil), nil
	}
}

// buildRangeQuery dispatches to escore.NumberRange or escore.DateRange
// depending on whether the present bounds parse as numbers or as opaque
// (typically RFC3339) strings, mirroring compareBound's own numeric/date
// dispatch in bounds.go.
func buildRangeQuery(fieldPath string, predicates map[model.Operator]any) *types.Query {
	if len(predicates) == 0 {
		return nil
	}

	bounds := map[model.Operator]any{}
	for _, op := range []model.Operator{model.OpGT, model.OpGTE, model.OpLT, model.OpLTE} {
		if v, ok := predicates[op]; ok {
			bounds[op] = v
		}
	}
	if len(bounds) == 0 {
		return nil
	}

	if allNumeric(bounds) {
		var gt, gte, lt, lte *float64
		if v, ok := bounds[model.OpGT]; ok {
			f, _ := asFloat(v)
			gt = &f
		}
		if v, ok := bounds[model.OpGTE]; ok {
			f, _ := asFloat(v)
			gte = &f
		}
		if v, ok := bounds[model.OpLT]; ok {
			f, _ := asFloat(v)
			lt = &f
		}
		if v, ok := bounds[model.OpLTE]; ok {
			f, _ := asFloat(v)
			lte = &f
		}
		return escore.NumberRange(fieldPath, gt, gte, lt, lte)
	}

	var gt, gte, lt, lte *string
	if v, ok := bounds[model.OpGT]; ok {
		s := fmt.Sprintf("%v", v)
		gt = &s
	}
	if v, ok := bounds[model.OpGTE]; ok {
		s := fmt.Sprintf("%v", v)
		gte = &s
	}
	if v, ok := bounds[model.OpLT]; ok {
		s := fmt.Sprintf("%v", v)
		lt = &s
	}
	if v, ok := bounds[model.OpLTE]; ok {
		s := fmt.Sprintf("%v", v)
		lte = &s
	}
	return escore.DateRange(fieldPath, gt, gte, lt, lte)
}

func allNumeric(bounds map[model.Operator]any) bool {
	for _, v := range bounds {
		if _, ok := asFloat(v); !ok {
			return false
		}
	}
	return true
}

func interpretMatchesQuery(fieldPath string, v any) (*types.Query, error) {
	m, ok := v.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("filter: matches_query on %q requires an object value", fieldPath)
	}
	text, _ := m["query"].(string)
	fuzz, _ := m["fuzziness"].(string)
	op, _ := m["operator"].(string)
	return escore.Match(fieldPath, text, fuzz, op), nil
}

func interpretNear(fieldPath string, v any) (*types.Query, error) {
	m, ok := v.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("filter: near on %q requires an object value", fieldPath)
	}
	lat, _ := asFloat(m["latitude"])
	lon, _ := asFloat(m["longitude"])
	distance, _ := asFloat(m["distance"])
	unit, _ := m["unit"].(string)
	abbrev, ok := model.DistanceUnitAbbreviation(model.DistanceUnit(unit))
	if !ok {
		return nil, fmt.Errorf("filter: near on %q has unrecognized distance unit %q", fieldPath, unit)
	}
	distanceStr := fmt.Sprintf("%v%s", distance, abbrev)
	return escore.GeoDistance(fieldPath, distanceStr, lat, lon), nil
}

// timeOfDayLayouts are tried in order when parsing a time-of-day string.
var timeOfDayLayouts = []string{"15:04:05.999999999", "15:04:05", "15:04"}

func parseTimeOfDayNanos(s string) (int64, error) {
	for _, layout := range timeOfDayLayouts {
		t, err := time.Parse(layout, s)
		if err == nil {
			return int64(t.Hour())*int64(time.Hour) +
				int64(t.Minute())*int64(time.Minute) +
				int64(t.Second())*int64(time.Second) +
				int64(t.Nanosecond()), nil
		}
	}
	return 0, fmt.Errorf("filter: %q is not a recognized time-of-day value", s)
}

func interpretTimeOfDay(fieldPath string, v any) (*types.Query, error) {
	m, ok := v.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("filter: time_of_day on %q requires an object value", fieldPath)
	}

	params := map[string]any{"field": fieldPath}
	for _, op := range []model.Operator{model.OpGT, model.OpGTE, model.OpLT, model.OpLTE} {
		raw, ok := m[string(op)]
		if !ok || raw == nil {
			continue
		}
		s, ok := raw.(string)
		if !ok {
			return nil, fmt.Errorf("filter: time_of_day.%s on %q must be a string", op, fieldPath)
		}
		nanos, err := parseTimeOfDayNanos(s)
		if err != nil {
			return nil, err
		}
		params[string(op)] = nanos
	}
	if rawList, ok := m[string(model.OpEqualToAnyOf)]; ok {
		list, _ := rawList.([]any)
		nanos := make([]any, 0, len(list))
		for _, item := range list {
			s, ok := item.(string)
			if !ok {
				continue
			}
			n, err := parseTimeOfDayNanos(s)
			if err != nil {
				return nil, err
			}
			nanos = append(nanos, n)
		}
		params[string(model.OpEqualToAnyOf)] = nanos
	}
	if tz, ok := m["time_zone"].(string); ok && tz != "" {
		params["time_zone"] = tz
	} else {
		params["time_zone"] = model.DefaultTimeZone
	}

	return escore.Script(timeOfDayScriptID, params), nil
}

// interpretListCount implements spec.md §4.1 item 7 / §4.2: a count filter
// addresses the synthetic __counts sibling field, and when the admissible
// range includes zero, also matches documents indexed before the counts
// feature existed (which lack the __counts subfield entirely).
func interpretListCount(lc *model.ListCount) (*types.Query, error) {
	countsField := model.CountsFieldFor(lc.FieldPath)
	rangeQ := buildRangeQuery(countsField, lc.Predicates)
	if rangeQ == nil {
		return nil, fmt.Errorf("filter: count on %q produced no range clause", lc.FieldPath)
	}
	if !predicateAdmitsZero(lc.Predicates) {
		return rangeQ, nil
	}
	missingClause := escore.Bool(nil, nil, nil, []types.Query{*escore.Exists(countsField)}, "")
	return escore.Bool(nil, nil, []types.Query{*rangeQ, *missingClause}, nil, "1"), nil
}

// predicateAdmitsZero reports whether 0 satisfies every range bound present
// in predicates (spec.md §4.1 item 7).
func predicateAdmitsZero(predicates map[model.Operator]any) bool {
	if v, ok := predicates[model.OpGT]; ok {
		if f, ok := asFloat(v); ok && !(0 > f) {
			return false
		}
	}
	if v, ok := predicates[model.OpGTE]; ok {
		if f, ok := asFloat(v); ok && !(0 >= f) {
			return false
		}
	}
	if v, ok := predicates[model.OpLT]; ok {
		if f, ok := asFloat(v); ok && !(0 < f) {
			return false
		}
	}
	if v, ok := predicates[model.OpLTE]; ok {
		if f, ok := asFloat(v); ok && !(0 <= f) {
			return false
		}
	}
	return true
}
