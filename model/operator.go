// Package model defines the core value types of the query compiler: the
// filter AST, aggregation request shapes, and the DatastoreQuery aggregate
// root. Everything here is an immutable value object; mutation always
// produces a new value.
package model

// Operator is a filter predicate operator recognized by the normalizer.
// Which operators are legal for a given scalar is documented by the schema
// catalog, not here; the normalizer only needs to know the operator's shape.
type Operator string

const (
	OpEqualToAnyOf  Operator = "equal_to_any_of"
	OpGT            Operator = "gt"
	OpGTE           Operator = "gte"
	OpLT            Operator = "lt"
	OpLTE           Operator = "lte"
	OpMatches       Operator = "matches"
	OpMatchesQuery  Operator = "matches_query"
	OpMatchesPhrase Operator = "matches_phrase"
	OpNear          Operator = "near"
	OpTimeOfDay     Operator = "time_of_day"
	OpAnySatisfy    Operator = "any_satisfy"
	OpAllOf         Operator = "all_of"
	OpAnyOf         Operator = "any_of"
	OpNot           Operator = "not"
	OpCount         Operator = "count"
)

// rangeOperators are the four bound operators that collapse per §4.1 item 6.
var rangeOperators = map[Operator]bool{
	OpGT: true, OpGTE: true, OpLT: true, OpLTE: true,
}

// IsRangeOperator reports whether op is one of gt/gte/lt/lte.
func IsRangeOperator(op Operator) bool {
	return rangeOperators[op]
}

// DistanceUnit is a unit of measure accepted by the `near` operator.
type DistanceUnit string

const (
	UnitMile         DistanceUnit = "MILE"
	UnitYard         DistanceUnit = "YARD"
	UnitFoot         DistanceUnit = "FOOT"
	UnitInch         DistanceUnit = "INCH"
	UnitKilometer    DistanceUnit = "KILOMETER"
	UnitMeter        DistanceUnit = "METER"
	UnitCentimeter   DistanceUnit = "CENTIMETER"
	UnitMillimeter   DistanceUnit = "MILLIMETER"
	UnitNauticalMile DistanceUnit = "NAUTICAL_MILE"
)

// distanceAbbreviations is the table from spec.md §6.
var distanceAbbreviations = map[DistanceUnit]string{
	UnitMile:         "mi",
	UnitYard:         "yd",
	UnitFoot:         "ft",
	UnitInch:         "in",
	UnitKilometer:    "km",
	UnitMeter:        "m",
	UnitCentimeter:   "cm",
	UnitMillimeter:   "mm",
	UnitNauticalMile: "nmi",
}

// DistanceUnitAbbreviation returns the wire abbreviation for a distance unit,
// and false if the unit is unrecognized.
func DistanceUnitAbbreviation(u DistanceUnit) (string, bool) {
	v, ok := distanceAbbreviations[u]
	return v, ok
}

// AggregateFunction is one of the five supported numeric aggregate functions.
type AggregateFunction string

const (
	FuncSum         AggregateFunction = "sum"
	FuncAvg         AggregateFunction = "avg"
	FuncMin         AggregateFunction = "min"
	FuncMax         AggregateFunction = "max"
	FuncCardinality AggregateFunction = "cardinality"
)

// SortDirection is the direction of a sort clause.
type SortDirection string

const (
	SortAsc  SortDirection = "asc"
	SortDesc SortDirection = "desc"
)

// MissingPosition controls where documents lacking the sorted field land.
type MissingPosition string

const (
	MissingFirst MissingPosition = "_first"
	MissingLast  MissingPosition = "_last"
)

// MissingForDirection returns the missing-bucket position implied by a sort
// direction: ascending sorts missing values first, descending sorts them
// last (spec.md §3, SortClause).
func MissingForDirection(dir SortDirection) MissingPosition {
	if dir == SortDesc {
		return MissingLast
	}
	return MissingFirst
}
