package model

// TypeKind identifies the kind of a resolved schema type.
type TypeKind string

const (
	KindScalar    TypeKind = "scalar"
	KindEnum      TypeKind = "enum"
	KindObject    TypeKind = "object"
	KindUnion     TypeKind = "union"
	KindInterface TypeKind = "interface"
)

// TypeRef is a reference to a schema type by name with list/non-null
// wrappers, resolvable to a concrete Type via the schema catalog.
type TypeRef struct {
	Name     string
	List     bool
	NonNull  bool
	ListItemNonNull bool
}

// Type is a resolved schema type (spec.md §3, TypeRef "can be resolved to a
// concrete Type").
type Type struct {
	Name string
	Kind TypeKind
}

// RolloverConfig describes a time-partitioned index family: the timestamp
// field driving bucket placement and the bucket granularity.
type RolloverConfig struct {
	Granularity         RolloverGranularity
	TimestampFieldPath  string
}

// RolloverGranularity is the time bucket size of a rollover index family.
type RolloverGranularity string

const (
	GranularityDay   RolloverGranularity = "day"
	GranularityMonth RolloverGranularity = "month"
	GranularityYear  RolloverGranularity = "year"
)

// IndexDefinition describes one logical index (spec.md §3). Two definitions
// are compatible for merge iff Name is equal — see Equal.
type IndexDefinition struct {
	Name                        string
	ClusterToQuery              string
	RouteWithFieldPath          string // empty means "no routing field"
	Rollover                    *RolloverConfig
	IgnoredRoutingValues        map[string]struct{}
	SearchIndexExpressionTemplate string
}

// HasRouting reports whether this index defines a routing field.
func (d IndexDefinition) HasRouting() bool {
	return d.RouteWithFieldPath != ""
}

// Equal reports whether d and other identify the same logical index
// ("compatible for merge iff their identifiers are equal", spec.md §3).
func (d IndexDefinition) Equal(other IndexDefinition) bool {
	return d.Name == other.Name
}
