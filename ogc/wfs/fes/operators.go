package fes

// NonIdOperator is any of the comparison, spatial or logical predicate
// node kinds from spec §3.
type NonIdOperator interface {
	opNode()
	Tag() Tag
}

// ComparisonOp is the kind of scalar comparison.
type ComparisonOp int

const (
	OpEqualTo ComparisonOp = iota
	OpNotEqualTo
	OpLessThan
	OpGreaterThan
	OpLessThanOrEqualTo
	OpGreaterThanOrEqualTo
)

func (op ComparisonOp) Tag() Tag {
	names := map[ComparisonOp]string{
		OpEqualTo:              "PropertyIsEqualTo",
		OpNotEqualTo:           "PropertyIsNotEqualTo",
		OpLessThan:             "PropertyIsLessThan",
		OpGreaterThan:          "PropertyIsGreaterThan",
		OpLessThanOrEqualTo:    "PropertyIsLessThanOrEqualTo",
		OpGreaterThanOrEqualTo: "PropertyIsGreaterThanOrEqualTo",
	}
	return Tag{FESNamespace, names[op]}
}

// Invert returns the operator obtained by swapping the operand order, used
// when a comparison is written Literal OP ValueReference (spec §4.4).
func (op ComparisonOp) Invert() ComparisonOp {
	switch op {
	case OpLessThan:
		return OpGreaterThan
	case OpGreaterThan:
		return OpLessThan
	case OpLessThanOrEqualTo:
		return OpGreaterThanOrEqualTo
	case OpGreaterThanOrEqualTo:
		return OpLessThanOrEqualTo
	default:
		return op
	}
}

// PropertyIsComparison is a binary scalar comparison between two expressions.
type PropertyIsComparison struct {
	Op          ComparisonOp
	Left, Right Expression
	MatchCase   bool // default true; false only applies to string comparisons
}

func (PropertyIsComparison) opNode() {}
func (c PropertyIsComparison) Tag() Tag { return c.Op.Tag() }

// PropertyIsBetween is a ternary range comparison.
type PropertyIsBetween struct {
	Expr             Expression
	LowerBoundary    Expression
	UpperBoundary    Expression
}

func (PropertyIsBetween) opNode() {}
func (PropertyIsBetween) Tag() Tag { return Tag{FESNamespace, "PropertyIsBetween"} }

// PropertyIsLike is a wildcard string match, per spec §4.4.
type PropertyIsLike struct {
	Expr        Expression
	Pattern     Expression
	WildCard    string
	SingleChar  string
	EscapeChar  string
	MatchCase   bool
}

func (PropertyIsLike) opNode() {}
func (PropertyIsLike) Tag() Tag { return Tag{FESNamespace, "PropertyIsLike"} }

// PropertyIsNil tests for "no value assigned" (spec §3/§4.4: identical to
// PropertyIsNull for scalar fields, "no value present" for unbounded elements).
type PropertyIsNil struct {
	Expr Expression
}

func (PropertyIsNil) opNode() {}
func (PropertyIsNil) Tag() Tag { return Tag{FESNamespace, "PropertyIsNil"} }

// PropertyIsNull tests for SQL NULL.
type PropertyIsNull struct {
	Expr Expression
}

func (PropertyIsNull) opNode() {}
func (PropertyIsNull) Tag() Tag { return Tag{FESNamespace, "PropertyIsNull"} }

// SpatialOp is the kind of binary spatial predicate.
type SpatialOp int

const (
	OpBBOX SpatialOp = iota
	OpIntersects
	OpContains
	OpCrosses
	OpDisjoint
	OpEquals
	OpOverlaps
	OpTouches
	OpWithin
	OpDWithin
	OpBeyond
)

func (op SpatialOp) Tag() Tag {
	names := map[SpatialOp]string{
		OpBBOX: "BBOX", OpIntersects: "Intersects", OpContains: "Contains",
		OpCrosses: "Crosses", OpDisjoint: "Disjoint", OpEquals: "Equals",
		OpOverlaps: "Overlaps", OpTouches: "Touches", OpWithin: "Within",
		OpDWithin: "DWithin", OpBeyond: "Beyond",
	}
	return Tag{FESNamespace, names[op]}
}

// DistanceUnit is the unit a DWithin/Beyond Distance child is expressed in.
type DistanceUnit string

const (
	UnitMeters  DistanceUnit = "meters"
	UnitDegrees DistanceUnit = "degrees"
)

// SpatialPredicate is a binary spatial operator over a property reference
// and a geometry literal (or, for BBOX, an implicit envelope).
type SpatialPredicate struct {
	Op           SpatialOp
	ValueRef     Expression // usually a ValueReference; nil means "the feature's default geometry"
	GeometryExpr Expression // a GeometryLiteral or ValueReference

	// Distance/Unit are set only for DWithin/Beyond.
	Distance float64
	Unit     DistanceUnit
}

func (SpatialPredicate) opNode() {}
func (s SpatialPredicate) Tag() Tag { return s.Op.Tag() }

// GeometryLiteral wraps a parsed GML geometry so it can appear as an
// Expression operand of a spatial predicate.
type GeometryLiteral struct {
	SRSName string
	// Raw carries the already-parsed geometry; the compiler re-derives axis
	// order and CRS from it via the crs package.
	Raw any
}

func (GeometryLiteral) exprNode() {}
func (GeometryLiteral) Tag() Tag  { return Tag{"http://www.opengis.net/gml/3.2", "_Geometry"} }

// LogicalOp is the kind of Boolean combinator.
type LogicalOp int

const (
	OpAnd LogicalOp = iota
	OpOr
	OpNot
)

func (op LogicalOp) Tag() Tag {
	names := map[LogicalOp]string{OpAnd: "And", OpOr: "Or", OpNot: "Not"}
	return Tag{FESNamespace, names[op]}
}

// LogicalPredicate composes one or more child operators. Not takes exactly one.
type LogicalPredicate struct {
	Op       LogicalOp
	Children []NonIdOperator
}

func (LogicalPredicate) opNode() {}
func (l LogicalPredicate) Tag() Tag { return l.Op.Tag() }
