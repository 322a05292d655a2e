package compiler

import (
	"github.com/pdok/go-wfs-server/ogc/wfs/fes"
)

// Predicate is a compiled boolean node of the query's WHERE clause.
type Predicate interface {
	predicateNode()
}

// Compare is a resolved binary scalar comparison.
type Compare struct {
	Op          fes.ComparisonOp
	Left, Right Expr
	MatchCase   bool
}

func (Compare) predicateNode() {}

// Between is a resolved ternary range comparison.
type Between struct {
	Expr, Lower, Upper Expr
}

func (Between) predicateNode() {}

// Like is a resolved wildcard match.
type Like struct {
	Expr, Pattern                    Expr
	WildCard, SingleChar, EscapeChar string
	MatchCase                        bool
}

func (Like) predicateNode() {}

// IsNull tests a field for absence; Nil records whether the filter was
// PropertyIsNil (true) or PropertyIsNull (false). The SQL renderer emits the
// same "is null" test for both.
type IsNull struct {
	Expr Expr
	Nil  bool
}

func (IsNull) predicateNode() {}

// Spatial is a resolved spatial predicate. When the filter names no
// geometry property (the BBOX KVP parameter, or a single-operand
// BBOX/DWithin), Field is the feature type's default geometry; it is nil only
// when the feature type has no geometry element.
type Spatial struct {
	Op       fes.SpatialOp
	Field    Expr
	Geometry Expr
	Distance float64
	Unit     fes.DistanceUnit
}

func (Spatial) predicateNode() {}

// ResourceIDIn matches one of a fixed set of identity values. IDs are
// already stripped of any type-name prefix the ast package may have kept.
type ResourceIDIn struct {
	IdentityPath string
	IDs          []string
}

func (ResourceIDIn) predicateNode() {}

// And/Or/Not combine child predicates.
type And struct{ Children []Predicate }
type Or struct{ Children []Predicate }
type Not struct{ Child Predicate }

func (And) predicateNode() {}
func (Or) predicateNode()  {}
func (Not) predicateNode() {}
