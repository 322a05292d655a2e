package compiler

import (
	"github.com/pdok/go-wfs-server/ogc/wfs/ast"
	"github.com/pdok/go-wfs-server/ogc/wfs/crs"
	"github.com/pdok/go-wfs-server/ogc/wfs/xsd"
)

// CompiledSort is a resolved <fes:SortProperty>.
type CompiledSort struct {
	Node           *xsd.Node
	DataSourcePath string
	Ascending      bool
}

// Projection is the selected element set for a query, per spec §4.5: either
// every field of the feature type, or an explicit subset (always including
// the identity attribute, regardless of whether it was requested).
type Projection struct {
	FeatureType *xsd.FeatureType
	All         bool
	Fields      []*xsd.Node
}

// Includes reports whether n is part of the projection.
func (p *Projection) Includes(n *xsd.Node) bool {
	if p.All {
		return true
	}
	for _, f := range p.Fields {
		if f.Index() == n.Index() {
			return true
		}
	}
	return false
}

// CompiledQuery is the datastore-agnostic result of compiling one
// AdhocQuery/StoredQuery expansion against a single feature type.
type CompiledQuery struct {
	FeatureType *xsd.FeatureType
	Predicate   Predicate // nil means "match all features"
	SortBy      []CompiledSort
	Projection  *Projection
	OutputCRS   *crs.CRS

	Offset     int
	Limit      int
	ResultType ast.ResultType
}
