package ast

import (
	"github.com/pdok/go-wfs-server/ogc/wfs/crs"
	"github.com/pdok/go-wfs-server/ogc/wfs/fes"
)

// Query is either an AdhocQuery or a StoredQuery, the two query kinds a
// GetFeature/GetPropertyValue request may combine per spec §3.
type Query interface {
	queryNode()
}

// SortProperty is one <fes:SortProperty> entry.
type SortProperty struct {
	ValueReference string
	Ascending      bool
}

// AdhocQuery is a literal, client-composed query: type names plus an
// optional filter, bbox shortcut, sort, property projection and output CRS.
type AdhocQuery struct {
	TypeNames     []string
	Aliases       []string
	Filter        *fes.Filter
	BBox          *crs.BBox
	SortBy        []SortProperty
	PropertyNames []string // nil means "all properties"
	SRSName       string   // "" means "use the feature type's storage CRS"
}

func (AdhocQuery) queryNode() {}

// StoredQuery invokes a named, pre-registered parameterized query (spec
// §4.8's storedquery registry); WFS-Transactional create/drop of stored
// queries is out of scope.
type StoredQuery struct {
	ID     string
	Params map[string]string
}

func (StoredQuery) queryNode() {}

// ResultType selects between returning features and returning only a match count.
type ResultType int

const (
	ResultResults ResultType = iota
	ResultHits
)

// GetFeatureRequest is the parsed, unified AST for a GetFeature operation,
// regardless of whether it arrived as KVP or XML (spec §4.3).
type GetFeatureRequest struct {
	Queries      []Query
	Count        int // -1 means "unset": the compiler substitutes the configured default page size
	StartIndex   int
	OutputFormat string
	ResultType   ResultType
}

// GetPropertyValueRequest is GetFeature's single-property-projection sibling.
type GetPropertyValueRequest struct {
	GetFeatureRequest
	ValueReference string
}

// DescribeFeatureTypeRequest lists zero or more type names to describe; an
// empty list means "describe every registered feature type".
type DescribeFeatureTypeRequest struct {
	TypeNames    []string
	OutputFormat string
}

// GetCapabilitiesRequest carries the (rarely used) version negotiation and
// section-filtering parameters.
type GetCapabilitiesRequest struct {
	AcceptVersions []string
	Sections       []string
}

// ListStoredQueriesRequest has no parameters.
type ListStoredQueriesRequest struct{}

// DescribeStoredQueriesRequest lists zero or more stored query IDs; empty
// means "describe all".
type DescribeStoredQueriesRequest struct {
	StoredQueryIDs []string
}
