// Package domain holds the in-memory feature/feature-collection model that
// sits between a datastore backend and the renderers, plus cursor-based
// pagination, per spec §3 "Feature"/"FeatureCollection" and §4.6.
package domain

import (
	"time"

	"github.com/pdok/go-wfs-server/ogc/wfs/crs"
	"github.com/pdok/go-wfs-server/ogc/wfs/xsd"
)

// Feature is one retrieved record, already shaped against its feature
// type's schema graph: scalar properties keyed by local field name,
// geometry properties kept typed (not pre-serialized), and an optional
// gml:name.
type Feature struct {
	ID       string
	TypeName xsd.QName
	Name     string

	Properties map[string]any
	Geometries map[string]*crs.Geometry
	BoundedBy  *crs.BBox
}

// CountPolicy controls whether/when FeatureCollection.NumberMatched is
// computed, per spec §4.6: an accurate count usually costs a second query,
// so it is opt-in rather than unconditional.
type CountPolicy int

const (
	CountNever CountPolicy = iota
	CountAlways
	CountFirstPageOnly
)

// FeatureCollection is the result of executing one CompiledQuery.
type FeatureCollection struct {
	TypeName xsd.QName
	Features []*Feature

	// NumberMatched is nil when CountPolicy decided not to compute it.
	NumberMatched  *int
	NumberReturned int

	TimeStamp time.Time
	Cursors   Cursors
}

// SimpleFeatureCollection is a GetPropertyValue/GML-simple-content result:
// one selected scalar or geometry value per matched feature, keyed by the
// requesting ValueReference rather than the full property set.
type SimpleFeatureCollection struct {
	ValueReference string
	Values         []any
	NumberReturned int
	Cursors        Cursors
}
