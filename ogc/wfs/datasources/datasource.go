// Package datasources defines the Datastore seam a query compiles against,
// and the predicate/ordering/annotation compiler target each concrete
// backend (geopackage, postgis) implements, per spec §4.6 and design
// notes §9.
package datasources

import (
	"context"

	"github.com/pdok/go-wfs-server/ogc/wfs/compiler"
	"github.com/pdok/go-wfs-server/ogc/wfs/domain"
	"github.com/pdok/go-wfs-server/ogc/wfs/xsd"
)

// Datastore holds all the features for every registered feature type.
type Datastore interface {
	// GetFeatures executes a compiled query and returns a page of Features
	// plus pagination cursors.
	GetFeatures(ctx context.Context, ft *xsd.FeatureType, options FeatureOptions) (*domain.FeatureCollection, error)

	// GetFeatureByID returns a single Feature by its identity value, or nil
	// if none matches. Backs the built-in GetFeatureById stored query.
	GetFeatureByID(ctx context.Context, ft *xsd.FeatureType, id string) (*domain.Feature, error)

	// Close releases connections to the datastore gracefully.
	Close()
}

// FeatureOptions carries a compiled query's execution-relevant fields; it
// deliberately excludes FeatureType (passed alongside) and OutputCRS-only
// metadata the renderer, not the datastore, consumes.
type FeatureOptions struct {
	Cursor domain.DecodedCursor
	Limit  int

	Predicate  compiler.Predicate
	SortBy     []compiler.CompiledSort
	Projection *compiler.Projection

	CountPolicy domain.CountPolicy
}

// FromCompiledQuery adapts a compiler.CompiledQuery plus a decoded cursor
// into the options a Datastore executes against.
func FromCompiledQuery(cq *compiler.CompiledQuery, cursor domain.DecodedCursor, countPolicy domain.CountPolicy) FeatureOptions {
	return FeatureOptions{
		Cursor:      cursor,
		Limit:       cq.Limit,
		Predicate:   cq.Predicate,
		SortBy:      cq.SortBy,
		Projection:  cq.Projection,
		CountPolicy: countPolicy,
	}
}
