package crs

import (
	"fmt"
	"sync"

	"github.com/go-spatial/geom"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/pdok/go-wfs-server/ogc/wfs/ogcerr"
)

const transformCacheCapacity = 100

// Transform reprojects a geometry already expressed in its source CRS's axis
// order. The concrete implementation (PostGIS/GEOS/GDAL-backed) is an external
// collaborator per spec §1; this package only owns the cache and the seam.
type Transform func(g geom.Geometry) (geom.Geometry, error)

// Reprojector supplies the concrete transforms. In production this is backed
// by the datastore's spatial library (e.g. PostGIS ST_Transform); tests use a
// fake that only knows a handful of fixed SRID pairs.
type Reprojector interface {
	Transform(fromSRID, toSRID int) (Transform, error)
}

type transformKey struct {
	from, to int
}

// TransformCache is the single piece of shared mutable state allowed by spec
// §5: an append-only, mutex-guarded LRU of (from_srid, to_srid) -> Transform.
type TransformCache struct {
	mu           sync.Mutex
	cache        *lru.Cache[transformKey, Transform]
	reprojector  Reprojector
}

// NewTransformCache builds a bounded cache (capacity ~100, per spec §4.1)
// fronting the given Reprojector.
func NewTransformCache(reprojector Reprojector) *TransformCache {
	c, err := lru.New[transformKey, Transform](transformCacheCapacity)
	if err != nil {
		// capacity is a compile-time constant > 0; this can't happen.
		panic(fmt.Sprintf("crs: failed to allocate transform cache: %v", err))
	}
	return &TransformCache{cache: c, reprojector: reprojector}
}

// ApplyTo reprojects g from "from" to "to", driving a cached Transform,
// populating the cache on a miss. Guarded by a coarse mutex: hit rate is
// high and the critical section (map/list bookkeeping) is short.
func (tc *TransformCache) ApplyTo(g Geometry, to *CRS) (Geometry, error) {
	if g.CRS.Equal(to) {
		return g, nil
	}

	key := transformKey{from: g.CRS.SRID(), to: to.SRID()}

	tc.mu.Lock()
	transform, ok := tc.cache.Get(key)
	tc.mu.Unlock()

	if !ok {
		var err error
		transform, err = tc.reprojector.Transform(key.from, key.to)
		if err != nil {
			return Geometry{}, ogcerr.Wrap(ogcerr.ProcessingFailed, "srsName", err)
		}
		tc.mu.Lock()
		tc.cache.Add(key, transform)
		tc.mu.Unlock()
	}

	reprojected, err := transform(g.Geom)
	if err != nil {
		return Geometry{}, ogcerr.Wrap(ogcerr.ProcessingFailed, "srsName", err)
	}
	return Geometry{CRS: to, Geom: reprojected}, nil
}

// Len reports the current number of cached transforms, used by tests to
// assert eviction behaviour.
func (tc *TransformCache) Len() int {
	tc.mu.Lock()
	defer tc.mu.Unlock()
	return tc.cache.Len()
}
