package crs

import (
	"fmt"
	"testing"

	"github.com/go-spatial/geom"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeReprojector struct {
	calls int
}

func (f *fakeReprojector) Transform(fromSRID, toSRID int) (Transform, error) {
	f.calls++
	if fromSRID == 0 {
		return nil, fmt.Errorf("unsupported source SRID")
	}
	return func(g geom.Geometry) (geom.Geometry, error) {
		return g, nil
	}, nil
}

func TestTransformCacheHitsAndMisses(t *testing.T) {
	reprojector := &fakeReprojector{}
	cache := NewTransformCache(reprojector)

	g := Geometry{CRS: New("EPSG", 28992), Geom: geom.Point{1, 2}}
	target := New("EPSG", 4326)

	_, err := cache.ApplyTo(g, target)
	require.NoError(t, err)
	_, err = cache.ApplyTo(g, target)
	require.NoError(t, err)

	assert.Equal(t, 1, reprojector.calls, "second call should hit the cache")
	assert.Equal(t, 1, cache.Len())
}

func TestTransformCacheSameCRSIsNoop(t *testing.T) {
	cache := NewTransformCache(&fakeReprojector{})
	c := New("EPSG", 28992)
	g := Geometry{CRS: c, Geom: geom.Point{1, 2}}

	out, err := cache.ApplyTo(g, c)
	require.NoError(t, err)
	assert.Equal(t, g, out)
	assert.Equal(t, 0, cache.Len())
}

func TestTransformCacheError(t *testing.T) {
	cache := NewTransformCache(&fakeReprojector{})
	g := Geometry{CRS: New("EPSG", 0), Geom: geom.Point{1, 2}}
	_, err := cache.ApplyTo(g, New("EPSG", 4326))
	require.Error(t, err)
}
