package crs

import (
	"testing"

	"github.com/go-spatial/geom"
	"github.com/stretchr/testify/assert"
)

func TestSwapXYRoundTrip(t *testing.T) {
	pt := geom.Point{5.1, 52.3}
	swapped := SwapXY(pt).(geom.Point)
	assert.Equal(t, geom.Point{52.3, 5.1}, swapped)

	back := SwapXY(swapped).(geom.Point)
	assert.Equal(t, pt, back)
}

func TestSwapXYLineString(t *testing.T) {
	ls := geom.LineString{{1, 2}, {3, 4}}
	swapped := SwapXY(ls).(geom.LineString)
	assert.Equal(t, geom.LineString{{2, 1}, {4, 3}}, swapped)
}

func TestSwapXYPolygon(t *testing.T) {
	poly := geom.Polygon{{{0, 0}, {0, 1}, {1, 1}, {0, 0}}}
	swapped := SwapXY(poly).(geom.Polygon)
	assert.Equal(t, geom.Polygon{{{0, 0}, {1, 0}, {1, 1}, {0, 0}}}, swapped)
}

func TestTypeOf(t *testing.T) {
	assert.Equal(t, TypePoint, TypeOf(geom.Point{0, 0}))
	assert.Equal(t, TypeMultiPolygon, TypeOf(geom.MultiPolygon{}))
	assert.Equal(t, TypeGeometryCollection, TypeOf(geom.Collection{}))
}
