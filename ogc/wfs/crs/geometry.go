package crs

import (
	"fmt"

	"github.com/go-spatial/geom"
)

// Geometry pairs a go-spatial/geom.Geometry with the CRS its coordinates are
// expressed in. Per spec §3's invariant, coordinates are always stored in
// the axis order of CRS; SwapAxis is only ever applied at parse/emit time.
type Geometry struct {
	CRS *CRS
	Geom geom.Geometry
}

// GeometryType names the tagged variant kinds listed in spec §3.
type GeometryType string

const (
	TypePoint              GeometryType = "Point"
	TypeLineString         GeometryType = "LineString"
	TypeLinearRing         GeometryType = "LinearRing"
	TypePolygon            GeometryType = "Polygon"
	TypeMultiPoint         GeometryType = "MultiPoint"
	TypeMultiLineString    GeometryType = "MultiLineString"
	TypeMultiPolygon       GeometryType = "MultiPolygon"
	TypeGeometryCollection GeometryType = "GeometryCollection"
)

// TypeOf returns the tagged variant kind of g.
func TypeOf(g geom.Geometry) GeometryType {
	switch g.(type) {
	case geom.Point, *geom.Point:
		return TypePoint
	case geom.LineString, *geom.LineString:
		return TypeLineString
	case geom.LinearRing, *geom.LinearRing:
		return TypeLinearRing
	case geom.Polygon, *geom.Polygon:
		return TypePolygon
	case geom.MultiPoint, *geom.MultiPoint:
		return TypeMultiPoint
	case geom.MultiLineString, *geom.MultiLineString:
		return TypeMultiLineString
	case geom.MultiPolygon, *geom.MultiPolygon:
		return TypeMultiPolygon
	case geom.Collection, *geom.Collection:
		return TypeGeometryCollection
	default:
		return ""
	}
}

// SwapXY recursively swaps the two ordinates of every coordinate pair in g.
// Used exactly twice: on parse, to turn incoming y/x (lat/lon) coordinates
// into the CRS's stored axis order, and on emit, to turn stored coordinates
// back into the order the client asked for.
func SwapXY(g geom.Geometry) geom.Geometry {
	switch v := g.(type) {
	case geom.Point:
		return geom.Point{v[1], v[0]}
	case *geom.Point:
		return &geom.Point{v[1], v[0]}
	case geom.MultiPoint:
		return geom.MultiPoint(swapCoords(v))
	case *geom.MultiPoint:
		r := geom.MultiPoint(swapCoords(*v))
		return &r
	case geom.LineString:
		return geom.LineString(swapCoords(v))
	case *geom.LineString:
		r := geom.LineString(swapCoords(*v))
		return &r
	case geom.LinearRing:
		return geom.LinearRing(swapCoords(v))
	case *geom.LinearRing:
		r := geom.LinearRing(swapCoords(*v))
		return &r
	case geom.MultiLineString:
		out := make(geom.MultiLineString, len(v))
		for i, ls := range v {
			out[i] = swapCoords(ls)
		}
		return out
	case *geom.MultiLineString:
		out := geom.MultiLineString(make([][][2]float64, len(*v)))
		for i, ls := range *v {
			out[i] = swapCoords(ls)
		}
		return &out
	case geom.Polygon:
		out := make(geom.Polygon, len(v))
		for i, ring := range v {
			out[i] = swapCoords(ring)
		}
		return out
	case *geom.Polygon:
		out := geom.Polygon(make([][][2]float64, len(*v)))
		for i, ring := range *v {
			out[i] = swapCoords(ring)
		}
		return &out
	case geom.MultiPolygon:
		out := make(geom.MultiPolygon, len(v))
		for i, poly := range v {
			swapped := make([][][2]float64, len(poly))
			for j, ring := range poly {
				swapped[j] = swapCoords(ring)
			}
			out[i] = swapped
		}
		return out
	case *geom.MultiPolygon:
		out := geom.MultiPolygon(make([][][][2]float64, len(*v)))
		for i, poly := range *v {
			swapped := make([][][2]float64, len(poly))
			for j, ring := range poly {
				swapped[j] = swapCoords(ring)
			}
			out[i] = swapped
		}
		return &out
	case geom.Collection:
		out := make(geom.Collection, len(v))
		for i, sub := range v {
			out[i] = SwapXY(sub)
		}
		return out
	case *geom.Collection:
		out := make(geom.Collection, len(*v))
		for i, sub := range *v {
			out[i] = SwapXY(sub)
		}
		return &out
	default:
		return g
	}
}

func swapCoords(coords [][2]float64) [][2]float64 {
	out := make([][2]float64, len(coords))
	for i, c := range coords {
		out[i] = [2]float64{c[1], c[0]}
	}
	return out
}

// Parsed returns g in crsAxisOrder, swapping axes when sourceAxisOrder (the
// order the input was written in) differs: legacy/authority axis coercion is
// applied once, here, at the parse boundary.
func Parsed(g geom.Geometry, sourceAxisOrder, crsAxisOrder AxisOrder) geom.Geometry {
	if sourceAxisOrder != crsAxisOrder {
		return SwapXY(g)
	}
	return g
}

// Emit prepares g for serialization in targetAxisOrder: it swaps axes only if
// the geometry's CRS axis order differs from what the output format/request wants.
func Emit(g geom.Geometry, crsAxisOrder, targetAxisOrder AxisOrder) geom.Geometry {
	if crsAxisOrder != targetAxisOrder {
		return SwapXY(g)
	}
	return g
}

func (g Geometry) String() string {
	return fmt.Sprintf("%s<%s>", TypeOf(g.Geom), g.CRS)
}
