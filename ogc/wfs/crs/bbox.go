package crs

import "github.com/go-spatial/geom"

// BBox is a 2D bounding box expressed in a specific CRS (spec §3 "Bounding Box").
type BBox struct {
	CRS   *CRS
	Lower [2]float64
	Upper [2]float64
}

// NewBBox builds a BBox from min/max x/y, in the given CRS's axis order.
func NewBBox(crs *CRS, minX, minY, maxX, maxY float64) BBox {
	return BBox{CRS: crs, Lower: [2]float64{minX, minY}, Upper: [2]float64{maxX, maxY}}
}

// Extend grows the bbox, by union, to include g. g must already be in the same CRS.
func (b *BBox) Extend(g geom.Geometry) {
	ext := &geom.Extent{b.Lower[0], b.Lower[1], b.Upper[0], b.Upper[1]}
	other, err := geom.NewExtentFromGeometry(g)
	if err != nil || other == nil {
		return
	}
	ext.Add(other)
	b.Lower = [2]float64{ext.MinX(), ext.MinY()}
	b.Upper = [2]float64{ext.MaxX(), ext.MaxY()}
}

// Extent converts to a go-spatial/geom.Extent for use by spatial predicates and datastore queries.
func (b BBox) Extent() *geom.Extent {
	return &geom.Extent{b.Lower[0], b.Lower[1], b.Upper[0], b.Upper[1]}
}
