package render

import (
	"fmt"
	"strings"

	"github.com/pdok/go-wfs-server/ogc/wfs/crs"
	"github.com/pdok/go-wfs-server/ogc/wfs/domain"
)

const gmlHeader = `<?xml version="1.0" encoding="UTF-8"?>
<wfs:FeatureCollection xmlns:wfs="http://www.opengis.net/wfs/2.0" xmlns:gml="http://www.opengis.net/gml/3.2"
    timeStamp="%s" numberMatched="%s" numberReturned="%d">
`

const gmlFooter = `</wfs:FeatureCollection>
`

const gmlTruncated = `<wfs:truncatedResponse/>
</wfs:FeatureCollection>
`

// GML streams a domain.FeatureCollection as a wfs:FeatureCollection GML 3.2
// document, one gml:id'd wfs:member per feature, per spec §4.7.
func GML(fc *domain.FeatureCollection, meta Meta) ChunkIterator {
	numberMatched := "unknown"
	if fc.NumberMatched != nil {
		numberMatched = fmt.Sprintf("%d", *fc.NumberMatched)
	}
	header := fmt.Sprintf(gmlHeader, fc.TimeStamp.UTC().Format("2006-01-02T15:04:05Z"), numberMatched, fc.NumberReturned)

	idx := -1
	emittedHeader := false
	done := false

	return func() Chunk {
		if !emittedHeader {
			emittedHeader = true
			return Chunk{Bytes: []byte(header), More: true}
		}
		if done {
			return Chunk{More: false}
		}
		idx++
		if idx >= len(fc.Features) {
			done = true
			return Chunk{Bytes: []byte(gmlFooter), More: false}
		}
		feature := fc.Features[idx]
		member, err := gmlMember(feature, meta)
		if err != nil {
			done = true
			return Chunk{Bytes: []byte(gmlTruncated), More: false, Err: err}
		}
		return Chunk{Bytes: []byte(member), More: true}
	}
}

func gmlMember(f *domain.Feature, meta Meta) (string, error) {
	var b strings.Builder
	localName := f.TypeName.Local
	b.WriteString(fmt.Sprintf("<wfs:member><app:%s gml:id=%q xmlns:app=%q>\n", localName, f.ID, f.TypeName.Space))

	if f.Name != "" {
		b.WriteString(fmt.Sprintf("<gml:name>%s</gml:name>\n", xmlEscapeText(f.Name)))
	}
	if f.BoundedBy != nil {
		b.WriteString(boundedByTag(f.BoundedBy, meta))
	}

	for name, geometry := range f.Geometries {
		targetOrder := crs.AxisXY
		srsName := ""
		if meta.OutputCRS != nil {
			targetOrder = meta.OutputCRS.AxisOrder()
			srsName = meta.OutputCRS.URI()
		}
		g := emitCoords(geometry, targetOrder)
		tag, err := gmlTag(g, "", srsName, meta.precision())
		if err != nil {
			return "", err
		}
		b.WriteString(fmt.Sprintf("<app:%s>%s</app:%s>\n", name, tag, name))
	}

	for name, value := range f.Properties {
		b.WriteString(fmt.Sprintf("<app:%s>%s</app:%s>\n", name, xmlEscapeText(fmt.Sprint(value)), name))
	}

	b.WriteString(fmt.Sprintf("</app:%s></wfs:member>\n", localName))
	return b.String(), nil
}

func boundedByTag(bbox *crs.BBox, meta Meta) string {
	order := crs.AxisXY
	srsName := ""
	if meta.OutputCRS != nil {
		order = meta.OutputCRS.AxisOrder()
		srsName = meta.OutputCRS.URI()
	}
	lower, upper := bbox.Lower, bbox.Upper
	if order == crs.AxisYX {
		lower = [2]float64{lower[1], lower[0]}
		upper = [2]float64{upper[1], upper[0]}
	}
	return fmt.Sprintf(`<gml:boundedBy><gml:Envelope srsName=%q><gml:lowerCorner>%s</gml:lowerCorner><gml:upperCorner>%s</gml:upperCorner></gml:Envelope></gml:boundedBy>`+"\n",
		srsName, formatPos(lower, meta.precision()), formatPos(upper, meta.precision()))
}
