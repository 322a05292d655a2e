package ast

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/beevik/etree"
	"github.com/go-spatial/geom"
	"github.com/pdok/go-wfs-server/ogc/wfs/crs"
	"github.com/pdok/go-wfs-server/ogc/wfs/ogcerr"
)

const gmlNamespace = "http://www.opengis.net/gml/3.2"

// ParseGeometry dispatches a GML 3.2 geometry element (Point, LineString,
// LinearRing, Polygon, MultiPoint, MultiLineString, MultiPolygon or
// Envelope) to its leaf parser and returns the result already folded into
// the element's declared CRS axis order, per spec §4.1.
func ParseGeometry(el *etree.Element, policy crs.Policy) (*crs.Geometry, error) {
	srsName := el.SelectAttrValue("srsName", "")
	c := crs.CRS84
	if srsName != "" {
		parsed, err := crs.FromURI(srsName, policy)
		if err != nil {
			return nil, err
		}
		c = parsed
	}

	var g geom.Geometry
	var err error
	switch el.Tag {
	case "Point":
		g, err = parsePoint(el)
	case "LineString":
		g, err = parseLineString(el)
	case "LinearRing":
		g, err = parseLinearRing(el)
	case "Polygon":
		g, err = parsePolygon(el)
	case "MultiPoint":
		g, err = parseMultiPoint(el, policy)
	case "MultiLineString", "MultiCurve":
		g, err = parseMultiLineString(el)
	case "MultiPolygon", "MultiSurface":
		g, err = parseMultiPolygon(el)
	case "Envelope":
		return parseEnvelope(el, c)
	default:
		return nil, badGeom(fmt.Errorf("unsupported GML geometry element %q", el.Tag))
	}
	if err != nil {
		return nil, badGeom(err)
	}

	// GML coordinates are written in the srsName's authority-native axis
	// order (after any policy coercion), which is also the CRS's storage
	// order, so Parsed leaves them unchanged here.
	g = crs.Parsed(g, c.AxisOrder(), c.AxisOrder())
	return &crs.Geometry{CRS: c, Geom: g}, nil
}

func badGeom(cause error) *ogcerr.Exception {
	return ogcerr.New(ogcerr.InvalidParameterValue, "geometry", "invalid GML geometry: %v", cause)
}

func parsePoint(el *etree.Element) (geom.Point, error) {
	pos := firstChildText(el, "pos", "coordinates")
	coords, err := parseCoordList(pos)
	if err != nil || len(coords) != 1 {
		return geom.Point{}, fmt.Errorf("Point requires exactly one coordinate pair")
	}
	return geom.Point(coords[0]), nil
}

func parseLineString(el *etree.Element) (geom.LineString, error) {
	coords, err := parsePosList(el)
	if err != nil {
		return nil, err
	}
	return geom.LineString(coords), nil
}

func parseLinearRing(el *etree.Element) (geom.LinearRing, error) {
	coords, err := parsePosList(el)
	if err != nil {
		return nil, err
	}
	if len(coords) < 4 {
		return nil, fmt.Errorf("LinearRing requires at least 4 positions")
	}
	return geom.LinearRing(coords), nil
}

func parsePolygon(el *etree.Element) (geom.Polygon, error) {
	var rings geom.Polygon
	for _, member := range ringMembers(el) {
		ring, err := parseLinearRing(member)
		if err != nil {
			return nil, err
		}
		rings = append(rings, [][2]float64(ring))
	}
	if len(rings) == 0 {
		return nil, fmt.Errorf("Polygon requires an exterior ring")
	}
	return rings, nil
}

func ringMembers(el *etree.Element) []*etree.Element {
	var out []*etree.Element
	for _, boundary := range el.ChildElements() {
		if boundary.Tag != "exterior" && boundary.Tag != "interior" {
			continue
		}
		if ring := boundary.FindElement("LinearRing"); ring != nil {
			out = append(out, ring)
		}
	}
	return out
}

func parseMultiPoint(el *etree.Element, policy crs.Policy) (geom.MultiPoint, error) {
	var out geom.MultiPoint
	for _, member := range el.ChildElements() {
		if member.Tag != "pointMember" && member.Tag != "pointMembers" {
			continue
		}
		for _, pt := range member.ChildElements() {
			if pt.Tag != "Point" {
				continue
			}
			p, err := parsePoint(pt)
			if err != nil {
				return nil, err
			}
			out = append(out, [2]float64(p))
		}
	}
	return out, nil
}

func parseMultiLineString(el *etree.Element) (geom.MultiLineString, error) {
	var out geom.MultiLineString
	for _, member := range el.ChildElements() {
		if member.Tag != "lineStringMember" && member.Tag != "curveMember" && member.Tag != "curveMembers" {
			continue
		}
		for _, ls := range member.ChildElements() {
			if ls.Tag != "LineString" {
				continue
			}
			line, err := parseLineString(ls)
			if err != nil {
				return nil, err
			}
			out = append(out, [][2]float64(line))
		}
	}
	return out, nil
}

func parseMultiPolygon(el *etree.Element) (geom.MultiPolygon, error) {
	var out geom.MultiPolygon
	for _, member := range el.ChildElements() {
		if member.Tag != "polygonMember" && member.Tag != "surfaceMember" && member.Tag != "surfaceMembers" {
			continue
		}
		for _, poly := range member.ChildElements() {
			if poly.Tag != "Polygon" {
				continue
			}
			p, err := parsePolygon(poly)
			if err != nil {
				return nil, err
			}
			out = append(out, [][][2]float64(p))
		}
	}
	return out, nil
}

func parseEnvelope(el *etree.Element, c *crs.CRS) (*crs.Geometry, error) {
	lower := firstChildText(el, "lowerCorner")
	upper := firstChildText(el, "upperCorner")
	lo, err := parseOrdinates(lower)
	if err != nil || len(lo) != 2 {
		return nil, badGeom(fmt.Errorf("invalid lowerCorner %q", lower))
	}
	up, err := parseOrdinates(upper)
	if err != nil || len(up) != 2 {
		return nil, badGeom(fmt.Errorf("invalid upperCorner %q", upper))
	}
	ext := &geom.Extent{lo[0], lo[1], up[0], up[1]}
	return &crs.Geometry{CRS: c, Geom: ext}, nil
}

// parsePosList reads a direct <posList>/<pos>-sequence or legacy
// <coordinates> child of el into a flat coordinate slice.
func parsePosList(el *etree.Element) ([][2]float64, error) {
	if posList := el.FindElement("posList"); posList != nil {
		return parseCoordList(posList.Text())
	}
	if coordinates := el.FindElement("coordinates"); coordinates != nil {
		return parseLegacyCoordinates(coordinates)
	}
	var coords [][2]float64
	for _, pos := range el.SelectElements("pos") {
		c, err := parseCoordList(pos.Text())
		if err != nil || len(c) != 1 {
			return nil, fmt.Errorf("invalid pos %q", pos.Text())
		}
		coords = append(coords, c[0])
	}
	if len(coords) == 0 {
		return nil, fmt.Errorf("missing posList/pos/coordinates")
	}
	return coords, nil
}

func parseCoordList(text string) ([][2]float64, error) {
	ords, err := parseOrdinates(text)
	if err != nil {
		return nil, err
	}
	if len(ords)%2 != 0 {
		return nil, fmt.Errorf("odd number of ordinates in %q", text)
	}
	out := make([][2]float64, 0, len(ords)/2)
	for i := 0; i < len(ords); i += 2 {
		out = append(out, [2]float64{ords[i], ords[i+1]})
	}
	return out, nil
}

func parseOrdinates(text string) ([]float64, error) {
	fields := strings.Fields(text)
	out := make([]float64, 0, len(fields))
	for _, f := range fields {
		v, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid ordinate %q: %w", f, err)
		}
		out = append(out, v)
	}
	return out, nil
}

// parseLegacyCoordinates reads the GML 2 <coordinates cs="," ts=" "> form.
func parseLegacyCoordinates(el *etree.Element) ([][2]float64, error) {
	cs := el.SelectAttrValue("cs", ",")
	ts := el.SelectAttrValue("ts", " ")
	var out [][2]float64
	for _, tuple := range strings.Split(strings.TrimSpace(el.Text()), ts) {
		tuple = strings.TrimSpace(tuple)
		if tuple == "" {
			continue
		}
		parts := strings.Split(tuple, cs)
		if len(parts) != 2 {
			return nil, fmt.Errorf("invalid coordinate tuple %q", tuple)
		}
		x, err := strconv.ParseFloat(parts[0], 64)
		if err != nil {
			return nil, err
		}
		y, err := strconv.ParseFloat(parts[1], 64)
		if err != nil {
			return nil, err
		}
		out = append(out, [2]float64{x, y})
	}
	return out, nil
}

func firstChildText(el *etree.Element, tags ...string) string {
	for _, tag := range tags {
		if child := el.FindElement(tag); child != nil {
			return child.Text()
		}
	}
	return ""
}
