package render

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/go-spatial/geom"
	"github.com/go-spatial/geom/encoding/wkt"
	"github.com/pdok/go-wfs-server/ogc/wfs/crs"
)

// emitCoords reorders g into targetOrder for serialization; storage
// geometries are always kept in x/y internally (package crs's convention,
// see crs.Parsed/crs.Emit), so only the output side ever needs a swap.
func emitCoords(g *crs.Geometry, targetOrder crs.AxisOrder) geom.Geometry {
	return crs.Emit(g.Geom, crs.AxisXY, targetOrder)
}

func formatFloat(v float64, precision int) string {
	return strconv.FormatFloat(v, 'f', precision, 64)
}

func formatPos(c [2]float64, precision int) string {
	return formatFloat(c[0], precision) + " " + formatFloat(c[1], precision)
}

func formatPosList(cs [][2]float64, precision int) string {
	parts := make([]string, len(cs))
	for i, c := range cs {
		parts[i] = formatPos(c, precision)
	}
	return strings.Join(parts, " ")
}

// gmlTag writes g (already axis-ordered for output) as a GML 3.2 geometry
// element with the given gml:id, srsName attribute and indentation prefix.
func gmlTag(g geom.Geometry, gmlID, srsName string, precision int) (string, error) {
	idAttr := ""
	if gmlID != "" {
		idAttr = fmt.Sprintf(` gml:id="%s"`, xmlEscapeAttr(gmlID))
	}
	srsAttr := ""
	if srsName != "" {
		srsAttr = fmt.Sprintf(` srsName="%s"`, xmlEscapeAttr(srsName))
	}

	switch v := g.(type) {
	case geom.Point:
		return fmt.Sprintf(`<gml:Point%s%s><gml:pos>%s</gml:pos></gml:Point>`,
			idAttr, srsAttr, formatPos([2]float64(v), precision)), nil

	case geom.LineString:
		return fmt.Sprintf(`<gml:LineString%s%s><gml:posList>%s</gml:posList></gml:LineString>`,
			idAttr, srsAttr, formatPosList(v, precision)), nil

	case geom.Polygon:
		return gmlPolygon(v, idAttr, srsAttr, precision), nil

	case geom.MultiPoint:
		var b strings.Builder
		b.WriteString(fmt.Sprintf(`<gml:MultiPoint%s%s>`, idAttr, srsAttr))
		for _, pt := range v {
			b.WriteString(fmt.Sprintf(`<gml:pointMember><gml:Point><gml:pos>%s</gml:pos></gml:Point></gml:pointMember>`,
				formatPos(pt, precision)))
		}
		b.WriteString(`</gml:MultiPoint>`)
		return b.String(), nil

	case geom.MultiLineString:
		var b strings.Builder
		b.WriteString(fmt.Sprintf(`<gml:MultiCurve%s%s>`, idAttr, srsAttr))
		for _, ls := range v {
			b.WriteString(fmt.Sprintf(`<gml:curveMember><gml:LineString><gml:posList>%s</gml:posList></gml:LineString></gml:curveMember>`,
				formatPosList(ls, precision)))
		}
		b.WriteString(`</gml:MultiCurve>`)
		return b.String(), nil

	case geom.MultiPolygon:
		var b strings.Builder
		b.WriteString(fmt.Sprintf(`<gml:MultiSurface%s%s>`, idAttr, srsAttr))
		for _, poly := range v {
			b.WriteString(`<gml:surfaceMember>`)
			b.WriteString(gmlPolygon(poly, "", "", precision))
			b.WriteString(`</gml:surfaceMember>`)
		}
		b.WriteString(`</gml:MultiSurface>`)
		return b.String(), nil

	case geom.Collection:
		return gmlCollection(v, idAttr, srsAttr, precision)

	case *geom.Collection:
		return gmlCollection(*v, idAttr, srsAttr, precision)

	default:
		return "", fmt.Errorf("render: unsupported geometry type %T", g)
	}
}

func gmlCollection(v geom.Collection, idAttr, srsAttr string, precision int) (string, error) {
	var b strings.Builder
	b.WriteString(fmt.Sprintf(`<gml:MultiGeometry%s%s>`, idAttr, srsAttr))
	for _, sub := range v {
		member, err := gmlTag(sub, "", "", precision)
		if err != nil {
			return "", err
		}
		b.WriteString(`<gml:geometryMember>`)
		b.WriteString(member)
		b.WriteString(`</gml:geometryMember>`)
	}
	b.WriteString(`</gml:MultiGeometry>`)
	return b.String(), nil
}

func gmlPolygon(v geom.Polygon, idAttr, srsAttr string, precision int) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf(`<gml:Polygon%s%s>`, idAttr, srsAttr))
	for i, ring := range v {
		tag := "exterior"
		if i > 0 {
			tag = "interior"
		}
		b.WriteString(fmt.Sprintf(`<gml:%s><gml:LinearRing><gml:posList>%s</gml:posList></gml:LinearRing></gml:%s>`,
			tag, formatPosList(ring, precision), tag))
	}
	b.WriteString(`</gml:Polygon>`)
	return b.String()
}

func xmlEscapeAttr(s string) string {
	r := strings.NewReplacer(`&`, "&amp;", `"`, "&quot;", `<`, "&lt;", `>`, "&gt;")
	return r.Replace(s)
}

func xmlEscapeText(s string) string {
	r := strings.NewReplacer(`&`, "&amp;", `<`, "&lt;", `>`, "&gt;")
	return r.Replace(s)
}

// geoJSONCoords converts g (already axis-ordered x/y, since GeoJSON is
// always CRS84) into its GeoJSON type name and its coordinates array as a
// JSON text fragment.
func geoJSONCoords(g geom.Geometry, precision int) (string, string, error) {
	round := func(v float64) float64 {
		f, _ := strconv.ParseFloat(formatFloat(v, precision), 64)
		return f
	}
	pos := func(c [2]float64) string {
		return fmt.Sprintf("[%s,%s]", trimFloat(round(c[0])), trimFloat(round(c[1])))
	}
	posList := func(cs [][2]float64) string {
		parts := make([]string, len(cs))
		for i, c := range cs {
			parts[i] = pos(c)
		}
		return "[" + strings.Join(parts, ",") + "]"
	}

	switch v := g.(type) {
	case geom.Point:
		return "Point", pos([2]float64(v)), nil
	case geom.LineString:
		return "LineString", posList(v), nil
	case geom.Polygon:
		rings := make([]string, len(v))
		for i, r := range v {
			rings[i] = posList(r)
		}
		return "Polygon", "[" + strings.Join(rings, ",") + "]", nil
	case geom.MultiPoint:
		return "MultiPoint", posList(v), nil
	case geom.MultiLineString:
		lines := make([]string, len(v))
		for i, ls := range v {
			lines[i] = posList(ls)
		}
		return "MultiLineString", "[" + strings.Join(lines, ",") + "]", nil
	case geom.MultiPolygon:
		polys := make([]string, len(v))
		for i, poly := range v {
			rings := make([]string, len(poly))
			for j, r := range poly {
				rings[j] = posList(r)
			}
			polys[i] = "[" + strings.Join(rings, ",") + "]"
		}
		return "MultiPolygon", "[" + strings.Join(polys, ",") + "]", nil
	case geom.Collection:
		return geoJSONGeometryCollection(v, precision)
	case *geom.Collection:
		return geoJSONGeometryCollection(*v, precision)
	default:
		return "", "", fmt.Errorf("render: unsupported geometry type %T", g)
	}
}

// geoJSONGeometryCollection renders a collection as a "geometries" array of
// nested geometry objects rather than a "coordinates" array, since
// GeometryCollection is GeoJSON's one geometry type that isn't keyed by
// coordinates. gtype is returned as "GeometryCollection" so callers can tell
// the two shapes apart.
func geoJSONGeometryCollection(v geom.Collection, precision int) (string, string, error) {
	members := make([]string, len(v))
	for i, sub := range v {
		obj, err := geoJSONGeometryObject(sub, precision)
		if err != nil {
			return "", "", err
		}
		members[i] = obj
	}
	return "GeometryCollection", "[" + strings.Join(members, ",") + "]", nil
}

// geoJSONGeometryObject renders g as a complete GeoJSON geometry object,
// keyed "coordinates" for every type except GeometryCollection, which nests
// "geometries" instead.
func geoJSONGeometryObject(g geom.Geometry, precision int) (string, error) {
	gtype, coords, err := geoJSONCoords(g, precision)
	if err != nil {
		return "", err
	}
	if gtype == "GeometryCollection" {
		return fmt.Sprintf(`{"type":"GeometryCollection","geometries":%s}`, coords), nil
	}
	return fmt.Sprintf(`{"type":%q,"coordinates":%s}`, gtype, coords), nil
}

func trimFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// geometryWKT renders g (already axis-ordered for output) as WKT for the CSV
// renderer's geometry column. wkt.EncodeString has no precision knob, unlike
// the GML/GeoJSON paths, so precision is accepted for a uniform call shape
// but not applied here.
func geometryWKT(g geom.Geometry, _ int) (string, error) {
	return wkt.EncodeString(g)
}
