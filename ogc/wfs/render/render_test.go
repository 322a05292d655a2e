package render

import (
	"strings"
	"testing"
	"time"

	"github.com/go-spatial/geom"
	"github.com/pdok/go-wfs-server/ogc/wfs/crs"
	"github.com/pdok/go-wfs-server/ogc/wfs/domain"
	"github.com/pdok/go-wfs-server/ogc/wfs/xsd"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildTestFeatureType() *xsd.FeatureType {
	graph, root := xsd.BuildFeatureType(xsd.FeatureTypeSpec{
		Namespace:   "http://example.org/app",
		LocalName:   "restaurant",
		GmlIDPrefix: "restaurant",
		GmlIDPath:   "id",
		NamePath:    "name",
		Fields: []xsd.FieldSpec{
			{XMLName: "rating", DataSourcePath: "rating", DBKind: xsd.DBInt32},
			{XMLName: "geometry", DataSourcePath: "geom", DBKind: xsd.DBGeometryPoint},
		},
	})
	return &xsd.FeatureType{
		Namespace: "http://example.org/app", LocalName: "restaurant",
		Graph: graph, Root: root, DefaultCRS: crs.CRS84,
	}
}

func testCollection() *domain.FeatureCollection {
	matched := 2
	return &domain.FeatureCollection{
		TypeName:       xsd.QName{Space: "http://example.org/app", Local: "restaurant"},
		NumberMatched:  &matched,
		NumberReturned: 2,
		TimeStamp:      time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
		Features: []*domain.Feature{
			{
				ID:         "restaurant.1",
				TypeName:   xsd.QName{Space: "http://example.org/app", Local: "restaurant"},
				Name:       "Pizzeria Napoli",
				Properties: map[string]any{"rating": 4},
				Geometries: map[string]*crs.Geometry{
					"geometry": {CRS: crs.CRS84, Geom: geom.Point{5.1, 52.1}},
				},
			},
			{
				ID:         "restaurant.2",
				TypeName:   xsd.QName{Space: "http://example.org/app", Local: "restaurant"},
				Properties: map[string]any{"rating": 3},
				Geometries: map[string]*crs.Geometry{
					"geometry": {CRS: crs.CRS84, Geom: geom.Point{5.2, 52.2}},
				},
			},
		},
	}
}

func TestParseFormat(t *testing.T) {
	assert.Equal(t, FormatGML, ParseFormat(""))
	assert.Equal(t, FormatGML, ParseFormat("GML/3.2.1"))
	assert.Equal(t, FormatGeoJSON, ParseFormat("application/geo+json"))
	assert.Equal(t, FormatCSV, ParseFormat("text/csv; charset=utf-8"))
	assert.Equal(t, Format(""), ParseFormat("application/pdf"))
}

func TestMetaContentDisposition(t *testing.T) {
	m := Meta{TypeNames: []string{"restaurant", "hotel"}, Page: 2, GeneratedAt: time.Date(2026, 3, 4, 0, 0, 0, 0, time.UTC)}
	got := m.ContentDisposition(FormatGeoJSON)
	assert.Equal(t, `attachment; filename="restaurant_hotel_2_20260304.json"`, got)
}

func TestGML(t *testing.T) {
	fc := testCollection()
	meta := Meta{OutputCRS: crs.CRS84, FeatureType: buildTestFeatureType()}

	out, err := Drain(GML(fc, meta))
	require.NoError(t, err)
	body := string(out)

	assert.True(t, strings.HasPrefix(body, "<?xml"))
	assert.Contains(t, body, `numberMatched="2"`)
	assert.Contains(t, body, `numberReturned="2"`)
	assert.Contains(t, body, `gml:id="restaurant.1"`)
	assert.Contains(t, body, "<gml:Point")
	assert.Contains(t, body, "<gml:pos>5.100000 52.100000</gml:pos>")
	assert.Contains(t, body, "<gml:name>Pizzeria Napoli</gml:name>")
	assert.Contains(t, body, "</wfs:FeatureCollection>")
}

func TestGMLTruncatesOnMidStreamError(t *testing.T) {
	fc := testCollection()
	fc.Features[1].Geometries["geometry"].Geom = nil // unsupported geom.Geometry -> gmlTag errors

	meta := Meta{OutputCRS: crs.CRS84}
	out, err := Drain(GML(fc, meta))
	require.Error(t, err)
	assert.Contains(t, string(out), "<wfs:truncatedResponse/>")
}

func TestGeoJSON(t *testing.T) {
	fc := testCollection()
	meta := Meta{Precision: 3, FeatureType: buildTestFeatureType()}

	out, err := Drain(GeoJSON(fc, meta))
	require.NoError(t, err)
	body := string(out)

	assert.True(t, strings.HasPrefix(body, `{"type":"FeatureCollection"`))
	assert.Contains(t, body, `"coordinates":[5.1,52.1]`)
	assert.Contains(t, body, `"numberMatched":2`)
	assert.Contains(t, body, `"numberReturned":2`)
	assert.True(t, strings.HasSuffix(strings.TrimSpace(body), "}"))
}

func TestGeoJSONTruncatesOnMidStreamError(t *testing.T) {
	fc := testCollection()
	fc.Features[0].Geometries["geometry"].Geom = geom.Line{} // unsupported -> geoJSONCoords errors

	out, err := Drain(GeoJSON(fc, Meta{}))
	require.Error(t, err)
	assert.Contains(t, string(out), `"exception"`)
}

func TestCSV(t *testing.T) {
	fc := testCollection()
	meta := Meta{FeatureType: buildTestFeatureType()}

	out, err := Drain(CSV(fc, meta))
	require.NoError(t, err)
	lines := strings.Split(strings.TrimRight(string(out), "\n"), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "geometry,rating", lines[0])
	assert.Contains(t, lines[1], "POINT")
	assert.Contains(t, lines[1], "4")
}

func TestPrimaryGeometryPrefersDefaultNode(t *testing.T) {
	ft := buildTestFeatureType()
	f := &domain.Feature{
		Geometries: map[string]*crs.Geometry{
			"geometry": {CRS: crs.CRS84, Geom: geom.Point{1, 2}},
		},
	}
	g := primaryGeometry(f, Meta{FeatureType: ft})
	require.NotNil(t, g)
	assert.Equal(t, geom.Point{1, 2}, g.Geom)
}
