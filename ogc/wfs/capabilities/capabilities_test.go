package capabilities

import (
	"testing"

	"github.com/pdok/go-wfs-server/ogc/wfs/crs"
	"github.com/pdok/go-wfs-server/ogc/wfs/fes"
	"github.com/pdok/go-wfs-server/ogc/wfs/xsd"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRegistry() *xsd.Registry {
	graph, root := xsd.BuildFeatureType(xsd.FeatureTypeSpec{
		Namespace:   "http://example.org/app",
		LocalName:   "restaurant",
		GmlIDPrefix: "restaurant",
		GmlIDPath:   "id",
		Fields: []xsd.FieldSpec{
			{XMLName: "name", DataSourcePath: "name", DBKind: xsd.DBString},
			{XMLName: "rating", DataSourcePath: "rating", DBKind: xsd.DBInt32},
			{XMLName: "geometry", DataSourcePath: "geom", DBKind: xsd.DBGeometryPoint},
			{XMLName: "address", Children: []xsd.FieldSpec{
				{XMLName: "street", DataSourcePath: "street", DBKind: xsd.DBString},
				{XMLName: "city", DataSourcePath: "city", DBKind: xsd.DBString},
			}},
		},
	})
	ft := &xsd.FeatureType{
		Namespace: "http://example.org/app", LocalName: "restaurant",
		Graph: graph, Root: root, DefaultCRS: crs.CRS84,
		Title: "Restaurants",
	}
	r := xsd.NewRegistry()
	r.Register(ft)
	return r
}

func TestBuildGetCapabilities(t *testing.T) {
	info := ServiceInfo{
		Identification: ServiceIdentification{Title: "Test WFS", Fees: "none"},
		Provider:       ServiceProvider{ProviderName: "Example Org"},
		BaseURL:        "https://example.org/wfs",
	}
	out, err := Build(info, testRegistry(), fes.NewFunctionRegistry())
	require.NoError(t, err)
	body := string(out)

	assert.Contains(t, body, "wfs:WFS_Capabilities")
	assert.Contains(t, body, "<ows:Title>Test WFS</ows:Title>")
	assert.Contains(t, body, `>app:restaurant</wfs:Name>`)
	assert.Contains(t, body, "app:restaurant")
	assert.Contains(t, body, "urn:ogc:def:crs:OGC::CRS84")
	assert.Contains(t, body, `name="strToUpper"`)
	assert.Contains(t, body, `name="BBOX"`)
}

func TestDescribeFeatureType(t *testing.T) {
	registry := testRegistry()
	ft, err := registry.Lookup("restaurant")
	require.NoError(t, err)

	out, err := DescribeFeatureType([]*xsd.FeatureType{ft})
	require.NoError(t, err)
	body := string(out)

	assert.Contains(t, body, `name="restaurantType"`)
	assert.Contains(t, body, `name="rating"`)
	assert.Contains(t, body, `type="xs:int"`)
	assert.Contains(t, body, `type="gml:PointPropertyType"`)
	assert.Contains(t, body, `name="addressType"`)
	assert.Contains(t, body, `name="street"`)
	assert.Contains(t, body, `substitutionGroup="gml:AbstractFeature"`)
}

func TestDescribeFeatureTypeRequiresAtLeastOne(t *testing.T) {
	_, err := DescribeFeatureType(nil)
	assert.Error(t, err)
}
