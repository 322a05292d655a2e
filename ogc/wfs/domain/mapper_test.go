package domain

import (
	"testing"

	"github.com/pdok/go-wfs-server/ogc/wfs/crs"
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

func TestFieldsByDataSourcePath(t *testing.T) {
	ft := buildTestFeatureType()
	byPath := fieldsByDataSourcePath(ft)
	require.Contains(t, byPath, "rating")
	require.Contains(t, byPath, "geom")
	require.Contains(t, byPath, "name")
	assert.Equal(t, "rating", byPath["rating"].LocalName())
}

func TestRenderID(t *testing.T) {
	ft := buildTestFeatureType()
	assert.Equal(t, "restaurant.42", renderID(ft, int64(42)))
}

func TestNormalizeScalar_ByteSlice(t *testing.T) {
	v := normalizeScalar([]byte("hello"))
	assert.Equal(t, "hello", v)
}
