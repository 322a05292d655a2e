package xsd

import (
	"testing"

	"github.com/pdok/go-wfs-server/ogc/wfs/crs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testFeatureType() *FeatureType {
	graph, root := BuildFeatureType(FeatureTypeSpec{
		Namespace:      "http://example.org/gisserver",
		LocalName:      "restaurant",
		GmlIDPrefix:    "restaurant",
		GmlIDPath:      "id",
		IdentityIsLong: false,
		Fields: []FieldSpec{
			{XMLName: "name", DataSourcePath: "name", DBKind: DBString},
			{XMLName: "rating", DataSourcePath: "rating", DBKind: DBFloat64},
			{XMLName: "geometry", DataSourcePath: "geom", DBKind: DBGeometryPoint},
			{
				XMLName: "owner", DataSourcePath: "owner",
				Children: []FieldSpec{
					{XMLName: "fullName", DataSourcePath: "full_name", DBKind: DBString},
				},
			},
			{XMLName: "tags", DataSourcePath: "tags.tag_name", DBKind: DBString, MaxOccursUnbounded: true},
		},
	})
	return &FeatureType{
		Namespace:  "http://example.org/gisserver",
		LocalName:  "restaurant",
		Graph:      graph,
		Root:       root,
		DefaultCRS: crs.New("EPSG", 28992),
	}
}

func TestResolveXPathForms(t *testing.T) {
	ft := testFeatureType()

	cases := []struct {
		expr     string
		wantPath string
	}{
		{"name", "name"},
		{"app:name", "name"},
		{"restaurant/name", "name"},
		{"owner/fullName", "owner.full_name"},
		{"@gml:id", "id"},
		{"rating", "rating"},
	}
	for _, tc := range cases {
		t.Run(tc.expr, func(t *testing.T) {
			m, err := ft.ResolveXPath(tc.expr)
			require.NoError(t, err, tc.expr)
			assert.Equal(t, tc.wantPath, m.DataSourcePath)
		})
	}
}

func TestResolveXPathUnknown(t *testing.T) {
	ft := testFeatureType()
	_, err := ft.ResolveXPath("doesNotExist")
	require.Error(t, err)
}

func TestResolveXPathTotality(t *testing.T) {
	// every element reachable from the root resolves by its own local name.
	ft := testFeatureType()
	for _, idx := range ft.Root.Elements() {
		n := ft.Graph.Node(idx)
		m, err := ft.ResolveXPath(n.LocalName())
		require.NoError(t, err, n.LocalName())
		assert.Equal(t, n.Index(), m.Node.Index())
	}
}
