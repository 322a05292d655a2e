package datasources

import (
	"testing"

	"github.com/pdok/go-wfs-server/ogc/wfs/compiler"
	"github.com/pdok/go-wfs-server/ogc/wfs/crs"
	"github.com/pdok/go-wfs-server/ogc/wfs/fes"
	"github.com/pdok/go-wfs-server/ogc/wfs/xsd"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func nameField() xsd.Node {
	return xsd.Node{Name: xsd.QName{Local: "name"}, Atomic: xsd.XsString, DataSourcePath: "name"}
}

func TestRenderPredicate_Compare(t *testing.T) {
	n := nameField()
	p := compiler.Compare{
		Op:        fes.OpEqualTo,
		Left:      compiler.FieldRef{Node: &n, DataSourcePath: "name"},
		Right:     compiler.Literal{Text: "cafe", Type: xsd.XsString},
		MatchCase: true,
	}
	sql, args, err := RenderPredicate(p, SpatiaLiteDialect)
	require.NoError(t, err)
	assert.Contains(t, sql, "name =")
	assert.Len(t, args, 1)
	for _, v := range args {
		assert.Equal(t, "cafe", v)
	}
}

func TestRenderPredicate_CompareCoercesNumericLiteral(t *testing.T) {
	n := xsd.Node{Name: xsd.QName{Local: "rating"}, Atomic: xsd.XsInt, DataSourcePath: "rating"}
	p := compiler.Compare{
		Op:    fes.OpGreaterThan,
		Left:  compiler.FieldRef{Node: &n, DataSourcePath: "rating"},
		Right: compiler.Literal{Text: "3", Type: xsd.XsInt},
	}
	_, args, err := RenderPredicate(p, SpatiaLiteDialect)
	require.NoError(t, err)
	for _, v := range args {
		assert.Equal(t, int64(3), v)
	}
}

func TestRenderPredicate_And(t *testing.T) {
	n := nameField()
	left := compiler.Compare{Op: fes.OpEqualTo, Left: compiler.FieldRef{Node: &n, DataSourcePath: "name"}, Right: compiler.Literal{Text: "a"}}
	right := compiler.Compare{Op: fes.OpNotEqualTo, Left: compiler.FieldRef{Node: &n, DataSourcePath: "name"}, Right: compiler.Literal{Text: "b"}}
	sql, args, err := RenderPredicate(compiler.And{Children: []compiler.Predicate{left, right}}, SpatiaLiteDialect)
	require.NoError(t, err)
	assert.Contains(t, sql, " and ")
	assert.Len(t, args, 2)
}

func TestRenderPredicate_ResourceIDIn(t *testing.T) {
	sql, args, err := RenderPredicate(compiler.ResourceIDIn{IdentityPath: "id", IDs: []string{"a.1", "a.2"}}, SpatiaLiteDialect)
	require.NoError(t, err)
	assert.Contains(t, sql, "id in (")
	assert.Len(t, args, 2)
}

func TestRenderPredicate_ResourceIDIn_Empty(t *testing.T) {
	sql, args, err := RenderPredicate(compiler.ResourceIDIn{IdentityPath: "id"}, SpatiaLiteDialect)
	require.NoError(t, err)
	assert.Equal(t, "1 = 0", sql)
	assert.Empty(t, args)
}

func TestRenderPredicate_Spatial_SpatiaLite(t *testing.T) {
	geomNode := xsd.Node{Name: xsd.QName{Local: "geom"}, DataSourcePath: "geom"}
	extent := crs.NewBBox(crs.CRS84, 0, 0, 1, 1)
	p := compiler.Spatial{
		Op:       fes.OpIntersects,
		Field:    compiler.FieldRef{Node: &geomNode, DataSourcePath: "geom"},
		Geometry: compiler.GeomLiteral{Geometry: &crs.Geometry{CRS: crs.CRS84, Geom: extent.Extent()}},
	}
	sql, args, err := RenderPredicate(p, SpatiaLiteDialect)
	require.NoError(t, err)
	assert.Contains(t, sql, "st_intersects(castautomagic(geom)")
	assert.NotEmpty(t, args)
}

func TestRenderPredicate_Spatial_PostGIS(t *testing.T) {
	geomNode := xsd.Node{Name: xsd.QName{Local: "geom"}, DataSourcePath: "geom"}
	extent := crs.NewBBox(crs.CRS84, 0, 0, 1, 1)
	p := compiler.Spatial{
		Op:       fes.OpBBOX,
		Field:    compiler.FieldRef{Node: &geomNode, DataSourcePath: "geom"},
		Geometry: compiler.GeomLiteral{Geometry: &crs.Geometry{CRS: crs.CRS84, Geom: extent.Extent()}},
	}
	sql, _, err := RenderPredicate(p, PostGISDialect)
	require.NoError(t, err)
	assert.Contains(t, sql, "geom &&")
}

func TestTranslateLikePattern(t *testing.T) {
	got := translateLikePattern("50%_*?", "*", "?", "!")
	assert.Equal(t, `50\%\_%_`, got)
}

func TestRenderPredicate_Not(t *testing.T) {
	n := nameField()
	inner := compiler.Compare{Op: fes.OpEqualTo, Left: compiler.FieldRef{Node: &n, DataSourcePath: "name"}, Right: compiler.Literal{Text: "a"}}
	sql, _, err := RenderPredicate(compiler.Not{Child: inner}, SpatiaLiteDialect)
	require.NoError(t, err)
	assert.Contains(t, sql, "not (")
}
