package compiler

import (
	"testing"

	"github.com/pdok/go-wfs-server/ogc/wfs/ast"
	"github.com/pdok/go-wfs-server/ogc/wfs/crs"
	"github.com/pdok/go-wfs-server/ogc/wfs/fes"
	"github.com/pdok/go-wfs-server/ogc/wfs/xsd"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testFeatureType() *xsd.FeatureType {
	graph, root := xsd.BuildFeatureType(xsd.FeatureTypeSpec{
		Namespace:   "http://example.org/app",
		LocalName:   "restaurant",
		GmlIDPrefix: "restaurant",
		GmlIDPath:   "id",
		Fields: []xsd.FieldSpec{
			{XMLName: "name", DataSourcePath: "name", DBKind: xsd.DBString},
			{XMLName: "rating", DataSourcePath: "rating", DBKind: xsd.DBInt32},
			{XMLName: "geometry", DataSourcePath: "geom", DBKind: xsd.DBGeometryPoint},
		},
	})
	return &xsd.FeatureType{
		Namespace: "http://example.org/app", LocalName: "restaurant",
		Graph: graph, Root: root,
		DefaultCRS: crs.CRS84,
	}
}

func registryWith(ft *xsd.FeatureType) *xsd.Registry {
	r := xsd.NewRegistry()
	r.Register(ft)
	return r
}

func TestCompile_SimpleComparison(t *testing.T) {
	ft := testFeatureType()
	reg := registryWith(ft)
	funcs := fes.NewFunctionRegistry()

	q := ast.AdhocQuery{
		TypeNames: []string{"app:restaurant"},
		Filter: &fes.Filter{Predicate: fes.PropertyIsComparison{
			Op: fes.OpGreaterThan, Left: fes.ValueReference{XPath: "rating"}, Right: fes.Literal{Value: "3"},
			MatchCase: true,
		}},
	}
	cq, err := Compile(reg, funcs, q, -1, 0, ast.ResultResults, crs.Policy{}, 10, 100)
	require.NoError(t, err)
	cmp, ok := cq.Predicate.(Compare)
	require.True(t, ok)
	assert.Equal(t, fes.OpGreaterThan, cmp.Op)
	ref, ok := cmp.Left.(FieldRef)
	require.True(t, ok)
	assert.Equal(t, "rating", ref.DataSourcePath)
	assert.Equal(t, 10, cq.Limit)
}

func TestCompile_BBoxShortcut(t *testing.T) {
	ft := testFeatureType()
	reg := registryWith(ft)
	funcs := fes.NewFunctionRegistry()

	bbox := crs.NewBBox(crs.CRS84, 4.0, 52.0, 5.0, 53.0)
	q := ast.AdhocQuery{TypeNames: []string{"restaurant"}, BBox: &bbox}
	cq, err := Compile(reg, funcs, q, 50, 0, ast.ResultResults, crs.Policy{}, 10, 100)
	require.NoError(t, err)
	spatial, ok := cq.Predicate.(Spatial)
	require.True(t, ok)
	assert.Equal(t, fes.OpBBOX, spatial.Op)
	assert.Equal(t, 50, cq.Limit)
}

func TestCompile_PageSizeCappedAtMax(t *testing.T) {
	ft := testFeatureType()
	reg := registryWith(ft)
	funcs := fes.NewFunctionRegistry()

	q := ast.AdhocQuery{TypeNames: []string{"restaurant"}}
	cq, err := Compile(reg, funcs, q, 10000, 0, ast.ResultResults, crs.Policy{}, 10, 100)
	require.NoError(t, err)
	assert.Equal(t, 100, cq.Limit)
}

func TestCompile_RejectsMultipleTypeNames(t *testing.T) {
	ft := testFeatureType()
	reg := registryWith(ft)
	funcs := fes.NewFunctionRegistry()

	q := ast.AdhocQuery{TypeNames: []string{"restaurant", "other"}}
	_, err := Compile(reg, funcs, q, -1, 0, ast.ResultResults, crs.Policy{}, 10, 100)
	require.Error(t, err)
}

func TestCompile_Projection(t *testing.T) {
	ft := testFeatureType()
	reg := registryWith(ft)
	funcs := fes.NewFunctionRegistry()

	q := ast.AdhocQuery{TypeNames: []string{"restaurant"}, PropertyNames: []string{"name"}}
	cq, err := Compile(reg, funcs, q, -1, 0, ast.ResultResults, crs.Policy{}, 10, 100)
	require.NoError(t, err)
	require.False(t, cq.Projection.All)
	require.Len(t, cq.Projection.Fields, 2) // "name" plus the always-included gml:id
	assert.Equal(t, "name", cq.Projection.Fields[0].LocalName())
}
