package ast

import (
	"testing"

	"github.com/beevik/etree"
	"github.com/pdok/go-wfs-server/ogc/wfs/crs"
	"github.com/pdok/go-wfs-server/ogc/wfs/fes"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustParseXML(t *testing.T, xml string) *etree.Element {
	t.Helper()
	doc := etree.NewDocument()
	require.NoError(t, doc.ReadFromString(xml))
	require.NotNil(t, doc.Root())
	return doc.Root()
}

func TestParseGeometry_Point(t *testing.T) {
	el := mustParseXML(t, `<gml:Point xmlns:gml="http://www.opengis.net/gml/3.2" srsName="urn:ogc:def:crs:OGC::CRS84"><gml:pos>4.1 52.0</gml:pos></gml:Point>`)
	g, err := ParseGeometry(el, crs.Policy{})
	require.NoError(t, err)
	assert.Equal(t, crs.TypePoint, crs.TypeOf(g.Geom))
	assert.True(t, g.CRS.Equal(crs.CRS84))
}

func TestParseGeometry_Envelope(t *testing.T) {
	el := mustParseXML(t, `<gml:Envelope xmlns:gml="http://www.opengis.net/gml/3.2">
		<gml:lowerCorner>4.1 52.0</gml:lowerCorner>
		<gml:upperCorner>4.2 52.1</gml:upperCorner>
	</gml:Envelope>`)
	g, err := ParseGeometry(el, crs.Policy{})
	require.NoError(t, err)
	require.NotNil(t, g)
}

func TestParseFilter_SimpleComparison(t *testing.T) {
	root := mustParseXML(t, `<fes:Filter xmlns:fes="http://www.opengis.net/fes/2.0">
		<fes:PropertyIsEqualTo>
			<fes:ValueReference>name</fes:ValueReference>
			<fes:Literal>Pizzeria</fes:Literal>
		</fes:PropertyIsEqualTo>
	</fes:Filter>`)
	ns := ResolveFrom(root)
	f, err := ParseFilter(root, ns, crs.Policy{})
	require.NoError(t, err)
	require.NotNil(t, f.Predicate)
	cmp, ok := f.Predicate.(fes.PropertyIsComparison)
	require.True(t, ok)
	assert.Equal(t, fes.OpEqualTo, cmp.Op)
	ref, ok := cmp.Left.(fes.ValueReference)
	require.True(t, ok)
	assert.Equal(t, "name", ref.XPath)
}

func TestParseFilter_ResourceId(t *testing.T) {
	root := mustParseXML(t, `<fes:Filter xmlns:fes="http://www.opengis.net/fes/2.0">
		<fes:ResourceId rid="restaurant.1"/>
		<fes:ResourceId rid="restaurant.2"/>
	</fes:Filter>`)
	ns := ResolveFrom(root)
	f, err := ParseFilter(root, ns, crs.Policy{})
	require.NoError(t, err)
	require.Len(t, f.ResourceIDs, 2)
	assert.Equal(t, "restaurant.1", f.ResourceIDs[0].RawID)
}

func TestParseFilter_AndOfTwo(t *testing.T) {
	root := mustParseXML(t, `<fes:Filter xmlns:fes="http://www.opengis.net/fes/2.0">
		<fes:And>
			<fes:PropertyIsGreaterThan>
				<fes:ValueReference>rating</fes:ValueReference>
				<fes:Literal>3</fes:Literal>
			</fes:PropertyIsGreaterThan>
			<fes:PropertyIsLike wildCard="*" singleChar="." escapeChar="!">
				<fes:ValueReference>name</fes:ValueReference>
				<fes:Literal>Piz*</fes:Literal>
			</fes:PropertyIsLike>
		</fes:And>
	</fes:Filter>`)
	ns := ResolveFrom(root)
	f, err := ParseFilter(root, ns, crs.Policy{})
	require.NoError(t, err)
	and, ok := f.Predicate.(fes.LogicalPredicate)
	require.True(t, ok)
	assert.Equal(t, fes.OpAnd, and.Op)
	require.Len(t, and.Children, 2)
}

func TestParseGetFeatureXML_AdhocQuery(t *testing.T) {
	root := mustParseXML(t, `<wfs:GetFeature xmlns:wfs="http://www.opengis.net/wfs/2.0" count="10">
		<wfs:Query typeNames="ns:Restaurants"/>
	</wfs:GetFeature>`)
	req, err := ParseGetFeatureXML(root, crs.Policy{})
	require.NoError(t, err)
	assert.Equal(t, 10, req.Count)
	require.Len(t, req.Queries, 1)
	q := req.Queries[0].(AdhocQuery)
	assert.Equal(t, []string{"ns:Restaurants"}, q.TypeNames)
}
