package storedquery

import (
	"testing"

	"github.com/pdok/go-wfs-server/ogc/wfs/ast"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveGetFeatureByID(t *testing.T) {
	r := NewRegistry()
	q, err := r.Resolve(ast.StoredQuery{ID: GetFeatureByIDURN, Params: map[string]string{"ID": "restaurant.42"}})
	require.NoError(t, err)
	require.Len(t, q.TypeNames, 1)
	assert.Equal(t, "restaurant", q.TypeNames[0])
	require.Len(t, q.Filter.ResourceIDs, 1)
	assert.Equal(t, "restaurant.42", q.Filter.ResourceIDs[0].RawID)
}

func TestResolveGetFeatureByID_InvalidID(t *testing.T) {
	r := NewRegistry()
	_, err := r.Resolve(ast.StoredQuery{ID: GetFeatureByIDURN, Params: map[string]string{"ID": "42"}})
	require.Error(t, err)
	var invalid *InvalidFeatureIDError
	require.ErrorAs(t, err, &invalid)
}

func TestResolveMissingParameter(t *testing.T) {
	r := NewRegistry()
	_, err := r.Resolve(ast.StoredQuery{ID: GetFeatureByIDURN, Params: map[string]string{}})
	require.Error(t, err)
}

func TestResolveUnknownStoredQuery(t *testing.T) {
	r := NewRegistry()
	_, err := r.Resolve(ast.StoredQuery{ID: "urn:ogc:def:query:OGC-WFS::DoesNotExist"})
	require.Error(t, err)
}

func TestListAndDescribeStoredQueries(t *testing.T) {
	r := NewRegistry()
	listed, err := ListStoredQueries(r.All())
	require.NoError(t, err)
	assert.Contains(t, string(listed), GetFeatureByIDURN)

	described, err := DescribeStoredQueries(r.All())
	require.NoError(t, err)
	body := string(described)
	assert.Contains(t, body, `name="ID"`)
	assert.Contains(t, body, "xs:string")
}
