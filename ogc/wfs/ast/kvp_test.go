package ast

import (
	"net/url"
	"testing"

	"github.com/pdok/go-wfs-server/ogc/wfs/crs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGroupedList(t *testing.T) {
	cases := []struct {
		raw  string
		want [][]string
	}{
		{"ns:A,ns:B", [][]string{{"ns:A", "ns:B"}}},
		{"(ns:A)(ns:B,ns:C)", [][]string{{"ns:A"}, {"ns:B", "ns:C"}}},
		{"", nil},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, GroupedList(c.raw))
	}
}

func TestLegacyAliasesFold(t *testing.T) {
	kvp := NewKVP(url.Values{"maxfeatures": {"10"}, "typename": {"ns:A"}})
	v, ok := kvp.Get("COUNT")
	require.True(t, ok)
	assert.Equal(t, "10", v)
	v, ok = kvp.Get("TYPENAMES")
	require.True(t, ok)
	assert.Equal(t, "ns:A", v)
}

func TestParseGetFeatureKVP_SimpleAdhoc(t *testing.T) {
	values := url.Values{
		"typenames": {"ns:Restaurants"},
		"count":     {"25"},
		"bbox":      {"4.1,52.0,4.2,52.1"},
		"sortby":    {"name D"},
	}
	req, err := ParseGetFeatureKVP(values, crs.Policy{})
	require.NoError(t, err)
	require.Equal(t, 25, req.Count)
	require.Len(t, req.Queries, 1)
	q := req.Queries[0].(AdhocQuery)
	assert.Equal(t, []string{"ns:Restaurants"}, q.TypeNames)
	require.NotNil(t, q.BBox)
	assert.Equal(t, [2]float64{4.1, 52.0}, q.BBox.Lower)
	require.Len(t, q.SortBy, 1)
	assert.False(t, q.SortBy[0].Ascending)
}

func TestParseGetFeatureKVP_StoredQuery(t *testing.T) {
	values := url.Values{
		"storedquery_id": {"urn:ogc:def:query:OGC-WFS::GetFeatureById"},
		"id":             {"restaurant.1"},
	}
	req, err := ParseGetFeatureKVP(values, crs.Policy{})
	require.NoError(t, err)
	require.Len(t, req.Queries, 1)
	sq := req.Queries[0].(StoredQuery)
	assert.Equal(t, "restaurant.1", sq.Params["ID"])
}

func TestParseGetFeatureKVP_GroupedTypeNames(t *testing.T) {
	values := url.Values{
		"typenames": {"(ns:A)(ns:B)"},
		"bbox":      {"(0,0,1,1)(2,2,3,3)"},
	}
	req, err := ParseGetFeatureKVP(values, crs.Policy{})
	require.NoError(t, err)
	require.Len(t, req.Queries, 2)
	q0 := req.Queries[0].(AdhocQuery)
	q1 := req.Queries[1].(AdhocQuery)
	assert.Equal(t, []string{"ns:A"}, q0.TypeNames)
	assert.Equal(t, []string{"ns:B"}, q1.TypeNames)
	assert.Equal(t, [2]float64{0, 0}, q0.BBox.Lower)
	assert.Equal(t, [2]float64{2, 2}, q1.BBox.Lower)
}
