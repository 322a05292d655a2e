package httpapi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdok/go-wfs-server/engine"
	"github.com/pdok/go-wfs-server/ogc/wfs/ast"
	"github.com/pdok/go-wfs-server/ogc/wfs/crs"
	"github.com/pdok/go-wfs-server/ogc/wfs/datasources"
	"github.com/pdok/go-wfs-server/ogc/wfs/domain"
	"github.com/pdok/go-wfs-server/ogc/wfs/fes"
	"github.com/pdok/go-wfs-server/ogc/wfs/storedquery"
	"github.com/pdok/go-wfs-server/ogc/wfs/xsd"
)

// fakeStore is an in-memory Datastore double: enough to drive the HTTP
// dispatch layer's request/response plumbing without a real GeoPackage or
// PostGIS connection.
type fakeStore struct {
	features []*domain.Feature
}

func (s *fakeStore) GetFeatures(_ context.Context, ft *xsd.FeatureType, opt datasources.FeatureOptions) (*domain.FeatureCollection, error) {
	features := s.features
	if opt.Limit > 0 && opt.Limit < len(features) {
		features = features[:opt.Limit]
	}
	var numberMatched *int
	if opt.CountPolicy != domain.CountNever {
		n := len(s.features)
		numberMatched = &n
	}
	return &domain.FeatureCollection{
		TypeName:       ft.QName(),
		Features:       features,
		NumberMatched:  numberMatched,
		NumberReturned: len(features),
		TimeStamp:      time.Unix(0, 0).UTC(),
	}, nil
}

func (s *fakeStore) GetFeatureByID(_ context.Context, ft *xsd.FeatureType, id string) (*domain.Feature, error) {
	for _, f := range s.features {
		if f.ID == id {
			return f, nil
		}
	}
	return nil, nil
}

func (s *fakeStore) Close() {}

func testFeatureType() *xsd.FeatureType {
	graph, root := xsd.BuildFeatureType(xsd.FeatureTypeSpec{
		Namespace:   "http://example.org/app",
		LocalName:   "restaurant",
		GmlIDPrefix: "restaurant",
		GmlIDPath:   "id",
		Fields: []xsd.FieldSpec{
			{XMLName: "name", DataSourcePath: "name", DBKind: xsd.DBString},
		},
	})
	return &xsd.FeatureType{
		Namespace: "http://example.org/app", LocalName: "restaurant",
		Graph: graph, Root: root, DefaultCRS: crs.CRS84, Title: "Restaurants",
	}
}

func testHandler(store datasources.Datastore) *Handler {
	ft := testFeatureType()
	registry := xsd.NewRegistry()
	registry.Register(ft)

	e := &engine.Engine{
		Config: &engine.Config{
			Title: "Test WFS",
			OgcAPI: engine.OgcAPIWfs{
				DefaultPageSize: 10,
			},
		},
		Registry:      registry,
		Functions:     fes.NewFunctionRegistry(),
		StoredQueries: storedquery.NewRegistry(),
		Datastore:     store,
	}
	return NewHandler(e)
}

func TestGetCapabilities(t *testing.T) {
	h := testHandler(&fakeStore{})
	req := httptest.NewRequest(http.MethodGet, "/wfs?SERVICE=WFS&REQUEST=GetCapabilities", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "wfs:WFS_Capabilities")
}

func TestGetFeatureStreamsGML(t *testing.T) {
	store := &fakeStore{features: []*domain.Feature{
		{ID: "restaurant.1", TypeName: testFeatureType().QName(), Properties: map[string]any{"name": "Chez Go"}},
	}}
	h := testHandler(store)

	req := httptest.NewRequest(http.MethodGet, "/wfs?SERVICE=WFS&REQUEST=GetFeature&TYPENAMES=restaurant", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "wfs:FeatureCollection")
	assert.Contains(t, w.Body.String(), "Chez Go")
}

func TestGetFeatureUnknownTypeNameIsBadRequest(t *testing.T) {
	h := testHandler(&fakeStore{})
	req := httptest.NewRequest(http.MethodGet, "/wfs?SERVICE=WFS&REQUEST=GetFeature&TYPENAMES=doesnotexist", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "ows:ExceptionReport")
}

func TestGetFeatureByIDMalformedIsNotFoundByDefault(t *testing.T) {
	h := testHandler(&fakeStore{})
	req := httptest.NewRequest(http.MethodGet,
		"/wfs?SERVICE=WFS&REQUEST=GetFeature&STOREDQUERY_ID="+url.QueryEscape(storedquery.GetFeatureByIDURN)+"&ID=garbage", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestGetFeatureByIDMalformedIsBadRequestWhenStrict(t *testing.T) {
	h := testHandler(&fakeStore{})
	h.Engine.Config.OgcAPI.WfsStrictStandard = true
	req := httptest.NewRequest(http.MethodGet,
		"/wfs?SERVICE=WFS&REQUEST=GetFeature&STOREDQUERY_ID="+url.QueryEscape(storedquery.GetFeatureByIDURN)+"&ID=garbage", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetFeatureByIDNonexistentIsNotFound(t *testing.T) {
	store := &fakeStore{features: []*domain.Feature{
		{ID: "1", TypeName: testFeatureType().QName(), Properties: map[string]any{"name": "Chez Go"}},
	}}
	h := testHandler(store)
	req := httptest.NewRequest(http.MethodGet,
		"/wfs?SERVICE=WFS&REQUEST=GetFeature&STOREDQUERY_ID="+url.QueryEscape(storedquery.GetFeatureByIDURN)+"&ID=restaurant.999", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestGetFeatureByIDNonexistentIsBadRequestWhenStrict(t *testing.T) {
	store := &fakeStore{features: []*domain.Feature{
		{ID: "1", TypeName: testFeatureType().QName(), Properties: map[string]any{"name": "Chez Go"}},
	}}
	h := testHandler(store)
	h.Engine.Config.OgcAPI.WfsStrictStandard = true
	req := httptest.NewRequest(http.MethodGet,
		"/wfs?SERVICE=WFS&REQUEST=GetFeature&STOREDQUERY_ID="+url.QueryEscape(storedquery.GetFeatureByIDURN)+"&ID=restaurant.999", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetFeatureByIDExistingStreamsFeature(t *testing.T) {
	store := &fakeStore{features: []*domain.Feature{
		{ID: "1", TypeName: testFeatureType().QName(), Properties: map[string]any{"name": "Chez Go"}},
	}}
	h := testHandler(store)
	req := httptest.NewRequest(http.MethodGet,
		"/wfs?SERVICE=WFS&REQUEST=GetFeature&STOREDQUERY_ID="+url.QueryEscape(storedquery.GetFeatureByIDURN)+"&ID=restaurant.1", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Chez Go")
}

func TestFiltersChecksumStableAcrossCallsChangesWithTypeNames(t *testing.T) {
	a := ast.AdhocQuery{TypeNames: []string{"restaurant"}}
	b := ast.AdhocQuery{TypeNames: []string{"restaurant"}}
	c := ast.AdhocQuery{TypeNames: []string{"hotel"}}

	assert.Equal(t, filtersChecksum(a), filtersChecksum(b))
	assert.NotEqual(t, filtersChecksum(a), filtersChecksum(c))
}
