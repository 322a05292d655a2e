package ast

import (
	"net/url"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/pdok/go-wfs-server/ogc/wfs/crs"
)

// TestAdhocQueryFilter_KVPAndXMLAgree exercises spec's namespace idempotence
// property from the other direction: the same <fes:Filter> document, fed
// through the KVP front end (FILTER=<url-encoded XML>) and the XML front end
// (the same document as a GetFeature body), must lower to the identical
// fes.Filter AST. Diff via go-cmp rather than reflect.DeepEqual since Filter
// nests interface-typed Expression/NonIdOperator fields.
func TestAdhocQueryFilter_KVPAndXMLAgree(t *testing.T) {
	filterXML := `<fes:Filter xmlns:fes="http://www.opengis.net/fes/2.0">` +
		`<fes:PropertyIsGreaterThanOrEqualTo>` +
		`<fes:ValueReference>app:rating</fes:ValueReference>` +
		`<fes:Literal>3.0</fes:Literal>` +
		`</fes:PropertyIsGreaterThanOrEqualTo></fes:Filter>`

	values := url.Values{
		"TYPENAMES": {"app:restaurant"},
		"FILTER":    {filterXML},
	}
	kvpQueries, err := adhocQueriesFromKVP(NewKVP(values), crs.Policy{})
	if err != nil {
		t.Fatalf("adhocQueriesFromKVP: %v", err)
	}
	if len(kvpQueries) != 1 {
		t.Fatalf("expected one query, got %d", len(kvpQueries))
	}

	xmlBody := `<wfs:GetFeature xmlns:wfs="http://www.opengis.net/wfs/2.0" xmlns:fes="http://www.opengis.net/fes/2.0">` +
		`<wfs:Query typeNames="app:restaurant">` + filterXML + `</wfs:Query></wfs:GetFeature>`
	root := mustParseXML(t, xmlBody)
	xmlReq, err := ParseGetFeatureXML(root, crs.Policy{})
	if err != nil {
		t.Fatalf("ParseGetFeatureXML: %v", err)
	}
	if len(xmlReq.Queries) != 1 {
		t.Fatalf("expected one query, got %d", len(xmlReq.Queries))
	}
	xmlAdhoc, ok := xmlReq.Queries[0].(AdhocQuery)
	if !ok {
		t.Fatalf("expected AdhocQuery, got %T", xmlReq.Queries[0])
	}

	if diff := cmp.Diff(kvpQueries[0].Filter, xmlAdhoc.Filter); diff != "" {
		t.Errorf("KVP and XML filters diverge (-kvp +xml):\n%s", diff)
	}
}
