package httpapi

import (
	"context"
	"crypto/sha256"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/pdok/go-wfs-server/engine"
	"github.com/pdok/go-wfs-server/ogc/wfs/ast"
	"github.com/pdok/go-wfs-server/ogc/wfs/compiler"
	"github.com/pdok/go-wfs-server/ogc/wfs/datasources"
	"github.com/pdok/go-wfs-server/ogc/wfs/domain"
	"github.com/pdok/go-wfs-server/ogc/wfs/fes"
	"github.com/pdok/go-wfs-server/ogc/wfs/ogcerr"
	"github.com/pdok/go-wfs-server/ogc/wfs/render"
	"github.com/pdok/go-wfs-server/ogc/wfs/storedquery"
	"github.com/pdok/go-wfs-server/ogc/wfs/xsd"
)

// cursorParam is the non-standard pagination parameter this server accepts
// alongside the standard STARTINDEX/COUNT pair: a prior response's next/prev
// link round-trips it back to resume from the last-seen identity rather than
// rescanning by offset, per spec §4.6.
const cursorParam = "CURSOR"

// resolveFeatureTypes looks up the named feature types, or every registered
// feature type when names is empty (DescribeFeatureType's "describe
// everything" form).
func (h *Handler) resolveFeatureTypes(names []string) ([]*xsd.FeatureType, error) {
	if len(names) == 0 {
		all := h.Engine.Registry.All()
		if len(all) == 0 {
			return nil, ogcerr.New(ogcerr.NoApplicableCode, "", "no feature types are registered")
		}
		return all, nil
	}
	out := make([]*xsd.FeatureType, 0, len(names))
	for _, name := range names {
		ft, err := h.Engine.Registry.Lookup(name)
		if err != nil {
			return nil, ogcerr.New(ogcerr.InvalidParameterValue, "typeNames", "%v", err)
		}
		out = append(out, ft)
	}
	return out, nil
}

// resolveAdhocQuery turns req's single Query (ad-hoc or stored) into an
// ast.AdhocQuery. Multiple simultaneous queries are rejected: combining
// several type names into one domain.FeatureCollection is out of scope, the
// same restriction compiler.Compile enforces per query.
func (h *Handler) resolveAdhocQuery(queries []ast.Query) (*ast.AdhocQuery, error) {
	if len(queries) != 1 {
		return nil, ogcerr.New(ogcerr.InvalidParameterValue, "typeNames", "exactly one query is supported per request, got %d", len(queries))
	}
	switch q := queries[0].(type) {
	case ast.AdhocQuery:
		return &q, nil
	case ast.StoredQuery:
		return h.Engine.StoredQueries.Resolve(q)
	default:
		return nil, ogcerr.New(ogcerr.NoApplicableCode, "", "unrecognized query kind %T", q)
	}
}

func (h *Handler) getFeature(w http.ResponseWriter, r *http.Request, req *ast.GetFeatureRequest, reqURL *url.URL) {
	if err := h.checkFeatureByIDExists(r.Context(), req.Queries); err != nil {
		h.writeException(w, r, err)
		return
	}

	adhoc, err := h.resolveAdhocQuery(req.Queries)
	if err != nil {
		h.writeException(w, r, err)
		return
	}

	format := render.ParseFormat(req.OutputFormat)
	if format == "" {
		h.writeException(w, r, ogcerr.New(ogcerr.InvalidParameterValue, "outputFormat", "unsupported outputFormat %q", req.OutputFormat))
		return
	}

	ogcCfg := h.Engine.Config.OgcAPI
	policy := ogcCfg.CRSPolicy()

	cq, err := compiler.Compile(h.Engine.Registry, h.Engine.Functions, *adhoc, req.Count, req.StartIndex,
		req.ResultType, policy, ogcCfg.DefaultPageSize, ogcCfg.MaxPageSizeFor(string(format)))
	if err != nil {
		h.writeException(w, r, err)
		return
	}

	countPolicy := ogcCfg.CountPolicy()
	if req.ResultType == ast.ResultHits {
		// A hits-only request never materializes features, only the count.
		cq.Limit = 0
		countPolicy = domain.CountAlways
	}

	checksum := filtersChecksum(*adhoc)
	cursor := domain.EncodedCursor(reqURL.Query().Get(cursorParam)).Decode(checksum)

	options := datasources.FromCompiledQuery(cq, cursor, countPolicy)

	fc, err := h.Engine.Datastore.GetFeatures(r.Context(), cq.FeatureType, options)
	if err != nil {
		h.writeException(w, r, ogcerr.Wrap(ogcerr.NoApplicableCode, "", err))
		return
	}

	meta := buildMeta(reqURL, cq, fc.TimeStamp, fc.NumberMatched, fc.Cursors)

	it, err := render.Render(format, fc, meta)
	if err != nil {
		h.writeException(w, r, ogcerr.Wrap(ogcerr.NoApplicableCode, "", err))
		return
	}
	stream(w, format, meta, it)
}

// checkFeatureByIDExists backs the built-in GetFeatureById stored query's
// existence check: a syntactically valid id (resolveGetFeatureByID already
// rejects malformed ones) that names no row must still fail, rather than
// fall through to an ad-hoc ResourceId filter and stream an empty, 200 OK
// FeatureCollection.
func (h *Handler) checkFeatureByIDExists(ctx context.Context, queries []ast.Query) error {
	if len(queries) != 1 {
		return nil
	}
	sq, ok := queries[0].(ast.StoredQuery)
	if !ok || sq.ID != storedquery.GetFeatureByIDURN {
		return nil
	}
	id := sq.Params["ID"]
	rid := fes.ResourceID{RawID: id}
	typeName, bareID := rid.TypeNameAndID()
	if typeName == "" {
		return nil
	}
	ft, err := h.Engine.Registry.Lookup(typeName)
	if err != nil {
		return storedquery.InvalidFeatureID(id)
	}
	feature, err := h.Engine.Datastore.GetFeatureByID(ctx, ft, bareID)
	if err != nil {
		return ogcerr.Wrap(ogcerr.NoApplicableCode, "", err)
	}
	if feature == nil {
		return storedquery.InvalidFeatureID(id)
	}
	return nil
}

func (h *Handler) getPropertyValue(w http.ResponseWriter, r *http.Request, req *ast.GetPropertyValueRequest) {
	adhoc, err := h.resolveAdhocQuery(req.Queries)
	if err != nil {
		h.writeException(w, r, err)
		return
	}
	adhoc.PropertyNames = []string{req.ValueReference}

	ogcCfg := h.Engine.Config.OgcAPI
	policy := ogcCfg.CRSPolicy()

	cq, err := compiler.Compile(h.Engine.Registry, h.Engine.Functions, *adhoc, req.Count, req.StartIndex,
		req.ResultType, policy, ogcCfg.DefaultPageSize, ogcCfg.MaxPageSizeFor("gml"))
	if err != nil {
		h.writeException(w, r, err)
		return
	}

	field, err := cq.FeatureType.ResolveXPath(req.ValueReference)
	if err != nil {
		h.writeException(w, r, err)
		return
	}

	checksum := filtersChecksum(*adhoc)
	cursor := domain.EncodedCursor(r.URL.Query().Get(cursorParam)).Decode(checksum)
	options := datasources.FromCompiledQuery(cq, cursor, domain.CountNever)

	fc, err := h.Engine.Datastore.GetFeatures(r.Context(), cq.FeatureType, options)
	if err != nil {
		h.writeException(w, r, ogcerr.Wrap(ogcerr.NoApplicableCode, "", err))
		return
	}

	sfc := &domain.SimpleFeatureCollection{
		ValueReference: req.ValueReference,
		NumberReturned: len(fc.Features),
		Cursors:        fc.Cursors,
	}
	localName := field.Node.LocalName()
	for _, f := range fc.Features {
		if field.Node.IsGeometry() {
			sfc.Values = append(sfc.Values, f.Geometries[localName])
			continue
		}
		sfc.Values = append(sfc.Values, f.Properties[localName])
	}

	meta := buildMeta(r.URL, cq, fc.TimeStamp, nil, fc.Cursors)
	it := render.ValueCollection(sfc, meta)
	stream(w, render.FormatGML, meta, it)
}

func buildMeta(reqURL *url.URL, cq *compiler.CompiledQuery, generatedAt time.Time, numberMatched *int, cursors domain.Cursors) render.Meta {
	return render.Meta{
		TypeNames:   []string{cq.FeatureType.LocalName},
		GeneratedAt: generatedAt,
		OutputCRS:   cq.OutputCRS,
		FeatureType: cq.FeatureType,
		NumberTotal: numberMatched,
		SelfURL:     reqURL.String(),
		NextURL:     withCursor(reqURL, cursorParam, cursors.Next, cursors.HasNext),
		PrevURL:     withCursor(reqURL, cursorParam, cursors.Prev, cursors.HasPrev),
	}
}

func withCursor(reqURL *url.URL, param string, cursor domain.EncodedCursor, has bool) string {
	if !has {
		return ""
	}
	out := *reqURL
	q := out.Query()
	q.Set(param, string(cursor))
	out.RawQuery = q.Encode()
	return out.String()
}

// stream pushes each chunk it produces directly onto w, setting headers before the
// first byte so a mid-stream failure still leaves the client with a
// well-formed (if truncated) document.
func stream(w http.ResponseWriter, format render.Format, meta render.Meta, it render.ChunkIterator) {
	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Disposition", meta.ContentDisposition(format))
	w.WriteHeader(http.StatusOK)

	for {
		chunk := it()
		engine.SafeWrite(w.Write, chunk.Bytes)
		if !chunk.More {
			return
		}
	}
}

// filtersChecksum hashes the parts of an ad-hoc query that determine row
// order and membership, so domain.EncodedCursor.Decode can tell a resumed
// page apart from one whose filter/sort changed mid-pagination.
func filtersChecksum(q ast.AdhocQuery) []byte {
	h := sha256.New()
	fmt.Fprintf(h, "%v|%v|%v|%v|%v", q.TypeNames, q.Filter, q.BBox, q.SortBy, q.SRSName)
	return h.Sum(nil)
}
