// Package httpapi is the thin HTTP dispatch glue binding one "/wfs" route
// to the ast/compiler/domain/render pipeline, per spec §6 "External
// Interfaces". It owns version/operation routing, KVP-vs-XML front end
// selection, and the boundary between "errors before any byte is written"
// (ExceptionReport + HTTP status) and "errors mid-stream" (format-specific
// truncation marker, handled entirely inside the render package).
package httpapi

import (
	"context"
	"errors"
	"io"
	"log"
	"net/http"
	"strings"

	"github.com/beevik/etree"
	"github.com/google/uuid"

	"github.com/pdok/go-wfs-server/engine"
	"github.com/pdok/go-wfs-server/ogc/wfs/ast"
	"github.com/pdok/go-wfs-server/ogc/wfs/capabilities"
	"github.com/pdok/go-wfs-server/ogc/wfs/ogcerr"
	"github.com/pdok/go-wfs-server/ogc/wfs/storedquery"
)

// Handler serves the WFS 2.0 endpoint: one request in, one streamed
// response out, per spec §5's "one request-scoped task per HTTP request"
// scheduling model.
type Handler struct {
	Engine *engine.Engine
}

// NewHandler builds a Handler from a bootstrapped Engine.
func NewHandler(e *engine.Engine) *Handler {
	return &Handler{Engine: e}
}

type requestIDKeyType struct{}

var requestIDKey requestIDKeyType

// ServeHTTP dispatches a GET(KVP) or POST(XML) WFS request. It stamps the
// request with a correlation id, echoed back in X-Request-Id and attached to
// any error logged while handling it, so a report against one request's
// ProcessingFailed exception can be matched back to the datastore error that
// caused it.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	reqID := uuid.NewString()
	w.Header().Set("X-Request-Id", reqID)
	r = r.WithContext(context.WithValue(r.Context(), requestIDKey, reqID))

	switch r.Method {
	case http.MethodGet:
		h.serveKVP(w, r)
	case http.MethodPost:
		h.serveXML(w, r)
	default:
		h.writeException(w, r, ogcerr.New(ogcerr.OperationNotSupported, "", "method %s not supported", r.Method))
	}
}

func (h *Handler) serveKVP(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	operation := ast.OperationName(ast.NewKVP(query))

	policy := h.Engine.Config.OgcAPI.CRSPolicy()

	switch strings.ToUpper(operation) {
	case "GETCAPABILITIES":
		h.getCapabilities(w, r)

	case "DESCRIBEFEATURETYPE":
		kvp := ast.NewKVP(query)
		typeNames, _ := kvp.Get("TYPENAMES")
		req := &ast.DescribeFeatureTypeRequest{}
		if typeNames != "" {
			req.TypeNames = strings.Split(typeNames, ",")
		}
		h.describeFeatureType(w, r, req)

	case "GETFEATURE":
		req, err := ast.ParseGetFeatureKVP(query, policy)
		if err != nil {
			h.writeException(w, r, err)
			return
		}
		h.getFeature(w, r, req, r.URL)

	case "GETPROPERTYVALUE":
		base, err := ast.ParseGetFeatureKVP(query, policy)
		if err != nil {
			h.writeException(w, r, err)
			return
		}
		kvp := ast.NewKVP(query)
		valueRef, _ := kvp.Get("VALUEREFERENCE")
		if valueRef == "" {
			h.writeException(w, r, ogcerr.New(ogcerr.MissingParameterValue, "valueReference", "GetPropertyValue requires valueReference"))
			return
		}
		h.getPropertyValue(w, r, &ast.GetPropertyValueRequest{GetFeatureRequest: *base, ValueReference: valueRef})

	case "LISTSTOREDQUERIES":
		h.listStoredQueries(w, r)

	case "DESCRIBESTOREDQUERIES":
		kvp := ast.NewKVP(query)
		req := &ast.DescribeStoredQueriesRequest{}
		if ids, ok := kvp.Get("STOREDQUERY_ID"); ok {
			req.StoredQueryIDs = strings.Split(ids, ",")
		}
		h.describeStoredQueries(w, r, req)

	case "":
		h.writeException(w, r, ogcerr.New(ogcerr.MissingParameterValue, "request", "REQUEST parameter is required"))

	default:
		h.writeException(w, r, ogcerr.New(ogcerr.OperationNotSupported, "request", "unsupported operation %q", operation))
	}
}

func (h *Handler) serveXML(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		h.writeException(w, r, ogcerr.New(ogcerr.OperationParsingFailed, "", "failed to read request body: %v", err))
		return
	}

	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(body); err != nil {
		h.writeException(w, r, ogcerr.New(ogcerr.OperationParsingFailed, "", "request body is not well-formed XML: %v", err))
		return
	}
	root := doc.Root()
	if root == nil {
		h.writeException(w, r, ogcerr.New(ogcerr.OperationParsingFailed, "", "request body has no root element"))
		return
	}

	policy := h.Engine.Config.OgcAPI.CRSPolicy()

	switch root.Tag {
	case "GetCapabilities":
		h.getCapabilities(w, r)

	case "DescribeFeatureType":
		req, err := ast.ParseDescribeFeatureTypeXML(root)
		if err != nil {
			h.writeException(w, r, err)
			return
		}
		h.describeFeatureType(w, r, req)

	case "GetFeature":
		req, err := ast.ParseGetFeatureXML(root, policy)
		if err != nil {
			h.writeException(w, r, err)
			return
		}
		h.getFeature(w, r, req, r.URL)

	case "GetPropertyValue":
		req, err := ast.ParseGetPropertyValueXML(root, policy)
		if err != nil {
			h.writeException(w, r, err)
			return
		}
		h.getPropertyValue(w, r, req)

	case "ListStoredQueries":
		h.listStoredQueries(w, r)

	case "DescribeStoredQueries":
		req, err := ast.ParseDescribeStoredQueriesXML(root)
		if err != nil {
			h.writeException(w, r, err)
			return
		}
		h.describeStoredQueries(w, r, req)

	default:
		h.writeException(w, r, ogcerr.New(ogcerr.OperationNotSupported, "", "unsupported request root <%s>", root.Tag))
	}
}

func (h *Handler) getCapabilities(w http.ResponseWriter, r *http.Request) {
	cfg := h.Engine.Config
	baseURL := ""
	if cfg.BaseURL.URL != nil {
		baseURL = cfg.BaseURL.String()
	}
	info := capabilities.ServiceInfo{
		Identification: capabilities.ServiceIdentification{
			Title:             cfg.Title,
			Abstract:          cfg.Abstract,
			Fees:              cfg.Fees,
			AccessConstraints: cfg.AccessConstraints,
		},
		Provider: capabilities.ServiceProvider{
			ProviderName:  cfg.Provider.Name,
			ProviderSite:  cfg.Provider.Site,
			ContactPerson: cfg.Provider.ContactPerson,
			ContactEmail:  cfg.Provider.ContactEmail,
		},
		BaseURL:                 baseURL,
		CapabilitiesBoundingBox: cfg.OgcAPI.CapabilitiesBoundingBox,
	}
	body, err := capabilities.Build(info, h.Engine.Registry, h.Engine.Functions)
	if err != nil {
		h.writeException(w, r, ogcerr.Wrap(ogcerr.NoApplicableCode, "", err))
		return
	}
	writeXML(w, http.StatusOK, body)
}

func (h *Handler) describeFeatureType(w http.ResponseWriter, r *http.Request, req *ast.DescribeFeatureTypeRequest) {
	types, err := h.resolveFeatureTypes(req.TypeNames)
	if err != nil {
		h.writeException(w, r, err)
		return
	}
	body, err := capabilities.DescribeFeatureType(types)
	if err != nil {
		h.writeException(w, r, ogcerr.Wrap(ogcerr.NoApplicableCode, "", err))
		return
	}
	writeXML(w, http.StatusOK, body)
}

func (h *Handler) listStoredQueries(w http.ResponseWriter, r *http.Request) {
	body, err := storedquery.ListStoredQueries(h.Engine.StoredQueries.All())
	if err != nil {
		h.writeException(w, r, ogcerr.Wrap(ogcerr.NoApplicableCode, "", err))
		return
	}
	writeXML(w, http.StatusOK, body)
}

func (h *Handler) describeStoredQueries(w http.ResponseWriter, r *http.Request, req *ast.DescribeStoredQueriesRequest) {
	defs := h.Engine.StoredQueries.All()
	if len(req.StoredQueryIDs) > 0 {
		wanted := make(map[string]bool, len(req.StoredQueryIDs))
		for _, id := range req.StoredQueryIDs {
			wanted[id] = true
		}
		var filtered []storedquery.Definition
		for _, d := range defs {
			if wanted[d.ID] {
				filtered = append(filtered, d)
			}
		}
		defs = filtered
	}
	body, err := storedquery.DescribeStoredQueries(defs)
	if err != nil {
		h.writeException(w, r, ogcerr.Wrap(ogcerr.NoApplicableCode, "", err))
		return
	}
	writeXML(w, http.StatusOK, body)
}

// writeException renders err as an ows:ExceptionReport at the HTTP status
// its exceptionCode maps to, per spec §6/§7. Called only before any response
// byte has been written. r's correlation id (see ServeHTTP) is logged
// alongside server-side failures so a report can be traced back to the
// request that caused it.
func (h *Handler) writeException(w http.ResponseWriter, r *http.Request, err error) {
	var exc *ogcerr.Exception
	if !ogcerr.As(err, &exc) {
		exc = ogcerr.Wrap(ogcerr.NoApplicableCode, "", err)
	}

	status := exc.HTTPStatus()
	var invalidID *storedquery.InvalidFeatureIDError
	if errors.As(err, &invalidID) {
		status = http.StatusNotFound
		if h.Engine.Config.OgcAPI.WfsStrictStandard {
			status = http.StatusBadRequest
		}
	}

	if status >= http.StatusInternalServerError {
		reqID, _ := r.Context().Value(requestIDKey).(string)
		log.Printf("[%s] %s", reqID, exc.Error())
	}

	body, rerr := ogcerr.Report(exc)
	if rerr != nil {
		reqID, _ := r.Context().Value(requestIDKey).(string)
		log.Printf("[%s] failed to render exception report: %v", reqID, rerr)
		http.Error(w, exc.Error(), status)
		return
	}
	writeXML(w, status, body)
}

func writeXML(w http.ResponseWriter, status int, body []byte) {
	w.Header().Set("Content-Type", "application/xml; charset=utf-8")
	w.WriteHeader(status)
	engine.SafeWrite(w.Write, body)
}
