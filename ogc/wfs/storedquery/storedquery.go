// Package storedquery implements the stored query registry and the
// mandatory built-in GetFeatureById query, per spec §4.8/§6 ("Registered
// stored queries").
package storedquery

import (
	"fmt"

	"github.com/pdok/go-wfs-server/ogc/wfs/ast"
	"github.com/pdok/go-wfs-server/ogc/wfs/fes"
	"github.com/pdok/go-wfs-server/ogc/wfs/ogcerr"
	"github.com/pdok/go-wfs-server/ogc/wfs/xsd"
)

// GetFeatureByIDURN is the mandatory built-in stored query id every WFS 2.0
// server implements.
const GetFeatureByIDURN = "urn:ogc:def:query:OGC-WFS::GetFeatureById"

// Parameter describes one stored query parameter, for DescribeStoredQueries.
type Parameter struct {
	Name string
	Type xsd.AtomicType
}

// Resolver turns a stored query's parameter values into the AdhocQuery it
// stands for. Params has already been validated against Parameters by the
// registry before a Resolver runs.
type Resolver func(params map[string]string) (*ast.AdhocQuery, error)

// Definition is one registered stored query.
type Definition struct {
	ID         string
	Title      string
	Abstract   string
	Parameters []Parameter
	Resolve    Resolver
}

// Registry is the process-wide, read-mostly stored query registry (spec §9
// "Global registries"), pre-populated with GetFeatureById; projects may
// register more at bootstrap.
type Registry struct {
	byID map[string]Definition
	order []string
}

// NewRegistry builds a Registry pre-populated with the mandatory
// GetFeatureById stored query.
func NewRegistry() *Registry {
	r := &Registry{byID: make(map[string]Definition)}
	r.Register(getFeatureByIDDefinition())
	return r
}

func (r *Registry) Register(def Definition) {
	if _, exists := r.byID[def.ID]; !exists {
		r.order = append(r.order, def.ID)
	}
	r.byID[def.ID] = def
}

func (r *Registry) Lookup(id string) (Definition, error) {
	def, ok := r.byID[id]
	if !ok {
		return Definition{}, ogcerr.New(ogcerr.InvalidParameterValue, "STOREDQUERY_ID", "unknown stored query id %q", id)
	}
	return def, nil
}

// All returns every registered definition in registration order, for
// ListStoredQueries/DescribeStoredQueries.
func (r *Registry) All() []Definition {
	out := make([]Definition, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.byID[id])
	}
	return out
}

// Resolve looks up sq.ID and runs its Resolver against sq.Params, after
// checking every declared parameter without a default is present.
func (r *Registry) Resolve(sq ast.StoredQuery) (*ast.AdhocQuery, error) {
	def, err := r.Lookup(sq.ID)
	if err != nil {
		return nil, err
	}
	for _, p := range def.Parameters {
		if _, ok := sq.Params[p.Name]; !ok {
			return nil, ogcerr.New(ogcerr.MissingParameterValue, p.Name,
				"stored query %q requires parameter %q", sq.ID, p.Name)
		}
	}
	return def.Resolve(sq.Params)
}

func getFeatureByIDDefinition() Definition {
	return Definition{
		ID:       GetFeatureByIDURN,
		Title:    "Get feature by identifier",
		Abstract: "Returns the single feature whose gml:id matches the ID parameter.",
		Parameters: []Parameter{
			{Name: "ID", Type: xsd.XsString},
		},
		Resolve: resolveGetFeatureByID,
	}
}

// resolveGetFeatureByID lowers ID into a ResourceId filter. ID's
// "<typename>.<id>" shape is CITE's convention (the same one
// fes.ResourceID.TypeNameAndID already parses for ad-hoc RESOURCEID
// filters); an ID with no dot is syntactically invalid for this query,
// which the caller maps to HTTP 404 per spec §6.
func resolveGetFeatureByID(params map[string]string) (*ast.AdhocQuery, error) {
	id := params["ID"]
	rid := fes.ResourceID{RawID: id}
	typeName, _ := rid.TypeNameAndID()
	if typeName == "" {
		return nil, InvalidFeatureID(id)
	}
	return &ast.AdhocQuery{
		TypeNames: []string{typeName},
		Filter:    &fes.Filter{ResourceIDs: []fes.ResourceID{rid}},
	}, nil
}

// InvalidFeatureIDError reports that an id is syntactically malformed for
// GetFeatureById; the HTTP layer maps this distinctly to 404 rather than
// the usual 400 an InvalidParameterValue otherwise gets, per spec §6's CITE
// compatibility carve-out.
type InvalidFeatureIDError struct {
	ID string
}

func (e *InvalidFeatureIDError) Error() string {
	return fmt.Sprintf("invalid feature id %q: expected \"<typename>.<id>\"", e.ID)
}

// InvalidFeatureID builds an *InvalidFeatureIDError for id.
func InvalidFeatureID(id string) error {
	return &InvalidFeatureIDError{ID: id}
}
