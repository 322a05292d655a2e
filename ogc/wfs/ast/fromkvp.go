package ast

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/beevik/etree"
	"github.com/pdok/go-wfs-server/ogc/wfs/crs"
	"github.com/pdok/go-wfs-server/ogc/wfs/fes"
	"github.com/pdok/go-wfs-server/ogc/wfs/ogcerr"
)

// ParseGetFeatureKVP lowers a GetFeature KVP request into the same AST
// ParseGetFeatureXML produces, per spec §4.3's "one AST, two front ends"
// design. TYPENAMES (and its grouped FILTER/BBOX companions) may describe
// several ad-hoc queries at once; STOREDQUERY_ID describes exactly one
// stored-query invocation and is mutually exclusive with TYPENAMES.
func ParseGetFeatureKVP(values url.Values, policy crs.Policy) (*GetFeatureRequest, error) {
	kvp := NewKVP(values)
	req := &GetFeatureRequest{Count: -1, ResultType: ResultResults}

	if v, ok := kvp.Get("COUNT"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, badReq("count", v)
		}
		req.Count = n
	}
	if v, ok := kvp.Get("STARTINDEX"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, badReq("startIndex", v)
		}
		req.StartIndex = n
	}
	req.OutputFormat, _ = kvp.Get("OUTPUTFORMAT")
	if v, ok := kvp.Get("RESULTTYPE"); ok && strings.EqualFold(v, "hits") {
		req.ResultType = ResultHits
	}

	if id, ok := kvp.Get("STOREDQUERY_ID"); ok {
		req.Queries = append(req.Queries, StoredQuery{ID: id, Params: storedQueryParams(kvp)})
		return req, nil
	}

	queries, err := adhocQueriesFromKVP(kvp, policy)
	if err != nil {
		return nil, err
	}
	if len(queries) == 0 {
		return nil, ogcerr.New(ogcerr.MissingParameterValue, "typeNames", "GetFeature KVP requires TYPENAMES or STOREDQUERY_ID")
	}
	for _, q := range queries {
		req.Queries = append(req.Queries, q)
	}
	return req, nil
}

// storedQueryParams lifts every KVP key other than the fixed GetFeature
// parameters into the stored query's parameter map, per spec §4.8: stored
// query parameters ride alongside the standard KVP keys with no distinct
// prefix, so any key not reserved by GetFeature itself is forwarded.
func storedQueryParams(kvp KVP) map[string]string {
	reserved := map[string]bool{
		"SERVICE": true, "VERSION": true, "REQUEST": true, "COUNT": true,
		"STARTINDEX": true, "OUTPUTFORMAT": true, "RESULTTYPE": true,
		"STOREDQUERY_ID": true, "MAXFEATURES": true,
	}
	params := make(map[string]string)
	for k, v := range kvp {
		if !reserved[k] {
			params[strings.ToUpper(k)] = v
		}
	}
	return params
}

func adhocQueriesFromKVP(kvp KVP, policy crs.Policy) ([]AdhocQuery, error) {
	typeNamesRaw, ok := kvp.Get("TYPENAMES")
	if !ok {
		return nil, nil
	}
	typeGroups := GroupedList(typeNamesRaw)

	filterGroups, err := filtersFromKVP(kvp, policy, len(typeGroups))
	if err != nil {
		return nil, err
	}
	bboxGroups, err := bboxesFromKVP(kvp, policy, len(typeGroups))
	if err != nil {
		return nil, err
	}
	sortBy, err := sortByFromKVP(kvp)
	if err != nil {
		return nil, err
	}
	var propertyNameGroups [][]string
	if raw, ok := kvp.Get("PROPERTYNAME"); ok {
		propertyNameGroups = GroupedList(raw)
	}
	srsName, _ := kvp.Get("SRSNAME")
	var aliasGroups [][]string
	if raw, ok := kvp.Get("ALIASES"); ok {
		aliasGroups = GroupedList(raw)
	}

	if len(filterGroups) > 0 && len(bboxGroups) > 0 {
		return nil, ogcerr.New(ogcerr.InvalidParameterValue, "bbox", "BBOX cannot be combined with FILTER")
	}

	queries := make([]AdhocQuery, len(typeGroups))
	for i, typeNames := range typeGroups {
		q := AdhocQuery{TypeNames: typeNames, SRSName: srsName, SortBy: sortBy}
		if i < len(filterGroups) {
			q.Filter = filterGroups[i]
		}
		if i < len(bboxGroups) {
			q.BBox = bboxGroups[i]
		}
		if i < len(propertyNameGroups) {
			q.PropertyNames = propertyNameGroups[i]
		}
		if i < len(aliasGroups) {
			q.Aliases = aliasGroups[i]
		}
		queries[i] = q
	}

	if ids, ok := kvp.Get("RESOURCEID"); ok {
		rf, err := resourceIDFilter(ids)
		if err != nil {
			return nil, err
		}
		for i := range queries {
			queries[i].Filter = mergeResourceIDFilter(queries[i].Filter, rf)
		}
	}
	return queries, nil
}

func mergeResourceIDFilter(existing *fes.Filter, rf *fes.Filter) *fes.Filter {
	if existing == nil {
		return rf
	}
	existing.ResourceIDs = append(existing.ResourceIDs, rf.ResourceIDs...)
	return existing
}

func resourceIDFilter(raw string) (*fes.Filter, error) {
	f := &fes.Filter{}
	for _, id := range splitTrim(raw, ",") {
		if id == "" {
			continue
		}
		f.ResourceIDs = append(f.ResourceIDs, fes.ResourceID{RawID: id})
	}
	return f, nil
}

// filtersFromKVP parses the FILTER parameter, a (possibly grouped) list of
// URL-embedded <fes:Filter> XML documents, one per ad-hoc query group.
func filtersFromKVP(kvp KVP, policy crs.Policy, numGroups int) ([]*fes.Filter, error) {
	raw, ok := kvp.Get("FILTER")
	if !ok {
		return nil, nil
	}
	groups := splitFilterList(raw, numGroups)
	out := make([]*fes.Filter, len(groups))
	for i, xml := range groups {
		xml = strings.TrimSpace(xml)
		if xml == "" {
			continue
		}
		doc := etree.NewDocument()
		if err := doc.ReadFromString(xml); err != nil {
			return nil, ogcerr.New(ogcerr.InvalidParameterValue, "filter", "FILTER is not well-formed XML: %v", err)
		}
		if doc.Root() == nil {
			return nil, ogcerr.New(ogcerr.InvalidParameterValue, "filter", "FILTER has no root element")
		}
		ns := ResolveFrom(doc.Root())
		f, err := ParseFilter(doc.Root(), ns, policy)
		if err != nil {
			return nil, err
		}
		out[i] = f
	}
	return out, nil
}

// splitFilterList splits a FILTER value into numGroups documents. A single
// ad-hoc query never needs splitting; multiple groups are separated by ")("
// at the top level between parenthesized filter documents, mirroring
// GroupedList's convention for TYPENAMES/BBOX.
func splitFilterList(raw string, numGroups int) []string {
	if numGroups <= 1 || !strings.HasPrefix(strings.TrimSpace(raw), "(") {
		return []string{raw}
	}
	raw = strings.TrimSpace(raw)
	raw = strings.TrimPrefix(raw, "(")
	raw = strings.TrimSuffix(raw, ")")
	return strings.Split(raw, ")(")
}

func bboxesFromKVP(kvp KVP, policy crs.Policy, numGroups int) ([]*crs.BBox, error) {
	raw, ok := kvp.Get("BBOX")
	if !ok {
		return nil, nil
	}
	groups := GroupedList(raw)
	if numGroups <= 1 {
		groups = [][]string{splitTrim(raw, ",")}
	}
	out := make([]*crs.BBox, len(groups))
	for i, fields := range groups {
		b, err := parseBBoxFields(fields, policy)
		if err != nil {
			return nil, err
		}
		out[i] = b
	}
	return out, nil
}

func parseBBoxFields(fields []string, policy crs.Policy) (*crs.BBox, error) {
	if len(fields) != 4 && len(fields) != 5 {
		return nil, ogcerr.New(ogcerr.InvalidParameterValue, "bbox", "BBOX requires 4 or 5 comma-separated values")
	}
	var ords [4]float64
	for i := 0; i < 4; i++ {
		v, err := strconv.ParseFloat(fields[i], 64)
		if err != nil {
			return nil, ogcerr.New(ogcerr.InvalidParameterValue, "bbox", "invalid BBOX ordinate %q", fields[i])
		}
		ords[i] = v
	}
	// BBOX ordinates are always given in x/y order regardless of the named
	// CRS's authority-native axis order (spec §4.3); only the CRS identity
	// carries forward to the compiled predicate.
	c := crs.CRS84
	if len(fields) == 5 {
		parsed, err := crs.FromURI(fields[4], policy)
		if err != nil {
			return nil, err
		}
		c = parsed
	}
	bbox := crs.NewBBox(c, ords[0], ords[1], ords[2], ords[3])
	return &bbox, nil
}

func sortByFromKVP(kvp KVP) ([]SortProperty, error) {
	raw, ok := kvp.Get("SORTBY")
	if !ok {
		return nil, nil
	}
	var out []SortProperty
	for _, item := range splitTrim(raw, ",") {
		if item == "" {
			continue
		}
		fields := strings.Fields(item)
		sp := SortProperty{ValueReference: fields[0], Ascending: true}
		if len(fields) > 1 {
			sp.Ascending = sortOrderIsAscending(fields[1])
		}
		out = append(out, sp)
	}
	return out, nil
}
