package ast

import (
	"strconv"
	"strings"

	"github.com/beevik/etree"
	"github.com/pdok/go-wfs-server/ogc/wfs/crs"
	"github.com/pdok/go-wfs-server/ogc/wfs/ogcerr"
)

// ParseGetFeatureXML builds a GetFeatureRequest from a <wfs:GetFeature>
// document root, dispatching each <Query>/<StoredQuery> child by tag per
// spec §4.3.
func ParseGetFeatureXML(root *etree.Element, policy crs.Policy) (*GetFeatureRequest, error) {
	ns := ResolveFrom(root)
	req := &GetFeatureRequest{Count: -1, ResultType: ResultResults}

	if v := root.SelectAttrValue("count", ""); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, badReq("count", v)
		}
		req.Count = n
	}
	if v := root.SelectAttrValue("startIndex", ""); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, badReq("startIndex", v)
		}
		req.StartIndex = n
	}
	req.OutputFormat = root.SelectAttrValue("outputFormat", "")
	if strings.EqualFold(root.SelectAttrValue("resultType", "results"), "hits") {
		req.ResultType = ResultHits
	}

	for _, child := range root.ChildElements() {
		switch child.Tag {
		case "Query":
			q, err := parseAdhocQueryXML(child, ns, policy)
			if err != nil {
				return nil, err
			}
			req.Queries = append(req.Queries, *q)
		case "StoredQuery":
			q, err := parseStoredQueryXML(child)
			if err != nil {
				return nil, err
			}
			req.Queries = append(req.Queries, *q)
		default:
			return nil, badReq("query", child.Tag)
		}
	}
	if len(req.Queries) == 0 {
		return nil, ogcerr.New(ogcerr.MissingParameterValue, "query", "GetFeature requires at least one Query or StoredQuery")
	}
	return req, nil
}

// ParseGetPropertyValueXML parses a <wfs:GetPropertyValue> document; it
// carries exactly one query, per spec §4.3.
func ParseGetPropertyValueXML(root *etree.Element, policy crs.Policy) (*GetPropertyValueRequest, error) {
	base, err := ParseGetFeatureXML(root, policy)
	if err != nil {
		return nil, err
	}
	if len(base.Queries) != 1 {
		return nil, ogcerr.New(ogcerr.InvalidParameterValue, "query", "GetPropertyValue requires exactly one Query")
	}
	valueRef := strings.TrimSpace(root.SelectAttrValue("valueReference", ""))
	if valueRef == "" {
		return nil, ogcerr.New(ogcerr.MissingParameterValue, "valueReference", "GetPropertyValue requires valueReference")
	}
	return &GetPropertyValueRequest{GetFeatureRequest: *base, ValueReference: valueRef}, nil
}

func parseAdhocQueryXML(el *etree.Element, ns *NamespaceContext, policy crs.Policy) (*AdhocQuery, error) {
	q := &AdhocQuery{SRSName: el.SelectAttrValue("srsName", "")}

	typeNames := el.SelectAttrValue("typeNames", el.SelectAttrValue("typeName", ""))
	if typeNames == "" {
		return nil, ogcerr.New(ogcerr.MissingParameterValue, "typeNames", "Query requires typeNames")
	}
	q.TypeNames = strings.Fields(typeNames)
	if aliases := el.SelectAttrValue("aliases", ""); aliases != "" {
		q.Aliases = strings.Fields(aliases)
	}

	for _, child := range el.ChildElements() {
		switch child.Tag {
		case "PropertyName":
			q.PropertyNames = append(q.PropertyNames, strings.TrimSpace(child.Text()))
		case "Filter":
			f, err := ParseFilter(child, ns, policy)
			if err != nil {
				return nil, err
			}
			q.Filter = f
		case "SortBy":
			sb, err := parseSortByXML(child)
			if err != nil {
				return nil, err
			}
			q.SortBy = sb
		}
	}
	return q, nil
}

func parseSortByXML(el *etree.Element) ([]SortProperty, error) {
	var out []SortProperty
	for _, prop := range el.SelectElements("SortProperty") {
		ref := prop.FindElement("ValueReference")
		if ref == nil {
			ref = prop.FindElement("PropertyName")
		}
		if ref == nil {
			return nil, badReq("SortBy", "missing ValueReference")
		}
		order := "ASC"
		if o := prop.FindElement("SortOrder"); o != nil {
			order = strings.ToUpper(strings.TrimSpace(o.Text()))
		}
		out = append(out, SortProperty{
			ValueReference: strings.TrimSpace(ref.Text()),
			Ascending:      order != "DESC" && order != "DESCENDING",
		})
	}
	return out, nil
}

func parseStoredQueryXML(el *etree.Element) (*StoredQuery, error) {
	id := el.SelectAttrValue("id", "")
	if id == "" {
		return nil, ogcerr.New(ogcerr.MissingParameterValue, "id", "StoredQuery requires an id attribute")
	}
	q := &StoredQuery{ID: id, Params: map[string]string{}}
	for _, param := range el.SelectElements("Parameter") {
		name := param.SelectAttrValue("name", "")
		if name == "" {
			continue
		}
		q.Params[name] = strings.TrimSpace(param.Text())
	}
	return q, nil
}

// ParseDescribeFeatureTypeXML parses a <wfs:DescribeFeatureType> document.
func ParseDescribeFeatureTypeXML(root *etree.Element) (*DescribeFeatureTypeRequest, error) {
	req := &DescribeFeatureTypeRequest{OutputFormat: root.SelectAttrValue("outputFormat", "")}
	for _, tn := range root.SelectElements("TypeName") {
		req.TypeNames = append(req.TypeNames, strings.TrimSpace(tn.Text()))
	}
	return req, nil
}

// ParseGetCapabilitiesXML parses a <wfs:GetCapabilities> document.
func ParseGetCapabilitiesXML(root *etree.Element) (*GetCapabilitiesRequest, error) {
	req := &GetCapabilitiesRequest{}
	if versions := root.FindElement("AcceptVersions"); versions != nil {
		for _, v := range versions.SelectElements("Version") {
			req.AcceptVersions = append(req.AcceptVersions, strings.TrimSpace(v.Text()))
		}
	}
	if sections := root.FindElement("Sections"); sections != nil {
		for _, s := range sections.SelectElements("Section") {
			req.Sections = append(req.Sections, strings.TrimSpace(s.Text()))
		}
	}
	return req, nil
}

// ParseDescribeStoredQueriesXML parses a <wfs:DescribeStoredQueries> document.
func ParseDescribeStoredQueriesXML(root *etree.Element) (*DescribeStoredQueriesRequest, error) {
	req := &DescribeStoredQueriesRequest{}
	for _, id := range root.SelectElements("StoredQueryId") {
		req.StoredQueryIDs = append(req.StoredQueryIDs, strings.TrimSpace(id.Text()))
	}
	return req, nil
}

func badReq(param, value string) *ogcerr.Exception {
	return ogcerr.New(ogcerr.InvalidParameterValue, param, "invalid value %q", value)
}
