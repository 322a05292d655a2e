// Package capabilities composes the two WFS 2.0 service-metadata XML
// documents: GetCapabilities and DescribeFeatureType, per spec §4.8.
package capabilities

import (
	"strconv"

	"github.com/beevik/etree"
	"github.com/pdok/go-wfs-server/ogc/wfs/fes"
	"github.com/pdok/go-wfs-server/ogc/wfs/xsd"
)

const (
	nsWFS  = "http://www.opengis.net/wfs/2.0"
	nsOWS  = "http://www.opengis.net/ows/1.1"
	nsFES  = "http://www.opengis.net/fes/2.0"
	nsGML  = "http://www.opengis.net/gml/3.2"
	nsXSI  = "http://www.w3.org/2001/XMLSchema-instance"
	nsApp  = "http://example.org/app" // overridden per feature type's own namespace below
)

// ServiceIdentification is the `ows:ServiceIdentification` block.
type ServiceIdentification struct {
	Title             string
	Abstract          string
	Keywords          []string
	Fees              string
	AccessConstraints string
}

// ServiceProvider is the `ows:ServiceProvider` block.
type ServiceProvider struct {
	ProviderName  string
	ProviderSite  string
	ContactPerson string
	ContactEmail  string
}

// ServiceInfo carries everything GetCapabilities needs beyond the feature
// type and function registries, i.e. the config-supplied parts of spec §6's
// configuration surface and spec §4.8's service identification/provider.
type ServiceInfo struct {
	Identification ServiceIdentification
	Provider       ServiceProvider

	// BaseURL is the externally visible endpoint, used to build every
	// operation's GET/POST hrefs (e.g. "https://example.org/wfs").
	BaseURL string

	// CapabilitiesBoundingBox mirrors the config flag of the same name:
	// include each feature type's extent when its BBoxPolicy allows it.
	CapabilitiesBoundingBox bool
}

var operationNames = []string{
	"GetCapabilities", "DescribeFeatureType", "GetFeature",
	"GetPropertyValue", "ListStoredQueries", "DescribeStoredQueries",
}

// Build composes the GetCapabilities document for the given registries and
// service info, returning serialized UTF-8 XML.
func Build(info ServiceInfo, registry *xsd.Registry, functions *fes.FunctionRegistry) ([]byte, error) {
	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)

	root := doc.CreateElement("wfs:WFS_Capabilities")
	root.CreateAttr("xmlns:wfs", nsWFS)
	root.CreateAttr("xmlns:ows", nsOWS)
	root.CreateAttr("xmlns:fes", nsFES)
	root.CreateAttr("xmlns:gml", nsGML)
	root.CreateAttr("xmlns:xsi", nsXSI)
	root.CreateAttr("version", "2.0.0")

	buildServiceIdentification(root, info.Identification)
	buildServiceProvider(root, info.Provider)
	buildOperationsMetadata(root, info.BaseURL)
	buildFeatureTypeList(root, registry, info.CapabilitiesBoundingBox)
	buildFilterCapabilities(root, functions)

	doc.Indent(2)
	return doc.WriteToBytes()
}

func buildServiceIdentification(root *etree.Element, id ServiceIdentification) {
	el := root.CreateElement("ows:ServiceIdentification")
	el.CreateElement("ows:Title").SetText(id.Title)
	if id.Abstract != "" {
		el.CreateElement("ows:Abstract").SetText(id.Abstract)
	}
	for _, kw := range id.Keywords {
		el.CreateElement("ows:Keywords").CreateElement("ows:Keyword").SetText(kw)
	}
	el.CreateElement("ows:ServiceType").SetText("WFS")
	el.CreateElement("ows:ServiceTypeVersion").SetText("2.0.0")
	if id.Fees != "" {
		el.CreateElement("ows:Fees").SetText(id.Fees)
	}
	if id.AccessConstraints != "" {
		el.CreateElement("ows:AccessConstraints").SetText(id.AccessConstraints)
	}
}

func buildServiceProvider(root *etree.Element, p ServiceProvider) {
	if p.ProviderName == "" {
		return
	}
	el := root.CreateElement("ows:ServiceProvider")
	el.CreateElement("ows:ProviderName").SetText(p.ProviderName)
	if p.ProviderSite != "" {
		el.CreateElement("ows:ProviderSite").CreateAttr("xlink:href", p.ProviderSite)
	}
	if p.ContactPerson != "" || p.ContactEmail != "" {
		contact := el.CreateElement("ows:ServiceContact")
		if p.ContactPerson != "" {
			contact.CreateElement("ows:IndividualName").SetText(p.ContactPerson)
		}
		if p.ContactEmail != "" {
			info := contact.CreateElement("ows:ContactInfo").CreateElement("ows:Address")
			info.CreateElement("ows:ElectronicMailAddress").SetText(p.ContactEmail)
		}
	}
}

func buildOperationsMetadata(root *etree.Element, baseURL string) {
	om := root.CreateElement("ows:OperationsMetadata")
	for _, name := range operationNames {
		op := om.CreateElement("ows:Operation")
		op.CreateAttr("name", name)
		for _, method := range []string{"Get", "Post"} {
			dcp := op.CreateElement("ows:DCP").CreateElement("ows:HTTP").CreateElement("ows:" + method)
			dcp.CreateAttr("xlink:href", baseURL)
		}
	}

	addParam := func(name string, values ...string) {
		p := om.CreateElement("ows:Parameter")
		p.CreateAttr("name", name)
		allowed := p.CreateElement("ows:AllowedValues")
		for _, v := range values {
			allowed.CreateElement("ows:Value").SetText(v)
		}
	}
	addParam("service", "WFS")
	addParam("version", "2.0.0", "1.1.0", "1.0.0")
	addParam("AcceptVersions", "2.0.0", "1.1.0", "1.0.0")
	addParam("outputFormat", "gml/3.2.1", "application/geo+json", "text/csv")
}

func buildFeatureTypeList(root *etree.Element, registry *xsd.Registry, includeBBox bool) {
	list := root.CreateElement("wfs:FeatureTypeList")
	for _, ft := range registry.All() {
		el := list.CreateElement("wfs:FeatureType")
		name := el.CreateElement("wfs:Name")
		name.SetText("app:" + ft.LocalName)
		name.CreateAttr("xmlns:app", ft.Namespace)

		title := ft.Title
		if title == "" {
			title = ft.LocalName
		}
		el.CreateElement("wfs:Title").SetText(title)
		if ft.Abstract != "" {
			el.CreateElement("wfs:Abstract").SetText(ft.Abstract)
		}
		for _, kw := range ft.Keywords {
			el.CreateElement("ows:Keywords").CreateElement("ows:Keyword").SetText(kw)
		}

		el.CreateElement("wfs:DefaultCRS").SetText(ft.DefaultCRS.URI())
		for _, c := range ft.AdditionalCRS {
			el.CreateElement("wfs:OtherCRS").SetText(c.URI())
		}

		outputFormats := el.CreateElement("wfs:OutputFormats")
		for _, f := range []string{"application/gml+xml; version=3.2", "application/geo+json", "text/csv"} {
			outputFormats.CreateElement("wfs:Format").SetText(f)
		}

		if includeBBox && ft.BBoxPolicy != xsd.BBoxNever && ft.PrecomputedBBox != nil {
			bbox := el.CreateElement("ows:WGS84BoundingBox")
			lower, upper := ft.PrecomputedBBox.Lower, ft.PrecomputedBBox.Upper
			bbox.CreateElement("ows:LowerCorner").SetText(formatBBoxCorner(lower))
			bbox.CreateElement("ows:UpperCorner").SetText(formatBBoxCorner(upper))
		}
	}
}

func formatBBoxCorner(c [2]float64) string {
	return fmtFloat(c[0]) + " " + fmtFloat(c[1])
}

func fmtFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func buildFilterCapabilities(root *etree.Element, functions *fes.FunctionRegistry) {
	fc := root.CreateElement("fes:Filter_Capabilities")

	conformance := fc.CreateElement("fes:Conformance")
	addConstraint := func(name string, value bool) {
		c := conformance.CreateElement("fes:Constraint")
		c.CreateAttr("name", name)
		text := "FALSE"
		if value {
			text = "TRUE"
		}
		c.CreateElement("ows:NoValues")
		c.CreateElement("ows:DefaultValue").SetText(text)
	}
	addConstraint("ImplementsQuery", true)
	addConstraint("ImplementsAdHocQuery", true)
	addConstraint("ImplementsFunctions", true)
	addConstraint("ImplementsResourceId", true)
	addConstraint("ImplementsMinStandardFilter", true)
	addConstraint("ImplementsStandardFilter", true)
	addConstraint("ImplementsMinSpatialFilter", true)
	addConstraint("ImplementsSpatialFilter", true)
	addConstraint("ImplementsSorting", true)
	addConstraint("ImplementsMinTemporalFilter", false)
	addConstraint("ImplementsTemporalFilter", false)
	addConstraint("ImplementsVersionNav", false)

	scalar := fc.CreateElement("fes:Scalar_Capabilities")
	scalar.CreateElement("fes:LogicalOperators")
	comparisons := scalar.CreateElement("fes:ComparisonOperators")
	for _, name := range []string{
		"PropertyIsEqualTo", "PropertyIsNotEqualTo", "PropertyIsLessThan",
		"PropertyIsGreaterThan", "PropertyIsLessThanOrEqualTo", "PropertyIsGreaterThanOrEqualTo",
		"PropertyIsLike", "PropertyIsBetween", "PropertyIsNull", "PropertyIsNil",
	} {
		comparisons.CreateElement("fes:ComparisonOperator").CreateAttr("name", name)
	}

	spatial := fc.CreateElement("fes:Spatial_Capabilities")
	geomOps := spatial.CreateElement("fes:GeometryOperands")
	for _, t := range []string{"gml:Point", "gml:LineString", "gml:Polygon", "gml:MultiPoint", "gml:MultiCurve", "gml:MultiSurface", "gml:Envelope"} {
		geomOps.CreateElement("fes:GeometryOperand").CreateAttr("name", t)
	}
	spatialOps := spatial.CreateElement("fes:SpatialOperators")
	for _, name := range []string{
		"BBOX", "Intersects", "Contains", "Crosses", "Disjoint",
		"Equals", "Overlaps", "Touches", "Within", "DWithin", "Beyond",
	} {
		spatialOps.CreateElement("fes:SpatialOperator").CreateAttr("name", name)
	}

	functionsEl := fc.CreateElement("fes:Functions")
	for _, def := range functions.All() {
		f := functionsEl.CreateElement("fes:Function")
		f.CreateAttr("name", def.Name)
		f.CreateElement("fes:Returns").SetText(string(def.ReturnType))
		// Argument names aren't tracked by FunctionDef (only arity bounds
		// are, for compile-time checking), so fes:Arguments is left empty
		// rather than inventing placeholder names.
		f.CreateElement("fes:Arguments")
	}
}
