package capabilities

import (
	"fmt"

	"github.com/beevik/etree"
	"github.com/pdok/go-wfs-server/ogc/wfs/xsd"
)

// DescribeFeatureType renders the xs:schema document for the given feature
// types, per spec §4.8: every xsd.ComplexType becomes an xs:complexType,
// every element an xs:element, every attribute an xs:attribute, with min/max
// occurs and type QNames taken straight from the schema graph.
func DescribeFeatureType(featureTypes []*xsd.FeatureType) ([]byte, error) {
	if len(featureTypes) == 0 {
		return nil, fmt.Errorf("capabilities: DescribeFeatureType requires at least one feature type")
	}

	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)

	schema := doc.CreateElement("xsd:schema")
	schema.CreateAttr("xmlns:xsd", "http://www.w3.org/2001/XMLSchema")
	schema.CreateAttr("xmlns:gml", nsGML)
	schema.CreateAttr("xmlns:app", featureTypes[0].Namespace)
	schema.CreateAttr("targetNamespace", featureTypes[0].Namespace)
	schema.CreateAttr("elementFormDefault", "qualified")
	schema.CreateAttr("attributeFormDefault", "unqualified")

	gmlImport := schema.CreateElement("xsd:import")
	gmlImport.CreateAttr("namespace", nsGML)
	gmlImport.CreateAttr("schemaLocation", "http://schemas.opengis.net/gml/3.2.1/gml.xsd")

	for _, ft := range featureTypes {
		writeFeatureTypeSchema(schema, ft)
	}

	doc.Indent(2)
	return doc.WriteToBytes()
}

func writeFeatureTypeSchema(schema *etree.Element, ft *xsd.FeatureType) {
	typeName := ft.LocalName + "Type"

	complexType := schema.CreateElement("xsd:complexType")
	complexType.CreateAttr("name", typeName)
	content := complexType.CreateElement("xsd:complexContent")
	ext := content.CreateElement("xsd:extension")
	ext.CreateAttr("base", "gml:AbstractFeatureType")
	seq := ext.CreateElement("xsd:sequence")

	for _, idx := range ft.Root.Elements() {
		writeElementNode(schema, seq, ft, ft.Graph.Node(idx))
	}
	for _, idx := range ft.Root.Attributes() {
		node := ft.Graph.Node(idx)
		if node.Kind == xsd.KindGmlID {
			continue // carried by gml:AbstractFeatureType's own gml:id attribute
		}
		writeAttributeNode(ext, node)
	}

	element := schema.CreateElement("xsd:element")
	element.CreateAttr("name", ft.LocalName)
	element.CreateAttr("type", "app:"+typeName)
	element.CreateAttr("substitutionGroup", "gml:AbstractFeature")
}

// writeElementNode appends node as an xsd:element under seq. schema is
// threaded through so a nested complex node can add its named
// xsd:complexType definition as a sibling of the feature type's own,
// instead of nesting it anonymously inline.
func writeElementNode(schema, seq *etree.Element, ft *xsd.FeatureType, node *xsd.Node) {
	if node.Complex != nil {
		writeNestedComplexType(schema, seq, ft, node)
		return
	}

	el := seq.CreateElement("xsd:element")
	el.CreateAttr("name", node.LocalName())
	el.CreateAttr("type", string(node.Atomic))
	writeOccurs(el, node)
	if node.Nillable {
		el.CreateAttr("nillable", "true")
	}
}

func writeNestedComplexType(schema, seq *etree.Element, ft *xsd.FeatureType, node *xsd.Node) {
	nestedTypeName := node.LocalName() + "Type"

	nested := schema.CreateElement("xsd:complexType")
	nested.CreateAttr("name", nestedTypeName)
	nestedSeq := nested.CreateElement("xsd:sequence")
	for _, idx := range node.Complex.Elements() {
		writeElementNode(schema, nestedSeq, ft, ft.Graph.Node(idx))
	}
	for _, idx := range node.Complex.Attributes() {
		writeAttributeNode(nested, ft.Graph.Node(idx))
	}

	el := seq.CreateElement("xsd:element")
	el.CreateAttr("name", node.LocalName())
	el.CreateAttr("type", "app:"+nestedTypeName)
	writeOccurs(el, node)
}

func writeAttributeNode(parent *etree.Element, node *xsd.Node) {
	attr := parent.CreateElement("xsd:attribute")
	attr.CreateAttr("name", node.LocalName())
	attr.CreateAttr("type", string(node.Atomic))
	if node.MinOccurs > 0 {
		attr.CreateAttr("use", "required")
	}
}

func writeOccurs(el *etree.Element, node *xsd.Node) {
	el.CreateAttr("minOccurs", fmt.Sprintf("%d", node.MinOccurs))
	if node.MaxOccurs == xsd.Unbounded {
		el.CreateAttr("maxOccurs", "unbounded")
	} else {
		el.CreateAttr("maxOccurs", fmt.Sprintf("%d", node.MaxOccurs))
	}
}
