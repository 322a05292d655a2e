package xsd

import "strings"

// FieldSpec declares one field of a feature type: either a scalar column, a
// flattened/dotted path into a related table, or a nested complex sub-tree
// (array, M2M, or to-one relation), per spec §4.2's "declarative feature-type
// specification".
type FieldSpec struct {
	// XMLName is the exposed element/attribute local name, e.g. "name", "rating".
	XMLName string
	// XMLNamespace overrides the feature type's own namespace for this field;
	// empty means "use the feature type's namespace" (the common case, "app:" prefix).
	XMLNamespace string

	// DataSourcePath is the dotted relation walk to this field's column,
	// relative to the parent field (or to the feature's root table, for
	// top-level fields). Required for scalar/geometry leaves.
	DataSourcePath string

	// DBKind declares the column's datastore type; used to auto-generate the
	// XSD atomic type. Leave empty (with AtomicType set) to declare the type
	// explicitly instead of inferring it.
	DBKind     DBFieldKind
	AtomicType AtomicType // explicit override; wins over DBKind when set

	MinOccurs int
	MaxOccursUnbounded bool // true => array / M2M / reverse relation
	Nillable  bool
	IsAttribute bool

	// Children declares a nested complex sub-tree; when non-empty this field
	// becomes a KindElement node whose Complex type has these fields.
	Children []FieldSpec

	// IdentityIsLong selects xs:long over xs:int for a DBIdentity field.
	IdentityIsLong bool
}

// FeatureTypeSpec is the declarative input to BuildFeatureType.
type FeatureTypeSpec struct {
	Namespace string
	LocalName string
	// GmlIDPrefix is the prefix used when rendering gml:id, e.g. "restaurant"
	// so ids render as "restaurant.42".
	GmlIDPrefix string
	// GmlIDPath is the data-source path to the field backing gml:id (usually the PK).
	GmlIDPath string
	// IdentityIsLong selects xs:long over xs:int for the gml:id attribute's declared type.
	IdentityIsLong bool

	// NamePath, when set, exposes a gml:name element sourced from this data-source path.
	NamePath string

	Fields []FieldSpec
}

// BuildFeatureType constructs a Graph plus its root ComplexType from a
// declarative FeatureTypeSpec, applying the auto-generation mapping rules of
// spec §4.2.
func BuildFeatureType(spec FeatureTypeSpec) (*Graph, *ComplexType) {
	g := NewGraph()
	root := buildComplexType(g, NoParent, QName{Space: spec.Namespace, Local: spec.LocalName}, spec.Fields, "")

	// gml:id attribute, carrying feature identity.
	idNode := &Node{
		parent:         NoParent,
		Name:           QName{Space: "http://www.opengis.net/gml/3.2", Local: "id"},
		Kind:           KindGmlID,
		Atomic:         AtomicTypeFor(DBIdentity, spec.IdentityIsLong),
		MinOccurs:      1,
		MaxOccurs:      1,
		DataSourcePath: spec.GmlIDPath,
		LocalPath:      spec.GmlIDPath,
	}
	idIdx := g.addNode(idNode)
	root.attrs = append([]NodeIndex{idIdx}, root.attrs...)

	if spec.NamePath != "" {
		nameNode := &Node{
			parent:         NoParent,
			Name:           QName{Space: "http://www.opengis.net/gml/3.2", Local: "name"},
			Kind:           KindGmlName,
			Atomic:         XsString,
			MinOccurs:      0,
			MaxOccurs:      1,
			Nillable:       true,
			DataSourcePath: spec.NamePath,
			LocalPath:      spec.NamePath,
		}
		nameIdx := g.addNode(nameNode)
		root.elements = append([]NodeIndex{nameIdx}, root.elements...)
	}

	boundedByNode := &Node{
		parent:    NoParent,
		Name:      QName{Space: "http://www.opengis.net/gml/3.2", Local: "boundedBy"},
		Kind:      KindGmlBoundedBy,
		Atomic:    GmlGeometryPropertyType,
		MinOccurs: 0,
		MaxOccurs: 1,
		Nillable:  true,
	}
	boundedByIdx := g.addNode(boundedByNode)
	root.elements = append([]NodeIndex{boundedByIdx}, root.elements...)

	return g, root
}

func buildComplexType(g *Graph, parent NodeIndex, name QName, fields []FieldSpec, pathPrefix string) *ComplexType {
	ct := &ComplexType{Name: name}
	for _, f := range fields {
		idx := buildField(g, parent, f, pathPrefix)
		n := g.Node(idx)
		if n.IsAttribute() {
			ct.attrs = append(ct.attrs, idx)
		} else {
			ct.elements = append(ct.elements, idx)
		}
	}
	return ct
}

func buildField(g *Graph, parent NodeIndex, f FieldSpec, pathPrefix string) NodeIndex {
	dataSourcePath := f.DataSourcePath
	if pathPrefix != "" && dataSourcePath != "" {
		dataSourcePath = pathPrefix + "." + dataSourcePath
	} else if pathPrefix != "" {
		dataSourcePath = pathPrefix
	}

	maxOccurs := 1
	if f.MaxOccursUnbounded {
		maxOccurs = Unbounded
	}

	n := &Node{
		parent:         parent,
		Name:           QName{Local: f.XMLName},
		MinOccurs:      f.MinOccurs,
		MaxOccurs:      maxOccurs,
		Nillable:       f.Nillable,
		DataSourcePath: dataSourcePath,
		LocalPath:      f.DataSourcePath,
	}
	if f.IsAttribute {
		n.Kind = KindAttribute
	} else {
		n.Kind = KindElement
	}

	switch {
	case len(f.Children) > 0:
		idx := g.addNode(n)
		n.Complex = buildComplexType(g, idx, QName{Local: f.XMLName}, f.Children, dataSourcePath)
		n.Atomic = ""
		return idx

	case f.AtomicType != "":
		n.Atomic = f.AtomicType
		if IsGeometryKind(f.DBKind) {
			n.Kind = KindGeometry
			n.GeometryKind = f.DBKind
		}
		return g.addNode(n)

	default:
		n.Atomic = AtomicTypeFor(f.DBKind, f.IdentityIsLong)
		if IsGeometryKind(f.DBKind) {
			n.Kind = KindGeometry
			n.GeometryKind = f.DBKind
		}
		return g.addNode(n)
	}
}

// splitDotted splits a dotted data-source or XPath segment, trimming an
// optional leading/trailing slash so "parent/child/grandchild" and
// "parent.child.grandchild" both lower to the same segment list.
func splitDotted(path string) []string {
	path = strings.Trim(path, "./")
	if path == "" {
		return nil
	}
	path = strings.ReplaceAll(path, "/", ".")
	return strings.Split(path, ".")
}
