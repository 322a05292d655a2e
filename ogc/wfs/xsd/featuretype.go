package xsd

import "github.com/pdok/go-wfs-server/ogc/wfs/crs"

// BBoxPolicy controls whether/how a feature type's bounding box is computed
// for GetCapabilities, per spec §3 "Feature Type ... optional bounding box
// computation policy".
type BBoxPolicy int

const (
	BBoxNever BBoxPolicy = iota
	BBoxFromDatastore
	BBoxPrecomputed
)

// FeatureType is a named exposure of a datastore collection, per spec §3.
type FeatureType struct {
	Namespace string
	LocalName string

	Graph *Graph
	Root  *ComplexType

	DefaultCRS     *crs.CRS
	AdditionalCRS  []*crs.CRS

	Title    string
	Abstract string
	Keywords []string

	BBoxPolicy      BBoxPolicy
	PrecomputedBBox *crs.BBox

	// DatasourceCollection is the name the Datastore knows this feature type
	// by, when it differs from LocalName (spec's "DatasourceID" escape hatch).
	DatasourceCollection string
}

// QName returns the feature type's qualified name, e.g. {http://example.org/gisserver}restaurant.
func (ft *FeatureType) QName() QName {
	return QName{Space: ft.Namespace, Local: ft.LocalName}
}

// CollectionID is the datastore-facing collection identifier.
func (ft *FeatureType) CollectionID() string {
	if ft.DatasourceCollection != "" {
		return ft.DatasourceCollection
	}
	return ft.LocalName
}

// SupportsCRS reports whether uri names the default CRS or one of the
// additionally advertised CRSes.
func (ft *FeatureType) SupportsCRS(candidate *crs.CRS) bool {
	if ft.DefaultCRS.Equal(candidate) {
		return true
	}
	for _, c := range ft.AdditionalCRS {
		if c.Equal(candidate) {
			return true
		}
	}
	return false
}

// GmlIDNode returns the feature type's gml:id attribute node.
func (ft *FeatureType) GmlIDNode() *Node {
	for _, idx := range ft.Root.Attributes() {
		if n := ft.Graph.Node(idx); n.Kind == KindGmlID {
			return n
		}
	}
	return nil
}

// GeometryNodes returns every KindGeometry node directly on the root complex type.
func (ft *FeatureType) GeometryNodes() []*Node {
	var out []*Node
	for _, idx := range ft.Root.Elements() {
		if n := ft.Graph.Node(idx); n.Kind == KindGeometry {
			out = append(out, n)
		}
	}
	return out
}

// DefaultGeometryNode returns the first geometry element, used by BBOX KVP
// lowering and by <fes:BBOX> when it has only one operand (spec §4.3).
func (ft *FeatureType) DefaultGeometryNode() *Node {
	nodes := ft.GeometryNodes()
	if len(nodes) == 0 {
		return nil
	}
	return nodes[0]
}
