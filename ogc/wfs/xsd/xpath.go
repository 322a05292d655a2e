package xsd

import (
	"strings"

	"github.com/pdok/go-wfs-server/ogc/wfs/ogcerr"
)

// XPathMatch is the result of resolving a WFS/FES XPath expression against a
// feature type's schema graph, per spec §4.2.
type XPathMatch struct {
	Node           *Node
	DataSourcePath string
	FieldName      string
}

// ResolveXPath accepts the XPath forms enumerated in spec §4.2:
//
//	app:local, local (with or without namespace prefix)
//	dotted paths: parent/child, parent/child/grandchild
//	attribute axis: @gml:id, @ns:attr
//	root descent via the feature's own element name
//
// Resolution is deterministic and namespace-correct; an "app:"-prefixed path
// resolves even when "app" isn't declared on the request, for CITE compat
// (spec §4.2 invariants).
func (ft *FeatureType) ResolveXPath(expr string) (*XPathMatch, error) {
	expr = strings.TrimSpace(expr)
	original := expr

	// Root descent: "app:restaurant/name" resolves exactly like "name".
	rootPrefix := ft.LocalName + "/"
	if strings.HasPrefix(expr, rootPrefix) {
		expr = strings.TrimPrefix(expr, rootPrefix)
	}
	for _, qualifiedRoot := range []string{"app:" + ft.LocalName + "/", ft.Namespace + ":" + ft.LocalName + "/"} {
		if strings.HasPrefix(expr, qualifiedRoot) {
			expr = strings.TrimPrefix(expr, qualifiedRoot)
		}
	}

	segments := strings.Split(expr, "/")
	if len(segments) == 0 || (len(segments) == 1 && segments[0] == "") {
		return nil, ogcerr.New(ogcerr.InvalidParameterValue, original, "empty XPath expression")
	}

	elements := ft.Root
	graph := ft.Graph
	var current *Node

	for i, seg := range segments {
		seg = strings.TrimSpace(seg)
		isAttr := strings.HasPrefix(seg, "@")
		seg = strings.TrimPrefix(seg, "@")
		localName := stripPrefix(seg)

		var found *Node
		if isAttr || i == len(segments)-1 {
			for _, idx := range elements.attrs {
				n := graph.Node(idx)
				if n.LocalName() == localName {
					found = n
					break
				}
			}
		}
		if found == nil {
			for _, idx := range elements.elements {
				n := graph.Node(idx)
				if n.LocalName() == localName {
					found = n
					break
				}
			}
		}
		if found == nil {
			return nil, ogcerr.New(ogcerr.InvalidParameterValue, original,
				"cannot resolve XPath segment %q in %q", seg, original)
		}

		current = found
		if i < len(segments)-1 {
			if current.Complex == nil {
				return nil, ogcerr.New(ogcerr.InvalidParameterValue, original,
					"%q is not a complex element, cannot descend into %q", seg, segments[i+1])
			}
			elements = current.Complex
		}
	}

	return &XPathMatch{
		Node:           current,
		DataSourcePath: current.DataSourcePath,
		FieldName:      current.LocalName(),
	}, nil
}

// stripPrefix removes a leading "ns:" prefix for comparison purposes. Per
// spec §4.3, ValueReference prefixes are stripped for comparison when no
// prefix mapping is in scope; we apply the same rule uniformly here since
// the schema graph itself is keyed by local name within each complex type.
func stripPrefix(name string) string {
	if idx := strings.IndexByte(name, ':'); idx >= 0 {
		return name[idx+1:]
	}
	return name
}
