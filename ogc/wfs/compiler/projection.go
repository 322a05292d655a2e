package compiler

import (
	"github.com/pdok/go-wfs-server/ogc/wfs/crs"
	"github.com/pdok/go-wfs-server/ogc/wfs/xsd"
)

// ReprojectionPlan records whether and how output geometries need to be
// transformed before rendering, per spec §4.5. It is computed once per
// compiled query rather than once per feature, since every feature in a
// single query shares the same storage and output CRS.
type ReprojectionPlan struct {
	StorageCRS *crs.CRS
	OutputCRS  *crs.CRS
}

// NeedsTransform reports whether geometries must be run through a
// Reprojector before emission (spec §4.1's bounded transform cache).
func (p ReprojectionPlan) NeedsTransform() bool {
	return !p.StorageCRS.Equal(p.OutputCRS)
}

// PrefetchPlan lists the unbounded (array/to-many) child paths a
// projection touches, each of which needs its own follow-up query against
// the datastore rather than being satisfiable by the single flat row scan
// MapRowsToFeatures performs, per spec §4.5's "nested content needs a
// prefetch plan" note.
type PrefetchPlan struct {
	Paths []string
}

// BuildReprojectionPlan derives the plan for a compiled query's output CRS.
func BuildReprojectionPlan(ft *xsd.FeatureType, outputCRS *crs.CRS) ReprojectionPlan {
	return ReprojectionPlan{StorageCRS: ft.DefaultCRS, OutputCRS: outputCRS}
}

// BuildPrefetchPlan walks a projection's selected fields (or the whole
// schema, when the projection is "all") and collects every unbounded
// complex child's data-source path.
func BuildPrefetchPlan(projection *Projection) PrefetchPlan {
	var paths []string
	ft := projection.FeatureType
	var walk func(nodes []xsd.NodeIndex)
	walk = func(nodes []xsd.NodeIndex) {
		for _, idx := range nodes {
			n := ft.Graph.Node(idx)
			if !projection.All && !includesNode(projection.Fields, n) {
				continue
			}
			if n.IsMany() && n.Complex != nil {
				paths = append(paths, n.DataSourcePath)
			}
			if n.Complex != nil {
				walk(n.Complex.Elements())
			}
		}
	}
	walk(ft.Root.Elements())
	return PrefetchPlan{Paths: paths}
}

func includesNode(fields []*xsd.Node, n *xsd.Node) bool {
	for _, f := range fields {
		if f.Index() == n.Index() {
			return true
		}
	}
	return false
}
