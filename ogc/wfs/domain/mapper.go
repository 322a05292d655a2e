package domain

import (
	"fmt"
	"time"

	"github.com/go-spatial/geom"
	"github.com/jmoiron/sqlx"
	"github.com/pdok/go-wfs-server/ogc/wfs/crs"
	"github.com/pdok/go-wfs-server/ogc/wfs/xsd"
)

// GeometryDecoder turns a backend-specific encoded geometry column value
// into a go-spatial/geom.Geometry; geopackage and postgis each supply their
// own (gpkg.DecodeGeometry / ewkb, respectively).
type GeometryDecoder func([]byte) (geom.Geometry, error)

// MapRowsToFeatures is the datastore-agnostic row mapper: given a result set
// whose column names match the feature type's field DataSourcePaths, it
// builds one Feature per row, resolving each column against the schema
// graph instead of hard-coding a fixed fid/geometry column pair.
func MapRowsToFeatures(rows *sqlx.Rows, ft *xsd.FeatureType, decodeGeom GeometryDecoder) ([]*Feature, PrevNextID, error) {
	idNode := ft.GmlIDNode()
	if idNode == nil {
		return nil, PrevNextID{}, fmt.Errorf("feature type %s has no identity field", ft.QName())
	}

	byPath := fieldsByDataSourcePath(ft)

	columns, err := rows.Columns()
	if err != nil {
		return nil, PrevNextID{}, err
	}

	var features []*Feature
	var prev, next string
	for rows.Next() {
		values, err := rows.SliceScan()
		if err != nil {
			return nil, PrevNextID{}, err
		}
		feature := &Feature{
			TypeName:   ft.QName(),
			Properties: make(map[string]any),
			Geometries: make(map[string]*crs.Geometry),
		}
		var prevfid, nextfid string
		for i, column := range columns {
			value := values[i]
			switch column {
			case "prevfid":
				prevfid = stringify(value)
				continue
			case "nextfid":
				nextfid = stringify(value)
				continue
			case "minx", "miny", "maxx", "maxy":
				continue
			}
			if value == nil {
				continue
			}
			if column == idNode.DataSourcePath {
				feature.ID = renderID(ft, value)
				continue
			}

			node, ok := byPath[column]
			if !ok {
				continue
			}
			if node.Kind == xsd.KindGmlName {
				feature.Name = stringify(value)
				continue
			}
			if node.IsGeometry() {
				raw, ok := value.([]byte)
				if !ok {
					return nil, PrevNextID{}, fmt.Errorf("column %q: expected geometry bytes, got %T", column, value)
				}
				g, err := decodeGeom(raw)
				if err != nil {
					return nil, PrevNextID{}, fmt.Errorf("decoding geometry column %q: %w", column, err)
				}
				feature.Geometries[node.LocalName()] = &crs.Geometry{CRS: ft.DefaultCRS, Geom: g}
				continue
			}
			feature.Properties[node.LocalName()] = normalizeScalar(value)
		}
		if prevfid != "" {
			prev = prevfid
		}
		if nextfid != "" {
			next = nextfid
		}
		features = append(features, feature)
	}
	if err := rows.Err(); err != nil {
		return nil, PrevNextID{}, err
	}
	return features, PrevNextID{Prev: prev, Next: next}, nil
}

func fieldsByDataSourcePath(ft *xsd.FeatureType) map[string]*xsd.Node {
	out := make(map[string]*xsd.Node)
	var walk func(ct *xsd.ComplexType)
	walk = func(ct *xsd.ComplexType) {
		for _, idx := range ct.Elements() {
			n := ft.Graph.Node(idx)
			if n.DataSourcePath != "" {
				out[n.DataSourcePath] = n
			}
			if n.Complex != nil {
				walk(n.Complex)
			}
		}
		for _, idx := range ct.Attributes() {
			n := ft.Graph.Node(idx)
			if n.DataSourcePath != "" {
				out[n.DataSourcePath] = n
			}
		}
	}
	walk(ft.Root)
	return out
}

func renderID(ft *xsd.FeatureType, value any) string {
	return fmt.Sprintf("%s.%v", ft.LocalName, value)
}

func stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case []byte:
		return string(t)
	case string:
		return t
	default:
		return fmt.Sprintf("%v", t)
	}
}

// normalizeScalar mirrors gokoala's mapper.go type switch on driver-returned
// column values, widening []byte (as returned by the sqlite3/mattn driver
// for TEXT columns) to string.
func normalizeScalar(v any) any {
	switch t := v.(type) {
	case []byte:
		out := make([]byte, len(t))
		copy(out, t)
		return string(out)
	case time.Time:
		return t
	default:
		return t
	}
}
