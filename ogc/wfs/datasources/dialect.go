package datasources

import (
	"fmt"

	"github.com/pdok/go-wfs-server/ogc/wfs/fes"
)

// Dialect isolates the handful of SQL spellings that differ between the
// geopackage (SpatiaLite) and postgis backends: spatial predicate function
// names, how a WKT literal becomes a typed geometry value, and how a
// geometry column is coerced before comparison. Everything else (named
// parameter binding, boolean/comparison/function rendering) is shared.
type Dialect struct {
	Name string

	// GeomFromWKT renders an inline SQL expression that turns the bound
	// parameters wktParam/sridParam into a native geometry value.
	GeomFromWKT func(wktParam, sridParam string) string

	// CastGeometryColumn wraps a geometry column reference so it can be
	// compared against a GeomFromWKT value (SpatiaLite's castautomagic;
	// PostGIS geometry columns need no cast).
	CastGeometryColumn func(columnSQL string) string

	// SpatialFunc renders the dialect's spatial predicate function call
	// given the already-rendered field and geometry SQL fragments.
	SpatialFunc func(op fes.SpatialOp, fieldSQL, geomSQL string, distance float64, unit fes.DistanceUnit) (string, error)
}

// SpatiaLiteDialect targets gokoala's SpatiaLite-extended SQLite backend.
var SpatiaLiteDialect = Dialect{
	Name: "spatialite",
	GeomFromWKT: func(wktParam, sridParam string) string {
		return fmt.Sprintf("geomfromtext(:%s, :%s)", wktParam, sridParam)
	},
	CastGeometryColumn: func(columnSQL string) string {
		return fmt.Sprintf("castautomagic(%s)", columnSQL)
	},
	SpatialFunc: func(op fes.SpatialOp, fieldSQL, geomSQL string, distance float64, unit fes.DistanceUnit) (string, error) {
		switch op {
		case fes.OpBBOX, fes.OpIntersects:
			return fmt.Sprintf("st_intersects(%s, %s) = 1", fieldSQL, geomSQL), nil
		case fes.OpContains:
			return fmt.Sprintf("st_contains(%s, %s) = 1", fieldSQL, geomSQL), nil
		case fes.OpCrosses:
			return fmt.Sprintf("st_crosses(%s, %s) = 1", fieldSQL, geomSQL), nil
		case fes.OpDisjoint:
			return fmt.Sprintf("st_disjoint(%s, %s) = 1", fieldSQL, geomSQL), nil
		case fes.OpEquals:
			return fmt.Sprintf("st_equals(%s, %s) = 1", fieldSQL, geomSQL), nil
		case fes.OpOverlaps:
			return fmt.Sprintf("st_overlaps(%s, %s) = 1", fieldSQL, geomSQL), nil
		case fes.OpTouches:
			return fmt.Sprintf("st_touches(%s, %s) = 1", fieldSQL, geomSQL), nil
		case fes.OpWithin:
			return fmt.Sprintf("st_within(%s, %s) = 1", fieldSQL, geomSQL), nil
		case fes.OpDWithin:
			return fmt.Sprintf("st_distance(%s, %s) <= %f", fieldSQL, geomSQL, distance), nil
		case fes.OpBeyond:
			return fmt.Sprintf("st_distance(%s, %s) > %f", fieldSQL, geomSQL, distance), nil
		default:
			return "", fmt.Errorf("unsupported spatial operator %v", op)
		}
	},
}

// PostGISDialect targets a PostGIS-backed lib/pq connection.
var PostGISDialect = Dialect{
	Name: "postgis",
	GeomFromWKT: func(wktParam, sridParam string) string {
		return fmt.Sprintf("ST_SetSRID(ST_GeomFromText(:%s), :%s)", wktParam, sridParam)
	},
	CastGeometryColumn: func(columnSQL string) string { return columnSQL },
	SpatialFunc: func(op fes.SpatialOp, fieldSQL, geomSQL string, distance float64, unit fes.DistanceUnit) (string, error) {
		switch op {
		case fes.OpBBOX:
			return fmt.Sprintf("%s && %s", fieldSQL, geomSQL), nil
		case fes.OpIntersects:
			return fmt.Sprintf("ST_Intersects(%s, %s)", fieldSQL, geomSQL), nil
		case fes.OpContains:
			return fmt.Sprintf("ST_Contains(%s, %s)", fieldSQL, geomSQL), nil
		case fes.OpCrosses:
			return fmt.Sprintf("ST_Crosses(%s, %s)", fieldSQL, geomSQL), nil
		case fes.OpDisjoint:
			return fmt.Sprintf("ST_Disjoint(%s, %s)", fieldSQL, geomSQL), nil
		case fes.OpEquals:
			return fmt.Sprintf("ST_Equals(%s, %s)", fieldSQL, geomSQL), nil
		case fes.OpOverlaps:
			return fmt.Sprintf("ST_Overlaps(%s, %s)", fieldSQL, geomSQL), nil
		case fes.OpTouches:
			return fmt.Sprintf("ST_Touches(%s, %s)", fieldSQL, geomSQL), nil
		case fes.OpWithin:
			return fmt.Sprintf("ST_Within(%s, %s)", fieldSQL, geomSQL), nil
		case fes.OpDWithin:
			return fmt.Sprintf("ST_DWithin(%s, %s, %f)", fieldSQL, geomSQL, distance), nil
		case fes.OpBeyond:
			return fmt.Sprintf("NOT ST_DWithin(%s, %s, %f)", fieldSQL, geomSQL, distance), nil
		default:
			return "", fmt.Errorf("unsupported spatial operator %v", op)
		}
	},
}
