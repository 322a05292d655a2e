// Package xsd implements the schema graph described in spec §3 "XSD graph"
// and §4.2: a typed tree of elements/attributes per feature type, each
// carrying an explicit data-source path into the underlying datastore, plus
// the XPath resolver WFS/FES expressions are matched against.
package xsd

import "fmt"

// AtomicType is one of the fixed xs:/gml: leaf type names a scalar XsdElement
// can resolve to.
type AtomicType string

const (
	XsString    AtomicType = "xs:string"
	XsBoolean   AtomicType = "xs:boolean"
	XsInt       AtomicType = "xs:int"
	XsLong      AtomicType = "xs:long"
	XsDouble    AtomicType = "xs:double"
	XsDecimal   AtomicType = "xs:decimal"
	XsDate      AtomicType = "xs:date"
	XsDateTime  AtomicType = "xs:dateTime"
	XsAnyType   AtomicType = "xs:anyType"

	GmlGeometryPropertyType      AtomicType = "gml:GeometryPropertyType"
	GmlPointPropertyType         AtomicType = "gml:PointPropertyType"
	GmlCurvePropertyType         AtomicType = "gml:CurvePropertyType"
	GmlSurfacePropertyType       AtomicType = "gml:SurfacePropertyType"
	GmlMultiPointPropertyType    AtomicType = "gml:MultiPointPropertyType"
	GmlMultiCurvePropertyType    AtomicType = "gml:MultiCurvePropertyType"
	GmlMultiSurfacePropertyType  AtomicType = "gml:MultiSurfacePropertyType"
	GmlMultiGeometryPropertyType AtomicType = "gml:MultiGeometryPropertyType"
)

// DBFieldKind is the datastore's declared column kind, used to auto-generate
// the matching atomic xs: type per spec §4.2.
type DBFieldKind string

const (
	DBString   DBFieldKind = "string"
	DBText     DBFieldKind = "text"
	DBBool     DBFieldKind = "bool"
	DBInt32    DBFieldKind = "int32"
	DBInt64    DBFieldKind = "int64"
	DBFloat32  DBFieldKind = "float32"
	DBFloat64  DBFieldKind = "float64"
	DBDecimal  DBFieldKind = "decimal"
	DBDate     DBFieldKind = "date"
	DBDateTime DBFieldKind = "datetime"

	DBGeometryPoint           DBFieldKind = "geometry:point"
	DBGeometryLineString      DBFieldKind = "geometry:linestring"
	DBGeometryPolygon         DBFieldKind = "geometry:polygon"
	DBGeometryMultiPoint      DBFieldKind = "geometry:multipoint"
	DBGeometryMultiLineString DBFieldKind = "geometry:multilinestring"
	DBGeometryMultiPolygon    DBFieldKind = "geometry:multipolygon"
	DBGeometryAny             DBFieldKind = "geometry:any"

	DBIdentity DBFieldKind = "identity"
)

// AtomicTypeFor maps a datastore field kind to the XSD atomic type advertised
// in DescribeFeatureType, per spec §4.2's auto-generation rules: unknown
// scalar -> xs:anyType, unknown geometry -> gml:GeometryPropertyType,
// identity -> xs:int or xs:long.
func AtomicTypeFor(kind DBFieldKind, identityIsLong bool) AtomicType {
	switch kind {
	case DBString, DBText:
		return XsString
	case DBBool:
		return XsBoolean
	case DBInt32:
		return XsInt
	case DBInt64:
		return XsLong
	case DBFloat32, DBFloat64:
		return XsDouble
	case DBDecimal:
		return XsDecimal
	case DBDate:
		return XsDate
	case DBDateTime:
		return XsDateTime
	case DBGeometryPoint:
		return GmlPointPropertyType
	case DBGeometryLineString:
		return GmlCurvePropertyType
	case DBGeometryPolygon:
		return GmlSurfacePropertyType
	case DBGeometryMultiPoint:
		return GmlMultiPointPropertyType
	case DBGeometryMultiLineString:
		return GmlMultiCurvePropertyType
	case DBGeometryMultiPolygon:
		return GmlMultiSurfacePropertyType
	case DBGeometryAny:
		return GmlGeometryPropertyType
	case DBIdentity:
		if identityIsLong {
			return XsLong
		}
		return XsInt
	default:
		return XsAnyType
	}
}

// IsGeometryKind reports whether kind is one of the DBGeometry* variants.
func IsGeometryKind(kind DBFieldKind) bool {
	switch kind {
	case DBGeometryPoint, DBGeometryLineString, DBGeometryPolygon,
		DBGeometryMultiPoint, DBGeometryMultiLineString, DBGeometryMultiPolygon, DBGeometryAny:
		return true
	default:
		return false
	}
}

// QName is a namespace-qualified XML name.
type QName struct {
	Space string
	Local string
}

func (q QName) String() string {
	if q.Space == "" {
		return q.Local
	}
	return fmt.Sprintf("{%s}%s", q.Space, q.Local)
}
