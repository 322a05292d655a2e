// Package crs represents coordinate reference systems and implements
// geometry reprojection and axis-order handling, per spec §3 "CRS" and
// §4.1 "CRS & Geometry". Axis swapping only ever happens at the parse
// (input) and emit (output) boundaries; in-memory coordinates are always
// stored in the CRS's own axis order.
package crs

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/pdok/go-wfs-server/ogc/wfs/ogcerr"
)

// AxisOrder records whether a CRS's native coordinate order is x/y (easting/northing,
// longitude/latitude) or y/x (northing/easting, latitude/longitude).
type AxisOrder int

const (
	AxisXY AxisOrder = iota
	AxisYX
)

// CRS is an immutable coordinate reference system identifier.
type CRS struct {
	authority string
	code      int
	srid      int
	axisOrder AxisOrder
	// legacy marks the two historical forms (EPSG:4326, gml/srs/epsg.xml#<code>)
	// that are coerced to x/y when the corresponding ForceXy* policy flag is set.
	legacy bool
}

// Policy bundles the legacy axis-order coercion flags from spec §6's configuration surface.
type Policy struct {
	ForceXyEpsg4326 bool
	ForceXyOldCrs   bool
}

var authorityAxisOrder = map[string]AxisOrder{
	// EPSG geographic CRSes publish lat/lon (y/x) axis order per the authority;
	// EPSG projected CRSes (e.g. 28992, 3857) publish x/y. We special-case the
	// handful of well-known geographic codes; everything else defaults to x/y,
	// matching how most European national grids (the common WFS deployment
	// target of this codebase) are defined.
	"EPSG:4326": AxisYX,
	"EPSG:4258": AxisYX,
}

// CRS84 is the OGC CRS84 identifier: WGS84 with x/y (lon/lat) axis order, used
// unconditionally for GeoJSON output per spec §4.7.
var CRS84 = &CRS{authority: "OGC", code: 84, srid: 4326, axisOrder: AxisXY}

// EPSG4326 is WGS84 in its authority-native y/x (lat/lon) axis order.
var EPSG4326 = &CRS{authority: "EPSG", code: 4326, srid: 4326, axisOrder: AxisYX}

// New constructs a CRS from an (authority, code) pair, e.g. ("EPSG", 28992).
func New(authority string, code int) *CRS {
	authority = strings.ToUpper(authority)
	c := &CRS{authority: authority, code: code, srid: code}
	c.axisOrder = authorityAxisOrder[fmt.Sprintf("%s:%d", authority, code)]
	if authority == "OGC" && code == 84 {
		c.axisOrder = AxisXY
		c.srid = 4326
	}
	return c
}

// FromSRID builds an EPSG CRS directly from a numeric SRID.
func FromSRID(srid int) *CRS {
	return New("EPSG", srid)
}

// FromURI parses one of the three canonical URI forms plus the two legacy
// forms listed in spec §3, applying axis-order coercion per policy.
func FromURI(uri string, policy Policy) (*CRS, error) {
	uri = strings.TrimSpace(uri)
	switch {
	case strings.HasPrefix(uri, "urn:ogc:def:crs:EPSG::"):
		code, err := parseCode(strings.TrimPrefix(uri, "urn:ogc:def:crs:EPSG::"))
		if err != nil {
			return nil, invalidCRS(uri, err)
		}
		return New("EPSG", code), nil

	case uri == "urn:ogc:def:crs:OGC::CRS84":
		return CRS84, nil

	case strings.HasPrefix(uri, "http://www.opengis.net/def/crs/epsg/0/"):
		code, err := parseCode(strings.TrimPrefix(uri, "http://www.opengis.net/def/crs/epsg/0/"))
		if err != nil {
			return nil, invalidCRS(uri, err)
		}
		return New("EPSG", code), nil

	case strings.HasPrefix(uri, "EPSG:"):
		code, err := parseCode(strings.TrimPrefix(uri, "EPSG:"))
		if err != nil {
			return nil, invalidCRS(uri, err)
		}
		c := New("EPSG", code)
		c.legacy = true
		if policy.ForceXyEpsg4326 && code == 4326 {
			c.axisOrder = AxisXY
		}
		return c, nil

	case strings.HasPrefix(uri, "http://www.opengis.net/gml/srs/epsg.xml#"):
		code, err := parseCode(strings.TrimPrefix(uri, "http://www.opengis.net/gml/srs/epsg.xml#"))
		if err != nil {
			return nil, invalidCRS(uri, err)
		}
		c := New("EPSG", code)
		c.legacy = true
		if policy.ForceXyOldCrs {
			c.axisOrder = AxisXY
		}
		return c, nil

	default:
		// tolerate a raw integer SRID, or any URI whose fragment is a numeric EPSG code
		if n, err := strconv.Atoi(uri); err == nil {
			return New("EPSG", n), nil
		}
		if u, err := url.Parse(uri); err == nil && u.Fragment != "" {
			if code, cerr := parseCode(u.Fragment); cerr == nil {
				return New("EPSG", code), nil
			}
		}
		return nil, invalidCRS(uri, fmt.Errorf("unrecognized CRS URI form"))
	}
}

func parseCode(s string) (int, error) {
	return strconv.Atoi(strings.TrimSpace(s))
}

func invalidCRS(uri string, cause error) *ogcerr.Exception {
	return ogcerr.New(ogcerr.InvalidParameterValue, "srsName", "unknown or unsupported CRS %q: %v", uri, cause)
}

func (c *CRS) SRID() int            { return c.srid }
func (c *CRS) Authority() string    { return c.authority }
func (c *CRS) Code() int            { return c.code }
func (c *CRS) AxisOrder() AxisOrder { return c.axisOrder }
func (c *CRS) IsLegacy() bool       { return c.legacy }

// URI renders the canonical (non-legacy) URI form for this CRS, used when emitting
// srsName attributes and in GetCapabilities' DefaultCRS/OtherCRS lists.
func (c *CRS) URI() string {
	if c == CRS84 || (c.authority == "OGC" && c.code == 84) {
		return "urn:ogc:def:crs:OGC::CRS84"
	}
	return fmt.Sprintf("urn:ogc:def:crs:%s::%d", c.authority, c.code)
}

func (c *CRS) Equal(other *CRS) bool {
	if c == nil || other == nil {
		return c == other
	}
	return c.srid == other.srid && c.authority == other.authority
}

func (c *CRS) String() string { return c.URI() }
