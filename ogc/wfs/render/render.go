// Package render turns a compiled, executed query's domain.FeatureCollection
// into GML 3.2, GeoJSON or CSV, as a lazy sequence of byte chunks the HTTP
// layer pulls until exhausted, per spec §4.7.
package render

import (
	"fmt"
	"time"

	"github.com/pdok/go-wfs-server/ogc/wfs/crs"
	"github.com/pdok/go-wfs-server/ogc/wfs/xsd"
)

// Format names one of the built-in streaming output encodings.
type Format string

const (
	FormatGML     Format = "gml"
	FormatGeoJSON Format = "geojson"
	FormatCSV     Format = "csv"
)

// ContentType returns the HTTP Content-Type for f, per spec §4.7's table.
func (f Format) ContentType() string {
	switch f {
	case FormatGML:
		return "application/gml+xml; version=3.2"
	case FormatGeoJSON:
		return "application/geo+json; charset=utf-8"
	case FormatCSV:
		return "text/csv; charset=utf-8"
	default:
		return "application/octet-stream"
	}
}

func (f Format) extension() string {
	switch f {
	case FormatGML:
		return "gml"
	case FormatGeoJSON:
		return "json"
	case FormatCSV:
		return "csv"
	default:
		return "bin"
	}
}

// ParseFormat maps a requested outputFormat string (case-insensitive,
// accepting both the MIME type and the short subtype named in spec §4.7's
// table) to a Format, or "" if none matches.
func ParseFormat(outputFormat string) Format {
	switch normalizeFormat(outputFormat) {
	case "gml/3.2.1", "application/gml+xml; version=3.2", "text/xml; subtype=gml/3.2.1", "":
		return FormatGML
	case "geojson", "application/geo+json", "application/geo+json; charset=utf-8", "json":
		return FormatGeoJSON
	case "csv", "text/csv", "text/csv; charset=utf-8":
		return FormatCSV
	default:
		return ""
	}
}

func normalizeFormat(s string) string {
	out := make([]byte, 0, len(s))
	for _, c := range s {
		if c >= 'A' && c <= 'Z' {
			c += 'a' - 'A'
		}
		out = append(out, byte(c))
	}
	return string(out)
}

// Chunk is one piece of a streamed response body. Err set and More false
// together mean the stream ended because of a mid-stream failure; the HTTP
// layer must still emit the bytes already produced (the truncation marker)
// rather than discard them.
type Chunk struct {
	Bytes []byte
	More  bool
	Err   error
}

// ChunkIterator is a cold, pull-style generator of response bytes: each call
// advances the stream by one chunk. It is restartable only for test
// purposes — a live HTTP response calls it until More is false.
type ChunkIterator func() Chunk

// Meta carries the request-derived values a renderer's header/footer and
// Content-Disposition filename need, beyond what's already on the
// domain.FeatureCollection itself.
type Meta struct {
	TypeNames   []string
	Page        int
	GeneratedAt time.Time
	Precision   int
	OutputCRS   *crs.CRS
	SelfURL     string
	NextURL     string
	PrevURL     string
	NumberTotal *int // nil when the count policy decided not to compute it

	// FeatureType resolves which of a feature's possibly-several geometry
	// properties is "the" geometry for single-geometry encodings (GeoJSON,
	// CSV); nil falls back to an arbitrary map entry.
	FeatureType *xsd.FeatureType
}

func (m Meta) precision() int {
	if m.Precision <= 0 {
		return 6
	}
	return m.Precision
}

// ContentDisposition renders the "{typenames} {page} {date}.{ext}" filename
// template spec §4.7 requires on every streamed response.
func (m Meta) ContentDisposition(f Format) string {
	date := m.GeneratedAt
	if date.IsZero() {
		date = time.Now()
	}
	names := "features"
	if len(m.TypeNames) > 0 {
		names = joinUnderscore(m.TypeNames)
	}
	filename := fmt.Sprintf("%s_%d_%s.%s", names, m.Page, date.Format("20060102"), f.extension())
	return fmt.Sprintf(`attachment; filename="%s"`, filename)
}

func joinUnderscore(ss []string) string {
	out := ss[0]
	for _, s := range ss[1:] {
		out += "_" + s
	}
	return out
}
