package render

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/pdok/go-wfs-server/ogc/wfs/crs"
	"github.com/pdok/go-wfs-server/ogc/wfs/domain"
)

// GeoJSON streams a domain.FeatureCollection as GeoJSON. Coordinates are
// always emitted in CRS84 (x/y), per spec §4.7, regardless of the request's
// srsName — reprojection to CRS84 happens upstream, before this renderer
// ever sees the feature, so here the axis order is unconditionally x/y.
func GeoJSON(fc *domain.FeatureCollection, meta Meta) ChunkIterator {
	idx := -1
	emittedHeader := false
	done := false
	emittedAny := false

	header := `{"type":"FeatureCollection",` +
		fmt.Sprintf("%q:%q,", "crs_uri", "urn:ogc:def:crs:OGC::CRS84") +
		`"features":[`

	return func() Chunk {
		if !emittedHeader {
			emittedHeader = true
			return Chunk{Bytes: []byte(header), More: true}
		}
		if done {
			return Chunk{More: false}
		}
		idx++
		if idx >= len(fc.Features) {
			done = true
			return Chunk{Bytes: []byte(geoJSONFooter(fc, meta)), More: false}
		}
		prefix := ""
		if emittedAny {
			prefix = ","
		}
		emittedAny = true
		feature, err := geoJSONFeature(fc.Features[idx], meta)
		if err != nil {
			done = true
			return Chunk{Bytes: []byte(geoJSONTruncated(err)), More: false, Err: err}
		}
		return Chunk{Bytes: []byte(prefix + feature), More: true}
	}
}

func geoJSONFeature(f *domain.Feature, meta Meta) (string, error) {
	var b strings.Builder
	b.WriteString(`{"type":"Feature","id":`)
	idJSON, _ := json.Marshal(f.ID)
	b.Write(idJSON)

	b.WriteString(`,"geometry":`)
	if geometry := primaryGeometry(f, meta); geometry != nil {
		g := emitCoords(geometry, crs.AxisXY)
		obj, err := geoJSONGeometryObject(g, meta.precision())
		if err != nil {
			return "", err
		}
		b.WriteString(obj)
	} else {
		b.WriteString("null")
	}

	b.WriteString(`,"properties":{`)
	first := true
	for name, value := range f.Properties {
		if !first {
			b.WriteString(",")
		}
		first = false
		keyJSON, _ := json.Marshal(name)
		valJSON, err := json.Marshal(value)
		if err != nil {
			return "", fmt.Errorf("encoding property %q: %w", name, err)
		}
		b.Write(keyJSON)
		b.WriteString(":")
		b.Write(valJSON)
	}
	b.WriteString("}}")
	return b.String(), nil
}

// primaryGeometry picks the one geometry a single-geometry encoding (GeoJSON,
// CSV) emits: the feature type's declared default geometry when known,
// falling back to an arbitrary entry for callers without a FeatureType (e.g.
// tests building a Meta by hand).
func primaryGeometry(f *domain.Feature, meta Meta) *crs.Geometry {
	if meta.FeatureType != nil {
		if node := meta.FeatureType.DefaultGeometryNode(); node != nil {
			if g, ok := f.Geometries[node.LocalName()]; ok {
				return g
			}
		}
	}
	for _, g := range f.Geometries {
		return g
	}
	return nil
}

func geoJSONFooter(fc *domain.FeatureCollection, meta Meta) string {
	var b strings.Builder
	b.WriteString("],")
	if fc.NumberMatched != nil {
		b.WriteString(fmt.Sprintf(`"numberMatched":%d,`, *fc.NumberMatched))
	}
	b.WriteString(fmt.Sprintf(`"numberReturned":%d`, fc.NumberReturned))
	if meta.NextURL != "" {
		b.WriteString(fmt.Sprintf(`,"links":[{"rel":"next","href":%s}`, mustJSON(meta.NextURL)))
		if meta.PrevURL != "" {
			b.WriteString(fmt.Sprintf(`,{"rel":"previous","href":%s}`, mustJSON(meta.PrevURL)))
		}
		b.WriteString("]")
	} else if meta.PrevURL != "" {
		b.WriteString(fmt.Sprintf(`,"links":[{"rel":"previous","href":%s}]`, mustJSON(meta.PrevURL)))
	}
	b.WriteString("}")
	return b.String()
}

func geoJSONTruncated(err error) string {
	msg, _ := json.Marshal(err.Error())
	return fmt.Sprintf(`],"exception":%s}`, msg)
}

func mustJSON(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}
