package render

import (
	"fmt"

	"github.com/pdok/go-wfs-server/ogc/wfs/domain"
)

// Render picks the ChunkIterator for f and starts it against fc. Callers
// that already validated f via ParseFormat never see the error branch;
// it exists so a zero-value Format (e.g. a caller forgetting to validate)
// fails loudly instead of silently defaulting to GML.
func Render(f Format, fc *domain.FeatureCollection, meta Meta) (ChunkIterator, error) {
	switch f {
	case FormatGML:
		return GML(fc, meta), nil
	case FormatGeoJSON:
		return GeoJSON(fc, meta), nil
	case FormatCSV:
		return CSV(fc, meta), nil
	default:
		return nil, fmt.Errorf("render: unknown format %q", f)
	}
}

// Drain pulls every chunk of it into a single buffer. It exists for callers
// that don't stream the HTTP response directly (db-rendering precomputation,
// tests); the HTTP dispatch layer itself calls it chunk-by-chunk instead, so
// a client sees bytes as they're produced rather than after full materialization.
func Drain(it ChunkIterator) ([]byte, error) {
	var out []byte
	for {
		chunk := it()
		out = append(out, chunk.Bytes...)
		if !chunk.More {
			return out, chunk.Err
		}
	}
}
