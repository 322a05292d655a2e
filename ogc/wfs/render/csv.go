package render

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"sort"

	"github.com/pdok/go-wfs-server/ogc/wfs/crs"
	"github.com/pdok/go-wfs-server/ogc/wfs/domain"
)

// CSV streams a domain.FeatureCollection as CSV: one column per scalar
// property (sorted by name for a stable header), the primary geometry
// flattened to WKT, and a trailing comment line on mid-stream truncation.
//
// encoding/csv is the standard library's CSV writer; no example repo in the
// corpus pulls in a third-party CSV library; quoting/escaping rules are
// exactly RFC 4180, which the standard writer already implements correctly,
// so there is no ecosystem gap a dependency would close here.
func CSV(fc *domain.FeatureCollection, meta Meta) ChunkIterator {
	columns := csvColumns(fc)

	idx := -1
	emittedHeader := false
	done := false

	return func() Chunk {
		if !emittedHeader {
			emittedHeader = true
			var buf bytes.Buffer
			w := csv.NewWriter(&buf)
			row := append([]string{"geometry"}, columns...)
			_ = w.Write(row)
			w.Flush()
			return Chunk{Bytes: buf.Bytes(), More: true}
		}
		if done {
			return Chunk{More: false}
		}
		idx++
		if idx >= len(fc.Features) {
			done = true
			return Chunk{More: false}
		}
		rowBytes, err := csvRow(fc.Features[idx], columns, meta)
		if err != nil {
			done = true
			return Chunk{Bytes: []byte(fmt.Sprintf("# truncated: %s\n", err)), More: false, Err: err}
		}
		return Chunk{Bytes: rowBytes, More: true}
	}
}

func csvColumns(fc *domain.FeatureCollection) []string {
	seen := map[string]bool{}
	var columns []string
	for _, f := range fc.Features {
		for name := range f.Properties {
			if !seen[name] {
				seen[name] = true
				columns = append(columns, name)
			}
		}
	}
	sort.Strings(columns)
	return columns
}

func csvRow(f *domain.Feature, columns []string, meta Meta) ([]byte, error) {
	wkt, err := featureWKT(f, meta)
	if err != nil {
		return nil, err
	}
	row := make([]string, 0, len(columns)+1)
	row = append(row, wkt)
	for _, col := range columns {
		row = append(row, fmt.Sprint(f.Properties[col]))
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(row); err != nil {
		return nil, err
	}
	w.Flush()
	return buf.Bytes(), w.Error()
}

func featureWKT(f *domain.Feature, meta Meta) (string, error) {
	geometry := primaryGeometry(f, meta)
	if geometry == nil {
		return "", nil
	}
	targetOrder := crs.AxisXY
	if meta.OutputCRS != nil {
		targetOrder = meta.OutputCRS.AxisOrder()
	}
	g := emitCoords(geometry, targetOrder)
	return geometryWKT(g, meta.precision())
}
