package render

import (
	"fmt"

	"github.com/pdok/go-wfs-server/ogc/wfs/domain"
)

const valueCollectionHeader = `<?xml version="1.0" encoding="UTF-8"?>
<wfs:ValueCollection xmlns:wfs="http://www.opengis.net/wfs/2.0"
    timeStamp="%s" numberReturned="%d">
`

const valueCollectionFooter = `</wfs:ValueCollection>
`

const valueCollectionTruncated = `<wfs:truncatedResponse/>
</wfs:ValueCollection>
`

// ValueCollection streams a domain.SimpleFeatureCollection as a
// wfs:ValueCollection document, one wfs:member per matched feature's
// projected value, per spec §4.4's GetPropertyValue response.
func ValueCollection(sfc *domain.SimpleFeatureCollection, meta Meta) ChunkIterator {
	header := fmt.Sprintf(valueCollectionHeader, meta.GeneratedAt.UTC().Format("2006-01-02T15:04:05Z"), sfc.NumberReturned)

	idx := -1
	emittedHeader := false
	done := false

	return func() Chunk {
		if !emittedHeader {
			emittedHeader = true
			return Chunk{Bytes: []byte(header), More: true}
		}
		if done {
			return Chunk{More: false}
		}
		idx++
		if idx >= len(sfc.Values) {
			done = true
			return Chunk{Bytes: []byte(valueCollectionFooter), More: false}
		}
		member := fmt.Sprintf("<wfs:member>%s</wfs:member>\n", xmlEscapeText(fmt.Sprint(sfc.Values[idx])))
		return Chunk{Bytes: []byte(member), More: true}
	}
}
