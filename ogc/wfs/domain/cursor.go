package domain

import (
	"encoding/base64"
	"log"
	"strings"
)

const cursorSeparator = '|'

// Cursors holds the previous/next page cursors for one FeatureCollection.
// WFS pagination is cursor-based, not offset-based: scanning to page N by
// OFFSET degrades on large tables, whereas a cursor resumes directly from
// the last-seen identity value.
type Cursors struct {
	Prev EncodedCursor
	Next EncodedCursor

	HasPrev bool
	HasNext bool
}

// EncodedCursor is the opaque, URL-safe string a client round-trips back as
// STARTINDEX-equivalent paging state.
type EncodedCursor string

// DecodedCursor is an EncodedCursor's content: the last-seen feature
// identity, and a checksum of the query that produced it.
type DecodedCursor struct {
	FeatureID       string
	FiltersChecksum []byte
}

// PrevNextID is the prev/next feature identity values a datastore backend
// computes while executing a paged query.
type PrevNextID struct {
	Prev string
	Next string
}

// NewCursors builds Cursors from the prev/next identities a datastore query
// returned, carrying the same filters checksum forward so Decode can detect
// a client changing filters mid-pagination.
func NewCursors(ids PrevNextID, filtersChecksum []byte) Cursors {
	return Cursors{
		Prev:    encodeCursor(ids.Prev, filtersChecksum),
		Next:    encodeCursor(ids.Next, filtersChecksum),
		HasPrev: ids.Prev != "",
		HasNext: ids.Next != "",
	}
}

func encodeCursor(id string, filtersChecksum []byte) EncodedCursor {
	if id == "" {
		return ""
	}
	// format: "<feature id><separator><checksum bytes>", matching gokoala's
	// cursor.go layout generalized from a numeric fid to a string identity.
	payload := append([]byte(id), byte(cursorSeparator))
	payload = append(payload, filtersChecksum...)
	return EncodedCursor(base64.URLEncoding.EncodeToString(payload))
}

// Decode turns c into a DecodedCursor, resetting to the first page whenever
// the cursor is malformed or the filters checksum no longer matches
// (the client changed FILTER/BBOX/SORTBY mid-pagination).
func (c EncodedCursor) Decode(filtersChecksum []byte) DecodedCursor {
	if c == "" {
		return DecodedCursor{FiltersChecksum: filtersChecksum}
	}
	decoded, err := base64.URLEncoding.DecodeString(string(c))
	if err != nil || len(decoded) == 0 {
		log.Printf("decoding cursor %q failed, defaulting to first page", c)
		return DecodedCursor{FiltersChecksum: filtersChecksum}
	}

	parts := strings.SplitN(string(decoded), string(cursorSeparator), 2)
	id := parts[0]
	if len(parts) > 1 && parts[1] != string(filtersChecksum) {
		log.Printf("filters changed during pagination, resetting to first page")
		return DecodedCursor{FiltersChecksum: filtersChecksum}
	}
	return DecodedCursor{FeatureID: id, FiltersChecksum: filtersChecksum}
}
