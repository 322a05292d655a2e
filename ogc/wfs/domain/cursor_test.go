package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCursorRoundTrip(t *testing.T) {
	checksum := []byte("abc123")
	cursors := NewCursors(PrevNextID{Prev: "7", Next: "42"}, checksum)
	require.True(t, cursors.HasNext)
	require.True(t, cursors.HasPrev)

	decoded := cursors.Next.Decode(checksum)
	assert.Equal(t, "42", decoded.FeatureID)
}

func TestCursorResetsOnChecksumMismatch(t *testing.T) {
	cursors := NewCursors(PrevNextID{Next: "42"}, []byte("checksum-a"))
	decoded := cursors.Next.Decode([]byte("checksum-b"))
	assert.Equal(t, "", decoded.FeatureID)
}

func TestCursorEmptyDefaultsToFirstPage(t *testing.T) {
	var c EncodedCursor
	decoded := c.Decode([]byte("checksum"))
	assert.Equal(t, "", decoded.FeatureID)
}

func TestNewCursors_NoNextPrev(t *testing.T) {
	cursors := NewCursors(PrevNextID{}, []byte("x"))
	assert.False(t, cursors.HasNext)
	assert.False(t, cursors.HasPrev)
	assert.Equal(t, EncodedCursor(""), cursors.Next)
}
