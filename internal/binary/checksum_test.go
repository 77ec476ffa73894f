package binary

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLookup3Checksum(t *testing.T) {
	assert.Equal(t, uint32(0xdeadbeef), Lookup3Checksum(nil))
	assert.Equal(t, uint32(0x17770551), Lookup3Checksum([]byte("Four score and seven years ago")))

	// Every tail length goes through a different final-mix branch.
	seen := map[uint32]bool{}
	data := []byte("abcdefghijklmnopqrstuvwxyz")
	for n := 1; n <= len(data); n++ {
		sum := Lookup3Checksum(data[:n])
		assert.False(t, seen[sum], "collision at length %d", n)
		seen[sum] = true
	}
}

func TestAppendSplitLookup3(t *testing.T) {
	body := []byte("mapping block")
	framed := AppendLookup3(append([]byte(nil), body...))
	require.Len(t, framed, len(body)+4)

	got, err := SplitLookup3(framed)
	require.NoError(t, err)
	assert.Equal(t, body, got)

	framed[3] ^= 0x01
	_, err = SplitLookup3(framed)
	assert.ErrorIs(t, err, ErrChecksum)

	_, err = SplitLookup3([]byte{1, 2})
	assert.ErrorIs(t, err, ErrChecksum)
}
