package crc

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCheckPassesForZeroSeededTrailer(t *testing.T) {
	data := []byte{0x01, 0x02, 0x03, 0x04, 0x05}
	trailer := Compute(data, 0)
	withTrailer := append(append([]byte(nil), data...), trailer)
	assert.True(t, Check(withTrailer))
}

func TestCheckFailsOnBitFlip(t *testing.T) {
	data := []byte{0xAA, 0x55, 0x10, 0x20}
	trailer := Compute(data, 0)
	withTrailer := append(append([]byte(nil), data...), trailer)

	for bit := 0; bit < 8; bit++ {
		flipped := append([]byte(nil), withTrailer...)
		flipped[0] ^= 1 << bit
		assert.False(t, Check(flipped), "bit %d flip should invalidate CRC", bit)
	}
}

func TestComputeIsDeterministic(t *testing.T) {
	data := []byte{0x00, 0xFF, 0x7E, 0x81}
	assert.Equal(t, Compute(data, 0), Compute(data, 0))
}

// TestTableMatchesECSSStandard checks the first entries of the lookup
// table against the published ECSS-E-ST-50-52C RMAP CRC-8 table, so a
// wrong polynomial constant fails here even though it would otherwise
// be internally self-consistent.
func TestTableMatchesECSSStandard(t *testing.T) {
	want := []uint8{0x00, 0x91, 0xE3, 0x72, 0x07, 0x96, 0xE4, 0x75}
	assert.Equal(t, want, table[:len(want)])
}
