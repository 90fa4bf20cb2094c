package fseq

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/require"
)

func buildHeader(channels, frames uint32, stepTime byte) []byte {
	h := make([]byte, 32)
	copy(h, "PSEQ")
	binary.LittleEndian.PutUint16(h[4:], 32) // channel data offset
	h[6] = 0                                 // minor
	h[7] = 2                                 // major
	binary.LittleEndian.PutUint16(h[8:], 32) // header length
	binary.LittleEndian.PutUint32(h[10:], channels)
	binary.LittleEndian.PutUint32(h[14:], frames)
	h[18] = stepTime
	return h
}

func TestParseHeader(t *testing.T) {
	meta, err := ParseHeader(buildHeader(512, 3000, 50))
	require.NoError(t, err)

	require.Equal(t, uint32(512), meta.ChannelCount)
	require.Equal(t, uint32(3000), meta.FrameCount)
	require.Equal(t, uint8(50), meta.StepTimeMillis)
	require.Equal(t, uint64(150000), meta.DurationMillis) // 2.5 minutes
}

func TestParseHeaderLegacyMagic(t *testing.T) {
	h := buildHeader(8, 100, 25)
	copy(h, "FSEQ")

	meta, err := ParseHeader(h)
	require.NoError(t, err)
	require.Equal(t, uint32(100), meta.FrameCount)
}

func TestParseHeaderErrors(t *testing.T) {
	_, err := ParseHeader([]byte("PSEQ"))
	require.Error(t, err, "truncated header")

	bad := buildHeader(8, 100, 25)
	copy(bad, "JUNK")
	_, err = ParseHeader(bad)
	require.Error(t, err, "wrong magic")

	_, err = ParseHeader(buildHeader(8, 100, 0))
	require.Error(t, err, "zero step time")

	_, err = ParseHeader(buildHeader(8, 0, 25))
	require.Error(t, err, "zero frames")
}
