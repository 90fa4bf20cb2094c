package validation

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func fseqHeader() []byte {
	h := make([]byte, 64)
	copy(h, "PSEQ")
	return h
}

func TestValidateFileIntegrityFseq(t *testing.T) {
	res := ValidateFileIntegrity(fseqHeader(), "show.fseq")
	require.True(t, res.Valid)
}

func TestValidateFileIntegrityRejectsWrongMagic(t *testing.T) {
	header := []byte("this is definitely not a sequence file header")

	res := ValidateFileIntegrity(header, "show.fseq")
	require.False(t, res.Valid)
	require.NotEmpty(t, res.Errors)
}

func TestValidateFileIntegrityRejectsEmpty(t *testing.T) {
	res := ValidateFileIntegrity(nil, "show.fseq")
	require.False(t, res.Valid)
}

func TestValidateFileIntegritySkipsUnsignedFormats(t *testing.T) {
	// XML/text sources have no fixed signature
	res := ValidateFileIntegrity([]byte("<xsequence></xsequence>"), "project.xsq")
	require.True(t, res.Valid)

	res = ValidateFileIntegrity([]byte("<?xml version=\"1.0\"?>"), "project.xml")
	require.True(t, res.Valid)
}

func TestValidateFileIntegrityMediaSignatures(t *testing.T) {
	png := append([]byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A}, make([]byte, 32)...)
	require.True(t, ValidateFileIntegrity(png, "cover.png").Valid)
	require.False(t, ValidateFileIntegrity(png, "cover.jpg").Valid)

	mp4 := make([]byte, 16)
	copy(mp4[4:], "ftyp")
	require.True(t, ValidateFileIntegrity(mp4, "clip.mp4").Valid)
}
