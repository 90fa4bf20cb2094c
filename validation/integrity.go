package validation

import (
	"bytes"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/lightgrid/lightgrid-services-uploads/apperrors"
)

// signature is a fixed byte pattern expected at a given offset in the
// file header.
type signature struct {
	offset int
	magic  []byte
}

func (s signature) matches(header []byte) bool {
	end := s.offset + len(s.magic)
	return len(header) >= end && bytes.Equal(header[s.offset:end], s.magic)
}

// Known header signatures per extension. Extensions absent from this map
// (plain XML/text formats) have no fixed signature and skip the check.
var signaturesByExt = map[string][]signature{
	".fseq": {{0, []byte("PSEQ")}, {0, []byte("FSEQ")}},
	".png":  {{0, []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A}}},
	".jpg":  {{0, []byte{0xFF, 0xD8, 0xFF}}},
	".jpeg": {{0, []byte{0xFF, 0xD8, 0xFF}}},
	".gif":  {{0, []byte("GIF87a")}, {0, []byte("GIF89a")}},
	".mp4":  {{4, []byte("ftyp")}},
	".zip":  {{0, []byte{0x50, 0x4B, 0x03, 0x04}}},
	".mp3":  {{0, []byte("ID3")}, {0, []byte{0xFF, 0xFB}}, {0, []byte{0xFF, 0xF3}}, {0, []byte{0xFF, 0xF2}}},
	".wav":  {{0, []byte("RIFF")}},
}

// HeaderProbeSize is how many leading bytes of an assembled file the
// integrity check needs.
const HeaderProbeSize = 1024

// ValidateFileIntegrity checks the actual leading bytes of a file against
// the signature expected for its extension. A failure here means the
// content does not match the claimed format and the whole upload must be
// discarded.
func ValidateFileIntegrity(header []byte, name string) Result {
	res := Result{Valid: true}

	ext := strings.ToLower(filepath.Ext(name))
	sigs, ok := signaturesByExt[ext]
	if !ok {
		// no fixed signature for this format family
		return res
	}

	if len(header) == 0 {
		res.addError(apperrors.KindIntegrityCheckFailed, fmt.Sprintf("integrity check failed: empty content for %q", name))
		return res
	}

	for _, sig := range sigs {
		if sig.matches(header) {
			return res
		}
	}

	res.addError(apperrors.KindIntegrityCheckFailed, fmt.Sprintf("integrity check failed: header of %q does not match any known %s signature (sniffed as %s)",
		name, ext, DetectMime(header)))
	return res
}
