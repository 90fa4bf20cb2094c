package hashing

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"hash"
	"io"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/afero"
)

// The service uses a single digest algorithm at both chunk and whole-file
// granularity, so a chunk hash and a content hash are directly comparable
// hex strings of the same width.

// HashBuffer returns the hex-encoded SHA-256 digest of b.
func HashBuffer(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

// HashReader streams r through SHA-256 and returns the hex digest.
// Identical bytes yield an identical digest regardless of how they were
// assembled.
func HashReader(r io.Reader) (string, error) {
	h := sha256.New()
	if _, err := io.Copy(h, r); err != nil {
		return "", fmt.Errorf("hashing stream: %w", err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// HashFile hashes the file at path on the given filesystem.
func HashFile(fs afero.Fs, path string) (string, error) {
	f, err := fs.Open(path)
	if err != nil {
		return "", fmt.Errorf("hashing file %s: %w", path, err)
	}
	defer f.Close()

	return HashReader(f)
}

// New returns a streaming digest writer. Callers tee assembly output
// through it and read the final digest with Finish.
func New() hash.Hash {
	return sha256.New()
}

// Finish hex-encodes a digest produced by New.
func Finish(h hash.Hash) string {
	return hex.EncodeToString(h.Sum(nil))
}

// NewUploadID generates an unguessable session identifier. Random UUIDs
// keep other users' sessions unenumerable.
func NewUploadID() string {
	return uuid.NewString()
}

// NewFileID generates a stored-file identifier.
func NewFileID() string {
	return uuid.NewString()
}

// StorageKey builds the durable object key for a finalized file. The key
// is namespaced by category and salted with a random component so that
// unrelated uploads of identically named files never collide, while the
// sanitized original name keeps keys debuggable.
func StorageKey(fileName, category string) string {
	return fmt.Sprintf("files/%s/%s/%s", strings.ToLower(category), uuid.NewString(), SanitizeName(fileName))
}

// SanitizeName strips any path components and characters unsafe for
// object keys from a client-supplied file name.
func SanitizeName(name string) string {
	base := filepath.Base(filepath.Clean(name))
	if base == "." || base == string(filepath.Separator) {
		return "file"
	}

	var b strings.Builder
	for _, r := range base {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '.' || r == '-' || r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}

	return b.String()
}
