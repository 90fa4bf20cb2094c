package validation

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"github.com/lightgrid/lightgrid-services-uploads/apperrors"
)

// FileCategory classifies what kind of artifact an upload claims to be.
// Each category carries its own extension, MIME, and size constraints.
type FileCategory string

const (
	CategorySource   FileCategory = "SOURCE"   // editable sequence projects (.xsq/.xml)
	CategoryRendered FileCategory = "RENDERED" // compiled show files (.fseq)
	CategoryAsset    FileCategory = "ASSET"    // audio and bundled media
	CategoryPreview  FileCategory = "PREVIEW"  // storefront images/video
)

// ParseCategory maps a client-declared category string to a FileCategory.
func ParseCategory(s string) (FileCategory, error) {
	switch FileCategory(strings.ToUpper(s)) {
	case CategorySource:
		return CategorySource, nil
	case CategoryRendered:
		return CategoryRendered, nil
	case CategoryAsset:
		return CategoryAsset, nil
	case CategoryPreview:
		return CategoryPreview, nil
	}
	return "", fmt.Errorf("unknown file category %q", s)
}

type constraints struct {
	extensions   []string
	maxSizeBytes int64
	mimeTypes    []string
}

const (
	MiB = int64(1024 * 1024)

	MaxRenderedSize = 500 * MiB
	MaxSourceSize   = 50 * MiB
	MaxAssetSize    = 200 * MiB
	MaxPreviewSize  = 25 * MiB
)

var categoryConstraints = map[FileCategory]constraints{
	CategoryRendered: {
		extensions:   []string{".fseq"},
		maxSizeBytes: MaxRenderedSize,
		mimeTypes:    []string{"application/octet-stream"},
	},
	CategorySource: {
		extensions:   []string{".xsq", ".xml"},
		maxSizeBytes: MaxSourceSize,
		mimeTypes:    []string{"application/xml", "text/xml", "application/octet-stream"},
	},
	CategoryAsset: {
		extensions:   []string{".mp3", ".wav", ".zip"},
		maxSizeBytes: MaxAssetSize,
		mimeTypes:    []string{"audio/mpeg", "audio/wav", "audio/x-wav", "application/zip", "application/octet-stream"},
	},
	CategoryPreview: {
		extensions:   []string{".png", ".jpg", ".jpeg", ".gif", ".mp4"},
		maxSizeBytes: MaxPreviewSize,
		mimeTypes:    []string{"image/png", "image/jpeg", "image/gif", "video/mp4"},
	},
}

// Result reports the outcome of a validation pass. Errors are blocking;
// warnings are informational and surface to the client unchanged. Kind
// names the single failed check, or KindValidationFailed when checks of
// more than one kind failed.
type Result struct {
	Valid    bool
	Kind     apperrors.Kind
	Errors   []string
	Warnings []string
}

func (r *Result) addError(kind apperrors.Kind, msg string) {
	if r.Valid {
		r.Kind = kind
	} else if r.Kind != kind {
		r.Kind = apperrors.KindValidationFailed
	}
	r.Valid = false
	r.Errors = append(r.Errors, msg)
}

func (r *Result) addWarning(msg string) {
	r.Warnings = append(r.Warnings, msg)
}

// ValidateFile runs the pre-byte checks on a declared upload: filename
// safety, extension/category match, size bound, and MIME plausibility.
// Checks run in order and all findings are accumulated so the client gets
// the full list in one response.
func ValidateFile(name string, size int64, mimeType string, category FileCategory) Result {
	res := Result{Valid: true}

	if err := CheckFilename(name); err != nil {
		res.addError(apperrors.KindInvalidFilename, err.Error())
	}

	cons, ok := categoryConstraints[category]
	if !ok {
		res.addError(apperrors.KindValidationFailed, fmt.Sprintf("unknown file category %q", category))
		return res
	}

	ext := strings.ToLower(filepath.Ext(name))
	if !contains(cons.extensions, ext) {
		res.addError(apperrors.KindInvalidExtension, fmt.Sprintf("invalid extension %q for category %s: expected one of %s",
			ext, category, strings.Join(cons.extensions, ", ")))
	}

	if size <= 0 {
		res.addError(apperrors.KindValidationFailed, "file size must be positive")
	} else if size > cons.maxSizeBytes {
		res.addError(apperrors.KindFileTooLarge, fmt.Sprintf("file too large: %d bytes exceeds %s limit of %d bytes",
			size, category, cons.maxSizeBytes))
	}

	// Client MIME sniffing varies across browsers, so mismatches warn
	// rather than block.
	if mimeType != "" && !contains(cons.mimeTypes, strings.ToLower(mimeType)) {
		res.addWarning(fmt.Sprintf("declared MIME type %q is unusual for category %s", mimeType, category))
	}

	return res
}

// CheckFilename rejects names that would escape their containment
// directory: traversal sequences, absolute paths, and drive-style prefixes.
func CheckFilename(name string) error {
	if name == "" {
		return fmt.Errorf("file name must not be empty")
	}
	if strings.ContainsRune(name, 0) {
		return fmt.Errorf("file name contains NUL byte")
	}

	normalized := strings.ReplaceAll(name, "\\", "/")
	if strings.HasPrefix(normalized, "/") {
		return fmt.Errorf("path traversal detected: absolute path %q", name)
	}
	if len(normalized) > 1 && normalized[1] == ':' {
		return fmt.Errorf("path traversal detected: drive prefix in %q", name)
	}
	for _, part := range strings.Split(normalized, "/") {
		if part == ".." {
			return fmt.Errorf("path traversal detected in %q", name)
		}
	}

	return nil
}

// MaxSizeFor exposes the per-category byte limit.
func MaxSizeFor(category FileCategory) int64 {
	return categoryConstraints[category].maxSizeBytes
}

// AllowedExtensionsFor exposes the per-category extension allow-list.
func AllowedExtensionsFor(category FileCategory) []string {
	return append([]string(nil), categoryConstraints[category].extensions...)
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}

// DetectMime sniffs the MIME type of the given header bytes.
func DetectMime(header []byte) string {
	return mimetype.Detect(header).String()
}
