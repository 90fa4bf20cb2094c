package validation

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/lightgrid/lightgrid-services-uploads/apperrors"
)

func TestValidateFileAcceptsCleanRequest(t *testing.T) {
	res := ValidateFile("christmas_show.fseq", 10*MiB, "application/octet-stream", CategoryRendered)

	require.True(t, res.Valid)
	require.Empty(t, res.Errors)
	require.Empty(t, res.Warnings)
}

func TestValidateFileRejectsTraversal(t *testing.T) {
	names := []string{
		"../../etc/passwd",
		"..\\..\\windows\\system32",
		"/etc/shadow",
		"nested/../../escape.fseq",
		"C:\\boot.ini",
	}

	for _, name := range names {
		res := ValidateFile(name, 1024, "", CategoryRendered)
		require.False(t, res.Valid, "name %q should be rejected", name)
		require.NotEmpty(t, res.Errors)
	}
}

func TestValidateFileRejectsWrongExtension(t *testing.T) {
	res := ValidateFile("sequence.xsq", 1024, "", CategoryRendered)

	require.False(t, res.Valid)
	require.Len(t, res.Errors, 1)
	require.Contains(t, res.Errors[0], `.xsq`)
	require.Contains(t, res.Errors[0], ".fseq")
}

func TestValidateFileRejectsOversize(t *testing.T) {
	res := ValidateFile("huge.fseq", MaxRenderedSize+1, "", CategoryRendered)

	require.False(t, res.Valid)
	require.Contains(t, strings.Join(res.Errors, " "), "file too large")
}

func TestValidateFileRejectsNonPositiveSize(t *testing.T) {
	res := ValidateFile("empty.fseq", 0, "", CategoryRendered)
	require.False(t, res.Valid)
}

func TestValidateFileMimeMismatchWarnsOnly(t *testing.T) {
	res := ValidateFile("preview.png", 1024, "application/x-malware", CategoryPreview)

	require.True(t, res.Valid, "MIME mismatch is non-fatal")
	require.Empty(t, res.Errors)
	require.Len(t, res.Warnings, 1)
}

func TestValidateFileAccumulatesAllErrors(t *testing.T) {
	res := ValidateFile("../evil.exe", MaxSourceSize+1, "", CategorySource)

	require.False(t, res.Valid)
	require.GreaterOrEqual(t, len(res.Errors), 3, "traversal, extension, and size should all be reported")
}

func TestValidateFileFailureKinds(t *testing.T) {
	cases := []struct {
		name     string
		size     int64
		category FileCategory
		kind     apperrors.Kind
	}{
		{"../../escape.fseq", 1024, CategoryRendered, apperrors.KindInvalidFilename},
		{"sequence.xsq", 1024, CategoryRendered, apperrors.KindInvalidExtension},
		{"huge.fseq", MaxRenderedSize + 1, CategoryRendered, apperrors.KindFileTooLarge},
		// more than one failed check collapses to the generic kind
		{"../evil.exe", MaxSourceSize + 1, CategorySource, apperrors.KindValidationFailed},
	}

	for _, tc := range cases {
		res := ValidateFile(tc.name, tc.size, "", tc.category)
		require.False(t, res.Valid, "name %q", tc.name)
		require.Equal(t, tc.kind, res.Kind, "name %q", tc.name)
	}
}

func TestParseCategory(t *testing.T) {
	for _, s := range []string{"SOURCE", "rendered", "Asset", "PREVIEW"} {
		_, err := ParseCategory(s)
		require.NoError(t, err, "category %q", s)
	}

	_, err := ParseCategory("FIRMWARE")
	require.Error(t, err)
}
