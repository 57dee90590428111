package cli

import (
	"encoding/json"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/retracehq/retrace/internal/testutil"
)

func writePNG(t *testing.T, img image.Image, name string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, png.Encode(f, img))
	return path
}

func hashResult(t *testing.T, raw string) HashResult {
	t.Helper()
	resp := decodeResponse(t, raw)
	require.Equal(t, "ok", resp.Status)
	data, err := json.Marshal(resp.Data)
	require.NoError(t, err)
	var result HashResult
	require.NoError(t, json.Unmarshal(data, &result))
	return result
}

func TestHashCommand_Single(t *testing.T) {
	path := writePNG(t, testutil.CheckerImage(64, 64, 8), "frame.png")

	out, err := execute(t, "--format", "json", "hash", path)
	require.NoError(t, err)

	result := hashResult(t, out)
	assert.Equal(t, "ahash", result.Method)
	assert.Len(t, result.Fingerprint, 16)
	assert.False(t, result.Compared)
}

func TestHashCommand_CompareIdentical(t *testing.T) {
	img := testutil.NoiseImage(128, 128, 21)
	a := writePNG(t, img, "a.png")
	b := writePNG(t, img, "b.png")

	out, err := execute(t, "--format", "json", "hash", "--method", "phash", a, b)
	require.NoError(t, err)

	result := hashResult(t, out)
	assert.Equal(t, "phash", result.Method)
	assert.True(t, result.Compared)
	assert.Equal(t, result.Fingerprint, result.Fingerprint2)
	assert.Equal(t, 0, result.Distance)
}

func TestHashCommand_CompareDifferent(t *testing.T) {
	img := testutil.CheckerImage(64, 64, 8)
	a := writePNG(t, img, "a.png")
	b := writePNG(t, testutil.Invert(img), "b.png")

	out, err := execute(t, "--format", "json", "hash", a, b)
	require.NoError(t, err)

	result := hashResult(t, out)
	assert.Greater(t, result.Distance, 0)
}

func TestHashCommand_Threshold(t *testing.T) {
	img := testutil.CheckerImage(64, 64, 8)
	a := writePNG(t, img, "a.png")
	b := writePNG(t, testutil.Invert(img), "b.png")

	out, err := execute(t, "--format", "json", "hash", "--threshold", "5", a, b)
	require.NoError(t, err)

	result := hashResult(t, out)
	require.NotNil(t, result.Within)
	assert.False(t, *result.Within)

	out, err = execute(t, "--format", "json", "hash", "--threshold", "5", a, a)
	require.NoError(t, err)
	result = hashResult(t, out)
	require.NotNil(t, result.Within)
	assert.True(t, *result.Within)
}

func TestHashCommand_Region(t *testing.T) {
	// Frames differ only far from the region center, so the cropped
	// fingerprints must match.
	base := testutil.UniformImage(400, 300, 128)
	changed := testutil.PerturbRows(base, 40)
	a := writePNG(t, base, "a.png")
	b := writePNG(t, changed, "b.png")

	out, err := execute(t, "--format", "json", "hash",
		"--region", "100", "--x", "200", "--y", "250", a, b)
	require.NoError(t, err)

	result := hashResult(t, out)
	assert.Equal(t, 0, result.Distance)
}

func TestHashCommand_UnknownMethod(t *testing.T) {
	path := writePNG(t, testutil.UniformImage(8, 8, 0), "frame.png")

	_, err := execute(t, "hash", "--method", "dhash", path)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestHashCommand_MissingFile(t *testing.T) {
	_, err := execute(t, "hash", filepath.Join(t.TempDir(), "nope.png"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}
