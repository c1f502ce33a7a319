package template

import (
	"testing"

	billy "github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFiles(t *testing.T, paths ...string) billy.Filesystem {
	t.Helper()
	fsys := memfs.New()
	for _, p := range paths {
		require.NoError(t, util.WriteFile(fsys, p, []byte("x"), 0o644))
	}
	return fsys
}

// ---------------------------------------------------------------------------
// Glob
// ---------------------------------------------------------------------------

func TestGlob_LiteralAndWildcardSegments(t *testing.T) {
	fsys := writeFiles(t,
		"data/sub-01/T1w.nii",
		"data/sub-02/T1w.nii",
		"data/sub-02/T2w.nii",
		"data/notes.txt",
	)

	names, err := Glob(fsys, "data/sub-*/T1w.nii")
	require.NoError(t, err)
	assert.Equal(t, []string{"data/sub-01/T1w.nii", "data/sub-02/T1w.nii"}, names)

	names, err = Glob(fsys, "data/sub-02/*.nii")
	require.NoError(t, err)
	assert.Equal(t, []string{"data/sub-02/T1w.nii", "data/sub-02/T2w.nii"}, names)

	names, err = Glob(fsys, "data/missing/*.nii")
	require.NoError(t, err)
	assert.Empty(t, names)
}

func TestGlob_CollapsesDoubleSlashes(t *testing.T) {
	fsys := writeFiles(t, "data/img.nii")
	names, err := Glob(fsys, "data//img.nii")
	require.NoError(t, err)
	assert.Equal(t, []string{"data/img.nii"}, names)
}

// ---------------------------------------------------------------------------
// GetAll
// ---------------------------------------------------------------------------

func TestGetAll_GlobsUndeterminedVariables(t *testing.T) {
	fsys := writeFiles(t,
		"data/sub-01/T1w.nii",
		"data/sub-02/T1w.nii",
	)
	tmpl := MustParse("data/sub-{subject}/{modality}.nii")

	sets, err := tmpl.GetAll(fsys, nil, GlobAll)
	require.NoError(t, err)
	require.Len(t, sets, 2)
	assert.Equal(t, Bindings{"subject": "01", "modality": "T1w"}, sets[0])
	assert.Equal(t, Bindings{"subject": "02", "modality": "T1w"}, sets[1])
}

func TestGetAll_OptionalVariantsBothMatch(t *testing.T) {
	fsys := writeFiles(t,
		"data/sub-01/img.nii",
		"data/sub-01/ses-A/img.nii",
	)
	tmpl := MustParse("data/sub-{subject}[/ses-{session}]/img.nii")

	sets, err := tmpl.GetAll(fsys, nil, GlobAll)
	require.NoError(t, err)
	require.Len(t, sets, 2)
	assert.Equal(t, Bindings{"subject": "01", "session": Unset}, sets[0])
	assert.Equal(t, Bindings{"subject": "01", "session": "A"}, sets[1])
}

func TestGetAll_KnownValuesRestrict(t *testing.T) {
	fsys := writeFiles(t,
		"data/sub-01/T1w.nii",
		"data/sub-02/T1w.nii",
	)
	tmpl := MustParse("data/sub-{subject}/{modality}.nii")

	sets, err := tmpl.GetAll(fsys, Bindings{"subject": "02"}, GlobAll)
	require.NoError(t, err)
	require.Len(t, sets, 1)
	assert.Equal(t, Bindings{"subject": "02", "modality": "T1w"}, sets[0])
}

func TestGetAll_NonGlobbableRequiredIsMissing(t *testing.T) {
	fsys := writeFiles(t, "data/sub-01/T1w.nii")
	tmpl := MustParse("data/sub-{subject}/{modality}.nii")

	_, err := tmpl.GetAll(fsys, nil, []string{"modality"})
	var missing *MissingError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, []string{"subject"}, missing.Names)
}
