package template

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ---------------------------------------------------------------------------
// Substitution
// ---------------------------------------------------------------------------

func TestFillKnown_Basic(t *testing.T) {
	tmpl := MustParse("sub-{subject}[/ses-{session}]/{modality}.nii")
	filled := tmpl.FillKnown(Bindings{"subject": "01"})
	assert.Equal(t, "sub-01[/ses-{session}]/{modality}.nii", filled.String())
}

func TestFillKnown_FlattensEmptiedOptional(t *testing.T) {
	tmpl := MustParse("{a}[_{b}]")
	filled := tmpl.FillKnown(Bindings{"b": "x"})
	assert.Equal(t, "{a}_x", filled.String())
	assert.Empty(t, filled.OptionalVariables())
}

func TestFillKnown_KeepsInnerOptionalOfFlattenedRegion(t *testing.T) {
	// The outer region has no required variable of its own, so it flattens
	// while the inner optional stays undetermined.
	tmpl := MustParse("c[a[_{x}]b]")
	assert.Equal(t, "ca[_{x}]b", tmpl.FillKnown(nil).String())

	path, err := tmpl.Resolve(Bindings{})
	require.NoError(t, err)
	assert.Equal(t, "cab", path)

	path, err = tmpl.Resolve(Bindings{"x": "1"})
	require.NoError(t, err)
	assert.Equal(t, "ca_1b", path)
}

func TestFillKnown_UnsetBehavesAsAbsent(t *testing.T) {
	tmpl := MustParse("{a}[_{b}]")
	filled := tmpl.FillKnown(Bindings{"b": Unset})
	assert.Equal(t, "{a}[_{b}]", filled.String())
}

func TestFillKnown_SubstitutionIsOpaque(t *testing.T) {
	// A value containing template syntax is inserted verbatim, never
	// re-parsed: {b} here is literal text, not a reference to b.
	tmpl := MustParse("{a}_{b}")
	path, err := tmpl.Resolve(Bindings{"a": "{p}", "b": "x"})
	require.NoError(t, err)
	assert.Equal(t, "{p}_x", path)
}

func TestFillKnown_FormatHint(t *testing.T) {
	tmpl := MustParse("run-{run:03d}.dat")
	filled := tmpl.FillKnown(Bindings{"run": "7"})
	assert.Equal(t, "run-007.dat", filled.String())

	// Non-numeric values fall back to the raw text.
	filled = tmpl.FillKnown(Bindings{"run": "x"})
	assert.Equal(t, "run-x.dat", filled.String())
}

// ---------------------------------------------------------------------------
// Resolution
// ---------------------------------------------------------------------------

func TestResolve_DropsUndeterminedOptionals(t *testing.T) {
	tmpl := MustParse("sub-{subject}[/ses-{session}]/img.nii")

	path, err := tmpl.Resolve(Bindings{"subject": "01"})
	require.NoError(t, err)
	assert.Equal(t, "sub-01/img.nii", path)

	path, err = tmpl.Resolve(Bindings{"subject": "01", "session": "A"})
	require.NoError(t, err)
	assert.Equal(t, "sub-01/ses-A/img.nii", path)
}

func TestResolve_CollapsesElidedDirectory(t *testing.T) {
	tmpl := MustParse("{subject}/[{session}]/img.nii")
	path, err := tmpl.Resolve(Bindings{"subject": "01"})
	require.NoError(t, err)
	assert.Equal(t, "01/img.nii", path)
}

func TestResolve_MissingRequired(t *testing.T) {
	tmpl := MustParse("{subject}/{modality}.nii")
	_, err := tmpl.Resolve(Bindings{"subject": "01"})
	var missing *MissingError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, []string{"modality"}, missing.Names)
}

// ---------------------------------------------------------------------------
// Optional subset enumeration
// ---------------------------------------------------------------------------

func TestOptionalSubsets_Count(t *testing.T) {
	tmpl := MustParse("{a}[_{b}][_{c}]")
	variants, err := tmpl.OptionalSubsets()
	require.NoError(t, err)
	require.Len(t, variants, 4)

	texts := make([]string, len(variants))
	for i, v := range variants {
		texts[i] = v.String()
	}
	assert.Contains(t, texts, "{a}[_{b}][_{c}]")
	assert.Contains(t, texts, "{a}[_{b}]")
	assert.Contains(t, texts, "{a}[_{c}]")
	assert.Contains(t, texts, "{a}")
}

func TestOptionalSubsets_Limit(t *testing.T) {
	old := MaxOptionalVariables
	MaxOptionalVariables = 2
	defer func() { MaxOptionalVariables = old }()

	tmpl := MustParse("{a}[_{b}][_{c}][_{d}]")
	_, err := tmpl.OptionalSubsets()
	var limit *SubsetLimitError
	require.ErrorAs(t, err, &limit)
	assert.Equal(t, 3, limit.Count)
	assert.Equal(t, 2, limit.Limit)
}
