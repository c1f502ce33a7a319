package template

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ---------------------------------------------------------------------------
// Parsing and round-tripping
// ---------------------------------------------------------------------------

func TestParse_RoundTrip(t *testing.T) {
	for _, text := range []string{
		"",
		"plain/path.txt",
		"{subject}",
		"{subject}/file.txt",
		"sub-{subject}[/ses-{session}]/img.nii.gz",
		"[{a}][{b}]{c}",
		"[outer[inner-{x}]-{y}]",
		"{num:03d}.dat",
	} {
		tmpl, err := Parse(text)
		require.NoError(t, err, text)
		assert.Equal(t, text, tmpl.String())
	}
}

func TestParse_Parts(t *testing.T) {
	tmpl := MustParse("a{x}[b{y:2d}]")
	parts := tmpl.Parts()
	require.Len(t, parts, 3)
	assert.Equal(t, Literal("a"), parts[0])
	assert.Equal(t, Variable{Name: "x"}, parts[1])
	opt, ok := parts[2].(Optional)
	require.True(t, ok)
	assert.Equal(t, "[b{y:2d}]", opt.String())
}

func TestParse_Malformed(t *testing.T) {
	var malformed *MalformedError
	for _, text := range []string{
		"{unclosed",
		"unopened}",
		"[unclosed",
		"unopened]",
		"{a{b}}",
		"{}",
	} {
		_, err := Parse(text)
		require.Error(t, err, text)
		assert.ErrorAs(t, err, &malformed, text)
	}
}

func TestMustParse_PanicsOnBadText(t *testing.T) {
	assert.Panics(t, func() { MustParse("{") })
}

// ---------------------------------------------------------------------------
// Variable classification
// ---------------------------------------------------------------------------

func TestVariables_RequiredAndOptional(t *testing.T) {
	tmpl := MustParse("sub-{subject}[/ses-{session}]/{subject}_{modality}[_{run}].nii")
	assert.Equal(t, []string{"modality", "run", "session", "subject"}, tmpl.Variables())
	assert.Equal(t, []string{"modality", "subject"}, tmpl.RequiredVariables())
	assert.Equal(t, []string{"run", "session"}, tmpl.OptionalVariables())
}

func TestVariables_RequiredWinsOverOptional(t *testing.T) {
	// A variable both inside and outside brackets counts as required.
	tmpl := MustParse("{x}[_{x}{y}]")
	assert.Equal(t, []string{"x"}, tmpl.RequiredVariables())
	assert.Equal(t, []string{"y"}, tmpl.OptionalVariables())
}
