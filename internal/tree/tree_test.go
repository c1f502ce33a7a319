package tree

import (
	"testing"

	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentic-research/pathtree/internal/template"
)

func newStudyTree(t *testing.T) *Node {
	t.Helper()
	root := New("study")
	require.NoError(t, root.AddTemplate("readme", "README.md"))
	require.NoError(t, root.AddTemplate("anat", "sub-{subject}[/ses-{session}]/{subject}_T1w.nii"))
	root.Variables["subject"] = "01"

	sub := New("deriv")
	require.NoError(t, sub.AddTemplate("mask", "derivatives/sub-{subject}/mask-{label}.nii"))
	sub.Variables["label"] = "brain"
	require.NoError(t, root.AddSubTree("deriv", sub))
	return root
}

// ---------------------------------------------------------------------------
// Structure and inheritance
// ---------------------------------------------------------------------------

func TestAddTemplate_DuplicateShortName(t *testing.T) {
	root := New("study")
	require.NoError(t, root.AddTemplate("x", "a.txt"))
	assert.Error(t, root.AddTemplate("x", "b.txt"))
	assert.Error(t, root.AddSubTree("x", New("sub")))
}

func TestAllVariables_InheritsAndOverrides(t *testing.T) {
	root := newStudyTree(t)
	sub := root.SubTrees["deriv"]

	assert.Equal(t, template.Bindings{"subject": "01"}, root.AllVariables())
	assert.Equal(t, template.Bindings{"subject": "01", "label": "brain"}, sub.AllVariables())

	sub.Variables["subject"] = "02"
	assert.Equal(t, "02", sub.AllVariables()["subject"])
	assert.Equal(t, "01", root.AllVariables()["subject"])
}

func TestGetVariable_WalksParentChain(t *testing.T) {
	root := newStudyTree(t)
	sub := root.SubTrees["deriv"]

	v, err := sub.GetVariable("subject")
	require.NoError(t, err)
	assert.Equal(t, "01", v)

	_, err = sub.GetVariable("nope")
	var missing *template.MissingError
	require.ErrorAs(t, err, &missing)
}

func TestGetTemplate_QualifiedNames(t *testing.T) {
	root := newStudyTree(t)
	sub := root.SubTrees["deriv"]

	_, _, err := root.GetTemplate("deriv/mask")
	require.NoError(t, err)

	_, _, err = sub.GetTemplate("../readme")
	require.NoError(t, err)

	_, _, err = root.GetTemplate("deriv/none")
	var undefined *UndefinedError
	require.ErrorAs(t, err, &undefined)
}

// ---------------------------------------------------------------------------
// Resolution
// ---------------------------------------------------------------------------

func TestGet_UsesTreeVariables(t *testing.T) {
	root := newStudyTree(t)

	path, err := root.Get("anat")
	require.NoError(t, err)
	assert.Equal(t, "sub-01/01_T1w.nii", path)

	path, err = root.Get("deriv/mask")
	require.NoError(t, err)
	assert.Equal(t, "derivatives/sub-01/mask-brain.nii", path)
}

func TestGet_MissingVariableNamesShortName(t *testing.T) {
	root := New("study")
	require.NoError(t, root.AddTemplate("anat", "{subject}/T1w.nii"))

	_, err := root.Get("anat")
	var missing *template.MissingError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, "anat", missing.Scope)
	assert.Equal(t, []string{"subject"}, missing.Names)
}

func TestExtractVariables_TreeVariablesAreKnown(t *testing.T) {
	root := newStudyTree(t)

	vars, err := root.ExtractVariables("anat", "sub-01/ses-A/01_T1w.nii")
	require.NoError(t, err)
	assert.Equal(t, "01", vars["subject"])
	assert.Equal(t, "A", vars["session"])
}

// ---------------------------------------------------------------------------
// Update
// ---------------------------------------------------------------------------

func TestUpdate_DoesNotMutateReceiver(t *testing.T) {
	root := newStudyTree(t)
	updated := root.Update(template.Bindings{"subject": "02"}, false)

	assert.Equal(t, "02", updated.Variables["subject"])
	assert.Equal(t, "01", root.Variables["subject"])

	path, err := updated.Get("anat")
	require.NoError(t, err)
	assert.Equal(t, "sub-02/02_T1w.nii", path)
}

func TestUpdate_SetParentPropagatesThroughRoot(t *testing.T) {
	root := newStudyTree(t)
	sub := root.SubTrees["deriv"]

	updated := sub.Update(template.Bindings{"subject": "03"}, true)
	// The copy is positioned at the same place: still a sub-tree.
	require.NotNil(t, updated.Parent())
	assert.Equal(t, "03", updated.Parent().Variables["subject"])

	path, err := updated.Get("mask")
	require.NoError(t, err)
	assert.Equal(t, "derivatives/sub-03/mask-brain.nii", path)

	// The original chain is untouched.
	assert.Equal(t, "01", root.Variables["subject"])
}

func TestUpdate_UnsetRemovesVariable(t *testing.T) {
	root := newStudyTree(t)
	updated := root.Update(template.Bindings{"subject": template.Unset}, false)
	_, ok := updated.Variables["subject"]
	assert.False(t, ok)
}

// ---------------------------------------------------------------------------
// Introspection
// ---------------------------------------------------------------------------

func TestDefines(t *testing.T) {
	root := newStudyTree(t)
	assert.True(t, root.Defines("anat", "deriv/mask"))
	assert.False(t, root.Defines("anat", "nope"))

	err := root.CheckDefined("nope")
	var undefined *UndefinedError
	require.ErrorAs(t, err, &undefined)
	assert.Equal(t, "nope", undefined.Name)
}

func TestTemplateVariables(t *testing.T) {
	root := newStudyTree(t)

	all, err := root.TemplateVariables("anat", true, true)
	require.NoError(t, err)
	assert.Equal(t, []string{"session", "subject"}, all)

	required, err := root.TemplateVariables("anat", true, false)
	require.NoError(t, err)
	assert.Equal(t, []string{"subject"}, required)

	optional, err := root.TemplateVariables("anat", false, true)
	require.NoError(t, err)
	assert.Equal(t, []string{"session"}, optional)

	tree, err := root.TemplateVariables("", true, true)
	require.NoError(t, err)
	assert.Equal(t, []string{"label", "session", "subject"}, tree)
}

func TestPartialFill(t *testing.T) {
	root := newStudyTree(t)
	filled, err := root.PartialFill()
	require.NoError(t, err)

	assert.Empty(t, filled.Variables)
	assert.Equal(t, "sub-01[/ses-{session}]/01_T1w.nii", filled.Templates["anat"])
	// Receiver untouched.
	assert.Equal(t, "sub-{subject}[/ses-{session}]/{subject}_T1w.nii", root.Templates["anat"])
}

// ---------------------------------------------------------------------------
// Filesystem-backed operations
// ---------------------------------------------------------------------------

func TestGetAll_AndOnDisk(t *testing.T) {
	fsys := memfs.New()
	for _, p := range []string{
		"sub-01/01_T1w.nii",
		"sub-01/ses-A/01_T1w.nii",
	} {
		require.NoError(t, util.WriteFile(fsys, p, []byte("x"), 0o644))
	}

	root := newStudyTree(t)
	root.SetFS(fsys)

	paths, err := root.GetAll("anat", template.GlobAll)
	require.NoError(t, err)
	assert.Equal(t, []string{"sub-01/01_T1w.nii", "sub-01/ses-A/01_T1w.nii"}, paths)

	ok, err := root.OnDisk([]string{"anat"}, template.GlobAll)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = root.OnDisk([]string{"readme"}, template.GlobAll)
	require.NoError(t, err)
	assert.False(t, ok)
}

// ---------------------------------------------------------------------------
// JSON round trip
// ---------------------------------------------------------------------------

func TestJSON_RoundTrip(t *testing.T) {
	root := newStudyTree(t)
	decoded, err := DecodeJSON(root.EncodeJSON())
	require.NoError(t, err)

	assert.Equal(t, root.Name, decoded.Name)
	assert.Equal(t, root.Templates, decoded.Templates)
	assert.Equal(t, root.Variables, decoded.Variables)
	require.Contains(t, decoded.SubTrees, "deriv")
	sub := decoded.SubTrees["deriv"]
	assert.Equal(t, root.SubTrees["deriv"].Templates, sub.Templates)
	assert.Same(t, decoded, sub.Parent())
}
