package query

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentic-research/pathtree/internal/template"
)

func TestStore_SaveLoadRoundTrip(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "matches.db")
	store, err := OpenStore(dbPath)
	require.NoError(t, err)
	defer store.Close()

	matches := []Match{
		{
			Filename:  "sub-01/T1w.nii",
			ShortName: "anat",
			Variables: template.Bindings{"subject": "01", "modality": "T1w"},
		},
		{
			Filename:  "sub-02/scan.img",
			ShortName: "scan",
			Variables: template.Bindings{"subject": "02", "session": template.Unset},
		},
	}
	require.NoError(t, store.Save(matches))

	loaded, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, matches, loaded)
}

func TestStore_SaveReplacesPreviousScan(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "matches.db")
	store, err := OpenStore(dbPath)
	require.NoError(t, err)
	defer store.Close()

	first := []Match{{Filename: "a.txt", ShortName: "a", Variables: template.Bindings{}}}
	second := []Match{{Filename: "b.txt", ShortName: "b", Variables: template.Bindings{}}}
	require.NoError(t, store.Save(first))
	require.NoError(t, store.Save(second))

	loaded, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, second, loaded)
}

func TestStore_FeedsQueryRebuild(t *testing.T) {
	matches, err := Scan(newScannedTree(t))
	require.NoError(t, err)

	dbPath := filepath.Join(t.TempDir(), "matches.db")
	store, err := OpenStore(dbPath)
	require.NoError(t, err)
	defer store.Close()
	require.NoError(t, store.Save(matches))

	loaded, err := store.Load()
	require.NoError(t, err)
	q, err := NewFromMatches(loaded)
	require.NoError(t, err)

	got, err := q.Query("anat", template.Bindings{"subject": "01"})
	require.NoError(t, err)
	assert.Len(t, got, 2)
}
