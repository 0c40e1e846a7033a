package ingest

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWalkPDFs(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "policies"), 0o755))
	for _, name := range []string{"hr.pdf", "policies/Travel.PDF", "notes.txt"} {
		require.NoError(t, os.WriteFile(filepath.Join(root, name), []byte("x"), 0o644))
	}

	files, err := WalkPDFs(root, Location{Account: "acme", Container: "docs"})
	require.NoError(t, err)
	require.Len(t, files, 2)

	assert.Equal(t, "docs/hr.pdf", files[0].Source)
	require.NotNil(t, files[0].URL)
	assert.Equal(t, "https://acme.blob.core.windows.net/docs/hr.pdf", *files[0].URL)
	assert.Equal(t, filepath.Join(root, "hr.pdf"), files[0].Path)

	assert.Equal(t, "docs/policies/Travel.PDF", files[1].Source)
}

func TestWalkPDFs_NoAccount(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "hr.pdf"), []byte("x"), 0o644))

	files, err := WalkPDFs(root, Location{Container: "docs"})
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Nil(t, files[0].URL)
}

func TestWalkPDFs_MissingRoot(t *testing.T) {
	_, err := WalkPDFs(filepath.Join(t.TempDir(), "absent"), Location{Container: "docs"})
	assert.Error(t, err)
}

func TestPageURL(t *testing.T) {
	pdf := "https://acme.blob.core.windows.net/docs/hr.pdf"
	doc := "https://acme.blob.core.windows.net/docs/hr.docx"

	assert.Nil(t, PageURL(nil, 3))
	assert.Equal(t, pdf+"#page=3", *PageURL(&pdf, 3))
	assert.Equal(t, pdf, *PageURL(&pdf, 0))
	assert.Equal(t, doc, *PageURL(&doc, 3))
}
