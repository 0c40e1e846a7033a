package ingest

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const devAccountKey = "Eby8vdM02xNOcqFlqUwJPLlmEtlCDXJ1OUzFT50uSRZ6IFsuFq2UVErCz4I6tq/K1SZFPTOtr/KBHBeksoGMGw=="

// fakeBlobService serves a container listing and blob bodies for devstoreaccount1.
func fakeBlobService(t *testing.T, blobs map[string]string, listing string) string {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		const prefix = "/devstoreaccount1/docs"
		if !strings.HasPrefix(r.URL.Path, prefix) {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		if r.URL.Query().Get("comp") == "list" {
			w.Header().Set("Content-Type", "application/xml")
			_, _ = w.Write([]byte(listing))
			return
		}
		body, ok := blobs[strings.TrimPrefix(r.URL.Path, prefix+"/")]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/pdf")
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return "DefaultEndpointsProtocol=http;AccountName=devstoreaccount1;AccountKey=" + devAccountKey +
		";BlobEndpoint=" + srv.URL + "/devstoreaccount1;"
}

func listing(names ...string) string {
	var b strings.Builder
	b.WriteString(`<?xml version="1.0" encoding="utf-8"?><EnumerationResults ContainerName="docs"><Blobs>`)
	for _, n := range names {
		b.WriteString("<Blob><Name>" + n + "</Name><Properties></Properties></Blob>")
	}
	b.WriteString(`</Blobs><NextMarker/></EnumerationResults>`)
	return b.String()
}

func TestBlobSource_FetchDownloadsPDFs(t *testing.T) {
	conn := fakeBlobService(t,
		map[string]string{"hr.pdf": "%PDF-hr", "policies/travel.PDF": "%PDF-travel"},
		listing("hr.pdf", "notes.txt", "policies/travel.PDF"),
	)
	src, err := NewBlobSource(conn, "docs")
	require.NoError(t, err)

	files, err := src.Fetch(context.Background(), t.TempDir())
	require.NoError(t, err)
	require.Len(t, files, 2)

	assert.Equal(t, "docs/hr.pdf", files[0].Source)
	require.NotNil(t, files[0].URL)
	assert.True(t, strings.HasSuffix(*files[0].URL, "/devstoreaccount1/docs/hr.pdf"), *files[0].URL)
	raw, err := os.ReadFile(files[0].Path)
	require.NoError(t, err)
	assert.Equal(t, "%PDF-hr", string(raw))

	assert.Equal(t, "docs/policies/travel.PDF", files[1].Source)
	raw, err = os.ReadFile(files[1].Path)
	require.NoError(t, err)
	assert.Equal(t, "%PDF-travel", string(raw))
}

func TestBlobSource_DownloadError(t *testing.T) {
	conn := fakeBlobService(t, map[string]string{}, listing("gone.pdf"))
	src, err := NewBlobSource(conn, "docs")
	require.NoError(t, err)

	_, err = src.Fetch(context.Background(), t.TempDir())
	assert.ErrorContains(t, err, "download gone.pdf failed")
}

func TestNewBlobSource_BadConnectionString(t *testing.T) {
	_, err := NewBlobSource("not a connection string", "docs")
	assert.Error(t, err)
}

func TestCollectSources(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "local.pdf"), []byte("x"), 0o644))
	loc := Location{Container: "docs"}

	t.Run("blob first", func(t *testing.T) {
		conn := fakeBlobService(t, map[string]string{"hr.pdf": "%PDF"}, listing("hr.pdf"))
		src, err := NewBlobSource(conn, "docs")
		require.NoError(t, err)

		files, err := CollectSources(context.Background(), src, t.TempDir(), root, loc)
		require.NoError(t, err)
		require.Len(t, files, 1)
		assert.Equal(t, "docs/hr.pdf", files[0].Source)
	})

	t.Run("empty container falls back to local", func(t *testing.T) {
		conn := fakeBlobService(t, nil, listing())
		src, err := NewBlobSource(conn, "docs")
		require.NoError(t, err)

		files, err := CollectSources(context.Background(), src, t.TempDir(), root, loc)
		require.NoError(t, err)
		require.Len(t, files, 1)
		assert.Equal(t, "docs/local.pdf", files[0].Source)
	})

	t.Run("no blob source", func(t *testing.T) {
		files, err := CollectSources(context.Background(), nil, t.TempDir(), root, loc)
		require.NoError(t, err)
		require.Len(t, files, 1)
		assert.Equal(t, "docs/local.pdf", files[0].Source)
	})
}
