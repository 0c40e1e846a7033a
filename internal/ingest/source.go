package ingest

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"
)

// SourceFile is one document to ingest.
type SourceFile struct {
	// Source is the citation label, "<container>/<relative path>".
	Source string
	// URL is the bare blob URL, nil when no storage account is configured.
	URL *string
	// Path is where the file is read from.
	Path string
}

// Location names the blob container that documents are cited from.
type Location struct {
	Account   string
	Container string
}

// BlobURL returns the public URL of rel inside the container, or nil without an account.
func (l Location) BlobURL(rel string) *string {
	if l.Account == "" {
		return nil
	}
	u := fmt.Sprintf("https://%s.blob.core.windows.net/%s/%s", l.Account, l.Container, rel)
	return &u
}

// WalkPDFs lists every *.pdf under root (case-insensitive), in lexical order.
func WalkPDFs(root string, loc Location) ([]SourceFile, error) {
	var files []SourceFile
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.EqualFold(filepath.Ext(d.Name()), ".pdf") {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		files = append(files, SourceFile{
			Source: loc.Container + "/" + rel,
			URL:    loc.BlobURL(rel),
			Path:   path,
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s failed: %w", root, err)
	}
	return files, nil
}

// PageURL adds a #page fragment to PDF URLs when the page is known.
func PageURL(bare *string, page int) *string {
	if bare == nil {
		return nil
	}
	u := *bare
	if page > 0 && strings.HasSuffix(strings.ToLower(u), ".pdf") {
		u = fmt.Sprintf("%s#page=%d", u, page)
	}
	return &u
}
