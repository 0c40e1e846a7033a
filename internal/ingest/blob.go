package ingest

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"strings"

	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
)

// BlobSource reads PDFs from one Azure Storage container.
type BlobSource struct {
	client    *azblob.Client
	container string
}

func NewBlobSource(connString, container string) (*BlobSource, error) {
	client, err := azblob.NewClientFromConnectionString(connString, nil)
	if err != nil {
		return nil, fmt.Errorf("open blob storage failed: %w", err)
	}
	return &BlobSource{client: client, container: container}, nil
}

// Fetch downloads every *.pdf blob (case-insensitive) into dir and returns
// them in listing order.
func (b *BlobSource) Fetch(ctx context.Context, dir string) ([]SourceFile, error) {
	var files []SourceFile
	pager := b.client.NewListBlobsFlatPager(b.container, nil)
	for pager.More() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("list blobs in %s failed: %w", b.container, err)
		}
		if page.Segment == nil {
			continue
		}
		for _, item := range page.Segment.BlobItems {
			if item == nil || item.Name == nil || !strings.EqualFold(path.Ext(*item.Name), ".pdf") {
				continue
			}
			name := *item.Name
			local, err := b.download(ctx, dir, name)
			if err != nil {
				return nil, err
			}
			u := b.blobURL(name)
			files = append(files, SourceFile{
				Source: b.container + "/" + name,
				URL:    &u,
				Path:   local,
			})
		}
	}
	return files, nil
}

func (b *BlobSource) download(ctx context.Context, dir, name string) (string, error) {
	resp, err := b.client.DownloadStream(ctx, b.container, name, nil)
	if err != nil {
		return "", fmt.Errorf("download %s failed: %w", name, err)
	}
	defer resp.Body.Close()

	f, err := os.CreateTemp(dir, "*.pdf")
	if err != nil {
		return "", err
	}
	defer f.Close()

	if _, err := io.Copy(f, resp.Body); err != nil {
		return "", fmt.Errorf("download %s failed: %w", name, err)
	}
	return f.Name(), nil
}

func (b *BlobSource) blobURL(name string) string {
	return strings.TrimRight(b.client.URL(), "/") + "/" + b.container + "/" + name
}

// CollectSources prefers the blob container when one is configured and holds
// any PDFs, and walks the local root otherwise. Blob downloads land in tmpDir.
func CollectSources(ctx context.Context, blob *BlobSource, tmpDir, root string, loc Location) ([]SourceFile, error) {
	if blob != nil {
		files, err := blob.Fetch(ctx, tmpDir)
		if err != nil {
			return nil, err
		}
		if len(files) > 0 {
			return files, nil
		}
	}
	return WalkPDFs(root, loc)
}
