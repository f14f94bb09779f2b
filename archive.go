package toolkit

import (
	"archive/zip"
	"bytes"
	"fmt"
	"os"
	"path/filepath"
)

// ZipEntry pairs a finished artifact with the name it gets inside an archive.
type ZipEntry struct {
	Filename string
	Blob     *Blob
}

// BuildZip packs the entries into a single in-memory zip archive. Entry order
// is preserved; unnamed entries get a positional fallback name.
func BuildZip(entries []ZipEntry) (*Blob, error) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for i, e := range entries {
		name := e.Filename
		if name == "" {
			name = fmt.Sprintf("file_%d", i+1)
		}
		w, err := zw.Create(name)
		if err != nil {
			return nil, fmt.Errorf("add %s to archive: %w", name, err)
		}
		if _, err := w.Write(e.Blob.Data); err != nil {
			return nil, fmt.Errorf("write %s to archive: %w", name, err)
		}
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("finalize archive: %w", err)
	}
	return &Blob{Data: buf.Bytes(), Type: "application/zip"}, nil
}

// Downloader receives finished artifacts. It stands in for the browser's
// download prompt: one call per delivered file or archive.
type Downloader interface {
	Download(blob *Blob, filename string) error
	DownloadZip(entries []ZipEntry, archiveName string) error
}

// DirDownloader writes delivered artifacts into a directory, creating it on
// first use.
type DirDownloader struct {
	Dir string
}

func (d *DirDownloader) Download(blob *Blob, filename string) error {
	if err := os.MkdirAll(d.Dir, 0o755); err != nil {
		return fmt.Errorf("create download dir: %w", err)
	}
	path := filepath.Join(d.Dir, filepath.Base(filename))
	if err := os.WriteFile(path, blob.Data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

func (d *DirDownloader) DownloadZip(entries []ZipEntry, archiveName string) error {
	blob, err := BuildZip(entries)
	if err != nil {
		return err
	}
	return d.Download(blob, archiveName)
}
