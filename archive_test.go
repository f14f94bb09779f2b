package toolkit

import (
	"archive/zip"
	"bytes"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBuildZip(t *testing.T) {
	entries := []ZipEntry{
		{Filename: "a.png", Blob: &Blob{Data: []byte("aaa"), Type: "image/png"}},
		{Blob: &Blob{Data: []byte("bbb"), Type: "image/png"}},
	}
	blob, err := BuildZip(entries)
	require.NoError(t, err)
	require.Equal(t, "application/zip", blob.Type)

	zr, err := zip.NewReader(bytes.NewReader(blob.Data), blob.Size())
	require.NoError(t, err)
	require.Len(t, zr.File, 2)
	require.Equal(t, "a.png", zr.File[0].Name)
	require.Equal(t, "file_2", zr.File[1].Name)

	rc, err := zr.File[0].Open()
	require.NoError(t, err)
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	require.NoError(t, rc.Close())
	require.Equal(t, []byte("aaa"), data)
}

func TestDirDownloader(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	d := &DirDownloader{Dir: dir}

	require.NoError(t, d.Download(&Blob{Data: []byte("x")}, "a.png"))
	data, err := os.ReadFile(filepath.Join(dir, "a.png"))
	require.NoError(t, err)
	require.Equal(t, []byte("x"), data)

	// path components in the name are dropped
	require.NoError(t, d.Download(&Blob{Data: []byte("y")}, "../../escape.png"))
	_, err = os.Stat(filepath.Join(dir, "escape.png"))
	require.NoError(t, err)

	require.NoError(t, d.DownloadZip([]ZipEntry{
		{Filename: "a.png", Blob: &Blob{Data: []byte("x")}},
	}, "bundle.zip"))
	info, err := os.Stat(filepath.Join(dir, "bundle.zip"))
	require.NoError(t, err)
	require.Positive(t, info.Size())
}
