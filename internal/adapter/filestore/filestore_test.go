package filestore

import (
	"archive/zip"
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/couchcryptid/psws-hapi/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func touch(t *testing.T, path string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, nil, 0o644))
}

func mustWindow(t *testing.T, start, stop string) domain.Window {
	t.Helper()
	w, err := domain.NewWindow(start, stop)
	require.NoError(t, err)
	return w
}

func names(files []domain.ContainerFile) []string {
	out := make([]string, len(files))
	for i, f := range files {
		out[i] = f.Name
	}
	return out
}

func TestSelector_SelectMag(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, "S000028", "magData")
	for _, name := range []string{
		"OBS-20251022-0000.zip",
		"OBS-20251019-0000.zip",
		"OBS2025-10-20T00:00.zip",
		"OBS-20251021-0000.zip",
		"OBS-20251023-0000.zip",
		"notes.txt",
		"OBS-latest.zip",
	} {
		touch(t, filepath.Join(dir, name))
	}
	s := NewSelector(root, discardLogger())
	ds, err := domain.ParseDatasetID("S000028/mag")
	require.NoError(t, err)

	files, err := s.Select(ds, mustWindow(t, "2025-10-20T12:00:00Z", "2025-10-22T00:00:00Z"))
	require.NoError(t, err)

	assert.Equal(t, []string{"OBS2025-10-20T00:00.zip", "OBS-20251021-0000.zip", "OBS-20251022-0000.zip"}, names(files))
	assert.Equal(t, "2025-10-20", files[0].DateCode)
	assert.Equal(t, filepath.Join(dir, "OBS-20251021-0000.zip"), files[1].Path)
	assert.Equal(t, "S000028/mag", files[1].DatasetID)
}

func TestSelector_SelectDoppler(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, "S000001", "csvData")
	touch(t, filepath.Join(dir, "2020-08-08_S000001.csv"))
	touch(t, filepath.Join(dir, "2020-08-07_S000001.csv"))
	touch(t, filepath.Join(dir, "2020-08-07_S000001.zip"))
	s := NewSelector(root, discardLogger())
	ds, err := domain.ParseDatasetID("S000001/doppler")
	require.NoError(t, err)

	files, err := s.Select(ds, mustWindow(t, "2020-08-07T00:00:00Z", "2022-08-08T00:00:00Z"))
	require.NoError(t, err)

	assert.Equal(t, []string{"2020-08-07_S000001.csv", "2020-08-08_S000001.csv"}, names(files))
}

func TestSelector_EmptyRangeIsNotAnError(t *testing.T) {
	root := t.TempDir()
	touch(t, filepath.Join(root, "S000028", "magData", "OBS-20251021-0000.zip"))
	s := NewSelector(root, discardLogger())
	ds, err := domain.ParseDatasetID("S000028/mag")
	require.NoError(t, err)

	files, err := s.Select(ds, mustWindow(t, "2024-01-01T00:00:00Z", "2024-01-02T00:00:00Z"))
	require.NoError(t, err)
	assert.Empty(t, files)
}

func TestSelector_DRFHasNoContainerFiles(t *testing.T) {
	root := t.TempDir()
	touch(t, filepath.Join(root, "S000001", "2020-08-07.h5"))
	s := NewSelector(root, discardLogger())
	ds, err := domain.ParseDatasetID("S000001/drf")
	require.NoError(t, err)

	files, err := s.Select(ds, mustWindow(t, "2020-08-07T00:00:00Z", "2020-08-08T00:00:00Z"))
	require.NoError(t, err)
	assert.Empty(t, files)
}

func TestSelector_MissingDirectory(t *testing.T) {
	root := t.TempDir()
	touch(t, filepath.Join(root, "S000028", "csvData", "2020-08-07.csv"))
	s := NewSelector(root, discardLogger())
	ds, err := domain.ParseDatasetID("S000028/mag")
	require.NoError(t, err)

	_, err = s.Select(ds, mustWindow(t, "2025-10-21T00:00:00Z", "2025-10-22T00:00:00Z"))
	require.ErrorIs(t, err, domain.ErrDatasetDirectoryNotFound)
}

func TestSelector_AllAndStations(t *testing.T) {
	root := t.TempDir()
	touch(t, filepath.Join(root, "S000028", "magData", "OBS-20251021-0000.zip"))
	touch(t, filepath.Join(root, "S000028", "magData", "broken.zip"))
	touch(t, filepath.Join(root, "S000001", "magData", "OBS-20221021-0000.zip"))
	touch(t, filepath.Join(root, "S000002", "csvData", "2020-08-07.csv"))
	touch(t, filepath.Join(root, "README.md"))
	s := NewSelector(root, discardLogger())

	stations, err := s.Stations(domain.TypeMag)
	require.NoError(t, err)
	assert.Equal(t, []string{"S000001", "S000028"}, stations)

	all, err := s.All(domain.Dataset{ID: "S000028/mag", Station: "S000028", Type: domain.TypeMag})
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "broken.zip", all[0].Name)
	assert.Empty(t, all[0].DateCode)
}

func writeZip(t *testing.T, path string, members map[string]string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	zw := zip.NewWriter(f)
	_, err = zw.Create("dir/")
	require.NoError(t, err)
	for name, content := range members {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = io.WriteString(w, content)
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
}

func readAll(t *testing.T, l *Lines) []string {
	t.Helper()
	var lines []string
	for l.Scan() {
		lines = append(lines, l.Text())
	}
	require.NoError(t, l.Err())
	require.NoError(t, l.Close())
	return lines
}

func TestSelector_CheckReadiness(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, NewSelector(root, discardLogger()).CheckReadiness(context.Background()))

	require.Error(t, NewSelector(filepath.Join(root, "missing"), discardLogger()).CheckReadiness(context.Background()))

	file := filepath.Join(root, "file")
	touch(t, file)
	require.Error(t, NewSelector(file, discardLogger()).CheckReadiness(context.Background()))
}

func TestOpen_ZipMembersInNameOrder(t *testing.T) {
	path := filepath.Join(t.TempDir(), "OBS-20251021-0000.zip")
	writeZip(t, path, map[string]string{
		"c.txt":     "line 3\n",
		"a.txt":     "line 1\nli",
		"b.txt":     "ne 2\n",
		"dir/z.txt": "line 4",
	})

	l, err := Open(domain.ContainerFile{Path: path, Name: "OBS-20251021-0000.zip"}, domain.TypeMag)
	require.NoError(t, err)

	assert.Equal(t, []string{"line 1", "line 2", "line 3", "line 4"}, readAll(t, l))
}

func TestOpen_PlainFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "2020-08-07.csv")
	require.NoError(t, os.WriteFile(path, []byte("UTC,Freq,Vpk\r\n2020-08-07 00:00:00,10,0.5\r\n"), 0o644))

	l, err := Open(domain.ContainerFile{Path: path, Name: "2020-08-07.csv"}, domain.TypeDoppler)
	require.NoError(t, err)

	lines := readAll(t, l)
	require.Len(t, lines, 2)
	assert.Equal(t, "UTC,Freq,Vpk", lines[0])
}

func TestOpen_NotAZip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "OBS-20251021-0000.zip")
	require.NoError(t, os.WriteFile(path, []byte("not a zip"), 0o644))

	_, err := Open(domain.ContainerFile{Path: path, Name: "OBS-20251021-0000.zip"}, domain.TypeMag)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "open zip")
}
