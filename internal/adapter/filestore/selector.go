package filestore

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/couchcryptid/psws-hapi/internal/domain"
)

// Selector maps dataset ids and time windows to container files under a
// data root laid out as <root>/<station>/<subdir>/<files>.
type Selector struct {
	root   string
	logger *slog.Logger
}

// NewSelector creates a Selector rooted at the data directory.
func NewSelector(root string, logger *slog.Logger) *Selector {
	return &Selector{root: root, logger: logger}
}

// CheckReadiness reports whether the data root is a readable directory.
func (s *Selector) CheckReadiness(_ context.Context) error {
	info, err := os.Stat(s.root)
	if err != nil {
		return fmt.Errorf("data root: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("data root %s is not a directory", s.root)
	}
	return nil
}

// DatasetDir resolves the directory holding a dataset's container files.
func (s *Selector) DatasetDir(ds domain.Dataset) (string, error) {
	if !filepath.IsLocal(ds.Station) {
		return "", fmt.Errorf("%w: station %q is not a local path", domain.ErrDatasetDirectoryNotFound, ds.Station)
	}
	dir := filepath.Join(s.root, ds.Station, ds.Type.SubDir())
	info, err := os.Stat(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("%w: %s", domain.ErrDatasetDirectoryNotFound, dir)
		}
		return "", fmt.Errorf("stat dataset directory: %w", err)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("%w: %s is not a directory", domain.ErrDatasetDirectoryNotFound, dir)
	}
	return dir, nil
}

// Select returns the container files whose date code lies in the window's
// day range, both ends inclusive, sorted by date code. An empty result means
// there is no data in range and is not an error.
func (s *Selector) Select(ds domain.Dataset, w domain.Window) ([]domain.ContainerFile, error) {
	files, err := s.list(ds)
	if err != nil {
		return nil, err
	}

	start, stop := w.StartDate(), w.StopDate()
	kept := files[:0]
	for _, f := range files {
		if f.DateCode == "" {
			s.logger.Debug("skipping file without date code", "dataset", ds.ID, "file", f.Name)
			continue
		}
		if f.DateCode >= start && f.DateCode <= stop {
			kept = append(kept, f)
		}
	}

	s.logger.Debug("selected container files",
		"dataset", ds.ID,
		"start_date", start,
		"stop_date", stop,
		"candidates", len(files),
		"selected", len(kept),
	)
	return kept, nil
}

// All returns every container file of the dataset, including files whose
// name carries no date code (DateCode is then empty). Files are sorted by
// date code, then name.
func (s *Selector) All(ds domain.Dataset) ([]domain.ContainerFile, error) {
	return s.list(ds)
}

// Stations lists the stations under the root that have a directory for the
// dataset type, sorted by name.
func (s *Selector) Stations(t domain.DatasetType) ([]string, error) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		return nil, fmt.Errorf("read data root: %w", err)
	}
	var stations []string
	for _, e := range entries {
		if !e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		info, err := os.Stat(filepath.Join(s.root, e.Name(), t.SubDir()))
		if err != nil || !info.IsDir() {
			continue
		}
		stations = append(stations, e.Name())
	}
	return stations, nil
}

func (s *Selector) list(ds domain.Dataset) ([]domain.ContainerFile, error) {
	dir, err := s.DatasetDir(ds)
	if err != nil {
		return nil, err
	}
	ext := ds.Type.Extension()
	if ext == "" {
		return nil, nil
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("list dataset directory: %w", err)
	}

	var files []domain.ContainerFile
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ext) {
			continue
		}
		code, _ := ds.Type.DateCode(e.Name())
		files = append(files, domain.ContainerFile{
			Path:      filepath.Join(dir, e.Name()),
			Name:      e.Name(),
			DatasetID: ds.ID,
			DateCode:  code,
		})
	}

	sort.SliceStable(files, func(i, j int) bool {
		if files[i].DateCode != files[j].DateCode {
			return files[i].DateCode < files[j].DateCode
		}
		return files[i].Name < files[j].Name
	})
	return files, nil
}
