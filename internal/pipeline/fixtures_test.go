package pipeline_test

import (
	"archive/zip"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/couchcryptid/psws-hapi/internal/adapter/filestore"
	"github.com/couchcryptid/psws-hapi/internal/observability"
	"github.com/couchcryptid/psws-hapi/internal/pipeline"
	"github.com/stretchr/testify/require"
)

const (
	jsonRow1 = `{"ts":"21 Oct 2025 04:01:59", "x":-45676.67, "y":-13284.67, "z":16150.67, "rx":-68515, "ry":-19927, "rz":24226, "rt":32.5, "lt":41.69, "Tm":50236.2845}`
	jsonRow2 = `{"ts":"21 Oct 2025 04:02:00", "x":-45676.5, "y":-13284.5, "z":16150.5, "rx":-68514, "ry":-19926, "rz":24225, "rt":32.5, "lt":41.7, "Tm":50236.3}`
	jsonRow3 = `{"ts":"22 Oct 2025 10:00:00", "x":-45000, "y":-13000, "z":16000, "rx":-68000, "ry":-19000, "rz":24000, "rt":31, "lt":40, "Tm":50000}`

	legacyRow9  = `"21 Oct 2025 04:02:01", -45676.1, -13284.1, 16150.1, -68513, -19925, 24224, 32.4, 41.6`
	legacyRow10 = `"20 Oct 2025 23:59:59", -45670, -13280, 16150, -68510, -19920, 24220, 32, 41, 50230.5`
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// writeZip writes a mag container with the given members into
// <root>/<station>/magData/<name>.
func writeZip(t *testing.T, root, station, name string, members map[string]string) {
	t.Helper()
	dir := filepath.Join(root, station, "magData")
	require.NoError(t, os.MkdirAll(dir, 0o755))

	f, err := os.Create(filepath.Join(dir, name))
	require.NoError(t, err)
	defer f.Close()

	zw := zip.NewWriter(f)
	for member, content := range members {
		w, err := zw.Create(member)
		require.NoError(t, err)
		_, err = io.WriteString(w, content)
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func newExtractor(root string, workers int) (*pipeline.Extractor, *observability.Metrics) {
	metrics := observability.NewMetricsForTesting()
	sel := filestore.NewSelector(root, discardLogger())
	return pipeline.New(sel, filestore.OpenStream, discardLogger(), metrics, workers), metrics
}

func newTestMetrics() *observability.Metrics {
	// Use a fresh registry to avoid "already registered" panics in tests.
	return observability.NewMetricsForTesting()
}
