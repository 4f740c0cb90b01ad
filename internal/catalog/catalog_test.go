package catalog_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/couchcryptid/psws-hapi/internal/catalog"
	"github.com/couchcryptid/psws-hapi/internal/domain"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testCatalog = `
stations:
  - id: S000028
    nickname: Scranton W3USR
    start: 2021-04-01T00:00:00Z
    stop: 2025-10-31
    lat: 41.41
    lon: -75.66
    elevation: 230
    types: [mag, doppler]
  - id: S000031
    start: 2022-01-15
    lat: 34.1
    lon: -118.2
    elevation: 95
`

func mustParse(t *testing.T, src string) *catalog.Catalog {
	t.Helper()
	c, err := catalog.Parse(strings.NewReader(src), clockwork.NewRealClock())
	require.NoError(t, err)
	return c
}

func TestParse_Normalizes(t *testing.T) {
	c := mustParse(t, testCatalog)

	stations := c.Stations()
	require.Len(t, stations, 2)
	assert.Equal(t, "2021-04-01T00:00:00Z", stations[0].Start)
	assert.Equal(t, "2025-10-31T00:00:00Z", stations[0].Stop)
	assert.Equal(t, "2022-01-15T00:00:00Z", stations[1].Start)
	assert.Empty(t, stations[1].Stop)
	assert.Equal(t, []domain.DatasetType{domain.TypeMag}, stations[1].Types)
}

func TestParse_Invalid(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want string
	}{
		{"missing id", "stations:\n  - start: 2021-01-01\n", "missing id"},
		{"path id", "stations:\n  - id: ../etc\n    start: 2021-01-01\n", "single path segment"},
		{"bad start", "stations:\n  - id: S1\n    start: yesterday\n", "start"},
		{"stop before start", "stations:\n  - id: S1\n    start: 2021-01-02\n    stop: 2021-01-01\n", "before start"},
		{"unknown type", "stations:\n  - id: S1\n    start: 2021-01-01\n    types: [radar]\n", "unknown dataset type"},
		{"duplicate", "stations:\n  - id: S1\n    start: 2021-01-01\n  - id: S1\n    start: 2021-01-01\n", "duplicate id"},
		{"unknown key", "stations:\n  - id: S1\n    start: 2021-01-01\n    altitude: 3\n", "altitude"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := catalog.Parse(strings.NewReader(tt.src), clockwork.NewRealClock())
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestParse_Empty(t *testing.T) {
	c := mustParse(t, "")
	assert.Empty(t, c.Datasets())
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	require.NoError(t, os.WriteFile(path, []byte(testCatalog), 0o644))

	c, err := catalog.Load(path, clockwork.NewRealClock())
	require.NoError(t, err)
	assert.Len(t, c.Stations(), 2)

	_, err = catalog.Load(filepath.Join(t.TempDir(), "missing.yaml"), clockwork.NewRealClock())
	require.Error(t, err)
}

func TestDatasets(t *testing.T) {
	c := mustParse(t, testCatalog)

	assert.Equal(t, []catalog.Dataset{
		{ID: "S000028/mag", Title: "Scranton W3USR mag"},
		{ID: "S000028/doppler", Title: "Scranton W3USR doppler"},
		{ID: "S000031/mag"},
	}, c.Datasets())
}

func TestLookup(t *testing.T) {
	c := mustParse(t, testCatalog)

	st, ds, err := c.Lookup("S000028/doppler")
	require.NoError(t, err)
	assert.Equal(t, "S000028", st.ID)
	assert.Equal(t, domain.TypeDoppler, ds.Type)

	_, _, err = c.Lookup("S000031/doppler")
	require.ErrorIs(t, err, catalog.ErrDatasetNotFound)

	_, _, err = c.Lookup("S999999/mag")
	require.ErrorIs(t, err, catalog.ErrDatasetNotFound)

	_, _, err = c.Lookup("S000028/radar")
	require.ErrorIs(t, err, domain.ErrUnknownDatasetType)
}

func TestInfo_Mag(t *testing.T) {
	c := mustParse(t, testCatalog)

	info, err := c.Info("S000028/mag", "")
	require.NoError(t, err)

	assert.Equal(t, "2021-04-01T00:00:00Z", info.StartDate)
	assert.Equal(t, "2025-10-31T00:00:00Z", info.StopDate)
	assert.Equal(t, []float64{-75.66, 41.41, 230}, info.GeoLocation)
	assert.Equal(t, "Scranton W3USR", info.Description)

	names := make([]string, len(info.Parameters))
	for i, p := range info.Parameters {
		names[i] = p.Name
	}
	assert.Equal(t, []string{"Time", "Field_Vector", "rxryrz", "rt", "lt", "Tm"}, names)
	assert.Equal(t, "isotime", info.Parameters[0].Type)
	assert.Equal(t, 20, info.Parameters[0].Length)
	assert.Equal(t, []int{3}, info.Parameters[1].Size)
	require.NotNil(t, info.Parameters[5].Fill)
	assert.Equal(t, "-9999999", *info.Parameters[5].Fill)
}

func TestInfo_ParameterSubset(t *testing.T) {
	c := mustParse(t, testCatalog)

	info, err := c.Info("S000028/mag", "Tm,Field_Vector")
	require.NoError(t, err)
	require.Len(t, info.Parameters, 3)
	assert.Equal(t, "Field_Vector", info.Parameters[1].Name)
	assert.Equal(t, "Tm", info.Parameters[2].Name)

	_, err = c.Info("S000028/mag", "Freq")
	require.ErrorIs(t, err, domain.ErrUnknownParameter)
}

func TestInfo_OpenEndedStopUsesClock(t *testing.T) {
	now := time.Date(2026, time.March, 4, 5, 6, 7, 0, time.UTC)
	c, err := catalog.Parse(strings.NewReader(testCatalog), clockwork.NewFakeClockAt(now))
	require.NoError(t, err)

	info, err := c.Info("S000031/mag", "")
	require.NoError(t, err)
	assert.Equal(t, "2026-03-04T05:06:07Z", info.StopDate)
	assert.Empty(t, info.Description)
}
