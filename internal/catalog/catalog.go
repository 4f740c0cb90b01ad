// Package catalog loads the station catalog that backs the HAPI catalog and
// info responses.
package catalog

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"

	"github.com/couchcryptid/psws-hapi/internal/domain"
	"github.com/jonboulle/clockwork"
	"gopkg.in/yaml.v3"
)

// ErrDatasetNotFound is returned for dataset ids the catalog does not list.
var ErrDatasetNotFound = errors.New("dataset not in catalog")

// Station is one catalog entry. Start and Stop are ISO 8601 times; an empty
// Stop means the station is still reporting.
type Station struct {
	ID        string               `yaml:"id"`
	Nickname  string               `yaml:"nickname"`
	Start     string               `yaml:"start"`
	Stop      string               `yaml:"stop"`
	Lat       float64              `yaml:"lat"`
	Lon       float64              `yaml:"lon"`
	Elevation float64              `yaml:"elevation"`
	Types     []domain.DatasetType `yaml:"types"`
}

// Dataset is one entry of the HAPI catalog response.
type Dataset struct {
	ID    string `json:"id"`
	Title string `json:"title,omitempty"`
}

// Catalog is an immutable, validated set of stations.
type Catalog struct {
	stations []Station
	byID     map[string]int
	clock    clockwork.Clock
}

type document struct {
	Stations []Station `yaml:"stations"`
}

// Load reads a catalog from a YAML file. clock supplies the stop date of
// stations that are still recording.
func Load(path string, clock clockwork.Clock) (*Catalog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open catalog: %w", err)
	}
	defer f.Close()
	return Parse(f, clock)
}

// Parse decodes and validates a YAML catalog. Unknown keys are rejected.
func Parse(r io.Reader, clock clockwork.Clock) (*Catalog, error) {
	var doc document
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}

	c := &Catalog{byID: make(map[string]int, len(doc.Stations)), clock: clock}
	for i, st := range doc.Stations {
		if err := normalize(&st); err != nil {
			return nil, fmt.Errorf("catalog station %d: %w", i+1, err)
		}
		if _, dup := c.byID[st.ID]; dup {
			return nil, fmt.Errorf("catalog station %d: duplicate id %q", i+1, st.ID)
		}
		c.byID[st.ID] = len(c.stations)
		c.stations = append(c.stations, st)
	}
	return c, nil
}

func normalize(st *Station) error {
	if st.ID == "" {
		return errors.New("missing id")
	}
	if !filepath.IsLocal(st.ID) || filepath.Base(st.ID) != st.ID {
		return fmt.Errorf("id %q must be a single path segment", st.ID)
	}
	if len(st.Types) == 0 {
		st.Types = []domain.DatasetType{domain.TypeMag}
	}
	for _, t := range st.Types {
		if !t.Known() {
			return fmt.Errorf("%w: %q", domain.ErrUnknownDatasetType, t)
		}
	}

	start, err := domain.ParseISOTime(st.Start)
	if err != nil {
		return fmt.Errorf("start: %w", err)
	}
	st.Start = domain.FormatTimestamp(start)
	if st.Stop != "" {
		stop, err := domain.ParseISOTime(st.Stop)
		if err != nil {
			return fmt.Errorf("stop: %w", err)
		}
		if stop.Before(start) {
			return fmt.Errorf("stop %s is before start %s", st.Stop, st.Start)
		}
		st.Stop = domain.FormatTimestamp(stop)
	}
	return nil
}

// Stations returns the catalog stations in file order.
func (c *Catalog) Stations() []Station {
	return slices.Clone(c.stations)
}

// Datasets lists one dataset per station and type, in file order.
func (c *Catalog) Datasets() []Dataset {
	var out []Dataset
	for _, st := range c.stations {
		for _, t := range st.Types {
			d := Dataset{ID: st.ID + "/" + string(t)}
			if st.Nickname != "" {
				d.Title = st.Nickname + " " + string(t)
			}
			out = append(out, d)
		}
	}
	return out
}

// Lookup returns the station and dataset type of a catalog dataset id.
func (c *Catalog) Lookup(id string) (Station, domain.Dataset, error) {
	ds, err := domain.ParseDatasetID(id)
	if err != nil {
		return Station{}, domain.Dataset{}, err
	}
	i, ok := c.byID[ds.Station]
	if !ok || !slices.Contains(c.stations[i].Types, ds.Type) {
		return Station{}, domain.Dataset{}, fmt.Errorf("%w: %s", ErrDatasetNotFound, id)
	}
	return c.stations[i], ds, nil
}
