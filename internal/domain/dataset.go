package domain

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// DatasetType is the suffix of a dataset id and selects the row encoding
// family and directory convention.
type DatasetType string

const (
	TypeMag     DatasetType = "mag"
	TypeDoppler DatasetType = "doppler"
	TypeDRF     DatasetType = "drf"
)

// subDirs maps a dataset type to the subdirectory of the station directory
// that holds its container files.
var subDirs = map[DatasetType]string{
	TypeMag:     "magData",
	TypeDoppler: "csvData",
	TypeDRF:     "",
}

// extensions maps a dataset type to its container file extension. Types
// without an entry have no container file convention.
var extensions = map[DatasetType]string{
	TypeMag:     ".zip",
	TypeDoppler: ".csv",
}

var (
	// magNameRe matches "OBS2025-10-21T00:00.zip" and "OBS-20251021-0000.zip".
	magNameRe = regexp.MustCompile(`^OBS-?(\d{4})-?(\d{2})-?(\d{2})`)

	// dopplerNameRe matches "2020-08-07_....csv" and "20200807....csv".
	dopplerNameRe = regexp.MustCompile(`^(\d{4})-?(\d{2})-?(\d{2})`)
)

// SubDir returns the subdirectory name for the type.
func (t DatasetType) SubDir() string { return subDirs[t] }

// Extension returns the container file extension, or "" when the type has
// no container file convention.
func (t DatasetType) Extension() string { return extensions[t] }

// Known reports whether t is a supported dataset type.
func (t DatasetType) Known() bool {
	_, ok := subDirs[t]
	return ok
}

// DateCode extracts the YYYY-MM-DD date code from a container file name.
func (t DatasetType) DateCode(name string) (string, bool) {
	var re *regexp.Regexp
	switch t {
	case TypeMag:
		re = magNameRe
	case TypeDoppler:
		re = dopplerNameRe
	default:
		return "", false
	}
	m := re.FindStringSubmatch(name)
	if len(m) != 4 {
		return "", false
	}
	code := m[1] + "-" + m[2] + "-" + m[3]
	if _, err := time.Parse(DateLayout, code); err != nil {
		return "", false
	}
	return code, true
}

// Dataset is a parsed dataset id of the form "<station>/<type>".
type Dataset struct {
	ID      string
	Station string
	Type    DatasetType
}

// ParseDatasetID splits id on its last path segment. No filesystem access
// happens here, so an unknown type is rejected before any I/O.
func ParseDatasetID(id string) (Dataset, error) {
	id = strings.TrimSpace(id)
	i := strings.LastIndex(id, "/")
	if i <= 0 || i == len(id)-1 {
		return Dataset{}, fmt.Errorf("%w: dataset id %q must end with /mag, /doppler, or /drf", ErrUnknownDatasetType, id)
	}
	t := DatasetType(id[i+1:])
	if !t.Known() {
		return Dataset{}, fmt.Errorf("%w: %q in dataset id %q", ErrUnknownDatasetType, t, id)
	}
	return Dataset{ID: id, Station: id[:i], Type: t}, nil
}

// Window is the half-open interval [Start, Stop) of a request.
type Window struct {
	Start time.Time
	Stop  time.Time
}

// NewWindow parses HAPI start and stop times. Stop must be after start.
func NewWindow(start, stop string) (Window, error) {
	s, err := ParseISOTime(start)
	if err != nil {
		return Window{}, fmt.Errorf("%w: %w", ErrInvalidStart, err)
	}
	e, err := ParseISOTime(stop)
	if err != nil {
		return Window{}, fmt.Errorf("%w: %w", ErrInvalidStop, err)
	}
	if !e.After(s) {
		return Window{}, fmt.Errorf("%w: stop %s is not after start %s", ErrInvalidWindow, FormatTimestamp(e), FormatTimestamp(s))
	}
	return Window{Start: s, Stop: e}, nil
}

// Contains reports whether t lies in [Start, Stop).
func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.Start) && t.Before(w.Stop)
}

// StartDate and StopDate are the day-level bounds used for file selection.
func (w Window) StartDate() string { return w.Start.UTC().Format(DateLayout) }
func (w Window) StopDate() string  { return w.Stop.UTC().Format(DateLayout) }
