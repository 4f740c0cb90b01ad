package domain

import "time"

// MissingTm is the sentinel stored in Record.Tm when the source encoding
// predates the Tm field.
const MissingTm = -9999999

// Format identifies the row encoding of a container file. A file's format is
// fixed by its first data line.
type Format int

const (
	FormatUnknown Format = iota
	// FormatJSON is one JSON object per line with ten named fields.
	FormatJSON
	// FormatLegacy is a comma-separated row of nine fields without Tm.
	FormatLegacy
	// FormatLegacyTm is a comma-separated row of ten fields ending in Tm.
	FormatLegacyTm
	// FormatDoppler is a comma-separated doppler row: time, Freq, Vpk.
	FormatDoppler
)

var formatNames = map[Format]string{
	FormatUnknown:  "unknown",
	FormatJSON:     "json",
	FormatLegacy:   "legacy-9",
	FormatLegacyTm: "legacy-10",
	FormatDoppler:  "doppler",
}

func (f Format) String() string {
	if n, ok := formatNames[f]; ok {
		return n
	}
	return "unknown"
}

// Record is one observation sample in canonical shape. Magnetometer rows fill
// the vector and temperature fields; doppler rows fill Freq and Vpk.
type Record struct {
	Time time.Time

	X, Y, Z    float64 // field vector, nT
	RX, RY, RZ float64 // raw vector components
	RT         float64 // raw temperature
	LT         float64 // local temperature
	Tm         float64 // MissingTm for nine-field legacy rows

	Freq float64
	Vpk  float64
}

// ContainerFile is one day (or batch) of archived records for a dataset.
type ContainerFile struct {
	Path      string
	Name      string
	DatasetID string
	DateCode  string // YYYY-MM-DD, taken from the file name
}
