package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var (
	// legacyRowRe matches comma-separated rows whose first field is a quoted
	// timestamp starting with a digit, e.g. "21 Oct 2025 04:01:59", ...
	legacyRowRe = regexp.MustCompile(`^"\d`)

	// dopplerRowRe matches doppler data rows; anything else is a header.
	dopplerRowRe = regexp.MustCompile(`^\d{4}`)
)

// jsonFields lists the keys of a JSON-encoded row. Rows must carry exactly these.
var jsonFields = []string{"ts", "rt", "lt", "x", "y", "z", "rx", "ry", "rz", "Tm"}

// LineDecoder decodes the lines of a single container file. The first data
// line fixes the file's Format; later lines must use the same one.
type LineDecoder struct {
	typ    DatasetType
	format Format
	line   int
}

// NewLineDecoder returns a decoder for one file of the given dataset type.
func NewLineDecoder(t DatasetType) *LineDecoder {
	return &LineDecoder{typ: t}
}

// Format returns the format locked by the first data line, or FormatUnknown.
func (d *LineDecoder) Format() Format { return d.format }

// Line returns the 1-based number of the last line passed to Decode.
func (d *LineDecoder) Line() int { return d.line }

// Decode decodes the next line of the file. It returns ok=false for lines
// that carry no record (blank lines and doppler headers). Errors are
// *DecodeError values and are fatal for the rest of the file.
func (d *LineDecoder) Decode(line string) (rec Record, ok bool, err error) {
	d.line++
	line = strings.TrimRight(line, "\r\n")
	if strings.TrimSpace(line) == "" {
		return Record{}, false, nil
	}

	if d.typ == TypeDoppler {
		if !dopplerRowRe.MatchString(line) {
			return Record{}, false, nil
		}
		rec, err = decodeDoppler(line)
		if err != nil {
			return Record{}, false, d.fail(err, line)
		}
		d.format = FormatDoppler
		return rec, true, nil
	}

	format, fields, err := classify(line)
	if err != nil {
		return Record{}, false, d.fail(err, line)
	}
	if d.format != FormatUnknown && format != d.format {
		return Record{}, false, d.fail(fmt.Errorf("%w: %s row in %s file", ErrInconsistentRowFormat, format, d.format), line)
	}

	switch format {
	case FormatJSON:
		rec, err = decodeJSON(line)
	default:
		rec, err = decodeLegacy(fields)
	}
	if err != nil {
		return Record{}, false, d.fail(err, line)
	}
	d.format = format
	return rec, true, nil
}

func (d *LineDecoder) fail(err error, line string) *DecodeError {
	de := &DecodeError{Kind: ErrUnrecognizedRowFormat, Line: d.line, Content: line}
	for _, kind := range []error{
		ErrTimestampParse, ErrUnrecognizedRowFormat, ErrInconsistentRowFormat,
		ErrFieldCountMismatch, ErrMalformedValue,
	} {
		if errors.Is(err, kind) {
			de.Kind = kind
			break
		}
	}
	if err != de.Kind {
		de.Err = err
	}
	return de
}

// classify determines the row encoding of a magnetometer line.
func classify(line string) (Format, []string, error) {
	switch {
	case strings.HasPrefix(line, "{"):
		return FormatJSON, nil, nil
	case legacyRowRe.MatchString(line):
		fields := strings.Split(line, ",")
		for i := range fields {
			fields[i] = strings.TrimSpace(fields[i])
		}
		switch len(fields) {
		case 9:
			return FormatLegacy, fields, nil
		case 10:
			return FormatLegacyTm, fields, nil
		default:
			return FormatUnknown, nil, fmt.Errorf("%w: legacy row has %d fields, want 9 or 10", ErrFieldCountMismatch, len(fields))
		}
	default:
		return FormatUnknown, nil, ErrUnrecognizedRowFormat
	}
}

func decodeJSON(line string) (Record, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal([]byte(line), &raw); err != nil {
		return Record{}, fmt.Errorf("%w: %w", ErrUnrecognizedRowFormat, err)
	}
	if len(raw) != len(jsonFields) {
		return Record{}, fmt.Errorf("%w: JSON row has %d fields, want %d", ErrFieldCountMismatch, len(raw), len(jsonFields))
	}
	for _, k := range jsonFields {
		if _, ok := raw[k]; !ok {
			return Record{}, fmt.Errorf("%w: JSON row is missing %q", ErrFieldCountMismatch, k)
		}
	}

	var ts string
	if err := json.Unmarshal(raw["ts"], &ts); err != nil {
		return Record{}, fmt.Errorf("%w: ts is not a string", ErrTimestampParse)
	}
	t, err := ParseLegacyTime(ts)
	if err != nil {
		return Record{}, err
	}

	rec := Record{Time: t}
	targets := map[string]*float64{
		"rt": &rec.RT, "lt": &rec.LT,
		"x": &rec.X, "y": &rec.Y, "z": &rec.Z,
		"rx": &rec.RX, "ry": &rec.RY, "rz": &rec.RZ,
		"Tm": &rec.Tm,
	}
	for k, dst := range targets {
		// null unmarshals into a *float64 as a no-op, so decode via a pointer.
		var v *float64
		if err := json.Unmarshal(raw[k], &v); err != nil || v == nil {
			return Record{}, fmt.Errorf("%w: %s: %s", ErrMalformedValue, k, raw[k])
		}
		*dst = *v
	}
	return rec, nil
}

// decodeLegacy decodes a legacy row in field order ts, x, y, z, rx, ry, rz, rt, lt[, Tm].
func decodeLegacy(fields []string) (Record, error) {
	t, err := ParseLegacyTime(fields[0])
	if err != nil {
		return Record{}, err
	}
	v := make([]float64, len(fields)-1)
	for i, f := range fields[1:] {
		v[i], err = parseFloat(f)
		if err != nil {
			return Record{}, err
		}
	}
	rec := Record{
		Time: t,
		X:    v[0],
		Y:    v[1],
		Z:    v[2],
		RX:   v[3],
		RY:   v[4],
		RZ:   v[5],
		RT:   v[6],
		LT:   v[7],
		Tm:   MissingTm,
	}
	if len(v) == 9 {
		rec.Tm = v[8]
	}
	return rec, nil
}

func decodeDoppler(line string) (Record, error) {
	cols := strings.Split(line, ",")
	if len(cols) < 3 {
		return Record{}, fmt.Errorf("%w: doppler row has %d fields, want at least 3", ErrFieldCountMismatch, len(cols))
	}
	t, err := ParseISOTime(cols[0])
	if err != nil {
		return Record{}, err
	}
	freq, err := parseFloat(cols[1])
	if err != nil {
		return Record{}, err
	}
	vpk, err := parseFloat(cols[2])
	if err != nil {
		return Record{}, err
	}
	return Record{Time: t, Freq: freq, Vpk: vpk}, nil
}

func parseFloat(s string) (float64, error) {
	s = strings.Trim(strings.TrimSpace(s), `"`)
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrMalformedValue, s)
	}
	return v, nil
}
