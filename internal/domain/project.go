package domain

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"
)

// Parameter names a group of output columns.
type Parameter string

const (
	ParamFieldVector Parameter = "Field_Vector" // x, y, z
	ParamRawVector   Parameter = "rxryrz"       // rx, ry, rz
	ParamRT          Parameter = "rt"
	ParamLT          Parameter = "lt"
	ParamTm          Parameter = "Tm"
	ParamFreq        Parameter = "Freq"
	ParamVpk         Parameter = "Vpk"
)

// TimeParameter is the name of the always-present leading column.
const TimeParameter = "Time"

// canonicalParams is the fixed column order per dataset type. Requested
// groups are always emitted in this order regardless of request order.
var canonicalParams = map[DatasetType][]Parameter{
	TypeMag:     {ParamFieldVector, ParamRawVector, ParamRT, ParamLT, ParamTm},
	TypeDoppler: {ParamFreq, ParamVpk},
}

// Parameters returns the parameter groups of a dataset type in canonical order.
func (t DatasetType) Parameters() []Parameter {
	return slices.Clone(canonicalParams[t])
}

// Projection selects which parameter groups of a Record are written to CSV.
type Projection struct {
	typ    DatasetType
	groups map[Parameter]bool
	order  []Parameter
}

// ParseParameters builds a projection from a comma-separated parameter list.
// An empty list selects every group of the dataset type. The time parameter
// may be named and is ignored since it is always emitted.
func ParseParameters(t DatasetType, list string) (Projection, error) {
	p := Projection{typ: t, groups: make(map[Parameter]bool)}
	known := canonicalParams[t]

	list = strings.TrimSpace(list)
	if list == "" {
		for _, g := range known {
			p.groups[g] = true
		}
		p.order = p.ordered()
		return p, nil
	}

	for _, name := range strings.Split(list, ",") {
		name = strings.TrimSpace(name)
		if name == "" || strings.EqualFold(name, TimeParameter) {
			continue
		}
		g := Parameter(name)
		if !slices.Contains(known, g) {
			return Projection{}, fmt.Errorf("%w: %q for %s datasets", ErrUnknownParameter, name, t)
		}
		p.groups[g] = true
	}

	// Legacy doppler output includes the Freq column whenever Vpk is asked for.
	if t == TypeDoppler && p.groups[ParamVpk] {
		p.groups[ParamFreq] = true
	}
	p.order = p.ordered()
	return p, nil
}

// Parameters returns the selected groups in canonical order.
func (p Projection) Parameters() []Parameter {
	return slices.Clone(p.order)
}

func (p Projection) ordered() []Parameter {
	var out []Parameter
	for _, g := range canonicalParams[p.typ] {
		if p.groups[g] {
			out = append(out, g)
		}
	}
	return out
}

// Columns returns the CSV column names, starting with the time column.
func (p Projection) Columns() []string {
	cols := []string{"timestamp"}
	for _, g := range p.Parameters() {
		switch g {
		case ParamFieldVector:
			cols = append(cols, "x", "y", "z")
		case ParamRawVector:
			cols = append(cols, "rx", "ry", "rz")
		default:
			cols = append(cols, string(g))
		}
	}
	return cols
}

// AppendCSV appends one newline-terminated CSV line for r to dst.
func (p Projection) AppendCSV(dst []byte, r Record) []byte {
	dst = r.Time.UTC().Truncate(time.Second).AppendFormat(dst, TimestampLayout)
	for _, g := range p.order {
		switch g {
		case ParamFieldVector:
			dst = appendValues(dst, r.X, r.Y, r.Z)
		case ParamRawVector:
			dst = appendValues(dst, r.RX, r.RY, r.RZ)
		case ParamRT:
			dst = appendValues(dst, r.RT)
		case ParamLT:
			dst = appendValues(dst, r.LT)
		case ParamTm:
			dst = appendValues(dst, r.Tm)
		case ParamFreq:
			dst = appendValues(dst, r.Freq)
		case ParamVpk:
			dst = appendValues(dst, r.Vpk)
		}
	}
	return append(dst, '\n')
}

// FormatCSV returns the CSV line for r without the trailing newline.
func (p Projection) FormatCSV(r Record) string {
	b := p.AppendCSV(nil, r)
	return string(b[:len(b)-1])
}

func appendValues(dst []byte, vs ...float64) []byte {
	for _, v := range vs {
		dst = append(dst, ',')
		dst = strconv.AppendFloat(dst, v, 'f', -1, 64)
	}
	return dst
}
