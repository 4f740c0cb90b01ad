package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRecord() Record {
	return Record{
		Time: time.Date(2025, 10, 21, 4, 1, 59, 0, time.UTC),
		X:    -45676.67,
		Y:    -13284.67,
		Z:    16150.67,
		RX:   -68515,
		RY:   -19927,
		RZ:   24226,
		RT:   32.5,
		LT:   41.69,
		Tm:   50236.2845,
	}
}

func TestProjection_FormatCSV(t *testing.T) {
	tests := []struct {
		params string
		want   string
	}{
		{"Field_Vector", "2025-10-21T04:01:59Z,-45676.67,-13284.67,16150.67"},
		{"", "2025-10-21T04:01:59Z,-45676.67,-13284.67,16150.67,-68515,-19927,24226,32.5,41.69,50236.2845"},
		{"Tm,rt", "2025-10-21T04:01:59Z,32.5,50236.2845"},
		{"lt, rxryrz", "2025-10-21T04:01:59Z,-68515,-19927,24226,41.69"},
		{"Time", "2025-10-21T04:01:59Z"},
		{"Field_Vector,Field_Vector", "2025-10-21T04:01:59Z,-45676.67,-13284.67,16150.67"},
	}
	for _, tt := range tests {
		t.Run(tt.params, func(t *testing.T) {
			p, err := ParseParameters(TypeMag, tt.params)
			require.NoError(t, err)
			assert.Equal(t, tt.want, p.FormatCSV(testRecord()))
		})
	}
}

func TestProjection_CanonicalOrderWins(t *testing.T) {
	a, err := ParseParameters(TypeMag, "Tm,Field_Vector")
	require.NoError(t, err)
	b, err := ParseParameters(TypeMag, "Field_Vector,Tm")
	require.NoError(t, err)

	assert.Equal(t, a.Columns(), b.Columns())
	assert.Equal(t, []string{"timestamp", "x", "y", "z", "Tm"}, a.Columns())
	assert.Equal(t, a.FormatCSV(testRecord()), b.FormatCSV(testRecord()))
}

func TestProjection_SentinelTm(t *testing.T) {
	d := NewLineDecoder(TypeMag)
	rec, _, err := d.Decode(`"21 Oct 2022 04:01:59", 1, 2, 3, 4, 5, 6, 7, 8`)
	require.NoError(t, err)

	p, err := ParseParameters(TypeMag, "Tm")
	require.NoError(t, err)
	assert.Equal(t, "2022-10-21T04:01:59Z,-9999999", p.FormatCSV(rec))
}

func TestProjection_Doppler(t *testing.T) {
	rec := Record{Time: time.Date(2020, 8, 7, 0, 0, 0, 0, time.UTC), Freq: 10.0000123, Vpk: 0.52}

	p, err := ParseParameters(TypeDoppler, "Freq")
	require.NoError(t, err)
	assert.Equal(t, "2020-08-07T00:00:00Z,10.0000123", p.FormatCSV(rec))

	p, err = ParseParameters(TypeDoppler, "Vpk")
	require.NoError(t, err)
	assert.Equal(t, []Parameter{ParamFreq, ParamVpk}, p.Parameters())
	assert.Equal(t, "2020-08-07T00:00:00Z,10.0000123,0.52", p.FormatCSV(rec))
}

func TestParseParameters_Unknown(t *testing.T) {
	_, err := ParseParameters(TypeMag, "Field_Vector,Freq")
	require.ErrorIs(t, err, ErrUnknownParameter)

	_, err = ParseParameters(TypeDoppler, "Tm")
	require.ErrorIs(t, err, ErrUnknownParameter)
}
