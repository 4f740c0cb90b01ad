// Command genmock writes a small PSWS data tree and matching station catalog
// for local development and manual testing of the HAPI server and audit tool.
// Magnetometer days cycle through the JSON, 10-field and 9-field row
// encodings; each day is split across two zip members. The doppler dataset
// gets one CSV per day.
//
// Usage:
//
//	go run ./cmd/genmock -out data -catalog catalog.yaml -start 2025-10-20 -days 3
package main

import (
	"archive/zip"
	"bufio"
	"flag"
	"fmt"
	"io"
	"log"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/couchcryptid/psws-hapi/internal/catalog"
	"github.com/couchcryptid/psws-hapi/internal/domain"
	"gopkg.in/yaml.v3"
)

const station = "S000001"

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	out := flag.String("out", "data", "data root to write the station tree into")
	catalogPath := flag.String("catalog", "catalog.yaml", "output path for the station catalog")
	startFlag := flag.String("start", "2025-10-20", "first day to generate (YYYY-MM-DD)")
	days := flag.Int("days", 3, "number of days to generate")
	interval := flag.Duration("interval", time.Minute, "spacing between records")
	flag.Parse()

	start, err := time.Parse(domain.DateLayout, *startFlag)
	if err != nil {
		return fmt.Errorf("invalid -start: %w", err)
	}
	if *days < 1 || *interval < time.Second {
		return fmt.Errorf("-days must be >= 1 and -interval >= 1s")
	}

	formats := []domain.Format{domain.FormatJSON, domain.FormatLegacyTm, domain.FormatLegacy}
	for d := range *days {
		day := start.AddDate(0, 0, d)
		format := formats[d%len(formats)]
		path, n, err := writeMagDay(*out, day, format, *interval)
		if err != nil {
			return fmt.Errorf("mag %s: %w", day.Format(domain.DateLayout), err)
		}
		log.Printf("%s: %d %s records", path, n, format)

		path, n, err = writeDopplerDay(*out, day, *interval)
		if err != nil {
			return fmt.Errorf("doppler %s: %w", day.Format(domain.DateLayout), err)
		}
		log.Printf("%s: %d records", path, n)
	}

	stop := start.AddDate(0, 0, *days)
	if err := writeCatalog(*catalogPath, start, stop); err != nil {
		return fmt.Errorf("writing catalog: %w", err)
	}
	log.Printf("wrote catalog: %s", *catalogPath)
	return nil
}

// sample returns deterministic, smoothly varying values for instant t.
func sample(t time.Time) domain.Record {
	phase := 2 * math.Pi * float64(t.Unix()%86400) / 86400
	round := func(v float64) float64 { return math.Round(v*100) / 100 }
	r := domain.Record{
		Time: t,
		X:    round(-45676 + 40*math.Sin(phase)),
		Y:    round(-13284 + 25*math.Cos(phase)),
		Z:    round(16150 + 15*math.Sin(2*phase)),
		RT:   round(32 + 2*math.Sin(phase)),
		LT:   round(41 + 3*math.Cos(phase)),
	}
	r.RX = math.Round(r.X * 1.5)
	r.RY = math.Round(r.Y * 1.5)
	r.RZ = math.Round(r.Z * 1.5)
	r.Tm = round(math.Sqrt(r.X*r.X + r.Y*r.Y + r.Z*r.Z))
	return r
}

func magRow(r domain.Record, format domain.Format) string {
	ts := domain.FormatLegacyTime(r.Time)
	switch format {
	case domain.FormatJSON:
		return fmt.Sprintf(`{"ts":"%s", "rt":%g, "lt":%g, "x":%g, "y":%g, "z":%g, "rx":%g, "ry":%g, "rz":%g, "Tm":%g}`,
			ts, r.RT, r.LT, r.X, r.Y, r.Z, r.RX, r.RY, r.RZ, r.Tm)
	case domain.FormatLegacyTm:
		return fmt.Sprintf(`"%s", %g, %g, %g, %g, %g, %g, %g, %g, %g`,
			ts, r.X, r.Y, r.Z, r.RX, r.RY, r.RZ, r.RT, r.LT, r.Tm)
	default:
		return fmt.Sprintf(`"%s", %g, %g, %g, %g, %g, %g, %g, %g`,
			ts, r.X, r.Y, r.Z, r.RX, r.RY, r.RZ, r.RT, r.LT)
	}
}

// writeMagDay writes one day as OBS<date>T00:00.zip with two members split
// at noon.
func writeMagDay(root string, day time.Time, format domain.Format, interval time.Duration) (string, int, error) {
	dir := filepath.Join(root, station, domain.TypeMag.SubDir())
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", 0, err
	}
	path := filepath.Join(dir, "OBS"+day.Format("2006-01-02T15:04")+".zip")
	f, err := os.Create(path)
	if err != nil {
		return "", 0, err
	}
	defer f.Close()

	zw := zip.NewWriter(f)
	noon := day.Add(12 * time.Hour)
	n := 0
	for _, half := range []struct{ from, to time.Time }{{day, noon}, {noon, day.AddDate(0, 0, 1)}} {
		w, err := zw.Create("OBS" + half.from.Format("2006-01-02T15:04") + ".log")
		if err != nil {
			return "", 0, err
		}
		bw := bufio.NewWriter(w)
		for t := half.from; t.Before(half.to); t = t.Add(interval) {
			if _, err := io.WriteString(bw, magRow(sample(t), format)+"\n"); err != nil {
				return "", 0, err
			}
			n++
		}
		if err := bw.Flush(); err != nil {
			return "", 0, err
		}
	}
	if err := zw.Close(); err != nil {
		return "", 0, err
	}
	return path, n, nil
}

func writeDopplerDay(root string, day time.Time, interval time.Duration) (string, int, error) {
	dir := filepath.Join(root, station, domain.TypeDoppler.SubDir())
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", 0, err
	}
	path := filepath.Join(dir, day.Format(domain.DateLayout)+"_"+station+"_doppler.csv")
	f, err := os.Create(path)
	if err != nil {
		return "", 0, err
	}
	defer f.Close()

	bw := bufio.NewWriter(f)
	fmt.Fprintln(bw, "UTC,Freq,Vpk")
	n := 0
	for t := day; t.Before(day.AddDate(0, 0, 1)); t = t.Add(interval) {
		phase := 2 * math.Pi * float64(t.Unix()%86400) / 86400
		fmt.Fprintf(bw, "%s,%.3f,%.4f\n", domain.FormatTimestamp(t), 10e6+0.5*math.Sin(phase), 0.02+0.01*math.Cos(phase))
		n++
	}
	if err := bw.Flush(); err != nil {
		return "", 0, err
	}
	return path, n, nil
}

func writeCatalog(path string, start, stop time.Time) error {
	doc := map[string][]catalog.Station{
		"stations": {{
			ID:        station,
			Nickname:  "Mock station",
			Start:     domain.FormatTimestamp(start),
			Stop:      domain.FormatTimestamp(stop),
			Lat:       41.41,
			Lon:       -75.66,
			Elevation: 230,
			Types:     []domain.DatasetType{domain.TypeMag, domain.TypeDoppler},
		}},
	}
	data, err := yaml.Marshal(doc)
	if err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return os.WriteFile(path, data, 0o600)
}
