// Command genmock reads all-sky camera sighting CSVs and generates the
// observation report fixture used by the relay test suites. Every generated
// report is run through the domain report parser so the fixture only holds
// reports the relay accepts.
//
// Usage:
//
//	go run ./cmd/genmock \
//	  -csv data/mock/sightings_240426.csv \
//	  -catalog data/mock/celestial_bodies.json \
//	  -out data/mock/observation_reports_240426.json
package main

import (
	"encoding/csv"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/couchcryptid/open-observatory/internal/domain"
)

var baseDate = time.Date(2024, time.April, 26, 0, 0, 0, 0, time.UTC)

// parisObservatory is the reference point for the nearby count.
var parisObservatory = domain.Coordinate{Lat: 48.8363, Lng: 2.3364}

type payload struct {
	CelestialBodyID int      `json:"celestialBodyId"`
	Timestamp       string   `json:"timestamp"`
	Orientation     string   `json:"orientation"`
	Visibility      string   `json:"visibility"`
	Lat             *float64 `json:"lat,omitempty"`
	Lng             *float64 `json:"lng,omitempty"`
	Description     string   `json:"description,omitempty"`
}

type fixtureRow struct {
	Key    string  `json:"key"`
	Source string  `json:"source"`
	Report payload `json:"report"`
}

type sighting struct {
	row fixtureRow
	req domain.CreationRequest
}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	csvPath := flag.String("csv", "", "sightings CSV exported by the camera network")
	catalogPath := flag.String("catalog", "", "celestial body catalog JSON")
	out := flag.String("out", "", "output path for the report fixture")
	flag.Parse()

	if *csvPath == "" || *catalogPath == "" || *out == "" {
		flag.Usage()
		return fmt.Errorf("missing required flags: -csv, -catalog, -out")
	}

	catalog, err := readCatalog(*catalogPath)
	if err != nil {
		return fmt.Errorf("reading catalog: %w", err)
	}

	sightings, err := processCSV(*csvPath, catalog)
	if err != nil {
		return fmt.Errorf("processing %s: %w", filepath.Base(*csvPath), err)
	}
	log.Printf("total: %d reports", len(sightings))

	rows := make([]fixtureRow, len(sightings))
	for i, s := range sightings {
		rows[i] = s.row
	}
	if err := writeJSON(*out, rows); err != nil {
		return fmt.Errorf("writing fixture: %w", err)
	}
	log.Printf("wrote fixture: %s", *out)

	printStats(sightings, catalog)
	return nil
}

func readCatalog(path string) (*domain.Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var bodies []domain.CelestialBody
	if err := json.Unmarshal(data, &bodies); err != nil {
		return nil, err
	}
	return domain.NewCatalog(bodies), nil
}

func processCSV(path string, catalog *domain.Catalog) ([]sighting, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open: %w", err)
	}
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}
	if len(rows) < 2 {
		return nil, fmt.Errorf("no data rows")
	}

	colIdx := map[string]int{}
	for i, h := range rows[0] {
		colIdx[h] = i
	}

	out := make([]sighting, 0, len(rows)-1)
	for n, row := range rows[1:] {
		line := n + 2
		r, err := toFixtureRow(row, colIdx)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}

		value, err := json.Marshal(r.Report)
		if err != nil {
			return nil, fmt.Errorf("line %d: marshal report: %w", line, err)
		}
		req, err := domain.ParseReport(domain.RawReport{Key: []byte(r.Key), Value: value}, catalog)
		if err != nil {
			return nil, fmt.Errorf("line %d (%s): %w", line, r.Key, err)
		}
		out = append(out, sighting{row: r, req: req})
	}
	return out, nil
}

func toFixtureRow(row []string, idx map[string]int) (fixtureRow, error) {
	bodyID, err := strconv.Atoi(get(row, idx, "BodyID"))
	if err != nil {
		return fixtureRow{}, fmt.Errorf("body id: %w", err)
	}
	at, err := hhmm(get(row, idx, "Time"))
	if err != nil {
		return fixtureRow{}, err
	}

	p := payload{
		CelestialBodyID: bodyID,
		Timestamp:       at.Format(time.RFC3339),
		Orientation:     get(row, idx, "Orientation"),
		Visibility:      get(row, idx, "Visibility"),
		Description:     get(row, idx, "Description"),
	}
	lat, latErr := strconv.ParseFloat(get(row, idx, "Lat"), 64)
	lng, lngErr := strconv.ParseFloat(get(row, idx, "Lng"), 64)
	if latErr == nil && lngErr == nil {
		p.Lat, p.Lng = &lat, &lng
	}

	return fixtureRow{
		Key:    get(row, idx, "Key"),
		Source: get(row, idx, "Camera"),
		Report: p,
	}, nil
}

// hhmm converts the camera's HHMM clock reading to a UTC time on baseDate.
func hhmm(s string) (time.Time, error) {
	if len(s) != 4 {
		return time.Time{}, fmt.Errorf("time %q: want HHMM", s)
	}
	h, errH := strconv.Atoi(s[:2])
	m, errM := strconv.Atoi(s[2:])
	if errH != nil || errM != nil || h > 23 || m > 59 {
		return time.Time{}, fmt.Errorf("time %q: want HHMM", s)
	}
	return baseDate.Add(time.Duration(h)*time.Hour + time.Duration(m)*time.Minute), nil
}

func get(row []string, idx map[string]int, col string) string {
	i, ok := idx[col]
	if !ok || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

func writeJSON(path string, v any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	return os.WriteFile(path, data, 0o600)
}

type count struct {
	name  string
	count int
}

func sortedCounts(m map[string]int) []count {
	out := make([]count, 0, len(m))
	for k, v := range m {
		out = append(out, count{k, v})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].count != out[j].count {
			return out[i].count > out[j].count
		}
		return out[i].name < out[j].name
	})
	return out
}

func printCounts(label string, m map[string]int) {
	fmt.Printf("%s:", label)
	for _, c := range sortedCounts(m) {
		fmt.Printf(" %s=%d", c.name, c.count)
	}
	fmt.Println()
}

func printStats(sightings []sighting, catalog *domain.Catalog) {
	bodies := map[string]int{}
	visibility := map[string]int{}
	cameras := map[string]int{}
	var described, nearParis int
	var first, last time.Time

	for _, s := range sightings {
		name := strconv.Itoa(s.req.CelestialBodyID)
		if b, ok := catalog.Lookup(s.req.CelestialBodyID); ok {
			name = b.Name
		}
		bodies[name]++
		visibility[string(s.req.Visibility)]++
		cameras[s.row.Source]++
		if s.req.Description != "" {
			described++
		}
		if domain.DistanceKm(parisObservatory, s.req.Coordinate()) <= domain.NearbyRadiusKm {
			nearParis++
		}
		if first.IsZero() || s.req.Timestamp.Before(first) {
			first = s.req.Timestamp
		}
		if s.req.Timestamp.After(last) {
			last = s.req.Timestamp
		}
	}

	fmt.Println("\n=== Stats for updating test assertions ===")
	fmt.Printf("Total: %d\n", len(sightings))
	printCounts("By body", bodies)
	printCounts("By visibility", visibility)
	printCounts("By camera", cameras)
	fmt.Printf("With description: %d\n", described)
	fmt.Printf("Within %.0f km of Paris Observatory: %d\n", domain.NearbyRadiusKm, nearParis)
	if len(sightings) > 0 {
		fmt.Printf("Time range: %s .. %s\n", first.Format(time.RFC3339), last.Format(time.RFC3339))
	}
}
