// Command validate performs data integrity checks across the mock data used
// by the relay: the celestial body catalog, the camera sightings CSV and the
// observation report fixture generated from it. It verifies row counts,
// cross-source consistency, report acceptance and wire shape.
//
// Usage:
//
//	go run ./cmd/validate \
//	  -catalog data/mock/celestial_bodies.json \
//	  -csv data/mock/sightings_240426.csv \
//	  -reports data/mock/observation_reports_240426.json
package main

import (
	"encoding/csv"
	"encoding/json"
	"flag"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/couchcryptid/open-observatory/internal/domain"
)

var baseDate = time.Date(2024, time.April, 26, 0, 0, 0, 0, time.UTC)

// phase tracks pass/fail for a validation phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

type reportRow struct {
	Key    string          `json:"key"`
	Source string          `json:"source"`
	Report json.RawMessage `json:"report"`
}

func main() {
	catalogPath := flag.String("catalog", "", "path to the celestial body catalog JSON")
	csvPath := flag.String("csv", "", "path to the camera sightings CSV")
	reportsPath := flag.String("reports", "", "path to the observation report fixture")
	flag.Parse()

	if *catalogPath == "" || *csvPath == "" || *reportsPath == "" {
		flag.Usage()
		os.Exit(1)
	}

	if code := run(*catalogPath, *csvPath, *reportsPath); code != 0 {
		os.Exit(code)
	}
}

func run(catalogPath, csvPath, reportsPath string) int {
	fmt.Println("=== Observation Data Integrity Validation ===")
	fmt.Println()

	bodies, err := loadJSON[domain.CelestialBody](catalogPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: load catalog: %v\n", err)
		return 1
	}

	sightings, err := loadCSV(csvPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: load sightings CSV: %v\n", err)
		return 1
	}

	reports, err := loadJSON[reportRow](reportsPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: load report fixture: %v\n", err)
		return 1
	}

	catalog := domain.NewCatalog(bodies)
	phases := []*phase{
		validateCatalog(bodies),
		validateFixtureParity(reports, sightings),
		validateReportAcceptance(reports, catalog),
		validateWireShape(reports, catalog),
	}

	fmt.Println()
	allPassed := true
	for _, p := range phases {
		status := "\033[32mPASS\033[0m"
		if !p.passed() {
			status = fmt.Sprintf("\033[31mFAIL (%d errors)\033[0m", len(p.errors))
			allPassed = false
		}
		fmt.Printf("  %-42s %s\n", p.name, status)
	}

	fmt.Println()
	fmt.Printf("Records: %d bodies, %d sightings CSV, %d reports JSON\n", len(bodies), len(sightings), len(reports))

	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Printf("\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			fmt.Printf("  [%d] %s\n", i+1, e)
		}
	}

	if allPassed {
		fmt.Println("\nAll validations passed.")
		return 0
	}
	fmt.Println("\nValidation FAILED.")
	return 1
}

// ── Data loading ──

// csvRow is a parsed CSV row with field values keyed by header name.
type csvRow struct {
	lineNum int
	fields  map[string]string
}

func loadCSV(path string) ([]csvRow, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	all, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, err
	}
	if len(all) < 2 {
		return nil, fmt.Errorf("no data rows in %s", path)
	}

	header := all[0]
	rows := make([]csvRow, 0, len(all)-1)
	for i, row := range all[1:] {
		fields := make(map[string]string, len(header))
		for j, h := range header {
			if j < len(row) {
				fields[h] = strings.TrimSpace(row[j])
			}
		}
		rows = append(rows, csvRow{lineNum: i + 2, fields: fields})
	}
	return rows, nil
}

func loadJSON[T any](path string) ([]T, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var items []T
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, err
	}
	return items, nil
}

// ── Phase 1: Catalog ──
// Validates the catalog and the achievement display tables.

func validateCatalog(bodies []domain.CelestialBody) *phase {
	p := &phase{name: "Phase 1: Catalog (bodies, badges)"}

	seen := map[int]bool{}
	for i, b := range bodies {
		if b.ID <= 0 {
			p.errorf("body %d: id %d is not positive", i, b.ID)
		}
		if seen[b.ID] {
			p.errorf("body %d: duplicate id %d", i, b.ID)
		}
		seen[b.ID] = true
		if b.Name == "" {
			p.errorf("body %d (id %d): name is empty", i, b.ID)
		}
		if b.Image == "" {
			p.errorf("body %d (id %d): image is empty", i, b.ID)
		}
		if b.ValidityTime < 0 {
			p.errorf("body %d (id %d): negative validity time %d", i, b.ID, b.ValidityTime)
		}
	}

	if err := domain.ValidateAchievementTables(); err != nil {
		p.errorf("%v", err)
	}
	return p
}

// ── Phase 2: Fixture Parity ──
// Validates the report fixture against the sightings CSV it was generated from.

func validateFixtureParity(reports []reportRow, sightings []csvRow) *phase {
	p := &phase{name: "Phase 2: Fixture Parity (JSON vs CSV)"}

	if len(reports) != len(sightings) {
		p.errorf("total count: CSV has %d rows, JSON has %d", len(sightings), len(reports))
	}

	byKey := map[string]reportRow{}
	for i, r := range reports {
		if r.Key == "" {
			p.errorf("report %d: missing key", i)
			continue
		}
		if _, dup := byKey[r.Key]; dup {
			p.errorf("report %d: duplicate key %q", i, r.Key)
		}
		byKey[r.Key] = r
	}

	for _, row := range sightings {
		key := row.fields["Key"]
		r, ok := byKey[key]
		if !ok {
			p.errorf("line %d: CSV row %q not found in JSON", row.lineNum, key)
			continue
		}
		compareRow(p, row, r)
	}
	return p
}

func compareRow(p *phase, row csvRow, r reportRow) {
	var body struct {
		CelestialBodyID int     `json:"celestialBodyId"`
		Timestamp       string  `json:"timestamp"`
		Orientation     string  `json:"orientation"`
		Visibility      string  `json:"visibility"`
		Lat             float64 `json:"lat"`
		Lng             float64 `json:"lng"`
		Description     string  `json:"description"`
	}
	if err := json.Unmarshal(r.Report, &body); err != nil {
		p.errorf("line %d (%s): report does not decode: %v", row.lineNum, r.Key, err)
		return
	}

	if r.Source != row.fields["Camera"] {
		p.errorf("line %d (%s): source: CSV=%q, JSON=%q", row.lineNum, r.Key, row.fields["Camera"], r.Source)
	}
	if strconv.Itoa(body.CelestialBodyID) != row.fields["BodyID"] {
		p.errorf("line %d (%s): body id: CSV=%s, JSON=%d", row.lineNum, r.Key, row.fields["BodyID"], body.CelestialBodyID)
	}
	if body.Orientation != row.fields["Orientation"] {
		p.errorf("line %d (%s): orientation: CSV=%q, JSON=%q", row.lineNum, r.Key, row.fields["Orientation"], body.Orientation)
	}
	if body.Visibility != row.fields["Visibility"] {
		p.errorf("line %d (%s): visibility: CSV=%q, JSON=%q", row.lineNum, r.Key, row.fields["Visibility"], body.Visibility)
	}
	if body.Description != row.fields["Description"] {
		p.errorf("line %d (%s): description differs", row.lineNum, r.Key)
	}
	if want := expectedTimestamp(row.fields["Time"]); body.Timestamp != want {
		p.errorf("line %d (%s): timestamp: expected %s, got %s", row.lineNum, r.Key, want, body.Timestamp)
	}
	if lat, err := strconv.ParseFloat(row.fields["Lat"], 64); err != nil || !floatEq(lat, body.Lat) {
		p.errorf("line %d (%s): lat: CSV=%s, JSON=%g", row.lineNum, r.Key, row.fields["Lat"], body.Lat)
	}
	if lng, err := strconv.ParseFloat(row.fields["Lng"], 64); err != nil || !floatEq(lng, body.Lng) {
		p.errorf("line %d (%s): lng: CSV=%s, JSON=%g", row.lineNum, r.Key, row.fields["Lng"], body.Lng)
	}
}

func expectedTimestamp(hhmm string) string {
	if len(hhmm) != 4 {
		return "<bad HHMM " + hhmm + ">"
	}
	h, _ := strconv.Atoi(hhmm[:2])
	m, _ := strconv.Atoi(hhmm[2:])
	return baseDate.Add(time.Duration(h)*time.Hour + time.Duration(m)*time.Minute).Format(time.RFC3339)
}

// ── Phase 3: Report Acceptance ──
// Re-runs every report through the report parser the relay uses.

func validateReportAcceptance(reports []reportRow, catalog *domain.Catalog) *phase {
	p := &phase{name: "Phase 3: Report Acceptance (parser)"}

	for i, r := range reports {
		req, err := domain.ParseReport(domain.RawReport{Key: []byte(r.Key), Value: r.Report}, catalog)
		if err != nil {
			p.errorf("report %d (%s): %v", i, r.Key, err)
			continue
		}
		if !req.Visibility.Valid() {
			p.errorf("report %d (%s): visibility %q not in {NAKED_EYE, BINOCULARS, TELESCOPE}", i, r.Key, req.Visibility)
		}
		if !domain.ValidOrientation(req.Orientation) {
			p.errorf("report %d (%s): orientation %q has no digit", i, r.Key, req.Orientation)
		}
		if !req.Timestamp.Truncate(24 * time.Hour).Equal(baseDate) {
			p.errorf("report %d (%s): timestamp %s is not on %s", i, r.Key,
				req.Timestamp.Format(time.RFC3339), baseDate.Format(time.DateOnly))
		}
		if req.Lat < -90 || req.Lat > 90 || req.Lng < -180 || req.Lng > 180 {
			p.errorf("report %d (%s): coordinate %s out of range", i, r.Key, req.Coordinate())
		}
	}
	return p
}

// ── Phase 4: Wire Shape ──
// Validates that the creation requests built from the fixture serialize with
// the field names and types the platform expects.

var requiredWireFields = map[string]string{
	"celestialBodyId": "number",
	"timestamp":       "string",
	"orientation":     "string",
	"visibility":      "string",
	"lat":             "number",
	"lng":             "number",
}

func validateWireShape(reports []reportRow, catalog *domain.Catalog) *phase {
	p := &phase{name: "Phase 4: Wire Shape (creation request)"}

	for i, r := range reports {
		req, err := domain.ParseReport(domain.RawReport{Value: r.Report}, catalog)
		if err != nil {
			continue // reported in phase 3
		}
		data, err := json.Marshal(req)
		if err != nil {
			p.errorf("report %d (%s): marshal: %v", i, r.Key, err)
			continue
		}
		var wire map[string]any
		if err := json.Unmarshal(data, &wire); err != nil {
			p.errorf("report %d (%s): unmarshal: %v", i, r.Key, err)
			continue
		}
		for field, kind := range requiredWireFields {
			v, ok := wire[field]
			if !ok {
				p.errorf("report %d (%s): %s missing", i, r.Key, field)
				continue
			}
			if got := jsonKind(v); got != kind {
				p.errorf("report %d (%s): %s is a %s, want %s", i, r.Key, field, got, kind)
			}
		}
		if _, ok := wire["description"]; ok && req.Description == "" {
			p.errorf("report %d (%s): empty description is sent", i, r.Key)
		}
	}
	return p
}

func jsonKind(v any) string {
	switch v.(type) {
	case string:
		return "string"
	case float64:
		return "number"
	case bool:
		return "bool"
	case nil:
		return "null"
	default:
		return "object"
	}
}

// ── Helpers ──

func floatEq(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}
