// Package geo resolves an Australian suburb and state to coordinates using
// the georef-australia-state-suburb CSV export.
package geo

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

const (
	colGeoPoint = "Geo Point"
	colSuburb   = "Official Name Suburb"
	colState    = "Official Name State"
)

var stateCodes = map[string]string{
	"new south wales":              "NSW",
	"victoria":                     "VIC",
	"queensland":                   "QLD",
	"south australia":              "SA",
	"western australia":            "WA",
	"tasmania":                     "TAS",
	"northern territory":           "NT",
	"australian capital territory": "ACT",
}

type Coordinates struct {
	Lat float64
	Lon float64
}

type Geocoder struct {
	places map[string]Coordinates
}

// LoadFile reads the CSV at path.
func LoadFile(path string) (*Geocoder, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open geo csv: %w", err)
	}
	defer f.Close()
	return Load(f)
}

// Load parses a ';' separated CSV with a header row.
func Load(r io.Reader) (*Geocoder, error) {
	reader := csv.NewReader(r)
	reader.Comma = ';'
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read geo csv header: %w", err)
	}
	idx := make(map[string]int, len(header))
	for i, h := range header {
		idx[strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))] = i
	}
	for _, col := range []string{colGeoPoint, colSuburb, colState} {
		if _, ok := idx[col]; !ok {
			return nil, fmt.Errorf("geo csv is missing column %q", col)
		}
	}

	g := &Geocoder{places: make(map[string]Coordinates)}
	for {
		rec, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read geo csv: %w", err)
		}
		if len(rec) <= idx[colGeoPoint] || len(rec) <= idx[colSuburb] || len(rec) <= idx[colState] {
			continue
		}

		coords, ok := parsePoint(rec[idx[colGeoPoint]])
		if !ok {
			continue
		}
		state := stateCode(rec[idx[colState]])
		if state == "" {
			continue
		}
		key := placeKey(rec[idx[colSuburb]], state)
		if _, dup := g.places[key]; !dup {
			g.places[key] = coords
		}
	}
	return g, nil
}

// Resolve looks up suburb in state. state may be a code or a full name.
func (g *Geocoder) Resolve(suburb, state string) (float64, float64, bool) {
	if g == nil {
		return 0, 0, false
	}
	code := stateCode(state)
	if code == "" {
		return 0, 0, false
	}
	c, ok := g.places[placeKey(suburb, code)]
	return c.Lat, c.Lon, ok
}

func (g *Geocoder) Len() int {
	return len(g.places)
}

// parsePoint reads "lat, lon".
func parsePoint(s string) (Coordinates, bool) {
	parts := strings.Split(s, ",")
	if len(parts) != 2 {
		return Coordinates{}, false
	}
	lat, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return Coordinates{}, false
	}
	lon, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return Coordinates{}, false
	}
	return Coordinates{Lat: lat, Lon: lon}, true
}

func stateCode(s string) string {
	s = strings.TrimSpace(s)
	upper := strings.ToUpper(s)
	for _, code := range stateCodes {
		if code == upper {
			return code
		}
	}
	return stateCodes[strings.ToLower(s)]
}

func placeKey(suburb, state string) string {
	return strings.ToLower(strings.TrimSpace(suburb)) + "|" + state
}
