package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"gopkg.in/yaml.v3"
)

// City is one location of the weather snapshot. Lat/Lon are optional; when
// missing the city is resolved through the geo CSV.
type City struct {
	Name  string   `yaml:"name"`
	State string   `yaml:"state"`
	Lat   *float64 `yaml:"lat,omitempty"`
	Lon   *float64 `yaml:"lon,omitempty"`
}

type locationsFile struct {
	Cities []City `yaml:"cities"`
}

func coord(v float64) *float64 { return &v }

// DefaultCities are the state and territory capitals.
func DefaultCities() []City {
	return []City{
		{Name: "Sydney", State: "NSW", Lat: coord(-33.8688), Lon: coord(151.2093)},
		{Name: "Melbourne", State: "VIC", Lat: coord(-37.8136), Lon: coord(144.9631)},
		{Name: "Brisbane", State: "QLD", Lat: coord(-27.4698), Lon: coord(153.0251)},
		{Name: "Adelaide", State: "SA", Lat: coord(-34.9285), Lon: coord(138.6007)},
		{Name: "Perth", State: "WA", Lat: coord(-31.9505), Lon: coord(115.8605)},
		{Name: "Hobart", State: "TAS", Lat: coord(-42.8821), Lon: coord(147.3272)},
		{Name: "Darwin", State: "NT", Lat: coord(-12.4634), Lon: coord(130.8456)},
		{Name: "Canberra", State: "ACT", Lat: coord(-35.2809), Lon: coord(149.1300)},
	}
}

// LoadCities reads the snapshot locations from a YAML file. An empty path or
// a missing file yields DefaultCities.
func LoadCities(path string) ([]City, error) {
	if path == "" {
		return DefaultCities(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return DefaultCities(), nil
		}
		return nil, err
	}

	var f locationsFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	if len(f.Cities) == 0 {
		return nil, fmt.Errorf("%s lists no cities", path)
	}
	for i, c := range f.Cities {
		if c.Name == "" || c.State == "" {
			return nil, fmt.Errorf("%s: city %d needs a name and a state", path, i+1)
		}
		if (c.Lat == nil) != (c.Lon == nil) {
			return nil, fmt.Errorf("%s: city %s has only one coordinate", path, c.Name)
		}
	}
	return f.Cities, nil
}
