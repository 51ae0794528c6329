package geo

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrInvalidCoordinates is returned when text is not exactly two finite numbers
var ErrInvalidCoordinates = errors.New("expected two numbers: \"lat, lon\"")

// CoordinatePair is a latitude/longitude pair in decimal degrees
type CoordinatePair struct {
	Lat float64
	Lon float64
}

// String formats the pair the way the backend expects it: "lat, lon" with 6 decimals
func (c CoordinatePair) String() string {
	return fmt.Sprintf("%.6f, %.6f", c.Lat, c.Lon)
}

// ParseCoordinatePair parses "lat, lon", "lat lon" or "lat,lon".
// Commas and runs of whitespace are both separators.
func ParseCoordinatePair(raw string) (CoordinatePair, error) {
	parts := strings.Fields(strings.ReplaceAll(raw, ",", " "))
	if len(parts) != 2 {
		return CoordinatePair{}, ErrInvalidCoordinates
	}

	lat, err := strconv.ParseFloat(parts[0], 64)
	if err != nil || !isFinite(lat) {
		return CoordinatePair{}, ErrInvalidCoordinates
	}
	lon, err := strconv.ParseFloat(parts[1], 64)
	if err != nil || !isFinite(lon) {
		return CoordinatePair{}, ErrInvalidCoordinates
	}

	return CoordinatePair{Lat: lat, Lon: lon}, nil
}
