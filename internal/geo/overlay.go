package geo

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// Overlay is a vector file (coastline, fairways, ...) drawn over the rasters.
// Lines and points are in WGS84 lon/lat.
type Overlay struct {
	Name       string
	Lines      []orb.LineString
	Points     []orb.Point
	SourceFile string
}

// LoadOverlay reads a GeoJSON file: a FeatureCollection, a Feature, or a bare geometry
func LoadOverlay(path string) (*Overlay, error) {
	path = os.ExpandEnv(path)
	if strings.HasPrefix(path, "~") {
		home, _ := os.UserHomeDir()
		path = filepath.Join(home, path[1:])
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read overlay: %w", err)
	}

	overlay, err := ParseOverlay(data)
	if err != nil {
		return nil, fmt.Errorf("parse overlay %s: %w", path, err)
	}
	if overlay.Name == "" {
		overlay.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	overlay.SourceFile = path
	return overlay, nil
}

// ParseOverlay decodes GeoJSON bytes into an overlay
func ParseOverlay(data []byte) (*Overlay, error) {
	var head struct {
		Type string `json:"type"`
		Name string `json:"name"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return nil, err
	}

	overlay := &Overlay{Name: head.Name}

	switch head.Type {
	case "FeatureCollection":
		fc, err := geojson.UnmarshalFeatureCollection(data)
		if err != nil {
			return nil, err
		}
		for _, f := range fc.Features {
			overlay.add(f.Geometry)
		}
	case "Feature":
		f, err := geojson.UnmarshalFeature(data)
		if err != nil {
			return nil, err
		}
		overlay.add(f.Geometry)
	default:
		g, err := geojson.UnmarshalGeometry(data)
		if err != nil {
			return nil, err
		}
		overlay.add(g.Geometry())
	}

	if len(overlay.Lines) == 0 && len(overlay.Points) == 0 {
		return nil, fmt.Errorf("no drawable geometry")
	}
	return overlay, nil
}

func (o *Overlay) add(g orb.Geometry) {
	switch g := g.(type) {
	case orb.Point:
		o.Points = append(o.Points, g)
	case orb.MultiPoint:
		o.Points = append(o.Points, g...)
	case orb.LineString:
		o.Lines = append(o.Lines, g)
	case orb.MultiLineString:
		o.Lines = append(o.Lines, g...)
	case orb.Ring:
		o.Lines = append(o.Lines, closed(orb.LineString(g)))
	case orb.Polygon:
		for _, r := range g {
			o.Lines = append(o.Lines, closed(orb.LineString(r)))
		}
	case orb.MultiPolygon:
		for _, p := range g {
			o.add(p)
		}
	case orb.Collection:
		for _, c := range g {
			o.add(c)
		}
	}
}

func closed(ls orb.LineString) orb.LineString {
	out := make(orb.LineString, len(ls), len(ls)+1)
	copy(out, ls)
	if len(out) > 1 && out[0] != out[len(out)-1] {
		out = append(out, out[0])
	}
	return out
}
