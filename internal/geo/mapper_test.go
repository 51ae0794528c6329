package geo

import (
	"errors"
	"math"
	"math/rand"
	"testing"

	"github.com/paulmach/orb"

	"github.com/theway/theway-go/internal/testutil"
)

const tolerance = 1e-6

func almostEqual(a, b, tol float64) bool {
	return math.Abs(a-b) <= tol
}

func TestNewExtent(t *testing.T) {
	tests := []struct {
		name    string
		bounds  [4]float64
		wantErr bool
	}{
		{"valid", [4]float64{0, 0, 100, 50}, false},
		{"negative origin", [4]float64{-10, -20, 10, 20}, false},
		{"zero width", [4]float64{5, 0, 5, 10}, true},
		{"zero height", [4]float64{0, 5, 10, 5}, true},
		{"inverted x", [4]float64{10, 0, 0, 10}, true},
		{"nan", [4]float64{math.NaN(), 0, 10, 10}, true},
		{"inf", [4]float64{0, 0, math.Inf(1), 10}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, err := NewExtent(tt.bounds[0], tt.bounds[1], tt.bounds[2], tt.bounds[3])
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidExtent) {
					t.Errorf("expected ErrInvalidExtent, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if e.Array() != tt.bounds {
				t.Errorf("Array() = %v, want %v", e.Array(), tt.bounds)
			}
		})
	}
}

func TestExtentFromSlice(t *testing.T) {
	e, err := ExtentFromSlice([]float64{0, 0, 100, 100})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if e.Width() != 100 || e.Height() != 100 {
		t.Errorf("expected 100x100, got %gx%g", e.Width(), e.Height())
	}

	if _, err := ExtentFromSlice([]float64{0, 0, 100}); err == nil {
		t.Error("expected error for 3 values")
	}
}

func TestPixelToGeographic(t *testing.T) {
	pixel := MustExtent(0, 0, 200, 100)
	geographic := MustExtent(1000, 2000, 1400, 2500)

	tests := []struct {
		name string
		in   orb.Point
		want orb.Point
	}{
		{"origin", orb.Point{0, 0}, orb.Point{1000, 2000}},
		{"far corner", orb.Point{200, 100}, orb.Point{1400, 2500}},
		{"center", orb.Point{100, 50}, orb.Point{1200, 2250}},
		// independent ratios: x is 2 units/px, y is 5 units/px
		{"x only", orb.Point{10, 0}, orb.Point{1020, 2000}},
		{"y only", orb.Point{0, 10}, orb.Point{1000, 2050}},
		// no clamping outside the raster
		{"outside", orb.Point{-50, 150}, orb.Point{900, 2750}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := PixelToGeographic(pixel, geographic, tt.in)
			if !almostEqual(got[0], tt.want[0], tolerance) || !almostEqual(got[1], tt.want[1], tolerance) {
				t.Errorf("PixelToGeographic(%v) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestPixelGeographicRoundTrip(t *testing.T) {
	pixel := MustExtent(0, 0, 1705, 1253)
	geographic := DefaultGeographicExtent

	points := []orb.Point{
		{0, 0}, {1705, 1253}, {852.5, 626.5}, {1, 1252}, {-300, 4000}, {0.125, 999.875},
	}
	for _, p := range points {
		back := GeographicToPixel(pixel, geographic, PixelToGeographic(pixel, geographic, p))
		if !almostEqual(back[0], p[0], 1e-6) || !almostEqual(back[1], p[1], 1e-6) {
			t.Errorf("round trip %v -> %v", p, back)
		}
	}
}

func TestPixelGeographicRoundTrip_Randomized(t *testing.T) {
	r := rand.New(rand.NewSource(20240611))

	for i := 0; i < 200; i++ {
		g := testutil.RandomExtent(r)
		geographic := MustExtent(g[0], g[1], g[2], g[3])

		var pixel Extent
		if i%2 == 0 {
			pixel, _ = PixelExtent(1+r.Intn(4000), 1+r.Intn(4000))
		} else {
			b := testutil.RandomExtent(r)
			pixel = MustExtent(b[0], b[1], b[2], b[3])
		}

		for j := 0; j < 20; j++ {
			// spans 1.5 extents either side, so a good share lands off the raster
			p := orb.Point{
				pixel.Min[0] + (r.Float64()*4-1.5)*pixel.Width(),
				pixel.Min[1] + (r.Float64()*4-1.5)*pixel.Height(),
			}
			back := GeographicToPixel(pixel, geographic, PixelToGeographic(pixel, geographic, p))

			tolX := 1e-6 * math.Max(1, math.Max(math.Abs(p[0]), pixel.Width()))
			tolY := 1e-6 * math.Max(1, math.Max(math.Abs(p[1]), pixel.Height()))
			if !almostEqual(back[0], p[0], tolX) || !almostEqual(back[1], p[1], tolY) {
				t.Fatalf("round trip %v -> %v (pixel %v, geographic %v)",
					p, back, pixel.Array(), geographic.Array())
			}
		}
	}
}

func TestMercatorRoundTrip(t *testing.T) {
	points := []orb.Point{
		{0, 0}, {37.61, 55.75}, {139.69, 35.68}, {-74.006, 40.7128}, {179.9, -85}, {-179.9, 85},
	}
	for _, p := range points {
		back := ProjectedToLonLat(LonLatToProjected(p))
		if !almostEqual(back[0], p[0], 1e-9) || !almostEqual(back[1], p[1], 1e-9) {
			t.Errorf("mercator round trip %v -> %v", p, back)
		}
	}
}

func TestLonLatToProjectedKnownValue(t *testing.T) {
	// 180° of longitude on the WGS84 sphere is half the equator: pi * 6378137
	got := LonLatToProjected(orb.Point{180, 0})
	if !almostEqual(got[0], math.Pi*6378137, 1e-3) {
		t.Errorf("expected x=%f, got %f", math.Pi*6378137, got[0])
	}
	if !almostEqual(got[1], 0, 1e-6) {
		t.Errorf("expected y=0 at equator, got %f", got[1])
	}
}

func TestCoordinatePixelRoundTrip(t *testing.T) {
	pixel := MustExtent(0, 0, 1000, 800)
	geographic := DefaultGeographicExtent

	c := CoordinatePair{Lat: 41.5, Lon: 140.5}
	p := CoordinateToPixel(pixel, geographic, c)
	back := PixelToCoordinate(pixel, geographic, p)

	if !almostEqual(back.Lat, c.Lat, 1e-9) || !almostEqual(back.Lon, c.Lon, 1e-9) {
		t.Errorf("coordinate round trip %v -> %v", c, back)
	}
}

func TestIsFinite(t *testing.T) {
	if !IsFinite(orb.Point{1, 2}) {
		t.Error("expected finite point")
	}
	if IsFinite(orb.Point{math.NaN(), 2}) {
		t.Error("NaN should not be finite")
	}
	if IsFinite(orb.Point{1, math.Inf(-1)}) {
		t.Error("-Inf should not be finite")
	}
}
