// Package geo converts between the pixel space of a displayed raster, the projected
// (spherical Mercator) plane, and WGS84 longitude/latitude.
package geo

import (
	"errors"
	"fmt"
	"math"

	"github.com/paulmach/orb"
)

// ErrInvalidExtent is returned when an extent violates min < max on either axis
var ErrInvalidExtent = errors.New("invalid extent")

// Extent is an axis-aligned rectangle in pixel or projected space.
// The zero value is not a valid extent; construct with NewExtent.
type Extent struct {
	orb.Bound
}

// NewExtent creates an extent, enforcing minX < maxX and minY < maxY
func NewExtent(minX, minY, maxX, maxY float64) (Extent, error) {
	for _, v := range []float64{minX, minY, maxX, maxY} {
		if !isFinite(v) {
			return Extent{}, fmt.Errorf("%w: non-finite bound %v", ErrInvalidExtent, v)
		}
	}
	if !(minX < maxX) || !(minY < maxY) {
		return Extent{}, fmt.Errorf("%w: [%g, %g, %g, %g]", ErrInvalidExtent, minX, minY, maxX, maxY)
	}
	return Extent{orb.Bound{
		Min: orb.Point{minX, minY},
		Max: orb.Point{maxX, maxY},
	}}, nil
}

// MustExtent is NewExtent for constants; it panics on an invalid rectangle
func MustExtent(minX, minY, maxX, maxY float64) Extent {
	e, err := NewExtent(minX, minY, maxX, maxY)
	if err != nil {
		panic(err)
	}
	return e
}

// ExtentFromSlice builds an extent from the backend's [minX, minY, maxX, maxY] form
func ExtentFromSlice(v []float64) (Extent, error) {
	if len(v) != 4 {
		return Extent{}, fmt.Errorf("%w: expected 4 values, got %d", ErrInvalidExtent, len(v))
	}
	return NewExtent(v[0], v[1], v[2], v[3])
}

// PixelExtent returns the [0, 0, width, height] extent of a raster
func PixelExtent(width, height int) (Extent, error) {
	return NewExtent(0, 0, float64(width), float64(height))
}

// Array returns the extent as [minX, minY, maxX, maxY]
func (e Extent) Array() [4]float64 {
	return [4]float64{e.Min[0], e.Min[1], e.Max[0], e.Max[1]}
}

// Width returns the X span
func (e Extent) Width() float64 {
	return e.Max[0] - e.Min[0]
}

// Height returns the Y span
func (e Extent) Height() float64 {
	return e.Max[1] - e.Min[1]
}

// IsValid reports whether the extent satisfies min < max on both axes
func (e Extent) IsValid() bool {
	return e.Min[0] < e.Max[0] && e.Min[1] < e.Max[1]
}

// Contains reports whether p lies inside the extent, edges included
func (e Extent) Contains(p orb.Point) bool {
	return e.Bound.Contains(p)
}

func (e Extent) String() string {
	return fmt.Sprintf("[%g, %g, %g, %g]", e.Min[0], e.Min[1], e.Max[0], e.Max[1])
}

// IsFinite reports whether both coordinates of p are finite numbers.
// The mapping functions assume finite input; check with this first.
func IsFinite(p orb.Point) bool {
	return isFinite(p[0]) && isFinite(p[1])
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
