package geo

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/project"
)

// DefaultGeographicExtent is the projected rectangle the stock background
// raster covers until the backend supplies another one.
var DefaultGeographicExtent = MustExtent(
	15538419.802888298, 5003643.068442375,
	15751596.627757415, 5160889.56738335,
)

// PixelToGeographic scales a pixel-space point into the projected extent.
// Each axis has its own ratio; out-of-range input is not clamped.
func PixelToGeographic(pixel, geographic Extent, p orb.Point) orb.Point {
	xRatio := geographic.Width() / pixel.Width()
	yRatio := geographic.Height() / pixel.Height()
	return orb.Point{
		geographic.Min[0] + (p[0]-pixel.Min[0])*xRatio,
		geographic.Min[1] + (p[1]-pixel.Min[1])*yRatio,
	}
}

// GeographicToPixel is the inverse of PixelToGeographic
func GeographicToPixel(pixel, geographic Extent, p orb.Point) orb.Point {
	xRatio := pixel.Width() / geographic.Width()
	yRatio := pixel.Height() / geographic.Height()
	return orb.Point{
		pixel.Min[0] + (p[0]-geographic.Min[0])*xRatio,
		pixel.Min[1] + (p[1]-geographic.Min[1])*yRatio,
	}
}

// ProjectedToLonLat converts spherical Mercator meters to WGS84 [lon, lat]
func ProjectedToLonLat(p orb.Point) orb.Point {
	return project.Mercator.ToWGS84(p)
}

// LonLatToProjected converts WGS84 [lon, lat] to spherical Mercator meters
func LonLatToProjected(p orb.Point) orb.Point {
	return project.WGS84.ToMercator(p)
}

// PixelToCoordinate maps a pixel on the raster to the coordinate pair shown to the user
func PixelToCoordinate(pixel, geographic Extent, p orb.Point) CoordinatePair {
	ll := ProjectedToLonLat(PixelToGeographic(pixel, geographic, p))
	return CoordinatePair{Lat: ll.Lat(), Lon: ll.Lon()}
}

// CoordinateToPixel maps a user coordinate pair back onto the raster
func CoordinateToPixel(pixel, geographic Extent, c CoordinatePair) orb.Point {
	return GeographicToPixel(pixel, geographic, LonLatToProjected(orb.Point{c.Lon, c.Lat}))
}
