package testutil

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"math/rand"
)

// Fixture colors for the rasters the fake backend serves
var (
	ColorClusters   = color.RGBA{R: 220, G: 40, B: 40, A: 255}
	ColorPolygons   = color.RGBA{R: 40, G: 160, B: 60, A: 255}
	ColorRoute      = color.RGBA{R: 30, G: 90, B: 220, A: 255}
	ColorBackground = color.RGBA{R: 200, G: 210, B: 230, A: 255}
	Transparent     = color.RGBA{}
)

// SolidImage returns a w x h image filled with c
func SolidImage(w, h int, c color.Color) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	return img
}

// SolidPNG returns PNG bytes of a w x h image filled with c
func SolidPNG(w, h int, c color.Color) []byte {
	return EncodePNG(SolidImage(w, h, c))
}

// DotPNG returns a transparent w x h PNG with a single pixel of c at (x, y)
func DotPNG(w, h, x, y int, c color.Color) []byte {
	img := SolidImage(w, h, Transparent)
	img.Set(x, y, c)
	return EncodePNG(img)
}

// EncodePNG encodes img, panicking on failure
func EncodePNG(img image.Image) []byte {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		panic(fmt.Sprintf("encode png: %v", err))
	}
	return buf.Bytes()
}

// RandomExtent returns a valid extent inside the Web Mercator world bounds
func RandomExtent(r *rand.Rand) [4]float64 {
	const world = 20037508.34
	minX := (r.Float64()*2 - 1) * world * 0.9
	minY := (r.Float64()*2 - 1) * world * 0.9
	w := 1 + r.Float64()*world*0.1
	h := 1 + r.Float64()*world*0.1
	return [4]float64{minX, minY, minX + w, minY + h}
}

// PositionsCSV is a tiny AIS positions file for upload tests
const PositionsCSV = `mmsi,timestamp,lat,lon,sog,cog
273111111,2023-01-01T00:00:00Z,43.10,131.90,10.2,45.0
273111111,2023-01-01T00:05:00Z,43.11,131.92,10.4,46.0
`

// MarineCSV is a tiny vessel registry file for upload tests
const MarineCSV = `mmsi,name,type
273111111,NADEZHDA,cargo
`
