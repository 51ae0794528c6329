// Package mapview renders map layers onto a terminal cell grid
package mapview

import (
	"fmt"
	"image"
	"image/color"
	"math"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/paulmach/orb"

	"github.com/theway/theway-go/internal/geo"
	"github.com/theway/theway-go/internal/layers"
	"github.com/theway/theway-go/internal/theme"
)

// Grid and zoom limits
const (
	DefaultWidth  = 72
	DefaultHeight = 26
	MinZoom       = 2
	MaxZoom       = 4
)

// Marker runes
const (
	StartRune   = 'A'
	EndRune     = 'B'
	CursorRune  = '+'
	OverlayRune = '•'
	TrackRune   = '·'
)

// shades by raster coverage, lightest first
var shades = []rune{' ', '░', '▒', '▓', '█'}

// cell represents a single map cell with character and color
type cell struct {
	char  rune
	color lipgloss.Color
}

// Viewport is a window onto the pixel extent. Pixel Y grows upward, so
// row 0 shows the top (maxY) of the visible area.
type Viewport struct {
	width, height int
	extent        geo.Extent
	center        orb.Point
	zoom          int

	cursorCol, cursorRow int
	showCursor           bool

	cells [][]cell
	theme *theme.Theme
}

// New creates a viewport of width x height cells over extent, zoomed out
func New(width, height int, extent geo.Extent, t *theme.Theme) *Viewport {
	if width < 1 {
		width = DefaultWidth
	}
	if height < 1 {
		height = DefaultHeight
	}
	if t == nil {
		t = theme.Get(theme.Default)
	}
	v := &Viewport{
		width:      width,
		height:     height,
		theme:      t,
		showCursor: true,
	}
	v.setExtent(extent)
	v.allocate()
	return v
}

func (v *Viewport) allocate() {
	v.cells = make([][]cell, v.height)
	for y := range v.cells {
		v.cells[y] = make([]cell, v.width)
	}
	v.Clear()
}

// Clear clears the cell grid
func (v *Viewport) Clear() {
	for y := range v.cells {
		for x := range v.cells[y] {
			v.cells[y][x] = cell{char: ' '}
		}
	}
}

// SetTheme updates the theme
func (v *Viewport) SetTheme(t *theme.Theme) {
	if t != nil {
		v.theme = t
	}
}

// Resize changes the grid size, keeping center and zoom
func (v *Viewport) Resize(width, height int) {
	if width < 1 || height < 1 || (width == v.width && height == v.height) {
		return
	}
	v.width, v.height = width, height
	v.allocate()
	v.clampCursor()
}

// Size returns the grid size in cells
func (v *Viewport) Size() (int, int) {
	return v.width, v.height
}

// SetExtent switches to a new pixel extent. A different extent resets the
// view to show all of it.
func (v *Viewport) SetExtent(e geo.Extent) {
	if e == v.extent || !e.IsValid() {
		return
	}
	v.setExtent(e)
}

func (v *Viewport) setExtent(e geo.Extent) {
	if !e.IsValid() {
		e = geo.MustExtent(0, 0, 1, 1)
	}
	v.extent = e
	v.Reset()
}

// Extent returns the pixel extent
func (v *Viewport) Extent() geo.Extent {
	return v.extent
}

// Reset zooms out fully and centers the view
func (v *Viewport) Reset() {
	v.zoom = MinZoom
	v.center = v.extent.Center()
	v.cursorCol, v.cursorRow = v.width/2, v.height/2
}

// Zoom returns the zoom level
func (v *Viewport) Zoom() int {
	return v.zoom
}

// ZoomIn zooms in one level around the cursor's pixel
func (v *Viewport) ZoomIn() bool {
	if v.zoom >= MaxZoom {
		return false
	}
	focus := v.CursorPixel()
	v.zoom++
	v.center = focus
	v.clampCenter()
	return true
}

// ZoomOut zooms out one level
func (v *Viewport) ZoomOut() bool {
	if v.zoom <= MinZoom {
		return false
	}
	v.zoom--
	v.clampCenter()
	return true
}

// Pan moves the view by whole cells; positive dy moves up (towards maxY)
func (v *Viewport) Pan(dx, dy int) {
	sx, sy := v.cellSize()
	v.center[0] += float64(dx) * sx
	v.center[1] += float64(dy) * sy
	v.clampCenter()
}

// Center returns the pixel at the middle of the view
func (v *Viewport) Center() orb.Point {
	return v.center
}

// span is the visible part of the extent, halved per zoom level
func (v *Viewport) span() (float64, float64) {
	f := math.Pow(2, float64(v.zoom-MinZoom))
	return v.extent.Width() / f, v.extent.Height() / f
}

func (v *Viewport) cellSize() (float64, float64) {
	sx, sy := v.span()
	return sx / float64(v.width), sy / float64(v.height)
}

func (v *Viewport) origin() (left, top float64) {
	sx, sy := v.span()
	return v.center[0] - sx/2, v.center[1] + sy/2
}

func (v *Viewport) clampCenter() {
	sx, sy := v.span()
	v.center[0] = clamp(v.center[0], v.extent.Min[0]+sx/2, v.extent.Max[0]-sx/2)
	v.center[1] = clamp(v.center[1], v.extent.Min[1]+sy/2, v.extent.Max[1]-sy/2)
}

// CellToPixel returns the pixel at the middle of a cell
func (v *Viewport) CellToPixel(col, row int) orb.Point {
	left, top := v.origin()
	cw, ch := v.cellSize()
	return orb.Point{
		left + (float64(col)+0.5)*cw,
		top - (float64(row)+0.5)*ch,
	}
}

// PixelToCell returns the cell containing a pixel, and whether it is on screen
func (v *Viewport) PixelToCell(p orb.Point) (col, row int, ok bool) {
	if !geo.IsFinite(p) {
		return 0, 0, false
	}
	left, top := v.origin()
	cw, ch := v.cellSize()
	fc := math.Floor((p[0] - left) / cw)
	fr := math.Floor((top - p[1]) / ch)
	if fc < 0 || fr < 0 || fc >= float64(v.width) || fr >= float64(v.height) {
		return 0, 0, false
	}
	return int(fc), int(fr), true
}

// ShowCursor toggles the keyboard cursor
func (v *Viewport) ShowCursor(show bool) {
	v.showCursor = show
}

// MoveCursor moves the cursor, panning when it would leave the grid
func (v *Viewport) MoveCursor(dc, dr int) {
	col, row := v.cursorCol+dc, v.cursorRow+dr
	if col < 0 {
		v.Pan(col, 0)
	} else if col >= v.width {
		v.Pan(col-v.width+1, 0)
	}
	if row < 0 {
		v.Pan(0, -row)
	} else if row >= v.height {
		v.Pan(0, v.height-1-row)
	}
	v.cursorCol, v.cursorRow = col, row
	v.clampCursor()
}

// SetCursorCell places the cursor, e.g. under the mouse
func (v *Viewport) SetCursorCell(col, row int) {
	v.cursorCol, v.cursorRow = col, row
	v.clampCursor()
}

// Cursor returns the cursor cell
func (v *Viewport) Cursor() (int, int) {
	return v.cursorCol, v.cursorRow
}

// CursorPixel returns the pixel under the cursor
func (v *Viewport) CursorPixel() orb.Point {
	return v.CellToPixel(v.cursorCol, v.cursorRow)
}

func (v *Viewport) clampCursor() {
	v.cursorCol = clampInt(v.cursorCol, 0, v.width-1)
	v.cursorRow = clampInt(v.cursorRow, 0, v.height-1)
}

// Draw fills the grid from the layers, bottom first: rasters are blended
// by opacity, then vectors, markers and the cursor go on top.
func (v *Viewport) Draw(ls []layers.Layer) {
	v.Clear()
	empty := parseHex(v.theme.MapEmpty)

	var rasters []layers.Layer
	for _, l := range ls {
		if l.Visible && l.Kind == layers.Raster && l.Image != nil {
			rasters = append(rasters, l)
		}
	}

	for row := 0; row < v.height; row++ {
		for col := 0; col < v.width; col++ {
			p := v.CellToPixel(col, row)
			if !v.extent.Contains(p) {
				continue
			}
			r, g, b := empty[0], empty[1], empty[2]
			coverage := 0.0
			for _, l := range rasters {
				c, ok := v.sample(l.Image, p)
				if !ok {
					continue
				}
				cr, cg, cb, ca := c.RGBA()
				if ca == 0 {
					continue
				}
				a := float64(ca) / 0xffff * l.Opacity
				// RGBA is alpha-premultiplied; undo it before blending
				r = r*(1-a) + float64(cr)/float64(ca)*255*a
				g = g*(1-a) + float64(cg)/float64(ca)*255*a
				b = b*(1-a) + float64(cb)/float64(ca)*255*a
				coverage = coverage + a*(1-coverage)
			}
			if coverage <= 0 {
				continue
			}
			v.cells[row][col] = cell{char: shade(coverage), color: hexColor(r, g, b)}
		}
	}

	for _, l := range ls {
		if l.Visible && l.Kind == layers.Vector {
			v.drawVector(l)
		}
	}

	for _, l := range ls {
		if !l.Visible || l.Kind != layers.PointMarker {
			continue
		}
		col, row, ok := v.PixelToCell(l.Position)
		if !ok {
			continue
		}
		switch l.Name {
		case layers.StartPoint:
			v.cells[row][col] = cell{char: StartRune, color: v.theme.StartMarker}
		case layers.EndPoint:
			v.cells[row][col] = cell{char: EndRune, color: v.theme.EndMarker}
		default:
			v.cells[row][col] = cell{char: '*', color: v.theme.Selected}
		}
	}

	if v.showCursor {
		v.cells[v.cursorRow][v.cursorCol] = cell{char: CursorRune, color: v.theme.MapCursor}
	}
}

// sample returns the raster pixel under p. Rasters span the whole pixel
// extent; image row 0 is the top of the extent.
func (v *Viewport) sample(img image.Image, p orb.Point) (color.Color, bool) {
	b := img.Bounds()
	fx := (p[0] - v.extent.Min[0]) / v.extent.Width()
	fy := (v.extent.Max[1] - p[1]) / v.extent.Height()
	x := b.Min.X + int(math.Floor(fx*float64(b.Dx())))
	y := b.Min.Y + int(math.Floor(fy*float64(b.Dy())))
	if x < b.Min.X || y < b.Min.Y || x >= b.Max.X || y >= b.Max.Y {
		return nil, false
	}
	return img.At(x, y), true
}

func (v *Viewport) drawVector(l layers.Layer) {
	for _, ls := range l.Lines {
		for i := 0; i+1 < len(ls); i++ {
			v.drawSegment(ls[i], ls[i+1])
		}
		for _, p := range ls {
			if col, row, ok := v.PixelToCell(p); ok {
				v.cells[row][col] = cell{char: OverlayRune, color: v.theme.Overlay}
			}
		}
	}
}

// drawSegment rasterizes a line between two pixels with Bresenham's
// algorithm in cell space, clipped to the grid.
func (v *Viewport) drawSegment(a, b orb.Point) {
	left, top := v.origin()
	cw, ch := v.cellSize()
	x0, y0 := int(math.Floor((a[0]-left)/cw)), int(math.Floor((top-a[1])/ch))
	x1, y1 := int(math.Floor((b[0]-left)/cw)), int(math.Floor((top-b[1])/ch))

	// skip segments that would take far too many steps
	if absInt(x1-x0) > 4*v.width || absInt(y1-y0) > 4*v.height {
		return
	}

	dx, dy := absInt(x1-x0), -absInt(y1-y0)
	sx, sy := 1, 1
	if x0 > x1 {
		sx = -1
	}
	if y0 > y1 {
		sy = -1
	}
	e := dx + dy
	for {
		if x0 >= 0 && x0 < v.width && y0 >= 0 && y0 < v.height {
			if c := v.cells[y0][x0].char; c != OverlayRune {
				v.cells[y0][x0] = cell{char: TrackRune, color: v.theme.Overlay}
			}
		}
		if x0 == x1 && y0 == y1 {
			return
		}
		e2 := 2 * e
		if e2 >= dy {
			e += dy
			x0 += sx
		}
		if e2 <= dx {
			e += dx
			y0 += sy
		}
	}
}

// CharAt returns the drawn rune of a cell
func (v *Viewport) CharAt(col, row int) rune {
	if row < 0 || row >= v.height || col < 0 || col >= v.width {
		return 0
	}
	return v.cells[row][col].char
}

// Text returns the grid as plain runes, one line per row
func (v *Viewport) Text() string {
	var sb strings.Builder
	for y, row := range v.cells {
		if y > 0 {
			sb.WriteByte('\n')
		}
		for _, c := range row {
			sb.WriteRune(c.char)
		}
	}
	return sb.String()
}

// Render renders the grid with a border carrying the zoom level
func (v *Viewport) Render(title string) string {
	var sb strings.Builder

	label := fmt.Sprintf(" zoom %d ", v.zoom)
	if title != "" {
		label = " " + title + " ·" + label
	}
	labelWidth := lipgloss.Width(label)
	if labelWidth > v.width {
		label = ""
		labelWidth = 0
	}
	pad := (v.width - labelWidth) / 2

	borderStyle := lipgloss.NewStyle().Foreground(v.theme.Border)

	sb.WriteString(borderStyle.Render("╔"))
	sb.WriteString(borderStyle.Render(strings.Repeat("═", pad)))
	sb.WriteString(borderStyle.Render(label))
	sb.WriteString(borderStyle.Render(strings.Repeat("═", v.width-pad-labelWidth)))
	sb.WriteString(borderStyle.Render("╗"))
	sb.WriteString("\n")

	dim := lipgloss.NewStyle().Foreground(v.theme.TextDim)
	for y := 0; y < v.height; y++ {
		sb.WriteString(borderStyle.Render("║"))
		for x := 0; x < v.width; x++ {
			c := v.cells[y][x]
			if c.color != "" {
				sb.WriteString(lipgloss.NewStyle().Foreground(c.color).Render(string(c.char)))
			} else {
				sb.WriteString(dim.Render(string(c.char)))
			}
		}
		sb.WriteString(borderStyle.Render("║"))
		sb.WriteString("\n")
	}

	sb.WriteString(borderStyle.Render("╚"))
	sb.WriteString(borderStyle.Render(strings.Repeat("═", v.width)))
	sb.WriteString(borderStyle.Render("╝"))

	return sb.String()
}

func shade(coverage float64) rune {
	i := int(math.Ceil(coverage * float64(len(shades)-1)))
	return shades[clampInt(i, 1, len(shades)-1)]
}

func parseHex(s string) [3]float64 {
	s = strings.TrimPrefix(s, "#")
	if len(s) != 6 {
		return [3]float64{}
	}
	var out [3]float64
	for i := 0; i < 3; i++ {
		n, err := strconv.ParseUint(s[i*2:i*2+2], 16, 8)
		if err != nil {
			return [3]float64{}
		}
		out[i] = float64(n)
	}
	return out
}

func hexColor(r, g, b float64) lipgloss.Color {
	return lipgloss.Color(fmt.Sprintf("#%02x%02x%02x", channel(r), channel(g), channel(b)))
}

func channel(v float64) uint8 {
	return uint8(clamp(math.Round(v), 0, 255))
}

func clamp(v, lo, hi float64) float64 {
	if lo > hi {
		return (lo + hi) / 2
	}
	return math.Max(lo, math.Min(hi, v))
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
