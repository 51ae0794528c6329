// Package picker implements start/end point picking on the map
package picker

import (
	"errors"
	"sync"

	"github.com/paulmach/orb"
	"go.uber.org/zap"

	"github.com/theway/theway-go/internal/geo"
	"github.com/theway/theway-go/internal/layers"
)

// State is the picker state
type State int

const (
	Idle State = iota
	PickingStart
	PickingEnd
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case PickingStart:
		return "picking start"
	case PickingEnd:
		return "picking end"
	default:
		return "unknown"
	}
}

// Target selects which endpoint is being edited
type Target int

const (
	Start Target = iota
	End
)

// LayerName returns the marker layer for the target
func (t Target) LayerName() string {
	if t == End {
		return layers.EndPoint
	}
	return layers.StartPoint
}

// Field returns the form field name for the target
func (t Target) Field() string {
	if t == End {
		return "end_coords"
	}
	return "start_coords"
}

func (t Target) String() string {
	if t == End {
		return "end"
	}
	return "start"
}

// Cursor is the pointer hint shown over the map
type Cursor string

const (
	CursorAuto      Cursor = "auto"
	CursorCrosshair Cursor = "crosshair"
)

var (
	// ErrNotPicking is returned for clicks while no pick is armed
	ErrNotPicking = errors.New("no point pick armed")

	// ErrNoDataLayer aborts a pick made before any analysis is on the map
	ErrNoDataLayer = errors.New("Координаты можно указывать только после кластеризации данных.")
)

// PlaceFunc computes what a placement for a target stores under the given
// extents: the coordinate input text and, when ok, the marker position.
type PlaceFunc func(pixel, geographic geo.Extent) (text string, pos orb.Point, ok bool)

// Board owns the extents, the coordinate inputs and the marker layers.
// Place must hold the extents fixed from the call to fn until its result
// is stored.
type Board interface {
	Place(t Target, fn PlaceFunc)
}

// Picker is the pick state machine. It is safe for concurrent use, but its
// methods must not be called while holding locks its dependencies take.
type Picker struct {
	mu     sync.Mutex
	state  State
	cursor Cursor

	registry *layers.Registry
	board    Board
	logger   *zap.Logger
}

// New creates an idle picker
func New(registry *layers.Registry, board Board, logger *zap.Logger) *Picker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Picker{
		state:    Idle,
		cursor:   CursorAuto,
		registry: registry,
		board:    board,
		logger:   logger,
	}
}

// State returns the current state
func (p *Picker) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Cursor returns the current cursor hint
func (p *Picker) Cursor() Cursor {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cursor
}

// ArmStart arms picking of the start point, cancelling any pending pick
func (p *Picker) ArmStart() {
	p.Arm(Start)
}

// ArmEnd arms picking of the end point, cancelling any pending pick
func (p *Picker) ArmEnd() {
	p.Arm(End)
}

// Arm arms picking for t
func (p *Picker) Arm(t Target) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if t == End {
		p.state = PickingEnd
	} else {
		p.state = PickingStart
	}
	p.cursor = CursorCrosshair
}

// Cancel returns to Idle without placing anything
func (p *Picker) Cancel() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.reset()
}

// OnMapClick consumes a click at a pixel-space point. While idle the click
// is ignored. Without a visible data layer the pick is aborted with
// ErrNoDataLayer and nothing is placed.
func (p *Picker) OnMapClick(pixel orb.Point) (geo.CoordinatePair, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	var target Target
	switch p.state {
	case PickingStart:
		target = Start
	case PickingEnd:
		target = End
	default:
		return geo.CoordinatePair{}, ErrNotPicking
	}

	if !p.hasDataLayer() {
		p.reset()
		p.logger.Debug("pick aborted, no data layer", zap.Stringer("target", target))
		return geo.CoordinatePair{}, ErrNoDataLayer
	}

	var coords geo.CoordinatePair
	p.board.Place(target, func(pixExt, geoExt geo.Extent) (string, orb.Point, bool) {
		coords = geo.PixelToCoordinate(pixExt, geoExt, pixel)
		return coords.String(), pixel, true
	})
	p.reset()

	p.logger.Debug("point picked",
		zap.Stringer("target", target),
		zap.Float64("lat", coords.Lat),
		zap.Float64("lon", coords.Lon))
	return coords, nil
}

// OnTextEdit handles an edit of a coordinate field. The typed text is stored
// as is; when it holds exactly two finite numbers the marker is moved to
// match. It reports whether a marker was placed. The pick state is not changed.
func (p *Picker) OnTextEdit(t Target, raw string) bool {
	c, err := geo.ParseCoordinatePair(raw)

	var placed bool
	p.board.Place(t, func(pixExt, geoExt geo.Extent) (string, orb.Point, bool) {
		if err != nil {
			return raw, orb.Point{}, false
		}
		pos := geo.CoordinateToPixel(pixExt, geoExt, c)
		placed = geo.IsFinite(pos)
		return raw, pos, placed
	})
	return placed
}

// hasDataLayer is the placement gate: a Polygons or Graph layer is on the map
// and visible.
func (p *Picker) hasDataLayer() bool {
	return p.registry.AnyVisible(layers.Polygons, layers.Graph)
}

func (p *Picker) reset() {
	p.state = Idle
	p.cursor = CursorAuto
}
