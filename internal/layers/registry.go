// Package layers keeps the named overlay layers of a map and their draw order
package layers

import (
	"image"
	"math"
	"sync"

	"github.com/paulmach/orb"
)

// Well-known layer names
const (
	Background = "Background"
	Clusters   = "Clusters"
	Polygons   = "Polygons"
	Graph      = "Graph"
	StartPoint = "StartPoint"
	EndPoint   = "EndPoint"
	Ships      = "Ships"
)

// Kind distinguishes what a layer draws
type Kind int

const (
	Raster Kind = iota
	PointMarker
	Vector
)

func (k Kind) String() string {
	switch k {
	case Raster:
		return "raster"
	case PointMarker:
		return "marker"
	case Vector:
		return "vector"
	default:
		return "unknown"
	}
}

// Layer is one named entry on the map. Identity is the Name.
type Layer struct {
	Name     string
	Visible  bool
	Opacity  float64
	ImageURL string
	Kind     Kind

	// Raster layers
	Image image.Image

	// Point markers, in pixel space
	Position orb.Point

	// Vector layers, in pixel space
	Lines []orb.LineString
}

// NewRaster creates a raster layer
func NewRaster(name, url string, img image.Image, visible bool, opacity float64) Layer {
	return Layer{
		Name:     name,
		Visible:  visible,
		Opacity:  opacity,
		ImageURL: url,
		Kind:     Raster,
		Image:    img,
	}
}

// NewMarker creates a visible point marker at a pixel position
func NewMarker(name string, pos orb.Point) Layer {
	return Layer{
		Name:     name,
		Visible:  true,
		Opacity:  1,
		Kind:     PointMarker,
		Position: pos,
	}
}

// Registry holds at most one layer per name, in draw order (bottom first).
// It is safe for concurrent use.
type Registry struct {
	mu     sync.RWMutex
	layers []*Layer
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{layers: []*Layer{}}
}

// Upsert removes any layer with the same name and inserts l on top
func (r *Registry) Upsert(l Layer) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.upsertLocked(l)
}

// ReplaceAll removes the named layers and inserts the given ones, in order,
// as a single step.
func (r *Registry) ReplaceAll(remove []string, add ...Layer) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.removeLocked(remove...)
	for _, l := range add {
		r.upsertLocked(l)
	}
}

// RemoveByName removes the named layer; absent names are ignored
func (r *Registry) RemoveByName(name string) {
	r.RemoveAllByNames(name)
}

// RemoveAllByNames removes every named layer; absent names are ignored
func (r *Registry) RemoveAllByNames(names ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.removeLocked(names...)
}

// SetVisible shows or hides a layer; absent names are ignored
func (r *Registry) SetVisible(name string, visible bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if i := r.indexLocked(name); i >= 0 {
		r.layers[i].Visible = visible
	}
}

// ToggleVisible flips a layer's visibility and returns the new state
func (r *Registry) ToggleVisible(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if i := r.indexLocked(name); i >= 0 {
		r.layers[i].Visible = !r.layers[i].Visible
		return r.layers[i].Visible
	}
	return false
}

// Raise moves an existing layer to the top of the draw order
func (r *Registry) Raise(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	i := r.indexLocked(name)
	if i < 0 {
		return
	}
	l := r.layers[i]
	r.layers = append(r.layers[:i], r.layers[i+1:]...)
	r.layers = append(r.layers, l)
}

// Lower moves an existing layer to the bottom of the draw order
func (r *Registry) Lower(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	i := r.indexLocked(name)
	if i <= 0 {
		return
	}
	l := r.layers[i]
	copy(r.layers[1:i+1], r.layers[:i])
	r.layers[0] = l
}

// FindByName returns a copy of the named layer
func (r *Registry) FindByName(name string) (Layer, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if i := r.indexLocked(name); i >= 0 {
		return *r.layers[i], true
	}
	return Layer{}, false
}

// Has reports whether a layer with this name exists
func (r *Registry) Has(name string) bool {
	_, ok := r.FindByName(name)
	return ok
}

// AnyVisible reports whether any of the named layers exists and is visible
func (r *Registry) AnyVisible(names ...string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, name := range names {
		if i := r.indexLocked(name); i >= 0 && r.layers[i].Visible {
			return true
		}
	}
	return false
}

// Layers returns copies of all layers in draw order, bottom first
func (r *Registry) Layers() []Layer {
	r.mu.RLock()
	defer r.mu.RUnlock()
	result := make([]Layer, len(r.layers))
	for i, l := range r.layers {
		result[i] = *l
	}
	return result
}

// Names returns layer names in draw order
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, len(r.layers))
	for i, l := range r.layers {
		names[i] = l.Name
	}
	return names
}

// Count returns the number of layers
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.layers)
}

func (r *Registry) upsertLocked(l Layer) {
	r.removeLocked(l.Name)
	l.Opacity = clamp01(l.Opacity)
	r.layers = append(r.layers, &l)
}

func (r *Registry) removeLocked(names ...string) {
	if len(names) == 0 {
		return
	}
	drop := make(map[string]bool, len(names))
	for _, n := range names {
		drop[n] = true
	}
	kept := r.layers[:0]
	for _, l := range r.layers {
		if !drop[l.Name] {
			kept = append(kept, l)
		}
	}
	for i := len(kept); i < len(r.layers); i++ {
		r.layers[i] = nil
	}
	r.layers = kept
}

func (r *Registry) indexLocked(name string) int {
	for i, l := range r.layers {
		if l.Name == name {
			return i
		}
	}
	return -1
}

func clamp01(v float64) float64 {
	if math.IsNaN(v) {
		return 1
	}
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
