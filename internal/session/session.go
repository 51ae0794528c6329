// Package session sequences backend calls with the map's layer and extent state
package session

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/paulmach/orb"
	"go.uber.org/zap"

	"github.com/theway/theway-go/internal/gateway"
	"github.com/theway/theway-go/internal/geo"
	"github.com/theway/theway-go/internal/imagery"
	"github.com/theway/theway-go/internal/layers"
	"github.com/theway/theway-go/internal/picker"
)

// User-facing validation messages
const (
	MsgSelectDataset = "Пожалуйста, выберите датасет!"
	MsgClusterFirst  = "Сначала необходимо кластеризовать данные"
	MsgSamePoints    = "Упс! Начальная точка совпадает с конечной."
)

// DefaultBackgroundOpacity is how strongly the background shows under data
const DefaultBackgroundOpacity = 0.2

// ErrStaleResponse is returned when a newer request committed first
var ErrStaleResponse = errors.New("response superseded by a newer request")

// clusteringReplaced are the layers a clustering result replaces
var clusteringReplaced = []string{
	layers.Clusters, layers.Polygons, layers.Graph,
	layers.StartPoint, layers.EndPoint, layers.Ships,
}

// Gateway is the part of the backend client the session needs
type Gateway interface {
	Cluster(ctx context.Context, params gateway.ClusteringParams) (*gateway.ClusteringResult, error)
	Graph(ctx context.Context, params gateway.GraphParams) (*gateway.GraphResult, error)
}

// RasterLoader fetches rasters and reports their dimensions
type RasterLoader interface {
	Load(ctx context.Context, ref string) (*imagery.Raster, error)
	LoadAll(ctx context.Context, refs ...string) ([]*imagery.Raster, error)
}

// Session owns the map state: layers, extents, the coordinate inputs, the
// selected dataset and the legend. Mutations from backend results are
// applied atomically and only if no newer request has committed.
type Session struct {
	mu         sync.RWMutex
	pixel      geo.Extent
	geographic geo.Extent
	coords     [2]string
	datasetID  int
	hasDataset bool
	legend     Legend
	committed  uint64

	issued atomic.Uint64
	busy   atomic.Int32

	registry *layers.Registry
	picker   *picker.Picker
	gw       Gateway
	loader   RasterLoader
	logger   *zap.Logger
}

// Option configures a Session
type Option func(*Session)

// WithLogger sets the logger
func WithLogger(logger *zap.Logger) Option {
	return func(s *Session) { s.logger = logger }
}

// WithGeographicExtent sets the extent assumed for the background raster
func WithGeographicExtent(e geo.Extent) Option {
	return func(s *Session) {
		if e.IsValid() {
			s.geographic = e
		}
	}
}

// WithPixelExtent sets the initial pixel extent
func WithPixelExtent(e geo.Extent) Option {
	return func(s *Session) {
		if e.IsValid() {
			s.pixel = e
		}
	}
}

// New creates a session with an empty map
func New(gw Gateway, loader RasterLoader, opts ...Option) *Session {
	s := &Session{
		pixel:      geo.MustExtent(0, 0, 1, 1),
		geographic: geo.DefaultGeographicExtent,
		registry:   layers.NewRegistry(),
		gw:         gw,
		loader:     loader,
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.picker = picker.New(s.registry, s, s.logger.Named("picker"))
	return s
}

// Registry returns the layer registry
func (s *Session) Registry() *layers.Registry {
	return s.registry
}

// Picker returns the point picker bound to this session
func (s *Session) Picker() *picker.Picker {
	return s.picker
}

// Extents returns the current pixel and geographic extents
func (s *Session) Extents() (pixel, geographic geo.Extent) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.pixel, s.geographic
}

// SetCoords stores the text of a coordinate input
func (s *Session) SetCoords(t picker.Target, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.coords[t] = value
}

// Place stores a pick or a typed coordinate for t. fn runs under the session
// lock, so a committing run cannot move the extents between the conversion
// and the store.
func (s *Session) Place(t picker.Target, fn picker.PlaceFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	text, pos, ok := fn(s.pixel, s.geographic)
	s.coords[t] = text
	if ok {
		s.registry.Upsert(layers.NewMarker(t.LayerName(), pos))
	}
}

// Coords returns the text of a coordinate input
func (s *Session) Coords(t picker.Target) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.coords[t]
}

// SelectDataset sets the dataset used by subsequent runs
func (s *Session) SelectDataset(id int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.datasetID = id
	s.hasDataset = true
}

// ClearDataset forgets the selected dataset
func (s *Session) ClearDataset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.datasetID = 0
	s.hasDataset = false
}

// SelectedDataset returns the selected dataset id
func (s *Session) SelectedDataset() (int, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.datasetID, s.hasDataset
}

// Legend returns a copy of the legend
func (s *Session) Legend() Legend {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.legend.clone()
}

// Busy reports whether any run is in flight
func (s *Session) Busy() bool {
	return s.busy.Load() > 0
}

// InFlight returns the number of runs in flight
func (s *Session) InFlight() int {
	return int(s.busy.Load())
}

// LoadBackground shows the background raster and, while no analysis is on
// the map, takes the pixel extent from its size.
func (s *Session) LoadBackground(ctx context.Context, ref string, opacity float64) error {
	r, err := s.loader.Load(ctx, ref)
	if err != nil {
		return err
	}
	pixel, err := geo.PixelExtent(r.Width, r.Height)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	analysed := s.registry.Has(layers.Polygons) || s.registry.Has(layers.Graph)
	if !analysed {
		s.pixel = pixel
	}
	s.registry.Upsert(layers.NewRaster(layers.Background, r.URL, r.Image, !analysed, opacity))
	s.registry.Lower(layers.Background)
	s.logger.Info("background loaded", zap.String("url", ref), zap.Int("width", r.Width), zap.Int("height", r.Height))
	return nil
}

// AddOverlay projects a lon/lat overlay into pixel space against the current
// extents and shows it as the Ships layer.
func (s *Session) AddOverlay(o *geo.Overlay) {
	if o == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	toPixel := func(p orb.Point) orb.Point {
		return geo.GeographicToPixel(s.pixel, s.geographic, geo.LonLatToProjected(p))
	}

	lines := make([]orb.LineString, 0, len(o.Lines)+len(o.Points))
	for _, ls := range o.Lines {
		projected := make(orb.LineString, len(ls))
		for i, p := range ls {
			projected[i] = toPixel(p)
		}
		lines = append(lines, projected)
	}
	for _, p := range o.Points {
		lines = append(lines, orb.LineString{toPixel(p)})
	}

	s.registry.Upsert(layers.Layer{
		Name:    layers.Ships,
		Visible: true,
		Opacity: 1,
		Kind:    layers.Vector,
		Lines:   lines,
	})
	s.logger.Info("overlay added", zap.String("name", o.Name), zap.Int("shapes", len(lines)))
}

// RunClustering validates params, submits them and, once both rasters have
// loaded, replaces the analysis layers and the extents in one step.
func (s *Session) RunClustering(ctx context.Context, params gateway.ClusteringParams) (*gateway.ClusteringResult, error) {
	s.busy.Add(1)
	defer s.busy.Add(-1)

	id, ok := s.SelectedDataset()
	if !ok {
		return nil, &gateway.ValidationError{Message: MsgSelectDataset}
	}
	if missing := params.Missing(); len(missing) > 0 {
		return nil, &gateway.ValidationError{Missing: missing}
	}
	params.DatasetID = strconv.Itoa(id)

	token := s.issued.Add(1)
	res, err := s.gw.Cluster(ctx, params)
	if err != nil {
		s.logger.Warn("clustering failed", zap.Uint64("token", token), zap.Error(err))
		return nil, err
	}

	rasters, err := s.loader.LoadAll(ctx, res.ClustersURL, res.PolygonsURL)
	if err != nil {
		s.logger.Warn("clustering rasters failed", zap.Uint64("token", token), zap.Error(err))
		return nil, err
	}
	clusters, polygons := rasters[0], rasters[1]
	pixel, err := geo.PixelExtent(polygons.Width, polygons.Height)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.claimLocked(token, "clustering"); err != nil {
		return nil, err
	}

	s.geographic = res.Extent
	s.pixel = pixel
	s.registry.ReplaceAll(clusteringReplaced,
		layers.NewRaster(layers.Clusters, clusters.URL, clusters.Image, false, 1),
		layers.NewRaster(layers.Polygons, polygons.URL, polygons.Image, true, 1),
	)
	s.registry.SetVisible(layers.Background, false)
	s.coords = [2]string{}
	s.legend = LegendFromStats(res.Stats)

	s.logger.Info("clustering committed",
		zap.Uint64("token", token),
		zap.Stringer("extent", res.Extent),
		zap.Int("width", polygons.Width),
		zap.Int("height", polygons.Height),
		zap.Int("stats", len(res.Stats)))
	return res, nil
}

// RunGraph validates params, submits them and shows the route raster.
// Empty start or end coordinates are taken from the session's inputs.
// A result whose stats carry an Error is committed and also returned as a
// BackendComputationError.
func (s *Session) RunGraph(ctx context.Context, params gateway.GraphParams) (*gateway.GraphResult, error) {
	s.busy.Add(1)
	defer s.busy.Add(-1)

	if !s.registry.Has(layers.Polygons) {
		return nil, &gateway.ValidationError{Message: MsgClusterFirst}
	}

	if params.StartCoords == "" {
		params.StartCoords = s.Coords(picker.Start)
	}
	if params.EndCoords == "" {
		params.EndCoords = s.Coords(picker.End)
	}
	if missing := params.Missing(); len(missing) > 0 {
		return nil, &gateway.ValidationError{Missing: missing}
	}
	if strings.TrimSpace(params.StartCoords) == strings.TrimSpace(params.EndCoords) {
		return nil, &gateway.ValidationError{Message: MsgSamePoints}
	}
	id, ok := s.SelectedDataset()
	if !ok {
		return nil, &gateway.ValidationError{Message: MsgSelectDataset}
	}
	params.DatasetID = strconv.Itoa(id)

	token := s.issued.Add(1)
	res, err := s.gw.Graph(ctx, params)
	if err != nil {
		s.logger.Warn("graph failed", zap.Uint64("token", token), zap.Error(err))
		return nil, err
	}

	route, err := s.loader.Load(ctx, res.RouteURL)
	if err != nil {
		s.logger.Warn("route raster failed", zap.Uint64("token", token), zap.Error(err))
		return nil, err
	}
	pixel, err := geo.PixelExtent(route.Width, route.Height)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.claimLocked(token, "graph"); err != nil {
		return nil, err
	}

	s.geographic = res.Extent
	s.pixel = pixel
	s.registry.Upsert(layers.NewRaster(layers.Graph, route.URL, route.Image, true, 1))
	s.registry.SetVisible(layers.Background, false)
	s.reinsertMarkersLocked()
	for _, name := range []string{layers.Clusters, layers.Polygons, layers.Ships} {
		s.registry.SetVisible(name, false)
	}

	if msg, failed := res.Failed(); failed {
		s.legend = ErrorLegend(msg)
		s.logger.Warn("graph committed with backend error", zap.Uint64("token", token), zap.String("error", msg))
		return res, &gateway.BackendComputationError{Message: msg}
	}
	s.legend = LegendFromStats(res.Stats)

	s.logger.Info("graph committed",
		zap.Uint64("token", token),
		zap.Stringer("extent", res.Extent),
		zap.Int("width", route.Width),
		zap.Int("height", route.Height))
	return res, nil
}

// claimLocked accepts a result unless a newer request already committed
func (s *Session) claimLocked(token uint64, op string) error {
	if token < s.committed {
		s.logger.Info("stale response discarded",
			zap.String("op", op),
			zap.Uint64("token", token),
			zap.Uint64("committed", s.committed))
		return fmt.Errorf("%s: %w", op, ErrStaleResponse)
	}
	s.committed = token
	return nil
}

// reinsertMarkersLocked moves StartPoint and EndPoint to the top, placing
// them where their typed coordinates fall under the current extents.
func (s *Session) reinsertMarkersLocked() {
	for _, t := range []picker.Target{picker.Start, picker.End} {
		l, ok := s.registry.FindByName(t.LayerName())
		if !ok {
			continue
		}
		if c, err := geo.ParseCoordinatePair(s.coords[t]); err == nil {
			if pos := geo.CoordinateToPixel(s.pixel, s.geographic, c); geo.IsFinite(pos) {
				l.Position = pos
			}
		}
		s.registry.Upsert(l)
	}
}
