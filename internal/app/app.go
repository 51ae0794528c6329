// Package app provides the Bubble Tea application model for the theway map
package app

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/theway/theway-go/internal/config"
	"github.com/theway/theway-go/internal/export"
	"github.com/theway/theway-go/internal/gateway"
	"github.com/theway/theway-go/internal/geo"
	"github.com/theway/theway-go/internal/imagery"
	"github.com/theway/theway-go/internal/mapview"
	"github.com/theway/theway-go/internal/picker"
	"github.com/theway/theway-go/internal/session"
	"github.com/theway/theway-go/internal/theme"
)

// ViewMode represents the current view
type ViewMode int

const (
	ViewMap ViewMode = iota
	ViewParams
	ViewDatasets
	ViewLayers
	ViewSettings
	ViewHelp
)

// Layout
const (
	headerHeight = 3
	statusHeight = 2
	sidebarWidth = 38
	minMapWidth  = 20
	minMapHeight = 8
)

type noteLevel int

const (
	noteInfo noteLevel = iota
	noteWarn
	noteError
)

// Model is the main application model
type Model struct {
	sess     *session.Session
	datasets Datasets
	logger   *zap.Logger
	ctx      context.Context
	cancel   context.CancelFunc

	config     *config.Config
	theme      *theme.Theme
	view       *mapview.Viewport
	saveConfig func(*config.Config) error
	overlays   []*geo.Overlay

	// UI state
	viewMode         ViewMode
	form             *paramsForm
	panel            datasetPanel
	coordInputs      [2]textinput.Model
	editing          bool
	editTarget       picker.Target
	layerCursor      int
	settingsCursor   int
	spinner          spinner.Model
	spinning         bool
	lastOp           export.Operation
	notification     string
	notificationLvl  noteLevel
	notificationTime float64
	width, height    int
	lastRenderedView string
}

// Option configures a Model
type Option func(*Model)

// WithLogger sets the logger
func WithLogger(logger *zap.Logger) Option {
	return func(m *Model) { m.logger = logger }
}

// WithSaveFunc replaces how settings are persisted
func WithSaveFunc(fn func(*config.Config) error) Option {
	return func(m *Model) { m.saveConfig = fn }
}

// WithOverlays draws vector overlays once the background has loaded
func WithOverlays(overlays ...*geo.Overlay) Option {
	return func(m *Model) { m.overlays = append(m.overlays, overlays...) }
}

// NewModel creates a new application model. datasets may be nil, which
// disables the datasets panel.
func NewModel(cfg *config.Config, sess *session.Session, datasets Datasets, opts ...Option) *Model {
	t := theme.Get(cfg.Display.Theme)
	pixel, _ := sess.Extents()

	width, height := cfg.Display.MapWidth, cfg.Display.MapHeight
	if width <= 0 {
		width = mapview.DefaultWidth
	}
	if height <= 0 {
		height = mapview.DefaultHeight
	}
	view := mapview.New(width, height, pixel, t)
	view.ShowCursor(true)

	sp := spinner.New(spinner.WithSpinner(spinner.Dot))

	ctx, cancel := context.WithCancel(context.Background())
	m := &Model{
		sess:       sess,
		datasets:   datasets,
		logger:     zap.NewNop(),
		ctx:        ctx,
		cancel:     cancel,
		config:     cfg,
		theme:      t,
		view:       view,
		saveConfig: config.Save,
		viewMode:   ViewMap,
		form:       newParamsForm(cfg),
		spinner:    sp,
		coordInputs: [2]textinput.Model{
			newCoordInput("lat, lon"),
			newCoordInput("lat, lon"),
		},
	}
	for _, opt := range opts {
		opt(m)
	}
	m.syncCoordInputs()
	return m
}

// Init starts the background load, the dataset listing and the tick
func (m *Model) Init() tea.Cmd {
	return tea.Batch(
		tickCmd(),
		m.loadBackgroundCmd(),
		m.listDatasetsCmd(),
	)
}

// tickMsg drives the notification timer
type tickMsg time.Time

type clusteringDoneMsg struct {
	res *gateway.ClusteringResult
	err error
}

type graphDoneMsg struct {
	res *gateway.GraphResult
	err error
}

type backgroundMsg struct {
	err error
}

type datasetsMsg struct {
	list *gateway.DatasetList
	err  error
}

type actionKind int

const (
	actionChoose actionKind = iota
	actionDelete
)

// actionMsg is the reply to a choose or delete request
type actionMsg struct {
	kind    actionKind
	id      int
	message string
	err     error
}

func tickCmd() tea.Cmd {
	return tea.Tick(150*time.Millisecond, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m *Model) loadBackgroundCmd() tea.Cmd {
	ref := m.config.Map.BackgroundURL
	if ref == "" {
		return nil
	}
	ctx, sess, opacity := m.ctx, m.sess, m.config.Map.BackgroundOpacity
	return func() tea.Msg {
		return backgroundMsg{err: sess.LoadBackground(ctx, ref, opacity)}
	}
}

func (m *Model) listDatasetsCmd() tea.Cmd {
	if m.datasets == nil {
		return nil
	}
	m.panel.loading = true
	ctx, ds := m.ctx, m.datasets
	return func() tea.Msg {
		list, err := ds.ListDatasets(ctx)
		return datasetsMsg{list: list, err: err}
	}
}

func (m *Model) chooseDatasetCmd(id int) tea.Cmd {
	ctx, ds := m.ctx, m.datasets
	return func() tea.Msg {
		msg, err := ds.ChooseDataset(ctx, id)
		return actionMsg{kind: actionChoose, id: id, message: msg, err: err}
	}
}

func (m *Model) deleteDatasetCmd(id int) tea.Cmd {
	ctx, ds := m.ctx, m.datasets
	return func() tea.Msg {
		msg, err := ds.DeleteDataset(ctx, id)
		return actionMsg{kind: actionDelete, id: id, message: msg, err: err}
	}
}

func (m *Model) clusterCmd() tea.Cmd {
	var datasetID string
	if id, ok := m.sess.SelectedDataset(); ok {
		datasetID = strconv.Itoa(id)
	}
	params := m.config.Clustering.Params(datasetID)
	ctx, sess := m.ctx, m.sess
	m.logger.Debug("clustering requested", zap.String("dataset_id", datasetID))
	return m.startRun(func() tea.Msg {
		res, err := sess.RunClustering(ctx, params)
		return clusteringDoneMsg{res: res, err: err}
	})
}

func (m *Model) graphCmd() tea.Cmd {
	// Empty coordinates are filled from the session's inputs
	params := m.config.Graph.Params("", "", "")
	ctx, sess := m.ctx, m.sess
	m.logger.Debug("graph requested")
	return m.startRun(func() tea.Msg {
		res, err := sess.RunGraph(ctx, params)
		return graphDoneMsg{res: res, err: err}
	})
}

// startRun starts the spinner alongside run. The spinner stops on the
// first tick after the session reports nothing in flight.
func (m *Model) startRun(run tea.Cmd) tea.Cmd {
	if m.spinning {
		return run
	}
	m.spinning = true
	return tea.Batch(run, m.spinner.Tick)
}

// Update handles messages and updates state
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.MouseMsg:
		return m.handleMouse(msg)

	case tickMsg:
		return m.handleTick()

	case spinner.TickMsg:
		if !m.sess.Busy() {
			m.spinning = false
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case backgroundMsg:
		if msg.err != nil {
			m.reportError("Background", msg.err)
			return m, nil
		}
		for _, o := range m.overlays {
			m.sess.AddOverlay(o)
		}
		return m, nil

	case clusteringDoneMsg:
		if msg.err != nil {
			m.reportError("Clustering", msg.err)
			return m, nil
		}
		m.lastOp = export.Clustering
		m.syncCoordInputs()
		m.notify("Clustering done", noteInfo)
		return m, nil

	case graphDoneMsg:
		var backendErr *gateway.BackendComputationError
		if msg.err == nil || errors.As(msg.err, &backendErr) {
			m.lastOp = export.Graph
		}
		if msg.err != nil {
			m.reportError("Route", msg.err)
			return m, nil
		}
		m.notify("Route built", noteInfo)
		return m, nil

	case datasetsMsg:
		m.panel.loading = false
		if msg.err != nil {
			m.reportError("Datasets", msg.err)
			return m, nil
		}
		if msg.list != nil {
			m.panel.setList(*msg.list)
		}
		return m, nil

	case actionMsg:
		return m.handleAction(msg)
	}

	return m, nil
}

func (m *Model) resize(width, height int) {
	m.width, m.height = width, height
	w, h := m.view.Size()
	if m.config.Display.MapWidth <= 0 {
		w = maxInt(minMapWidth, width-sidebarWidth-3)
	}
	if m.config.Display.MapHeight <= 0 {
		h = maxInt(minMapHeight, height-headerHeight-statusHeight-2)
	}
	m.view.Resize(w, h)
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()

	if key == "ctrl+c" {
		return m, m.quit()
	}
	if m.editing {
		return m.handleCoordKey(msg)
	}

	switch m.viewMode {
	case ViewParams:
		return m.handleParamsKey(msg)
	case ViewDatasets:
		return m.handleDatasetsKey(key)
	case ViewLayers:
		return m.handleLayersKey(key)
	case ViewSettings:
		return m.handleSettingsKey(key)
	case ViewHelp:
		m.viewMode = ViewMap
		return m, nil
	default:
		return m.handleMapKey(key)
	}
}

func (m *Model) handleMapKey(key string) (tea.Model, tea.Cmd) {
	switch key {
	case "q", "Q":
		return m, m.quit()
	case "up", "k":
		m.view.MoveCursor(0, -1)
	case "down", "j":
		m.view.MoveCursor(0, 1)
	case "left", "h":
		m.view.MoveCursor(-1, 0)
	case "right", "l":
		m.view.MoveCursor(1, 0)
	case "K":
		m.view.Pan(0, 1)
	case "J":
		m.view.Pan(0, -1)
	case "H":
		m.view.Pan(-1, 0)
	case "L":
		m.view.Pan(1, 0)
	case "+", "=":
		if m.view.ZoomIn() {
			m.notify("Zoom: "+strconv.Itoa(m.view.Zoom()), noteInfo)
		}
	case "-", "_":
		if m.view.ZoomOut() {
			m.notify("Zoom: "+strconv.Itoa(m.view.Zoom()), noteInfo)
		}
	case "0":
		m.view.Reset()
	case "enter", " ":
		m.click()
	case "1":
		m.sess.Picker().ArmStart()
		m.notify("Pick the start point", noteInfo)
	case "2":
		m.sess.Picker().ArmEnd()
		m.notify("Pick the end point", noteInfo)
	case "esc":
		m.sess.Picker().Cancel()
	case "a", "A":
		return m, m.startEdit(picker.Start)
	case "b", "B":
		return m, m.startEdit(picker.End)
	case "c", "C":
		return m, m.clusterCmd()
	case "g", "G":
		return m, m.graphCmd()
	case "p", "P":
		m.form = newParamsForm(m.config)
		m.viewMode = ViewParams
	case "d", "D":
		if m.datasets == nil {
			m.notify("Datasets unavailable", noteWarn)
			return m, nil
		}
		m.viewMode = ViewDatasets
		if !m.panel.loaded && !m.panel.loading {
			return m, m.listDatasetsCmd()
		}
	case "o", "O":
		m.viewMode = ViewLayers
	case "t":
		m.viewMode = ViewSettings
	case "T":
		m.setTheme(theme.Next(m.config.Display.Theme))
	case "?":
		m.viewMode = ViewHelp
	case "s", "S":
		m.exportScreenshot()
	case "e", "E":
		m.exportLegendCSV()
	case "ctrl+e":
		m.exportLegendJSON()
	}
	return m, nil
}

func (m *Model) handleMouse(msg tea.MouseMsg) (tea.Model, tea.Cmd) {
	if m.editing {
		return m, nil
	}
	switch msg.Button {
	case tea.MouseButtonWheelUp:
		m.view.ZoomIn()
		return m, nil
	case tea.MouseButtonWheelDown:
		m.view.ZoomOut()
		return m, nil
	}
	if msg.Action != tea.MouseActionPress || msg.Button != tea.MouseButtonLeft {
		return m, nil
	}
	m.syncView()
	col, row := msg.X-1, msg.Y-headerHeight-1
	w, h := m.view.Size()
	if col < 0 || row < 0 || col >= w || row >= h {
		return m, nil
	}
	m.view.SetCursorCell(col, row)
	m.click()
	return m, nil
}

// syncView follows the pixel extent of the raster on the map
func (m *Model) syncView() {
	pixel, _ := m.sess.Extents()
	m.view.SetExtent(pixel)
}

// click sends the cursor position to the picker
func (m *Model) click() {
	m.syncView()
	p := m.sess.Picker()
	target := picker.Start
	if p.State() == picker.PickingEnd {
		target = picker.End
	}
	coords, err := p.OnMapClick(m.view.CursorPixel())
	switch {
	case errors.Is(err, picker.ErrNotPicking):
		return
	case errors.Is(err, picker.ErrNoDataLayer):
		m.notify(err.Error(), noteWarn)
		return
	case err != nil:
		m.notify(err.Error(), noteError)
		return
	}
	m.syncCoordInputs()
	m.notify(fmt.Sprintf("%s: %s", targetLabel(target), coords), noteInfo)
}

func (m *Model) startEdit(t picker.Target) tea.Cmd {
	m.editing = true
	m.editTarget = t
	in := &m.coordInputs[t]
	in.SetValue(m.sess.Coords(t))
	in.CursorEnd()
	return in.Focus()
}

func (m *Model) handleCoordKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	in := &m.coordInputs[m.editTarget]
	switch msg.String() {
	case "enter":
		raw := in.Value()
		placed := m.sess.Picker().OnTextEdit(m.editTarget, raw)
		m.stopEdit()
		if !placed && strings.TrimSpace(raw) != "" {
			m.notify("Not placed: expected \"lat, lon\"", noteWarn)
		}
		return m, nil
	case "esc":
		m.stopEdit()
		m.syncCoordInputs()
		return m, nil
	}
	var cmd tea.Cmd
	*in, cmd = in.Update(msg)
	return m, cmd
}

func (m *Model) stopEdit() {
	m.coordInputs[m.editTarget].Blur()
	m.editing = false
}

// syncCoordInputs copies the session's coordinate text into the inputs
func (m *Model) syncCoordInputs() {
	for _, t := range []picker.Target{picker.Start, picker.End} {
		if m.editing && m.editTarget == t {
			continue
		}
		m.coordInputs[t].SetValue(m.sess.Coords(t))
	}
}

func (m *Model) handleParamsKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.viewMode = ViewMap
		return m, nil
	case "enter":
		m.form.apply(m.config)
		m.persist()
		m.viewMode = ViewMap
		m.notify("Parameters saved", noteInfo)
		return m, nil
	case "tab":
		m.form.switchSection()
		return m, nil
	case "up", "shift+tab":
		m.form.move(-1)
		return m, nil
	case "down":
		m.form.move(1)
		return m, nil
	}
	return m, m.form.update(msg)
}

func (m *Model) handleDatasetsKey(key string) (tea.Model, tea.Cmd) {
	if m.panel.confirmDelete {
		m.panel.confirmDelete = false
		if key != "y" && key != "Y" {
			return m, nil
		}
		if ds, ok := m.panel.selected(); ok {
			return m, m.deleteDatasetCmd(ds.ID)
		}
		return m, nil
	}

	switch key {
	case "d", "D", "esc":
		m.viewMode = ViewMap
	case "up", "k":
		m.panel.move(-1)
	case "down", "j":
		m.panel.move(1)
	case "tab", "left", "right":
		m.panel.switchTab()
	case "r", "R":
		return m, m.listDatasetsCmd()
	case "enter", " ":
		if ds, ok := m.panel.selected(); ok {
			return m, m.chooseDatasetCmd(ds.ID)
		}
	case "x", "X":
		ds, ok := m.panel.selected()
		if !ok {
			return m, nil
		}
		if !m.panel.list.Owns(ds.ID) {
			m.notify("Only your own datasets can be deleted", noteWarn)
			return m, nil
		}
		m.panel.confirmDelete = true
	}
	return m, nil
}

func (m *Model) handleAction(msg actionMsg) (tea.Model, tea.Cmd) {
	if msg.err != nil {
		m.reportError("Dataset", msg.err)
		return m, nil
	}
	switch msg.kind {
	case actionChoose:
		m.sess.SelectDataset(msg.id)
		m.notify(msg.message, noteInfo)
		m.logger.Info("dataset selected", zap.Int("dataset_id", msg.id))
		return m, nil
	case actionDelete:
		if id, ok := m.sess.SelectedDataset(); ok && id == msg.id {
			m.sess.ClearDataset()
		}
		m.notify(msg.message, noteInfo)
		m.logger.Info("dataset deleted", zap.Int("dataset_id", msg.id))
		return m, m.listDatasetsCmd()
	}
	return m, nil
}

func (m *Model) handleLayersKey(key string) (tea.Model, tea.Cmd) {
	names := m.sess.Registry().Names()
	switch key {
	case "o", "O", "esc":
		m.viewMode = ViewMap
		return m, nil
	case "up", "k":
		if m.layerCursor > 0 {
			m.layerCursor--
		}
	case "down", "j":
		if m.layerCursor < len(names)-1 {
			m.layerCursor++
		}
	}
	if m.layerCursor >= len(names) {
		m.layerCursor = maxInt(0, len(names)-1)
	}
	if len(names) == 0 {
		return m, nil
	}
	name := names[m.layerCursor]
	switch key {
	case "enter", " ":
		if m.sess.Registry().ToggleVisible(name) {
			m.notify(name+" shown", noteInfo)
		} else {
			m.notify(name+" hidden", noteInfo)
		}
	case "u", "U":
		m.sess.Registry().Raise(name)
		m.layerCursor = indexOf(m.sess.Registry().Names(), name)
	case "n", "N":
		m.sess.Registry().Lower(name)
		m.layerCursor = indexOf(m.sess.Registry().Names(), name)
	}
	return m, nil
}

func (m *Model) handleSettingsKey(key string) (tea.Model, tea.Cmd) {
	themes := theme.List()
	switch key {
	case "t", "T", "esc":
		m.viewMode = ViewMap
	case "up", "k":
		m.settingsCursor = (m.settingsCursor - 1 + len(themes)) % len(themes)
	case "down", "j":
		m.settingsCursor = (m.settingsCursor + 1) % len(themes)
	case "enter", " ":
		m.setTheme(themes[m.settingsCursor])
	case "l", "L":
		m.config.Display.ShowLegend = !m.config.Display.ShowLegend
		m.persist()
	}
	return m, nil
}

func (m *Model) handleTick() (tea.Model, tea.Cmd) {
	if m.notificationTime > 0 {
		m.notificationTime -= 0.15
		if m.notificationTime <= 0 {
			m.notification = ""
		}
	}
	return m, tickCmd()
}

// reportError turns a failed operation into a notification. Stale results
// are dropped silently.
func (m *Model) reportError(op string, err error) {
	var (
		validation *gateway.ValidationError
		backend    *gateway.BackendComputationError
		network    *gateway.NetworkError
		image      *imagery.ImageLoadError
	)
	switch {
	case errors.Is(err, session.ErrStaleResponse):
		m.logger.Debug("stale result dropped", zap.String("op", op))
		return
	case errors.Is(err, context.Canceled):
		return
	case errors.As(err, &validation):
		m.notify(validation.Error(), noteWarn)
		return
	case errors.As(err, &backend):
		m.notify(op+": "+backend.Message, noteError)
	case errors.As(err, &image):
		m.notify(op+": image unavailable: "+image.URL, noteError)
	case errors.As(err, &network):
		m.notify(op+" failed: "+network.Error(), noteError)
	default:
		m.notify(op+" failed: "+err.Error(), noteError)
	}
	m.logger.Warn("operation failed", zap.String("op", op), zap.Error(err))
}

func (m *Model) setTheme(name string) {
	m.theme = theme.Get(name)
	m.config.Display.Theme = name
	m.view.SetTheme(m.theme)
	m.persist()
	m.notify("Theme: "+m.theme.Name, noteInfo)
}

func (m *Model) persist() {
	if m.saveConfig == nil {
		return
	}
	if err := m.saveConfig(m.config); err != nil {
		m.logger.Warn("save settings failed", zap.Error(err))
	}
}

func (m *Model) quit() tea.Cmd {
	m.cancel()
	m.persist()
	return tea.Quit
}

func (m *Model) notify(message string, lvl noteLevel) {
	m.notification = message
	m.notificationLvl = lvl
	m.notificationTime = 3.0
}

// SetLastRenderedView stores the last rendered view for screenshot exports
func (m *Model) SetLastRenderedView(view string) {
	m.lastRenderedView = view
}

// GetExportDirectory returns the configured export directory or current directory
func (m *Model) GetExportDirectory() string {
	return m.config.Export.Directory
}

// exportMeta describes the legend on screen
func (m *Model) exportMeta() export.Meta {
	meta := export.Meta{
		Operation: m.lastOp,
		Start:     m.sess.Coords(picker.Start),
		End:       m.sess.Coords(picker.End),
		Timestamp: time.Now(),
	}
	if id, ok := m.sess.SelectedDataset(); ok {
		meta.DatasetID = strconv.Itoa(id)
	}
	if m.lastOp != "" {
		_, meta.Extent = m.sess.Extents()
	}
	return meta
}

// exportScreenshot saves the current view as HTML
func (m *Model) exportScreenshot() {
	if m.lastRenderedView == "" {
		m.notify("No view to export", noteWarn)
		return
	}

	filename, err := export.CaptureScreen(m.lastRenderedView, m.GetExportDirectory())
	if err != nil {
		m.notify("Export failed: "+err.Error(), noteError)
		return
	}

	m.notify("Screenshot: "+filepath.Base(filename), noteInfo)
}

// exportLegendCSV exports the legend to CSV
func (m *Model) exportLegendCSV() {
	legend := m.sess.Legend()
	if legend.Empty() {
		m.notify("No results to export", noteWarn)
		return
	}

	filename, err := export.ExportLegendCSV(legend, m.exportMeta(), m.GetExportDirectory())
	if err != nil {
		m.notify("Export failed: "+err.Error(), noteError)
		return
	}

	m.notify("CSV: "+filepath.Base(filename), noteInfo)
}

// exportLegendJSON exports the legend to JSON
func (m *Model) exportLegendJSON() {
	legend := m.sess.Legend()
	if legend.Empty() {
		m.notify("No results to export", noteWarn)
		return
	}

	filename, err := export.ExportLegendJSON(legend, m.exportMeta(), m.GetExportDirectory())
	if err != nil {
		m.notify("Export failed: "+err.Error(), noteError)
		return
	}

	m.notify("JSON: "+filepath.Base(filename), noteInfo)
}

func targetLabel(t picker.Target) string {
	if t == picker.End {
		return "End"
	}
	return "Start"
}

func indexOf(list []string, v string) int {
	for i, s := range list {
		if s == v {
			return i
		}
	}
	return 0
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
