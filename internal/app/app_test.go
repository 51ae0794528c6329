package app

import (
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/paulmach/orb"

	"github.com/theway/theway-go/internal/config"
	"github.com/theway/theway-go/internal/export"
	"github.com/theway/theway-go/internal/gateway"
	"github.com/theway/theway-go/internal/geo"
	"github.com/theway/theway-go/internal/imagery"
	"github.com/theway/theway-go/internal/layers"
	"github.com/theway/theway-go/internal/picker"
	"github.com/theway/theway-go/internal/session"
	"github.com/theway/theway-go/internal/testutil"
	"github.com/theway/theway-go/internal/theme"
)

type harness struct {
	m      *Model
	server *testutil.MockServer
	cfg    *config.Config
	saves  int
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	server := testutil.NewMockServer()
	t.Cleanup(server.Close)

	gw, err := gateway.New(server.BaseURL(), gateway.WithHTTPClient(server.Client()))
	if err != nil {
		t.Fatalf("gateway.New: %v", err)
	}
	loader, err := imagery.NewLoader(server.BaseURL(), imagery.WithHTTPClient(server.Client()))
	if err != nil {
		t.Fatalf("imagery.NewLoader: %v", err)
	}

	cfg := config.DefaultConfig()
	cfg.Export.Directory = t.TempDir()
	h := &harness{server: server, cfg: cfg}
	sess := session.New(gw, loader)
	h.m = NewModel(cfg, sess, gw, WithSaveFunc(func(*config.Config) error {
		h.saves++
		return nil
	}))
	return h
}

// run executes cmd and feeds every resulting message back into the model.
// Timer-driven messages are dropped.
func (h *harness) run(cmd tea.Cmd) {
	if cmd == nil {
		return
	}
	switch msg := cmd().(type) {
	case tea.BatchMsg:
		for _, c := range msg {
			h.run(c)
		}
	case tickMsg, spinner.TickMsg, tea.QuitMsg, nil:
	default:
		_, next := h.m.Update(msg)
		h.run(next)
	}
}

// press sends a key and runs what it triggers
func (h *harness) press(keys ...string) {
	for _, k := range keys {
		_, cmd := h.m.Update(keyMsg(k))
		if h.m.editing {
			continue
		}
		h.run(cmd)
	}
}

func keyMsg(k string) tea.KeyMsg {
	switch k {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "tab":
		return tea.KeyMsg{Type: tea.KeyTab}
	case "up":
		return tea.KeyMsg{Type: tea.KeyUp}
	case "down":
		return tea.KeyMsg{Type: tea.KeyDown}
	case " ":
		return tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}}
	case "ctrl+c":
		return tea.KeyMsg{Type: tea.KeyCtrlC}
	case "ctrl+e":
		return tea.KeyMsg{Type: tea.KeyCtrlE}
	default:
		return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)}
	}
}

// ready runs Init and selects the first dataset
func (h *harness) ready(t *testing.T) {
	t.Helper()
	h.run(h.m.Init())
	h.press("d", "enter", "esc")
	if id, ok := h.m.sess.SelectedDataset(); !ok || id != 1 {
		t.Fatalf("selected dataset = %d, %v; want 1", id, ok)
	}
}

// clustered runs a clustering and draws once so the view follows the new extent
func (h *harness) clustered(t *testing.T) {
	t.Helper()
	h.ready(t)
	h.press("c")
	if !h.m.sess.Registry().Has(layers.Polygons) {
		t.Fatalf("clustering not committed, notification %q", h.m.notification)
	}
	h.m.View()
}

func TestModel_New(t *testing.T) {
	h := newHarness(t)
	m := h.m

	if m.viewMode != ViewMap {
		t.Errorf("viewMode = %v, want ViewMap", m.viewMode)
	}
	if m.theme != theme.Get(theme.Default) {
		t.Error("theme should follow the config")
	}
	if m.coordInputs[picker.Start].Value() != "" || m.coordInputs[picker.End].Value() != "" {
		t.Error("coordinate inputs should start empty")
	}
	if m.sess.InFlight() != 0 || m.lastOp != "" {
		t.Error("no run should be recorded")
	}
}

func TestModel_Init(t *testing.T) {
	h := newHarness(t)
	h.run(h.m.Init())

	bg, ok := h.m.sess.Registry().FindByName(layers.Background)
	if !ok {
		t.Fatal("background layer missing after Init")
	}
	if !bg.Visible || bg.Opacity != h.cfg.Map.BackgroundOpacity {
		t.Errorf("background = visible %v opacity %v", bg.Visible, bg.Opacity)
	}
	if !h.m.panel.loaded || len(h.m.panel.list.All) != 2 {
		t.Errorf("datasets not loaded: %+v", h.m.panel.list)
	}
}

func TestModel_BackgroundFailure(t *testing.T) {
	h := newHarness(t)
	h.server.Fail(testutil.BackgroundPath, 404, "missing")
	h.run(h.m.Init())

	if h.m.sess.Registry().Has(layers.Background) {
		t.Error("background should not be added")
	}
	if h.m.notificationLvl != noteError || !strings.Contains(h.m.notification, "Background") {
		t.Errorf("notification = %q (level %d)", h.m.notification, h.m.notificationLvl)
	}
}

func TestModel_OverlayAfterBackground(t *testing.T) {
	h := newHarness(t)
	_, geographic := h.m.sess.Extents()
	center := geo.ProjectedToLonLat(geographic.Center())
	WithOverlays(&geo.Overlay{Name: "fairway", Points: []orb.Point{center}})(h.m)

	h.run(h.m.Init())

	l, ok := h.m.sess.Registry().FindByName(layers.Ships)
	if !ok {
		t.Fatal("overlay layer missing after background load")
	}
	if l.Kind != layers.Vector || len(l.Lines) != 1 {
		t.Errorf("overlay layer = %v with %d shapes", l.Kind, len(l.Lines))
	}
	pixel, _ := h.m.sess.Extents()
	if got := l.Lines[0][0]; math.Abs(got[0]-pixel.Center()[0]) > 1e-6 || math.Abs(got[1]-pixel.Center()[1]) > 1e-6 {
		t.Errorf("overlay point at %v, want raster center %v", got, pixel.Center())
	}
}

func TestModel_ClusteringFlow(t *testing.T) {
	h := newHarness(t)
	h.clustered(t)

	if h.m.lastOp != export.Clustering {
		t.Errorf("lastOp = %q", h.m.lastOp)
	}
	legend := h.m.sess.Legend()
	if len(legend.Entries) != 2 || legend.Entries[0].Key != "Всего кластеров" {
		t.Errorf("legend = %+v", legend)
	}
	if bg, _ := h.m.sess.Registry().FindByName(layers.Background); bg.Visible {
		t.Error("background should be hidden under analysis layers")
	}
	if n := h.m.sess.InFlight(); n != 0 {
		t.Errorf("%d runs in flight after completion", n)
	}

	var req map[string]string
	if err := h.server.Requests(testutil.PathClustering)[0].JSON(&req); err != nil {
		t.Fatalf("decode request: %v", err)
	}
	if req["dataset_id"] != "1" || req["eps"] != h.cfg.Clustering.Eps {
		t.Errorf("request = %v", req)
	}
}

func TestModel_ClusteringRequiresDataset(t *testing.T) {
	h := newHarness(t)
	h.press("c")

	if h.m.notification != session.MsgSelectDataset {
		t.Errorf("notification = %q", h.m.notification)
	}
	if h.m.notificationLvl != noteWarn {
		t.Errorf("level = %d, want warn", h.m.notificationLvl)
	}
	if n := h.server.RequestCount(testutil.PathClustering); n != 0 {
		t.Errorf("%d clustering requests sent", n)
	}
}

func TestModel_ClusteringMissingParams(t *testing.T) {
	h := newHarness(t)
	h.ready(t)
	h.cfg.Clustering.Eps = ""
	h.press("c")

	if !strings.HasPrefix(h.m.notification, gateway.MissingFieldsPrefix) || !strings.Contains(h.m.notification, "eps") {
		t.Errorf("notification = %q", h.m.notification)
	}
}

func TestModel_ClusteringNetworkError(t *testing.T) {
	h := newHarness(t)
	h.ready(t)
	h.server.Fail(testutil.PathClustering, 500, `{"message":"boom"}`)
	h.press("c")

	if h.m.notificationLvl != noteError || !strings.Contains(h.m.notification, "Clustering failed") {
		t.Errorf("notification = %q (level %d)", h.m.notification, h.m.notificationLvl)
	}
	if !h.m.sess.Legend().Empty() {
		t.Error("legend should be untouched")
	}
	if h.m.lastOp != "" {
		t.Errorf("lastOp = %q", h.m.lastOp)
	}
}

func TestModel_StaleResultIgnored(t *testing.T) {
	h := newHarness(t)
	h.m.Update(clusteringDoneMsg{err: session.ErrStaleResponse})

	if h.m.notification != "" {
		t.Errorf("stale result notified: %q", h.m.notification)
	}
	if h.m.lastOp != "" {
		t.Errorf("lastOp = %q", h.m.lastOp)
	}
}

func TestModel_PickWithoutDataLayer(t *testing.T) {
	h := newHarness(t)
	h.run(h.m.Init())
	h.press("1", "enter")

	if h.m.notification != picker.ErrNoDataLayer.Error() {
		t.Errorf("notification = %q", h.m.notification)
	}
	if h.m.sess.Picker().State() != picker.Idle {
		t.Error("pick should be aborted")
	}
	if h.m.sess.Registry().Has(layers.StartPoint) {
		t.Error("marker should not be placed")
	}
}

func TestModel_IdleClickIgnored(t *testing.T) {
	h := newHarness(t)
	h.clustered(t)
	h.press("enter")

	if h.m.sess.Registry().Has(layers.StartPoint) || h.m.sess.Coords(picker.Start) != "" {
		t.Error("idle click placed a point")
	}
}

func TestModel_PickAndGraph(t *testing.T) {
	h := newHarness(t)
	h.clustered(t)

	h.m.view.SetCursorCell(2, 2)
	h.press("1", "enter")
	h.m.view.SetCursorCell(60, 20)
	h.press("2", "enter")

	start, end := h.m.sess.Coords(picker.Start), h.m.sess.Coords(picker.End)
	if start == "" || end == "" || start == end {
		t.Fatalf("coords = %q / %q", start, end)
	}
	if h.m.coordInputs[picker.Start].Value() != start {
		t.Error("start input not synced")
	}
	if !h.m.sess.Registry().Has(layers.StartPoint) || !h.m.sess.Registry().Has(layers.EndPoint) {
		t.Error("markers missing")
	}

	h.press("g")
	if h.m.lastOp != export.Graph {
		t.Fatalf("lastOp = %q, notification %q", h.m.lastOp, h.m.notification)
	}
	route, ok := h.m.sess.Registry().FindByName(layers.Graph)
	if !ok || !route.Visible {
		t.Error("route layer should be visible")
	}
	if _, ok := h.m.sess.Legend().Entries, true; !ok || len(h.m.sess.Legend().Entries) != 2 {
		t.Errorf("legend = %+v", h.m.sess.Legend())
	}

	var req map[string]interface{}
	if err := h.server.Requests(testutil.PathGraph)[0].JSON(&req); err != nil {
		t.Fatalf("decode request: %v", err)
	}
	if req["start_coords"] != start || req["end_coords"] != end {
		t.Errorf("request coords = %v / %v", req["start_coords"], req["end_coords"])
	}
}

func TestModel_GraphRequiresClustering(t *testing.T) {
	h := newHarness(t)
	h.ready(t)
	h.press("g")

	if h.m.notification != session.MsgClusterFirst {
		t.Errorf("notification = %q", h.m.notification)
	}
	if n := h.server.RequestCount(testutil.PathGraph); n != 0 {
		t.Errorf("%d graph requests sent", n)
	}
}

func TestModel_GraphBackendError(t *testing.T) {
	h := newHarness(t)
	h.clustered(t)
	h.server.SetGraphResponse(testutil.GraphReply("/static/images/graphs/route.png",
		`{"Error": "Путь не найден"}`, [4]float64{0, 0, 100, 100}))

	h.m.sess.SetCoords(picker.Start, "10, 20")
	h.m.sess.SetCoords(picker.End, "11, 21")
	h.press("g")

	if h.m.lastOp != export.Graph {
		t.Errorf("lastOp = %q", h.m.lastOp)
	}
	if legend := h.m.sess.Legend(); !legend.IsError() || legend.Message != "Путь не найден" {
		t.Errorf("legend = %+v", legend)
	}
	if !strings.Contains(h.m.notification, "Путь не найден") || h.m.notificationLvl != noteError {
		t.Errorf("notification = %q", h.m.notification)
	}
}

func TestModel_CoordTextEdit(t *testing.T) {
	h := newHarness(t)
	h.clustered(t)

	h.press("a")
	if !h.m.editing || h.m.editTarget != picker.Start {
		t.Fatal("editing should start for the start point")
	}
	h.press("0.0002, 0.0003")
	if h.m.sess.Coords(picker.Start) != "" {
		t.Error("text should not be committed before enter")
	}
	h.press("enter")

	if h.m.editing {
		t.Error("editing should end on enter")
	}
	if got := h.m.sess.Coords(picker.Start); got != "0.0002, 0.0003" {
		t.Errorf("start coords = %q", got)
	}
	if !h.m.sess.Registry().Has(layers.StartPoint) {
		t.Error("marker should follow typed coordinates")
	}
}

func TestModel_CoordTextEditInvalid(t *testing.T) {
	h := newHarness(t)
	h.press("b", "north", "enter")

	if got := h.m.sess.Coords(picker.End); got != "north" {
		t.Errorf("raw text should be kept, got %q", got)
	}
	if h.m.sess.Registry().Has(layers.EndPoint) {
		t.Error("invalid text placed a marker")
	}
	if h.m.notificationLvl != noteWarn {
		t.Errorf("notification = %q", h.m.notification)
	}
}

func TestModel_CoordTextEditCancel(t *testing.T) {
	h := newHarness(t)
	h.m.sess.SetCoords(picker.Start, "1, 2")
	h.press("a", "9", "esc")

	if h.m.editing {
		t.Error("esc should end editing")
	}
	if got := h.m.coordInputs[picker.Start].Value(); got != "1, 2" {
		t.Errorf("input = %q, want restored value", got)
	}
	if got := h.m.sess.Coords(picker.Start); got != "1, 2" {
		t.Errorf("session coords = %q", got)
	}
}

func TestModel_MouseClick(t *testing.T) {
	h := newHarness(t)
	h.clustered(t)
	h.press("1")

	h.m.Update(tea.MouseMsg{X: 5, Y: headerHeight + 1 + 3, Action: tea.MouseActionPress, Button: tea.MouseButtonLeft})

	if col, row := h.m.view.Cursor(); col != 4 || row != 3 {
		t.Errorf("cursor = (%d, %d), want (4, 3)", col, row)
	}
	if h.m.sess.Coords(picker.Start) == "" {
		t.Error("click should place the start point")
	}
}

func TestModel_MouseWheelZooms(t *testing.T) {
	h := newHarness(t)
	before := h.m.view.Zoom()
	h.m.Update(tea.MouseMsg{Button: tea.MouseButtonWheelUp, Action: tea.MouseActionPress})
	if h.m.view.Zoom() != before+1 {
		t.Errorf("zoom = %d, want %d", h.m.view.Zoom(), before+1)
	}
	h.m.Update(tea.MouseMsg{Button: tea.MouseButtonWheelDown, Action: tea.MouseActionPress})
	if h.m.view.Zoom() != before {
		t.Errorf("zoom = %d, want %d", h.m.view.Zoom(), before)
	}
}

func TestModel_MapNavigation(t *testing.T) {
	h := newHarness(t)
	col, row := h.m.view.Cursor()

	h.press("l", "l", "j")
	if c, r := h.m.view.Cursor(); c != col+2 || r != row+1 {
		t.Errorf("cursor = (%d, %d), want (%d, %d)", c, r, col+2, row+1)
	}
	h.press("+")
	if h.m.view.Zoom() != 3 {
		t.Errorf("zoom = %d", h.m.view.Zoom())
	}
	h.press("0")
	if h.m.view.Zoom() != 2 {
		t.Errorf("zoom after reset = %d", h.m.view.Zoom())
	}
}

func TestModel_ChooseAndDeleteDataset(t *testing.T) {
	h := newHarness(t)
	h.run(h.m.Init())

	h.press("d", "tab", "enter")
	if id, _ := h.m.sess.SelectedDataset(); id != 2 {
		t.Fatalf("selected = %d, want 2", id)
	}
	if !strings.Contains(h.m.notification, "Сангарский пролив") {
		t.Errorf("notification = %q", h.m.notification)
	}

	h.press("x")
	if !h.m.panel.confirmDelete {
		t.Fatal("delete should ask for confirmation")
	}
	h.press("y")

	if _, ok := h.m.sess.SelectedDataset(); ok {
		t.Error("deleted dataset should be deselected")
	}
	if len(h.m.panel.list.Mine) != 0 || len(h.m.panel.list.All) != 1 {
		t.Errorf("list not refreshed: %+v", h.m.panel.list)
	}
}

func TestModel_DeleteCancelled(t *testing.T) {
	h := newHarness(t)
	h.run(h.m.Init())
	h.press("d", "tab", "x", "n")

	if h.m.panel.confirmDelete {
		t.Error("confirmation should be cleared")
	}
	if n := h.server.RequestCount(testutil.PathDelete); n != 0 {
		t.Errorf("%d delete requests sent", n)
	}
}

func TestModel_DeleteForeignRejected(t *testing.T) {
	h := newHarness(t)
	h.run(h.m.Init())
	h.press("d", "x")

	if h.m.panel.confirmDelete {
		t.Error("foreign dataset should not be confirmable")
	}
	if h.m.notificationLvl != noteWarn {
		t.Errorf("notification = %q", h.m.notification)
	}
}

func TestModel_ParamsForm(t *testing.T) {
	h := newHarness(t)
	h.press("p", "down")
	if f := h.m.form.Current(); f.key != "weight_speed" {
		t.Fatalf("focused field = %q", f.key)
	}
	h.m.form.Current().input.SetValue("0.5")

	// The last graph field is the points_inside toggle
	h.press("tab", "up", " ")
	if f := h.m.form.Current(); f.key != "points_inside" || !f.on {
		t.Fatalf("toggle = %q on=%v", f.key, f.on)
	}
	h.press("enter")

	if h.cfg.Clustering.WeightSpeed != "0.5" {
		t.Errorf("weight_speed = %q", h.cfg.Clustering.WeightSpeed)
	}
	if !h.cfg.Graph.PointsInside {
		t.Error("points_inside should be saved")
	}
	if h.saves != 1 {
		t.Errorf("saves = %d", h.saves)
	}
	if h.m.viewMode != ViewMap {
		t.Error("enter should close the panel")
	}
}

func TestModel_ParamsFormDiscard(t *testing.T) {
	h := newHarness(t)
	h.press("p")
	h.m.form.Current().input.SetValue("9")
	h.press("esc")

	if h.cfg.Clustering.WeightDistance != "3.5" {
		t.Errorf("weight_distance = %q, want unchanged", h.cfg.Clustering.WeightDistance)
	}
	h.press("p")
	if got := h.m.form.Current().Value(); got != "3.5" {
		t.Errorf("reopened form shows %q", got)
	}
}

func TestModel_LayersPanel(t *testing.T) {
	h := newHarness(t)
	h.run(h.m.Init())
	h.press("o", "enter")

	if bg, _ := h.m.sess.Registry().FindByName(layers.Background); bg.Visible {
		t.Error("background should be hidden")
	}
	h.press("enter")
	if bg, _ := h.m.sess.Registry().FindByName(layers.Background); !bg.Visible {
		t.Error("background should be shown again")
	}
	h.press("esc")
	if h.m.viewMode != ViewMap {
		t.Error("esc should close the panel")
	}
}

func TestModel_ThemeCycle(t *testing.T) {
	h := newHarness(t)
	h.press("T")

	want := theme.Next(theme.Default)
	if h.cfg.Display.Theme != want {
		t.Errorf("theme = %q, want %q", h.cfg.Display.Theme, want)
	}
	if h.m.theme != theme.Get(want) {
		t.Error("model theme not updated")
	}
	if h.saves != 1 {
		t.Errorf("saves = %d", h.saves)
	}
}

func TestModel_SettingsPanel(t *testing.T) {
	h := newHarness(t)
	h.press("t", "down", "down", "enter")

	if want := theme.List()[2]; h.cfg.Display.Theme != want {
		t.Errorf("theme = %q, want %q", h.cfg.Display.Theme, want)
	}
	h.press("l")
	if h.cfg.Display.ShowLegend {
		t.Error("legend should be toggled off")
	}
}

func TestModel_HelpClosesOnAnyKey(t *testing.T) {
	h := newHarness(t)
	h.press("?")
	if h.m.viewMode != ViewHelp {
		t.Fatal("? should open help")
	}
	h.press("z")
	if h.m.viewMode != ViewMap {
		t.Error("any key should close help")
	}
}

func TestModel_Quit(t *testing.T) {
	tests := []string{"q", "ctrl+c"}
	for _, key := range tests {
		t.Run(key, func(t *testing.T) {
			h := newHarness(t)
			_, cmd := h.m.Update(keyMsg(key))
			if cmd == nil {
				t.Fatal("quit should return a command")
			}
			if _, ok := cmd().(tea.QuitMsg); !ok {
				t.Error("expected tea.QuitMsg")
			}
			if h.saves != 1 {
				t.Errorf("saves = %d", h.saves)
			}
			if h.m.ctx.Err() == nil {
				t.Error("context should be cancelled")
			}
		})
	}
}

func TestModel_QQuitsOnlyOnMap(t *testing.T) {
	h := newHarness(t)
	h.press("p")
	_, cmd := h.m.Update(keyMsg("q"))
	if cmd != nil {
		if _, ok := cmd().(tea.QuitMsg); ok {
			t.Error("q should be typed into the form")
		}
	}
}

func TestModel_ExportLegend(t *testing.T) {
	h := newHarness(t)
	h.clustered(t)

	h.press("e")
	if !strings.HasPrefix(h.m.notification, "CSV: ") {
		t.Fatalf("notification = %q", h.m.notification)
	}
	h.press("ctrl+e")
	if !strings.HasPrefix(h.m.notification, "JSON: ") {
		t.Fatalf("notification = %q", h.m.notification)
	}

	csvFiles, _ := filepath.Glob(filepath.Join(h.cfg.Export.Directory, "theway_clustering_legend_*.csv"))
	jsonFiles, _ := filepath.Glob(filepath.Join(h.cfg.Export.Directory, "theway_clustering_legend_*.json"))
	if len(csvFiles) != 1 || len(jsonFiles) != 1 {
		t.Fatalf("exports = %v %v", csvFiles, jsonFiles)
	}
	data, err := os.ReadFile(jsonFiles[0])
	if err != nil {
		t.Fatal(err)
	}
	testutil.AssertContainsAll(t, string(data), `"operation": "clustering"`, `"dataset_id": "1"`, "Всего кластеров")
}

func TestModel_ExportEmptyLegend(t *testing.T) {
	h := newHarness(t)
	h.press("e")
	if h.m.notification != "No results to export" {
		t.Errorf("notification = %q", h.m.notification)
	}
}

func TestModel_Screenshot(t *testing.T) {
	h := newHarness(t)
	h.press("s")
	if h.m.notification != "No view to export" {
		t.Errorf("notification = %q", h.m.notification)
	}

	h.m.View()
	h.press("s")
	if !strings.HasPrefix(h.m.notification, "Screenshot: theway_screen_") {
		t.Errorf("notification = %q", h.m.notification)
	}
}

func TestModel_NotificationExpires(t *testing.T) {
	h := newHarness(t)
	h.m.notify("hello", noteInfo)
	for i := 0; i < 25; i++ {
		h.m.Update(tickMsg{})
	}
	if h.m.notification != "" {
		t.Errorf("notification = %q, want expired", h.m.notification)
	}
}

func TestModel_SpinnerStopsWhenIdle(t *testing.T) {
	h := newHarness(t)
	cmd := h.m.startRun(func() tea.Msg { return nil })
	if cmd == nil || !h.m.spinning {
		t.Fatal("run should start the spinner")
	}
	h.m.Update(spinner.TickMsg{})
	if h.m.spinning {
		t.Error("spinner should stop once nothing runs")
	}
}

func TestModel_Resize(t *testing.T) {
	h := newHarness(t)
	h.m.Update(tea.WindowSizeMsg{Width: 140, Height: 50})

	w, ht := h.m.view.Size()
	if w != 140-sidebarWidth-3 || ht != 50-headerHeight-statusHeight-2 {
		t.Errorf("map size = %dx%d", w, ht)
	}

	h.m.Update(tea.WindowSizeMsg{Width: 10, Height: 5})
	if w, ht = h.m.view.Size(); w != minMapWidth || ht != minMapHeight {
		t.Errorf("small terminal map size = %dx%d", w, ht)
	}
}

func TestModel_FixedMapSize(t *testing.T) {
	h := newHarness(t)
	h.cfg.Display.MapWidth, h.cfg.Display.MapHeight = 40, 12
	h.m.Update(tea.WindowSizeMsg{Width: 200, Height: 80})

	// Fixed sizes are only applied at construction
	w, ht := h.m.view.Size()
	if w == 200-sidebarWidth-3 || ht == 80-headerHeight-statusHeight-2 {
		t.Errorf("configured size should not follow the terminal: %dx%d", w, ht)
	}
}
