package main

import (
	"path/filepath"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/theway/theway-go/internal/config"
	"github.com/theway/theway-go/internal/testutil"
)

func keyPress(s string) tea.KeyMsg {
	switch s {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "tab":
		return tea.KeyMsg{Type: tea.KeyTab}
	case "shift+tab":
		return tea.KeyMsg{Type: tea.KeyShiftTab}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "left":
		return tea.KeyMsg{Type: tea.KeyLeft}
	case "right":
		return tea.KeyMsg{Type: tea.KeyRight}
	case "space":
		return tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}}
	case "ctrl+c":
		return tea.KeyMsg{Type: tea.KeyCtrlC}
	default:
		return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
	}
}

func send(m wizardModel, keys ...string) wizardModel {
	for _, k := range keys {
		next, _ := m.Update(keyPress(k))
		m = next.(wizardModel)
	}
	return m
}

// gotoField moves the wizard onto the named field
func gotoField(t *testing.T, m wizardModel, name string) wizardModel {
	t.Helper()
	m = send(m, "enter")
	for i := 0; i < 40; i++ {
		if m.editing() && m.fields[m.section][m.fieldIndex].name == name {
			return m
		}
		m = send(m, "tab")
	}
	t.Fatalf("field %q not reachable", name)
	return m
}

func TestNewWizardModel(t *testing.T) {
	cfg := config.DefaultConfig()
	m := newWizardModel(cfg, "/tmp/settings.json")

	if m.cfg != cfg {
		t.Error("Expected wizard model to reference the config")
	}
	if m.section != sectionWelcome {
		t.Errorf("Expected initial section to be sectionWelcome, got %d", m.section)
	}

	expected := []string{"Welcome", "Connection", "Display", "Clustering", "Graph", "Summary"}
	if len(m.sectionNames) != len(expected) {
		t.Fatalf("Expected %d section names, got %d", len(expected), len(m.sectionNames))
	}
	for i, name := range expected {
		if m.sectionNames[i] != name {
			t.Errorf("Expected section %d to be %q, got %q", i, name, m.sectionNames[i])
		}
	}

	if len(m.fields[sectionWelcome]) != 0 || len(m.fields[sectionSummary]) != 0 {
		t.Error("Welcome and Summary should have no fields")
	}
	wantFields := map[int]int{
		sectionConnection: 3,
		sectionDisplay:    4,
		sectionClustering: 7,
		sectionGraph:      7,
	}
	for section, n := range wantFields {
		if got := len(m.fields[section]); got != n {
			t.Errorf("%s: got %d fields, want %d", m.sectionNames[section], got, n)
		}
	}
}

func TestNewWizardModel_SelectsCurrentValues(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Display.Theme = "amber"
	cfg.Clustering.HullType = "convex_hull"
	cfg.Graph.SearchAlgorithm = "A*"

	m := newWizardModel(cfg, "/tmp/settings.json")

	for _, tt := range []struct {
		section int
		name    string
		want    string
	}{
		{sectionDisplay, "theme", "amber"},
		{sectionClustering, "hull_type", "convex_hull"},
		{sectionGraph, "search_algorithm", "A*"},
	} {
		for _, f := range m.fields[tt.section] {
			if f.name == tt.name && f.value() != tt.want {
				t.Errorf("%s = %q, want %q", tt.name, f.value(), tt.want)
			}
		}
	}
}

func TestWizardModelInit(t *testing.T) {
	m := newWizardModel(config.DefaultConfig(), "/tmp/settings.json")
	if m.Init() == nil {
		t.Error("Expected Init to return a command (textinput.Blink)")
	}
}

func TestWizardModelView_Welcome(t *testing.T) {
	m := newWizardModel(config.DefaultConfig(), "/tmp/settings.json")
	view := m.View()

	testutil.AssertContainsAll(t, view,
		"THEWAY CONFIGURATION WIZARD",
		"Welcome",
		"Press Enter to start",
		"/tmp/settings.json",
	)
}

func TestWizardNavigation(t *testing.T) {
	m := newWizardModel(config.DefaultConfig(), "/tmp/settings.json")

	m = send(m, "enter")
	if m.section != sectionConnection || m.fieldIndex != 0 {
		t.Fatalf("After Enter expected Connection/0, got %d/%d", m.section, m.fieldIndex)
	}
	if !m.fields[sectionConnection][0].textInput.Focused() {
		t.Error("Expected first field to be focused")
	}

	m = send(m, "tab", "tab", "tab")
	if m.section != sectionDisplay || m.fieldIndex != 0 {
		t.Errorf("Expected to wrap into Display, got %d/%d", m.section, m.fieldIndex)
	}

	m = send(m, "shift+tab")
	if m.section != sectionConnection || m.fieldIndex != 2 {
		t.Errorf("Expected back on last Connection field, got %d/%d", m.section, m.fieldIndex)
	}

	m = send(m, "esc")
	if m.section != sectionWelcome {
		t.Errorf("Esc should go back a section, got %d", m.section)
	}

	// Walk every field to the summary
	m = send(m, "enter")
	for i := 0; i < 21; i++ {
		m = send(m, "tab")
	}
	if m.section != sectionSummary {
		t.Errorf("Expected Summary after all fields, got %d", m.section)
	}
	m = send(m, "tab")
	if m.section != sectionSummary {
		t.Error("Tab on Summary should stay put")
	}
}

func TestWizardToggleAndSelect(t *testing.T) {
	cfg := config.DefaultConfig()
	m := newWizardModel(cfg, "/tmp/settings.json")

	m = gotoField(t, m, "show_legend")
	before := m.fields[m.section][m.fieldIndex].boolValue
	m = send(m, "space")
	if m.fields[m.section][m.fieldIndex].boolValue == before {
		t.Error("Space should toggle a bool field")
	}

	m = newWizardModel(cfg, "/tmp/settings.json")
	m = gotoField(t, m, "hull_type")
	f := m.fields[m.section][m.fieldIndex]
	if f.value() != "concave_hull" {
		t.Fatalf("hull_type starts at %q", f.value())
	}
	m = send(m, "left")
	if got := m.fields[m.section][m.fieldIndex].value(); got != "convex_hull" {
		t.Errorf("left should select convex_hull, got %q", got)
	}
	m = send(m, "left")
	if got := m.fields[m.section][m.fieldIndex].value(); got != "convex_hull" {
		t.Errorf("left at first option should stay, got %q", got)
	}
	m = send(m, "right")
	if got := m.fields[m.section][m.fieldIndex].value(); got != "concave_hull" {
		t.Errorf("right should select concave_hull, got %q", got)
	}
}

func TestWizardTextInput(t *testing.T) {
	m := newWizardModel(config.DefaultConfig(), "/tmp/settings.json")
	m = gotoField(t, m, "eps")

	f := &m.fields[m.section][m.fieldIndex]
	f.textInput.SetValue("")
	m = send(m, "0", ".", "7")

	if got := m.fields[m.section][m.fieldIndex].textInput.Value(); got != "0.7" {
		t.Errorf("eps input = %q, want 0.7", got)
	}
}

func TestWizardApplyFields(t *testing.T) {
	cfg := config.DefaultConfig()
	m := newWizardModel(cfg, "/tmp/settings.json")

	set := func(section int, name, value string) {
		for i := range m.fields[section] {
			if m.fields[section][i].name == name {
				m.fields[section][i].textInput.SetValue(value)
				return
			}
		}
		t.Fatalf("no field %q", name)
	}
	set(sectionConnection, "base_url", " http://backend:9000 ")
	set(sectionConnection, "timeout_sec", "not-a-number")
	set(sectionDisplay, "map_width", "120")
	set(sectionClustering, "min_samples", "25")
	set(sectionGraph, "angle_of_vision", "45.0")
	m.fields[sectionGraph][6].boolValue = true
	m.fields[sectionDisplay][0].selectIndex = len(m.fields[sectionDisplay][0].optionKeys) - 1

	previousTimeout := cfg.Connection.TimeoutSec
	m.applyFields()

	if cfg.Connection.BaseURL != "http://backend:9000" {
		t.Errorf("BaseURL = %q", cfg.Connection.BaseURL)
	}
	if cfg.Connection.TimeoutSec != previousTimeout {
		t.Errorf("Bad number should keep the timeout, got %d", cfg.Connection.TimeoutSec)
	}
	if cfg.Display.MapWidth != 120 {
		t.Errorf("MapWidth = %d", cfg.Display.MapWidth)
	}
	if cfg.Clustering.MinSamples != "25" {
		t.Errorf("MinSamples = %q", cfg.Clustering.MinSamples)
	}
	if cfg.Graph.AngleOfVision != "45.0" {
		t.Errorf("AngleOfVision = %q", cfg.Graph.AngleOfVision)
	}
	if !cfg.Graph.PointsInside {
		t.Error("PointsInside should be set")
	}
	if cfg.Display.Theme != m.fields[sectionDisplay][0].optionKeys[len(m.fields[sectionDisplay][0].optionKeys)-1] {
		t.Errorf("Theme = %q", cfg.Display.Theme)
	}
}

func TestWizardSummary(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Connection.SessionCookie = "session=secret"
	m := newWizardModel(cfg, "/tmp/settings.json")
	m.section = sectionSummary

	view := m.View()
	testutil.AssertContainsAll(t, view,
		"Configuration Summary",
		"Connection:",
		"Clustering:",
		"Graph:",
		"http://localhost:5000",
		"concave_hull",
		"Dijkstra",
		"(set)",
		"Press Enter to save",
	)
	testutil.AssertNotContains(t, view, "session=secret")
}

func TestWizardSave(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "settings.json")
	cfg := config.DefaultConfig()
	m := newWizardModel(cfg, path)
	m.fields[sectionClustering][3].textInput.SetValue("0.9")
	m.section = sectionSummary

	next, cmd := m.Update(keyPress("enter"))
	m = next.(wizardModel)
	if cmd == nil {
		t.Error("Expected quit command after saving")
	}
	if !m.saved || m.err != nil {
		t.Fatalf("saved=%v err=%v", m.saved, m.err)
	}
	testutil.AssertContains(t, m.View(), "Configuration saved to "+path)

	loaded, err := config.LoadFrom(path)
	if err != nil {
		t.Fatalf("LoadFrom: %v", err)
	}
	if loaded.Clustering.Eps != "0.9" {
		t.Errorf("saved eps = %q, want 0.9", loaded.Clustering.Eps)
	}
}

func TestWizardSave_Invalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")
	m := newWizardModel(config.DefaultConfig(), path)
	m.fields[sectionConnection][0].textInput.SetValue("not a url")
	m.section = sectionSummary

	next, _ := m.Update(keyPress("enter"))
	m = next.(wizardModel)
	if m.saved || m.err == nil {
		t.Fatal("Expected validation to block saving")
	}
	if !strings.Contains(m.View(), "Error saving configuration") {
		t.Error("Expected error view")
	}
}

func TestWizardQuit(t *testing.T) {
	tests := []struct {
		name    string
		section int
		key     string
		quits   bool
	}{
		{"q on welcome", sectionWelcome, "q", true},
		{"q on summary", sectionSummary, "q", true},
		{"ctrl+c anywhere", sectionGraph, "ctrl+c", true},
		{"q inside a form types", sectionConnection, "q", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := newWizardModel(config.DefaultConfig(), "/tmp/settings.json")
			m.section = tt.section
			m.focus()
			next, _ := m.Update(keyPress(tt.key))
			m = next.(wizardModel)
			if m.quitting != tt.quits {
				t.Errorf("quitting = %v, want %v", m.quitting, tt.quits)
			}
			if tt.quits && m.saved {
				t.Error("Quitting must not save")
			}
		})
	}
}

func TestWizardWindowSize(t *testing.T) {
	m := newWizardModel(config.DefaultConfig(), "/tmp/settings.json")
	next, _ := m.Update(tea.WindowSizeMsg{Width: 120, Height: 40})
	m = next.(wizardModel)
	if m.width != 120 || m.height != 40 {
		t.Errorf("size = %dx%d", m.width, m.height)
	}
}
