package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/theway/theway-go/internal/geo"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Connection.BaseURL != "http://localhost:5000" {
		t.Errorf("Connection.BaseURL = %q", cfg.Connection.BaseURL)
	}
	if cfg.Connection.Timeout() != 5*time.Minute {
		t.Errorf("Connection.Timeout() = %v, want 5m", cfg.Connection.Timeout())
	}
	if cfg.Display.Theme != "nautical" {
		t.Errorf("Display.Theme = %q, want %q", cfg.Display.Theme, "nautical")
	}
	if !cfg.Display.ShowLegend {
		t.Error("Display.ShowLegend should be true by default")
	}
	if cfg.Clustering.Eps != "0.42" || cfg.Clustering.MinSamples != "60" || cfg.Clustering.HullType != "concave_hull" {
		t.Errorf("unexpected clustering defaults: %+v", cfg.Clustering)
	}
	if cfg.Graph.SearchAlgorithm != "Dijkstra" || cfg.Graph.DistanceDelta != "150.0" || cfg.Graph.PointsInside {
		t.Errorf("unexpected graph defaults: %+v", cfg.Graph)
	}
	if cfg.Map.BackgroundOpacity != 0.2 {
		t.Errorf("Map.BackgroundOpacity = %v, want 0.2", cfg.Map.BackgroundOpacity)
	}
	ext, err := cfg.Map.Extent()
	if err != nil {
		t.Fatalf("Map.Extent() failed: %v", err)
	}
	if ext != geo.DefaultGeographicExtent {
		t.Errorf("Map.Extent() = %v", ext)
	}
	if cfg.Metrics.ListenAddr != "" {
		t.Error("metrics should be off by default")
	}
	if cfg.RecentURLs == nil {
		t.Error("RecentURLs should not be nil")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate: %v", err)
	}
}

func TestParams(t *testing.T) {
	cfg := DefaultConfig()

	cp := cfg.Clustering.Params("2")
	if cp.DatasetID != "2" || cp.WeightDistance != "3.5" || cp.HullType != "concave_hull" {
		t.Errorf("ClusteringParams = %+v", cp)
	}
	if missing := cp.Missing(); len(missing) != 0 {
		t.Errorf("default clustering params should be complete, missing %v", missing)
	}

	gp := cfg.Graph.Params("55.75, 37.61", "56.0, 38.0", "2")
	if gp.StartCoords != "55.75, 37.61" || gp.EndCoords != "56.0, 38.0" || gp.DatasetID != "2" {
		t.Errorf("GraphParams = %+v", gp)
	}
	if missing := gp.Missing(); len(missing) != 0 {
		t.Errorf("default graph params should be complete, missing %v", missing)
	}
}

func TestLoadFrom_MissingFile(t *testing.T) {
	cfg, err := LoadFrom(filepath.Join(t.TempDir(), "nope.json"))
	if err != nil {
		t.Fatalf("LoadFrom missing file failed: %v", err)
	}
	if cfg.Display.Theme != DefaultConfig().Display.Theme {
		t.Errorf("expected defaults, got theme %q", cfg.Display.Theme)
	}
}

func TestLoadFrom_PartialFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")
	content := `{
  "connection": {"base_url": "https://theway.example.org", "session_cookie": "session=abc"},
  "display": {"theme": "amber"},
  "clustering": {"min_samples": 80}
}`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("LoadFrom failed: %v", err)
	}
	if cfg.Connection.BaseURL != "https://theway.example.org" {
		t.Errorf("BaseURL = %q", cfg.Connection.BaseURL)
	}
	if cfg.Connection.SessionCookie != "session=abc" {
		t.Errorf("SessionCookie = %q", cfg.Connection.SessionCookie)
	}
	if cfg.Display.Theme != "amber" {
		t.Errorf("Theme = %q", cfg.Display.Theme)
	}
	if cfg.Clustering.MinSamples != "80" {
		t.Errorf("MinSamples = %q, a number in the file should load as text", cfg.Clustering.MinSamples)
	}
	// untouched keys keep their defaults
	if cfg.Clustering.Eps != "0.42" || cfg.Connection.TimeoutSec != 300 || !cfg.Display.ShowLegend {
		t.Errorf("defaults lost: eps=%q timeout=%d legend=%v", cfg.Clustering.Eps, cfg.Connection.TimeoutSec, cfg.Display.ShowLegend)
	}
	if len(cfg.Map.GeographicExtent) != 4 {
		t.Errorf("GeographicExtent = %v", cfg.Map.GeographicExtent)
	}
}

func TestLoadFrom_InvalidJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")
	if err := os.WriteFile(path, []byte("{invalid"), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFrom(path)
	if err == nil {
		t.Fatal("expected an error for malformed JSON")
	}
	if cfg == nil || cfg.Display.Theme != DefaultConfig().Display.Theme {
		t.Error("a malformed file should still yield the default config")
	}
}

func TestLoadFrom_EnvOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")
	if err := os.WriteFile(path, []byte(`{"connection": {"base_url": "http://from-file:5000"}}`), 0644); err != nil {
		t.Fatal(err)
	}

	t.Setenv("THEWAY_CONNECTION_BASE_URL", "http://from-env:8080")
	t.Setenv("THEWAY_DISPLAY_THEME", "night")
	t.Setenv("THEWAY_METRICS_LISTEN_ADDR", "127.0.0.1:9100")

	cfg, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("LoadFrom failed: %v", err)
	}
	if cfg.Connection.BaseURL != "http://from-env:8080" {
		t.Errorf("BaseURL = %q, environment should win over the file", cfg.Connection.BaseURL)
	}
	if cfg.Display.Theme != "night" {
		t.Errorf("Theme = %q", cfg.Display.Theme)
	}
	if cfg.Metrics.ListenAddr != "127.0.0.1:9100" {
		t.Errorf("ListenAddr = %q", cfg.Metrics.ListenAddr)
	}
}

func TestLoadFrom_InvalidValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")
	if err := os.WriteFile(path, []byte(`{"display": {"theme": "matrix"}}`), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFrom(path)
	if err == nil {
		t.Fatal("expected a validation error")
	}
	if cfg.Display.Theme != "matrix" {
		t.Error("the loaded config should be returned with the validation error")
	}
}

func TestSaveTo_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "settings.json")

	cfg := DefaultConfig()
	cfg.Connection.BaseURL = "http://10.0.0.5:5000"
	cfg.Connection.SessionCookie = "session=xyz"
	cfg.Graph.PointsInside = true
	cfg.Graph.SearchAlgorithm = "A*"
	cfg.Export.Directory = "/tmp/exports"
	cfg.AddRecentURL("http://10.0.0.5:5000")

	if err := SaveTo(cfg, path); err != nil {
		t.Fatalf("SaveTo failed: %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("settings file not written: %v", err)
	}
	if info.Mode().Perm() != 0600 {
		t.Errorf("settings file mode = %v, want 0600", info.Mode().Perm())
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	var raw map[string]interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("saved file is not JSON: %v", err)
	}
	for _, section := range []string{"connection", "display", "clustering", "graph", "map", "export", "logging", "metrics", "recent_urls"} {
		if _, ok := raw[section]; !ok {
			t.Errorf("saved file missing section %q", section)
		}
	}

	loaded, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("LoadFrom failed: %v", err)
	}
	if loaded.Connection.BaseURL != cfg.Connection.BaseURL || loaded.Connection.SessionCookie != "session=xyz" {
		t.Errorf("connection not preserved: %+v", loaded.Connection)
	}
	if !loaded.Graph.PointsInside || loaded.Graph.SearchAlgorithm != "A*" {
		t.Errorf("graph not preserved: %+v", loaded.Graph)
	}
	if loaded.Export.Directory != "/tmp/exports" {
		t.Errorf("Export.Directory = %q", loaded.Export.Directory)
	}
	if len(loaded.RecentURLs) != 1 || loaded.RecentURLs[0] != "http://10.0.0.5:5000" {
		t.Errorf("RecentURLs = %v", loaded.RecentURLs)
	}
}

func TestAddRecentURL(t *testing.T) {
	cfg := DefaultConfig()

	cfg.AddRecentURL("  ")
	if len(cfg.RecentURLs) != 0 {
		t.Fatal("blank URL should be ignored")
	}

	for i := 0; i < MaxRecentURLs+2; i++ {
		cfg.AddRecentURL("http://host" + string(rune('a'+i)) + ":5000")
	}
	if len(cfg.RecentURLs) != MaxRecentURLs {
		t.Fatalf("len(RecentURLs) = %d, want %d", len(cfg.RecentURLs), MaxRecentURLs)
	}
	if cfg.RecentURLs[0] != "http://hostg:5000" {
		t.Errorf("newest URL should come first, got %q", cfg.RecentURLs[0])
	}

	cfg.AddRecentURL("http://hostd:5000/")
	if cfg.RecentURLs[0] != "http://hostd:5000" {
		t.Errorf("re-added URL should move to front, got %v", cfg.RecentURLs)
	}
	seen := map[string]bool{}
	for _, u := range cfg.RecentURLs {
		if seen[u] {
			t.Errorf("duplicate %q in %v", u, cfg.RecentURLs)
		}
		seen[u] = true
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"bad scheme", func(c *Config) { c.Connection.BaseURL = "ftp://host" }, "connection.base_url"},
		{"no host", func(c *Config) { c.Connection.BaseURL = "http://" }, "connection.base_url"},
		{"zero timeout", func(c *Config) { c.Connection.TimeoutSec = 0 }, "connection.timeout_sec"},
		{"unknown theme", func(c *Config) { c.Display.Theme = "matrix" }, "display.theme"},
		{"negative size", func(c *Config) { c.Display.MapWidth = -1 }, "display.map_width"},
		{"hull type", func(c *Config) { c.Clustering.HullType = "alpha" }, "clustering.hull_type"},
		{"algorithm", func(c *Config) { c.Graph.SearchAlgorithm = "BFS" }, "graph.search_algorithm"},
		{"extent length", func(c *Config) { c.Map.GeographicExtent = []float64{1, 2, 3} }, "map.geographic_extent"},
		{"extent order", func(c *Config) { c.Map.GeographicExtent = []float64{10, 0, 0, 10} }, "map.geographic_extent"},
		{"opacity", func(c *Config) { c.Map.BackgroundOpacity = 1.5 }, "map.background_opacity"},
		{"log level", func(c *Config) { c.Logging.Level = "loud" }, "logging.level"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected a validation error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error %q does not mention %q", err, tt.wantErr)
			}
		})
	}

	// blank optional choices are allowed
	cfg := DefaultConfig()
	cfg.Clustering.HullType = ""
	cfg.Graph.SearchAlgorithm = ""
	if err := cfg.Validate(); err != nil {
		t.Errorf("blank choices should validate: %v", err)
	}
}

func TestValidate_CollectsAll(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Connection.TimeoutSec = -1
	cfg.Display.Theme = "matrix"
	cfg.Logging.Level = "loud"

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected an error")
	}
	for _, want := range []string{"timeout_sec", "display.theme", "logging.level"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error should mention %q: %v", want, err)
		}
	}
}

func TestConfigPaths(t *testing.T) {
	if filepath.Base(GetConfigPath()) != "settings.json" {
		t.Errorf("GetConfigPath() = %q", GetConfigPath())
	}
	if filepath.Base(ConfigDir) != "theway" {
		t.Errorf("ConfigDir = %q", ConfigDir)
	}
}
