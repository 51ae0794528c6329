// Package config handles configuration loading, saving, and defaults for theway
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
	"go.uber.org/zap/zapcore"

	"github.com/theway/theway-go/internal/gateway"
	"github.com/theway/theway-go/internal/geo"
	"github.com/theway/theway-go/internal/theme"
)

// EnvPrefix prefixes environment overrides: THEWAY_CONNECTION_BASE_URL -> connection.base_url
const EnvPrefix = "THEWAY"

// MaxRecentURLs bounds the recent backend list
const MaxRecentURLs = 5

// Config directories and files
var (
	ConfigDir  string
	ConfigFile string
)

func init() {
	homeDir, _ := os.UserHomeDir()
	ConfigDir = filepath.Join(homeDir, ".config", "theway")
	ConfigFile = filepath.Join(ConfigDir, "settings.json")
}

// ConnectionSettings contains backend connection options
type ConnectionSettings struct {
	BaseURL       string `json:"base_url" mapstructure:"base_url"`
	SessionCookie string `json:"session_cookie" mapstructure:"session_cookie"`
	TimeoutSec    int    `json:"timeout_sec" mapstructure:"timeout_sec"`
}

// Timeout returns the request timeout
func (c ConnectionSettings) Timeout() time.Duration {
	return time.Duration(c.TimeoutSec) * time.Second
}

// DisplaySettings contains UI display options. A zero map size fits the terminal.
type DisplaySettings struct {
	Theme      string `json:"theme" mapstructure:"theme"`
	ShowLegend bool   `json:"show_legend" mapstructure:"show_legend"`
	MapWidth   int    `json:"map_width" mapstructure:"map_width"`
	MapHeight  int    `json:"map_height" mapstructure:"map_height"`
}

// ClusteringSettings are the clustering form defaults. Values stay strings
// because the backend parses them and a blank field must stay blank.
type ClusteringSettings struct {
	WeightDistance string `json:"weight_distance" mapstructure:"weight_distance"`
	WeightSpeed    string `json:"weight_speed" mapstructure:"weight_speed"`
	WeightCourse   string `json:"weight_course" mapstructure:"weight_course"`
	Eps            string `json:"eps" mapstructure:"eps"`
	MinSamples     string `json:"min_samples" mapstructure:"min_samples"`
	MetricDegree   string `json:"metric_degree" mapstructure:"metric_degree"`
	HullType       string `json:"hull_type" mapstructure:"hull_type"`
}

// Params builds the request parameters for a dataset
func (c ClusteringSettings) Params(datasetID string) gateway.ClusteringParams {
	return gateway.ClusteringParams{
		WeightDistance: c.WeightDistance,
		WeightSpeed:    c.WeightSpeed,
		WeightCourse:   c.WeightCourse,
		Eps:            c.Eps,
		MinSamples:     c.MinSamples,
		MetricDegree:   c.MetricDegree,
		HullType:       c.HullType,
		DatasetID:      datasetID,
	}
}

// GraphSettings are the route form defaults
type GraphSettings struct {
	DistanceDelta     string `json:"distance_delta" mapstructure:"distance_delta"`
	WeightFuncDegree  string `json:"weight_func_degree" mapstructure:"weight_func_degree"`
	AngleOfVision     string `json:"angle_of_vision" mapstructure:"angle_of_vision"`
	WeightTimeGraph   string `json:"weight_time_graph" mapstructure:"weight_time_graph"`
	WeightCourseGraph string `json:"weight_course_graph" mapstructure:"weight_course_graph"`
	SearchAlgorithm   string `json:"search_algorithm" mapstructure:"search_algorithm"`
	PointsInside      bool   `json:"points_inside" mapstructure:"points_inside"`
}

// Params builds the request parameters; coordinates come from the picker
func (g GraphSettings) Params(start, end, datasetID string) gateway.GraphParams {
	return gateway.GraphParams{
		DistanceDelta:     g.DistanceDelta,
		WeightFuncDegree:  g.WeightFuncDegree,
		AngleOfVision:     g.AngleOfVision,
		WeightTimeGraph:   g.WeightTimeGraph,
		WeightCourseGraph: g.WeightCourseGraph,
		SearchAlgorithm:   g.SearchAlgorithm,
		StartCoords:       start,
		EndCoords:         end,
		PointsInside:      g.PointsInside,
		DatasetID:         datasetID,
	}
}

// MapSettings describes the background raster
type MapSettings struct {
	BackgroundURL     string    `json:"background_url" mapstructure:"background_url"`
	BackgroundOpacity float64   `json:"background_opacity" mapstructure:"background_opacity"`
	GeographicExtent  []float64 `json:"geographic_extent" mapstructure:"geographic_extent"`
}

// Extent returns the configured geographic extent
func (m MapSettings) Extent() (geo.Extent, error) {
	return geo.ExtentFromSlice(m.GeographicExtent)
}

// ExportSettings contains export options
type ExportSettings struct {
	Directory string `json:"directory" mapstructure:"directory"`
}

// LoggingSettings controls the log file; the TUI owns the terminal
type LoggingSettings struct {
	File  string `json:"file" mapstructure:"file"`
	Level string `json:"level" mapstructure:"level"`
}

// MetricsSettings enables the Prometheus endpoint when ListenAddr is set
type MetricsSettings struct {
	ListenAddr string `json:"listen_addr" mapstructure:"listen_addr"`
}

// Config is the main configuration container
type Config struct {
	Connection ConnectionSettings `json:"connection" mapstructure:"connection"`
	Display    DisplaySettings    `json:"display" mapstructure:"display"`
	Clustering ClusteringSettings `json:"clustering" mapstructure:"clustering"`
	Graph      GraphSettings      `json:"graph" mapstructure:"graph"`
	Map        MapSettings        `json:"map" mapstructure:"map"`
	Export     ExportSettings     `json:"export" mapstructure:"export"`
	Logging    LoggingSettings    `json:"logging" mapstructure:"logging"`
	Metrics    MetricsSettings    `json:"metrics" mapstructure:"metrics"`
	RecentURLs []string           `json:"recent_urls" mapstructure:"recent_urls"`
}

// DefaultConfig returns a new Config with default values
func DefaultConfig() *Config {
	return &Config{
		Connection: ConnectionSettings{
			BaseURL:    "http://localhost:5000",
			TimeoutSec: int(gateway.DefaultTimeout / time.Second),
		},
		Display: DisplaySettings{
			Theme:      theme.Default,
			ShowLegend: true,
		},
		Clustering: ClusteringSettings{
			WeightDistance: "3.5",
			WeightSpeed:    "1.0",
			WeightCourse:   "4.0",
			Eps:            "0.42",
			MinSamples:     "60",
			MetricDegree:   "2.0",
			HullType:       "concave_hull",
		},
		Graph: GraphSettings{
			DistanceDelta:     "150.0",
			WeightFuncDegree:  "2.0",
			AngleOfVision:     "30.0",
			WeightTimeGraph:   "1.0",
			WeightCourseGraph: "0.1",
			SearchAlgorithm:   "Dijkstra",
			PointsInside:      false,
		},
		Map: MapSettings{
			BackgroundURL:     "/static/images/bg/background.png",
			BackgroundOpacity: 0.2,
			GeographicExtent:  extentSlice(geo.DefaultGeographicExtent),
		},
		Logging: LoggingSettings{
			File:  filepath.Join(ConfigDir, "theway.log"),
			Level: "info",
		},
		RecentURLs: []string{},
	}
}

func extentSlice(e geo.Extent) []float64 {
	a := e.Array()
	return a[:]
}

// setDefaults registers every key so environment overrides apply to all of them
func setDefaults(v *viper.Viper, c *Config) {
	v.SetDefault("connection.base_url", c.Connection.BaseURL)
	v.SetDefault("connection.session_cookie", c.Connection.SessionCookie)
	v.SetDefault("connection.timeout_sec", c.Connection.TimeoutSec)

	v.SetDefault("display.theme", c.Display.Theme)
	v.SetDefault("display.show_legend", c.Display.ShowLegend)
	v.SetDefault("display.map_width", c.Display.MapWidth)
	v.SetDefault("display.map_height", c.Display.MapHeight)

	v.SetDefault("clustering.weight_distance", c.Clustering.WeightDistance)
	v.SetDefault("clustering.weight_speed", c.Clustering.WeightSpeed)
	v.SetDefault("clustering.weight_course", c.Clustering.WeightCourse)
	v.SetDefault("clustering.eps", c.Clustering.Eps)
	v.SetDefault("clustering.min_samples", c.Clustering.MinSamples)
	v.SetDefault("clustering.metric_degree", c.Clustering.MetricDegree)
	v.SetDefault("clustering.hull_type", c.Clustering.HullType)

	v.SetDefault("graph.distance_delta", c.Graph.DistanceDelta)
	v.SetDefault("graph.weight_func_degree", c.Graph.WeightFuncDegree)
	v.SetDefault("graph.angle_of_vision", c.Graph.AngleOfVision)
	v.SetDefault("graph.weight_time_graph", c.Graph.WeightTimeGraph)
	v.SetDefault("graph.weight_course_graph", c.Graph.WeightCourseGraph)
	v.SetDefault("graph.search_algorithm", c.Graph.SearchAlgorithm)
	v.SetDefault("graph.points_inside", c.Graph.PointsInside)

	v.SetDefault("map.background_url", c.Map.BackgroundURL)
	v.SetDefault("map.background_opacity", c.Map.BackgroundOpacity)
	v.SetDefault("map.geographic_extent", c.Map.GeographicExtent)

	v.SetDefault("export.directory", c.Export.Directory)
	v.SetDefault("logging.file", c.Logging.File)
	v.SetDefault("logging.level", c.Logging.Level)
	v.SetDefault("metrics.listen_addr", c.Metrics.ListenAddr)
	v.SetDefault("recent_urls", c.RecentURLs)
}

// EnsureConfigDir creates the config directory if it doesn't exist
func EnsureConfigDir() error {
	return os.MkdirAll(ConfigDir, 0755)
}

// Load loads configuration from the settings file and environment
func Load() (*Config, error) {
	return LoadFrom(ConfigFile)
}

// LoadFrom loads configuration from path. A missing file yields defaults.
// The returned config is always usable; on a parse or validation error it
// is returned together with the error.
func LoadFrom(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v, DefaultConfig())

	v.SetConfigFile(path)
	v.SetConfigType("json")
	var readErr error
	if err := v.ReadInConfig(); err != nil && !isNotExist(err) {
		readErr = fmt.Errorf("read config %s: %w", path, err)
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if readErr != nil {
		return DefaultConfig(), readErr
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return DefaultConfig(), fmt.Errorf("unmarshal config: %w", err)
	}
	if cfg.RecentURLs == nil {
		cfg.RecentURLs = []string{}
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func isNotExist(err error) bool {
	var notFound viper.ConfigFileNotFoundError
	return errors.As(err, &notFound) || errors.Is(err, os.ErrNotExist)
}

// Save saves configuration to the settings file
func Save(config *Config) error {
	if err := EnsureConfigDir(); err != nil {
		return err
	}
	return SaveTo(config, ConfigFile)
}

// SaveTo writes configuration as indented JSON
func SaveTo(config *Config, path string) error {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}

	data, err := json.MarshalIndent(config, "", "  ")
	if err != nil {
		return err
	}

	// the file may hold a session cookie
	return os.WriteFile(path, data, 0600)
}

// GetConfigPath returns the config file path
func GetConfigPath() string {
	return ConfigFile
}

// AddRecentURL moves u to the front of the recent list
func (c *Config) AddRecentURL(u string) {
	u = strings.TrimRight(strings.TrimSpace(u), "/")
	if u == "" {
		return
	}
	list := []string{u}
	for _, existing := range c.RecentURLs {
		if existing != u && len(list) < MaxRecentURLs {
			list = append(list, existing)
		}
	}
	c.RecentURLs = list
}

var (
	// HullTypes are the hull shapes the backend can draw around clusters
	HullTypes = []string{"convex_hull", "concave_hull"}

	// SearchAlgorithms are the route search algorithms the backend offers
	SearchAlgorithms = []string{"Dijkstra", "A*"}
)

// Validate checks that configuration values are present and sane.
// All problems are reported together.
func (c *Config) Validate() error {
	var errs []string

	if u, err := url.Parse(c.Connection.BaseURL); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		errs = append(errs, fmt.Sprintf("connection.base_url must be an http(s) URL, got %q", c.Connection.BaseURL))
	}
	if c.Connection.TimeoutSec <= 0 {
		errs = append(errs, "connection.timeout_sec must be positive")
	}

	if !theme.Exists(c.Display.Theme) {
		errs = append(errs, fmt.Sprintf("display.theme %q is not one of %s", c.Display.Theme, strings.Join(theme.List(), ", ")))
	}
	if c.Display.MapWidth < 0 || c.Display.MapHeight < 0 {
		errs = append(errs, "display.map_width and display.map_height must not be negative")
	}

	if h := c.Clustering.HullType; h != "" && !contains(HullTypes, h) {
		errs = append(errs, fmt.Sprintf("clustering.hull_type must be one of %s, got %q", strings.Join(HullTypes, ", "), h))
	}
	if a := c.Graph.SearchAlgorithm; a != "" && !contains(SearchAlgorithms, a) {
		errs = append(errs, fmt.Sprintf("graph.search_algorithm must be one of %s, got %q", strings.Join(SearchAlgorithms, ", "), a))
	}

	if _, err := c.Map.Extent(); err != nil {
		errs = append(errs, fmt.Sprintf("map.geographic_extent: %v", err))
	}
	if o := c.Map.BackgroundOpacity; o < 0 || o > 1 {
		errs = append(errs, fmt.Sprintf("map.background_opacity must be within [0, 1], got %g", o))
	}

	if _, err := zapcore.ParseLevel(c.Logging.Level); err != nil {
		errs = append(errs, fmt.Sprintf("logging.level: %v", err))
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
