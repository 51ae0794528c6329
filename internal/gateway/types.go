package gateway

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/theway/theway-go/internal/geo"
)

// ClusteringParams is the body of /post_clustering_parameters. All values
// are sent as strings, the way the web form submits them.
type ClusteringParams struct {
	WeightDistance string `json:"weight_distance"`
	WeightSpeed    string `json:"weight_speed"`
	WeightCourse   string `json:"weight_course"`
	Eps            string `json:"eps"`
	MinSamples     string `json:"min_samples"`
	MetricDegree   string `json:"metric_degree"`
	HullType       string `json:"hull_type"`
	DatasetID      string `json:"dataset_id"`
}

// Missing returns the JSON names of empty parameter fields, dataset excluded
func (p ClusteringParams) Missing() []string {
	return missing(
		"weight_distance", p.WeightDistance,
		"weight_speed", p.WeightSpeed,
		"weight_course", p.WeightCourse,
		"eps", p.Eps,
		"min_samples", p.MinSamples,
		"metric_degree", p.MetricDegree,
		"hull_type", p.HullType,
	)
}

// GraphParams is the body of /post_graphs_parameters
type GraphParams struct {
	DistanceDelta     string `json:"distance_delta"`
	WeightFuncDegree  string `json:"weight_func_degree"`
	AngleOfVision     string `json:"angle_of_vision"`
	WeightTimeGraph   string `json:"weight_time_graph"`
	WeightCourseGraph string `json:"weight_course_graph"`
	SearchAlgorithm   string `json:"search_algorithm"`
	StartCoords       string `json:"start_coords"`
	EndCoords         string `json:"end_coords"`
	PointsInside      bool   `json:"points_inside"`
	DatasetID         string `json:"dataset_id"`
}

// Missing returns the JSON names of empty parameter fields, dataset excluded
func (p GraphParams) Missing() []string {
	return missing(
		"distance_delta", p.DistanceDelta,
		"weight_func_degree", p.WeightFuncDegree,
		"angle_of_vision", p.AngleOfVision,
		"weight_time_graph", p.WeightTimeGraph,
		"weight_course_graph", p.WeightCourseGraph,
		"search_algorithm", p.SearchAlgorithm,
		"start_coords", p.StartCoords,
		"end_coords", p.EndCoords,
	)
}

func missing(pairs ...string) []string {
	var result []string
	for i := 0; i+1 < len(pairs); i += 2 {
		if strings.TrimSpace(pairs[i+1]) == "" {
			result = append(result, pairs[i])
		}
	}
	return result
}

// StatEntry is one key/value line of backend statistics
type StatEntry struct {
	Key   string
	Value string
}

// Stats is the backend's statistics object, in the order the backend sent it
type Stats []StatEntry

// ErrorKey marks a failed computation inside a stats object
const ErrorKey = "Error"

// Get returns the value for key
func (s Stats) Get(key string) (string, bool) {
	for _, e := range s {
		if e.Key == key {
			return e.Value, true
		}
	}
	return "", false
}

// UnmarshalJSON decodes a JSON object keeping key order. String values are
// unquoted; any other value keeps its compact JSON text.
func (s *Stats) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if tok == nil {
		*s = nil
		return nil
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("stats: expected object, got %v", tok)
	}

	var result Stats
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := tok.(string)
		if !ok {
			return fmt.Errorf("stats: expected key, got %v", tok)
		}
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return fmt.Errorf("stats: value for %q: %w", key, err)
		}
		result = append(result, StatEntry{Key: key, Value: statValue(raw)})
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	*s = result
	return nil
}

// MarshalJSON encodes the stats as an object in their original order
func (s Stats) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, e := range s {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(e.Key)
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')
		if json.Valid([]byte(e.Value)) && !isJSONString(e.Value) {
			buf.WriteString(e.Value)
		} else {
			v, err := json.Marshal(e.Value)
			if err != nil {
				return nil, err
			}
			buf.Write(v)
		}
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func isJSONString(s string) bool {
	return len(s) > 0 && s[0] == '"'
}

func statValue(raw json.RawMessage) string {
	if len(raw) > 0 && raw[0] == '"' {
		var str string
		if err := json.Unmarshal(raw, &str); err == nil {
			return str
		}
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return string(raw)
	}
	return buf.String()
}

// ClusteringResult is the decoded /post_clustering_parameters response:
// [[clustersURL, polygonsURL], stats, [minX, minY, maxX, maxY]]
type ClusteringResult struct {
	ClustersURL string
	PolygonsURL string
	Stats       Stats
	Extent      geo.Extent
}

func (r *ClusteringResult) UnmarshalJSON(data []byte) error {
	var tuple []json.RawMessage
	if err := json.Unmarshal(data, &tuple); err != nil {
		return fmt.Errorf("clustering response: %w", err)
	}
	if len(tuple) != 3 {
		return fmt.Errorf("clustering response: expected 3 elements, got %d", len(tuple))
	}

	var urls []string
	if err := json.Unmarshal(tuple[0], &urls); err != nil {
		return fmt.Errorf("clustering response: image urls: %w", err)
	}
	if len(urls) != 2 {
		return fmt.Errorf("clustering response: expected 2 image urls, got %d", len(urls))
	}

	var stats Stats
	if err := json.Unmarshal(tuple[1], &stats); err != nil {
		return fmt.Errorf("clustering response: %w", err)
	}

	ext, err := decodeExtent(tuple[2])
	if err != nil {
		return fmt.Errorf("clustering response: %w", err)
	}

	*r = ClusteringResult{ClustersURL: urls[0], PolygonsURL: urls[1], Stats: stats, Extent: ext}
	return nil
}

// GraphResult is the decoded /post_graphs_parameters response:
// [routeURL, stats, [minX, minY, maxX, maxY], debug]
type GraphResult struct {
	RouteURL string
	Stats    Stats
	Extent   geo.Extent
	Debug    json.RawMessage
}

// Failed returns the backend's error message when the stats carry one
func (r *GraphResult) Failed() (string, bool) {
	return r.Stats.Get(ErrorKey)
}

func (r *GraphResult) UnmarshalJSON(data []byte) error {
	var tuple []json.RawMessage
	if err := json.Unmarshal(data, &tuple); err != nil {
		return fmt.Errorf("graph response: %w", err)
	}
	if len(tuple) < 3 || len(tuple) > 4 {
		return fmt.Errorf("graph response: expected 4 elements, got %d", len(tuple))
	}

	var route string
	if err := json.Unmarshal(tuple[0], &route); err != nil {
		return fmt.Errorf("graph response: route url: %w", err)
	}

	var stats Stats
	if err := json.Unmarshal(tuple[1], &stats); err != nil {
		return fmt.Errorf("graph response: %w", err)
	}

	ext, err := decodeExtent(tuple[2])
	if err != nil {
		return fmt.Errorf("graph response: %w", err)
	}

	result := GraphResult{RouteURL: route, Stats: stats, Extent: ext}
	if len(tuple) == 4 {
		result.Debug = append(json.RawMessage(nil), tuple[3]...)
	}
	*r = result
	return nil
}

func decodeExtent(raw json.RawMessage) (geo.Extent, error) {
	var values []float64
	if err := json.Unmarshal(raw, &values); err != nil {
		return geo.Extent{}, fmt.Errorf("extent: %w", err)
	}
	return geo.ExtentFromSlice(values)
}

// Dataset is a backend-held collection of vessel tracks
type Dataset struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// IDString returns the id formatted for form fields
func (d Dataset) IDString() string {
	return strconv.Itoa(d.ID)
}

// DatasetList is the /get_datasets response
type DatasetList struct {
	All  []Dataset `json:"all"`
	Mine []Dataset `json:"mine"`
}

// Owns reports whether id is in the user's own datasets
func (l DatasetList) Owns(id int) bool {
	for _, d := range l.Mine {
		if d.ID == id {
			return true
		}
	}
	return false
}

// ActionResult is the {success, message} reply of the dataset endpoints
type ActionResult struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// DefaultMaxGapMinutes is used when interpolation is on and no gap is set
const DefaultMaxGapMinutes = 30

// Upload validation messages
const (
	MsgDatasetNameRequired = "Поле \"Название датасета\" обязательно для заполнения!"
	MsgBothFilesRequired   = "Пожалуйста, выберите оба файла!"
)

// UploadRequest describes a new dataset built from two CSV files
type UploadRequest struct {
	Name          string
	PositionsFile string
	MarineFile    string
	Interpolation bool
	MaxGapMinutes int
}

// Validate checks the request before anything is sent
func (u UploadRequest) Validate() error {
	if strings.TrimSpace(u.Name) == "" {
		return &ValidationError{Missing: []string{"dataset-name"}, Message: MsgDatasetNameRequired}
	}
	var files []string
	if u.PositionsFile == "" {
		files = append(files, "file-positions")
	}
	if u.MarineFile == "" {
		files = append(files, "file-marine")
	}
	if len(files) > 0 {
		return &ValidationError{Missing: files, Message: MsgBothFilesRequired}
	}
	return nil
}

// maxGapField is the max_gap_minutes form value: empty without interpolation
func (u UploadRequest) maxGapField() string {
	if !u.Interpolation {
		return ""
	}
	if u.MaxGapMinutes <= 0 {
		return strconv.Itoa(DefaultMaxGapMinutes)
	}
	return strconv.Itoa(u.MaxGapMinutes)
}
