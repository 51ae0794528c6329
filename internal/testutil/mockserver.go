// Package testutil provides a fake theway backend and helpers for tests
package testutil

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"
)

// Backend endpoints
const (
	PathClustering = "/post_clustering_parameters"
	PathGraph      = "/post_graphs_parameters"
	PathDatasets   = "/get_datasets"
	PathChoose     = "/choose_dataset"
	PathUpload     = "/upload_dataset"
	PathDelete     = "/delete_dataset"
	PathImages     = "/static/images/"

	BackgroundPath = "/static/images/bg/background.png"
)

// Dataset is a dataset as listed by the backend
type Dataset struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// RecordedRequest is a request the fake backend received
type RecordedRequest struct {
	Method      string
	Path        string
	ContentType string
	Header      http.Header
	Body        []byte
	Form        url.Values
	Files       map[string]string
	Timestamp   time.Time
}

// JSON decodes the recorded body into v
func (r RecordedRequest) JSON(v interface{}) error {
	return json.Unmarshal(r.Body, v)
}

type failure struct {
	status int
	body   string
}

// MockServer is an in-process fake of the clustering/route backend
type MockServer struct {
	server *httptest.Server

	mu            sync.RWMutex
	clusteringRaw string
	graphRaw      string
	images        map[string][]byte
	all           []Dataset
	mine          []Dataset
	nextID        int
	failures      map[string]failure
	delays        map[string]time.Duration
	requests      []RecordedRequest
	cookie        string
}

// NewMockServer starts a fake backend with a ready clustering/graph scenario:
// an 80x60 background, 40x30 cluster, polygon and route rasters, and two datasets.
func NewMockServer() *MockServer {
	s := &MockServer{
		images:   make(map[string][]byte),
		failures: make(map[string]failure),
		delays:   make(map[string]time.Duration),
		all:      []Dataset{{ID: 1, Name: "Залив Петра Великого"}, {ID: 2, Name: "Сангарский пролив"}},
		mine:     []Dataset{{ID: 2, Name: "Сангарский пролив"}},
		nextID:   3,
	}

	s.AddImage(BackgroundPath, SolidPNG(80, 60, ColorBackground))
	s.AddImage("/static/images/clusters/c.png", SolidPNG(40, 30, ColorClusters))
	s.AddImage("/static/images/clusters/p.png", SolidPNG(40, 30, ColorPolygons))
	s.AddImage("/static/images/graphs/route.png", SolidPNG(40, 30, ColorRoute))

	s.clusteringRaw = ClusteringReply("/static/images/clusters/c.png", "/static/images/clusters/p.png",
		`{"Всего кластеров": 5, "Шумовых точек": 120}`, [4]float64{0, 0, 100, 100})
	s.graphRaw = GraphReply("/static/images/graphs/route.png",
		`{"Длина маршрута, км": 42.5, "Вершин в графе": 340}`, [4]float64{0, 0, 100, 100})

	mux := http.NewServeMux()
	mux.HandleFunc(PathClustering, s.handleClustering)
	mux.HandleFunc(PathGraph, s.handleGraph)
	mux.HandleFunc(PathDatasets, s.handleDatasets)
	mux.HandleFunc(PathChoose, s.handleChoose)
	mux.HandleFunc(PathUpload, s.handleUpload)
	mux.HandleFunc(PathDelete, s.handleDelete)
	mux.HandleFunc(PathImages, s.handleImage)

	s.server = httptest.NewServer(mux)
	return s
}

// Close stops the server
func (s *MockServer) Close() {
	s.server.Close()
}

// BaseURL returns the server's base URL
func (s *MockServer) BaseURL() string {
	return s.server.URL
}

// Client returns an HTTP client for the server
func (s *MockServer) Client() *http.Client {
	return s.server.Client()
}

// ClusteringReply builds a clustering response body:
// [[clustersURL, polygonsURL], stats, [minX, minY, maxX, maxY]]
func ClusteringReply(clustersURL, polygonsURL, statsJSON string, extent [4]float64) string {
	return fmt.Sprintf(`[[%q, %q], %s, %s]`, clustersURL, polygonsURL, statsJSON, extentJSON(extent))
}

// GraphReply builds a graph response body:
// [routeURL, stats, [minX, minY, maxX, maxY], debug]
func GraphReply(routeURL, statsJSON string, extent [4]float64) string {
	return fmt.Sprintf(`[%q, %s, %s, {"nodes": 340, "edges": 1200}]`, routeURL, statsJSON, extentJSON(extent))
}

func extentJSON(e [4]float64) string {
	parts := make([]string, 4)
	for i, v := range e {
		parts[i] = strconv.FormatFloat(v, 'f', -1, 64)
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

// SetClusteringResponse sets the raw JSON returned by the clustering endpoint
func (s *MockServer) SetClusteringResponse(raw string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clusteringRaw = raw
}

// SetGraphResponse sets the raw JSON returned by the graph endpoint
func (s *MockServer) SetGraphResponse(raw string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.graphRaw = raw
}

// AddImage serves data at path
func (s *MockServer) AddImage(path string, data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.images[path] = data
}

// SetDatasets replaces the dataset lists
func (s *MockServer) SetDatasets(all, mine []Dataset) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.all = all
	s.mine = mine
}

// Fail makes path answer with status and body until Recover is called
func (s *MockServer) Fail(path string, status int, body string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[path] = failure{status: status, body: body}
}

// Recover clears an injected failure
func (s *MockServer) Recover(path string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.failures, path)
}

// SetDelay delays every response on path
func (s *MockServer) SetDelay(path string, d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.delays[path] = d
}

// RequireCookie makes every endpoint demand the given Cookie header value
func (s *MockServer) RequireCookie(cookie string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cookie = cookie
}

// Requests returns the recorded requests for path
func (s *MockServer) Requests(path string) []RecordedRequest {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var result []RecordedRequest
	for _, r := range s.requests {
		if r.Path == path {
			result = append(result, r)
		}
	}
	return result
}

// RequestCount returns how many requests hit path
func (s *MockServer) RequestCount(path string) int {
	return len(s.Requests(path))
}

// Reset clears recorded requests, failures and delays
func (s *MockServer) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests = nil
	s.failures = make(map[string]failure)
	s.delays = make(map[string]time.Duration)
}

// intercept records the request and applies injected delay, auth and failure.
// It returns false when the response has already been written.
func (s *MockServer) intercept(w http.ResponseWriter, r *http.Request, rec RecordedRequest) bool {
	s.mu.Lock()
	rec.Method = r.Method
	rec.Path = r.URL.Path
	rec.ContentType = r.Header.Get("Content-Type")
	rec.Header = r.Header.Clone()
	rec.Timestamp = time.Now()
	s.requests = append(s.requests, rec)
	delay := s.delays[r.URL.Path]
	fail, failing := s.failures[r.URL.Path]
	cookie := s.cookie
	s.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-r.Context().Done():
			return false
		}
	}

	if cookie != "" && r.Header.Get("Cookie") != cookie {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return false
	}

	if failing {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(fail.status)
		_, _ = io.WriteString(w, fail.body)
		return false
	}
	return true
}

func (s *MockServer) handleClustering(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	if !s.intercept(w, r, RecordedRequest{Body: body}) {
		return
	}
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	s.mu.RLock()
	raw := s.clusteringRaw
	s.mu.RUnlock()
	writeRaw(w, raw)
}

func (s *MockServer) handleGraph(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	if !s.intercept(w, r, RecordedRequest{Body: body}) {
		return
	}
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	s.mu.RLock()
	raw := s.graphRaw
	s.mu.RUnlock()
	writeRaw(w, raw)
}

func (s *MockServer) handleDatasets(w http.ResponseWriter, r *http.Request) {
	if !s.intercept(w, r, RecordedRequest{}) {
		return
	}
	s.mu.RLock()
	resp := map[string][]Dataset{"all": s.all, "mine": s.mine}
	s.mu.RUnlock()
	if resp["all"] == nil {
		resp["all"] = []Dataset{}
	}
	if resp["mine"] == nil {
		resp["mine"] = []Dataset{}
	}
	writeJSON(w, resp)
}

func (s *MockServer) handleChoose(w http.ResponseWriter, r *http.Request) {
	_ = r.ParseForm()
	if !s.intercept(w, r, RecordedRequest{Form: r.PostForm}) {
		return
	}
	id := r.PostForm.Get("dataset_id")
	if id == "" {
		writeAction(w, false, "Датасет не выбран!")
		return
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, ds := range s.all {
		if strconv.Itoa(ds.ID) == id {
			writeAction(w, true, "Выбран датасет: "+ds.Name)
			return
		}
	}
	writeAction(w, false, "Датасет с таким id не найден!")
}

func (s *MockServer) handleUpload(w http.ResponseWriter, r *http.Request) {
	files := make(map[string]string)
	var form url.Values
	if err := r.ParseMultipartForm(32 << 20); err == nil {
		form = url.Values(r.MultipartForm.Value)
		for field, headers := range r.MultipartForm.File {
			if len(headers) > 0 {
				files[field] = headers[0].Filename
			}
		}
	}
	if !s.intercept(w, r, RecordedRequest{Form: form, Files: files}) {
		return
	}
	if files["file-positions"] == "" || files["file-marine"] == "" {
		writeAction(w, false, "Не выбраны оба файла!")
		return
	}
	name := form.Get("dataset-name")
	s.mu.Lock()
	for _, ds := range s.all {
		if ds.Name == name {
			s.mu.Unlock()
			writeAction(w, false, "Название датасета не уникально!")
			return
		}
	}
	ds := Dataset{ID: s.nextID, Name: name}
	s.nextID++
	s.all = append(s.all, ds)
	s.mine = append(s.mine, ds)
	s.mu.Unlock()
	writeAction(w, true, "Создан датасет: "+name)
}

func (s *MockServer) handleDelete(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	if !s.intercept(w, r, RecordedRequest{Body: body}) {
		return
	}
	var req struct {
		ID json.RawMessage `json:"id"`
	}
	if err := json.Unmarshal(body, &req); err != nil || len(req.ID) == 0 {
		writeAction(w, false, "Неверный запрос: ID датасета отсутствует.")
		return
	}
	id := strings.Trim(string(req.ID), `"`)

	s.mu.Lock()
	defer s.mu.Unlock()
	for i, ds := range s.mine {
		if strconv.Itoa(ds.ID) == id {
			s.mine = append(s.mine[:i], s.mine[i+1:]...)
			for j, a := range s.all {
				if a.ID == ds.ID {
					s.all = append(s.all[:j], s.all[j+1:]...)
					break
				}
			}
			writeAction(w, true, fmt.Sprintf("Датасет \"%s\" и все связанные данные успешно удалены.", ds.Name))
			return
		}
	}
	for _, ds := range s.all {
		if strconv.Itoa(ds.ID) == id {
			writeAction(w, false, "Отказано в доступе: вы не являетесь владельцем датасета "+ds.Name)
			return
		}
	}
	writeAction(w, false, "Датасет не найден.")
}

func (s *MockServer) handleImage(w http.ResponseWriter, r *http.Request) {
	if !s.intercept(w, r, RecordedRequest{}) {
		return
	}
	s.mu.RLock()
	data, ok := s.images[r.URL.Path]
	s.mu.RUnlock()
	if !ok {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	_, _ = w.Write(data)
}

func writeRaw(w http.ResponseWriter, raw string) {
	w.Header().Set("Content-Type", "application/json")
	_, _ = io.WriteString(w, raw)
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func writeAction(w http.ResponseWriter, success bool, message string) {
	writeJSON(w, map[string]interface{}{"success": success, "message": message})
}
