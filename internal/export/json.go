// Package export writes analysis results and screen captures to files
package export

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/theway/theway-go/internal/geo"
	"github.com/theway/theway-go/internal/session"
)

// ExportVersion is bumped when the JSON layout changes
const ExportVersion = "1.0"

// Operation names the analysis a legend came from
type Operation string

const (
	Clustering Operation = "clustering"
	Graph      Operation = "graph"
)

// Meta describes the run a legend belongs to
type Meta struct {
	Operation Operation
	DatasetID string
	Extent    geo.Extent
	Start     string
	End       string
	Timestamp time.Time
}

// LegendExportData is the JSON export structure
type LegendExportData struct {
	Timestamp     string          `json:"timestamp"`
	ExportVersion string          `json:"export_version"`
	Operation     Operation       `json:"operation,omitempty"`
	DatasetID     string          `json:"dataset_id,omitempty"`
	Extent        *[4]float64     `json:"extent,omitempty"`
	Start         string          `json:"start_coords,omitempty"`
	End           string          `json:"end_coords,omitempty"`
	Error         string          `json:"error,omitempty"`
	TotalStats    int             `json:"total_stats"`
	Stats         []session.Entry `json:"stats"`
}

func newLegendExport(l session.Legend, m Meta) LegendExportData {
	data := LegendExportData{
		Timestamp:     timestamp(m.Timestamp),
		ExportVersion: ExportVersion,
		Operation:     m.Operation,
		DatasetID:     m.DatasetID,
		Start:         m.Start,
		End:           m.End,
		Error:         l.Message,
		TotalStats:    len(l.Entries),
		Stats:         make([]session.Entry, 0, len(l.Entries)),
	}
	if m.Extent.IsValid() {
		arr := m.Extent.Array()
		data.Extent = &arr
	}
	data.Stats = append(data.Stats, l.Entries...)
	return data
}

// WriteLegendJSON writes the legend as pretty-printed JSON, keeping stat order
func WriteLegendJSON(w io.Writer, l session.Legend, m Meta) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(newLegendExport(l, m)); err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}
	return nil
}

// ExportLegendJSON writes the legend to a timestamped file in directory
func ExportLegendJSON(l session.Legend, m Meta, directory string) (string, error) {
	filename := GenerateFilename(prefix(m, "legend"), "json", directory)
	if err := ExportLegendJSONToFile(l, m, filename); err != nil {
		return "", err
	}
	return filename, nil
}

// ExportLegendJSONToFile writes the legend to a specific JSON file
func ExportLegendJSONToFile(l session.Legend, m Meta, filename string) error {
	return writeFile(filename, func(w io.Writer) error {
		return WriteLegendJSON(w, l, m)
	})
}

func prefix(m Meta, kind string) string {
	if m.Operation == "" {
		return "theway_" + kind
	}
	return "theway_" + string(m.Operation) + "_" + kind
}

func timestamp(t time.Time) string {
	if t.IsZero() {
		t = time.Now()
	}
	return t.Format(time.RFC3339)
}

// writeFile creates parent directories, then streams into filename
func writeFile(filename string, fill func(io.Writer) error) error {
	if dir := filepath.Dir(filename); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}

	file, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	if err := fill(file); err != nil {
		file.Close()
		return err
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}
	return nil
}
