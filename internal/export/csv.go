package export

import (
	"encoding/csv"
	"fmt"
	"io"

	"github.com/theway/theway-go/internal/session"
)

var legendHeader = []string{"operation", "dataset_id", "key", "value", "timestamp"}

// WriteLegendCSV writes one row per legend entry. An error legend becomes a
// single row keyed "Error".
func WriteLegendCSV(w io.Writer, l session.Legend, m Meta) error {
	writer := csv.NewWriter(w)

	if err := writer.Write(legendHeader); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	ts := timestamp(m.Timestamp)
	entries := l.Entries
	if l.IsError() {
		entries = []session.Entry{{Key: "Error", Value: l.Message}}
	}

	for _, e := range entries {
		row := []string{string(m.Operation), m.DatasetID, e.Key, e.Value, ts}
		if err := writer.Write(row); err != nil {
			return fmt.Errorf("failed to write row: %w", err)
		}
	}

	writer.Flush()
	return writer.Error()
}

// ExportLegendCSV writes the legend to a timestamped CSV file in directory
func ExportLegendCSV(l session.Legend, m Meta, directory string) (string, error) {
	filename := GenerateFilename(prefix(m, "legend"), "csv", directory)
	if err := ExportLegendCSVToFile(l, m, filename); err != nil {
		return "", err
	}
	return filename, nil
}

// ExportLegendCSVToFile writes the legend to a specific CSV file
func ExportLegendCSVToFile(l session.Legend, m Meta, filename string) error {
	return writeFile(filename, func(w io.Writer) error {
		return WriteLegendCSV(w, l, m)
	})
}
