package storage

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/san-kum/rigidsim/internal/dynamo"
)

var coordNames = [7]string{"x", "y", "z", "qx", "qy", "qz", "qw"}

type ExportData struct {
	RunMetadata
	Times  []float64   `json:"times"`
	States [][]float64 `json:"states"`
}

// Header names the trajectory columns: time, then each body's seven
// coordinates, their rates (suffix _d) and accelerations (suffix _dd).
func Header(bodies []string) []string {
	header := []string{"time"}
	for _, suffix := range []string{"", "_d", "_dd"} {
		for _, b := range bodies {
			for _, c := range coordNames {
				header = append(header, b+"."+c+suffix)
			}
		}
	}
	return header
}

// ExportCSV writes a run's trajectory as CSV with a Header row.
func (s *Store) ExportCSV(runID string, out io.Writer) error {
	meta, rows, err := s.loadRun(runID)
	if err != nil {
		return err
	}

	w := csv.NewWriter(out)
	header := Header(meta.Bodies)
	if err := w.Write(header); err != nil {
		return err
	}
	record := make([]string, len(header))
	for i, row := range rows {
		if len(row) != len(header) {
			return fmt.Errorf("%w: run %s row %d has %d columns, want %d",
				dynamo.ErrInvalidState, runID, i, len(row), len(header))
		}
		for k, v := range row {
			record[k] = strconv.FormatFloat(v, 'g', -1, 64)
		}
		if err := w.Write(record); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

// ExportJSON writes a run's metadata with its time column and state rows.
func (s *Store) ExportJSON(runID string, out io.Writer) error {
	meta, rows, err := s.loadRun(runID)
	if err != nil {
		return err
	}

	data := ExportData{
		RunMetadata: *meta,
		Times:       make([]float64, len(rows)),
		States:      make([][]float64, len(rows)),
	}
	for i, row := range rows {
		if len(row) == 0 {
			continue
		}
		data.Times[i] = row[0]
		data.States[i] = row[1:]
	}

	encoder := json.NewEncoder(out)
	encoder.SetIndent("", "  ")
	return encoder.Encode(data)
}

func (s *Store) loadRun(runID string) (*RunMetadata, []dynamo.State, error) {
	meta, err := s.Load(runID)
	if err != nil {
		return nil, nil, err
	}
	rows, err := s.LoadTrajectory(runID)
	if err != nil {
		return nil, nil, err
	}
	return meta, rows, nil
}
