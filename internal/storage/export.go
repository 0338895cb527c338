package storage

import (
	"encoding/json"
	"io"
	"os"

	"github.com/san-kum/pmgrav/internal/sim"
)

type ExportData struct {
	Run         *RunMetadata      `json:"run"`
	Diagnostics []sim.Diagnostics `json:"diagnostics"`
}

// Export loads a run and its diagnostics for JSON export.
func (s *Store) Export(runID string) (*ExportData, error) {
	meta, err := s.Load(runID)
	if err != nil {
		return nil, err
	}
	diags, err := s.LoadDiagnostics(runID)
	if err != nil {
		return nil, err
	}
	return &ExportData{Run: meta, Diagnostics: diags}, nil
}

func ExportJSON(path string, data *ExportData) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()
	return WriteJSON(file, data)
}

func WriteJSON(w io.Writer, data *ExportData) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(data)
}
