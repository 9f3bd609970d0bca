package storage

import (
	"encoding/json"
	"io"
)

type ExportData struct {
	Run       RunMetadata `json:"run"`
	Times     []float64   `json:"times"`
	TotalMass []float64   `json:"total_mass"`
	MaxSpeed  []float64   `json:"max_speed"`
}

// ExportJSON writes a stored run's metadata and series as indented JSON.
func (s *Store) ExportJSON(w io.Writer, runID string) error {
	meta, err := s.Load(runID)
	if err != nil {
		return err
	}
	series, err := s.LoadSeries(runID)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(ExportData{
		Run:       *meta,
		Times:     series.Time,
		TotalMass: series.TotalMass,
		MaxSpeed:  series.MaxSpeed,
	})
}
