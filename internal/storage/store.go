package storage

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/san-kum/dustdyn/internal/sim"
	"gopkg.in/yaml.v3"
)

const (
	metadataFile   = "metadata.yaml"
	snapshotsFile  = "snapshots.csv"
	finalStateFile = "final_state.csv"
)

type Store struct {
	baseDir string
}

func New(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

func (s *Store) Init() error {
	return os.MkdirAll(s.baseDir, 0755)
}

type RunMetadata struct {
	ID          string             `yaml:"id" json:"id"`
	Planet      string             `yaml:"planet" json:"planet"`
	Preset      string             `yaml:"preset,omitempty" json:"preset,omitempty"`
	Timestamp   time.Time          `yaml:"timestamp" json:"timestamp"`
	Integrator  string             `yaml:"integrator" json:"integrator"`
	Dt          float64            `yaml:"dt" json:"dt"`
	Duration    float64            `yaml:"duration" json:"duration"`
	Grid        [3]int             `yaml:"grid" json:"grid"`
	Steps       int                `yaml:"steps" json:"steps"`
	Retries     int                `yaml:"retries" json:"retries"`
	InitialMass float64            `yaml:"initial_mass" json:"initial_mass"`
	MassDrift   float64            `yaml:"mass_drift" json:"mass_drift"`
	Metrics     map[string]float64 `yaml:"metrics" json:"metrics"`
}

// Save writes a run under a fresh uuid directory and returns its ID. The
// summary fields of meta are filled from result.
func (s *Store) Save(meta RunMetadata, result *sim.Result) (string, error) {
	meta.ID = uuid.NewString()
	if meta.Timestamp.IsZero() {
		meta.Timestamp = time.Now().UTC()
	}
	meta.Grid = [3]int{result.Final.Grid.NX, result.Final.Grid.NY, result.Final.Grid.NZ}
	meta.Steps = result.Steps
	meta.Retries = result.Retries
	meta.InitialMass = result.InitialMass
	meta.MassDrift = result.MassDrift
	meta.Metrics = result.Metrics

	runDir := filepath.Join(s.baseDir, meta.ID)
	if err := os.MkdirAll(runDir, 0755); err != nil {
		return "", err
	}

	data, err := yaml.Marshal(meta)
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(filepath.Join(runDir, metadataFile), data, 0644); err != nil {
		return "", err
	}

	if err := writeCSV(filepath.Join(runDir, snapshotsFile), snapshotRows(result)); err != nil {
		return "", err
	}
	if result.Final.Grid.Valid() {
		if err := writeCSV(filepath.Join(runDir, finalStateFile), finalStateRows(result)); err != nil {
			return "", err
		}
	}
	return meta.ID, nil
}

// List returns every readable run, oldest first.
func (s *Store) List() ([]RunMetadata, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []RunMetadata{}, nil
		}
		return nil, err
	}

	runs := make([]RunMetadata, 0)
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		meta, err := s.Load(entry.Name())
		if err != nil {
			continue
		}
		runs = append(runs, *meta)
	}

	sort.Slice(runs, func(i, j int) bool {
		return runs[i].Timestamp.Before(runs[j].Timestamp)
	})
	return runs, nil
}

func (s *Store) Load(runID string) (*RunMetadata, error) {
	if _, err := uuid.Parse(runID); err != nil {
		return nil, fmt.Errorf("invalid run id %q: %w", runID, err)
	}
	data, err := os.ReadFile(filepath.Join(s.baseDir, runID, metadataFile))
	if err != nil {
		return nil, err
	}

	var meta RunMetadata
	if err := yaml.Unmarshal(data, &meta); err != nil {
		return nil, err
	}
	return &meta, nil
}

// Series is the per-snapshot summary of a stored run.
type Series struct {
	Step      []int
	Time      []float64
	Dt        []float64
	TotalMass []float64
	MaxSpeed  []float64
}

func (s Series) Len() int { return len(s.Time) }

// Columns returns the series keyed the way metrics.Compare expects.
func (s Series) Columns() map[string][]float64 {
	return map[string][]float64{
		"concentration": s.TotalMass,
		"max_speed":     s.MaxSpeed,
	}
}

func (s *Store) LoadSeries(runID string) (Series, error) {
	if _, err := uuid.Parse(runID); err != nil {
		return Series{}, fmt.Errorf("invalid run id %q: %w", runID, err)
	}
	file, err := os.Open(filepath.Join(s.baseDir, runID, snapshotsFile))
	if err != nil {
		return Series{}, err
	}
	defer file.Close()

	r := csv.NewReader(file)
	records, err := r.ReadAll()
	if err != nil {
		return Series{}, err
	}

	var out Series
	for i := 1; i < len(records); i++ {
		rec := records[i]
		if len(rec) != len(snapshotHeader) {
			return Series{}, fmt.Errorf("%s line %d: expected %d fields, got %d", snapshotsFile, i+1, len(snapshotHeader), len(rec))
		}
		step, err := strconv.Atoi(rec[0])
		if err != nil {
			return Series{}, fmt.Errorf("%s line %d: %w", snapshotsFile, i+1, err)
		}
		vals := make([]float64, 4)
		for j := range vals {
			vals[j], err = strconv.ParseFloat(rec[j+1], 64)
			if err != nil {
				return Series{}, fmt.Errorf("%s line %d: %w", snapshotsFile, i+1, err)
			}
		}
		out.Step = append(out.Step, step)
		out.Time = append(out.Time, vals[0])
		out.Dt = append(out.Dt, vals[1])
		out.TotalMass = append(out.TotalMass, vals[2])
		out.MaxSpeed = append(out.MaxSpeed, vals[3])
	}
	return out, nil
}

var snapshotHeader = []string{"step", "time", "dt", "total_mass", "max_speed"}

func snapshotRows(result *sim.Result) [][]string {
	rows := [][]string{snapshotHeader}
	for _, snap := range result.Snapshots {
		rows = append(rows, []string{
			strconv.Itoa(snap.Step),
			formatFloat(snap.Time),
			formatFloat(snap.Dt),
			formatFloat(snap.TotalMass),
			formatFloat(snap.MaxSpeed),
		})
	}
	return rows
}

func finalStateRows(result *sim.Result) [][]string {
	s := result.Final
	rows := [][]string{{"i", "j", "k", "u", "v", "w", "pressure", "concentration", "temperature", "humidity"}}
	for idx := 0; idx < s.Grid.Len(); idx++ {
		i, j, k := s.Grid.Coords(idx)
		rows = append(rows, []string{
			strconv.Itoa(i), strconv.Itoa(j), strconv.Itoa(k),
			formatFloat(s.Velocity[0][idx]),
			formatFloat(s.Velocity[1][idx]),
			formatFloat(s.Velocity[2][idx]),
			formatFloat(s.Pressure[idx]),
			formatFloat(s.Concentration[idx]),
			formatFloat(s.Temperature[idx]),
			formatFloat(s.Humidity[idx]),
		})
	}
	return rows
}

func writeCSV(path string, rows [][]string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.WriteAll(rows); err != nil {
		return err
	}
	return f.Close()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
