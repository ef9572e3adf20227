package storage

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/san-kum/helmholtz/internal/config"
	"github.com/san-kum/helmholtz/internal/dynamo"
	"github.com/san-kum/helmholtz/internal/sim"
)

const (
	metadataFile = "metadata.json"
	configFile   = "config.yaml"
	statesFile   = "states.csv"
)

// Store keeps rollouts on disk, one directory per run.
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
	ID          string           `json:"id"`
	Name        string           `json:"name"`
	Model       string           `json:"model"`
	Reference   string           `json:"reference,omitempty"`
	Timestamp   time.Time        `json:"timestamp"`
	Seed        uint64           `json:"seed"`
	Dt          float64          `json:"dt"`
	Duration    float64          `json:"duration"`
	Integrator  string           `json:"integrator"`
	Steps       int              `json:"steps"`
	EnergyDrift Float            `json:"energy_drift"`
	Metrics     map[string]Float `json:"metrics"`
}

// Float is a metric value. Diverged rollouts report NaN or infinite
// metrics, which are stored as the strings "NaN", "+Inf" and "-Inf".
type Float float64

func (f Float) MarshalJSON() ([]byte, error) {
	v := float64(f)
	switch {
	case math.IsNaN(v):
		return []byte(`"NaN"`), nil
	case math.IsInf(v, 1):
		return []byte(`"+Inf"`), nil
	case math.IsInf(v, -1):
		return []byte(`"-Inf"`), nil
	}
	return json.Marshal(v)
}

func (f *Float) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return fmt.Errorf("storage: metric %q: %w", s, err)
		}
		*f = Float(v)
		return nil
	}
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*f = Float(v)
	return nil
}

func newMetadata(id, name string, cfg *config.Config, result *sim.Result) RunMetadata {
	metrics := make(map[string]Float, len(result.Metrics))
	for k, v := range result.Metrics {
		metrics[k] = Float(v)
	}
	return RunMetadata{
		ID:          id,
		Name:        name,
		Model:       cfg.Model,
		Reference:   cfg.Reference,
		Timestamp:   time.Now(),
		Seed:        cfg.Seed,
		Dt:          cfg.Rollout.Dt,
		Duration:    cfg.Rollout.Duration,
		Integrator:  cfg.Rollout.Integrator,
		Steps:       result.StepsTaken,
		EnergyDrift: Float(result.EnergyDrift),
		Metrics:     metrics,
	}
}

// Save writes the metadata, the config the run was built from and the
// trajectory. name distinguishes runs of one config, e.g. "learned" and
// "reference". A failed save leaves no run directory behind.
func (s *Store) Save(name string, cfg *config.Config, result *sim.Result) (id string, err error) {
	runID := fmt.Sprintf("%s_%s_%d", cfg.Model, name, time.Now().UnixNano())
	runDir := filepath.Join(s.baseDir, runID)

	if err := os.MkdirAll(runDir, 0755); err != nil {
		return "", err
	}
	defer func() {
		if err != nil {
			_ = os.RemoveAll(runDir)
		}
	}()

	err = createFile(filepath.Join(runDir, metadataFile), func(w io.Writer) error {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(newMetadata(runID, name, cfg, result))
	})
	if err != nil {
		return "", fmt.Errorf("write metadata: %w", err)
	}

	if err := config.Save(filepath.Join(runDir, configFile), cfg); err != nil {
		return "", fmt.Errorf("write config: %w", err)
	}

	err = createFile(filepath.Join(runDir, statesFile), func(w io.Writer) error {
		return writeStates(w, result)
	})
	if err != nil {
		return "", fmt.Errorf("write states: %w", err)
	}
	return runID, nil
}

// createFile writes path through fill. The close error counts, since it
// may be the first sign of a short write.
func createFile(path string, fill func(io.Writer) error) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	return fill(f)
}

func writeStates(out io.Writer, result *sim.Result) error {
	if len(result.Times) != len(result.States) {
		return fmt.Errorf("%w: %d times for %d states", dynamo.ErrDimensionMismatch, len(result.Times), len(result.States))
	}
	w := csv.NewWriter(out)

	if len(result.States) == 0 {
		w.Flush()
		return w.Error()
	}

	header := []string{"time"}
	for i := range result.States[0] {
		header = append(header, fmt.Sprintf("x%d", i))
	}
	if err := w.Write(header); err != nil {
		return err
	}

	for i := range result.States {
		row := []string{strconv.FormatFloat(result.Times[i], 'g', -1, 64)}
		for _, val := range result.States[i] {
			row = append(row, strconv.FormatFloat(val, 'g', -1, 64))
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}

	w.Flush()
	return w.Error()
}

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

	return runs, nil
}

func (s *Store) Load(runID string) (*RunMetadata, error) {
	data, err := os.ReadFile(filepath.Join(s.baseDir, runID, metadataFile))
	if err != nil {
		return nil, err
	}

	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, err
	}

	return &meta, nil
}

// LoadConfig returns the configuration a run was built from.
func (s *Store) LoadConfig(runID string) (*config.Config, error) {
	return s.LoadConfigWith(runID, config.Builtins)
}

// LoadConfigWith is LoadConfig for runs whose config names integrators or
// references known only to r.
func (s *Store) LoadConfigWith(runID string, r config.Resolver) (*config.Config, error) {
	return config.LoadWith(filepath.Join(s.baseDir, runID, configFile), r)
}

func (s *Store) LoadStates(runID string) ([][]float64, []float64, error) {
	file, err := os.Open(filepath.Join(s.baseDir, runID, statesFile))
	if err != nil {
		return nil, nil, err
	}
	defer file.Close()

	r := csv.NewReader(file)
	r.FieldsPerRecord = -1

	records, err := r.ReadAll()
	if err != nil {
		return nil, nil, err
	}

	if len(records) < 2 {
		return [][]float64{}, []float64{}, nil
	}

	times := make([]float64, 0, len(records)-1)
	states := make([][]float64, 0, len(records)-1)

	for i := 1; i < len(records); i++ {
		record := records[i]
		if len(record) == 0 {
			continue
		}

		t, err := strconv.ParseFloat(record[0], 64)
		if err != nil {
			return nil, nil, fmt.Errorf("row %d: %w", i, err)
		}
		times = append(times, t)

		state := make([]float64, 0, len(record)-1)
		for j := 1; j < len(record); j++ {
			val, err := strconv.ParseFloat(record[j], 64)
			if err != nil {
				return nil, nil, fmt.Errorf("row %d column %d: %w", i, j, err)
			}
			state = append(state, val)
		}
		states = append(states, state)
	}

	return states, times, nil
}
