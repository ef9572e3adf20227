package storage

import (
	"bytes"
	"encoding/json"
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/san-kum/helmholtz/internal/config"
	"github.com/san-kum/helmholtz/internal/dynamo"
	"github.com/san-kum/helmholtz/internal/sim"
)

func testResult() *sim.Result {
	return &sim.Result{
		States: []dynamo.State{
			{1.0, 0.0},
			{0.9999500004166653, -0.009999833334166664},
		},
		Times:       []float64{0.0, 0.01},
		StepsTaken:  1,
		EnergyDrift: 1e-9,
		Metrics: map[string]float64{
			"energy": 0.5,
		},
	}
}

func TestStoreSaveLoad(t *testing.T) {
	tmpDir := t.TempDir()
	st := New(tmpDir)

	if err := st.Init(); err != nil {
		t.Fatalf("init failed: %v", err)
	}

	cfg := config.DefaultConfig()
	cfg.Seed = 42

	runID, err := st.Save("learned", cfg, testResult())
	if err != nil {
		t.Fatalf("save failed: %v", err)
	}

	if runID == "" {
		t.Error("expected non-empty run id")
	}

	meta, err := st.Load(runID)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}

	if meta.Name != "learned" || meta.Model != config.ModelHHD {
		t.Errorf("expected learned hhd run, got %s %s", meta.Name, meta.Model)
	}

	if meta.Seed != 42 {
		t.Errorf("expected seed 42, got %d", meta.Seed)
	}

	if meta.Metrics["energy"] != 0.5 {
		t.Errorf("expected energy 0.5, got %f", meta.Metrics["energy"])
	}

	loadedCfg, err := st.LoadConfig(runID)
	if err != nil {
		t.Fatalf("load config failed: %v", err)
	}
	if loadedCfg.Seed != 42 || loadedCfg.Reference != cfg.Reference {
		t.Errorf("config changed on disk: %+v", loadedCfg)
	}

	states, times, err := st.LoadStates(runID)
	if err != nil {
		t.Fatalf("load states failed: %v", err)
	}

	if len(states) != 2 || len(times) != 2 {
		t.Fatalf("expected 2 states and times, got %d and %d", len(states), len(times))
	}

	want := testResult()
	for i := range want.States {
		for j := range want.States[i] {
			if states[i][j] != want.States[i][j] {
				t.Errorf("state %d[%d]: expected %v, got %v", i, j, want.States[i][j], states[i][j])
			}
		}
	}
}

func TestStoreList(t *testing.T) {
	tmpDir := t.TempDir()
	st := New(tmpDir)

	if err := st.Init(); err != nil {
		t.Fatalf("init failed: %v", err)
	}

	runs, err := st.List()
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}

	if len(runs) != 0 {
		t.Errorf("expected 0 runs, got %d", len(runs))
	}

	cfg := config.DefaultConfig()
	for _, name := range []string{"learned", "reference"} {
		if _, err := st.Save(name, cfg, testResult()); err != nil {
			t.Fatalf("save failed: %v", err)
		}
	}

	runs, err = st.List()
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}

	if len(runs) != 2 {
		t.Errorf("expected 2 runs, got %d", len(runs))
	}
}

func TestStoreListMissingDir(t *testing.T) {
	st := New(filepath.Join(t.TempDir(), "missing"))

	runs, err := st.List()
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(runs) != 0 {
		t.Errorf("expected 0 runs, got %d", len(runs))
	}
}

func TestStoreFileStructure(t *testing.T) {
	tmpDir := t.TempDir()
	st := New(tmpDir)

	if err := st.Init(); err != nil {
		t.Fatalf("init failed: %v", err)
	}

	runID, err := st.Save("learned", config.DefaultConfig(), testResult())
	if err != nil {
		t.Fatalf("save failed: %v", err)
	}

	runDir := filepath.Join(tmpDir, runID)
	for _, name := range []string{metadataFile, configFile, statesFile} {
		if _, err := os.Stat(filepath.Join(runDir, name)); os.IsNotExist(err) {
			t.Errorf("%s not created", name)
		}
	}
}

func TestExportJSON(t *testing.T) {
	var buf bytes.Buffer
	if err := ExportJSON(&buf, "reference", config.DefaultConfig(), testResult()); err != nil {
		t.Fatalf("export failed: %v", err)
	}

	var data ExportData
	if err := json.Unmarshal(buf.Bytes(), &data); err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if data.Name != "reference" || data.Steps != 1 {
		t.Errorf("unexpected metadata: %+v", data.RunMetadata)
	}
	if len(data.States) != 2 || float64(data.States[1][1]) != -0.009999833334166664 {
		t.Errorf("unexpected states: %v", data.States)
	}
}

func TestStoreNonFiniteMetrics(t *testing.T) {
	st := New(t.TempDir())
	if err := st.Init(); err != nil {
		t.Fatalf("init failed: %v", err)
	}

	result := testResult()
	result.EnergyDrift = math.Inf(1)
	result.Metrics = map[string]float64{
		"energy":    math.NaN(),
		"stability": math.Inf(-1),
	}

	runID, err := st.Save("diverged", config.DefaultConfig(), result)
	if err != nil {
		t.Fatalf("save failed: %v", err)
	}
	meta, err := st.Load(runID)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if !math.IsInf(float64(meta.EnergyDrift), 1) {
		t.Errorf("expected +Inf drift, got %v", meta.EnergyDrift)
	}
	if !math.IsNaN(float64(meta.Metrics["energy"])) {
		t.Errorf("expected NaN energy, got %v", meta.Metrics["energy"])
	}
	if !math.IsInf(float64(meta.Metrics["stability"]), -1) {
		t.Errorf("expected -Inf stability, got %v", meta.Metrics["stability"])
	}

	result.States[1] = dynamo.State{math.NaN(), math.Inf(1)}
	var buf bytes.Buffer
	if err := ExportJSON(&buf, "diverged", config.DefaultConfig(), result); err != nil {
		t.Fatalf("export failed: %v", err)
	}
}

func TestStoreFailedSaveLeavesNoRun(t *testing.T) {
	tmpDir := t.TempDir()
	st := New(tmpDir)
	if err := st.Init(); err != nil {
		t.Fatalf("init failed: %v", err)
	}

	result := testResult()
	result.Times = result.Times[:1]

	if _, err := st.Save("broken", config.DefaultConfig(), result); !errors.Is(err, dynamo.ErrDimensionMismatch) {
		t.Fatalf("expected ErrDimensionMismatch, got %v", err)
	}

	entries, err := os.ReadDir(tmpDir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Errorf("expected no run directories, found %d", len(entries))
	}
}

func TestLoadConfigWithResolver(t *testing.T) {
	st := New(t.TempDir())
	if err := st.Init(); err != nil {
		t.Fatalf("init failed: %v", err)
	}

	cfg := config.DefaultConfig()
	cfg.Rollout.Integrator = "verlet"
	runID, err := st.Save("learned", cfg, testResult())
	if err != nil {
		t.Fatalf("save failed: %v", err)
	}

	if _, err := st.LoadConfig(runID); !errors.Is(err, config.ErrInvalidConfig) {
		t.Errorf("expected built-in names to reject verlet, got %v", err)
	}
	loaded, err := st.LoadConfigWith(runID, verletOnly{})
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if loaded.Rollout.Integrator != "verlet" {
		t.Errorf("expected verlet, got %s", loaded.Rollout.Integrator)
	}
}

// verletOnly adds a "verlet" integrator to the built-in names.
type verletOnly struct{}

func (verletOnly) HasIntegrator(name string) bool {
	return name == "verlet" || config.Builtins.HasIntegrator(name)
}

func (verletOnly) ReferenceDim(name string) (int, bool) {
	return config.Builtins.ReferenceDim(name)
}
