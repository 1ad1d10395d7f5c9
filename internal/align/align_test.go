package align

import (
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"

	"section-aligner/internal/config"
	"section-aligner/internal/search"
)

func TestNewCarriesConfiguration(t *testing.T) {
	cfg := config.Default()
	cfg.TargetDir = "/scans/batch7"
	cfg.ReferenceThreshold = 200
	cfg.TargetThreshold = 220
	cfg.Step = 3
	cfg.MaxChange = 9
	cfg.SuppressOverlays = true

	a := New(cfg, zerolog.Nop())

	if a.Search != (search.Config{Step: 3, MaxChange: 9}) {
		t.Errorf("Search = %+v", a.Search)
	}
	if a.Base != (search.ThresholdPair{Reference: 200, Target: 220}) {
		t.Errorf("Base = %+v", a.Base)
	}
	if a.WriteOverlays {
		t.Error("WriteOverlays = true with overlays suppressed")
	}
	if a.OutputDir != filepath.Join("Alignments", "batch7_Alignments") {
		t.Errorf("OutputDir = %q", a.OutputDir)
	}
	if a.Registrar == nil {
		t.Error("Registrar not set")
	}
}

func TestProcessMissingFiles(t *testing.T) {
	dir := t.TempDir()
	a := New(config.Default(), zerolog.Nop())

	out := a.Process(Pair{
		Name:          "gone.png",
		ReferencePath: filepath.Join(dir, "gone.png"),
		TargetPath:    filepath.Join(dir, "gone.png"),
	})

	if out.Err == nil {
		t.Error("expected load error for missing reference image")
	}
	if len(out.Result.Trace) != 0 {
		t.Errorf("no attempts expected, got %d", len(out.Result.Trace))
	}
}
