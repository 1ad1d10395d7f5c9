package runner

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/rs/zerolog"

	"section-aligner/internal/align"
	"section-aligner/internal/search"
)

func writeFile(t *testing.T, dir, name string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestDiscoverPairs(t *testing.T) {
	refDir := t.TempDir()
	tgtDir := t.TempDir()

	writeFile(t, refDir, "s03.png")
	writeFile(t, refDir, "s01.png")
	writeFile(t, refDir, "s02.png")
	writeFile(t, tgtDir, "s01.png")
	writeFile(t, tgtDir, "s03.png")
	writeFile(t, tgtDir, "unrelated.png")

	// Subdirectories on either side must be ignored.
	if err := os.Mkdir(filepath.Join(refDir, "nested"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.Mkdir(filepath.Join(tgtDir, "s02.png"), 0o755); err != nil {
		t.Fatal(err)
	}

	pairs, missing, err := DiscoverPairs(refDir, tgtDir)
	if err != nil {
		t.Fatalf("DiscoverPairs: %v", err)
	}

	var names []string
	for _, p := range pairs {
		names = append(names, p.Name)
		if p.ReferencePath != filepath.Join(refDir, p.Name) {
			t.Errorf("reference path = %q", p.ReferencePath)
		}
		if p.TargetPath != filepath.Join(tgtDir, p.Name) {
			t.Errorf("target path = %q", p.TargetPath)
		}
	}
	if !reflect.DeepEqual(names, []string{"s01.png", "s03.png"}) {
		t.Errorf("pair names = %v, want [s01.png s03.png]", names)
	}
	if !reflect.DeepEqual(missing, []string{"s02.png"}) {
		t.Errorf("missing = %v, want [s02.png]", missing)
	}
}

func TestDiscoverPairsMissingReferenceDir(t *testing.T) {
	if _, _, err := DiscoverPairs(filepath.Join(t.TempDir(), "gone"), t.TempDir()); err == nil {
		t.Error("expected error for missing reference directory")
	}
}

func TestProcessTallies(t *testing.T) {
	pairs := []align.Pair{
		{Name: "a.png"}, {Name: "b.png"}, {Name: "c.png"}, {Name: "d.png"},
	}

	var mu sync.Mutex
	seen := map[string]int{}
	processPair := func(p align.Pair) align.Outcome {
		mu.Lock()
		seen[p.Name]++
		mu.Unlock()

		out := align.Outcome{Pair: p}
		switch p.Name {
		case "a.png":
			out.Result.State = search.Accepted
		case "b.png":
			out.Err = errors.New("unreadable")
		default:
			out.Result.State = search.Exhausted
		}
		return out
	}

	summary := process(context.Background(), pairs, 3, processPair, zerolog.Nop())

	want := Summary{Total: 4, Accepted: 1, Exhausted: 2, Skipped: 1}
	if summary != want {
		t.Errorf("summary = %+v, want %+v", summary, want)
	}
	for _, p := range pairs {
		if seen[p.Name] != 1 {
			t.Errorf("pair %s processed %d times, want 1", p.Name, seen[p.Name])
		}
	}
}

func TestProcessHonorsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var processed atomic.Int64
	processPair := func(p align.Pair) align.Outcome {
		processed.Add(1)
		return align.Outcome{Pair: p}
	}

	pairs := make([]align.Pair, 100)
	summary := process(ctx, pairs, 2, processPair, zerolog.Nop())

	if processed.Load() == int64(len(pairs)) {
		t.Error("expected cancellation to stop the feed early")
	}
	if summary.Total != len(pairs) {
		t.Errorf("Total = %d, want %d", summary.Total, len(pairs))
	}
}
