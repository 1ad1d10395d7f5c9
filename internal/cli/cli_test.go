package cli

import (
	"testing"

	"section-aligner/internal/search"
)

func TestParseBounds(t *testing.T) {
	cases := []struct {
		spec    string
		want    search.Bounds
		wantErr bool
	}{
		{"0.95,1.05", search.Bounds{Min: 0.95, Max: 1.05}, false},
		{"0.9, 1.1", search.Bounds{Min: 0.9, Max: 1.1}, false},
		{"1", search.Bounds{}, true},
		{"a,b", search.Bounds{}, true},
		{"0.95,1.05,2", search.Bounds{}, true},
		{"0.95,", search.Bounds{}, true},
	}

	for _, tc := range cases {
		got, err := parseBounds(tc.spec)
		if (err != nil) != tc.wantErr {
			t.Errorf("parseBounds(%q) error = %v, wantErr %v", tc.spec, err, tc.wantErr)
			continue
		}
		if !tc.wantErr && got != tc.want {
			t.Errorf("parseBounds(%q) = %+v, want %+v", tc.spec, got, tc.want)
		}
	}
}

func TestRootCmdHasSubcommands(t *testing.T) {
	root := NewRootCmd()
	for _, name := range []string{"align", "watch", "version"} {
		cmd, _, err := root.Find([]string{name})
		if err != nil || cmd.Name() != name {
			t.Errorf("subcommand %q not found: %v", name, err)
		}
	}
}

func TestAlignCmdRequiresFlags(t *testing.T) {
	root := NewRootCmd()
	root.SetArgs([]string{"align"})
	if err := root.Execute(); err == nil {
		t.Error("expected error when required flags are missing")
	}
}
