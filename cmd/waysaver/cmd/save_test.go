package cmd

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestCollectTargets(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "urls.txt")
	content := "https://a.example/\n\n# a comment\n  https://b.example/  \n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("writing input file: %v", err)
	}

	saveInputFile = path
	defer func() { saveInputFile = "" }()

	targets, err := collectTargets([]string{"https://c.example/"})
	if err != nil {
		t.Fatalf("collectTargets failed: %v", err)
	}

	want := []string{"https://a.example/", "https://b.example/", "https://c.example/"}
	if len(targets) != len(want) {
		t.Fatalf("got %d targets, want %d", len(targets), len(want))
	}
	for i := range want {
		if targets[i] != want[i] {
			t.Errorf("target[%d] = %q, want %q", i, targets[i], want[i])
		}
	}
}

func TestCollectTargetsMissingFile(t *testing.T) {
	saveInputFile = filepath.Join(t.TempDir(), "missing.txt")
	defer func() { saveInputFile = "" }()

	if _, err := collectTargets(nil); err == nil {
		t.Error("collectTargets accepted a missing input file")
	}
}

func TestBuildPolicy(t *testing.T) {
	flagRetries = 4
	flagBackoff = 30 * time.Second
	flagDecay = 75
	defer func() {
		flagRetries = 3
		flagBackoff = 60 * time.Second
		flagDecay = 50
	}()

	p := buildPolicy(2 * time.Second)
	if p.MaxRetries != 4 || p.InitialBackoff != 30*time.Second || p.DecayPercent != 75 || p.JitterBase != 2*time.Second {
		t.Errorf("buildPolicy = %+v, want flag values carried through", p)
	}
	if err := p.Validate(); err != nil {
		t.Errorf("policy from defaults should validate: %v", err)
	}
}
