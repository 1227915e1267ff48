package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadFrom_Defaults(t *testing.T) {
	cfg, err := LoadFrom(map[string]string{})
	if err != nil {
		t.Fatalf("LoadFrom failed: %v", err)
	}

	if cfg.StatePath != DefaultStatePath {
		t.Errorf("StatePath = %q, want %q", cfg.StatePath, DefaultStatePath)
	}
	if cfg.Category != "cultivation" {
		t.Errorf("Category = %q, want cultivation", cfg.Category)
	}
	if cfg.StaleThreshold != 10 {
		t.Errorf("StaleThreshold = %d, want 10", cfg.StaleThreshold)
	}
	if cfg.WatchDebounce != 300*time.Millisecond {
		t.Errorf("WatchDebounce = %s, want 300ms", cfg.WatchDebounce)
	}

	p := cfg.Policy()
	if p.AllowRegression || !p.RequireBreakthroughEvent || p.MinChaptersForBreakthrough != 3 || p.MaxChaptersPerStage != 50 {
		t.Errorf("unexpected default policy: %+v", p)
	}
}

func TestLoadFrom_Overrides(t *testing.T) {
	cfg, err := LoadFrom(map[string]string{
		"CONTINUITY_STATE":            "/novels/sword.json",
		"CONTINUITY_CATEGORY":         "magic",
		"CONTINUITY_STALE_THRESHOLD":  "25",
		"CONTINUITY_ALLOW_REGRESSION": "true",
		"CONTINUITY_METRICS_ADDR":     ":9090",
	})
	if err != nil {
		t.Fatalf("LoadFrom failed: %v", err)
	}

	if cfg.StatePath != "/novels/sword.json" || cfg.Category != "magic" || cfg.MetricsAddr != ":9090" {
		t.Errorf("unexpected config: %+v", cfg)
	}
	if cfg.StaleThreshold != 25 {
		t.Errorf("StaleThreshold = %d, want 25", cfg.StaleThreshold)
	}
	if !cfg.Policy().AllowRegression {
		t.Error("expected regression to be allowed")
	}
}

func TestLoadFrom_Invalid(t *testing.T) {
	tests := map[string]map[string]string{
		"not a number":   {"CONTINUITY_STALE_THRESHOLD": "soon"},
		"zero threshold": {"CONTINUITY_STALE_THRESHOLD": "0"},
		"zero per stage": {"CONTINUITY_MAX_CHAPTERS_PER_STAGE": "0"},
		"negative min":   {"CONTINUITY_MIN_CHAPTERS_PER_BREAKTHROUGH": "-1"},
	}
	for name, environ := range tests {
		t.Run(name, func(t *testing.T) {
			if _, err := LoadFrom(environ); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestStatePath(t *testing.T) {
	t.Setenv("CONTINUITY_STATE", "/tmp/novel.json")
	if got := StatePath(); got != "/tmp/novel.json" {
		t.Errorf("StatePath() = %q", got)
	}
}

func TestLevels_HierarchyOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ladders.yaml")
	doc := `categories:
  - category: alchemy
    stages:
      - name: Apprentice
        order: 1
      - name: Grandmaster
        order: 2
`
	if err := os.WriteFile(path, []byte(doc), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFrom(map[string]string{"CONTINUITY_HIERARCHIES": path, "CONTINUITY_CATEGORY": "alchemy"})
	if err != nil {
		t.Fatal(err)
	}
	levels, err := cfg.Levels(nil)
	if err != nil {
		t.Fatalf("Levels failed: %v", err)
	}

	if levels.DefaultCategoryName() != "alchemy" {
		t.Errorf("default category = %q, want alchemy", levels.DefaultCategoryName())
	}
	if levels.Compare("Apprentice", "Grandmaster", "") >= 0 {
		t.Error("expected Apprentice below Grandmaster")
	}
	if _, ok := levels.Hierarchy("cultivation"); !ok {
		t.Error("expected embedded categories to remain")
	}

	cfg.HierarchyFile = filepath.Join(t.TempDir(), "missing.yaml")
	if _, err := cfg.Levels(nil); err == nil {
		t.Error("expected error for missing hierarchy file")
	}
}
