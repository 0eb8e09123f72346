package app

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

// LoadEnvFiles reads KEY=VALUE pairs and populates os.Environ.
func TestLoadEnvFiles_LoadsKeyValues(t *testing.T) {
	t.Setenv("FOO", "")
	t.Setenv("BAR", "")

	dir := t.TempDir()
	envPath := filepath.Join(dir, ".env.test")
	content := "\n# sample dotenv file\nFOO=alpha\nBAR=beta\n"
	if err := os.WriteFile(envPath, []byte(content), 0o600); err != nil {
		t.Fatalf("write dotenv: %v", err)
	}

	if err := LoadEnvFiles(envPath); err != nil {
		t.Fatalf("LoadEnvFiles error: %v", err)
	}

	if got := os.Getenv("FOO"); got != "alpha" {
		t.Fatalf("FOO=%q, want alpha", got)
	}
	if got := os.Getenv("BAR"); got != "beta" {
		t.Fatalf("BAR=%q, want beta", got)
	}
}

// Later files override earlier ones when loading multiple dotenv files.
func TestLoadEnvFiles_OverrideOrder(t *testing.T) {
	t.Setenv("K", "")
	dir := t.TempDir()
	a := filepath.Join(dir, ".env.a")
	b := filepath.Join(dir, ".env.b")
	if err := os.WriteFile(a, []byte("K=first\n"), 0o600); err != nil {
		t.Fatalf("write a: %v", err)
	}
	if err := os.WriteFile(b, []byte("K=second\n"), 0o600); err != nil {
		t.Fatalf("write b: %v", err)
	}

	if err := LoadEnvFiles(a, b); err != nil {
		t.Fatalf("LoadEnvFiles error: %v", err)
	}
	if got := os.Getenv("K"); got != "second" {
		t.Fatalf("override order failed: got %q, want second", got)
	}
}

// ApplyEnvToConfig fills unset fields only, including comma-separated lists.
func TestApplyEnvToConfig_FromEnv(t *testing.T) {
	t.Setenv("DOCWATCH_KEYWORDS", "Maria Silva, ,Joao")
	t.Setenv("DOCWATCH_SEEDS", "https://a.example/list")
	t.Setenv("DOCWATCH_STORE", "sqlite")
	t.Setenv("DOCWATCH_CONCURRENCY", "4")
	t.Setenv("DOCWATCH_FETCH_TIMEOUT", "30s")
	t.Setenv("DOCWATCH_BACKUP", "yes")
	t.Setenv("DOCWATCH_MATCH_LISTING", "1")

	cfg := Config{Seeds: []string{"https://flag.example/"}}
	ApplyEnvToConfig(&cfg)
	if len(cfg.Keywords) != 2 || cfg.Keywords[0] != "Maria Silva" || cfg.Keywords[1] != "Joao" {
		t.Fatalf("Keywords=%q", cfg.Keywords)
	}
	if len(cfg.Seeds) != 1 || cfg.Seeds[0] != "https://flag.example/" {
		t.Fatalf("explicit seeds must win over env, got %q", cfg.Seeds)
	}
	if cfg.StoreBackend != "sqlite" || cfg.Concurrency != 4 {
		t.Fatalf("StoreBackend=%q Concurrency=%d", cfg.StoreBackend, cfg.Concurrency)
	}
	if cfg.FetchTimeout != 30*time.Second {
		t.Fatalf("FetchTimeout=%v, want 30s", cfg.FetchTimeout)
	}
	if !cfg.Backup || !cfg.MatchListing {
		t.Fatalf("expected Backup and MatchListing from env")
	}
}

// ApplyEnvOverrides replaces file-provided values and can switch booleans off.
func TestApplyEnvOverrides_WinsOverFile(t *testing.T) {
	t.Setenv("DOCWATCH_RESULTS", "/data/results.json")
	t.Setenv("SSL_VERIFY", "false")
	t.Setenv("DOCWATCH_ROBOTS", "off")

	cfg := Config{ResultsPath: "from-file.json", RespectRobots: true}
	ApplyEnvOverrides(&cfg)
	if cfg.ResultsPath != "/data/results.json" {
		t.Fatalf("ResultsPath=%q", cfg.ResultsPath)
	}
	if !cfg.InsecureSkipVerify || cfg.RespectRobots {
		t.Fatalf("expected env to disable verification and robots: %+v", cfg)
	}
}
