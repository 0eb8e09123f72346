package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	apppkg "github.com/hyperifyio/docwatch/internal/app"
	"github.com/hyperifyio/docwatch/internal/store"
)

// Flags beat environment, environment beats the config file.
func TestParseConfig_Precedence(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "docwatch.yaml")
	content := "keywords: [from-file]\nseeds: [https://file.example/]\nstore:\n  results: file-results.json\n  visited: file-visited.json\n"
	if err := os.WriteFile(cfgPath, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("DOCWATCH_RESULTS", "env-results.json")
	t.Setenv("DOCWATCH_KEYWORDS", "from-env")

	cfg, opts, err := parseConfig([]string{"-config", cfgPath, "-keywords", "a, b", "-json", "https://extra.example/"}, io.Discard)
	if err != nil {
		t.Fatalf("parseConfig: %v", err)
	}
	if !opts.printJSON {
		t.Fatalf("expected -json to be recorded")
	}
	if len(cfg.Keywords) != 2 || cfg.Keywords[0] != "a" || cfg.Keywords[1] != "b" {
		t.Fatalf("flag keywords should win, got %q", cfg.Keywords)
	}
	if cfg.ResultsPath != "env-results.json" {
		t.Fatalf("env should beat file, got %q", cfg.ResultsPath)
	}
	if cfg.VisitedPath != "file-visited.json" {
		t.Fatalf("file value should apply when nothing overrides it, got %q", cfg.VisitedPath)
	}
	if len(cfg.Seeds) != 2 || cfg.Seeds[1] != "https://extra.example/" {
		t.Fatalf("positional seeds should be appended, got %q", cfg.Seeds)
	}
}

func TestParseConfig_InvalidMapsToExitConfig(t *testing.T) {
	t.Setenv("DOCWATCH_KEYWORDS", "")
	t.Setenv("DOCWATCH_SEEDS", "")
	_, _, err := parseConfig([]string{"-seeds", "https://x.example/"}, io.Discard)
	if err == nil {
		t.Fatalf("expected error without keywords")
	}
	if got := exitCode(err); got != exitConfig {
		t.Fatalf("exit code %d, want %d", got, exitConfig)
	}
}

func TestExitCode(t *testing.T) {
	if exitCode(nil) != exitOK {
		t.Fatalf("nil error must exit 0")
	}
	if exitCode(fmt.Errorf("wrap: %w", store.ErrLocked)) != exitLocked {
		t.Fatalf("lock contention must exit %d", exitLocked)
	}
	if exitCode(fmt.Errorf("wrap: %w", apppkg.ErrPersist)) != exitFailure {
		t.Fatalf("persistence failure must exit %d", exitFailure)
	}
}

// Smoke test: run scans a seed, saves state and prints the summary.
func TestRun_PrintsSummaryJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/":
			_, _ = w.Write([]byte(`<a href="/a.txt">a</a>`))
		case "/a.txt":
			_, _ = w.Write([]byte("Edital: Maria Souza convocada"))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	dir := t.TempDir()
	cfg := apppkg.Config{
		Keywords:    []string{"maria souza"},
		Seeds:       []string{srv.URL + "/"},
		VisitedPath: filepath.Join(dir, "visited.json"),
		ResultsPath: filepath.Join(dir, "results.json"),
		SummaryPath: filepath.Join(dir, "summary.json"),
	}
	var out bytes.Buffer
	if err := run(context.Background(), cfg, options{printJSON: true}, &out); err != nil {
		t.Fatalf("run error: %v", err)
	}
	var sum struct {
		Matched int `json:"matched"`
	}
	if err := json.Unmarshal(out.Bytes(), &sum); err != nil {
		t.Fatalf("decode stdout summary: %v\n%s", err, out.String())
	}
	if sum.Matched != 1 {
		t.Fatalf("matched=%d, want 1", sum.Matched)
	}
	if _, err := os.Stat(cfg.SummaryPath); err != nil {
		t.Fatalf("expected summary sidecar: %v", err)
	}
}
