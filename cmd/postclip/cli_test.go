package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/hpungsan/postclip/internal/config"
	"github.com/hpungsan/postclip/internal/ops"
	"github.com/hpungsan/postclip/internal/settings"
)

const testPostHTML = `<html><body><shreddit-post>
<h1 slot="title">App crashes on login</h1>
<div slot="text-body"><p>Every time I open it.</p></div>
</shreddit-post></body></html>`

type stubLoader struct{}

func (stubLoader) Load(_ context.Context, _ string) (*goquery.Document, error) {
	return goquery.NewDocumentFromReader(strings.NewReader(testPostHTML))
}

// setupRuntime opens a runtime on the given backend with the network stubbed out.
func setupRuntime(t *testing.T, backend string) *runtime {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.Backend = backend

	rt, err := openRuntime(context.Background(), t.TempDir(), cfg, zap.NewNop())
	if err != nil {
		t.Fatalf("failed to open runtime: %v", err)
	}
	t.Cleanup(func() { rt.Close() })
	rt.env.Pages = stubLoader{}
	return rt
}

// run executes the CLI with args and returns what it wrote.
func run(t *testing.T, rt *runtime, args ...string) (string, error) {
	t.Helper()
	var buf bytes.Buffer
	old := stdout
	stdout = &buf
	defer func() { stdout = old }()

	err := newCLIApp(rt).Run(append([]string{"postclip"}, args...))
	return buf.String(), err
}

func TestFirstArgAndVerbose(t *testing.T) {
	tests := []struct {
		args    []string
		first   string
		verbose bool
	}{
		{[]string{"postclip"}, "", false},
		{[]string{"postclip", "list"}, "list", false},
		{[]string{"postclip", "--verbose", "list"}, "list", true},
		{[]string{"postclip", "list", "--verbose"}, "list", false},
	}
	for _, tt := range tests {
		if got := firstArg(tt.args); got != tt.first {
			t.Errorf("firstArg(%v)=%q, want %q", tt.args, got, tt.first)
		}
		if got := isVerbose(tt.args); got != tt.verbose {
			t.Errorf("isVerbose(%v)=%v, want %v", tt.args, got, tt.verbose)
		}
	}
}

func TestIsCLIMode(t *testing.T) {
	if !isCLIMode([]string{"postclip", "capture", "https://reddit.com/r/a"}) {
		t.Error("capture should be CLI mode")
	}
	if !isCLIMode([]string{"postclip", "--version"}) {
		t.Error("--version should be CLI mode")
	}
	if isCLIMode([]string{"postclip"}) {
		t.Error("no args should be MCP mode")
	}
	if isCLIMode([]string{"postclip", "serve"}) {
		t.Error("unknown command should not be CLI mode")
	}
}

func TestCLICaptureAndList(t *testing.T) {
	rt := setupRuntime(t, config.BackendMemory)

	out, err := run(t, rt, "capture", "https://www.reddit.com/r/app/comments/1/crash/")
	if err != nil {
		t.Fatalf("capture failed: %v", err)
	}
	var captured ops.CaptureOutput
	if err := json.Unmarshal([]byte(out), &captured); err != nil {
		t.Fatalf("failed to parse output: %v\nOutput: %s", err, out)
	}
	// No key saved: entry is kept without a summary
	if captured.Outcome != ops.OutcomeSavedWithoutSummary {
		t.Errorf("outcome=%s, want %s", captured.Outcome, ops.OutcomeSavedWithoutSummary)
	}
	if captured.Message != ops.MsgSavedNoKey {
		t.Errorf("message=%q", captured.Message)
	}

	out, err = run(t, rt, "list")
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	var listed ops.ListOutput
	if err := json.Unmarshal([]byte(out), &listed); err != nil {
		t.Fatalf("failed to parse output: %v", err)
	}
	if len(listed.Items) != 1 || listed.Items[0].Title != "App crashes on login" {
		t.Errorf("unexpected items: %+v", listed.Items)
	}

	out, err = run(t, rt, "list", "--format", "yaml")
	if err != nil {
		t.Fatalf("list yaml failed: %v", err)
	}
	var fromYAML ops.ListOutput
	if err := yaml.Unmarshal([]byte(out), &fromYAML); err != nil {
		t.Fatalf("failed to parse yaml: %v\nOutput: %s", err, out)
	}
	if fromYAML.CountLabel != "1 link saved" {
		t.Errorf("count_label=%q", fromYAML.CountLabel)
	}

	out, err = run(t, rt, "list", "--format", "table")
	if err != nil {
		t.Fatalf("list table failed: %v", err)
	}
	if !strings.Contains(out, "App crashes on login") || !strings.HasSuffix(out, "1 link saved\n") {
		t.Errorf("unexpected table:\n%s", out)
	}

	if _, err := run(t, rt, "list", "--format", "xml"); err == nil {
		t.Error("expected error for unknown format")
	}
}

func TestCLICaptureRefused(t *testing.T) {
	rt := setupRuntime(t, config.BackendMemory)

	tests := []struct {
		args []string
		want string
	}{
		{[]string{"capture"}, "[INVALID_REQUEST] " + ops.MsgInvalidURL},
		{[]string{"capture", "https://example.com/x"}, "[NOT_REDDIT] " + ops.MsgNotReddit},
	}
	for _, tt := range tests {
		_, err := run(t, rt, tt.args...)
		if err == nil || err.Error() != tt.want {
			t.Errorf("%v: got %v, want %q", tt.args, err, tt.want)
		}
	}
}

func TestCLICopyAndExport(t *testing.T) {
	rt := setupRuntime(t, config.BackendMemory)

	_, err := run(t, rt, "copy")
	if err == nil || !strings.Contains(err.Error(), "no links to copy yet") {
		t.Errorf("expected empty-list error, got %v", err)
	}

	if _, err := run(t, rt, "capture", "https://reddit.com/r/app/comments/2/"); err != nil {
		t.Fatal(err)
	}

	out, err := run(t, rt, "copy")
	if err != nil {
		t.Fatalf("copy failed: %v", err)
	}
	if !strings.HasPrefix(out, `"title","summary","category"`) {
		t.Errorf("unexpected csv: %s", out)
	}

	out, err = run(t, rt, "export")
	if err != nil {
		t.Fatalf("export failed: %v", err)
	}
	var exported ops.ExportOutput
	if err := json.Unmarshal([]byte(out), &exported); err != nil {
		t.Fatalf("failed to parse output: %v", err)
	}
	if filepath.Dir(exported.Path) != rt.env.ExportDir {
		t.Errorf("export path %s not in %s", exported.Path, rt.env.ExportDir)
	}
	if !strings.HasPrefix(filepath.Base(exported.Path), "support-links-") {
		t.Errorf("unexpected file name %s", exported.Path)
	}
}

func TestCLIImportAndClear(t *testing.T) {
	rt := setupRuntime(t, config.BackendMemory)

	path := filepath.Join(rt.env.ExportDir, "links.json")
	if err := os.WriteFile(path, []byte(`["https://reddit.com/r/a/1","https://reddit.com/r/a/2"]`), 0600); err != nil {
		t.Fatal(err)
	}

	if _, err := run(t, rt, "import"); err == nil {
		t.Error("expected error without a file")
	}

	out, err := run(t, rt, "import", path)
	if err != nil {
		t.Fatalf("import failed: %v", err)
	}
	var imported ops.ImportOutput
	if err := json.Unmarshal([]byte(out), &imported); err != nil {
		t.Fatalf("failed to parse output: %v", err)
	}
	if imported.Imported != 2 {
		t.Errorf("imported=%d, want 2", imported.Imported)
	}

	out, err = run(t, rt, "clear")
	if err != nil {
		t.Fatalf("clear failed: %v", err)
	}
	var cleared ops.ClearOutput
	if err := json.Unmarshal([]byte(out), &cleared); err != nil {
		t.Fatalf("failed to parse output: %v", err)
	}
	if cleared.Cleared != 2 {
		t.Errorf("cleared=%d, want 2", cleared.Cleared)
	}
}

func TestCLIKey(t *testing.T) {
	rt := setupRuntime(t, config.BackendSQLite)

	out, err := run(t, rt, "key", "set", "  sk-live-9876  ")
	if err != nil {
		t.Fatalf("key set failed: %v", err)
	}
	var status settings.KeyStatus
	if err := json.Unmarshal([]byte(out), &status); err != nil {
		t.Fatalf("failed to parse output: %v", err)
	}
	if !status.Saved || status.Preview != "********9876" {
		t.Errorf("unexpected status: %+v", status)
	}
	if strings.Contains(out, "sk-live") {
		t.Error("key set echoed the key")
	}

	if _, err := run(t, rt, "key", "clear"); err != nil {
		t.Fatalf("key clear failed: %v", err)
	}
	out, err = run(t, rt, "key", "show")
	if err != nil {
		t.Fatalf("key show failed: %v", err)
	}
	if !strings.Contains(out, "No API key saved yet.") {
		t.Errorf("unexpected status: %s", out)
	}
}

func TestCLISessionEnd(t *testing.T) {
	rt := setupRuntime(t, config.BackendSQLite)

	if _, err := run(t, rt, "capture", "https://reddit.com/r/app/comments/3/"); err != nil {
		t.Fatal(err)
	}

	out, err := run(t, rt, "session", "show")
	if err != nil {
		t.Fatalf("session show failed: %v", err)
	}
	var info sessionInfo
	if err := json.Unmarshal([]byte(out), &info); err != nil {
		t.Fatalf("failed to parse output: %v", err)
	}
	if info.Backend != config.BackendSQLite || info.ID != rt.session.ID || info.Count != 1 {
		t.Errorf("unexpected session info: %+v", info)
	}

	out, err = run(t, rt, "session", "end")
	if err != nil {
		t.Fatalf("session end failed: %v", err)
	}
	if err := json.Unmarshal([]byte(out), &info); err != nil {
		t.Fatalf("failed to parse output: %v", err)
	}
	if info.EndedAt == "" {
		t.Error("expected ended_at")
	}

	entries, err := rt.env.Store.GetAll(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Errorf("ended session kept %d entries", len(entries))
	}

	if _, err := run(t, rt, "session", "end"); err == nil {
		t.Error("ending an ended session should fail")
	}
}

func TestCLISessionEnd_MemoryBackend(t *testing.T) {
	rt := setupRuntime(t, config.BackendMemory)
	if _, err := run(t, rt, "capture", "https://reddit.com/r/app/comments/4/"); err != nil {
		t.Fatal(err)
	}
	if _, err := run(t, rt, "session", "end"); err != nil {
		t.Fatalf("session end failed: %v", err)
	}
	entries, _ := rt.env.Store.GetAll(context.Background())
	if len(entries) != 0 {
		t.Errorf("ended session kept %d entries", len(entries))
	}
}
