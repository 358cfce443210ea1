package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/crimson-sun/advisor/internal/config"
	"github.com/crimson-sun/advisor/internal/model"
	"github.com/crimson-sun/advisor/internal/output/multi"
	"github.com/crimson-sun/advisor/internal/output/stdout"
	"github.com/crimson-sun/advisor/internal/output/table"
)

func TestCommandsRegistered(t *testing.T) {
	want := map[string]bool{"analyze": false, "batch": false, "history": false, "topics": false, "version": false}
	for _, cmd := range rootCmd.Commands() {
		if _, ok := want[cmd.Name()]; ok {
			want[cmd.Name()] = true
		}
	}
	for name, found := range want {
		if !found {
			t.Errorf("%s command not found in rootCmd", name)
		}
	}

	var hasImport bool
	for _, cmd := range historyCmd.Commands() {
		if cmd.Name() == "import" {
			hasImport = true
		}
	}
	if !hasImport {
		t.Error("history import command not found")
	}
}

func TestVersionCommand(t *testing.T) {
	var buf bytes.Buffer
	rootCmd.SetOut(&buf)
	rootCmd.SetArgs([]string{"version"})
	defer rootCmd.SetArgs(nil)

	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("version: %v", err)
	}
	if !strings.Contains(buf.String(), "advisor "+version) {
		t.Errorf("output = %q", buf.String())
	}
}

func TestReadRecordFromFlags(t *testing.T) {
	analyzeTitle, analyzeDomain = "VPN drops", "IT"
	defer func() { analyzeTitle, analyzeDomain = "", "" }()

	rec, err := readRecord(nil, nil)
	if err != nil {
		t.Fatalf("readRecord: %v", err)
	}
	if v, _ := rec.Lookup(model.FieldTitle); v != "VPN drops" {
		t.Errorf("title = %q", v)
	}
	if v, _ := rec.Lookup(model.FieldDomain); v != "IT" {
		t.Errorf("domain = %q", v)
	}
	if _, ok := rec.Lookup(model.FieldDescription); ok {
		t.Error("description should be absent")
	}
}

func TestReadRecordNeedsInput(t *testing.T) {
	if _, err := readRecord(nil, nil); err == nil {
		t.Fatal("expected error without file or flags")
	}
}

func TestReadRecordFromStdinAndFile(t *testing.T) {
	rec, err := readRecord([]string{"-"}, strings.NewReader(`{"title": "طابعة", "problem_id": 7}`))
	if err != nil {
		t.Fatalf("stdin: %v", err)
	}
	if rec.ProblemID == nil || *rec.ProblemID != 7 {
		t.Errorf("problem_id = %v", rec.ProblemID)
	}

	path := filepath.Join(t.TempDir(), "problem.json")
	if err := os.WriteFile(path, []byte(`{"description_initial": "no paper"}`), 0o600); err != nil {
		t.Fatal(err)
	}
	rec, err = readRecord([]string{path}, nil)
	if err != nil {
		t.Fatalf("file: %v", err)
	}
	if v, _ := rec.Lookup(model.FieldDescription); v != "no paper" {
		t.Errorf("description = %q", v)
	}

	if _, err := readRecord([]string{"-"}, strings.NewReader("not json")); err == nil {
		t.Error("expected decode error")
	}
}

func TestNewOutput(t *testing.T) {
	out, err := newOutput(config.OutputConfig{Format: "json"}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := out.(*stdout.Output); !ok {
		t.Errorf("json output = %T", out)
	}

	out, err = newOutput(config.OutputConfig{Format: "table"}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := out.(*table.Output); !ok {
		t.Errorf("table output = %T", out)
	}

	path := filepath.Join(t.TempDir(), "reports.jsonl")
	out, err = newOutput(config.OutputConfig{Format: "json", File: path, MaxSize: 1 << 20}, zap.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := out.(*multi.Multi); !ok {
		t.Errorf("file output = %T, want fan-out", out)
	}
	if err := out.Close(); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("report file not created: %v", err)
	}
}
