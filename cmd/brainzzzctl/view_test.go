package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"path/filepath"
	"testing"

	"brainzzz/internal/graphview"
	"brainzzz/internal/model"
	brainapi "brainzzz/pkg/brainzzz"
)

func TestViewCommandRequiresBrain(t *testing.T) {
	err := run(context.Background(), []string{"view"})
	var uerr *usageErr
	if !errors.As(err, &uerr) {
		t.Fatalf("expected usage error, got %v", err)
	}
}

func TestViewCommandWithPreviewAndExport(t *testing.T) {
	srv := newBackendStub(t)
	dir := t.TempDir()
	args := []string{
		"view",
		"--backend", srv.URL,
		"--brain", "1",
		"--layout", "grid",
		"--preview",
		"--inputs", "1=0.5",
		"--plasticity", "hebbian",
		"--export", "json",
		"--out", dir,
	}
	if err := run(context.Background(), args); err != nil {
		t.Fatalf("view: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "brain-1-grid.json")); err != nil {
		t.Fatalf("stat export: %v", err)
	}
}

func TestViewCommandPlasticityNeedsPreview(t *testing.T) {
	err := run(context.Background(), []string{"view", "--brain", "1", "--plasticity", "oja"})
	var uerr *usageErr
	if !errors.As(err, &uerr) {
		t.Fatalf("expected usage error, got %v", err)
	}
}

func TestExportCommandWritesFiles(t *testing.T) {
	srv := newBackendStub(t)
	dir := t.TempDir()
	args := []string{
		"export",
		"--backend", srv.URL,
		"--brain", "1",
		"--formats", "png,json",
		"--out", dir,
	}
	if err := run(context.Background(), args); err != nil {
		t.Fatalf("export: %v", err)
	}
	for _, name := range []string{"brain-1-concentric.png", "brain-1-concentric.json"} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			t.Fatalf("stat %s: %v", name, err)
		}
	}
}

func TestExportAllCommand(t *testing.T) {
	srv := newBackendStub(t)
	dir := t.TempDir()
	args := []string{
		"export",
		"--backend", srv.URL,
		"--all",
		"--formats", "svg",
		"--out", dir,
		"--workers", "2",
	}
	if err := run(context.Background(), args); err != nil {
		t.Fatalf("export all: %v", err)
	}
	for _, name := range []string{"brain-1-concentric.svg", "brain-2-concentric.svg"} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			t.Fatalf("stat %s: %v", name, err)
		}
	}
}

func TestExportCommandUsage(t *testing.T) {
	var uerr *usageErr
	if err := run(context.Background(), []string{"export"}); !errors.As(err, &uerr) {
		t.Fatalf("expected usage error without brain or all, got %v", err)
	}
	if err := run(context.Background(), []string{"export", "--all", "--offline"}); !errors.As(err, &uerr) {
		t.Fatalf("expected usage error for offline batch, got %v", err)
	}
}

func TestScanCommand(t *testing.T) {
	srv := newBackendStub(t)
	if err := run(context.Background(), []string{"scan", "--backend", srv.URL, "--workers", "2"}); err != nil {
		t.Fatalf("scan: %v", err)
	}
}

func TestViewFlagsPrecedence(t *testing.T) {
	cfg := appConfig{View: viewSection{Layout: "circle", Width: 800, ShowWeights: true, NodeScale: 2}}

	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	var vf viewFlags
	vf.register(fs)
	if err := fs.Parse(nil); err != nil {
		t.Fatalf("parse: %v", err)
	}
	req := vf.request(fs, cfg)
	if req.Layout != "circle" || req.Width != 800 || !req.ShowWeights || req.NodeScale != 2 {
		t.Fatalf("config values not applied: %+v", req)
	}

	fs = flag.NewFlagSet("test", flag.ContinueOnError)
	vf = viewFlags{}
	vf.register(fs)
	if err := fs.Parse([]string{"--layout", "grid", "--weights=false", "--node-scale", "0.5"}); err != nil {
		t.Fatalf("parse: %v", err)
	}
	req = vf.request(fs, cfg)
	if req.Layout != "grid" {
		t.Fatalf("layout flag did not override: %+v", req)
	}
	if req.ShowWeights {
		t.Fatalf("explicit weights=false did not override config: %+v", req)
	}
	if req.NodeScale != 0.5 {
		t.Fatalf("node scale flag did not override: %+v", req)
	}
}

func TestSplitFormats(t *testing.T) {
	got := splitFormats(" PNG, svg ,,json ")
	want := []string{"png", "svg", "json"}
	if len(got) != len(want) {
		t.Fatalf("splitFormats = %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("splitFormats[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestParseInputs(t *testing.T) {
	inputs, err := parseInputs("1=0.5, 2=-1")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if inputs[1] != 0.5 || inputs[2] != -1 {
		t.Fatalf("unexpected inputs: %v", inputs)
	}

	if _, err := parseInputs("nope"); err == nil {
		t.Fatal("expected error for missing separator")
	}
	if _, err := parseInputs("x=1"); err == nil {
		t.Fatal("expected error for bad id")
	}
	if _, err := parseInputs("1=zzz"); err == nil {
		t.Fatal("expected error for bad value")
	}
	if inputs, err := parseInputs(""); err != nil || inputs != nil {
		t.Fatalf("empty spec: %v %v", inputs, err)
	}
}

func TestPreviewSnapshot(t *testing.T) {
	summary := brainapi.ViewSummary{
		BrainID: 9,
		Model: graphview.Model{
			Nodes: []graphview.NodeElement{
				{ID: 1, Type: model.NodeInput, Activation: "identity"},
				{ID: 2, Type: model.NodeOutput, Activation: "tanh", Bias: 0.25},
			},
			Edges: []graphview.EdgeElement{
				{ID: 10, From: 1, To: 2, Weight: 0.5, Enabled: true},
			},
		},
	}
	snap := previewSnapshot(summary)
	if snap.ID != 9 || len(snap.Nodes) != 2 || len(snap.Connections) != 1 {
		t.Fatalf("unexpected snapshot: %+v", snap)
	}
	if snap.Nodes[1].Bias != 0.25 || snap.Connections[0].Weight != 0.5 {
		t.Fatalf("element fields lost: %+v", snap)
	}
}
