package report

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/charmbracelet/log"

	"github.com/corepkg/extractor/pkg/license"
	"github.com/corepkg/extractor/pkg/pipeline"
	"github.com/corepkg/extractor/pkg/resolve"
)

const mitText = `MIT License

Permission is hereby granted, free of charge, to any person obtaining a
copy of this software and associated documentation files, to deal in the
Software without restriction.`

func licensedSource() string {
	var b strings.Builder
	b.WriteString("--[[\n")
	for _, line := range strings.Split(mitText, "\n") {
		b.WriteString("\t" + line + "\n")
	}
	b.WriteString("]]\nreturn {}\n")
	return b.String()
}

func writePackage(t *testing.T, root, dirName, lockName, version, source string, deps ...string) {
	t.Helper()
	dir := filepath.Join(root, "_Index", dirName)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}

	var b strings.Builder
	b.WriteString("name = \"" + lockName + "\"\n")
	b.WriteString("version = \"" + version + "\"\n")
	b.WriteString("dependencies = [\n")
	for _, d := range deps {
		b.WriteString("    \"" + d + "\",\n")
	}
	b.WriteString("]\n")

	if err := os.WriteFile(filepath.Join(dir, "lock.toml"), []byte(b.String()), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "init.lua"), []byte(source), 0o644); err != nil {
		t.Fatal(err)
	}
}

func fixtureResult(t *testing.T) *pipeline.Result {
	t.Helper()
	root := t.TempDir()
	writePackage(t, root, "App-aaaa-1.0.0", "app", "1.0.0", licensedSource(),
		"Bad bad 1.0.0 url+https://example.com/bad")
	writePackage(t, root, "Lib-bbbb-2.0.0", "lib", "2.0.0", licensedSource())
	writePackage(t, root, "Bad-cccc-1.0.0", "bad", "1.0.0", "return {}\n")

	dataset := license.NewDataset([]license.Reference{{ID: "MIT", Text: mitText}})
	logger := log.New(os.Stderr)
	logger.SetLevel(log.ErrorLevel)

	result, err := pipeline.NewRunner(license.NewMatcher(dataset, nil), nil, logger).
		Execute(context.Background(), pipeline.Options{PayloadRoot: root})
	if err != nil {
		t.Fatalf("pipeline: %v", err)
	}
	return result
}

func TestBuildReport(t *testing.T) {
	result := fixtureResult(t)
	r := Build(result)

	if r.RunID != result.RunID {
		t.Errorf("RunID = %q", r.RunID)
	}
	if len(r.Packages) != 3 {
		t.Fatalf("Packages = %d", len(r.Packages))
	}
	// Ascending ID order.
	for i := 1; i < len(r.Packages); i++ {
		if r.Packages[i-1].ID >= r.Packages[i].ID {
			t.Fatalf("packages not sorted: %s >= %s", r.Packages[i-1].ID, r.Packages[i].ID)
		}
	}

	app, ok := r.Package("app@1.0.0")
	if !ok {
		t.Fatal("app missing from report")
	}
	if app.Status != resolve.StatusBlocked || len(app.Blockers) != 1 {
		t.Errorf("app = %+v", app)
	}
	if !app.Licensed || app.LicenseIDs[0] != "MIT" {
		t.Errorf("app license fields = %+v", app)
	}
	if app.Confidence < license.Threshold {
		t.Errorf("app confidence = %f, want >= %f", app.Confidence, license.Threshold)
	}

	bad, _ := r.Package("bad@1.0.0")
	if bad.Status != resolve.StatusUnlicensed || len(bad.UnlicensedFiles) != 1 {
		t.Errorf("bad = %+v", bad)
	}
	if bad.Confidence >= license.Threshold {
		t.Errorf("bad confidence = %f, want below %f", bad.Confidence, license.Threshold)
	}

	if got := r.ByStatus(resolve.StatusIncluded); len(got) != 1 || got[0].Name != "lib" {
		t.Errorf("included = %+v", got)
	}
}

func TestWriteJSONRoundTrips(t *testing.T) {
	r := Build(fixtureResult(t))

	var buf bytes.Buffer
	if err := r.WriteJSON(&buf); err != nil {
		t.Fatalf("WriteJSON: %v", err)
	}

	var decoded Report
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if decoded.RunID != r.RunID || len(decoded.Packages) != len(r.Packages) {
		t.Errorf("round trip lost data: %+v", decoded)
	}

	// Every package entry serializes its confidence, even at zero.
	var raw struct {
		Packages []map[string]json.RawMessage `json:"packages"`
	}
	if err := json.Unmarshal(buf.Bytes(), &raw); err != nil {
		t.Fatalf("decode raw: %v", err)
	}
	for i, p := range raw.Packages {
		if _, ok := p["confidence"]; !ok {
			t.Errorf("package %d missing confidence field", i)
		}
	}
}

func TestWriteReadme(t *testing.T) {
	result := fixtureResult(t)
	r := Build(result)

	var buf bytes.Buffer
	if err := r.WriteReadme(&buf, result); err != nil {
		t.Fatalf("WriteReadme: %v", err)
	}
	out := buf.String()

	for _, want := range []string{
		"## Available Packages",
		"| lib | 2.0.0 | MIT |",
		"| app | 1.0.0 | bad@1.0.0 |",
		"## Blocking Packages",
		"| bad | 1.0.0 | unlicensed |",
		"## Unlicensed Packages",
		"| bad | 1.0.0 | 1 |",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("readme missing %q\n%s", want, out)
		}
	}
}
