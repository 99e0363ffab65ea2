package cli

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/charmbracelet/log"

	"github.com/corepkg/extractor/pkg/license"
	"github.com/corepkg/extractor/pkg/pipeline"
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

func writeTestPackage(t *testing.T, root, dirName, lockName, version, source string, deps ...string) {
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

// fixtureResult runs the pipeline over a small payload: one available
// package, one unlicensed, one blocked.
func fixtureResult(t *testing.T) *pipeline.Result {
	t.Helper()
	root := t.TempDir()
	writeTestPackage(t, root, "App-aaaa-1.0.0", "app", "1.0.0", licensedSource(),
		"Bad bad 1.0.0 url+https://example.com/bad")
	writeTestPackage(t, root, "Lib-bbbb-2.0.0", "lib", "2.0.0", licensedSource())
	writeTestPackage(t, root, "Bad-cccc-1.0.0", "bad", "1.0.0", "return {}\n")

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
