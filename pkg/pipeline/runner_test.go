package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/charmbracelet/log"

	"github.com/corepkg/extractor/pkg/errors"
	"github.com/corepkg/extractor/pkg/license"
	"github.com/corepkg/extractor/pkg/resolve"
)

const mitText = `MIT License

Permission is hereby granted, free of charge, to any person obtaining a
copy of this software and associated documentation files, to deal in the
Software without restriction.`

func mitHeaderSource() string {
	var b strings.Builder
	b.WriteString("--[[\n")
	for _, line := range strings.Split(mitText, "\n") {
		b.WriteString("\t" + line + "\n")
	}
	b.WriteString("]]\n")
	b.WriteString("return {}\n")
	return b.String()
}

func testRunner() *Runner {
	dataset := license.NewDataset([]license.Reference{{ID: "MIT", Text: mitText}})
	logger := log.New(os.Stderr)
	logger.SetLevel(log.ErrorLevel)
	return NewRunner(license.NewMatcher(dataset, nil), nil, logger)
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

func TestExecuteEndToEnd(t *testing.T) {
	root := t.TempDir()
	writePackage(t, root, "App-aaaa-1.0.0", "app", "1.0.0", mitHeaderSource(),
		"Lib lib 1.0.0 url+https://example.com/lib",
		"Bad bad 1.0.0 url+https://example.com/bad",
	)
	writePackage(t, root, "Lib-bbbb-1.0.0", "lib", "1.0.0", mitHeaderSource())
	writePackage(t, root, "Bad-cccc-1.0.0", "bad", "1.0.0", "return {}\n")

	result, err := testRunner().Execute(context.Background(), Options{PayloadRoot: root})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}

	if result.RunID == "" {
		t.Error("missing run ID")
	}
	if result.Stats.Packages != 3 {
		t.Errorf("Packages = %d", result.Stats.Packages)
	}

	if got := result.Verdict("lib@1.0.0").Status; got != resolve.StatusIncluded {
		t.Errorf("lib status = %s", got)
	}
	if got := result.Verdict("bad@1.0.0").Status; got != resolve.StatusUnlicensed {
		t.Errorf("bad status = %s", got)
	}
	app := result.Verdict("app@1.0.0")
	if app.Status != resolve.StatusBlocked {
		t.Errorf("app status = %s", app.Status)
	}
	if len(app.Blockers) != 1 || app.Blockers[0] != "bad@1.0.0" {
		t.Errorf("app blockers = %v", app.Blockers)
	}

	lic := result.Licenses["app@1.0.0"]
	if !lic.Licensed || len(lic.LicenseIDs) != 1 || lic.LicenseIDs[0] != "MIT" {
		t.Errorf("app license = %+v", lic)
	}
	if lic.Confidence < license.Threshold {
		t.Errorf("app confidence = %f, want >= %f", lic.Confidence, license.Threshold)
	}
	bad := result.Licenses["bad@1.0.0"]
	if bad.Licensed || len(bad.UnlicensedFiles) != 1 || bad.UnlicensedFiles[0] != "init.lua" {
		t.Errorf("bad license = %+v", bad)
	}
	if bad.Confidence >= license.Threshold {
		t.Errorf("bad confidence = %f, want below %f", bad.Confidence, license.Threshold)
	}

	if result.Stats.Included != 1 || result.Stats.Blocked != 1 || result.Stats.Unlicensed != 1 {
		t.Errorf("stats = %+v", result.Stats)
	}
}

func TestExecuteExternalDependencyBlocks(t *testing.T) {
	root := t.TempDir()
	writePackage(t, root, "App-aaaa-1.0.0", "app", "1.0.0", mitHeaderSource(),
		"Ghost ghost 3.0.0 url+https://example.com/ghost",
	)

	result, err := testRunner().Execute(context.Background(), Options{PayloadRoot: root})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if got := result.Verdict("ghost@3.0.0").Status; got != resolve.StatusExternal {
		t.Errorf("ghost status = %s", got)
	}
	if got := result.Verdict("app@1.0.0").Status; got != resolve.StatusBlocked {
		t.Errorf("app status = %s", got)
	}
}

func TestExecuteAliasBypassesClassification(t *testing.T) {
	root := t.TempDir()
	writePackage(t, root, "Opaque-aaaa-1.0.0", "opaque", "1.0.0", "return {}\n")

	result, err := testRunner().Execute(context.Background(), Options{
		PayloadRoot: root,
		Aliases:     map[string]string{"opaque": "Apache-2.0"},
	})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}

	lic := result.Licenses["opaque@1.0.0"]
	if !lic.Licensed || !lic.Aliased {
		t.Errorf("alias not applied: %+v", lic)
	}
	if len(lic.LicenseIDs) != 1 || lic.LicenseIDs[0] != "Apache-2.0" {
		t.Errorf("LicenseIDs = %v", lic.LicenseIDs)
	}
	if lic.FilesScanned != 0 {
		t.Errorf("aliased package scanned %d files", lic.FilesScanned)
	}
	if lic.Confidence != 1 {
		t.Errorf("aliased confidence = %f, want 1", lic.Confidence)
	}
	if got := result.Verdict("opaque@1.0.0").Status; got != resolve.StatusIncluded {
		t.Errorf("opaque status = %s", got)
	}
}

func TestExecuteDuplicateCopiesMustAllPass(t *testing.T) {
	root := t.TempDir()
	// Two copies of the same release; only one is licensed.
	good := filepath.Join(root, "a")
	badCopy := filepath.Join(root, "b")
	writePackage(t, good, "Lib-aaaa-1.0.0", "lib", "1.0.0", mitHeaderSource())
	writePackage(t, badCopy, "Lib-aaaa-1.0.0", "lib", "1.0.0", "return {}\n")

	result, err := testRunner().Execute(context.Background(), Options{PayloadRoot: root})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if got := result.Verdict("lib@1.0.0").Status; got != resolve.StatusUnlicensed {
		t.Errorf("lib status = %s, want unlicensed when any copy fails", got)
	}
	if got := result.Licenses["lib@1.0.0"].Confidence; got >= license.Threshold {
		t.Errorf("merged confidence = %f, want the weaker copy to govern", got)
	}
}

func TestExecuteEmptyPayloadIsFatal(t *testing.T) {
	_, err := testRunner().Execute(context.Background(), Options{PayloadRoot: t.TempDir()})
	if !errors.Is(err, errors.ErrCodeEmptyPackageSet) {
		t.Fatalf("err = %v, want empty package set", err)
	}
}

func TestExecuteRootsRestrictScan(t *testing.T) {
	root := t.TempDir()
	writePackage(t, filepath.Join(root, "Packages"), "Lib-aaaa-1.0.0", "lib", "1.0.0", mitHeaderSource())
	writePackage(t, filepath.Join(root, "Ignored"), "Other-bbbb-1.0.0", "other", "1.0.0", mitHeaderSource())

	result, err := testRunner().Execute(context.Background(), Options{
		PayloadRoot: root,
		Roots:       []string{"Packages", "Missing"},
	})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if result.Stats.Packages != 1 {
		t.Fatalf("Packages = %d, want only the configured root scanned", result.Stats.Packages)
	}
	if _, ok := result.Graph.Node("other@1.0.0"); ok {
		t.Error("package outside configured roots leaked into the graph")
	}
}

func TestExecuteCancelledContext(t *testing.T) {
	root := t.TempDir()
	writePackage(t, root, "Lib-aaaa-1.0.0", "lib", "1.0.0", mitHeaderSource())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := testRunner().Execute(ctx, Options{PayloadRoot: root}); err == nil {
		t.Fatal("expected error from cancelled context")
	}
}
