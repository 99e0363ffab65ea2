package lockfile

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/corepkg/extractor/pkg/errors"
)

const sampleLock = `name = "roblox/Emittery"
version = "3.2.1"
commit = "792ffec6ca98a6d725d25d678d693f486c1d2c75"
source = "url+https://github.com/roblox/jest-roblox"
dependencies = [
    "LuauPolyfill LuauPolyfill 1.1.0 url+https://github.com/roblox/luau-polyfill",
    "Promise <patched> Promise 8c520dea git+https://github.com/roblox/promise-upgrade#v0.1.0",
]
`

func TestParse(t *testing.T) {
	path := filepath.Join(t.TempDir(), LockName)
	if err := os.WriteFile(path, []byte(sampleLock), 0644); err != nil {
		t.Fatal(err)
	}

	lock, err := Parse(path)
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	if lock.Name != "roblox/Emittery" {
		t.Errorf("Name = %s", lock.Name)
	}
	if lock.Version != "3.2.1" {
		t.Errorf("Version = %s", lock.Version)
	}
	if len(lock.Dependencies) != 2 {
		t.Errorf("Dependencies = %d entries, want 2", len(lock.Dependencies))
	}
}

func TestParseMissing(t *testing.T) {
	_, err := Parse(filepath.Join(t.TempDir(), "nope", LockName))
	if !errors.Is(err, errors.ErrCodeFileNotFound) {
		t.Errorf("error code = %s, want %s", errors.GetCode(err), errors.ErrCodeFileNotFound)
	}
}

func TestParseBytesMalformed(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"not toml", `{"name": "json"}`},
		{"missing name", "version = \"1.0.0\"\n"},
		{"missing version", "name = \"pkg\"\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseBytes([]byte(tt.data), "test.toml")
			if err == nil {
				t.Fatal("expected error")
			}
			if !errors.Is(err, errors.ErrCodeInvalidLockfile) {
				t.Errorf("error code = %s, want %s", errors.GetCode(err), errors.ErrCodeInvalidLockfile)
			}
		})
	}
}

func TestParseDependencies(t *testing.T) {
	lock, err := ParseBytes([]byte(sampleLock), "test.toml")
	if err != nil {
		t.Fatal(err)
	}

	deps, err := lock.ParseDependencies()
	if err != nil {
		t.Fatalf("ParseDependencies error: %v", err)
	}
	if len(deps) != 2 {
		t.Fatalf("got %d deps, want 2", len(deps))
	}

	want := Dependency{
		PathName:     "LuauPolyfill",
		RegistryName: "luau-polyfill",
		Version:      "1.1.0",
	}
	if deps[0] != want {
		t.Errorf("deps[0] = %+v, want %+v", deps[0], want)
	}

	patched := Dependency{
		PathName:     "Promise",
		RegistryName: "promise",
		Version:      "8c520dea",
		Patched:      true,
	}
	if deps[1] != patched {
		t.Errorf("deps[1] = %+v, want %+v", deps[1], patched)
	}
}

func TestParseDependenciesMalformed(t *testing.T) {
	tests := []string{
		"OnlyPathName",
		"Name <patched>",
		"Name Registry",
	}

	for _, raw := range tests {
		lock := &Lock{Name: "pkg", Version: "1.0.0", Dependencies: []string{raw}}
		if _, err := lock.ParseDependencies(); err == nil {
			t.Errorf("entry %q: expected error", raw)
		}
	}
}

func TestVersionIsCommit(t *testing.T) {
	tests := []struct {
		v    Version
		want bool
	}{
		{"1.1.0", false},
		{"3.2.1-rc.1", false},
		{"8c520dea", true},
		{"792ffec6ca98a6d725d25d678d693f486c1d2c75", true},
		{"v1.0.0", true}, // leading v is not semver in lock files
	}

	for _, tt := range tests {
		if got := tt.v.IsCommit(); got != tt.want {
			t.Errorf("%q.IsCommit() = %v, want %v", tt.v, got, tt.want)
		}
	}
}
