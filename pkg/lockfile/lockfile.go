// Package lockfile parses the dependency-lock metadata shipped alongside
// each vendored package.
//
// Every package root carries a lock.toml pinning its identity and the exact
// resolved versions of its dependencies. Dependencies are encoded as
// space-separated strings carrying the in-tree alias, the registry name,
// the pinned version, and the source URL:
//
//	dependencies = [
//	    "LuauPolyfill LuauPolyfill 1.1.0 url+https://github.com/roblox/luau-polyfill",
//	    "Promise <patched> Promise 8c520dea git+https://github.com/roblox/promise-upgrade#v0.1.0",
//	]
//
// The "<patched>" marker indicates the entry was rewritten upstream; the
// real registry name follows it.
package lockfile

import (
	"os"
	"regexp"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/corepkg/extractor/pkg/errors"
	"github.com/corepkg/extractor/pkg/pkgname"
)

// LockName is the structural marker identifying a package root.
// Directories without a parseable file of this name are not packages.
const LockName = "lock.toml"

// semverRe matches plain semantic versions. Anything else is treated as a
// commit hash; no range solving happens here - the lock already pins exact
// versions.
var semverRe = regexp.MustCompile(`^\d+\.\d+\.\d+(?:[-+].*)?$`)

// Version is a pinned package version: either a semantic version or a
// commit hash, compared by exact string match.
type Version string

// IsCommit reports whether the version is a commit hash rather than a
// semantic version.
func (v Version) IsCommit() bool { return !semverRe.MatchString(string(v)) }

func (v Version) String() string { return string(v) }

// Lock is a raw lock file as it appears on disk.
type Lock struct {
	Name         string   `toml:"name"`
	Version      Version  `toml:"version"`
	Commit       string   `toml:"commit"`
	Source       string   `toml:"source"`
	Dependencies []string `toml:"dependencies"`
}

// Dependency is one parsed lock entry.
type Dependency struct {
	// PathName is how the dependency is referenced from within the
	// package tree (the alias other files import it by).
	PathName string `json:"path_name"`

	// RegistryName is the dependency's normalized registry name.
	RegistryName string `json:"registry_name"`

	// Version is the pinned version from the lock entry.
	Version Version `json:"version"`

	// Patched marks entries the vendor rewrote upstream.
	Patched bool `json:"patched,omitempty"`
}

// Parse reads and parses a lock file from disk.
func Parse(path string) (*Lock, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeFileNotFound, err, "read lock file %s", path)
	}
	return ParseBytes(data, path)
}

// ParseBytes parses lock file contents. The path is only used in error
// messages.
func ParseBytes(data []byte, path string) (*Lock, error) {
	var lock Lock
	if err := toml.Unmarshal(data, &lock); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidLockfile, err, "parse %s", path)
	}
	if lock.Name == "" {
		return nil, errors.New(errors.ErrCodeInvalidLockfile, "%s: missing package name", path)
	}
	if lock.Version == "" {
		return nil, errors.New(errors.ErrCodeInvalidLockfile, "%s: missing package version", path)
	}
	return &lock, nil
}

// ParseDependencies parses every dependency string in the lock.
// Malformed entries produce an error naming the entry; a lock with no
// dependencies returns an empty slice.
func (l *Lock) ParseDependencies() ([]Dependency, error) {
	deps := make([]Dependency, 0, len(l.Dependencies))

	for _, raw := range l.Dependencies {
		dep, err := parseDependency(raw)
		if err != nil {
			return nil, err
		}
		deps = append(deps, dep)
	}

	return deps, nil
}

// parseDependency parses a single "PATHNAME [<patched>] REGISTRYNAME VERSION SOURCE" entry.
func parseDependency(raw string) (Dependency, error) {
	parts := strings.Fields(raw)
	next := func() (string, bool) {
		if len(parts) == 0 {
			return "", false
		}
		head := parts[0]
		parts = parts[1:]
		return head, true
	}

	pathName, ok := next()
	if !ok {
		return Dependency{}, errors.New(errors.ErrCodeInvalidLockfile, "empty dependency entry")
	}

	registryName, ok := next()
	if !ok {
		return Dependency{}, errors.New(errors.ErrCodeInvalidLockfile, "dependency %q: missing registry name", raw)
	}

	patched := false
	if registryName == "<patched>" {
		patched = true
		if registryName, ok = next(); !ok {
			return Dependency{}, errors.New(errors.ErrCodeInvalidLockfile, "dependency %q: missing registry name after <patched>", raw)
		}
	}

	version, ok := next()
	if !ok {
		return Dependency{}, errors.New(errors.ErrCodeInvalidLockfile, "dependency %q: missing version", raw)
	}

	return Dependency{
		PathName:     pathName,
		RegistryName: pkgname.Kebab(registryName),
		Version:      Version(version),
		Patched:      patched,
	}, nil
}
