// Package discover walks a raw extracted payload tree and identifies the
// package roots inside it.
//
// A directory is a package root when it contains a parseable lock file -
// a structural marker, not a naming heuristic, because directory naming in
// vendor payloads is inconsistent. Candidate subtrees are scanned
// concurrently and merged into a single deduplicated set; the same package
// name discovered at two different versions yields two distinct packages.
//
// Discovery failures (an unparseable lock file, an unreadable source file)
// skip the affected package and are collected for the audit report; they
// never abort the run.
package discover

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/corepkg/extractor/pkg/errors"
	"github.com/corepkg/extractor/pkg/license"
	"github.com/corepkg/extractor/pkg/lockfile"
	"github.com/corepkg/extractor/pkg/pkgname"
)

// DefaultExtensions are the source-file extensions classified by default.
var DefaultExtensions = []string{".lua", ".luau"}

// subtreeWorkers bounds the number of candidate subtrees scanned at once.
const subtreeWorkers = 8

// SourceFile is one source file inside a package. Content is read once at
// discovery time and immutable afterward; the header block is extracted
// eagerly so classification workers never touch the filesystem.
type SourceFile struct {
	// Path is the file path relative to the package root.
	Path string `json:"path"`
	// Content is the raw file contents.
	Content string `json:"-"`
	// Header is the leading comment block, extracted once.
	Header string `json:"-"`
}

// Package is one discovered package root.
// Packages are owned by a single extraction run and never mutated
// concurrently.
type Package struct {
	Name    pkgname.Name     `json:"name"`
	Version lockfile.Version `json:"version"`

	// Dir is the package root directory on disk.
	Dir string `json:"dir"`

	// Lock is the parsed lock file.
	Lock *lockfile.Lock `json:"-"`

	// Dependencies are the parsed lock entries.
	Dependencies []lockfile.Dependency `json:"dependencies"`

	// Files are the package's source files in path order.
	Files []SourceFile `json:"-"`
}

// Key returns the package's identity within a run: registry name plus
// pinned version. Two side-by-side copies of the same release have equal
// keys; the same name at different versions does not.
func (p *Package) Key() string {
	return p.Name.RegistryName + "@" + p.Version.String()
}

// LinesOfCode counts the total source lines across the package's files.
func (p *Package) LinesOfCode() int {
	total := 0
	for _, f := range p.Files {
		total += strings.Count(f.Content, "\n") + 1
	}
	return total
}

// Error records a candidate package root that could not be discovered.
type Error struct {
	Path string `json:"path"`
	Err  error  `json:"-"`
	// Message is the error text, kept separately so collected errors
	// serialize into the audit report.
	Message string `json:"message"`
}

// Set is the merged result of a discovery pass.
type Set struct {
	// Packages in deterministic (key) order.
	Packages []*Package
	// Errors lists skipped candidate roots.
	Errors []Error
}

// ByKey returns the package with the given key, or nil.
func (s *Set) ByKey(key string) *Package {
	for _, p := range s.Packages {
		if p.Key() == key {
			return p
		}
	}
	return nil
}

// VersionsOf returns all discovered packages sharing a registry name.
func (s *Set) VersionsOf(registryName string) []*Package {
	var out []*Package
	for _, p := range s.Packages {
		if p.Name.RegistryName == registryName {
			out = append(out, p)
		}
	}
	return out
}

// Options configures a discovery pass.
type Options struct {
	// Extensions lists the source-file extensions to read
	// (default: DefaultExtensions).
	Extensions []string

	// Banned lists path names skipped during discovery with a warning.
	Banned []string

	// Logger receives progress and warning callbacks (optional).
	Logger func(format string, args ...any)
}

func (o Options) withDefaults() Options {
	opts := o
	if len(opts.Extensions) == 0 {
		opts.Extensions = DefaultExtensions
	}
	if opts.Logger == nil {
		opts.Logger = func(string, ...any) {}
	}
	return opts
}

// Discover scans the tree rooted at root and returns the merged package
// set. Top-level subtrees are scanned concurrently; results land in the
// set under a single lock so duplicate-version races cannot occur.
func Discover(ctx context.Context, root string, opts Options) (*Set, error) {
	opts = opts.withDefaults()

	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "read payload root %s", root)
	}

	set := &Set{}
	var mu sync.Mutex

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(subtreeWorkers)

	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		subtree := filepath.Join(root, entry.Name())

		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}

			packages, errs := scanSubtree(subtree, opts)

			mu.Lock()
			set.Packages = append(set.Packages, packages...)
			set.Errors = append(set.Errors, errs...)
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	// Deterministic ordering regardless of scan interleaving. Ties on key
	// (side-by-side copies of one release) break on path name.
	sort.Slice(set.Packages, func(i, j int) bool {
		if ki, kj := set.Packages[i].Key(), set.Packages[j].Key(); ki != kj {
			return ki < kj
		}
		return set.Packages[i].Name.PathName < set.Packages[j].Name.PathName
	})
	sort.Slice(set.Errors, func(i, j int) bool { return set.Errors[i].Path < set.Errors[j].Path })

	return set, nil
}

// scanSubtree finds package roots within one subtree. A directory with a
// lock file is a root; scanning does not descend into roots looking for
// nested packages.
func scanSubtree(subtree string, opts Options) ([]*Package, []Error) {
	var packages []*Package
	var discErrs []Error

	_ = filepath.WalkDir(subtree, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			discErrs = append(discErrs, newError(path, err))
			return fs.SkipDir
		}
		if !d.IsDir() {
			return nil
		}

		lockPath := filepath.Join(path, lockfile.LockName)
		if _, statErr := os.Stat(lockPath); statErr != nil {
			return nil // not a package root, keep descending
		}

		if banned(filepath.Base(path), opts.Banned) {
			opts.Logger("skipping banned package %s", filepath.Base(path))
			return fs.SkipDir
		}

		pkg, pkgErr := readPackage(path, lockPath, opts)
		if pkgErr != nil {
			discErrs = append(discErrs, newError(path, pkgErr))
		} else {
			packages = append(packages, pkg)
		}
		return fs.SkipDir // files below a root belong to that package
	})

	return packages, discErrs
}

// readPackage parses the lock file and reads the package's source files.
func readPackage(dir, lockPath string, opts Options) (*Package, error) {
	lock, err := lockfile.Parse(lockPath)
	if err != nil {
		return nil, err
	}

	deps, err := lock.ParseDependencies()
	if err != nil {
		return nil, err
	}

	files, err := readSources(dir, opts.Extensions)
	if err != nil {
		return nil, err
	}

	return &Package{
		Name:         pkgname.New(filepath.Base(dir), lock.Name),
		Version:      lock.Version,
		Dir:          dir,
		Lock:         lock,
		Dependencies: deps,
		Files:        files,
	}, nil
}

// readSources reads all matching source files under dir, in path order,
// extracting each file's header block as it goes.
func readSources(dir string, extensions []string) ([]SourceFile, error) {
	var files []SourceFile

	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !hasExtension(path, extensions) {
			return nil
		}

		content, err := os.ReadFile(path)
		if err != nil {
			return err
		}

		rel, err := filepath.Rel(dir, path)
		if err != nil {
			rel = path
		}

		files = append(files, SourceFile{
			Path:    filepath.ToSlash(rel),
			Content: string(content),
			Header:  license.ExtractHeader(string(content)),
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(files, func(i, j int) bool { return files[i].Path < files[j].Path })
	return files, nil
}

func newError(path string, err error) Error {
	return Error{Path: path, Err: err, Message: err.Error()}
}

func banned(name string, list []string) bool {
	for _, b := range list {
		if name == b {
			return true
		}
	}
	return false
}

func hasExtension(path string, extensions []string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range extensions {
		if ext == e {
			return true
		}
	}
	return false
}
