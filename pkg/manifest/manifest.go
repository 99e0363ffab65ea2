// Package manifest emits publication artifacts for every included
// package: a TOML registry manifest, a JSON project file, and the source
// tree copied through with configured per-file replacements applied.
package manifest

import (
	"bytes"
	"encoding/json"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/charmbracelet/log"

	"github.com/corepkg/extractor/pkg/depgraph"
	"github.com/corepkg/extractor/pkg/discover"
	"github.com/corepkg/extractor/pkg/errors"
	"github.com/corepkg/extractor/pkg/pipeline"
)

// Defaults for the emitted manifest metadata.
const (
	DefaultScope    = "core-packages"
	DefaultRealm    = "shared"
	DefaultRegistry = "https://github.com/UpliftGames/wally-index"
)

// PackageSection is the [package] table of an emitted manifest.
type PackageSection struct {
	Name        string   `toml:"name"`
	Description string   `toml:"description,omitempty"`
	Version     string   `toml:"version"`
	Authors     []string `toml:"authors,omitempty"`
	License     string   `toml:"license"`
	Registry    string   `toml:"registry"`
	Realm       string   `toml:"realm"`
}

// Manifest is an emitted registry manifest.
type Manifest struct {
	Package      PackageSection    `toml:"package"`
	Dependencies map[string]string `toml:"dependencies"`
}

// projectFile is the JSON project descriptor emitted next to the manifest.
type projectFile struct {
	Name string      `json:"name"`
	Tree projectTree `json:"tree"`
}

type projectTree struct {
	Path string `json:"$path"`
}

// Emitter writes publication artifacts for included packages.
type Emitter struct {
	// Scope prefixes emitted package names: "scope/name".
	Scope string
	// Registry and Realm land in each manifest verbatim.
	Registry string
	Realm    string

	Description string
	Authors     []string

	// Replacements maps package-relative source paths to substitute
	// contents, applied during copy-through.
	Replacements map[string]string

	Logger *log.Logger
}

// NewEmitter returns an emitter with the default metadata filled in.
func NewEmitter(logger *log.Logger) *Emitter {
	if logger == nil {
		logger = log.Default()
	}
	return &Emitter{
		Scope:    DefaultScope,
		Registry: DefaultRegistry,
		Realm:    DefaultRealm,
		Logger:   logger,
	}
}

// Emit writes one directory per included package under outDir and returns
// the emitted package names, sorted. Only packages the resolver included
// are emitted; everything else is skipped silently here and accounted for
// in the report instead.
func (e *Emitter) Emit(result *pipeline.Result, outDir string) ([]string, error) {
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "create output dir %s", outDir)
	}

	var emitted []string
	for _, n := range result.Graph.Nodes() {
		if !n.IsInternal() || !result.Verdict(n.ID).Included() {
			continue
		}

		pkg := n.Packages[0] // duplicate copies are the same release
		dir := filepath.Join(outDir, pkg.Name.PathName)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, errors.Wrap(errors.ErrCodeInternal, err, "create package dir %s", dir)
		}

		if err := e.writeManifest(dir, n, pkg, result); err != nil {
			return nil, err
		}
		if err := e.writeProjectFile(dir, pkg); err != nil {
			return nil, err
		}
		if err := e.copySources(dir, pkg); err != nil {
			return nil, err
		}

		e.Logger.Info("emitted package", "name", pkg.Name.RegistryName, "version", n.Version)
		emitted = append(emitted, pkg.Name.RegistryName)
	}

	sort.Strings(emitted)
	return emitted, nil
}

// ManifestFor builds the manifest for one included node without writing it.
func (e *Emitter) ManifestFor(n *depgraph.Node, pkg *discover.Package, result *pipeline.Result) Manifest {
	deps := map[string]string{}
	for _, edge := range result.Graph.EdgesFrom(n.ID) {
		target, ok := result.Graph.Node(edge.To)
		if !ok {
			continue
		}
		alias := edge.Alias
		if alias == "" {
			alias = target.Name
		}
		if target.Rewritten {
			// Rewritten targets already carry their public identity.
			deps[alias] = target.Name + "@" + target.Version.String()
			continue
		}
		deps[alias] = e.Scope + "/" + target.Name + "@" + target.Version.String()
	}

	return Manifest{
		Package: PackageSection{
			Name:        e.Scope + "/" + pkg.Name.RegistryName,
			Description: e.Description,
			Version:     n.Version.String(),
			Authors:     e.Authors,
			License:     licenseString(result.Licenses[n.ID]),
			Registry:    e.Registry,
			Realm:       e.Realm,
		},
		Dependencies: deps,
	}
}

func (e *Emitter) writeManifest(dir string, n *depgraph.Node, pkg *discover.Package, result *pipeline.Result) error {
	m := e.ManifestFor(n, pkg, result)

	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(m); err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "encode manifest for %s", n.ID)
	}
	path := filepath.Join(dir, "wally.toml")
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "write %s", path)
	}
	return nil
}

func (e *Emitter) writeProjectFile(dir string, pkg *discover.Package) error {
	data, err := json.MarshalIndent(projectFile{
		Name: pkg.Name.RegistryName,
		Tree: projectTree{Path: "src/"},
	}, "", "  ")
	if err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "encode project file for %s", pkg.Name.RegistryName)
	}
	path := filepath.Join(dir, "default.project.json")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "write %s", path)
	}
	return nil
}

// copySources writes the package tree into dir/src/, substituting
// configured replacement files and skipping the lock file.
func (e *Emitter) copySources(dir string, pkg *discover.Package) error {
	srcRoot := filepath.Join(dir, "src")

	err := filepath.WalkDir(pkg.Dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(pkg.Dir, path)
		if err != nil {
			return err
		}
		if rel == "." {
			return os.MkdirAll(srcRoot, 0o755)
		}
		target := filepath.Join(srcRoot, rel)

		if d.IsDir() {
			return os.MkdirAll(target, 0o755)
		}
		if filepath.Base(path) == "lock.toml" {
			return nil
		}

		if replacement, ok := e.Replacements[filepath.ToSlash(rel)]; ok {
			return os.WriteFile(target, []byte(replacement), 0o644)
		}

		content, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		return os.WriteFile(target, content, 0o644)
	})
	if err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "copy sources for %s", pkg.Name.RegistryName)
	}
	return nil
}

func licenseString(lic pipeline.PackageLicense) string {
	if len(lic.LicenseIDs) == 0 {
		return ""
	}
	return strings.Join(lic.LicenseIDs, " + ")
}
