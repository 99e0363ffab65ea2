package report

import (
	"io"
	"strings"
	"text/template"

	"github.com/corepkg/extractor/pkg/errors"
	"github.com/corepkg/extractor/pkg/pipeline"
	"github.com/corepkg/extractor/pkg/resolve"
)

// readmeTemplate renders the human-readable run summary. Kept as a raw
// string rather than an external file so the binary is self-contained.
const readmeTemplate = `# Extracted Packages

Run ` + "`{{.RunID}}`" + ` - {{.Stats.Packages}} packages discovered,
{{.Stats.Included}} available, {{.Stats.Blocked}} blocked,
{{.Stats.Unlicensed}} unlicensed.

## Available Packages

These packages are fully licensed, as is their entire dependency tree.

| Package | Version | License |
| ------- | ------- | ------- |
{{- range .Available}}
| {{.Name}} | {{.Version}} | {{join .LicenseIDs " + "}} |
{{- end}}

## Blocked Packages

These packages are licensed themselves but depend on something that is
not available.

| Package | Version | Blocked By |
| ------- | ------- | ---------- |
{{- range .Blocked}}
| {{.Name}} | {{.Version}} | {{join .Blockers ", "}} |
{{- end}}

## Blocking Packages

Licensing these packages would unblock their dependents.

| Package | Version | Status |
| ------- | ------- | ------ |
{{- range .Blocking}}
| {{.Name}} | {{.Version}} | {{.Status}} |
{{- end}}

## Unlicensed Packages

No license could be identified for these packages' own source files.

| Package | Version | Unlicensed Files |
| ------- | ------- | ---------------- |
{{- range .Unlicensed}}
| {{.Name}} | {{.Version}} | {{len .UnlicensedFiles}} |
{{- end}}
`

var readmeTmpl = template.Must(template.New("readme").
	Funcs(template.FuncMap{"join": strings.Join}).
	Parse(readmeTemplate))

// readmeData is the template context for the README.
type readmeData struct {
	RunID string
	Stats pipeline.Stats

	Available  []PackageReport
	Blocked    []PackageReport
	Blocking   []PackageReport
	Unlicensed []PackageReport
}

// WriteReadme renders the README for one run. The blocking table lists
// every non-included package cited in someone's blocker set, regardless
// of its own status.
func (r *Report) WriteReadme(w io.Writer, result *pipeline.Result) error {
	data := readmeData{
		RunID:      r.RunID,
		Stats:      r.Stats,
		Blocked:    r.ByStatus(resolve.StatusBlocked),
		Unlicensed: r.ByStatus(resolve.StatusUnlicensed),
	}

	// Rewritten dependencies resolve as included but are not extracted
	// packages; the available table lists only emitted ones.
	for _, p := range r.ByStatus(resolve.StatusIncluded) {
		if !p.External {
			data.Available = append(data.Available, p)
		}
	}

	for _, id := range result.Resolution.Blocking() {
		if p, ok := r.Package(id); ok {
			data.Blocking = append(data.Blocking, p)
		}
	}

	if err := readmeTmpl.Execute(w, data); err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "render readme")
	}
	return nil
}
