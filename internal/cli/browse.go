package cli

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/corepkg/extractor/pkg/pipeline"
	"github.com/corepkg/extractor/pkg/resolve"
)

func newBrowseCmd() *cobra.Command {
	var payloadDir string

	cmd := &cobra.Command{
		Use:   "browse",
		Short: "Interactively browse packages and their inclusion status",
		RunE: func(cmd *cobra.Command, args []string) error {
			result, _, err := runExtraction(cmd, payloadDir)
			if err != nil {
				return err
			}

			model := newBrowseModel(result)
			_, err = tea.NewProgram(model).Run()
			return err
		},
	}

	cmd.Flags().StringVar(&payloadDir, "payload", "", "scan a local payload directory instead of downloading")
	return cmd
}

// browseRow is one package line in the browser.
type browseRow struct {
	ID       string
	Status   resolve.Status
	Licenses []string
	Blockers []string
}

// browseModel is the bubbletea model for package browsing: a scrollable
// cursor list with a detail line for the selection.
type browseModel struct {
	rows   []browseRow
	cursor int
	offset int
	height int
}

func newBrowseModel(result *pipeline.Result) browseModel {
	m := browseModel{height: 20}
	for _, n := range result.Graph.Nodes() {
		v := result.Verdict(n.ID)
		lic := result.Licenses[n.ID]
		m.rows = append(m.rows, browseRow{
			ID:       n.ID,
			Status:   v.Status,
			Licenses: lic.LicenseIDs,
			Blockers: v.Blockers,
		})
	}
	return m
}

func (m browseModel) Init() tea.Cmd { return nil }

func (m browseModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.height = max(msg.Height-4, 5)
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		case "up", "k":
			if m.cursor > 0 {
				m.cursor--
			}
		case "down", "j":
			if m.cursor < len(m.rows)-1 {
				m.cursor++
			}
		case "g":
			m.cursor = 0
		case "G":
			m.cursor = len(m.rows) - 1
		}

		if m.cursor < m.offset {
			m.offset = m.cursor
		}
		if m.cursor >= m.offset+m.height {
			m.offset = m.cursor - m.height + 1
		}
	}
	return m, nil
}

func (m browseModel) View() string {
	var b strings.Builder
	b.WriteString(styleTitle.Render("Packages") + styleDim.Render("  (q to quit)") + "\n\n")

	end := min(m.offset+m.height, len(m.rows))
	for i := m.offset; i < end; i++ {
		row := m.rows[i]
		line := fmt.Sprintf("%-50s %s", row.ID, styleForStatus(row.Status).Render(string(row.Status)))
		if i == m.cursor {
			b.WriteString(styleHighlight.Render("> "+line) + "\n")
		} else {
			b.WriteString("  " + line + "\n")
		}
	}

	if len(m.rows) > 0 {
		row := m.rows[m.cursor]
		b.WriteString("\n")
		if len(row.Licenses) > 0 {
			b.WriteString(styleDim.Render("licenses: ") + strings.Join(row.Licenses, " + ") + "\n")
		}
		if len(row.Blockers) > 0 {
			b.WriteString(styleDim.Render("blocked by: ") + strings.Join(row.Blockers, ", ") + "\n")
		}
	}
	return b.String()
}
