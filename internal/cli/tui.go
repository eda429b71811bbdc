package cli

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/Cloudhabil/phi-engine/pkg/constants"
)

var (
	listDimStyle    = lipgloss.NewStyle().Foreground(colorDim)
	detailBoxStyle  = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(colorDim).Padding(0, 1)
	sectorChipStyle = lipgloss.NewStyle().Foreground(colorCyan).Bold(true)
)

// ConstantsModel is the bubbletea model behind "constants browse". Tab
// cycles the sector filter, enter toggles the detail panel of the entry
// under the cursor.
type ConstantsModel struct {
	Sectors []string // "" first, meaning all sectors
	Sector  int
	Entries []constants.Entry
	Cursor  int
	Offset  int
	Height  int
	Detail  bool
}

// NewConstantsModel creates a browser starting on the given sector ("" for all).
func NewConstantsModel(sector string) ConstantsModel {
	m := ConstantsModel{
		Sectors: append([]string{""}, constants.Sectors()...),
		Height:  15,
	}
	for i, s := range m.Sectors {
		if s == sector {
			m.Sector = i
		}
	}
	m.Entries = constants.Search(m.Sectors[m.Sector], "")
	return m
}

func (m ConstantsModel) Init() tea.Cmd {
	return nil
}

func (m ConstantsModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		case "up", "k":
			if m.Cursor > 0 {
				m.Cursor--
				if m.Cursor < m.Offset {
					m.Offset = m.Cursor
				}
			}
		case "down", "j":
			if m.Cursor < len(m.Entries)-1 {
				m.Cursor++
				if m.Cursor >= m.Offset+m.Height {
					m.Offset = m.Cursor - m.Height + 1
				}
			}
		case "tab":
			m.Sector = (m.Sector + 1) % len(m.Sectors)
			m.Entries = constants.Search(m.Sectors[m.Sector], "")
			m.Cursor, m.Offset, m.Detail = 0, 0, false
		case "enter":
			if len(m.Entries) > 0 {
				m.Detail = !m.Detail
			}
		}
	case tea.WindowSizeMsg:
		m.Height = max(msg.Height-12, 5)
	}
	return m, nil
}

func (m ConstantsModel) View() string {
	var b strings.Builder

	sector := m.Sectors[m.Sector]
	if sector == "" {
		sector = "all"
	}
	b.WriteString(StyleTitle.Render("Constants") + "  " + sectorChipStyle.Render(sector))
	b.WriteString("\n")
	b.WriteString(listDimStyle.Render("↑/↓ navigate  tab sector  ⏎ details  q quit"))
	b.WriteString("\n\n")

	end := min(m.Offset+m.Height, len(m.Entries))
	rows := [][]string{}
	for i := m.Offset; i < end; i++ {
		e := m.Entries[i]
		cursor := "  "
		if i == m.Cursor {
			cursor = "▸ "
		}
		rows = append(rows, []string{cursor, e.Name, fmtFloat(e.Value), e.Unit, e.Sector, fmtPPM(e)})
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorDim)).
		Headers("", "Name", "Value", "Unit", "Sector", "ppm").
		Rows(rows...).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return styleHeader
			}
			if m.Offset+row == m.Cursor {
				return styleCell.Foreground(colorGreen).Bold(true)
			}
			return styleCell
		})
	b.WriteString(t.Render())
	b.WriteString("\n")

	if m.Detail && m.Cursor < len(m.Entries) {
		e := m.Entries[m.Cursor]
		var d strings.Builder
		fmt.Fprintf(&d, "%s\n", StyleTitle.Render(e.Name))
		fmt.Fprintf(&d, "formula       %s\n", e.Formula)
		fmt.Fprintf(&d, "value         %s %s\n", fmtFloat(e.Value), e.Unit)
		fmt.Fprintf(&d, "experimental  %s %s\n", fmtFloat(e.Experimental), e.Unit)
		fmt.Fprintf(&d, "deviation     %s\n", fmtPPM(e))
		fmt.Fprintf(&d, "D(value)      %s", fmtFloat(e.DValue))
		b.WriteString(detailBoxStyle.Render(d.String()))
		b.WriteString("\n")
	}

	b.WriteString(listDimStyle.Render(fmt.Sprintf("  [%d/%d]", min(m.Cursor+1, len(m.Entries)), len(m.Entries))))
	return b.String()
}

// fmtPPM renders the deviation, marking exact entries.
func fmtPPM(e constants.Entry) string {
	if e.Exact() {
		return "exact"
	}
	return fmt.Sprintf("%.1f", e.DeviationPPM)
}
