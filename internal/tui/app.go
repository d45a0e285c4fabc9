// internal/tui/app.go
//
// Interactive report viewer for droidcfg. It uses bubbletea, which follows
// The Elm Architecture:
//
// 1. Model: the loaded report, the project table and the log tail
// 2. Update: key presses move the selection or reload the report
// 3. View: renders the table, the selected project and the log panel

package tui

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/kingrea/droidcfg/internal/configure"
	"github.com/kingrea/droidcfg/internal/logbook"
)

const logTailLines = 6

// ReportLoader produces a fresh report when the user asks for a reload.
type ReportLoader func() (*configure.Report, error)

// AppOption customizes App construction for tests and alternate runtimes.
type AppOption func(*App)

// WithLogbook shows the tail of the run history under the table.
func WithLogbook(book *logbook.Logbook) AppOption {
	return func(a *App) {
		a.logbook = book
	}
}

// WithReload enables the "r" key.
func WithReload(loader ReportLoader) AppOption {
	return func(a *App) {
		a.reload = loader
	}
}

// App is the bubbletea model behind `droidcfg report --tui`.
type App struct {
	report  *configure.Report
	table   table.Model
	logbook *logbook.Logbook
	reload  ReportLoader

	width     int
	height    int
	statusMsg string
}

type reportLoadedMsg struct {
	report *configure.Report
	err    error
}

// NewApp builds the viewer for a report. A nil report renders an empty table.
func NewApp(report *configure.Report, opts ...AppOption) *App {
	a := &App{
		statusMsg: "↑/↓ select · r reload · q quit",
	}
	for _, opt := range opts {
		opt(a)
	}
	a.table = table.New(
		table.WithColumns(tableColumns(100)),
		table.WithFocused(true),
		table.WithHeight(10),
	)
	styles := table.DefaultStyles()
	styles.Header = styles.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(border).
		BorderBottom(true).
		Bold(true)
	styles.Selected = styles.Selected.
		Foreground(lipgloss.Color("#FFFFFF")).
		Background(accent)
	a.table.SetStyles(styles)
	a.setReport(report)
	return a
}

// Init implements tea.Model.
func (a *App) Init() tea.Cmd {
	return nil
}

// Update is called when a message is received.
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {

	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.table.SetColumns(tableColumns(msg.Width))
		a.table.SetHeight(max(3, msg.Height-logTailLines-14))
		return a, nil

	case reportLoadedMsg:
		if msg.err != nil {
			a.statusMsg = fmt.Sprintf("⚠ reload failed: %v", msg.err)
			return a, nil
		}
		a.setReport(msg.report)
		a.statusMsg = "Report reloaded."
		return a, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q", "esc":
			return a, tea.Quit
		case "r":
			if a.reload == nil {
				return a, nil
			}
			a.statusMsg = "Reloading..."
			loader := a.reload
			return a, func() tea.Msg {
				report, err := loader()
				return reportLoadedMsg{report: report, err: err}
			}
		}
	}

	var cmd tea.Cmd
	a.table, cmd = a.table.Update(msg)
	return a, cmd
}

// View renders the current state.
func (a *App) View() string {
	width := a.width
	if width <= 0 {
		width = 100
	}
	title := titleStyle.MarginBottom(1).Render("⬡ DROIDCFG")
	box := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(border).
		Padding(0, 1)

	sections := []string{title}
	if a.report == nil {
		sections = append(sections, noteStyle.Render("No configuration recorded. Run `droidcfg configure` first."))
	} else {
		sections = append(sections,
			noteStyle.Render(fmt.Sprintf("workspace %s · build root %s", a.report.Workspace, a.report.BuildRoot)),
			box.Render(a.table.View()),
		)
		if detail := a.renderDetail(width - 4); detail != "" {
			sections = append(sections, box.Render(detail))
		}
	}
	if logPanel := a.renderLogPanel(); logPanel != "" {
		sections = append(sections, logPanel)
	}
	footer := lipgloss.NewStyle().
		Foreground(muted).
		MarginTop(1).
		Render(a.statusMsg)
	sections = append(sections, footer)
	return strings.Join(sections, "\n")
}

// Selected returns the project under the cursor.
func (a *App) Selected() (configure.ProjectReport, bool) {
	if a.report == nil {
		return configure.ProjectReport{}, false
	}
	idx := a.table.Cursor()
	if idx < 0 || idx >= len(a.report.Projects) {
		return configure.ProjectReport{}, false
	}
	return a.report.Projects[idx], true
}

func (a *App) setReport(report *configure.Report) {
	a.report = report
	var rows []table.Row
	if report != nil {
		for _, row := range reportRows(report) {
			rows = append(rows, table.Row(row))
		}
	}
	a.table.SetRows(rows)
	// An empty table leaves the cursor at -1; bring it back once rows exist.
	if cursor := a.table.Cursor(); len(rows) > 0 && (cursor < 0 || cursor >= len(rows)) {
		a.table.SetCursor(0)
	}
}

func (a *App) renderDetail(width int) string {
	p, ok := a.Selected()
	if !ok {
		return ""
	}
	head := lipgloss.NewStyle().Bold(true).Foreground(accent).Render(p.Path)
	lines := []string{head, fmt.Sprintf("dir        %s", p.Dir)}
	if len(p.Plugins) > 0 {
		lines = append(lines, fmt.Sprintf("plugins    %s", strings.Join(p.Plugins, ", ")))
	}
	if len(p.UnknownPlugins) > 0 {
		lines = append(lines, noteStyle.Render(fmt.Sprintf("unhandled  %s", strings.Join(p.UnknownPlugins, ", "))))
	}
	if len(p.DependsOn) > 0 {
		lines = append(lines, fmt.Sprintf("after      %s", strings.Join(p.DependsOn, ", ")))
	}
	lines = append(lines,
		fmt.Sprintf("build dir  %s", p.BuildDir),
		fmt.Sprintf("repos      %s", strings.Join(p.Repositories, ", ")),
	)
	return lipgloss.NewStyle().Width(max(20, width)).Render(strings.Join(lines, "\n"))
}

func (a *App) renderLogPanel() string {
	if a.logbook == nil {
		return ""
	}
	lines := a.logbook.Tail(logTailLines)
	if len(lines) == 0 {
		return ""
	}
	fileName := filepath.Base(a.logbook.Path())
	if fileName == "." || fileName == "" {
		fileName = "log"
	}
	head := lipgloss.NewStyle().
		Bold(true).
		Foreground(accent).
		Render(fmt.Sprintf("LOG · %s", fileName))
	body := lipgloss.NewStyle().
		Foreground(lipgloss.Color("#AAAAAA")).
		Render(strings.Join(lines, "\n"))
	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(border).
		Padding(0, 1).
		Render(fmt.Sprintf("%s\n%s", head, body))
}

// tableColumns splits the available width across the report columns, giving
// the namespace and build dir columns the slack.
func tableColumns(width int) []table.Column {
	fixed := []int{14, 12, 0, 10, 5, 12, 0}
	used := 0
	for _, w := range fixed {
		used += w
	}
	flex := max(16, (width-used-8)/2)
	cols := make([]table.Column, len(reportColumns))
	for i, title := range reportColumns {
		w := fixed[i]
		if w == 0 {
			w = flex
		}
		cols[i] = table.Column{Title: title, Width: w}
	}
	return cols
}
