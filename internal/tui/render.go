package tui

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/kingrea/droidcfg/internal/configure"
)

var (
	accent    = lipgloss.Color("#5B8DEF")
	warnColor = lipgloss.Color("#FF6B6B")
	muted     = lipgloss.Color("#888888")
	border    = lipgloss.Color("#444444")

	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(warnColor)
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(accent).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	unsetStyle  = lipgloss.NewStyle().Foreground(warnColor)
	noteStyle   = lipgloss.NewStyle().Foreground(muted)
)

// Columns shown by both the plain renderer and the interactive table.
var reportColumns = []string{"PROJECT", "KIND", "NAMESPACE", "SOURCE", "SDK", "BUILD TOOLS", "BUILD DIR"}

// RenderReport formats a report as a styled table followed by a summary.
func RenderReport(r *configure.Report) string {
	if r == nil {
		return noteStyle.Render("No configuration recorded. Run `droidcfg configure` first.")
	}
	rows := reportRows(r)
	for i, p := range r.Projects {
		if p.Kind != "none" && !p.NamespaceSet {
			rows[i][2] = unsetStyle.Render(rows[i][2])
		}
	}
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(border)).
		Headers(reportColumns...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})

	title := titleStyle.Render("⬡ DROIDCFG")
	if r.DryRun {
		title += noteStyle.Render("  (dry run)")
	}
	lines := []string{
		title,
		noteStyle.Render(fmt.Sprintf("workspace %s · build root %s", r.Workspace, r.BuildRoot)),
		t.Render(),
		summaryLine(r),
	}
	return strings.Join(lines, "\n") + "\n"
}

func reportRows(r *configure.Report) [][]string {
	rows := make([][]string, 0, len(r.Projects))
	for _, p := range r.Projects {
		rows = append(rows, projectRow(r, p))
	}
	return rows
}

func projectRow(r *configure.Report, p configure.ProjectReport) []string {
	namespace := p.Namespace
	switch {
	case p.Kind == "none":
		namespace = "-"
	case !p.NamespaceSet:
		namespace = "(unset)"
	case namespace == "":
		namespace = `""`
	}
	source := p.NamespaceSource
	if source == "" {
		source = "-"
	}
	sdk := "-"
	if p.CompileSdk > 0 {
		sdk = strconv.Itoa(p.CompileSdk)
	}
	tools := p.BuildTools
	if tools == "" {
		tools = "-"
	}
	buildDir := p.BuildDir
	if rel, err := filepath.Rel(filepath.Dir(r.BuildRoot), p.BuildDir); err == nil && !strings.HasPrefix(rel, "..") {
		buildDir = rel
	}
	return []string{p.Path, p.Kind, namespace, source, sdk, tools, buildDir}
}

func summaryLine(r *configure.Report) string {
	parts := []string{fmt.Sprintf("%d project(s), primary %s", len(r.Projects), r.Primary)}
	if missing := r.Missing(); len(missing) > 0 {
		names := make([]string, 0, len(missing))
		for _, p := range missing {
			names = append(names, p.Path)
		}
		parts = append(parts, unsetStyle.Render(
			fmt.Sprintf("without namespace: %s", strings.Join(names, ", "))))
	}
	var unknown []string
	for _, p := range r.Projects {
		for _, id := range p.UnknownPlugins {
			unknown = append(unknown, p.Path+" "+id)
		}
	}
	if len(unknown) > 0 {
		parts = append(parts, noteStyle.Render(fmt.Sprintf("unhandled plugins: %s", strings.Join(unknown, ", "))))
	}
	return strings.Join(parts, "\n")
}
