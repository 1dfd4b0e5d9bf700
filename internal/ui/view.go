package ui

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"treetally/internal/domain"
)

type uiStyles struct {
	headerStyle     lipgloss.Style
	mutedStyle      lipgloss.Style
	statusStyle     lipgloss.Style
	warnStyle       lipgloss.Style
	cursorStyle     lipgloss.Style
	unreadableStyle lipgloss.Style
	panelBorder     lipgloss.Style
}

func stylesFor(model Model) uiStyles {
	if strings.ToLower(model.state.Prefs.Theme) == "light" {
		return uiStyles{
			headerStyle:     lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("235")),
			mutedStyle:      lipgloss.NewStyle().Foreground(lipgloss.Color("242")),
			statusStyle:     lipgloss.NewStyle().Foreground(lipgloss.Color("25")).Bold(true),
			warnStyle:       lipgloss.NewStyle().Foreground(lipgloss.Color("124")).Bold(true),
			cursorStyle:     lipgloss.NewStyle().Foreground(lipgloss.Color("90")).Bold(true),
			unreadableStyle: lipgloss.NewStyle().Foreground(lipgloss.Color("160")).Italic(true),
			panelBorder:     lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1),
		}
	}
	return uiStyles{
		headerStyle:     lipgloss.NewStyle().Bold(true),
		mutedStyle:      lipgloss.NewStyle().Foreground(lipgloss.Color("241")),
		statusStyle:     lipgloss.NewStyle().Foreground(lipgloss.Color("69")).Bold(true),
		warnStyle:       lipgloss.NewStyle().Foreground(lipgloss.Color("204")).Bold(true),
		cursorStyle:     lipgloss.NewStyle().Foreground(lipgloss.Color("205")).Bold(true),
		unreadableStyle: lipgloss.NewStyle().Foreground(lipgloss.Color("203")).Italic(true),
		panelBorder:     lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1),
	}
}

func (model Model) View() string {
	styles := stylesFor(model)
	if model.showHelp {
		return renderHelpView(model, styles)
	}
	body := renderBody(model, styles)
	footer := renderFooter(model, styles)
	return strings.Join([]string{body, footer}, "\n")
}

func renderBody(model Model, styles uiStyles) string {
	bodyHeight := maxInt(model.listHeight(), 3)
	leftWidth, rightWidth, showRight := splitPanels(model.width)
	left := renderListPanel(model, styles, bodyHeight, leftWidth)
	if !showRight {
		return left
	}
	sep := lipgloss.NewStyle().Foreground(lipgloss.Color("238")).Render("│")
	right := renderDetailPanel(model, styles, rightWidth, bodyHeight)
	return lipgloss.JoinHorizontal(lipgloss.Top, left, sep, right)
}

func renderFooter(model Model, styles uiStyles) string {
	statusLine := trimStatus(model.message, model.width)
	statusStyle := styles.mutedStyle
	lower := strings.ToLower(model.message)
	if strings.Contains(lower, "error") || strings.Contains(lower, "warning") || strings.Contains(lower, "failed") {
		statusStyle = styles.warnStyle
	}
	statusLine = statusStyle.Render(statusLine)

	size, scripts, unreadable := model.state.Totals()
	left := fmt.Sprintf("Total: %s  Scripts: %d  Unreadable: %d  Sort: %s",
		humanize.Bytes(size), scripts, unreadable, strings.ToUpper(string(model.state.Prefs.SortMode)))
	keys := "↑/↓ move  → open  ← up  o sort  r refresh  ? help  q quit"
	if model.refreshing {
		keys = "esc cancel refresh  q quit"
	}
	footerLine := padLine(left, keys, model.width)
	return strings.Join([]string{statusLine, styles.mutedStyle.Render(footerLine)}, "\n")
}

func renderListPanel(model Model, styles uiStyles, height, width int) string {
	width = maxInt(width, 20)
	contentWidth := maxInt(width-2, 10)
	status := "IDLE"
	if model.updating() {
		status = "UPDATING"
	}
	headerLine := padLine(styles.headerStyle.Render("treetally")+"  "+breadcrumbs(model.state.Current), styles.statusStyle.Render(status), contentWidth)
	listHeight := maxInt(height-1, 1)
	entries := model.state.Entries

	lines := make([]string, 0, height)
	lines = append(lines, headerLine)
	if len(entries) == 0 {
		lines = append(lines, styles.mutedStyle.Render("Empty"))
	}
	start := clamp(model.viewTop, 0, maxInt(len(entries)-1, 0))
	end := minInt(start+listHeight, len(entries))
	for index := start; index < end; index++ {
		entry := entries[index]
		line := fmt.Sprintf("%9s %5s %s %s", sizeLabel(entry), scriptLabel(entry), entryIcon(entry), entryName(entry))
		switch {
		case index == model.state.Cursor:
			line = styles.cursorStyle.Render(line)
		case entry.Unreadable():
			line = styles.unreadableStyle.Render(line)
		case !entry.Cached:
			line = styles.mutedStyle.Render(line)
		}
		lines = append(lines, line)
	}
	for len(lines) < height {
		lines = append(lines, "")
	}
	return styles.panelBorder.Width(contentWidth).Render(strings.Join(lines, "\n"))
}

func renderDetailPanel(model Model, styles uiStyles, width, height int) string {
	contentWidth := maxInt(width-2, 10)
	entry := model.state.CurrentEntry()
	if entry == nil {
		return styles.panelBorder.Width(contentWidth).Render("No selection")
	}
	modified := "-"
	if entry.Record.LastModified > 0 {
		modified = time.Unix(int64(entry.Record.LastModified), 0).Format(time.RFC822)
	}
	lines := []string{
		styles.headerStyle.Render("Path"),
		entry.Path,
		"",
		styles.headerStyle.Render("Size"),
		fmt.Sprintf("%s (%s bytes)", humanize.Bytes(entry.Record.Size), humanize.Comma(int64(entry.Record.Size))),
		"",
		styles.headerStyle.Render("Scripts"),
		fmt.Sprintf("%d", entry.Record.ScriptCount),
		"",
		styles.headerStyle.Render("Modified"),
		modified,
		"",
		styles.headerStyle.Render("State"),
		entryState(entry, styles),
	}
	if model.lastResult != nil {
		result := model.lastResult
		lines = append(lines, "",
			styles.headerStyle.Render("Last refresh"),
			fmt.Sprintf("run %s", shortRun(result.RunID)),
			fmt.Sprintf("%d records, %d listed, %d reused", result.Records, result.Walk.Listed, result.Walk.Reused),
			fmt.Sprintf("took %s", result.Duration.Round(time.Millisecond)),
		)
	}
	content := strings.Join(lines, "\n")
	content = lipgloss.NewStyle().Width(contentWidth).Height(height).Render(content)
	return styles.panelBorder.Width(contentWidth).Render(content)
}

func renderHelpView(model Model, styles uiStyles) string {
	bindings := []key.Binding{
		model.keys.Up,
		model.keys.Down,
		model.keys.PageUp,
		model.keys.PageDown,
		model.keys.Enter,
		model.keys.Back,
		model.keys.Refresh,
		model.keys.Cancel,
		model.keys.Sort,
		model.keys.Help,
		model.keys.Quit,
	}
	lines := []string{styles.headerStyle.Render("treetally Help"), ""}
	lines = append(lines, styles.headerStyle.Render("Listing"))
	lines = append(lines, "sizes and script counts are cached totals", "-- not measured yet", "denied entries could not be read")
	lines = append(lines, "", styles.headerStyle.Render("Keys"))
	for _, binding := range bindings {
		keysLabel := strings.Join(binding.Keys(), ", ")
		lines = append(lines, fmt.Sprintf("%-22s %s", keysLabel, binding.Help().Desc))
	}
	lines = append(lines, "", "Press ? to close help")
	width := model.width
	if width <= 0 {
		width = 80
	}
	return styles.panelBorder.Width(maxInt(width-2, 10)).Render(strings.Join(lines, "\n"))
}

func breadcrumbs(path string) string {
	if path == "" {
		return "roots"
	}
	path = filepath.Clean(path)
	parts := strings.Split(path, string(filepath.Separator))
	if parts[0] == "" {
		parts[0] = string(filepath.Separator)
	}
	return strings.Join(parts, " › ")
}

func padLine(left, right string, width int) string {
	if width <= 0 {
		return left
	}
	space := width - lipgloss.Width(left) - lipgloss.Width(right)
	if space < 1 {
		return left + " " + right
	}
	return left + strings.Repeat(" ", space) + right
}

func splitPanels(width int) (int, int, bool) {
	if width < 80 {
		return width, 0, false
	}
	left := maxInt(int(float64(width)*0.6), 40)
	right := width - left - 1
	if right < 30 {
		return width, 0, false
	}
	return left, right, true
}

func entryIcon(entry domain.Child) string {
	if entry.IsDir {
		return "📁"
	}
	return "📄"
}

func entryName(entry domain.Child) string {
	if entry.IsDir && !strings.HasSuffix(entry.Name, string(filepath.Separator)) {
		return entry.Name + string(filepath.Separator)
	}
	return entry.Name
}

func entryState(entry *domain.Child, styles uiStyles) string {
	switch {
	case entry.Unreadable():
		return styles.unreadableStyle.Render("unreadable")
	case !entry.Cached:
		return styles.mutedStyle.Render("not measured")
	default:
		return "ok"
	}
}

func sizeLabel(entry domain.Child) string {
	switch {
	case entry.Unreadable():
		return "denied"
	case !entry.Cached:
		return "--"
	default:
		return humanize.Bytes(entry.Record.Size)
	}
}

func scriptLabel(entry domain.Child) string {
	if !entry.Cached || entry.Record.ScriptCount == 0 {
		return ""
	}
	return fmt.Sprintf("⚙%d", entry.Record.ScriptCount)
}

func shortRun(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func trimStatus(message string, width int) string {
	if width <= 0 {
		return message
	}
	max := width - 4
	if max <= 0 || len(message) <= max {
		return message
	}
	return message[:max] + "..."
}

func clamp(value, min, max int) int {
	if value < min {
		return min
	}
	if value > max {
		return max
	}
	return value
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
