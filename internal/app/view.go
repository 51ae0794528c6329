package app

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/theway/theway-go/internal/geo"
	"github.com/theway/theway-go/internal/picker"
	"github.com/theway/theway-go/internal/theme"
)

// View renders the application
func (m *Model) View() string {
	var sb strings.Builder

	// Header
	sb.WriteString(m.renderHeader())
	sb.WriteString("\n")

	// Main content area
	mapView := m.renderMap()
	var sidebarView string

	switch m.viewMode {
	case ViewParams:
		sidebarView = m.renderParamsPanel()
	case ViewDatasets:
		sidebarView = m.renderDatasetsPanel()
	case ViewLayers:
		sidebarView = m.renderLayersPanel()
	case ViewSettings:
		sidebarView = m.renderSettingsPanel()
	case ViewHelp:
		sidebarView = m.renderHelpPanel()
	default:
		sidebarView = m.renderSidebar()
	}

	// Side by side layout
	mapLines := strings.Split(mapView, "\n")
	sidebarLines := strings.Split(sidebarView, "\n")

	maxLines := len(mapLines)
	if len(sidebarLines) > maxLines {
		maxLines = len(sidebarLines)
	}
	mapWidth := lipgloss.Width(mapLines[0])

	for i := 0; i < maxLines; i++ {
		mapLine := strings.Repeat(" ", mapWidth)
		if i < len(mapLines) {
			mapLine = mapLines[i]
		}
		sidebarLine := ""
		if i < len(sidebarLines) {
			sidebarLine = sidebarLines[i]
		}
		sb.WriteString(mapLine)
		sb.WriteString(" ")
		sb.WriteString(sidebarLine)
		sb.WriteString("\n")
	}

	// Status bar
	sb.WriteString(m.renderStatusBar())
	sb.WriteString("\n")

	// Footer
	sb.WriteString(m.renderFooter())

	result := sb.String()

	// Store last rendered view for screenshot exports
	m.lastRenderedView = result

	return result
}

// innerWidth is the width between the outer frame's borders
func (m *Model) innerWidth() int {
	w, _ := m.view.Size()
	return w + 2 + 1 + sidebarWidth - 2
}

func (m *Model) renderHeader() string {
	borderStyle := lipgloss.NewStyle().Foreground(m.theme.Border)
	primaryBright := lipgloss.NewStyle().Foreground(m.theme.PrimaryBright).Bold(true).Reverse(true)
	secondaryBright := lipgloss.NewStyle().Foreground(m.theme.SecondaryBright).Bold(true)
	infoStyle := lipgloss.NewStyle().Foreground(m.theme.Info)
	successStyle := lipgloss.NewStyle().Foreground(m.theme.Success)
	textDim := lipgloss.NewStyle().Foreground(m.theme.TextDim)

	inner := m.innerWidth()

	var line strings.Builder
	line.WriteString(textDim.Render("░░ "))
	line.WriteString(primaryBright.Render("THEWAY"))
	line.WriteString(textDim.Render(" ░░ "))
	line.WriteString(secondaryBright.Render("VESSEL ROUTE PLANNER"))
	line.WriteString(" ")

	var state string
	if n := m.sess.InFlight(); n > 0 {
		state = infoStyle.Render(m.spinner.View() + " RUNNING " + fmt.Sprint(n))
	} else {
		state = successStyle.Render("● READY")
	}
	fill := inner - 1 - lipgloss.Width(line.String()) - lipgloss.Width(state) - 2
	if fill > 0 {
		line.WriteString(borderStyle.Render(strings.Repeat("═", fill)))
	}
	line.WriteString(" " + state + " ")

	var sb strings.Builder
	sb.WriteString(borderStyle.Render("╔" + strings.Repeat("═", inner) + "╗"))
	sb.WriteString("\n")
	sb.WriteString(borderStyle.Render("║ "))
	sb.WriteString(pad(line.String(), inner-1))
	sb.WriteString(borderStyle.Render("║"))
	sb.WriteString("\n")
	sb.WriteString(borderStyle.Render("╠" + strings.Repeat("═", inner) + "╣"))

	return sb.String()
}

func (m *Model) renderMap() string {
	m.syncView()
	m.view.Draw(m.sess.Registry().Layers())

	title := "MAP"
	switch m.sess.Picker().State() {
	case picker.PickingStart:
		title = "PICK START"
	case picker.PickingEnd:
		title = "PICK END"
	}
	return m.view.Render(title)
}

// box renders a titled sidebar panel
func (m *Model) box(title string, lines []string) string {
	borderStyle := lipgloss.NewStyle().Foreground(m.theme.Border)
	titleStyle := lipgloss.NewStyle().Foreground(m.theme.PrimaryBright)

	inner := sidebarWidth - 2
	label := "◄ " + title + " ►"
	rest := inner - 1 - lipgloss.Width(label)
	if rest < 0 {
		rest = 0
	}

	var sb strings.Builder
	sb.WriteString(borderStyle.Render("╭─") + titleStyle.Render(label) + borderStyle.Render(strings.Repeat("─", rest)+"╮"))
	sb.WriteString("\n")
	for _, l := range lines {
		sb.WriteString(borderStyle.Render("│ "))
		sb.WriteString(pad(l, inner-2))
		sb.WriteString(borderStyle.Render(" │"))
		sb.WriteString("\n")
	}
	sb.WriteString(borderStyle.Render("╰" + strings.Repeat("─", inner) + "╯"))
	return sb.String()
}

func (m *Model) renderSidebar() string {
	var sb strings.Builder

	sb.WriteString(m.renderDatasetBox())
	sb.WriteString("\n")
	sb.WriteString(m.renderPointsBox())
	sb.WriteString("\n")

	if m.config.Display.ShowLegend {
		sb.WriteString(m.renderLegendBox())
	}

	return sb.String()
}

func (m *Model) renderDatasetBox() string {
	textStyle := lipgloss.NewStyle().Foreground(m.theme.Text)
	textDim := lipgloss.NewStyle().Foreground(m.theme.TextDim)
	selectedStyle := lipgloss.NewStyle().Foreground(m.theme.Selected).Bold(true)

	id, ok := m.sess.SelectedDataset()
	if !ok {
		return m.box("DATASET", []string{textDim.Render("none selected  [D] choose")})
	}
	name := m.panel.name(id)
	if name == "" {
		name = "dataset"
	}
	return m.box("DATASET", []string{
		selectedStyle.Render(truncate(name, sidebarWidth-12)) + textDim.Render(fmt.Sprintf(" #%d", id)),
		textStyle.Render(fmt.Sprintf("%d layers on map", m.sess.Registry().Count())),
	})
}

func (m *Model) renderPointsBox() string {
	textDim := lipgloss.NewStyle().Foreground(m.theme.TextDim)
	startStyle := lipgloss.NewStyle().Foreground(m.theme.StartMarker).Bold(true)
	endStyle := lipgloss.NewStyle().Foreground(m.theme.EndMarker).Bold(true)
	warningStyle := lipgloss.NewStyle().Foreground(m.theme.Warning)

	value := func(t picker.Target) string {
		if m.editing && m.editTarget == t {
			return m.coordInputs[t].View()
		}
		if v := m.coordInputs[t].Value(); v != "" {
			return truncate(v, sidebarWidth-10)
		}
		return textDim.Render("-")
	}

	state := m.sess.Picker().State()
	stateLine := textDim.Render("[1]/[2] pick  [A]/[B] type")
	if state != picker.Idle {
		stateLine = warningStyle.Render("▶ " + state.String() + "  [Esc] cancel")
	}

	return m.box("POINTS", []string{
		startStyle.Render("A ") + value(picker.Start),
		endStyle.Render("B ") + value(picker.End),
		stateLine,
	})
}

func (m *Model) renderLegendBox() string {
	textStyle := lipgloss.NewStyle().Foreground(m.theme.Text)
	textDim := lipgloss.NewStyle().Foreground(m.theme.TextDim)
	keyStyle := lipgloss.NewStyle().Foreground(m.theme.Secondary)
	errorStyle := lipgloss.NewStyle().Foreground(m.theme.Error).Bold(true)

	legend := m.sess.Legend()
	var lines []string
	switch {
	case legend.IsError():
		for _, l := range wrap(legend.Message, sidebarWidth-4) {
			lines = append(lines, errorStyle.Render(l))
		}
	case legend.Empty():
		lines = append(lines, textDim.Render("No results yet"))
	default:
		for _, e := range legend.Entries {
			lines = append(lines, keyStyle.Render(truncate(e.Key, sidebarWidth-14)+": ")+textStyle.Render(e.Value))
		}
	}
	return m.box("LEGEND", lines)
}

func (m *Model) renderStatusBar() string {
	borderStyle := lipgloss.NewStyle().Foreground(m.theme.Border)
	borderDim := lipgloss.NewStyle().Foreground(m.theme.BorderDim)
	secondaryBright := lipgloss.NewStyle().Foreground(m.theme.SecondaryBright)
	primaryBright := lipgloss.NewStyle().Foreground(m.theme.PrimaryBright)
	textDim := lipgloss.NewStyle().Foreground(m.theme.TextDim)

	inner := m.innerWidth()

	var sb strings.Builder

	sb.WriteString(borderStyle.Render("╟"))
	sb.WriteString(borderStyle.Render(strings.Repeat("─", inner)))
	sb.WriteString(borderStyle.Render("╢"))
	sb.WriteString("\n")

	var line strings.Builder

	// Coordinates under the cursor
	pixel, geographic := m.sess.Extents()
	c := geo.PixelToCoordinate(pixel, geographic, m.view.CursorPixel())
	line.WriteString(primaryBright.Render(fmt.Sprintf(" %.4f, %.4f ", c.Lat, c.Lon)))
	line.WriteString(borderDim.Render("│"))
	line.WriteString(secondaryBright.Render(fmt.Sprintf(" Z%d ", m.view.Zoom())))
	line.WriteString(borderDim.Render("│"))

	themeName := m.theme.Name
	if len(themeName) > 12 {
		themeName = themeName[:12]
	}
	line.WriteString(textDim.Render(" " + themeName + " "))
	line.WriteString(borderDim.Render("│"))

	// Time
	line.WriteString(secondaryBright.Render(" " + time.Now().Format("15:04:05") + " "))

	// Notification
	if m.notification != "" && m.notificationTime > 0 {
		line.WriteString(borderDim.Render("│"))
		line.WriteString(m.noteStyle().Bold(true).Render(" " + m.notification + " "))
	}

	sb.WriteString(borderStyle.Render("║"))
	sb.WriteString(pad(line.String(), inner))
	sb.WriteString(borderStyle.Render("║"))

	return sb.String()
}

func (m *Model) noteStyle() lipgloss.Style {
	switch m.notificationLvl {
	case noteWarn:
		return lipgloss.NewStyle().Foreground(m.theme.Warning)
	case noteError:
		return lipgloss.NewStyle().Foreground(m.theme.Error)
	default:
		return lipgloss.NewStyle().Foreground(m.theme.Info)
	}
}

func (m *Model) renderFooter() string {
	borderStyle := lipgloss.NewStyle().Foreground(m.theme.Border)
	return borderStyle.Render("╚" + strings.Repeat("═", m.innerWidth()) + "╝")
}

func (m *Model) renderParamsPanel() string {
	textStyle := lipgloss.NewStyle().Foreground(m.theme.Text)
	textDim := lipgloss.NewStyle().Foreground(m.theme.TextDim)
	selectedStyle := lipgloss.NewStyle().Foreground(m.theme.Selected).Bold(true)
	secondaryBright := lipgloss.NewStyle().Foreground(m.theme.SecondaryBright).Bold(true)

	tabs := []string{"Clustering", "Graph"}
	var tabLine strings.Builder
	for i, t := range tabs {
		if i == m.form.section {
			tabLine.WriteString(secondaryBright.Render("[" + t + "]"))
		} else {
			tabLine.WriteString(textDim.Render(" " + t + " "))
		}
		tabLine.WriteString(" ")
	}

	lines := []string{tabLine.String(), ""}
	for i, f := range m.form.fields() {
		prefix, style := "  ", textStyle
		if i == m.form.cursor {
			prefix, style = "▶ ", selectedStyle
		}
		var value string
		switch {
		case f.toggle && f.on:
			value = "[x]"
		case f.toggle:
			value = "[ ]"
		case i == m.form.cursor:
			value = f.input.View()
		default:
			value = f.input.Value()
		}
		lines = append(lines, style.Render(prefix+fmt.Sprintf("%-16s", f.label))+value)
	}
	lines = append(lines, "",
		textDim.Render("[Tab] Section  [↑/↓] Field"),
		textDim.Render("[Enter] Save  [Esc] Discard"))

	return m.box("PARAMETERS", lines)
}

func (m *Model) renderDatasetsPanel() string {
	textStyle := lipgloss.NewStyle().Foreground(m.theme.Text)
	textDim := lipgloss.NewStyle().Foreground(m.theme.TextDim)
	selectedStyle := lipgloss.NewStyle().Foreground(m.theme.Selected).Bold(true)
	secondaryBright := lipgloss.NewStyle().Foreground(m.theme.SecondaryBright).Bold(true)
	successStyle := lipgloss.NewStyle().Foreground(m.theme.Success)
	warningStyle := lipgloss.NewStyle().Foreground(m.theme.Warning).Bold(true)

	var tabLine strings.Builder
	for _, t := range []datasetTab{tabAll, tabMine} {
		if t == m.panel.tab {
			tabLine.WriteString(secondaryBright.Render("[" + t.String() + "]"))
		} else {
			tabLine.WriteString(textDim.Render(" " + t.String() + " "))
		}
		tabLine.WriteString(" ")
	}
	lines := []string{tabLine.String(), ""}

	items := m.panel.items()
	switch {
	case m.panel.loading && !m.panel.loaded:
		lines = append(lines, textDim.Render("Loading..."))
	case len(items) == 0:
		lines = append(lines, textDim.Render("No datasets"))
	}

	current, hasCurrent := m.sess.SelectedDataset()
	for i, ds := range items {
		prefix, style := "  ", textStyle
		if i == m.panel.cursor {
			prefix, style = "▶ ", selectedStyle
		}
		marker := textDim.Render("○ ")
		if hasCurrent && ds.ID == current {
			marker = successStyle.Render("● ")
		}
		lines = append(lines, style.Render(prefix)+marker+style.Render(truncate(ds.Name, sidebarWidth-14))+textDim.Render(fmt.Sprintf(" #%d", ds.ID)))
	}

	lines = append(lines, "")
	if m.panel.confirmDelete {
		if ds, ok := m.panel.selected(); ok {
			lines = append(lines, warningStyle.Render("Delete "+truncate(ds.Name, sidebarWidth-18)+"? [y/N]"))
		}
	} else {
		lines = append(lines,
			textDim.Render("[Enter] Choose  [Tab] All/Mine"),
			textDim.Render("[X] Delete  [R] Refresh  [Esc]"))
	}

	return m.box("DATASETS", lines)
}

func (m *Model) renderLayersPanel() string {
	textStyle := lipgloss.NewStyle().Foreground(m.theme.Text)
	textDim := lipgloss.NewStyle().Foreground(m.theme.TextDim)
	selectedStyle := lipgloss.NewStyle().Foreground(m.theme.Selected).Bold(true)
	successStyle := lipgloss.NewStyle().Foreground(m.theme.Success)

	all := m.sess.Registry().Layers()
	var lines []string
	if len(all) == 0 {
		lines = append(lines, textDim.Render("No layers"))
	}
	for i, l := range all {
		prefix, style := "  ", textStyle
		if i == m.layerCursor {
			prefix, style = "▶ ", selectedStyle
		}
		check := textDim.Render("○ ")
		if l.Visible {
			check = successStyle.Render("● ")
		}
		lines = append(lines, style.Render(prefix)+check+style.Render(fmt.Sprintf("%-11s", l.Name))+textDim.Render(fmt.Sprintf(" %-6s %3.0f%%", l.Kind, l.Opacity*100)))
	}
	lines = append(lines, "",
		textDim.Render("[Enter] Toggle  [U/N] Raise/Lower"),
		textDim.Render("[O/Esc] Close"))

	return m.box("LAYERS", lines)
}

func (m *Model) renderSettingsPanel() string {
	secondaryBright := lipgloss.NewStyle().Foreground(m.theme.SecondaryBright).Bold(true)
	textDim := lipgloss.NewStyle().Foreground(m.theme.TextDim)
	selectedStyle := lipgloss.NewStyle().Foreground(m.theme.Selected).Bold(true)
	textStyle := lipgloss.NewStyle().Foreground(m.theme.Text)
	successStyle := lipgloss.NewStyle().Foreground(m.theme.Success)

	lines := []string{secondaryBright.Render("THEMES")}

	for i, t := range theme.GetInfo() {
		isCurrent := t.Key == m.config.Display.Theme
		isCursor := i == m.settingsCursor

		prefix := "  "
		style := textStyle
		if isCursor {
			prefix = "▶ "
			style = selectedStyle
		}
		marker := textDim.Render("○ ")
		if isCurrent {
			marker = successStyle.Render("● ")
		}

		lines = append(lines, style.Render(prefix)+marker+style.Render(fmt.Sprintf("%-14s", truncate(t.Name, 14)))+textDim.Render(" "+truncate(t.Description, 14)))
	}

	legend := "[ ]"
	if m.config.Display.ShowLegend {
		legend = "[x]"
	}
	lines = append(lines, "",
		textStyle.Render("Legend panel "+legend),
		"",
		textDim.Render("[↑/↓] Navigate  [Enter] Apply"),
		textDim.Render("[L] Legend  [T/Esc] Close"))

	return m.box("SETTINGS", lines)
}

func (m *Model) renderHelpPanel() string {
	secondaryBright := lipgloss.NewStyle().Foreground(m.theme.SecondaryBright).Bold(true)
	textDim := lipgloss.NewStyle().Foreground(m.theme.TextDim)
	primaryBright := lipgloss.NewStyle().Foreground(m.theme.PrimaryBright)
	textStyle := lipgloss.NewStyle().Foreground(m.theme.Text)

	sections := []struct {
		title string
		items [][]string
	}{
		{"MAP", [][]string{{"hjkl", "Move cursor"}, {"HJKL", "Pan"}, {"+/-", "Zoom"}, {"0", "Reset view"}}},
		{"POINTS", [][]string{{"1/2", "Pick start/end"}, {"Enter", "Place point"}, {"A/B", "Type start/end"}, {"Esc", "Cancel pick"}}},
		{"RUN", [][]string{{"C", "Clustering"}, {"G", "Route"}, {"P", "Parameters"}, {"D", "Datasets"}}},
		{"EXPORT", [][]string{{"S", "Screenshot (HTML)"}, {"E", "Legend CSV"}, {"Ctrl+E", "Legend JSON"}}},
		{"PANELS", [][]string{{"O", "Layers"}, {"T", "Themes"}, {"?", "Help"}, {"Q", "Quit"}}},
	}

	var lines []string
	for _, section := range sections {
		lines = append(lines, secondaryBright.Render(section.title))
		for _, item := range section.items {
			lines = append(lines, " "+primaryBright.Render(fmt.Sprintf("[%6s]", item[0]))+" "+textStyle.Render(item[1]))
		}
	}
	lines = append(lines, textDim.Render("Press any key to close"))

	return m.box("HELP", lines)
}

// pad fills s with spaces to width. Wider text is left as is.
func pad(s string, width int) string {
	if w := lipgloss.Width(s); w < width {
		return s + strings.Repeat(" ", width-w)
	}
	return s
}

// truncate shortens plain text to at most n runes
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	if n <= 1 {
		return string(r[:n])
	}
	return string(r[:n-1]) + "…"
}

// wrap breaks plain text into lines of at most width runes
func wrap(s string, width int) []string {
	var lines []string
	var cur []rune
	for _, word := range strings.Fields(s) {
		w := []rune(word)
		if len(cur) > 0 && len(cur)+1+len(w) > width {
			lines = append(lines, string(cur))
			cur = nil
		}
		if len(cur) > 0 {
			cur = append(cur, ' ')
		}
		cur = append(cur, w...)
	}
	if len(cur) > 0 {
		lines = append(lines, string(cur))
	}
	return lines
}
