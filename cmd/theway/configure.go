package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/theway/theway-go/internal/config"
	"github.com/theway/theway-go/internal/theme"
)

func newConfigureCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "configure",
		Short: "Interactive configuration wizard",
		Long: `Launch an interactive wizard to configure theway settings.

The wizard guides you through configuring:
  - Connection settings (backend URL, session cookie, timeout)
  - Display settings (theme, legend, map size)
  - Clustering defaults
  - Route graph defaults

Settings are saved to ~/.config/theway/settings.json

Examples:
  theway configure`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigure(cmd, root)
		},
	}
}

// Wizard sections
const (
	sectionWelcome = iota
	sectionConnection
	sectionDisplay
	sectionClustering
	sectionGraph
	sectionSummary
)

// Field types
const (
	fieldText = iota
	fieldNumber
	fieldBool
	fieldSelect
)

type wizardField struct {
	name        string
	label       string
	help        string
	fieldType   int
	options     []string // for select fields
	optionKeys  []string // keys corresponding to options
	textInput   textinput.Model
	boolValue   bool
	selectIndex int
}

// value returns the field's current value as text
func (f wizardField) value() string {
	switch f.fieldType {
	case fieldBool:
		if f.boolValue {
			return "ON"
		}
		return "OFF"
	case fieldSelect:
		return f.optionKeys[f.selectIndex]
	default:
		return f.textInput.Value()
	}
}

func (f wizardField) isInput() bool {
	return f.fieldType == fieldText || f.fieldType == fieldNumber
}

type wizardModel struct {
	cfg          *config.Config
	savePath     string
	section      int
	fieldIndex   int
	fields       [][]wizardField
	sectionNames []string
	width        int
	height       int
	quitting     bool
	saved        bool
	err          error

	// Styles
	titleStyle    lipgloss.Style
	sectionStyle  lipgloss.Style
	labelStyle    lipgloss.Style
	valueStyle    lipgloss.Style
	helpStyle     lipgloss.Style
	selectedStyle lipgloss.Style
	dimStyle      lipgloss.Style
	successStyle  lipgloss.Style
	errorStyle    lipgloss.Style
}

func newWizardModel(cfg *config.Config, savePath string) wizardModel {
	t := theme.Get(cfg.Display.Theme)
	m := wizardModel{
		cfg:      cfg,
		savePath: savePath,
		section:  sectionWelcome,
		sectionNames: []string{
			"Welcome",
			"Connection",
			"Display",
			"Clustering",
			"Graph",
			"Summary",
		},
		width:  80,
		height: 24,
	}

	m.titleStyle = lipgloss.NewStyle().Bold(true).Foreground(t.PrimaryBright).MarginBottom(1)
	m.sectionStyle = lipgloss.NewStyle().Bold(true).Foreground(t.SecondaryBright)
	m.labelStyle = lipgloss.NewStyle().Foreground(t.Text)
	m.valueStyle = lipgloss.NewStyle().Foreground(t.Primary)
	m.helpStyle = lipgloss.NewStyle().Foreground(t.TextDim).Italic(true)
	m.selectedStyle = lipgloss.NewStyle().Bold(true).Foreground(t.Selected)
	m.dimStyle = lipgloss.NewStyle().Foreground(t.TextDim)
	m.successStyle = lipgloss.NewStyle().Foreground(t.Success)
	m.errorStyle = lipgloss.NewStyle().Foreground(t.Error)

	m.fields = make([][]wizardField, len(m.sectionNames))

	m.fields[sectionConnection] = []wizardField{
		textField("base_url", "Backend URL", "Base URL of the clustering backend", cfg.Connection.BaseURL),
		textField("session_cookie", "Session Cookie", "Cookie header copied from a logged-in browser (optional)", cfg.Connection.SessionCookie),
		numberField("timeout_sec", "Timeout (s)", "How long to wait for a computation", cfg.Connection.TimeoutSec),
	}

	var themeOptions, themeKeys []string
	for _, info := range theme.GetInfo() {
		themeOptions = append(themeOptions, fmt.Sprintf("%s - %s", info.Name, info.Description))
		themeKeys = append(themeKeys, info.Key)
	}
	m.fields[sectionDisplay] = []wizardField{
		selectField("theme", "Color Theme", "Colors of the map and panels", themeOptions, themeKeys, cfg.Display.Theme),
		boolField("show_legend", "Show Legend", "Show the results legend next to the map", cfg.Display.ShowLegend),
		numberField("map_width", "Map Width", "Map columns, 0 fits the terminal", cfg.Display.MapWidth),
		numberField("map_height", "Map Height", "Map rows, 0 fits the terminal", cfg.Display.MapHeight),
	}

	c := cfg.Clustering
	m.fields[sectionClustering] = []wizardField{
		textField("weight_distance", "Distance Weight", "Weight of the distance between points", c.WeightDistance),
		textField("weight_speed", "Speed Weight", "Weight of the speed difference", c.WeightSpeed),
		textField("weight_course", "Course Weight", "Weight of the course difference", c.WeightCourse),
		textField("eps", "Eps", "DBSCAN neighbourhood radius", c.Eps),
		textField("min_samples", "Min Samples", "DBSCAN core point threshold", c.MinSamples),
		textField("metric_degree", "Metric Degree", "Minkowski metric degree", c.MetricDegree),
		selectField("hull_type", "Hull Type", "Shape drawn around each cluster", config.HullTypes, config.HullTypes, c.HullType),
	}

	g := cfg.Graph
	m.fields[sectionGraph] = []wizardField{
		textField("distance_delta", "Distance Delta", "Spacing of graph vertices", g.DistanceDelta),
		textField("weight_func_degree", "Weight Degree", "Degree of the edge weight function", g.WeightFuncDegree),
		textField("angle_of_vision", "Angle of Vision", "Sector searched for neighbours, degrees", g.AngleOfVision),
		textField("weight_time_graph", "Time Weight", "Weight of travel time", g.WeightTimeGraph),
		textField("weight_course_graph", "Course Weight", "Weight of course changes", g.WeightCourseGraph),
		selectField("search_algorithm", "Algorithm", "Route search algorithm", config.SearchAlgorithms, config.SearchAlgorithms, g.SearchAlgorithm),
		boolField("points_inside", "Points Inside", "Require start and end inside the clustered area", g.PointsInside),
	}

	return m
}

func textField(name, label, help, value string) wizardField {
	ti := textinput.New()
	ti.SetValue(value)
	ti.CharLimit = 512
	ti.Width = 40
	return wizardField{name: name, label: label, help: help, fieldType: fieldText, textInput: ti}
}

func numberField(name, label, help string, value int) wizardField {
	ti := textinput.New()
	ti.SetValue(strconv.Itoa(value))
	ti.CharLimit = 10
	ti.Width = 20
	return wizardField{name: name, label: label, help: help, fieldType: fieldNumber, textInput: ti}
}

func boolField(name, label, help string, value bool) wizardField {
	return wizardField{name: name, label: label, help: help, fieldType: fieldBool, boolValue: value}
}

func selectField(name, label, help string, options, keys []string, current string) wizardField {
	selected := 0
	for i, key := range keys {
		if key == current {
			selected = i
			break
		}
	}
	return wizardField{
		name:        name,
		label:       label,
		help:        help,
		fieldType:   fieldSelect,
		options:     options,
		optionKeys:  keys,
		selectIndex: selected,
	}
}

func (m wizardModel) Init() tea.Cmd {
	return textinput.Blink
}

// editing reports whether the cursor is on a field
func (m wizardModel) editing() bool {
	return m.section > sectionWelcome && m.section < sectionSummary && len(m.fields[m.section]) > 0
}

func (m wizardModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			m.quitting = true
			return m, tea.Quit
		case "q":
			if m.section == sectionWelcome || m.section == sectionSummary {
				m.quitting = true
				return m, tea.Quit
			}
		case "esc":
			// Go back
			if m.section > sectionWelcome {
				m.blur()
				m.section--
				m.fieldIndex = 0
				m.focus()
			}
			return m, nil
		case "enter":
			return m.handleEnter()
		case "tab", "down":
			return m.handleNext()
		case "shift+tab", "up":
			return m.handlePrev()
		case "left", "right", " ":
			if m.editing() {
				f := &m.fields[m.section][m.fieldIndex]
				switch {
				case f.fieldType == fieldBool:
					f.boolValue = !f.boolValue
					return m, nil
				case f.fieldType == fieldSelect && msg.String() == "left":
					if f.selectIndex > 0 {
						f.selectIndex--
					}
					return m, nil
				case f.fieldType == fieldSelect && msg.String() == "right":
					if f.selectIndex < len(f.options)-1 {
						f.selectIndex++
					}
					return m, nil
				}
			}
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil
	}

	// Update text input if active
	if m.editing() {
		f := &m.fields[m.section][m.fieldIndex]
		if f.isInput() {
			var cmd tea.Cmd
			f.textInput, cmd = f.textInput.Update(msg)
			return m, cmd
		}
	}

	return m, nil
}

func (m *wizardModel) focus() {
	if m.editing() {
		f := &m.fields[m.section][m.fieldIndex]
		if f.isInput() {
			f.textInput.Focus()
		}
	}
}

func (m *wizardModel) blur() {
	if m.editing() && m.fieldIndex < len(m.fields[m.section]) {
		m.fields[m.section][m.fieldIndex].textInput.Blur()
	}
}

func (m wizardModel) handleEnter() (tea.Model, tea.Cmd) {
	if m.section == sectionSummary {
		// Save and quit
		m.applyFields()
		if err := m.cfg.Validate(); err != nil {
			m.err = err
		} else if err := config.SaveTo(m.cfg, m.savePath); err != nil {
			m.err = err
		} else {
			m.saved = true
		}
		m.quitting = true
		return m, tea.Quit
	}

	return m.handleNext()
}

func (m wizardModel) handleNext() (tea.Model, tea.Cmd) {
	if m.section == sectionSummary {
		return m, nil
	}

	m.blur()
	if m.section == sectionWelcome {
		m.section = sectionConnection
		m.fieldIndex = 0
	} else {
		m.fieldIndex++
		if m.fieldIndex >= len(m.fields[m.section]) {
			m.section++
			m.fieldIndex = 0
		}
	}
	m.focus()

	return m, nil
}

func (m wizardModel) handlePrev() (tea.Model, tea.Cmd) {
	if m.section == sectionWelcome {
		return m, nil
	}

	m.blur()
	m.fieldIndex--
	if m.fieldIndex < 0 {
		if m.section > sectionConnection {
			m.section--
			m.fieldIndex = len(m.fields[m.section]) - 1
		} else {
			m.fieldIndex = 0
		}
	}
	m.focus()

	return m, nil
}

// applyFields copies the wizard's values into the config. Unparseable
// numbers keep their previous value.
func (m *wizardModel) applyFields() {
	cfg := m.cfg
	for _, section := range m.fields {
		for _, f := range section {
			text := strings.TrimSpace(f.textInput.Value())
			number := func(dst *int) {
				if v, err := strconv.Atoi(text); err == nil {
					*dst = v
				}
			}

			switch f.name {
			// Connection
			case "base_url":
				cfg.Connection.BaseURL = text
			case "session_cookie":
				cfg.Connection.SessionCookie = text
			case "timeout_sec":
				number(&cfg.Connection.TimeoutSec)

			// Display
			case "theme":
				cfg.Display.Theme = f.value()
			case "show_legend":
				cfg.Display.ShowLegend = f.boolValue
			case "map_width":
				number(&cfg.Display.MapWidth)
			case "map_height":
				number(&cfg.Display.MapHeight)

			// Clustering
			case "weight_distance":
				cfg.Clustering.WeightDistance = text
			case "weight_speed":
				cfg.Clustering.WeightSpeed = text
			case "weight_course":
				cfg.Clustering.WeightCourse = text
			case "eps":
				cfg.Clustering.Eps = text
			case "min_samples":
				cfg.Clustering.MinSamples = text
			case "metric_degree":
				cfg.Clustering.MetricDegree = text
			case "hull_type":
				cfg.Clustering.HullType = f.value()

			// Graph
			case "distance_delta":
				cfg.Graph.DistanceDelta = text
			case "weight_func_degree":
				cfg.Graph.WeightFuncDegree = text
			case "angle_of_vision":
				cfg.Graph.AngleOfVision = text
			case "weight_time_graph":
				cfg.Graph.WeightTimeGraph = text
			case "weight_course_graph":
				cfg.Graph.WeightCourseGraph = text
			case "search_algorithm":
				cfg.Graph.SearchAlgorithm = f.value()
			case "points_inside":
				cfg.Graph.PointsInside = f.boolValue
			}
		}
	}
}

func (m wizardModel) View() string {
	if m.quitting {
		if m.err != nil {
			return m.errorStyle.Render(fmt.Sprintf("\n  Error saving configuration: %v\n\n", m.err))
		}
		if m.saved {
			return m.successStyle.Render(fmt.Sprintf("\n  Configuration saved to %s\n\n", m.savePath))
		}
		return "\n  Configuration wizard cancelled.\n\n"
	}

	var b strings.Builder

	// Header
	b.WriteString("\n")
	b.WriteString(m.titleStyle.Render("  THEWAY CONFIGURATION WIZARD"))
	b.WriteString("\n\n")

	// Progress indicator
	b.WriteString("  ")
	for i, name := range m.sectionNames {
		switch {
		case i == m.section:
			b.WriteString(m.selectedStyle.Render(fmt.Sprintf("[%s]", name)))
		case i < m.section:
			b.WriteString(m.successStyle.Render(fmt.Sprintf("[%s]", name)))
		default:
			b.WriteString(m.dimStyle.Render(fmt.Sprintf("[%s]", name)))
		}
		if i < len(m.sectionNames)-1 {
			b.WriteString(m.dimStyle.Render(" > "))
		}
	}
	b.WriteString("\n\n")

	switch m.section {
	case sectionWelcome:
		b.WriteString(m.renderWelcome())
	case sectionSummary:
		b.WriteString(m.renderSummary())
	default:
		b.WriteString(m.renderFields())
	}

	// Navigation help
	b.WriteString("\n")
	switch m.section {
	case sectionWelcome:
		b.WriteString(m.helpStyle.Render("  Press Enter to start, q to quit"))
	case sectionSummary:
		b.WriteString(m.helpStyle.Render("  Press Enter to save, Esc to go back, q to quit without saving"))
	default:
		b.WriteString(m.helpStyle.Render("  Tab/Down: next  Shift+Tab/Up: previous  Space: toggle  Esc: back"))
	}
	b.WriteString("\n")

	return b.String()
}

func (m wizardModel) renderWelcome() string {
	welcome := fmt.Sprintf(`  Welcome to the theway Configuration Wizard!

  This wizard will help you configure:

    1. Connection  - Backend URL, session cookie and timeout
    2. Display     - Theme, legend and map size
    3. Clustering  - Default clustering parameters
    4. Graph       - Default route graph parameters

  Your settings will be saved to:
    %s

  Environment variables such as THEWAY_CONNECTION_BASE_URL
  override individual settings.`, m.savePath)

	return m.labelStyle.Render(welcome) + "\n"
}

func (m wizardModel) renderFields() string {
	var b strings.Builder

	b.WriteString(m.sectionStyle.Render(fmt.Sprintf("  %s Settings", m.sectionNames[m.section])))
	b.WriteString("\n\n")

	for i, f := range m.fields[m.section] {
		isSelected := i == m.fieldIndex

		if isSelected {
			b.WriteString(m.selectedStyle.Render(fmt.Sprintf("  > %s: ", f.label)))
		} else {
			b.WriteString(m.labelStyle.Render(fmt.Sprintf("    %s: ", f.label)))
		}

		switch f.fieldType {
		case fieldText, fieldNumber:
			if isSelected {
				b.WriteString(f.textInput.View())
			} else {
				b.WriteString(m.valueStyle.Render(f.textInput.Value()))
			}
		case fieldBool:
			if f.boolValue {
				b.WriteString(m.successStyle.Render("[ON] "))
				b.WriteString(m.dimStyle.Render("OFF"))
			} else {
				b.WriteString(m.dimStyle.Render("ON "))
				b.WriteString(m.errorStyle.Render("[OFF]"))
			}
		case fieldSelect:
			if isSelected {
				b.WriteString(m.dimStyle.Render("< "))
				b.WriteString(m.valueStyle.Render(f.options[f.selectIndex]))
				b.WriteString(m.dimStyle.Render(" >"))
			} else {
				b.WriteString(m.valueStyle.Render(f.options[f.selectIndex]))
			}
		}
		b.WriteString("\n")

		if isSelected && f.help != "" {
			b.WriteString(m.helpStyle.Render(fmt.Sprintf("      %s", f.help)))
			b.WriteString("\n")
		}
	}

	return b.String()
}

func (m wizardModel) renderSummary() string {
	var b strings.Builder

	b.WriteString(m.sectionStyle.Render("  Configuration Summary"))
	b.WriteString("\n\n")

	for section := sectionConnection; section < sectionSummary; section++ {
		b.WriteString(m.labelStyle.Render(fmt.Sprintf("  %s:\n", m.sectionNames[section])))
		for _, f := range m.fields[section] {
			value := f.value()
			if f.name == "session_cookie" && value != "" {
				value = "(set)"
			}
			b.WriteString(fmt.Sprintf("    %s: %s\n", m.dimStyle.Render(f.label), m.valueStyle.Render(value)))
		}
		b.WriteString("\n")
	}

	return b.String()
}

func runConfigure(cmd *cobra.Command, root *rootOptions) error {
	path := root.settingsPath()
	// An invalid file still opens so the wizard can fix it
	cfg, err := config.LoadFrom(path)
	if err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "Warning: %v\n", err)
	}

	p := tea.NewProgram(newWizardModel(cfg, path), tea.WithContext(cmd.Context()))
	_, err = p.Run()
	return err
}
