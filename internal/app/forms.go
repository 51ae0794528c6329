package app

import (
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/theway/theway-go/internal/config"
)

// Form sections
const (
	sectionClustering = iota
	sectionGraph
)

// field is one row of the parameters panel
type field struct {
	key    string
	label  string
	input  textinput.Model
	toggle bool
	on     bool
}

func newField(key, label, value string) *field {
	ti := textinput.New()
	ti.Prompt = ""
	ti.CharLimit = 32
	ti.Width = 12
	ti.SetValue(value)
	return &field{key: key, label: label, input: ti}
}

func newToggle(key, label string, on bool) *field {
	return &field{key: key, label: label, toggle: true, on: on}
}

// Value returns the text, or "true"/"false" for toggles
func (f *field) Value() string {
	if f.toggle {
		if f.on {
			return "true"
		}
		return "false"
	}
	return f.input.Value()
}

// paramsForm edits the clustering and graph defaults
type paramsForm struct {
	section    int
	cursor     int
	clustering []*field
	graph      []*field
}

func newParamsForm(cfg *config.Config) *paramsForm {
	c, g := cfg.Clustering, cfg.Graph
	f := &paramsForm{
		clustering: []*field{
			newField("weight_distance", "Distance weight", c.WeightDistance),
			newField("weight_speed", "Speed weight", c.WeightSpeed),
			newField("weight_course", "Course weight", c.WeightCourse),
			newField("eps", "Eps", c.Eps),
			newField("min_samples", "Min samples", c.MinSamples),
			newField("metric_degree", "Metric degree", c.MetricDegree),
			newField("hull_type", "Hull type", c.HullType),
		},
		graph: []*field{
			newField("distance_delta", "Distance delta", g.DistanceDelta),
			newField("weight_func_degree", "Weight degree", g.WeightFuncDegree),
			newField("angle_of_vision", "Angle of vision", g.AngleOfVision),
			newField("weight_time_graph", "Time weight", g.WeightTimeGraph),
			newField("weight_course_graph", "Course weight", g.WeightCourseGraph),
			newField("search_algorithm", "Algorithm", g.SearchAlgorithm),
			newToggle("points_inside", "Points inside", g.PointsInside),
		},
	}
	f.focus()
	return f
}

func (f *paramsForm) fields() []*field {
	if f.section == sectionGraph {
		return f.graph
	}
	return f.clustering
}

// Current returns the focused field
func (f *paramsForm) Current() *field {
	return f.fields()[f.cursor]
}

func (f *paramsForm) focus() {
	for _, list := range [][]*field{f.clustering, f.graph} {
		for _, fl := range list {
			if !fl.toggle {
				fl.input.Blur()
			}
		}
	}
	if cur := f.Current(); !cur.toggle {
		cur.input.Focus()
	}
}

func (f *paramsForm) move(delta int) {
	n := len(f.fields())
	f.cursor = (f.cursor + delta + n) % n
	f.focus()
}

func (f *paramsForm) switchSection() {
	f.section = 1 - f.section
	f.cursor = 0
	f.focus()
}

// update feeds a key to the focused field
func (f *paramsForm) update(msg tea.KeyMsg) tea.Cmd {
	cur := f.Current()
	if cur.toggle {
		if msg.String() == " " || msg.Type == tea.KeySpace {
			cur.on = !cur.on
		}
		return nil
	}
	var cmd tea.Cmd
	cur.input, cmd = cur.input.Update(msg)
	return cmd
}

// apply writes the form back into the config
func (f *paramsForm) apply(cfg *config.Config) {
	get := func(list []*field, key string) *field {
		for _, fl := range list {
			if fl.key == key {
				return fl
			}
		}
		return nil
	}
	c := &cfg.Clustering
	c.WeightDistance = get(f.clustering, "weight_distance").Value()
	c.WeightSpeed = get(f.clustering, "weight_speed").Value()
	c.WeightCourse = get(f.clustering, "weight_course").Value()
	c.Eps = get(f.clustering, "eps").Value()
	c.MinSamples = get(f.clustering, "min_samples").Value()
	c.MetricDegree = get(f.clustering, "metric_degree").Value()
	c.HullType = get(f.clustering, "hull_type").Value()

	g := &cfg.Graph
	g.DistanceDelta = get(f.graph, "distance_delta").Value()
	g.WeightFuncDegree = get(f.graph, "weight_func_degree").Value()
	g.AngleOfVision = get(f.graph, "angle_of_vision").Value()
	g.WeightTimeGraph = get(f.graph, "weight_time_graph").Value()
	g.WeightCourseGraph = get(f.graph, "weight_course_graph").Value()
	g.SearchAlgorithm = get(f.graph, "search_algorithm").Value()
	g.PointsInside = get(f.graph, "points_inside").on
}

func newCoordInput(placeholder string) textinput.Model {
	ti := textinput.New()
	ti.Prompt = ""
	ti.Placeholder = placeholder
	ti.CharLimit = 48
	ti.Width = 24
	return ti
}
