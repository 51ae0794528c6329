package session

import "github.com/theway/theway-go/internal/gateway"

// Entry is one legend line
type Entry struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// Legend is the results panel. It holds either ordered statistics or a
// single error message.
type Legend struct {
	Entries []Entry
	Message string
}

// LegendFromStats builds a legend keeping the backend's key order
func LegendFromStats(s gateway.Stats) Legend {
	entries := make([]Entry, len(s))
	for i, e := range s {
		entries[i] = Entry{Key: e.Key, Value: e.Value}
	}
	return Legend{Entries: entries}
}

// ErrorLegend builds a legend showing only msg
func ErrorLegend(msg string) Legend {
	return Legend{Message: msg}
}

// IsError reports whether the legend shows a failure message
func (l Legend) IsError() bool {
	return l.Message != ""
}

// Empty reports whether there is nothing to show
func (l Legend) Empty() bool {
	return l.Message == "" && len(l.Entries) == 0
}

// Lines renders the legend as "key: value" lines
func (l Legend) Lines() []string {
	if l.Message != "" {
		return []string{l.Message}
	}
	lines := make([]string, len(l.Entries))
	for i, e := range l.Entries {
		lines[i] = e.Key + ": " + e.Value
	}
	return lines
}

func (l Legend) clone() Legend {
	return Legend{Entries: append([]Entry(nil), l.Entries...), Message: l.Message}
}
