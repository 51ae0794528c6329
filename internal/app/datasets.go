package app

import (
	"context"

	"github.com/theway/theway-go/internal/gateway"
)

// Datasets is the backend surface the datasets panel needs
type Datasets interface {
	ListDatasets(ctx context.Context) (*gateway.DatasetList, error)
	ChooseDataset(ctx context.Context, id int) (string, error)
	DeleteDataset(ctx context.Context, id int) (string, error)
}

// datasetTab selects which list the panel shows
type datasetTab int

const (
	tabAll datasetTab = iota
	tabMine
)

func (t datasetTab) String() string {
	if t == tabMine {
		return "Mine"
	}
	return "All"
}

// datasetPanel is the state of the datasets panel
type datasetPanel struct {
	tab           datasetTab
	cursor        int
	list          gateway.DatasetList
	loaded        bool
	loading       bool
	confirmDelete bool
}

func (p *datasetPanel) items() []gateway.Dataset {
	if p.tab == tabMine {
		return p.list.Mine
	}
	return p.list.All
}

func (p *datasetPanel) selected() (gateway.Dataset, bool) {
	items := p.items()
	if p.cursor < 0 || p.cursor >= len(items) {
		return gateway.Dataset{}, false
	}
	return items[p.cursor], true
}

func (p *datasetPanel) move(delta int) {
	n := len(p.items())
	if n == 0 {
		p.cursor = 0
		return
	}
	p.cursor = (p.cursor + delta + n) % n
	p.confirmDelete = false
}

func (p *datasetPanel) switchTab() {
	p.tab = 1 - p.tab
	p.cursor = 0
	p.confirmDelete = false
}

func (p *datasetPanel) setList(l gateway.DatasetList) {
	p.list = l
	p.loaded = true
	p.loading = false
	if n := len(p.items()); p.cursor >= n {
		p.cursor = 0
		if n > 0 {
			p.cursor = n - 1
		}
	}
}

func (p *datasetPanel) name(id int) string {
	for _, d := range p.list.All {
		if d.ID == id {
			return d.Name
		}
	}
	return ""
}
