// Package summary compiles cached ranking properties into one flat table.
package summary

import (
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/broadband-cli/internal/cache"
	"github.com/sells-group/broadband-cli/internal/model"
)

// Row is one district's line in the summary. Counters follow
// model.RankingProperties order and keep their JSON number text.
type Row struct {
	District string
	Counters []string
}

// Compiler reads the district list and per-district ranking files from a cache.
type Compiler struct {
	cache *cache.Store
	log   *zap.Logger
}

// NewCompiler creates a Compiler over store.
func NewCompiler(store *cache.Store) *Compiler {
	return &Compiler{
		cache: store,
		log:   zap.L().With(zap.String("component", "summary")),
	}
}

// Compile returns one row per district sorted by state abbreviation, then
// geography name. Every district must have a ranking file holding all
// counters; anything absent fails with model.ErrMissingData.
func (c *Compiler) Compile() ([]Row, error) {
	var districts []model.District
	if err := c.cache.Read(cache.DistrictsKey(), &districts); err != nil {
		if eris.Is(err, cache.ErrNotFound) {
			return nil, eris.Wrap(model.ErrMissingData, "summary: district list not downloaded")
		}
		return nil, eris.Wrap(err, "summary: read districts")
	}
	model.SortDistricts(districts)

	rows := make([]Row, 0, len(districts))
	for _, d := range districts {
		row, err := c.row(d.Name())
		if err != nil {
			return nil, err
		}
		rows = append(rows, row)
	}

	c.log.Info("summary compiled", zap.Int("rows", len(rows)))
	return rows, nil
}

func (c *Compiler) row(name string) (Row, error) {
	var props map[string]any
	if err := c.cache.Read(cache.RankingKey(name), &props); err != nil {
		if eris.Is(err, cache.ErrNotFound) {
			return Row{}, eris.Wrapf(model.ErrMissingData, "summary: no ranking properties for %s", name)
		}
		return Row{}, eris.Wrapf(err, "summary: read ranking properties for %s", name)
	}

	row := Row{District: name, Counters: make([]string, len(model.RankingProperties))}
	for i, prop := range model.RankingProperties {
		v, ok := props[prop]
		if !ok {
			return Row{}, eris.Wrapf(model.ErrMissingData, "summary: %s has no %s", name, prop)
		}
		text, ok := model.ScalarText(v)
		if !ok {
			return Row{}, eris.Wrapf(model.ErrMissingData, "summary: %s has a non-scalar %s", name, prop)
		}
		row.Counters[i] = text
	}
	return row, nil
}
