// Package downloader walks the broadband map API and memoizes every
// response in the file cache, so a rerun only fetches what is missing.
package downloader

import (
	"context"
	"encoding/json"
	"time"

	"github.com/ohler55/ojg/jp"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/broadband-cli/internal/bbmap"
	"github.com/sells-group/broadband-cli/internal/cache"
	"github.com/sells-group/broadband-cli/internal/model"
)

// Phase names, in the order they appear in a Result.
const (
	PhaseDistricts = "districts"
	PhaseProviders = "providers"
	PhaseStats     = "stats"
	PhaseRanking   = "ranking"
)

var providerListPath = jp.MustParseString("$.allProviders")

// RunOpts controls optional parts of the traversal.
type RunOpts struct {
	// ProviderStatistics enables the per-provider stats fetch.
	ProviderStatistics bool
}

// Result summarizes a run. It is returned even when the run fails, holding
// the counts gathered up to the failure.
type Result struct {
	Districts int
	Phases    []model.PhaseResult
}

// Fetched is the total number of network calls across phases.
func (r *Result) Fetched() int {
	n := 0
	for _, p := range r.Phases {
		n += p.Fetched
	}
	return n
}

// Cached is the total number of resources found on disk across phases.
func (r *Result) Cached() int {
	n := 0
	for _, p := range r.Phases {
		n += p.Cached
	}
	return n
}

// RunResult converts r into its ledger form.
func (r *Result) RunResult() *model.RunResult {
	return &model.RunResult{
		Districts: r.Districts,
		Fetched:   r.Fetched(),
		Cached:    r.Cached(),
		Phases:    r.Phases,
	}
}

// Engine drives the check-then-fetch-then-cache traversal for one data version.
type Engine struct {
	client  bbmap.Client
	cache   *cache.Store
	version string
	log     *zap.Logger
}

// New creates an Engine writing into store.
func New(client bbmap.Client, store *cache.Store, version string) *Engine {
	return &Engine{
		client:  client,
		cache:   store,
		version: version,
		log:     zap.L().With(zap.String("component", "downloader"), zap.String("data_version", version)),
	}
}

// Run lists all districts, then for each district in list order fetches its
// provider list, optionally each provider's stats, and its ranking
// properties. Any error aborts the run; everything cached so far is kept.
func (e *Engine) Run(ctx context.Context, opts RunOpts) (*Result, error) {
	t := newTracker()
	result := &Result{}
	defer func() { result.Phases = t.results() }()

	var districts []model.District
	err := t.track(PhaseDistricts, func(p *model.PhaseResult) error {
		if err := e.ensure(ctx, p, cache.DistrictsKey(), e.client.Districts); err != nil {
			return err
		}
		if err := e.cache.Read(cache.DistrictsKey(), &districts); err != nil {
			return eris.Wrap(err, "downloader: read districts")
		}
		return nil
	})
	if err != nil {
		return result, err
	}
	result.Districts = len(districts)

	lookup := model.NewStateLookup(districts)
	agg := NewAggregator(e.client, e.cache, lookup)

	for i, d := range districts {
		name := d.Name()
		stateFips, geoID := d.StateFips.String(), d.GeographyID.String()

		err := t.track(PhaseProviders, func(p *model.PhaseResult) error {
			return e.ensure(ctx, p, cache.ProvidersKey(name), func(ctx context.Context) (json.RawMessage, error) {
				return e.client.Providers(ctx, e.version, stateFips, geoID)
			})
		})
		if err != nil {
			return result, eris.Wrapf(err, "downloader: providers for %s", name)
		}

		if opts.ProviderStatistics {
			err := t.track(PhaseStats, func(p *model.PhaseResult) error {
				return e.fetchStats(ctx, p, d)
			})
			if err != nil {
				return result, eris.Wrapf(err, "downloader: stats for %s", name)
			}
		}

		err = t.track(PhaseRanking, func(p *model.PhaseResult) error {
			return e.fetchRanking(ctx, p, agg, d)
		})
		if err != nil {
			return result, err
		}

		if (i+1)%50 == 0 {
			e.log.Info("progress", zap.Int("done", i+1), zap.Int("total", len(districts)))
		}
	}

	e.log.Info("download complete", zap.Int("districts", len(districts)))
	return result, nil
}

// ensure fetches key through fetch unless it is already cached.
func (e *Engine) ensure(ctx context.Context, p *model.PhaseResult, key cache.Key, fetch func(context.Context) (json.RawMessage, error)) error {
	if err := ctx.Err(); err != nil {
		return eris.Wrap(err, "downloader: interrupted")
	}

	ok, err := e.cache.Exists(key)
	if err != nil {
		return err
	}
	if ok {
		e.log.Debug("cache hit", zap.String("key", string(key)))
		p.Cached++
		return nil
	}

	raw, err := fetch(ctx)
	if err != nil {
		return err
	}
	if err := e.cache.Write(key, raw); err != nil {
		return err
	}
	p.Fetched++
	return nil
}

func (e *Engine) fetchStats(ctx context.Context, p *model.PhaseResult, d model.District) error {
	name := d.Name()
	ids, err := e.providerIDs(name)
	if err != nil {
		return err
	}
	for _, id := range ids {
		err := e.ensure(ctx, p, cache.StatsKey(name, id), func(ctx context.Context) (json.RawMessage, error) {
			return e.client.ProviderStats(ctx, e.version, d.StateFips.String(), d.GeographyID.String(), id)
		})
		if err != nil {
			return eris.Wrapf(err, "provider %s", id)
		}
	}
	return nil
}

// providerIDs reads the cached provider list of a district and returns each
// holdingCompanyNumber as its literal JSON text.
func (e *Engine) providerIDs(district string) ([]string, error) {
	var root any
	if err := e.cache.Read(cache.ProvidersKey(district), &root); err != nil {
		return nil, err
	}

	found := providerListPath.Get(root)
	if len(found) == 0 {
		return nil, eris.Wrapf(model.ErrMissingData, "provider list for %s has no allProviders", district)
	}
	list, ok := found[0].([]any)
	if !ok {
		return nil, eris.Wrapf(model.ErrMissingData, "allProviders for %s is not a list", district)
	}

	ids := make([]string, 0, len(list))
	for i, entry := range list {
		m, _ := entry.(map[string]any)
		id, ok := model.ScalarText(m["holdingCompanyNumber"])
		if !ok || id == "" {
			return nil, eris.Wrapf(model.ErrMissingData, "provider %d of %s has no holdingCompanyNumber", i, district)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func (e *Engine) fetchRanking(ctx context.Context, p *model.PhaseResult, agg *Aggregator, d model.District) error {
	if err := ctx.Err(); err != nil {
		return eris.Wrap(err, "downloader: interrupted")
	}

	name := d.Name()
	key := cache.RankingKey(name)
	ok, err := e.cache.Exists(key)
	if err != nil {
		return err
	}
	if ok {
		e.log.Debug("cache hit", zap.String("key", string(key)))
		p.Cached++
		return nil
	}

	if _, err := agg.Aggregate(ctx, e.version, d); err != nil {
		return err
	}
	p.Fetched++

	ok, err = e.cache.Exists(key)
	if err != nil {
		return err
	}
	if !ok {
		return eris.Wrapf(model.ErrMissingData,
			"downloader: %s is missing from its own ranking response", name)
	}
	return nil
}

// tracker accumulates per-phase counts and durations across districts.
type tracker struct {
	order  []string
	phases map[string]*model.PhaseResult
}

func newTracker() *tracker {
	t := &tracker{
		order:  []string{PhaseDistricts, PhaseProviders, PhaseStats, PhaseRanking},
		phases: make(map[string]*model.PhaseResult),
	}
	for _, name := range t.order {
		t.phases[name] = &model.PhaseResult{Name: name}
	}
	return t
}

func (t *tracker) track(name string, fn func(p *model.PhaseResult) error) error {
	p := t.phases[name]
	if p.Status == "" {
		p.Status = model.PhaseStatusComplete
	}
	start := time.Now()
	err := fn(p)
	p.Duration += time.Since(start).Milliseconds()
	if err != nil {
		p.Status = model.PhaseStatusFailed
		p.Error = err.Error()
	}
	return err
}

func (t *tracker) results() []model.PhaseResult {
	out := make([]model.PhaseResult, 0, len(t.order))
	for _, name := range t.order {
		p := *t.phases[name]
		// Never entered: disabled or cut short by an earlier failure.
		if p.Status == "" {
			p.Status = model.PhaseStatusSkipped
		}
		out = append(out, p)
	}
	return out
}
