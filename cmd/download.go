package main

import (
	"context"
	"net/url"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sells-group/broadband-cli/internal/bbmap"
	"github.com/sells-group/broadband-cli/internal/cache"
	"github.com/sells-group/broadband-cli/internal/downloader"
	"github.com/sells-group/broadband-cli/internal/fetcher"
	"github.com/sells-group/broadband-cli/internal/model"
	"github.com/sells-group/broadband-cli/internal/store"
	"github.com/sells-group/broadband-cli/internal/summary"
)

const phaseSummary = "summary"

// downloadEnv holds everything the root command needs for one run.
type downloadEnv struct {
	Ledger store.Store // nil when the ledger is disabled
	Cache  *cache.Store
	Engine *downloader.Engine
}

// Close releases the ledger connection.
func (de *downloadEnv) Close() {
	if de.Ledger != nil {
		_ = de.Ledger.Close()
	}
}

// initDownload validates config and builds the fetcher, API client, cache
// and ledger. Callers should defer env.Close().
func initDownload(ctx context.Context) (*downloadEnv, error) {
	if err := cfg.Validate("download"); err != nil {
		return nil, err
	}

	f, err := newFetcher()
	if err != nil {
		return nil, err
	}
	client := bbmap.NewClient(f, bbmap.WithBaseURL(cfg.Broadband.BaseURL))

	c, err := cache.New(cfg.Broadband.DataDir, cfg.Broadband.DataVersion)
	if err != nil {
		return nil, err
	}

	st, err := initStore(ctx)
	if err != nil {
		return nil, err
	}

	return &downloadEnv{
		Ledger: st,
		Cache:  c,
		Engine: downloader.New(client, c, cfg.Broadband.DataVersion),
	}, nil
}

// newFetcher builds the HTTP fetcher, applying the configured rate to the
// API host.
func newFetcher() (*fetcher.HTTPFetcher, error) {
	u, err := url.Parse(cfg.Broadband.BaseURL)
	if err != nil {
		return nil, eris.Wrapf(err, "parse base url %q", cfg.Broadband.BaseURL)
	}
	return fetcher.NewHTTPFetcher(fetcher.HTTPOptions{
		UserAgent:  cfg.Broadband.UserAgent,
		Timeout:    time.Duration(cfg.Broadband.TimeoutSecs) * time.Second,
		MaxRetries: cfg.Broadband.MaxRetries,
		RateLimits: map[string]rate.Limit{u.Host: rate.Limit(cfg.Broadband.RateLimit)},
		Terminal:   bbmap.IsErrorEnvelope,
	}), nil
}

// Run downloads everything missing from the cache, then compiles summary.csv.
// The ledger records the outcome either way.
func (de *downloadEnv) Run(ctx context.Context, opts downloader.RunOpts) error {
	log := zap.L().With(zap.String("data_version", cfg.Broadband.DataVersion))
	rec := startRun(ctx, de.Ledger, cfg.Broadband.DataVersion)

	res, err := de.Engine.Run(ctx, opts)
	result := res.RunResult()

	sum := model.PhaseResult{Name: phaseSummary, Status: model.PhaseStatusSkipped}
	if err == nil {
		sum, err = compileSummary(de.Cache)
	}
	result.Phases = append(result.Phases, sum)

	rec.finish(ctx, result, err)
	if err != nil {
		return err
	}

	log.Info("download complete",
		zap.Int("districts", result.Districts),
		zap.Int("fetched", result.Fetched),
		zap.Int("cached", result.Cached),
		zap.String("summary", de.Cache.SummaryPath()),
	)
	return nil
}

// compileSummary writes summary.csv and reports it as a phase.
func compileSummary(c *cache.Store) (model.PhaseResult, error) {
	p := model.PhaseResult{Name: phaseSummary, Status: model.PhaseStatusComplete}
	start := time.Now()

	rows, err := summary.NewCompiler(c).Compile()
	if err == nil {
		err = summary.WriteCSVFile(c.SummaryPath(), rows)
	}
	if err != nil {
		p.Status = model.PhaseStatusFailed
		p.Error = err.Error()
		p.Duration = time.Since(start).Milliseconds()
		return p, err
	}
	p.Cached = len(rows)
	p.Duration = time.Since(start).Milliseconds()
	return p, nil
}

// runRecorder mirrors a run into the ledger. Ledger failures are logged and
// never fail the run.
type runRecorder struct {
	st  store.Store
	run *model.Run
	log *zap.Logger
}

func startRun(ctx context.Context, st store.Store, version string) *runRecorder {
	rec := &runRecorder{st: st, log: zap.L().With(zap.String("component", "ledger"))}
	if st == nil {
		return rec
	}

	run, err := st.CreateRun(ctx, version)
	if err != nil {
		rec.log.Warn("create run failed", zap.Error(err))
		return rec
	}
	rec.run = run
	rec.log = rec.log.With(zap.String("run_id", run.ID))

	if err := st.UpdateRunStatus(ctx, run.ID, model.RunStatusRunning); err != nil {
		rec.log.Warn("update run status failed", zap.Error(err))
	}
	return rec
}

func (r *runRecorder) finish(ctx context.Context, result *model.RunResult, runErr error) {
	if r.run == nil {
		return
	}
	// Record the outcome even after an interrupt.
	ctx = context.WithoutCancel(ctx)

	for i := range result.Phases {
		p := &result.Phases[i]
		phase, err := r.st.CreatePhase(ctx, r.run.ID, p.Name)
		if err != nil {
			r.log.Warn("create phase failed", zap.String("phase", p.Name), zap.Error(err))
			continue
		}
		if err := r.st.CompletePhase(ctx, phase.ID, p); err != nil {
			r.log.Warn("complete phase failed", zap.String("phase", p.Name), zap.Error(err))
		}
	}

	if runErr != nil {
		if err := r.st.FailRun(ctx, r.run.ID, result, runErr.Error()); err != nil {
			r.log.Warn("fail run failed", zap.Error(err))
		}
		return
	}
	if err := r.st.UpdateRunResult(ctx, r.run.ID, result); err != nil {
		r.log.Warn("update run result failed", zap.Error(err))
	}
}
