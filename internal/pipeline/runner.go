package pipeline

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/E4Saber/stock-analyzer-sub000/internal/composite"
	"github.com/E4Saber/stock-analyzer-sub000/internal/config"
	"github.com/E4Saber/stock-analyzer-sub000/internal/indicator"
	"github.com/E4Saber/stock-analyzer-sub000/internal/lifecycle"
	"github.com/E4Saber/stock-analyzer-sub000/internal/policy"
	"github.com/E4Saber/stock-analyzer-sub000/internal/regime"
	"github.com/E4Saber/stock-analyzer-sub000/internal/reliability"
	"github.com/E4Saber/stock-analyzer-sub000/internal/scorer"
	"github.com/E4Saber/stock-analyzer-sub000/internal/telemetry"
	"github.com/E4Saber/stock-analyzer-sub000/internal/weights"
)

// SymbolInput is one symbol's materialized data for a cycle. The history
// includes the current session as its newest vector.
type SymbolInput struct {
	Meta    regime.SymbolMeta `json:"meta"`
	Vector  indicator.Vector  `json:"vector"`
	History indicator.History `json:"history"`
}

// CycleInput is everything a cycle consumes, materialized upstream before
// the cycle starts. Nothing in the scoring path blocks on external I/O.
type CycleInput struct {
	Date    time.Time             `json:"date"`
	Market  regime.MarketSnapshot `json:"market"`
	Symbols []SymbolInput         `json:"symbols"`
	Themes  []lifecycle.Theme     `json:"themes"`
}

// SymbolResult carries every output record for one scored symbol.
type SymbolResult struct {
	Symbol    string                   `json:"symbol"`
	Label     regime.Label             `json:"label"`
	Signal    composite.Signal         `json:"signal"`
	Verdict   reliability.Verdict      `json:"verdict"`
	MainForce string                   `json:"main_force"`
	Campaign  *lifecycle.State         `json:"campaign,omitempty"`
	Plan      *policy.Plan             `json:"plan,omitempty"`
	Warnings  []indicator.RangeWarning `json:"warnings,omitempty"`
}

// SymbolFailure records a symbol isolated from the batch, with why.
type SymbolFailure struct {
	Symbol string `json:"symbol"`
	Reason string `json:"reason"`
	Stale  bool   `json:"stale"`
}

// CycleResult is the full output record set for one cycle, keyed by run id.
type CycleResult struct {
	RunID     string             `json:"run_id"`
	Date      time.Time          `json:"date"`
	Regime    string             `json:"regime"`
	Results   []SymbolResult     `json:"results"`
	Failures  []SymbolFailure    `json:"failures,omitempty"`
	Themes    []*lifecycle.State `json:"themes,omitempty"`
	StartedAt time.Time          `json:"started_at"`
	Duration  time.Duration      `json:"duration_ns"`
}

// OutputSink receives finished cycle results. Implementations must be safe
// to call once per cycle; the engine treats sink failures as degradation,
// not cycle failure.
type OutputSink interface {
	WriteCycle(ctx context.Context, result *CycleResult) error
}

// NopSink discards results; the default when no storage collaborator is
// configured.
type NopSink struct{}

func (NopSink) WriteCycle(context.Context, *CycleResult) error { return nil }

// ArtifactWriter is the artifacts collaborator consumed by the runner.
type ArtifactWriter interface {
	WriteCycle(date, runID string, v interface{}) (string, error)
}

// Runner drives scoring cycles: regime once per cycle, then per-symbol
// fan-out over a worker pool, then theme and campaign lifecycle updates.
// It is not safe for concurrent RunCycle calls; cycles are sequential by
// design.
type Runner struct {
	reloader *config.Reloader
	metrics  *telemetry.Metrics
	sink     OutputSink
	writer   ArtifactWriter

	classifier *regime.Classifier

	themeTrackers    map[string]*lifecycle.ThemeTracker
	themeStates      map[string]*lifecycle.State
	campaignTrackers map[string]*lifecycle.ThemeTracker
	campaignStates   map[string]*lifecycle.State
}

// NewRunner wires a runner. Sink and writer may be nil.
func NewRunner(reloader *config.Reloader, metrics *telemetry.Metrics, sink OutputSink, writer ArtifactWriter) (*Runner, error) {
	cfg := reloader.Snapshot()
	classifier, err := regime.NewClassifier(cfg.Regime)
	if err != nil {
		return nil, err
	}
	if sink == nil {
		sink = NopSink{}
	}
	if metrics == nil {
		metrics = telemetry.New()
	}
	return &Runner{
		reloader:         reloader,
		metrics:          metrics,
		sink:             sink,
		writer:           writer,
		classifier:       classifier,
		themeTrackers:    make(map[string]*lifecycle.ThemeTracker),
		themeStates:      make(map[string]*lifecycle.State),
		campaignTrackers: make(map[string]*lifecycle.ThemeTracker),
		campaignStates:   make(map[string]*lifecycle.State),
	}, nil
}

// cycleComponents are rebuilt from the config snapshot each cycle so a hot
// reload between cycles is never visible mid-cycle.
type cycleComponents struct {
	cfg        *config.Engine
	bank       *scorer.Bank
	catalog    *indicator.Catalog
	resolver   *weights.Resolver
	aggregator *composite.Aggregator
	filter     *reliability.Filter
	stages     *lifecycle.Classifier
	policies   *policy.Engine
}

func buildComponents(cfg *config.Engine) (*cycleComponents, error) {
	bank, err := scorer.NewBank(cfg.Scorers)
	if err != nil {
		return nil, err
	}
	catalog, err := scorer.BuildCatalog(cfg.Scorers)
	if err != nil {
		return nil, err
	}
	resolver, err := weights.NewResolver(cfg.Weights)
	if err != nil {
		return nil, err
	}
	aggregator, err := composite.NewAggregator(cfg.Tiers)
	if err != nil {
		return nil, err
	}
	filter, err := reliability.NewFilter(cfg.Reliability, aggregator.Thresholds())
	if err != nil {
		return nil, err
	}
	stages, err := lifecycle.NewClassifier(cfg.Lifecycle)
	if err != nil {
		return nil, err
	}
	policies, err := policy.NewEngine(cfg.Policy)
	if err != nil {
		return nil, err
	}
	return &cycleComponents{
		cfg:        cfg,
		bank:       bank,
		catalog:    catalog,
		resolver:   resolver,
		aggregator: aggregator,
		filter:     filter,
		stages:     stages,
		policies:   policies,
	}, nil
}

type symbolOutcome struct {
	result  *SymbolResult
	failure *SymbolFailure
}

// RunCycle executes one full scoring cycle. A single symbol's failure or
// timeout never aborts the batch.
func (r *Runner) RunCycle(ctx context.Context, input CycleInput) (*CycleResult, error) {
	started := time.Now()
	cfg := r.reloader.MaybeReload()
	comps, err := buildComponents(cfg)
	if err != nil {
		return nil, fmt.Errorf("build cycle components: %w", err)
	}

	// Regime runs once, ahead of all per-symbol work, and its output is
	// broadcast read-only for the rest of the cycle.
	marketRegime := r.classifier.Classify(input.Market)

	result := &CycleResult{
		RunID:     uuid.NewString(),
		Date:      input.Date,
		Regime:    marketRegime.String(),
		StartedAt: started,
	}

	log.Info().
		Str("run_id", result.RunID).
		Time("date", input.Date).
		Str("regime", result.Regime).
		Int("symbols", len(input.Symbols)).
		Int("themes", len(input.Themes)).
		Msg("cycle started")

	outcomes := r.scoreSymbols(ctx, comps, marketRegime, input)
	for _, o := range outcomes {
		if o.failure != nil {
			result.Failures = append(result.Failures, *o.failure)
			continue
		}
		result.Results = append(result.Results, *o.result)
	}
	sort.Slice(result.Results, func(i, j int) bool {
		return result.Results[i].Symbol < result.Results[j].Symbol
	})
	sort.Slice(result.Failures, func(i, j int) bool {
		return result.Failures[i].Symbol < result.Failures[j].Symbol
	})

	// Lifecycle and policy run sequentially over sorted results so state
	// advancement stays deterministic.
	r.advanceCampaigns(comps, input.Date, result)
	r.advanceThemes(comps, input.Date, input.Themes, result)

	result.Duration = time.Since(started)
	r.observeMetrics(result)
	r.emit(ctx, result)

	log.Info().
		Str("run_id", result.RunID).
		Int("scored", len(result.Results)).
		Int("failed", len(result.Failures)).
		Dur("elapsed", result.Duration).
		Msg("cycle finished")
	return result, nil
}

// scoreSymbols fans symbol work out over the configured worker pool. Each
// symbol gets its own time budget; exceeding it marks the symbol stale.
func (r *Runner) scoreSymbols(ctx context.Context, comps *cycleComponents, market regime.MarketRegime, input CycleInput) []symbolOutcome {
	jobs := make(chan SymbolInput)
	outcomes := make([]symbolOutcome, 0, len(input.Symbols))
	var mu sync.Mutex
	var wg sync.WaitGroup

	workers := comps.cfg.Pipeline.Workers
	if workers > len(input.Symbols) && len(input.Symbols) > 0 {
		workers = len(input.Symbols)
	}
	budget := comps.cfg.Pipeline.SymbolTimeout()

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for job := range jobs {
				outcome := r.scoreOne(ctx, comps, market, input.Date, job, budget)
				mu.Lock()
				outcomes = append(outcomes, outcome)
				mu.Unlock()
			}
		}()
	}

	for _, sym := range input.Symbols {
		jobs <- sym
	}
	close(jobs)
	wg.Wait()
	return outcomes
}

// scoreOne runs the scorer → aggregator → filter path for one symbol under
// its time budget, isolating panics at the symbol boundary.
func (r *Runner) scoreOne(ctx context.Context, comps *cycleComponents, market regime.MarketRegime, date time.Time, job SymbolInput, budget time.Duration) symbolOutcome {
	symbol := job.Meta.Symbol
	done := make(chan symbolOutcome, 1)

	go func() {
		defer func() {
			if rec := recover(); rec != nil {
				done <- symbolOutcome{failure: &SymbolFailure{
					Symbol: symbol,
					Reason: fmt.Sprintf("panic: %v", rec),
				}}
			}
		}()

		label := r.classifier.LabelWith(market, date, job.Meta)
		warnings := comps.catalog.Validate(job.Vector)
		dimScores := comps.bank.ScoreAll(job.Vector)
		profile := comps.resolver.Resolve(label)
		signal, err := comps.aggregator.Aggregate(dimScores, profile)
		if err != nil {
			done <- symbolOutcome{failure: &SymbolFailure{Symbol: symbol, Reason: err.Error()}}
			return
		}
		verdict := comps.filter.Check(signal, job.History)

		done <- symbolOutcome{result: &SymbolResult{
			Symbol:    symbol,
			Label:     label,
			Signal:    signal,
			Verdict:   verdict,
			MainForce: comps.policies.InferMainForce(job.History).String(),
			Warnings:  warnings,
		}}
	}()

	timer := time.NewTimer(budget)
	defer timer.Stop()
	select {
	case outcome := <-done:
		return outcome
	case <-timer.C:
		log.Warn().Str("symbol", symbol).Dur("budget", budget).Msg("symbol abandoned as stale")
		return symbolOutcome{failure: &SymbolFailure{Symbol: symbol, Reason: "time budget exceeded", Stale: true}}
	case <-ctx.Done():
		return symbolOutcome{failure: &SymbolFailure{Symbol: symbol, Reason: ctx.Err().Error(), Stale: true}}
	}
}

// advanceCampaigns updates each scored symbol's own accumulation-campaign
// lifecycle and derives its position plan.
func (r *Runner) advanceCampaigns(comps *cycleComponents, date time.Time, result *CycleResult) {
	for i := range result.Results {
		res := &result.Results[i]

		tracker, ok := r.campaignTrackers[res.Symbol]
		if !ok {
			tracker = lifecycle.NewThemeTracker(lifecycle.Theme{ID: res.Symbol, Members: []string{res.Symbol}})
			r.campaignTrackers[res.Symbol] = tracker
		}
		state, ok := r.campaignStates[res.Symbol]
		if !ok {
			state = comps.stages.NewState(res.Symbol, date)
			r.campaignStates[res.Symbol] = state
		}

		before := state.Stage
		features := tracker.Observe([]composite.Signal{res.Signal})
		comps.stages.Advance(state, date, features)
		if state.Stage != before {
			r.metrics.StageTransits.WithLabelValues(before.String(), state.Stage.String()).Inc()
			log.Info().Str("id", res.Symbol).Str("from", before.String()).Str("to", state.StageTag).Msg("campaign stage transition")
		}
		res.Campaign = state.Snapshot()

		if res.Verdict.FinalTier != composite.TierReject {
			force, _ := policy.ParseMainForceType(res.MainForce)
			plan, err := comps.policies.Plan(res.Verdict, state, force)
			if err != nil {
				log.Warn().Err(err).Str("symbol", res.Symbol).Msg("position plan skipped")
			} else {
				res.Plan = &plan
			}
		}
	}
}

// advanceThemes folds member signals into theme features and advances each
// theme's lifecycle state.
func (r *Runner) advanceThemes(comps *cycleComponents, date time.Time, themes []lifecycle.Theme, result *CycleResult) {
	bySymbol := make(map[string]composite.Signal, len(result.Results))
	for _, res := range result.Results {
		bySymbol[res.Symbol] = res.Signal
	}

	for _, theme := range themes {
		tracker, ok := r.themeTrackers[theme.ID]
		if !ok {
			tracker = lifecycle.NewThemeTracker(theme)
			r.themeTrackers[theme.ID] = tracker
		}
		state, ok := r.themeStates[theme.ID]
		if !ok {
			state = comps.stages.NewState(theme.ID, date)
			r.themeStates[theme.ID] = state
		}

		var memberSignals []composite.Signal
		for _, member := range theme.Members {
			if sig, scored := bySymbol[member]; scored {
				memberSignals = append(memberSignals, sig)
			}
		}

		before := state.Stage
		features := tracker.Observe(memberSignals)
		comps.stages.Advance(state, date, features)
		if state.Stage != before {
			r.metrics.StageTransits.WithLabelValues(before.String(), state.Stage.String()).Inc()
			log.Info().Str("id", theme.ID).Str("from", before.String()).Str("to", state.StageTag).Msg("theme stage transition")
		}
		result.Themes = append(result.Themes, state.Snapshot())
	}
}

func (r *Runner) observeMetrics(result *CycleResult) {
	r.metrics.CycleDuration.Observe(result.Duration.Seconds())
	r.metrics.SymbolsScored.Add(float64(len(result.Results)))
	for _, f := range result.Failures {
		if f.Stale {
			r.metrics.SymbolsStale.Inc()
		} else {
			r.metrics.SymbolsFailed.Inc()
		}
	}
	for _, res := range result.Results {
		r.metrics.TierDistribution.WithLabelValues(res.Verdict.FinalTierTag).Inc()
		if !res.Verdict.Passes {
			r.metrics.SignalsDemoted.Inc()
			log.Info().
				Str("symbol", res.Symbol).
				Float64("original", res.Verdict.OriginalScore).
				Float64("discounted", res.Verdict.DiscountedScore).
				Str("final_tier", res.Verdict.FinalTierTag).
				Msg("signal demoted by reliability filter")
		}
	}
}

// emit hands the finished cycle to the artifacts and storage collaborators.
// Failures degrade to logging; they never fail the cycle.
func (r *Runner) emit(ctx context.Context, result *CycleResult) {
	if r.writer != nil {
		if path, err := r.writer.WriteCycle(result.Date.Format("20060102"), result.RunID, result); err != nil {
			log.Error().Err(err).Msg("cycle artifact write failed")
		} else {
			log.Debug().Str("path", path).Msg("cycle artifact written")
		}
	}
	if err := r.sink.WriteCycle(ctx, result); err != nil {
		log.Error().Err(err).Msg("output sink write failed")
	}
}

// CampaignState exposes a symbol's current campaign state, if tracked.
func (r *Runner) CampaignState(symbol string) (*lifecycle.State, bool) {
	s, ok := r.campaignStates[symbol]
	return s, ok
}

// ThemeState exposes a theme's current lifecycle state, if tracked.
func (r *Runner) ThemeState(id string) (*lifecycle.State, bool) {
	s, ok := r.themeStates[id]
	return s, ok
}
