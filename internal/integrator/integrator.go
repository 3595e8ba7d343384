// Package integrator assembles the context digest: it runs the scoring
// modules, merges their candidates, renders the digest and enforces the token
// budget.
package integrator

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"github.com/rcliao/context-digest/internal/config"
	"github.com/rcliao/context-digest/internal/emotions"
	"github.com/rcliao/context-digest/internal/freshness"
	"github.com/rcliao/context-digest/internal/karma"
	"github.com/rcliao/context-digest/internal/logging"
	"github.com/rcliao/context-digest/internal/model"
	"github.com/rcliao/context-digest/internal/patterns"
	"github.com/rcliao/context-digest/internal/scoring"
	"github.com/rcliao/context-digest/internal/search"
	"github.com/rcliao/context-digest/internal/store"
)

// Module is the contract shared by the scoring modules.
type Module[R any] interface {
	Run(ctx context.Context, in model.Input) (R, error)
}

// Modules holds the four scoring modules. Nil entries are treated as
// disabled.
type Modules struct {
	Freshness Module[model.FreshnessResult]
	Emotions  Module[model.EmotionsResult]
	Patterns  Module[model.PatternsResult]
	Karma     Module[model.KarmaResult]
}

// Integrator builds digests. It is safe for concurrent use.
type Integrator struct {
	cfg      *config.Config
	searcher search.Searcher
	mods     Modules
	logger   *log.Logger
}

// New wires the default modules over events and searcher. charts may be nil.
func New(cfg *config.Config, events store.EventStore, searcher search.Searcher, charts karma.Charts, logger *log.Logger) *Integrator {
	if searcher == nil {
		searcher = search.Null{}
	}
	mods := Modules{
		Freshness: freshness.New(cfg, events, logging.For(logger, "freshness")),
		Emotions:  emotions.New(cfg, events, searcher, logging.For(logger, "emotions")),
		Patterns:  patterns.New(cfg, events, searcher, logging.For(logger, "patterns")),
		Karma:     karma.New(cfg, events, searcher, charts, logging.For(logger, "karma")),
	}
	return NewWithModules(cfg, searcher, mods, logger)
}

// NewWithModules builds an integrator around caller-supplied modules.
func NewWithModules(cfg *config.Config, searcher search.Searcher, mods Modules, logger *log.Logger) *Integrator {
	if searcher == nil {
		searcher = search.Null{}
	}
	if logger == nil {
		logger = logging.Discard()
	}
	return &Integrator{cfg: cfg, searcher: searcher, mods: mods, logger: logger}
}

// BuildDigest runs the whole pipeline for req. Module failures are logged and
// replaced by empty results, so it always returns a rendered digest.
func (it *Integrator) BuildDigest(ctx context.Context, req model.Request) model.Result {
	start := time.Now()
	var res model.Result

	c := it.collect(ctx, req, start, &res.Timings)
	res.Skipped = c.skipped

	t := time.Now()
	res.History = prioritize(c, min(maxHistory, it.cfg.Integrator.MaxHistory))
	res.Timings.Prioritize = time.Since(t)

	res.Profile = req.Profile
	res.Patterns = c.patterns.Patterns
	res.EmotionalContext = c.emotions
	res.KarmicContext = c.karma
	res.Situation = situation(req.Query, c.emotions.Dominant)

	t = time.Now()
	digest := render(req.Profile, req.Query, res.History, c.patterns.Patterns, c.emotions, c.karma)
	res.Timings.Format = time.Since(t)

	t = time.Now()
	budget := it.cfg.Integrator.MaxTokens
	if req.MaxTokens > 0 {
		budget = req.MaxTokens
	}
	cpt := it.cfg.Integrator.CharsPerToken
	if est := scoring.EstimateTokens(digest, cpt); est > budget {
		it.logger.Warn("digest over token budget", "user", req.UserID, "tokens", est, "budget", budget)
		digest, res.Truncated = scoring.FitBudget(digest, budget, cpt)
	}
	res.Digest = digest
	res.TokenEstimate = scoring.EstimateTokens(digest, cpt)
	res.Timings.Budget = time.Since(t)
	res.Timings.Total = time.Since(start)

	it.logger.Info("digest built",
		"user", req.UserID,
		"history", len(res.History),
		"patterns", len(res.Patterns),
		"themes", len(res.KarmicContext.Themes),
		"tokens", res.TokenEstimate,
		"elapsed", res.Timings.Total,
	)
	return res
}

// collected is what the modules returned for one request.
type collected struct {
	freshness model.FreshnessResult
	emotions  model.EmotionsResult
	patterns  model.PatternsResult
	karma     model.KarmaResult
	skipped   []string
}

// collect runs the shared search and then the modules. Freshness runs first
// so emotions can skip the events it already chose; the rest run
// concurrently. Optional modules not started before the deadline are skipped.
func (it *Integrator) collect(ctx context.Context, req model.Request, start time.Time, tm *model.Timings) collected {
	var c collected

	now := req.Now
	if now.IsZero() {
		now = start
	}
	in := model.Input{
		UserID:     req.UserID,
		Query:      req.Query,
		Now:        now,
		PeriodDays: req.PeriodDays,
		Limit:      req.Limit,
		Profile:    req.Profile,
	}

	if it.cfg.Search.Enabled && req.Query != "" {
		t := time.Now()
		in.Similar = search.Snapshot(ctx, it.searcher, req.Query, req.UserID,
			it.cfg.Search.Limit, it.cfg.Search.ScoreThreshold, it.logger)
		tm.Search = time.Since(t)
		it.logger.Debug("shared search", "hits", len(in.Similar.Hits))
	}

	c.freshness, tm.Freshness = isolate(ctx, it.logger, model.SourceFreshness, it.mods.Freshness, in)

	emoIn := in
	emoIn.Selected = make(map[string]bool, len(c.freshness.Events))
	for _, e := range c.freshness.Events {
		emoIn.Selected[e.ID] = true
	}

	var deadline time.Time
	if d := it.cfg.Integrator.MaxTime; d > 0 {
		deadline = start.Add(d)
	}
	var (
		mu      sync.Mutex
		skipped = map[string]bool{}
	)
	started := func(name string) bool {
		if deadline.IsZero() || time.Now().Before(deadline) {
			return true
		}
		mu.Lock()
		skipped[name] = true
		mu.Unlock()
		return false
	}

	var g errgroup.Group
	if n := it.cfg.Integrator.Parallelism; n > 0 {
		g.SetLimit(n)
	}
	if req.IncludeEmotions && it.mods.Emotions != nil {
		g.Go(func() error {
			if started(model.SourceEmotions) {
				c.emotions, tm.Emotions = isolate(ctx, it.logger, model.SourceEmotions, it.mods.Emotions, emoIn)
			}
			return nil
		})
	}
	if req.IncludePatterns && it.mods.Patterns != nil {
		g.Go(func() error {
			if started(model.SourcePatterns) {
				c.patterns, tm.Patterns = isolate(ctx, it.logger, model.SourcePatterns, it.mods.Patterns, in)
			}
			return nil
		})
	}
	if req.IncludeKarma && it.mods.Karma != nil {
		g.Go(func() error {
			if started(model.SourceKarma) {
				c.karma, tm.Karma = isolate(ctx, it.logger, model.SourceKarma, it.mods.Karma, in)
			}
			return nil
		})
	}
	_ = g.Wait()

	for _, name := range []string{model.SourceEmotions, model.SourcePatterns, model.SourceKarma} {
		if skipped[name] {
			c.skipped = append(c.skipped, name)
		}
	}
	if len(c.skipped) > 0 {
		it.logger.Warn("time budget exceeded, modules skipped", "user", req.UserID, "skipped", c.skipped)
	}
	return c
}

// isolate runs one module and converts an error or a panic into its zero
// result.
func isolate[R any](ctx context.Context, logger *log.Logger, name string, m Module[R], in model.Input) (res R, elapsed time.Duration) {
	var zero R
	if m == nil {
		return zero, 0
	}
	start := time.Now()
	defer func() {
		elapsed = time.Since(start)
		if r := recover(); r != nil {
			logger.Error("module panicked", "module", name, "panic", fmt.Sprint(r), "stack", string(debug.Stack()))
			res = zero
		}
	}()

	out, err := m.Run(ctx, in)
	if err != nil {
		logger.Error("module failed", "module", name, "err", err)
		return zero, 0
	}
	return out, 0
}
