// Package karma scores long-horizon themes by how strongly they recur in a
// user's history.
package karma

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/samber/lo"

	"github.com/rcliao/context-digest/internal/config"
	"github.com/rcliao/context-digest/internal/model"
	"github.com/rcliao/context-digest/internal/scoring"
	"github.com/rcliao/context-digest/internal/search"
	"github.com/rcliao/context-digest/internal/store"
)

const (
	maxConfirmed = 10
	themeLimit   = 20
)

// Charts returns a user's validated natal chart, or nil when there is none.
type Charts interface {
	Get(ctx context.Context, userID string) (*model.NatalChart, error)
}

// Module is the karma scorer. It is safe for concurrent use.
type Module struct {
	cfg          config.Karma
	years        int
	minFrequency int
	events       store.EventStore
	searcher     search.Searcher
	charts       Charts
	logger       *log.Logger
}

// New creates the module. charts may be nil, in which case no theme is seeded
// from a natal chart.
func New(cfg *config.Config, events store.EventStore, searcher search.Searcher, charts Charts, logger *log.Logger) *Module {
	if searcher == nil {
		searcher = search.Null{}
	}
	return &Module{
		cfg:          cfg.Karma,
		years:        cfg.HistoryYears,
		minFrequency: cfg.Patterns.MinFrequency,
		events:       events,
		searcher:     searcher,
		charts:       charts,
		logger:       logger,
	}
}

// Run scores the user's base themes against their history.
func (m *Module) Run(ctx context.Context, in model.Input) (model.KarmaResult, error) {
	start := time.Now()
	var res model.KarmaResult
	if !m.cfg.Enabled {
		return res, nil
	}

	now := in.Now
	if now.IsZero() {
		now = time.Now()
	}
	events, err := m.events.Fetch(ctx, store.FetchQuery{
		UserID: in.UserID,
		From:   now.AddDate(0, 0, -365*m.years),
		To:     now,
		Order:  store.NewestFirst,
	})
	if err != nil {
		return res, fmt.Errorf("fetch history: %w", err)
	}

	themes := baseThemes(m.chart(ctx, in.UserID), in.Profile, events, m.minFrequency)
	m.logger.Debug("base themes", "count", len(themes))

	for _, t := range themes {
		relevant := m.relevant(ctx, t, events, in)
		if len(relevant) == 0 {
			continue
		}
		level := m.manifestation(t, relevant, len(events))
		if level < m.cfg.ManifestationFloor {
			continue
		}
		kt := model.KarmicTheme{
			Theme:              t.name,
			ManifestationLevel: level,
			Description:        describe(t, len(relevant), level),
			Source:             t.source,
		}
		for _, e := range lo.Slice(relevant, 0, maxConfirmed) {
			kt.ConfirmedEvents = append(kt.ConfirmedEvents, scoring.Select(e, level, model.SourceKarma))
		}
		res.Themes = append(res.Themes, kt)
	}

	sort.SliceStable(res.Themes, func(i, j int) bool {
		return res.Themes[i].ManifestationLevel > res.Themes[j].ManifestationLevel
	})
	if len(res.Themes) > m.cfg.MaxThemes {
		res.Themes = res.Themes[:m.cfg.MaxThemes]
	}
	res.ActiveThemes = len(res.Themes)
	res.Elapsed = time.Since(start)

	m.logger.Info("karmic themes", "base", len(themes), "active", res.ActiveThemes, "elapsed", res.Elapsed)
	return res, nil
}

func (m *Module) chart(ctx context.Context, userID string) *model.NatalChart {
	if m.charts == nil {
		return nil
	}
	c, err := m.charts.Get(ctx, userID)
	if err != nil {
		m.logger.Warn("natal chart unavailable", "user", userID, "err", err)
		return nil
	}
	return c
}

// relevant returns the events matching the theme by tag or text, followed by
// those found by similarity search, in history order.
func (m *Module) relevant(ctx context.Context, t theme, events []model.Event, in model.Input) []model.Event {
	kws := t.keywords()
	var out []model.Event
	matched := map[string]bool{}
	for _, e := range events {
		if matchesTags(e, kws) || matchesText(e, kws) {
			out = append(out, e)
			matched[e.ID] = true
		}
	}

	if in.Query == "" {
		return out
	}
	hits := m.similar(ctx, t, in)
	if len(hits) == 0 {
		return out
	}
	ids := lo.SliceToMap(hits, func(h model.Hit) (string, bool) { return h.EventID, true })
	for _, e := range events {
		if ids[e.ID] && !matched[e.ID] {
			out = append(out, e)
		}
	}
	return out
}

func (m *Module) similar(ctx context.Context, t theme, in model.Input) []model.Hit {
	if !in.Similar.Empty() {
		return in.Similar.Above(m.cfg.SimilarityThreshold)
	}
	hits, err := m.searcher.Search(ctx, in.Query+" "+t.name, in.UserID, themeLimit, m.cfg.SimilarityThreshold)
	if err != nil {
		m.logger.Warn("theme search failed", "theme", t.name, "err", err)
		return nil
	}
	return hits
}

func matchesTags(e model.Event, kws []string) bool {
	tags := e.LowerTags()
	return lo.SomeBy(kws, func(kw string) bool { return lo.Contains(tags, kw) })
}

func matchesText(e model.Event, kws []string) bool {
	text := e.SearchText()
	return lo.SomeBy(kws, func(kw string) bool { return strings.Contains(text, kw) })
}

// aspectScore rates the natal annotation of a theme. Themes without a source
// planet are neutral.
func aspectScore(t theme) float64 {
	if t.planet == nil {
		return 0.5
	}
	score := 0.5
	if n := len(t.planet.Aspects); n > 0 {
		major := lo.CountBy(t.planet.Aspects, func(a model.Aspect) bool { return a.IsMajor() })
		score += 0.5 * float64(major) / float64(n)
	}
	if t.planet.Retrograde {
		score += 0.1
	}
	return min(1, score)
}

func (m *Module) manifestation(t theme, relevant []model.Event, total int) float64 {
	n := float64(len(relevant))
	repetition := 0.5
	if total > 0 {
		repetition = min(1, n/float64(total)*10)
	}
	scores := []float64{
		min(1, n/10),
		scoring.MeanPriority(relevant),
		repetition,
		aspectScore(t),
	}
	weights := []float64{m.cfg.FrequencyWeight, m.cfg.PriorityWeight, m.cfg.RepetitionWeight, m.cfg.AspectWeight}
	return scoring.Clamp(scoring.CombineScores(scores, weights))
}

// Tier names the manifestation band of a level.
func Tier(level float64) string {
	switch {
	case level >= 0.7:
		return "high"
	case level >= 0.4:
		return "medium"
	default:
		return "low"
	}
}

func describe(t theme, count int, level float64) string {
	var b strings.Builder
	fmt.Fprintf(&b, "karmic theme '%s' manifests at a %s level (seen %d times in history)", t.name, Tier(level), count)
	if p := t.planet; p != nil {
		fmt.Fprintf(&b, ". from the natal chart (%s in house 12", p.Name)
		if p.Sign != "" {
			fmt.Fprintf(&b, ", sign %s", p.Sign)
		}
		if p.Retrograde {
			b.WriteString(", retrograde")
		}
		b.WriteString(")")
		major := lo.Filter(p.Aspects, func(a model.Aspect, _ int) bool { return a.IsMajor() })
		if len(major) > 0 {
			types := lo.Map(lo.Slice(major, 0, 2), func(a model.Aspect, _ int) string { return a.Type })
			fmt.Fprintf(&b, ". major aspects: %s", strings.Join(types, ", "))
		}
	}
	return b.String()
}
