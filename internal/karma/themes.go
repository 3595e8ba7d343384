package karma

import (
	"sort"
	"strings"

	"github.com/rcliao/context-digest/internal/model"
)

// planetThemes maps a planet placed in the 12th house to its karmic theme.
var planetThemes = map[string]string{
	"sun":     "self_realization",
	"moon":    "emotions",
	"mercury": "communication",
	"venus":   "relationships",
	"mars":    "action",
	"jupiter": "expansion",
	"saturn":  "limitations",
	"uranus":  "change",
	"neptune": "illusions",
	"pluto":   "transformation",
}

// themeKeywords are matched against event tags and text.
var themeKeywords = map[string][]string{
	"relationships":    {"отношения", "партнерство", "любовь", "брак", "relationship", "partnership", "love"},
	"work":             {"работа", "карьера", "профессия", "career", "profession"},
	"health":           {"здоровье", "болезнь", "лечение", "illness", "treatment"},
	"finance":          {"финансы", "деньги", "богатство", "money", "wealth"},
	"family":           {"семья", "предки", "родители", "lineage", "ancestors", "parents"},
	"spiritual":        {"духовность", "развитие", "просветление", "development", "enlightenment"},
	"self_realization": {"самореализация", "призвание", "предназначение", "vocation", "purpose"},
	"emotions":         {"эмоции", "чувства", "emotion", "feelings"},
	"communication":    {"коммуникация", "общение", "разговор", "communication", "conversation"},
	"action":           {"действие", "энергия", "action", "energy"},
	"expansion":        {"расширение", "возможности", "expansion", "opportunity"},
	"limitations":      {"ограничения", "ограничение", "обязанности", "limitation", "duty"},
	"change":           {"изменения", "перемены", "change"},
	"illusions":        {"иллюзии", "мечты", "обман", "illusion", "dreams"},
	"transformation":   {"трансформация", "кризис", "transformation", "crisis"},
}

// themeAliases resolve Russian theme names given in a profile.
var themeAliases = map[string]string{
	"отношения":      "relationships",
	"работа":         "work",
	"здоровье":       "health",
	"финансы":        "finance",
	"семья":          "family",
	"духовность":     "spiritual",
	"самореализация": "self_realization",
}

// defaultThemes seed users with neither a natal chart nor profile themes.
var defaultThemes = []string{"relationships", "work", "health", "finance", "family"}

// maxDetected bounds the tag-derived themes added to the defaults.
const maxDetected = 2

// theme is a base theme before scoring.
type theme struct {
	name   string
	source string
	planet *model.Planet
}

// keywords returns the theme name followed by its lexicon entries.
func (t theme) keywords() []string {
	name := strings.ToLower(t.name)
	kws := []string{name}
	if canon, ok := themeAliases[name]; ok {
		kws = append(kws, canon)
		name = canon
	}
	return append(kws, themeKeywords[name]...)
}

func natalThemes(c *model.NatalChart) []theme {
	if c == nil {
		return nil
	}
	var out []theme
	for i := range c.Planets {
		p := &c.Planets[i]
		if p.House != 12 {
			continue
		}
		if name, ok := planetThemes[strings.ToLower(p.Name)]; ok {
			out = append(out, theme{name: name, source: model.ThemeFromNatalChart, planet: p})
		}
	}
	return out
}

func profileThemes(p *model.Profile) []theme {
	if p == nil {
		return nil
	}
	var out []theme
	for _, name := range p.KarmicThemes {
		if name = strings.TrimSpace(name); name != "" {
			out = append(out, theme{name: name, source: model.ThemeFromProfile})
		}
	}
	return out
}

// detectedThemes returns up to maxDetected tags used at least minFrequency
// times, most used first. Ties keep the order tags were first seen.
func detectedThemes(events []model.Event, minFrequency int, skip map[string]bool) []theme {
	counts := map[string]int{}
	var order []string
	for _, e := range events {
		for _, t := range e.LowerTags() {
			if counts[t] == 0 {
				order = append(order, t)
			}
			counts[t]++
		}
	}
	sort.SliceStable(order, func(i, j int) bool { return counts[order[i]] > counts[order[j]] })

	var out []theme
	for _, t := range order {
		if len(out) == maxDetected || counts[t] < minFrequency {
			break
		}
		if skip[t] {
			continue
		}
		out = append(out, theme{name: t, source: model.ThemeDetected})
	}
	return out
}

// baseThemes merges natal and profile themes, natal first and unique by name.
// Without either, the defaults and the detected themes are used.
func baseThemes(chart *model.NatalChart, profile *model.Profile, events []model.Event, minFrequency int) []theme {
	seen := map[string]bool{}
	var out []theme
	for _, t := range append(natalThemes(chart), profileThemes(profile)...) {
		key := strings.ToLower(t.name)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, t)
	}
	if len(out) > 0 {
		return out
	}

	for _, name := range defaultThemes {
		seen[name] = true
		out = append(out, theme{name: name, source: model.ThemeDefault})
	}
	for _, kw := range defaultThemeWords() {
		seen[kw] = true
	}
	return append(out, detectedThemes(events, minFrequency, seen)...)
}

// defaultThemeWords lists the keywords of the default themes, so a tag like
// "работа" is not detected again as its own theme.
func defaultThemeWords() []string {
	var out []string
	for _, name := range defaultThemes {
		out = append(out, themeKeywords[name]...)
	}
	for alias, canon := range themeAliases {
		for _, d := range defaultThemes {
			if canon == d {
				out = append(out, alias)
			}
		}
	}
	return out
}
