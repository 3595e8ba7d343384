package patterns

import (
	"strings"

	"github.com/rcliao/context-digest/internal/model"
	"github.com/rcliao/context-digest/internal/scoring"
)

var themeTags = map[string]string{
	"работа":       "work",
	"work":         "work",
	"карьера":      "work",
	"career":       "work",
	"отношения":    "relationship",
	"relationship": "relationship",
	"семья":        "relationship",
	"family":       "relationship",
	"здоровье":     "health",
	"health":       "health",
	"финансы":      "finance",
	"finance":      "finance",
	"деньги":       "finance",
	"money":        "finance",
	"духовность":   "spiritual",
	"spiritual":    "spiritual",
	"астрология":   "astrology",
	"astrology":    "astrology",
	"конфликт":     "conflict",
	"conflict":     "conflict",
	"решение":      "decision",
	"decision":     "decision",
	"достижение":   "achievement",
	"achievement":  "achievement",
	"успех":        "achievement",
	"success":      "achievement",
}

var themeKeywords = []struct {
	theme    string
	keywords []string
}{
	{"work", []string{"работа", "карьера", "work", "career", "профессия"}},
	{"relationship", []string{"отношения", "relationship", "семья", "family", "любовь", "love"}},
	{"health", []string{"здоровье", "health", "болезнь", "illness", "лечение", "treatment"}},
	{"finance", []string{"финансы", "finance", "деньги", "money", "богатство", "wealth"}},
}

// ClusterKey returns the theme bucket of an event: the first tag found in the
// theme lexicon, else its tag category, else a keyword in the description,
// else "general".
func ClusterKey(e model.Event) string {
	for _, t := range e.LowerTags() {
		if theme, ok := themeTags[t]; ok {
			return theme
		}
	}
	if c := scoring.DetermineCategory(e.Tags); c != model.CategoryGeneral {
		return string(c)
	}
	if e.Description != "" {
		desc := strings.ToLower(e.Description)
		for _, k := range themeKeywords {
			for _, kw := range k.keywords {
				if strings.Contains(desc, kw) {
					return k.theme
				}
			}
		}
	}
	return string(model.CategoryGeneral)
}
