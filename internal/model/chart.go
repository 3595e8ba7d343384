package model

import "time"

// Aspect is an angular relation between two planets of a chart.
type Aspect struct {
	Type        string `json:"type"`
	OtherPlanet string `json:"other_planet"`
}

// MajorAspects are the aspect types counted as major.
var MajorAspects = map[string]bool{
	"conjunction": true,
	"square":      true,
	"trine":       true,
	"opposition":  true,
}

// IsMajor reports whether the aspect is one of the major types.
func (a Aspect) IsMajor() bool {
	return MajorAspects[a.Type]
}

// Planet is a planet placement in a natal chart.
type Planet struct {
	Name       string   `json:"name"`
	House      int      `json:"house"`
	Sign       string   `json:"sign,omitempty"`
	Retrograde bool     `json:"retrograde,omitempty"`
	Aspects    []Aspect `json:"aspects,omitempty"`
}

// NatalChart is the pre-computed chart of a user. Version increases every time
// the chart is recalculated upstream.
type NatalChart struct {
	UserID       string    `json:"user_id"`
	Version      int64     `json:"version"`
	CalculatedAt time.Time `json:"calculated_at"`
	Planets      []Planet  `json:"planets"`
}

// Profile is the optional user profile echoed into the digest.
type Profile struct {
	Name          string   `json:"name,omitempty" yaml:"name,omitempty"`
	SunSign       string   `json:"sun_sign,omitempty" yaml:"sun_sign,omitempty"`
	MoonSign      string   `json:"moon_sign,omitempty" yaml:"moon_sign,omitempty"`
	AscendantSign string   `json:"ascendant_sign,omitempty" yaml:"ascendant_sign,omitempty"`
	KarmicThemes  []string `json:"karmic_themes,omitempty" yaml:"karmic_themes,omitempty"`
}

// Empty reports whether the profile carries any rendered field.
func (p *Profile) Empty() bool {
	return p == nil || (p.Name == "" && p.SunSign == "" && p.MoonSign == "" && p.AscendantSign == "")
}
