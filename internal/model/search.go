package model

// Hit is one similarity search match.
type Hit struct {
	EventID string  `json:"event_id"`
	Score   float64 `json:"score"`
}

// Snapshot is the read-only result of the shared similarity search run once
// per request. A nil or empty snapshot means no shared results are available.
type Snapshot struct {
	Query string
	Hits  []Hit
}

// Empty reports whether the snapshot holds no hits.
func (s *Snapshot) Empty() bool {
	return s == nil || len(s.Hits) == 0
}

// Above returns the hits scoring at least threshold, in rank order.
func (s *Snapshot) Above(threshold float64) []Hit {
	if s == nil {
		return nil
	}
	var out []Hit
	for _, h := range s.Hits {
		if h.Score >= threshold {
			out = append(out, h)
		}
	}
	return out
}

// Scores returns an event id to score map. When an id appears twice the first
// (best ranked) score wins.
func (s *Snapshot) Scores() map[string]float64 {
	out := map[string]float64{}
	if s == nil {
		return out
	}
	for _, h := range s.Hits {
		if _, ok := out[h.EventID]; !ok && h.EventID != "" {
			out[h.EventID] = h.Score
		}
	}
	return out
}
