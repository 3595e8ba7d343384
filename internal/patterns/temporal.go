package patterns

import (
	"fmt"
	"sort"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/rcliao/context-digest/internal/model"
)

// SignalKind classifies a temporal signal.
type SignalKind string

const (
	Seasonal SignalKind = "seasonal"
	Cyclic   SignalKind = "cyclic"
	Weekday  SignalKind = "weekday"
)

// Signal is a temporal regularity found across the whole history.
type Signal struct {
	Kind      SignalKind
	Month     time.Month
	Interval  int
	Weekday   time.Weekday
	Frequency int
}

func (s Signal) String() string {
	switch s.Kind {
	case Seasonal:
		return fmt.Sprintf("seasonal pattern: increased activity in %s", s.Month)
	case Cyclic:
		return fmt.Sprintf("cyclic pattern: events repeat every %d days", s.Interval)
	default:
		return fmt.Sprintf("weekday pattern: increased activity on %ss", s.Weekday)
	}
}

// mondayFirst orders weekdays Monday to Sunday.
var mondayFirst = []time.Weekday{
	time.Monday, time.Tuesday, time.Wednesday, time.Thursday,
	time.Friday, time.Saturday, time.Sunday,
}

// temporalSignals mines seasonality, cyclicity and weekday bias. History
// shorter than minEvents yields nothing. Signals come out seasonal first,
// then cyclic, then weekday, each in calendar or interval order.
func temporalSignals(events []model.Event, minEvents, minInterval int, seasonality bool) []Signal {
	if len(events) == 0 || len(events) < minEvents {
		return nil
	}
	var out []Signal
	if seasonality {
		out = append(out, seasonal(events)...)
	}
	out = append(out, cyclic(events, minInterval)...)
	out = append(out, weekday(events)...)
	return out
}

func seasonal(events []model.Event) []Signal {
	counts := map[time.Month]int{}
	for _, e := range events {
		counts[e.CreatedAt.UTC().Month()]++
	}
	mean := meanCount(counts)

	var out []Signal
	for m := time.January; m <= time.December; m++ {
		if n, ok := counts[m]; ok && float64(n) >= 1.5*mean {
			out = append(out, Signal{Kind: Seasonal, Month: m, Frequency: n})
		}
	}
	return out
}

func cyclic(events []model.Event, minInterval int) []Signal {
	if len(events) < 3 {
		return nil
	}
	times := make([]time.Time, len(events))
	for i, e := range events {
		times[i] = e.CreatedAt
	}
	sort.Slice(times, func(i, j int) bool { return times[i].Before(times[j]) })

	counts := map[int]int{}
	for i := 1; i < len(times); i++ {
		gap := int(times[i].Sub(times[i-1]).Hours() / 24)
		if gap >= minInterval {
			counts[gap]++
		}
	}
	gaps := make([]int, 0, len(counts))
	for g, n := range counts {
		if n >= 2 {
			gaps = append(gaps, g)
		}
	}
	sort.Ints(gaps)

	out := make([]Signal, 0, len(gaps))
	for _, g := range gaps {
		out = append(out, Signal{Kind: Cyclic, Interval: g, Frequency: counts[g]})
	}
	return out
}

func weekday(events []model.Event) []Signal {
	counts := map[time.Weekday]int{}
	for _, e := range events {
		counts[e.CreatedAt.UTC().Weekday()]++
	}
	mean := meanCount(counts)

	var out []Signal
	for _, d := range mondayFirst {
		if n, ok := counts[d]; ok && float64(n) >= 1.3*mean {
			out = append(out, Signal{Kind: Weekday, Weekday: d, Frequency: n})
		}
	}
	return out
}

// meanCount is the mean over the keys present.
func meanCount[K comparable](counts map[K]int) float64 {
	if len(counts) == 0 {
		return 0
	}
	vals := make([]float64, 0, len(counts))
	for _, n := range counts {
		vals = append(vals, float64(n))
	}
	return stat.Mean(vals, nil)
}
