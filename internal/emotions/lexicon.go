package emotions

import (
	"strings"

	"github.com/rcliao/context-digest/internal/model"
)

// lexicon lists the keywords of each emotion class. Order matters: on a tie
// the class registered first wins. A keyword listed twice counts twice, as
// "радуется" does for joy.
var lexicon = []struct {
	state    model.EmotionalState
	keywords []string
}{
	{model.Joy, []string{"радость", "счастье", "восторг", "удовольствие", "радуется", "радуется", "рад", "joy", "happy", "pleasure"}},
	{model.Sadness, []string{"грусть", "печаль", "тоска", "уныние", "грустно", "печально", "sad", "sadness", "sorrow"}},
	{model.Anger, []string{"злость", "гнев", "ярость", "раздражение", "злой", "разозлился", "anger", "angry", "rage"}},
	{model.Fear, []string{"страх", "боязнь", "тревога", "опасение", "боюсь", "страшно", "fear", "afraid", "anxiety"}},
	{model.Surprise, []string{"удивление", "изумление", "неожиданность", "удивлен", "surprise", "surprised", "amazed"}},
	{model.Calm, []string{"спокойствие", "умиротворение", "расслабление", "спокоен", "calm", "peaceful", "relaxed"}},
	{model.Anxiety, []string{"тревога", "беспокойство", "волнение", "тревожно", "anxiety", "worried", "nervous"}},
	{model.Tension, []string{"напряжение", "стресс", "давление", "напряжен", "tension", "stress", "pressure"}},
	{model.Excitement, []string{"волнение", "возбуждение", "энтузиазм", "взволнован", "excitement", "excited", "enthusiasm"}},
	{model.Confusion, []string{"путаница", "непонимание", "растерянность", "запутался", "confusion", "confused", "bewildered"}},
	{model.Hope, []string{"надежда", "ожидание", "верю", "hope", "hopeful", "expectation"}},
	{model.Disappointment, []string{"разочарование", "расстройство", "разочарован", "disappointment", "disappointed", "upset"}},
}

// Detect returns the emotion whose keywords appear most often in text. Each
// keyword entry counts once. ok is false when no keyword matches.
func Detect(text string) (state model.EmotionalState, ok bool) {
	text = strings.ToLower(text)
	best := 0
	for _, e := range lexicon {
		n := 0
		for _, kw := range e.keywords {
			if strings.Contains(text, kw) {
				n++
			}
		}
		if n > best {
			best, state = n, e.state
		}
	}
	return state, best > 0
}

// Keywords returns the lexicon entries of state.
func Keywords(state model.EmotionalState) []string {
	for _, e := range lexicon {
		if e.state == state {
			return e.keywords
		}
	}
	return nil
}

func augment(query string, state model.EmotionalState) string {
	kws := Keywords(state)
	if len(kws) > 3 {
		kws = kws[:3]
	}
	return query + " " + strings.Join(kws, " ")
}
