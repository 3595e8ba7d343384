package scoring

import "unicode/utf8"

// TruncationMarker is appended to a digest cut to fit its budget.
const TruncationMarker = "\n...[truncated]"

// EstimateTokens approximates the token count of text as runes/charsPerToken.
func EstimateTokens(text string, charsPerToken int) int {
	if charsPerToken <= 0 {
		charsPerToken = 4
	}
	return utf8.RuneCountInString(text) / charsPerToken
}

// FitBudget hard-truncates text so that, marker included, its estimate stays
// within maxTokens. It reports whether anything was cut.
func FitBudget(text string, maxTokens, charsPerToken int) (string, bool) {
	if charsPerToken <= 0 {
		charsPerToken = 4
	}
	if EstimateTokens(text, charsPerToken) <= maxTokens {
		return text, false
	}
	maxChars := maxTokens * charsPerToken
	marker := []rune(TruncationMarker)
	if maxChars <= len(marker) {
		if maxChars < 0 {
			maxChars = 0
		}
		return string(marker[:maxChars]), true
	}
	r := []rune(text)
	return string(r[:maxChars-len(marker)]) + TruncationMarker, true
}
