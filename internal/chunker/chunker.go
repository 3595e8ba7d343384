// Package chunker splits event text into chunks for search indexing.
//
// Sizes are counted in runes so Cyrillic and Latin text chunk alike.
package chunker

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	DefaultTargetSize = 400
	DefaultMaxSize    = 600
)

// Options configures chunking behavior.
type Options struct {
	TargetSize int
	MaxSize    int
}

// DefaultOptions returns default chunking options.
func DefaultOptions() Options {
	return Options{
		TargetSize: DefaultTargetSize,
		MaxSize:    DefaultMaxSize,
	}
}

// ChunkResult is one chunk and the paragraph it starts in.
type ChunkResult struct {
	Text      string
	Paragraph int
}

// Chunk splits text into chunks. Short text (<= MaxSize) returns a single chunk.
func Chunk(text string, opts Options) []ChunkResult {
	if opts.TargetSize <= 0 || opts.MaxSize <= 0 {
		opts = DefaultOptions()
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	if runeLen(text) <= opts.MaxSize {
		return []ChunkResult{{Text: text}}
	}

	var pieces []piece
	for i, para := range paragraphs(text) {
		if runeLen(para) <= opts.MaxSize {
			pieces = append(pieces, piece{text: para, paragraph: i})
			continue
		}
		for _, s := range sentences(para) {
			pieces = append(pieces, piece{text: s, paragraph: i})
		}
	}
	return merge(pieces, opts)
}

type piece struct {
	text      string
	paragraph int
}

func runeLen(s string) int { return utf8.RuneCountInString(s) }

// paragraphs splits on blank lines.
func paragraphs(text string) []string {
	var out []string
	for _, p := range strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n\n") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// sentences splits after '.', '!', '?' or '…' followed by whitespace.
func sentences(para string) []string {
	var out []string
	runes := []rune(para)
	start := 0
	for i, r := range runes {
		if !strings.ContainsRune(".!?…", r) {
			continue
		}
		if i+1 < len(runes) && !unicode.IsSpace(runes[i+1]) {
			continue
		}
		if s := strings.TrimSpace(string(runes[start : i+1])); s != "" {
			out = append(out, s)
		}
		start = i + 1
	}
	if s := strings.TrimSpace(string(runes[start:])); s != "" {
		out = append(out, s)
	}
	return out
}

// merge packs pieces up to TargetSize and hard-splits anything over MaxSize.
func merge(pieces []piece, opts Options) []ChunkResult {
	var results []ChunkResult
	var accum piece
	var have bool

	flush := func() {
		if !have {
			return
		}
		if runeLen(accum.text) > opts.MaxSize {
			for _, t := range hardSplit(accum.text, opts.TargetSize) {
				results = append(results, ChunkResult{Text: t, Paragraph: accum.paragraph})
			}
		} else {
			results = append(results, ChunkResult{Text: accum.text, Paragraph: accum.paragraph})
		}
		have = false
	}

	for _, p := range pieces {
		if !have {
			accum, have = p, true
			continue
		}
		sep := " "
		if p.paragraph != accum.paragraph {
			sep = "\n\n"
		}
		combined := accum.text + sep + p.text
		if runeLen(combined) <= opts.TargetSize {
			accum.text = combined
			continue
		}
		flush()
		accum, have = p, true
	}
	flush()
	return results
}

// hardSplit breaks text on word boundaries into chunks of about size runes.
// A single word longer than size is cut mid-word.
func hardSplit(text string, size int) []string {
	var out []string
	var cur []rune
	for _, w := range strings.Fields(text) {
		wr := []rune(w)
		for len(wr) > size {
			if len(cur) > 0 {
				out = append(out, string(cur))
				cur = nil
			}
			out = append(out, string(wr[:size]))
			wr = wr[size:]
		}
		if len(cur) > 0 && len(cur)+1+len(wr) > size {
			out = append(out, string(cur))
			cur = nil
		}
		if len(cur) > 0 {
			cur = append(cur, ' ')
		}
		cur = append(cur, wr...)
	}
	if len(cur) > 0 {
		out = append(out, string(cur))
	}
	return out
}
