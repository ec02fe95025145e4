package services

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Provider request limits.
const (
	OpenAITTSMaxChars = 4096
	GoogleTTSMaxBytes = 5000
)

// TextProcessor splits narration text into pieces a speech backend accepts
// in one request, preferring sentence boundaries, then word boundaries.
type TextProcessor struct {
	limit   int
	measure func(string) int
}

// NewRuneTextProcessor limits chunks by character count.
func NewRuneTextProcessor(limit int) *TextProcessor {
	return &TextProcessor{limit: limit, measure: utf8.RuneCountInString}
}

// NewByteTextProcessor limits chunks by UTF-8 byte length.
func NewByteTextProcessor(limit int) *TextProcessor {
	return &TextProcessor{limit: limit, measure: func(s string) int { return len(s) }}
}

// SplitForSynthesis returns text in order as chunks within the limit.
// Whitespace between chunks is normalised to single spaces.
func (tp *TextProcessor) SplitForSynthesis(text string) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	if tp.measure(text) <= tp.limit {
		return []string{text}
	}

	var chunks []string
	current := ""
	flush := func() {
		if current != "" {
			chunks = append(chunks, current)
			current = ""
		}
	}

	for _, sentence := range splitIntoSentences(text) {
		if tp.fits(current, sentence) {
			current = join(current, sentence)
			continue
		}
		flush()
		if tp.measure(sentence) <= tp.limit {
			current = sentence
			continue
		}

		// Sentence alone is too long, fall back to words
		for _, word := range strings.Fields(sentence) {
			if tp.fits(current, word) {
				current = join(current, word)
				continue
			}
			flush()
			if tp.measure(word) <= tp.limit {
				current = word
				continue
			}
			pieces := tp.hardSplit(word)
			chunks = append(chunks, pieces[:len(pieces)-1]...)
			current = pieces[len(pieces)-1]
		}
	}
	flush()

	return chunks
}

func (tp *TextProcessor) fits(current, next string) bool {
	return tp.measure(join(current, next)) <= tp.limit
}

// hardSplit cuts s at rune boundaries into pieces within the limit.
func (tp *TextProcessor) hardSplit(s string) []string {
	var pieces []string
	start := 0
	for i, r := range s {
		if i > start && tp.measure(s[start:i+utf8.RuneLen(r)]) > tp.limit {
			pieces = append(pieces, s[start:i])
			start = i
		}
	}
	return append(pieces, s[start:])
}

func join(a, b string) string {
	if a == "" {
		return b
	}
	return a + " " + b
}

// sentence terminators, including Devanagari/Bengali danda and CJK full stops
func isSentenceEnd(r rune) bool {
	switch r {
	case '.', '!', '?', '।', '॥', '。', '！', '？':
		return true
	}
	return false
}

// splitIntoSentences splits after a terminator followed by whitespace or end of text.
func splitIntoSentences(text string) []string {
	var sentences []string
	runes := []rune(text)
	start := 0
	for i, r := range runes {
		if !isSentenceEnd(r) {
			continue
		}
		if i+1 < len(runes) && !unicode.IsSpace(runes[i+1]) && !isWideTerminator(r) {
			continue
		}
		if s := strings.TrimSpace(string(runes[start : i+1])); s != "" {
			sentences = append(sentences, s)
		}
		start = i + 1
	}
	if s := strings.TrimSpace(string(runes[start:])); s != "" {
		sentences = append(sentences, s)
	}
	return sentences
}

// CJK text does not put spaces after full stops.
func isWideTerminator(r rune) bool {
	return r == '。' || r == '！' || r == '？'
}
