// Package keywords turns post text into a stream of candidate trend keywords.
package keywords

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"trendlens/internal/domain"
)

// MinWordLength is the exclusive lower bound on the rune length of plain words.
const MinWordLength = 3

// Extractor emits hashtags verbatim and alphabetic words longer than
// MinWordLength runes that are not stopwords.
type Extractor struct {
	stopwords map[string]struct{}
}

// New creates an extractor with the given stopword set. Stopwords are
// compared after lower-casing.
func New(stopwords []string) *Extractor {
	m := make(map[string]struct{}, len(stopwords))
	for _, w := range stopwords {
		m[strings.ToLower(strings.TrimSpace(w))] = struct{}{}
	}
	return &Extractor{stopwords: m}
}

// Extract returns the keywords of one text, duplicates included.
func (e *Extractor) Extract(text string) []string {
	var out []string
	for _, tok := range strings.Fields(strings.ToLower(text)) {
		if strings.HasPrefix(tok, "#") {
			out = append(out, tok)
			continue
		}
		if utf8.RuneCountInString(tok) <= MinWordLength || !isAlpha(tok) {
			continue
		}
		if _, stop := e.stopwords[tok]; stop {
			continue
		}
		out = append(out, tok)
	}
	return out
}

// ExtractAll flattens the keywords of every post in order.
func (e *Extractor) ExtractAll(posts []domain.Post) []string {
	var out []string
	for _, p := range posts {
		out = append(out, e.Extract(p.Text)...)
	}
	return out
}

// Count is a keyword with its number of occurrences. First is the position
// of its first occurrence in the input stream.
type Count struct {
	Keyword string
	N       int
	First   int
}

// Counts tallies keywords, returned in first-encounter order.
func Counts(keywords []string) []Count {
	idx := make(map[string]int, len(keywords))
	var out []Count
	for i, k := range keywords {
		if j, ok := idx[k]; ok {
			out[j].N++
			continue
		}
		idx[k] = len(out)
		out = append(out, Count{Keyword: k, N: 1, First: i})
	}
	return out
}

func isAlpha(s string) bool {
	for _, r := range s {
		if !unicode.IsLetter(r) {
			return false
		}
	}
	return s != ""
}

// DefaultStopwords is the stopword list written into a fresh configuration file.
var DefaultStopwords = []string{
	"about", "above", "after", "again", "also", "been", "before", "being", "below", "between",
	"both", "could", "does", "doing", "down", "during", "each", "from", "further", "have",
	"having", "here", "into", "just", "more", "most", "much", "only", "other", "over",
	"same", "should", "some", "such", "than", "that", "their", "them", "then", "there",
	"these", "they", "this", "those", "through", "under", "until", "very", "what", "when",
	"where", "which", "while", "will", "with", "would", "your", "yours",
}
