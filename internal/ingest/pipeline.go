package ingest

import (
	"strings"
	"unicode"

	"trendlens/internal/domain"
)

// Step transforms a batch of posts before indexing.
type Step interface {
	Apply(posts []domain.Post) []domain.Post
}

// Pipeline applies its steps in order.
type Pipeline []Step

// Apply runs every step. A nil pipeline returns posts unchanged.
func (p Pipeline) Apply(posts []domain.Post) []domain.Post {
	for _, s := range p {
		posts = s.Apply(posts)
	}
	return posts
}

// NewPipeline builds the pre-processing steps from configuration values.
func NewPipeline(blacklist []string, tagSentiment bool) Pipeline {
	var p Pipeline
	if len(blacklist) > 0 {
		p = append(p, NewProfanityFilter(blacklist))
	}
	if tagSentiment {
		p = append(p, SentimentTagger{})
	}
	return p
}

// ProfanityFilter drops posts whose text contains a blacklisted term.
type ProfanityFilter struct {
	terms []string
}

// NewProfanityFilter lower-cases the blacklist once. Blank terms are ignored.
func NewProfanityFilter(blacklist []string) *ProfanityFilter {
	terms := make([]string, 0, len(blacklist))
	for _, b := range blacklist {
		if b = strings.ToLower(strings.TrimSpace(b)); b != "" {
			terms = append(terms, b)
		}
	}
	return &ProfanityFilter{terms: terms}
}

// Apply returns the posts that mention no blacklisted term.
func (f *ProfanityFilter) Apply(posts []domain.Post) []domain.Post {
	out := make([]domain.Post, 0, len(posts))
	for _, p := range posts {
		if !f.Blocked(p.Text) {
			out = append(out, p)
		}
	}
	return out
}

// Blocked reports whether text contains any blacklisted term.
func (f *ProfanityFilter) Blocked(text string) bool {
	lower := strings.ToLower(text)
	for _, t := range f.terms {
		if strings.Contains(lower, t) {
			return true
		}
	}
	return false
}

// Sentiment labels assigned by SentimentTagger.
const (
	Positive = "positive"
	Negative = "negative"
)

// SentimentTagger labels posts by readability: a Flesch reading ease of 60
// or more counts as positive. Posts that already carry a label are kept as is.
type SentimentTagger struct{}

// Apply fills empty Sentiment fields. The input slice is not modified.
func (SentimentTagger) Apply(posts []domain.Post) []domain.Post {
	out := make([]domain.Post, len(posts))
	for i, p := range posts {
		if p.Sentiment == "" {
			p.Sentiment = Negative
			if ReadingEase(p.Text) >= 60 {
				p.Sentiment = Positive
			}
		}
		out[i] = p
	}
	return out
}

// ReadingEase computes the Flesch reading ease of text. Text without words
// scores 0.
func ReadingEase(text string) float64 {
	words, sentences, syllables := 0, 0, 0
	inSentence := false
	for _, tok := range strings.Fields(text) {
		w := strings.TrimFunc(tok, func(r rune) bool { return !unicode.IsLetter(r) && !unicode.IsDigit(r) })
		if w != "" {
			words++
			syllables += countSyllables(w)
			inSentence = true
		}
		if inSentence && strings.ContainsAny(tok, ".!?") {
			sentences++
			inSentence = false
		}
	}
	if words == 0 {
		return 0
	}
	if inSentence || sentences == 0 {
		sentences++
	}
	return 206.835 - 1.015*float64(words)/float64(sentences) - 84.6*float64(syllables)/float64(words)
}

// countSyllables approximates syllables as vowel groups, dropping a silent
// trailing e. Every word has at least one.
func countSyllables(word string) int {
	w := strings.ToLower(word)
	n := 0
	prevVowel := false
	for _, r := range w {
		v := strings.ContainsRune("aeiouy", r)
		if v && !prevVowel {
			n++
		}
		prevVowel = v
	}
	if n > 1 && strings.HasSuffix(w, "e") && !strings.HasSuffix(w, "le") {
		n--
	}
	if n < 1 {
		n = 1
	}
	return n
}
