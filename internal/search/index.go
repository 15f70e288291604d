// Package search provides a small, deterministic, concurrency-safe in-memory
// index over cached breeds, so the catalog can be searched while offline.
//
//   - No logging in the index itself (Live logs rebuild failures)
//   - Functional options (Option pattern)
//   - Unicode-aware tokenization with diacritic folding and optional
//     stop-word removal
//   - Immutable after construction; Live swaps whole indices atomically
//   - Deterministic scoring and sorting (stable order for ties)
//
// Scoring uses Jaccard similarity between the query token set and each
// breed's token set (name, temperament, bred-for, group and origin):
// score = |Q ∩ D| / |Q ∪ D|. A query token that is a prefix of a name token
// adds a fixed bonus so partial names still rank.
package search

import (
	"regexp"
	"sort"
	"strings"

	"github.com/tbourn/go-dogbreeds/internal/domain"
)

// Result is a ranked breed with its similarity score.
type Result struct {
	ID    int     `json:"id"`
	Name  string  `json:"name"`
	Score float64 `json:"score"`
}

// Index is the minimal interface implemented by all search indices.
type Index interface {
	TopK(query string, k int) []Result
	Len() int
}

// ----------------------------------------------------------------------------
// Options

type Option func(*config)

type config struct {
	stopwords   map[string]struct{}
	maxDocs     int
	prefixBonus float64
}

func defaultConfig() config {
	return config{
		stopwords:   nil,
		maxDocs:     0,
		prefixBonus: 0.25,
	}
}

// WithStopwords drops the given words from documents and queries.
func WithStopwords(words []string) Option {
	return func(c *config) {
		m := make(map[string]struct{}, len(words))
		for _, w := range words {
			w = fold(strings.TrimSpace(w))
			if w != "" {
				m[w] = struct{}{}
			}
		}
		if len(m) > 0 {
			c.stopwords = m
		}
	}
}

// WithMaxDocs caps the number of indexed breeds.
func WithMaxDocs(n int) Option {
	return func(c *config) {
		if n > 0 {
			c.maxDocs = n
		}
	}
}

// WithPrefixBonus sets the score added when a query token prefixes a name
// token. Negative values are ignored.
func WithPrefixBonus(b float64) Option {
	return func(c *config) {
		if b >= 0 {
			c.prefixBonus = b
		}
	}
}

// ----------------------------------------------------------------------------
// Implementation

type doc struct {
	id     int
	name   string
	names  []string
	tokens map[string]struct{}
}

type index struct {
	cfg  config
	docs []doc
}

// NewIndex builds an Index over breeds.
func NewIndex(breeds []domain.Breed, opts ...Option) Index {
	cfg := defaultConfig()
	for _, o := range opts {
		o(&cfg)
	}
	return buildIndex(breeds, cfg)
}

func buildIndex(breeds []domain.Breed, cfg config) *index {
	docs := make([]doc, 0, len(breeds))
	for _, b := range breeds {
		text := strings.Join([]string{b.Name, b.Temperament, b.BredFor, b.BreedGroup, b.Origin}, " ")
		toks := tokenize(text, cfg.stopwords)
		if len(toks) == 0 {
			continue
		}
		docs = append(docs, doc{
			id:     b.ID,
			name:   b.Name,
			names:  words(b.Name),
			tokens: toks,
		})
		if cfg.maxDocs > 0 && len(docs) >= cfg.maxDocs {
			break
		}
	}
	return &index{cfg: cfg, docs: docs}
}

func (i *index) Len() int { return len(i.docs) }

// TopK returns up to k best-matching breeds. k <= 0 means 10.
func (i *index) TopK(q string, k int) []Result {
	if len(i.docs) == 0 || strings.TrimSpace(q) == "" {
		return nil
	}
	if k <= 0 {
		k = 10
	}
	qTokens := tokenize(q, i.cfg.stopwords)
	if len(qTokens) == 0 {
		return nil
	}
	qLen := len(qTokens)

	buf := make([]Result, 0, min(k*4, len(i.docs)))
	for _, d := range i.docs {
		score := 0.0
		if over := overlap(qTokens, d.tokens); over > 0 {
			score = float64(over) / float64(qLen+len(d.tokens)-over)
		}
		if hasPrefix(qTokens, d.names) {
			score += i.cfg.prefixBonus
		}
		if score <= 0 {
			continue
		}
		buf = append(buf, Result{ID: d.id, Name: d.name, Score: score})
	}
	if len(buf) == 0 {
		return nil
	}

	sort.SliceStable(buf, func(a, b int) bool {
		if buf[a].Score != buf[b].Score {
			return buf[a].Score > buf[b].Score
		}
		if buf[a].Name != buf[b].Name {
			return buf[a].Name < buf[b].Name
		}
		return buf[a].ID < buf[b].ID
	})

	if k > len(buf) {
		k = len(buf)
	}
	return buf[:k]
}

// ----------------------------------------------------------------------------
// Helpers

var wordRE = regexp.MustCompile(`\p{L}+\p{N}*`)

func words(s string) []string {
	return wordRE.FindAllString(fold(s), -1)
}

func tokenize(s string, stop map[string]struct{}) map[string]struct{} {
	ws := words(s)
	if len(ws) == 0 {
		return nil
	}
	out := make(map[string]struct{}, len(ws))
	for _, w := range ws {
		if stop != nil {
			if _, skip := stop[w]; skip {
				continue
			}
		}
		out[w] = struct{}{}
	}
	return out
}

func overlap(a, b map[string]struct{}) int {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	n := 0
	if len(a) > len(b) {
		a, b = b, a
	}
	for k := range a {
		if _, ok := b[k]; ok {
			n++
		}
	}
	return n
}

func hasPrefix(q map[string]struct{}, names []string) bool {
	for t := range q {
		for _, n := range names {
			if len(t) < len(n) && strings.HasPrefix(n, t) {
				return true
			}
		}
	}
	return false
}
