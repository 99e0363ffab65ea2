package license

import (
	"strings"
	"unicode"

	"github.com/agext/levenshtein"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/corepkg/extractor/pkg/cache"
)

// Threshold is the minimum similarity to a single reference license for a
// file to count as licensed. Partial matches to multiple references do not
// combine.
const Threshold = 0.95

// memoSize bounds the match memo. Vendored packages share a handful of
// distinct headers across thousands of files, so even a small memo absorbs
// nearly all repeat lookups.
const memoSize = 4096

// Verdict is the classification of one header block.
// It is recomputed every run and never persisted as ground truth, since the
// reference dataset can change between runs.
type Verdict struct {
	// LicenseID is the best-matching reference ID, or "" when the dataset
	// is empty or the header is blank.
	LicenseID string `json:"license_id,omitempty"`
	// Confidence is the similarity to LicenseID in [0, 1].
	Confidence float64 `json:"confidence"`
	// Licensed is true when Confidence >= Threshold and a reference matched.
	Licensed bool `json:"licensed"`
}

// Strategy scores a normalized header against the dataset and returns the
// best reference ID with its similarity in [0, 1]. Implementations must be
// pure and safe for concurrent use.
type Strategy func(text string, refs []Reference) (string, float64)

// EditDistance is the default strategy: normalized Levenshtein similarity
// against each reference's normalized text, highest score wins. Ties break
// toward the lexically-smaller reference ID via dataset ordering.
func EditDistance(text string, refs []Reference) (string, float64) {
	params := levenshtein.NewParams()

	bestID, bestScore := "", 0.0
	for _, ref := range refs {
		score := levenshtein.Similarity(text, Normalize(ref.Text), params)
		if score > bestScore {
			bestID, bestScore = ref.ID, score
		}
	}
	return bestID, bestScore
}

// Matcher classifies header blocks against an immutable dataset.
// It holds no mutable state beyond a concurrency-safe memo, so a single
// Matcher can be shared by any number of classification workers.
type Matcher struct {
	dataset  *Dataset
	strategy Strategy
	memo     *lru.Cache[string, Verdict]
}

// NewMatcher creates a matcher over the given dataset.
// A nil strategy selects [EditDistance].
func NewMatcher(dataset *Dataset, strategy Strategy) *Matcher {
	if strategy == nil {
		strategy = EditDistance
	}
	memo, _ := lru.New[string, Verdict](memoSize)
	return &Matcher{dataset: dataset, strategy: strategy, memo: memo}
}

// Match classifies a header block. A blank header, an empty dataset, or a
// best score below [Threshold] all yield Licensed = false.
func (m *Matcher) Match(header string) Verdict {
	normalized := Normalize(header)
	if normalized == "" {
		return Verdict{}
	}

	key := cache.Hash([]byte(normalized))
	if v, ok := m.memo.Get(key); ok {
		return v
	}

	id, score := m.strategy(normalized, m.dataset.References())
	v := Verdict{
		LicenseID:  id,
		Confidence: score,
		Licensed:   id != "" && score >= Threshold,
	}
	m.memo.Add(key, v)
	return v
}

// MatchSource extracts the file's leading comment block and classifies it.
func (m *Matcher) MatchSource(source string) Verdict {
	return m.Match(ExtractHeader(source))
}

// Normalize prepares text for similarity comparison: lowercase, punctuation
// stripped, digit runs dropped (masking copyright years), and whitespace
// collapsed. Reference texts and headers are normalized identically, so
// re-wrapped or lightly edited headers still score high.
func Normalize(text string) string {
	var b strings.Builder
	b.Grow(len(text))

	space := true
	for _, r := range strings.ToLower(text) {
		switch {
		case unicode.IsLetter(r):
			b.WriteRune(r)
			space = false
		case unicode.IsSpace(r) || unicode.IsDigit(r) || unicode.IsPunct(r) || unicode.IsSymbol(r):
			if !space {
				b.WriteByte(' ')
				space = true
			}
		}
	}

	return strings.TrimSpace(b.String())
}
