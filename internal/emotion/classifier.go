// Package emotion classifies free text into the closed emotion label set.
//
// Scoring is rule based: weighted bilingual keywords, negation flipping,
// intensifier and exclamation boosts. There is no randomness, so identical
// input always produces the identical classification.
package emotion

import (
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/zacleo008/AI-AR-GirlFriend/internal/model"
)

const (
	// DefaultThreshold is the minimum score for a label to count as present.
	DefaultThreshold = 0.2

	intensifierBoost    = 0.15
	maxIntensifierBoost = 0.3
	exclamationBoost    = 0.1
	maxExclamationBoost = 0.2
	// negatedShare is the part of a negated positive keyword that becomes sadness.
	negatedShare   = 0.5
	negationWindow = 3
	epsilon        = 1e-9
)

type entry struct {
	label   model.EmotionLabel
	tokens  []string // english phrase split on spaces
	keyword string   // chinese / emoji substring
	weight  float64
}

// Classifier maps text to an EmotionClassification. It is safe for concurrent use.
type Classifier struct {
	english   []entry
	substring []entry
	threshold float64
}

// Option configures a Classifier.
type Option func(*Classifier)

// WithThreshold overrides DefaultThreshold.
func WithThreshold(v float64) Option {
	return func(c *Classifier) { c.threshold = model.Clamp01(v) }
}

// New builds a classifier over the built-in lexicon.
func New(opts ...Option) *Classifier {
	c := &Classifier{threshold: DefaultThreshold}
	for label, kws := range defaultEnglish() {
		for _, kw := range kws {
			c.english = append(c.english, entry{label: label, tokens: strings.Fields(kw.keyword), weight: kw.weight})
		}
	}
	for _, set := range []map[model.EmotionLabel][]weightedKeyword{defaultChinese(), defaultEmoji()} {
		for label, kws := range set {
			for _, kw := range kws {
				c.substring = append(c.substring, entry{label: label, keyword: kw.keyword, weight: kw.weight})
			}
		}
	}
	// Longest phrases claim their text first so "love you" is not also counted as "love".
	// Ties fall back to label rank and keyword so iteration order never leaks into scores.
	sort.Slice(c.english, func(i, j int) bool {
		a, b := c.english[i], c.english[j]
		if len(a.tokens) != len(b.tokens) {
			return len(a.tokens) > len(b.tokens)
		}
		if a.label != b.label {
			return a.label.Outranks(b.label)
		}
		return strings.Join(a.tokens, " ") < strings.Join(b.tokens, " ")
	})
	sort.Slice(c.substring, func(i, j int) bool {
		a, b := c.substring[i], c.substring[j]
		la, lb := utf8.RuneCountInString(a.keyword), utf8.RuneCountInString(b.keyword)
		if la != lb {
			return la > lb
		}
		if a.label != b.label {
			return a.label.Outranks(b.label)
		}
		return a.keyword < b.keyword
	})
	for _, o := range opts {
		o(c)
	}
	return c
}

// Classify returns the dominant emotion of text. prior, when given, is the
// previous turn's classification; it surfaces as the secondary emotion of a
// turn that carries no emotional signal of its own.
func (c *Classifier) Classify(text string, prior *model.EmotionClassification) (model.EmotionClassification, error) {
	if strings.TrimSpace(text) == "" {
		return model.EmotionClassification{}, model.NewInvalidInputError("text", "must not be empty")
	}

	scores, intensified := c.score(text)

	ranked := rank(scores)
	top := ranked[0]
	if top.score < c.threshold-epsilon {
		out := model.NeutralClassification()
		if prior != nil && prior.Primary.Valid() && prior.Primary != model.Neutral {
			p := prior.Primary
			out.Secondary = &p
		}
		return out, nil
	}

	boost := intensified
	if n := strings.Count(text, "!") + strings.Count(text, "！"); n > 0 {
		boost += minf(float64(n)*exclamationBoost, maxExclamationBoost)
	}

	out := model.EmotionClassification{
		Primary:   top.label,
		Intensity: model.Clamp01(top.score + boost),
	}
	if len(ranked) > 1 && ranked[1].score >= c.threshold-epsilon {
		s := ranked[1].label
		out.Secondary = &s
	}
	return out, nil
}

func (c *Classifier) score(text string) (map[model.EmotionLabel]float64, float64) {
	scores := make(map[model.EmotionLabel]float64)
	lower := strings.ToLower(text)

	tokens := tokenize(lower)
	used := make([]bool, len(tokens))
	for _, e := range c.english {
		for i := 0; i+len(e.tokens) <= len(tokens); i++ {
			if !matchAt(tokens, used, i, e.tokens) {
				continue
			}
			for k := i; k < i+len(e.tokens); k++ {
				used[k] = true
			}
			addScore(scores, e, negatedEnglish(tokens, used, i))
		}
	}

	masked := []rune(lower)
	for _, e := range c.substring {
		kw := []rune(e.keyword)
		for i := 0; i+len(kw) <= len(masked); i++ {
			if !runesEqual(masked[i:i+len(kw)], kw) {
				continue
			}
			start, negated := negatedChinese(masked, i)
			for k := start; k < i+len(kw); k++ {
				masked[k] = ' '
			}
			addScore(scores, e, negated)
		}
	}

	if len(scores) == 0 {
		return scores, 0
	}

	var boost float64
	for i, tok := range tokens {
		if !used[i] && englishIntensifiers[tok] {
			boost += intensifierBoost
		}
	}
	rest := string(masked)
	for _, w := range chineseIntensifiers {
		if strings.Contains(rest, w) {
			boost += intensifierBoost
			rest = strings.ReplaceAll(rest, w, " ")
		}
	}
	return scores, minf(boost, maxIntensifierBoost)
}

// addScore credits e.weight to its label, or under negation moves part of a
// positive keyword's weight to sadness and drops a negative one.
func addScore(scores map[model.EmotionLabel]float64, e entry, negated bool) {
	if !negated {
		scores[e.label] += e.weight
		return
	}
	if e.label.IsAffirming() || e.label == model.Calmness {
		scores[model.Sadness] += e.weight * negatedShare
	}
}

type scored struct {
	label model.EmotionLabel
	score float64
}

// rank orders labels by score, breaking ties with the fixed label priority.
func rank(scores map[model.EmotionLabel]float64) []scored {
	out := make([]scored, 0, len(scores)+1)
	for _, l := range model.AllEmotions() {
		if l == model.Neutral {
			continue
		}
		if s, ok := scores[l]; ok && s > 0 {
			out = append(out, scored{label: l, score: s})
		}
	}
	if len(out) == 0 {
		return []scored{{label: model.Neutral}}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if d := out[i].score - out[j].score; d > epsilon || d < -epsilon {
			return d > 0
		}
		return out[i].label.Outranks(out[j].label)
	})
	return out
}

func tokenize(s string) []string {
	s = strings.ReplaceAll(s, "’", "'")
	return strings.FieldsFunc(s, func(r rune) bool {
		return !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9' || r == '\'')
	})
}

func matchAt(tokens []string, used []bool, i int, phrase []string) bool {
	for k, p := range phrase {
		if used[i+k] || tokens[i+k] != p {
			return false
		}
	}
	return true
}

// negatedEnglish looks back negationWindow tokens for a negator that is not
// itself part of a matched phrase such as "can't wait".
func negatedEnglish(tokens []string, used []bool, i int) bool {
	start := i - negationWindow
	if start < 0 {
		start = 0
	}
	for k := start; k < i; k++ {
		if !used[k] && englishNegators[tokens[k]] {
			return true
		}
	}
	return false
}

// negatedChinese reports whether the keyword at i follows a negator, directly
// or across one degree word. start is where masking begins so a bridging
// degree word is not counted again as an intensifier.
func negatedChinese(masked []rune, i int) (start int, negated bool) {
	if i > 0 && isChineseNegator(masked[i-1]) {
		return i, true
	}
	for _, d := range chineseDegreeWords {
		dr := []rune(d)
		j := i - len(dr)
		if j < 1 || !runesEqual(masked[j:i], dr) {
			continue
		}
		if isChineseNegator(masked[j-1]) {
			return j, true
		}
	}
	return i, false
}

func isChineseNegator(r rune) bool {
	for _, n := range chineseNegators {
		if r == n {
			return true
		}
	}
	return false
}

func runesEqual(a, b []rune) bool {
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func minf(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}
