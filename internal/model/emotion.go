package model

import (
	"fmt"
	"strings"
)

// EmotionLabel is the closed set of emotions the core reasons about.
type EmotionLabel string

const (
	Happiness  EmotionLabel = "happiness"
	Excitement EmotionLabel = "excitement"
	Love       EmotionLabel = "love"
	Sadness    EmotionLabel = "sadness"
	Anger      EmotionLabel = "anger"
	Fear       EmotionLabel = "fear"
	Calmness   EmotionLabel = "calmness"
	Neutral    EmotionLabel = "neutral"
)

// labelPriority orders labels for tie-breaking: positive affect before
// negative, specific before generic. Lower rank wins.
var labelPriority = []EmotionLabel{
	Love,
	Excitement,
	Happiness,
	Calmness,
	Fear,
	Anger,
	Sadness,
	Neutral,
}

var labelRank = func() map[EmotionLabel]int {
	m := make(map[EmotionLabel]int, len(labelPriority))
	for i, l := range labelPriority {
		m[l] = i
	}
	return m
}()

// AllEmotions returns every label in priority order.
func AllEmotions() []EmotionLabel {
	out := make([]EmotionLabel, len(labelPriority))
	copy(out, labelPriority)
	return out
}

// ParseEmotion converts a string to an EmotionLabel.
func ParseEmotion(s string) (EmotionLabel, error) {
	l := EmotionLabel(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := labelRank[l]; !ok {
		return "", NewInvalidInputError("emotion", fmt.Sprintf("unknown emotion label %q", s))
	}
	return l, nil
}

// Valid reports whether l is part of the closed label set.
func (l EmotionLabel) Valid() bool {
	_, ok := labelRank[l]
	return ok
}

// Rank returns the tie-break rank of l; unknown labels sort last.
func (l EmotionLabel) Rank() int {
	if r, ok := labelRank[l]; ok {
		return r
	}
	return len(labelPriority)
}

// Outranks reports whether l wins a tie against other.
func (l EmotionLabel) Outranks(other EmotionLabel) bool {
	return l.Rank() < other.Rank()
}

// IsAffirming reports whether l is one of the affirming emotions that grow intimacy.
func (l EmotionLabel) IsAffirming() bool {
	switch l {
	case Happiness, Love, Excitement:
		return true
	}
	return false
}

// IsDistress reports whether l must be met with a de-escalating reply.
func (l EmotionLabel) IsDistress() bool {
	switch l {
	case Sadness, Anger, Fear:
		return true
	}
	return false
}

// Valence maps l onto [-1,1] for trend computation.
func (l EmotionLabel) Valence() float64 {
	switch l {
	case Love, Excitement, Happiness:
		return 1
	case Calmness:
		return 0.5
	case Sadness, Fear:
		return -0.75
	case Anger:
		return -1
	default:
		return 0
	}
}

func (l EmotionLabel) String() string { return string(l) }

// Clamp01 bounds v to [0,1]. NaN becomes 0.
func Clamp01(v float64) float64 {
	if v != v || v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
