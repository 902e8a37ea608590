package store

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/zacleo008/AI-AR-GirlFriend/internal/model"
)

// MaxKeywords bounds the number of LIKE clauses a search issues.
const MaxKeywords = 8

// NormalizeEvent clamps strengths and fills identity and time fields.
// Drivers call it on every write so callers cannot persist out-of-range values.
func NormalizeEvent(e *model.EmotionalEvent, now time.Time) {
	e.Intensity = model.Clamp01(e.Intensity)
	e.ReactionStrength = model.Clamp01(e.ReactionStrength)
	if e.EventID == "" {
		e.EventID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = now
	}
}

// NormalizeTurn clamps the stored user intensity and stamps the creation time.
func NormalizeTurn(t *model.ConversationTurn, now time.Time) {
	t.UserIntensity = model.Clamp01(t.UserIntensity)
	if t.CreatedAt.IsZero() {
		t.CreatedAt = now
	}
}

// NormalizeFact fills identity and time fields.
func NormalizeFact(f *model.PersonalFact, now time.Time) {
	if f.FactID == "" {
		f.FactID = uuid.NewString()
	}
	if f.ExtractedAt.IsZero() {
		f.ExtractedAt = now
	}
}

// NormalizeSnapshot clamps intimacy to >= 0 and trust to [0,1].
func NormalizeSnapshot(s *model.RelationshipSnapshot, now time.Time) {
	if s.IntimacyLevel < 0 || s.IntimacyLevel != s.IntimacyLevel {
		s.IntimacyLevel = 0
	}
	s.TrustLevel = model.Clamp01(s.TrustLevel)
	s.LastUpdated = now
}

// Keywords splits a query into distinct lower-cased terms, capped at MaxKeywords.
func Keywords(query string) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, f := range strings.Fields(strings.ToLower(query)) {
		if _, ok := seen[f]; ok {
			continue
		}
		seen[f] = struct{}{}
		out = append(out, f)
		if len(out) == MaxKeywords {
			break
		}
	}
	return out
}

// LikePattern builds a %kw% pattern with LIKE metacharacters escaped by a backslash.
func LikePattern(kw string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(kw) + "%"
}

// CountMatches reports how many keywords occur in any of texts, case-insensitively.
func CountMatches(keywords []string, texts ...string) int {
	n := 0
	for _, kw := range keywords {
		for _, t := range texts {
			if strings.Contains(strings.ToLower(t), kw) {
				n++
				break
			}
		}
	}
	return n
}
