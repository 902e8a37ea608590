// Package relationship evolves the long-term intimacy and trust a user has
// built with the companion.
package relationship

import "github.com/zacleo008/AI-AR-GirlFriend/internal/model"

// Policy holds the transition constants. Positive interactions grow
// intimacy without bound; trust lives in [0,1].
type Policy struct {
	// BaseIntimacy is the intimacy gain of a positive interaction before scaling.
	BaseIntimacy float64
	TrustGain    float64
	TrustLoss    float64
	// MaxDecay is the largest intimacy loss a single negative interaction at
	// full intensity can cause.
	MaxDecay float64
}

// DefaultPolicy is the tuning used in production.
func DefaultPolicy() Policy {
	return Policy{
		BaseIntimacy: 1.0,
		TrustGain:    0.05,
		TrustLoss:    0.1,
		MaxDecay:     0.5,
	}
}

// Apply returns the snapshot after one interaction. It does not touch LastUpdated.
func (p Policy) Apply(s model.RelationshipSnapshot, kind model.InteractionKind, cls model.EmotionClassification) model.RelationshipSnapshot {
	intensity := model.Clamp01(cls.Intensity)
	switch kind {
	case model.PositiveInteraction:
		if cls.Primary.IsAffirming() {
			s.IntimacyLevel += p.BaseIntimacy * (1 + intensity)
			s.TrustLevel += p.TrustGain
		} else {
			s.IntimacyLevel += p.BaseIntimacy * 0.5
			s.TrustLevel += p.TrustGain / 2
		}
	case model.NegativeInteraction:
		s.TrustLevel -= p.TrustLoss * (0.5 + intensity/2)
		s.IntimacyLevel -= p.MaxDecay * intensity
	}
	if s.IntimacyLevel < 0 {
		s.IntimacyLevel = 0
	}
	s.TrustLevel = model.Clamp01(s.TrustLevel)
	s.InteractionCount++
	return s
}

// KindFor derives the interaction kind a classified utterance represents.
func KindFor(cls model.EmotionClassification) model.InteractionKind {
	switch {
	case cls.Primary.IsAffirming(), cls.Primary == model.Calmness:
		return model.PositiveInteraction
	case cls.Primary == model.Anger:
		return model.NegativeInteraction
	default:
		return model.NeutralInteraction
	}
}

// Stage names, from coldest to warmest.
const (
	StageStranger     = "stranger"
	StageAcquaintance = "acquaintance"
	StageFriend       = "friend"
	StageCloseFriend  = "close friend"
	StagePartner      = "partner"
)

// Stage names the relationship for an intimacy level. The friend boundaries
// line up with the response tiers.
func Stage(intimacy float64) string {
	switch {
	case intimacy < 1:
		return StageStranger
	case intimacy < 3:
		return StageAcquaintance
	case intimacy < 10:
		return StageFriend
	case intimacy < 25:
		return StageCloseFriend
	default:
		return StagePartner
	}
}
