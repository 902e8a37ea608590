package model

import "time"

// ConversationTurn is one user utterance and the reply to it. Immutable once stored.
type ConversationTurn struct {
	ID            int64        `json:"id"`
	UserID        string       `json:"userId"`
	UserText      string       `json:"userText"`
	AIText        string       `json:"aiText"`
	UserEmotion   EmotionLabel `json:"userEmotion"`
	UserIntensity float64      `json:"userIntensity"`
	AIEmotion     EmotionLabel `json:"aiEmotion"`
	CreatedAt     time.Time    `json:"createdAt"`
}

// EmotionalEvent is an affective trigger/reaction pair logged for pattern queries.
type EmotionalEvent struct {
	EventID          string       `json:"eventId"`
	UserID           string       `json:"userId"`
	Emotion          EmotionLabel `json:"emotion"`
	Intensity        float64      `json:"intensity"`
	Trigger          string       `json:"trigger"`
	Reaction         EmotionLabel `json:"reaction"`
	ReactionStrength float64      `json:"reactionStrength"`
	TurnID           int64        `json:"turnId,omitempty"`
	CreatedAt        time.Time    `json:"createdAt"`
}

// PersonalFact is something the user disclosed about themselves.
type PersonalFact struct {
	FactID       string    `json:"factId"`
	UserID       string    `json:"userId"`
	Category     string    `json:"category"`
	FactText     string    `json:"factText"`
	SourceTurnID int64     `json:"sourceTurnId"`
	ExtractedAt  time.Time `json:"extractedAt"`
}

// RelationshipSnapshot is the single evolving relationship row per user.
type RelationshipSnapshot struct {
	UserID           string    `json:"userId"`
	IntimacyLevel    float64   `json:"intimacyLevel"`
	TrustLevel       float64   `json:"trustLevel"`
	InteractionCount int64     `json:"interactionCount"`
	LastUpdated      time.Time `json:"lastUpdated"`
}

// ZeroSnapshot is the state of a user with no recorded interactions.
func ZeroSnapshot(userID string) RelationshipSnapshot {
	return RelationshipSnapshot{UserID: userID}
}

// EmotionClassification is the transient output of the classifier.
type EmotionClassification struct {
	Primary   EmotionLabel  `json:"primaryEmotion"`
	Intensity float64       `json:"intensity"`
	Secondary *EmotionLabel `json:"secondaryEmotion,omitempty"`
}

// NeutralClassification is the fallback used when classification fails.
func NeutralClassification() EmotionClassification {
	return EmotionClassification{Primary: Neutral, Intensity: 0}
}

// ResponseDirective is what downstream speech and render surfaces consume.
type ResponseDirective struct {
	ResponseText  string       `json:"responseText"`
	AIEmotion     EmotionLabel `json:"aiEmotion"`
	AnimationHint string       `json:"animationHint"`
}

// InteractionKind drives a relationship transition.
type InteractionKind string

const (
	PositiveInteraction InteractionKind = "positive_interaction"
	NegativeInteraction InteractionKind = "negative_interaction"
	NeutralInteraction  InteractionKind = "neutral_interaction"
)

// Valid reports whether k is a known interaction kind.
func (k InteractionKind) Valid() bool {
	switch k {
	case PositiveInteraction, NegativeInteraction, NeutralInteraction:
		return true
	}
	return false
}

// Trend directions reported by EmotionalPatterns.
const (
	TrendImproving        = "improving"
	TrendDeclining        = "declining"
	TrendStable           = "stable"
	TrendInsufficientData = "insufficient_data"
)

// EmotionalPatterns aggregates a user's emotional-event log.
type EmotionalPatterns struct {
	UserID           string               `json:"userId"`
	Counts           map[EmotionLabel]int `json:"emotionStatistics"`
	Total            int                  `json:"total"`
	Dominant         EmotionLabel         `json:"dominantEmotion"`
	AverageIntensity float64              `json:"averageIntensity"`
	Trend            string               `json:"trend"`
	Window           int                  `json:"window"`
}

// EmotionalInsights summarises a user's conversation history.
type EmotionalInsights struct {
	UserID                string               `json:"userId"`
	MostCommonUserEmotion EmotionLabel         `json:"mostCommonUserEmotion"`
	MostCommonAIEmotion   EmotionLabel         `json:"mostCommonAiEmotion"`
	TotalTurns            int                  `json:"totalTurns"`
	AverageUserIntensity  float64              `json:"averageUserIntensity"`
	Relationship          RelationshipSnapshot `json:"relationship"`
	Stage                 string               `json:"stage"`
}

// EmotionStats is the per-label breakdown of stored turns.
type EmotionStats struct {
	UserEmotions     map[EmotionLabel]int
	AIEmotions       map[EmotionLabel]int
	Turns            int
	AverageIntensity float64
}

// Search result kinds.
const (
	ResultTurn = "turn"
	ResultFact = "fact"
)

// SearchResult is a single memory hit; exactly one of Turn or Fact is set.
type SearchResult struct {
	Kind    string            `json:"kind"`
	Turn    *ConversationTurn `json:"turn,omitempty"`
	Fact    *PersonalFact     `json:"fact,omitempty"`
	Matches int               `json:"matches"`
}

// TurnRecord is a turn together with everything that must become visible with it.
type TurnRecord struct {
	Turn  ConversationTurn
	Event *EmotionalEvent
	Facts []PersonalFact
}

// EventSummary aggregates a user's whole emotional-event log.
type EventSummary struct {
	Counts           map[EmotionLabel]int
	Total            int
	AverageIntensity float64
}
