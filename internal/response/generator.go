// Package response chooses what the companion says back, how it feels about
// it and which animation accompanies it.
package response

import (
	"bytes"
	_ "embed"
	"fmt"
	"hash/fnv"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/zacleo008/AI-AR-GirlFriend/internal/model"
)

//go:embed responses.yaml
var defaultTable []byte

// Phrase tiers unlocked by intimacy.
const (
	TierPolite   = "polite"
	TierFriendly = "friendly"
	TierIntimate = "intimate"
)

const (
	friendlyIntimacy = 3.0
	intimateIntimacy = 10.0
)

var tiers = []string{TierPolite, TierFriendly, TierIntimate}

type tableFile struct {
	Emotions map[string]tableEntry `yaml:"emotions"`
}

type tableEntry struct {
	AIEmotion string              `yaml:"ai_emotion"`
	Animation string              `yaml:"animation"`
	Tiers     map[string][]string `yaml:"tiers"`
}

type entry struct {
	aiEmotion model.EmotionLabel
	animation string
	tiers     map[string][]string
}

// Generator maps a classification and relationship snapshot to a directive.
// It is immutable after construction and safe for concurrent use.
type Generator struct {
	table map[model.EmotionLabel]entry
}

// New builds a Generator from the built-in table.
func New() (*Generator, error) {
	return Load(bytes.NewReader(defaultTable))
}

// NewFromFile builds a Generator from a YAML table on disk.
func NewFromFile(path string) (*Generator, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open response table: %w", err)
	}
	defer f.Close()
	return Load(f)
}

// Load parses and validates a YAML table. Every emotion needs an entry with
// all tiers, and distress emotions must be answered with calmness or love.
func Load(r io.Reader) (*Generator, error) {
	var tf tableFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&tf); err != nil {
		return nil, fmt.Errorf("decode response table: %w", err)
	}

	g := &Generator{table: make(map[model.EmotionLabel]entry, len(tf.Emotions))}
	for key, te := range tf.Emotions {
		label, err := model.ParseEmotion(key)
		if err != nil {
			return nil, fmt.Errorf("response table: %w", err)
		}
		ai, err := model.ParseEmotion(te.AIEmotion)
		if err != nil {
			return nil, fmt.Errorf("response table %s: ai_emotion: %w", key, err)
		}
		if label.IsDistress() && ai != model.Calmness && ai != model.Love {
			return nil, fmt.Errorf("response table %s: distress must be answered with calmness or love, got %s", key, ai)
		}
		if te.Animation == "" {
			return nil, fmt.Errorf("response table %s: animation is required", key)
		}
		for _, tier := range tiers {
			if len(te.Tiers[tier]) == 0 {
				return nil, fmt.Errorf("response table %s: tier %s has no phrases", key, tier)
			}
		}
		g.table[label] = entry{aiEmotion: ai, animation: te.Animation, tiers: te.Tiers}
	}
	for _, label := range model.AllEmotions() {
		if _, ok := g.table[label]; !ok {
			return nil, fmt.Errorf("response table: no entry for %s", label)
		}
	}
	return g, nil
}

// TierFor names the phrase tier an intimacy level unlocks.
func TierFor(intimacy float64) string {
	switch {
	case intimacy < friendlyIntimacy:
		return TierPolite
	case intimacy < intimateIntimacy:
		return TierFriendly
	default:
		return TierIntimate
	}
}

// Generate picks the reply. The phrase within a tier is a stable hash of
// userText, so the same input always gets the same reply.
func (g *Generator) Generate(cls model.EmotionClassification, userText string, snapshot model.RelationshipSnapshot) (model.ResponseDirective, error) {
	e, ok := g.table[cls.Primary]
	if !ok {
		return model.ResponseDirective{}, model.NewInvalidInputError("primary_emotion", fmt.Sprintf("unknown emotion %q", cls.Primary))
	}
	phrases := e.tiers[TierFor(snapshot.IntimacyLevel)]

	h := fnv.New32a()
	_, _ = h.Write([]byte(userText))
	return model.ResponseDirective{
		ResponseText:  phrases[h.Sum32()%uint32(len(phrases))],
		AIEmotion:     e.aiEmotion,
		AnimationHint: e.animation,
	}, nil
}

// Fallback is the directive used when generation itself fails.
func Fallback() model.ResponseDirective {
	return model.ResponseDirective{
		ResponseText:  "I'm here with you. Tell me more?",
		AIEmotion:     model.Calmness,
		AnimationHint: "idle",
	}
}
