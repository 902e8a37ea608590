package response

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/zacleo008/AI-AR-GirlFriend/internal/emotion"
	"github.com/zacleo008/AI-AR-GirlFriend/internal/model"
)

func mustGenerator(t *testing.T) *Generator {
	t.Helper()
	g, err := New()
	if err != nil {
		t.Fatalf("built-in table: %v", err)
	}
	return g
}

func TestGenerate_CoversEveryEmotion(t *testing.T) {
	g := mustGenerator(t)
	for _, label := range model.AllEmotions() {
		for _, intimacy := range []float64{0, 5, 50} {
			d, err := g.Generate(model.EmotionClassification{Primary: label, Intensity: 0.5}, "hello", model.RelationshipSnapshot{IntimacyLevel: intimacy})
			if err != nil {
				t.Fatalf("%s at %v: %v", label, intimacy, err)
			}
			if d.ResponseText == "" || d.AnimationHint == "" || !d.AIEmotion.Valid() {
				t.Fatalf("%s at %v: incomplete directive %+v", label, intimacy, d)
			}
		}
	}
}

func TestGenerate_DeEscalatesDistress(t *testing.T) {
	g := mustGenerator(t)
	want := map[model.EmotionLabel]model.EmotionLabel{
		model.Sadness: model.Love,
		model.Fear:    model.Calmness,
		model.Anger:   model.Calmness,
	}
	for in, out := range want {
		d, err := g.Generate(model.EmotionClassification{Primary: in, Intensity: 1}, "x", model.RelationshipSnapshot{})
		if err != nil {
			t.Fatalf("generate %s: %v", in, err)
		}
		if d.AIEmotion != out {
			t.Fatalf("%s answered with %s, want %s", in, d.AIEmotion, out)
		}
	}
}

func TestGenerate_SadTextEndToEnd(t *testing.T) {
	g := mustGenerator(t)
	c := emotion.New()
	for _, text := range []string{
		"I feel so sad and lonely today",
		"I'm not feeling good",
		"我今天心情不太好",
		"我心情不好",
	} {
		cls, err := c.Classify(text, nil)
		if err != nil {
			t.Fatalf("classify %q: %v", text, err)
		}
		if cls.Primary != model.Sadness {
			t.Fatalf("%q: expected sadness, got %s", text, cls.Primary)
		}
		d, err := g.Generate(cls, text, model.RelationshipSnapshot{})
		if err != nil {
			t.Fatalf("generate %q: %v", text, err)
		}
		if d.AIEmotion != model.Calmness && d.AIEmotion != model.Love {
			t.Fatalf("%q answered with %s", text, d.AIEmotion)
		}
	}
}

func TestGenerate_Deterministic(t *testing.T) {
	g := mustGenerator(t)
	cls := model.EmotionClassification{Primary: model.Happiness, Intensity: 0.7}
	first, _ := g.Generate(cls, "I got the job!", model.RelationshipSnapshot{IntimacyLevel: 4})
	for i := 0; i < 20; i++ {
		d, _ := g.Generate(cls, "I got the job!", model.RelationshipSnapshot{IntimacyLevel: 4})
		if d != first {
			t.Fatalf("run %d differs: %+v vs %+v", i, d, first)
		}
	}
}

func TestGenerate_IntimacyUnlocksWarmerTier(t *testing.T) {
	g := mustGenerator(t)
	cls := model.EmotionClassification{Primary: model.Love, Intensity: 0.9}
	polite, _ := g.Generate(cls, "love you", model.RelationshipSnapshot{IntimacyLevel: 0})
	intimate, _ := g.Generate(cls, "love you", model.RelationshipSnapshot{IntimacyLevel: 20})

	inTier := func(tier, text string) bool {
		for _, p := range g.table[model.Love].tiers[tier] {
			if p == text {
				return true
			}
		}
		return false
	}
	if !inTier(TierPolite, polite.ResponseText) {
		t.Fatalf("low intimacy reply %q not from polite tier", polite.ResponseText)
	}
	if !inTier(TierIntimate, intimate.ResponseText) {
		t.Fatalf("high intimacy reply %q not from intimate tier", intimate.ResponseText)
	}
}

func TestTierFor(t *testing.T) {
	cases := []struct {
		intimacy float64
		want     string
	}{
		{0, TierPolite}, {2.99, TierPolite}, {3, TierFriendly}, {9.99, TierFriendly}, {10, TierIntimate},
	}
	for _, tc := range cases {
		if got := TierFor(tc.intimacy); got != tc.want {
			t.Fatalf("TierFor(%v) = %s, want %s", tc.intimacy, got, tc.want)
		}
	}
}

func TestGenerate_UnknownEmotion(t *testing.T) {
	_, err := mustGenerator(t).Generate(model.EmotionClassification{Primary: "smug"}, "x", model.RelationshipSnapshot{})
	if !model.IsInvalidInputError(err) {
		t.Fatalf("expected invalid input, got %v", err)
	}
}

const tierBlock = `
    tiers:
      polite: ["a"]
      friendly: ["b"]
      intimate: ["c"]`

func tableWith(overrides map[string]string) string {
	var b strings.Builder
	b.WriteString("emotions:\n")
	for _, l := range model.AllEmotions() {
		ai := string(l)
		switch l {
		case model.Sadness:
			ai = "love"
		case model.Anger, model.Fear:
			ai = "calmness"
		}
		if v, ok := overrides[string(l)]; ok {
			if v == "" {
				continue
			}
			ai = v
		}
		b.WriteString("  " + string(l) + ":\n    ai_emotion: " + ai + "\n    animation: idle" + tierBlock + "\n")
	}
	return b.String()
}

func TestLoad_Validation(t *testing.T) {
	if _, err := Load(strings.NewReader(tableWith(nil))); err != nil {
		t.Fatalf("valid table rejected: %v", err)
	}

	cases := []struct {
		name      string
		overrides map[string]string
	}{
		{"missing emotion", map[string]string{"fear": ""}},
		{"anger mirrored", map[string]string{"anger": "anger"}},
		{"sadness mirrored", map[string]string{"sadness": "sadness"}},
		{"unknown ai emotion", map[string]string{"happiness": "smug"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := Load(strings.NewReader(tableWith(tc.overrides))); err == nil {
				t.Fatalf("expected table to be rejected")
			}
		})
	}
}

func TestNewFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "table.yaml")
	if err := os.WriteFile(path, []byte(tableWith(nil)), 0o600); err != nil {
		t.Fatalf("write table: %v", err)
	}
	g, err := NewFromFile(path)
	if err != nil {
		t.Fatalf("load file: %v", err)
	}
	d, err := g.Generate(model.EmotionClassification{Primary: model.Happiness}, "x", model.RelationshipSnapshot{IntimacyLevel: 12})
	if err != nil || d.ResponseText != "c" {
		t.Fatalf("unexpected directive %+v err=%v", d, err)
	}

	if _, err := NewFromFile(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatalf("expected error for missing file")
	}
}
