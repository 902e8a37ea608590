package emotion

import (
	"math"
	"testing"

	"github.com/zacleo008/AI-AR-GirlFriend/internal/model"
)

func approx(a, b float64) bool { return math.Abs(a-b) < 1e-6 }

func TestClassify_Labels(t *testing.T) {
	c := New()
	cases := []struct {
		name      string
		text      string
		primary   model.EmotionLabel
		intensity float64
	}{
		{"plain happiness", "I'm so happy right now!", model.Happiness, 0.85},
		{"excitement", "I'm so excited!", model.Excitement, 0.95},
		{"love beats happiness on tie", "I love being happy", model.Love, 0.6},
		{"negated happiness becomes sadness", "I'm not happy", model.Sadness, 0.3},
		{"negator inside phrase is ignored", "I can't wait, so happy", model.Excitement, 0.75},
		{"fear outranks anger on tie", "I am angry and scared", model.Fear, 0.7},
		{"chinese sadness", "我好难过", model.Sadness, 0.6},
		{"chinese love phrase", "我喜欢你", model.Love, 0.7},
		{"emoji", "😭", model.Sadness, 0.6},
		{"chinese low mood", "我今天心情不太好", model.Sadness, 0.6},
		{"chinese bad mood", "我心情不好", model.Sadness, 0.6},
		{"chinese negation across degree word", "我不太开心", model.Sadness, 0.3},
		{"traditional negated happiness", "我不開心", model.Sadness, 0.6},
		{"english not feeling good", "I'm not feeling good", model.Sadness, 0.5},
		{"no signal", "what time is it", model.Neutral, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := c.Classify(tc.text, nil)
			if err != nil {
				t.Fatalf("classify: %v", err)
			}
			if got.Primary != tc.primary {
				t.Fatalf("primary = %s, want %s", got.Primary, tc.primary)
			}
			if !approx(got.Intensity, tc.intensity) {
				t.Fatalf("intensity = %v, want %v", got.Intensity, tc.intensity)
			}
		})
	}
}

func TestClassify_Deterministic(t *testing.T) {
	text := "Honestly I'm worried but also kind of excited!! 😊"
	first, err := New().Classify(text, nil)
	if err != nil {
		t.Fatalf("classify: %v", err)
	}
	for i := 0; i < 50; i++ {
		got, err := New().Classify(text, nil)
		if err != nil {
			t.Fatalf("classify: %v", err)
		}
		if got.Primary != first.Primary || got.Intensity != first.Intensity {
			t.Fatalf("run %d differs: %+v vs %+v", i, got, first)
		}
		if (got.Secondary == nil) != (first.Secondary == nil) {
			t.Fatalf("run %d secondary differs", i)
		}
	}
}

func TestClassify_IntensityClamped(t *testing.T) {
	got, err := New().Classify("I'm so so very really happy and joyful!!!!!", nil)
	if err != nil {
		t.Fatalf("classify: %v", err)
	}
	if got.Intensity < 0 || got.Intensity > 1 {
		t.Fatalf("intensity out of range: %v", got.Intensity)
	}
	if got.Intensity != 1 {
		t.Fatalf("expected saturated intensity, got %v", got.Intensity)
	}
}

func TestClassify_EmptyInput(t *testing.T) {
	for _, text := range []string{"", "   \n\t"} {
		_, err := New().Classify(text, nil)
		if !model.IsInvalidInputError(err) {
			t.Fatalf("Classify(%q) err = %v, want invalid input", text, err)
		}
	}
}

func TestClassify_SecondaryEmotion(t *testing.T) {
	got, err := New().Classify("I love being happy", nil)
	if err != nil {
		t.Fatalf("classify: %v", err)
	}
	if got.Secondary == nil || *got.Secondary != model.Happiness {
		t.Fatalf("expected happiness as secondary, got %v", got.Secondary)
	}
}

func TestClassify_PriorSurfacesOnNeutralTurn(t *testing.T) {
	prior := &model.EmotionClassification{Primary: model.Sadness, Intensity: 0.7}
	got, err := New().Classify("ok", prior)
	if err != nil {
		t.Fatalf("classify: %v", err)
	}
	if got.Primary != model.Neutral {
		t.Fatalf("primary = %s, want neutral", got.Primary)
	}
	if got.Secondary == nil || *got.Secondary != model.Sadness {
		t.Fatalf("expected prior as secondary, got %v", got.Secondary)
	}

	// A turn with its own signal ignores the prior.
	got, err = New().Classify("I'm happy", prior)
	if err != nil {
		t.Fatalf("classify: %v", err)
	}
	if got.Secondary != nil {
		t.Fatalf("unexpected secondary %s", *got.Secondary)
	}
}

func TestClassify_Threshold(t *testing.T) {
	// "fine" alone weighs 0.2: present at the default threshold, absent above it.
	got, _ := New().Classify("fine", nil)
	if got.Primary != model.Calmness {
		t.Fatalf("default threshold: primary = %s", got.Primary)
	}
	got, _ = New(WithThreshold(0.5)).Classify("fine", nil)
	if got.Primary != model.Neutral {
		t.Fatalf("raised threshold: primary = %s", got.Primary)
	}
}
