package facts

import (
	"reflect"
	"testing"

	"github.com/zacleo008/AI-AR-GirlFriend/internal/model"
)

func texts(fs []model.PersonalFact) []string {
	out := make([]string, 0, len(fs))
	for _, f := range fs {
		out = append(out, f.FactText)
	}
	return out
}

func TestExtract(t *testing.T) {
	cases := []struct {
		name string
		text string
		want []string
	}{
		{"english name and likes", "Hi! My name is Alice and I like hiking.", []string{"name: Alice", "likes: hiking"}},
		{"call me", "please call me Bob", []string{"name: Bob"}},
		{"dislike with filler", "I really hate mornings so much", []string{"dislikes: mornings"}},
		{"origin and job", "I'm from Taipei, I work as a nurse", []string{"origin: Taipei", "occupation: nurse"}},
		{"age", "I am 27 years old", []string{"age: 27"}},
		{"traditional chinese", "我叫測試用戶，我喜歡看電影", []string{"name: 測試用戶", "likes: 看電影"}},
		{"simplified chinese", "我的名字是小明。我来自上海", []string{"name: 小明", "origin: 上海"}},
		{"chinese dislike is not a like", "我不喜欢下雨", []string{"dislikes: 下雨"}},
		{"affection toward listener is not a fact", "I love you too", nil},
		{"chinese affection toward listener", "我爱你", nil},
		{"no disclosure", "what's the weather like?", nil},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := texts(Extract(tc.text))
			if len(got) == 0 && len(tc.want) == 0 {
				return
			}
			if !reflect.DeepEqual(got, tc.want) {
				t.Fatalf("Extract(%q) = %v, want %v", tc.text, got, tc.want)
			}
		})
	}
}

func TestExtract_Categories(t *testing.T) {
	fs := Extract("I'm from Osaka")
	if len(fs) != 1 || fs[0].Category != CategoryOrigin {
		t.Fatalf("unexpected facts: %+v", fs)
	}
}

func TestExtract_DeduplicatesWithinUtterance(t *testing.T) {
	got := texts(Extract("I like tea. I LIKE tea!"))
	if len(got) != 1 || got[0] != "likes: tea" {
		t.Fatalf("expected one fact, got %v", got)
	}
}

func TestDedupe_KeepsFirstOccurrence(t *testing.T) {
	in := []model.PersonalFact{
		{FactID: "a", Category: CategoryLikes, FactText: "likes: cats"},
		{FactID: "b", Category: CategoryLikes, FactText: "Likes: Cats "},
		{FactID: "c", Category: CategoryName, FactText: "name: Cat"},
	}
	out := Dedupe(in)
	if len(out) != 2 || out[0].FactID != "a" || out[1].FactID != "c" {
		t.Fatalf("unexpected dedupe result: %+v", out)
	}
}

func TestExtract_CapsLongValues(t *testing.T) {
	long := "I enjoy "
	for i := 0; i < 20; i++ {
		long += "really long hobby "
	}
	fs := Extract(long)
	if len(fs) != 1 {
		t.Fatalf("expected one fact, got %d", len(fs))
	}
	if n := len([]rune(fs[0].FactText)); n > len(CategoryLikes)+2+maxValueRunes {
		t.Fatalf("value not capped: %d runes", n)
	}
}
