// Package facts pulls self-disclosed personal facts out of user utterances.
package facts

import (
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/zacleo008/AI-AR-GirlFriend/internal/model"
)

// Fact categories.
const (
	CategoryName       = "name"
	CategoryLikes      = "likes"
	CategoryDislikes   = "dislikes"
	CategoryOrigin     = "origin"
	CategoryOccupation = "occupation"
	CategoryAge        = "age"
)

const maxValueRunes = 60

// value captures up to the next clause boundary.
const value = `([^.,!?;:，。！？；：、\n]+)`

type rule struct {
	category string
	rx       *regexp.Regexp
	maxWords int // 0 means unlimited
}

var rules = []rule{
	{CategoryName, regexp.MustCompile(`(?i)\bmy name is ` + value), 3},
	{CategoryName, regexp.MustCompile(`(?i)\bcall me ` + value), 3},
	{CategoryLikes, regexp.MustCompile(`(?i)\bi (?:really |also )?(?:like|love|enjoy) ` + value), 0},
	{CategoryDislikes, regexp.MustCompile(`(?i)\bi (?:really )?(?:hate|dislike|can't stand) ` + value), 0},
	{CategoryOrigin, regexp.MustCompile(`(?i)\bi(?:'m| am) from ` + value), 0},
	{CategoryOrigin, regexp.MustCompile(`(?i)\bi live in ` + value), 0},
	{CategoryOccupation, regexp.MustCompile(`(?i)\bi work as (?:an? )?` + value), 0},
	{CategoryOccupation, regexp.MustCompile(`(?i)\bmy job is (?:an? )?` + value), 0},
	{CategoryAge, regexp.MustCompile(`(?i)\bi(?:'m| am) (\d{1,3}) years old`), 0},

	{CategoryName, regexp.MustCompile(`我的名字(?:是|叫)` + value), 0},
	{CategoryName, regexp.MustCompile(`我叫` + value), 0},
	{CategoryLikes, regexp.MustCompile(`我(?:很|也|最|非常|特别|特別)?(?:喜欢|喜歡|爱|愛)` + value), 0},
	{CategoryDislikes, regexp.MustCompile(`我(?:很|最|非常|特别|特別)?(?:讨厌|討厭|不喜欢|不喜歡)` + value), 0},
	{CategoryOrigin, regexp.MustCompile(`我(?:来自|來自|住在)` + value), 0},
	{CategoryOccupation, regexp.MustCompile(`我的工作是` + value), 0},
	{CategoryAge, regexp.MustCompile(`我今年(\d{1,3})(?:岁|歲)`), 0},
}

// Trailing filler that carries no fact.
var fillers = []string{" very much", " so much", " a lot", " too", "了"}

// Clause joiners after which the fact ends.
var joiners = []string{" and ", " but ", " because ", "而且", "但是", "因为", "因為"}

// Values that refer to the listener, not to a fact about the speaker.
var pronouns = map[string]bool{
	"you": true, "it": true, "that": true, "this": true, "them": true, "him": true, "her": true,
	"你": true, "你们": true, "你們": true, "他": true, "她": true, "它": true, "这个": true, "這個": true,
}

type hit struct {
	at   int
	fact model.PersonalFact
}

// Extract returns the facts disclosed in text, in the order they appear.
// Identity, owner and timestamps are left for the caller to fill.
func Extract(text string) []model.PersonalFact {
	var hits []hit
	for _, r := range rules {
		for _, m := range r.rx.FindAllStringSubmatchIndex(text, -1) {
			v, ok := clean(text[m[2]:m[3]], r.maxWords)
			if !ok {
				continue
			}
			hits = append(hits, hit{at: m[0], fact: model.PersonalFact{
				Category: r.category,
				FactText: r.category + ": " + v,
			}})
		}
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].at < hits[j].at })

	out := make([]model.PersonalFact, 0, len(hits))
	for _, h := range hits {
		out = append(out, h.fact)
	}
	return Dedupe(out)
}

// Dedupe drops facts whose category and text repeat an earlier fact, ignoring case.
func Dedupe(in []model.PersonalFact) []model.PersonalFact {
	seen := make(map[string]struct{}, len(in))
	out := make([]model.PersonalFact, 0, len(in))
	for _, f := range in {
		key := strings.ToLower(f.Category + "\x00" + strings.TrimSpace(f.FactText))
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, f)
	}
	return out
}

func clean(v string, maxWords int) (string, bool) {
	lower := strings.ToLower(v)
	for _, j := range joiners {
		if i := strings.Index(lower, j); i >= 0 {
			v, lower = v[:i], lower[:i]
		}
	}
	v = strings.TrimSpace(v)
	for _, f := range fillers {
		if n := len(v) - len(f); n > 0 && strings.EqualFold(v[n:], f) {
			v = strings.TrimSpace(v[:n])
		}
	}
	if maxWords > 0 {
		if words := strings.Fields(v); len(words) > maxWords {
			v = strings.Join(words[:maxWords], " ")
		}
	}
	if v == "" || pronouns[strings.ToLower(v)] {
		return "", false
	}
	if utf8.RuneCountInString(v) > maxValueRunes {
		v = string([]rune(v)[:maxValueRunes])
	}
	return v, true
}
