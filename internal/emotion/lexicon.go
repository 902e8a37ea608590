package emotion

import "github.com/zacleo008/AI-AR-GirlFriend/internal/model"

type weightedKeyword struct {
	keyword string
	weight  float64
}

// English entries are matched on word boundaries; Chinese entries and emoji by substring.
func defaultEnglish() map[model.EmotionLabel][]weightedKeyword {
	return map[model.EmotionLabel][]weightedKeyword{
		model.Happiness: {
			{"happy", 0.6}, {"joy", 0.6}, {"joyful", 0.6}, {"glad", 0.5}, {"cheerful", 0.5},
			{"wonderful", 0.5}, {"yay", 0.5}, {"delighted", 0.6}, {"awesome", 0.4},
			{"great", 0.4}, {"feel good", 0.5}, {"good", 0.25}, {"nice", 0.3}, {"haha", 0.3},
			{"smile", 0.3}, {"fun", 0.3},
		},
		model.Excitement: {
			{"excited", 0.7}, {"exciting", 0.6}, {"thrilled", 0.7}, {"pumped", 0.6},
			{"can't wait", 0.6}, {"cant wait", 0.6}, {"amazing", 0.5}, {"incredible", 0.5},
			{"wow", 0.4}, {"omg", 0.4}, {"woohoo", 0.6},
		},
		model.Love: {
			{"love you", 0.8}, {"miss you", 0.6}, {"adore", 0.6}, {"love", 0.6},
			{"care about you", 0.5}, {"darling", 0.4}, {"sweetheart", 0.4}, {"hug", 0.3},
			{"kiss", 0.4},
		},
		model.Sadness: {
			{"heartbroken", 0.8}, {"depressed", 0.7}, {"miserable", 0.7}, {"sad", 0.6},
			{"unhappy", 0.6}, {"lonely", 0.6}, {"crying", 0.6}, {"cry", 0.5}, {"upset", 0.5},
			{"disappointed", 0.5}, {"hurt", 0.4}, {"sigh", 0.4}, {"down", 0.2}, {"tired", 0.2},
			{"sorrow", 0.6}, {"grief", 0.7}, {"not feeling good", 0.5}, {"not feeling well", 0.5},
			{"feel bad", 0.5}, {"feeling bad", 0.5}, {"feeling down", 0.5}, {"not good", 0.4},
			{"not okay", 0.4}, {"not ok", 0.4}, {"bad day", 0.4},
		},
		model.Anger: {
			{"furious", 0.8}, {"angry", 0.7}, {"pissed", 0.7}, {"rage", 0.7}, {"hate", 0.6},
			{"mad", 0.5}, {"annoyed", 0.5}, {"irritated", 0.5}, {"frustrated", 0.5},
			{"sick of", 0.5}, {"wtf", 0.5},
		},
		model.Fear: {
			{"terrified", 0.8}, {"scared", 0.7}, {"afraid", 0.7}, {"fear", 0.6},
			{"anxious", 0.6}, {"panic", 0.6}, {"worried", 0.5}, {"nervous", 0.5},
			{"frightened", 0.7}, {"worry", 0.4},
		},
		model.Calmness: {
			{"calm", 0.6}, {"relaxed", 0.6}, {"peaceful", 0.6}, {"serene", 0.6},
			{"relax", 0.4}, {"chill", 0.4}, {"content", 0.4}, {"at ease", 0.5}, {"fine", 0.2},
		},
	}
}

func defaultChinese() map[model.EmotionLabel][]weightedKeyword {
	return map[model.EmotionLabel][]weightedKeyword{
		model.Happiness: {
			{"开心", 0.6}, {"高兴", 0.6}, {"快乐", 0.6}, {"幸福", 0.6}, {"太好了", 0.5},
			{"哈哈", 0.3}, {"棒", 0.3}, {"喜欢", 0.3},
			{"開心", 0.6}, {"高興", 0.6}, {"快樂", 0.6}, {"喜歡", 0.3},
		},
		model.Excitement: {
			{"兴奋", 0.7}, {"激动", 0.7}, {"期待", 0.5}, {"太棒了", 0.6}, {"等不及", 0.6},
			{"興奮", 0.7}, {"激動", 0.7},
		},
		model.Love: {
			{"爱你", 0.8}, {"想你", 0.6}, {"喜欢你", 0.7}, {"亲爱的", 0.5}, {"抱抱", 0.4},
			{"愛你", 0.8}, {"喜歡你", 0.7}, {"親愛的", 0.5},
		},
		model.Sadness: {
			{"难过", 0.6}, {"伤心", 0.7}, {"失望", 0.5}, {"孤独", 0.6}, {"寂寞", 0.6},
			{"想哭", 0.7}, {"哭", 0.4}, {"唉", 0.4}, {"累", 0.2},
			{"難過", 0.6}, {"傷心", 0.7}, {"失望", 0.5},
			{"心情不好", 0.6}, {"心情不太好", 0.6}, {"心情差", 0.5}, {"不开心", 0.6}, {"不開心", 0.6},
			{"不高兴", 0.6}, {"不高興", 0.6}, {"不太好", 0.4}, {"不舒服", 0.4},
		},
		model.Anger: {
			{"气死", 0.8}, {"愤怒", 0.8}, {"生气", 0.7}, {"讨厌", 0.5}, {"烦", 0.4},
			{"垃圾", 0.5}, {"氣死", 0.8}, {"討厭", 0.5},
		},
		model.Fear: {
			{"害怕", 0.7}, {"恐惧", 0.8}, {"担心", 0.5}, {"紧张", 0.5}, {"焦虑", 0.6},
			{"恐懼", 0.8}, {"擔心", 0.5}, {"緊張", 0.5}, {"焦慮", 0.6},
		},
		model.Calmness: {
			{"平静", 0.6}, {"放松", 0.6}, {"安心", 0.5}, {"舒服", 0.4}, {"轻松", 0.5},
			{"平靜", 0.6}, {"放鬆", 0.6}, {"輕鬆", 0.5},
		},
	}
}

func defaultEmoji() map[model.EmotionLabel][]weightedKeyword {
	return map[model.EmotionLabel][]weightedKeyword{
		model.Happiness:  {{"😊", 0.4}, {"😄", 0.4}, {"😁", 0.4}, {"🙂", 0.3}},
		model.Excitement: {{"🎉", 0.4}, {"🤩", 0.5}},
		model.Love:       {{"❤", 0.5}, {"😍", 0.5}, {"🥰", 0.5}, {"💕", 0.5}},
		model.Sadness:    {{"😢", 0.5}, {"😭", 0.6}, {"☹", 0.4}},
		model.Anger:      {{"😡", 0.6}, {"😠", 0.5}},
		model.Fear:       {{"😨", 0.5}, {"😱", 0.6}},
		model.Calmness:   {{"😌", 0.4}},
	}
}

var englishNegators = map[string]bool{
	"not": true, "no": true, "never": true, "don't": true, "dont": true, "isn't": true,
	"wasn't": true, "aren't": true, "can't": true, "cannot": true, "didn't": true, "doesn't": true,
	"hardly": true, "nothing": true,
}

var englishIntensifiers = map[string]bool{
	"so": true, "very": true, "really": true, "extremely": true, "super": true,
	"totally": true, "incredibly": true, "truly": true, "absolutely": true, "too": true,
}

var chineseNegators = []rune{'不', '没', '别', '沒', '別'}

// Degree words allowed between a negator and its keyword, as in 不太开心.
var chineseDegreeWords = []string{"怎么", "怎麼", "那么", "那麼", "太", "很"}

var chineseIntensifiers = []string{"非常", "特别", "超级", "太", "很", "超"}
