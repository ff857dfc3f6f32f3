package indexer

import (
	"regexp"
	"sort"
	"strings"
	"unicode"
)

var wordPattern = regexp.MustCompile(`\p{L}+`)

// 关键短语提取时忽略的常见虚词
var stopwords = map[string]struct{}{
	// 英文
	"the": {}, "a": {}, "an": {}, "and": {}, "or": {}, "but": {},
	"of": {}, "in": {}, "on": {}, "at": {}, "to": {}, "for": {},
	"with": {}, "by": {}, "from": {}, "as": {}, "is": {}, "are": {},
	"was": {}, "were": {}, "be": {}, "been": {}, "this": {}, "that": {},
	"it": {}, "its": {}, "not": {}, "no": {}, "can": {}, "will": {},
	// 韩文助词与常见功能词
	"및": {}, "등": {}, "수": {}, "있다": {}, "없다": {}, "하는": {},
	"있는": {}, "이": {}, "그": {}, "저": {}, "것": {}, "더": {},
	"또는": {}, "경우": {}, "대한": {}, "위한": {}, "때": {}, "중": {},
}

// DetectLanguage 基于韩文字符占比的简单语言判定，
// 只区分韩文（ko）与其他（en）。
func DetectLanguage(text string) string {
	var letters, hangul int
	for _, r := range text {
		if !unicode.IsLetter(r) {
			continue
		}
		letters++
		if unicode.Is(unicode.Hangul, r) {
			hangul++
		}
	}
	if letters > 0 && float64(hangul)/float64(letters) >= 0.3 {
		return "ko"
	}
	return "en"
}

// KeyPhrases 基于词频提取关键短语，最多返回 max 个。
// 忽略虚词和过短的词。
func KeyPhrases(text string, max int) []string {
	if max <= 0 {
		return nil
	}

	freq := make(map[string]int)
	for _, word := range wordPattern.FindAllString(text, -1) {
		word = strings.ToLower(word)
		if len([]rune(word)) < 2 {
			continue
		}
		if _, skip := stopwords[word]; skip {
			continue
		}
		freq[word]++
	}

	words := make([]string, 0, len(freq))
	for word := range freq {
		words = append(words, word)
	}
	sort.Slice(words, func(i, j int) bool {
		if freq[words[i]] != freq[words[j]] {
			return freq[words[i]] > freq[words[j]]
		}
		return words[i] < words[j]
	})

	if len(words) > max {
		words = words[:max]
	}
	return words
}
