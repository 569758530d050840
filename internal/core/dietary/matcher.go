package dietary

import (
	"regexp"
	"strings"
)

// Keyword 預先編譯的關鍵字
type Keyword struct {
	Text    string
	latin   bool
	pattern *regexp.Regexp
}

// IsLatin 字串是否只含 Basic Latin（U+0000–U+007F）字元
func IsLatin(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] > 0x7F {
			return false
		}
	}
	return true
}

// compileKeyword 編譯已正規化的關鍵字；Latin 關鍵字需整詞比對
func compileKeyword(text string) Keyword {
	kw := Keyword{Text: text, latin: IsLatin(text)}
	if kw.latin {
		kw.pattern = regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(text) + `\b`)
	}
	return kw
}

// Latin 是否為 Latin 關鍵字
func (k Keyword) Latin() bool {
	return k.latin
}

// match 比對已正規化的字串
func (k Keyword) match(haystack string) bool {
	if k.Text == "" {
		return false
	}
	if !k.latin {
		return strings.Contains(haystack, k.Text)
	}
	return k.pattern.MatchString(haystack)
}

// Matches 判斷 keyword 是否出現在 haystack 中。
// 非 Latin 關鍵字使用子字串比對，Latin 關鍵字要求前後為字邊界。
func Matches(keyword, haystack string) bool {
	kw := Normalize(keyword)
	if kw == "" {
		return false
	}
	return compileKeyword(kw).match(Normalize(haystack))
}
