package dietary

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"

	"recipe-compat/internal/pkg/common"
)

// DefaultLanguage 沒有明確訊號時的預設語言
const DefaultLanguage = "en"

// scriptLanguages 非 Latin 文字區塊，依優先順序檢查，第一個命中即回傳
var scriptLanguages = []struct {
	lang  string
	table *unicode.RangeTable
}{
	{"ar", unicode.Arabic},
	{"zh", unicode.Han},
	{"ja", unicode.Hiragana},
	{"ja", unicode.Katakana},
	{"ko", unicode.Hangul},
	{"ru", unicode.Cyrillic},
	{"he", unicode.Hebrew},
	{"th", unicode.Thai},
	{"el", unicode.Greek},
}

// latinLanguages 各語言獨有的字母，字元集彼此不重疊
var latinLanguages = []struct {
	lang    string
	pattern *regexp.Regexp
}{
	{"tr", regexp.MustCompile(`[ğıİşĞŞ]`)},
	{"pl", regexp.MustCompile(`[ąćęłńśźżĄĆĘŁŃŚŹŻ]`)},
	{"vi", regexp.MustCompile(`[ơưđƠƯĐạảấầẩẫậắằẳẵặẹẻẽếềểễệỉịọỏốồổỗộớờởỡợụủứừửữựỳỵỷỹ]`)},
	{"cs", regexp.MustCompile(`[ěřůťďňĚŘŮŤĎŇ]`)},
	{"hu", regexp.MustCompile(`[őűŐŰ]`)},
	{"ro", regexp.MustCompile(`[șțȘȚ]`)},
}

// englishMarkers 料理常見的英文字詞
var englishMarkers = regexp.MustCompile(`(?i)\b(?:the|and|with|of|minutes?|hours?|salt|pepper|oven|cups?|tablespoons?|teaspoons?|tbsp|tsp|water|until|bake|stir|heat|chopped|sliced|sugar|butter|flour|preheat|serve|fresh)\b`)

// DetectLanguage 以啟發式規則猜測文字的語言代碼。
// 空白文字回傳 ("", false)；其餘情況一定會得到一個語言，預設為 en。
func DetectLanguage(text string) (string, bool) {
	text = norm.NFC.String(text)
	if strings.TrimSpace(text) == "" {
		return "", false
	}

	for _, s := range scriptLanguages {
		if containsScript(text, s.table) {
			return s.lang, true
		}
	}

	latin := ""
	for _, l := range latinLanguages {
		if l.pattern.MatchString(text) {
			latin = l.lang
			break
		}
	}
	if latin != "" && !englishMarkers.MatchString(text) {
		return latin, true
	}
	return DefaultLanguage, true
}

func containsScript(text string, table *unicode.RangeTable) bool {
	for _, r := range text {
		if unicode.Is(table, r) {
			return true
		}
	}
	return false
}

// RecipeText 組合偵測語言所用的文字：標題、組成部分名稱、食材名稱與備註
func RecipeText(recipe *common.Recipe) string {
	parts := []string{recipe.Title}
	for _, comp := range recipe.Components {
		parts = append(parts, comp.Name)
		for _, ing := range comp.Ingredients {
			parts = append(parts, ing.Name)
			if ing.Notes != "" {
				parts = append(parts, ing.Notes)
			}
		}
	}
	return strings.Join(parts, " ")
}

// supportedLanguages 分類表有完整關鍵字覆蓋的語言（含英文名稱別名）
var supportedLanguages = map[string]string{
	"en":      "en",
	"ar":      "ar",
	"es":      "es",
	"fr":      "fr",
	"english": "en",
	"arabic":  "ar",
	"spanish": "es",
	"french":  "fr",
}

var languageNames = map[string]string{
	"en": "English",
	"ar": "Arabic",
	"es": "Spanish",
	"fr": "French",
	"zh": "Chinese",
	"ja": "Japanese",
	"ko": "Korean",
	"ru": "Russian",
	"he": "Hebrew",
	"th": "Thai",
	"el": "Greek",
	"tr": "Turkish",
	"pl": "Polish",
	"vi": "Vietnamese",
	"cs": "Czech",
	"hu": "Hungarian",
	"ro": "Romanian",
}

// NormalizeLanguage 正規化語言標記：小寫、取 BCP-47 主標籤、英文名稱別名轉為代碼
func NormalizeLanguage(tag string) string {
	tag = Normalize(tag)
	if code, ok := supportedLanguages[tag]; ok {
		return code
	}
	if i := strings.IndexAny(tag, "-_"); i > 0 {
		tag = tag[:i]
	}
	if code, ok := supportedLanguages[tag]; ok {
		return code
	}
	return tag
}

// IsSupportedLanguage 語言是否在支援清單中
func IsSupportedLanguage(tag string) bool {
	_, ok := supportedLanguages[NormalizeLanguage(tag)]
	return ok
}

// SupportedLanguages 回傳支援的語言代碼
func SupportedLanguages() []string {
	return []string{"en", "ar", "es", "fr"}
}

// LanguageName 回傳語言的英文名稱，未知代碼原樣回傳
func LanguageName(tag string) string {
	code := NormalizeLanguage(tag)
	if name, ok := languageNames[code]; ok {
		return name
	}
	return code
}
