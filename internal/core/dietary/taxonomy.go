package dietary

import (
	_ "embed"
	"fmt"
	"regexp"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed data/taxonomy.yaml
var builtinTaxonomy []byte

// latinKeywordPattern Latin 關鍵字必須以字元開頭與結尾，字邊界才有意義
var latinKeywordPattern = regexp.MustCompile(`^[a-z0-9](.*[a-z0-9])?$`)

// categoryEntry 分類表檔案中單一分類的格式
type categoryEntry struct {
	Aliases  []string `yaml:"aliases"`
	Keywords []string `yaml:"keywords"`
}

// taxonomyFile 分類表檔案格式
type taxonomyFile struct {
	Allergens    map[string]categoryEntry `yaml:"allergens"`
	Restrictions map[string]categoryEntry `yaml:"restrictions"`
}

// Taxonomy 不可變的關鍵字分類表，可安全地被多個 goroutine 共用
type Taxonomy struct {
	allergens          map[AllergenCategory][]Keyword
	restrictions       map[RestrictionCategory][]Keyword
	allergenAliases    map[string]AllergenCategory
	restrictionAliases map[string]RestrictionCategory
}

var (
	defaultOnce     sync.Once
	defaultTaxonomy *Taxonomy
)

// Default 回傳內建分類表；第一次呼叫時載入，格式錯誤會直接 panic
func Default() *Taxonomy {
	defaultOnce.Do(func() {
		defaultTaxonomy = MustLoadTaxonomy(builtinTaxonomy)
	})
	return defaultTaxonomy
}

// MustLoadTaxonomy 同 LoadTaxonomy，錯誤時 panic
func MustLoadTaxonomy(data []byte) *Taxonomy {
	t, err := LoadTaxonomy(data)
	if err != nil {
		panic(fmt.Sprintf("dietary: invalid taxonomy: %v", err))
	}
	return t
}

// LoadTaxonomy 解析並驗證 YAML 分類表
func LoadTaxonomy(data []byte) (*Taxonomy, error) {
	var file taxonomyFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to unmarshal taxonomy: %w", err)
	}

	t := &Taxonomy{
		allergens:          make(map[AllergenCategory][]Keyword, len(allAllergens)),
		restrictions:       make(map[RestrictionCategory][]Keyword, len(allRestrictions)),
		allergenAliases:    make(map[string]AllergenCategory),
		restrictionAliases: make(map[string]RestrictionCategory),
	}

	known := make(map[string]bool, len(allAllergens))
	for _, c := range allAllergens {
		known[string(c)] = true
	}
	for key, entry := range file.Allergens {
		if !known[key] {
			return nil, fmt.Errorf("unknown allergen category %q", key)
		}
		cat := AllergenCategory(key)
		keywords, err := compileKeywords(key, entry.Keywords)
		if err != nil {
			return nil, err
		}
		t.allergens[cat] = keywords
		for _, alias := range append([]string{key}, entry.Aliases...) {
			a := Normalize(alias)
			if prev, dup := t.allergenAliases[a]; dup && prev != cat {
				return nil, fmt.Errorf("allergen alias %q maps to both %q and %q", a, prev, cat)
			}
			t.allergenAliases[a] = cat
		}
	}
	for _, c := range allAllergens {
		if _, ok := t.allergens[c]; !ok {
			return nil, fmt.Errorf("allergen category %q has no keywords", c)
		}
	}

	known = make(map[string]bool, len(allRestrictions))
	for _, c := range allRestrictions {
		known[string(c)] = true
	}
	for key, entry := range file.Restrictions {
		if !known[key] {
			return nil, fmt.Errorf("unknown restriction category %q", key)
		}
		cat := RestrictionCategory(key)
		keywords, err := compileKeywords(key, entry.Keywords)
		if err != nil {
			return nil, err
		}
		t.restrictions[cat] = keywords
		for _, alias := range append([]string{key}, entry.Aliases...) {
			a := Normalize(alias)
			if prev, dup := t.restrictionAliases[a]; dup && prev != cat {
				return nil, fmt.Errorf("restriction alias %q maps to both %q and %q", a, prev, cat)
			}
			t.restrictionAliases[a] = cat
		}
	}
	for _, c := range allRestrictions {
		if _, ok := t.restrictions[c]; !ok {
			return nil, fmt.Errorf("restriction category %q has no keywords", c)
		}
	}

	return t, nil
}

func compileKeywords(category string, raw []string) ([]Keyword, error) {
	if len(raw) == 0 {
		return nil, fmt.Errorf("category %q has no keywords", category)
	}
	out := make([]Keyword, 0, len(raw))
	for i, r := range raw {
		text := Normalize(r)
		if text == "" {
			return nil, fmt.Errorf("category %q: keyword #%d is empty", category, i+1)
		}
		if IsLatin(text) && !latinKeywordPattern.MatchString(text) {
			return nil, fmt.Errorf("category %q: keyword %q must start and end with a letter or digit", category, text)
		}
		out = append(out, compileKeyword(text))
	}
	return out, nil
}

// AllergenKeywords 回傳分類的關鍵字文字
func (t *Taxonomy) AllergenKeywords(cat AllergenCategory) []string {
	return keywordTexts(t.allergens[cat])
}

// RestrictionKeywords 回傳分類的關鍵字文字
func (t *Taxonomy) RestrictionKeywords(cat RestrictionCategory) []string {
	return keywordTexts(t.restrictions[cat])
}

func keywordTexts(kws []Keyword) []string {
	out := make([]string, len(kws))
	for i, k := range kws {
		out[i] = k.Text
	}
	return out
}

// ResolveAllergen 將自由文字的過敏原名稱對應到分類
func (t *Taxonomy) ResolveAllergen(name string) (AllergenCategory, bool) {
	cat, ok := t.allergenAliases[Normalize(name)]
	return cat, ok
}

// ResolveRestriction 將自由文字的飲食限制名稱對應到分類
func (t *Taxonomy) ResolveRestriction(name string) (RestrictionCategory, bool) {
	cat, ok := t.restrictionAliases[Normalize(name)]
	return cat, ok
}

// ResolveAllergens 解析一組名稱，無法辨識的名稱會被忽略，結果去重並依固定順序排列
func (t *Taxonomy) ResolveAllergens(names []string) []AllergenCategory {
	seen := make(map[AllergenCategory]bool, len(names))
	for _, n := range names {
		if cat, ok := t.ResolveAllergen(n); ok {
			seen[cat] = true
		}
	}
	out := make([]AllergenCategory, 0, len(seen))
	for _, c := range allAllergens {
		if seen[c] {
			out = append(out, c)
		}
	}
	return out
}

// ResolveRestrictions 解析一組名稱，無法辨識的名稱會被忽略，結果去重並依固定順序排列
func (t *Taxonomy) ResolveRestrictions(names []string) []RestrictionCategory {
	seen := make(map[RestrictionCategory]bool, len(names))
	for _, n := range names {
		if cat, ok := t.ResolveRestriction(n); ok {
			seen[cat] = true
		}
	}
	out := make([]RestrictionCategory, 0, len(seen))
	for _, c := range allRestrictions {
		if seen[c] {
			out = append(out, c)
		}
	}
	return out
}
