package common

import (
	"strings"
)

// Ingredient 食材（食譜儲存端的唯讀快照）
type Ingredient struct {
	Name     string   `json:"name"`
	Quantity *float64 `json:"quantity,omitempty"`
	Unit     string   `json:"unit,omitempty"`
	Notes    string   `json:"notes,omitempty"`
	Optional bool     `json:"optional,omitempty"`
}

// RecipeComponent 食譜的組成部分，例如「醬汁」「主菜」
type RecipeComponent struct {
	Name        string       `json:"name"`
	Ingredients []Ingredient `json:"ingredients"`
}

// Recipe 食譜快照
type Recipe struct {
	ID               string            `json:"id"`
	Title            string            `json:"title"`
	Components       []RecipeComponent `json:"components"`
	LanguageDetected string            `json:"language_detected,omitempty"`
	OriginalLanguage string            `json:"original_language,omitempty"`
}

// StoredLanguage 回傳已儲存的語言，優先使用偵測結果
func (r *Recipe) StoredLanguage() string {
	if lang := strings.TrimSpace(r.LanguageDetected); lang != "" {
		return lang
	}
	return strings.TrimSpace(r.OriginalLanguage)
}

// IngredientCount 回傳所有組成部分的食材總數
func (r *Recipe) IngredientCount() int {
	n := 0
	for _, c := range r.Components {
		n += len(c.Ingredients)
	}
	return n
}

// Person 使用者或圈子成員的飲食限制快照
type Person struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	AvatarEmoji  string   `json:"avatar_emoji,omitempty"`
	Allergens    []string `json:"allergens"`
	Restrictions []string `json:"restrictions"`
}

// HasConstraints 是否記錄了任何過敏原或飲食限制
func (p *Person) HasConstraints() bool {
	return len(p.Allergens) > 0 || len(p.Restrictions) > 0
}

// Circle 圈子快照
type Circle struct {
	ID      string   `json:"id"`
	Name    string   `json:"name"`
	Members []Person `json:"members"`
}

// AnyConstraints 是否有任何成員記錄了過敏原或飲食限制
func (c *Circle) AnyConstraints() bool {
	for i := range c.Members {
		if c.Members[i].HasConstraints() {
			return true
		}
	}
	return false
}

// StringSliceToString 將字符串切片轉換為逗號分隔的字符串
func StringSliceToString(slice []string) string {
	if len(slice) == 0 {
		return ""
	}
	return strings.Join(slice, ", ")
}
