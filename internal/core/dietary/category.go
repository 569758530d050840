// Package dietary 實作飲食衝突偵測引擎：關鍵字分類、食譜掃描與語言判斷。
// 套件內所有函式皆為純函式，只讀取啟動時載入的不可變分類表。
package dietary

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// AllergenCategory 過敏原分類
type AllergenCategory string

// RestrictionCategory 飲食限制分類；其關鍵字代表「違反」該限制的食材
type RestrictionCategory string

// 過敏原分類
const (
	Nuts      AllergenCategory = "nuts"
	Peanuts   AllergenCategory = "peanuts"
	Dairy     AllergenCategory = "dairy"
	Eggs      AllergenCategory = "eggs"
	Shellfish AllergenCategory = "shellfish"
	Fish      AllergenCategory = "fish"
	Soy       AllergenCategory = "soy"
	Wheat     AllergenCategory = "wheat"
	Gluten    AllergenCategory = "gluten"
	Sesame    AllergenCategory = "sesame"
	Mustard   AllergenCategory = "mustard"
	Celery    AllergenCategory = "celery"
	Lupin     AllergenCategory = "lupin"
	Mollusks  AllergenCategory = "mollusks"
	Sulfites  AllergenCategory = "sulfites"
)

// 飲食限制分類
const (
	GlutenFree  RestrictionCategory = "gluten-free"
	DairyFree   RestrictionCategory = "dairy-free"
	Vegetarian  RestrictionCategory = "vegetarian"
	Vegan       RestrictionCategory = "vegan"
	Pescatarian RestrictionCategory = "pescatarian"
	Halal       RestrictionCategory = "halal"
	Kosher      RestrictionCategory = "kosher"
)

var allAllergens = []AllergenCategory{
	Nuts, Peanuts, Dairy, Eggs, Shellfish, Fish, Soy, Wheat,
	Gluten, Sesame, Mustard, Celery, Lupin, Mollusks, Sulfites,
}

var allRestrictions = []RestrictionCategory{
	GlutenFree, DairyFree, Vegetarian, Vegan, Pescatarian, Halal, Kosher,
}

// AllAllergens 回傳所有過敏原分類（固定順序）
func AllAllergens() []AllergenCategory {
	out := make([]AllergenCategory, len(allAllergens))
	copy(out, allAllergens)
	return out
}

// AllRestrictions 回傳所有飲食限制分類（固定順序）
func AllRestrictions() []RestrictionCategory {
	out := make([]RestrictionCategory, len(allRestrictions))
	copy(out, allRestrictions)
	return out
}

// Normalize 是外部字串進入引擎時唯一的正規化入口：NFC、小寫、去除前後空白
func Normalize(s string) string {
	return strings.TrimSpace(strings.ToLower(norm.NFC.String(s)))
}

// AllergenStrings 將分類轉為字串切片
func AllergenStrings(cats []AllergenCategory) []string {
	out := make([]string, len(cats))
	for i, c := range cats {
		out[i] = string(c)
	}
	return out
}

// RestrictionStrings 將分類轉為字串切片
func RestrictionStrings(cats []RestrictionCategory) []string {
	out := make([]string, len(cats))
	for i, c := range cats {
		out[i] = string(c)
	}
	return out
}
