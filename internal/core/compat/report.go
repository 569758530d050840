package compat

import (
	"fmt"
	"strings"

	"recipe-compat/internal/core/dietary"
	"recipe-compat/internal/pkg/common"
)

// MemberRef 成員識別資訊
type MemberRef struct {
	MemberID   string `json:"member_id"`
	MemberName string `json:"member_name"`
}

// MemberConflict 單一成員與食譜的衝突
type MemberConflict struct {
	MemberID             string                        `json:"member_id"`
	MemberName           string                        `json:"member_name"`
	AvatarEmoji          string                        `json:"avatar_emoji,omitempty"`
	AllergenConflicts    []dietary.AllergenConflict    `json:"allergen_conflicts"`
	RestrictionConflicts []dietary.RestrictionConflict `json:"restriction_conflicts"`
}

// CompatibilityReport 圈子層級的相容性報告
type CompatibilityReport struct {
	RecipeID                   string                        `json:"recipe_id"`
	CircleID                   string                        `json:"circle_id"`
	CircleName                 string                        `json:"circle_name"`
	IsCompatible               bool                          `json:"is_compatible"`
	MemberConflicts            []MemberConflict              `json:"member_conflicts"`
	AllConflictingIngredients  []string                      `json:"all_conflicting_ingredients"`
	AllConflictingAllergens    []dietary.AllergenCategory    `json:"all_conflicting_allergens"`
	AllConflictingRestrictions []dietary.RestrictionCategory `json:"all_conflicting_restrictions"`
	SafeForMembers             []MemberRef                   `json:"safe_for_members"`
	Summary                    string                        `json:"summary"`
	LanguageSupported          bool                          `json:"language_supported"`
	DetectedLanguage           string                        `json:"detected_language,omitempty"`
}

// PersonalCompatibilityReport 個人層級的相容性報告
type PersonalCompatibilityReport struct {
	RecipeID                string                        `json:"recipe_id"`
	PersonID                string                        `json:"person_id"`
	IsCompatible            bool                          `json:"is_compatible"`
	AllergenConflicts       []dietary.AllergenConflict    `json:"allergen_conflicts"`
	RestrictionConflicts    []dietary.RestrictionConflict `json:"restriction_conflicts"`
	ConflictingIngredients  []string                      `json:"conflicting_ingredients"`
	ConflictingAllergens    []dietary.AllergenCategory    `json:"conflicting_allergens"`
	ConflictingRestrictions []dietary.RestrictionCategory `json:"conflicting_restrictions"`
	Summary                 string                        `json:"summary"`
	LanguageSupported       bool                          `json:"language_supported"`
	DetectedLanguage        string                        `json:"detected_language,omitempty"`
}

// Profile 食譜本身含有的過敏原與違反的飲食限制
type Profile struct {
	RecipeID          string                        `json:"recipe_id"`
	Title             string                        `json:"title"`
	Allergens         []dietary.AllergenCategory    `json:"allergens"`
	Violations        []dietary.RestrictionCategory `json:"restriction_violations"`
	IngredientCount   int                           `json:"ingredient_count"`
	DetectedLanguage  string                        `json:"detected_language,omitempty"`
	LanguageSupported bool                          `json:"language_supported"`
}

// Classification 單一食材的分類結果
type Classification struct {
	Name         string                        `json:"name"`
	Allergens    []dietary.AllergenCategory    `json:"allergens"`
	Restrictions []dietary.RestrictionCategory `json:"restrictions"`
}

// 報告摘要
const (
	summaryNoPreferences       = "No dietary preferences set"
	summaryCircleNoPreferences = "No dietary preferences set for any circle member"
	summaryPersonalCompatible  = "This recipe is compatible with your dietary preferences"
)

// conflictSet 彙整衝突的食材與分類，保持首次出現的順序並去除重複
type conflictSet struct {
	ingredients  []string
	seen         map[string]bool
	allergens    map[dietary.AllergenCategory]bool
	restrictions map[dietary.RestrictionCategory]bool
}

func newConflictSet() *conflictSet {
	return &conflictSet{
		ingredients:  []string{},
		seen:         make(map[string]bool),
		allergens:    make(map[dietary.AllergenCategory]bool),
		restrictions: make(map[dietary.RestrictionCategory]bool),
	}
}

func (s *conflictSet) addIngredient(name string) {
	if !s.seen[name] {
		s.seen[name] = true
		s.ingredients = append(s.ingredients, name)
	}
}

func (s *conflictSet) add(allergens []dietary.AllergenConflict, restrictions []dietary.RestrictionConflict) {
	for _, c := range allergens {
		s.addIngredient(c.IngredientName)
		for _, a := range c.Allergens {
			s.allergens[a] = true
		}
	}
	for _, c := range restrictions {
		s.addIngredient(c.IngredientName)
		for _, r := range c.Restrictions {
			s.restrictions[r] = true
		}
	}
}

// allergenList 依分類表順序輸出
func (s *conflictSet) allergenList() []dietary.AllergenCategory {
	out := []dietary.AllergenCategory{}
	for _, a := range dietary.AllAllergens() {
		if s.allergens[a] {
			out = append(out, a)
		}
	}
	return out
}

func (s *conflictSet) restrictionList() []dietary.RestrictionCategory {
	out := []dietary.RestrictionCategory{}
	for _, r := range dietary.AllRestrictions() {
		if s.restrictions[r] {
			out = append(out, r)
		}
	}
	return out
}

func (s *conflictSet) empty() bool {
	return len(s.ingredients) == 0
}

// unverifiableSummary 語言不支援時的說明，與「已驗證且有衝突」區分
func unverifiableSummary(language string) string {
	return fmt.Sprintf("Cannot verify dietary safety: recipe language (%s) is not supported", dietary.LanguageName(language))
}

// conflictSummary 列出衝突的過敏原與飲食限制
func conflictSummary(allergens []dietary.AllergenCategory, restrictions []dietary.RestrictionCategory) string {
	var parts []string
	if len(allergens) > 0 {
		parts = append(parts, "Contains allergens: "+common.StringSliceToString(dietary.AllergenStrings(allergens)))
	}
	if len(restrictions) > 0 {
		parts = append(parts, "Violates restrictions: "+common.StringSliceToString(dietary.RestrictionStrings(restrictions)))
	}
	return strings.Join(parts, ". ")
}

func circleCompatibleSummary(members int) string {
	if members == 1 {
		return "Safe for the only circle member"
	}
	return fmt.Sprintf("Safe for all %d circle members", members)
}

func circleConflictSummary(conflicts []MemberConflict, members int, set *conflictSet) string {
	names := make([]string, len(conflicts))
	for i, c := range conflicts {
		names[i] = c.MemberName
	}
	return fmt.Sprintf("Conflicts for %d of %d members (%s). %s",
		len(conflicts), members,
		common.StringSliceToString(names),
		conflictSummary(set.allergenList(), set.restrictionList()),
	)
}
