package dietary

import (
	"recipe-compat/internal/pkg/common"
)

// IngredientRef 衝突所在的食材與其所屬組成部分
type IngredientRef struct {
	IngredientName string   `json:"ingredient_name"`
	ComponentName  string   `json:"component_name,omitempty"`
	Quantity       *float64 `json:"quantity,omitempty"`
	Unit           string   `json:"unit,omitempty"`
	Optional       bool     `json:"optional,omitempty"`
}

// AllergenConflict 食材觸發的過敏原（只包含呼叫端關心的分類）
type AllergenConflict struct {
	IngredientRef
	Allergens []AllergenCategory `json:"allergens"`
}

// RestrictionConflict 食材違反的飲食限制（只包含呼叫端關心的分類）
type RestrictionConflict struct {
	IngredientRef
	Restrictions []RestrictionCategory `json:"restrictions"`
}

func newRef(component string, ing common.Ingredient) IngredientRef {
	return IngredientRef{
		IngredientName: ing.Name,
		ComponentName:  component,
		Quantity:       ing.Quantity,
		Unit:           ing.Unit,
		Optional:       ing.Optional,
	}
}

// ScanForAllergens 掃描食譜，回傳與 targets 交集非空的食材。
// targets 為自由文字，經正規化與別名對應後比對；選用食材不會被豁免。
func (t *Taxonomy) ScanForAllergens(components []common.RecipeComponent, targets []string) []AllergenConflict {
	return t.ScanAllergenCategories(components, t.ResolveAllergens(targets))
}

// ScanAllergenCategories 同 ScanForAllergens，但接受已解析的分類
func (t *Taxonomy) ScanAllergenCategories(components []common.RecipeComponent, targets []AllergenCategory) []AllergenConflict {
	if len(targets) == 0 {
		return nil
	}
	var conflicts []AllergenConflict
	for _, comp := range components {
		for _, ing := range comp.Ingredients {
			matched := t.classifyAllergensIn(Normalize(ing.Name), targets)
			if len(matched) == 0 {
				continue
			}
			conflicts = append(conflicts, AllergenConflict{
				IngredientRef: newRef(comp.Name, ing),
				Allergens:     matched,
			})
		}
	}
	return conflicts
}

// ScanForRestrictions 掃描食譜，回傳違反 targets 中任一限制的食材
func (t *Taxonomy) ScanForRestrictions(components []common.RecipeComponent, targets []string) []RestrictionConflict {
	return t.ScanRestrictionCategories(components, t.ResolveRestrictions(targets))
}

// ScanRestrictionCategories 同 ScanForRestrictions，但接受已解析的分類
func (t *Taxonomy) ScanRestrictionCategories(components []common.RecipeComponent, targets []RestrictionCategory) []RestrictionConflict {
	if len(targets) == 0 {
		return nil
	}
	var conflicts []RestrictionConflict
	for _, comp := range components {
		for _, ing := range comp.Ingredients {
			matched := t.classifyRestrictionsIn(Normalize(ing.Name), targets)
			if len(matched) == 0 {
				continue
			}
			conflicts = append(conflicts, RestrictionConflict{
				IngredientRef: newRef(comp.Name, ing),
				Restrictions:  matched,
			})
		}
	}
	return conflicts
}

// DetectAllAllergens 回傳食譜中出現的所有過敏原分類
func (t *Taxonomy) DetectAllAllergens(components []common.RecipeComponent) []AllergenCategory {
	seen := make(map[AllergenCategory]bool)
	for _, c := range t.ScanAllergenCategories(components, allAllergens) {
		for _, cat := range c.Allergens {
			seen[cat] = true
		}
	}
	out := make([]AllergenCategory, 0, len(seen))
	for _, cat := range allAllergens {
		if seen[cat] {
			out = append(out, cat)
		}
	}
	return out
}

// DetectAllRestrictionViolations 回傳食譜違反的所有飲食限制分類
func (t *Taxonomy) DetectAllRestrictionViolations(components []common.RecipeComponent) []RestrictionCategory {
	seen := make(map[RestrictionCategory]bool)
	for _, c := range t.ScanRestrictionCategories(components, allRestrictions) {
		for _, cat := range c.Restrictions {
			seen[cat] = true
		}
	}
	out := make([]RestrictionCategory, 0, len(seen))
	for _, cat := range allRestrictions {
		if seen[cat] {
			out = append(out, cat)
		}
	}
	return out
}
