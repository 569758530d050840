package dietary

// ClassifyAllergens 回傳食材名稱觸發的所有過敏原分類
func (t *Taxonomy) ClassifyAllergens(ingredientName string) []AllergenCategory {
	return t.classifyAllergensIn(Normalize(ingredientName), allAllergens)
}

// ClassifyRestrictions 回傳食材名稱違反的所有飲食限制分類
func (t *Taxonomy) ClassifyRestrictions(ingredientName string) []RestrictionCategory {
	return t.classifyRestrictionsIn(Normalize(ingredientName), allRestrictions)
}

// classifyAllergensIn 只檢查指定的分類；每個分類在第一個命中的關鍵字後即停止
func (t *Taxonomy) classifyAllergensIn(name string, cats []AllergenCategory) []AllergenCategory {
	if name == "" {
		return nil
	}
	var out []AllergenCategory
	for _, cat := range cats {
		if anyKeyword(t.allergens[cat], name) {
			out = append(out, cat)
		}
	}
	return out
}

func (t *Taxonomy) classifyRestrictionsIn(name string, cats []RestrictionCategory) []RestrictionCategory {
	if name == "" {
		return nil
	}
	var out []RestrictionCategory
	for _, cat := range cats {
		if anyKeyword(t.restrictions[cat], name) {
			out = append(out, cat)
		}
	}
	return out
}

func anyKeyword(keywords []Keyword, haystack string) bool {
	for _, kw := range keywords {
		if kw.match(haystack) {
			return true
		}
	}
	return false
}
