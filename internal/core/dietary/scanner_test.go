package dietary

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"recipe-compat/internal/pkg/common"
)

func qty(v float64) *float64 { return &v }

func pestoPasta() []common.RecipeComponent {
	return []common.RecipeComponent{
		{
			Name: "Pesto",
			Ingredients: []common.Ingredient{
				{Name: "fresh basil", Quantity: qty(2), Unit: "cups"},
				{Name: "pine nuts", Quantity: qty(0.25), Unit: "cup"},
				{Name: "parmesan", Quantity: qty(50), Unit: "g"},
				{Name: "olive oil"},
			},
		},
		{
			Name: "Main",
			Ingredients: []common.Ingredient{
				{Name: "spaghetti", Quantity: qty(400), Unit: "g"},
				{Name: "toasted walnuts", Optional: true},
			},
		},
	}
}

func TestScanForAllergensReturnsOnlyMatchedSubset(t *testing.T) {
	tax := Default()

	conflicts := tax.ScanForAllergens(pestoPasta(), []string{"nuts"})
	require.Len(t, conflicts, 2)

	assert.Equal(t, "pine nuts", conflicts[0].IngredientName)
	assert.Equal(t, "Pesto", conflicts[0].ComponentName)
	assert.Equal(t, 0.25, *conflicts[0].Quantity)
	assert.Equal(t, "cup", conflicts[0].Unit)
	assert.Equal(t, []AllergenCategory{Nuts}, conflicts[0].Allergens)

	assert.Equal(t, "toasted walnuts", conflicts[1].IngredientName)
	assert.Equal(t, "Main", conflicts[1].ComponentName)
}

func TestScanDoesNotExemptOptionalIngredients(t *testing.T) {
	tax := Default()

	components := []common.RecipeComponent{{
		Name:        "Garnish",
		Ingredients: []common.Ingredient{{Name: "chopped almonds", Optional: true}},
	}}
	conflicts := tax.ScanForAllergens(components, []string{"nuts"})
	require.Len(t, conflicts, 1)
	assert.True(t, conflicts[0].Optional)
}

func TestScanNormalizesTargets(t *testing.T) {
	tax := Default()

	conflicts := tax.ScanForRestrictions(pestoPasta(), []string{"  Gluten-Free "})
	require.Len(t, conflicts, 1)
	assert.Equal(t, "spaghetti", conflicts[0].IngredientName)
	assert.Equal(t, []RestrictionCategory{GlutenFree}, conflicts[0].Restrictions)

	assert.Len(t, tax.ScanForAllergens(pestoPasta(), []string{"Tree Nuts"}), 2)
}

func TestScanIgnoresUnknownAndEmptyTargets(t *testing.T) {
	tax := Default()

	assert.Empty(t, tax.ScanForAllergens(pestoPasta(), nil))
	assert.Empty(t, tax.ScanForAllergens(pestoPasta(), []string{"kryptonite"}))
	assert.Empty(t, tax.ScanForRestrictions(pestoPasta(), []string{}))
}

func TestScanWithoutOverlapProducesNoEntry(t *testing.T) {
	tax := Default()
	assert.Empty(t, tax.ScanForAllergens(pestoPasta(), []string{"shellfish"}))
}

func TestScanIsMonotonicInTargets(t *testing.T) {
	tax := Default()
	recipe := pestoPasta()

	subset := []string{"nuts"}
	superset := []string{"nuts", "dairy", "gluten"}

	small := tax.ScanForAllergens(recipe, subset)
	large := tax.ScanForAllergens(recipe, superset)
	assert.GreaterOrEqual(t, len(large), len(small))
	assert.Len(t, large, 4)

	smallR := tax.ScanForRestrictions(recipe, []string{"vegan"})
	largeR := tax.ScanForRestrictions(recipe, []string{"vegan", "gluten-free"})
	assert.GreaterOrEqual(t, len(largeR), len(smallR))
}

func TestSunflowerOilIsNotANut(t *testing.T) {
	tax := Default()
	components := []common.RecipeComponent{{
		Name:        "Dressing",
		Ingredients: []common.Ingredient{{Name: "sunflower oil"}},
	}}
	assert.Empty(t, tax.ScanForAllergens(components, []string{"nuts"}))
}

func TestArabicPistachioIsANut(t *testing.T) {
	tax := Default()
	components := []common.RecipeComponent{{
		Name:        "حشوة",
		Ingredients: []common.Ingredient{{Name: "فستق"}},
	}}
	conflicts := tax.ScanForAllergens(components, []string{"nuts"})
	require.Len(t, conflicts, 1)
	assert.Equal(t, []AllergenCategory{Nuts}, conflicts[0].Allergens)
}

func TestDetectAll(t *testing.T) {
	tax := Default()

	assert.Equal(t,
		[]AllergenCategory{Nuts, Dairy, Wheat, Gluten},
		tax.DetectAllAllergens(pestoPasta()),
	)
	assert.Equal(t,
		[]RestrictionCategory{GlutenFree, DairyFree, Vegan},
		tax.DetectAllRestrictionViolations(pestoPasta()),
	)
	assert.Empty(t, tax.DetectAllAllergens(nil))
}
