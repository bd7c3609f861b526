package domain

// Category is the closed set of topic categories.
type Category string

const (
	CategoryGeneral     Category = "general"
	CategoryNutrition   Category = "nutrition"
	CategoryFitness     Category = "fitness"
	CategoryMindfulness Category = "mindfulness"
	CategorySleep       Category = "sleep"
	CategoryRecipes     Category = "recipes"
	CategorySupport     Category = "support"
)

var categories = []Category{
	CategoryGeneral,
	CategoryNutrition,
	CategoryFitness,
	CategoryMindfulness,
	CategorySleep,
	CategoryRecipes,
	CategorySupport,
}

// Categories returns every known category in display order.
func Categories() []Category {
	out := make([]Category, len(categories))
	copy(out, categories)
	return out
}

// Valid reports whether c is a known category.
func (c Category) Valid() bool {
	for _, known := range categories {
		if c == known {
			return true
		}
	}
	return false
}
