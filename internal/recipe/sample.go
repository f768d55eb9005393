package recipe

// SampleCatalog returns the built-in recipe set used when no other catalog
// source is configured. Each call returns a fresh value.
func SampleCatalog() Catalog {
	return Catalog{
		Breakfast: {
			sample("Masala Oats", "vegetarian", 250, 12, 40, 6, 15,
				map[string]float64{"oats": 50, "vegetables": 100, "spices": 10, "oil": 5}),
			sample("Paneer Paratha", "vegetarian", 380, 18, 45, 15, 25,
				map[string]float64{"whole_wheat_flour": 80, "paneer": 100, "spices": 10, "oil": 8}),
			sample("Egg Bhurji", "non-vegetarian", 280, 20, 10, 18, 15,
				map[string]float64{"eggs": 3, "onion": 50, "tomato": 50, "spices": 10, "oil": 7}),
		},
		Lunch: {
			sample("Dal Rice with Salad", "vegetarian", 450, 22, 75, 12, 30,
				map[string]float64{"rice": 150, "dal": 100, "vegetables": 200, "spices": 15, "oil": 10}),
			sample("Chicken Curry with Roti", "non-vegetarian", 520, 35, 45, 22, 40,
				map[string]float64{"chicken": 200, "whole_wheat_flour": 100, "spices": 20, "oil": 15}),
		},
		Dinner: {
			sample("Vegetable Khichdi", "vegetarian", 380, 15, 60, 10, 25,
				map[string]float64{"rice": 100, "dal": 80, "vegetables": 150, "spices": 10, "ghee": 8}),
			sample("Grilled Fish with Vegetables", "non-vegetarian", 320, 28, 15, 18, 20,
				map[string]float64{"fish": 150, "vegetables": 200, "lemon": 1, "spices": 10, "oil": 5}),
		},
	}
}

func sample(name, diet string, calories, protein, carbs, fat float64, prep int, ingredients map[string]float64) Recipe {
	return Recipe{
		Name:        name,
		Ingredients: ingredients,
		Calories:    Float(calories),
		Protein:     Float(protein),
		Carbs:       Float(carbs),
		Fat:         Float(fat),
		PrepTime:    prep,
		DietType:    diet,
	}
}
