package gate

import "strings"

// foodKeywords are matched as substrings of classifier labels. The list covers
// dishes, ingredients and food categories found among ImageNet labels.
var foodKeywords = []string{
	"food", "fruit", "vegetable", "meat", "bread", "dish", "pot", "soup",
	"coffee", "tea", "cake", "pizza", "burger", "sandwich", "salad",
	"pasta", "noodle", "rice", "chicken", "fish", "beef", "pork",
	"chocolate", "cream", "sauce", "berry", "orange", "apple", "banana",
	"grape", "lemon", "lime", "corn", "potato", "tomato", "onion",
	"carrot", "cucumber", "lettuce", "spinach", "broccoli", "cauliflower",
	"mushroom", "pepper", "egg", "cheese", "milk", "yogurt", "butter",
	"oil", "sugar", "salt", "spice", "herb", "flour", "grain", "cereal",
}

// MatchKeyword returns the first food keyword contained in label, ignoring case.
func MatchKeyword(label string) (string, bool) {
	lower := strings.ToLower(label)
	for _, keyword := range foodKeywords {
		if strings.Contains(lower, keyword) {
			return keyword, true
		}
	}
	return "", false
}
