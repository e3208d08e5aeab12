package ml

import (
	"fmt"

	"github.com/franckalain/caloriesense/internal/models"
)

const estimatePrompt = `Analyze this image of food. Identify the food item and estimate its nutritional content.

Return ONLY a raw JSON string (no markdown formatting) with the following exact keys:
{
	"name": "food name string",
	"calories": int (total calories for default serving),
	"protein": float (g),
	"carbs": float (g),
	"fat": float (g),
	"fiber": float (g),
	"sugar": float (g),
	"sodium": float (mg),
	"servingSize": "string (e.g., '1 medium bowl')",
	"servingSizes": ["string", "string"] (list of common serving options),
	"description": "short description string"
}`

const coachInstruction = "You are a helpful nutrition coach."

const lookupInstruction = `You are CalorieSense AI, a nutrition expert. When given a food name, provide accurate nutritional information.

IMPORTANT: Return ONLY valid JSON with no additional text. The response must be parseable JSON.

For the given food, estimate the nutritional values for a typical serving size.

Return this exact JSON structure:
{
	"name": "Food Name",
	"calories": 250,
	"protein": 10,
	"carbs": 30,
	"fat": 8,
	"fiber": 3,
	"sugar": 5,
	"sodium": 200,
	"servingSize": "1 cup (240g)",
	"servingSizes": ["1 cup (240g)", "100g", "1 serving"],
	"description": "Brief description of the food",
	"image": "appropriate food emoji"
}

Be accurate with regional cuisines, street foods and homemade dishes.
If you're unsure, provide reasonable estimates based on typical ingredients.`

func insightPrompt(goal models.MacroGoal) string {
	return fmt.Sprintf("My macros today so far: Protein %dg, Carbs %dg. My goal is %d calories. Give me a 2-sentence motivational health tip.",
		goal.Protein, goal.Carbs, goal.Goal)
}

func lookupPrompt(name string) string {
	return fmt.Sprintf("Analyze this food and provide nutritional information: %q", name)
}
