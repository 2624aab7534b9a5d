package foodlog

import (
	"mcp-food-log/internal/models"
	"mcp-food-log/internal/nutrition"
)

// NutrientProgress is one nutrient measured against its goal.
type NutrientProgress struct {
	Current    float64 `json:"current"`
	Goal       float64 `json:"goal"`
	Percentage float64 `json:"percentage"`
	Remaining  float64 `json:"remaining"`
}

// Progress measures a day's totals against goals.
type Progress struct {
	Calories    NutrientProgress `json:"calories"`
	Protein     NutrientProgress `json:"protein"`
	Carbs       NutrientProgress `json:"carbs"`
	Fat         NutrientProgress `json:"fat"`
	GoalReached bool             `json:"goal_reached"`
}

// GoalsFromMacros builds goals whose calorie target is derived from the macros.
func GoalsFromMacros(protein, carbs, fat float64) models.NutritionGoals {
	return models.NutritionGoals{
		Calories: nutrition.CaloriesFromMacros(protein, carbs, fat),
		Protein:  protein,
		Carbs:    carbs,
		Fat:      fat,
	}
}

// BuildProgress computes per-nutrient progress. GoalReached reports whether
// the calorie goal is met.
func BuildProgress(totals models.DailyFoodTotals, goals models.NutritionGoals) Progress {
	return Progress{
		Calories:    nutrient(totals.Calories, goals.Calories),
		Protein:     nutrient(totals.Protein, goals.Protein),
		Carbs:       nutrient(totals.Carbs, goals.Carbs),
		Fat:         nutrient(totals.Fat, goals.Fat),
		GoalReached: goals.Calories > 0 && totals.Calories >= goals.Calories,
	}
}

func nutrient(current, goal float64) NutrientProgress {
	return NutrientProgress{
		Current:    current,
		Goal:       goal,
		Percentage: nutrition.ProgressPercentage(current, goal),
		Remaining:  nutrition.Remaining(current, goal),
	}
}

// Progress measures the manager's current totals against goals.
func (m *Manager) Progress(goals models.NutritionGoals) Progress {
	return BuildProgress(m.Totals(), goals)
}

// StepsProgress measures a day's step count against the steps goal.
func StepsProgress(steps, goal int) NutrientProgress {
	return nutrient(float64(steps), float64(goal))
}
