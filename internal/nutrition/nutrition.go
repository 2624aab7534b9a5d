// Package nutrition holds the pure aggregation and unit helpers used by the food log.
package nutrition

import (
	"fmt"
	"math"
	"strconv"

	"mcp-food-log/internal/models"
)

// GramsPerOz is the fixed conversion factor: 1 oz = 28.35 g.
const GramsPerOz = 28.35

// Calories per gram of each macronutrient.
const (
	caloriesPerGramProtein = 4
	caloriesPerGramCarbs   = 4
	caloriesPerGramFat     = 9
)

// DailyTotals sums calories and macros across entries. An empty list yields zero totals.
func DailyTotals(entries []models.FoodLogEntry) models.DailyFoodTotals {
	var t models.DailyFoodTotals
	for _, e := range entries {
		t.Calories += e.Calories
		t.Protein += e.Protein
		t.Carbs += e.Carbs
		t.Fat += e.Fat
	}
	return t
}

// SumItems totals a set of parsed candidates, e.g. the subset selected before saving.
func SumItems(items []models.AIFoodItem) models.DailyFoodTotals {
	var t models.DailyFoodTotals
	for _, it := range items {
		t.Calories += it.Calories
		t.Protein += it.Protein
		t.Carbs += it.Carbs
		t.Fat += it.Fat
	}
	return t
}

// ProgressPercentage returns current as a percentage of goal, clamped to [0, 100].
// A goal <= 0 yields 0.
func ProgressPercentage(current, goal float64) float64 {
	if goal <= 0 {
		return 0
	}
	pct := current / goal * 100
	return math.Max(0, math.Min(pct, 100))
}

// Remaining returns goal - current. Negative means the goal was exceeded.
func Remaining(current, goal float64) float64 {
	return goal - current
}

// CaloriesFromMacros converts macro grams to whole calories (4/4/9 per gram).
func CaloriesFromMacros(protein, carbs, fat float64) float64 {
	return math.Round(protein*caloriesPerGramProtein + carbs*caloriesPerGramCarbs + fat*caloriesPerGramFat)
}

// GramsToOz converts grams to ounces rounded to one decimal place.
func GramsToOz(grams float64) float64 {
	return math.Round(grams/GramsPerOz*10) / 10
}

// OzToGrams converts ounces to whole grams.
func OzToGrams(oz float64) float64 {
	return math.Round(oz * GramsPerOz)
}

// FormatWeight renders an amount for display: "100g" or "3.5oz".
func FormatWeight(amount float64, unit models.ServingUnit) string {
	if unit == models.Ounces {
		return strconv.FormatFloat(math.Round(amount*10)/10, 'f', -1, 64) + "oz"
	}
	return fmt.Sprintf("%dg", int64(math.Round(amount)))
}

// ScaleItem resizes a parsed item to newAmount before it is saved, rescaling
// calories and macros proportionally and rounding them to integers. A
// non-positive newAmount, or an item with no amount to scale from, is returned
// unchanged.
func ScaleItem(item models.AIFoodItem, newAmount float64) models.AIFoodItem {
	if newAmount <= 0 || item.Amount <= 0 {
		return item
	}
	ratio := newAmount / item.Amount
	item.Amount = newAmount
	item.Calories = math.Round(item.Calories * ratio)
	item.Protein = math.Round(item.Protein * ratio)
	item.Carbs = math.Round(item.Carbs * ratio)
	item.Fat = math.Round(item.Fat * ratio)
	return item
}
