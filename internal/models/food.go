// internal/models/food.go
package models

import (
	"time"
)

// ServingUnit is the unit a serving amount is expressed in. Parsed foods are always grams.
type ServingUnit string

const (
	Grams  ServingUnit = "g"
	Ounces ServingUnit = "oz"
)

// FoodLogEntry is one logged food item for one user on one calendar day.
// Nutrition values are already scaled to Amount.
type FoodLogEntry struct {
	ID        string      `json:"id"`
	UserID    string      `json:"user_id"`
	Date      string      `json:"date"` // YYYY-MM-DD, local timezone
	Name      string      `json:"name"`
	Amount    float64     `json:"amount"`
	Unit      ServingUnit `json:"unit"`
	Calories  float64     `json:"calories"`
	Protein   float64     `json:"protein"`
	Carbs     float64     `json:"carbs"`
	Fat       float64     `json:"fat"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`
}

// DailyFoodTotals is the componentwise sum over a day's entries. Never persisted.
type DailyFoodTotals struct {
	Calories float64 `json:"calories"`
	Protein  float64 `json:"protein"`
	Carbs    float64 `json:"carbs"`
	Fat      float64 `json:"fat"`
}

// NutritionGoals are the daily targets progress is measured against.
type NutritionGoals struct {
	Calories float64 `json:"calories"`
	Protein  float64 `json:"protein"`
	Carbs    float64 `json:"carbs"`
	Fat      float64 `json:"fat"`
	Steps    int     `json:"steps"`
}

// AIFoodItem is a candidate food produced by the parser, not yet tied to a user or date.
type AIFoodItem struct {
	Name     string      `json:"name"`
	Amount   float64     `json:"amount"`
	Unit     ServingUnit `json:"unit"`
	Calories float64     `json:"calories"`
	Protein  float64     `json:"protein"`
	Carbs    float64     `json:"carbs"`
	Fat      float64     `json:"fat"`
}

type ConfidenceLevel string

const (
	HighConfidence   ConfidenceLevel = "high"
	MediumConfidence ConfidenceLevel = "medium"
	LowConfidence    ConfidenceLevel = "low"
)

// AIFoodResponse is the parser's uniform result: either Foods, or Error with a Suggestion.
type AIFoodResponse struct {
	Foods      []AIFoodItem    `json:"foods"`
	Confidence ConfidenceLevel `json:"confidence,omitempty"`
	Source     string          `json:"source,omitempty"`
	Notes      string          `json:"notes,omitempty"`
	Error      string          `json:"error,omitempty"`
	Suggestion string          `json:"suggestion,omitempty"`
}

// Failed reports whether the response carries an error instead of foods.
func (r *AIFoodResponse) Failed() bool {
	return r.Error != ""
}

type ToastType string

const (
	ToastSuccess ToastType = "success"
	ToastError   ToastType = "error"
)

// ToastState is a transient user notification.
type ToastState struct {
	Visible bool      `json:"visible"`
	Message string    `json:"message"`
	Type    ToastType `json:"type"`
}
