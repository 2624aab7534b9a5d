// internal/server/tools.go
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/ThinkInAIXYZ/go-mcp/protocol"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"mcp-food-log/internal/device"
	"mcp-food-log/internal/foodlog"
	"mcp-food-log/internal/models"
	"mcp-food-log/internal/nutrition"
)

type ParseFoodParams struct {
	Text string `json:"text" description:"Free-text description of what was eaten"`
}

type ScaleFoodParams struct {
	Item   models.AIFoodItem `json:"item" description:"Parsed food item to rescale"`
	Amount float64           `json:"amount" description:"New amount in grams"`
}

type AddFoodsParams struct {
	Foods []models.AIFoodItem `json:"foods" description:"Parsed food items to log for today"`
}

type DeleteFoodParams struct {
	ID string `json:"id" description:"Entry id to delete"`
}

type SetStepsParams struct {
	Steps int `json:"steps" description:"Step count for today"`
}

type SetThemeParams struct {
	Theme string `json:"theme" description:"Theme key"`
}

type SetHealthSyncParams struct {
	Linked bool `json:"linked" description:"Whether health sync is linked on this device"`
}

// TodayResult is returned by get_today and reload_today.
type TodayResult struct {
	foodlog.Snapshot
	Goals         models.NutritionGoals    `json:"goals"`
	Progress      foodlog.Progress         `json:"progress"`
	Steps         int                      `json:"steps"`
	StepsProgress foodlog.NutrientProgress `json:"steps_progress"`
}

type AddFoodsResult struct {
	Added  []models.FoodLogEntry  `json:"added"`
	Totals models.DailyFoodTotals `json:"totals"`
	Toast  models.ToastState      `json:"toast"`
}

type DeleteFoodResult struct {
	Deleted bool                   `json:"deleted"`
	Totals  models.DailyFoodTotals `json:"totals"`
	Toast   models.ToastState      `json:"toast"`
}

type ScaleFoodResult struct {
	Item    models.AIFoodItem `json:"item"`
	Display string            `json:"display"`
}

func (s *FoodLogServer) registerTools() {
	s.tools = map[string]toolHandler{
		"parse_food":      s.handleParseFood,
		"scale_food":      s.handleScaleFood,
		"add_foods":       s.handleAddFoods,
		"delete_food":     s.handleDeleteFood,
		"get_today":       s.handleGetToday,
		"reload_today":    s.handleReloadToday,
		"set_steps":       s.handleSetSteps,
		"get_toast":       s.handleGetToast,
		"dismiss_toast":   s.handleDismissToast,
		"get_preferences": s.handleGetPreferences,
		"list_themes":     s.handleListThemes,
		"set_theme":       s.handleSetTheme,
		"set_health_sync": s.handleSetHealthSync,
	}
}

// extractParams converts the request arguments into target.
func extractParams(req *protocol.CallToolRequest, target interface{}) error {
	jsonBytes, err := json.Marshal(req.Arguments)
	if err != nil {
		return fmt.Errorf("failed to marshal arguments: %w", err)
	}

	if err := json.Unmarshal(jsonBytes, target); err != nil {
		return fmt.Errorf("failed to unmarshal parameters: %w", err)
	}

	return nil
}

func invalidParams(format string, args ...interface{}) error {
	return echo.NewHTTPError(http.StatusBadRequest, fmt.Sprintf(format, args...))
}

// handleParseFood analyzes a meal description. Parser failures are data, not errors.
func (s *FoodLogServer) handleParseFood(ctx context.Context, req *protocol.CallToolRequest) (*protocol.CallToolResult, error) {
	var params ParseFoodParams
	if err := extractParams(req, &params); err != nil {
		return nil, invalidParams("invalid parameters: %v", err)
	}

	resp := s.parser.Parse(ctx, params.Text)
	if resp.Failed() {
		s.metrics.ObserveParse("failed")
		s.logger.Info(ctx, "food parse failed", zap.String("error", resp.Error))
	} else {
		s.metrics.ObserveParse("ok")
		s.logger.Debug(ctx, "food parsed", zap.Int("items", len(resp.Foods)))
	}

	return s.createJSONResponse(resp)
}

func (s *FoodLogServer) handleScaleFood(ctx context.Context, req *protocol.CallToolRequest) (*protocol.CallToolResult, error) {
	var params ScaleFoodParams
	if err := extractParams(req, &params); err != nil {
		return nil, invalidParams("invalid parameters: %v", err)
	}

	item := nutrition.ScaleItem(params.Item, params.Amount)
	return s.createJSONResponse(ScaleFoodResult{
		Item:    item,
		Display: nutrition.FormatWeight(item.Amount, models.Grams),
	})
}

func (s *FoodLogServer) handleAddFoods(ctx context.Context, req *protocol.CallToolRequest) (*protocol.CallToolResult, error) {
	var params AddFoodsParams
	if err := extractParams(req, &params); err != nil {
		return nil, invalidParams("invalid parameters: %v", err)
	}
	if len(params.Foods) == 0 {
		return nil, invalidParams("foods must contain at least one item")
	}
	for i, f := range params.Foods {
		if strings.TrimSpace(f.Name) == "" {
			return nil, invalidParams("foods[%d]: name is required", i)
		}
	}

	added := s.manager.AddFromAI(ctx, params.Foods)
	if added == nil {
		s.metrics.ObserveMutation("add", "failed")
		added = []models.FoodLogEntry{}
	} else {
		s.metrics.ObserveMutation("add", "ok")
	}

	return s.createJSONResponse(AddFoodsResult{
		Added:  added,
		Totals: s.manager.Totals(),
		Toast:  s.manager.Toast(),
	})
}

func (s *FoodLogServer) handleDeleteFood(ctx context.Context, req *protocol.CallToolRequest) (*protocol.CallToolResult, error) {
	var params DeleteFoodParams
	if err := extractParams(req, &params); err != nil {
		return nil, invalidParams("invalid parameters: %v", err)
	}
	if params.ID == "" {
		return nil, invalidParams("id is required")
	}

	deleted := s.manager.Delete(ctx, params.ID)
	if deleted {
		s.metrics.ObserveMutation("delete", "ok")
	} else {
		s.metrics.ObserveMutation("delete", "failed")
	}

	return s.createJSONResponse(DeleteFoodResult{
		Deleted: deleted,
		Totals:  s.manager.Totals(),
		Toast:   s.manager.Toast(),
	})
}

func (s *FoodLogServer) today(ctx context.Context) (TodayResult, error) {
	snap := s.manager.Snapshot()
	result := TodayResult{
		Snapshot: snap,
		Goals:    s.config.Goals,
		Progress: foodlog.BuildProgress(snap.Totals, s.config.Goals),
	}
	if snap.UserID != "" {
		steps, err := s.steps.GetSteps(ctx, snap.UserID, snap.Date)
		if err != nil {
			return TodayResult{}, fmt.Errorf("failed to load steps: %w", err)
		}
		result.Steps = steps
	}
	result.StepsProgress = foodlog.StepsProgress(result.Steps, s.config.Goals.Steps)
	return result, nil
}

func (s *FoodLogServer) todayResponse(ctx context.Context) (*protocol.CallToolResult, error) {
	result, err := s.today(ctx)
	if err != nil {
		return nil, err
	}
	return s.createJSONResponse(result)
}

func (s *FoodLogServer) handleGetToday(ctx context.Context, req *protocol.CallToolRequest) (*protocol.CallToolResult, error) {
	return s.todayResponse(ctx)
}

// handleReloadToday refetches from storage. A failed load is reported in
// load_error with an empty entry list.
func (s *FoodLogServer) handleReloadToday(ctx context.Context, req *protocol.CallToolRequest) (*protocol.CallToolResult, error) {
	if err := s.manager.Load(ctx); err != nil {
		s.metrics.ObserveMutation("load", "failed")
	} else {
		s.metrics.ObserveMutation("load", "ok")
	}
	return s.todayResponse(ctx)
}

func (s *FoodLogServer) handleSetSteps(ctx context.Context, req *protocol.CallToolRequest) (*protocol.CallToolResult, error) {
	var params SetStepsParams
	if err := extractParams(req, &params); err != nil {
		return nil, invalidParams("invalid parameters: %v", err)
	}
	if params.Steps < 0 {
		return nil, invalidParams("steps must not be negative")
	}
	userID := s.manager.UserID()
	if userID == "" {
		return nil, invalidParams("no active user")
	}

	if err := s.steps.SetSteps(ctx, userID, s.manager.Today(), params.Steps); err != nil {
		return nil, err
	}
	s.metrics.ObserveMutation("steps", "ok")

	return s.todayResponse(ctx)
}

func (s *FoodLogServer) handleGetToast(ctx context.Context, req *protocol.CallToolRequest) (*protocol.CallToolResult, error) {
	return s.createJSONResponse(s.manager.Toast())
}

func (s *FoodLogServer) handleDismissToast(ctx context.Context, req *protocol.CallToolRequest) (*protocol.CallToolResult, error) {
	s.manager.HideToast()
	return s.createJSONResponse(s.manager.Toast())
}

func (s *FoodLogServer) handleGetPreferences(ctx context.Context, req *protocol.CallToolRequest) (*protocol.CallToolResult, error) {
	prefs, err := s.prefs.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load preferences: %w", err)
	}
	return s.createJSONResponse(prefs)
}

func (s *FoodLogServer) handleListThemes(ctx context.Context, req *protocol.CallToolRequest) (*protocol.CallToolResult, error) {
	return s.createJSONResponse(device.Themes())
}

func (s *FoodLogServer) handleSetTheme(ctx context.Context, req *protocol.CallToolRequest) (*protocol.CallToolResult, error) {
	var params SetThemeParams
	if err := extractParams(req, &params); err != nil {
		return nil, invalidParams("invalid parameters: %v", err)
	}

	if err := s.prefs.SetTheme(ctx, device.Theme(params.Theme)); err != nil {
		if errors.Is(err, device.ErrUnknownTheme) {
			return nil, invalidParams("%v", err)
		}
		return nil, err
	}
	s.logger.Info(ctx, "theme changed", zap.String("theme", params.Theme))

	return s.handleGetPreferences(ctx, req)
}

func (s *FoodLogServer) handleSetHealthSync(ctx context.Context, req *protocol.CallToolRequest) (*protocol.CallToolResult, error) {
	var params SetHealthSyncParams
	if err := extractParams(req, &params); err != nil {
		return nil, invalidParams("invalid parameters: %v", err)
	}

	if err := s.prefs.SetHealthSyncLinked(ctx, params.Linked); err != nil {
		return nil, err
	}

	return s.handleGetPreferences(ctx, req)
}
