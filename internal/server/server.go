// internal/server/server.go
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/ThinkInAIXYZ/go-mcp/protocol"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"mcp-food-log/internal/device"
	"mcp-food-log/internal/foodlog"
	"mcp-food-log/internal/logging"
	"mcp-food-log/internal/models"
)

// Parser turns a meal description into candidate foods.
type Parser interface {
	Parse(ctx context.Context, input string) *models.AIFoodResponse
}

// Pinger reports whether the backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Config struct {
	Host  string
	Port  int
	Goals models.NutritionGoals
}

// StepStore records the daily step count per user.
type StepStore interface {
	GetSteps(ctx context.Context, userID, date string) (int, error)
	SetSteps(ctx context.Context, userID, date string, steps int) error
}

// Deps are the components the server exposes as tools.
type Deps struct {
	Manager *foodlog.Manager
	Parser  Parser
	Prefs   *device.Prefs
	Steps   StepStore
	Store   Pinger
	Logger  *logging.Logger
}

type toolHandler func(ctx context.Context, req *protocol.CallToolRequest) (*protocol.CallToolResult, error)

type FoodLogServer struct {
	echo    *echo.Echo
	manager *foodlog.Manager
	parser  Parser
	prefs   *device.Prefs
	steps   StepStore
	store   Pinger
	logger  *logging.Logger
	metrics *Metrics
	tools   map[string]toolHandler
	config  *Config
}

func NewFoodLogServer(cfg *Config, deps Deps) (*FoodLogServer, error) {
	if deps.Manager == nil {
		return nil, errors.New("manager is required")
	}
	if deps.Parser == nil {
		return nil, errors.New("parser is required")
	}
	if deps.Prefs == nil {
		return nil, errors.New("prefs is required")
	}
	if deps.Steps == nil {
		return nil, errors.New("step store is required")
	}
	if deps.Logger == nil {
		deps.Logger = logging.NewNop()
	}
	if cfg == nil {
		cfg = &Config{Host: "0.0.0.0", Port: 8011}
	}

	s := &FoodLogServer{
		manager: deps.Manager,
		parser:  deps.Parser,
		prefs:   deps.Prefs,
		steps:   deps.Steps,
		store:   deps.Store,
		logger:  deps.Logger.Named("server"),
		metrics: NewMetrics(deps.Manager),
		config:  cfg,
	}
	s.registerTools()

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders: []string{echo.HeaderContentType, echo.HeaderAuthorization},
	}))
	e.Use(s.requestLogger)

	e.GET("/health", s.handleHealth)
	e.GET("/metrics", echo.WrapHandler(s.metrics.Handler()))
	e.POST("/", s.handleToolCall)

	s.echo = e
	return s, nil
}

func (s *FoodLogServer) requestLogger(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		start := time.Now()
		requestID := c.Response().Header().Get(echo.HeaderXRequestID)
		ctx := logging.WithRequestID(c.Request().Context(), requestID)
		c.SetRequest(c.Request().WithContext(ctx))

		err := next(c)

		s.logger.Debug(ctx, "http request",
			zap.String("method", c.Request().Method),
			zap.String("uri", c.Request().RequestURI),
			zap.Int("status", c.Response().Status),
			zap.Duration("duration", time.Since(start)),
		)
		return err
	}
}

// HealthResponse is the response body for GET /health.
type HealthResponse struct {
	Status string                  `json:"status"`
	Server protocol.Implementation `json:"server"`
	Store  string                  `json:"store,omitempty"`
}

func (s *FoodLogServer) handleHealth(c echo.Context) error {
	resp := HealthResponse{
		Status: "ok",
		Server: protocol.Implementation{Name: "food-log", Version: Version},
	}
	if s.store != nil {
		if err := s.store.Ping(c.Request().Context()); err != nil {
			resp.Status = "degraded"
			resp.Store = err.Error()
			return c.JSON(http.StatusServiceUnavailable, resp)
		}
		resp.Store = "ok"
	}
	return c.JSON(http.StatusOK, resp)
}

func (s *FoodLogServer) handleToolCall(c echo.Context) error {
	var request protocol.CallToolRequest
	if err := json.NewDecoder(c.Request().Body).Decode(&request); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("Invalid JSON: %v", err))
	}

	handler, ok := s.tools[request.Name]
	if !ok {
		s.metrics.ObserveTool("unknown", "not_found", 0)
		return echo.NewHTTPError(http.StatusNotFound, fmt.Sprintf("Unknown tool: %s", request.Name))
	}

	ctx := c.Request().Context()
	start := time.Now()
	result, err := handler(ctx, &request)
	if err != nil {
		s.metrics.ObserveTool(request.Name, "error", time.Since(start))
		var httpErr *echo.HTTPError
		if errors.As(err, &httpErr) {
			return httpErr
		}
		s.logger.Error(ctx, "tool call failed", zap.String("tool", request.Name), zap.Error(err))
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	s.metrics.ObserveTool(request.Name, "ok", time.Since(start))

	return c.JSON(http.StatusOK, result)
}

// Handler exposes the HTTP handler, mainly for tests.
func (s *FoodLogServer) Handler() http.Handler {
	return s.echo
}

func (s *FoodLogServer) Start(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	s.logger.Info(ctx, "starting food log server", zap.String("addr", addr))
	if err := s.echo.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *FoodLogServer) Stop(ctx context.Context) error {
	s.logger.Info(ctx, "shutting down food log server")
	return s.echo.Shutdown(ctx)
}

func (s *FoodLogServer) createJSONResponse(data interface{}) (*protocol.CallToolResult, error) {
	jsonBytes, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal response: %w", err)
	}

	return &protocol.CallToolResult{
		Content: []protocol.Content{
			protocol.TextContent{
				Type: "text",
				Text: string(jsonBytes),
			},
		},
	}, nil
}
