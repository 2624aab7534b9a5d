// Package main implements the food-log CLI: the HTTP tool server plus a few
// commands for working with the log from a terminal.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"mcp-food-log/internal/config"
	"mcp-food-log/internal/device"
	"mcp-food-log/internal/foodlog"
	"mcp-food-log/internal/logging"
	"mcp-food-log/internal/models"
	"mcp-food-log/internal/parser"
	"mcp-food-log/internal/server"
	"mcp-food-log/internal/storage"
)

var configPath string

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "food-log",
	Short: "AI-assisted daily food log",
	Long: `food-log keeps a per-day food log with calorie and macro totals.
Meals are described in plain text and parsed into foods by an OpenAI-compatible model.`,
	Version:      server.Version,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to YAML config file")
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(parseCmd)
	rootCmd.AddCommand(todayCmd)
	rootCmd.AddCommand(stepsCmd)
	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "food-log version %s\n", server.Version)
	},
}

// app is the wired set of components shared by the subcommands.
type app struct {
	cfg     *config.Config
	logger  *logging.Logger
	store   *storage.SQLiteStorage
	parser  *parser.Client
	manager *foodlog.Manager
	prefs   *device.Prefs
}

func newApp() (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	logger, err := logging.NewLogger(&cfg.Log)
	if err != nil {
		return nil, fmt.Errorf("create logger: %w", err)
	}

	store, err := storage.NewSQLiteStorage(cfg.Storage.DBPath)
	if err != nil {
		return nil, fmt.Errorf("open storage: %w", err)
	}

	client := parser.NewClient(parser.Config{
		APIKey:      cfg.OpenAI.APIKey.Value(),
		BaseURL:     cfg.OpenAI.BaseURL,
		Model:       cfg.OpenAI.Model,
		Temperature: cfg.OpenAI.Temperature,
		MaxTokens:   cfg.OpenAI.MaxTokens,
		Timeout:     cfg.OpenAI.Timeout,
		RateLimit:   cfg.OpenAI.RateLimit,
		Burst:       cfg.OpenAI.Burst,
	}, logger)

	manager := foodlog.NewManager(store, cfg.User.ID,
		foodlog.WithLogger(logger),
		foodlog.WithToastDuration(cfg.Toast.Duration),
	)

	return &app{
		cfg:     cfg,
		logger:  logger,
		store:   store,
		parser:  client,
		manager: manager,
		prefs:   device.NewPrefs(store),
	}, nil
}

func (a *app) goals() models.NutritionGoals {
	goals := foodlog.GoalsFromMacros(a.cfg.Goals.Protein, a.cfg.Goals.Carbs, a.cfg.Goals.Fat)
	goals.Steps = a.cfg.Goals.Steps
	return goals
}

func (a *app) Close() {
	a.manager.Close()
	_ = a.store.Close()
	_ = a.logger.Sync()
}
