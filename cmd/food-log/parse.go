package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"mcp-food-log/internal/nutrition"
)

var parseAdd bool

var parseCmd = &cobra.Command{
	Use:   "parse <text>",
	Short: "Parse a meal description into foods",
	Long: `Parse a meal description into foods using the configured model.

Examples:
  food-log parse "6 oz chicken breast and an apple"

  # Parse and log the result for today
  food-log parse --add "two eggs and toast"`,
	Args: cobra.MinimumNArgs(1),
	RunE: runParse,
}

func init() {
	parseCmd.Flags().BoolVar(&parseAdd, "add", false, "log the parsed foods for today")
}

func runParse(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	ctx := cmd.Context()
	resp := a.parser.Parse(ctx, strings.Join(args, " "))
	if resp.Failed() {
		return fmt.Errorf("%s: %s", resp.Error, resp.Suggestion)
	}

	out := cmd.OutOrStdout()
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	if err := enc.Encode(resp); err != nil {
		return err
	}

	totals := nutrition.SumItems(resp.Foods)
	fmt.Fprintf(out, "total: %.0f kcal, %.0fg protein, %.0fg carbs, %.0fg fat\n",
		totals.Calories, totals.Protein, totals.Carbs, totals.Fat)

	if !parseAdd {
		return nil
	}
	if err := a.manager.Load(ctx); err != nil {
		return err
	}
	if a.manager.AddFromAI(ctx, resp.Foods) == nil {
		return fmt.Errorf("%s", a.manager.Toast().Message)
	}
	fmt.Fprintln(out, a.manager.Toast().Message)
	return nil
}
