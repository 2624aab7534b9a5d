package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"mcp-food-log/internal/foodlog"
	"mcp-food-log/internal/nutrition"
)

var todayCmd = &cobra.Command{
	Use:   "today",
	Short: "Show today's entries, totals and goal progress",
	Args:  cobra.NoArgs,
	RunE:  runToday,
}

func runToday(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.manager.Load(cmd.Context()); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s (%s)\n\n", a.manager.Today(), a.manager.UserID())

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tAMOUNT\tKCAL\tP\tC\tF\tID")
	for _, e := range a.manager.Entries() {
		fmt.Fprintf(w, "%s\t%s\t%.0f\t%.0f\t%.0f\t%.0f\t%s\n",
			e.Name, nutrition.FormatWeight(e.Amount, e.Unit), e.Calories, e.Protein, e.Carbs, e.Fat, e.ID)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	goals := a.goals()
	p := a.manager.Progress(goals)
	steps, err := a.store.GetSteps(cmd.Context(), a.manager.UserID(), a.manager.Today())
	if err != nil {
		return err
	}
	sp := foodlog.StepsProgress(steps, goals.Steps)
	fmt.Fprintln(out)
	fmt.Fprintf(out, "calories %.0f / %.0f (%.0f%%)\n", p.Calories.Current, p.Calories.Goal, p.Calories.Percentage)
	fmt.Fprintf(out, "protein  %.0f / %.0f (%.0f%%)\n", p.Protein.Current, p.Protein.Goal, p.Protein.Percentage)
	fmt.Fprintf(out, "carbs    %.0f / %.0f (%.0f%%)\n", p.Carbs.Current, p.Carbs.Goal, p.Carbs.Percentage)
	fmt.Fprintf(out, "fat      %.0f / %.0f (%.0f%%)\n", p.Fat.Current, p.Fat.Goal, p.Fat.Percentage)
	fmt.Fprintf(out, "steps    %.0f / %.0f (%.0f%%)\n", sp.Current, sp.Goal, sp.Percentage)
	return nil
}
