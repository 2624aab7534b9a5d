package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

var stepsCmd = &cobra.Command{
	Use:   "steps <count>",
	Short: "Record today's step count",
	Args:  cobra.ExactArgs(1),
	RunE:  runSteps,
}

func runSteps(cmd *cobra.Command, args []string) error {
	steps, err := strconv.Atoi(args[0])
	if err != nil || steps < 0 {
		return fmt.Errorf("steps must be a non-negative integer, got %q", args[0])
	}

	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.store.SetSteps(cmd.Context(), a.manager.UserID(), a.manager.Today(), steps); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "steps %d / %d\n", steps, a.goals().Steps)
	return nil
}
