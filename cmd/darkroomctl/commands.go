package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fpang/darkroom/internal/cli"
)

var captureCmd = &cobra.Command{
	Use:   "capture <imageURL>",
	Short: "Store a developing photo and initialize the darkroom timer",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		userID, err := requireUser()
		if err != nil {
			return err
		}
		p, err := current.photos.Capture(commandContext(cmd), userID, args[0])
		if err != nil {
			return err
		}
		return printJSON(p)
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the darkroom timer without changing it",
	RunE: func(cmd *cobra.Command, args []string) error {
		userID, err := requireUser()
		if err != nil {
			return err
		}
		st, err := current.darkroom.Status(commandContext(cmd), userID)
		if err != nil {
			return err
		}
		switch {
		case !st.Exists:
			fmt.Printf("%s: no darkroom timer\n", userID)
		case st.Ready:
			fmt.Printf("%s: reveal due\n", userID)
		default:
			fmt.Printf("%s: next reveal in %s\n", userID, cli.FormatDurationShort(st.Remaining))
		}
		return printJSON(st)
	},
}

var revealCmd = &cobra.Command{
	Use:   "reveal",
	Short: "Reveal all developing photos now and reschedule the timer",
	RunE: func(cmd *cobra.Command, args []string) error {
		userID, err := requireUser()
		if err != nil {
			return err
		}
		revealed, scheduled, err := current.darkroom.RevealAndSchedule(commandContext(cmd), userID)
		if err != nil {
			return err
		}
		fmt.Printf("Revealed %d photo(s)\n", revealed.Count)
		return printJSON(scheduled)
	},
}

var loadCmd = &cobra.Command{
	Use:   "load",
	Short: "Run the triage load sequence and print the working set",
	RunE: func(cmd *cobra.Command, args []string) error {
		userID, err := requireUser()
		if err != nil {
			return err
		}
		result := current.reconciler.LoadWorkingSet(commandContext(cmd), userID)
		if result.Err != nil {
			fmt.Printf("Warning: %v\n", result.Err)
		}
		return printJSON(result)
	},
}

var reactCmd = &cobra.Command{
	Use:   "react <photoID> [emoji]",
	Short: "Toggle the user's reaction on a photo (no emoji clears it)",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		userID, err := requireUser()
		if err != nil {
			return err
		}
		emoji := ""
		if len(args) == 2 {
			emoji = args[1]
		}
		p, err := current.photos.ToggleReaction(commandContext(cmd), args[0], userID, emoji)
		if err != nil {
			return err
		}
		return printJSON(p)
	},
}
