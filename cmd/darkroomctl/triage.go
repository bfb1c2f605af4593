package main

import (
	"context"
	"fmt"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/fpang/darkroom/internal/cli"
	"github.com/fpang/darkroom/internal/config"
	"github.com/fpang/darkroom/internal/photo"
	"github.com/fpang/darkroom/internal/triage"
)

var (
	decisionFlags   []string
	tagFlags        []string
	undoFlag        int
	interactiveFlag bool
	dryRunFlag      bool
)

var triageCmd = &cobra.Command{
	Use:   "triage",
	Short: "Load a triage session, apply decisions, and commit",
	Long: `Loads the working set (revealing first when the timer is due), applies the
given decisions in order, undoes the last --undo of them, then commits.

With --interactive every visible photo is prompted for in turn.`,
	RunE: runTriage,
}

func init() {
	triageCmd.Flags().StringArrayVar(&decisionFlags, "decision", nil, "Decision photoID=journal|archive|delete (repeatable, applied in order)")
	triageCmd.Flags().StringArrayVar(&tagFlags, "tag", nil, "Friend tags photoID=friend1,friend2 (repeatable)")
	triageCmd.Flags().IntVar(&undoFlag, "undo", 0, "Undo this many decisions before committing")
	triageCmd.Flags().BoolVarP(&interactiveFlag, "interactive", "i", false, "Prompt for each photo")
	triageCmd.Flags().BoolVar(&dryRunFlag, "dry-run", false, "Show the pending decisions without committing")
}

func runTriage(cmd *cobra.Command, args []string) error {
	userID, err := requireUser()
	if err != nil {
		return err
	}
	decisions, err := cli.ParseDecisions(decisionFlags)
	if err != nil {
		return err
	}
	tags, err := cli.ParseTags(tagFlags)
	if err != nil {
		return err
	}

	ctx := commandContext(cmd)
	ctrl := triage.NewController(userID, current.reconciler, current.photos, current.backend.Recorder, triageOptions(current.cfg))
	defer ctrl.Close()

	loaded, err := ctrl.Load(ctx)
	if err != nil {
		return err
	}
	if loaded.Err != nil {
		fmt.Printf("Warning: %v\n", loaded.Err)
	}
	fmt.Printf("Loaded %d photo(s) for %s", len(loaded.Photos), userID)
	if loaded.Revealed > 0 || loaded.CatchUp {
		fmt.Printf(" (revealed %d, catch-up %d)", loaded.Revealed, loaded.CatchUpRevealed)
	}
	fmt.Println()

	for id, friends := range tags {
		if err := ctrl.SetTags(id, friends); err != nil {
			return err
		}
	}
	for _, d := range decisions {
		if err := ctrl.Triage(d.PhotoID, d.Action); err != nil {
			return err
		}
	}
	for i := 0; i < undoFlag; i++ {
		if !ctrl.Undo() {
			log.Warn().Int("requested", undoFlag).Int("undone", i).Msg("Nothing left to undo")
			break
		}
	}

	var prompter *cli.Prompter
	if interactiveFlag {
		prompter = cli.NewPrompter(os.Stdin, os.Stdout)
		if err := promptSession(ctrl, prompter); err != nil {
			return err
		}
	}

	return finishTriage(ctx, ctrl, prompter)
}

// triageOptions maps the triage.* settings onto controller timing.
func triageOptions(cfg *config.Config) triage.Options {
	return triage.Options{
		CompleteDelay: cfg.CompleteDelay,
		UndoCooldown:  cfg.UndoCooldown,
	}
}

// promptSession walks the visible queue until it is empty or the user quits.
func promptSession(ctrl *triage.Controller, p *cli.Prompter) error {
	skipped := make(map[string]bool)
	for {
		s := ctrl.Session()
		var next string
		for _, ph := range s.Visible() {
			if !skipped[ph.ID] {
				next = ph.ID
				break
			}
		}
		if next == "" {
			return nil
		}

		label := fmt.Sprintf("[%d left, %d pending] %s", s.VisibleCount(), s.UndoDepth(), next)
		var action photo.Action
		switch p.PromptForDecision(label) {
		case cli.KeyJournal:
			action = photo.ActionJournal
		case cli.KeyArchive:
			action = photo.ActionArchive
		case cli.KeyDelete:
			action = photo.ActionDelete
		case cli.KeyUndo:
			if !ctrl.Undo() {
				fmt.Println("Nothing to undo")
			}
			continue
		case cli.KeySkip:
			skipped[next] = true
			continue
		default:
			return nil
		}
		if err := ctrl.Triage(next, action); err != nil {
			return err
		}
	}
}

// finishTriage commits the session. A non-nil prompter asks before
// committing; declining leaves everything uncommitted.
func finishTriage(ctx context.Context, ctrl *triage.Controller, prompter *cli.Prompter) error {
	s := ctrl.Session()
	pending := s.Decisions()
	if dryRunFlag {
		fmt.Printf("Dry run: %d pending decision(s), nothing committed\n", len(pending))
		return printJSON(s.Stack())
	}
	if prompter != nil && len(pending) > 0 &&
		!prompter.Confirm(fmt.Sprintf("Commit %d decision(s)?", len(pending))) {
		fmt.Printf("Discarded %d pending decision(s), nothing committed\n", len(pending))
		return nil
	}

	result, err := ctrl.Done(ctx)
	if err != nil {
		return err
	}
	if !result.Committed {
		fmt.Println("No decisions made, nothing committed")
		return nil
	}
	fmt.Printf("Committed %d decision(s): %d journaled, %d failed\n",
		len(result.Batch.Items), result.Batch.JournaledCount, result.Batch.FailedCount)
	if result.NotifyErr != nil {
		fmt.Printf("Warning: completion not recorded: %v\n", result.NotifyErr)
	}
	return printJSON(result.Batch)
}
