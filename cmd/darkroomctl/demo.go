package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/fpang/darkroom/internal/photo"
	"github.com/fpang/darkroom/internal/triage"
)

var demoCmd = &cobra.Command{
	Use:   "demo",
	Short: "Run capture, reveal, and triage end to end against an in-memory store",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := commandContext(cmd)
		userID := userFlag
		if userID == "" {
			userID = "demo-user"
		}

		var ids []string
		for i := 1; i <= 3; i++ {
			p, err := current.photos.Capture(ctx, userID, fmt.Sprintf("https://example.invalid/photo-%d.jpg", i))
			if err != nil {
				return err
			}
			ids = append(ids, p.ID)
		}
		fmt.Printf("Captured %d developing photo(s)\n", len(ids))

		revealed, _, err := current.darkroom.RevealAndSchedule(ctx, userID)
		if err != nil {
			return err
		}
		fmt.Printf("Revealed %d photo(s)\n", revealed.Count)

		ctrl := triage.NewController(userID, current.reconciler, current.photos, current.backend.Recorder, triageOptions(current.cfg))
		defer ctrl.Close()
		if _, err := ctrl.Load(ctx); err != nil {
			return err
		}

		steps := []struct {
			id     string
			action photo.Action
		}{
			{ids[0], photo.ActionJournal},
			{ids[1], photo.ActionDelete},
		}
		for _, s := range steps {
			if err := ctrl.Triage(s.id, s.action); err != nil {
				return err
			}
			fmt.Printf("  %s -> %s\n", s.id, s.action)
		}
		ctrl.Undo()
		fmt.Printf("  undo %s\n", ids[1])
		if err := ctrl.SetTags(ids[1], []string{"friend-1"}); err != nil {
			return err
		}
		for _, s := range []struct {
			id     string
			action photo.Action
		}{{ids[1], photo.ActionArchive}, {ids[2], photo.ActionJournal}} {
			if err := ctrl.Triage(s.id, s.action); err != nil {
				return err
			}
			fmt.Printf("  %s -> %s\n", s.id, s.action)
		}
		fmt.Printf("All photos decided: %v\n", ctrl.Session().PendingSuccess())
		deadline := time.Now().Add(time.Second + current.cfg.CompleteDelay)
		for !ctrl.Session().Complete() && time.Now().Before(deadline) {
			time.Sleep(10 * time.Millisecond)
		}
		fmt.Printf("Session complete: %v\n", ctrl.Session().Complete())

		result, err := ctrl.Done(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("Committed: %d journaled, %d failed\n", result.Batch.JournaledCount, result.Batch.FailedCount)

		for _, id := range ids {
			p, err := current.backend.Store.GetPhoto(ctx, id)
			if err != nil {
				return err
			}
			if err := printJSON(p); err != nil {
				return err
			}
		}
		return nil
	},
}
