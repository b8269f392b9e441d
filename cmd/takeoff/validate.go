package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Hutch7777777/ai-estimator-sub002/internal/common"
	"github.com/Hutch7777777/ai-estimator-sub002/internal/session"
)

func validateCmd() *cobra.Command {
	var discard bool

	cmd := &cobra.Command{
		Use:   "validate <job-id>",
		Short: "Commit a job's pending draft edits to the store",
		Long: `Validate opens the job's edit session, restores the pending draft
snapshot if one exists, and commits the full detection set. With --discard
the draft is dropped instead of committed.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			jobID := args[0]

			store, err := openStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			if _, err := store.GetJob(ctx, jobID); err != nil {
				return err
			}
			pages, err := store.GetPages(ctx, jobID)
			if err != nil {
				return err
			}
			detections, err := store.GetDetections(ctx, jobID)
			if err != nil {
				return err
			}

			sess, draft, err := session.Open(ctx, jobID, pages, detections, store, store, session.DefaultConfig())
			if err != nil {
				return err
			}
			if draft == nil {
				fmt.Println("No pending draft to validate")
				return nil
			}

			if discard {
				if err := store.DeleteDraft(ctx, jobID); err != nil {
					return err
				}
				fmt.Printf("Discarded draft from %s\n", draft.SavedAt.Format("2006-01-02 15:04"))
				return nil
			}

			if err := sess.RestoreDraft(draft); err != nil {
				return err
			}

			failures, err := sess.Commit(ctx)
			if err != nil {
				if errors.Is(err, common.ErrCommitFailed) {
					for _, f := range failures {
						fmt.Printf("  rejected %s: %s\n", f.DetectionID, f.Reason)
					}
				}
				return common.NewUserError("validation failed, edits preserved", err)
			}

			fmt.Printf("Validated %d detections for job %s\n", len(draft.Detections), jobID)
			return nil
		},
	}

	cmd.Flags().BoolVar(&discard, "discard", false, "drop the pending draft instead of committing it")
	return cmd
}
