package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Hutch7777777/ai-estimator-sub002/internal/extraction"
)

func importCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import <payload.json>",
		Short: "Ingest an extraction pipeline payload",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("failed to open payload: %w", err)
			}
			defer func() { _ = f.Close() }()

			payload, err := extraction.DecodeJob(f)
			if err != nil {
				return err
			}
			job, pages, detections := payload.Model()

			store, err := openStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			if err := store.SaveJob(ctx, job); err != nil {
				return err
			}
			if err := store.SavePages(ctx, pages); err != nil {
				return err
			}
			if len(detections) > 0 {
				if err := store.SaveDetections(ctx, detections); err != nil {
					return err
				}
			}

			fmt.Printf("Imported job %s: %d pages, %d detections\n",
				job.ID, len(pages), len(detections))
			return nil
		},
	}
}
