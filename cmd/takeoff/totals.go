package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Hutch7777777/ai-estimator-sub002/internal/aggregate"
	"github.com/Hutch7777777/ai-estimator-sub002/internal/measure"
	"github.com/Hutch7777777/ai-estimator-sub002/internal/model"
)

func totalsCmd() *cobra.Command {
	var perPage bool

	cmd := &cobra.Command{
		Use:   "totals <job-id>",
		Short: "Print measured quantity totals for a job",
		Args:  cobra.ExactArgs(1),
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

			job := aggregate.ForJob(pages, detections)

			if perPage {
				for _, pt := range job.Pages {
					fmt.Printf("Page %s:\n", pt.PageID)
					printTotals(pt.ByClass, pt.NetSidingSF)
				}
				return nil
			}

			fmt.Println("All calibrated elevation pages:")
			printTotals(job.ByClass, job.NetSidingSF)
			fmt.Printf("  inferred corners: %d inside (%.1f lf), %d outside (%.1f lf)\n",
				job.InferredCorners.InsideCount, job.InferredCorners.InsideLF,
				job.InferredCorners.OutsideCount, job.InferredCorners.OutsideLF)
			return nil
		},
	}

	cmd.Flags().BoolVar(&perPage, "per-page", false, "print one block per page instead of job totals")
	return cmd
}

func printTotals(byClass map[model.Class]measure.Quantities, netSiding float64) {
	for _, class := range model.AllClasses() {
		q, ok := byClass[class]
		if !ok {
			continue
		}
		switch class.Kind() {
		case model.KindCount:
			fmt.Printf("  %-15s %d\n", class, q.Count)
		case model.KindLinear:
			fmt.Printf("  %-15s %.2f lf\n", class, q.LengthLF)
		default:
			fmt.Printf("  %-15s %.2f sf, %.2f lf perimeter\n", class, q.AreaSF, q.PerimeterLF)
		}
	}
	fmt.Printf("  %-15s %.2f sf\n", "net siding", netSiding)
}
