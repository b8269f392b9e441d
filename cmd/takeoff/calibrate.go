package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Hutch7777777/ai-estimator-sub002/internal/scale"
)

func calibrateCmd() *cobra.Command {
	var (
		pixels float64
		feet   float64
		inches float64
	)

	cmd := &cobra.Command{
		Use:   "calibrate <page-id>",
		Short: "Set a page's scale from a measured reference line",
		Long: `Calibrate derives a page's pixels-per-foot ratio from the pixel length
of a user-drawn reference line and the real-world length it represents.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			pageID := args[0]

			result, err := scale.Calibrate(pixels, scale.RealLength{Feet: feet, Inches: inches})
			if err != nil {
				return fmt.Errorf("calibration rejected: %w", err)
			}

			store, err := openStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			if err := store.UpdatePageScale(ctx, pageID, result.PixelsPerFoot); err != nil {
				return err
			}

			fmt.Printf("Page %s calibrated to %.3f px/ft\n", pageID, result.PixelsPerFoot)
			if result.Notation != "" {
				fmt.Printf("Nearest standard scale: %s\n", result.Notation)
			}
			return nil
		},
	}

	cmd.Flags().Float64Var(&pixels, "pixels", 0, "pixel length of the reference line")
	cmd.Flags().Float64Var(&feet, "feet", 0, "real-world feet of the reference line")
	cmd.Flags().Float64Var(&inches, "inches", 0, "additional inches of the reference line")
	_ = cmd.MarkFlagRequired("pixels")

	return cmd
}
