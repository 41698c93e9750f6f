package cmd

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/ostrab/kpdl/internal/config"
	"github.com/ostrab/kpdl/internal/downloader"
	"github.com/ostrab/kpdl/internal/util"

	"github.com/spf13/cobra"
)

func init() {
	stitchCmd := &cobra.Command{
		Use:   "stitch [folder...]",
		Short: "Stitch already-downloaded chapter folders without touching the site",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runStitch,
	}

	stitchCmd.Flags().IntVar(&flagStitchCount, "stitch-count", 0, "stitch every N pages into one image")
	stitchCmd.Flags().IntVar(&flagStitchHeight, "stitch-height", 0, "stitch pages until the group reaches this height")
	stitchCmd.Flags().IntVar(&flagStitchWidth, "stitch-width", 0, "force the stitched image width")
	stitchCmd.Flags().BoolVar(&flagStitchSameDir, "stitch-same-dir", false, "write stitched files next to the pages")
	stitchCmd.Flags().StringVar(&flagStitchOut, "stitch-out", "", "output folder for stitched files")
	stitchCmd.Flags().IntVar(&flagPNGLevel, "png-level", 6, "PNG compression level 0-9")
	stitchCmd.Flags().BoolVar(&flagOptimize, "optimize", false, "maximum PNG compression")
	stitchCmd.Flags().BoolVar(&flagDeleteSources, "delete-sources", false, "remove page images after stitching")
	stitchCmd.Flags().IntVar(&flagImageWorkers, "image-workers", 0, "parallel stitch workers (0 = auto)")

	rootCmd.AddCommand(stitchCmd)
}

func runStitch(cmd *cobra.Command, args []string) error {
	cfg, _, err := config.LoadMerged(config.Options{
		IgnoreConfig: flagIgnoreConfig,
		Debug:        flagDebug,
		ImageWorkers: flagImageWorkers,
	})
	if err != nil {
		return err
	}

	if cmd.Flags().Changed("stitch-count") {
		cfg.StitchCount = flagStitchCount
	}
	if cmd.Flags().Changed("stitch-height") {
		cfg.StitchHeight = flagStitchHeight
	}
	if cmd.Flags().Changed("stitch-width") {
		cfg.StitchWidth = flagStitchWidth
	}
	if cmd.Flags().Changed("stitch-same-dir") {
		cfg.StitchSameDir = flagStitchSameDir
	}
	if cmd.Flags().Changed("png-level") {
		cfg.PNGLevel = flagPNGLevel
	}
	if flagOptimize {
		cfg.Optimize = true
	}
	if flagDeleteSources {
		cfg.DeleteSources = true
	}

	sj := stitchJob(cfg)
	if sj == nil {
		return fmt.Errorf("select a grouping with --stitch-count or --stitch-height")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	util.SetupInterruptHandler(cancel)

	workers := downloader.Workers(cfg.AutoWorkers, cfg.ImageWorkers)

	for _, folder := range args {
		files := util.ListPages(folder)
		if len(files) == 0 {
			fmt.Printf("No numbered pages in %s, skipping\n", folder)
			continue
		}

		folderName := filepath.Base(filepath.Clean(folder))

		destDir := folder
		if !cfg.StitchSameDir {
			base := flagStitchOut
			if base == "" {
				base = filepath.Dir(filepath.Clean(folder)) + "_stitched"
			}
			destDir = filepath.Join(base, folderName)
		}

		outputs, err := sj.Run(ctx, files, destDir, folderName, workers)
		if err != nil {
			return fmt.Errorf("stitch %s: %w", folder, err)
		}

		fmt.Printf("%s: %d pages -> %d stitched files in %s\n",
			folderName, len(files), len(outputs), destDir)
	}

	return nil
}
