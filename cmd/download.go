package cmd

import (
	"context"
	"fmt"

	"github.com/ostrab/kpdl/internal/config"
	"github.com/ostrab/kpdl/internal/job"
	"github.com/ostrab/kpdl/internal/stitch"
	"github.com/ostrab/kpdl/internal/ui"
	"github.com/ostrab/kpdl/internal/util"

	"github.com/spf13/cobra"
)

var (
	// selection
	flagTitle    string
	flagChapters string
	flagIndex    string
	flagIDs      string
	flagVolumes  string

	// runtime
	flagOutput         string
	flagImageWorkers   int
	flagMinWidth       int
	flagScrollMs       int
	flagDryRun         bool
	flagDeleteURLCache bool

	// access
	flagAutoRent bool
	flagAutoBuy  bool

	// stitching
	flagStitchCount   int
	flagStitchHeight  int
	flagStitchWidth   int
	flagStitchSameDir bool
	flagStitchOut     string
	flagPNGLevel      int
	flagOptimize      bool
	flagDeleteSources bool

	flagUserAgent string
)

func init() {
	downloadCmd := &cobra.Command{
		Use:   "download",
		Short: "Download manhwa chapters and optionally stitch them vertically. Uses the defaults from the selected config, overwritten by CLI flags",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runJob(cmd, false)
		},
	}

	addJobFlags(downloadCmd)
	rootCmd.AddCommand(downloadCmd)
}

func addJobFlags(c *cobra.Command) {
	// selection
	c.Flags().StringVar(&flagTitle, "title", "", "title (series) id from the content page URL")
	c.Flags().StringVar(&flagChapters, "chapters", "", "chapter ordinals, e.g. \"1-10\" or \"3,5,12-8\"")
	c.Flags().StringVar(&flagIndex, "index", "", "chronological indices, e.g. \"1,2\" or \"-1\" for the newest")
	c.Flags().StringVar(&flagIDs, "ids", "", "raw viewer ids, comma separated")

	// runtime
	c.Flags().StringVar(&flagOutput, "output", "", "output folder")
	c.Flags().IntVar(&flagImageWorkers, "image-workers", 0, "parallel image downloads per chapter (0 = auto)")
	c.Flags().IntVar(&flagMinWidth, "min-width", 0, "drop images narrower than this many pixels")
	c.Flags().IntVar(&flagScrollMs, "scroll-ms", 0, "minimum viewer scroll budget in milliseconds")
	c.Flags().BoolVar(&flagDryRun, "dry-run", false, "harvest URLs only, don't download")
	c.Flags().BoolVar(&flagDeleteURLCache, "delete-url-cache", false, "drop cached URL lists and re-harvest")

	// access
	c.Flags().BoolVar(&flagAutoRent, "auto-rent", false, "use rental tickets without asking")
	c.Flags().BoolVar(&flagAutoBuy, "auto-buy", false, "buy tickets with cash without asking")

	// stitching
	c.Flags().IntVar(&flagStitchCount, "stitch-count", 0, "stitch every N pages into one image")
	c.Flags().IntVar(&flagStitchHeight, "stitch-height", 0, "stitch pages until the group reaches this height")
	c.Flags().IntVar(&flagStitchWidth, "stitch-width", 0, "force the stitched image width")
	c.Flags().BoolVar(&flagStitchSameDir, "stitch-same-dir", false, "write stitched files next to the pages")
	c.Flags().StringVar(&flagStitchOut, "stitch-out", "", "output folder for stitched files")
	c.Flags().IntVar(&flagPNGLevel, "png-level", 6, "PNG compression level 0-9")
	c.Flags().BoolVar(&flagOptimize, "optimize", false, "maximum PNG compression")
	c.Flags().BoolVar(&flagDeleteSources, "delete-sources", false, "remove page images after stitching")

	c.Flags().StringVar(&flagUserAgent, "user-agent", "", "override User-Agent")
}

func runJob(cmd *cobra.Command, novel bool) error {
	cfg, usedPath, err := config.LoadMerged(config.Options{
		IgnoreConfig: flagIgnoreConfig,
		Debug:        flagDebug,
		Output:       flagOutput,
		ImageWorkers: flagImageWorkers,
		MinWidth:     flagMinWidth,
		ScrollMs:     flagScrollMs,
		AutoRent:     flagAutoRent,
		AutoBuy:      flagAutoBuy,
		UserAgent:    flagUserAgent,
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
	if flagDeleteURLCache {
		cfg.DeleteURLCache = true
	}

	if usedPath != "" {
		fmt.Printf("Config file: %s\n", usedPath)
	}
	fmt.Println("Full config:")
	cfg.Print()
	fmt.Println()

	if flagTitle == "" {
		return fmt.Errorf("missing --title")
	}

	mode, spec, err := pickMode(novel)
	if err != nil {
		return err
	}

	jcfg := job.Config{
		TitleID:    flagTitle,
		Mode:       mode,
		Spec:       spec,
		VolumeSpec: flagVolumes,
		OutDir:     cfg.Output,

		Novel:    novel,
		MinWidth: cfg.MinWidth,
		ScrollMs: cfg.ScrollMs,

		AutoConfirmPurchase:  cfg.AutoConfirmPurchase,
		AutoConfirmUseRental: cfg.AutoConfirmUseRental,

		Workers:     cfg.ImageWorkers,
		AutoWorkers: cfg.AutoWorkers,

		Stitch:        stitchJob(cfg),
		StitchSameDir: cfg.StitchSameDir,
		StitchOutDir:  flagStitchOut,

		DeleteURLCache: cfg.DeleteURLCache,
		DryRun:         flagDryRun,

		UserAgent: cfg.UserAgent,
		Debug:     cfg.Debug,
	}

	jb := job.New(jcfg, ui.NewTerminalPrompter())
	util.SetupInterruptHandler(jb.Stop)
	jb.Run(context.Background())

	return nil
}

// pickMode maps the selection flags onto a mode; exactly one selection flag
// may be set.
func pickMode(novel bool) (job.Mode, string, error) {
	set := 0
	mode, spec := job.ByOrdinal, flagChapters

	if flagChapters != "" {
		set++
	}
	if flagIndex != "" {
		set++
		mode, spec = job.ByIndex, flagIndex
	}
	if flagIDs != "" {
		set++
		mode, spec = job.ByViewerID, flagIDs
	}

	if set == 0 {
		return 0, "", fmt.Errorf("select chapters with --chapters, --index or --ids")
	}
	if set > 1 {
		return 0, "", fmt.Errorf("--chapters, --index and --ids are mutually exclusive")
	}

	if novel && flagVolumes != "" {
		if mode != job.ByOrdinal {
			return 0, "", fmt.Errorf("--volumes only combines with --chapters")
		}
		mode = job.ByVolumeOrdinal
	}

	return mode, spec, nil
}

func stitchJob(cfg *config.Config) *stitch.Job {
	var sj stitch.Job

	switch {
	case cfg.StitchCount > 0:
		sj.Mode = stitch.ByCount
		sj.GroupSize = cfg.StitchCount
	case cfg.StitchHeight > 0:
		sj.Mode = stitch.ByHeight
		sj.HeightLimit = cfg.StitchHeight
	default:
		return nil
	}

	sj.TargetWidth = cfg.StitchWidth
	sj.PNGLevel = cfg.PNGLevel
	sj.Optimize = cfg.Optimize
	sj.StripMetadata = cfg.StripMetadata
	sj.DeleteSources = cfg.DeleteSources

	return &sj
}
