package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ostrab/kpdl/internal/config"
	"github.com/ostrab/kpdl/internal/job"
	"github.com/ostrab/kpdl/internal/session"
	"github.com/ostrab/kpdl/internal/ui"
	"github.com/ostrab/kpdl/internal/util"

	"github.com/spf13/cobra"
)

var loginOutput string

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Log in interactively and persist the session for later runs",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, _, err := config.LoadMerged(config.Options{
			IgnoreConfig: flagIgnoreConfig,
			Debug:        flagDebug,
			Output:       loginOutput,
		})
		if err != nil {
			return err
		}

		if err := os.MkdirAll(cfg.Output, 0755); err != nil {
			return err
		}

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		util.SetupInterruptHandler(cancel)

		log := ui.NewLogger(cfg.Debug)

		browser, err := session.Launch(ctx, session.LaunchOptions{
			UserAgent: util.PickUserAgent(cfg.UserAgent),
			Debug:     log,
		})
		if err != nil {
			return err
		}
		defer browser.Close()

		statePath := filepath.Join(cfg.Output, job.SessionFileName)
		if _, err := session.Acquire(ctx, browser, statePath, ui.NewTerminalPrompter(), log); err != nil {
			return err
		}

		fmt.Println("Session ready:", statePath)
		return nil
	},
}

func init() {
	loginCmd.Flags().StringVar(&loginOutput, "output", "", "folder holding the session file")
	rootCmd.AddCommand(loginCmd)
}
