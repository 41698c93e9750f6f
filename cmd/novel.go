package cmd

import (
	"github.com/spf13/cobra"
)

func init() {
	novelCmd := &cobra.Command{
		Use:   "novel",
		Short: "Download web novel chapters: text via the paginated viewer, illustrations alongside",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runJob(cmd, true)
		},
	}

	addJobFlags(novelCmd)
	novelCmd.Flags().StringVar(&flagVolumes, "volumes", "", "volume numbers for volume+chapter addressing, e.g. \"1-3\"")

	rootCmd.AddCommand(novelCmd)
}
