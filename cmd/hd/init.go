package main

import (
	"github.com/spf13/cobra"

	"github.com/steveyegge/headsdown/internal/config"
)

var initOutput string

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a starter headsdown.yaml",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := config.WriteStarter(initOutput); err != nil {
			return err
		}
		cmd.Printf("Wrote %s. Fill in your Slack app credentials, then run: hd serve\n", initOutput)
		return nil
	},
}

func init() {
	initCmd.Flags().StringVarP(&initOutput, "output", "o", "headsdown.yaml", "Where to write the starter config")
	rootCmd.AddCommand(initCmd)
}
