package main

import (
	"os"

	"github.com/spf13/cobra"
)

// Set at build time via -ldflags.
var (
	Version = "dev"
	Build   = "unknown"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "hd",
	Short: "hd - heads-down Slack bot",
	Long: `headsdown answers a team member's incoming Slack DMs while they are
heads-down, replying in-thread as that member and pointing the sender at
the team's support channel. Members toggle their guard with a slash
command and grant the bot a delegated token via OAuth.`,
	Run: func(cmd *cobra.Command, args []string) {
		if v, _ := cmd.Flags().GetBool("version"); v {
			cmd.Printf("hd version %s (%s)\n", Version, Build)
			return
		}
		_ = cmd.Help()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file path (default: ./headsdown.yaml)")
	rootCmd.Flags().BoolP("version", "V", false, "Print version information")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
