package main

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"github.com/steveyegge/headsdown/internal/config"
	"github.com/steveyegge/headsdown/internal/team"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show configured team and stored guard state",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}

		roster := team.NewRoster(cfg.TeamMembers)
		cmd.Printf("Store backend:   %s\n", cfg.StoreBackend)
		cmd.Printf("Support channel: %s\n", cfg.SupportChannel)
		cmd.Printf("Team members:    %d\n", roster.Size())

		if roster.Size() == 0 {
			cmd.Println("\nNo team members configured (team.members is empty).")
			return nil
		}

		st, err := openStore(cfg)
		if err != nil {
			return fmt.Errorf("open store: %w", err)
		}
		defer st.Close()

		ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
		defer cancel()

		holders, err := st.CredentialHolders(ctx)
		if err != nil {
			return fmt.Errorf("list credentials: %w", err)
		}
		authorized := make(map[string]bool, len(holders))
		for _, h := range holders {
			authorized[h] = true
		}

		cmd.Println()
		for _, member := range roster.Members() {
			rec, err := st.GetAvailability(ctx, member)
			if err != nil {
				return fmt.Errorf("read guard for %s: %w", member, err)
			}
			guard := "off"
			if rec.GuardOn {
				guard = "ON"
			}
			auth := "not authorized"
			if authorized[member] {
				auth = "authorized"
			}
			cmd.Printf("  %-14s guard %-4s %s\n", member, guard, auth)
		}

		// Credentials left behind by roster edits still exist in the store;
		// surface them so operators can clean up.
		var orphans []string
		for _, h := range holders {
			if !roster.Contains(h) {
				orphans = append(orphans, h)
			}
		}
		if len(orphans) > 0 {
			sort.Strings(orphans)
			cmd.Printf("\nCredentials held by non-members: %v\n", orphans)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
