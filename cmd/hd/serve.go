package main

import (
	"fmt"
	"log"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/steveyegge/headsdown/internal/config"
	"github.com/steveyegge/headsdown/internal/slackbot"
	"github.com/steveyegge/headsdown/internal/store"
	"github.com/steveyegge/headsdown/internal/team"
)

var (
	listenAddr string
	debugSlack bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the heads-down bot",
	Long: `Starts the HTTP server that receives Slack events, slash commands,
and OAuth callbacks, and routes guarded members' DMs.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}
		if listenAddr != "" {
			cfg.ListenAddr = listenAddr
		}
		if err := cfg.Validate(); err != nil {
			return err
		}

		st, err := openStore(cfg)
		if err != nil {
			return err
		}
		defer st.Close()

		roster := team.NewRoster(cfg.TeamMembers)
		bot, err := slackbot.NewBot(slackbot.BotConfig{
			BotToken:       cfg.SlackBotToken,
			SigningSecret:  cfg.SlackSigningSecret,
			ClientID:       cfg.SlackClientID,
			ClientSecret:   cfg.SlackClientSecret,
			RedirectURL:    cfg.OAuthRedirectURL,
			StateSecret:    cfg.OAuthState,
			SupportChannel: cfg.SupportChannel,
			Debug:          debugSlack,
		}, roster, st)
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		log.Printf("hd: guarding %d team member(s), store backend %s", roster.Size(), cfg.StoreBackend)

		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			// Resolve the bot identity in the background so serving is not
			// gated on Slack; /readyz reports when it lands.
			bot.Bootstrap(gctx)
			return nil
		})
		g.Go(func() error {
			return slackbot.NewServer(bot, cfg.ListenAddr).Start(gctx)
		})
		return g.Wait()
	},
}

// openStore builds the availability/credential store the config names.
func openStore(cfg *config.Config) (store.Store, error) {
	switch cfg.StoreBackend {
	case config.BackendMemory:
		log.Println("hd: using in-memory store; guard state will not survive restarts")
		return store.NewMemoryStore(), nil
	case config.BackendFile:
		return store.NewFileStore(cfg.StoreFilePath)
	case config.BackendRedis:
		return store.NewRedisStore(cfg.RedisURL)
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
	}
}

func init() {
	serveCmd.Flags().StringVar(&listenAddr, "listen", "", "Listen address (overrides listen_addr from config)")
	serveCmd.Flags().BoolVar(&debugSlack, "debug-slack", false, "Log Slack API traffic")
	rootCmd.AddCommand(serveCmd)
}
