package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/emberworks/emberchat/internal/auth"
	"github.com/emberworks/emberchat/internal/auth/memauth"
	"github.com/emberworks/emberchat/internal/config"
	"github.com/emberworks/emberchat/internal/flow"
	"github.com/emberworks/emberchat/internal/gateway"
	"github.com/emberworks/emberchat/internal/logging"
	"github.com/emberworks/emberchat/internal/session"
	"github.com/emberworks/emberchat/internal/store"
	"github.com/emberworks/emberchat/internal/store/memstore"
	"github.com/emberworks/emberchat/internal/ui"
)

var rootCmd = &cobra.Command{
	Use:   "emberchat",
	Short: "Terminal chat client over a managed realtime backend",
	RunE:  runChat,
}

var (
	flagConfig  string
	flagGateway string
	flagProfile string
	flagLocal   bool
	flagLog     string
	flagForget  bool
)

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&flagConfig, "config", "", "path to a YAML config file")
	flags.StringVar(&flagGateway, "gateway", "", "backend gateway websocket URL")
	flags.StringVar(&flagProfile, "profile", "", "local profile name")
	flags.BoolVar(&flagLocal, "local", false, "run against an in-process backend (demo mode)")
	flags.StringVar(&flagLog, "log-level", "", "log level (debug, info, warn, error); empty disables logging")
	flags.BoolVar(&flagForget, "forget", false, "drop the cached profile before starting")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runChat(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(flagConfig)
	if err != nil {
		return err
	}
	if flagGateway != "" {
		cfg.GatewayURL = flagGateway
	}
	if flagProfile != "" {
		cfg.Profile = flagProfile
	}
	if flagLocal {
		cfg.Local = true
	}
	if flagLog != "" {
		cfg.LogLevel = flagLog
	}

	if flagForget {
		session.ClearProfile(cfg.Profile)
	}

	log, closeLog, err := logging.Open(session.GetConfigDir(cfg.Profile), cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("open log: %w", err)
	}
	defer closeLog()

	var provider auth.Provider
	var st store.Store
	if cfg.Local {
		provider = memauth.New()
		st = memstore.New()
		log.Info().Msg("running against in-process backend")
	} else {
		client, err := gateway.Dial(ctx, cfg.GatewayURL, log)
		if err != nil {
			return err
		}
		defer client.Close()
		provider, st = client, client
		log.Info().Str("gateway", cfg.GatewayURL).Msg("connected")
	}

	sess := session.New(provider, log)
	model, surface := ui.New(cfg, provider, st, sess, log)
	sess.SetReporter(surface)

	fl := flow.New(provider, st, surface, cfg.CountryCode, log)
	if err := fl.Init(ctx); err != nil {
		return err
	}
	model.SetFlow(fl)

	sess.Watch()
	defer sess.Close()

	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("run ui: %w", err)
	}
	return nil
}
