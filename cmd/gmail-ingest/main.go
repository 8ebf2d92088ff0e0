package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/fx"

	"github.com/leadstack/gmail-ingest/internal/auth"
	"github.com/leadstack/gmail-ingest/internal/config"
	"github.com/leadstack/gmail-ingest/internal/logger"
	"github.com/leadstack/gmail-ingest/internal/server"
	"github.com/leadstack/gmail-ingest/internal/store"
	"github.com/leadstack/gmail-ingest/internal/watch"
)

const stopTimeout = 10 * time.Second

func main() {
	Execute()
}

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "gmail-ingest",
	Short: "OAuth install service connecting Gmail and Sheets accounts",
	Long: `gmail-ingest serves the web install flow that connects a user's Gmail
and Sheets account: it walks the Google OAuth consent flow, stores the
resulting credentials, and registers a push-notification watch on the
connected mailbox.`,
	RunE:         runServe,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	// Place version check in PreRun to ensure flags are parsed first
	rootCmd.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		versionFlag, _ := cmd.Flags().GetBool("version")
		if versionFlag {
			pterm.Info.Println(config.GetVersionInfo())
			os.Exit(0)
		}
	}

	if err := rootCmd.Execute(); err != nil {
		pterm.Error.Println(err)
		os.Exit(1)
	}
}

func init() {
	config.InitFlags()
	rootCmd.Flags().AddFlagSet(pflag.CommandLine)
	rootCmd.PersistentFlags().BoolP("version", "v", false, "Show version information")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	if err := logger.InitLogger(&cfg.Logging); err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var srv *server.Server
	app := fx.New(
		fx.NopLogger,
		fx.Supply(cfg),
		store.Module,
		watch.Module,
		auth.Module,
		server.Module,
		fx.Populate(&srv),
	)

	if err := app.Start(ctx); err != nil {
		return err
	}

	serveErr := srv.Start(ctx)

	stopCtx, cancel := context.WithTimeout(context.Background(), stopTimeout)
	defer cancel()
	if err := app.Stop(stopCtx); err != nil && serveErr == nil {
		serveErr = err
	}
	return serveErr
}
