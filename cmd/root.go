// Package cmd defines and implements the CLI commands for the harvester executable.
package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/JakeFAU/hoops-harvester/internal/app"
	"github.com/JakeFAU/hoops-harvester/internal/config"
	"github.com/JakeFAU/hoops-harvester/internal/syncer"
)

// Runner is the slice of *app.App the commands use. Tests swap in a fake.
type Runner interface {
	Sync(ctx context.Context, rc syncer.RunConfig) (syncer.Summary, error)
	Serve(ctx context.Context) error
	Close(ctx context.Context) error
}

// newApp is the application factory. It's a variable so tests can replace it.
var newApp = func(ctx context.Context, cfg config.Config, logger *zap.Logger) (Runner, error) {
	return app.New(ctx, cfg, logger)
}

// newRootCmd creates the root command. Each command tree gets its own viper instance
// so flag bindings never leak between executions.
func newRootCmd() *cobra.Command {
	v := viper.New()
	var cfgFile string

	cmd := &cobra.Command{
		Use:   "harvester",
		Short: "Harvests per-season basketball stats into a local store.",
		Long: `harvester indexes the per-game season listings of a basketball stats site,
scrapes each player's profile and synchronizes players and season stat lines
into the configured store. Interrupted runs can be resumed with --resume.`,
		SilenceUsage: true,
	}
	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (YAML)")
	cmd.AddCommand(newSyncCmd(v, &cfgFile))
	return cmd
}

// Execute runs the CLI and returns the process exit code. SIGINT and SIGTERM cancel
// the command context.
func Execute() int {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "harvester:", err)
		return 1
	}
	return 0
}
