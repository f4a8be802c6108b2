package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/JakeFAU/hoops-harvester/internal/config"
	"github.com/JakeFAU/hoops-harvester/internal/logging"
	"github.com/JakeFAU/hoops-harvester/internal/syncer"
)

const shutdownTimeout = 15 * time.Second

// flagBindings maps sync flags onto config keys. Flags win over file and environment
// only when set.
var flagBindings = map[string]string{
	"season":        "sync.seasons",
	"resume":        "sync.resume",
	"max-in-flight": "sync.max_in_flight",
	"listen":        "status.listen_addr",
}

// newSyncCmd creates the 'sync' subcommand.
func newSyncCmd(v *viper.Viper, cfgFile *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Runs one roster-wide sync",
		Long: `Builds the roster index for every requested season, then creates or updates
each player and their season stats. With --resume the run skips past the last
player whose stats were written by an earlier run.`,
		Example: "  harvester sync --season 2023 --season 2024\n  harvester sync --resume --config harvester.yaml",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runSync(cmd, v, *cfgFile)
		},
	}
	flags := cmd.Flags()
	flags.StringSlice("season", nil, "season end year to index, repeatable (e.g. 2024)")
	flags.Bool("resume", false, "resume after the last player with persisted stats")
	flags.Int("max-in-flight", 1, "players synced concurrently")
	flags.String("listen", "", "serve status endpoints on this address while syncing")
	for flag, key := range flagBindings {
		if err := v.BindPFlag(key, flags.Lookup(flag)); err != nil {
			panic(fmt.Sprintf("bind flag %s: %v", flag, err))
		}
	}
	return cmd
}

func runSync(cmd *cobra.Command, v *viper.Viper, cfgFile string) error {
	cfg, err := config.LoadWith(v, cfgFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger, err := logging.New(cfg.Logging)
	if err != nil {
		return fmt.Errorf("logger init failed: %w", err)
	}
	defer func() {
		_ = logger.Sync()
	}()
	undo := zap.ReplaceGlobals(logger)
	defer undo()

	ctx := cmd.Context()
	runner, err := newApp(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize application services: %w", err)
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if cerr := runner.Close(closeCtx); cerr != nil {
			logger.Warn("error closing services", zap.Error(cerr))
		}
	}()

	serveCtx, stopServe := context.WithCancel(ctx)
	served := make(chan error, 1)
	go func() { served <- runner.Serve(serveCtx) }()
	defer func() {
		stopServe()
		if serr := <-served; serr != nil && !errors.Is(serr, context.Canceled) {
			logger.Warn("status server stopped", zap.Error(serr))
		}
	}()

	summary, syncErr := runner.Sync(ctx, syncer.RunConfig{
		Seasons: cfg.Sync.Seasons,
		Resume:  cfg.Sync.Resume,
	})
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	if err := enc.Encode(summary); err != nil {
		logger.Warn("failed to print summary", zap.Error(err))
	}
	if syncErr != nil {
		return fmt.Errorf("sync run %s: %w", summary.RunID, syncErr)
	}
	return nil
}
