package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
)

var watchInterval time.Duration

var ingestCmd = &cobra.Command{
	Use:       "ingest [once|watch]",
	Short:     "Index new and changed documents",
	Long:      "Index new and changed documents once (default), or keep polling the source directory in watch mode.",
	Args:      cobra.MatchAll(cobra.MaximumNArgs(1), cobra.OnlyValidArgs),
	ValidArgs: []string{"once", "watch"},
	RunE:      runIngest,
}

func init() {
	ingestCmd.Flags().DurationVar(&watchInterval, "interval", 0, "poll interval in watch mode (default from poll_interval)")
}

func runIngest(cmd *cobra.Command, args []string) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := cfg.CheckSourceDir(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	pipeline, err := newPipeline(cfg, store)
	if err != nil {
		return err
	}

	if len(args) == 1 && args[0] == "watch" {
		interval := cfg.PollInterval
		if watchInterval > 0 {
			interval = watchInterval
		}
		if err := pipeline.Watch(ctx, interval); err != nil && ctx.Err() == nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Stopped watching.")
		return nil
	}

	res, err := pipeline.RunOnce(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Ingested %d new/updated document(s), %d unchanged, %d failed.\n", res.Ingested, res.Skipped, res.Failed)
	return nil
}
