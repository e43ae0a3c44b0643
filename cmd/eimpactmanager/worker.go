package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func newWorkerCmd(a *app) *cobra.Command {
	var once bool

	cmd := &cobra.Command{
		Use:   "worker",
		Short: "Snapshot every user's portfolio on the configured schedule",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			svc, err := a.services(ctx)
			if err != nil {
				return err
			}
			defer svc.store.Close()

			w := svc.worker(a.cfg)
			if once {
				summary, err := w.RunOnce(ctx)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), summary)
			}

			log.Info().Str("interval", a.cfg.Snapshot.Interval).Msg("snapshot worker started")
			if err := w.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&once, "once", false, "run one cycle and print its summary")
	return cmd
}
