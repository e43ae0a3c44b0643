package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/bher20/eimpactmanager/internal/api"
	"github.com/bher20/eimpactmanager/internal/factors"
	"github.com/bher20/eimpactmanager/internal/metrics"
)

const shutdownTimeout = 10 * time.Second

func newServeCmd(a *app) *cobra.Command {
	var withWorker bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Long: `Run the HTTP API. SIGHUP reloads the factors file; a failed reload keeps
the active factors.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			svc, err := a.services(ctx)
			if err != nil {
				return err
			}
			defer svc.store.Close()

			go reloadOnHangup(ctx, svc.registry)
			if withWorker {
				w := svc.worker(a.cfg)
				go func() {
					if err := w.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
						log.Error().Err(err).Msg("snapshot worker stopped")
					}
				}()
			}

			srv := &http.Server{
				Addr: a.cfg.HTTPAddr,
				Handler: api.NewMux(api.Deps{
					Storage:       svc.store,
					Calculator:    svc.calculator,
					Rules:         svc.rules,
					Advisor:       svc.advisor,
					Impact:        svc.impact,
					Auth:          svc.auth,
					Notifications: svc.notifications,
				}),
				ReadHeaderTimeout: 10 * time.Second,
			}

			errCh := make(chan error, 1)
			go func() {
				log.Info().Str("addr", a.cfg.HTTPAddr).Bool("auth", svc.auth != nil).Msg("eImpactManager listening")
				errCh <- srv.ListenAndServe()
			}()

			select {
			case err := <-errCh:
				if !errors.Is(err, http.ErrServerClosed) {
					return err
				}
				return nil
			case <-ctx.Done():
			}

			log.Info().Msg("shutting down")
			shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	}

	cmd.Flags().BoolVar(&withWorker, "worker", false, "also run the portfolio snapshot worker")
	return cmd
}

func reloadOnHangup(ctx context.Context, reg *factors.Registry) {
	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)

	for {
		select {
		case <-ctx.Done():
			return
		case <-hup:
			if err := reg.Reload(); err != nil {
				metrics.FactorReloadsTotal.WithLabelValues("error").Inc()
				log.Error().Err(err).Msg("factors reload failed; keeping active set")
				continue
			}
			metrics.FactorReloadsTotal.WithLabelValues("success").Inc()
		}
	}
}
