package main

import (
	"context"
	"fmt"
	"io"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/bher20/eimpactmanager/internal/advisor"
	"github.com/bher20/eimpactmanager/internal/alerting"
	"github.com/bher20/eimpactmanager/internal/auth"
	"github.com/bher20/eimpactmanager/internal/calc"
	"github.com/bher20/eimpactmanager/internal/config"
	"github.com/bher20/eimpactmanager/internal/cron"
	"github.com/bher20/eimpactmanager/internal/factors"
	"github.com/bher20/eimpactmanager/internal/impact"
	"github.com/bher20/eimpactmanager/internal/logging"
	"github.com/bher20/eimpactmanager/internal/notification"
	"github.com/bher20/eimpactmanager/internal/rules"
	"github.com/bher20/eimpactmanager/internal/storage"
)

// app carries the loaded configuration between the root command and its
// subcommands.
type app struct {
	configPath string
	logLevel   string

	cfg       config.Config
	logCloser io.Closer
}

func newRootCmd() *cobra.Command {
	a := &app{}

	cmd := &cobra.Command{
		Use:          "eimpactmanager",
		Short:        "Sustainability impact calculations and implementation tracking",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(a.configPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if a.logLevel != "" {
				cfg.Log.Level = a.logLevel
			}
			closer, err := logging.Setup(cfg.Log)
			if err != nil {
				return err
			}
			a.cfg = cfg
			a.logCloser = closer
			return nil
		},
		PersistentPostRunE: func(*cobra.Command, []string) error {
			if a.logCloser != nil {
				return a.logCloser.Close()
			}
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&a.configPath, "config", "", "YAML config file (default $EIMPACT_CONFIG)")
	cmd.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "override the configured log level")

	cmd.AddCommand(
		newServeCmd(a),
		newWorkerCmd(a),
		newMigrateCmd(a),
		newEstimateCmd(a),
		newRecommendCmd(a),
		newImportBillCmd(a),
	)
	return cmd
}

func (a *app) registry() (*factors.Registry, error) {
	reg, err := factors.NewRegistry(a.cfg.FactorsFile)
	if err != nil {
		return nil, fmt.Errorf("load factors: %w", err)
	}
	return reg, nil
}

// services holds everything the server and the worker run on.
type services struct {
	store         storage.Storage
	registry      *factors.Registry
	calculator    *calc.Calculator
	rules         *rules.Engine
	advisor       *advisor.Advisor
	impact        *impact.Service
	notifications *notification.Service
	auth          *auth.Service
}

func (a *app) services(ctx context.Context) (*services, error) {
	reg, err := a.registry()
	if err != nil {
		return nil, err
	}
	st, err := storage.Open(ctx, a.cfg.Storage)
	if err != nil {
		return nil, fmt.Errorf("open storage: %w", err)
	}

	c := calc.New(reg)
	notif := notification.NewService(st)
	s := &services{
		store:         st,
		registry:      reg,
		calculator:    c,
		rules:         rules.NewEngine(c, rules.WithLimit(a.cfg.RecommendationLimit)),
		notifications: notif,
		impact:        impact.NewService(st, impact.WithNotifier(notif), impact.WithCacheTTL(a.cfg.CacheTTL)),
	}

	s.advisor, err = advisor.New(a.cfg.Advisor, s.rules)
	if err != nil {
		st.Close()
		return nil, fmt.Errorf("init advisor: %w", err)
	}
	if !a.cfg.Advisor.Enabled() {
		log.Info().Msg("EIMPACT_AI_API_KEY not set; ai recommendations use the rules engine")
	}

	if a.cfg.Auth.Enabled {
		s.auth, err = auth.NewService(st)
		if err != nil {
			st.Close()
			return nil, fmt.Errorf("init auth: %w", err)
		}
		if a.cfg.Auth.AdminPassword != "" {
			if err := s.auth.EnsureAdmin(ctx, a.cfg.Auth.AdminUser, a.cfg.Auth.AdminPassword); err != nil {
				st.Close()
				return nil, fmt.Errorf("ensure admin user: %w", err)
			}
		} else {
			log.Warn().Str("user", a.cfg.Auth.AdminUser).Msg("auth enabled without EIMPACT_ADMIN_PASSWORD; admin user not created")
		}
	}
	return s, nil
}

func (s *services) worker(cfg config.Config) *cron.Worker {
	return cron.NewWorker(s.store, s.impact, alerting.NewAlerter(cfg.Alerting), cfg.Snapshot)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
