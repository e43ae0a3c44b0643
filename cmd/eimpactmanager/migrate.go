package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/bher20/eimpactmanager/internal/migrate"
)

func newMigrateCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply or inspect database migrations",
	}

	step := func(use, short string, fn func(*cobra.Command) error) *cobra.Command {
		return &cobra.Command{
			Use:   use,
			Short: short,
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				if a.cfg.Storage.Driver == "memory" {
					return fmt.Errorf("the memory driver has no schema to migrate")
				}
				return fn(cmd)
			},
		}
	}

	cmd.AddCommand(
		step("up", "Apply all pending migrations", func(cmd *cobra.Command) error {
			s := a.cfg.Storage
			if err := migrate.Up(cmd.Context(), s.Driver, s.DSN); err != nil {
				return err
			}
			v, err := migrate.Version(cmd.Context(), s.Driver, s.DSN)
			if err != nil {
				return err
			}
			cmd.Printf("schema at version %d\n", v)
			return nil
		}),
		step("down", "Roll back the latest migration", func(cmd *cobra.Command) error {
			return migrate.Down(cmd.Context(), a.cfg.Storage.Driver, a.cfg.Storage.DSN)
		}),
		step("status", "Show applied and pending migrations", func(cmd *cobra.Command) error {
			return migrate.Status(cmd.Context(), a.cfg.Storage.Driver, a.cfg.Storage.DSN)
		}),
	)
	return cmd
}
