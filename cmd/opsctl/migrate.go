package main

import (
	"github.com/comanda-app/api/internal/database"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func (a *app) migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply or roll back schema migrations",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply every pending migration",
		RunE: func(cmd *cobra.Command, args []string) error {
			version, err := database.Migrate(a.cfg.DatabaseURL)
			if err != nil {
				return err
			}
			a.log.Info("migrations applied", zap.Uint("version", version))
			return nil
		},
	})

	var yes bool
	down := &cobra.Command{
		Use:   "down",
		Short: "Roll back every migration (drops all data)",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				a.log.Warn("refusing to roll back without --yes")
				return nil
			}
			if err := database.MigrateDown(a.cfg.DatabaseURL); err != nil {
				return err
			}
			a.log.Info("migrations rolled back")
			return nil
		},
	}
	down.Flags().BoolVar(&yes, "yes", false, "confirm the rollback")
	cmd.AddCommand(down)
	return cmd
}
