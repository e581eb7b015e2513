// Command opsctl runs operational tasks against the database: schema
// migrations and the labor liquidation export.
package main

import (
	"fmt"
	"os"

	"github.com/comanda-app/api/internal/config"
	"github.com/comanda-app/api/internal/logger"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

type app struct {
	cfg *config.Config
	log *zap.Logger
}

func main() {
	a := &app{}
	root := &cobra.Command{
		Use:           "opsctl",
		Short:         "Operational tasks for the comanda API",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			log, err := logger.New(cfg.LogLevel, "console")
			if err != nil {
				return err
			}
			a.cfg, a.log = cfg, log
			return nil
		},
	}
	root.AddCommand(a.migrateCmd(), a.laborExportCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "opsctl: %v\n", err)
		os.Exit(1)
	}
}
