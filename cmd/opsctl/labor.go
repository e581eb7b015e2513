package main

import (
	"fmt"
	"os"
	"time"

	"github.com/comanda-app/api/internal/database"
	"github.com/comanda-app/api/internal/labor"
	"github.com/comanda-app/api/internal/service"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func (a *app) laborExportCmd() *cobra.Command {
	var (
		branch string
		from   string
		to     string
		format string
		output string
	)
	cmd := &cobra.Command{
		Use:   "labor-export",
		Short: "Export the labor hours liquidation of a branch",
		Example: "  opsctl labor-export --branch 6f1c... --from 2026-09-01 --to 2026-09-30 --format xlsx\n" +
			"  opsctl labor-export --branch 6f1c... --from 2026-09-01 --to 2026-09-15 -o quincena.csv",
		RunE: func(cmd *cobra.Command, args []string) error {
			branchID, err := uuid.Parse(branch)
			if err != nil {
				return fmt.Errorf("invalid --branch: %w", err)
			}
			start, err := time.ParseInLocation("2006-01-02", from, a.cfg.Location)
			if err != nil {
				return fmt.Errorf("invalid --from: %w", err)
			}
			end, err := time.ParseInLocation("2006-01-02", to, a.cfg.Location)
			if err != nil {
				return fmt.Errorf("invalid --to: %w", err)
			}
			if format != "csv" && format != "xlsx" {
				return fmt.Errorf("invalid --format %q, use csv or xlsx", format)
			}
			if output == "" {
				output = fmt.Sprintf("liquidacion_%s_%s.%s", from, to, format)
			}

			ctx := cmd.Context()
			pool, err := pgxpool.New(ctx, a.cfg.DatabaseURL)
			if err != nil {
				return fmt.Errorf("connect database: %w", err)
			}
			defer pool.Close()

			svc := service.NewLaborService(database.New(pool), a.cfg.Location, a.log)
			rows, err := svc.Liquidation(ctx, branchID, start, end)
			if err != nil {
				return err
			}

			f, err := os.Create(output)
			if err != nil {
				return fmt.Errorf("create %s: %w", output, err)
			}
			if format == "csv" {
				err = labor.WriteCSV(f, rows)
			} else {
				err = labor.WriteXLSX(f, rows)
			}
			if cerr := f.Close(); err == nil {
				err = cerr
			}
			if err != nil {
				return fmt.Errorf("write %s: %w", output, err)
			}

			a.log.Info("labor liquidation exported",
				zap.String("file", output),
				zap.Int("employees", len(rows)),
			)
			return nil
		},
	}
	cmd.Flags().StringVar(&branch, "branch", "", "branch ID")
	cmd.Flags().StringVar(&from, "from", "", "first day, YYYY-MM-DD")
	cmd.Flags().StringVar(&to, "to", "", "last day, YYYY-MM-DD")
	cmd.Flags().StringVar(&format, "format", "xlsx", "csv or xlsx")
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file")
	_ = cmd.MarkFlagRequired("branch")
	_ = cmd.MarkFlagRequired("from")
	_ = cmd.MarkFlagRequired("to")
	return cmd
}
