package cli

import (
	"fmt"
	"log"

	"quiz-gamification-service/internal/app"
	"quiz-gamification-service/internal/config"
	pgstore "quiz-gamification-service/internal/infra/postgres"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/spf13/cobra"
)

// NewReconcileCmd rebuilds every user's gamification counter from the result
// ledger. Safe to run at any time; users without ledger history are skipped.
func NewReconcileCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "reconcile",
		Short: "Recompute gamification counters from the result ledger",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			if cfg.Postgres.URL == "" {
				return fmt.Errorf("postgres url not configured")
			}

			pool, err := pgxpool.Connect(cmd.Context(), cfg.Postgres.URL)
			if err != nil {
				return err
			}
			defer pool.Close()

			reconciler := app.NewReconciler(pgstore.NewUserStore(pool), pgstore.NewLedgerStore(pool))
			repaired, err := reconciler.ReconcileAll(cmd.Context())
			if err != nil {
				return err
			}
			log.Printf("reconciled %d counters", repaired)
			return nil
		},
	}
}
