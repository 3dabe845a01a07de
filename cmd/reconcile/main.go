// Command reconcile checks every product's stock counter against its
// movement ledger and exits non-zero when any product has drifted.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"go-retail-core/internal/config"
	"go-retail-core/internal/repository"
	"go-retail-core/internal/service"
	"go-retail-core/pkg/database"
	"go-retail-core/pkg/logger"

	"go.uber.org/zap"
)

func main() {
	cfg := config.Load()
	log := logger.Init(logger.Options{Mode: cfg.Log.Mode, Level: cfg.Log.Level})
	defer func() { _ = log.Sync() }()

	db, err := database.ConnectDB(database.Options{
		URL:      cfg.Database.URL,
		Host:     cfg.Database.Host,
		Port:     cfg.Database.Port,
		User:     cfg.Database.User,
		Password: cfg.Database.Password,
		Name:     cfg.Database.Name,
		TimeZone: cfg.Database.TimeZone,
	})
	if err != nil {
		zap.S().Fatalw("database connection failed", "error", err)
	}

	ledger := service.NewStockLedger(
		repository.NewProductRepo(db),
		repository.NewMovementRepo(db),
		repository.NewOutboxRepo(db),
		db, cfg.TxMaxAttempts,
	)
	report, err := ledger.ReconcileAll(context.Background())
	if err != nil {
		zap.S().Fatalw("reconciliation failed", "error", err)
	}

	os.Exit(printReport(os.Stdout, report))
}

// printReport writes the drifted products and returns the exit code.
func printReport(out io.Writer, report []service.Reconciliation) int {
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "SKU\tNAME\tINITIAL\tMOVEMENTS\tEXPECTED\tCURRENT")

	drifted := 0
	for _, r := range report {
		if r.Balanced {
			continue
		}
		drifted++
		fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%d\t%d\n", r.SKU, r.Name, r.InitialStock, r.MovementSum, r.Expected, r.CurrentStock)
	}
	_ = w.Flush()

	fmt.Fprintf(out, "%d products checked, %d drifted\n", len(report), drifted)
	if drifted > 0 {
		return 1
	}
	return 0
}
