package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/vietddude/callguard/internal/infra/storage/postgres"
)

var (
	resolveID   string
	recentCount int
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show unresolved alerts and recent error events",
	Run:   runStatus,
}

func init() {
	statusCmd.Flags().StringVar(&resolveID, "resolve", "", "mark the alert with this ID as resolved")
	statusCmd.Flags().IntVar(&recentCount, "recent", 10, "number of recent events to show")
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) {
	cfg := loadConfig()
	initLogger(cfg)

	if cfg.Database.URL == "" {
		slog.Error("No database configured; status requires the postgres event store")
		os.Exit(1)
	}

	ctx := context.Background()
	db, err := postgres.NewDB(ctx, cfg.Database)
	if err != nil {
		slog.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer func() {
		_ = db.Close()
	}()

	alertRepo := postgres.NewAlertRepo(db)

	if resolveID != "" {
		if err := alertRepo.Resolve(ctx, resolveID); err != nil {
			slog.Error("Failed to resolve alert", "id", resolveID, "error", err)
			os.Exit(1)
		}
		fmt.Printf("alert %s resolved\n", resolveID)
		return
	}

	alerts, err := alertRepo.ListUnresolved(ctx)
	if err != nil {
		slog.Error("Failed to query alerts", "error", err)
		os.Exit(1)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintf(w, "UNRESOLVED ALERTS (%d)\n", len(alerts))
	fmt.Fprintln(w, "ID\tTIME\tSEVERITY\tSERVICE\tMESSAGE")
	for _, a := range alerts {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			a.ID, a.Timestamp.Format("2006-01-02 15:04:05"), a.Severity, a.Service, a.ErrorMessage)
	}
	fmt.Fprintln(w)

	events, err := postgres.NewEventRepo(db).Recent(ctx, recentCount)
	if err != nil {
		slog.Error("Failed to query events", "error", err)
		os.Exit(1)
	}
	fmt.Fprintf(w, "RECENT EVENTS (%d)\n", len(events))
	fmt.Fprintln(w, "TIME\tTYPE\tSERVICE\tOUTCOME\tATTEMPTS\tCIRCUIT\tERROR")
	for _, e := range events {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%s\t%s\n",
			e.Timestamp.Format("2006-01-02 15:04:05"), e.RecordType, e.Service,
			e.Outcome, e.Attempts, e.CircuitState, e.ErrorMessage)
	}
	_ = w.Flush()
}
