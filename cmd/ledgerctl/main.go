package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/goldenfork/ledger_backend/config"
	"github.com/goldenfork/ledger_backend/models"
	"github.com/goldenfork/ledger_backend/models/reports"
	"github.com/spf13/cobra"
)

const dateLayout = "2006-01-02"

func connect() {
	config.ConnectDatabaseWithRetry()
}

func parseDateFlag(value string, fallback time.Time) (time.Time, error) {
	if strings.TrimSpace(value) == "" {
		return fallback, nil
	}
	parsed, err := time.Parse(dateLayout, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q, want YYYY-MM-DD", value)
	}
	return parsed, nil
}

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Run schema migration",
		RunE: func(cmd *cobra.Command, args []string) error {
			connect()
			models.MigrateTable()
			fmt.Println("migration complete")
			return nil
		},
	}
}

func newSeedAccountsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed-accounts",
		Short: "Upsert the canonical chart of accounts",
		RunE: func(cmd *cobra.Command, args []string) error {
			connect()
			if err := models.EnsureAccounts(cmd.Context()); err != nil {
				return err
			}
			fmt.Println("chart of accounts seeded")
			return nil
		},
	}
}

func newReconcileCmd() *cobra.Command {
	var fix bool
	cmd := &cobra.Command{
		Use:   "reconcile",
		Short: "Compare the journal against the ledger projection",
		RunE: func(cmd *cobra.Command, args []string) error {
			connect()
			config.ConnectRedisWithRetry()
			summary, err := models.Reconcile(cmd.Context(), fix)
			if err != nil {
				return err
			}
			fmt.Printf("run %s: %d keys, %d matches, %d mismatches, %d missing in ledger, %d extra in ledger\n",
				summary.CorrelationID, summary.KeysChecked, summary.Matches,
				summary.Mismatches, summary.MissingInLedger, summary.ExtraInLedger)
			if fix {
				fmt.Printf("inserted %d ledger rows\n", summary.RowsInserted)
			}
			if !summary.Clean() && !fix {
				return fmt.Errorf("drift detected, rerun with --fix to re-derive missing rows")
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&fix, "fix", false, "re-derive missing ledger rows from posted journal lines")
	return cmd
}

func newExportCmd() *cobra.Command {
	var (
		asof   string
		from   string
		to     string
		format string
		out    string
	)
	cmd := &cobra.Command{
		Use:   "export [trial-balance|balance-sheet|income-statement]",
		Short: "Export a report to CSV or XLSX",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			connect()
			ctx := cmd.Context()
			now := time.Now()

			asofDate, err := parseDateFlag(asof, now)
			if err != nil {
				return err
			}
			fromDate, err := parseDateFlag(from, time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC))
			if err != nil {
				return err
			}
			toDate, err := parseDateFlag(to, now)
			if err != nil {
				return err
			}

			var data []byte
			switch args[0] {
			case "trial-balance":
				report, err := reports.TrialBalance(ctx, asofDate)
				if err != nil {
					return err
				}
				if format == "csv" {
					data, err = reports.TrialBalanceCSV(report)
				} else {
					data, err = reports.TrialBalanceXLSX(report)
				}
				if err != nil {
					return err
				}
			case "balance-sheet":
				report, err := reports.BalanceSheet(ctx, asofDate)
				if err != nil {
					return err
				}
				if format == "csv" {
					data, err = reports.BalanceSheetCSV(report)
				} else {
					data, err = reports.BalanceSheetXLSX(report)
				}
				if err != nil {
					return err
				}
			case "income-statement":
				report, err := reports.IncomeStatement(ctx, fromDate, toDate, nil)
				if err != nil {
					return err
				}
				if format == "csv" {
					data, err = reports.IncomeStatementCSV(report)
				} else {
					data, err = reports.IncomeStatementXLSX(report)
				}
				if err != nil {
					return err
				}
			default:
				return fmt.Errorf("unknown report %q", args[0])
			}

			if out == "" {
				out = args[0] + "." + format
			}
			if err := os.WriteFile(out, data, 0o644); err != nil {
				return err
			}
			fmt.Println("wrote", out)
			return nil
		},
	}
	cmd.Flags().StringVar(&asof, "asof", "", "as-of date (YYYY-MM-DD), default today")
	cmd.Flags().StringVar(&from, "from", "", "period start (YYYY-MM-DD), default first of month")
	cmd.Flags().StringVar(&to, "to", "", "period end (YYYY-MM-DD), default today")
	cmd.Flags().StringVar(&format, "format", "xlsx", "csv or xlsx")
	cmd.Flags().StringVar(&out, "out", "", "output path")
	return cmd
}

func main() {
	root := &cobra.Command{
		Use:   "ledgerctl",
		Short: "Operations tooling for the ledger service",
	}
	root.AddCommand(newMigrateCmd())
	root.AddCommand(newSeedAccountsCmd())
	root.AddCommand(newReconcileCmd())
	root.AddCommand(newExportCmd())

	if err := root.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
