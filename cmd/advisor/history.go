package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/crimson-sun/advisor/internal/history"
)

var (
	importFrom  string
	importPath  string
	importTable string
	importTo    string
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Manage the historical problem dataset",
}

var historyImportCmd = &cobra.Command{
	Use:   "import",
	Short: "Copy a CSV or SQLite dataset into a badger store",
	Long: `Copy the historical dataset from a CSV export or a SQLite table into a
badger directory, replacing whatever that directory held. Dates are parsed
and resolution_time_days_calc is derived on the way in.

Point history.source at "badger" and history.path at the directory to use it.

Examples:
  advisor history import --from csv --path data/final_results.csv --to data/history
  advisor history import --from sqlite --path problems.db --table problems --to data/history`,
	Args: cobra.NoArgs,
	RunE: runHistoryImport,
}

func init() {
	f := historyImportCmd.Flags()
	f.StringVar(&importFrom, "from", "csv", "source type: "+strings.Join(history.Sources(), ", "))
	f.StringVar(&importPath, "path", "", "source file")
	f.StringVar(&importTable, "table", history.DefaultTable, "source table (sqlite only)")
	f.StringVar(&importTo, "to", "", "destination badger directory")
	_ = historyImportCmd.MarkFlagRequired("path")
	_ = historyImportCmd.MarkFlagRequired("to")
	historyCmd.AddCommand(historyImportCmd)
}

func runHistoryImport(cmd *cobra.Command, _ []string) error {
	if importFrom == "badger" {
		return fmt.Errorf("--from badger: source and destination are both badger stores")
	}
	_, log, err := loadConfig()
	if err != nil {
		return err
	}
	defer log.Sync()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	n, err := history.Import(ctx, importFrom, history.SourceConfig{Path: importPath, Table: importTable}, importTo)
	if err != nil {
		return err
	}
	log.Info("history imported", zap.String("from", importFrom), zap.String("to", importTo), zap.Int("records", n))
	cmd.Printf("imported %d records into %s\n", n, importTo)
	return nil
}
