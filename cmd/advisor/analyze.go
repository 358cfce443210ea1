package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/crimson-sun/advisor/internal/model"
	"github.com/crimson-sun/advisor/internal/pipeline"
)

var (
	analyzeTitle       string
	analyzeDescription string
	analyzeDomain      string
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze [file]",
	Short: "Analyze one problem report",
	Long: `Analyze one problem report and print its cluster, topic, profiles and
recommendations.

The report is a JSON object keyed by field name (title, description_initial,
domain, estimated_cost, ...). It is read from the file argument, from stdin
when the argument is "-", or built from flags.

Examples:
  advisor analyze problem.json
  echo '{"title": "الطابعة لا تعمل"}' | advisor analyze -
  advisor analyze --title "VPN drops every hour" --domain IT`,
	Args: cobra.MaximumNArgs(1),
	RunE: runAnalyze,
}

var batchCmd = &cobra.Command{
	Use:   "batch [file]",
	Short: "Analyze newline-delimited JSON problem reports",
	Long: `Analyze a stream of problem reports, one JSON object per line, and write
one report per input line. Reads stdin when no file is given or the file is "-".
Undecodable lines produce an invalid_input report. Ctrl-C stops after the
current record.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runBatch,
}

func init() {
	analyzeCmd.Flags().StringVar(&analyzeTitle, "title", "", "problem title")
	analyzeCmd.Flags().StringVar(&analyzeDescription, "description", "", "initial problem description")
	analyzeCmd.Flags().StringVar(&analyzeDomain, "domain", "", "problem domain")
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	rec, err := readRecord(args, cmd.InOrStdin())
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	report := a.analyzer.Advise(rec)
	if report.Analysis.Error != "" {
		a.log.Warn("analysis rejected", zap.String("error", string(report.Analysis.Error)))
	}
	return a.out.Write(ctx, report)
}

// readRecord builds the record from flags, or decodes it from the named
// file or stdin.
func readRecord(args []string, stdin io.Reader) (model.ProblemRecord, error) {
	var rec model.ProblemRecord
	if len(args) == 0 {
		for name, v := range map[string]string{
			model.FieldTitle:       analyzeTitle,
			model.FieldDescription: analyzeDescription,
			model.FieldDomain:      analyzeDomain,
		} {
			if v != "" {
				_ = rec.Set(name, v)
			}
		}
		if rec.IsEmpty() {
			return rec, fmt.Errorf("no problem given: pass a file, - for stdin, or --title/--description")
		}
		return rec, nil
	}

	r := stdin
	if args[0] != "-" {
		f, err := os.Open(args[0])
		if err != nil {
			return rec, fmt.Errorf("failed to open %s: %w", args[0], err)
		}
		defer f.Close()
		r = f
	}
	if err := json.NewDecoder(r).Decode(&rec); err != nil {
		return rec, fmt.Errorf("failed to decode problem: %w", err)
	}
	return rec, nil
}

func runBatch(cmd *cobra.Command, args []string) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	in := cmd.InOrStdin()
	if len(args) == 1 && args[0] != "-" {
		f, err := os.Open(args[0])
		if err != nil {
			return fmt.Errorf("failed to open %s: %w", args[0], err)
		}
		defer f.Close()
		in = f
	}

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	p := pipeline.New(a.analyzer, a.out, pipeline.WithLogger(a.log.Named("pipeline")))
	stats, runErr := p.Run(ctx, in)
	closeErr := a.Close()

	a.log.Info("batch finished",
		zap.Int("read", stats.Read), zap.Int("invalid", stats.Invalid), zap.Int("written", stats.Written))
	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		return runErr
	}
	return closeErr
}
