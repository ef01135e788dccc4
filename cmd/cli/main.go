package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"adpulse/adapters/db"
	"adpulse/adapters/excel"
	"adpulse/app"
	"adpulse/internal/config"
	"adpulse/internal/dataproc"
	"adpulse/internal/logging"
	"adpulse/internal/testkit"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var format string

	rootCmd := &cobra.Command{
		Use:           "adpulse-cli",
		Short:         "Marketing metrics processing and reporting",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if format != "json" && format != "yaml" {
				return fmt.Errorf("unsupported format %q (use json or yaml)", format)
			}
			return nil
		},
	}
	rootCmd.PersistentFlags().StringVar(&format, "format", "json", "Output format: json|yaml")

	rootCmd.AddCommand(
		newQualityCmd(),
		newAggregateCmd(),
		newOutliersCmd(),
		newPrepareCmd(),
		newSmoothCmd(),
		newSeedCmd(),
		newReportCmd(),
	)
	return rootCmd
}

func newQualityCmd() *cobra.Command {
	var fields []string

	cmd := &cobra.Command{
		Use:   "quality [file]",
		Short: "Score completeness, consistency and recency of an export",
		Long: `Score a CSV or Excel export for data quality.

Example: adpulse-cli quality ads.csv --fields date,clicks,spend`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			records, err := readRecords(args[0])
			if err != nil {
				return err
			}
			return printOut(cmd, dataproc.CalculateDataQuality(records, fields))
		},
	}

	cmd.Flags().StringSliceVar(&fields, "fields", nil, "Required fields")
	return cmd
}

func newAggregateCmd() *cobra.Command {
	var period, xlsxPath string
	var sumFields, avgFields []string

	cmd := &cobra.Command{
		Use:   "aggregate [file]",
		Short: "Group records by day, week or month and reduce each bucket",
		Long: `Group an export by calendar period and sum or average fields.

Weeks start on Sunday. With --xlsx the buckets are also written to a workbook.

Example: adpulse-cli aggregate ads.csv --period week --sum clicks,spend --avg ctr --xlsx weekly.xlsx`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p := dataproc.Period(period)
			if p != dataproc.PeriodDay && p != dataproc.PeriodWeek && p != dataproc.PeriodMonth {
				return fmt.Errorf("unsupported period %q (use day, week or month)", period)
			}

			records, err := readRecords(args[0])
			if err != nil {
				return err
			}

			buckets := dataproc.AggregateGroupedData(dataproc.GroupByTimePeriod(records, p), sumFields, avgFields)

			if xlsxPath != "" {
				writer := excel.BucketWriter{Fields: append(append([]string{}, sumFields...), avgFields...)}
				if err := writer.Save(xlsxPath, p, buckets); err != nil {
					return err
				}
			}
			return printOut(cmd, buckets)
		},
	}

	cmd.Flags().StringVar(&period, "period", "day", "Period: day|week|month")
	cmd.Flags().StringSliceVar(&sumFields, "sum", nil, "Fields to sum")
	cmd.Flags().StringSliceVar(&avgFields, "avg", nil, "Fields to average")
	cmd.Flags().StringVar(&xlsxPath, "xlsx", "", "Also write the buckets to this workbook")
	return cmd
}

func newOutliersCmd() *cobra.Command {
	var field string

	cmd := &cobra.Command{
		Use:   "outliers [file]",
		Short: "Detect IQR outliers in one field",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			records, err := readRecords(args[0])
			if err != nil {
				return err
			}
			return printOut(cmd, dataproc.DetectOutliers(dataproc.Column(records, field)))
		},
	}

	cmd.Flags().StringVar(&field, "field", "", "Field to scan")
	cmd.MarkFlagRequired("field")
	return cmd
}

func newPrepareCmd() *cobra.Command {
	var target string
	var features []string

	cmd := &cobra.Command{
		Use:   "prepare [file]",
		Short: "Build a normalized training set from an export",
		Long: `Build a [0,1]-scaled feature matrix and target vector.

Rows missing the target or any feature are dropped.

Example: adpulse-cli prepare ads.csv --target conversions --features clicks,spend`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			records, err := readRecords(args[0])
			if err != nil {
				return err
			}
			dataset := dataproc.PrepareTrainingData(records, target, features)
			if dropped := dataset.Dropped(len(records)); dropped > 0 {
				fmt.Fprintf(cmd.ErrOrStderr(), "dropped %d incomplete rows\n", dropped)
			}
			return printOut(cmd, dataset)
		},
	}

	cmd.Flags().StringVar(&target, "target", "", "Target field")
	cmd.Flags().StringSliceVar(&features, "features", nil, "Feature fields")
	cmd.MarkFlagRequired("target")
	cmd.MarkFlagRequired("features")
	return cmd
}

func newSmoothCmd() *cobra.Command {
	var field string
	var window int

	cmd := &cobra.Command{
		Use:   "smooth [file]",
		Short: "Apply a centered moving average to one field",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			records, err := readRecords(args[0])
			if err != nil {
				return err
			}
			return printOut(cmd, dataproc.MovingAverage(dataproc.Column(records, field), window))
		},
	}

	cmd.Flags().StringVar(&field, "field", "", "Field to smooth")
	cmd.Flags().IntVar(&window, "window", dataproc.DefaultSmoothingWindow, "Window size")
	cmd.MarkFlagRequired("field")
	return cmd
}

func newSeedCmd() *cobra.Command {
	gen := testkit.DefaultMetricsConfig()
	var end string
	var spikeDay int
	var spikeField string

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Write generated daily metrics to the configured database",
		Long: `Generate deterministic sample metrics and store them.

The database is selected with ADPULSE_DATABASE_DRIVER and ADPULSE_DATABASE_DSN.

Example: adpulse-cli seed --source facebook --account demo --days 90 --spike-day 40 --spike-field clicks`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if end != "" {
				t, err := time.Parse("2006-01-02", end)
				if err != nil {
					return fmt.Errorf("invalid --end (use YYYY-MM-DD): %w", err)
				}
				gen.EndDate = t
			} else {
				gen.EndDate = time.Now().UTC()
			}
			if spikeField != "" {
				gen = gen.InjectSpike(spikeDay, spikeField, 5)
			}

			records, err := testkit.NewMetricsGenerator(gen).Generate()
			if err != nil {
				return err
			}

			svc, closeFn, err := openService(cmd.Context())
			if err != nil {
				return err
			}
			defer closeFn()

			n, err := svc.Ingest(cmd.Context(), gen.Source, gen.AccountID, records)
			if err != nil {
				return err
			}
			return printOut(cmd, map[string]any{"source": gen.Source, "accountId": gen.AccountID, "ingested": n})
		},
	}

	cmd.Flags().StringVar(&gen.Source, "source", gen.Source, "Data source")
	cmd.Flags().StringVar(&gen.AccountID, "account", gen.AccountID, "Account ID")
	cmd.Flags().IntVar(&gen.Days, "days", 90, "Number of days")
	cmd.Flags().Int64Var(&gen.Seed, "seed", gen.Seed, "Random seed for deterministic output")
	cmd.Flags().Float64Var(&gen.Growth, "growth", 0, "Daily growth rate, e.g. 0.01")
	cmd.Flags().StringVar(&end, "end", "", "Last day (YYYY-MM-DD, default today)")
	cmd.Flags().IntVar(&spikeDay, "spike-day", 0, "Day index of an injected spike")
	cmd.Flags().StringVar(&spikeField, "spike-field", "", "Field multiplied by 5 on --spike-day")
	return cmd
}

func newReportCmd() *cobra.Command {
	var source, account string
	var days int
	var html, markdown bool

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Analyze stored history and print the report",
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, closeFn, err := openService(cmd.Context())
			if err != nil {
				return err
			}
			defer closeFn()

			report, err := svc.Analyze(cmd.Context(), source, account, days)
			if err != nil {
				return err
			}

			switch {
			case html:
				_, out := app.RenderReport(report)
				fmt.Fprint(cmd.OutOrStdout(), out)
				return nil
			case markdown:
				fmt.Fprint(cmd.OutOrStdout(), app.RenderMarkdown(report))
				return nil
			default:
				return printOut(cmd, report)
			}
		},
	}

	cmd.Flags().StringVar(&source, "source", "", "Data source")
	cmd.Flags().StringVar(&account, "account", "", "Account ID")
	cmd.Flags().IntVar(&days, "days", 0, "History window in days (default from config)")
	cmd.Flags().BoolVar(&html, "html", false, "Print the report as HTML")
	cmd.Flags().BoolVar(&markdown, "markdown", false, "Print the report as markdown")
	cmd.MarkFlagRequired("source")
	cmd.MarkFlagRequired("account")
	return cmd
}

func readRecords(path string) ([]dataproc.Record, error) {
	return excel.NewDataReader(path).WithLogger(logging.Nop()).ReadRecords()
}

// openService wires the analytics service to the configured database. Logs go
// to stderr so they never mix with command output.
func openService(ctx context.Context) (*app.AnalyticsService, func(), error) {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}

	logCfg := cfg.Logging
	if logCfg.Output == "" || strings.EqualFold(logCfg.Output, "stdout") {
		logCfg.Output = "stderr"
	}
	logger, err := logging.NewFromConfig(logCfg)
	if err != nil {
		return nil, nil, err
	}

	conn, err := db.OpenAndMigrate(ctx, cfg.Database.Driver, cfg.Database.DSN)
	if err != nil {
		return nil, nil, err
	}

	svc, err := app.NewAnalyticsService(
		db.NewMetricRepository(conn, nil),
		db.NewAnalysisRepository(conn),
		cfg.Analysis,
		app.WithLogger(logger),
	)
	if err != nil {
		conn.Close()
		return nil, nil, err
	}
	return svc, func() { conn.Close() }, nil
}
