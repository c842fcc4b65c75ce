// Command onetmart loads the occupational data mart and runs its reporting
// queries.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"onetmart/internal/config"
	"onetmart/internal/pipeline"
	"onetmart/internal/report"
	"onetmart/internal/warehouse"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "onetmart",
		Short:         "Occupational taxonomy data mart loader",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newEtlCmd(), newQueriesCmd())
	return root
}

func newEtlCmd() *cobra.Command {
	var (
		rawDir      string
		dbPath      string
		postgresDSN string
		schemaPath  string
		gateway     string
	)
	cmd := &cobra.Command{
		Use:   "etl",
		Short: "Run the full extract, clean, stage, and promote pipeline",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			applyOverride(cmd, "raw-dir", rawDir, &cfg.RawDir)
			applyOverride(cmd, "db", dbPath, &cfg.DBPath)
			applyOverride(cmd, "postgres-dsn", postgresDSN, &cfg.PostgresDSN)
			applyOverride(cmd, "schema", schemaPath, &cfg.SchemaPath)
			applyOverride(cmd, "pushgateway", gateway, &cfg.PushgatewayURL)
			log, err := cfg.Logger()
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			metrics := pipeline.NewPrometheusMetrics(cfg.PushgatewayURL)
			runner := pipeline.New(log, metrics)
			rep, err := runner.Run(ctx, pipeline.Config{
				RawDir:     cfg.RawDir,
				LookupPath: cfg.LookupPath,
				Warehouse: warehouse.OpenConfig{
					Path:       cfg.DBPath,
					DSN:        cfg.PostgresDSN,
					SchemaPath: cfg.SchemaPath,
				},
			})
			if err != nil {
				return err
			}
			if err := metrics.Push(ctx); err != nil {
				log.WithError(err).Warn("metrics push failed")
			}
			printReport(cmd, rep)
			return nil
		},
	}
	cmd.Flags().StringVar(&rawDir, "raw-dir", "", "directory holding the dump files")
	cmd.Flags().StringVar(&dbPath, "db", "", "sqlite warehouse file")
	cmd.Flags().StringVar(&postgresDSN, "postgres-dsn", "", "postgres DSN (overrides sqlite)")
	cmd.Flags().StringVar(&schemaPath, "schema", "", "external schema script")
	cmd.Flags().StringVar(&gateway, "pushgateway", "", "prometheus pushgateway URL")
	return cmd
}

func newQueriesCmd() *cobra.Command {
	var (
		dbPath      string
		postgresDSN string
		queriesDir  string
		driver      string
		outRoot     string
		bucket      string
	)
	cmd := &cobra.Command{
		Use:   "queries",
		Short: "Run the reporting queries against a loaded warehouse",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			applyOverride(cmd, "db", dbPath, &cfg.DBPath)
			applyOverride(cmd, "postgres-dsn", postgresDSN, &cfg.PostgresDSN)
			applyOverride(cmd, "queries-dir", queriesDir, &cfg.QueriesDir)
			applyOverride(cmd, "driver", driver, &cfg.ReportDriver)
			applyOverride(cmd, "out", outRoot, &cfg.ReportRoot)
			applyOverride(cmd, "bucket", bucket, &cfg.ReportBucket)
			log, err := cfg.Logger()
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			store, err := warehouse.OpenExisting(ctx, warehouse.OpenConfig{
				Path: cfg.DBPath,
				DSN:  cfg.PostgresDSN,
			})
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()
			sink, err := report.OpenSink(ctx, report.SinkConfig{
				Driver:    report.Driver(cfg.ReportDriver),
				Root:      cfg.ReportRoot,
				Bucket:    cfg.ReportBucket,
				Region:    cfg.ReportRegion,
				Endpoint:  cfg.ReportEndpoint,
				PathStyle: cfg.ReportPathStyle,
			})
			if err != nil {
				return err
			}
			results, err := report.Run(ctx, store, cfg.QueriesDir, sink)
			if err != nil {
				return err
			}
			if len(results) == 0 {
				log.WithField("dir", cfg.QueriesDir).Warn("no reporting queries found")
				return nil
			}
			for _, res := range results {
				cmd.Printf("%s: %d rows -> %s\n", res.Query, res.Rows, res.Location)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&dbPath, "db", "", "sqlite warehouse file")
	cmd.Flags().StringVar(&postgresDSN, "postgres-dsn", "", "postgres DSN (overrides sqlite)")
	cmd.Flags().StringVar(&queriesDir, "queries-dir", "", "directory of *.sql reporting queries")
	cmd.Flags().StringVar(&driver, "driver", "", "report sink driver: fs, s3, or memory")
	cmd.Flags().StringVar(&outRoot, "out", "", "output directory for the fs driver")
	cmd.Flags().StringVar(&bucket, "bucket", "", "bucket for the s3 driver")
	return cmd
}

// applyOverride copies a flag value into a config field when the flag was
// set on the command line.
func applyOverride(cmd *cobra.Command, name, value string, field *string) {
	if cmd.Flags().Changed(name) {
		*field = value
	}
}

func printReport(cmd *cobra.Command, rep *pipeline.RunReport) {
	cmd.Printf("occupations cleaned: %d\n", rep.OccupationsCleaned)
	for d, n := range rep.ValidRatings {
		cmd.Printf("%s: %d valid, %d invalid\n", d, n, rep.InvalidRatings[d])
	}
	cmd.Printf("promoted: %d occupations, %d elements, %d anchors, %d scales, %d facts\n",
		rep.Occupations, rep.Elements, rep.Anchors, rep.ScalesPromoted, rep.Facts)
	for _, f := range rep.StagingFindings {
		cmd.Printf("staging finding: %s\n", f)
	}
	for _, f := range rep.PostLoadFindings {
		cmd.Printf("postload finding: %s\n", f)
	}
}
