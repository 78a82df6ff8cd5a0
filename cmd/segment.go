package cmd

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"rfm-segments/pkg/calculator"
	"rfm-segments/pkg/config"
	"rfm-segments/pkg/export"
	"rfm-segments/pkg/models"
	"rfm-segments/pkg/source"
)

func newSegmentCmd(a *app) *cobra.Command {
	var (
		src      sourceFlags
		segments []string
		output   string
		describe []string
		noExport bool
	)

	cmd := &cobra.Command{
		Use:   "segment [source]",
		Short: "Score customers and export segment member lists",
		Long: `Read invoice lines, compute RFM metrics and scores, map each customer to a
segment, print a per-segment summary and export the requested segments.

The source is a .csv or .xlsx file ("-" reads CSV from stdin) or a database
given with --dsn. Each exported segment becomes <segment>.csv in --output,
which is a directory or an s3://bucket/prefix URL.

Examples:
  rfm-segments segment online_retail_II.xlsx
  rfm-segments segment --reference-date 2010-12-10 --sheet "Year 2009-2010" online_retail_II.xlsx
  rfm-segments segment --segments at_risk,cant_loose --describe at_risk data.csv`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := a.cfg
			if cmd.Flags().Changed("segments") {
				cfg.Export.Segments = config.SplitList(segments)
			}
			if cmd.Flags().Changed("output") {
				cfg.Export.Output = output
			}
			if err := src.apply(cmd, args, cfg); err != nil {
				return err
			}
			filter, err := parseSegments(config.SplitList(describe))
			if err != nil {
				return fmt.Errorf("--describe: %w", err)
			}

			ctx := cmd.Context()
			runID := uuid.NewString()
			logger := a.logger.With(zap.String("run_id", runID))

			lines, err := source.Load(ctx, cfg.Source, logger)
			if err != nil {
				return err
			}
			result, err := calculator.Run(ctx, lines, models.Config{
				ReferenceDate: cfg.ReferenceDate,
				Progress:      cfg.Source.Progress,
				RunID:         runID,
			}, logger)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%d customers segmented (reference date %s)\n\n",
				result.Stats.SegmentedCustomers, cfg.ReferenceDate.Format("2006-01-02"))
			if err := printSummary(out, result.Summary, filter); err != nil {
				return err
			}
			if noExport {
				return nil
			}

			sink, err := export.NewSink(ctx, cfg.Export.Output, cfg.Export.S3)
			if err != nil {
				return err
			}
			written, err := export.Segments(ctx, sink, result.Customers, cfg.Export.Segments, logger)
			if err != nil {
				return err
			}
			fmt.Fprintln(out)
			for _, w := range written {
				fmt.Fprintf(out, "exported %d %s customers to %s\n", w.Customers, w.Segment, w.Location)
			}
			return nil
		},
	}

	src.register(cmd)
	cmd.Flags().StringSliceVarP(&segments, "segments", "s", nil, "segments to export (default loyal_customers)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "output directory or s3://bucket/prefix (default .)")
	cmd.Flags().StringSliceVar(&describe, "describe", nil, "only print the summary of these segments")
	cmd.Flags().BoolVar(&noExport, "no-export", false, "print the summary without exporting")
	return cmd
}

func parseSegments(names []string) ([]models.Segment, error) {
	var out []models.Segment
	for _, name := range names {
		seg, ok := models.ParseSegment(name)
		if !ok {
			return nil, fmt.Errorf("unknown segment %q", name)
		}
		out = append(out, seg)
	}
	return out, nil
}

// printSummary renders one row per segment with mean and median of each
// metric. A non-empty filter restricts the rows.
func printSummary(w io.Writer, summary []models.SegmentSummary, filter []models.Segment) error {
	keep := make(map[models.Segment]bool, len(filter))
	for _, s := range filter {
		keep[s] = true
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "segment\tcount\trecency mean\trecency median\tfrequency mean\tfrequency median\tmonetary mean\tmonetary median\t")
	for _, s := range summary {
		if len(keep) > 0 && !keep[s.Segment] {
			continue
		}
		fmt.Fprintf(tw, "%s\t%d\t%.4f\t%.4f\t%.4f\t%.4f\t%.4f\t%.4f\t\n",
			s.Segment, s.Count,
			s.Recency.Mean, s.Recency.Median,
			s.Frequency.Mean, s.Frequency.Median,
			s.Monetary.Mean, s.Monetary.Median,
		)
	}
	return tw.Flush()
}
