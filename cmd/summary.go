package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/addis-analytics/fidata/internal/model"
	"github.com/addis-analytics/fidata/internal/store"
	"github.com/addis-analytics/fidata/internal/summary"
)

var summaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Analyze dataset coverage",
	Long:  "Commands for summarizing the enrichment log: record counts, temporal range, indicator coverage, events, and impact links.",
}

// loadCurrentRecords fetches the records summaries operate on. Superseded
// records are excluded so corrections do not double-count.
func loadCurrentRecords(ctx context.Context) ([]model.Record, error) {
	st, err := openStore(ctx)
	if err != nil {
		return nil, err
	}
	defer st.Close() //nolint:errcheck

	records, err := st.ListRecords(ctx, store.RecordFilter{ExcludeSuperseded: true})
	if err != nil {
		return nil, eris.Wrap(err, "summary list")
	}
	return records, nil
}

var summaryCountsCmd = &cobra.Command{
	Use:   "counts",
	Short: "Count records by type, pillar, source, and confidence",
	RunE: func(cmd *cobra.Command, _ []string) error {
		records, err := loadCurrentRecords(cmd.Context())
		if err != nil {
			return err
		}
		formatCounts(os.Stdout, summary.CountRecords(records))
		return nil
	},
}

var summaryRangeCmd = &cobra.Command{
	Use:   "range",
	Short: "Show the temporal span of observations and events",
	RunE: func(cmd *cobra.Command, _ []string) error {
		records, err := loadCurrentRecords(cmd.Context())
		if err != nil {
			return err
		}
		formatTemporalRange(os.Stdout, summary.ComputeTemporalRange(records))
		return nil
	},
}

var summaryIndicatorsCmd = &cobra.Command{
	Use:   "indicators",
	Short: "List indicators with record coverage",
	RunE: func(cmd *cobra.Command, _ []string) error {
		records, err := loadCurrentRecords(cmd.Context())
		if err != nil {
			return err
		}

		coverage := summary.ListIndicators(records)
		if len(coverage) == 0 {
			fmt.Fprintln(os.Stderr, "No indicators found.")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		_, _ = fmt.Fprintln(w, "INDICATOR\tRECORDS")
		for _, c := range coverage {
			_, _ = fmt.Fprintf(w, "%s\t%d\n", c.IndicatorCode, c.Count)
		}
		return w.Flush()
	},
}

var summaryEventsCmd = &cobra.Command{
	Use:   "events",
	Short: "List cataloged events in date order",
	RunE: func(cmd *cobra.Command, _ []string) error {
		records, err := loadCurrentRecords(cmd.Context())
		if err != nil {
			return err
		}

		events := summary.Events(records)
		if len(events) == 0 {
			fmt.Fprintln(os.Stderr, "No events found.")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		_, _ = fmt.Fprintln(w, "DATE\tEVENT\tPILLAR\tCONF")
		for _, e := range events {
			date := "(undated)"
			if e.AsOfDate != nil {
				date = e.AsOfDate.Format("2006-01-02")
			}
			_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", date, e.MetricName, e.Pillar, e.Confidence)
		}
		return w.Flush()
	},
}

var summaryLinksCmd = &cobra.Command{
	Use:   "links",
	Short: "List impact links between events and indicators",
	RunE: func(cmd *cobra.Command, _ []string) error {
		records, err := loadCurrentRecords(cmd.Context())
		if err != nil {
			return err
		}

		links := summary.ImpactLinks(records)
		if len(links) == 0 {
			fmt.Fprintln(os.Stderr, "No impact links found.")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		_, _ = fmt.Fprintln(w, "INDICATOR\tLINK\tCONF")
		for _, l := range links {
			_, _ = fmt.Fprintf(w, "%s\t%s\t%s\n", l.IndicatorCode, l.MetricName, l.Confidence)
		}
		return w.Flush()
	},
}

func init() {
	summaryCmd.AddCommand(summaryCountsCmd)
	summaryCmd.AddCommand(summaryRangeCmd)
	summaryCmd.AddCommand(summaryIndicatorsCmd)
	summaryCmd.AddCommand(summaryEventsCmd)
	summaryCmd.AddCommand(summaryLinksCmd)
	rootCmd.AddCommand(summaryCmd)
}

// formatCounts writes count breakdowns to w.
func formatCounts(out io.Writer, c summary.Counts) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintf(w, "Total records:\t%d\n", c.Total)
	writeBreakdown(w, "By record type:", c.ByRecordType)
	writeBreakdown(w, "By pillar:", c.ByPillar)
	writeBreakdown(w, "By source:", c.BySource)
	writeBreakdown(w, "By confidence:", c.ByConfidence)
	_ = w.Flush()
}

func writeBreakdown(w io.Writer, title string, counts map[string]int) {
	_, _ = fmt.Fprintln(w, title)
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		_, _ = fmt.Fprintf(w, "  %s:\t%d\n", k, counts[k])
	}
}

// formatTemporalRange writes date spans to w.
func formatTemporalRange(out io.Writer, tr summary.TemporalRange) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	writeRange(w, "Overall", tr.Overall)
	writeRange(w, "Observations", tr.Observations)
	writeRange(w, "Events", tr.Events)
	_ = w.Flush()
}

func writeRange(w io.Writer, label string, r summary.DateRange) {
	if r.Min == nil {
		_, _ = fmt.Fprintf(w, "%s:\t(no dated records)\n", label)
		return
	}
	_, _ = fmt.Fprintf(w, "%s:\t%s to %s\n", label, fmtDate(r.Min), fmtDate(r.Max))
}

func fmtDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format("2006-01-02")
}
