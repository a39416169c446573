package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/addis-analytics/fidata/internal/model"
	"github.com/addis-analytics/fidata/internal/store"
)

var logCmd = &cobra.Command{
	Use:   "log",
	Short: "List records in the enrichment log",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		recordType, _ := cmd.Flags().GetString("type")
		indicator, _ := cmd.Flags().GetString("indicator")
		pillar, _ := cmd.Flags().GetString("pillar")
		confidence, _ := cmd.Flags().GetString("confidence")
		minConfidence, _ := cmd.Flags().GetString("min-confidence")
		collectedBy, _ := cmd.Flags().GetString("collected-by")
		all, _ := cmd.Flags().GetBool("all")
		limit, _ := cmd.Flags().GetInt("limit")
		asJSON, _ := cmd.Flags().GetBool("json")

		filter := store.RecordFilter{
			RecordType:        model.RecordType(recordType),
			IndicatorCode:     indicator,
			Pillar:            pillar,
			Confidence:        model.Confidence(confidence),
			CollectedBy:       collectedBy,
			ExcludeSuperseded: !all,
			Limit:             limit,
		}

		records, err := st.ListRecords(ctx, filter)
		if err != nil {
			return eris.Wrap(err, "log list")
		}

		if minConfidence != "" {
			min, err := model.ParseConfidence(minConfidence)
			if err != nil {
				return err
			}
			records = filterMinConfidence(records, min)
		}

		if asJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(records)
		}

		if len(records) == 0 {
			fmt.Fprintln(os.Stderr, "No records found.")
			return nil
		}

		formatRecordList(os.Stdout, records)
		return nil
	},
}

var showCmd = &cobra.Command{
	Use:   "show <record-id>",
	Short: "Show a record with its verification history",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		rec, err := st.GetRecord(ctx, args[0])
		if err != nil {
			return eris.Wrap(err, "show record")
		}

		verifications, err := st.ListVerifications(ctx, rec.ID)
		if err != nil {
			return eris.Wrap(err, "show verifications")
		}

		out := struct {
			Record        *model.Record        `json:"record"`
			Verifications []model.Verification `json:"verifications,omitempty"`
		}{rec, verifications}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	},
}

func init() {
	logCmd.Flags().String("type", "", "filter by record type (observation, event, impact_link)")
	logCmd.Flags().String("indicator", "", "filter by indicator code")
	logCmd.Flags().String("pillar", "", "filter by pillar")
	logCmd.Flags().String("confidence", "", "filter by exact confidence level")
	logCmd.Flags().String("min-confidence", "", "keep only records at or above this confidence")
	logCmd.Flags().String("collected-by", "", "filter by collector")
	logCmd.Flags().Bool("all", false, "include superseded records")
	logCmd.Flags().Int("limit", 50, "max number of records to display")
	logCmd.Flags().Bool("json", false, "emit JSON instead of a table")

	rootCmd.AddCommand(logCmd)
	rootCmd.AddCommand(showCmd)
}

// filterMinConfidence keeps records at or above the given confidence level.
func filterMinConfidence(records []model.Record, min model.Confidence) []model.Record {
	kept := records[:0]
	for _, r := range records {
		if r.Confidence.AtLeast(min) {
			kept = append(kept, r)
		}
	}
	return kept
}

// formatRecordList writes a tabular list of records to w. Records another
// record in the listing supersedes are marked; they only appear when the
// caller listed with superseded records included.
func formatRecordList(out io.Writer, records []model.Record) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tTYPE\tMETRIC\tVALUE\tAS_OF\tCONF\tSOURCE\t")
	_, _ = fmt.Fprintln(w, "--\t----\t------\t-----\t-----\t----\t------\t")

	for _, r := range records {
		metric := r.MetricName
		if len(metric) > 36 {
			metric = metric[:33] + "..."
		}
		asOf := ""
		if r.AsOfDate != nil {
			asOf = r.AsOfDate.Format("2006-01-02")
		}
		source := r.SourceName
		if source == "" {
			source = r.SourceURL
		}
		if len(source) > 30 {
			source = source[:27] + "..."
		}

		note := ""
		if model.Superseded(&r, records) {
			note = "superseded"
		}

		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			truncateID(r.ID),
			r.RecordType,
			metric,
			r.Value,
			asOf,
			r.Confidence,
			source,
			note,
		)
	}
	_ = w.Flush()
}

// truncateID returns the first 8 characters of a UUID for compact display.
func truncateID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
