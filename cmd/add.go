package main

import (
	"encoding/json"
	"os"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/addis-analytics/fidata/internal/dataset"
	"github.com/addis-analytics/fidata/internal/model"
)

var addCmd = &cobra.Command{
	Use:   "add",
	Short: "Append one record to the enrichment log",
	Long:  "Validates and appends a single record. Records are immutable once appended; to correct one, add a new record with --supersedes.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		recordType, _ := cmd.Flags().GetString("type")
		metric, _ := cmd.Flags().GetString("metric")
		indicator, _ := cmd.Flags().GetString("indicator")
		pillar, _ := cmd.Flags().GetString("pillar")
		value, _ := cmd.Flags().GetString("value")
		unit, _ := cmd.Flags().GetString("unit")
		asOf, _ := cmd.Flags().GetString("as-of")
		sourceName, _ := cmd.Flags().GetString("source-name")
		sourceURL, _ := cmd.Flags().GetString("source-url")
		text, _ := cmd.Flags().GetString("text")
		confidence, _ := cmd.Flags().GetString("confidence")
		collectedBy, _ := cmd.Flags().GetString("collected-by")
		notes, _ := cmd.Flags().GetString("notes")
		supersedes, _ := cmd.Flags().GetString("supersedes")

		conf, err := model.ParseConfidence(confidence)
		if err != nil {
			return err
		}

		rec := model.Record{
			RecordType:     model.RecordType(recordType),
			MetricName:     metric,
			IndicatorCode:  indicator,
			Pillar:         pillar,
			Value:          value,
			Unit:           unit,
			SourceName:     sourceName,
			SourceURL:      sourceURL,
			OriginalText:   text,
			Confidence:     conf,
			CollectedBy:    collectedBy,
			CollectionDate: time.Now().UTC(),
			Notes:          notes,
			Supersedes:     supersedes,
		}
		if asOf != "" {
			d := dataset.ParseDate(asOf)
			if d == nil {
				return eris.Errorf("unparseable --as-of date: %s", asOf)
			}
			rec.AsOfDate = d
		}
		rec.NormalizeValue()

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		saved, err := st.AppendRecord(ctx, rec)
		if err != nil {
			return eris.Wrap(err, "add record")
		}

		zap.L().Info("record appended",
			zap.String("id", saved.ID),
			zap.String("record_type", string(saved.RecordType)),
			zap.String("metric_name", saved.MetricName),
		)

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(saved)
	},
}

func init() {
	addCmd.Flags().String("type", "observation", "record type (observation, event, impact_link)")
	addCmd.Flags().String("metric", "", "metric or event name")
	addCmd.Flags().String("indicator", "", "standard indicator code")
	addCmd.Flags().String("pillar", "", "pillar (access, usage, digital_payments, credit)")
	addCmd.Flags().String("value", "", "value as written in the source")
	addCmd.Flags().String("unit", "", "unit of measure")
	addCmd.Flags().String("as-of", "", "date the value refers to (YYYY-MM-DD)")
	addCmd.Flags().String("source-name", "", "human-readable source name")
	addCmd.Flags().String("source-url", "", "source URL (required)")
	addCmd.Flags().String("text", "", "verbatim excerpt supporting the record (required)")
	addCmd.Flags().String("confidence", "", "confidence (high, medium, low)")
	addCmd.Flags().String("collected-by", "", "collector identity (required)")
	addCmd.Flags().String("notes", "", "free-form notes")
	addCmd.Flags().String("supersedes", "", "ID of the record this one corrects")
	rootCmd.AddCommand(addCmd)
}
