package main

import (
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/addis-analytics/fidata/internal/model"
	"github.com/addis-analytics/fidata/internal/store"
	"github.com/addis-analytics/fidata/internal/verify"
)

var verifyCmd = &cobra.Command{
	Use:   "verify [record-id]",
	Short: "Re-check record excerpts against their source URLs",
	Long:  "Fetches each record's source URL and checks that its original_text excerpt still appears. Outcomes are appended to the verification log.",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		var records []model.Record
		if len(args) == 1 {
			rec, err := st.GetRecord(ctx, args[0])
			if err != nil {
				return eris.Wrap(err, "verify record")
			}
			records = []model.Record{*rec}
		} else {
			recordType, _ := cmd.Flags().GetString("type")
			records, err = st.ListRecords(ctx, store.RecordFilter{
				RecordType:        model.RecordType(recordType),
				ExcludeSuperseded: true,
			})
			if err != nil {
				return eris.Wrap(err, "verify list")
			}
		}

		checker := verify.NewChecker(st, initFetcher(), cfg.Verify.MaxConcurrent)
		res, err := checker.CheckAll(ctx, records)
		if err != nil {
			return err
		}

		fmt.Printf("Checked %d records: %d found, %d not found, %d fetch errors.\n",
			res.Checked, res.Found, res.NotFound, res.Errors)
		return nil
	},
}

func init() {
	verifyCmd.Flags().String("type", "", "restrict verification to one record type")
	rootCmd.AddCommand(verifyCmd)
}
