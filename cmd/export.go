package main

import (
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/addis-analytics/fidata/internal/dataset"
	"github.com/addis-analytics/fidata/internal/store"
)

var exportCmd = &cobra.Command{
	Use:   "export <path>",
	Short: "Export the log to a CSV or XLSX file",
	Long:  "Writes current records to the given path. Format is chosen by extension (.csv or .xlsx). Superseded records are excluded unless --all is set.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		all, _ := cmd.Flags().GetBool("all")

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		records, err := st.ListRecords(ctx, store.RecordFilter{
			ExcludeSuperseded: !all,
		})
		if err != nil {
			return eris.Wrap(err, "export list")
		}

		if err := dataset.SaveEnriched(args[0], records); err != nil {
			return eris.Wrap(err, "export write")
		}

		zap.L().Info("export complete",
			zap.String("path", args[0]),
			zap.Int("records", len(records)),
		)
		fmt.Printf("Wrote %d records to %s\n", len(records), args[0])
		return nil
	},
}

func init() {
	exportCmd.Flags().Bool("all", false, "include superseded records")
	rootCmd.AddCommand(exportCmd)
}
