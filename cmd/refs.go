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
)

var refsCmd = &cobra.Command{
	Use:   "refs [code]",
	Short: "List reference codes, or show one code",
	Long:  "Lists the indicator reference codes grouped by pillar. With a code argument, shows that code's entry.",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		codes, err := st.ListReferenceCodes(ctx)
		if err != nil {
			return eris.Wrap(err, "refs list")
		}
		registry := model.NewReferenceRegistry(codes)

		if len(args) == 1 {
			entry := registry.ByCode(args[0])
			if entry == nil {
				return eris.Errorf("unknown reference code %q", args[0])
			}
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(entry)
		}

		if len(codes) == 0 {
			fmt.Fprintln(os.Stderr, "No reference codes loaded. Run `fidata import` first.")
			return nil
		}

		formatReferenceCodes(os.Stdout, registry)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(refsCmd)
}

// formatReferenceCodes writes the registry grouped by pillar.
func formatReferenceCodes(out io.Writer, registry *model.ReferenceRegistry) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	for _, pillar := range registry.Pillars() {
		_, _ = fmt.Fprintf(w, "%s\n", pillar)
		for _, c := range registry.ByPillar(pillar) {
			unit := c.Unit
			if unit == "" {
				unit = "-"
			}
			_, _ = fmt.Fprintf(w, "  %s\t%s\t%s\n", c.Code, c.Label, unit)
		}
	}
	_ = w.Flush()
}
