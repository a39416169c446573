package main

import (
	"context"
	"encoding/json"
	"io"
	"net/url"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/addis-analytics/fidata/internal/extract"
	"github.com/addis-analytics/fidata/pkg/anthropic"
)

// maxDraftSourceBytes caps how much of a source document is sent for drafting.
const maxDraftSourceBytes = 1 << 20

var draftCmd = &cobra.Command{
	Use:   "draft <source-url-or-path>",
	Short: "Draft candidate records from a source document",
	Long:  "Fetches the source document (URL or local text file) and asks Claude to propose structured records from it. Drafts are printed as JSON for review; nothing is appended to the log.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		if cfg.Anthropic.Key == "" {
			return eris.New("anthropic API key is required (FIDATA_ANTHROPIC_KEY)")
		}
		sourceName, _ := cmd.Flags().GetString("source-name")
		collectedBy, _ := cmd.Flags().GetString("collected-by")
		if collectedBy == "" {
			return eris.New("--collected-by is required")
		}

		sourceURL := args[0]
		body, err := openDraftSource(ctx, sourceURL)
		if err != nil {
			return eris.Wrapf(err, "draft: fetch %s", sourceURL)
		}
		defer body.Close()

		text, err := io.ReadAll(io.LimitReader(body, maxDraftSourceBytes))
		if err != nil {
			return eris.Wrap(err, "draft: read source")
		}

		drafter := extract.NewDrafter(anthropic.NewClient(cfg.Anthropic.Key), cfg.Anthropic.Model)
		records, err := drafter.DraftRecords(ctx, sourceURL, sourceName, string(text), collectedBy)
		if err != nil {
			return err
		}

		zap.L().Info("draft complete",
			zap.String("source_url", sourceURL),
			zap.Int("drafts", len(records)),
		)

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(records)
	},
}

// openDraftSource treats the argument as a URL when it has a scheme and as a
// local file path otherwise.
func openDraftSource(ctx context.Context, source string) (io.ReadCloser, error) {
	u, err := url.Parse(source)
	if err != nil || u.Scheme == "" {
		return os.Open(source)
	}
	return initFetcher().Download(ctx, source)
}

func init() {
	draftCmd.Flags().String("source-name", "", "human-readable source name for the drafts")
	draftCmd.Flags().String("collected-by", "", "collector identity recorded on the drafts (required)")
	rootCmd.AddCommand(draftCmd)
}
