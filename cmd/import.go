package main

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/addis-analytics/fidata/internal/dataset"
	"github.com/addis-analytics/fidata/internal/model"
	"github.com/addis-analytics/fidata/internal/store"
)

var importCmd = &cobra.Command{
	Use:   "import [path-or-url]",
	Short: "Import the unified dataset into the log",
	Long:  "Loads records from a CSV or XLSX file (local path or http/ftp URL) and appends them to the log. Defaults to the configured dataset path.",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		source := cfg.Dataset.MainPath
		if len(args) == 1 {
			source = args[0]
		}
		strict, _ := cmd.Flags().GetBool("strict")
		withRefs, _ := cmd.Flags().GetBool("refs")

		path, cleanup, err := localizeSource(ctx, source)
		if err != nil {
			return err
		}
		defer cleanup()

		records, err := dataset.LoadRecords(ctx, path)
		if err != nil {
			return eris.Wrap(err, "import load")
		}

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		// Reference codes load alongside the dataset so indicator codes
		// can be checked against the registry as rows come in.
		var registry *model.ReferenceRegistry
		if withRefs {
			registry, err = importReferenceCodes(ctx, st)
			if err != nil {
				return err
			}
		}

		appended, skipped := 0, 0
		for i := range records {
			if registry != nil && records[i].IndicatorCode != "" && registry.ByCode(records[i].IndicatorCode) == nil {
				zap.L().Warn("import: indicator code not in reference registry",
					zap.Int("row", i+1),
					zap.String("indicator_code", records[i].IndicatorCode),
				)
			}
			if _, err := st.AppendRecord(ctx, records[i]); err != nil {
				if strict {
					return eris.Wrapf(err, "import row %d", i+1)
				}
				zap.L().Warn("import: skipping invalid row",
					zap.Int("row", i+1),
					zap.String("metric_name", records[i].MetricName),
					zap.Error(err),
				)
				skipped++
				continue
			}
			appended++
		}

		zap.L().Info("import complete",
			zap.String("source", source),
			zap.Int("appended", appended),
			zap.Int("skipped", skipped),
		)
		fmt.Printf("Appended %d records (%d skipped).\n", appended, skipped)
		return nil
	},
}

// localizeSource returns a local file path for the given source, downloading
// remote URLs to a temp file first. The cleanup func removes any temp file.
func localizeSource(ctx context.Context, source string) (string, func(), error) {
	u, err := url.Parse(source)
	if err != nil || u.Scheme == "" {
		return source, func() {}, nil
	}

	dir, err := os.MkdirTemp("", "fidata-import-*")
	if err != nil {
		return "", nil, eris.Wrap(err, "import: temp dir")
	}
	cleanup := func() { os.RemoveAll(dir) }

	path := filepath.Join(dir, filepath.Base(u.Path))
	if _, err := initFetcher().DownloadToFile(ctx, source, path); err != nil {
		cleanup()
		return "", nil, eris.Wrapf(err, "import: download %s", source)
	}
	return path, cleanup, nil
}

// importReferenceCodes loads the reference workbook, persists it, and
// returns the registry for indicator-code checks. A missing workbook is
// tolerated; the import proceeds without registry checks.
func importReferenceCodes(ctx context.Context, st store.Store) (*model.ReferenceRegistry, error) {
	if _, err := os.Stat(cfg.Dataset.RefPath); os.IsNotExist(err) {
		zap.L().Warn("import: reference codes file not found, skipping registry checks",
			zap.String("path", cfg.Dataset.RefPath),
		)
		return nil, nil
	}

	codes, err := dataset.LoadReferenceCodes(ctx, cfg.Dataset.RefPath)
	if err != nil {
		return nil, eris.Wrap(err, "import reference codes")
	}
	if err := st.ReplaceReferenceCodes(ctx, codes); err != nil {
		return nil, eris.Wrap(err, "store reference codes")
	}
	zap.L().Info("reference codes loaded", zap.Int("count", len(codes)))
	return model.NewReferenceRegistry(codes), nil
}

func init() {
	importCmd.Flags().Bool("strict", false, "abort on the first invalid row instead of skipping")
	importCmd.Flags().Bool("refs", true, "load reference codes from the configured path alongside the dataset")
	rootCmd.AddCommand(importCmd)
}
