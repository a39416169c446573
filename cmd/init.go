package main

import (
	"fmt"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/addis-analytics/fidata/internal/config"
)

var initForce bool

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a starter config.yaml and create the database",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		if _, err := os.Stat("config.yaml"); err == nil && !initForce {
			return eris.New("config.yaml already exists (use --force to overwrite)")
		}

		starter := config.Config{
			Store: config.StoreConfig{
				Driver:      cfg.Store.Driver,
				DatabaseURL: cfg.Store.DatabaseURL,
			},
			Dataset: cfg.Dataset,
			Fetch:   cfg.Fetch,
			Verify:  cfg.Verify,
			Anthropic: config.AnthropicConfig{
				// API key comes from FIDATA_ANTHROPIC_KEY, never the file.
				Model:     cfg.Anthropic.Model,
				MaxTokens: cfg.Anthropic.MaxTokens,
			},
			Server: cfg.Server,
			Log:    cfg.Log,
		}

		data, err := yaml.Marshal(&starter)
		if err != nil {
			return eris.Wrap(err, "marshal starter config")
		}
		if err := os.WriteFile("config.yaml", data, 0644); err != nil {
			return eris.Wrap(err, "write config.yaml")
		}

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		fmt.Println("Wrote config.yaml and initialized the store.")
		return nil
	},
}

func init() {
	initCmd.Flags().BoolVar(&initForce, "force", false, "overwrite an existing config.yaml")
	rootCmd.AddCommand(initCmd)
}
