package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jonathan/recipe-share/internal/extract"
	"github.com/jonathan/recipe-share/internal/schemas"
)

var extractCmd = &cobra.Command{
	Use:   "extract <recipe-url>",
	Short: "Extract one recipe page into a schema-validated JSON record",
	Args:  cobra.ExactArgs(1),
	RunE:  runExtract,
}

var (
	extractOut        string
	extractNoValidate bool
)

func init() {
	extractCmd.Flags().StringVarP(&extractOut, "out", "o", "", "Write the record to this file instead of stdout")
	extractCmd.Flags().BoolVar(&extractNoValidate, "no-validate", false, "Skip JSON Schema validation")
	rootCmd.AddCommand(extractCmd)
}

func runExtract(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(os.Getenv)
	if err != nil {
		return err
	}
	log, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	ctx := contextOrBackground(cmd)
	fetcher, closeFetcher, err := newFetcher(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeFetcher()

	doc, err := fetcher.Fetch(ctx, args[0])
	if err != nil {
		return err
	}
	record, err := extract.Recipe(doc)
	if err != nil {
		return err
	}
	record.SourceURL = args[0]

	if !extractNoValidate {
		if err := schemas.ValidateRecipeRecord(record); err != nil {
			return fmt.Errorf("extracted record is invalid: %w", err)
		}
	}

	data, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal record: %w", err)
	}
	data = append(data, '\n')

	if extractOut == "" {
		_, err = cmd.OutOrStdout().Write(data)
		return err
	}
	if err := os.WriteFile(extractOut, data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", extractOut, err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", extractOut)
	return nil
}
