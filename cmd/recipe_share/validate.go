package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jonathan/recipe-share/internal/schemas"
	rootschemas "github.com/jonathan/recipe-share/schemas"
)

var validateCmd = &cobra.Command{
	Use:   "validate <record.json>...",
	Short: "Validate saved recipe records against the recipe record schema",
	Long:  "Validate JSON files, such as those written by extract --out, against the built-in recipe record schema or the schema given with --schema.",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runValidate,
}

var validateSchema string

func init() {
	validateCmd.Flags().StringVar(&validateSchema, "schema", "", "Validate against this JSON Schema file instead of the built-in one")
	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	invalid := 0
	for _, path := range args {
		if err := validateFile(path); err != nil {
			invalid++
			fmt.Fprintf(out, "FAIL %s: %v\n", path, err)
			continue
		}
		fmt.Fprintf(out, "OK   %s\n", path)
	}
	if invalid > 0 {
		return fmt.Errorf("%d of %d files failed validation", invalid, len(args))
	}
	return nil
}

func validateFile(path string) error {
	if validateSchema != "" {
		return schemas.ValidateJSON(validateSchema, path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}
	return schemas.ValidateJSONString(string(rootschemas.RecipeRecord), string(data))
}
