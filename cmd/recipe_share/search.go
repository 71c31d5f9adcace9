package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jonathan/recipe-share/internal/crawling"
	"github.com/jonathan/recipe-share/internal/types"
)

var searchCmd = &cobra.Command{
	Use:   "search [ingredient...]",
	Short: "Crawl the catalog once and print recipes ranked for the given ingredients",
	Long: `Crawl every catalog category, score each recipe against the ingredients and print the ranked list.
Ingredients are given as arguments, or one per line on stdin when --stdin is set.`,
	RunE: runSearch,
}

var (
	searchJSON  bool
	searchLimit int
	searchStdin bool
)

func init() {
	searchCmd.Flags().BoolVar(&searchJSON, "json", false, "Print results as JSON")
	searchCmd.Flags().IntVarP(&searchLimit, "limit", "n", 0, "Print at most n results (0 prints all)")
	searchCmd.Flags().BoolVar(&searchStdin, "stdin", false, "Read ingredients from stdin, one per line")
	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	query := types.NewSearchQuery(args)
	if searchStdin {
		raw, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return fmt.Errorf("failed to read stdin: %w", err)
		}
		query = types.ParseSearchQuery(string(raw))
	}
	if query.IsEmpty() {
		return fmt.Errorf("at least one ingredient is required")
	}

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

	result, err := newCrawler(fetcher, cfg, log).Crawl(ctx, query)
	if crawling.IsNoCandidates(err) {
		fmt.Fprintln(cmd.OutOrStdout(), "No recipes matched the given ingredients.")
		return nil
	}
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	records := result.Records
	if searchLimit > 0 && len(records) > searchLimit {
		records = records[:searchLimit]
	}

	if searchJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(records)
	}
	return printRanked(cmd.OutOrStdout(), records)
}

func printRanked(w io.Writer, results []types.RankedResult) error {
	for i, r := range results {
		if _, err := fmt.Fprintf(w, "%d. %s (score %d)\n", i+1, r.Title, r.MatchScore); err != nil {
			return err
		}
		if r.SourceURL != "" {
			fmt.Fprintf(w, "   %s\n", r.SourceURL)
		}
		fmt.Fprintf(w, "   %s\n", strings.Join(r.Ingredients, "; "))
	}
	return nil
}
