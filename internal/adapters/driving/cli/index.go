package cli

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/maintenance-agent/internal/core/domain"
)

var (
	indexSearchTopK int
	indexJSON       bool
)

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Manage the manual retrieval index",
}

var indexBuildCmd = &cobra.Command{
	Use:   "build",
	Short: "Rebuild the index from the manual directory",
	Long: `Re-reads every manual, re-embeds all chunks and replaces the persisted
snapshot. A running server keeps its loaded index until it is restarted or
asked to rebuild.`,
	Args: cobra.NoArgs,
	RunE: runIndexBuild,
}

var indexStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the index as the server would load it",
	Args:  cobra.NoArgs,
	RunE:  runIndexStatus,
}

var indexSearchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Search the manuals",
	Args:  cobra.ExactArgs(1),
	RunE:  runIndexSearch,
}

func init() {
	indexCmd.PersistentFlags().BoolVar(&indexJSON, "json", false, "output as JSON")
	indexSearchCmd.Flags().IntVarP(&indexSearchTopK, "top-k", "k", 3, "number of passages to return")

	indexCmd.AddCommand(indexBuildCmd, indexStatusCmd, indexSearchCmd)
	rootCmd.AddCommand(indexCmd)
}

func runIndexBuild(cmd *cobra.Command, _ []string) error {
	app, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer app.Close()

	status, err := app.Index.Rebuild(cmd.Context())
	if err != nil {
		return fmt.Errorf("rebuild failed: %w", err)
	}
	return outputIndexStatus(cmd, *status)
}

func runIndexStatus(cmd *cobra.Command, _ []string) error {
	app, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer app.Close()

	if err := loadIndex(cmd.Context(), app); err != nil {
		return err
	}
	return outputIndexStatus(cmd, app.Index.Status())
}

func runIndexSearch(cmd *cobra.Command, args []string) error {
	app, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer app.Close()

	if err := loadIndex(cmd.Context(), app); err != nil {
		return err
	}

	results, err := app.Index.Search(cmd.Context(), args[0], indexSearchTopK)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	if indexJSON {
		return outputJSON(cmd, results)
	}
	if len(results) == 0 {
		cmd.Println("No results found.")
		return nil
	}

	cmd.Println("Results:")
	cmd.Println()
	for i, r := range results {
		cmd.Printf("  [%d] %s p.%d (%.3f)\n", i+1, r.ManualName, r.Page, r.Score)
		cmd.Printf("      %s\n", strings.Join(strings.Fields(r.Snippet), " "))
		cmd.Println()
	}
	return nil
}

func outputIndexStatus(cmd *cobra.Command, status domain.IndexStatus) error {
	if indexJSON {
		return outputJSON(cmd, status)
	}
	if status.Empty {
		cmd.Println("Index is empty.")
		return nil
	}

	cmd.Printf("Chunks:     %d\n", status.Chunks)
	cmd.Printf("Documents:  %d\n", status.Documents)
	cmd.Printf("Dimensions: %d\n", status.Dimensions)
	cmd.Printf("Model:      %s\n", status.Model)
	if status.BuiltAt != nil {
		cmd.Printf("Built at:   %s\n", status.BuiltAt.UTC().Format(time.RFC3339))
	}
	return nil
}

func outputJSON(cmd *cobra.Command, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal output: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(data))
	return nil
}
