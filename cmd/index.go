package cmd

import (
	"bslnav/internal/analyzer"
	"bslnav/internal/config"
	"bslnav/internal/embeddings"
	"bslnav/internal/indexer"
	"bslnav/internal/models"
	"bslnav/internal/parser"
	"bslnav/internal/qdrant"
	"bslnav/internal/render"
	"bslnav/internal/utils"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
)

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Index every procedure and function of a project into the vector database",
	RunE: func(cmd *cobra.Command, args []string) error {
		dir, _ := cmd.Flags().GetString("dir")

		locator, err := config.Locator()
		if err != nil {
			return err
		}
		qc, err := qdrant.NewClient()
		if err != nil {
			return err
		}
		defer qc.Close()

		idx := indexer.NewIndexer(qc, embeddings.NewClient(), parser.NewParserFactory(locator), logger)

		fmt.Printf("Indexing project at: %s\n", dir)
		return idx.IndexProject(cmd.Context(), dir)
	},
}

var searchCmd = &cobra.Command{
	Use:   "search",
	Short: "Semantic search over indexed methods",
	RunE: func(cmd *cobra.Command, args []string) error {
		q, _ := cmd.Flags().GetString("q")
		topK, _ := cmd.Flags().GetInt("top_k")
		dir, _ := cmd.Flags().GetString("dir")
		if q == "" {
			return errors.New("--q is required")
		}

		collection, err := projectCollection(dir)
		if err != nil {
			return err
		}
		qc, err := qdrant.NewClient()
		if err != nil {
			return err
		}
		defer qc.Close()

		az := analyzer.NewAnalyzer(qc, embeddings.NewClient(), logger)
		results, err := az.Search(cmd.Context(), collection, q, topK, queryFilterFromFlags(cmd))
		if err != nil {
			return err
		}
		return printResults(cmd.OutOrStdout(), cmd, results)
	},
}

var similarCmd = &cobra.Command{
	Use:   "similar",
	Short: "Find indexed methods similar to the function under a cursor",
	RunE: func(cmd *cobra.Command, args []string) error {
		topK, _ := cmd.Flags().GetInt("top_k")
		dir, _ := cmd.Flags().GetString("dir")

		d, err := requireFunction(cmd)
		if err != nil {
			return err
		}
		collection, err := projectCollection(dir)
		if err != nil {
			return err
		}
		qc, err := qdrant.NewClient()
		if err != nil {
			return err
		}
		defer qc.Close()

		fmt.Fprintf(os.Stderr, "→ Methods similar to %s\n", d.QualifiedName())
		az := analyzer.NewAnalyzer(qc, embeddings.NewClient(), logger)
		results, err := az.FindSimilar(cmd.Context(), collection, d, topK, queryFilterFromFlags(cmd))
		if err != nil {
			return err
		}
		return printResults(cmd.OutOrStdout(), cmd, results)
	},
}

var clearIndexCmd = &cobra.Command{
	Use:   "clear-index",
	Short: "Delete the Qdrant collection and local state of a project index",
	RunE: func(cmd *cobra.Command, args []string) error {
		dir, _ := cmd.Flags().GetString("dir")
		projectID, err := utils.ComputeProjectID(dir)
		if err != nil {
			return fmt.Errorf("failed to compute project id: %w", err)
		}
		collection := indexer.CollectionName(projectID)

		qc, err := qdrant.NewClient()
		if err != nil {
			return err
		}
		defer qc.Close()

		fmt.Printf("Deleting collection: %s\n", collection)
		if err := qc.DeleteCollection(cmd.Context(), collection); err != nil {
			return err
		}
		if err := indexer.ClearProjectState(projectID); err != nil {
			return fmt.Errorf("failed to clear local index state: %w", err)
		}
		fmt.Println("✓ Collection deleted")
		return nil
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the collection and number of indexed methods of a project",
	RunE: func(cmd *cobra.Command, args []string) error {
		dir, _ := cmd.Flags().GetString("dir")
		collection, err := projectCollection(dir)
		if err != nil {
			return err
		}
		qc, err := qdrant.NewClient()
		if err != nil {
			return err
		}
		defer qc.Close()

		fmt.Printf("Checking collection: %s\n", collection)
		count, err := qc.Count(cmd.Context(), collection)
		if err != nil {
			fmt.Fprintf(os.Stderr, "✗ Collection is not available: %v\n", err)
			return err
		}
		fmt.Printf("✓ %d methods indexed\n", count)
		return nil
	},
}

func projectCollection(dir string) (string, error) {
	projectID, err := utils.ComputeProjectID(dir)
	if err != nil {
		return "", fmt.Errorf("failed to compute project id: %w", err)
	}
	return indexer.CollectionName(projectID), nil
}

func addFilterFlags(c *cobra.Command) {
	c.Flags().StringSlice("kind", nil, "Restrict to kinds (procedure, function)")
	c.Flags().StringSlice("configuration", nil, "Restrict to configuration object kinds (e.g. CommonModules)")
	c.Flags().StringSlice("module-prefix", nil, "Restrict to modules with these name prefixes")
	c.Flags().Bool("export-only", false, "Only exported methods")
	c.Flags().Int("min-lines", 0, "Minimum method length in lines")
	c.Flags().Int("max-lines", 0, "Maximum method length in lines")
}

func queryFilterFromFlags(c *cobra.Command) models.QueryFilter {
	var f models.QueryFilter
	f.Kinds, _ = c.Flags().GetStringSlice("kind")
	f.Configurations, _ = c.Flags().GetStringSlice("configuration")
	f.ModulePrefix, _ = c.Flags().GetStringSlice("module-prefix")
	f.ExportOnly, _ = c.Flags().GetBool("export-only")
	f.MinLines, _ = c.Flags().GetInt("min-lines")
	f.MaxLines, _ = c.Flags().GetInt("max-lines")
	return f
}

func printResults(w io.Writer, c *cobra.Command, results []models.SearchResult) error {
	if asJSON, _ := c.Flags().GetBool("json"); asJSON {
		text, err := render.JSON(results)
		if err != nil {
			return err
		}
		fmt.Fprintln(w, text)
		return nil
	}
	fmt.Fprint(w, render.SearchResults(results))
	return nil
}

func init() {
	indexCmd.Flags().String("dir", ".", "Project root directory")

	searchCmd.Flags().String("q", "", "Natural language or code query")
	searchCmd.Flags().Int("top_k", analyzer.DefaultTopK, "Maximum number of results to return")
	searchCmd.Flags().String("dir", ".", "Project root directory (must match the directory passed to 'bslnav index')")
	searchCmd.Flags().Bool("json", false, "Print results as JSON")
	addFilterFlags(searchCmd)

	addLocationFlags(similarCmd)
	similarCmd.Flags().Int("top_k", analyzer.DefaultTopK, "Maximum number of results to return")
	similarCmd.Flags().String("dir", ".", "Project root directory (must match the directory passed to 'bslnav index')")
	similarCmd.Flags().Bool("json", false, "Print results as JSON")
	addFilterFlags(similarCmd)

	clearIndexCmd.Flags().String("dir", ".", "Project root directory to clear from Qdrant")
	statusCmd.Flags().String("dir", ".", "Project root directory")

	rootCmd.AddCommand(indexCmd)
	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(similarCmd)
	rootCmd.AddCommand(clearIndexCmd)
	rootCmd.AddCommand(statusCmd)
}
