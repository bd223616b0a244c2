package cmd

import (
	"bslnav/internal/analyzer"
	"bslnav/internal/backend"
	"bslnav/internal/embeddings"
	"bslnav/internal/mcp"
	"bslnav/internal/qdrant"

	"github.com/spf13/cobra"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start MCP server over stdio",
	RunE: func(cmd *cobra.Command, args []string) error {
		dir, _ := cmd.Flags().GetString("dir")

		resolver, err := newResolver()
		if err != nil {
			return err
		}
		collection, err := projectCollection(dir)
		if err != nil {
			return err
		}

		// Search tools stay registered without Qdrant and report the failure
		// per call.
		var index mcp.MethodIndex
		if qc, err := qdrant.NewClient(); err != nil {
			logger.Warn().Err(err).Msg("Qdrant is not available, method search is disabled")
		} else {
			defer qc.Close()
			index = analyzer.NewAnalyzer(qc, embeddings.NewClient(), logger)
		}

		server, err := mcp.New(mcp.Config{
			Name:       "bslnav",
			Version:    Version,
			Dir:        dir,
			Collection: collection,
		}, resolver, backend.NewClientFromEnv(logger), index, logger)
		if err != nil {
			return err
		}
		return server.ServeStdio()
	},
}

func init() {
	mcpCmd.Flags().String("dir", ".", "Project root directory (relative file paths and searches are scoped to it)")
	rootCmd.AddCommand(mcpCmd)
}
