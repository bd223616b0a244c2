package cmd

import (
	"bslnav/internal/config"
	"bslnav/internal/logging"
	"bslnav/internal/selection"
	"bslnav/internal/workspace"
	"errors"
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var logger = zerolog.Nop()

var rootCmd = &cobra.Command{
	Use:   "bslnav",
	Short: "Navigation and analysis tool for 1C:Enterprise (BSL) code",
	Long: "A CLI tool that finds the procedure or function under a cursor in a BSL module, " +
		"asks the dependency analysis backend for its call graph and searches indexed methods",
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		// Load shared config (~/.bslnav/config.json) so BSLNAV_*/OPENAI_*/QDRANT_*
		// from that file are visible as env vars.
		if err := config.LoadFromUserConfig(); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		}

		cfg := logging.DefaultConfig()
		cfg.Level, _ = cmd.Flags().GetString("log-level")
		cfg.Pretty, _ = cmd.Flags().GetBool("log-pretty")
		logger = logging.New(cfg)
	},
}

// addLocationFlags registers the flags that address a cursor in a module.
func addLocationFlags(c *cobra.Command) {
	c.Flags().String("file", "", "Module file (.bsl)")
	c.Flags().Int("offset", 0, "Zero-based character offset of the cursor")
	c.Flags().Int("line", 0, "1-based cursor line (used when --offset is not given)")
	c.Flags().Int("column", 1, "1-based cursor column")
	c.Flags().String("project", "", "Project root (discovered from the file when empty)")
	_ = c.MarkFlagRequired("file")
}

func locationFromFlags(c *cobra.Command) workspace.Location {
	loc := workspace.Location{}
	loc.File, _ = c.Flags().GetString("file")
	loc.Root, _ = c.Flags().GetString("project")
	loc.Line, _ = c.Flags().GetInt("line")
	loc.Column, _ = c.Flags().GetInt("column")
	if c.Flags().Changed("offset") {
		offset, _ := c.Flags().GetInt("offset")
		loc.Offset = &offset
	}
	return loc
}

func newResolver() (*selection.Resolver, error) {
	locator, err := config.Locator()
	if err != nil {
		return nil, err
	}
	return selection.NewResolver(locator, logger), nil
}

// resolveFromFlags locates the function under the cursor given by the
// location flags. An incomplete descriptor is returned together with its
// error so callers can still show what was found.
func resolveFromFlags(c *cobra.Command) (*selection.Descriptor, error) {
	resolver, err := newResolver()
	if err != nil {
		return nil, err
	}
	editor, offset, err := locationFromFlags(c).Open()
	if err != nil {
		return nil, err
	}
	return resolver.Resolve(selection.TextCursor{Offset: offset}, editor)
}

// requireFunction resolves the cursor and fails unless both the module and
// the function are known.
func requireFunction(c *cobra.Command) (*selection.Descriptor, error) {
	d, err := resolveFromFlags(c)
	if err != nil {
		return nil, couldNotDetermine(err)
	}
	return d, nil
}

func couldNotDetermine(err error) error {
	if errors.Is(err, selection.ErrIncompleteDescriptor) {
		return fmt.Errorf("could not determine function info: module name is unknown (pass --project)")
	}
	return fmt.Errorf("could not determine function info: %w", err)
}

func init() {
	rootCmd.PersistentFlags().String("log-level", "warn", "Log level (trace, debug, info, warn, error)")
	rootCmd.PersistentFlags().Bool("log-pretty", true, "Human-readable log output on stderr")
}

func Execute() error {
	return rootCmd.Execute()
}
