package cmd

import (
	"bslnav/internal/backend"
	"bslnav/internal/llm"
	"bslnav/internal/render"
	"bslnav/internal/selection"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
)

var locateCmd = &cobra.Command{
	Use:   "locate",
	Short: "Show the procedure or function enclosing a cursor position",
	RunE: func(cmd *cobra.Command, args []string) error {
		asJSON, _ := cmd.Flags().GetBool("json")
		withBody, _ := cmd.Flags().GetBool("body")

		d, err := resolveFromFlags(cmd)
		if d != nil {
			if perr := printDescriptor(cmd.OutOrStdout(), d, asJSON, withBody); perr != nil {
				return perr
			}
		}
		if err != nil {
			return couldNotDetermine(err)
		}
		return nil
	},
}

var resolveCmd = &cobra.Command{
	Use:   "resolve",
	Short: "Resolve a model element given as JSON to a function descriptor",
	Long: "Resolve a model element given as a JSON object. The element is read like an IDE " +
		"model object: name/methodName for the function, source/text/body for its text and " +
		"module/owner/parent/container objects for the owning module. Use --element - to read stdin.",
	RunE: func(cmd *cobra.Command, args []string) error {
		raw, _ := cmd.Flags().GetString("element")
		asJSON, _ := cmd.Flags().GetBool("json")

		if raw == "-" {
			data, err := io.ReadAll(cmd.InOrStdin())
			if err != nil {
				return err
			}
			raw = string(data)
		}
		var element map[string]any
		if err := json.Unmarshal([]byte(raw), &element); err != nil {
			return fmt.Errorf("element must be a JSON object: %w", err)
		}

		resolver, err := newResolver()
		if err != nil {
			return err
		}
		d, err := resolver.Resolve(selection.Structured{Elements: []any{element}}, nil)
		if err != nil {
			return couldNotDetermine(err)
		}
		return printDescriptor(cmd.OutOrStdout(), d, asJSON, true)
	},
}

var callGraphCmd = &cobra.Command{
	Use:   "callgraph",
	Short: "Show callers and callees of the function under a cursor",
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := requireFunction(cmd)
		if err != nil {
			return err
		}
		resp, err := analyzeDependencies(cmd, d)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), render.CallGraph(d.FunctionName, resp))
		return nil
	},
}

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Send the function under a cursor to the dependency analysis backend",
	RunE: func(cmd *cobra.Command, args []string) error {
		withAI, _ := cmd.Flags().GetBool("ai")

		d, err := requireFunction(cmd)
		if err != nil {
			return err
		}
		resp, err := analyzeDependencies(cmd, d)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintln(out, render.Analysis(d.FunctionName, resp))

		if !withAI {
			return nil
		}
		fmt.Fprintln(os.Stderr, "→ Asking the model for a review...")
		review, err := llm.NewClient().AnalyzeFunction(cmd.Context(), d, resp.Result)
		if err != nil {
			return fmt.Errorf("AI analysis failed: %w", err)
		}
		fmt.Fprintf(out, "\n%s\n", review)
		return nil
	},
}

func analyzeDependencies(cmd *cobra.Command, d *selection.Descriptor) (*backend.Response, error) {
	client := backend.NewClientFromEnv(logger)
	fmt.Fprintf(os.Stderr, "→ Analyzing %s via %s\n", d.QualifiedName(), client.BaseURL())

	resp, err := client.AnalyzeDependencies(cmd.Context(), d.ModuleName, d.FunctionName)
	if err != nil {
		fmt.Fprintf(os.Stderr, "✗ Backend request failed\n")
		return nil, err
	}
	return resp, nil
}

func printDescriptor(w io.Writer, d *selection.Descriptor, asJSON, withBody bool) error {
	if asJSON {
		out := *d
		if !withBody {
			out.FunctionBody = ""
		}
		text, err := render.JSON(out)
		if err != nil {
			return err
		}
		fmt.Fprintln(w, text)
		return nil
	}
	fmt.Fprint(w, render.Descriptor(d, withBody))
	if !d.Usable() {
		fmt.Fprintln(w, "⚠ Module name could not be inferred")
	}
	return nil
}

func init() {
	addLocationFlags(locateCmd)
	locateCmd.Flags().Bool("json", false, "Print the descriptor as JSON")
	locateCmd.Flags().Bool("body", false, "Include the function text")

	resolveCmd.Flags().String("element", "", "Element as a JSON object, or - for stdin")
	resolveCmd.Flags().Bool("json", false, "Print the descriptor as JSON")
	_ = resolveCmd.MarkFlagRequired("element")

	addLocationFlags(callGraphCmd)

	addLocationFlags(analyzeCmd)
	analyzeCmd.Flags().Bool("ai", false, "Also ask the model for a review of the function")

	rootCmd.AddCommand(locateCmd)
	rootCmd.AddCommand(resolveCmd)
	rootCmd.AddCommand(callGraphCmd)
	rootCmd.AddCommand(analyzeCmd)
}
