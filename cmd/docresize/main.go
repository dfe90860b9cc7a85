package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var version = "0.1.0-dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "docresize",
		Short: "Resize every image in a Google Doc to one width",
		Long: `docresize normalizes image widths in a Google Doc. Images are addressed
by offset, so mutations are ordered back to front and submitted in small
retryable batches.

The outline and plan commands work offline on a local snapshot (.json
documents.get output, .docx, .md or .html). The resize command acts on a
live document using the access token in GOOGLE_ACCESS_TOKEN.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().String("log-level", "warn", "Log level: debug|info|warn|error")

	outlineCmd := &cobra.Command{
		Use:   "outline <file>",
		Short: "Print the heading outline and image inventory of a snapshot",
		Args:  cobra.ExactArgs(1),
		RunE:  runOutline,
	}
	outlineCmd.Flags().Bool("json", false, "Print the structure as JSON")

	planCmd := &cobra.Command{
		Use:   "plan <file>",
		Short: "Dry-run a resize against a local snapshot",
		Args:  cobra.ExactArgs(1),
		RunE:  runPlan,
	}
	addSelectionFlags(planCmd)
	planCmd.Flags().String("strategy", "delete_insert", "Mutation strategy: delete_insert|property")
	planCmd.Flags().Int("chunk-size", 0, "Actions per batch (default: preset)")
	planCmd.Flags().String("preset", "", "Chunking preset: micro|standard|bulk (default: CHUNK_PRESET)")
	planCmd.Flags().Bool("json", false, "Print the plan as JSON")

	resizeCmd := &cobra.Command{
		Use:   "resize <docId>",
		Short: "Resize images in a live Google Doc",
		Args:  cobra.ExactArgs(1),
		RunE:  runResize,
	}
	addSelectionFlags(resizeCmd)
	resizeCmd.Flags().String("preset", "", "Chunking preset: micro|standard|bulk (default: CHUNK_PRESET)")
	resizeCmd.Flags().Int("chunk-size", 0, "Actions per batch (default: preset)")
	resizeCmd.Flags().Int("max-retries", -1, "Retries per batch after a transient error (default: preset)")
	resizeCmd.Flags().Bool("verify", false, "Re-read the document afterwards and report images off target")
	resizeCmd.Flags().Bool("json", false, "Print the result as JSON")

	rootCmd.AddCommand(outlineCmd, planCmd, resizeCmd)
	return rootCmd
}

func addSelectionFlags(cmd *cobra.Command) {
	cmd.Flags().Float64("width-cm", 0, "Target width in centimeters (required)")
	cmd.Flags().StringSlice("ids", nil, "Only resize these image ids")
	cmd.Flags().StringSlice("scope", nil, "Only resize images in these offset ranges (start:end)")
	_ = cmd.MarkFlagRequired("width-cm")
}
