package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"tarn/internal/snapshot"
)

var snapshotCmd = &cobra.Command{
	Use:   "snapshot [flags] <file.tsig>",
	Short: "Summarize a signature snapshot",
	Long:  `Snapshot decodes a .tsig file header and prints what it publishes: module name, schema, declaration and node counts, and the source files it was produced from`,
	Args:  cobra.ExactArgs(1),
	RunE:  runSnapshot,
}

func init() {
	snapshotCmd.Flags().Bool("json", false, "emit the summary as JSON")
}

func runSnapshot(cmd *cobra.Command, args []string) error {
	asJSON, err := cmd.Flags().GetBool("json")
	if err != nil {
		return fmt.Errorf("failed to get json flag: %w", err)
	}

	s, err := snapshot.Inspect(args[0])
	if err != nil {
		return fmt.Errorf("failed to inspect snapshot: %w", err)
	}

	out := cmd.OutOrStdout()
	if asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(s)
	}

	fmt.Fprintf(out, "%s\n", s.Path)
	fmt.Fprintf(out, "  module:      %s (schema v%d)\n", s.Module, s.Schema)
	fmt.Fprintf(out, "  classes:     %d\n", s.Classes)
	fmt.Fprintf(out, "  typedefs:    %d\n", s.Typedefs)
	fmt.Fprintf(out, "  type params: %d\n", s.TypeParams)
	fmt.Fprintf(out, "  type nodes:  %d\n", s.TypeNodes)
	fmt.Fprintf(out, "  strings:     %d\n", s.Strings)
	if len(s.Files) > 0 {
		fmt.Fprintln(out, "  files:")
		for _, f := range s.Files {
			fmt.Fprintf(out, "    %s\n", f)
		}
	}
	return nil
}
