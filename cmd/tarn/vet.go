package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"tarn/internal/diagfmt"
	"tarn/internal/driver"
	"tarn/internal/project"
)

var vetCmd = &cobra.Command{
	Use:   "vet [flags] [snapshots...]",
	Short: "Check variance markers against published signatures",
	Long: `Vet loads signature snapshots (*.tsig), infers how every generic type
parameter is actually used and reports declared markers that do not match.
Paths may name snapshot files or directories to scan; with no paths the
nearest tarn.toml supplies them.`,
	Args: cobra.ArbitraryArgs,
	RunE: runVet,
}

// init registers CLI flags for the vet command used by runVet.
func init() {
	vetCmd.Flags().String("format", "pretty", "output format (pretty|json|short)")
	vetCmd.Flags().Int("jobs", 0, "max parallel declaration checks (0=auto)")
	vetCmd.Flags().String("ui", "off", "progress UI (auto|on|off)")
	vetCmd.Flags().Bool("with-notes", false, "include diagnostic notes in output")
	vetCmd.Flags().Bool("suggest", false, "include fix suggestions in output")
	vetCmd.Flags().Bool("fullpath", false, "emit absolute file paths in output")
	vetCmd.Flags().Bool("stats", false, "print registry and dependency statistics")
	vetCmd.Flags().String("explain-deps", "", "list declarations whose check depends on `NAME`")
	vetCmd.Flags().String("task", "", "intrinsic awaitable wrapper name (default Task)")
	vetCmd.Flags().Bool("attach-sources", false, "read source files for diagnostic excerpts")
}

// runVet executes the "vet" command: it merges manifest defaults with flags,
// discovers snapshot files, runs the parallel checker and renders the
// resulting diagnostics. Exits with a non-zero status when the bag contains
// errors.
func runVet(cmd *cobra.Command, args []string) error {
	format, err := cmd.Flags().GetString("format")
	if err != nil {
		return fmt.Errorf("failed to get format flag: %w", err)
	}
	jobs, err := cmd.Flags().GetInt("jobs")
	if err != nil {
		return fmt.Errorf("failed to get jobs flag: %w", err)
	}
	uiFlag, err := cmd.Flags().GetString("ui")
	if err != nil {
		return fmt.Errorf("failed to get ui flag: %w", err)
	}
	withNotes, err := cmd.Flags().GetBool("with-notes")
	if err != nil {
		return fmt.Errorf("failed to get with-notes flag: %w", err)
	}
	suggest, err := cmd.Flags().GetBool("suggest")
	if err != nil {
		return fmt.Errorf("failed to get suggest flag: %w", err)
	}
	fullPath, err := cmd.Flags().GetBool("fullpath")
	if err != nil {
		return fmt.Errorf("failed to get fullpath flag: %w", err)
	}
	showStats, err := cmd.Flags().GetBool("stats")
	if err != nil {
		return fmt.Errorf("failed to get stats flag: %w", err)
	}
	explainDeps, err := cmd.Flags().GetString("explain-deps")
	if err != nil {
		return fmt.Errorf("failed to get explain-deps flag: %w", err)
	}
	taskClass, err := cmd.Flags().GetString("task")
	if err != nil {
		return fmt.Errorf("failed to get task flag: %w", err)
	}
	attachSources, err := cmd.Flags().GetBool("attach-sources")
	if err != nil {
		return fmt.Errorf("failed to get attach-sources flag: %w", err)
	}
	maxDiagnostics, err := cmd.Root().PersistentFlags().GetInt("max-diagnostics")
	if err != nil {
		return fmt.Errorf("failed to get max-diagnostics flag: %w", err)
	}
	showTimings, err := cmd.Root().PersistentFlags().GetBool("timings")
	if err != nil {
		return fmt.Errorf("failed to get timings flag: %w", err)
	}

	cleanup, err := setupTracing(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	stopProfiling, err := setupProfiling(cmd)
	if err != nil {
		return err
	}
	defer stopProfiling()

	// Манифест подставляет значения только там, где флаг не трогали.
	manifest, haveManifest, err := project.FromDir(".")
	if err != nil {
		return err
	}
	paths := args
	if haveManifest {
		if len(paths) == 0 {
			paths = manifest.SnapshotPaths()
		}
		if !cmd.Flags().Changed("format") && manifest.Vet.Format != "" {
			format = manifest.Vet.Format
		}
		if !cmd.Flags().Changed("jobs") && manifest.Vet.Jobs > 0 {
			jobs = manifest.Vet.Jobs
		}
		if !cmd.Flags().Changed("task") && manifest.Vet.Task != "" {
			taskClass = manifest.Vet.Task
		}
		if !cmd.Flags().Changed("attach-sources") && manifest.Vet.AttachSources {
			attachSources = true
		}
		if !cmd.Root().PersistentFlags().Changed("max-diagnostics") && manifest.Vet.MaxDiagnostics > 0 {
			maxDiagnostics = manifest.Vet.MaxDiagnostics
		}
	}

	switch format {
	case "pretty", "json", "short":
	default:
		return fmt.Errorf("unknown format: %s", format)
	}
	mode, err := readUIMode(uiFlag)
	if err != nil {
		return err
	}

	files, err := driver.DiscoverSnapshots(paths)
	if err != nil {
		return fmt.Errorf("failed to discover snapshots: %w", err)
	}

	opts := driver.Options{
		Jobs:           jobs,
		MaxDiagnostics: maxDiagnostics,
		TaskClass:      taskClass,
		AttachSources:  attachSources,
		EnableTimings:  showTimings,
	}

	var result *driver.Result
	if shouldUseTUI(mode) {
		title := "tarn vet"
		if haveManifest && manifest.Project.Name != "" {
			title = "tarn vet: " + manifest.Project.Name
		}
		result, err = runVetWithUI(cmd.Context(), title, files, opts)
	} else {
		result, err = driver.Vet(cmd.Context(), files, opts)
	}
	if err != nil {
		return fmt.Errorf("vet failed: %w", err)
	}

	colorFlag, err := cmd.Root().PersistentFlags().GetString("color")
	if err != nil {
		return fmt.Errorf("failed to get color flag: %w", err)
	}
	useColor := colorFlag == "on" || (colorFlag == "auto" && isTerminal(os.Stdout))
	pathMode := diagfmt.PathModeAuto
	if fullPath {
		pathMode = diagfmt.PathModeAbsolute
	}

	switch format {
	case "pretty":
		diagfmt.Pretty(os.Stdout, result.Bag, result.FileSet, diagfmt.PrettyOpts{
			Color:     useColor,
			Context:   2,
			PathMode:  pathMode,
			ShowNotes: withNotes,
			ShowFixes: suggest,
		})
	case "json":
		jsonOpts := diagfmt.JSONOpts{
			IncludePositions: true,
			PathMode:         pathMode,
			IncludeNotes:     withNotes,
			IncludeFixes:     suggest,
		}
		if err := diagfmt.JSON(os.Stdout, result.Bag, result.FileSet, jsonOpts); err != nil {
			return fmt.Errorf("failed to format diagnostics: %w", err)
		}
	case "short":
		diagfmt.Short(os.Stdout, result.Bag, result.FileSet, withNotes)
	}

	if explainDeps != "" {
		printDependents(os.Stdout, result, explainDeps)
	}
	if showStats {
		printVetStats(os.Stdout, result)
	}

	if result.Bag.HasErrors() {
		// Suppress cobra usage output on diagnostic errors
		cmd.SilenceUsage = true
		cmd.SilenceErrors = true
		return fmt.Errorf("") // Silent error - diagnostics already printed
	}
	return nil
}
