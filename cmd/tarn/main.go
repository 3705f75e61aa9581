package main

import (
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"tarn/internal/driver"
	"tarn/internal/version"
)

var rootCmd = &cobra.Command{
	Use:   "tarn",
	Short: "Tarn signature vet tool",
	Long:  `Tarn checks declared variance markers of generic classes and typedefs against the way their signatures actually use them`,
}

// main initializes the CLI by setting the command version, registering
// subcommands and persistent flags, and then executes the root command.
// If command execution returns an error, the process exits with status code 1.
func main() {
	// Устанавливаем версию для автоматического флага --version
	rootCmd.Version = version.Version

	// Добавляем команды
	rootCmd.AddCommand(vetCmd)
	rootCmd.AddCommand(snapshotCmd)
	rootCmd.AddCommand(versionCmd)

	// Глобальные флаги
	rootCmd.PersistentFlags().String("color", "auto", "colorize output (auto|on|off)")
	rootCmd.PersistentFlags().Bool("timings", false, "show timing information")
	rootCmd.PersistentFlags().Int("max-diagnostics", driver.DefaultMaxDiagnostics, "maximum number of diagnostics to show")
	rootCmd.PersistentFlags().String("trace", "", "trace output path ('-' for stderr)")
	rootCmd.PersistentFlags().String("trace-level", "off", "trace verbosity (off|error|phase|detail|debug)")
	rootCmd.PersistentFlags().String("trace-format", "auto", "trace output format (auto|text|ndjson)")
	rootCmd.PersistentFlags().String("cpu-profile", "", "write cpu profile to file")
	rootCmd.PersistentFlags().String("mem-profile", "", "write heap profile to file")
	rootCmd.PersistentFlags().String("runtime-trace", "", "write runtime trace to file")

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// isTerminal проверяет, является ли файл терминалом
func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}
