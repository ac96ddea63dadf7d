package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"benchflow/blocks"
	"benchflow/data"
	"benchflow/instruments"
	"benchflow/runtime"
)

var (
	continueOnError bool
	maxWorkers      int
	exportLogPath   string
	csvPath         string
	verbose         bool
)

var runCmd = &cobra.Command{
	Use:   "run <sequence-file>",
	Short: "Run a sequence file against simulated instruments",
	Long: `Run loads a YAML or JSON sequence file and executes it.

A simulated power supply ("psu") and multimeter ("dmm") are registered, so
instrument blocks work out of the box.

Example:
  benchflow run ramp_test.yaml
  benchflow run ramp_test.json --continue-on-error --export-log run.json
`,
	Args: cobra.ExactArgs(1),
	RunE: runSequence,
}

func init() {
	runCmd.Flags().BoolVar(&continueOnError, "continue-on-error", false, "Keep executing after a block fails")
	runCmd.Flags().IntVar(&maxWorkers, "max-workers", 4, "Worker cap for parallel regions")
	runCmd.Flags().StringVar(&exportLogPath, "export-log", "", "Write the execution log as JSON to this path")
	runCmd.Flags().StringVar(&csvPath, "export-csv", "", "Write logged data points as CSV to this path")
	runCmd.Flags().BoolVar(&verbose, "verbose", false, "Enable debug logging")
}

func newLogger() *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

func runSequence(_ *cobra.Command, args []string) error {
	log := newLogger()

	seq, err := runtime.LoadSequence(args[0], blocks.NewRegistry(), log)
	if err != nil {
		return fmt.Errorf("failed to load sequence: %w", err)
	}

	ctx := runtime.NewContext()
	ctx.SetLogger(log)
	ctx.RegisterInstrument("psu", instruments.NewSimPowerSupply("psu"))
	ctx.RegisterInstrument("dmm", instruments.NewSimDMM("dmm"))

	sink := data.NewLogger(10000)
	ctx.SetSink(sink)

	cfg := runtime.DefaultExecutorConfig()
	cfg.StopOnError = !continueOnError
	cfg.MaxWorkers = maxWorkers

	exec, err := runtime.NewExecutor(seq, ctx, &cfg)
	if err != nil {
		return err
	}
	exec.OnProgress(func(b runtime.Block, index int, _ runtime.Outcome, _ runtime.State) {
		fmt.Printf("  [%d/%d] %s\n", index+1, seq.Len(), b.Name())
	})

	result := exec.Start()

	fmt.Printf("\nState: %s\n", result.State)
	fmt.Printf("Blocks executed: %d\n", result.BlocksExecuted)
	fmt.Printf("Duration: %s\n", result.Duration)
	for _, msg := range result.Errors {
		fmt.Printf("Error: %s\n", msg)
	}

	if exportLogPath != "" {
		if err := exec.ExportLog(exportLogPath); err != nil {
			return err
		}
		fmt.Printf("Execution log: %s\n", exportLogPath)
	}
	if csvPath != "" {
		if err := sink.ExportCSV(csvPath); err != nil {
			return err
		}
		fmt.Printf("Data CSV: %s\n", csvPath)
	}

	if !result.Success {
		return fmt.Errorf("sequence finished in state %s", result.State)
	}
	return nil
}
