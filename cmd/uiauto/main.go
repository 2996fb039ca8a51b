package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/ssvmg10-debug/UI-automation/internal/app"
	"github.com/ssvmg10-debug/UI-automation/internal/config"
	"github.com/ssvmg10-debug/UI-automation/internal/flow"
	"github.com/ssvmg10-debug/UI-automation/internal/planner"
	"github.com/ssvmg10-debug/UI-automation/internal/script"
)

var (
	flagConfig  string
	flagVerbose bool
	flagPlan    string
	flagTask    string
	flagURL     string
	flagOut     string
	flagNoFlow  bool
)

func main() {
	_ = godotenv.Load()

	root := &cobra.Command{
		Use:           "uiauto",
		Short:         "Resolve and execute browser automation plans",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&flagConfig, "config", "c", "", "path to YAML config")
	root.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "debug logging")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Execute a plan from a file or compile one from a task description",
		RunE:  runRun,
	}
	runCmd.Flags().StringVar(&flagPlan, "plan", "", "plan file (YAML or JSON)")
	runCmd.Flags().StringVar(&flagTask, "task", "", "natural-language task (needs an LLM key)")
	runCmd.Flags().StringVar(&flagURL, "url", "", "start URL for --task")
	runCmd.Flags().BoolVar(&flagNoFlow, "no-flow", false, "disable fragment replay and shortcuts")

	exportCmd := &cobra.Command{
		Use:   "export",
		Short: "Run a plan and export it as a standalone playwright script",
		RunE:  runExport,
	}
	exportCmd.Flags().StringVar(&flagPlan, "plan", "", "plan file (YAML or JSON)")
	exportCmd.Flags().StringVarP(&flagOut, "out", "o", "replay.go", "output file")
	exportCmd.Flags().BoolVar(&flagNoFlow, "no-flow", false, "disable fragment replay and shortcuts")

	fragmentsCmd := &cobra.Command{
		Use:   "fragments",
		Short: "Inspect the fragment store",
	}
	fragmentsCmd.AddCommand(
		&cobra.Command{Use: "list", Short: "List stored fragments", RunE: runFragmentsList},
		&cobra.Command{Use: "prune [id]", Short: "Delete a fragment by id", Args: cobra.ExactArgs(1), RunE: runFragmentsPrune},
	)

	root.AddCommand(runCmd, exportCmd, fragmentsCmd)
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func setup() (context.Context, context.CancelFunc, zerolog.Logger, config.Config, error) {
	level := zerolog.InfoLevel
	if flagVerbose {
		level = zerolog.DebugLevel
	}
	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}).
		Level(level).
		With().Timestamp().Logger()

	cfg, err := config.Load(flagConfig)
	if err != nil {
		return nil, nil, log, cfg, err
	}
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	return ctx, cancel, log, cfg, nil
}

func runRun(cmd *cobra.Command, args []string) error {
	ctx, cancel, log, cfg, err := setup()
	if err != nil {
		return err
	}
	defer cancel()
	if flagNoFlow {
		cfg.Flow.Enabled = false
	}

	a, err := app.New(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer a.Close()

	steps, err := a.ResolveSteps(ctx, flagPlan, flagTask, flagURL)
	if err != nil {
		return err
	}
	report, err := a.Run(ctx, flagTask, steps)
	if err != nil {
		return err
	}
	app.PrintReport(os.Stdout, report)
	if !report.Success {
		return fmt.Errorf("run failed")
	}
	return nil
}

func runExport(cmd *cobra.Command, args []string) error {
	ctx, cancel, log, cfg, err := setup()
	if err != nil {
		return err
	}
	defer cancel()
	if flagNoFlow {
		cfg.Flow.Enabled = false
	}
	if strings.TrimSpace(flagPlan) == "" {
		return fmt.Errorf("export needs --plan")
	}

	a, err := app.New(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer a.Close()

	steps, err := planner.LoadPlan(flagPlan)
	if err != nil {
		return err
	}
	report, err := a.Run(ctx, "", steps)
	if err != nil {
		return err
	}
	src := script.Generate(steps, report.Results)
	if err := os.WriteFile(flagOut, []byte(src), 0o644); err != nil {
		return fmt.Errorf("write script: %w", err)
	}
	log.Info().Str("out", flagOut).Bool("run_success", report.Success).Msg("script exported")
	return nil
}

func runFragmentsList(cmd *cobra.Command, args []string) error {
	ctx, cancel, _, cfg, err := setup()
	if err != nil {
		return err
	}
	defer cancel()

	store, err := flow.OpenStore(cfg.Flow.StorePath)
	if err != nil {
		return err
	}
	defer store.Close()

	fragments, err := store.All(ctx)
	if err != nil {
		return err
	}
	for _, f := range fragments {
		steps, err := f.Steps()
		if err != nil {
			continue
		}
		fmt.Printf("#%d %s  %s -> %s  (%d steps, %d successes)\n",
			f.ID, f.Site, f.StartURL, f.EndURL, len(steps), f.SuccessCount)
	}
	if len(fragments) == 0 {
		fmt.Println("no fragments stored")
	}
	return nil
}

func runFragmentsPrune(cmd *cobra.Command, args []string) error {
	ctx, cancel, _, cfg, err := setup()
	if err != nil {
		return err
	}
	defer cancel()

	var id int64
	if _, err := fmt.Sscanf(args[0], "%d", &id); err != nil {
		return fmt.Errorf("bad fragment id %q", args[0])
	}
	store, err := flow.OpenStore(cfg.Flow.StorePath)
	if err != nil {
		return err
	}
	defer store.Close()
	return store.Delete(ctx, id)
}
