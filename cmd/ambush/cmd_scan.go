package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/E4Saber/stock-analyzer-sub000/internal/artifacts"
	"github.com/E4Saber/stock-analyzer-sub000/internal/config"
	"github.com/E4Saber/stock-analyzer-sub000/internal/pipeline"
	"github.com/E4Saber/stock-analyzer-sub000/internal/store"
	"github.com/E4Saber/stock-analyzer-sub000/internal/telemetry"
)

var (
	scanInputPath string
	scanFormat    string
)

// scanCmd runs a single scoring cycle against a materialized input file.
var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Run one scoring cycle over a materialized cycle input",
	Long: `Scan runs a full cycle: regime classification, per-symbol dimension
scoring, composite aggregation, reliability filtering, lifecycle updates,
and position planning. The input file is the JSON cycle record the upstream
indicator store materializes before the cycle starts.

Example usage:
  ambush scan --input data/cycle-20260830.json
  ambush scan --input data/cycle-20260830.json --format=json`,
	RunE: runScan,
}

func init() {
	scanCmd.Flags().StringVar(&scanInputPath, "input", "", "Path to the cycle input JSON (required)")
	scanCmd.Flags().StringVar(&scanFormat, "format", "table", "Output format: table or json")
	scanCmd.MarkFlagRequired("input")
}

func runScan(cmd *cobra.Command, args []string) error {
	app, err := buildApp()
	if err != nil {
		return err
	}
	defer app.close()

	input, err := loadCycleInput(scanInputPath)
	if err != nil {
		return err
	}

	result, err := app.runner.RunCycle(context.Background(), input)
	if err != nil {
		return fmt.Errorf("run cycle: %w", err)
	}
	app.pruneArtifacts()

	switch scanFormat {
	case "json":
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	default:
		printCycleTable(result)
		return nil
	}
}

// app holds the wired collaborators shared by the scan and serve commands.
type app struct {
	runner  *pipeline.Runner
	cfg     *config.Engine
	sink    *store.PostgresSink
	writer  *artifacts.Writer
	metrics *telemetry.Metrics
}

func (a *app) close() {
	if a.sink != nil {
		a.sink.Close()
	}
}

// pruneArtifacts enforces the configured artifact retention after a cycle.
func (a *app) pruneArtifacts() {
	if a.writer == nil {
		return
	}
	removed, err := a.writer.Prune(a.cfg.Output.KeepCycles)
	if err != nil {
		log.Warn().Err(err).Msg("artifact prune failed")
	} else if len(removed) > 0 {
		log.Debug().Int("removed", len(removed)).Msg("old cycle artifacts pruned")
	}
}

// buildApp assembles the runner from the configured collaborators.
func buildApp() (*app, error) {
	reloader, err := config.NewReloader(configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	cfg := reloader.Snapshot()

	a := &app{cfg: cfg, metrics: telemetry.New()}

	var runnerSink pipeline.OutputSink
	if cfg.Output.PostgresDSN != "" {
		a.sink, err = store.NewPostgresSink(cfg.Output.PostgresDSN)
		if err != nil {
			return nil, fmt.Errorf("output sink: %w", err)
		}
		runnerSink = a.sink
	}

	var runnerWriter pipeline.ArtifactWriter
	if cfg.Output.ArtifactsDir != "" {
		a.writer = artifacts.NewWriter(cfg.Output.ArtifactsDir)
		runnerWriter = a.writer
	}

	a.runner, err = pipeline.NewRunner(reloader, a.metrics, runnerSink, runnerWriter)
	if err != nil {
		return nil, err
	}
	return a, nil
}

func loadCycleInput(path string) (pipeline.CycleInput, error) {
	var input pipeline.CycleInput
	raw, err := os.ReadFile(path)
	if err != nil {
		return input, fmt.Errorf("read cycle input: %w", err)
	}
	if err := json.Unmarshal(raw, &input); err != nil {
		return input, fmt.Errorf("parse cycle input %s: %w", path, err)
	}
	if len(input.Symbols) == 0 {
		log.Warn().Str("path", path).Msg("cycle input has no symbols")
	}
	return input, nil
}

func printCycleTable(result *pipeline.CycleResult) {
	fmt.Printf("cycle %s  regime=%s  scored=%d  failed=%d  elapsed=%s\n\n",
		result.Date.Format("2006-01-02"), result.Regime,
		len(result.Results), len(result.Failures), result.Duration)

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "SYMBOL\tSCORE\tTIER\tFINAL\tFLAGS\tSTAGE\tPLAN")
	for _, res := range result.Results {
		plan := "-"
		if res.Plan != nil {
			if res.Plan.BuildAllowed {
				plan = fmt.Sprintf("%.0f%% @ stop %.1f%%",
					res.Plan.Entry.InitialFraction*100, res.Plan.Entry.StopLossPct)
			} else {
				plan = "no build"
			}
		}
		stage := "-"
		if res.Campaign != nil {
			stage = res.Campaign.StageTag
		}
		fmt.Fprintf(w, "%s\t%.2f\t%s\t%s\t%d\t%s\t%s\n",
			res.Symbol, res.Signal.Score, res.Signal.TierTag,
			res.Verdict.FinalTierTag, len(res.Verdict.Flags), stage, plan)
	}
	w.Flush()

	if len(result.Failures) > 0 {
		fmt.Println()
		for _, f := range result.Failures {
			fmt.Printf("  failed: %s (%s)\n", f.Symbol, f.Reason)
		}
	}
}
