package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/E4Saber/stock-analyzer-sub000/internal/httpapi"
)

var (
	serveInputDir string
	serveInterval time.Duration
)

// serveCmd runs cycles on an interval and exposes the ops HTTP surface.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run scoring cycles on an interval and serve results over HTTP",
	Long: `Serve watches an input directory for materialized cycle files, runs a
scoring cycle per interval against the newest one, and publishes results on
the read-only ops API (/health, /metrics, /v1/...). Configuration reloads
take effect between cycles, never mid-cycle.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveInputDir, "input-dir", "data/cycles", "Directory of cycle input JSON files")
	serveCmd.Flags().DurationVar(&serveInterval, "interval", 15*time.Minute, "Delay between scoring cycles")
}

func runServe(cmd *cobra.Command, args []string) error {
	app, err := buildApp()
	if err != nil {
		return err
	}
	defer app.close()

	server := httpapi.New(app.metrics.Registry, app.cfg.Server.RatePerSecond, app.cfg.Server.Burst)
	go func() {
		if err := server.ListenAndServe(app.cfg.Server.Addr); err != nil {
			log.Fatal().Err(err).Msg("ops server exited")
		}
	}()

	ticker := time.NewTicker(serveInterval)
	defer ticker.Stop()

	runOnce := func() {
		path, err := newestCycleFile(serveInputDir)
		if err != nil {
			log.Warn().Err(err).Str("dir", serveInputDir).Msg("no cycle input available")
			return
		}
		input, err := loadCycleInput(path)
		if err != nil {
			log.Error().Err(err).Str("path", path).Msg("cycle input rejected")
			return
		}
		result, err := app.runner.RunCycle(context.Background(), input)
		if err != nil {
			log.Error().Err(err).Msg("cycle failed")
			return
		}
		server.SetLatest(result)
		app.pruneArtifacts()
	}

	runOnce()
	for range ticker.C {
		runOnce()
	}
	return nil
}

// newestCycleFile picks the lexically newest .json file in the input dir;
// upstream names files by date so lexical order is cycle order.
func newestCycleFile(dir string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", err
	}
	var names []string
	for _, e := range entries {
		if !e.IsDir() && filepath.Ext(e.Name()) == ".json" {
			names = append(names, e.Name())
		}
	}
	if len(names) == 0 {
		return "", fmt.Errorf("no cycle input files in %s", dir)
	}
	sort.Strings(names)
	return filepath.Join(dir, names[len(names)-1]), nil
}
