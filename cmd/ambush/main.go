package main

import (
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var (
	configPath string
	verbose    bool
)

// rootCmd is the base command for the ambush engine CLI
var rootCmd = &cobra.Command{
	Use:   "ambush",
	Short: "Ambush signal-fusion engine",
	Long: `Ambush scores securities for stealth institutional accumulation by fusing
six indicator dimensions under regime-adaptive weights, filters unreliable
signals, classifies theme life-cycle stages, and derives position and
stop-loss policy from the result.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
		if verbose {
			zerolog.SetGlobalLevel(zerolog.DebugLevel)
		} else {
			zerolog.SetGlobalLevel(zerolog.InfoLevel)
		}
	},
}

func main() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "config/engine.yaml", "Path to engine configuration")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")

	rootCmd.AddCommand(scanCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(configCmd)

	if err := rootCmd.Execute(); err != nil {
		log.Fatal().Err(err).Msg("command failed")
	}
}
