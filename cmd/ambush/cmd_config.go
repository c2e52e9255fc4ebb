package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/E4Saber/stock-analyzer-sub000/internal/config"
	"github.com/E4Saber/stock-analyzer-sub000/internal/weights"
)

// configCmd is the parent for configuration operations.
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect and validate engine configuration",
}

// configValidateCmd fails fast on any malformed table, exactly as the
// engine would at cycle start.
var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate every table in the engine configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}
		resolver, err := weights.NewResolver(cfg.Weights)
		if err != nil {
			return err
		}
		fmt.Printf("%s: ok (%d weight profiles + default, %d policy rows)\n",
			configPath, resolver.Size(), len(cfg.Policy.Table))
		return nil
	},
}

func init() {
	configCmd.AddCommand(configValidateCmd)
}
