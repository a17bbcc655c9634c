package main

import (
	"github.com/spf13/cobra"
)

type rootOptions struct {
	configPath string
	dryRun     bool
	simHosts   int
	simPattern string
}

func rootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "joyce",
		Short: "Capacity forecasting for monitored lpars",
		Long: `joyce pulls utilisation history from Zabbix, writes one resampled
snapshot per host and metric, reconciles clustered lpar pairs and forecasts
every series with a seasonal ARIMA model.

Quick start:
  joyce migrate                    # Create the time-series table
  joyce run                        # Load, merge and forecast
  joyce run --dry-run              # Same against simulated hosts, no store`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&opts.configPath, "config", "", "path to config file")
	flags.BoolVar(&opts.dryRun, "dry-run", false, "use simulated hosts and skip the store")
	flags.IntVar(&opts.simHosts, "sim-hosts", 4, "number of simulated hosts with --dry-run")
	flags.StringVar(&opts.simPattern, "sim-pattern", "daily", "simulated load pattern: steady, daily, weekly, sine_wave")

	cmd.AddCommand(runCommand(opts))
	cmd.AddCommand(mergeCommand(opts))
	cmd.AddCommand(forecastCommand(opts))
	cmd.AddCommand(migrateCommand(opts))
	cmd.AddCommand(credentialsCommand(opts))

	return cmd
}
