package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/OldStager01/joyce/internal/orchestrator"
)

type phaseFunc func(*orchestrator.Orchestrator, context.Context) (*orchestrator.Report, error)

func runCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Load, merge and forecast every monitored series",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return execute(cmd, opts, (*orchestrator.Orchestrator).Run)
		},
	}
}

func mergeCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "merge",
		Short: "Merge cluster pairs from the snapshots of an earlier run",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return execute(cmd, opts, (*orchestrator.Orchestrator).MergeSnapshots)
		},
	}
}

func forecastCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "forecast",
		Short: "Forecast every original snapshot on disk",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return execute(cmd, opts, (*orchestrator.Orchestrator).ForecastSnapshots)
		},
	}
}

func execute(cmd *cobra.Command, opts *rootOptions, phase phaseFunc) error {
	a, err := newApp(opts)
	if err != nil {
		return err
	}
	defer a.Close()

	orch, err := a.orchestrator()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	report, err := phase(orch, a.context(ctx))
	if report != nil {
		printReport(cmd.OutOrStdout(), report)
	}
	return err
}

func printReport(w io.Writer, report *orchestrator.Report) {
	fmt.Fprintf(w, "run %s: %d hosts in %s\n", report.RunID, report.Hosts, report.FinishedAt.Sub(report.StartedAt).Round(time.Millisecond))
	for _, p := range report.Phases {
		fmt.Fprintf(w, "  %-9s written=%d skipped=%d failed=%d\n", p.Name, p.Written, p.Skipped, p.Failed)
	}
}
