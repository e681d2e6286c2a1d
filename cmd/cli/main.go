// Command amhs-sim reads a SimulationInput JSON from a file argument (or
// stdin), runs the simulation, and writes the SimulationLog JSON to
// stdout. It also exposes a validate subcommand for setup-time graph and
// config checks without running a full simulation.
package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/railwright/amhs-core/internal/config"
	"github.com/railwright/amhs-core/internal/engine"
	"github.com/railwright/amhs-core/internal/graph"
	"github.com/railwright/amhs-core/internal/metrics"
)

// version is overridden at build time via -ldflags "-X main.version=...".
var version = "dev"

func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger setup: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if err := newRootCmd(logger).Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd(logger *zap.Logger) *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:   "amhs-sim",
		Short: "AMHS vehicle movement simulation core",
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "path to a YAML/JSON fab config that replaces the input's config block")

	root.AddCommand(newRunCmd(logger, &configPath))
	root.AddCommand(newValidateCmd(logger, &configPath))
	root.AddCommand(newVersionCmd())
	return root
}

func newRunCmd(logger *zap.Logger, configPath *string) *cobra.Command {
	var metricsAddr string

	cmd := &cobra.Command{
		Use:   "run [input.json]",
		Short: "Run a batch simulation from a SimulationInput JSON file (or stdin)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := readInput(args)
			if err != nil {
				logger.Error("reading input", zap.Error(err))
				return err
			}

			var input engine.SimulationInput
			if err := json.Unmarshal(data, &input); err != nil {
				logger.Error("parsing input JSON", zap.Error(err))
				return err
			}

			if *configPath != "" {
				overlay, err := config.Load(*configPath)
				if err != nil {
					logger.Error("loading config overlay", zap.Error(err))
					return err
				}
				input.Config = overlay
			}

			sim, err := engine.NewSimulation(input)
			if err != nil {
				logger.Error("constructing simulation", zap.Error(err))
				return err
			}

			mc := metrics.NewCollector("amhs")
			registry := prometheus.NewRegistry()
			if err := mc.Register(registry); err != nil {
				logger.Error("registering metrics", zap.Error(err))
				return err
			}

			if metricsAddr != "" {
				srv := &http.Server{Addr: metricsAddr, Handler: promhttp.HandlerFor(registry, promhttp.HandlerOpts{})}
				go func() {
					if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
						logger.Error("metrics server", zap.Error(err))
					}
				}()
				defer srv.Close()
			}

			log := sim.RunInstrumented(mc)
			mc.SampleLockManager(sim.LockManager())

			out, err := json.Marshal(log)
			if err != nil {
				logger.Error("marshaling output", zap.Error(err))
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(out))
			return nil
		},
	}
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "address to serve Prometheus /metrics on while the run executes (e.g. :9090); disabled if empty")
	return cmd
}

func newValidateCmd(logger *zap.Logger, configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "validate [input.json]",
		Short: "Validate a SimulationInput's graph and config without running it",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := readInput(args)
			if err != nil {
				logger.Error("reading input", zap.Error(err))
				return err
			}

			var input engine.SimulationInput
			if err := json.Unmarshal(data, &input); err != nil {
				logger.Error("parsing input JSON", zap.Error(err))
				return err
			}
			if *configPath != "" {
				overlay, err := config.Load(*configPath)
				if err != nil {
					logger.Error("loading config overlay", zap.Error(err))
					return err
				}
				input.Config = overlay
			}

			if err := input.Config.Validate(); err != nil {
				logger.Error("config validation failed", zap.Error(err))
				return err
			}

			g, err := graph.NewGraph(input.GraphData)
			if err != nil {
				logger.Error("graph validation failed", zap.Error(err))
				return err
			}

			if unreachable := g.UnreachableMergeNodes(); len(unreachable) > 0 {
				logger.Warn("merge nodes unreachable from any other node", zap.Strings("nodes", unreachable))
			}

			fmt.Fprintln(cmd.OutOrStdout(), "ok")
			return nil
		},
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the build version",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintln(cmd.OutOrStdout(), version)
			return nil
		},
	}
}

func readInput(args []string) ([]byte, error) {
	if len(args) == 1 {
		return os.ReadFile(args[0])
	}
	return io.ReadAll(os.Stdin)
}
