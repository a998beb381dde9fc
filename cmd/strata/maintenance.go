package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/stratacluster/strata/pkg/config"
	"github.com/stratacluster/strata/pkg/controlplane"
	"github.com/stratacluster/strata/pkg/events"
	"github.com/stratacluster/strata/pkg/journal"
	"github.com/stratacluster/strata/pkg/metrics"
	"github.com/stratacluster/strata/pkg/orchestrator"
	"github.com/stratacluster/strata/pkg/probe"
	"github.com/stratacluster/strata/pkg/types"
)

var maintenanceCmd = &cobra.Command{
	Use:   "maintenance",
	Short: "Drive nodes into and out of maintenance mode",
}

var maintenanceEnterCmd = &cobra.Command{
	Use:   "enter",
	Short: "Drain a node and place it into maintenance mode",
	Long: `Stops the node's controller VM, waits for cluster health to settle,
and places the node into maintenance mode with workload evacuation.

The node is left in its last reached phase if any step fails; nothing is
rolled back automatically.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runMaintenance(cmd, func(o *orchestrator.Orchestrator) orchestrator.Operation {
			return o.DrainAndEnterMaintenance
		})
	},
}

var maintenanceExitCmd = &cobra.Command{
	Use:   "exit",
	Short: "Take a node out of maintenance mode and restore service",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runMaintenance(cmd, func(o *orchestrator.Orchestrator) orchestrator.Operation {
			return o.ExitMaintenanceAndRestore
		})
	},
}

func init() {
	maintenanceCmd.AddCommand(maintenanceEnterCmd)
	maintenanceCmd.AddCommand(maintenanceExitCmd)

	for _, cmd := range []*cobra.Command{maintenanceEnterCmd, maintenanceExitCmd} {
		cmd.Flags().String("node", "", "Target node name")
		cmd.Flags().Bool("all", false, "Target every node in the inventory, concurrently")
		cmd.Flags().String("metrics-addr", "", "Serve Prometheus metrics on this address while the operation runs")
	}
}

func runMaintenance(cmd *cobra.Command, pick func(*orchestrator.Orchestrator) orchestrator.Operation) error {
	nodeName, _ := cmd.Flags().GetString("node")
	all, _ := cmd.Flags().GetBool("all")
	if nodeName == "" && !all {
		return exitWith(exitConfig, fmt.Errorf("either --node or --all is required"))
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if err := cfg.ValidateMaintenance(); err != nil {
		return exitWith(exitConfig, err)
	}

	var nodes []*types.Node
	if all {
		nodes = cfg.AllNodes()
		if len(nodes) == 0 {
			return exitWith(exitConfig, fmt.Errorf("node inventory is empty"))
		}
	} else {
		node, err := cfg.Node(nodeName)
		if err != nil {
			return exitWith(exitConfig, err)
		}
		nodes = []*types.Node{node}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Multi-node runs can take a long time; the metrics endpoint lets an
	// operator watch poll progress from the outside while one is in flight.
	if metricsAddr, _ := cmd.Flags().GetString("metrics-addr"); metricsAddr != "" {
		srv := &http.Server{Addr: metricsAddr, Handler: metrics.Handler()}
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				fmt.Fprintf(os.Stderr, "metrics server: %v\n", err)
			}
		}()
		defer srv.Close()
	}

	orch, broker, cleanup, err := buildOrchestrator(ctx, cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	sub := broker.Subscribe()
	go func() {
		for evt := range sub {
			fmt.Printf("%s  %-28s %s %s\n", evt.Timestamp.Format("15:04:05"), evt.Type, evt.Node, evt.Message)
		}
	}()

	outcomes := orchestrator.RunAll(ctx, nodes, cfg.RetryPolicy(), pick(orch))
	broker.Unsubscribe(sub)

	return outcomeExit(outcomes)
}

// outcomeExit maps the worst outcome across the node set to the process
// exit code: timeouts outrank aborts only in that both are failures; any
// abort wins over any timeout for the exit code because it signals a
// condition retrying will not fix.
func outcomeExit(outcomes []types.OperationOutcome) error {
	code := exitOK
	var cause error
	for _, out := range outcomes {
		switch out.Status {
		case types.OutcomeAborted:
			code = exitAborted
			cause = out.Cause
		case types.OutcomeTimedOut:
			if code == exitOK {
				code = exitTimeout
				cause = out.Cause
			}
		}
	}
	if code == exitOK {
		return nil
	}
	return exitWith(code, cause)
}

func buildOrchestrator(ctx context.Context, cfg *config.Config) (*orchestrator.Orchestrator, *events.Broker, func(), error) {
	infra, err := controlplane.NewInfrastructureClient(ctx, cfg.Endpoints.Infrastructure.Endpoint(), 0)
	if err != nil {
		return nil, nil, nil, exitWith(exitAborted, err)
	}
	workload, err := controlplane.NewWorkloadClient(ctx, cfg.Endpoints.Workload.Endpoint(), 0)
	if err != nil {
		return nil, nil, nil, exitWith(exitAborted, err)
	}
	prober, err := probe.NewCommandProbe(cfg.Probe.Command, cfg.Probe.Timeout.Std())
	if err != nil {
		return nil, nil, nil, exitWith(exitConfig, err)
	}

	broker := events.NewBroker()
	broker.Start()

	opts := []orchestrator.Option{orchestrator.WithEventBroker(broker)}
	if cfg.GuestStopGrace > 0 {
		opts = append(opts, orchestrator.WithGuestStopGrace(cfg.GuestStopGrace.Std(), 0))
	}
	if cfg.SettleDelay > 0 {
		opts = append(opts, orchestrator.WithSettleDelay(cfg.SettleDelay.Std()))
	}

	cleanup := func() { broker.Stop() }

	if cfg.JournalPath != "" {
		jnl, err := journal.Open(cfg.JournalPath)
		if err != nil {
			broker.Stop()
			return nil, nil, nil, exitWith(exitAborted, err)
		}
		opts = append(opts, orchestrator.WithJournal(jnl))
		cleanup = func() {
			broker.Stop()
			jnl.Close()
		}
	}

	orch, err := orchestrator.New(infra, workload, prober, opts...)
	if err != nil {
		cleanup()
		return nil, nil, nil, exitWith(exitAborted, err)
	}
	return orch, broker, cleanup, nil
}
