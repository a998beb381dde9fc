package main

import (
	"fmt"

	"github.com/rodaine/table"
	"github.com/spf13/cobra"

	"github.com/stratacluster/strata/pkg/controlplane"
	"github.com/stratacluster/strata/pkg/journal"
)

var nodeCmd = &cobra.Command{
	Use:   "node",
	Short: "Inspect the node inventory",
}

var nodeListCmd = &cobra.Command{
	Use:   "list",
	Short: "List nodes and their current connection state",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		queryState, _ := cmd.Flags().GetBool("query-state")
		var infra *controlplane.InfrastructureClient
		if queryState {
			if err := cfg.ValidateInfrastructure(); err != nil {
				return exitWith(exitConfig, err)
			}
			infra, err = controlplane.NewInfrastructureClient(cmd.Context(), cfg.Endpoints.Infrastructure.Endpoint(), 0)
			if err != nil {
				return exitWith(exitAborted, err)
			}
		}

		tbl := table.New("NAME", "ID", "ADDRESS", "STATE")
		for _, n := range cfg.AllNodes() {
			state := "-"
			if infra != nil {
				st, err := infra.GetConnectionState(cmd.Context(), n)
				if err != nil {
					state = "error"
				} else {
					state = string(st)
				}
			}
			tbl.AddRow(n.Name, n.ID, n.Address, state)
		}
		tbl.Print()
		return nil
	},
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show journaled lifecycle operations",
	Long: `Lists journaled lifecycle operations. With --operation, shows the
phase transitions recorded for that single operation instead.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if cfg.JournalPath == "" {
			return exitWith(exitConfig, fmt.Errorf("no journalPath configured"))
		}

		jnl, err := journal.Open(cfg.JournalPath)
		if err != nil {
			return exitWith(exitAborted, err)
		}
		defer jnl.Close()

		if opID, _ := cmd.Flags().GetString("operation"); opID != "" {
			return printTransitions(jnl, opID)
		}

		ops, err := jnl.ListOperations()
		if err != nil {
			return exitWith(exitAborted, err)
		}

		tbl := table.New("STARTED", "ID", "KIND", "NODE", "STATUS", "CAUSE")
		for _, op := range ops {
			cause := op.Cause
			if len(cause) > 60 {
				cause = cause[:57] + "..."
			}
			tbl.AddRow(op.StartedAt.Format("2006-01-02 15:04:05"), op.ID, op.Kind, op.Node, op.Status, cause)
		}
		tbl.Print()
		return nil
	},
}

func printTransitions(jnl *journal.Journal, opID string) error {
	trs, err := jnl.ListTransitions(opID)
	if err != nil {
		return exitWith(exitAborted, err)
	}
	if len(trs) == 0 {
		return exitWith(exitAborted, fmt.Errorf("no transitions recorded for operation %s", opID))
	}

	tbl := table.New("AT", "NODE", "PHASE")
	for _, tr := range trs {
		tbl.AddRow(tr.At.Format("2006-01-02 15:04:05"), tr.Node, tr.Phase)
	}
	tbl.Print()
	return nil
}

func init() {
	nodeCmd.AddCommand(nodeListCmd)
	nodeListCmd.Flags().Bool("query-state", false, "Query each node's live connection state from the infrastructure endpoint")
	historyCmd.Flags().String("operation", "", "Show phase transitions for one operation ID")
}
