package main

import (
	"fmt"
	"os"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/stratacluster/strata/pkg/config"
	"github.com/stratacluster/strata/pkg/controlplane"
	"github.com/stratacluster/strata/pkg/log"
	"github.com/stratacluster/strata/pkg/provision"
	"github.com/stratacluster/strata/pkg/version"
)

// Process exit codes. Automation callers branch on these; they are part of
// the CLI contract.
const (
	exitOK      = 0
	exitAborted = 1
	exitTimeout = 2
	exitConfig  = 3
)

// exitError carries an explicit process exit code up to main
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string {
	if e.err == nil {
		return fmt.Sprintf("exit %d", e.code)
	}
	return e.err.Error()
}

func exitWith(code int, err error) error {
	return &exitError{code: code, err: err}
}

func main() {
	err := rootCmd.Execute()
	if err == nil {
		os.Exit(exitOK)
	}

	var ee *exitError
	if errors.As(err, &ee) {
		if ee.err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", ee.err)
		}
		os.Exit(ee.code)
	}

	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	switch {
	case errors.Is(err, controlplane.ErrConnection):
		os.Exit(exitAborted)
	case errors.Is(err, provision.ErrConfiguration):
		os.Exit(exitConfig)
	default:
		os.Exit(exitAborted)
	}
}

var rootCmd = &cobra.Command{
	Use:   "strata",
	Short: "Strata - maintenance and storage orchestration for hyperconverged clusters",
	Long: `Strata orchestrates disruptive lifecycle operations against a
hyperconverged virtualization cluster: draining a node into maintenance
mode, restoring it to service, and provisioning storage containers,
protection domains, and stretched (metro) relationships.

Every transition polls cluster health under a bounded retry budget before
the next disruptive step is issued.`,
	Version:       version.Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

var configPath string

func init() {
	rootCmd.SetVersionTemplate(version.String() + "\n")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "strata.yaml", "Path to the Strata configuration file")

	rootCmd.AddCommand(maintenanceCmd)
	rootCmd.AddCommand(storageCmd)
	rootCmd.AddCommand(nodeCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println(version.String())
	},
}

// loadConfig reads the configuration and initializes logging. All
// configuration problems exit with the configuration code before any
// endpoint is contacted.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, exitWith(exitConfig, err)
	}

	log.Init(log.Config{
		Level:      log.Level(cfg.LogLevel),
		JSONOutput: cfg.JSONLog,
		Output:     os.Stderr,
	})
	return cfg, nil
}
