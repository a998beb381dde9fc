package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/stratacluster/strata/pkg/controlplane"
	"github.com/stratacluster/strata/pkg/provision"
	"github.com/stratacluster/strata/pkg/types"
)

var storageCmd = &cobra.Command{
	Use:   "storage",
	Short: "Provision storage containers, stretch relationships, and datastores",
}

var containerCmd = &cobra.Command{
	Use:   "container",
	Short: "Manage storage containers",
}

var containerCreateCmd = &cobra.Command{
	Use:   "create NAME",
	Short: "Create a storage container",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rf, _ := cmd.Flags().GetInt("rf")
		compression, _ := cmd.Flags().GetBool("compression")
		compressionDelay, _ := cmd.Flags().GetInt("compression-delay")
		dedupe, _ := cmd.Flags().GetBool("dedupe")
		fingerprint, _ := cmd.Flags().GetBool("fingerprint")

		cfg := types.ContainerConfig{
			Name:                    args[0],
			ReplicationFactor:       rf,
			CompressionEnabled:      compression,
			CompressionDelaySeconds: compressionDelay,
			DedupeEnabled:           dedupe,
			FingerprintEnabled:      fingerprint,
		}

		// Configuration errors surface before any endpoint is contacted.
		if err := provision.ValidateContainerConfig(cfg); err != nil {
			return exitWith(exitConfig, err)
		}

		prov, err := buildProvisioner(cmd.Context())
		if err != nil {
			return err
		}

		if err := prov.CreateContainer(cmd.Context(), cfg); err != nil {
			return exitWith(exitAborted, err)
		}
		fmt.Printf("container %s created\n", cfg.Name)
		return nil
	},
}

var stretchCmd = &cobra.Command{
	Use:   "stretch",
	Short: "Manage stretched (metro) container relationships",
}

var stretchEnableCmd = &cobra.Command{
	Use:   "enable",
	Short: "Establish a metro relationship between two containers",
	RunE: func(cmd *cobra.Command, args []string) error {
		pd, _ := cmd.Flags().GetString("protection-domain")
		container, _ := cmd.Flags().GetString("container")
		remoteAddr, _ := cmd.Flags().GetString("remote-endpoint")
		remoteContainer, _ := cmd.Flags().GetString("remote-container")
		if pd == "" || container == "" || remoteAddr == "" || remoteContainer == "" {
			return exitWith(exitConfig, fmt.Errorf("--protection-domain, --container, --remote-endpoint and --remote-container are required"))
		}

		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if err := cfg.ValidateStorage(); err != nil {
			return exitWith(exitConfig, err)
		}

		ctx := cmd.Context()
		prov, err := buildProvisionerWith(ctx, cfg.Endpoints.Storage.Endpoint())
		if err != nil {
			return err
		}

		// The remote side reuses the local credentials; metro pairs are
		// expected to share an administrative domain.
		remoteEp := cfg.Endpoints.Storage.Endpoint()
		remoteEp.Address = remoteAddr
		remote, err := controlplane.NewStorageClient(ctx, remoteEp, 0)
		if err != nil {
			return exitWith(exitAborted, err)
		}

		params := types.StretchParams{
			ProtectionDomain: pd,
			LocalContainer:   container,
			RemoteEndpoint:   remoteAddr,
			RemoteContainer:  remoteContainer,
		}
		if err := prov.EstablishStretch(ctx, remote, params); err != nil {
			return exitWith(exitAborted, err)
		}
		fmt.Printf("stretch enabled: %s <-> %s@%s\n", container, remoteContainer, remoteAddr)
		return nil
	},
}

var storageMountCmd = &cobra.Command{
	Use:   "mount",
	Short: "Mount a container as a datastore on a host set",
	RunE: func(cmd *cobra.Command, args []string) error {
		container, _ := cmd.Flags().GetString("container")
		hosts, _ := cmd.Flags().GetString("hosts")
		if container == "" || hosts == "" {
			return exitWith(exitConfig, fmt.Errorf("--container and --hosts are required"))
		}

		prov, err := buildProvisioner(cmd.Context())
		if err != nil {
			return err
		}

		mount := types.DatastoreMount{
			Container: container,
			Hosts:     strings.Split(hosts, ","),
		}
		if err := prov.MountDatastore(cmd.Context(), mount); err != nil {
			return exitWith(exitAborted, err)
		}
		fmt.Printf("container %s mounted on %d hosts\n", container, len(mount.Hosts))
		return nil
	},
}

func init() {
	storageCmd.AddCommand(containerCmd)
	storageCmd.AddCommand(stretchCmd)
	storageCmd.AddCommand(storageMountCmd)
	containerCmd.AddCommand(containerCreateCmd)
	stretchCmd.AddCommand(stretchEnableCmd)

	containerCreateCmd.Flags().Int("rf", 2, "Replication factor (2 or 3)")
	containerCreateCmd.Flags().Bool("compression", false, "Enable inline compression")
	containerCreateCmd.Flags().Int("compression-delay", 0, "Delay compression by N seconds")
	containerCreateCmd.Flags().Bool("dedupe", false, "Enable on-disk deduplication (requires --fingerprint)")
	containerCreateCmd.Flags().Bool("fingerprint", false, "Enable fingerprinting on write")

	stretchEnableCmd.Flags().String("protection-domain", "", "Protection domain name")
	stretchEnableCmd.Flags().String("container", "", "Local container name")
	stretchEnableCmd.Flags().String("remote-endpoint", "", "Remote storage management address")
	stretchEnableCmd.Flags().String("remote-container", "", "Remote container name")

	storageMountCmd.Flags().String("container", "", "Container to mount")
	storageMountCmd.Flags().String("hosts", "", "Comma-separated host list")
}

func buildProvisioner(ctx context.Context) (*provision.Provisioner, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	if err := cfg.ValidateStorage(); err != nil {
		return nil, exitWith(exitConfig, err)
	}
	return buildProvisionerWith(ctx, cfg.Endpoints.Storage.Endpoint())
}

func buildProvisionerWith(ctx context.Context, ep controlplane.Endpoint) (*provision.Provisioner, error) {
	storage, err := controlplane.NewStorageClient(ctx, ep, 0)
	if err != nil {
		return nil, exitWith(exitAborted, err)
	}
	prov, err := provision.New(storage)
	if err != nil {
		return nil, exitWith(exitAborted, err)
	}
	return prov, nil
}
