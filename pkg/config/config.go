package config

import (
	"os"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/stratacluster/strata/pkg/controlplane"
	"github.com/stratacluster/strata/pkg/types"
)

// Duration wraps time.Duration for YAML decoding of values like "10s"
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return errors.Wrapf(err, "parse duration %q", raw)
	}
	*d = Duration(parsed)
	return nil
}

// Std returns the standard library representation
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// EndpointConfig describes one management endpoint
type EndpointConfig struct {
	Address       string `yaml:"address"`
	Username      string `yaml:"username"`
	Password      string `yaml:"password"`
	SkipTLSVerify bool   `yaml:"skipTLSVerify"`
}

// NodeConfig describes one cluster node in the inventory
type NodeConfig struct {
	ID          string `yaml:"id"`
	Name        string `yaml:"name"`
	Address     string `yaml:"address"`
	ServiceVMID string `yaml:"serviceVM"`
}

// RetryConfig mirrors types.RetryPolicy with YAML-friendly durations
type RetryConfig struct {
	MaxAttempts  int      `yaml:"maxAttempts"`
	Interval     Duration `yaml:"interval"`
	TotalTimeout Duration `yaml:"totalTimeout"`
}

// ProbeConfig describes how cluster health is queried
type ProbeConfig struct {
	Command []string `yaml:"command"`
	Timeout Duration `yaml:"timeout"`
}

// Config is the full Strata configuration
type Config struct {
	LogLevel    string `yaml:"logLevel"`
	JSONLog     bool   `yaml:"jsonLog"`
	JournalPath string `yaml:"journalPath"`

	Endpoints struct {
		Infrastructure EndpointConfig `yaml:"infrastructure"`
		Workload       EndpointConfig `yaml:"workload"`
		Storage        EndpointConfig `yaml:"storage"`
	} `yaml:"endpoints"`

	Probe ProbeConfig `yaml:"probe"`
	Retry RetryConfig `yaml:"retry"`

	GuestStopGrace Duration `yaml:"guestStopGrace"`
	SettleDelay    Duration `yaml:"settleDelay"`

	Nodes []NodeConfig `yaml:"nodes"`
}

// Load reads and validates the configuration at path. Validation failures
// surface here, before any connection is attempted.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read config")
	}
	return Parse(data)
}

// Parse decodes and validates raw YAML configuration
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, errors.Wrap(err, "decode config")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks structural requirements common to every command.
// Endpoint requirements differ per surface and are checked by the
// Validate* method of whichever surface a command actually uses, so a
// storage-only invocation does not demand a probe command.
func (c *Config) Validate() error {
	seen := make(map[string]bool, len(c.Nodes))
	for _, n := range c.Nodes {
		if n.Name == "" || n.Address == "" {
			return errors.Errorf("config: node %q needs name and address", n.ID)
		}
		if seen[n.Name] {
			return errors.Errorf("config: duplicate node name %q", n.Name)
		}
		seen[n.Name] = true
	}
	return nil
}

// ValidateInfrastructure checks the requirements of commands that talk to
// the infrastructure control plane, defaulting the workload endpoint to the
// infrastructure one when unset
func (c *Config) ValidateInfrastructure() error {
	if c.Endpoints.Infrastructure.Address == "" {
		return errors.New("config: infrastructure endpoint address required")
	}
	if c.Endpoints.Workload.Address == "" {
		// One appliance often serves both surfaces.
		c.Endpoints.Workload = c.Endpoints.Infrastructure
	}
	return nil
}

// ValidateMaintenance checks the requirements of lifecycle operations
func (c *Config) ValidateMaintenance() error {
	if err := c.ValidateInfrastructure(); err != nil {
		return err
	}
	if len(c.Probe.Command) == 0 {
		return errors.New("config: probe command required")
	}
	return nil
}

// ValidateStorage checks the requirements of storage provisioning commands
func (c *Config) ValidateStorage() error {
	if c.Endpoints.Storage.Address == "" {
		return errors.New("config: storage endpoint address required")
	}
	return nil
}

// RetryPolicy resolves the configured retry policy, falling back to the
// defaults for unset fields
func (c *Config) RetryPolicy() types.RetryPolicy {
	policy := types.DefaultRetryPolicy()
	if c.Retry.MaxAttempts > 0 {
		policy.MaxAttempts = c.Retry.MaxAttempts
	}
	if c.Retry.Interval > 0 {
		policy.Interval = c.Retry.Interval.Std()
	}
	if c.Retry.TotalTimeout > 0 {
		policy.TotalTimeout = c.Retry.TotalTimeout.Std()
	}
	return policy
}

// Node looks up a node from the inventory by name
func (c *Config) Node(name string) (*types.Node, error) {
	for _, n := range c.Nodes {
		if n.Name == name {
			id := n.ID
			if id == "" {
				id = n.Name
			}
			return &types.Node{
				ID:          id,
				Name:        n.Name,
				Address:     n.Address,
				ServiceVMID: n.ServiceVMID,
				Phase:       types.PhaseActive,
			}, nil
		}
	}
	return nil, errors.Errorf("config: node %q not in inventory", name)
}

// AllNodes materialises the whole inventory
func (c *Config) AllNodes() []*types.Node {
	nodes := make([]*types.Node, 0, len(c.Nodes))
	for _, n := range c.Nodes {
		node, _ := c.Node(n.Name)
		nodes = append(nodes, node)
	}
	return nodes
}

// Endpoint converts an endpoint config to the control-plane form
func (e EndpointConfig) Endpoint() controlplane.Endpoint {
	return controlplane.Endpoint{
		Address:       e.Address,
		Username:      e.Username,
		Password:      e.Password,
		SkipTLSVerify: e.SkipTLSVerify,
	}
}
