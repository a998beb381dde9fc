package provision

import (
	"context"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/stratacluster/strata/pkg/controlplane"
	"github.com/stratacluster/strata/pkg/events"
	"github.com/stratacluster/strata/pkg/log"
	"github.com/stratacluster/strata/pkg/metrics"
	"github.com/stratacluster/strata/pkg/types"
)

// ErrConfiguration indicates an invalid input combination, surfaced before
// any connection is attempted
var ErrConfiguration = errors.New("provision: invalid configuration")

var validate = validator.New()

// ValidateContainerConfig applies the field constraints and the
// deduplication-requires-fingerprinting cross-field rule in one place,
// before any endpoint is contacted.
func ValidateContainerConfig(cfg types.ContainerConfig) error {
	if err := validate.Struct(cfg); err != nil {
		return errors.Wrap(ErrConfiguration, err.Error())
	}
	if cfg.DedupeEnabled && !cfg.FingerprintEnabled {
		return errors.Wrap(ErrConfiguration, "dedupe requires fingerprinting")
	}
	if cfg.CompressionDelaySeconds > 0 && !cfg.CompressionEnabled {
		return errors.Wrap(ErrConfiguration, "compression delay set but compression disabled")
	}
	return nil
}

// Provisioner drives storage container provisioning against the storage
// control plane
type Provisioner struct {
	storage controlplane.Storage
	broker  *events.Broker
	logger  zerolog.Logger
}

// Option customises a Provisioner
type Option func(*Provisioner)

// WithEventBroker attaches an event broker for progress reporting
func WithEventBroker(b *events.Broker) Option {
	return func(p *Provisioner) {
		p.broker = b
	}
}

// New constructs a Provisioner around the storage control plane
func New(storage controlplane.Storage, opts ...Option) (*Provisioner, error) {
	if storage == nil {
		return nil, errors.New("provision: storage control plane must not be nil")
	}
	p := &Provisioner{
		storage: storage,
		logger:  log.WithComponent("provision"),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// CreateContainer validates cfg, refuses a name that already exists, and
// creates the container. The existence check runs before the state-changing
// call so a duplicate name never reaches the endpoint as a create.
func (p *Provisioner) CreateContainer(ctx context.Context, cfg types.ContainerConfig) error {
	if err := ValidateContainerConfig(cfg); err != nil {
		p.step("container_create", "invalid")
		return err
	}

	exists, err := p.storage.ContainerExists(ctx, cfg.Name)
	if err != nil {
		p.step("container_create", "error")
		return errors.Wrap(err, "check container existence")
	}
	if exists {
		p.step("container_create", "exists")
		return errors.Wrapf(controlplane.ErrAlreadyExists, "container %s", cfg.Name)
	}

	if err := p.storage.CreateContainer(ctx, cfg); err != nil {
		p.step("container_create", "error")
		return errors.Wrapf(err, "create container %s", cfg.Name)
	}

	p.step("container_create", "success")
	p.publish(events.EventContainerCreated, cfg.Name)
	p.logger.Info().Str("container", cfg.Name).Int("rf", cfg.ReplicationFactor).Msg("container created")
	return nil
}

// EstablishStretch creates a protection domain and enables a metro
// relationship between a local and a remote container. Both containers
// must already exist on their respective endpoints.
func (p *Provisioner) EstablishStretch(ctx context.Context, remote controlplane.Storage, params types.StretchParams) error {
	if remote == nil {
		return errors.Wrap(ErrConfiguration, "remote storage endpoint required for stretch")
	}
	if params.ProtectionDomain == "" || params.LocalContainer == "" || params.RemoteContainer == "" {
		return errors.Wrap(ErrConfiguration, "protection domain, local and remote containers required")
	}

	localOK, err := p.storage.ContainerExists(ctx, params.LocalContainer)
	if err != nil {
		return errors.Wrap(err, "check local container")
	}
	if !localOK {
		return errors.Wrapf(controlplane.ErrNotFound, "local container %s", params.LocalContainer)
	}

	remoteOK, err := remote.ContainerExists(ctx, params.RemoteContainer)
	if err != nil {
		return errors.Wrap(err, "check remote container")
	}
	if !remoteOK {
		return errors.Wrapf(controlplane.ErrNotFound, "remote container %s", params.RemoteContainer)
	}

	if err := p.storage.CreateProtectionDomain(ctx, params.ProtectionDomain); err != nil && !errors.Is(err, controlplane.ErrAlreadyExists) {
		p.step("stretch_enable", "error")
		return errors.Wrapf(err, "create protection domain %s", params.ProtectionDomain)
	}

	if err := p.storage.EnableStretch(ctx, params); err != nil {
		p.step("stretch_enable", "error")
		return errors.Wrapf(err, "enable stretch on %s", params.ProtectionDomain)
	}

	p.step("stretch_enable", "success")
	p.publish(events.EventStretchEnabled, params.LocalContainer)
	p.logger.Info().
		Str("protection_domain", params.ProtectionDomain).
		Str("local", params.LocalContainer).
		Str("remote", params.RemoteContainer).
		Msg("stretch relationship established")
	return nil
}

// MountDatastore presents a container as a datastore on the host set
func (p *Provisioner) MountDatastore(ctx context.Context, mount types.DatastoreMount) error {
	if mount.Container == "" || len(mount.Hosts) == 0 {
		return errors.Wrap(ErrConfiguration, "container and at least one host required")
	}

	exists, err := p.storage.ContainerExists(ctx, mount.Container)
	if err != nil {
		return errors.Wrap(err, "check container")
	}
	if !exists {
		return errors.Wrapf(controlplane.ErrNotFound, "container %s", mount.Container)
	}

	if err := p.storage.MountDatastore(ctx, mount); err != nil {
		p.step("datastore_mount", "error")
		return errors.Wrapf(err, "mount container %s", mount.Container)
	}

	p.step("datastore_mount", "success")
	p.publish(events.EventDatastoreMounted, mount.Container)
	p.logger.Info().Str("container", mount.Container).Int("hosts", len(mount.Hosts)).Msg("datastore mounted")
	return nil
}

func (p *Provisioner) step(step, result string) {
	metrics.ProvisioningStepsTotal.WithLabelValues(step, result).Inc()
}

func (p *Provisioner) publish(t events.EventType, name string) {
	if p.broker == nil {
		return
	}
	p.broker.Publish(&events.Event{Type: t, Message: name})
}
