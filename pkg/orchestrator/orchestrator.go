package orchestrator

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/stratacluster/strata/pkg/controlplane"
	"github.com/stratacluster/strata/pkg/events"
	"github.com/stratacluster/strata/pkg/journal"
	"github.com/stratacluster/strata/pkg/log"
	"github.com/stratacluster/strata/pkg/metrics"
	"github.com/stratacluster/strata/pkg/poll"
	"github.com/stratacluster/strata/pkg/probe"
	"github.com/stratacluster/strata/pkg/types"
)

// ErrGuestStopGrace indicates the controller VM did not stop within its
// grace window. The drain is aborted before any maintenance call is issued.
var ErrGuestStopGrace = errors.New("orchestrator: guest did not stop within grace window")

// Orchestrator sequences disruptive lifecycle transitions against cluster
// nodes while preserving overall cluster health. It performs no automatic
// rollback: a failed sequence leaves the node in the phase the last
// confirmed step produced, and the outcome reports which phases were
// reached so an operator or re-run can reconcile.
type Orchestrator struct {
	infra    controlplane.Infrastructure
	workload controlplane.Workload
	prober   probe.Prober
	poller   *poll.Poller
	broker   *events.Broker
	journal  *journal.Journal
	locks    *lockRegistry
	clock    clockwork.Clock
	logger   zerolog.Logger

	guestStopGrace time.Duration
	graceInterval  time.Duration
	settleDelay    time.Duration
}

// Option customises an Orchestrator
type Option func(*Orchestrator)

// WithEventBroker attaches an event broker for progress reporting
func WithEventBroker(b *events.Broker) Option {
	return func(o *Orchestrator) {
		o.broker = b
	}
}

// WithJournal attaches an operation journal
func WithJournal(j *journal.Journal) Option {
	return func(o *Orchestrator) {
		o.journal = j
	}
}

// WithClock injects a custom clock (useful for tests)
func WithClock(clock clockwork.Clock) Option {
	return func(o *Orchestrator) {
		if clock != nil {
			o.clock = clock
			o.poller = poll.New(poll.WithClock(clock))
		}
	}
}

// WithGuestStopGrace overrides the window the drain waits for the
// controller VM to stop before aborting
func WithGuestStopGrace(window, interval time.Duration) Option {
	return func(o *Orchestrator) {
		if window > 0 {
			o.guestStopGrace = window
		}
		if interval > 0 {
			o.graceInterval = interval
		}
	}
}

// WithSettleDelay overrides how long cluster health must stay up after
// restore before the operation is declared successful
func WithSettleDelay(d time.Duration) Option {
	return func(o *Orchestrator) {
		if d > 0 {
			o.settleDelay = d
		}
	}
}

// New constructs an Orchestrator around the three collaborators
func New(infra controlplane.Infrastructure, workload controlplane.Workload, prober probe.Prober, opts ...Option) (*Orchestrator, error) {
	if infra == nil {
		return nil, errors.New("orchestrator: infrastructure control plane must not be nil")
	}
	if workload == nil {
		return nil, errors.New("orchestrator: workload control plane must not be nil")
	}
	if prober == nil {
		return nil, errors.New("orchestrator: prober must not be nil")
	}

	o := &Orchestrator{
		infra:          infra,
		workload:       workload,
		prober:         prober,
		poller:         poll.New(),
		locks:          newLockRegistry(),
		clock:          clockwork.NewRealClock(),
		logger:         log.WithComponent("orchestrator"),
		guestStopGrace: 2 * time.Minute,
		graceInterval:  5 * time.Second,
		settleDelay:    30 * time.Second,
	}

	for _, opt := range opts {
		opt(o)
	}

	return o, nil
}

// DrainAndEnterMaintenance stops the node's controller VM, confirms the
// guest actually stopped, waits for cluster health to settle, and places
// the node into maintenance with workload evacuation. Steps are strictly
// ordered; no step runs before its predecessor is confirmed.
func (o *Orchestrator) DrainAndEnterMaintenance(ctx context.Context, node *types.Node, policy types.RetryPolicy) types.OperationOutcome {
	return o.runOperation(ctx, "maintenance_enter", node, policy, o.drainAndEnter)
}

// ExitMaintenanceAndRestore performs the inverse sequence: exit
// maintenance, confirm the node reconnects, restart the controller VM, and
// wait for cluster health to hold past the settle delay.
func (o *Orchestrator) ExitMaintenanceAndRestore(ctx context.Context, node *types.Node, policy types.RetryPolicy) types.OperationOutcome {
	return o.runOperation(ctx, "maintenance_exit", node, policy, o.exitAndRestore)
}

type sequence func(ctx context.Context, op *operation) error

// operation carries the bookkeeping for one lifecycle run
type operation struct {
	id     string
	kind   string
	node   *types.Node
	policy types.RetryPolicy
	logger zerolog.Logger

	outcome types.OperationOutcome
}

func (o *Orchestrator) runOperation(ctx context.Context, kind string, node *types.Node, policy types.RetryPolicy, seq sequence) types.OperationOutcome {
	start := o.clock.Now()
	opID := uuid.New().String()
	op := &operation{
		id:     opID,
		kind:   kind,
		node:   node,
		policy: policy,
		logger: o.logger.With().Str("operation_id", opID).Str("node", node.Name).Str("kind", kind).Logger(),
	}
	op.outcome = types.OperationOutcome{NodeID: node.ID, Status: types.OutcomeSuccess}

	release, err := o.locks.tryAcquire(node.ID)
	if err != nil {
		op.outcome.Status = types.OutcomeAborted
		op.outcome.Cause = err
		op.outcome.Elapsed = o.clock.Since(start)
		op.logger.Error().Err(err).Msg("operation rejected")
		return op.outcome
	}
	defer release()

	op.logger.Info().Msg("operation started")
	if err := seq(ctx, op); err != nil {
		if op.outcome.Status == types.OutcomeSuccess {
			op.outcome.Status = types.OutcomeAborted
		}
		op.outcome.Cause = err
	}
	op.outcome.Elapsed = o.clock.Since(start)

	o.finish(op, start)
	return op.outcome
}

func (o *Orchestrator) drainAndEnter(ctx context.Context, op *operation) error {
	node := op.node

	o.setPhase(op, types.PhaseDraining)
	o.publish(events.EventDrainStarted, node.Name, "stopping controller VM")

	if err := o.workload.StopGuest(ctx, node.ServiceVMID); err != nil {
		return errors.Wrap(err, "stop controller VM")
	}

	// Guest-stop confirmation is its own check with its own grace bound.
	// It must not be conflated with the cluster-health poll below: a
	// healthy cluster says nothing about whether this guest stopped.
	res, err := o.poller.RunCondition(ctx, types.RetryPolicy{
		Interval:     o.graceInterval,
		TotalTimeout: o.guestStopGrace,
	}, func(ctx context.Context) (bool, error) {
		_, present, err := o.workload.GetGuestAddress(ctx, node.ServiceVMID)
		if err != nil {
			return false, errors.Wrap(err, "confirm controller VM stopped")
		}
		return !present, nil
	})
	if err != nil {
		return err
	}
	if res.Status == types.OutcomeTimedOut {
		metrics.GuestStopGraceExceeded.Inc()
		return errors.Wrapf(ErrGuestStopGrace, "vm %s after %s", node.ServiceVMID, res.Elapsed)
	}
	o.publish(events.EventGuestStopped, node.Name, "controller VM stopped")
	op.logger.Info().Dur("elapsed", res.Elapsed).Msg("controller VM stopped")

	if done := o.pollHealth(ctx, op, "drain"); done != nil {
		return done
	}

	if err := o.infra.SetNodeState(ctx, node, types.ConnectionMaintenance, true); err != nil {
		return errors.Wrap(err, "request maintenance mode")
	}
	o.publish(events.EventMaintenanceSet, node.Name, "maintenance mode requested, evacuating workloads")

	if done := o.awaitConnectionState(ctx, op, types.ConnectionMaintenance); done != nil {
		return done
	}

	o.setPhase(op, types.PhaseMaintenance)
	op.logger.Info().Msg("node is in maintenance mode")
	return nil
}

func (o *Orchestrator) exitAndRestore(ctx context.Context, op *operation) error {
	node := op.node

	o.setPhase(op, types.PhaseRestoring)

	if err := o.infra.SetNodeState(ctx, node, types.ConnectionConnected, false); err != nil {
		return errors.Wrap(err, "request maintenance exit")
	}
	o.publish(events.EventMaintenanceClear, node.Name, "maintenance exit requested")

	if done := o.awaitConnectionState(ctx, op, types.ConnectionConnected); done != nil {
		return done
	}

	if err := o.workload.StartGuest(ctx, node.ServiceVMID); err != nil {
		return errors.Wrap(err, "start controller VM")
	}
	o.publish(events.EventGuestStarted, node.Name, "controller VM starting")

	// Restore succeeds only once no member reports a down status for
	// longer than the settle delay; one healthy snapshot straight after a
	// service start is routinely followed by a relapse.
	if done := o.pollHealthSettled(ctx, op, "restore"); done != nil {
		return done
	}

	o.setPhase(op, types.PhaseActive)
	op.logger.Info().Msg("node restored to active service")
	return nil
}

// pollHealth drives the shared bounded poll loop against the cluster health
// probe. A TimedOut result terminates the operation.
func (o *Orchestrator) pollHealth(ctx context.Context, op *operation, phase string) error {
	return o.runHealthLoop(ctx, op, phase, func(ctx context.Context) types.HealthCheckResult {
		return o.prober.Check(ctx, op.node.Address)
	})
}

// pollHealthSettled is pollHealth with the settle requirement: an attempt
// only counts as healthy if a re-probe after the settle delay still is.
func (o *Orchestrator) pollHealthSettled(ctx context.Context, op *operation, phase string) error {
	return o.runHealthLoop(ctx, op, phase, func(ctx context.Context) types.HealthCheckResult {
		res := o.prober.Check(ctx, op.node.Address)
		if !res.Healthy() {
			return res
		}
		select {
		case <-ctx.Done():
			// The pre-settle snapshot must not count as healthy; the
			// outer loop's context check turns this into Aborted.
			return types.HealthCheckResult{
				State:     types.HealthUnreachable,
				Reason:    "cancelled during settle delay",
				CheckedAt: res.CheckedAt,
			}
		case <-o.clock.After(o.settleDelay):
		}
		return o.prober.Check(ctx, op.node.Address)
	})
}

func (o *Orchestrator) runHealthLoop(ctx context.Context, op *operation, phase string, pr poll.Probe) error {
	hook := func(attempt int, res types.HealthCheckResult) {
		metrics.PollAttemptsTotal.WithLabelValues(phase, string(res.State)).Inc()
		evt := op.logger.Info()
		if !res.Healthy() {
			evt = op.logger.Warn()
		}
		evt.Str("phase", phase).Int("attempt", attempt).Str("state", string(res.State)).Str("reason", res.Reason).Msg("health poll")
		o.publish(events.EventPollAttempt, op.node.Name, string(res.State))
	}

	poller := poll.New(poll.WithClock(o.clock), poll.WithAttemptHook(hook))
	res, err := poller.Run(ctx, op.policy, pr)
	metrics.PollDuration.WithLabelValues(phase).Observe(res.Elapsed.Seconds())
	if err != nil {
		return errors.Wrapf(err, "%s health poll cancelled", phase)
	}
	if res.Status == types.OutcomeTimedOut {
		op.outcome.Status = types.OutcomeTimedOut
		return errors.Errorf("%s health poll exhausted budget (%s after %d attempts, last state %s)",
			phase, res.Bound, res.Attempts, res.Last.State)
	}
	return nil
}

func (o *Orchestrator) awaitConnectionState(ctx context.Context, op *operation, want types.ConnectionState) error {
	res, err := o.poller.RunCondition(ctx, op.policy, func(ctx context.Context) (bool, error) {
		state, err := o.infra.GetConnectionState(ctx, op.node)
		if err != nil {
			return false, errors.Wrap(err, "query connection state")
		}
		return state == want, nil
	})
	if err != nil {
		return err
	}
	if res.Status == types.OutcomeTimedOut {
		op.outcome.Status = types.OutcomeTimedOut
		return errors.Errorf("node did not reach %s state (%s after %d attempts)", want, res.Bound, res.Attempts)
	}
	return nil
}

// setPhase records a confirmed phase transition on the node
func (o *Orchestrator) setPhase(op *operation, phase types.LifecyclePhase) {
	op.node.Phase = phase
	op.node.LastTransition = o.clock.Now()
	op.outcome.Phases = append(op.outcome.Phases, phase)

	op.logger.Info().Str("phase", string(phase)).Msg("phase transition")
	o.publish(events.EventPhaseChanged, op.node.Name, string(phase))

	if o.journal != nil {
		if err := o.journal.RecordTransition(journal.Transition{
			OperationID: op.id,
			Node:        op.node.Name,
			Phase:       phase,
			At:          op.node.LastTransition,
		}); err != nil {
			op.logger.Warn().Err(err).Msg("failed to journal transition")
		}
	}
}

func (o *Orchestrator) finish(op *operation, start time.Time) {
	metrics.OperationOutcomesTotal.WithLabelValues(op.kind, string(op.outcome.Status)).Inc()

	summary := op.logger.Info()
	if op.outcome.Status != types.OutcomeSuccess {
		summary = op.logger.Error().Err(op.outcome.Cause)
	}
	// The elapsed summary is reported regardless of outcome.
	summary.Str("status", string(op.outcome.Status)).Dur("elapsed", op.outcome.Elapsed).Msg("operation finished")

	o.publish(events.EventOperationDone, op.node.Name, string(op.outcome.Status))

	if o.journal != nil {
		cause := ""
		if op.outcome.Cause != nil {
			cause = op.outcome.Cause.Error()
		}
		if err := o.journal.RecordOperation(journal.Operation{
			ID:         op.id,
			Kind:       op.kind,
			Node:       op.node.Name,
			Status:     op.outcome.Status,
			Cause:      cause,
			StartedAt:  start,
			FinishedAt: o.clock.Now(),
		}); err != nil {
			op.logger.Warn().Err(err).Msg("failed to journal operation")
		}
	}
}

func (o *Orchestrator) publish(t events.EventType, node, msg string) {
	if o.broker == nil {
		return
	}
	o.broker.Publish(&events.Event{Type: t, Node: node, Message: msg})
}
