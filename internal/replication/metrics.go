package replication

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/temirov/obsenv/internal/events"
	"github.com/temirov/obsenv/internal/execshell"
)

const (
	metricsNamespaceConstant      = "obsenv"
	replicationSubsystemConstant  = "replication"
	gitSubsystemConstant          = "git"
	actionLabelConstant           = "action"
	subcommandLabelConstant       = "subcommand"
	outcomeLabelConstant          = "outcome"
	outcomeSucceededConstant      = "succeeded"
	outcomeExitedConstant         = "exited_nonzero"
	outcomeNotStartedConstant     = "not_started"
	millisecondsPerSecondConstant = 1000
)

// Metrics exposes consumer and git command counters. A nil *Metrics records nothing.
type Metrics struct {
	eventsReceived     prometheus.Counter
	eventsMalformed    prometheus.Counter
	eventsApplied      *prometheus.CounterVec
	eventsFailed       *prometheus.CounterVec
	receiveFailures    prometheus.Counter
	lastEventTimestamp prometheus.Gauge
	gitCommands        *prometheus.CounterVec
}

// NewMetrics creates the collectors and registers them with registerer
// (prometheus.DefaultRegisterer when nil). Collectors already registered by an
// earlier call are reused.
func NewMetrics(registerer prometheus.Registerer) (*Metrics, error) {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	metrics := &Metrics{
		eventsReceived: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespaceConstant,
			Subsystem: replicationSubsystemConstant,
			Name:      "events_received_total",
			Help:      "Change events read from the stream.",
		}),
		eventsMalformed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespaceConstant,
			Subsystem: replicationSubsystemConstant,
			Name:      "events_malformed_total",
			Help:      "Change events discarded because they could not be decoded.",
		}),
		eventsApplied: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespaceConstant,
			Subsystem: replicationSubsystemConstant,
			Name:      "events_applied_total",
			Help:      "Change events replayed successfully, by action.",
		}, []string{actionLabelConstant}),
		eventsFailed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespaceConstant,
			Subsystem: replicationSubsystemConstant,
			Name:      "events_failed_total",
			Help:      "Change events whose replay failed, by action.",
		}, []string{actionLabelConstant}),
		receiveFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespaceConstant,
			Subsystem: replicationSubsystemConstant,
			Name:      "receive_failures_total",
			Help:      "Failed reads from the event stream.",
		}),
		lastEventTimestamp: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespaceConstant,
			Subsystem: replicationSubsystemConstant,
			Name:      "last_applied_event_timestamp_seconds",
			Help:      "Publication time of the most recently replayed change event.",
		}),
		gitCommands: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespaceConstant,
			Subsystem: gitSubsystemConstant,
			Name:      "commands_total",
			Help:      "git invocations by subcommand and outcome.",
		}, []string{subcommandLabelConstant, outcomeLabelConstant}),
	}

	var registrationError error
	metrics.eventsReceived, registrationError = registerCollector(registerer, metrics.eventsReceived)
	if registrationError != nil {
		return nil, registrationError
	}
	metrics.eventsMalformed, registrationError = registerCollector(registerer, metrics.eventsMalformed)
	if registrationError != nil {
		return nil, registrationError
	}
	metrics.eventsApplied, registrationError = registerCollector(registerer, metrics.eventsApplied)
	if registrationError != nil {
		return nil, registrationError
	}
	metrics.eventsFailed, registrationError = registerCollector(registerer, metrics.eventsFailed)
	if registrationError != nil {
		return nil, registrationError
	}
	metrics.receiveFailures, registrationError = registerCollector(registerer, metrics.receiveFailures)
	if registrationError != nil {
		return nil, registrationError
	}
	metrics.lastEventTimestamp, registrationError = registerCollector(registerer, metrics.lastEventTimestamp)
	if registrationError != nil {
		return nil, registrationError
	}
	metrics.gitCommands, registrationError = registerCollector(registerer, metrics.gitCommands)
	if registrationError != nil {
		return nil, registrationError
	}
	return metrics, nil
}

func registerCollector[CollectorType prometheus.Collector](registerer prometheus.Registerer, collector CollectorType) (CollectorType, error) {
	if registrationError := registerer.Register(collector); registrationError != nil {
		var alreadyRegistered prometheus.AlreadyRegisteredError
		if errors.As(registrationError, &alreadyRegistered) {
			if existing, sameType := alreadyRegistered.ExistingCollector.(CollectorType); sameType {
				return existing, nil
			}
		}
		return collector, registrationError
	}
	return collector, nil
}

// CommandObserver returns an execshell observer counting git invocations.
func (metrics *Metrics) CommandObserver() execshell.CommandEventObserver {
	return gitCommandObserver{metrics: metrics}
}

func (metrics *Metrics) recordReceived() {
	if metrics == nil {
		return
	}
	metrics.eventsReceived.Inc()
}

func (metrics *Metrics) recordMalformed() {
	if metrics == nil {
		return
	}
	metrics.eventsMalformed.Inc()
}

func (metrics *Metrics) recordApplied(action events.ActionKind, timestampMilliseconds int64) {
	if metrics == nil {
		return
	}
	metrics.eventsApplied.WithLabelValues(string(action)).Inc()
	if timestampMilliseconds > 0 {
		metrics.lastEventTimestamp.Set(float64(timestampMilliseconds) / millisecondsPerSecondConstant)
	}
}

func (metrics *Metrics) recordFailed(action events.ActionKind) {
	if metrics == nil {
		return
	}
	metrics.eventsFailed.WithLabelValues(string(action)).Inc()
}

func (metrics *Metrics) recordReceiveFailure() {
	if metrics == nil {
		return
	}
	metrics.receiveFailures.Inc()
}

func (metrics *Metrics) recordGitCommand(command execshell.ShellCommand, outcome string) {
	if metrics == nil {
		return
	}
	metrics.gitCommands.WithLabelValues(command.Subcommand(), outcome).Inc()
}

type gitCommandObserver struct {
	metrics *Metrics
}

func (observer gitCommandObserver) CommandStarted(execshell.ShellCommand) {}

func (observer gitCommandObserver) CommandCompleted(command execshell.ShellCommand, result execshell.ExecutionResult) {
	outcome := outcomeSucceededConstant
	if result.ExitCode != 0 {
		outcome = outcomeExitedConstant
	}
	observer.metrics.recordGitCommand(command, outcome)
}

func (observer gitCommandObserver) CommandExecutionFailed(command execshell.ShellCommand, _ error) {
	observer.metrics.recordGitCommand(command, outcomeNotStartedConstant)
}
