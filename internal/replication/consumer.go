package replication

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/temirov/obsenv/internal/events"
)

const (
	publishingEnabledMessageConstant  = "event publishing must be disabled for the replication consumer"
	sourceMissingMessageConstant      = "event source not configured"
	dispatcherMissingMessageConstant  = "event dispatcher not configured"
	defaultRetryIntervalConstant      = 5 * time.Second
	consumerStartedMessageConstant    = "Monitoring change events"
	consumerStoppedMessageConstant    = "Change event monitoring stopped"
	receiveFailedMessageConstant      = "Unable to receive change event, retrying"
	malformedEventMessageConstant     = "Discarding malformed change event"
	eventReplayedMessageConstant      = "Change event replayed"
	eventReplayFailedMessageConstant  = "Change event replay failed"
	acknowledgeFailedMessageConstant  = "Unable to acknowledge change event"
	messageIdentifierLogFieldConstant = "message_id"
	eventIdentifierLogFieldConstant   = "event_id"
	actionLogFieldConstant            = "action"
	repositoryLogFieldConstant        = "repository"
	targetRevisionLogFieldConstant    = "target_revision"
	userLogFieldConstant              = "user"
	retryIntervalLogFieldConstant     = "retry_interval"
)

// ErrPublishingEnabled indicates the consumer was configured in a process that also publishes events.
var ErrPublishingEnabled = errors.New(publishingEnabledMessageConstant)

// ErrSourceNotConfigured indicates the event source dependency was missing.
var ErrSourceNotConfigured = errors.New(sourceMissingMessageConstant)

// ErrDispatcherNotConfigured indicates the dispatcher dependency was missing.
var ErrDispatcherNotConfigured = errors.New(dispatcherMissingMessageConstant)

// Source yields raw stream messages. events.StreamSource satisfies it.
type Source interface {
	Receive(executionContext context.Context) (events.Message, error)
	Acknowledge(executionContext context.Context, messageIdentifier string) error
}

// Dispatcher applies one decoded event to the local environment.
type Dispatcher interface {
	Dispatch(executionContext context.Context, event events.ChangeEvent) error
}

// ConsumerSettings configure the consumer loop.
type ConsumerSettings struct {
	PublishingEnabled bool
	RetryInterval     time.Duration
}

// ConsumerDependencies enumerates collaborators required by the consumer.
type ConsumerDependencies struct {
	Logger     *zap.Logger
	Source     Source
	Dispatcher Dispatcher
	Metrics    *Metrics
}

// Consumer replays change events one at a time, in stream order.
type Consumer struct {
	logger        *zap.Logger
	source        Source
	dispatcher    Dispatcher
	metrics       *Metrics
	retryInterval time.Duration
}

// NewConsumer validates the startup preconditions and constructs a Consumer.
func NewConsumer(settings ConsumerSettings, dependencies ConsumerDependencies) (*Consumer, error) {
	if settings.PublishingEnabled {
		return nil, ErrPublishingEnabled
	}
	if dependencies.Source == nil {
		return nil, ErrSourceNotConfigured
	}
	if dependencies.Dispatcher == nil {
		return nil, ErrDispatcherNotConfigured
	}

	consumer := &Consumer{
		logger:        dependencies.Logger,
		source:        dependencies.Source,
		dispatcher:    dependencies.Dispatcher,
		metrics:       dependencies.Metrics,
		retryInterval: settings.RetryInterval,
	}
	if consumer.logger == nil {
		consumer.logger = zap.NewNop()
	}
	if consumer.retryInterval <= 0 {
		consumer.retryInterval = defaultRetryIntervalConstant
	}
	return consumer, nil
}

// Run receives and replays events until the context is cancelled. Malformed
// events and failed replays are logged and acknowledged; receive errors are
// retried after the retry interval. Run returns nil on cancellation.
func (consumer *Consumer) Run(executionContext context.Context) error {
	consumer.logger.Info(consumerStartedMessageConstant)
	defer consumer.logger.Info(consumerStoppedMessageConstant)

	for {
		message, receiveError := consumer.source.Receive(executionContext)
		if receiveError != nil {
			if executionContext.Err() != nil {
				return nil
			}
			consumer.metrics.recordReceiveFailure()
			consumer.logger.Warn(receiveFailedMessageConstant, zap.Duration(retryIntervalLogFieldConstant, consumer.retryInterval), zap.Error(receiveError))
			if !consumer.wait(executionContext) {
				return nil
			}
			continue
		}

		consumer.handle(executionContext, message)
	}
}

func (consumer *Consumer) handle(executionContext context.Context, message events.Message) {
	consumer.metrics.recordReceived()

	event, decodeError := events.DecodeChangeEvent(message.Identifier, message.Fields)
	if decodeError != nil {
		consumer.metrics.recordMalformed()
		consumer.logger.Error(malformedEventMessageConstant, zap.String(messageIdentifierLogFieldConstant, message.Identifier), zap.Error(decodeError))
		consumer.acknowledge(executionContext, message.Identifier)
		return
	}

	eventFields := []zap.Field{
		zap.String(messageIdentifierLogFieldConstant, message.Identifier),
		zap.String(eventIdentifierLogFieldConstant, event.Identifier),
		zap.String(actionLogFieldConstant, string(event.Action)),
		zap.String(repositoryLogFieldConstant, event.Repository),
		zap.String(targetRevisionLogFieldConstant, event.TargetRevision),
		zap.String(userLogFieldConstant, event.User),
	}

	if dispatchError := consumer.dispatcher.Dispatch(executionContext, event); dispatchError != nil {
		consumer.metrics.recordFailed(event.Action)
		consumer.logger.Error(eventReplayFailedMessageConstant, append(eventFields, zap.Error(dispatchError))...)
	} else {
		consumer.metrics.recordApplied(event.Action, event.Timestamp)
		consumer.logger.Info(eventReplayedMessageConstant, eventFields...)
	}

	consumer.acknowledge(executionContext, message.Identifier)
}

func (consumer *Consumer) acknowledge(executionContext context.Context, messageIdentifier string) {
	if acknowledgeError := consumer.source.Acknowledge(executionContext, messageIdentifier); acknowledgeError != nil {
		consumer.logger.Warn(acknowledgeFailedMessageConstant, zap.String(messageIdentifierLogFieldConstant, messageIdentifier), zap.Error(acknowledgeError))
	}
}

func (consumer *Consumer) wait(executionContext context.Context) bool {
	timer := time.NewTimer(consumer.retryInterval)
	defer timer.Stop()
	select {
	case <-executionContext.Done():
		return false
	case <-timer.C:
		return true
	}
}
