package events

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	streamNameRequiredMessageConstant     = "stream name must be provided"
	streamGroupRequiredMessageConstant    = "stream consumer group must be provided"
	streamConsumerRequiredMessageConstant = "stream consumer name must be provided"
	streamClientMissingMessageConstant    = "stream client not configured"
	publishErrorTemplateConstant          = "unable to publish %s event: %w"
	groupCreateErrorTemplateConstant      = "unable to create consumer group %s on %s: %w"
	receiveErrorTemplateConstant          = "unable to read from stream %s: %w"
	acknowledgeErrorTemplateConstant      = "unable to acknowledge message %s: %w"
	busyGroupErrorPrefixConstant          = "BUSYGROUP"
	missingGroupErrorPrefixConstant       = "NOGROUP"
	newMessagesCursorConstant             = ">"
	pendingMessagesCursorConstant         = "0"
	groupStartIdentifierConstant          = "$"
	eventPublishedMessageConstant         = "Change event published"
	consumerGroupReadyMessageConstant     = "Consumer group ready"
	consumerGroupLostMessageConstant      = "Consumer group missing, recreating on next receive"
	pendingDrainedMessageConstant         = "Pending messages replayed"
	streamLogFieldConstant                = "stream"
	groupLogFieldConstant                 = "group"
	consumerLogFieldConstant              = "consumer"
	messageIdentifierLogFieldConstant     = "message_id"
	actionLogFieldConstant                = "action"
	repositoryLogFieldConstant            = "repository"
	revisionLogFieldConstant              = "target_revision"
)

// ErrStreamNameRequired indicates a blank stream name.
var ErrStreamNameRequired = errors.New(streamNameRequiredMessageConstant)

// ErrStreamGroupRequired indicates a blank consumer group.
var ErrStreamGroupRequired = errors.New(streamGroupRequiredMessageConstant)

// ErrStreamConsumerRequired indicates a blank consumer name.
var ErrStreamConsumerRequired = errors.New(streamConsumerRequiredMessageConstant)

// ErrStreamClientNotConfigured indicates the Redis client dependency was missing.
var ErrStreamClientNotConfigured = errors.New(streamClientMissingMessageConstant)

// StreamWriter is the subset of the go-redis client used to publish events.
type StreamWriter interface {
	XAdd(executionContext context.Context, arguments *redis.XAddArgs) *redis.StringCmd
}

// StreamReader is the subset of the go-redis client used to consume events.
type StreamReader interface {
	XGroupCreateMkStream(executionContext context.Context, stream string, group string, start string) *redis.StatusCmd
	XReadGroup(executionContext context.Context, arguments *redis.XReadGroupArgs) *redis.XStreamSliceCmd
	XAck(executionContext context.Context, stream string, group string, identifiers ...string) *redis.IntCmd
}

// PublisherDependencies enumerates collaborators required by StreamPublisher.
type PublisherDependencies struct {
	Logger              *zap.Logger
	Client              StreamWriter
	Clock               func() time.Time
	IdentifierGenerator func() string
}

// StreamPublisher appends ChangeEvents to a Redis stream.
type StreamPublisher struct {
	logger              *zap.Logger
	client              StreamWriter
	streamName          string
	clock               func() time.Time
	identifierGenerator func() string
}

// NewStreamPublisher constructs a publisher writing to streamName.
func NewStreamPublisher(streamName string, dependencies PublisherDependencies) (*StreamPublisher, error) {
	trimmedStreamName := strings.TrimSpace(streamName)
	if len(trimmedStreamName) == 0 {
		return nil, ErrStreamNameRequired
	}
	if dependencies.Client == nil {
		return nil, ErrStreamClientNotConfigured
	}

	publisher := &StreamPublisher{
		logger:              dependencies.Logger,
		client:              dependencies.Client,
		streamName:          trimmedStreamName,
		clock:               dependencies.Clock,
		identifierGenerator: dependencies.IdentifierGenerator,
	}
	if publisher.logger == nil {
		publisher.logger = zap.NewNop()
	}
	if publisher.clock == nil {
		publisher.clock = time.Now
	}
	if publisher.identifierGenerator == nil {
		publisher.identifierGenerator = uuid.NewString
	}
	return publisher, nil
}

// Publish stamps the event with an identifier and timestamp when missing and appends it to the stream.
// It returns the stream message identifier.
func (publisher *StreamPublisher) Publish(executionContext context.Context, event ChangeEvent) (string, error) {
	if len(strings.TrimSpace(event.Identifier)) == 0 {
		event.Identifier = publisher.identifierGenerator()
	}
	if event.Timestamp == 0 {
		event.Timestamp = publisher.clock().UnixMilli()
	}
	if validationError := event.Validate(); validationError != nil {
		return "", fmt.Errorf(publishErrorTemplateConstant, event.Action, validationError)
	}

	fields, encodeError := EncodeChangeEvent(event)
	if encodeError != nil {
		return "", fmt.Errorf(publishErrorTemplateConstant, event.Action, encodeError)
	}

	messageIdentifier, addError := publisher.client.XAdd(executionContext, &redis.XAddArgs{
		Stream: publisher.streamName,
		Values: fields,
	}).Result()
	if addError != nil {
		return "", fmt.Errorf(publishErrorTemplateConstant, event.Action, addError)
	}

	publisher.logger.Info(
		eventPublishedMessageConstant,
		zap.String(streamLogFieldConstant, publisher.streamName),
		zap.String(messageIdentifierLogFieldConstant, messageIdentifier),
		zap.String(actionLogFieldConstant, string(event.Action)),
		zap.String(repositoryLogFieldConstant, event.Repository),
		zap.String(revisionLogFieldConstant, event.TargetRevision),
	)
	return messageIdentifier, nil
}

// Message is one raw stream entry.
type Message struct {
	Identifier string
	Fields     map[string]interface{}
}

// SourceSettings identify the stream, consumer group and consumer.
type SourceSettings struct {
	Stream       string
	Group        string
	Consumer     string
	BlockTimeout time.Duration
}

// SourceDependencies enumerates collaborators required by StreamSource.
type SourceDependencies struct {
	Logger *zap.Logger
	Client StreamReader
}

// StreamSource delivers stream entries one at a time through a consumer group.
// On first use it replays entries left unacknowledged by a previous run of the
// same consumer, then switches to new entries. Not safe for concurrent use.
type StreamSource struct {
	logger         *zap.Logger
	client         StreamReader
	settings       SourceSettings
	groupReady     bool
	pendingDrained bool
	pendingCursor  string
}

// NewStreamSource validates settings and constructs a StreamSource.
func NewStreamSource(settings SourceSettings, dependencies SourceDependencies) (*StreamSource, error) {
	trimmedSettings := SourceSettings{
		Stream:       strings.TrimSpace(settings.Stream),
		Group:        strings.TrimSpace(settings.Group),
		Consumer:     strings.TrimSpace(settings.Consumer),
		BlockTimeout: settings.BlockTimeout,
	}
	if len(trimmedSettings.Stream) == 0 {
		return nil, ErrStreamNameRequired
	}
	if len(trimmedSettings.Group) == 0 {
		return nil, ErrStreamGroupRequired
	}
	if len(trimmedSettings.Consumer) == 0 {
		return nil, ErrStreamConsumerRequired
	}
	if dependencies.Client == nil {
		return nil, ErrStreamClientNotConfigured
	}
	if trimmedSettings.BlockTimeout <= 0 {
		trimmedSettings.BlockTimeout = defaultStreamBlockTimeoutConstant
	}

	logger := dependencies.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StreamSource{
		logger:        logger,
		client:        dependencies.Client,
		settings:      trimmedSettings,
		pendingCursor: pendingMessagesCursorConstant,
	}, nil
}

// Receive blocks until the next entry is available or the context ends.
func (source *StreamSource) Receive(executionContext context.Context) (Message, error) {
	for {
		if contextError := executionContext.Err(); contextError != nil {
			return Message{}, contextError
		}

		if !source.groupReady {
			if groupError := source.ensureGroup(executionContext); groupError != nil {
				return Message{}, groupError
			}
		}

		cursor := newMessagesCursorConstant
		if !source.pendingDrained {
			cursor = source.pendingCursor
		}

		streams, readError := source.client.XReadGroup(executionContext, &redis.XReadGroupArgs{
			Group:    source.settings.Group,
			Consumer: source.settings.Consumer,
			Streams:  []string{source.settings.Stream, cursor},
			Count:    1,
			Block:    source.settings.BlockTimeout,
		}).Result()
		if readError != nil && !errors.Is(readError, redis.Nil) {
			if contextError := executionContext.Err(); contextError != nil {
				return Message{}, contextError
			}
			if strings.HasPrefix(readError.Error(), missingGroupErrorPrefixConstant) {
				source.resetGroup()
			}
			return Message{}, fmt.Errorf(receiveErrorTemplateConstant, source.settings.Stream, readError)
		}

		message, found := firstMessage(streams)
		if !found {
			if !source.pendingDrained {
				source.pendingDrained = true
				source.logger.Debug(pendingDrainedMessageConstant, zap.String(streamLogFieldConstant, source.settings.Stream), zap.String(consumerLogFieldConstant, source.settings.Consumer))
			}
			continue
		}

		if !source.pendingDrained {
			source.pendingCursor = message.Identifier
		}
		return message, nil
	}
}

// Acknowledge removes the entry from the consumer group's pending list.
func (source *StreamSource) Acknowledge(executionContext context.Context, messageIdentifier string) error {
	if _, acknowledgeError := source.client.XAck(executionContext, source.settings.Stream, source.settings.Group, messageIdentifier).Result(); acknowledgeError != nil {
		return fmt.Errorf(acknowledgeErrorTemplateConstant, messageIdentifier, acknowledgeError)
	}
	return nil
}

func (source *StreamSource) ensureGroup(executionContext context.Context) error {
	createError := source.client.XGroupCreateMkStream(executionContext, source.settings.Stream, source.settings.Group, groupStartIdentifierConstant).Err()
	if createError != nil && !strings.HasPrefix(createError.Error(), busyGroupErrorPrefixConstant) {
		return fmt.Errorf(groupCreateErrorTemplateConstant, source.settings.Group, source.settings.Stream, createError)
	}
	source.groupReady = true
	source.logger.Info(
		consumerGroupReadyMessageConstant,
		zap.String(streamLogFieldConstant, source.settings.Stream),
		zap.String(groupLogFieldConstant, source.settings.Group),
		zap.String(consumerLogFieldConstant, source.settings.Consumer),
	)
	return nil
}

// resetGroup forgets the consumer group after Redis dropped it together with
// the stream key. The next Receive recreates it and rereads pending entries.
func (source *StreamSource) resetGroup() {
	source.groupReady = false
	source.pendingDrained = false
	source.pendingCursor = pendingMessagesCursorConstant
	source.logger.Warn(consumerGroupLostMessageConstant, zap.String(streamLogFieldConstant, source.settings.Stream), zap.String(groupLogFieldConstant, source.settings.Group))
}

func firstMessage(streams []redis.XStream) (Message, bool) {
	for _, stream := range streams {
		if len(stream.Messages) > 0 {
			entry := stream.Messages[0]
			return Message{Identifier: entry.ID, Fields: entry.Values}, true
		}
	}
	return Message{}, false
}
