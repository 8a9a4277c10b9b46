package replication_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/temirov/obsenv/internal/events"
	"github.com/temirov/obsenv/internal/replication"
)

type receiveResult struct {
	message events.Message
	err     error
}

type scriptedSource struct {
	results      []receiveResult
	acknowledged []string
	ackError     error
	cancel       context.CancelFunc
}

func (source *scriptedSource) Receive(executionContext context.Context) (events.Message, error) {
	if len(source.results) == 0 {
		source.cancel()
		<-executionContext.Done()
		return events.Message{}, executionContext.Err()
	}
	result := source.results[0]
	source.results = source.results[1:]
	return result.message, result.err
}

func (source *scriptedSource) Acknowledge(executionContext context.Context, messageIdentifier string) error {
	source.acknowledged = append(source.acknowledged, messageIdentifier)
	return source.ackError
}

type recordingDispatcher struct {
	dispatched []events.ChangeEvent
	failures   map[string]error
}

func (dispatcher *recordingDispatcher) Dispatch(executionContext context.Context, event events.ChangeEvent) error {
	dispatcher.dispatched = append(dispatcher.dispatched, event)
	return dispatcher.failures[event.Repository]
}

func changeMessage(identifier string, fields map[string]interface{}) receiveResult {
	return receiveResult{message: events.Message{Identifier: identifier, Fields: fields}}
}

func checkoutFields(repository string) map[string]interface{} {
	return map[string]interface{}{
		"id":              "event-" + repository,
		"timestamp":       "1709658245000",
		"action":          "checkout-branch",
		"repository":      repository,
		"target_revision": "tickets/DM-42",
		"user":            "saluser",
	}
}

func TestNewConsumerRejectsPublishingProcess(testInstance *testing.T) {
	consumer, constructionError := replication.NewConsumer(
		replication.ConsumerSettings{PublishingEnabled: true},
		replication.ConsumerDependencies{Source: &scriptedSource{}, Dispatcher: &recordingDispatcher{}},
	)
	require.ErrorIs(testInstance, constructionError, replication.ErrPublishingEnabled)
	require.Nil(testInstance, consumer)
}

func TestNewConsumerValidatesDependencies(testInstance *testing.T) {
	testCases := []struct {
		name          string
		dependencies  replication.ConsumerDependencies
		expectedError error
	}{
		{
			name:          "missing source",
			dependencies:  replication.ConsumerDependencies{Dispatcher: &recordingDispatcher{}},
			expectedError: replication.ErrSourceNotConfigured,
		},
		{
			name:          "missing dispatcher",
			dependencies:  replication.ConsumerDependencies{Source: &scriptedSource{}},
			expectedError: replication.ErrDispatcherNotConfigured,
		},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(subTest *testing.T) {
			_, constructionError := replication.NewConsumer(replication.ConsumerSettings{}, testCase.dependencies)
			require.ErrorIs(subTest, constructionError, testCase.expectedError)
		})
	}
}

func TestConsumerRunContinuesPastMalformedAndFailedEvents(testInstance *testing.T) {
	executionContext, cancel := context.WithCancel(context.Background())
	defer cancel()

	source := &scriptedSource{
		cancel: cancel,
		results: []receiveResult{
			changeMessage("1-0", map[string]interface{}{"action": "teleport"}),
			changeMessage("2-0", checkoutFields("ts_wep")),
			changeMessage("3-0", checkoutFields("ts_ofc")),
		},
	}
	dispatcher := &recordingDispatcher{failures: map[string]error{"ts_wep": errors.New("branch not found")}}

	observerCore, observedLogs := observer.New(zap.InfoLevel)
	consumer, constructionError := replication.NewConsumer(
		replication.ConsumerSettings{},
		replication.ConsumerDependencies{Logger: zap.New(observerCore), Source: source, Dispatcher: dispatcher},
	)
	require.NoError(testInstance, constructionError)

	require.NoError(testInstance, consumer.Run(executionContext))

	require.Len(testInstance, dispatcher.dispatched, 2)
	require.Equal(testInstance, "ts_wep", dispatcher.dispatched[0].Repository)
	require.Equal(testInstance, "ts_ofc", dispatcher.dispatched[1].Repository)
	require.Equal(testInstance, []string{"1-0", "2-0", "3-0"}, source.acknowledged)

	require.Equal(testInstance, 1, observedLogs.FilterMessage("Discarding malformed change event").Len())
	failedEntries := observedLogs.FilterMessage("Change event replay failed").All()
	require.Len(testInstance, failedEntries, 1)
	require.Equal(testInstance, "ts_wep", failedEntries[0].ContextMap()["repository"])
	require.Equal(testInstance, 1, observedLogs.FilterMessage("Change event replayed").Len())
}

func TestConsumerRunRetriesAfterReceiveFailure(testInstance *testing.T) {
	executionContext, cancel := context.WithCancel(context.Background())
	defer cancel()

	source := &scriptedSource{
		cancel: cancel,
		results: []receiveResult{
			{err: errors.New("connection refused")},
			changeMessage("1-0", checkoutFields("ts_wep")),
		},
	}
	dispatcher := &recordingDispatcher{}

	observerCore, observedLogs := observer.New(zap.InfoLevel)
	consumer, constructionError := replication.NewConsumer(
		replication.ConsumerSettings{RetryInterval: time.Millisecond},
		replication.ConsumerDependencies{Logger: zap.New(observerCore), Source: source, Dispatcher: dispatcher},
	)
	require.NoError(testInstance, constructionError)

	require.NoError(testInstance, consumer.Run(executionContext))
	require.Len(testInstance, dispatcher.dispatched, 1)
	require.Equal(testInstance, 1, observedLogs.FilterMessage("Unable to receive change event, retrying").Len())
}

func TestConsumerRunLogsAcknowledgeFailures(testInstance *testing.T) {
	executionContext, cancel := context.WithCancel(context.Background())
	defer cancel()

	source := &scriptedSource{
		cancel:   cancel,
		ackError: errors.New("NOGROUP"),
		results:  []receiveResult{changeMessage("1-0", checkoutFields("ts_wep"))},
	}

	observerCore, observedLogs := observer.New(zap.InfoLevel)
	consumer, constructionError := replication.NewConsumer(
		replication.ConsumerSettings{},
		replication.ConsumerDependencies{Logger: zap.New(observerCore), Source: source, Dispatcher: &recordingDispatcher{}},
	)
	require.NoError(testInstance, constructionError)

	require.NoError(testInstance, consumer.Run(executionContext))
	require.Equal(testInstance, 1, observedLogs.FilterMessage("Unable to acknowledge change event").Len())
}

func TestConsumerRunReturnsWhenCancelledDuringRetry(testInstance *testing.T) {
	executionContext, cancel := context.WithCancel(context.Background())
	source := &scriptedSource{
		cancel:  cancel,
		results: []receiveResult{{err: errors.New("connection refused")}},
	}
	consumer, constructionError := replication.NewConsumer(
		replication.ConsumerSettings{RetryInterval: time.Hour},
		replication.ConsumerDependencies{Source: source, Dispatcher: &recordingDispatcher{}},
	)
	require.NoError(testInstance, constructionError)

	cancel()
	require.NoError(testInstance, consumer.Run(executionContext))
}
