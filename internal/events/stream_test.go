package events_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/temirov/obsenv/internal/events"
)

type readResponse struct {
	streams []redis.XStream
	err     error
}

type fakeStreamClient struct {
	added          []*redis.XAddArgs
	addError       error
	groupError     error
	groupCreations int
	readResponses  []readResponse
	reads          []*redis.XReadGroupArgs
	acknowledged   []string
	cancelOnEmpty  context.CancelFunc
}

func (client *fakeStreamClient) XAdd(executionContext context.Context, arguments *redis.XAddArgs) *redis.StringCmd {
	client.added = append(client.added, arguments)
	if client.addError != nil {
		return redis.NewStringResult("", client.addError)
	}
	return redis.NewStringResult("1709658245000-0", nil)
}

func (client *fakeStreamClient) XGroupCreateMkStream(executionContext context.Context, stream string, group string, start string) *redis.StatusCmd {
	client.groupCreations++
	if client.groupError != nil {
		return redis.NewStatusResult("", client.groupError)
	}
	return redis.NewStatusResult("OK", nil)
}

func (client *fakeStreamClient) XReadGroup(executionContext context.Context, arguments *redis.XReadGroupArgs) *redis.XStreamSliceCmd {
	client.reads = append(client.reads, arguments)
	if len(client.readResponses) == 0 {
		if client.cancelOnEmpty != nil {
			client.cancelOnEmpty()
		}
		return redis.NewXStreamSliceCmdResult(nil, redis.Nil)
	}
	response := client.readResponses[0]
	client.readResponses = client.readResponses[1:]
	return redis.NewXStreamSliceCmdResult(response.streams, response.err)
}

func (client *fakeStreamClient) XAck(executionContext context.Context, stream string, group string, identifiers ...string) *redis.IntCmd {
	client.acknowledged = append(client.acknowledged, identifiers...)
	return redis.NewIntResult(int64(len(identifiers)), nil)
}

func streamEntry(identifier string, values map[string]interface{}) []redis.XStream {
	return []redis.XStream{{Stream: "lsst.obsenv.action", Messages: []redis.XMessage{{ID: identifier, Values: values}}}}
}

func TestStreamPublisherPublish(testInstance *testing.T) {
	observerCore, observedLogs := observer.New(zap.InfoLevel)
	client := &fakeStreamClient{}
	publisher, constructionError := events.NewStreamPublisher("lsst.obsenv.action", events.PublisherDependencies{
		Logger:              zap.New(observerCore),
		Client:              client,
		Clock:               func() time.Time { return time.UnixMilli(1709658245000) },
		IdentifierGenerator: func() string { return "7d1c" },
	})
	require.NoError(testInstance, constructionError)

	messageIdentifier, publishError := publisher.Publish(context.Background(), events.ChangeEvent{
		Action:         events.ActionResetVersion,
		Repository:     "ts_wep",
		TargetRevision: "1.2.3",
		User:           "saluser",
	})
	require.NoError(testInstance, publishError)
	require.Equal(testInstance, "1709658245000-0", messageIdentifier)

	require.Len(testInstance, client.added, 1)
	require.Equal(testInstance, "lsst.obsenv.action", client.added[0].Stream)
	fields, fieldsAvailable := client.added[0].Values.(map[string]interface{})
	require.True(testInstance, fieldsAvailable)
	require.Equal(testInstance, "7d1c", fields["id"])
	require.Equal(testInstance, int64(1709658245000), fields["timestamp"])
	require.Equal(testInstance, "reset-version", fields["action"])
	require.Equal(testInstance, 1, observedLogs.FilterMessage("Change event published").Len())
}

func TestStreamPublisherRejectsInvalidEvents(testInstance *testing.T) {
	client := &fakeStreamClient{}
	publisher, constructionError := events.NewStreamPublisher("lsst.obsenv.action", events.PublisherDependencies{Client: client})
	require.NoError(testInstance, constructionError)

	_, publishError := publisher.Publish(context.Background(), events.ChangeEvent{Action: events.ActionCheckoutBranch, Repository: "ts_wep"})
	require.EqualError(testInstance, publishError, "unable to publish checkout-branch event: action checkout-branch requires a target revision")
	require.Empty(testInstance, client.added)

	client.addError = errors.New("connection refused")
	_, publishError = publisher.Publish(context.Background(), events.ChangeEvent{Action: events.ActionSetup})
	require.EqualError(testInstance, publishError, "unable to publish setup event: connection refused")
}

func TestNewStreamPublisherValidatesDependencies(testInstance *testing.T) {
	_, nameError := events.NewStreamPublisher(" ", events.PublisherDependencies{Client: &fakeStreamClient{}})
	require.ErrorIs(testInstance, nameError, events.ErrStreamNameRequired)

	_, clientError := events.NewStreamPublisher("lsst.obsenv.action", events.PublisherDependencies{})
	require.ErrorIs(testInstance, clientError, events.ErrStreamClientNotConfigured)
}

func TestStreamSourceReplaysPendingThenReadsNewMessages(testInstance *testing.T) {
	client := &fakeStreamClient{
		groupError: errors.New("BUSYGROUP Consumer Group name already exists"),
		readResponses: []readResponse{
			{streams: streamEntry("1-0", map[string]interface{}{"action": "setup"})},
			{streams: []redis.XStream{{Stream: "lsst.obsenv.action"}}},
			{err: redis.Nil},
			{streams: streamEntry("2-0", map[string]interface{}{"action": "reset"})},
		},
	}
	source, constructionError := events.NewStreamSource(events.SourceSettings{
		Stream:       "lsst.obsenv.action",
		Group:        "obsenv-sidecar",
		Consumer:     "summit-01",
		BlockTimeout: time.Second,
	}, events.SourceDependencies{Client: client})
	require.NoError(testInstance, constructionError)

	firstMessage, firstError := source.Receive(context.Background())
	require.NoError(testInstance, firstError)
	require.Equal(testInstance, "1-0", firstMessage.Identifier)

	secondMessage, secondError := source.Receive(context.Background())
	require.NoError(testInstance, secondError)
	require.Equal(testInstance, "2-0", secondMessage.Identifier)
	require.Equal(testInstance, "reset", secondMessage.Fields["action"])

	require.Equal(testInstance, 1, client.groupCreations)
	require.Len(testInstance, client.reads, 4)
	require.Equal(testInstance, []string{"lsst.obsenv.action", "0"}, client.reads[0].Streams)
	require.Equal(testInstance, []string{"lsst.obsenv.action", "1-0"}, client.reads[1].Streams)
	require.Equal(testInstance, []string{"lsst.obsenv.action", ">"}, client.reads[2].Streams)
	require.Equal(testInstance, "summit-01", client.reads[3].Consumer)
	require.Equal(testInstance, int64(1), client.reads[3].Count)

	require.NoError(testInstance, source.Acknowledge(context.Background(), secondMessage.Identifier))
	require.Equal(testInstance, []string{"2-0"}, client.acknowledged)
}

func TestStreamSourceStopsOnCancellation(testInstance *testing.T) {
	executionContext, cancel := context.WithCancel(context.Background())
	defer cancel()

	client := &fakeStreamClient{cancelOnEmpty: cancel}
	source, constructionError := events.NewStreamSource(events.SourceSettings{Stream: "s", Group: "g", Consumer: "c"}, events.SourceDependencies{Client: client})
	require.NoError(testInstance, constructionError)

	_, receiveError := source.Receive(executionContext)
	require.ErrorIs(testInstance, receiveError, context.Canceled)
}

func TestStreamSourceReportsReadFailures(testInstance *testing.T) {
	client := &fakeStreamClient{readResponses: []readResponse{{err: errors.New("connection reset")}}}
	source, constructionError := events.NewStreamSource(events.SourceSettings{Stream: "s", Group: "g", Consumer: "c"}, events.SourceDependencies{Client: client})
	require.NoError(testInstance, constructionError)

	_, receiveError := source.Receive(context.Background())
	require.EqualError(testInstance, receiveError, "unable to read from stream s: connection reset")
}

func TestStreamSourceRecreatesDroppedConsumerGroup(testInstance *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	client := &fakeStreamClient{readResponses: []readResponse{
		{err: redis.Nil},
		{err: errors.New("NOGROUP No such key 'lsst.obsenv.action' or consumer group 'obsenv-sidecar' in XREADGROUP with GROUP option")},
		{streams: streamEntry("3-0", map[string]interface{}{"action": "setup"})},
	}}
	source, constructionError := events.NewStreamSource(events.SourceSettings{
		Stream:   "lsst.obsenv.action",
		Group:    "obsenv-sidecar",
		Consumer: "summit-01",
	}, events.SourceDependencies{Client: client, Logger: zap.New(core)})
	require.NoError(testInstance, constructionError)

	_, firstError := source.Receive(context.Background())
	require.Error(testInstance, firstError)
	require.Contains(testInstance, firstError.Error(), "NOGROUP")
	require.Equal(testInstance, 1, client.groupCreations)
	require.Equal(testInstance, 1, logs.FilterMessage("Consumer group missing, recreating on next receive").Len())

	message, secondError := source.Receive(context.Background())
	require.NoError(testInstance, secondError)
	require.Equal(testInstance, "3-0", message.Identifier)
	require.Equal(testInstance, 2, client.groupCreations)

	require.Len(testInstance, client.reads, 3)
	require.Equal(testInstance, []string{"lsst.obsenv.action", "0"}, client.reads[0].Streams)
	require.Equal(testInstance, []string{"lsst.obsenv.action", ">"}, client.reads[1].Streams)
	require.Equal(testInstance, []string{"lsst.obsenv.action", "0"}, client.reads[2].Streams)
}

func TestStreamSourceReportsGroupCreationFailures(testInstance *testing.T) {
	client := &fakeStreamClient{groupError: errors.New("NOAUTH Authentication required")}
	source, constructionError := events.NewStreamSource(events.SourceSettings{Stream: "s", Group: "g", Consumer: "c"}, events.SourceDependencies{Client: client})
	require.NoError(testInstance, constructionError)

	_, receiveError := source.Receive(context.Background())
	require.EqualError(testInstance, receiveError, "unable to create consumer group g on s: NOAUTH Authentication required")
}

func TestNewStreamSourceValidatesSettings(testInstance *testing.T) {
	client := &fakeStreamClient{}
	testCases := []struct {
		name          string
		settings      events.SourceSettings
		expectedError error
	}{
		{name: "stream", settings: events.SourceSettings{Group: "g", Consumer: "c"}, expectedError: events.ErrStreamNameRequired},
		{name: "group", settings: events.SourceSettings{Stream: "s", Consumer: "c"}, expectedError: events.ErrStreamGroupRequired},
		{name: "consumer", settings: events.SourceSettings{Stream: "s", Group: "g"}, expectedError: events.ErrStreamConsumerRequired},
	}
	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			_, constructionError := events.NewStreamSource(testCase.settings, events.SourceDependencies{Client: client})
			require.ErrorIs(testInstance, constructionError, testCase.expectedError)
		})
	}
}
