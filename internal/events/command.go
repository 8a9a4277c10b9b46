package events

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const (
	publishCommandUseConstant              = "publish-action"
	publishCommandShortDescriptionConstant = "Publish a single change event to the stream"
	publishCommandLongDescriptionConstant  = "publish-action appends one change event to the configured stream without touching the local environment. Sidecars subscribed to the stream replay it."
	publishCommandExampleConstant          = "obsenv publish-action --action checkout-branch --repository ts_wep --target-revision develop"
	actionFlagNameConstant                 = "action"
	actionFlagUsageConstant                = "Action to publish (setup, reset, checkout-branch, reset-version)."
	repositoryFlagNameConstant             = "repository"
	repositoryFlagUsageConstant            = "Repository targeted by checkout-branch and reset-version."
	targetRevisionFlagNameConstant         = "target-revision"
	targetRevisionFlagUsageConstant        = "Branch or version to apply; for reset, the run branch tried before baseline versions."
	baselineBranchFlagNameConstant         = "baseline-branch"
	baselineBranchFlagUsageConstant        = "Branch of the baseline definitions used by reset."
	userFlagNameConstant                   = "user"
	userFlagUsageConstant                  = "User recorded in the event. Defaults to the invoking user."
	publishedOutputTemplateConstant        = "%s\n"
)

// StreamWriterFactory creates the client used to append events.
type StreamWriterFactory func(configuration Configuration) StreamWriter

// CommandBuilder assembles the publish-action command.
type CommandBuilder struct {
	LoggerProvider        func() *zap.Logger
	ConfigurationProvider func() Configuration
	WriterFactory         StreamWriterFactory
	UserProvider          func() string
}

// Build constructs the publish-action command.
func (builder *CommandBuilder) Build() (*cobra.Command, error) {
	command := &cobra.Command{
		Use:     publishCommandUseConstant,
		Short:   publishCommandShortDescriptionConstant,
		Long:    publishCommandLongDescriptionConstant,
		Example: publishCommandExampleConstant,
		Args:    cobra.NoArgs,
		RunE:    builder.run,
	}

	command.Flags().String(actionFlagNameConstant, "", actionFlagUsageConstant)
	command.Flags().String(repositoryFlagNameConstant, "", repositoryFlagUsageConstant)
	command.Flags().String(targetRevisionFlagNameConstant, "", targetRevisionFlagUsageConstant)
	command.Flags().String(baselineBranchFlagNameConstant, "", baselineBranchFlagUsageConstant)
	command.Flags().String(userFlagNameConstant, "", userFlagUsageConstant)
	if requiredError := command.MarkFlagRequired(actionFlagNameConstant); requiredError != nil {
		return nil, requiredError
	}

	return command, nil
}

func (builder *CommandBuilder) run(command *cobra.Command, _ []string) error {
	rawAction, _ := command.Flags().GetString(actionFlagNameConstant)
	action, actionError := ParseActionKind(rawAction)
	if actionError != nil {
		return actionError
	}

	event := ChangeEvent{Action: action}
	event.Repository, _ = command.Flags().GetString(repositoryFlagNameConstant)
	event.TargetRevision, _ = command.Flags().GetString(targetRevisionFlagNameConstant)
	event.BaselineBranch, _ = command.Flags().GetString(baselineBranchFlagNameConstant)
	event.User, _ = command.Flags().GetString(userFlagNameConstant)
	event.Repository = strings.TrimSpace(event.Repository)
	event.TargetRevision = strings.TrimSpace(event.TargetRevision)
	event.BaselineBranch = strings.TrimSpace(event.BaselineBranch)
	if len(strings.TrimSpace(event.User)) == 0 && builder.UserProvider != nil {
		event.User = builder.UserProvider()
	}

	configuration := DefaultConfiguration()
	if builder.ConfigurationProvider != nil {
		configuration = builder.ConfigurationProvider()
	}
	configuration = configuration.Sanitize()

	publisher, publisherError := NewStreamPublisher(configuration.Name, PublisherDependencies{
		Logger: builder.resolveLogger(),
		Client: builder.resolveWriter(configuration),
	})
	if publisherError != nil {
		return publisherError
	}

	messageIdentifier, publishError := publisher.Publish(command.Context(), event)
	if publishError != nil {
		return publishError
	}

	_, printError := fmt.Fprintf(command.OutOrStdout(), publishedOutputTemplateConstant, messageIdentifier)
	return printError
}

func (builder *CommandBuilder) resolveLogger() *zap.Logger {
	if builder.LoggerProvider == nil {
		return zap.NewNop()
	}
	if logger := builder.LoggerProvider(); logger != nil {
		return logger
	}
	return zap.NewNop()
}

func (builder *CommandBuilder) resolveWriter(configuration Configuration) StreamWriter {
	if builder.WriterFactory != nil {
		return builder.WriterFactory(configuration)
	}
	return NewRedisClient(configuration)
}
