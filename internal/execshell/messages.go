package execshell

import (
	"fmt"
	"strings"
)

type messageStage int

const (
	messageStageStart messageStage = iota
	messageStageSuccess
	messageStageFailure
	messageStageExecutionFailure
)

const (
	commandArgumentsJoinSeparatorConstant  = " "
	referenceListSeparatorConstant         = ", "
	unknownFailureMessageConstant          = "unknown error"
	currentDirectoryLabelConstant          = "current directory"
	unknownValueLabelConstant              = "unknown"
	flagPrefixConstant                     = "-"
	gitTagsFlagConstant                    = "--tags"
	workingDirectorySuffixTemplateConstant = " (in %s)"
	standardErrorSuffixTemplateConstant    = ": %s"
)

// messageTemplates holds one format string per lifecycle stage. Failure
// templates receive the exit code and the stderr suffix after the subject;
// execution failure templates receive the failure description.
type messageTemplates struct {
	start            string
	success          string
	failure          string
	executionFailure string
}

// messageSubject carries the stage-specific arguments for messageTemplates.
type messageSubject struct {
	templates        messageTemplates
	start            []any
	success          []any
	failure          []any
	executionFailure []any
}

type commandView struct {
	arguments  []string
	positional []string
	directory  string
	result     ExecutionResult
}

type subjectDescriber func(view commandView) messageSubject

var genericTemplates = messageTemplates{
	start:            "Running %s",
	success:          "Completed %s",
	failure:          "%s failed with exit code %d%s",
	executionFailure: "%s failed: %s",
}

var gitSubjectDescribers = map[string]subjectDescriber{
	"clone":        describeClone,
	"fetch":        describeFetch,
	"rev-parse":    describeRevParse,
	"update-ref":   describeUpdateRef,
	"symbolic-ref": describeSymbolicRef,
	"reset":        describeReset,
	"describe":     describeHead,
}

// CommandMessageFormatter builds human-readable messages for command lifecycle events.
type CommandMessageFormatter struct{}

// BuildStartedMessage describes a command about to run.
func (formatter CommandMessageFormatter) BuildStartedMessage(command ShellCommand) string {
	return formatter.render(command, ExecutionResult{}, nil, messageStageStart)
}

// BuildSuccessMessage describes a command that exited with code zero.
func (formatter CommandMessageFormatter) BuildSuccessMessage(command ShellCommand, result ExecutionResult) string {
	return formatter.render(command, result, nil, messageStageSuccess)
}

// BuildFailureMessage describes a command that exited with a non-zero code.
func (formatter CommandMessageFormatter) BuildFailureMessage(command ShellCommand, result ExecutionResult) string {
	return formatter.render(command, result, nil, messageStageFailure)
}

// BuildExecutionFailureMessage describes a command that could not run at all.
func (formatter CommandMessageFormatter) BuildExecutionFailureMessage(command ShellCommand, failure error) string {
	return formatter.render(command, ExecutionResult{}, failure, messageStageExecutionFailure)
}

func (formatter CommandMessageFormatter) render(command ShellCommand, result ExecutionResult, failure error, stage messageStage) string {
	subject := describeSubject(command, result)

	switch stage {
	case messageStageStart:
		return fmt.Sprintf(subject.templates.start, subject.start...)
	case messageStageSuccess:
		return fmt.Sprintf(subject.templates.success, subject.success...)
	case messageStageFailure:
		arguments := append(append([]any{}, subject.failure...), result.ExitCode, standardErrorSuffix(result.StandardError))
		return fmt.Sprintf(subject.templates.failure, arguments...)
	case messageStageExecutionFailure:
		arguments := append(append([]any{}, subject.executionFailure...), failureDescription(failure))
		return fmt.Sprintf(subject.templates.executionFailure, arguments...)
	default:
		return ""
	}
}

func describeSubject(command ShellCommand, result ExecutionResult) messageSubject {
	arguments := command.Details.Arguments
	if command.Name == CommandGit && len(arguments) > 0 {
		if describer, known := gitSubjectDescribers[strings.TrimSpace(arguments[0])]; known {
			return describer(commandView{
				arguments:  arguments,
				positional: positionalArguments(arguments[1:]),
				directory:  workingDirectoryLabel(command.Details.WorkingDirectory),
				result:     result,
			})
		}
	}

	label := describeCommand(command)
	if directory := strings.TrimSpace(command.Details.WorkingDirectory); len(directory) > 0 {
		label += fmt.Sprintf(workingDirectorySuffixTemplateConstant, directory)
	}
	return uniformSubject(genericTemplates, label)
}

func uniformSubject(templates messageTemplates, values ...any) messageSubject {
	return messageSubject{templates: templates, start: values, success: values, failure: values, executionFailure: values}
}

func describeClone(view commandView) messageSubject {
	return uniformSubject(messageTemplates{
		start:            "Cloning %s into %s",
		success:          "Cloned %s into %s",
		failure:          "Failed to clone %s into %s (exit code %d%s)",
		executionFailure: "Unable to clone %s into %s: %s",
	}, valueAt(view.positional, 0), valueAt(view.positional, 1))
}

func describeFetch(view commandView) messageSubject {
	remote := valueAt(view.positional, 0)
	var references string
	if len(view.positional) > 1 {
		references = strings.Join(view.positional[1:], referenceListSeparatorConstant)
	}

	if len(references) == 0 && containsArgument(view.arguments, gitTagsFlagConstant) {
		return uniformSubject(messageTemplates{
			start:            "Fetching tags from %s in %s",
			success:          "Fetched tags from %s in %s",
			failure:          "Failed to fetch tags from %s in %s (exit code %d%s)",
			executionFailure: "Unable to fetch from %s in %s: %s",
		}, remote, view.directory)
	}

	subject := uniformSubject(messageTemplates{
		start:            "Fetching %s from %s in %s",
		success:          "Fetched %s from %s in %s",
		failure:          "Failed to fetch %s from %s in %s (exit code %d%s)",
		executionFailure: "Unable to fetch from %s in %s: %s",
	}, orUnknown(references), remote, view.directory)
	subject.executionFailure = []any{remote, view.directory}
	return subject
}

func describeRevParse(view commandView) messageSubject {
	reference := lastArgument(view.arguments)
	subject := uniformSubject(messageTemplates{
		start:            "Resolving %s in %s",
		success:          "%s in %s resolved to %s",
		failure:          "Could not resolve %s in %s (exit code %d%s)",
		executionFailure: "Unable to resolve %s in %s: %s",
	}, reference, view.directory)
	subject.success = []any{reference, view.directory, orUnknown(view.result.StandardOutput)}
	return subject
}

func describeUpdateRef(view commandView) messageSubject {
	return uniformSubject(messageTemplates{
		start:            "Moving %s to %s in %s",
		success:          "%s now points to %s in %s",
		failure:          "Failed to move %s to %s in %s (exit code %d%s)",
		executionFailure: "Unable to move %s to %s in %s: %s",
	}, valueAt(view.positional, 0), valueAt(view.positional, 1), view.directory)
}

func describeSymbolicRef(view commandView) messageSubject {
	return uniformSubject(messageTemplates{
		start:            "Pointing HEAD at %s in %s",
		success:          "HEAD now follows %s in %s",
		failure:          "Failed to point HEAD at %s in %s (exit code %d%s)",
		executionFailure: "Unable to point HEAD at %s in %s: %s",
	}, lastArgument(view.arguments), view.directory)
}

func describeReset(view commandView) messageSubject {
	return uniformSubject(messageTemplates{
		start:            "Resetting %s to %s",
		success:          "Reset %s to %s",
		failure:          "Failed to reset %s to %s (exit code %d%s)",
		executionFailure: "Unable to reset %s to %s: %s",
	}, view.directory, lastArgument(view.arguments))
}

func describeHead(view commandView) messageSubject {
	subject := uniformSubject(messageTemplates{
		start:            "Describing HEAD in %s",
		success:          "HEAD in %s is %s",
		failure:          "No description available for HEAD in %s (exit code %d%s)",
		executionFailure: "Unable to describe HEAD in %s: %s",
	}, view.directory)
	subject.success = []any{view.directory, orUnknown(view.result.StandardOutput)}
	return subject
}

func workingDirectoryLabel(workingDirectory string) string {
	if trimmed := strings.TrimSpace(workingDirectory); len(trimmed) > 0 {
		return trimmed
	}
	return currentDirectoryLabelConstant
}

func standardErrorSuffix(standardError string) string {
	if trimmed := strings.TrimSpace(standardError); len(trimmed) > 0 {
		return fmt.Sprintf(standardErrorSuffixTemplateConstant, trimmed)
	}
	return ""
}

func failureDescription(failure error) string {
	if failure == nil {
		return unknownFailureMessageConstant
	}
	return failure.Error()
}

// positionalArguments drops flags and blank arguments.
func positionalArguments(arguments []string) []string {
	positional := make([]string, 0, len(arguments))
	for _, argument := range arguments {
		trimmed := strings.TrimSpace(argument)
		if len(trimmed) > 0 && !strings.HasPrefix(trimmed, flagPrefixConstant) {
			positional = append(positional, trimmed)
		}
	}
	return positional
}

func lastArgument(arguments []string) string {
	if len(arguments) == 0 {
		return unknownValueLabelConstant
	}
	return orUnknown(arguments[len(arguments)-1])
}

func valueAt(values []string, index int) string {
	if index < len(values) {
		return orUnknown(values[index])
	}
	return unknownValueLabelConstant
}

func orUnknown(value string) string {
	if trimmed := strings.TrimSpace(value); len(trimmed) > 0 {
		return trimmed
	}
	return unknownValueLabelConstant
}

func containsArgument(arguments []string, value string) bool {
	for _, argument := range arguments {
		if strings.TrimSpace(argument) == value {
			return true
		}
	}
	return false
}
