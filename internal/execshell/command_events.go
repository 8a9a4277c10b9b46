package execshell

// CommandEventObserver receives lifecycle notifications for every git invocation.
type CommandEventObserver interface {
	// CommandStarted is called before the runner receives the command.
	CommandStarted(command ShellCommand)
	// CommandCompleted is called once an exit code is known, zero or not.
	CommandCompleted(command ShellCommand, result ExecutionResult)
	// CommandExecutionFailed is called when the runner could not produce a result.
	CommandExecutionFailed(command ShellCommand, failure error)
}

// Subcommand reports the git subcommand of the command, or an empty string.
func (command ShellCommand) Subcommand() string {
	if len(command.Details.Arguments) == 0 {
		return ""
	}
	return command.Details.Arguments[0]
}

type noopCommandEventObserver struct{}

func (noopCommandEventObserver) CommandStarted(ShellCommand) {}

func (noopCommandEventObserver) CommandCompleted(ShellCommand, ExecutionResult) {}

func (noopCommandEventObserver) CommandExecutionFailed(ShellCommand, error) {}
