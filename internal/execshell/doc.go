// Package execshell provides structured helpers for invoking external tools.
//
// ShellExecutor runs git through a CommandRunner, logs every invocation with
// human-readable messages, and converts non-zero exit codes into typed errors
// so callers can inspect standard error without parsing log output.
package execshell
