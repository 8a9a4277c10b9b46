package utils

import (
	"os"
	"path/filepath"
	"strings"
)

const (
	homeDirectorySymbolConstant = "~"
)

// HomeDirectoryProvider resolves the current user's home directory path.
type HomeDirectoryProvider func() (string, error)

// ExpandHomeDirectory resolves a leading "~" or "~/" to the home directory reported by provider.
// Paths without the shortcut, and paths that cannot be resolved, are returned cleaned but otherwise unchanged.
func ExpandHomeDirectory(candidatePath string, provider HomeDirectoryProvider) string {
	trimmedPath := strings.TrimSpace(candidatePath)
	if len(trimmedPath) == 0 {
		return trimmedPath
	}
	if !strings.HasPrefix(trimmedPath, homeDirectorySymbolConstant) {
		return filepath.Clean(trimmedPath)
	}

	remainder := strings.TrimPrefix(trimmedPath, homeDirectorySymbolConstant)
	if len(remainder) > 0 && remainder[0] != '/' && remainder[0] != os.PathSeparator {
		return filepath.Clean(trimmedPath)
	}

	if provider == nil {
		provider = os.UserHomeDir
	}
	homeDirectory, homeDirectoryError := provider()
	if homeDirectoryError != nil || len(homeDirectory) == 0 {
		return filepath.Clean(trimmedPath)
	}

	return filepath.Join(homeDirectory, remainder)
}
