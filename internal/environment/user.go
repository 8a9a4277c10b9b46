package environment

import (
	"os"
	"strings"
)

const (
	sudoUserEnvironmentKeyConstant = "SUDO_USER"
	userEnvironmentKeyConstant     = "USER"
	unknownUserConstant            = "Unknown"
)

// EnvironmentLookup matches os.LookupEnv.
type EnvironmentLookup func(key string) (string, bool)

// ResolveUser returns the invoking user, preferring the account behind sudo.
func ResolveUser(lookup EnvironmentLookup) string {
	if lookup == nil {
		lookup = os.LookupEnv
	}
	for _, environmentKey := range []string{sudoUserEnvironmentKeyConstant, userEnvironmentKeyConstant} {
		if value, exists := lookup(environmentKey); exists && len(strings.TrimSpace(value)) > 0 {
			return strings.TrimSpace(value)
		}
	}
	return unknownUserConstant
}
