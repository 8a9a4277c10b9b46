package versioning_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/temirov/obsenv/internal/versioning"
)

func TestParseDefinitionLine(testInstance *testing.T) {
	testCases := []struct {
		name            string
		line            string
		expectedName    string
		expectedVersion string
		expectedOK      bool
	}{
		{name: "placeholder_prerelease", line: "ts_unit_test=X.Y.ZaN", expectedName: "ts_unit_test", expectedVersion: "X.Y.ZaN", expectedOK: true},
		{name: "release", line: "ts_wep=10.2.0", expectedName: "ts_wep", expectedVersion: "10.2.0", expectedOK: true},
		{name: "branch_with_separator", line: "summit_utils=w.2024.12", expectedName: "summit_utils", expectedVersion: "w.2024.12", expectedOK: true},
		{name: "version_stops_at_invalid_character", line: "cwfs=ticket/DM-1", expectedName: "cwfs", expectedVersion: "ticket", expectedOK: true},
		{name: "comment", line: "# cycle definitions", expectedOK: false},
		{name: "empty", line: "", expectedOK: false},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			name, version, ok := versioning.ParseDefinitionLine(testCase.line)
			require.Equal(testInstance, testCase.expectedOK, ok)
			require.Equal(testInstance, testCase.expectedName, name)
			require.Equal(testInstance, testCase.expectedVersion, version)
		})
	}
}

func TestIsValidVersion(testInstance *testing.T) {
	for _, accepted := range []string{"1.2.3", "10.200.300", "1.20.3a1", "1.20.3b1", "1.20.3rc1"} {
		require.Truef(testInstance, versioning.IsValidVersion(accepted), "expected %q to be accepted", accepted)
	}
	for _, rejected := range []string{"main", "develop", "ticket/DM-12345", "w.2023.13", "", "v1.2.3"} {
		require.Falsef(testInstance, versioning.IsValidVersion(rejected), "expected %q to be rejected", rejected)
	}
}

func TestParseSemanticVersion(testInstance *testing.T) {
	one := uint64(1)
	twelve := uint64(12)

	testCases := []struct {
		name     string
		input    string
		expected versioning.VersionSpec
		parsed   bool
	}{
		{name: "release", input: "10.200.300", expected: versioning.VersionSpec{Major: 10, Minor: 200, Patch: 300}, parsed: true},
		{name: "alpha", input: "1.20.3a1", expected: versioning.VersionSpec{Major: 1, Minor: 20, Patch: 3, PrereleaseKind: versioning.PrereleaseAlpha, PrereleaseNumber: &one}, parsed: true},
		{name: "beta", input: "1.20.3b12", expected: versioning.VersionSpec{Major: 1, Minor: 20, Patch: 3, PrereleaseKind: versioning.PrereleaseBeta, PrereleaseNumber: &twelve}, parsed: true},
		{name: "release_candidate_without_number", input: "1.0.0rc", expected: versioning.VersionSpec{Major: 1, PrereleaseKind: versioning.PrereleaseReleaseCandidate}, parsed: true},
		{name: "branch", input: "main", parsed: false},
		{name: "ticket_branch", input: "ticket/ABC-1", parsed: false},
		{name: "weekly_tag", input: "w.2023.13", parsed: false},
		{name: "trailing_text", input: "1.0.0.dev1", parsed: false},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			versionSpec, parsed := versioning.ParseSemanticVersion(testCase.input)
			require.Equal(testInstance, testCase.parsed, parsed)
			require.Equal(testInstance, testCase.expected, versionSpec)
			if parsed {
				require.Equal(testInstance, testCase.input, versionSpec.String())
			}
		})
	}
}
