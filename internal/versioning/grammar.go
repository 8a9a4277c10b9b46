package versioning

import (
	"regexp"
	"strconv"
)

const (
	definitionLinePatternConstant   = `(?P<name>[a-zA-Z0-9_]*)=(?P<version>[a-zA-Z0-9._]*)`
	validVersionPatternConstant     = `^[0-9]+\.[0-9]+\.[0-9]+`
	semanticVersionPatternConstant  = `^([0-9]+)\.([0-9]+)\.([0-9]+)(?:(a|b|rc)([0-9]+)?)?$`
	definitionNameGroupConstant     = "name"
	definitionVersionGroupConstant  = "version"
	alphaMarkerConstant             = "a"
	betaMarkerConstant              = "b"
	releaseCandidateMarkerConstant  = "rc"
	numericComponentBaseConstant    = 10
	numericComponentBitSizeConstant = 64
)

var (
	definitionLinePattern  = regexp.MustCompile(definitionLinePatternConstant)
	validVersionPattern    = regexp.MustCompile(validVersionPatternConstant)
	semanticVersionPattern = regexp.MustCompile(semanticVersionPatternConstant)
)

// PrereleaseKind identifies the prerelease stage of a version.
type PrereleaseKind int

// Supported prerelease kinds.
const (
	PrereleaseNone PrereleaseKind = iota
	PrereleaseAlpha
	PrereleaseBeta
	PrereleaseReleaseCandidate
)

var prereleaseMarkers = map[string]PrereleaseKind{
	alphaMarkerConstant:            PrereleaseAlpha,
	betaMarkerConstant:             PrereleaseBeta,
	releaseCandidateMarkerConstant: PrereleaseReleaseCandidate,
}

var prereleaseKindMarkers = map[PrereleaseKind]string{
	PrereleaseAlpha:            alphaMarkerConstant,
	PrereleaseBeta:             betaMarkerConstant,
	PrereleaseReleaseCandidate: releaseCandidateMarkerConstant,
}

// VersionSpec is a parsed MAJOR.MINOR.PATCH version with optional prerelease.
type VersionSpec struct {
	Major            uint64
	Minor            uint64
	Patch            uint64
	PrereleaseKind   PrereleaseKind
	PrereleaseNumber *uint64
}

// ParseDefinitionLine extracts NAME=VERSION from a baseline definitions line.
// Lines without an assignment report ok=false.
func ParseDefinitionLine(line string) (name string, version string, ok bool) {
	submatches := definitionLinePattern.FindStringSubmatch(line)
	if submatches == nil {
		return "", "", false
	}
	name = submatches[definitionLinePattern.SubexpIndex(definitionNameGroupConstant)]
	version = submatches[definitionLinePattern.SubexpIndex(definitionVersionGroupConstant)]
	return name, version, true
}

// IsValidVersion reports whether the value begins with a numeric MAJOR.MINOR.PATCH triple.
func IsValidVersion(value string) bool {
	return validVersionPattern.MatchString(value)
}

// ParseSemanticVersion parses MAJOR.MINOR.PATCH[{a|b|rc}[N]]. Values with any
// other shape, including branch names, report ok=false and are opaque revisions.
func ParseSemanticVersion(value string) (VersionSpec, bool) {
	submatches := semanticVersionPattern.FindStringSubmatch(value)
	if submatches == nil {
		return VersionSpec{}, false
	}

	components := make([]uint64, 0, 3)
	for _, component := range submatches[1:4] {
		parsedComponent, parseError := strconv.ParseUint(component, numericComponentBaseConstant, numericComponentBitSizeConstant)
		if parseError != nil {
			return VersionSpec{}, false
		}
		components = append(components, parsedComponent)
	}

	versionSpec := VersionSpec{Major: components[0], Minor: components[1], Patch: components[2]}
	if marker := submatches[4]; len(marker) > 0 {
		versionSpec.PrereleaseKind = prereleaseMarkers[marker]
		if numberText := submatches[5]; len(numberText) > 0 {
			prereleaseNumber, parseError := strconv.ParseUint(numberText, numericComponentBaseConstant, numericComponentBitSizeConstant)
			if parseError != nil {
				return VersionSpec{}, false
			}
			versionSpec.PrereleaseNumber = &prereleaseNumber
		}
	}
	return versionSpec, true
}

// String renders the version in its definitions-file form, e.g. 1.2.3rc1.
func (versionSpec VersionSpec) String() string {
	rendered := strconv.FormatUint(versionSpec.Major, numericComponentBaseConstant) + "." +
		strconv.FormatUint(versionSpec.Minor, numericComponentBaseConstant) + "." +
		strconv.FormatUint(versionSpec.Patch, numericComponentBaseConstant)
	marker, hasPrerelease := prereleaseKindMarkers[versionSpec.PrereleaseKind]
	if !hasPrerelease {
		return rendered
	}
	rendered += marker
	if versionSpec.PrereleaseNumber != nil {
		rendered += strconv.FormatUint(*versionSpec.PrereleaseNumber, numericComponentBaseConstant)
	}
	return rendered
}
