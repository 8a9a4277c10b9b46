package versioning

import (
	"regexp"
	"strconv"
	"strings"
)

const (
	tagPrefixConstant               = "v"
	tagComponentSeparatorConstant   = "."
	alphaTagWordConstant            = "alpha"
	betaTagWordConstant             = "beta"
	releaseCandidateTagWordConstant = "rc"
	tagNamePatternConstant          = `^v([0-9]+)\.([0-9]+)\.([0-9]+)(?:\.(alpha|beta|rc)(?:\.([0-9]+))?)?$`
)

var tagNamePattern = regexp.MustCompile(tagNamePatternConstant)

var tagWordPrereleaseKinds = map[string]PrereleaseKind{
	alphaTagWordConstant:            PrereleaseAlpha,
	betaTagWordConstant:             PrereleaseBeta,
	releaseCandidateTagWordConstant: PrereleaseReleaseCandidate,
}

var prereleaseTagWords = map[PrereleaseKind]string{
	PrereleaseAlpha:            alphaTagWordConstant,
	PrereleaseBeta:             betaTagWordConstant,
	PrereleaseReleaseCandidate: releaseCandidateTagWordConstant,
}

// TagName renders the release tag for the version: v1.0.0, v1.0.0.alpha.1,
// v1.0.0.beta.2, v1.0.0.rc.3. A prerelease without a number omits the trailing
// component (v1.0.0.rc).
func (versionSpec VersionSpec) TagName() string {
	var builder strings.Builder
	builder.WriteString(tagPrefixConstant)
	builder.WriteString(strconv.FormatUint(versionSpec.Major, numericComponentBaseConstant))
	builder.WriteString(tagComponentSeparatorConstant)
	builder.WriteString(strconv.FormatUint(versionSpec.Minor, numericComponentBaseConstant))
	builder.WriteString(tagComponentSeparatorConstant)
	builder.WriteString(strconv.FormatUint(versionSpec.Patch, numericComponentBaseConstant))

	prereleaseWord, hasPrerelease := prereleaseTagWords[versionSpec.PrereleaseKind]
	if !hasPrerelease {
		return builder.String()
	}
	builder.WriteString(tagComponentSeparatorConstant)
	builder.WriteString(prereleaseWord)
	if versionSpec.PrereleaseNumber != nil {
		builder.WriteString(tagComponentSeparatorConstant)
		builder.WriteString(strconv.FormatUint(*versionSpec.PrereleaseNumber, numericComponentBaseConstant))
	}
	return builder.String()
}

// ExpandVersionToTag converts a version string to its release tag. Numeric
// components are copied as written, so 01.2.3 becomes v01.2.3. Opaque revision
// names such as branches are returned unchanged.
func ExpandVersionToTag(version string) string {
	submatches := semanticVersionPattern.FindStringSubmatch(version)
	if submatches == nil {
		return version
	}

	components := []string{submatches[1], submatches[2], submatches[3]}
	if marker := submatches[4]; len(marker) > 0 {
		components = append(components, prereleaseTagWords[prereleaseMarkers[marker]])
		if numberText := submatches[5]; len(numberText) > 0 {
			components = append(components, numberText)
		}
	}
	return tagPrefixConstant + strings.Join(components, tagComponentSeparatorConstant)
}

// ParseTagName is the inverse of TagName.
func ParseTagName(tagName string) (VersionSpec, bool) {
	submatches := tagNamePattern.FindStringSubmatch(tagName)
	if submatches == nil {
		return VersionSpec{}, false
	}

	versionText := submatches[1] + tagComponentSeparatorConstant + submatches[2] + tagComponentSeparatorConstant + submatches[3]
	if prereleaseWord := submatches[4]; len(prereleaseWord) > 0 {
		versionText += prereleaseKindMarkers[tagWordPrereleaseKinds[prereleaseWord]] + submatches[5]
	}
	return ParseSemanticVersion(versionText)
}
