// Package versioning parses repository version strings and converts them to
// the release tag names published by the upstream repositories.
//
// Version strings follow MAJOR.MINOR.PATCH with an optional a, b, or rc
// prerelease marker and number (1.2.3, 1.2.3a1, 1.2.3rc2). Anything else is an
// opaque revision name, usually a branch, and passes through untouched.
package versioning
