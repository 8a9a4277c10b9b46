// Package checkout moves a single working copy to a requested revision.
//
// A revision is first tried as a release tag derived from the version string
// and then, only when no such tag exists, as a branch on origin. Each attempt
// walks an explicit sequence of stages so failures report exactly where the
// resolution stopped.
package checkout
