// Package baseline loads the published set of repository versions.
//
// The versions live in a plain text definitions file (NAME=VERSION per line)
// inside a separate git repository. Loader refreshes that repository to the
// requested branch before every read so results are never stale.
package baseline
