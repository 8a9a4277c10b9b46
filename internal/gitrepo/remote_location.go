package gitrepo

import (
	"errors"
	"strings"
)

const (
	remoteLocationSeparatorConstant       = "/"
	remoteLocationScpSeparatorConstant    = ":"
	remoteLocationRequiredMessageConstant = "remote location requires an origin and a repository name"
)

// ErrRemoteLocationIncomplete indicates an origin or repository name is blank.
var ErrRemoteLocationIncomplete = errors.New(remoteLocationRequiredMessageConstant)

// JoinRemoteLocation combines an origin prefix (https://github.com/lsst-ts/,
// git@github.com:lsst-ts, or a local directory) with a repository name.
func JoinRemoteLocation(originPrefix string, repositoryName string) (string, error) {
	trimmedOrigin := strings.TrimRight(strings.TrimSpace(originPrefix), remoteLocationSeparatorConstant)
	trimmedName := strings.Trim(strings.TrimSpace(repositoryName), remoteLocationSeparatorConstant)
	if len(trimmedOrigin) == 0 || len(trimmedName) == 0 {
		return "", ErrRemoteLocationIncomplete
	}
	if strings.HasSuffix(trimmedOrigin, remoteLocationScpSeparatorConstant) {
		return trimmedOrigin + trimmedName, nil
	}
	return trimmedOrigin + remoteLocationSeparatorConstant + trimmedName, nil
}
