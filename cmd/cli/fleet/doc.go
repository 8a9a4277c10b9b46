// Package fleet provides the commands that operate on the local environment:
// setup, reset, checkout-branch, reset-version, show-current-versions and
// show-original-versions. Completed actions are published to the change
// stream when stream publishing is enabled.
package fleet
