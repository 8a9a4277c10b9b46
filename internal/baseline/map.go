package baseline

import "github.com/temirov/obsenv/internal/versioning"

// Entry pairs a managed repository with its published version.
type Entry struct {
	RepositoryName string
	Version        string
}

// VersionSpec parses the version; opaque revisions such as branches report ok=false.
func (entry Entry) VersionSpec() (versioning.VersionSpec, bool) {
	return versioning.ParseSemanticVersion(entry.Version)
}

// Map is the ordered set of baseline versions, in managed repository order.
// Repositories without a definitions line are absent.
type Map struct {
	entries []Entry
	index   map[string]int
}

// NewMap builds a Map from entries, keeping the first entry per repository.
func NewMap(entries []Entry) Map {
	baselineMap := Map{index: make(map[string]int, len(entries))}
	for _, entry := range entries {
		if _, exists := baselineMap.index[entry.RepositoryName]; exists {
			continue
		}
		baselineMap.index[entry.RepositoryName] = len(baselineMap.entries)
		baselineMap.entries = append(baselineMap.entries, entry)
	}
	return baselineMap
}

// Entries returns the entries in order.
func (baselineMap Map) Entries() []Entry {
	return append([]Entry{}, baselineMap.entries...)
}

// Version returns the published version of a repository.
func (baselineMap Map) Version(repositoryName string) (string, bool) {
	position, exists := baselineMap.index[repositoryName]
	if !exists {
		return "", false
	}
	return baselineMap.entries[position].Version, true
}

// Len reports the number of entries.
func (baselineMap Map) Len() int {
	return len(baselineMap.entries)
}
