package environment

import (
	"errors"
	"fmt"
	"strings"
)

const (
	blankRepositoryNameMessageConstant    = "repository name must not be blank"
	blankRepositoryOriginTemplateConstant = "repository %s has no origin"
	duplicateRepositoryTemplateConstant   = "repository %s is listed more than once"
	invalidRepositoryNameMessageConstant  = "repository name must be a single path component"
	pathSeparatorCharactersConstant       = `/\`
	currentDirectoryNameConstant          = "."
	parentDirectoryNameConstant           = ".."
	invalidRepositoryNameTemplateConstant = "%w: %q"
)

// ErrBlankRepositoryName indicates a registry entry without a name.
var ErrBlankRepositoryName = errors.New(blankRepositoryNameMessageConstant)

// ErrInvalidRepositoryName indicates a name that would resolve outside its own
// directory under the environment path.
var ErrInvalidRepositoryName = errors.New(invalidRepositoryNameMessageConstant)

// RepositoryReference names a managed repository and the origin prefix it is cloned from.
type RepositoryReference struct {
	Name   string `mapstructure:"name" yaml:"name"`
	Origin string `mapstructure:"origin" yaml:"origin"`
}

// Registry is the ordered, immutable set of managed repositories.
type Registry struct {
	references []RepositoryReference
	index      map[string]int
}

// NewRegistry validates references and preserves their order.
func NewRegistry(references []RepositoryReference) (Registry, error) {
	registry := Registry{index: make(map[string]int, len(references))}
	for _, reference := range references {
		trimmedReference := RepositoryReference{Name: strings.TrimSpace(reference.Name), Origin: strings.TrimSpace(reference.Origin)}
		if len(trimmedReference.Name) == 0 {
			return Registry{}, ErrBlankRepositoryName
		}
		if !isSinglePathComponent(trimmedReference.Name) {
			return Registry{}, fmt.Errorf(invalidRepositoryNameTemplateConstant, ErrInvalidRepositoryName, trimmedReference.Name)
		}
		if len(trimmedReference.Origin) == 0 {
			return Registry{}, fmt.Errorf(blankRepositoryOriginTemplateConstant, trimmedReference.Name)
		}
		if _, duplicate := registry.index[trimmedReference.Name]; duplicate {
			return Registry{}, fmt.Errorf(duplicateRepositoryTemplateConstant, trimmedReference.Name)
		}
		registry.index[trimmedReference.Name] = len(registry.references)
		registry.references = append(registry.references, trimmedReference)
	}
	return registry, nil
}

func isSinglePathComponent(name string) bool {
	if name == currentDirectoryNameConstant || name == parentDirectoryNameConstant {
		return false
	}
	return !strings.ContainsAny(name, pathSeparatorCharactersConstant)
}

// References returns the managed repositories in order.
func (registry Registry) References() []RepositoryReference {
	return append([]RepositoryReference{}, registry.references...)
}

// Names returns the managed repository names in order.
func (registry Registry) Names() []string {
	names := make([]string, 0, len(registry.references))
	for _, reference := range registry.references {
		names = append(names, reference.Name)
	}
	return names
}

// Lookup returns the reference of a managed repository.
func (registry Registry) Lookup(repositoryName string) (RepositoryReference, bool) {
	position, managed := registry.index[repositoryName]
	if !managed {
		return RepositoryReference{}, false
	}
	return registry.references[position], true
}

// Contains reports whether the repository is managed.
func (registry Registry) Contains(repositoryName string) bool {
	_, managed := registry.index[repositoryName]
	return managed
}

// Len reports the number of managed repositories.
func (registry Registry) Len() int {
	return len(registry.references)
}
