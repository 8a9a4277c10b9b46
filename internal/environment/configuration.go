package environment

import (
	"strings"

	"github.com/temirov/obsenv/internal/utils"
)

const (
	defaultEnvironmentPathConstant         = "/obs-env"
	defaultBaselineOriginConstant          = "https://github.com/lsst-ts/"
	defaultBaselineRepositoryConstant      = "ts_cycle_build"
	defaultBaselineDefinitionsFileConstant = "cycle/cycle.env"
	defaultBaselineBranchConstant          = "main"
	lsstOriginConstant                     = "https://github.com/lsst/"
	lsstTelescopeSiteOriginConstant        = "https://github.com/lsst-ts/"
	lsstDataManagementOriginConstant       = "https://github.com/lsst-dm/"
	lsstSummitCommissioningOriginConstant  = "https://github.com/lsst-sitcom/"
	configurationPathKeyConstant           = "path"
	configurationSetupKeyConstant          = "setup_repositories"
	configurationBaselineOriginKeyConstant = "baseline.origin"
	configurationBaselineRepoKeyConstant   = "baseline.repository"
	configurationBaselineFileKeyConstant   = "baseline.definitions_file"
	configurationBaselineBranchKeyConstant = "baseline.branch"
	configurationKeySeparatorConstant      = "."
)

// Configuration describes the environment section of the configuration file.
type Configuration struct {
	Path              string                `mapstructure:"path" yaml:"path"`
	Repositories      []RepositoryReference `mapstructure:"repositories" yaml:"repositories"`
	Baseline          BaselineConfiguration `mapstructure:"baseline" yaml:"baseline"`
	SetupRepositories []string              `mapstructure:"setup_repositories" yaml:"setup_repositories"`
}

// BaselineConfiguration locates the repository publishing baseline versions.
type BaselineConfiguration struct {
	Origin          string `mapstructure:"origin" yaml:"origin"`
	Repository      string `mapstructure:"repository" yaml:"repository"`
	DefinitionsFile string `mapstructure:"definitions_file" yaml:"definitions_file"`
	Branch          string `mapstructure:"branch" yaml:"branch"`
}

// DefaultConfiguration returns the stock observing environment layout.
func DefaultConfiguration() Configuration {
	return Configuration{
		Path: defaultEnvironmentPathConstant,
		Repositories: []RepositoryReference{
			{Name: "atmospec", Origin: lsstOriginConstant},
			{Name: "cwfs", Origin: lsstTelescopeSiteOriginConstant},
			{Name: "Spectractor", Origin: lsstDataManagementOriginConstant},
			{Name: "summit_extras", Origin: lsstSummitCommissioningOriginConstant},
			{Name: "summit_utils", Origin: lsstSummitCommissioningOriginConstant},
			{Name: "ts_config_mttcs", Origin: lsstTelescopeSiteOriginConstant},
			{Name: "ts_config_attcs", Origin: lsstTelescopeSiteOriginConstant},
			{Name: "ts_config_ocs", Origin: lsstTelescopeSiteOriginConstant},
			{Name: "ts_config_scheduler", Origin: lsstTelescopeSiteOriginConstant},
			{Name: "ts_auxtel_standardscripts", Origin: lsstTelescopeSiteOriginConstant},
			{Name: "ts_maintel_standardscripts", Origin: lsstTelescopeSiteOriginConstant},
			{Name: "ts_standardscripts", Origin: lsstTelescopeSiteOriginConstant},
			{Name: "ts_externalscripts", Origin: lsstTelescopeSiteOriginConstant},
			{Name: "ts_observatory_control", Origin: lsstTelescopeSiteOriginConstant},
			{Name: "ts_observing_utilities", Origin: lsstTelescopeSiteOriginConstant},
			{Name: "ts_wep", Origin: lsstTelescopeSiteOriginConstant},
		},
		Baseline: BaselineConfiguration{
			Origin:          defaultBaselineOriginConstant,
			Repository:      defaultBaselineRepositoryConstant,
			DefinitionsFile: defaultBaselineDefinitionsFileConstant,
			Branch:          defaultBaselineBranchConstant,
		},
		SetupRepositories: []string{
			"summit_utils",
			"summit_extras",
			"ts_auxtel_standardscripts",
			"ts_maintel_standardscripts",
			"ts_standardscripts",
			"ts_externalscripts",
			"ts_observatory_control",
			"ts_observing_utilities",
			"ts_wep",
			"cwfs",
		},
	}
}

// DefaultConfigurationValues produces Viper defaults for the environment section rooted at rootKey.
// The repository list is left to the embedded configuration so user files can replace it wholesale.
func DefaultConfigurationValues(rootKey string) map[string]any {
	defaults := DefaultConfiguration()
	prefix := rootKey + configurationKeySeparatorConstant
	return map[string]any{
		prefix + configurationPathKeyConstant:           defaults.Path,
		prefix + configurationSetupKeyConstant:          defaults.SetupRepositories,
		prefix + configurationBaselineOriginKeyConstant: defaults.Baseline.Origin,
		prefix + configurationBaselineRepoKeyConstant:   defaults.Baseline.Repository,
		prefix + configurationBaselineFileKeyConstant:   defaults.Baseline.DefinitionsFile,
		prefix + configurationBaselineBranchKeyConstant: defaults.Baseline.Branch,
	}
}

// Sanitize trims values, expands a leading home shortcut in the path and
// falls back to defaults for blank settings.
func (configuration Configuration) Sanitize() Configuration {
	defaults := DefaultConfiguration()
	sanitized := Configuration{
		Path: utils.ExpandHomeDirectory(configuration.Path, nil),
		Baseline: BaselineConfiguration{
			Origin:          fallback(configuration.Baseline.Origin, defaults.Baseline.Origin),
			Repository:      fallback(configuration.Baseline.Repository, defaults.Baseline.Repository),
			DefinitionsFile: fallback(configuration.Baseline.DefinitionsFile, defaults.Baseline.DefinitionsFile),
			Branch:          fallback(configuration.Baseline.Branch, defaults.Baseline.Branch),
		},
	}
	if len(sanitized.Path) == 0 {
		sanitized.Path = defaults.Path
	}

	sanitized.Repositories = make([]RepositoryReference, 0, len(configuration.Repositories))
	for _, reference := range configuration.Repositories {
		sanitized.Repositories = append(sanitized.Repositories, RepositoryReference{
			Name:   strings.TrimSpace(reference.Name),
			Origin: strings.TrimSpace(reference.Origin),
		})
	}
	if len(configuration.Repositories) == 0 {
		sanitized.Repositories = defaults.Repositories
	}

	sanitized.SetupRepositories = make([]string, 0, len(configuration.SetupRepositories))
	for _, repositoryName := range configuration.SetupRepositories {
		trimmedName := strings.TrimSpace(repositoryName)
		if len(trimmedName) > 0 {
			sanitized.SetupRepositories = append(sanitized.SetupRepositories, trimmedName)
		}
	}

	return sanitized
}

func fallback(value string, defaultValue string) string {
	trimmedValue := strings.TrimSpace(value)
	if len(trimmedValue) == 0 {
		return defaultValue
	}
	return trimmedValue
}
