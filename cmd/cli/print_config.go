package cli

import (
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

const (
	printConfigUseConstant              = "print-config"
	printConfigShortDescriptionConstant = "Print the resolved configuration as YAML"
	printConfigLongDescriptionConstant  = "print-config renders the configuration after embedded defaults, configuration files, the .env file, environment variables and command-line overrides are applied. Stream credentials are never printed."
)

// PrintConfigCommandBuilder assembles the print-config command.
type PrintConfigCommandBuilder struct {
	ConfigurationProvider func() ApplicationConfiguration
}

// Build constructs the print-config command.
func (builder *PrintConfigCommandBuilder) Build() (*cobra.Command, error) {
	command := &cobra.Command{
		Use:   printConfigUseConstant,
		Short: printConfigShortDescriptionConstant,
		Long:  printConfigLongDescriptionConstant,
		Args:  cobra.NoArgs,
		RunE:  builder.run,
	}
	return command, nil
}

func (builder *PrintConfigCommandBuilder) run(command *cobra.Command, _ []string) error {
	configuration := ApplicationConfiguration{}
	if builder.ConfigurationProvider != nil {
		configuration = builder.ConfigurationProvider()
	}

	encoder := yaml.NewEncoder(command.OutOrStdout())
	encoder.SetIndent(2)
	if encodeError := encoder.Encode(configuration); encodeError != nil {
		return encodeError
	}
	return encoder.Close()
}
