package secrets

import "strings"

// Default settings for the secrets command.
const (
	DefaultMode         = "migrate"
	DefaultArtifactPath = "github_secrets_export.csv"
	DefaultReportPath   = "migration_report.csv"
	// DefaultPlaceholderValue seeds secrets whose real value the artifact
	// could not carry; operators replace it in the target afterwards.
	DefaultPlaceholderValue = "PLACEHOLDER_VALUE_SET_MANUALLY"
)

const (
	configurationModeKeyConstant        = "mode"
	configurationInputKeyConstant       = "input"
	configurationOutputKeyConstant      = "output"
	configurationReportKeyConstant      = "report"
	configurationDryRunKeyConstant      = "dry_run"
	configurationPlaceholderKeyConstant = "placeholder"
)

// Configuration holds the secrets command settings.
type Configuration struct {
	Mode        string `mapstructure:"mode"`
	Input       string `mapstructure:"input"`
	Output      string `mapstructure:"output"`
	Report      string `mapstructure:"report"`
	DryRun      bool   `mapstructure:"dry_run"`
	Placeholder string `mapstructure:"placeholder"`
}

// DefaultConfigurationValues lists the viper defaults of the secrets section
// under the provided root key.
func DefaultConfigurationValues(rootKey string) map[string]any {
	defaults := DefaultConfiguration()
	return map[string]any{
		rootKey + "." + configurationModeKeyConstant:        defaults.Mode,
		rootKey + "." + configurationInputKeyConstant:       defaults.Input,
		rootKey + "." + configurationOutputKeyConstant:      defaults.Output,
		rootKey + "." + configurationReportKeyConstant:      defaults.Report,
		rootKey + "." + configurationDryRunKeyConstant:      defaults.DryRun,
		rootKey + "." + configurationPlaceholderKeyConstant: defaults.Placeholder,
	}
}

// DefaultConfiguration returns the secrets command defaults.
func DefaultConfiguration() Configuration {
	return Configuration{
		Mode:        DefaultMode,
		Input:       DefaultArtifactPath,
		Output:      DefaultArtifactPath,
		Report:      DefaultReportPath,
		Placeholder: DefaultPlaceholderValue,
	}
}

// Sanitize trims every field and fills blanks from the defaults.
func (configuration Configuration) Sanitize() Configuration {
	defaults := DefaultConfiguration()
	configuration.Mode = fallbackValue(configuration.Mode, defaults.Mode)
	configuration.Input = fallbackValue(configuration.Input, defaults.Input)
	configuration.Output = fallbackValue(configuration.Output, defaults.Output)
	configuration.Report = fallbackValue(configuration.Report, defaults.Report)
	configuration.Placeholder = fallbackValue(configuration.Placeholder, defaults.Placeholder)
	return configuration
}

func fallbackValue(candidateValue string, defaultValue string) string {
	trimmedValue := strings.TrimSpace(candidateValue)
	if len(trimmedValue) > 0 {
		return trimmedValue
	}
	return defaultValue
}
