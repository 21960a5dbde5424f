package webhooks

import "strings"

// Default settings for the webhooks command.
const (
	DefaultMode         = "migrate"
	DefaultArtifactPath = "exported_webhooks.json"
	DefaultReportPath   = "migration_report.csv"
)

const (
	configurationModeKeyConstant   = "mode"
	configurationInputKeyConstant  = "input"
	configurationOutputKeyConstant = "output"
	configurationReportKeyConstant = "report"
	configurationDryRunKeyConstant = "dry_run"
)

// Configuration holds the webhooks command settings.
type Configuration struct {
	Mode   string `mapstructure:"mode"`
	Input  string `mapstructure:"input"`
	Output string `mapstructure:"output"`
	Report string `mapstructure:"report"`
	DryRun bool   `mapstructure:"dry_run"`
}

// DefaultConfigurationValues lists the viper defaults of the webhooks
// section under the provided root key.
func DefaultConfigurationValues(rootKey string) map[string]any {
	defaults := DefaultConfiguration()
	return map[string]any{
		rootKey + "." + configurationModeKeyConstant:   defaults.Mode,
		rootKey + "." + configurationInputKeyConstant:  defaults.Input,
		rootKey + "." + configurationOutputKeyConstant: defaults.Output,
		rootKey + "." + configurationReportKeyConstant: defaults.Report,
		rootKey + "." + configurationDryRunKeyConstant: defaults.DryRun,
	}
}

// DefaultConfiguration returns the webhooks command defaults.
func DefaultConfiguration() Configuration {
	return Configuration{
		Mode:   DefaultMode,
		Input:  DefaultArtifactPath,
		Output: DefaultArtifactPath,
		Report: DefaultReportPath,
	}
}

// Sanitize trims every field and fills blanks from the defaults.
func (configuration Configuration) Sanitize() Configuration {
	defaults := DefaultConfiguration()
	configuration.Mode = fallbackValue(configuration.Mode, defaults.Mode)
	configuration.Input = fallbackValue(configuration.Input, defaults.Input)
	configuration.Output = fallbackValue(configuration.Output, defaults.Output)
	configuration.Report = fallbackValue(configuration.Report, defaults.Report)
	return configuration
}

func fallbackValue(candidateValue string, defaultValue string) string {
	trimmedValue := strings.TrimSpace(candidateValue)
	if len(trimmedValue) > 0 {
		return trimmedValue
	}
	return defaultValue
}
