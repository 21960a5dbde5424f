package rulesets

import "strings"

// Default settings for the rulesets command. The artifact path names a
// directory holding one JSON file per repository.
const (
	DefaultMode         = "migrate"
	DefaultArtifactPath = "exported_rulesets"
	DefaultReportPath   = "migration_report.csv"
)

const (
	configurationModeKeyConstant         = "mode"
	configurationInputKeyConstant        = "input"
	configurationOutputKeyConstant       = "output"
	configurationReportKeyConstant       = "report"
	configurationDryRunKeyConstant       = "dry_run"
	configurationEnrichActorsKeyConstant = "enrich_bypass_actors"
	configurationSanitizeKeyConstant     = "sanitize_bypass_actors"
	configurationRemoveActorsKeyConstant = "remove_all_bypass_actors"
)

// Configuration holds the rulesets command settings. The bypass-actor
// toggles mirror the three import postures: resolve enriched actors against
// the target (the default), pass actors through untouched, or strip the
// list entirely.
type Configuration struct {
	Mode                  string `mapstructure:"mode"`
	Input                 string `mapstructure:"input"`
	Output                string `mapstructure:"output"`
	Report                string `mapstructure:"report"`
	DryRun                bool   `mapstructure:"dry_run"`
	EnrichBypassActors    bool   `mapstructure:"enrich_bypass_actors"`
	SanitizeBypassActors  bool   `mapstructure:"sanitize_bypass_actors"`
	RemoveAllBypassActors bool   `mapstructure:"remove_all_bypass_actors"`
}

// DefaultConfigurationValues lists the viper defaults of the rulesets
// section under the provided root key.
func DefaultConfigurationValues(rootKey string) map[string]any {
	defaults := DefaultConfiguration()
	return map[string]any{
		rootKey + "." + configurationModeKeyConstant:         defaults.Mode,
		rootKey + "." + configurationInputKeyConstant:        defaults.Input,
		rootKey + "." + configurationOutputKeyConstant:       defaults.Output,
		rootKey + "." + configurationReportKeyConstant:       defaults.Report,
		rootKey + "." + configurationDryRunKeyConstant:       defaults.DryRun,
		rootKey + "." + configurationEnrichActorsKeyConstant: defaults.EnrichBypassActors,
		rootKey + "." + configurationSanitizeKeyConstant:     defaults.SanitizeBypassActors,
		rootKey + "." + configurationRemoveActorsKeyConstant: defaults.RemoveAllBypassActors,
	}
}

// DefaultConfiguration returns the rulesets command defaults. Enrichment and
// sanitization are on; callers overlaying decoded configuration onto these
// defaults keep the toggles unless a file sets them explicitly.
func DefaultConfiguration() Configuration {
	return Configuration{
		Mode:                 DefaultMode,
		Input:                DefaultArtifactPath,
		Output:               DefaultArtifactPath,
		Report:               DefaultReportPath,
		EnrichBypassActors:   true,
		SanitizeBypassActors: true,
	}
}

// Sanitize trims every path and fills blanks from the defaults.
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
