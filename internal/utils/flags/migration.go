// Package flags provides helpers for binding standardized migration flags to Cobra commands.
package flags

import (
	"github.com/spf13/cobra"
)

const (
	// ModeFlagName exposes the shared migration mode flag name.
	ModeFlagName = "mode"
	// InputFlagName exposes the shared artifact input path flag name.
	InputFlagName = "input"
	// InputFlagUsage describes the shared artifact input path flag purpose.
	InputFlagUsage = "Path of the exported artifact consumed by import mode"
	// OutputFlagName exposes the shared artifact output path flag name.
	OutputFlagName = "output"
	// OutputFlagUsage describes the shared artifact output path flag purpose.
	OutputFlagUsage = "Path of the exported artifact written by export and migrate modes"
	// ReportFlagName exposes the shared migration report path flag name.
	ReportFlagName = "report"
	// ReportFlagUsage describes the shared migration report path flag purpose.
	ReportFlagUsage = "Path of the per-entity migration report"
	// DryRunFlagName exposes the shared dry-run flag name.
	DryRunFlagName = "dry-run"
	// DryRunFlagUsage describes the shared dry-run flag purpose.
	DryRunFlagUsage = "Resolve and plan every entity without writing to the target"

	modeFlagDescriptionConstant = "run direction"
	modeExportChoiceConstant    = "export"
	modeImportChoiceConstant    = "import"
	modeMigrateChoiceConstant   = "migrate"
)

// ModeFlagUsage describes the shared migration mode flag purpose with the
// default direction highlighted.
var ModeFlagUsage = FormatChoiceUsage(
	modeMigrateChoiceConstant,
	[]string{modeExportChoiceConstant, modeImportChoiceConstant, modeMigrateChoiceConstant},
	modeFlagDescriptionConstant,
)

// MigrationDefaults describes default values for the shared migration flags.
type MigrationDefaults struct {
	Mode   string
	Input  string
	Output string
	Report string
	DryRun bool
}

// MigrationFlagDefinition captures a single migration flag's configuration.
type MigrationFlagDefinition struct {
	Name    string
	Usage   string
	Enabled bool
}

// MigrationFlagDefinitions groups the shared migration flag definitions.
type MigrationFlagDefinitions struct {
	Mode   MigrationFlagDefinition
	Input  MigrationFlagDefinition
	Output MigrationFlagDefinition
	Report MigrationFlagDefinition
	DryRun MigrationFlagDefinition
}

// MigrationFlagValues stores the parsed migration flag values.
type MigrationFlagValues struct {
	Mode   string
	Input  string
	Output string
	Report string
	DryRun bool
}

// StandardMigrationFlagDefinitions enables every shared migration flag under
// its standard name and usage text.
func StandardMigrationFlagDefinitions() MigrationFlagDefinitions {
	return MigrationFlagDefinitions{
		Mode:   MigrationFlagDefinition{Name: ModeFlagName, Usage: ModeFlagUsage, Enabled: true},
		Input:  MigrationFlagDefinition{Name: InputFlagName, Usage: InputFlagUsage, Enabled: true},
		Output: MigrationFlagDefinition{Name: OutputFlagName, Usage: OutputFlagUsage, Enabled: true},
		Report: MigrationFlagDefinition{Name: ReportFlagName, Usage: ReportFlagUsage, Enabled: true},
		DryRun: MigrationFlagDefinition{Name: DryRunFlagName, Usage: DryRunFlagUsage, Enabled: true},
	}
}

// BindMigrationFlags attaches the standard migration flags to the provided command.
func BindMigrationFlags(command *cobra.Command, defaults MigrationDefaults, definitions MigrationFlagDefinitions) *MigrationFlagValues {
	values := MigrationFlagValues{
		Mode:   defaults.Mode,
		Input:  defaults.Input,
		Output: defaults.Output,
		Report: defaults.Report,
		DryRun: defaults.DryRun,
	}
	if command == nil {
		return &values
	}

	flagSet := command.Flags()

	if definitions.Mode.Enabled && len(definitions.Mode.Name) > 0 {
		flagSet.StringVar(&values.Mode, definitions.Mode.Name, defaults.Mode, definitions.Mode.Usage)
	}
	if definitions.Input.Enabled && len(definitions.Input.Name) > 0 {
		flagSet.StringVar(&values.Input, definitions.Input.Name, defaults.Input, definitions.Input.Usage)
	}
	if definitions.Output.Enabled && len(definitions.Output.Name) > 0 {
		flagSet.StringVar(&values.Output, definitions.Output.Name, defaults.Output, definitions.Output.Usage)
	}
	if definitions.Report.Enabled && len(definitions.Report.Name) > 0 {
		flagSet.StringVar(&values.Report, definitions.Report.Name, defaults.Report, definitions.Report.Usage)
	}
	if definitions.DryRun.Enabled && len(definitions.DryRun.Name) > 0 {
		AddToggleFlag(flagSet, &values.DryRun, definitions.DryRun.Name, "", defaults.DryRun, definitions.DryRun.Usage)
	}

	return &values
}

// ResolveMigrationValues overlays explicitly provided flags onto configured
// defaults. A flag only overrides configuration when the invocation set it.
func ResolveMigrationValues(command *cobra.Command, values *MigrationFlagValues, configured MigrationDefaults) MigrationDefaults {
	if command == nil || values == nil {
		return configured
	}

	flagSet := command.Flags()
	if flagSet.Changed(ModeFlagName) {
		configured.Mode = values.Mode
	}
	if flagSet.Changed(InputFlagName) {
		configured.Input = values.Input
	}
	if flagSet.Changed(OutputFlagName) {
		configured.Output = values.Output
	}
	if flagSet.Changed(ReportFlagName) {
		configured.Report = values.Report
	}
	if flagSet.Changed(DryRunFlagName) {
		configured.DryRun = values.DryRun
	}
	return configured
}
