package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/temirov/orgmigrate/internal/memberships"
	"github.com/temirov/orgmigrate/internal/migration"
	"github.com/temirov/orgmigrate/internal/rulesets"
	"github.com/temirov/orgmigrate/internal/secrets"
	flagutils "github.com/temirov/orgmigrate/internal/utils/flags"
	"github.com/temirov/orgmigrate/internal/variables"
	"github.com/temirov/orgmigrate/internal/webhooks"
)

const (
	allCommandUseConstant   = "all"
	allCommandShortConstant = "Run every configured metadata class in one migration pass"
	allCommandLongConstant  = `Run every configured metadata class in one migration pass.

Classes run sequentially over a single authenticated pair of sessions, so the
preflight checks execute once and one report covers the whole run. Artifact
paths come from each class's own configuration section.`
	allUnexpectedArgumentsMessageConstant = "unexpected positional arguments"
	allCommandExecutionTemplateConstant   = "all command failed: %w"
	unknownClassTemplateConstant          = "unknown metadata class %q"

	allConfigurationModeKeyConstant    = "mode"
	allConfigurationReportKeyConstant  = "report"
	allConfigurationDryRunKeyConstant  = "dry_run"
	allConfigurationClassesKeyConstant = "classes"
)

// Default settings for the aggregate command.
const (
	DefaultAllMode       = "migrate"
	DefaultAllReportPath = "migration_report.csv"
)

// AllConfiguration holds the aggregate command settings. Classes lists the
// metadata classes the run covers, in execution order.
type AllConfiguration struct {
	Mode    string   `mapstructure:"mode"`
	Report  string   `mapstructure:"report"`
	DryRun  bool     `mapstructure:"dry_run"`
	Classes []string `mapstructure:"classes"`
}

// DefaultAllConfiguration returns the aggregate command defaults: every class,
// in the standard order.
func DefaultAllConfiguration() AllConfiguration {
	return AllConfiguration{
		Mode:   DefaultAllMode,
		Report: DefaultAllReportPath,
		Classes: []string{
			string(migration.ClassSecrets),
			string(migration.ClassVariables),
			string(migration.ClassRulesets),
			string(migration.ClassWebhooks),
			string(migration.ClassMemberships),
		},
	}
}

// Sanitize trims the settings and fills blanks from the defaults.
func (configuration AllConfiguration) Sanitize() AllConfiguration {
	defaults := DefaultAllConfiguration()
	if len(strings.TrimSpace(configuration.Mode)) == 0 {
		configuration.Mode = defaults.Mode
	}
	if len(strings.TrimSpace(configuration.Report)) == 0 {
		configuration.Report = defaults.Report
	}

	trimmedClasses := make([]string, 0, len(configuration.Classes))
	for _, className := range configuration.Classes {
		trimmedName := strings.ToLower(strings.TrimSpace(className))
		if len(trimmedName) == 0 {
			continue
		}
		trimmedClasses = append(trimmedClasses, trimmedName)
	}
	if len(trimmedClasses) == 0 {
		trimmedClasses = defaults.Classes
	}
	configuration.Classes = trimmedClasses

	return configuration
}

// AllDefaultConfigurationValues lists the viper defaults of the aggregate
// section under the provided root key.
func AllDefaultConfigurationValues(rootKey string) map[string]any {
	defaults := DefaultAllConfiguration()
	return map[string]any{
		rootKey + "." + allConfigurationModeKeyConstant:    defaults.Mode,
		rootKey + "." + allConfigurationReportKeyConstant:  defaults.Report,
		rootKey + "." + allConfigurationDryRunKeyConstant:  defaults.DryRun,
		rootKey + "." + allConfigurationClassesKeyConstant: defaults.Classes,
	}
}

// AllCommandBuilder assembles the aggregate subcommand running every
// configured metadata class against one shared environment.
type AllCommandBuilder struct {
	LoggerProvider           func() *zap.Logger
	ConfigurationProvider    func() AllConfiguration
	ClassesProvider          func() ApplicationClassesConfiguration
	RunConfigurationProvider func() migration.RunConfiguration
	TokenResolver            *migration.TokenResolver
}

// Build constructs the aggregate command. Artifact paths have no flags here;
// each class reads its own configured paths.
func (builder *AllCommandBuilder) Build() (*cobra.Command, error) {
	command := &cobra.Command{
		Use:   allCommandUseConstant,
		Short: allCommandShortConstant,
		Long:  allCommandLongConstant,
	}

	flagDefinitions := flagutils.MigrationFlagDefinitions{
		Mode:   flagutils.MigrationFlagDefinition{Name: flagutils.ModeFlagName, Usage: flagutils.ModeFlagUsage, Enabled: true},
		Report: flagutils.MigrationFlagDefinition{Name: flagutils.ReportFlagName, Usage: flagutils.ReportFlagUsage, Enabled: true},
		DryRun: flagutils.MigrationFlagDefinition{Name: flagutils.DryRunFlagName, Usage: flagutils.DryRunFlagUsage, Enabled: true},
	}
	flagValues := flagutils.BindMigrationFlags(command, flagutils.MigrationDefaults{}, flagDefinitions)
	command.RunE = func(command *cobra.Command, arguments []string) error {
		return builder.run(command, arguments, flagValues)
	}
	return command, nil
}

func (builder *AllCommandBuilder) run(command *cobra.Command, arguments []string, flagValues *flagutils.MigrationFlagValues) error {
	if len(arguments) > 0 {
		return errors.New(allUnexpectedArgumentsMessageConstant)
	}

	commandLogger := builder.resolveLogger()
	configuration := builder.resolveConfiguration()
	classConfigurations := builder.resolveClassConfigurations()
	runConfiguration := builder.resolveRunConfiguration()

	resolvedValues := flagutils.ResolveMigrationValues(command, flagValues, flagutils.MigrationDefaults{
		Mode:   configuration.Mode,
		Report: configuration.Report,
		DryRun: configuration.DryRun,
	})

	runMode, modeError := migration.ParseMode(resolvedValues.Mode)
	if modeError != nil {
		return modeError
	}

	executionContext := command.Context()
	environment, environmentError := migration.NewEnvironment(executionContext, migration.EnvironmentConfiguration{
		Mode:          runMode,
		Source:        runConfiguration.Source,
		Target:        runConfiguration.Target,
		Discovery:     runConfiguration.Discovery,
		TokenResolver: builder.TokenResolver,
		Logger:        commandLogger,
	})
	if environmentError != nil {
		return fmt.Errorf(allCommandExecutionTemplateConstant, environmentError)
	}

	classRunners, buildError := builder.buildClassRunners(environment, configuration.Classes, classConfigurations, runConfiguration, resolvedValues.DryRun, commandLogger)
	if buildError != nil {
		return fmt.Errorf(allCommandExecutionTemplateConstant, buildError)
	}

	reportPath := ""
	if runMode.WritesTarget() {
		reportPath = resolvedValues.Report
	}
	aggregateRunner, runnerError := migration.NewRunner(migration.RunnerDependencies{
		Runners:    classRunners,
		Preflight:  environment.Preflight,
		ReportPath: reportPath,
		Logger:     commandLogger,
	})
	if runnerError != nil {
		return fmt.Errorf(allCommandExecutionTemplateConstant, runnerError)
	}

	if _, executionError := aggregateRunner.Execute(executionContext); executionError != nil {
		return fmt.Errorf(allCommandExecutionTemplateConstant, executionError)
	}
	return nil
}

func (builder *AllCommandBuilder) buildClassRunners(
	environment *migration.Environment,
	classNames []string,
	classConfigurations ApplicationClassesConfiguration,
	runConfiguration migration.RunConfiguration,
	dryRun bool,
	commandLogger *zap.Logger,
) ([]migration.ClassRunner, error) {
	classRunners := make([]migration.ClassRunner, 0, len(classNames))
	for _, className := range classNames {
		switch migration.ClassName(className) {
		case migration.ClassSecrets:
			classConfiguration := classConfigurations.Secrets.Sanitize()
			classService, serviceError := secrets.NewEnvironmentService(environment, secrets.EnvironmentServiceOptions{
				DryRun:      dryRun,
				InputPath:   classConfiguration.Input,
				OutputPath:  classConfiguration.Output,
				Placeholder: classConfiguration.Placeholder,
			}, commandLogger)
			if serviceError != nil {
				return nil, serviceError
			}
			classRunners = append(classRunners, classService)
		case migration.ClassVariables:
			classConfiguration := classConfigurations.Variables.Sanitize()
			classService, serviceError := variables.NewEnvironmentService(environment, variables.EnvironmentServiceOptions{
				DryRun:     dryRun,
				InputPath:  classConfiguration.Input,
				OutputPath: classConfiguration.Output,
			}, commandLogger)
			if serviceError != nil {
				return nil, serviceError
			}
			classRunners = append(classRunners, classService)
		case migration.ClassRulesets:
			classConfiguration := classConfigurations.Rulesets.Sanitize()
			classService, serviceError := rulesets.NewEnvironmentService(environment, rulesets.EnvironmentServiceOptions{
				DryRun:                dryRun,
				InputPath:             classConfiguration.Input,
				OutputPath:            classConfiguration.Output,
				EnrichBypassActors:    classConfiguration.EnrichBypassActors,
				SanitizeBypassActors:  classConfiguration.SanitizeBypassActors,
				RemoveAllBypassActors: classConfiguration.RemoveAllBypassActors,
			}, commandLogger)
			if serviceError != nil {
				return nil, serviceError
			}
			classRunners = append(classRunners, classService)
		case migration.ClassWebhooks:
			classConfiguration := classConfigurations.Webhooks.Sanitize()
			classService, serviceError := webhooks.NewEnvironmentService(environment, webhooks.EnvironmentServiceOptions{
				DryRun:             dryRun,
				InputPath:          classConfiguration.Input,
				OutputPath:         classConfiguration.Output,
				SourceOrganization: runConfiguration.Source.Organization,
				TargetOrganization: runConfiguration.Target.Organization,
			}, commandLogger)
			if serviceError != nil {
				return nil, serviceError
			}
			classRunners = append(classRunners, classService)
		case migration.ClassMemberships:
			classConfiguration := classConfigurations.Memberships.Sanitize()
			classService, serviceError := memberships.NewEnvironmentService(environment, memberships.EnvironmentServiceOptions{
				DryRun:     dryRun,
				InputPath:  classConfiguration.Input,
				OutputPath: classConfiguration.Output,
			}, commandLogger)
			if serviceError != nil {
				return nil, serviceError
			}
			classRunners = append(classRunners, classService)
		default:
			return nil, fmt.Errorf(unknownClassTemplateConstant, className)
		}
	}
	return classRunners, nil
}

func (builder *AllCommandBuilder) resolveLogger() *zap.Logger {
	if builder.LoggerProvider != nil {
		if providedLogger := builder.LoggerProvider(); providedLogger != nil {
			return providedLogger
		}
	}
	return zap.NewNop()
}

func (builder *AllCommandBuilder) resolveConfiguration() AllConfiguration {
	if builder.ConfigurationProvider != nil {
		return builder.ConfigurationProvider().Sanitize()
	}
	return DefaultAllConfiguration()
}

func (builder *AllCommandBuilder) resolveClassConfigurations() ApplicationClassesConfiguration {
	if builder.ClassesProvider != nil {
		return builder.ClassesProvider()
	}
	return ApplicationClassesConfiguration{}
}

func (builder *AllCommandBuilder) resolveRunConfiguration() migration.RunConfiguration {
	if builder.RunConfigurationProvider != nil {
		return builder.RunConfigurationProvider().Sanitize()
	}
	return migration.RunConfiguration{}.Sanitize()
}
