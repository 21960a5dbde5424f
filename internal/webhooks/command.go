package webhooks

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/temirov/orgmigrate/internal/migration"
	flagutils "github.com/temirov/orgmigrate/internal/utils/flags"
)

const (
	commandUseConstant   = "webhooks"
	commandShortConstant = "Migrate repository webhooks between the configured organizations"
	commandLongConstant  = `Migrate repository webhooks between the configured organizations.

Only active hooks travel. Imports dedup by delivery URL, so re-running a
migration never duplicates a hook. Webhook signing secrets cannot be read
from the source; recreate them on the imported hooks afterwards.`
	unexpectedArgumentsMessageConstant = "unexpected positional arguments"
	commandExecutionTemplateConstant   = "webhooks command failed: %w"
)

// CommandBuilder assembles the webhooks subcommand.
type CommandBuilder struct {
	LoggerProvider           func() *zap.Logger
	ConfigurationProvider    func() Configuration
	RunConfigurationProvider func() migration.RunConfiguration
	TokenResolver            *migration.TokenResolver
}

// Build constructs the webhooks command with the shared migration flags.
func (builder *CommandBuilder) Build() (*cobra.Command, error) {
	command := &cobra.Command{
		Use:   commandUseConstant,
		Short: commandShortConstant,
		Long:  commandLongConstant,
	}

	flagValues := flagutils.BindMigrationFlags(command, flagutils.MigrationDefaults{}, flagutils.StandardMigrationFlagDefinitions())
	command.RunE = func(command *cobra.Command, arguments []string) error {
		return builder.run(command, arguments, flagValues)
	}
	return command, nil
}

func (builder *CommandBuilder) run(command *cobra.Command, arguments []string, flagValues *flagutils.MigrationFlagValues) error {
	if len(arguments) > 0 {
		return errors.New(unexpectedArgumentsMessageConstant)
	}

	commandLogger := builder.resolveLogger()
	configuration := builder.resolveConfiguration()
	runConfiguration := builder.resolveRunConfiguration()

	resolvedValues := flagutils.ResolveMigrationValues(command, flagValues, flagutils.MigrationDefaults{
		Mode:   configuration.Mode,
		Input:  configuration.Input,
		Output: configuration.Output,
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
		return fmt.Errorf(commandExecutionTemplateConstant, environmentError)
	}

	classService, serviceError := NewEnvironmentService(environment, EnvironmentServiceOptions{
		DryRun:             resolvedValues.DryRun,
		InputPath:          resolvedValues.Input,
		OutputPath:         resolvedValues.Output,
		SourceOrganization: runConfiguration.Source.Organization,
		TargetOrganization: runConfiguration.Target.Organization,
	}, commandLogger)
	if serviceError != nil {
		return fmt.Errorf(commandExecutionTemplateConstant, serviceError)
	}

	reportPath := ""
	if runMode.WritesTarget() {
		reportPath = resolvedValues.Report
	}
	classRunner, runnerError := migration.NewRunner(migration.RunnerDependencies{
		Runners:    []migration.ClassRunner{classService},
		Preflight:  environment.Preflight,
		ReportPath: reportPath,
		Logger:     commandLogger,
	})
	if runnerError != nil {
		return fmt.Errorf(commandExecutionTemplateConstant, runnerError)
	}

	if _, executionError := classRunner.Execute(executionContext); executionError != nil {
		return fmt.Errorf(commandExecutionTemplateConstant, executionError)
	}
	return nil
}

func (builder *CommandBuilder) resolveLogger() *zap.Logger {
	if builder.LoggerProvider != nil {
		if providedLogger := builder.LoggerProvider(); providedLogger != nil {
			return providedLogger
		}
	}
	return zap.NewNop()
}

func (builder *CommandBuilder) resolveConfiguration() Configuration {
	if builder.ConfigurationProvider != nil {
		return builder.ConfigurationProvider().Sanitize()
	}
	return DefaultConfiguration()
}

func (builder *CommandBuilder) resolveRunConfiguration() migration.RunConfiguration {
	if builder.RunConfigurationProvider != nil {
		return builder.RunConfigurationProvider().Sanitize()
	}
	return migration.RunConfiguration{}.Sanitize()
}
