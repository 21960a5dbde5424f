package cli

import (
	"context"
	"errors"
	"fmt"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/temirov/orgmigrate/internal/memberships"
	"github.com/temirov/orgmigrate/internal/migration"
	"github.com/temirov/orgmigrate/internal/rulesets"
	"github.com/temirov/orgmigrate/internal/secrets"
	"github.com/temirov/orgmigrate/internal/utils"
	"github.com/temirov/orgmigrate/internal/variables"
	"github.com/temirov/orgmigrate/internal/webhooks"
)

const (
	applicationNameConstant                 = "orgmigrate"
	applicationShortDescriptionConstant     = "Migrate organization metadata between GitHub organizations"
	applicationLongDescriptionConstant      = "orgmigrate moves Actions secrets and variables, repository rulesets and webhooks, and organization memberships from one GitHub organization to another through the REST API."
	configFileFlagNameConstant              = "config"
	configFileFlagUsageConstant             = "Optional path to a configuration file (YAML or JSON)."
	logLevelFlagNameConstant                = "log-level"
	logLevelFlagUsageConstant               = "Override the configured log level."
	logFormatFlagNameConstant               = "log-format"
	logFormatFlagUsageConstant              = "Override the configured log format (structured or console)."
	commonConfigurationKeyConstant          = "common"
	commonLogLevelConfigKeyConstant         = commonConfigurationKeyConstant + ".log_level"
	commonLogFormatConfigKeyConstant        = commonConfigurationKeyConstant + ".log_format"
	environmentPrefixConstant               = "ORGMIGRATE"
	configurationNameConstant               = "config"
	configurationTypeConstant               = "yaml"
	configurationInitializedMessageConstant = "configuration initialized"
	configurationLogLevelFieldConstant      = "log_level"
	configurationLogFormatFieldConstant     = "log_format"
	configurationFileFieldConstant          = "config_file"
	configurationLoadErrorTemplateConstant  = "unable to load configuration: %w"
	loggerCreationErrorTemplateConstant     = "unable to create logger: %w"
	loggerSyncErrorTemplateConstant         = "unable to flush logger: %w"
	rootCommandInfoMessageConstant          = "orgmigrate CLI executed"
	rootCommandDebugMessageConstant         = "orgmigrate CLI diagnostics"
	logFieldCommandNameConstant             = "command_name"
	logFieldArgumentCountConstant           = "argument_count"
	logFieldArgumentsConstant               = "arguments"
	loggerNotInitializedMessageConstant     = "logger not initialized"
	defaultConfigurationSearchPathConstant  = "."
	classesConfigurationKeyConstant         = "classes"
	secretsConfigurationKeyConstant         = classesConfigurationKeyConstant + ".secrets"
	variablesConfigurationKeyConstant       = classesConfigurationKeyConstant + ".variables"
	rulesetsConfigurationKeyConstant        = classesConfigurationKeyConstant + ".rulesets"
	webhooksConfigurationKeyConstant        = classesConfigurationKeyConstant + ".webhooks"
	membershipsConfigurationKeyConstant     = classesConfigurationKeyConstant + ".memberships"
	allConfigurationKeyConstant             = "all"
)

// ApplicationConfiguration describes the persisted configuration for the CLI entrypoint.
type ApplicationConfiguration struct {
	Common    ApplicationCommonConfiguration   `mapstructure:"common"`
	Source    migration.ScopeConfiguration     `mapstructure:"source"`
	Target    migration.ScopeConfiguration     `mapstructure:"target"`
	Discovery migration.DiscoveryConfiguration `mapstructure:"discovery"`
	Classes   ApplicationClassesConfiguration  `mapstructure:"classes"`
	All       AllConfiguration                 `mapstructure:"all"`
}

// ApplicationCommonConfiguration stores logging configuration shared across commands.
type ApplicationCommonConfiguration struct {
	LogLevel  string `mapstructure:"log_level"`
	LogFormat string `mapstructure:"log_format"`
}

// ApplicationClassesConfiguration holds the per-class command settings.
type ApplicationClassesConfiguration struct {
	Secrets     secrets.Configuration     `mapstructure:"secrets"`
	Variables   variables.Configuration   `mapstructure:"variables"`
	Rulesets    rulesets.Configuration    `mapstructure:"rulesets"`
	Webhooks    webhooks.Configuration    `mapstructure:"webhooks"`
	Memberships memberships.Configuration `mapstructure:"memberships"`
}

// RunConfiguration assembles the migration scope settings shared by every
// class command.
func (configuration ApplicationConfiguration) RunConfiguration() migration.RunConfiguration {
	return migration.RunConfiguration{
		Source:    configuration.Source,
		Target:    configuration.Target,
		Discovery: configuration.Discovery,
	}
}

// Application wires the Cobra root command, configuration loader, and structured logger.
type Application struct {
	rootCommand            *cobra.Command
	configurationLoader    *utils.ConfigurationLoader
	loggerFactory          *utils.LoggerFactory
	logger                 *zap.Logger
	configuration          ApplicationConfiguration
	configurationMetadata  utils.LoadedConfiguration
	configurationFilePath  string
	logLevelFlagValue      string
	logFormatFlagValue     string
	tokenResolver          *migration.TokenResolver
	commandContextAccessor utils.CommandContextAccessor
}

// NewApplication assembles a fully wired CLI application instance.
func NewApplication() *Application {
	configurationLoader := utils.NewConfigurationLoader(utils.ConfigurationLoaderOptions{
		ConfigurationName: configurationNameConstant,
		ConfigurationType: configurationTypeConstant,
		EnvironmentPrefix: environmentPrefixConstant,
		SearchPaths:       []string{defaultConfigurationSearchPathConstant},
	})
	configurationLoader.SetEmbeddedConfiguration(EmbeddedDefaultConfiguration())

	application := &Application{
		configurationLoader:    configurationLoader,
		loggerFactory:          utils.NewLoggerFactory(),
		logger:                 zap.NewNop(),
		tokenResolver:          migration.NewTokenResolver(nil, nil),
		commandContextAccessor: utils.NewCommandContextAccessor(),
	}

	cobraCommand := &cobra.Command{
		Use:           applicationNameConstant,
		Short:         applicationShortDescriptionConstant,
		Long:          applicationLongDescriptionConstant,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(command *cobra.Command, arguments []string) error {
			return application.initializeConfiguration(command)
		},
		RunE: func(command *cobra.Command, arguments []string) error {
			return application.runRootCommand(command, arguments)
		},
	}

	cobraCommand.SetContext(context.Background())
	cobraCommand.PersistentFlags().StringVar(&application.configurationFilePath, configFileFlagNameConstant, "", configFileFlagUsageConstant)
	cobraCommand.PersistentFlags().StringVar(&application.logLevelFlagValue, logLevelFlagNameConstant, "", logLevelFlagUsageConstant)
	cobraCommand.PersistentFlags().StringVar(&application.logFormatFlagValue, logFormatFlagNameConstant, "", logFormatFlagUsageConstant)

	secretsBuilder := secrets.CommandBuilder{
		LoggerProvider: func() *zap.Logger {
			return application.logger
		},
		ConfigurationProvider: func() secrets.Configuration {
			return application.configuration.Classes.Secrets
		},
		RunConfigurationProvider: application.runConfiguration,
		TokenResolver:            application.tokenResolver,
	}
	secretsCommand, secretsBuildError := secretsBuilder.Build()
	if secretsBuildError == nil {
		cobraCommand.AddCommand(secretsCommand)
	}

	variablesBuilder := variables.CommandBuilder{
		LoggerProvider: func() *zap.Logger {
			return application.logger
		},
		ConfigurationProvider: func() variables.Configuration {
			return application.configuration.Classes.Variables
		},
		RunConfigurationProvider: application.runConfiguration,
		TokenResolver:            application.tokenResolver,
	}
	variablesCommand, variablesBuildError := variablesBuilder.Build()
	if variablesBuildError == nil {
		cobraCommand.AddCommand(variablesCommand)
	}

	rulesetsBuilder := rulesets.CommandBuilder{
		LoggerProvider: func() *zap.Logger {
			return application.logger
		},
		ConfigurationProvider: func() rulesets.Configuration {
			return application.configuration.Classes.Rulesets
		},
		RunConfigurationProvider: application.runConfiguration,
		TokenResolver:            application.tokenResolver,
	}
	rulesetsCommand, rulesetsBuildError := rulesetsBuilder.Build()
	if rulesetsBuildError == nil {
		cobraCommand.AddCommand(rulesetsCommand)
	}

	webhooksBuilder := webhooks.CommandBuilder{
		LoggerProvider: func() *zap.Logger {
			return application.logger
		},
		ConfigurationProvider: func() webhooks.Configuration {
			return application.configuration.Classes.Webhooks
		},
		RunConfigurationProvider: application.runConfiguration,
		TokenResolver:            application.tokenResolver,
	}
	webhooksCommand, webhooksBuildError := webhooksBuilder.Build()
	if webhooksBuildError == nil {
		cobraCommand.AddCommand(webhooksCommand)
	}

	membershipsBuilder := memberships.CommandBuilder{
		LoggerProvider: func() *zap.Logger {
			return application.logger
		},
		ConfigurationProvider: func() memberships.Configuration {
			return application.configuration.Classes.Memberships
		},
		RunConfigurationProvider: application.runConfiguration,
		TokenResolver:            application.tokenResolver,
	}
	membershipsCommand, membershipsBuildError := membershipsBuilder.Build()
	if membershipsBuildError == nil {
		cobraCommand.AddCommand(membershipsCommand)
	}

	allBuilder := AllCommandBuilder{
		LoggerProvider: func() *zap.Logger {
			return application.logger
		},
		ConfigurationProvider: func() AllConfiguration {
			return application.configuration.All
		},
		ClassesProvider: func() ApplicationClassesConfiguration {
			return application.configuration.Classes
		},
		RunConfigurationProvider: application.runConfiguration,
		TokenResolver:            application.tokenResolver,
	}
	allCommand, allBuildError := allBuilder.Build()
	if allBuildError == nil {
		cobraCommand.AddCommand(allCommand)
	}

	application.rootCommand = cobraCommand

	return application
}

// Execute runs the configured Cobra command hierarchy and ensures logger flushing.
func (application *Application) Execute() error {
	executionError := application.rootCommand.Execute()
	if syncError := application.flushLogger(); syncError != nil {
		return fmt.Errorf(loggerSyncErrorTemplateConstant, syncError)
	}
	return executionError
}

// Execute builds a fresh application instance and executes the root command hierarchy.
func Execute() error {
	return NewApplication().Execute()
}

func (application *Application) runConfiguration() migration.RunConfiguration {
	return application.configuration.RunConfiguration()
}

func (application *Application) initializeConfiguration(command *cobra.Command) error {
	defaultValues := map[string]any{
		commonLogLevelConfigKeyConstant:  string(utils.LogLevelInfo),
		commonLogFormatConfigKeyConstant: string(utils.LogFormatStructured),
	}
	for configurationKey, configurationValue := range migration.DefaultConfigurationValues() {
		defaultValues[configurationKey] = configurationValue
	}
	for configurationKey, configurationValue := range secrets.DefaultConfigurationValues(secretsConfigurationKeyConstant) {
		defaultValues[configurationKey] = configurationValue
	}
	for configurationKey, configurationValue := range variables.DefaultConfigurationValues(variablesConfigurationKeyConstant) {
		defaultValues[configurationKey] = configurationValue
	}
	for configurationKey, configurationValue := range rulesets.DefaultConfigurationValues(rulesetsConfigurationKeyConstant) {
		defaultValues[configurationKey] = configurationValue
	}
	for configurationKey, configurationValue := range webhooks.DefaultConfigurationValues(webhooksConfigurationKeyConstant) {
		defaultValues[configurationKey] = configurationValue
	}
	for configurationKey, configurationValue := range memberships.DefaultConfigurationValues(membershipsConfigurationKeyConstant) {
		defaultValues[configurationKey] = configurationValue
	}
	for configurationKey, configurationValue := range AllDefaultConfigurationValues(allConfigurationKeyConstant) {
		defaultValues[configurationKey] = configurationValue
	}

	loadedConfiguration, loadError := application.configurationLoader.LoadConfiguration(application.configurationFilePath, defaultValues, &application.configuration)
	if loadError != nil {
		return fmt.Errorf(configurationLoadErrorTemplateConstant, loadError)
	}

	application.configurationMetadata = loadedConfiguration

	if application.persistentFlagChanged(command, logLevelFlagNameConstant) {
		application.configuration.Common.LogLevel = application.logLevelFlagValue
	}

	if application.persistentFlagChanged(command, logFormatFlagNameConstant) {
		application.configuration.Common.LogFormat = application.logFormatFlagValue
	}

	applicationLogger, loggerCreationError := application.loggerFactory.CreateLogger(
		utils.LogLevel(application.configuration.Common.LogLevel),
		utils.LogFormat(application.configuration.Common.LogFormat),
	)
	if loggerCreationError != nil {
		return fmt.Errorf(loggerCreationErrorTemplateConstant, loggerCreationError)
	}

	application.logger = applicationLogger

	application.logger.Info(
		configurationInitializedMessageConstant,
		zap.String(configurationLogLevelFieldConstant, application.configuration.Common.LogLevel),
		zap.String(configurationLogFormatFieldConstant, application.configuration.Common.LogFormat),
		zap.String(configurationFileFieldConstant, application.configurationMetadata.ConfigFileUsed),
	)

	if command != nil {
		updatedContext := application.commandContextAccessor.WithConfigurationFilePath(
			command.Context(),
			application.configurationMetadata.ConfigFileUsed,
		)
		command.SetContext(updatedContext)
		if rootCommand := command.Root(); rootCommand != nil {
			rootCommand.SetContext(updatedContext)
		}
	}

	return nil
}

func (application *Application) runRootCommand(command *cobra.Command, arguments []string) error {
	if application.logger == nil {
		return errors.New(loggerNotInitializedMessageConstant)
	}

	application.logger.Info(
		rootCommandInfoMessageConstant,
		zap.String(logFieldCommandNameConstant, command.Name()),
		zap.Int(logFieldArgumentCountConstant, len(arguments)),
	)

	application.logger.Debug(
		rootCommandDebugMessageConstant,
		zap.Strings(logFieldArgumentsConstant, arguments),
	)

	if len(arguments) == 0 {
		return command.Help()
	}

	return nil
}

func (application *Application) flushLogger() error {
	return application.syncLoggerInstance(application.logger)
}

func (application *Application) syncLoggerInstance(logger *zap.Logger) error {
	if logger == nil {
		return nil
	}

	syncError := logger.Sync()
	switch {
	case syncError == nil:
		return nil
	case errors.Is(syncError, syscall.ENOTSUP):
		return nil
	case errors.Is(syncError, syscall.EINVAL):
		return nil
	default:
		return syncError
	}
}

func (application *Application) persistentFlagChanged(command *cobra.Command, flagName string) bool {
	if command == nil {
		return false
	}

	flagSetsToInspect := []*pflag.FlagSet{
		command.PersistentFlags(),
		command.InheritedFlags(),
	}

	rootCommand := command.Root()
	if rootCommand != nil {
		flagSetsToInspect = append(flagSetsToInspect, rootCommand.PersistentFlags())
	}

	for _, flagSet := range flagSetsToInspect {
		if flagSet == nil {
			continue
		}

		if flagSet.Changed(flagName) {
			return true
		}
	}

	return false
}
