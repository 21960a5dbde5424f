package utils

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

const (
	configurationKeySeparatorConstant                = "."
	environmentKeySeparatorConstant                  = "_"
	configurationNameMissingMessageConstant          = "configuration name must be provided"
	configurationReadErrorTemplateConstant           = "failed to read configuration: %w"
	configurationDecodeErrorTemplateConstant         = "failed to decode configuration: %w"
	embeddedConfigurationMergeErrorTemplateConstant  = "failed to merge embedded configuration: %w"
	configurationTargetMissingMessageConstant        = "configuration target must be provided"
	defaultConfigurationSearchPathFallbackConstant   = "."
	defaultEmbeddedConfigurationTypeFallbackConstant = "yaml"
)

// ConfigurationLoaderOptions describes how configuration files and environment overrides are discovered.
type ConfigurationLoaderOptions struct {
	ConfigurationName string
	ConfigurationType string
	EnvironmentPrefix string
	SearchPaths       []string
}

// ConfigurationLoader resolves layered configuration: embedded defaults, files, and environment variables.
type ConfigurationLoader struct {
	options                   ConfigurationLoaderOptions
	environmentKeyReplacer    *strings.Replacer
	embeddedConfiguration     []byte
	embeddedConfigurationType string
}

// LoadedConfiguration reports metadata about the configuration resolution.
type LoadedConfiguration struct {
	ConfigFileUsed string
}

// NewConfigurationLoader constructs a loader for the provided options.
func NewConfigurationLoader(options ConfigurationLoaderOptions) *ConfigurationLoader {
	duplicatedSearchPaths := make([]string, 0, len(options.SearchPaths))
	for _, searchPath := range options.SearchPaths {
		trimmedSearchPath := strings.TrimSpace(searchPath)
		if len(trimmedSearchPath) == 0 {
			continue
		}
		duplicatedSearchPaths = append(duplicatedSearchPaths, trimmedSearchPath)
	}
	if len(duplicatedSearchPaths) == 0 {
		duplicatedSearchPaths = []string{defaultConfigurationSearchPathFallbackConstant}
	}
	options.SearchPaths = duplicatedSearchPaths

	return &ConfigurationLoader{
		options:                options,
		environmentKeyReplacer: strings.NewReplacer(configurationKeySeparatorConstant, environmentKeySeparatorConstant),
	}
}

// SetEmbeddedConfiguration registers embedded defaults merged beneath user-provided configuration.
func (loader *ConfigurationLoader) SetEmbeddedConfiguration(configurationData []byte, configurationType string) {
	if loader == nil {
		return
	}

	loader.embeddedConfiguration = nil
	loader.embeddedConfigurationType = strings.TrimSpace(configurationType)
	if len(loader.embeddedConfigurationType) == 0 {
		loader.embeddedConfigurationType = defaultEmbeddedConfigurationTypeFallbackConstant
	}

	if len(configurationData) == 0 {
		return
	}

	duplicatedData := make([]byte, len(configurationData))
	copy(duplicatedData, configurationData)
	loader.embeddedConfiguration = duplicatedData
}

// LoadConfiguration populates targetConfiguration from defaults, files, and environment overrides.
func (loader *ConfigurationLoader) LoadConfiguration(configurationFilePath string, defaultValues map[string]any, targetConfiguration any) (LoadedConfiguration, error) {
	if len(strings.TrimSpace(loader.options.ConfigurationName)) == 0 {
		return LoadedConfiguration{}, errors.New(configurationNameMissingMessageConstant)
	}
	if targetConfiguration == nil {
		return LoadedConfiguration{}, errors.New(configurationTargetMissingMessageConstant)
	}

	viperInstance := viper.New()
	viperInstance.SetConfigName(loader.options.ConfigurationName)
	viperInstance.SetConfigType(loader.options.ConfigurationType)

	if mergeError := loader.mergeEmbeddedConfiguration(viperInstance); mergeError != nil {
		return LoadedConfiguration{}, mergeError
	}

	for _, searchPath := range loader.options.SearchPaths {
		viperInstance.AddConfigPath(searchPath)
	}

	viperInstance.SetEnvPrefix(loader.options.EnvironmentPrefix)
	viperInstance.SetEnvKeyReplacer(loader.environmentKeyReplacer)
	viperInstance.AutomaticEnv()

	for defaultKey, defaultValue := range defaultValues {
		viperInstance.SetDefault(defaultKey, defaultValue)
	}

	if len(configurationFilePath) > 0 {
		viperInstance.SetConfigFile(configurationFilePath)
	}

	readError := viperInstance.MergeInConfig()
	if readError != nil {
		if _, isNotFound := readError.(viper.ConfigFileNotFoundError); !isNotFound {
			return LoadedConfiguration{}, fmt.Errorf(configurationReadErrorTemplateConstant, readError)
		}
	}

	if unmarshalError := viperInstance.Unmarshal(targetConfiguration); unmarshalError != nil {
		return LoadedConfiguration{}, fmt.Errorf(configurationDecodeErrorTemplateConstant, unmarshalError)
	}

	return LoadedConfiguration{ConfigFileUsed: viperInstance.ConfigFileUsed()}, nil
}

func (loader *ConfigurationLoader) mergeEmbeddedConfiguration(viperInstance *viper.Viper) error {
	if len(loader.embeddedConfiguration) == 0 {
		return nil
	}

	viperInstance.SetConfigType(loader.embeddedConfigurationType)
	if mergeError := viperInstance.MergeConfig(bytes.NewReader(loader.embeddedConfiguration)); mergeError != nil {
		return fmt.Errorf(embeddedConfigurationMergeErrorTemplateConstant, mergeError)
	}
	viperInstance.SetConfigType(loader.options.ConfigurationType)

	return nil
}
