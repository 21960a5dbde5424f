package cli_test

import (
	"bytes"
	"fmt"
	"testing"

	mapstructure "github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/require"

	"github.com/temirov/orgmigrate/cmd/cli"
	"github.com/temirov/orgmigrate/internal/memberships"
	"github.com/temirov/orgmigrate/internal/migration"
	"github.com/temirov/orgmigrate/internal/rulesets"
	"github.com/temirov/orgmigrate/internal/secrets"
	"github.com/temirov/orgmigrate/internal/variables"
	"github.com/temirov/orgmigrate/internal/webhooks"
)

func decodeEmbeddedApplicationConfiguration(testInstance *testing.T) cli.ApplicationConfiguration {
	testInstance.Helper()

	embeddedConfiguration, configurationType := cli.EmbeddedDefaultConfiguration()
	require.NotEmpty(testInstance, embeddedConfiguration)

	viperInstance := viper.New()
	viperInstance.SetConfigType(configurationType)
	require.NoError(testInstance, viperInstance.ReadConfig(bytes.NewReader(embeddedConfiguration)))

	var decodedConfiguration cli.ApplicationConfiguration
	require.NoError(testInstance, viperInstance.Unmarshal(&decodedConfiguration))

	return decodedConfiguration
}

func TestEmbeddedDefaultConfigurationMatchesPackageDefaults(testInstance *testing.T) {
	decodedConfiguration := decodeEmbeddedApplicationConfiguration(testInstance)

	require.Equal(testInstance, "info", decodedConfiguration.Common.LogLevel)
	require.Equal(testInstance, "structured", decodedConfiguration.Common.LogFormat)

	require.Empty(testInstance, decodedConfiguration.Source.Organization)
	require.Equal(testInstance, migration.DefaultSourceTokenSource, decodedConfiguration.Source.Token)
	require.Empty(testInstance, decodedConfiguration.Target.Organization)
	require.Equal(testInstance, migration.DefaultTargetTokenSource, decodedConfiguration.Target.Token)
	require.Equal(testInstance, migration.DiscoveryMethodREST, decodedConfiguration.Discovery.Method)

	require.Equal(testInstance, secrets.DefaultConfiguration(), decodedConfiguration.Classes.Secrets)
	require.Equal(testInstance, variables.DefaultConfiguration(), decodedConfiguration.Classes.Variables)
	require.Equal(testInstance, rulesets.DefaultConfiguration(), decodedConfiguration.Classes.Rulesets)
	require.Equal(testInstance, webhooks.DefaultConfiguration(), decodedConfiguration.Classes.Webhooks)
	require.Equal(testInstance, memberships.DefaultConfiguration(), decodedConfiguration.Classes.Memberships)
	require.Equal(testInstance, cli.DefaultAllConfiguration(), decodedConfiguration.All)
}

func decodeConfigurationSection(testInstance *testing.T, sectionValues map[string]any, targetConfiguration any) {
	testInstance.Helper()

	sectionDecoder, decoderError := mapstructure.NewDecoder(&mapstructure.DecoderConfig{TagName: "mapstructure", Result: targetConfiguration})
	require.NoError(testInstance, decoderError)
	require.NoError(testInstance, sectionDecoder.Decode(sectionValues))
}

func TestClassConfigurationSectionsDecodeDeclaredKeys(testInstance *testing.T) {
	var secretsConfiguration secrets.Configuration
	decodeConfigurationSection(testInstance, map[string]any{
		"mode":        "export",
		"output":      "secrets.csv",
		"placeholder": "SET_ME_MANUALLY",
	}, &secretsConfiguration)
	require.Equal(testInstance, "export", secretsConfiguration.Mode)
	require.Equal(testInstance, "secrets.csv", secretsConfiguration.Output)
	require.Equal(testInstance, "SET_ME_MANUALLY", secretsConfiguration.Placeholder)

	var rulesetsConfiguration rulesets.Configuration
	decodeConfigurationSection(testInstance, map[string]any{
		"mode":                     "migrate",
		"dry_run":                  true,
		"enrich_bypass_actors":     false,
		"sanitize_bypass_actors":   false,
		"remove_all_bypass_actors": true,
	}, &rulesetsConfiguration)
	require.Equal(testInstance, "migrate", rulesetsConfiguration.Mode)
	require.True(testInstance, rulesetsConfiguration.DryRun)
	require.False(testInstance, rulesetsConfiguration.EnrichBypassActors)
	require.False(testInstance, rulesetsConfiguration.SanitizeBypassActors)
	require.True(testInstance, rulesetsConfiguration.RemoveAllBypassActors)
}

func TestRunConfigurationAssemblesSharedScopes(testInstance *testing.T) {
	applicationConfiguration := cli.ApplicationConfiguration{
		Source: migration.ScopeConfiguration{Organization: "acme", Token: migration.DefaultSourceTokenSource},
		Target: migration.ScopeConfiguration{Organization: "acme-new", Token: migration.DefaultTargetTokenSource},
		Discovery: migration.DiscoveryConfiguration{
			Method:              migration.DiscoveryMethodGraphQL,
			Repositories:        []string{"svc-a"},
			RepositoryOverrides: map[string]string{"svc-a": "svc-a-next"},
		},
	}

	runConfiguration := applicationConfiguration.RunConfiguration()

	require.Equal(testInstance, applicationConfiguration.Source, runConfiguration.Source)
	require.Equal(testInstance, applicationConfiguration.Target, runConfiguration.Target)
	require.Equal(testInstance, applicationConfiguration.Discovery, runConfiguration.Discovery)
}

func TestDefaultAllConfigurationListsEveryClass(testInstance *testing.T) {
	defaults := cli.DefaultAllConfiguration()

	require.Equal(testInstance, cli.DefaultAllMode, defaults.Mode)
	require.Equal(testInstance, cli.DefaultAllReportPath, defaults.Report)
	require.False(testInstance, defaults.DryRun)
	require.Equal(testInstance, []string{"secrets", "variables", "rulesets", "webhooks", "memberships"}, defaults.Classes)
}

func TestAllConfigurationSanitize(testInstance *testing.T) {
	testCases := []struct {
		name     string
		input    cli.AllConfiguration
		expected cli.AllConfiguration
	}{
		{
			name:     "fills_blank_fields_from_defaults",
			input:    cli.AllConfiguration{},
			expected: cli.DefaultAllConfiguration(),
		},
		{
			name: "normalizes_class_names",
			input: cli.AllConfiguration{
				Mode:    "export",
				Report:  "custom_report.csv",
				Classes: []string{" Secrets ", "WEBHOOKS", ""},
			},
			expected: cli.AllConfiguration{
				Mode:    "export",
				Report:  "custom_report.csv",
				Classes: []string{"secrets", "webhooks"},
			},
		},
		{
			name: "restores_default_classes_when_emptied",
			input: cli.AllConfiguration{
				Mode:    "import",
				Report:  "custom_report.csv",
				Classes: []string{"   "},
			},
			expected: cli.AllConfiguration{
				Mode:    "import",
				Report:  "custom_report.csv",
				Classes: cli.DefaultAllConfiguration().Classes,
			},
		},
	}

	for testCaseIndex, testCase := range testCases {
		testInstance.Run(fmt.Sprintf("%d_%s", testCaseIndex, testCase.name), func(subtestInstance *testing.T) {
			require.Equal(subtestInstance, testCase.expected, testCase.input.Sanitize())
		})
	}
}

func TestAllDefaultConfigurationValuesUseRootKey(testInstance *testing.T) {
	defaultValues := cli.AllDefaultConfigurationValues("all")

	require.Equal(testInstance, cli.DefaultAllMode, defaultValues["all.mode"])
	require.Equal(testInstance, cli.DefaultAllReportPath, defaultValues["all.report"])
	require.Equal(testInstance, false, defaultValues["all.dry_run"])
	require.Equal(testInstance, cli.DefaultAllConfiguration().Classes, defaultValues["all.classes"])
}
