package migration_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/temirov/orgmigrate/internal/migration"
)

func TestScopeConfigurationValidate(testInstance *testing.T) {
	testCases := []struct {
		name              string
		configuration     migration.ScopeConfiguration
		role              migration.ScopeRole
		expectedField     string
		expectedErrorText string
	}{
		{
			name:          "complete_scope",
			configuration: migration.ScopeConfiguration{Organization: "acme", Token: migration.DefaultSourceTokenSource},
			role:          migration.ScopeRoleSource,
		},
		{
			name:              "missing_organization",
			configuration:     migration.ScopeConfiguration{Token: migration.DefaultSourceTokenSource},
			role:              migration.ScopeRoleSource,
			expectedField:     "organization",
			expectedErrorText: "source scope organization must be configured",
		},
		{
			name:              "missing_token",
			configuration:     migration.ScopeConfiguration{Organization: "acme-new"},
			role:              migration.ScopeRoleTarget,
			expectedField:     "token",
			expectedErrorText: "target scope token must be configured",
		},
	}

	for testCaseIndex, testCase := range testCases {
		testInstance.Run(fmt.Sprintf("%d_%s", testCaseIndex, testCase.name), func(subtestInstance *testing.T) {
			validationError := testCase.configuration.Validate(testCase.role)
			if len(testCase.expectedErrorText) == 0 {
				require.NoError(subtestInstance, validationError)
				return
			}

			require.Error(subtestInstance, validationError)
			require.Equal(subtestInstance, testCase.expectedErrorText, validationError.Error())

			var scopeConfigurationError *migration.ScopeConfigurationError
			require.True(subtestInstance, errors.As(validationError, &scopeConfigurationError))
			require.Equal(subtestInstance, testCase.role, scopeConfigurationError.Role)
			require.Equal(subtestInstance, testCase.expectedField, scopeConfigurationError.Field)
		})
	}
}

func TestRunConfigurationSanitizeFillsTokenDefaults(testInstance *testing.T) {
	sanitizedConfiguration := migration.RunConfiguration{
		Source: migration.ScopeConfiguration{Organization: "  acme  "},
		Target: migration.ScopeConfiguration{Organization: "acme-new", Token: "  file:/var/run/secrets/github  "},
	}.Sanitize()

	require.Equal(testInstance, "acme", sanitizedConfiguration.Source.Organization)
	require.Equal(testInstance, migration.DefaultSourceTokenSource, sanitizedConfiguration.Source.Token)
	require.Equal(testInstance, "file:/var/run/secrets/github", sanitizedConfiguration.Target.Token)
	require.Equal(testInstance, migration.DiscoveryMethodREST, sanitizedConfiguration.Discovery.Method)
}

func TestDiscoveryConfigurationSanitize(testInstance *testing.T) {
	sanitizedConfiguration := migration.DiscoveryConfiguration{
		Method:       "  GraphQL  ",
		Repositories: []string{"  platform  ", "   ", "legacy-tool"},
	}.Sanitize()

	require.Equal(testInstance, migration.DiscoveryMethodGraphQL, sanitizedConfiguration.Method)
	require.Equal(testInstance, []string{"platform", "legacy-tool"}, sanitizedConfiguration.Repositories)
}

func TestDiscoveryConfigurationValidate(testInstance *testing.T) {
	require.NoError(testInstance, migration.DiscoveryConfiguration{Method: migration.DiscoveryMethodREST}.Validate())
	require.NoError(testInstance, migration.DiscoveryConfiguration{Method: migration.DiscoveryMethodGraphQL}.Validate())

	validationError := migration.DiscoveryConfiguration{Method: "ldap"}.Validate()
	require.Error(testInstance, validationError)
	require.Contains(testInstance, validationError.Error(), `unsupported discovery method "ldap"`)
}

func TestDefaultConfigurationValues(testInstance *testing.T) {
	defaultValues := migration.DefaultConfigurationValues()
	require.Equal(testInstance, migration.DefaultSourceTokenSource, defaultValues["source.token"])
	require.Equal(testInstance, migration.DefaultTargetTokenSource, defaultValues["target.token"])
	require.Equal(testInstance, migration.DiscoveryMethodREST, defaultValues["discovery.method"])
}
