package tests

import (
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/temirov/orgmigrate/internal/githubapi"
	"github.com/temirov/orgmigrate/internal/migration"
	"github.com/temirov/orgmigrate/internal/secrets"
)

// A rejected target credential must stop the run before any entity work:
// no listings are applied, no writes happen, and no report is flushed.
func TestMigrateAbortsWhenTargetScopeRejectsCredential(testInstance *testing.T) {
	fakeAPI := newFakeGitHubAPI(testInstance)
	fakeAPI.registerPreflight(sourceOrganizationNameConstant)
	fakeAPI.failGET("/orgs/acme-new", http.StatusUnauthorized)

	reportPath := filepath.Join(testInstance.TempDir(), "report.csv")

	commandBuilder := &secrets.CommandBuilder{
		ConfigurationProvider: func() secrets.Configuration {
			return secrets.Configuration{Mode: "migrate", Report: reportPath}
		},
		RunConfigurationProvider: func() migration.RunConfiguration { return integrationRunConfiguration(fakeAPI) },
	}
	secretsCommand, buildError := commandBuilder.Build()
	require.NoError(testInstance, buildError)

	executionError := executeCommand(testInstance, secretsCommand)
	require.Error(testInstance, executionError)

	var preflightFailure *migration.PreflightError
	require.True(testInstance, errors.As(executionError, &preflightFailure))
	require.Equal(testInstance, migration.ScopeRoleTarget, preflightFailure.Role)
	require.Contains(testInstance, executionError.Error(), "target scope preflight failed on organization reachability")

	var authenticationFailure *githubapi.AuthenticationError
	require.True(testInstance, errors.As(executionError, &authenticationFailure))
	require.Equal(testInstance, http.StatusUnauthorized, authenticationFailure.StatusCode)

	require.Empty(testInstance, fakeAPI.recordedWrites())

	_, reportStatError := os.Stat(reportPath)
	require.True(testInstance, os.IsNotExist(reportStatError))
}
