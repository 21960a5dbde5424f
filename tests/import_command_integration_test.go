package tests

import (
	"net/http"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/temirov/orgmigrate/internal/migration"
	"github.com/temirov/orgmigrate/internal/variables"
)

const importedVariablesArtifactConstant = `scope,repository,name,value,visibility,selected_repositories,created_at,updated_at
organization,,REGION,us-west-2,all,,,
repository,platform,BUILD_MODE,debug,,,,
`

// Import mode never opens the source scope: the artifact on disk decides the
// work, and only the target organization is registered on the fake platform.
func TestVariablesImportCommand(testInstance *testing.T) {
	fakeAPI := newFakeGitHubAPI(testInstance)
	fakeAPI.registerPreflight(targetOrganizationNameConstant)
	fakeAPI.respondGET("/orgs/acme-new/repos", `[{"id":201,"name":"platform"}]`)

	workingDirectory := testInstance.TempDir()
	artifactPath := filepath.Join(workingDirectory, "variables.csv")
	reportPath := filepath.Join(workingDirectory, "report.csv")
	require.NoError(testInstance, os.WriteFile(artifactPath, []byte(importedVariablesArtifactConstant), 0o600))

	commandBuilder := &variables.CommandBuilder{
		ConfigurationProvider: func() variables.Configuration {
			return variables.Configuration{Mode: "import", Input: artifactPath, Report: reportPath}
		},
		RunConfigurationProvider: func() migration.RunConfiguration { return integrationRunConfiguration(fakeAPI) },
	}
	variablesCommand, buildError := commandBuilder.Build()
	require.NoError(testInstance, buildError)

	require.NoError(testInstance, executeCommand(testInstance, variablesCommand))

	reportRows := readCSVFile(testInstance, reportPath)
	require.Len(testInstance, reportRows, 2)

	organizationVariableRow := findReportRow(testInstance, reportRows, string(migration.ClassVariables), "REGION")
	require.Equal(testInstance, string(migration.OutcomeCreated), organizationVariableRow["outcome"])
	require.Equal(testInstance, "organization", organizationVariableRow["scope"])

	repositoryVariableRow := findReportRow(testInstance, reportRows, string(migration.ClassVariables), "BUILD_MODE")
	require.Equal(testInstance, string(migration.OutcomeCreated), repositoryVariableRow["outcome"])
	require.Equal(testInstance, "platform", repositoryVariableRow["repository"])

	capturedWrites := fakeAPI.recordedWrites()
	require.Len(testInstance, capturedWrites, 2)

	organizationVariableWrites := fakeAPI.writesTo(http.MethodPost, "/orgs/acme-new/actions/variables")
	require.Len(testInstance, organizationVariableWrites, 1)
	require.Contains(testInstance, organizationVariableWrites[0].body, `"name":"REGION"`)
	require.Contains(testInstance, organizationVariableWrites[0].body, `"value":"us-west-2"`)
	require.Contains(testInstance, organizationVariableWrites[0].body, `"visibility":"all"`)

	repositoryVariableWrites := fakeAPI.writesTo(http.MethodPost, "/repos/acme-new/platform/actions/variables")
	require.Len(testInstance, repositoryVariableWrites, 1)
	require.Contains(testInstance, repositoryVariableWrites[0].body, `"value":"debug"`)
}
