package tests

import (
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/temirov/orgmigrate/cmd/cli"
	"github.com/temirov/orgmigrate/internal/memberships"
	"github.com/temirov/orgmigrate/internal/migration"
	"github.com/temirov/orgmigrate/internal/rulesets"
	"github.com/temirov/orgmigrate/internal/secrets"
	"github.com/temirov/orgmigrate/internal/variables"
	"github.com/temirov/orgmigrate/internal/webhooks"
)

const (
	platformRepositoryNameConstant   = "platform"
	legacyRepositoryNameConstant     = "legacy-tool"
	webhookDeliveryURLConstant       = "https://ci.example.com/hook"
	rulesetNameConstant              = "main-protection"
	organizationSecretNameConstant   = "DEPLOY_KEY"
	repositorySecretNameConstant     = "PLATFORM_TOKEN"
	legacySecretNameConstant         = "LEGACY_TOKEN"
	organizationVariableNameConstant = "REGION"
	repositoryVariableNameConstant   = "BUILD_MODE"
	adminMemberLoginConstant         = "alice"
	regularMemberLoginConstant       = "bob"
)

// registerSourceInventory loads the fake platform with the source
// organization: two repositories, secrets and variables on both scopes, one
// ruleset and one webhook on the platform repository, and a two-member
// roster.
func registerSourceInventory(fakeAPI *fakeGitHubAPI) {
	fakeAPI.respondGET("/orgs/acme/repos",
		`[{"id":101,"name":"platform"},{"id":102,"name":"legacy-tool"}]`)

	fakeAPI.respondGET("/orgs/acme/actions/secrets",
		`{"total_count":1,"secrets":[{"name":"DEPLOY_KEY","visibility":"all","created_at":"2026-01-10T00:00:00Z","updated_at":"2026-02-01T00:00:00Z"}]}`)
	fakeAPI.respondGET("/repos/acme/platform/actions/secrets",
		`{"total_count":1,"secrets":[{"name":"PLATFORM_TOKEN","visibility":"private","created_at":"2026-01-11T00:00:00Z","updated_at":"2026-01-11T00:00:00Z"}]}`)
	fakeAPI.respondGET("/repos/acme/legacy-tool/actions/secrets",
		`{"total_count":1,"secrets":[{"name":"LEGACY_TOKEN","visibility":"private","created_at":"2026-01-12T00:00:00Z","updated_at":"2026-01-12T00:00:00Z"}]}`)

	fakeAPI.respondGET("/orgs/acme/actions/variables",
		`{"total_count":1,"variables":[{"name":"REGION","value":"us-east-1","visibility":"all","created_at":"2026-01-10T00:00:00Z","updated_at":"2026-02-01T00:00:00Z"}]}`)
	fakeAPI.respondGET("/repos/acme/platform/actions/variables",
		`{"total_count":1,"variables":[{"name":"BUILD_MODE","value":"release","created_at":"2026-01-11T00:00:00Z","updated_at":"2026-01-11T00:00:00Z"}]}`)
	fakeAPI.respondGET("/repos/acme/legacy-tool/actions/variables",
		`{"total_count":0,"variables":[]}`)

	fakeAPI.respondGET("/repos/acme/platform/rulesets",
		`[{"id":11,"name":"main-protection"}]`)
	fakeAPI.respondGET("/repos/acme/platform/rulesets/11",
		`{"id":11,"name":"main-protection","target":"branch","enforcement":"active","conditions":{"ref_name":{"include":["refs/heads/main"],"exclude":[]}},"rules":[{"type":"deletion"}]}`)
	fakeAPI.respondGET("/repos/acme/legacy-tool/rulesets", `[]`)

	fakeAPI.respondGET("/repos/acme/platform/hooks",
		`[{"id":1,"active":true,"events":["push","pull_request"],"config":{"url":"https://ci.example.com/hook","content_type":"json","insecure_ssl":"0"}}]`)
	fakeAPI.respondGET("/repos/acme/legacy-tool/hooks", `[]`)

	fakeAPI.respondGET("/orgs/acme/members?role=admin", `[{"login":"alice","id":1}]`)
	fakeAPI.respondGET("/orgs/acme/members?role=member", `[{"login":"bob","id":2}]`)
}

// registerTargetInventory loads the fake platform with the target
// organization: only the platform repository exists, the roster already
// contains the regular member, and every write surface answers its default.
// The region variable creation is configured to collide so the run falls
// back to updating the existing value.
func registerTargetInventory(fakeAPI *fakeGitHubAPI) {
	fakeAPI.respondGET("/orgs/acme-new/repos", `[{"id":201,"name":"platform"}]`)

	fakeAPI.respondGET("/orgs/acme-new/actions/secrets/public-key", publicKeyResponseBody("org-key-1"))
	fakeAPI.respondGET("/repos/acme-new/platform/actions/secrets/public-key", publicKeyResponseBody("repo-key-1"))

	fakeAPI.respondGET("/repos/acme-new/platform/rulesets", `[]`)
	fakeAPI.respondGET("/repos/acme-new/platform/hooks", `[]`)
	fakeAPI.respondGET("/orgs/acme-new/members", `[{"login":"bob","id":2}]`)

	fakeAPI.failWrite(http.MethodPost, "/orgs/acme-new/actions/variables", http.StatusConflict)
}

func buildAllCommandEnvironment(testInstance *testing.T, fakeAPI *fakeGitHubAPI) (cli.ApplicationClassesConfiguration, string, string) {
	testInstance.Helper()
	artifactDirectory := testInstance.TempDir()
	reportPath := filepath.Join(artifactDirectory, "migration_report.csv")

	classesConfiguration := cli.ApplicationClassesConfiguration{
		Secrets:     secrets.Configuration{Output: filepath.Join(artifactDirectory, "secrets.csv")},
		Variables:   variables.Configuration{Output: filepath.Join(artifactDirectory, "variables.csv")},
		Rulesets:    rulesets.Configuration{Output: filepath.Join(artifactDirectory, "rulesets")},
		Webhooks:    webhooks.Configuration{Output: filepath.Join(artifactDirectory, "webhooks.json")},
		Memberships: memberships.Configuration{Output: filepath.Join(artifactDirectory, "memberships.csv")},
	}
	return classesConfiguration, artifactDirectory, reportPath
}

func TestAllCommandMigratesEveryClass(testInstance *testing.T) {
	fakeAPI := newFakeGitHubAPI(testInstance)
	fakeAPI.registerPreflight(sourceOrganizationNameConstant, targetOrganizationNameConstant)
	registerSourceInventory(fakeAPI)
	registerTargetInventory(fakeAPI)

	classesConfiguration, artifactDirectory, reportPath := buildAllCommandEnvironment(testInstance, fakeAPI)
	logCore, observedLogs := observer.New(zap.DebugLevel)

	commandBuilder := &cli.AllCommandBuilder{
		LoggerProvider: func() *zap.Logger { return zap.New(logCore) },
		ConfigurationProvider: func() cli.AllConfiguration {
			return cli.AllConfiguration{Mode: "migrate", Report: reportPath}
		},
		ClassesProvider:          func() cli.ApplicationClassesConfiguration { return classesConfiguration },
		RunConfigurationProvider: func() migration.RunConfiguration { return integrationRunConfiguration(fakeAPI) },
	}
	allCommand, buildError := commandBuilder.Build()
	require.NoError(testInstance, buildError)

	require.NoError(testInstance, executeCommand(testInstance, allCommand))

	reportRows := readCSVFile(testInstance, reportPath)
	require.Len(testInstance, reportRows, 9)

	organizationSecretRow := findReportRow(testInstance, reportRows, string(migration.ClassSecrets), organizationSecretNameConstant)
	require.Equal(testInstance, string(migration.OutcomeCreated), organizationSecretRow["outcome"])
	require.Equal(testInstance, "organization", organizationSecretRow["scope"])
	require.Equal(testInstance, "Created [PLACEHOLDER]", organizationSecretRow["detail"])

	repositorySecretRow := findReportRow(testInstance, reportRows, string(migration.ClassSecrets), repositorySecretNameConstant)
	require.Equal(testInstance, string(migration.OutcomeCreated), repositorySecretRow["outcome"])
	require.Equal(testInstance, platformRepositoryNameConstant, repositorySecretRow["repository"])

	legacySecretRow := findReportRow(testInstance, reportRows, string(migration.ClassSecrets), legacySecretNameConstant)
	require.Equal(testInstance, string(migration.OutcomeSkippedNoTargetRepo), legacySecretRow["outcome"])
	require.Equal(testInstance, legacyRepositoryNameConstant, legacySecretRow["repository"])
	require.Equal(testInstance, "target repository not found", legacySecretRow["detail"])

	organizationVariableRow := findReportRow(testInstance, reportRows, string(migration.ClassVariables), organizationVariableNameConstant)
	require.Equal(testInstance, string(migration.OutcomeCreated), organizationVariableRow["outcome"])
	require.Equal(testInstance, "updated existing value", organizationVariableRow["detail"])

	repositoryVariableRow := findReportRow(testInstance, reportRows, string(migration.ClassVariables), repositoryVariableNameConstant)
	require.Equal(testInstance, string(migration.OutcomeCreated), repositoryVariableRow["outcome"])
	require.Equal(testInstance, platformRepositoryNameConstant, repositoryVariableRow["repository"])

	rulesetRow := findReportRow(testInstance, reportRows, string(migration.ClassRulesets), rulesetNameConstant)
	require.Equal(testInstance, string(migration.OutcomeCreated), rulesetRow["outcome"])
	require.Equal(testInstance, platformRepositoryNameConstant, rulesetRow["repository"])

	webhookRow := findReportRow(testInstance, reportRows, string(migration.ClassWebhooks), webhookDeliveryURLConstant)
	require.Equal(testInstance, string(migration.OutcomeCreated), webhookRow["outcome"])
	require.Equal(testInstance, platformRepositoryNameConstant, webhookRow["repository"])

	adminMembershipRow := findReportRow(testInstance, reportRows, string(migration.ClassMemberships), adminMemberLoginConstant)
	require.Equal(testInstance, string(migration.OutcomeCreated), adminMembershipRow["outcome"])
	require.Equal(testInstance, "role admin", adminMembershipRow["detail"])

	regularMembershipRow := findReportRow(testInstance, reportRows, string(migration.ClassMemberships), regularMemberLoginConstant)
	require.Equal(testInstance, string(migration.OutcomeSkippedAlreadyExists), regularMembershipRow["outcome"])

	verifyAllCommandWrites(testInstance, fakeAPI)
	verifyAllCommandArtifacts(testInstance, artifactDirectory)
	verifyAllCommandLogs(testInstance, observedLogs)
}

func verifyAllCommandWrites(testInstance *testing.T, fakeAPI *fakeGitHubAPI) {
	testInstance.Helper()
	require.Len(testInstance, fakeAPI.recordedWrites(), 8)

	organizationSecretWrites := fakeAPI.writesTo(http.MethodPut, "/orgs/acme-new/actions/secrets/DEPLOY_KEY")
	require.Len(testInstance, organizationSecretWrites, 1)
	require.Contains(testInstance, organizationSecretWrites[0].body, `"key_id":"org-key-1"`)
	require.Contains(testInstance, organizationSecretWrites[0].body, `"visibility":"all"`)
	require.Contains(testInstance, organizationSecretWrites[0].body, `"encrypted_value"`)
	require.NotContains(testInstance, organizationSecretWrites[0].body, secrets.DefaultPlaceholderValue)

	repositorySecretWrites := fakeAPI.writesTo(http.MethodPut, "/repos/acme-new/platform/actions/secrets/PLATFORM_TOKEN")
	require.Len(testInstance, repositorySecretWrites, 1)
	require.Contains(testInstance, repositorySecretWrites[0].body, `"key_id":"repo-key-1"`)

	variableCreationWrites := fakeAPI.writesTo(http.MethodPost, "/orgs/acme-new/actions/variables")
	require.Len(testInstance, variableCreationWrites, 1)
	require.Contains(testInstance, variableCreationWrites[0].body, `"value":"us-east-1"`)
	variableUpdateWrites := fakeAPI.writesTo(http.MethodPatch, "/orgs/acme-new/actions/variables/REGION")
	require.Len(testInstance, variableUpdateWrites, 1)
	repositoryVariableWrites := fakeAPI.writesTo(http.MethodPost, "/repos/acme-new/platform/actions/variables")
	require.Len(testInstance, repositoryVariableWrites, 1)
	require.Contains(testInstance, repositoryVariableWrites[0].body, `"value":"release"`)

	rulesetWrites := fakeAPI.writesTo(http.MethodPost, "/repos/acme-new/platform/rulesets")
	require.Len(testInstance, rulesetWrites, 1)
	require.Contains(testInstance, rulesetWrites[0].body, `"name":"main-protection"`)
	require.NotContains(testInstance, rulesetWrites[0].body, `"id"`)

	webhookWrites := fakeAPI.writesTo(http.MethodPost, "/repos/acme-new/platform/hooks")
	require.Len(testInstance, webhookWrites, 1)
	require.Contains(testInstance, webhookWrites[0].body, `"name":"web"`)
	require.Contains(testInstance, webhookWrites[0].body, webhookDeliveryURLConstant)

	membershipWrites := fakeAPI.writesTo(http.MethodPut, "/orgs/acme-new/memberships/alice")
	require.Len(testInstance, membershipWrites, 1)
	require.Contains(testInstance, membershipWrites[0].body, `"role":"admin"`)
}

func verifyAllCommandArtifacts(testInstance *testing.T, artifactDirectory string) {
	testInstance.Helper()

	secretRows := readCSVFile(testInstance, filepath.Join(artifactDirectory, "secrets.csv"))
	require.Len(testInstance, secretRows, 3)
	require.Equal(testInstance, organizationSecretNameConstant, secretRows[0]["name"])
	require.Equal(testInstance, secrets.RedactedValueSentinel, secretRows[0]["value"])
	require.Equal(testInstance, platformRepositoryNameConstant, secretRows[1]["repository"])

	variableRows := readCSVFile(testInstance, filepath.Join(artifactDirectory, "variables.csv"))
	require.Len(testInstance, variableRows, 2)
	require.Equal(testInstance, "us-east-1", variableRows[0]["value"])
	require.Equal(testInstance, "release", variableRows[1]["value"])

	rulesetArtifact, rulesetReadError := os.ReadFile(filepath.Join(artifactDirectory, "rulesets", "platform-rulesets.json"))
	require.NoError(testInstance, rulesetReadError)
	require.Contains(testInstance, string(rulesetArtifact), rulesetNameConstant)

	webhookArtifact, webhookReadError := os.ReadFile(filepath.Join(artifactDirectory, "webhooks.json"))
	require.NoError(testInstance, webhookReadError)
	var webhookDocument webhooks.ArtifactDocument
	require.NoError(testInstance, json.Unmarshal(webhookArtifact, &webhookDocument))
	require.Equal(testInstance, sourceOrganizationNameConstant, webhookDocument.SourceOrganization)
	require.Equal(testInstance, targetOrganizationNameConstant, webhookDocument.TargetOrganization)
	require.Equal(testInstance, platformRepositoryNameConstant, webhookDocument.Repositories[platformRepositoryNameConstant].TargetRepository)
	require.Len(testInstance, webhookDocument.Repositories[platformRepositoryNameConstant].Webhooks, 1)

	membershipRows := readCSVFile(testInstance, filepath.Join(artifactDirectory, "memberships.csv"))
	require.Len(testInstance, membershipRows, 2)
	require.Equal(testInstance, adminMemberLoginConstant, membershipRows[0]["username"])
	require.Equal(testInstance, "admin", membershipRows[0]["role"])
	require.Equal(testInstance, regularMemberLoginConstant, membershipRows[1]["username"])
	require.Equal(testInstance, "member", membershipRows[1]["role"])
}

func verifyAllCommandLogs(testInstance *testing.T, observedLogs *observer.ObservedLogs) {
	testInstance.Helper()

	require.Len(testInstance, observedLogs.FilterMessage("scope verified").All(), 2)

	completedClasses := make([]string, 0)
	for _, logEntry := range observedLogs.FilterMessage("class completed").All() {
		completedClasses = append(completedClasses, logEntry.ContextMap()["class"].(string))
	}
	require.Equal(testInstance, []string{"secrets", "variables", "rulesets", "webhooks", "memberships"}, completedClasses)

	runCompletedEntries := observedLogs.FilterMessage("run completed").All()
	require.Len(testInstance, runCompletedEntries, 1)
	runSummaryFields := runCompletedEntries[0].ContextMap()
	require.Equal(testInstance, int64(7), runSummaryFields["created"])
	require.Equal(testInstance, int64(1), runSummaryFields["already_exists"])
	require.Equal(testInstance, int64(1), runSummaryFields["missing_targets"])
	require.Equal(testInstance, int64(0), runSummaryFields["failed"])
	require.Equal(testInstance, int64(0), runSummaryFields["planned"])
	require.Equal(testInstance, int64(9), runSummaryFields["total"])
}
