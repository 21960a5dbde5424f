package rulesets_test

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/temirov/orgmigrate/internal/identity"
	"github.com/temirov/orgmigrate/internal/rulesets"
)

func TestCreationPayloadCarriesOnlyModeledKeys(testInstance *testing.T) {
	document, parseError := rulesets.ParseDocument(json.RawMessage(protectionRulesetBody))
	require.NoError(testInstance, parseError)

	creationPayload, payloadError := document.CreationPayload([]identity.BypassActor{
		{ActorIdentifier: 77, ActorType: identity.ActorTypeTeamConstant, BypassMode: "always"},
	})
	require.NoError(testInstance, payloadError)

	payloadDocument, reparseError := rulesets.ParseDocument(creationPayload)
	require.NoError(testInstance, reparseError)
	require.Contains(testInstance, payloadDocument, "name")
	require.Contains(testInstance, payloadDocument, "conditions")
	require.Contains(testInstance, payloadDocument, "bypass_actors")
	require.NotContains(testInstance, payloadDocument, "id")
}

func TestCreationPayloadOmitsEmptyBypassActors(testInstance *testing.T) {
	document, parseError := rulesets.ParseDocument(json.RawMessage(protectionRulesetBody))
	require.NoError(testInstance, parseError)

	creationPayload, payloadError := document.CreationPayload(nil)
	require.NoError(testInstance, payloadError)

	payloadDocument, reparseError := rulesets.ParseDocument(creationPayload)
	require.NoError(testInstance, reparseError)
	require.NotContains(testInstance, payloadDocument, "bypass_actors")
}

func TestRepositoryFromArtifactName(testInstance *testing.T) {
	testCases := []struct {
		name               string
		fileName           string
		expectedRepository string
		expectedMatch      bool
	}{
		{name: "plain_artifact", fileName: "svc-a-rulesets.json", expectedRepository: "svc-a", expectedMatch: true},
		{name: "hyphenated_repository", fileName: "data-pipeline-rulesets.json", expectedRepository: "data-pipeline", expectedMatch: true},
		{name: "suffix_only", fileName: "-rulesets.json", expectedMatch: false},
		{name: "unrelated_file", fileName: "report.csv", expectedMatch: false},
	}

	for testCaseIndex, testCase := range testCases {
		testInstance.Run(fmt.Sprintf("%d_%s", testCaseIndex, testCase.name), func(subtest *testing.T) {
			repositoryName, nameMatches := rulesets.RepositoryFromArtifactName(testCase.fileName)
			require.Equal(subtest, testCase.expectedMatch, nameMatches)
			require.Equal(subtest, testCase.expectedRepository, repositoryName)
		})
	}
}
