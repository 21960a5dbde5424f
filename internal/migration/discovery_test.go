package migration_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/temirov/orgmigrate/internal/githubapi"
	"github.com/temirov/orgmigrate/internal/migration"
)

type stubRepositoryLister struct {
	graphQLRepositories []githubapi.RepositoryDescriptor
	restRepositories    []githubapi.RepositoryDescriptor
	graphQLError        error
	restError           error
	graphQLInvocations  int
	restInvocations     int
}

func (repositoryLister *stubRepositoryLister) Repositories(_ context.Context) ([]githubapi.RepositoryDescriptor, error) {
	repositoryLister.graphQLInvocations++
	return repositoryLister.graphQLRepositories, repositoryLister.graphQLError
}

func (repositoryLister *stubRepositoryLister) RepositoriesViaREST(_ context.Context) ([]githubapi.RepositoryDescriptor, error) {
	repositoryLister.restInvocations++
	return repositoryLister.restRepositories, repositoryLister.restError
}

func TestDiscoverRepositoriesSelectsConfiguredMethod(testInstance *testing.T) {
	repositoryLister := &stubRepositoryLister{
		restRepositories:    []githubapi.RepositoryDescriptor{{Identifier: 101, Name: "platform"}},
		graphQLRepositories: []githubapi.RepositoryDescriptor{{Identifier: 102, Name: "legacy-tool"}},
	}

	restRepositories, restError := migration.DiscoverRepositories(
		context.Background(),
		repositoryLister,
		migration.DiscoveryConfiguration{Method: migration.DiscoveryMethodREST},
		nil,
	)
	require.NoError(testInstance, restError)
	require.Equal(testInstance, []githubapi.RepositoryDescriptor{{Identifier: 101, Name: "platform"}}, restRepositories)
	require.Equal(testInstance, 1, repositoryLister.restInvocations)
	require.Equal(testInstance, 0, repositoryLister.graphQLInvocations)

	graphQLRepositories, graphQLError := migration.DiscoverRepositories(
		context.Background(),
		repositoryLister,
		migration.DiscoveryConfiguration{Method: migration.DiscoveryMethodGraphQL},
		nil,
	)
	require.NoError(testInstance, graphQLError)
	require.Equal(testInstance, []githubapi.RepositoryDescriptor{{Identifier: 102, Name: "legacy-tool"}}, graphQLRepositories)
	require.Equal(testInstance, 1, repositoryLister.graphQLInvocations)
}

func TestDiscoverRepositoriesAppliesAllowlist(testInstance *testing.T) {
	logCore, observedLogs := observer.New(zap.WarnLevel)
	repositoryLister := &stubRepositoryLister{
		restRepositories: []githubapi.RepositoryDescriptor{
			{Identifier: 101, Name: "alpha"},
			{Identifier: 102, Name: "Beta"},
			{Identifier: 103, Name: "gamma"},
		},
	}

	allowlistedRepositories, discoveryError := migration.DiscoverRepositories(
		context.Background(),
		repositoryLister,
		migration.DiscoveryConfiguration{
			Method:       migration.DiscoveryMethodREST,
			Repositories: []string{"BETA", "alpha", "missing"},
		},
		zap.New(logCore),
	)
	require.NoError(testInstance, discoveryError)
	require.Equal(testInstance, []githubapi.RepositoryDescriptor{
		{Identifier: 102, Name: "Beta"},
		{Identifier: 101, Name: "alpha"},
	}, allowlistedRepositories)

	missingEntries := observedLogs.FilterMessage("allowlisted repository not present in scope").All()
	require.Len(testInstance, missingEntries, 1)
	require.Equal(testInstance, "missing", missingEntries[0].ContextMap()["repository"])
}

func TestDiscoverRepositoriesWithoutAllowlistKeepsListing(testInstance *testing.T) {
	repositoryLister := &stubRepositoryLister{
		restRepositories: []githubapi.RepositoryDescriptor{
			{Identifier: 101, Name: "alpha"},
			{Identifier: 102, Name: "beta"},
		},
	}

	discoveredRepositories, discoveryError := migration.DiscoverRepositories(
		context.Background(),
		repositoryLister,
		migration.DiscoveryConfiguration{Method: migration.DiscoveryMethodREST},
		nil,
	)
	require.NoError(testInstance, discoveryError)
	require.Equal(testInstance, repositoryLister.restRepositories, discoveredRepositories)
}

func TestDiscoverRepositoriesPropagatesListingFailure(testInstance *testing.T) {
	listingFailure := errors.New("listing interrupted")
	repositoryLister := &stubRepositoryLister{restError: listingFailure}

	discoveredRepositories, discoveryError := migration.DiscoverRepositories(
		context.Background(),
		repositoryLister,
		migration.DiscoveryConfiguration{Method: migration.DiscoveryMethodREST},
		nil,
	)
	require.ErrorIs(testInstance, discoveryError, listingFailure)
	require.Nil(testInstance, discoveredRepositories)
}
