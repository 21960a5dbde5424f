package identity_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/temirov/orgmigrate/internal/githubapi"
	"github.com/temirov/orgmigrate/internal/identity"
)

type stubTeamDirectory struct {
	teamsBySlug       map[string]githubapi.TeamDescriptor
	teamsByIdentifier map[int64]githubapi.TeamDescriptor
	failure           error
}

func (stub stubTeamDirectory) TeamBySlug(_ context.Context, teamSlug string) (githubapi.TeamDescriptor, error) {
	if stub.failure != nil {
		return githubapi.TeamDescriptor{}, stub.failure
	}
	teamDescriptor, teamKnown := stub.teamsBySlug[teamSlug]
	if !teamKnown {
		return githubapi.TeamDescriptor{}, fmt.Errorf("team %s: %w", teamSlug, githubapi.ErrNotFound)
	}
	return teamDescriptor, nil
}

func (stub stubTeamDirectory) TeamByIdentifier(_ context.Context, teamIdentifier int64) (githubapi.TeamDescriptor, error) {
	if stub.failure != nil {
		return githubapi.TeamDescriptor{}, stub.failure
	}
	teamDescriptor, teamKnown := stub.teamsByIdentifier[teamIdentifier]
	if !teamKnown {
		return githubapi.TeamDescriptor{}, fmt.Errorf("team %d: %w", teamIdentifier, githubapi.ErrNotFound)
	}
	return teamDescriptor, nil
}

func TestResolveSelectedRepositories(testInstance *testing.T) {
	repositoryIndex := identity.NewRepositoryIndex([]githubapi.RepositoryDescriptor{
		{Identifier: 201, Name: "svc-a"},
		{Identifier: 202, Name: "svc-b-renamed"},
	})

	resolver := identity.NewResolver(identity.ResolverDependencies{
		TargetRepositories:  repositoryIndex,
		RepositoryOverrides: map[string]string{"svc-b": "svc-b-renamed"},
	})

	resolvedIdentifiers, missingRepositories, resolutionError := resolver.ResolveSelectedRepositories([]string{"svc-a", "svc-b", "svc-c"})

	require.NoError(testInstance, resolutionError)
	require.Equal(testInstance, []int64{201, 202}, resolvedIdentifiers)
	require.Equal(testInstance, []string{"svc-c"}, missingRepositories)
}

func TestResolveSelectedRepositoriesRequiresIndex(testInstance *testing.T) {
	resolver := identity.NewResolver(identity.ResolverDependencies{})

	_, _, resolutionError := resolver.ResolveSelectedRepositories([]string{"svc-a"})

	require.Error(testInstance, resolutionError)
}

func TestEnrichBypassActors(testInstance *testing.T) {
	resolver := identity.NewResolver(identity.ResolverDependencies{
		SourceTeams: stubTeamDirectory{
			teamsByIdentifier: map[int64]githubapi.TeamDescriptor{
				42: {Identifier: 42, Slug: "platform-admins", Name: "Platform Admins"},
			},
		},
	})

	enrichedActors, enrichError := resolver.EnrichBypassActors(context.Background(), []identity.BypassActor{
		{ActorIdentifier: 42, ActorType: identity.ActorTypeTeamConstant, BypassMode: "always"},
		{ActorIdentifier: 5, ActorType: identity.ActorTypeRepositoryRoleConstant, BypassMode: "always"},
		{ActorIdentifier: 7, ActorType: identity.ActorTypeUserConstant, BypassMode: "pull_request"},
		{ActorIdentifier: 99, ActorType: identity.ActorTypeTeamConstant, BypassMode: "always"},
	})

	require.NoError(testInstance, enrichError)
	require.Equal(testInstance, []identity.BypassActor{
		{ActorIdentifier: 42, ActorType: identity.ActorTypeTeamConstant, BypassMode: "always", TeamSlug: "platform-admins"},
		{ActorIdentifier: 5, ActorType: identity.ActorTypeRepositoryRoleConstant, BypassMode: "always", RoleName: "admin"},
		{ActorIdentifier: 7, ActorType: identity.ActorTypeUserConstant, BypassMode: "pull_request"},
		{ActorIdentifier: 99, ActorType: identity.ActorTypeTeamConstant, BypassMode: "always"},
	}, enrichedActors)
}

func TestResolveBypassActors(testInstance *testing.T) {
	resolver := identity.NewResolver(identity.ResolverDependencies{
		TargetTeams: stubTeamDirectory{
			teamsBySlug: map[string]githubapi.TeamDescriptor{
				"platform-admins": {Identifier: 77, Slug: "platform-admins"},
			},
		},
	})

	resolvedActors, droppedActors, resolutionError := resolver.ResolveBypassActors(context.Background(), []identity.BypassActor{
		{ActorIdentifier: 42, ActorType: identity.ActorTypeTeamConstant, BypassMode: "always", TeamSlug: "platform-admins"},
		{ActorIdentifier: 43, ActorType: identity.ActorTypeTeamConstant, BypassMode: "always", TeamSlug: "retired-team"},
		{ActorIdentifier: 44, ActorType: identity.ActorTypeTeamConstant, BypassMode: "always"},
		{ActorIdentifier: 5, ActorType: identity.ActorTypeRepositoryRoleConstant, BypassMode: "always", RoleName: "admin"},
		{ActorIdentifier: 7, ActorType: identity.ActorTypeUserConstant, BypassMode: "pull_request"},
	})

	require.NoError(testInstance, resolutionError)
	require.Equal(testInstance, []identity.BypassActor{
		{ActorIdentifier: 77, ActorType: identity.ActorTypeTeamConstant, BypassMode: "always"},
		{ActorIdentifier: 5, ActorType: identity.ActorTypeRepositoryRoleConstant, BypassMode: "always"},
		{ActorIdentifier: 7, ActorType: identity.ActorTypeUserConstant, BypassMode: "pull_request"},
	}, resolvedActors)
	require.Len(testInstance, droppedActors, 2)
	require.Equal(testInstance, int64(43), droppedActors[0].Actor.ActorIdentifier)
	require.Equal(testInstance, int64(44), droppedActors[1].Actor.ActorIdentifier)
	require.NotEqual(testInstance, droppedActors[0].Reason, droppedActors[1].Reason)
}

func TestResolveBypassActorsPropagatesDirectoryFailures(testInstance *testing.T) {
	directoryFailure := &githubapi.AuthenticationError{Organization: "target-engineering", StatusCode: 401}
	resolver := identity.NewResolver(identity.ResolverDependencies{
		TargetTeams: stubTeamDirectory{failure: directoryFailure},
	})

	_, _, resolutionError := resolver.ResolveBypassActors(context.Background(), []identity.BypassActor{
		{ActorIdentifier: 42, ActorType: identity.ActorTypeTeamConstant, TeamSlug: "platform-admins"},
	})

	var authenticationError *githubapi.AuthenticationError
	require.ErrorAs(testInstance, resolutionError, &authenticationError)
}
