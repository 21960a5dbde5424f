package githubapi

import (
	"context"

	"github.com/google/go-github/v75/github"
)

// Team operation names.
const (
	OperationGetTeamBySlug       OperationName = "get_team_by_slug"
	OperationGetTeamByIdentifier OperationName = "get_team_by_identifier"
)

// TeamBySlug probes one team by slug. A missing team reports through
// IsNotFound; teams are never created by this tool.
func (session *Session) TeamBySlug(executionContext context.Context, teamSlug string) (TeamDescriptor, error) {
	var team *github.Team
	executionError := session.execute(executionContext, OperationGetTeamBySlug, func(callContext context.Context) (*github.Response, error) {
		var response *github.Response
		var callError error
		team, response, callError = session.restClient.Teams.GetTeamBySlug(callContext, session.organization, teamSlug)
		return response, callError
	})
	if executionError != nil {
		return TeamDescriptor{}, executionError
	}
	return TeamDescriptor{
		Identifier: team.GetID(),
		Slug:       team.GetSlug(),
		Name:       team.GetName(),
		Privacy:    team.GetPrivacy(),
		Permission: team.GetPermission(),
	}, nil
}

// TeamByIdentifier probes one team by its numeric identifier. The lookup
// resolves the organization identifier on first use.
func (session *Session) TeamByIdentifier(executionContext context.Context, teamIdentifier int64) (TeamDescriptor, error) {
	organizationIdentifier, identifierError := session.resolveOrganizationIdentifier(executionContext)
	if identifierError != nil {
		return TeamDescriptor{}, identifierError
	}

	var team *github.Team
	executionError := session.execute(executionContext, OperationGetTeamByIdentifier, func(callContext context.Context) (*github.Response, error) {
		var response *github.Response
		var callError error
		team, response, callError = session.restClient.Teams.GetTeamByID(callContext, organizationIdentifier, teamIdentifier)
		return response, callError
	})
	if executionError != nil {
		return TeamDescriptor{}, executionError
	}
	return TeamDescriptor{
		Identifier: team.GetID(),
		Slug:       team.GetSlug(),
		Name:       team.GetName(),
		Privacy:    team.GetPrivacy(),
		Permission: team.GetPermission(),
	}, nil
}
