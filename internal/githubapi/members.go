package githubapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"

	"github.com/google/go-github/v75/github"
)

// Membership operation names.
const (
	OperationListOrganizationMembers      OperationName = "list_organization_members"
	OperationUpsertOrganizationMembership OperationName = "upsert_organization_membership"
)

const (
	organizationMembersPathTemplateConstant = "orgs/%s/members"
	memberRoleQueryParameterConstant        = "role"
)

type memberListEntry struct {
	Login      string `json:"login"`
	Identifier int64  `json:"id"`
}

// OrganizationMembers lists organization members, optionally filtered by
// role. The reported role of every returned member is the filter value.
func (session *Session) OrganizationMembers(executionContext context.Context, roleFilter string) ([]MemberDescriptor, error) {
	queryParameters := url.Values{}
	if len(roleFilter) > 0 {
		queryParameters.Set(memberRoleQueryParameterConstant, roleFilter)
	}

	rawMembers, collectError := session.CollectPages(
		executionContext,
		OperationListOrganizationMembers,
		fmt.Sprintf(organizationMembersPathTemplateConstant, session.organization),
		queryParameters,
		nil,
	)
	if collectError != nil {
		return nil, collectError
	}

	memberDescriptors := make([]MemberDescriptor, 0, len(rawMembers))
	for _, rawMember := range rawMembers {
		var listedMember memberListEntry
		if unmarshalError := json.Unmarshal(rawMember, &listedMember); unmarshalError != nil {
			return nil, &ResponseDecodingError{Operation: OperationListOrganizationMembers, Cause: unmarshalError}
		}
		memberDescriptors = append(memberDescriptors, MemberDescriptor{
			Login:      listedMember.Login,
			Identifier: listedMember.Identifier,
			Role:       roleFilter,
		})
	}
	return memberDescriptors, nil
}

// UpsertOrganizationMembership invites or updates one member at the
// requested role. The call is an upsert on the platform side.
func (session *Session) UpsertOrganizationMembership(executionContext context.Context, memberLogin string, memberRole string) error {
	membership := &github.Membership{Role: github.Ptr(memberRole)}
	return session.execute(executionContext, OperationUpsertOrganizationMembership, func(callContext context.Context) (*github.Response, error) {
		_, response, callError := session.restClient.Organizations.EditOrgMembership(callContext, memberLogin, session.organization, membership)
		return response, callError
	})
}
