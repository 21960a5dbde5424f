package githubapi

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/go-github/v75/github"
)

// Variable operation names.
const (
	OperationListOrganizationVariables  OperationName = "list_organization_variables"
	OperationCreateOrganizationVariable OperationName = "create_organization_variable"
	OperationUpdateOrganizationVariable OperationName = "update_organization_variable"
	OperationListVariableRepositories   OperationName = "list_variable_repositories"
	OperationListRepositoryVariables    OperationName = "list_repository_variables"
	OperationCreateRepositoryVariable   OperationName = "create_repository_variable"
	OperationUpdateRepositoryVariable   OperationName = "update_repository_variable"
)

const (
	organizationVariablesPathTemplateConstant            = "orgs/%s/actions/variables"
	organizationVariableRepositoriesPathTemplateConstant = "orgs/%s/actions/variables/%s/repositories"
	repositoryVariablesPathTemplateConstant              = "repos/%s/%s/actions/variables"
	variablesCollectionKeyConstant                       = "variables"
)

// VariablePayload carries one plaintext variable ready for upload.
type VariablePayload struct {
	Name                  string
	Value                 string
	Visibility            string
	SelectedRepositoryIDs []int64
}

type variableListEntry struct {
	Name       string `json:"name"`
	Value      string `json:"value"`
	Visibility string `json:"visibility"`
	CreatedAt  string `json:"created_at"`
	UpdatedAt  string `json:"updated_at"`
}

func decodeVariableListing(operation OperationName, rawVariables []json.RawMessage) ([]VariableDescriptor, error) {
	variableDescriptors := make([]VariableDescriptor, 0, len(rawVariables))
	for _, rawVariable := range rawVariables {
		var listedVariable variableListEntry
		if unmarshalError := json.Unmarshal(rawVariable, &listedVariable); unmarshalError != nil {
			return nil, &ResponseDecodingError{Operation: operation, Cause: unmarshalError}
		}
		variableDescriptors = append(variableDescriptors, VariableDescriptor{
			Name:       listedVariable.Name,
			Value:      listedVariable.Value,
			Visibility: listedVariable.Visibility,
			CreatedAt:  listedVariable.CreatedAt,
			UpdatedAt:  listedVariable.UpdatedAt,
		})
	}
	return variableDescriptors, nil
}

func buildActionsVariable(payload VariablePayload) *github.ActionsVariable {
	actionsVariable := &github.ActionsVariable{
		Name:  payload.Name,
		Value: payload.Value,
	}
	if len(payload.Visibility) > 0 {
		actionsVariable.Visibility = github.Ptr(payload.Visibility)
	}
	if len(payload.SelectedRepositoryIDs) > 0 {
		selectedIdentifiers := github.SelectedRepoIDs(payload.SelectedRepositoryIDs)
		actionsVariable.SelectedRepositoryIDs = &selectedIdentifiers
	}
	return actionsVariable
}

// OrganizationVariables lists every organization variable with its value.
func (session *Session) OrganizationVariables(executionContext context.Context) ([]VariableDescriptor, error) {
	rawVariables, collectError := session.CollectPages(
		executionContext,
		OperationListOrganizationVariables,
		fmt.Sprintf(organizationVariablesPathTemplateConstant, session.organization),
		nil,
		[]string{variablesCollectionKeyConstant},
	)
	if collectError != nil {
		return nil, collectError
	}
	return decodeVariableListing(OperationListOrganizationVariables, rawVariables)
}

// SelectedRepositoriesForVariable lists the repositories a selected-visibility
// organization variable is shared with.
func (session *Session) SelectedRepositoriesForVariable(executionContext context.Context, variableName string) ([]RepositoryDescriptor, error) {
	rawRepositories, collectError := session.CollectPages(
		executionContext,
		OperationListVariableRepositories,
		fmt.Sprintf(organizationVariableRepositoriesPathTemplateConstant, session.organization, variableName),
		nil,
		[]string{repositoriesCollectionKeyConstant},
	)
	if collectError != nil {
		return nil, collectError
	}
	return decodeRepositoryListing(OperationListVariableRepositories, rawRepositories)
}

// CreateOrganizationVariable creates one organization variable. A conflict
// reported through IsConflict means the variable already exists.
func (session *Session) CreateOrganizationVariable(executionContext context.Context, payload VariablePayload) error {
	actionsVariable := buildActionsVariable(payload)
	return session.execute(executionContext, OperationCreateOrganizationVariable, func(callContext context.Context) (*github.Response, error) {
		return session.restClient.Actions.CreateOrgVariable(callContext, session.organization, actionsVariable)
	})
}

// UpdateOrganizationVariable overwrites one existing organization variable.
func (session *Session) UpdateOrganizationVariable(executionContext context.Context, payload VariablePayload) error {
	actionsVariable := buildActionsVariable(payload)
	return session.execute(executionContext, OperationUpdateOrganizationVariable, func(callContext context.Context) (*github.Response, error) {
		return session.restClient.Actions.UpdateOrgVariable(callContext, session.organization, actionsVariable)
	})
}

// RepositoryVariables lists every variable on one repository.
func (session *Session) RepositoryVariables(executionContext context.Context, repositoryName string) ([]VariableDescriptor, error) {
	rawVariables, collectError := session.CollectPages(
		executionContext,
		OperationListRepositoryVariables,
		fmt.Sprintf(repositoryVariablesPathTemplateConstant, session.organization, repositoryName),
		nil,
		[]string{variablesCollectionKeyConstant},
	)
	if collectError != nil {
		return nil, collectError
	}
	return decodeVariableListing(OperationListRepositoryVariables, rawVariables)
}

// CreateRepositoryVariable creates one repository variable. A conflict
// reported through IsConflict means the variable already exists.
func (session *Session) CreateRepositoryVariable(executionContext context.Context, repositoryName string, payload VariablePayload) error {
	actionsVariable := &github.ActionsVariable{Name: payload.Name, Value: payload.Value}
	return session.execute(executionContext, OperationCreateRepositoryVariable, func(callContext context.Context) (*github.Response, error) {
		return session.restClient.Actions.CreateRepoVariable(callContext, session.organization, repositoryName, actionsVariable)
	})
}

// UpdateRepositoryVariable overwrites one existing repository variable.
func (session *Session) UpdateRepositoryVariable(executionContext context.Context, repositoryName string, payload VariablePayload) error {
	actionsVariable := &github.ActionsVariable{Name: payload.Name, Value: payload.Value}
	return session.execute(executionContext, OperationUpdateRepositoryVariable, func(callContext context.Context) (*github.Response, error) {
		return session.restClient.Actions.UpdateRepoVariable(callContext, session.organization, repositoryName, actionsVariable)
	})
}
