package githubapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
)

// Ruleset operation names.
const (
	OperationListRepositoryRulesets  OperationName = "list_repository_rulesets"
	OperationGetRepositoryRuleset    OperationName = "get_repository_ruleset"
	OperationCreateRepositoryRuleset OperationName = "create_repository_ruleset"
)

const (
	repositoryRulesetsPathTemplateConstant = "repos/%s/%s/rulesets"
	repositoryRulesetPathTemplateConstant  = "repos/%s/%s/rulesets/%d"
	includesParentsParameterConstant       = "includes_parents"
	includesParentsDisabledConstant        = "false"
)

type rulesetListEntry struct {
	Identifier int64  `json:"id"`
	Name       string `json:"name"`
}

// RepositoryRulesetDescriptors lists the identifier and name of every ruleset
// defined directly on one repository. Inherited organization rulesets are
// excluded so migration touches only repository-owned state.
func (session *Session) RepositoryRulesetDescriptors(executionContext context.Context, repositoryName string) ([]RulesetDescriptor, error) {
	queryParameters := url.Values{}
	queryParameters.Set(includesParentsParameterConstant, includesParentsDisabledConstant)

	rawRulesets, collectError := session.CollectPages(
		executionContext,
		OperationListRepositoryRulesets,
		fmt.Sprintf(repositoryRulesetsPathTemplateConstant, session.organization, repositoryName),
		queryParameters,
		nil,
	)
	if collectError != nil {
		return nil, collectError
	}

	rulesetDescriptors := make([]RulesetDescriptor, 0, len(rawRulesets))
	for _, rawRuleset := range rawRulesets {
		var listedRuleset rulesetListEntry
		if unmarshalError := json.Unmarshal(rawRuleset, &listedRuleset); unmarshalError != nil {
			return nil, &ResponseDecodingError{Operation: OperationListRepositoryRulesets, Cause: unmarshalError}
		}
		rulesetDescriptors = append(rulesetDescriptors, RulesetDescriptor{
			Identifier: listedRuleset.Identifier,
			Name:       listedRuleset.Name,
		})
	}
	return rulesetDescriptors, nil
}

// RepositoryRuleset fetches the full body of one ruleset as raw JSON so
// conditions, rules, and bypass actors survive untouched.
func (session *Session) RepositoryRuleset(executionContext context.Context, repositoryName string, rulesetIdentifier int64) (json.RawMessage, error) {
	return session.fetchRawJSON(
		executionContext,
		OperationGetRepositoryRuleset,
		fmt.Sprintf(repositoryRulesetPathTemplateConstant, session.organization, repositoryName, rulesetIdentifier),
	)
}

// CreateRepositoryRuleset submits one ruleset body as raw JSON.
func (session *Session) CreateRepositoryRuleset(executionContext context.Context, repositoryName string, rulesetBody json.RawMessage) error {
	_, submitError := session.submitRawJSON(
		executionContext,
		OperationCreateRepositoryRuleset,
		http.MethodPost,
		fmt.Sprintf(repositoryRulesetsPathTemplateConstant, session.organization, repositoryName),
		rulesetBody,
	)
	return submitError
}
