package githubapi

import (
	"context"
	"fmt"

	"github.com/shurcooL/githubv4"
	"go.uber.org/zap"
)

// Repository discovery operation names.
const (
	OperationListRepositories OperationName = "list_repositories"
)

const (
	organizationRepositoriesPathTemplateConstant = "orgs/%s/repos"
	repositoryDiscoveryTruncatedMessageConstant  = "repository discovery truncated at safety cap"
)

const (
	organizationLoginVariableNameConstant = "organizationLogin"
	pageSizeVariableNameConstant          = "pageSize"
	cursorVariableNameConstant            = "cursor"
)

// RepositoriesViaREST discovers every repository in the scope through the
// paginated REST listing.
func (session *Session) RepositoriesViaREST(executionContext context.Context) ([]RepositoryDescriptor, error) {
	rawRepositories, collectError := session.CollectPages(
		executionContext,
		OperationListRepositories,
		fmt.Sprintf(organizationRepositoriesPathTemplateConstant, session.organization),
		nil,
		nil,
	)
	if collectError != nil {
		return nil, collectError
	}
	return decodeRepositoryListing(OperationListRepositories, rawRepositories)
}

type repositoryDiscoveryQuery struct {
	Organization struct {
		Repositories struct {
			Nodes []struct {
				DatabaseId githubv4.Int
				Name       githubv4.String
			}
			PageInfo struct {
				EndCursor   githubv4.String
				HasNextPage githubv4.Boolean
			}
		} `graphql:"repositories(first: $pageSize, after: $cursor, orderBy: {field: NAME, direction: ASC})"`
	} `graphql:"organization(login: $organizationLogin)"`
}

// Repositories discovers every repository in the scope through cursor
// pagination, ordered by name.
func (session *Session) Repositories(executionContext context.Context) ([]RepositoryDescriptor, error) {
	queryVariables := map[string]any{
		organizationLoginVariableNameConstant: githubv4.String(session.organization),
		pageSizeVariableNameConstant:          githubv4.Int(collectionPageSizeConstant),
		cursorVariableNameConstant:            (*githubv4.String)(nil),
	}

	discoveredRepositories := make([]RepositoryDescriptor, 0)
	for pageNumber := 1; pageNumber <= maximumCollectedPagesConstant; pageNumber++ {
		var discoveryQuery repositoryDiscoveryQuery
		if queryError := session.graphqlClient.Query(executionContext, &discoveryQuery, queryVariables); queryError != nil {
			return nil, fmt.Errorf(operationErrorTemplateConstant, OperationListRepositories, queryError)
		}

		for _, repositoryNode := range discoveryQuery.Organization.Repositories.Nodes {
			discoveredRepositories = append(discoveredRepositories, RepositoryDescriptor{
				Identifier: int64(repositoryNode.DatabaseId),
				Name:       string(repositoryNode.Name),
			})
		}

		if !bool(discoveryQuery.Organization.Repositories.PageInfo.HasNextPage) {
			return discoveredRepositories, nil
		}
		queryVariables[cursorVariableNameConstant] = githubv4.NewString(discoveryQuery.Organization.Repositories.PageInfo.EndCursor)
	}

	session.logger.Warn(
		repositoryDiscoveryTruncatedMessageConstant,
		zap.String(logFieldOperationConstant, string(OperationListRepositories)),
		zap.Int(logFieldItemCountConstant, len(discoveredRepositories)),
	)
	return discoveredRepositories, nil
}
