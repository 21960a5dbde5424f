package migration

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/temirov/orgmigrate/internal/githubapi"
)

const (
	allowlistedRepositoryMissingMessageConstant = "allowlisted repository not present in scope"
	logFieldRepositoryConstant                  = "repository"
)

// RepositoryLister enumerates the repositories of one scope.
type RepositoryLister interface {
	Repositories(executionContext context.Context) ([]githubapi.RepositoryDescriptor, error)
	RepositoriesViaREST(executionContext context.Context) ([]githubapi.RepositoryDescriptor, error)
}

// DiscoverRepositories enumerates scope repositories with the configured
// method and narrows the listing to the allowlist when one is configured.
// Allowlisted names absent from the scope are logged and skipped.
func DiscoverRepositories(executionContext context.Context, lister RepositoryLister, configuration DiscoveryConfiguration, logger *zap.Logger) ([]githubapi.RepositoryDescriptor, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	var discoveredRepositories []githubapi.RepositoryDescriptor
	var discoveryError error
	if configuration.Method == DiscoveryMethodGraphQL {
		discoveredRepositories, discoveryError = lister.Repositories(executionContext)
	} else {
		discoveredRepositories, discoveryError = lister.RepositoriesViaREST(executionContext)
	}
	if discoveryError != nil {
		return nil, discoveryError
	}

	if len(configuration.Repositories) == 0 {
		return discoveredRepositories, nil
	}

	descriptorsByName := make(map[string]githubapi.RepositoryDescriptor, len(discoveredRepositories))
	for _, repositoryDescriptor := range discoveredRepositories {
		descriptorsByName[strings.ToLower(repositoryDescriptor.Name)] = repositoryDescriptor
	}

	allowlistedRepositories := make([]githubapi.RepositoryDescriptor, 0, len(configuration.Repositories))
	for _, allowlistedName := range configuration.Repositories {
		repositoryDescriptor, namePresent := descriptorsByName[strings.ToLower(allowlistedName)]
		if !namePresent {
			logger.Warn(allowlistedRepositoryMissingMessageConstant, zap.String(logFieldRepositoryConstant, allowlistedName))
			continue
		}
		allowlistedRepositories = append(allowlistedRepositories, repositoryDescriptor)
	}
	return allowlistedRepositories, nil
}
