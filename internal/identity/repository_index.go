package identity

import (
	"strings"

	"github.com/temirov/orgmigrate/internal/githubapi"
)

// RepositoryIndex maps repository names to identifiers within one scope.
// Lookups fold case because the platform treats repository names
// case-insensitively.
type RepositoryIndex struct {
	identifiersByName map[string]int64
}

// NewRepositoryIndex builds an index over the provided repository listing.
func NewRepositoryIndex(repositories []githubapi.RepositoryDescriptor) *RepositoryIndex {
	identifiersByName := make(map[string]int64, len(repositories))
	for _, repositoryDescriptor := range repositories {
		identifiersByName[strings.ToLower(repositoryDescriptor.Name)] = repositoryDescriptor.Identifier
	}
	return &RepositoryIndex{identifiersByName: identifiersByName}
}

// Lookup resolves one repository name to its identifier.
func (index *RepositoryIndex) Lookup(repositoryName string) (int64, bool) {
	repositoryIdentifier, nameKnown := index.identifiersByName[strings.ToLower(repositoryName)]
	return repositoryIdentifier, nameKnown
}

// Size reports how many repositories the index covers.
func (index *RepositoryIndex) Size() int {
	return len(index.identifiersByName)
}
