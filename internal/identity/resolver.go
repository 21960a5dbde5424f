package identity

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/temirov/orgmigrate/internal/githubapi"
)

const (
	missingRepositoryMessageConstant      = "selected repository missing from target scope"
	missingSourceTeamMessageConstant      = "bypass actor team missing from source scope"
	droppedReasonMissingSlugConstant      = "team slug missing from export"
	droppedReasonTeamNotFoundConstant     = "team does not exist in target organization"
	logFieldRepositoryNameConstant        = "repository_name"
	logFieldTeamIdentifierConstant        = "team_identifier"
	logFieldTeamSlugConstant              = "team_slug"
	teamDirectoryMissingMessageConstant   = "team directory not configured"
	repositoryIndexMissingMessageConstant = "repository index not configured"
)

var (
	errTeamDirectoryMissing   = errors.New(teamDirectoryMissingMessageConstant)
	errRepositoryIndexMissing = errors.New(repositoryIndexMissingMessageConstant)
)

// BypassActor is one ruleset bypass entry. TeamSlug and RoleName are
// enrichment fields carried only inside export artifacts; they are cleared
// before upload.
type BypassActor struct {
	ActorIdentifier int64  `json:"actor_id,omitempty"`
	ActorType       string `json:"actor_type"`
	BypassMode      string `json:"bypass_mode,omitempty"`
	TeamSlug        string `json:"team_slug,omitempty"`
	RoleName        string `json:"role_name,omitempty"`
}

// DroppedActor records one bypass actor excluded during resolution.
type DroppedActor struct {
	Actor  BypassActor
	Reason string
}

// RepositoryPlacement is the target-scope location of one source repository.
type RepositoryPlacement struct {
	TargetName string
	Identifier int64
	Exists     bool
}

// TeamDirectory looks up teams inside one scope.
type TeamDirectory interface {
	TeamBySlug(executionContext context.Context, teamSlug string) (githubapi.TeamDescriptor, error)
	TeamByIdentifier(executionContext context.Context, teamIdentifier int64) (githubapi.TeamDescriptor, error)
}

// ResolverDependencies carries the directories one Resolver consults. Only
// the directories a caller actually exercises need to be present.
type ResolverDependencies struct {
	TargetRepositories  *RepositoryIndex
	RepositoryOverrides map[string]string
	SourceTeams         TeamDirectory
	TargetTeams         TeamDirectory
	Logger              *zap.Logger
}

// Resolver translates source-scope references into target-scope identity.
type Resolver struct {
	targetRepositories  *RepositoryIndex
	repositoryOverrides map[string]string
	sourceTeams         TeamDirectory
	targetTeams         TeamDirectory
	logger              *zap.Logger
}

// NewResolver builds a Resolver from its dependencies.
func NewResolver(dependencies ResolverDependencies) *Resolver {
	resolverLogger := dependencies.Logger
	if resolverLogger == nil {
		resolverLogger = zap.NewNop()
	}
	return &Resolver{
		targetRepositories:  dependencies.TargetRepositories,
		repositoryOverrides: dependencies.RepositoryOverrides,
		sourceTeams:         dependencies.SourceTeams,
		targetTeams:         dependencies.TargetTeams,
		logger:              resolverLogger,
	}
}

// mappedRepositoryName applies any configured rename before a target lookup.
func (resolver *Resolver) mappedRepositoryName(repositoryName string) string {
	if renamedRepository, renameConfigured := resolver.repositoryOverrides[repositoryName]; renameConfigured {
		return renamedRepository
	}
	return repositoryName
}

// ResolveSelectedRepositories maps repository names from the source scope to
// target identifiers. Names without a target counterpart are reported back
// and excluded rather than failing the caller.
func (resolver *Resolver) ResolveSelectedRepositories(selectedRepositoryNames []string) ([]int64, []string, error) {
	if resolver.targetRepositories == nil {
		return nil, nil, errRepositoryIndexMissing
	}

	resolvedIdentifiers := make([]int64, 0, len(selectedRepositoryNames))
	missingRepositories := make([]string, 0)
	for _, repositoryName := range selectedRepositoryNames {
		targetName := resolver.mappedRepositoryName(repositoryName)
		repositoryIdentifier, nameKnown := resolver.targetRepositories.Lookup(targetName)
		if !nameKnown {
			resolver.logger.Warn(missingRepositoryMessageConstant, zap.String(logFieldRepositoryNameConstant, targetName))
			missingRepositories = append(missingRepositories, repositoryName)
			continue
		}
		resolvedIdentifiers = append(resolvedIdentifiers, repositoryIdentifier)
	}
	return resolvedIdentifiers, missingRepositories, nil
}

// ResolveRepository maps one source repository name through any configured
// rename and reports where it lives in the target scope. Exists is false when
// the target scope has no repository under the mapped name.
func (resolver *Resolver) ResolveRepository(repositoryName string) (RepositoryPlacement, error) {
	if resolver.targetRepositories == nil {
		return RepositoryPlacement{}, errRepositoryIndexMissing
	}

	targetName := resolver.mappedRepositoryName(repositoryName)
	repositoryIdentifier, nameKnown := resolver.targetRepositories.Lookup(targetName)
	if !nameKnown {
		return RepositoryPlacement{TargetName: targetName}, nil
	}
	return RepositoryPlacement{TargetName: targetName, Identifier: repositoryIdentifier, Exists: true}, nil
}

// EnrichBypassActors decorates source-scope bypass actors with the portable
// identity an import needs: team slugs and readable role names. A team the
// source no longer knows stays in the list without a slug.
func (resolver *Resolver) EnrichBypassActors(executionContext context.Context, bypassActors []BypassActor) ([]BypassActor, error) {
	enrichedActors := make([]BypassActor, 0, len(bypassActors))
	for _, bypassActor := range bypassActors {
		switch bypassActor.ActorType {
		case ActorTypeTeamConstant:
			if resolver.sourceTeams == nil {
				return nil, errTeamDirectoryMissing
			}
			teamDescriptor, lookupError := resolver.sourceTeams.TeamByIdentifier(executionContext, bypassActor.ActorIdentifier)
			if lookupError != nil {
				if githubapi.IsNotFound(lookupError) {
					resolver.logger.Warn(missingSourceTeamMessageConstant, zap.Int64(logFieldTeamIdentifierConstant, bypassActor.ActorIdentifier))
					enrichedActors = append(enrichedActors, bypassActor)
					continue
				}
				return nil, lookupError
			}
			bypassActor.TeamSlug = teamDescriptor.Slug
		case ActorTypeRepositoryRoleConstant:
			bypassActor.RoleName = RepositoryRoleName(bypassActor.ActorIdentifier)
		}
		enrichedActors = append(enrichedActors, bypassActor)
	}
	return enrichedActors, nil
}

// ResolveBypassActors rewrites enriched bypass actors for the target scope.
// Team actors are re-keyed through their slug; teams the target does not
// have are dropped and reported, never created. Repository role and user
// identifiers pass through unchanged.
func (resolver *Resolver) ResolveBypassActors(executionContext context.Context, bypassActors []BypassActor) ([]BypassActor, []DroppedActor, error) {
	resolvedActors := make([]BypassActor, 0, len(bypassActors))
	droppedActors := make([]DroppedActor, 0)

	for _, bypassActor := range bypassActors {
		if bypassActor.ActorType != ActorTypeTeamConstant {
			resolvedActors = append(resolvedActors, cleanActor(bypassActor))
			continue
		}

		if len(bypassActor.TeamSlug) == 0 {
			droppedActors = append(droppedActors, DroppedActor{Actor: bypassActor, Reason: droppedReasonMissingSlugConstant})
			continue
		}
		if resolver.targetTeams == nil {
			return nil, nil, errTeamDirectoryMissing
		}

		teamDescriptor, lookupError := resolver.targetTeams.TeamBySlug(executionContext, bypassActor.TeamSlug)
		if lookupError != nil {
			if githubapi.IsNotFound(lookupError) {
				resolver.logger.Warn(droppedReasonTeamNotFoundConstant, zap.String(logFieldTeamSlugConstant, bypassActor.TeamSlug))
				droppedActors = append(droppedActors, DroppedActor{Actor: bypassActor, Reason: droppedReasonTeamNotFoundConstant})
				continue
			}
			return nil, nil, lookupError
		}

		bypassActor.ActorIdentifier = teamDescriptor.Identifier
		resolvedActors = append(resolvedActors, cleanActor(bypassActor))
	}

	return resolvedActors, droppedActors, nil
}

// StripEnrichment returns copies of the actors with the export-only
// enrichment fields cleared, leaving exactly what upload payloads accept.
func StripEnrichment(bypassActors []BypassActor) []BypassActor {
	strippedActors := make([]BypassActor, 0, len(bypassActors))
	for _, bypassActor := range bypassActors {
		strippedActors = append(strippedActors, cleanActor(bypassActor))
	}
	return strippedActors
}

// cleanActor strips enrichment fields so upload payloads carry only the
// actor identity the platform accepts.
func cleanActor(bypassActor BypassActor) BypassActor {
	bypassActor.TeamSlug = ""
	bypassActor.RoleName = ""
	return bypassActor
}
