package migration

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/temirov/orgmigrate/internal/githubapi"
	"github.com/temirov/orgmigrate/internal/identity"
)

const sourceScopeUnavailableMessageConstant = "source scope is not configured for this mode"

var errSourceScopeUnavailable = errors.New(sourceScopeUnavailableMessageConstant)

// EnvironmentConfiguration describes the scopes one run talks to and how its
// source repositories are discovered.
type EnvironmentConfiguration struct {
	Mode          Mode
	Source        ScopeConfiguration
	Target        ScopeConfiguration
	Discovery     DiscoveryConfiguration
	TokenResolver *TokenResolver
	Logger        *zap.Logger
}

// Environment owns the per-run scope sessions plus the lazily built source
// repository listing and target identity resolver every class service shares.
// Sessions exist only for the scopes the mode touches.
type Environment struct {
	mode          Mode
	discovery     DiscoveryConfiguration
	sourceSession *githubapi.Session
	targetSession *githubapi.Session
	logger        *zap.Logger

	sourceRepositories []githubapi.RepositoryDescriptor
	sourceEnumerated   bool
	resolver           *identity.Resolver
}

// NewEnvironment validates the run configuration and opens the scope sessions
// the mode requires. No network calls happen until Preflight or the first
// lazy accessor.
func NewEnvironment(executionContext context.Context, configuration EnvironmentConfiguration) (*Environment, error) {
	environmentLogger := configuration.Logger
	if environmentLogger == nil {
		environmentLogger = zap.NewNop()
	}

	tokenResolver := configuration.TokenResolver
	if tokenResolver == nil {
		tokenResolver = NewTokenResolver(nil, nil)
	}

	sanitizedDiscovery := configuration.Discovery.Sanitize()
	if discoveryError := sanitizedDiscovery.Validate(); discoveryError != nil {
		return nil, discoveryError
	}

	environment := &Environment{
		mode:      configuration.Mode,
		discovery: sanitizedDiscovery,
		logger:    environmentLogger,
	}

	if configuration.Mode.ReadsSource() {
		sourceSession, sourceError := NewScopeSession(executionContext, ScopeRoleSource, configuration.Source, tokenResolver, environmentLogger)
		if sourceError != nil {
			return nil, sourceError
		}
		environment.sourceSession = sourceSession
	}
	if configuration.Mode.WritesTarget() {
		targetSession, targetError := NewScopeSession(executionContext, ScopeRoleTarget, configuration.Target, tokenResolver, environmentLogger)
		if targetError != nil {
			return nil, targetError
		}
		environment.targetSession = targetSession
	}

	return environment, nil
}

// Mode reports the run direction the environment was opened for.
func (environment *Environment) Mode() Mode {
	return environment.mode
}

// Source returns the source-scope session, or nil when the mode never reads
// the source.
func (environment *Environment) Source() *githubapi.Session {
	return environment.sourceSession
}

// Target returns the target-scope session, or nil when the mode never writes
// the target.
func (environment *Environment) Target() *githubapi.Session {
	return environment.targetSession
}

// RepositoryOverrides returns the configured source to target repository
// renames.
func (environment *Environment) RepositoryOverrides() map[string]string {
	return environment.discovery.RepositoryOverrides
}

// Preflight authenticates every configured scope and confirms its
// organization is reachable before entity work begins.
func (environment *Environment) Preflight(executionContext context.Context) error {
	scopeProbes := make([]ScopeProbe, 0, 2)
	if environment.sourceSession != nil {
		scopeProbes = append(scopeProbes, ScopeProbe{Role: ScopeRoleSource, Session: environment.sourceSession})
	}
	if environment.targetSession != nil {
		scopeProbes = append(scopeProbes, ScopeProbe{Role: ScopeRoleTarget, Session: environment.targetSession})
	}
	return VerifyScopes(executionContext, environment.logger, scopeProbes...)
}

// SourceRepositories enumerates the source scope with the configured
// discovery method and allowlist. The listing is taken once and reused by
// every class in the run.
func (environment *Environment) SourceRepositories(executionContext context.Context) ([]githubapi.RepositoryDescriptor, error) {
	if environment.sourceEnumerated {
		return environment.sourceRepositories, nil
	}
	if environment.sourceSession == nil {
		return nil, errSourceScopeUnavailable
	}

	discoveredRepositories, discoveryError := DiscoverRepositories(executionContext, environment.sourceSession, environment.discovery, environment.logger)
	if discoveryError != nil {
		return nil, discoveryError
	}
	environment.sourceRepositories = discoveredRepositories
	environment.sourceEnumerated = true
	return discoveredRepositories, nil
}

// Resolver builds the run identity resolver on first use. The target
// repository index behind it costs one full target enumeration, so the
// construction is deferred until a class actually resolves identity.
func (environment *Environment) Resolver(executionContext context.Context) (*identity.Resolver, error) {
	if environment.resolver != nil {
		return environment.resolver, nil
	}

	resolverDependencies := identity.ResolverDependencies{
		RepositoryOverrides: environment.discovery.RepositoryOverrides,
		Logger:              environment.logger,
	}
	if environment.sourceSession != nil {
		resolverDependencies.SourceTeams = environment.sourceSession
	}
	if environment.targetSession != nil {
		resolverDependencies.TargetTeams = environment.targetSession
		targetRepositories, enumerationError := environment.targetSession.RepositoriesViaREST(executionContext)
		if enumerationError != nil {
			return nil, enumerationError
		}
		resolverDependencies.TargetRepositories = identity.NewRepositoryIndex(targetRepositories)
	}

	environment.resolver = identity.NewResolver(resolverDependencies)
	return environment.resolver, nil
}
