package migration

import (
	"fmt"
	"strings"
)

// ScopeRole distinguishes the two ends of a migration.
type ScopeRole string

// Scope role enumerations.
const (
	ScopeRoleSource ScopeRole = "source"
	ScopeRoleTarget ScopeRole = "target"
)

// Repository discovery methods.
const (
	DiscoveryMethodREST    = "rest"
	DiscoveryMethodGraphQL = "graphql"
)

// Default token sources of the two scopes. Bare credentials never appear in
// configuration files; the token keys carry source declarations instead.
const (
	DefaultSourceTokenSource = "env:SOURCE_GITHUB_TOKEN"
	DefaultTargetTokenSource = "env:TARGET_GITHUB_TOKEN"
)

const (
	organizationConfigurationFieldConstant     = "organization"
	tokenConfigurationFieldConstant            = "token"
	scopeFieldMissingTemplateConstant          = "%s scope %s must be configured"
	unsupportedDiscoveryMethodTemplateConstant = "unsupported discovery method %q"

	sourceTokenConfigurationKeyConstant     = "source.token"
	targetTokenConfigurationKeyConstant     = "target.token"
	discoveryMethodConfigurationKeyConstant = "discovery.method"
)

// ScopeConfigurationError names a scope field that failed eager validation.
type ScopeConfigurationError struct {
	Role  ScopeRole
	Field string
}

// Error describes the missing scope field.
func (configurationFailure *ScopeConfigurationError) Error() string {
	return fmt.Sprintf(scopeFieldMissingTemplateConstant, configurationFailure.Role, configurationFailure.Field)
}

// ScopeConfiguration identifies one organization scope and its credential
// source. BaseURL selects a non-default API endpoint.
type ScopeConfiguration struct {
	Organization string `mapstructure:"organization"`
	Token        string `mapstructure:"token"`
	BaseURL      string `mapstructure:"base_url"`
}

// Sanitize normalizes whitespace in every field.
func (configuration ScopeConfiguration) Sanitize() ScopeConfiguration {
	configuration.Organization = strings.TrimSpace(configuration.Organization)
	configuration.Token = strings.TrimSpace(configuration.Token)
	configuration.BaseURL = strings.TrimSpace(configuration.BaseURL)
	return configuration
}

// Validate checks the fields a usable scope requires. Validation is eager so
// misconfiguration surfaces before any network call.
func (configuration ScopeConfiguration) Validate(role ScopeRole) error {
	if len(configuration.Organization) == 0 {
		return &ScopeConfigurationError{Role: role, Field: organizationConfigurationFieldConstant}
	}
	if len(configuration.Token) == 0 {
		return &ScopeConfigurationError{Role: role, Field: tokenConfigurationFieldConstant}
	}
	return nil
}

// RunConfiguration bundles the scope and discovery settings every class
// command shares. Configuration files carry it once at the top level.
type RunConfiguration struct {
	Source    ScopeConfiguration     `mapstructure:"source"`
	Target    ScopeConfiguration     `mapstructure:"target"`
	Discovery DiscoveryConfiguration `mapstructure:"discovery"`
}

// Sanitize normalizes every nested section and fills blank token sources
// with the default environment declarations.
func (configuration RunConfiguration) Sanitize() RunConfiguration {
	configuration.Source = configuration.Source.Sanitize()
	configuration.Target = configuration.Target.Sanitize()
	configuration.Discovery = configuration.Discovery.Sanitize()
	if len(configuration.Source.Token) == 0 {
		configuration.Source.Token = DefaultSourceTokenSource
	}
	if len(configuration.Target.Token) == 0 {
		configuration.Target.Token = DefaultTargetTokenSource
	}
	return configuration
}

// DefaultConfigurationValues lists the viper defaults of the shared run
// configuration keys.
func DefaultConfigurationValues() map[string]any {
	return map[string]any{
		sourceTokenConfigurationKeyConstant:     DefaultSourceTokenSource,
		targetTokenConfigurationKeyConstant:     DefaultTargetTokenSource,
		discoveryMethodConfigurationKeyConstant: DiscoveryMethodREST,
	}
}

// DiscoveryConfiguration controls repository enumeration: the listing method,
// an optional allowlist, and source-to-target rename overrides.
type DiscoveryConfiguration struct {
	Method              string            `mapstructure:"method"`
	Repositories        []string          `mapstructure:"repositories"`
	RepositoryOverrides map[string]string `mapstructure:"repository_overrides"`
}

// Sanitize normalizes the method and trims the allowlist.
func (configuration DiscoveryConfiguration) Sanitize() DiscoveryConfiguration {
	configuration.Method = strings.ToLower(strings.TrimSpace(configuration.Method))
	if len(configuration.Method) == 0 {
		configuration.Method = DiscoveryMethodREST
	}

	trimmedRepositories := make([]string, 0, len(configuration.Repositories))
	for _, repositoryName := range configuration.Repositories {
		trimmedName := strings.TrimSpace(repositoryName)
		if len(trimmedName) == 0 {
			continue
		}
		trimmedRepositories = append(trimmedRepositories, trimmedName)
	}
	configuration.Repositories = trimmedRepositories
	return configuration
}

// Validate checks the discovery method.
func (configuration DiscoveryConfiguration) Validate() error {
	switch configuration.Method {
	case DiscoveryMethodREST, DiscoveryMethodGraphQL:
		return nil
	default:
		return fmt.Errorf(unsupportedDiscoveryMethodTemplateConstant, configuration.Method)
	}
}
