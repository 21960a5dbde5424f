package migration

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/temirov/orgmigrate/internal/githubapi"
)

const (
	scopeCredentialTemplateConstant = "%s scope credential: %w"
	scopeSessionTemplateConstant    = "%s scope session: %w"
)

// NewScopeSession resolves the scope credential and opens a session bound to
// the scope organization.
func NewScopeSession(executionContext context.Context, role ScopeRole, configuration ScopeConfiguration, tokenResolver *TokenResolver, logger *zap.Logger) (*githubapi.Session, error) {
	sanitizedConfiguration := configuration.Sanitize()
	if validationError := sanitizedConfiguration.Validate(role); validationError != nil {
		return nil, validationError
	}

	tokenSource, parseError := ParseTokenSource(sanitizedConfiguration.Token)
	if parseError != nil {
		return nil, fmt.Errorf(scopeCredentialTemplateConstant, role, parseError)
	}
	scopeCredential, resolveError := tokenResolver.ResolveToken(tokenSource)
	if resolveError != nil {
		return nil, fmt.Errorf(scopeCredentialTemplateConstant, role, resolveError)
	}

	scopeSession, sessionError := githubapi.NewSession(executionContext, githubapi.SessionConfiguration{
		Organization: sanitizedConfiguration.Organization,
		Credential:   scopeCredential,
		APIBaseURL:   sanitizedConfiguration.BaseURL,
		Logger:       logger,
	})
	if sessionError != nil {
		return nil, fmt.Errorf(scopeSessionTemplateConstant, role, sessionError)
	}
	return scopeSession, nil
}
