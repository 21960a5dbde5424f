package migration

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/temirov/orgmigrate/internal/githubapi"
)

const (
	preflightCredentialCheckConstant   = "credential"
	preflightOrganizationCheckConstant = "organization reachability"
	preflightFailureTemplateConstant   = "%s scope preflight failed on %s: %v"
	scopeVerifiedMessageConstant       = "scope verified"
	logFieldScopeRoleConstant          = "scope_role"
	logFieldLoginConstant              = "login"
	logFieldOrganizationConstant       = "organization"
)

// ScopeSession is the slice of a session preflight exercises.
type ScopeSession interface {
	AuthenticatedUser(executionContext context.Context) (string, error)
	OrganizationProfile(executionContext context.Context) (githubapi.OrganizationDescriptor, error)
}

// ScopeProbe pairs a session with the role it plays in the run.
type ScopeProbe struct {
	Role    ScopeRole
	Session ScopeSession
}

// PreflightError names the scope check that failed before entity work began.
type PreflightError struct {
	Role  ScopeRole
	Check string
	Cause error
}

// Error describes the failed preflight check.
func (preflightFailure *PreflightError) Error() string {
	return fmt.Sprintf(preflightFailureTemplateConstant, preflightFailure.Role, preflightFailure.Check, preflightFailure.Cause)
}

// Unwrap exposes the underlying cause.
func (preflightFailure *PreflightError) Unwrap() error {
	return preflightFailure.Cause
}

// VerifyScopes authenticates every probe and confirms its organization is
// reachable. Any failure is fatal for the run; no entity work may start.
func VerifyScopes(executionContext context.Context, logger *zap.Logger, scopeProbes ...ScopeProbe) error {
	if logger == nil {
		logger = zap.NewNop()
	}

	for _, scopeProbe := range scopeProbes {
		authenticatedLogin, userError := scopeProbe.Session.AuthenticatedUser(executionContext)
		if userError != nil {
			return &PreflightError{Role: scopeProbe.Role, Check: preflightCredentialCheckConstant, Cause: userError}
		}

		organizationProfile, profileError := scopeProbe.Session.OrganizationProfile(executionContext)
		if profileError != nil {
			return &PreflightError{Role: scopeProbe.Role, Check: preflightOrganizationCheckConstant, Cause: profileError}
		}

		logger.Info(
			scopeVerifiedMessageConstant,
			zap.String(logFieldScopeRoleConstant, string(scopeProbe.Role)),
			zap.String(logFieldLoginConstant, authenticatedLogin),
			zap.String(logFieldOrganizationConstant, organizationProfile.Login),
		)
	}
	return nil
}
