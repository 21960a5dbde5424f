package githubapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/go-github/v75/github"
	"github.com/shurcooL/githubv4"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
)

const (
	organizationFieldNameConstant        = "organization"
	credentialFieldNameConstant          = "credential"
	apiBaseURLFieldNameConstant          = "api base URL"
	missingValueMessageConstant          = "value must be provided"
	enterpriseURLMessageTemplateConstant = "unusable enterprise endpoint: %v"
	operationErrorTemplateConstant       = "%s: %w"
	transientRetryCeilingConstant        = 4
	quotaWaitCeilingConstant             = 3
	backoffBaseDelayConstant             = time.Second
	graphqlEndpointSuffixConstant        = "/api/graphql"
	urlPathSeparatorConstant             = "/"
	quotaLowMessageConstant              = "request quota low, sleeping until reset"
	quotaSleepMessageConstant            = "rate limited, sleeping before retry"
	transientRetryMessageConstant        = "transient failure, backing off before retry"
	logFieldOperationConstant            = "operation"
	logFieldRemainingQuotaConstant       = "remaining_quota"
	logFieldSleepDurationConstant        = "sleep_duration"
	logFieldAttemptConstant              = "attempt"
)

// Preflight operation names.
const (
	OperationGetAuthenticatedUser OperationName = "get_authenticated_user"
	OperationGetOrganization      OperationName = "get_organization"
)

// SleepFunc suspends execution for the requested duration, honoring context cancellation.
type SleepFunc func(executionContext context.Context, duration time.Duration) error

// Clock supplies the current time for quota computations.
type Clock interface {
	Now() time.Time
}

// SystemClock implements Clock using the standard library.
type SystemClock struct{}

// Now returns the current system time.
func (SystemClock) Now() time.Time {
	return time.Now()
}

// SessionConfiguration describes one scope: its organization, credential, and endpoints.
type SessionConfiguration struct {
	Organization string
	Credential   string
	APIBaseURL   string
	Logger       *zap.Logger
	Clock        Clock
	Sleeper      SleepFunc
}

// Session issues API calls for a single scope. All calls run strictly
// sequentially through one quota gate; the session carries no other state
// between calls.
type Session struct {
	organization           string
	organizationIdentifier int64
	restClient             *github.Client
	graphqlClient          *githubv4.Client
	gate                   *quotaGate
	logger                 *zap.Logger
	clock                  Clock
	sleeper                SleepFunc
}

// NewSession builds a Session for the provided scope configuration.
func NewSession(executionContext context.Context, configuration SessionConfiguration) (*Session, error) {
	trimmedOrganization := strings.TrimSpace(configuration.Organization)
	if len(trimmedOrganization) == 0 {
		return nil, &InvalidInputError{FieldName: organizationFieldNameConstant, Message: missingValueMessageConstant}
	}
	trimmedCredential := strings.TrimSpace(configuration.Credential)
	if len(trimmedCredential) == 0 {
		return nil, &InvalidInputError{FieldName: credentialFieldNameConstant, Message: missingValueMessageConstant}
	}

	sessionLogger := configuration.Logger
	if sessionLogger == nil {
		sessionLogger = zap.NewNop()
	}
	sessionClock := configuration.Clock
	if sessionClock == nil {
		sessionClock = SystemClock{}
	}
	sessionSleeper := configuration.Sleeper
	if sessionSleeper == nil {
		sessionSleeper = ContextSleep
	}

	tokenSource := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: trimmedCredential})
	authenticatedHTTPClient := oauth2.NewClient(executionContext, tokenSource)

	restClient := github.NewClient(authenticatedHTTPClient)
	graphqlClient := githubv4.NewClient(authenticatedHTTPClient)

	trimmedBaseURL := strings.TrimSpace(configuration.APIBaseURL)
	if len(trimmedBaseURL) > 0 {
		enterpriseRESTClient, enterpriseError := restClient.WithEnterpriseURLs(trimmedBaseURL, trimmedBaseURL)
		if enterpriseError != nil {
			return nil, &InvalidInputError{
				FieldName: apiBaseURLFieldNameConstant,
				Message:   fmt.Sprintf(enterpriseURLMessageTemplateConstant, enterpriseError),
			}
		}
		restClient = enterpriseRESTClient
		graphqlClient = githubv4.NewEnterpriseClient(
			strings.TrimSuffix(trimmedBaseURL, urlPathSeparatorConstant)+graphqlEndpointSuffixConstant,
			authenticatedHTTPClient,
		)
	}

	return &Session{
		organization:  trimmedOrganization,
		restClient:    restClient,
		graphqlClient: graphqlClient,
		gate:          newQuotaGate(),
		logger:        sessionLogger,
		clock:         sessionClock,
		sleeper:       sessionSleeper,
	}, nil
}

// Organization reports the scope organization this session is bound to.
func (session *Session) Organization() string {
	return session.organization
}

// ContextSleep blocks for the requested duration unless the context ends first.
func ContextSleep(executionContext context.Context, duration time.Duration) error {
	if duration <= 0 {
		return nil
	}

	sleepTimer := time.NewTimer(duration)
	defer sleepTimer.Stop()

	select {
	case <-executionContext.Done():
		return executionContext.Err()
	case <-sleepTimer.C:
		return nil
	}
}

type failureDisposition int

const (
	dispositionTransient failureDisposition = iota
	dispositionQuotaWait
	dispositionTerminal
)

// execute funnels one API call through the quota gate, retry policy, and
// error classification shared by every session operation.
func (session *Session) execute(executionContext context.Context, operation OperationName, call func(context.Context) (*github.Response, error)) error {
	transientAttempts := 0
	quotaWaits := 0
	backoffDelay := backoffBaseDelayConstant

	for {
		if gateWaitError := session.respectQuota(executionContext, operation); gateWaitError != nil {
			return gateWaitError
		}

		response, callError := call(executionContext)
		if response != nil {
			session.gate.observe(response.Rate)
		}
		if callError == nil {
			return nil
		}
		if contextError := executionContext.Err(); contextError != nil {
			return contextError
		}

		disposition, recoveryDelay, terminalError := session.classifyFailure(operation, callError)
		switch disposition {
		case dispositionTerminal:
			return terminalError
		case dispositionQuotaWait:
			quotaWaits++
			if quotaWaits > quotaWaitCeilingConstant {
				return &QuotaWaitExhaustedError{Operation: operation, Waits: quotaWaitCeilingConstant}
			}
			session.logger.Warn(
				quotaSleepMessageConstant,
				zap.String(logFieldOperationConstant, string(operation)),
				zap.Duration(logFieldSleepDurationConstant, recoveryDelay),
			)
			if sleepError := session.sleeper(executionContext, recoveryDelay); sleepError != nil {
				return sleepError
			}
			session.gate.markRecovered()
		default:
			transientAttempts++
			if transientAttempts >= transientRetryCeilingConstant {
				return &RetryExhaustedError{Operation: operation, Attempts: transientAttempts, Cause: callError}
			}
			session.logger.Warn(
				transientRetryMessageConstant,
				zap.String(logFieldOperationConstant, string(operation)),
				zap.Int(logFieldAttemptConstant, transientAttempts),
				zap.Duration(logFieldSleepDurationConstant, backoffDelay),
			)
			if sleepError := session.sleeper(executionContext, backoffDelay); sleepError != nil {
				return sleepError
			}
			backoffDelay *= 2
		}
	}
}

func (session *Session) respectQuota(executionContext context.Context, operation OperationName) error {
	gateWaitDuration := session.gate.waitDuration(session.clock.Now())
	if gateWaitDuration <= 0 {
		return nil
	}

	session.logger.Warn(
		quotaLowMessageConstant,
		zap.String(logFieldOperationConstant, string(operation)),
		zap.Int(logFieldRemainingQuotaConstant, session.gate.remainingQuota),
		zap.Duration(logFieldSleepDurationConstant, gateWaitDuration),
	)
	if sleepError := session.sleeper(executionContext, gateWaitDuration); sleepError != nil {
		return sleepError
	}

	session.gate.markRecovered()
	return nil
}

func (session *Session) classifyFailure(operation OperationName, callError error) (failureDisposition, time.Duration, error) {
	var rateLimitError *github.RateLimitError
	if errors.As(callError, &rateLimitError) {
		return dispositionQuotaWait, session.gate.recoveryDuration(session.clock.Now(), rateLimitError.Rate.Reset.Time), nil
	}

	var abuseRateLimitError *github.AbuseRateLimitError
	if errors.As(callError, &abuseRateLimitError) {
		recoveryDelay := quotaSafetyMarginConstant
		if abuseRateLimitError.RetryAfter != nil {
			recoveryDelay = *abuseRateLimitError.RetryAfter + quotaSafetyMarginConstant
		}
		return dispositionQuotaWait, recoveryDelay, nil
	}

	var errorResponse *github.ErrorResponse
	if errors.As(callError, &errorResponse) {
		statusCode := 0
		if errorResponse.Response != nil {
			statusCode = errorResponse.Response.StatusCode
		}
		switch {
		case statusCode == http.StatusNotFound:
			return dispositionTerminal, 0, fmt.Errorf(operationErrorTemplateConstant, operation, ErrNotFound)
		case statusCode == http.StatusUnauthorized, statusCode == http.StatusForbidden:
			return dispositionTerminal, 0, &AuthenticationError{
				Organization: session.organization,
				Operation:    operation,
				StatusCode:   statusCode,
				Cause:        callError,
			}
		case statusCode >= http.StatusInternalServerError:
			return dispositionTransient, 0, nil
		default:
			return dispositionTerminal, 0, &APIStatusError{Operation: operation, StatusCode: statusCode, Message: errorResponse.Message}
		}
	}

	return dispositionTransient, 0, nil
}

// fetchRawJSON issues a GET against a relative API path and returns the raw payload.
func (session *Session) fetchRawJSON(executionContext context.Context, operation OperationName, requestPath string) (json.RawMessage, error) {
	var payload json.RawMessage
	executionError := session.execute(executionContext, operation, func(callContext context.Context) (*github.Response, error) {
		request, requestError := session.restClient.NewRequest(http.MethodGet, requestPath, nil)
		if requestError != nil {
			return nil, requestError
		}
		return session.restClient.Do(callContext, request, &payload)
	})
	if executionError != nil {
		return nil, executionError
	}
	return payload, nil
}

// submitRawJSON issues a write (POST or similar) against a relative API path
// with a JSON body and returns the raw response payload.
func (session *Session) submitRawJSON(executionContext context.Context, operation OperationName, httpMethod string, requestPath string, requestBody any) (json.RawMessage, error) {
	var payload json.RawMessage
	executionError := session.execute(executionContext, operation, func(callContext context.Context) (*github.Response, error) {
		request, requestError := session.restClient.NewRequest(httpMethod, requestPath, requestBody)
		if requestError != nil {
			return nil, requestError
		}
		return session.restClient.Do(callContext, request, &payload)
	})
	if executionError != nil {
		return nil, executionError
	}
	return payload, nil
}

// AuthenticatedUser resolves the login of the credential owner. It doubles as
// the authentication preflight probe.
func (session *Session) AuthenticatedUser(executionContext context.Context) (string, error) {
	var authenticatedUser *github.User
	executionError := session.execute(executionContext, OperationGetAuthenticatedUser, func(callContext context.Context) (*github.Response, error) {
		var response *github.Response
		var callError error
		authenticatedUser, response, callError = session.restClient.Users.Get(callContext, "")
		return response, callError
	})
	if executionError != nil {
		return "", executionError
	}
	return authenticatedUser.GetLogin(), nil
}

// OrganizationProfile resolves the scope organization. It doubles as the
// scope reachability preflight probe.
func (session *Session) OrganizationProfile(executionContext context.Context) (OrganizationDescriptor, error) {
	var organizationProfile *github.Organization
	executionError := session.execute(executionContext, OperationGetOrganization, func(callContext context.Context) (*github.Response, error) {
		var response *github.Response
		var callError error
		organizationProfile, response, callError = session.restClient.Organizations.Get(callContext, session.organization)
		return response, callError
	})
	if executionError != nil {
		return OrganizationDescriptor{}, executionError
	}

	session.organizationIdentifier = organizationProfile.GetID()
	return OrganizationDescriptor{
		Login:      organizationProfile.GetLogin(),
		Identifier: session.organizationIdentifier,
	}, nil
}

// resolveOrganizationIdentifier returns the numeric identifier of the scope
// organization, fetching and caching it on first use.
func (session *Session) resolveOrganizationIdentifier(executionContext context.Context) (int64, error) {
	if session.organizationIdentifier != 0 {
		return session.organizationIdentifier, nil
	}
	if _, profileError := session.OrganizationProfile(executionContext); profileError != nil {
		return 0, profileError
	}
	return session.organizationIdentifier, nil
}
