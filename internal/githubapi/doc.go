// Package githubapi provides the rate-limit-aware GitHub API sessions used by
// the migration services. A Session binds one organization and one credential,
// funnels every REST call through a shared quota gate with bounded retries,
// and exposes paginated collection helpers that normalize the platform's
// listing response shapes.
package githubapi
