// Package webhooks migrates repository webhooks between organization scopes.
//
// Only active hooks are exported, and imports dedup by delivery URL. Webhook
// signing secrets are not readable through the API, so imported hooks arrive
// without one; operators re-add secrets in the target afterwards.
package webhooks
