// Package secrets migrates GitHub Actions secrets between organizations.
// Secret values never travel readable: exported artifacts carry a redaction
// sentinel, and target writes seal a real or placeholder value against the
// destination scope's public key. Existing target secrets are never
// overwritten.
package secrets
