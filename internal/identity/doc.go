// Package identity translates source-organization references into their
// target-organization equivalents: repository names to identifiers, team
// identifiers to slugs and back, and repository role identifiers to readable
// names. Teams are only ever looked up, never created.
package identity
