// Package migration carries the shared machinery of a migration run: scope
// configuration and credential resolution, repository discovery, preflight
// verification, per-entity outcome records, and the sequential runner that
// drives the metadata classes and flushes the report.
package migration
