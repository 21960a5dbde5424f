// Package rulesets migrates repository rulesets between organization scopes.
//
// Ruleset bodies travel as raw JSON documents so conditions, rules, and any
// fields this tool does not model survive the round trip untouched. Bypass
// actors are the exception: exports enrich team actors with their slugs, and
// imports re-key them against the target organization, dropping teams the
// target does not have rather than creating them.
package rulesets
