// Package memberships migrates organization memberships. Export lists the
// admin and regular member rosters into a two-column CSV; import and migrate
// upsert each login at its recorded role, skipping logins that already belong
// to the target organization so re-runs never demote or re-invite anyone.
package memberships
