package identity

// Bypass actor type names as they appear in ruleset bodies.
const (
	ActorTypeRepositoryRoleConstant = "RepositoryRole"
	ActorTypeTeamConstant           = "Team"
	ActorTypeUserConstant           = "User"
	ActorTypeIntegrationConstant    = "Integration"
)

// Repository role identifiers are stable across organizations, so they pass
// through untranslated. The names exist only to keep exports readable.
var repositoryRoleNamesByIdentifier = map[int64]string{
	1: "read",
	2: "triage",
	3: "write",
	4: "maintain",
	5: "admin",
}

// RepositoryRoleName returns the readable name of a built-in repository role,
// or an empty string for identifiers outside the built-in range.
func RepositoryRoleName(roleIdentifier int64) string {
	return repositoryRoleNamesByIdentifier[roleIdentifier]
}
