package githubapi

// OrganizationDescriptor identifies one organization scope.
type OrganizationDescriptor struct {
	Login      string
	Identifier int64
}

// RepositoryDescriptor identifies one repository inside a scope.
type RepositoryDescriptor struct {
	Identifier int64
	Name       string
}

// TeamDescriptor identifies one team inside a scope.
type TeamDescriptor struct {
	Identifier int64
	Slug       string
	Name       string
	Privacy    string
	Permission string
}

// SecretDescriptor carries the listable metadata of an encrypted secret.
// Secret values are never readable through the API.
type SecretDescriptor struct {
	Name                  string
	Visibility            string
	CreatedAt             string
	UpdatedAt             string
	SelectedRepositoryIDs []int64
}

// VariableDescriptor carries one plaintext configuration variable.
type VariableDescriptor struct {
	Name                  string
	Value                 string
	Visibility            string
	CreatedAt             string
	UpdatedAt             string
	SelectedRepositoryIDs []int64
}

// EncryptionKey is the public key a scope exposes for sealing secret values.
type EncryptionKey struct {
	Identifier string
	Key        string
}

// MemberDescriptor identifies one organization member together with the role
// held in the scope.
type MemberDescriptor struct {
	Login      string
	Identifier int64
	Role       string
}

// RulesetDescriptor identifies one ruleset by its listing metadata. Ruleset
// bodies travel as raw JSON to preserve fields this tool does not model.
type RulesetDescriptor struct {
	Identifier int64
	Name       string
}

// WebhookDescriptor identifies one webhook by its listing metadata. Webhook
// bodies travel as raw JSON to preserve fields this tool does not model.
type WebhookDescriptor struct {
	Identifier int64
	URL        string
	Active     bool
}
