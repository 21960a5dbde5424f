package githubapi

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/go-github/v75/github"
)

// Secret operation names.
const (
	OperationListOrganizationSecrets  OperationName = "list_organization_secrets"
	OperationProbeOrganizationSecret  OperationName = "probe_organization_secret"
	OperationCreateOrganizationSecret OperationName = "create_organization_secret"
	OperationGetOrganizationPublicKey OperationName = "get_organization_public_key"
	OperationListSecretRepositories   OperationName = "list_secret_repositories"
	OperationListRepositorySecrets    OperationName = "list_repository_secrets"
	OperationProbeRepositorySecret    OperationName = "probe_repository_secret"
	OperationCreateRepositorySecret   OperationName = "create_repository_secret"
	OperationGetRepositoryPublicKey   OperationName = "get_repository_public_key"
)

const (
	organizationSecretsPathTemplateConstant            = "orgs/%s/actions/secrets"
	organizationSecretRepositoriesPathTemplateConstant = "orgs/%s/actions/secrets/%s/repositories"
	repositorySecretsPathTemplateConstant              = "repos/%s/%s/actions/secrets"
	secretsCollectionKeyConstant                       = "secrets"
	repositoriesCollectionKeyConstant                  = "repositories"
)

// EncryptedSecretPayload carries one sealed secret ready for upload.
type EncryptedSecretPayload struct {
	Name                  string
	KeyIdentifier         string
	EncryptedValue        string
	Visibility            string
	SelectedRepositoryIDs []int64
}

type secretListEntry struct {
	Name       string `json:"name"`
	Visibility string `json:"visibility"`
	CreatedAt  string `json:"created_at"`
	UpdatedAt  string `json:"updated_at"`
}

type repositoryListEntry struct {
	Identifier int64  `json:"id"`
	Name       string `json:"name"`
}

func decodeSecretListing(operation OperationName, rawSecrets []json.RawMessage) ([]SecretDescriptor, error) {
	secretDescriptors := make([]SecretDescriptor, 0, len(rawSecrets))
	for _, rawSecret := range rawSecrets {
		var listedSecret secretListEntry
		if unmarshalError := json.Unmarshal(rawSecret, &listedSecret); unmarshalError != nil {
			return nil, &ResponseDecodingError{Operation: operation, Cause: unmarshalError}
		}
		secretDescriptors = append(secretDescriptors, SecretDescriptor{
			Name:       listedSecret.Name,
			Visibility: listedSecret.Visibility,
			CreatedAt:  listedSecret.CreatedAt,
			UpdatedAt:  listedSecret.UpdatedAt,
		})
	}
	return secretDescriptors, nil
}

func decodeRepositoryListing(operation OperationName, rawRepositories []json.RawMessage) ([]RepositoryDescriptor, error) {
	repositoryDescriptors := make([]RepositoryDescriptor, 0, len(rawRepositories))
	for _, rawRepository := range rawRepositories {
		var listedRepository repositoryListEntry
		if unmarshalError := json.Unmarshal(rawRepository, &listedRepository); unmarshalError != nil {
			return nil, &ResponseDecodingError{Operation: operation, Cause: unmarshalError}
		}
		repositoryDescriptors = append(repositoryDescriptors, RepositoryDescriptor{
			Identifier: listedRepository.Identifier,
			Name:       listedRepository.Name,
		})
	}
	return repositoryDescriptors, nil
}

// OrganizationSecrets lists the metadata of every organization secret.
func (session *Session) OrganizationSecrets(executionContext context.Context) ([]SecretDescriptor, error) {
	rawSecrets, collectError := session.CollectPages(
		executionContext,
		OperationListOrganizationSecrets,
		fmt.Sprintf(organizationSecretsPathTemplateConstant, session.organization),
		nil,
		[]string{secretsCollectionKeyConstant},
	)
	if collectError != nil {
		return nil, collectError
	}
	return decodeSecretListing(OperationListOrganizationSecrets, rawSecrets)
}

// SelectedRepositoriesForSecret lists the repositories a selected-visibility
// organization secret is shared with.
func (session *Session) SelectedRepositoriesForSecret(executionContext context.Context, secretName string) ([]RepositoryDescriptor, error) {
	rawRepositories, collectError := session.CollectPages(
		executionContext,
		OperationListSecretRepositories,
		fmt.Sprintf(organizationSecretRepositoriesPathTemplateConstant, session.organization, secretName),
		nil,
		[]string{repositoriesCollectionKeyConstant},
	)
	if collectError != nil {
		return nil, collectError
	}
	return decodeRepositoryListing(OperationListSecretRepositories, rawRepositories)
}

// OrganizationSecretExists probes one organization secret by name.
func (session *Session) OrganizationSecretExists(executionContext context.Context, secretName string) (bool, error) {
	executionError := session.execute(executionContext, OperationProbeOrganizationSecret, func(callContext context.Context) (*github.Response, error) {
		_, response, callError := session.restClient.Actions.GetOrgSecret(callContext, session.organization, secretName)
		return response, callError
	})
	if executionError != nil {
		if IsNotFound(executionError) {
			return false, nil
		}
		return false, executionError
	}
	return true, nil
}

// OrganizationPublicKey fetches the key the scope exposes for sealing
// organization secret values.
func (session *Session) OrganizationPublicKey(executionContext context.Context) (EncryptionKey, error) {
	var publicKey *github.PublicKey
	executionError := session.execute(executionContext, OperationGetOrganizationPublicKey, func(callContext context.Context) (*github.Response, error) {
		var response *github.Response
		var callError error
		publicKey, response, callError = session.restClient.Actions.GetOrgPublicKey(callContext, session.organization)
		return response, callError
	})
	if executionError != nil {
		return EncryptionKey{}, executionError
	}
	return EncryptionKey{Identifier: publicKey.GetKeyID(), Key: publicKey.GetKey()}, nil
}

// CreateOrganizationSecret uploads one sealed organization secret.
func (session *Session) CreateOrganizationSecret(executionContext context.Context, payload EncryptedSecretPayload) error {
	encryptedSecret := &github.EncryptedSecret{
		Name:                  payload.Name,
		KeyID:                 payload.KeyIdentifier,
		EncryptedValue:        payload.EncryptedValue,
		Visibility:            payload.Visibility,
		SelectedRepositoryIDs: github.SelectedRepoIDs(payload.SelectedRepositoryIDs),
	}
	return session.execute(executionContext, OperationCreateOrganizationSecret, func(callContext context.Context) (*github.Response, error) {
		return session.restClient.Actions.CreateOrUpdateOrgSecret(callContext, session.organization, encryptedSecret)
	})
}

// RepositorySecrets lists the metadata of every secret on one repository.
func (session *Session) RepositorySecrets(executionContext context.Context, repositoryName string) ([]SecretDescriptor, error) {
	rawSecrets, collectError := session.CollectPages(
		executionContext,
		OperationListRepositorySecrets,
		fmt.Sprintf(repositorySecretsPathTemplateConstant, session.organization, repositoryName),
		nil,
		[]string{secretsCollectionKeyConstant},
	)
	if collectError != nil {
		return nil, collectError
	}
	return decodeSecretListing(OperationListRepositorySecrets, rawSecrets)
}

// RepositorySecretExists probes one repository secret by name.
func (session *Session) RepositorySecretExists(executionContext context.Context, repositoryName string, secretName string) (bool, error) {
	executionError := session.execute(executionContext, OperationProbeRepositorySecret, func(callContext context.Context) (*github.Response, error) {
		_, response, callError := session.restClient.Actions.GetRepoSecret(callContext, session.organization, repositoryName, secretName)
		return response, callError
	})
	if executionError != nil {
		if IsNotFound(executionError) {
			return false, nil
		}
		return false, executionError
	}
	return true, nil
}

// RepositoryPublicKey fetches the key one repository exposes for sealing
// secret values.
func (session *Session) RepositoryPublicKey(executionContext context.Context, repositoryName string) (EncryptionKey, error) {
	var publicKey *github.PublicKey
	executionError := session.execute(executionContext, OperationGetRepositoryPublicKey, func(callContext context.Context) (*github.Response, error) {
		var response *github.Response
		var callError error
		publicKey, response, callError = session.restClient.Actions.GetRepoPublicKey(callContext, session.organization, repositoryName)
		return response, callError
	})
	if executionError != nil {
		return EncryptionKey{}, executionError
	}
	return EncryptionKey{Identifier: publicKey.GetKeyID(), Key: publicKey.GetKey()}, nil
}

// CreateRepositorySecret uploads one sealed repository secret.
func (session *Session) CreateRepositorySecret(executionContext context.Context, repositoryName string, payload EncryptedSecretPayload) error {
	encryptedSecret := &github.EncryptedSecret{
		Name:           payload.Name,
		KeyID:          payload.KeyIdentifier,
		EncryptedValue: payload.EncryptedValue,
	}
	return session.execute(executionContext, OperationCreateRepositorySecret, func(callContext context.Context) (*github.Response, error) {
		return session.restClient.Actions.CreateOrUpdateRepoSecret(callContext, session.organization, repositoryName, encryptedSecret)
	})
}
