package githubapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
)

// Webhook operation names.
const (
	OperationListRepositoryWebhooks  OperationName = "list_repository_webhooks"
	OperationCreateRepositoryWebhook OperationName = "create_repository_webhook"
)

const repositoryWebhooksPathTemplateConstant = "repos/%s/%s/hooks"

type webhookListEntry struct {
	Identifier    int64 `json:"id"`
	Active        bool  `json:"active"`
	Configuration struct {
		URL string `json:"url"`
	} `json:"config"`
}

// RepositoryWebhooks lists every webhook on one repository as raw JSON so
// delivery configuration this tool does not model survives untouched.
func (session *Session) RepositoryWebhooks(executionContext context.Context, repositoryName string) ([]json.RawMessage, error) {
	return session.CollectPages(
		executionContext,
		OperationListRepositoryWebhooks,
		fmt.Sprintf(repositoryWebhooksPathTemplateConstant, session.organization, repositoryName),
		nil,
		nil,
	)
}

// RepositoryWebhookDescriptors lists the identifier, delivery URL, and
// active flag of every webhook on one repository.
func (session *Session) RepositoryWebhookDescriptors(executionContext context.Context, repositoryName string) ([]WebhookDescriptor, error) {
	rawWebhooks, collectError := session.RepositoryWebhooks(executionContext, repositoryName)
	if collectError != nil {
		return nil, collectError
	}

	webhookDescriptors := make([]WebhookDescriptor, 0, len(rawWebhooks))
	for _, rawWebhook := range rawWebhooks {
		var listedWebhook webhookListEntry
		if unmarshalError := json.Unmarshal(rawWebhook, &listedWebhook); unmarshalError != nil {
			return nil, &ResponseDecodingError{Operation: OperationListRepositoryWebhooks, Cause: unmarshalError}
		}
		webhookDescriptors = append(webhookDescriptors, WebhookDescriptor{
			Identifier: listedWebhook.Identifier,
			URL:        listedWebhook.Configuration.URL,
			Active:     listedWebhook.Active,
		})
	}
	return webhookDescriptors, nil
}

// CreateRepositoryWebhook submits one webhook body as raw JSON.
func (session *Session) CreateRepositoryWebhook(executionContext context.Context, repositoryName string, webhookBody json.RawMessage) error {
	_, submitError := session.submitRawJSON(
		executionContext,
		OperationCreateRepositoryWebhook,
		http.MethodPost,
		fmt.Sprintf(repositoryWebhooksPathTemplateConstant, session.organization, repositoryName),
		webhookBody,
	)
	return submitError
}
