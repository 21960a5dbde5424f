package webhooks

import (
	"encoding/json"
	"io"
	"strings"

	"github.com/temirov/orgmigrate/internal/report"
)

const (
	exportDateLayoutConstant = "2006-01-02 15:04:05"

	webhookNameConstant        = "web"
	defaultContentTypeConstant = "json"
	defaultInsecureSSLConstant = "0"
)

// tolerantString accepts both string and numeric JSON encodings. Hook
// configurations carry insecure_ssl either way depending on how the hook
// was originally created.
type tolerantString string

func (value *tolerantString) UnmarshalJSON(encoded []byte) error {
	if len(encoded) > 0 && encoded[0] == '"' {
		var decoded string
		if unmarshalError := json.Unmarshal(encoded, &decoded); unmarshalError != nil {
			return unmarshalError
		}
		*value = tolerantString(decoded)
		return nil
	}
	var decoded json.Number
	if unmarshalError := json.Unmarshal(encoded, &decoded); unmarshalError != nil {
		return unmarshalError
	}
	*value = tolerantString(decoded.String())
	return nil
}

// HookConfiguration models the portable settings of one webhook: the
// delivery endpoint, the payload encoding, and the event subscriptions.
type HookConfiguration struct {
	URL         string   `json:"url"`
	ContentType string   `json:"content_type"`
	InsecureSSL string   `json:"insecure_ssl"`
	Events      []string `json:"events"`
	Active      bool     `json:"active"`
}

// UnmarshalJSON tolerates numeric insecure_ssl values in artifacts.
func (configuration *HookConfiguration) UnmarshalJSON(encoded []byte) error {
	var decoded struct {
		URL         string         `json:"url"`
		ContentType string         `json:"content_type"`
		InsecureSSL tolerantString `json:"insecure_ssl"`
		Events      []string       `json:"events"`
		Active      bool           `json:"active"`
	}
	if unmarshalError := json.Unmarshal(encoded, &decoded); unmarshalError != nil {
		return unmarshalError
	}
	configuration.URL = decoded.URL
	configuration.ContentType = decoded.ContentType
	configuration.InsecureSSL = string(decoded.InsecureSSL)
	configuration.Events = decoded.Events
	configuration.Active = decoded.Active
	return nil
}

// Normalize fills the delivery defaults the platform assumes when a hook
// configuration omits them.
func (configuration HookConfiguration) Normalize() HookConfiguration {
	if len(strings.TrimSpace(configuration.ContentType)) == 0 {
		configuration.ContentType = defaultContentTypeConstant
	}
	if len(strings.TrimSpace(configuration.InsecureSSL)) == 0 {
		configuration.InsecureSSL = defaultInsecureSSLConstant
	}
	return configuration
}

type creationBodyConfiguration struct {
	URL         string `json:"url"`
	ContentType string `json:"content_type"`
	InsecureSSL string `json:"insecure_ssl"`
}

type creationBody struct {
	Name   string                    `json:"name"`
	Active bool                      `json:"active"`
	Events []string                  `json:"events"`
	Config creationBodyConfiguration `json:"config"`
}

// CreationPayload assembles the creation body. Repository webhooks accept
// only the literal hook name "web".
func (configuration HookConfiguration) CreationPayload() (json.RawMessage, error) {
	normalized := configuration.Normalize()
	return json.Marshal(creationBody{
		Name:   webhookNameConstant,
		Active: normalized.Active,
		Events: normalized.Events,
		Config: creationBodyConfiguration{
			URL:         normalized.URL,
			ContentType: normalized.ContentType,
			InsecureSSL: normalized.InsecureSSL,
		},
	})
}

// RepositoryWebhooks pairs the exported webhooks of one source repository
// with the target repository they migrate to.
type RepositoryWebhooks struct {
	TargetRepository string              `json:"target_repo"`
	Webhooks         []HookConfiguration `json:"webhooks"`
}

// ArtifactDocument is the export document: run metadata plus the webhook
// lists keyed by source repository name.
type ArtifactDocument struct {
	ExportDate         string                        `json:"export_date"`
	SourceOrganization string                        `json:"source_org"`
	TargetOrganization string                        `json:"target_org"`
	Repositories       map[string]RepositoryWebhooks `json:"repositories"`
}

// WriteArtifact writes the export document as indented JSON.
func WriteArtifact(outputWriter io.Writer, document ArtifactDocument) error {
	return report.WriteJSONDocument(outputWriter, document)
}

// ReadArtifact decodes one export document.
func ReadArtifact(inputReader io.Reader) (ArtifactDocument, error) {
	var document ArtifactDocument
	if decodeError := report.ReadJSONDocument(inputReader, &document); decodeError != nil {
		return ArtifactDocument{}, decodeError
	}
	return document, nil
}
