package rulesets

import (
	"encoding/json"
	"io"
	"strings"

	"github.com/temirov/orgmigrate/internal/identity"
	"github.com/temirov/orgmigrate/internal/report"
)

const (
	artifactFileSuffixConstant = "-rulesets.json"

	nameKeyConstant         = "name"
	targetKeyConstant       = "target"
	enforcementKeyConstant  = "enforcement"
	conditionsKeyConstant   = "conditions"
	rulesKeyConstant        = "rules"
	bypassActorsKeyConstant = "bypass_actors"
)

// creationPayloadKeys are the ruleset body keys the creation endpoint
// accepts. Everything else a fetched body carries is listing metadata.
var creationPayloadKeys = []string{
	nameKeyConstant,
	targetKeyConstant,
	enforcementKeyConstant,
	conditionsKeyConstant,
	rulesKeyConstant,
}

// RulesetDocument is one ruleset body keyed by field name. Values stay raw
// so fields this tool does not model pass through export and import intact.
type RulesetDocument map[string]json.RawMessage

// Name returns the ruleset name, or an empty string when the body has none.
func (document RulesetDocument) Name() string {
	rawName, namePresent := document[nameKeyConstant]
	if !namePresent {
		return ""
	}
	var rulesetName string
	if unmarshalError := json.Unmarshal(rawName, &rulesetName); unmarshalError != nil {
		return ""
	}
	return rulesetName
}

// BypassActors decodes the bypass actor list. An absent list is nil.
func (document RulesetDocument) BypassActors() ([]identity.BypassActor, error) {
	rawActors, actorsPresent := document[bypassActorsKeyConstant]
	if !actorsPresent {
		return nil, nil
	}
	var bypassActors []identity.BypassActor
	if unmarshalError := json.Unmarshal(rawActors, &bypassActors); unmarshalError != nil {
		return nil, unmarshalError
	}
	return bypassActors, nil
}

// SetBypassActors replaces the bypass actor list inside the document.
func (document RulesetDocument) SetBypassActors(bypassActors []identity.BypassActor) error {
	encodedActors, marshalError := json.Marshal(bypassActors)
	if marshalError != nil {
		return marshalError
	}
	document[bypassActorsKeyConstant] = encodedActors
	return nil
}

// CreationPayload assembles the body the creation endpoint accepts: the
// modeled keys carried over verbatim plus the resolved bypass actors. Keys
// the document never had stay absent.
func (document RulesetDocument) CreationPayload(bypassActors []identity.BypassActor) (json.RawMessage, error) {
	payloadDocument := make(map[string]json.RawMessage, len(creationPayloadKeys)+1)
	for _, payloadKey := range creationPayloadKeys {
		if rawValue, keyPresent := document[payloadKey]; keyPresent {
			payloadDocument[payloadKey] = rawValue
		}
	}
	if len(bypassActors) > 0 {
		encodedActors, marshalError := json.Marshal(bypassActors)
		if marshalError != nil {
			return nil, marshalError
		}
		payloadDocument[bypassActorsKeyConstant] = encodedActors
	}
	return json.Marshal(payloadDocument)
}

// ParseDocument decodes one fetched ruleset body.
func ParseDocument(rulesetBody json.RawMessage) (RulesetDocument, error) {
	var document RulesetDocument
	if unmarshalError := json.Unmarshal(rulesetBody, &document); unmarshalError != nil {
		return nil, unmarshalError
	}
	return document, nil
}

// ArtifactFileName returns the export file name for one repository.
func ArtifactFileName(repositoryName string) string {
	return repositoryName + artifactFileSuffixConstant
}

// RepositoryFromArtifactName reports which repository an export file name
// belongs to, and whether the name is a ruleset artifact at all.
func RepositoryFromArtifactName(fileName string) (string, bool) {
	if !strings.HasSuffix(fileName, artifactFileSuffixConstant) {
		return "", false
	}
	repositoryName := strings.TrimSuffix(fileName, artifactFileSuffixConstant)
	if len(repositoryName) == 0 {
		return "", false
	}
	return repositoryName, true
}

// WriteArtifact writes one repository's rulesets as an indented JSON array.
func WriteArtifact(outputWriter io.Writer, documents []RulesetDocument) error {
	return report.WriteJSONDocument(outputWriter, documents)
}

// ReadArtifact decodes one repository's exported rulesets.
func ReadArtifact(inputReader io.Reader) ([]RulesetDocument, error) {
	var documents []RulesetDocument
	if decodeError := report.ReadJSONDocument(inputReader, &documents); decodeError != nil {
		return nil, decodeError
	}
	return documents, nil
}
