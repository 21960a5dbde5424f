package rulesets

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/temirov/orgmigrate/internal/githubapi"
	"github.com/temirov/orgmigrate/internal/identity"
	"github.com/temirov/orgmigrate/internal/migration"
	"github.com/temirov/orgmigrate/internal/report"
)

const (
	bypassActorsRemovedDetailConstant     = "bypass actors removed"
	bypassActorsKeptDetailConstant        = "bypass actors kept unresolved"
	droppedActorsDetailTemplateConstant   = "dropped %d of %d bypass actors"
	targetRepositoryMissingDetailConstant = "target repository not found"
	detailSeparatorConstant               = "; "

	sourceCatalogMissingMessageConstant     = "rulesets service requires a source catalog"
	targetCatalogMissingMessageConstant     = "rulesets service requires a target catalog"
	repositoryCatalogMissingMessageConstant = "rulesets service requires a repository catalog"
	resolverProviderMissingMessageConstant  = "rulesets service requires a resolver provider"
	enricherProviderMissingMessageConstant  = "rulesets service requires an enricher provider"
	inputPathMissingMessageConstant         = "rulesets import requires an input directory"
	outputPathMissingMessageConstant        = "rulesets export requires an output directory"

	listRulesetsTemplateConstant  = "list rulesets for repository %s: %w"
	fetchRulesetTemplateConstant  = "fetch ruleset %d from repository %s: %w"
	decodeRulesetTemplateConstant = "decode ruleset %d from repository %s: %w"
	enrichActorsTemplateConstant  = "enrich bypass actors for ruleset %s: %w"
	readArtifactTemplateConstant  = "read rulesets artifact %s: %w"
	writeArtifactTemplateConstant = "write rulesets artifact %s: %w"
	scanArtifactsTemplateConstant = "scan rulesets directory %s: %w"

	repositoryListingSkippedMessageConstant = "repository vanished during listing"
	artifactWrittenMessageConstant          = "rulesets artifact written"
	rulesetCreatedMessageConstant           = "ruleset created"
	logFieldRepositoryConstant              = "repository"
	logFieldRulesetNameConstant             = "ruleset_name"
	logFieldPathConstant                    = "path"
	logFieldRulesetsConstant                = "rulesets"
)

var (
	errSourceCatalogMissing     = errors.New(sourceCatalogMissingMessageConstant)
	errTargetCatalogMissing     = errors.New(targetCatalogMissingMessageConstant)
	errRepositoryCatalogMissing = errors.New(repositoryCatalogMissingMessageConstant)
	errResolverProviderMissing  = errors.New(resolverProviderMissingMessageConstant)
	errEnricherProviderMissing  = errors.New(enricherProviderMissingMessageConstant)
	errInputPathMissing         = errors.New(inputPathMissingMessageConstant)
	errOutputPathMissing        = errors.New(outputPathMissingMessageConstant)
)

// SourceCatalog reads ruleset bodies from the source scope.
type SourceCatalog interface {
	RepositoryRulesetDescriptors(executionContext context.Context, repositoryName string) ([]githubapi.RulesetDescriptor, error)
	RepositoryRuleset(executionContext context.Context, repositoryName string, rulesetIdentifier int64) (json.RawMessage, error)
}

// TargetCatalog probes and creates rulesets in the target scope.
type TargetCatalog interface {
	RepositoryRulesetDescriptors(executionContext context.Context, repositoryName string) ([]githubapi.RulesetDescriptor, error)
	CreateRepositoryRuleset(executionContext context.Context, repositoryName string, rulesetBody json.RawMessage) error
}

// BypassEnricher decorates source-scope bypass actors for export.
type BypassEnricher interface {
	EnrichBypassActors(executionContext context.Context, bypassActors []identity.BypassActor) ([]identity.BypassActor, error)
}

// TargetResolver maps source repository references and enriched bypass
// actors into the target scope.
type TargetResolver interface {
	ResolveRepository(repositoryName string) (identity.RepositoryPlacement, error)
	ResolveBypassActors(executionContext context.Context, bypassActors []identity.BypassActor) ([]identity.BypassActor, []identity.DroppedActor, error)
}

// RepositoryCatalog lazily enumerates the source repositories in scope.
type RepositoryCatalog func(executionContext context.Context) ([]githubapi.RepositoryDescriptor, error)

// ResolverProvider lazily yields the run identity resolver.
type ResolverProvider func(executionContext context.Context) (TargetResolver, error)

// EnricherProvider lazily yields the export-side bypass actor enricher.
type EnricherProvider func(executionContext context.Context) (BypassEnricher, error)

// ServiceDependencies wires a rulesets service to its scopes and artifact
// directories. Only the dependencies the mode touches are required.
type ServiceDependencies struct {
	Mode                  migration.Mode
	DryRun                bool
	InputPath             string
	OutputPath            string
	EnrichBypassActors    bool
	SanitizeBypassActors  bool
	RemoveAllBypassActors bool
	Source                SourceCatalog
	Target                TargetCatalog
	Repositories          RepositoryCatalog
	Resolver              ResolverProvider
	Enricher              EnricherProvider
	Logger                *zap.Logger
}

// Service migrates repository rulesets for one run mode.
type Service struct {
	mode                  migration.Mode
	dryRun                bool
	inputPath             string
	outputPath            string
	enrichBypassActors    bool
	sanitizeBypassActors  bool
	removeAllBypassActors bool
	source                SourceCatalog
	target                TargetCatalog
	repositories          RepositoryCatalog
	resolver              ResolverProvider
	enricher              EnricherProvider
	logger                *zap.Logger
}

// repositoryRulesets pairs one source repository with its ruleset bodies.
type repositoryRulesets struct {
	repositoryName string
	documents      []RulesetDocument
}

// NewService validates the dependencies the configured mode needs.
func NewService(dependencies ServiceDependencies) (*Service, error) {
	if _, modeError := migration.ParseMode(string(dependencies.Mode)); modeError != nil {
		return nil, modeError
	}
	if dependencies.Mode.ReadsSource() {
		if dependencies.Source == nil {
			return nil, errSourceCatalogMissing
		}
		if dependencies.Repositories == nil {
			return nil, errRepositoryCatalogMissing
		}
		if dependencies.EnrichBypassActors && dependencies.Enricher == nil {
			return nil, errEnricherProviderMissing
		}
	}
	if dependencies.Mode.WritesTarget() {
		if dependencies.Target == nil {
			return nil, errTargetCatalogMissing
		}
		if dependencies.Resolver == nil {
			return nil, errResolverProviderMissing
		}
	}
	if dependencies.Mode == migration.ModeImport && len(strings.TrimSpace(dependencies.InputPath)) == 0 {
		return nil, errInputPathMissing
	}
	if dependencies.Mode == migration.ModeExport && len(strings.TrimSpace(dependencies.OutputPath)) == 0 {
		return nil, errOutputPathMissing
	}

	serviceLogger := dependencies.Logger
	if serviceLogger == nil {
		serviceLogger = zap.NewNop()
	}

	return &Service{
		mode:                  dependencies.Mode,
		dryRun:                dependencies.DryRun,
		inputPath:             strings.TrimSpace(dependencies.InputPath),
		outputPath:            strings.TrimSpace(dependencies.OutputPath),
		enrichBypassActors:    dependencies.EnrichBypassActors,
		sanitizeBypassActors:  dependencies.SanitizeBypassActors,
		removeAllBypassActors: dependencies.RemoveAllBypassActors,
		source:                dependencies.Source,
		target:                dependencies.Target,
		repositories:          dependencies.Repositories,
		resolver:              dependencies.Resolver,
		enricher:              dependencies.Enricher,
		logger:                serviceLogger,
	}, nil
}

// EnvironmentServiceOptions carries the per-run settings threaded from flags
// and configuration into an environment-backed service.
type EnvironmentServiceOptions struct {
	DryRun                bool
	InputPath             string
	OutputPath            string
	EnrichBypassActors    bool
	SanitizeBypassActors  bool
	RemoveAllBypassActors bool
}

// NewEnvironmentService wires a rulesets service to the sessions and shared
// lookups of one migration environment. The run resolver doubles as the
// export-side enricher because it holds both team directories.
func NewEnvironmentService(environment *migration.Environment, options EnvironmentServiceOptions, logger *zap.Logger) (*Service, error) {
	dependencies := ServiceDependencies{
		Mode:                  environment.Mode(),
		DryRun:                options.DryRun,
		InputPath:             options.InputPath,
		OutputPath:            options.OutputPath,
		EnrichBypassActors:    options.EnrichBypassActors,
		SanitizeBypassActors:  options.SanitizeBypassActors,
		RemoveAllBypassActors: options.RemoveAllBypassActors,
		Logger:                logger,
	}
	if sourceSession := environment.Source(); sourceSession != nil {
		dependencies.Source = sourceSession
		dependencies.Repositories = environment.SourceRepositories
		dependencies.Enricher = func(enricherContext context.Context) (BypassEnricher, error) {
			return environment.Resolver(enricherContext)
		}
	}
	if targetSession := environment.Target(); targetSession != nil {
		dependencies.Target = targetSession
		dependencies.Resolver = func(resolverContext context.Context) (TargetResolver, error) {
			return environment.Resolver(resolverContext)
		}
	}
	return NewService(dependencies)
}

// ClassName identifies the records this service emits.
func (service *Service) ClassName() migration.ClassName {
	return migration.ClassRulesets
}

// Run executes the configured mode. Export produces only the artifact
// directory; import and migrate return one record per attempted write.
func (service *Service) Run(executionContext context.Context) ([]migration.Record, error) {
	switch service.mode {
	case migration.ModeExport:
		collectedGroups, collectError := service.collectDocuments(executionContext)
		if collectError != nil {
			return nil, collectError
		}
		return nil, service.writeArtifacts(collectedGroups)
	case migration.ModeImport:
		artifactGroups, readError := service.readArtifacts()
		if readError != nil {
			return nil, readError
		}
		return service.applyGroups(executionContext, artifactGroups)
	default:
		collectedGroups, collectError := service.collectDocuments(executionContext)
		if collectError != nil {
			return nil, collectError
		}
		if writeError := service.writeArtifacts(collectedGroups); writeError != nil {
			return nil, writeError
		}
		return service.applyGroups(executionContext, collectedGroups)
	}
}

// collectDocuments fetches the full body of every ruleset defined on the
// source repositories. Repositories without rulesets produce no group and
// therefore no artifact file.
func (service *Service) collectDocuments(executionContext context.Context) ([]repositoryRulesets, error) {
	sourceRepositories, repositoryListError := service.repositories(executionContext)
	if repositoryListError != nil {
		return nil, repositoryListError
	}

	var actorEnricher BypassEnricher
	if service.enrichBypassActors {
		fetchedEnricher, enricherError := service.enricher(executionContext)
		if enricherError != nil {
			return nil, enricherError
		}
		actorEnricher = fetchedEnricher
	}

	collectedGroups := make([]repositoryRulesets, 0, len(sourceRepositories))
	for _, repositoryDescriptor := range sourceRepositories {
		rulesetDescriptors, listError := service.source.RepositoryRulesetDescriptors(executionContext, repositoryDescriptor.Name)
		if listError != nil {
			if errors.Is(listError, githubapi.ErrNotFound) {
				service.logger.Warn(repositoryListingSkippedMessageConstant, zap.String(logFieldRepositoryConstant, repositoryDescriptor.Name))
				continue
			}
			return nil, fmt.Errorf(listRulesetsTemplateConstant, repositoryDescriptor.Name, listError)
		}
		if len(rulesetDescriptors) == 0 {
			continue
		}

		groupDocuments := make([]RulesetDocument, 0, len(rulesetDescriptors))
		for _, rulesetDescriptor := range rulesetDescriptors {
			rulesetBody, fetchError := service.source.RepositoryRuleset(executionContext, repositoryDescriptor.Name, rulesetDescriptor.Identifier)
			if fetchError != nil {
				return nil, fmt.Errorf(fetchRulesetTemplateConstant, rulesetDescriptor.Identifier, repositoryDescriptor.Name, fetchError)
			}
			document, parseError := ParseDocument(rulesetBody)
			if parseError != nil {
				return nil, fmt.Errorf(decodeRulesetTemplateConstant, rulesetDescriptor.Identifier, repositoryDescriptor.Name, parseError)
			}
			if actorEnricher != nil {
				if enrichError := service.enrichDocument(executionContext, actorEnricher, document); enrichError != nil {
					return nil, enrichError
				}
			}
			groupDocuments = append(groupDocuments, document)
		}
		collectedGroups = append(collectedGroups, repositoryRulesets{
			repositoryName: repositoryDescriptor.Name,
			documents:      groupDocuments,
		})
	}
	return collectedGroups, nil
}

func (service *Service) enrichDocument(executionContext context.Context, actorEnricher BypassEnricher, document RulesetDocument) error {
	bypassActors, decodeError := document.BypassActors()
	if decodeError != nil {
		return fmt.Errorf(enrichActorsTemplateConstant, document.Name(), decodeError)
	}
	if len(bypassActors) == 0 {
		return nil
	}
	enrichedActors, enrichError := actorEnricher.EnrichBypassActors(executionContext, bypassActors)
	if enrichError != nil {
		return fmt.Errorf(enrichActorsTemplateConstant, document.Name(), enrichError)
	}
	return document.SetBypassActors(enrichedActors)
}

// readArtifacts scans the input directory for ruleset artifacts. The file
// names decide which repositories an import touches.
func (service *Service) readArtifacts() ([]repositoryRulesets, error) {
	directoryEntries, scanError := os.ReadDir(service.inputPath)
	if scanError != nil {
		return nil, fmt.Errorf(scanArtifactsTemplateConstant, service.inputPath, scanError)
	}

	artifactGroups := make([]repositoryRulesets, 0, len(directoryEntries))
	for _, directoryEntry := range directoryEntries {
		if directoryEntry.IsDir() {
			continue
		}
		repositoryName, isArtifact := RepositoryFromArtifactName(directoryEntry.Name())
		if !isArtifact {
			continue
		}

		artifactPath := filepath.Join(service.inputPath, directoryEntry.Name())
		inputReader, openError := report.OpenInput(artifactPath)
		if openError != nil {
			return nil, fmt.Errorf(readArtifactTemplateConstant, artifactPath, openError)
		}
		artifactDocuments, parseError := ReadArtifact(inputReader)
		closeError := inputReader.Close()
		if parseError != nil {
			return nil, fmt.Errorf(readArtifactTemplateConstant, artifactPath, parseError)
		}
		if closeError != nil {
			return nil, fmt.Errorf(readArtifactTemplateConstant, artifactPath, closeError)
		}
		artifactGroups = append(artifactGroups, repositoryRulesets{
			repositoryName: repositoryName,
			documents:      artifactDocuments,
		})
	}
	return artifactGroups, nil
}

func (service *Service) writeArtifacts(artifactGroups []repositoryRulesets) error {
	if len(service.outputPath) == 0 {
		return nil
	}

	for _, artifactGroup := range artifactGroups {
		artifactPath := filepath.Join(service.outputPath, ArtifactFileName(artifactGroup.repositoryName))
		outputWriter, openError := report.OpenOutput(artifactPath)
		if openError != nil {
			return fmt.Errorf(writeArtifactTemplateConstant, artifactPath, openError)
		}
		writeError := WriteArtifact(outputWriter, artifactGroup.documents)
		closeError := outputWriter.Close()
		if writeError != nil {
			return fmt.Errorf(writeArtifactTemplateConstant, artifactPath, writeError)
		}
		if closeError != nil {
			return fmt.Errorf(writeArtifactTemplateConstant, artifactPath, closeError)
		}

		service.logger.Info(
			artifactWrittenMessageConstant,
			zap.String(logFieldPathConstant, artifactPath),
			zap.Int(logFieldRulesetsConstant, len(artifactGroup.documents)),
		)
	}
	return nil
}

// applyGroups writes artifact groups into the target scope. Scope-fatal
// failures abort with the records accumulated so far; anything else becomes
// a failed record and the batch continues.
func (service *Service) applyGroups(executionContext context.Context, artifactGroups []repositoryRulesets) ([]migration.Record, error) {
	targetResolver, resolverError := service.resolver(executionContext)
	if resolverError != nil {
		return nil, resolverError
	}

	migrationRecords := make([]migration.Record, 0)
	for _, artifactGroup := range artifactGroups {
		groupRecords, applyError := service.applyGroup(executionContext, targetResolver, artifactGroup)
		migrationRecords = append(migrationRecords, groupRecords...)
		if applyError != nil {
			return migrationRecords, applyError
		}
	}
	return migrationRecords, nil
}

func (service *Service) applyGroup(executionContext context.Context, targetResolver TargetResolver, artifactGroup repositoryRulesets) ([]migration.Record, error) {
	repositoryPlacement, placementError := targetResolver.ResolveRepository(artifactGroup.repositoryName)
	if placementError != nil {
		if migration.IsScopeFatal(placementError) {
			return nil, placementError
		}
		return service.stampGroup(artifactGroup, artifactGroup.repositoryName, migration.OutcomeFailed, placementError.Error()), nil
	}
	if !repositoryPlacement.Exists {
		return service.stampGroup(artifactGroup, repositoryPlacement.TargetName, migration.OutcomeSkippedNoTargetRepo, targetRepositoryMissingDetailConstant), nil
	}

	existingNames, probeError := service.existingRulesetNames(executionContext, repositoryPlacement.TargetName)
	if probeError != nil {
		if migration.IsScopeFatal(probeError) {
			return nil, probeError
		}
		return service.stampGroup(artifactGroup, repositoryPlacement.TargetName, migration.OutcomeFailed, probeError.Error()), nil
	}

	groupRecords := make([]migration.Record, 0, len(artifactGroup.documents))
	for _, document := range artifactGroup.documents {
		entityRecord, applyError := service.applyDocument(executionContext, targetResolver, repositoryPlacement.TargetName, existingNames, document)
		if applyError != nil {
			if migration.IsScopeFatal(applyError) {
				return groupRecords, applyError
			}
			entityRecord.Outcome = migration.OutcomeFailed
			entityRecord.Detail = applyError.Error()
		}
		groupRecords = append(groupRecords, entityRecord)
	}
	return groupRecords, nil
}

// stampGroup marks every ruleset in a group with one outcome, used when a
// repository-level step settles the whole group at once.
func (service *Service) stampGroup(artifactGroup repositoryRulesets, repositoryName string, outcome migration.Outcome, outcomeDetail string) []migration.Record {
	stampedRecords := make([]migration.Record, 0, len(artifactGroup.documents))
	for _, document := range artifactGroup.documents {
		stampedRecords = append(stampedRecords, migration.Record{
			Class:      migration.ClassRulesets,
			Scope:      migration.EntityScopeRepository,
			Repository: repositoryName,
			Name:       document.Name(),
			Outcome:    outcome,
			Detail:     outcomeDetail,
		})
	}
	return stampedRecords
}

func (service *Service) existingRulesetNames(executionContext context.Context, repositoryName string) (map[string]bool, error) {
	existingDescriptors, listError := service.target.RepositoryRulesetDescriptors(executionContext, repositoryName)
	if listError != nil {
		return nil, fmt.Errorf(listRulesetsTemplateConstant, repositoryName, listError)
	}
	existingNames := make(map[string]bool, len(existingDescriptors))
	for _, rulesetDescriptor := range existingDescriptors {
		existingNames[rulesetDescriptor.Name] = true
	}
	return existingNames, nil
}

func (service *Service) applyDocument(executionContext context.Context, targetResolver TargetResolver, targetRepositoryName string, existingNames map[string]bool, document RulesetDocument) (migration.Record, error) {
	entityRecord := migration.Record{
		Class:      migration.ClassRulesets,
		Scope:      migration.EntityScopeRepository,
		Repository: targetRepositoryName,
		Name:       document.Name(),
	}

	if existingNames[document.Name()] {
		entityRecord.Outcome = migration.OutcomeSkippedAlreadyExists
		return entityRecord, nil
	}

	resolvedActors, detailParts, resolveError := service.resolveDocumentActors(executionContext, targetResolver, document)
	if resolveError != nil {
		return entityRecord, resolveError
	}

	if service.dryRun {
		entityRecord.Outcome = migration.OutcomePlanned
		entityRecord.Detail = strings.Join(detailParts, detailSeparatorConstant)
		return entityRecord, nil
	}

	creationPayload, payloadError := document.CreationPayload(resolvedActors)
	if payloadError != nil {
		return entityRecord, payloadError
	}
	if creationError := service.target.CreateRepositoryRuleset(executionContext, targetRepositoryName, creationPayload); creationError != nil {
		return entityRecord, creationError
	}

	service.logger.Info(
		rulesetCreatedMessageConstant,
		zap.String(logFieldRepositoryConstant, targetRepositoryName),
		zap.String(logFieldRulesetNameConstant, document.Name()),
	)
	entityRecord.Outcome = migration.OutcomeCreated
	entityRecord.Detail = strings.Join(detailParts, detailSeparatorConstant)
	return entityRecord, nil
}

// resolveDocumentActors applies the configured bypass-actor posture and
// reports what the outcome detail should mention.
func (service *Service) resolveDocumentActors(executionContext context.Context, targetResolver TargetResolver, document RulesetDocument) ([]identity.BypassActor, []string, error) {
	bypassActors, decodeError := document.BypassActors()
	if decodeError != nil {
		return nil, nil, decodeError
	}
	if len(bypassActors) == 0 {
		return nil, nil, nil
	}

	if service.removeAllBypassActors {
		return nil, []string{bypassActorsRemovedDetailConstant}, nil
	}
	if !service.sanitizeBypassActors {
		return identity.StripEnrichment(bypassActors), []string{bypassActorsKeptDetailConstant}, nil
	}

	resolvedActors, droppedActors, resolveError := targetResolver.ResolveBypassActors(executionContext, bypassActors)
	if resolveError != nil {
		return nil, nil, resolveError
	}
	if len(droppedActors) > 0 {
		droppedDetail := fmt.Sprintf(droppedActorsDetailTemplateConstant, len(droppedActors), len(bypassActors))
		return resolvedActors, []string{droppedDetail}, nil
	}
	return resolvedActors, nil, nil
}
