package webhooks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/temirov/orgmigrate/internal/githubapi"
	"github.com/temirov/orgmigrate/internal/identity"
	"github.com/temirov/orgmigrate/internal/migration"
	"github.com/temirov/orgmigrate/internal/report"
)

const (
	targetRepositoryMissingDetailConstant = "target repository not found"

	sourceDirectoryMissingMessageConstant   = "webhooks service requires a source directory"
	targetDirectoryMissingMessageConstant   = "webhooks service requires a target directory"
	repositoryCatalogMissingMessageConstant = "webhooks service requires a repository catalog"
	resolverProviderMissingMessageConstant  = "webhooks service requires a resolver provider"
	inputPathMissingMessageConstant         = "webhooks import requires an input path"
	outputPathMissingMessageConstant        = "webhooks export requires an output path"

	listWebhooksTemplateConstant  = "list webhooks for repository %s: %w"
	decodeWebhookTemplateConstant = "decode webhook from repository %s: %w"
	readArtifactTemplateConstant  = "read webhooks artifact %s: %w"
	writeArtifactTemplateConstant = "write webhooks artifact %s: %w"

	repositoryListingSkippedMessageConstant = "repository vanished during listing"
	inactiveWebhookSkippedMessageConstant   = "inactive webhook left behind"
	artifactWrittenMessageConstant          = "webhooks artifact written"
	webhookCreatedMessageConstant           = "webhook created"
	logFieldRepositoryConstant              = "repository"
	logFieldWebhookURLConstant              = "webhook_url"
	logFieldPathConstant                    = "path"
	logFieldRepositoriesConstant            = "repositories"
)

var (
	errSourceDirectoryMissing   = errors.New(sourceDirectoryMissingMessageConstant)
	errTargetDirectoryMissing   = errors.New(targetDirectoryMissingMessageConstant)
	errRepositoryCatalogMissing = errors.New(repositoryCatalogMissingMessageConstant)
	errResolverProviderMissing  = errors.New(resolverProviderMissingMessageConstant)
	errInputPathMissing         = errors.New(inputPathMissingMessageConstant)
	errOutputPathMissing        = errors.New(outputPathMissingMessageConstant)
)

// SourceDirectory lists webhooks in the source scope.
type SourceDirectory interface {
	RepositoryWebhooks(executionContext context.Context, repositoryName string) ([]json.RawMessage, error)
}

// TargetDirectory probes and creates webhooks in the target scope.
type TargetDirectory interface {
	RepositoryWebhookDescriptors(executionContext context.Context, repositoryName string) ([]githubapi.WebhookDescriptor, error)
	CreateRepositoryWebhook(executionContext context.Context, repositoryName string, webhookBody json.RawMessage) error
}

// TargetResolver maps source repository references into the target scope.
type TargetResolver interface {
	ResolveRepository(repositoryName string) (identity.RepositoryPlacement, error)
}

// RepositoryCatalog lazily enumerates the source repositories in scope.
type RepositoryCatalog func(executionContext context.Context) ([]githubapi.RepositoryDescriptor, error)

// ResolverProvider lazily yields the run identity resolver.
type ResolverProvider func(executionContext context.Context) (TargetResolver, error)

// ServiceDependencies wires a webhooks service to its scopes and artifact
// paths. Only the dependencies the mode touches are required. The
// organization names and rename overrides feed the export document.
type ServiceDependencies struct {
	Mode                migration.Mode
	DryRun              bool
	InputPath           string
	OutputPath          string
	SourceOrganization  string
	TargetOrganization  string
	RepositoryOverrides map[string]string
	Source              SourceDirectory
	Target              TargetDirectory
	Repositories        RepositoryCatalog
	Resolver            ResolverProvider
	Logger              *zap.Logger
}

// Service migrates repository webhooks for one run mode.
type Service struct {
	mode                migration.Mode
	dryRun              bool
	inputPath           string
	outputPath          string
	sourceOrganization  string
	targetOrganization  string
	repositoryOverrides map[string]string
	source              SourceDirectory
	target              TargetDirectory
	repositories        RepositoryCatalog
	resolver            ResolverProvider
	logger              *zap.Logger
}

// NewService validates the dependencies the configured mode needs.
func NewService(dependencies ServiceDependencies) (*Service, error) {
	if _, modeError := migration.ParseMode(string(dependencies.Mode)); modeError != nil {
		return nil, modeError
	}
	if dependencies.Mode.ReadsSource() {
		if dependencies.Source == nil {
			return nil, errSourceDirectoryMissing
		}
		if dependencies.Repositories == nil {
			return nil, errRepositoryCatalogMissing
		}
	}
	if dependencies.Mode.WritesTarget() {
		if dependencies.Target == nil {
			return nil, errTargetDirectoryMissing
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
		mode:                dependencies.Mode,
		dryRun:              dependencies.DryRun,
		inputPath:           strings.TrimSpace(dependencies.InputPath),
		outputPath:          strings.TrimSpace(dependencies.OutputPath),
		sourceOrganization:  strings.TrimSpace(dependencies.SourceOrganization),
		targetOrganization:  strings.TrimSpace(dependencies.TargetOrganization),
		repositoryOverrides: dependencies.RepositoryOverrides,
		source:              dependencies.Source,
		target:              dependencies.Target,
		repositories:        dependencies.Repositories,
		resolver:            dependencies.Resolver,
		logger:              serviceLogger,
	}, nil
}

// EnvironmentServiceOptions carries the per-run settings threaded from flags
// and configuration into an environment-backed service.
type EnvironmentServiceOptions struct {
	DryRun             bool
	InputPath          string
	OutputPath         string
	SourceOrganization string
	TargetOrganization string
}

// NewEnvironmentService wires a webhooks service to the sessions and shared
// lookups of one migration environment.
func NewEnvironmentService(environment *migration.Environment, options EnvironmentServiceOptions, logger *zap.Logger) (*Service, error) {
	dependencies := ServiceDependencies{
		Mode:                environment.Mode(),
		DryRun:              options.DryRun,
		InputPath:           options.InputPath,
		OutputPath:          options.OutputPath,
		SourceOrganization:  options.SourceOrganization,
		TargetOrganization:  options.TargetOrganization,
		RepositoryOverrides: environment.RepositoryOverrides(),
		Logger:              logger,
	}
	if sourceSession := environment.Source(); sourceSession != nil {
		dependencies.Source = sourceSession
		dependencies.Repositories = environment.SourceRepositories
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
	return migration.ClassWebhooks
}

// Run executes the configured mode. Export produces only the artifact;
// import and migrate return one record per attempted target write.
func (service *Service) Run(executionContext context.Context) ([]migration.Record, error) {
	switch service.mode {
	case migration.ModeExport:
		collectedDocument, collectError := service.collectDocument(executionContext)
		if collectError != nil {
			return nil, collectError
		}
		return nil, service.writeArtifact(collectedDocument)
	case migration.ModeImport:
		artifactDocument, readError := service.readArtifact()
		if readError != nil {
			return nil, readError
		}
		return service.applyDocument(executionContext, artifactDocument)
	default:
		collectedDocument, collectError := service.collectDocument(executionContext)
		if collectError != nil {
			return nil, collectError
		}
		if writeError := service.writeArtifact(collectedDocument); writeError != nil {
			return nil, writeError
		}
		return service.applyDocument(executionContext, collectedDocument)
	}
}

type listedWebhook struct {
	Active        bool              `json:"active"`
	Events        []string          `json:"events"`
	Configuration HookConfiguration `json:"config"`
}

func decodeListedWebhook(rawWebhook json.RawMessage) (HookConfiguration, error) {
	var listedHook listedWebhook
	if unmarshalError := json.Unmarshal(rawWebhook, &listedHook); unmarshalError != nil {
		return HookConfiguration{}, unmarshalError
	}
	hookConfiguration := listedHook.Configuration
	hookConfiguration.Events = listedHook.Events
	hookConfiguration.Active = listedHook.Active
	return hookConfiguration, nil
}

// mappedRepositoryName applies any configured rename, which the export
// document records as each repository's target_repo.
func (service *Service) mappedRepositoryName(repositoryName string) string {
	if renamedRepository, renameConfigured := service.repositoryOverrides[repositoryName]; renameConfigured {
		return renamedRepository
	}
	return repositoryName
}

// collectDocument reads the active webhooks of every source repository.
// Inactive hooks stay behind, matching what the target should receive.
func (service *Service) collectDocument(executionContext context.Context) (ArtifactDocument, error) {
	collectedDocument := ArtifactDocument{
		ExportDate:         time.Now().UTC().Format(exportDateLayoutConstant),
		SourceOrganization: service.sourceOrganization,
		TargetOrganization: service.targetOrganization,
		Repositories:       map[string]RepositoryWebhooks{},
	}

	sourceRepositories, repositoryListError := service.repositories(executionContext)
	if repositoryListError != nil {
		return ArtifactDocument{}, repositoryListError
	}

	for _, repositoryDescriptor := range sourceRepositories {
		rawWebhooks, listError := service.source.RepositoryWebhooks(executionContext, repositoryDescriptor.Name)
		if listError != nil {
			if errors.Is(listError, githubapi.ErrNotFound) {
				service.logger.Warn(repositoryListingSkippedMessageConstant, zap.String(logFieldRepositoryConstant, repositoryDescriptor.Name))
				continue
			}
			return ArtifactDocument{}, fmt.Errorf(listWebhooksTemplateConstant, repositoryDescriptor.Name, listError)
		}

		activeHooks := make([]HookConfiguration, 0, len(rawWebhooks))
		for _, rawWebhook := range rawWebhooks {
			hookConfiguration, decodeError := decodeListedWebhook(rawWebhook)
			if decodeError != nil {
				return ArtifactDocument{}, fmt.Errorf(decodeWebhookTemplateConstant, repositoryDescriptor.Name, decodeError)
			}
			if !hookConfiguration.Active {
				service.logger.Info(
					inactiveWebhookSkippedMessageConstant,
					zap.String(logFieldRepositoryConstant, repositoryDescriptor.Name),
					zap.String(logFieldWebhookURLConstant, hookConfiguration.URL),
				)
				continue
			}
			activeHooks = append(activeHooks, hookConfiguration.Normalize())
		}

		collectedDocument.Repositories[repositoryDescriptor.Name] = RepositoryWebhooks{
			TargetRepository: service.mappedRepositoryName(repositoryDescriptor.Name),
			Webhooks:         activeHooks,
		}
	}
	return collectedDocument, nil
}

func (service *Service) readArtifact() (ArtifactDocument, error) {
	inputReader, openError := report.OpenInput(service.inputPath)
	if openError != nil {
		return ArtifactDocument{}, fmt.Errorf(readArtifactTemplateConstant, service.inputPath, openError)
	}
	defer func() { _ = inputReader.Close() }()

	artifactDocument, parseError := ReadArtifact(inputReader)
	if parseError != nil {
		return ArtifactDocument{}, fmt.Errorf(readArtifactTemplateConstant, service.inputPath, parseError)
	}
	return artifactDocument, nil
}

func (service *Service) writeArtifact(artifactDocument ArtifactDocument) error {
	if len(service.outputPath) == 0 {
		return nil
	}

	outputWriter, openError := report.OpenOutput(service.outputPath)
	if openError != nil {
		return fmt.Errorf(writeArtifactTemplateConstant, service.outputPath, openError)
	}
	writeError := WriteArtifact(outputWriter, artifactDocument)
	closeError := outputWriter.Close()
	if writeError != nil {
		return fmt.Errorf(writeArtifactTemplateConstant, service.outputPath, writeError)
	}
	if closeError != nil {
		return fmt.Errorf(writeArtifactTemplateConstant, service.outputPath, closeError)
	}

	service.logger.Info(
		artifactWrittenMessageConstant,
		zap.String(logFieldPathConstant, service.outputPath),
		zap.Int(logFieldRepositoriesConstant, len(artifactDocument.Repositories)),
	)
	return nil
}

// applyDocument writes the document's webhooks into the target scope in
// repository name order. Scope-fatal failures abort with the records
// accumulated so far; anything else becomes a failed record and the batch
// continues.
func (service *Service) applyDocument(executionContext context.Context, artifactDocument ArtifactDocument) ([]migration.Record, error) {
	targetResolver, resolverError := service.resolver(executionContext)
	if resolverError != nil {
		return nil, resolverError
	}

	sourceNames := make([]string, 0, len(artifactDocument.Repositories))
	for repositoryName := range artifactDocument.Repositories {
		sourceNames = append(sourceNames, repositoryName)
	}
	sort.Strings(sourceNames)

	migrationRecords := make([]migration.Record, 0)
	for _, sourceName := range sourceNames {
		groupRecords, applyError := service.applyGroup(executionContext, targetResolver, sourceName, artifactDocument.Repositories[sourceName])
		migrationRecords = append(migrationRecords, groupRecords...)
		if applyError != nil {
			return migrationRecords, applyError
		}
	}
	return migrationRecords, nil
}

func (service *Service) applyGroup(executionContext context.Context, targetResolver TargetResolver, sourceName string, repositoryGroup RepositoryWebhooks) ([]migration.Record, error) {
	if len(repositoryGroup.Webhooks) == 0 {
		return nil, nil
	}

	mappedName := strings.TrimSpace(repositoryGroup.TargetRepository)
	if len(mappedName) == 0 {
		mappedName = sourceName
	}

	repositoryPlacement, placementError := targetResolver.ResolveRepository(mappedName)
	if placementError != nil {
		if migration.IsScopeFatal(placementError) {
			return nil, placementError
		}
		return service.stampGroup(repositoryGroup, mappedName, migration.OutcomeFailed, placementError.Error()), nil
	}
	if !repositoryPlacement.Exists {
		return service.stampGroup(repositoryGroup, repositoryPlacement.TargetName, migration.OutcomeSkippedNoTargetRepo, targetRepositoryMissingDetailConstant), nil
	}

	existingURLs, probeError := service.existingWebhookURLs(executionContext, repositoryPlacement.TargetName)
	if probeError != nil {
		if migration.IsScopeFatal(probeError) {
			return nil, probeError
		}
		return service.stampGroup(repositoryGroup, repositoryPlacement.TargetName, migration.OutcomeFailed, probeError.Error()), nil
	}

	groupRecords := make([]migration.Record, 0, len(repositoryGroup.Webhooks))
	for _, hookConfiguration := range repositoryGroup.Webhooks {
		entityRecord, applyError := service.applyWebhook(executionContext, repositoryPlacement.TargetName, existingURLs, hookConfiguration)
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

// stampGroup marks every webhook in a group with one outcome, used when a
// repository-level step settles the whole group at once.
func (service *Service) stampGroup(repositoryGroup RepositoryWebhooks, repositoryName string, outcome migration.Outcome, outcomeDetail string) []migration.Record {
	stampedRecords := make([]migration.Record, 0, len(repositoryGroup.Webhooks))
	for _, hookConfiguration := range repositoryGroup.Webhooks {
		stampedRecords = append(stampedRecords, migration.Record{
			Class:      migration.ClassWebhooks,
			Scope:      migration.EntityScopeRepository,
			Repository: repositoryName,
			Name:       hookConfiguration.URL,
			Outcome:    outcome,
			Detail:     outcomeDetail,
		})
	}
	return stampedRecords
}

func (service *Service) existingWebhookURLs(executionContext context.Context, repositoryName string) (map[string]bool, error) {
	existingDescriptors, listError := service.target.RepositoryWebhookDescriptors(executionContext, repositoryName)
	if listError != nil {
		return nil, fmt.Errorf(listWebhooksTemplateConstant, repositoryName, listError)
	}
	existingURLs := make(map[string]bool, len(existingDescriptors))
	for _, webhookDescriptor := range existingDescriptors {
		existingURLs[webhookDescriptor.URL] = true
	}
	return existingURLs, nil
}

func (service *Service) applyWebhook(executionContext context.Context, targetRepositoryName string, existingURLs map[string]bool, hookConfiguration HookConfiguration) (migration.Record, error) {
	entityRecord := migration.Record{
		Class:      migration.ClassWebhooks,
		Scope:      migration.EntityScopeRepository,
		Repository: targetRepositoryName,
		Name:       hookConfiguration.URL,
	}

	if existingURLs[hookConfiguration.URL] {
		entityRecord.Outcome = migration.OutcomeSkippedAlreadyExists
		return entityRecord, nil
	}

	if service.dryRun {
		entityRecord.Outcome = migration.OutcomePlanned
		return entityRecord, nil
	}

	creationPayload, payloadError := hookConfiguration.CreationPayload()
	if payloadError != nil {
		return entityRecord, payloadError
	}
	if creationError := service.target.CreateRepositoryWebhook(executionContext, targetRepositoryName, creationPayload); creationError != nil {
		return entityRecord, creationError
	}

	service.logger.Info(
		webhookCreatedMessageConstant,
		zap.String(logFieldRepositoryConstant, targetRepositoryName),
		zap.String(logFieldWebhookURLConstant, hookConfiguration.URL),
	)
	entityRecord.Outcome = migration.OutcomeCreated
	return entityRecord, nil
}
