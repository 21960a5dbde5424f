package variables

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/temirov/orgmigrate/internal/githubapi"
	"github.com/temirov/orgmigrate/internal/identity"
	"github.com/temirov/orgmigrate/internal/migration"
	"github.com/temirov/orgmigrate/internal/report"
)

const (
	visibilityAllConstant      = "all"
	visibilityPrivateConstant  = "private"
	visibilitySelectedConstant = "selected"

	updatedExistingValueDetailConstant    = "updated existing value"
	visibilityDowngradedDetailConstant    = "visibility downgraded to private"
	targetRepositoryMissingDetailConstant = "target repository not found"
	missingSelectedDetailTemplateConstant = "missing selected repositories: %s"
	detailSeparatorConstant               = "; "
	missingNameSeparatorConstant          = ", "

	sourceInventoryMissingMessageConstant   = "variables service requires a source inventory"
	targetStoreMissingMessageConstant       = "variables service requires a target store"
	repositoryCatalogMissingMessageConstant = "variables service requires a repository catalog"
	resolverProviderMissingMessageConstant  = "variables service requires a resolver provider"
	inputPathMissingMessageConstant         = "variables import requires an input path"
	outputPathMissingMessageConstant        = "variables export requires an output path"

	listOrganizationVariablesTemplateConstant = "list organization variables: %w"
	listSelectedRepositoriesTemplateConstant  = "list selected repositories for variable %s: %w"
	listRepositoryVariablesTemplateConstant   = "list variables for repository %s: %w"
	readArtifactTemplateConstant              = "read variables artifact %s: %w"
	writeArtifactTemplateConstant             = "write variables artifact %s: %w"
	unknownScopeTemplateConstant              = "unknown entity scope %q"

	repositoryListingSkippedMessageConstant = "repository vanished during listing"
	artifactWrittenMessageConstant          = "variables artifact written"
	variableCreatedMessageConstant          = "variable created"
	variableUpdatedMessageConstant          = "variable updated"
	logFieldRepositoryConstant              = "repository"
	logFieldVariableNameConstant            = "variable_name"
	logFieldPathConstant                    = "path"
	logFieldRowsConstant                    = "rows"
)

var (
	errSourceInventoryMissing   = errors.New(sourceInventoryMissingMessageConstant)
	errTargetStoreMissing       = errors.New(targetStoreMissingMessageConstant)
	errRepositoryCatalogMissing = errors.New(repositoryCatalogMissingMessageConstant)
	errResolverProviderMissing  = errors.New(resolverProviderMissingMessageConstant)
	errInputPathMissing         = errors.New(inputPathMissingMessageConstant)
	errOutputPathMissing        = errors.New(outputPathMissingMessageConstant)
)

// SourceInventory reads variables from the source scope.
type SourceInventory interface {
	OrganizationVariables(executionContext context.Context) ([]githubapi.VariableDescriptor, error)
	SelectedRepositoriesForVariable(executionContext context.Context, variableName string) ([]githubapi.RepositoryDescriptor, error)
	RepositoryVariables(executionContext context.Context, repositoryName string) ([]githubapi.VariableDescriptor, error)
}

// TargetStore writes variables into the target scope. Creation conflicts are
// settled with an update, so writes overwrite existing values.
type TargetStore interface {
	CreateOrganizationVariable(executionContext context.Context, payload githubapi.VariablePayload) error
	UpdateOrganizationVariable(executionContext context.Context, payload githubapi.VariablePayload) error
	CreateRepositoryVariable(executionContext context.Context, repositoryName string, payload githubapi.VariablePayload) error
	UpdateRepositoryVariable(executionContext context.Context, repositoryName string, payload githubapi.VariablePayload) error
}

// TargetResolver maps source repository references into the target scope.
type TargetResolver interface {
	ResolveRepository(repositoryName string) (identity.RepositoryPlacement, error)
	ResolveSelectedRepositories(selectedRepositoryNames []string) ([]int64, []string, error)
}

// RepositoryCatalog lazily enumerates the source repositories in scope.
type RepositoryCatalog func(executionContext context.Context) ([]githubapi.RepositoryDescriptor, error)

// ResolverProvider lazily yields the run identity resolver.
type ResolverProvider func(executionContext context.Context) (TargetResolver, error)

// ServiceDependencies wires a variables service to its scopes and artifact
// paths. Only the dependencies the mode touches are required.
type ServiceDependencies struct {
	Mode         migration.Mode
	DryRun       bool
	InputPath    string
	OutputPath   string
	Source       SourceInventory
	Target       TargetStore
	Repositories RepositoryCatalog
	Resolver     ResolverProvider
	Logger       *zap.Logger
}

// Service migrates Actions variables for one run mode.
type Service struct {
	mode         migration.Mode
	dryRun       bool
	inputPath    string
	outputPath   string
	source       SourceInventory
	target       TargetStore
	repositories RepositoryCatalog
	resolver     ResolverProvider
	logger       *zap.Logger
}

// NewService validates the dependencies the configured mode needs.
func NewService(dependencies ServiceDependencies) (*Service, error) {
	if _, modeError := migration.ParseMode(string(dependencies.Mode)); modeError != nil {
		return nil, modeError
	}
	if dependencies.Mode.ReadsSource() {
		if dependencies.Source == nil {
			return nil, errSourceInventoryMissing
		}
		if dependencies.Repositories == nil {
			return nil, errRepositoryCatalogMissing
		}
	}
	if dependencies.Mode.WritesTarget() {
		if dependencies.Target == nil {
			return nil, errTargetStoreMissing
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
		mode:         dependencies.Mode,
		dryRun:       dependencies.DryRun,
		inputPath:    strings.TrimSpace(dependencies.InputPath),
		outputPath:   strings.TrimSpace(dependencies.OutputPath),
		source:       dependencies.Source,
		target:       dependencies.Target,
		repositories: dependencies.Repositories,
		resolver:     dependencies.Resolver,
		logger:       serviceLogger,
	}, nil
}

// EnvironmentServiceOptions carries the per-run settings threaded from flags
// and configuration into an environment-backed service.
type EnvironmentServiceOptions struct {
	DryRun     bool
	InputPath  string
	OutputPath string
}

// NewEnvironmentService wires a variables service to the sessions and shared
// lookups of one migration environment.
func NewEnvironmentService(environment *migration.Environment, options EnvironmentServiceOptions, logger *zap.Logger) (*Service, error) {
	dependencies := ServiceDependencies{
		Mode:       environment.Mode(),
		DryRun:     options.DryRun,
		InputPath:  options.InputPath,
		OutputPath: options.OutputPath,
		Logger:     logger,
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
	return migration.ClassVariables
}

// Run executes the configured mode. Export produces only the artifact;
// import and migrate return one record per attempted target write.
func (service *Service) Run(executionContext context.Context) ([]migration.Record, error) {
	switch service.mode {
	case migration.ModeExport:
		collectedRows, collectError := service.collectRows(executionContext)
		if collectError != nil {
			return nil, collectError
		}
		return nil, service.writeArtifact(collectedRows)
	case migration.ModeImport:
		artifactRows, readError := service.readArtifact()
		if readError != nil {
			return nil, readError
		}
		return service.applyRows(executionContext, artifactRows)
	default:
		collectedRows, collectError := service.collectRows(executionContext)
		if collectError != nil {
			return nil, collectError
		}
		if writeError := service.writeArtifact(collectedRows); writeError != nil {
			return nil, writeError
		}
		return service.applyRows(executionContext, collectedRows)
	}
}

func (service *Service) collectRows(executionContext context.Context) ([]ArtifactRow, error) {
	organizationVariables, organizationListError := service.source.OrganizationVariables(executionContext)
	if organizationListError != nil {
		return nil, fmt.Errorf(listOrganizationVariablesTemplateConstant, organizationListError)
	}

	collectedRows := make([]ArtifactRow, 0, len(organizationVariables))
	for _, variableDescriptor := range organizationVariables {
		artifactRow := ArtifactRow{
			EntityScope: migration.EntityScopeOrganization,
			Name:        variableDescriptor.Name,
			Value:       variableDescriptor.Value,
			Visibility:  variableDescriptor.Visibility,
			CreatedAt:   variableDescriptor.CreatedAt,
			UpdatedAt:   variableDescriptor.UpdatedAt,
		}
		if variableDescriptor.Visibility == visibilitySelectedConstant {
			selectedRepositories, selectedListError := service.source.SelectedRepositoriesForVariable(executionContext, variableDescriptor.Name)
			if selectedListError != nil {
				return nil, fmt.Errorf(listSelectedRepositoriesTemplateConstant, variableDescriptor.Name, selectedListError)
			}
			selectedNames := make([]string, 0, len(selectedRepositories))
			for _, repositoryDescriptor := range selectedRepositories {
				selectedNames = append(selectedNames, repositoryDescriptor.Name)
			}
			artifactRow.SelectedRepositories = selectedNames
		}
		collectedRows = append(collectedRows, artifactRow)
	}

	sourceRepositories, repositoryListError := service.repositories(executionContext)
	if repositoryListError != nil {
		return nil, repositoryListError
	}
	for _, repositoryDescriptor := range sourceRepositories {
		repositoryVariables, variableListError := service.source.RepositoryVariables(executionContext, repositoryDescriptor.Name)
		if variableListError != nil {
			if errors.Is(variableListError, githubapi.ErrNotFound) {
				service.logger.Warn(repositoryListingSkippedMessageConstant, zap.String(logFieldRepositoryConstant, repositoryDescriptor.Name))
				continue
			}
			return nil, fmt.Errorf(listRepositoryVariablesTemplateConstant, repositoryDescriptor.Name, variableListError)
		}
		for _, variableDescriptor := range repositoryVariables {
			collectedRows = append(collectedRows, ArtifactRow{
				EntityScope: migration.EntityScopeRepository,
				Repository:  repositoryDescriptor.Name,
				Name:        variableDescriptor.Name,
				Value:       variableDescriptor.Value,
				Visibility:  variableDescriptor.Visibility,
				CreatedAt:   variableDescriptor.CreatedAt,
				UpdatedAt:   variableDescriptor.UpdatedAt,
			})
		}
	}

	return collectedRows, nil
}

func (service *Service) readArtifact() ([]ArtifactRow, error) {
	inputReader, openError := report.OpenInput(service.inputPath)
	if openError != nil {
		return nil, fmt.Errorf(readArtifactTemplateConstant, service.inputPath, openError)
	}
	defer func() { _ = inputReader.Close() }()

	artifactRows, parseError := ReadArtifact(inputReader)
	if parseError != nil {
		return nil, fmt.Errorf(readArtifactTemplateConstant, service.inputPath, parseError)
	}
	return artifactRows, nil
}

func (service *Service) writeArtifact(artifactRows []ArtifactRow) error {
	if len(service.outputPath) == 0 {
		return nil
	}

	outputWriter, openError := report.OpenOutput(service.outputPath)
	if openError != nil {
		return fmt.Errorf(writeArtifactTemplateConstant, service.outputPath, openError)
	}
	writeError := WriteArtifact(outputWriter, artifactRows)
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
		zap.Int(logFieldRowsConstant, len(artifactRows)),
	)
	return nil
}

func (service *Service) applyRows(executionContext context.Context, artifactRows []ArtifactRow) ([]migration.Record, error) {
	targetResolver, resolverError := service.resolver(executionContext)
	if resolverError != nil {
		return nil, resolverError
	}

	migrationRecords := make([]migration.Record, 0, len(artifactRows))
	for _, artifactRow := range artifactRows {
		entityRecord, applyError := service.applyRow(executionContext, targetResolver, artifactRow)
		if applyError != nil {
			if migration.IsScopeFatal(applyError) {
				return migrationRecords, applyError
			}
			entityRecord.Outcome = migration.OutcomeFailed
			entityRecord.Detail = applyError.Error()
		}
		migrationRecords = append(migrationRecords, entityRecord)
	}
	return migrationRecords, nil
}

func (service *Service) applyRow(executionContext context.Context, targetResolver TargetResolver, artifactRow ArtifactRow) (migration.Record, error) {
	entityRecord := migration.Record{
		Class:      migration.ClassVariables,
		Scope:      artifactRow.EntityScope,
		Repository: artifactRow.Repository,
		Name:       artifactRow.Name,
	}

	switch artifactRow.EntityScope {
	case migration.EntityScopeOrganization:
		return service.applyOrganizationRow(executionContext, targetResolver, entityRecord, artifactRow)
	case migration.EntityScopeRepository:
		return service.applyRepositoryRow(executionContext, targetResolver, entityRecord, artifactRow)
	default:
		entityRecord.Outcome = migration.OutcomeFailed
		entityRecord.Detail = fmt.Sprintf(unknownScopeTemplateConstant, artifactRow.EntityScope)
		return entityRecord, nil
	}
}

func (service *Service) applyOrganizationRow(executionContext context.Context, targetResolver TargetResolver, entityRecord migration.Record, artifactRow ArtifactRow) (migration.Record, error) {
	visibilityValue := strings.ToLower(strings.TrimSpace(artifactRow.Visibility))
	if len(visibilityValue) == 0 {
		visibilityValue = visibilityAllConstant
	}

	detailParts := []string{}
	var selectedRepositoryIdentifiers []int64
	if visibilityValue == visibilitySelectedConstant {
		resolvedIdentifiers, missingNames, resolveError := targetResolver.ResolveSelectedRepositories(artifactRow.SelectedRepositories)
		if resolveError != nil {
			return entityRecord, resolveError
		}
		if len(missingNames) > 0 {
			detailParts = append(detailParts, fmt.Sprintf(missingSelectedDetailTemplateConstant, strings.Join(missingNames, missingNameSeparatorConstant)))
		}
		if len(resolvedIdentifiers) == 0 {
			visibilityValue = visibilityPrivateConstant
			detailParts = append(detailParts, visibilityDowngradedDetailConstant)
		} else {
			selectedRepositoryIdentifiers = resolvedIdentifiers
		}
	}

	if service.dryRun {
		entityRecord.Outcome = migration.OutcomePlanned
		entityRecord.Detail = strings.Join(detailParts, detailSeparatorConstant)
		return entityRecord, nil
	}

	variablePayload := githubapi.VariablePayload{
		Name:                  artifactRow.Name,
		Value:                 artifactRow.Value,
		Visibility:            visibilityValue,
		SelectedRepositoryIDs: selectedRepositoryIdentifiers,
	}

	creationError := service.target.CreateOrganizationVariable(executionContext, variablePayload)
	if creationError != nil {
		if !githubapi.IsConflict(creationError) {
			return entityRecord, creationError
		}
		if updateError := service.target.UpdateOrganizationVariable(executionContext, variablePayload); updateError != nil {
			return entityRecord, updateError
		}
		service.logger.Info(variableUpdatedMessageConstant, zap.String(logFieldVariableNameConstant, artifactRow.Name))
		detailParts = append([]string{updatedExistingValueDetailConstant}, detailParts...)
		entityRecord.Outcome = migration.OutcomeCreated
		entityRecord.Detail = strings.Join(detailParts, detailSeparatorConstant)
		return entityRecord, nil
	}

	service.logger.Info(variableCreatedMessageConstant, zap.String(logFieldVariableNameConstant, artifactRow.Name))
	entityRecord.Outcome = migration.OutcomeCreated
	entityRecord.Detail = strings.Join(detailParts, detailSeparatorConstant)
	return entityRecord, nil
}

func (service *Service) applyRepositoryRow(executionContext context.Context, targetResolver TargetResolver, entityRecord migration.Record, artifactRow ArtifactRow) (migration.Record, error) {
	repositoryPlacement, placementError := targetResolver.ResolveRepository(artifactRow.Repository)
	if placementError != nil {
		return entityRecord, placementError
	}
	entityRecord.Repository = repositoryPlacement.TargetName
	if !repositoryPlacement.Exists {
		entityRecord.Outcome = migration.OutcomeSkippedNoTargetRepo
		entityRecord.Detail = targetRepositoryMissingDetailConstant
		return entityRecord, nil
	}

	if service.dryRun {
		entityRecord.Outcome = migration.OutcomePlanned
		return entityRecord, nil
	}

	variablePayload := githubapi.VariablePayload{
		Name:  artifactRow.Name,
		Value: artifactRow.Value,
	}

	creationError := service.target.CreateRepositoryVariable(executionContext, repositoryPlacement.TargetName, variablePayload)
	if creationError != nil {
		if !githubapi.IsConflict(creationError) {
			return entityRecord, creationError
		}
		if updateError := service.target.UpdateRepositoryVariable(executionContext, repositoryPlacement.TargetName, variablePayload); updateError != nil {
			return entityRecord, updateError
		}
		service.logger.Info(
			variableUpdatedMessageConstant,
			zap.String(logFieldRepositoryConstant, repositoryPlacement.TargetName),
			zap.String(logFieldVariableNameConstant, artifactRow.Name),
		)
		entityRecord.Outcome = migration.OutcomeCreated
		entityRecord.Detail = updatedExistingValueDetailConstant
		return entityRecord, nil
	}

	service.logger.Info(
		variableCreatedMessageConstant,
		zap.String(logFieldRepositoryConstant, repositoryPlacement.TargetName),
		zap.String(logFieldVariableNameConstant, artifactRow.Name),
	)
	entityRecord.Outcome = migration.OutcomeCreated
	return entityRecord, nil
}
