package secrets

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
	// RedactedValueSentinel replaces secret values in exported artifacts.
	RedactedValueSentinel = "[ENCRYPTED_SECRET_VALUE]"

	visibilityAllConstant      = "all"
	visibilityPrivateConstant  = "private"
	visibilitySelectedConstant = "selected"

	organizationKeyScopeConstant       = "organization"
	repositoryKeyScopeTemplateConstant = "repository/%s"

	placeholderDetailConstant             = "Created [PLACEHOLDER]"
	visibilityDowngradedDetailConstant    = "visibility downgraded to private"
	targetRepositoryMissingDetailConstant = "target repository not found"
	missingSelectedDetailTemplateConstant = "missing selected repositories: %s"
	detailSeparatorConstant               = "; "
	missingNameSeparatorConstant          = ", "

	sourceInventoryMissingMessageConstant   = "secrets service requires a source inventory"
	targetVaultMissingMessageConstant       = "secrets service requires a target vault"
	repositoryCatalogMissingMessageConstant = "secrets service requires a repository catalog"
	resolverProviderMissingMessageConstant  = "secrets service requires a resolver provider"
	cipherMissingMessageConstant            = "secrets service requires a cipher"
	inputPathMissingMessageConstant         = "secrets import requires an input path"
	outputPathMissingMessageConstant        = "secrets export requires an output path"

	listOrganizationSecretsTemplateConstant  = "list organization secrets: %w"
	listSelectedRepositoriesTemplateConstant = "list selected repositories for secret %s: %w"
	listRepositorySecretsTemplateConstant    = "list secrets for repository %s: %w"
	readArtifactTemplateConstant             = "read secrets artifact %s: %w"
	writeArtifactTemplateConstant            = "write secrets artifact %s: %w"
	unknownScopeTemplateConstant             = "unknown entity scope %q"

	repositoryListingSkippedMessageConstant = "repository vanished during listing"
	artifactWrittenMessageConstant          = "secrets artifact written"
	secretCreatedMessageConstant            = "secret created"
	logFieldRepositoryConstant              = "repository"
	logFieldSecretNameConstant              = "secret_name"
	logFieldPathConstant                    = "path"
	logFieldRowsConstant                    = "rows"
)

var (
	errSourceInventoryMissing   = errors.New(sourceInventoryMissingMessageConstant)
	errTargetVaultMissing       = errors.New(targetVaultMissingMessageConstant)
	errRepositoryCatalogMissing = errors.New(repositoryCatalogMissingMessageConstant)
	errResolverProviderMissing  = errors.New(resolverProviderMissingMessageConstant)
	errCipherMissing            = errors.New(cipherMissingMessageConstant)
	errInputPathMissing         = errors.New(inputPathMissingMessageConstant)
	errOutputPathMissing        = errors.New(outputPathMissingMessageConstant)
)

// SourceInventory reads secret metadata from the source scope.
type SourceInventory interface {
	OrganizationSecrets(executionContext context.Context) ([]githubapi.SecretDescriptor, error)
	SelectedRepositoriesForSecret(executionContext context.Context, secretName string) ([]githubapi.RepositoryDescriptor, error)
	RepositorySecrets(executionContext context.Context, repositoryName string) ([]githubapi.SecretDescriptor, error)
}

// TargetVault probes and writes secrets in the target scope.
type TargetVault interface {
	OrganizationSecretExists(executionContext context.Context, secretName string) (bool, error)
	OrganizationPublicKey(executionContext context.Context) (githubapi.EncryptionKey, error)
	CreateOrganizationSecret(executionContext context.Context, payload githubapi.EncryptedSecretPayload) error
	RepositorySecretExists(executionContext context.Context, repositoryName string, secretName string) (bool, error)
	RepositoryPublicKey(executionContext context.Context, repositoryName string) (githubapi.EncryptionKey, error)
	CreateRepositorySecret(executionContext context.Context, repositoryName string, payload githubapi.EncryptedSecretPayload) error
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

// ServiceDependencies wires a secrets service to its scopes and artifact
// paths. Only the dependencies the mode touches are required.
type ServiceDependencies struct {
	Mode         migration.Mode
	DryRun       bool
	InputPath    string
	OutputPath   string
	Placeholder  string
	Source       SourceInventory
	Target       TargetVault
	Repositories RepositoryCatalog
	Resolver     ResolverProvider
	Cipher       *Cipher
	Logger       *zap.Logger
}

// Service migrates Actions secrets for one run mode.
type Service struct {
	mode         migration.Mode
	dryRun       bool
	inputPath    string
	outputPath   string
	placeholder  string
	source       SourceInventory
	target       TargetVault
	repositories RepositoryCatalog
	resolver     ResolverProvider
	cipher       *Cipher
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
			return nil, errTargetVaultMissing
		}
		if dependencies.Resolver == nil {
			return nil, errResolverProviderMissing
		}
		if dependencies.Cipher == nil {
			return nil, errCipherMissing
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
	placeholderValue := strings.TrimSpace(dependencies.Placeholder)
	if len(placeholderValue) == 0 {
		placeholderValue = DefaultPlaceholderValue
	}

	return &Service{
		mode:         dependencies.Mode,
		dryRun:       dependencies.DryRun,
		inputPath:    strings.TrimSpace(dependencies.InputPath),
		outputPath:   strings.TrimSpace(dependencies.OutputPath),
		placeholder:  placeholderValue,
		source:       dependencies.Source,
		target:       dependencies.Target,
		repositories: dependencies.Repositories,
		resolver:     dependencies.Resolver,
		cipher:       dependencies.Cipher,
		logger:       serviceLogger,
	}, nil
}

// EnvironmentServiceOptions carries the per-run settings threaded from flags
// and configuration into an environment-backed service.
type EnvironmentServiceOptions struct {
	DryRun      bool
	InputPath   string
	OutputPath  string
	Placeholder string
}

// NewEnvironmentService wires a secrets service to the sessions and shared
// lookups of one migration environment.
func NewEnvironmentService(environment *migration.Environment, options EnvironmentServiceOptions, logger *zap.Logger) (*Service, error) {
	dependencies := ServiceDependencies{
		Mode:        environment.Mode(),
		DryRun:      options.DryRun,
		InputPath:   options.InputPath,
		OutputPath:  options.OutputPath,
		Placeholder: options.Placeholder,
		Logger:      logger,
	}
	if sourceSession := environment.Source(); sourceSession != nil {
		dependencies.Source = sourceSession
		dependencies.Repositories = environment.SourceRepositories
	}
	if targetSession := environment.Target(); targetSession != nil {
		dependencies.Target = targetSession
		dependencies.Cipher = NewCipher()
		dependencies.Resolver = func(resolverContext context.Context) (TargetResolver, error) {
			return environment.Resolver(resolverContext)
		}
	}
	return NewService(dependencies)
}

// ClassName identifies the records this service emits.
func (service *Service) ClassName() migration.ClassName {
	return migration.ClassSecrets
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

// collectRows reads every organization and repository secret from the source
// scope. Values are never readable, so each row carries the sentinel.
func (service *Service) collectRows(executionContext context.Context) ([]ArtifactRow, error) {
	organizationSecrets, organizationListError := service.source.OrganizationSecrets(executionContext)
	if organizationListError != nil {
		return nil, fmt.Errorf(listOrganizationSecretsTemplateConstant, organizationListError)
	}

	collectedRows := make([]ArtifactRow, 0, len(organizationSecrets))
	for _, secretDescriptor := range organizationSecrets {
		artifactRow := ArtifactRow{
			EntityScope: migration.EntityScopeOrganization,
			Name:        secretDescriptor.Name,
			Value:       RedactedValueSentinel,
			Visibility:  secretDescriptor.Visibility,
			CreatedAt:   secretDescriptor.CreatedAt,
			UpdatedAt:   secretDescriptor.UpdatedAt,
		}
		if secretDescriptor.Visibility == visibilitySelectedConstant {
			selectedRepositories, selectedListError := service.source.SelectedRepositoriesForSecret(executionContext, secretDescriptor.Name)
			if selectedListError != nil {
				return nil, fmt.Errorf(listSelectedRepositoriesTemplateConstant, secretDescriptor.Name, selectedListError)
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
		repositorySecrets, secretListError := service.source.RepositorySecrets(executionContext, repositoryDescriptor.Name)
		if secretListError != nil {
			if errors.Is(secretListError, githubapi.ErrNotFound) {
				service.logger.Warn(repositoryListingSkippedMessageConstant, zap.String(logFieldRepositoryConstant, repositoryDescriptor.Name))
				continue
			}
			return nil, fmt.Errorf(listRepositorySecretsTemplateConstant, repositoryDescriptor.Name, secretListError)
		}
		for _, secretDescriptor := range repositorySecrets {
			collectedRows = append(collectedRows, ArtifactRow{
				EntityScope: migration.EntityScopeRepository,
				Repository:  repositoryDescriptor.Name,
				Name:        secretDescriptor.Name,
				Value:       RedactedValueSentinel,
				Visibility:  secretDescriptor.Visibility,
				CreatedAt:   secretDescriptor.CreatedAt,
				UpdatedAt:   secretDescriptor.UpdatedAt,
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

// applyRows writes artifact rows into the target scope. Scope-fatal failures
// abort with the records accumulated so far; anything else becomes a failed
// record and the batch continues.
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
		Class:      migration.ClassSecrets,
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
	secretExists, probeError := service.target.OrganizationSecretExists(executionContext, artifactRow.Name)
	if probeError != nil {
		return entityRecord, probeError
	}
	if secretExists {
		entityRecord.Outcome = migration.OutcomeSkippedAlreadyExists
		return entityRecord, nil
	}

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

	plaintextValue, usedPlaceholder := service.resolvePlaintext(artifactRow.Value)
	if usedPlaceholder {
		detailParts = append([]string{placeholderDetailConstant}, detailParts...)
	}

	if service.dryRun {
		entityRecord.Outcome = migration.OutcomePlanned
		entityRecord.Detail = strings.Join(detailParts, detailSeparatorConstant)
		return entityRecord, nil
	}

	sealedValue, sealError := service.cipher.Seal(executionContext, organizationKeyScopeConstant, service.target.OrganizationPublicKey, plaintextValue)
	if sealError != nil {
		return entityRecord, sealError
	}

	creationError := service.target.CreateOrganizationSecret(executionContext, githubapi.EncryptedSecretPayload{
		Name:                  artifactRow.Name,
		KeyIdentifier:         sealedValue.KeyIdentifier,
		EncryptedValue:        sealedValue.EncryptedValue,
		Visibility:            visibilityValue,
		SelectedRepositoryIDs: selectedRepositoryIdentifiers,
	})
	if creationError != nil {
		return entityRecord, creationError
	}

	service.logger.Info(secretCreatedMessageConstant, zap.String(logFieldSecretNameConstant, artifactRow.Name))
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

	secretExists, probeError := service.target.RepositorySecretExists(executionContext, repositoryPlacement.TargetName, artifactRow.Name)
	if probeError != nil {
		return entityRecord, probeError
	}
	if secretExists {
		entityRecord.Outcome = migration.OutcomeSkippedAlreadyExists
		return entityRecord, nil
	}

	plaintextValue, usedPlaceholder := service.resolvePlaintext(artifactRow.Value)
	detailParts := []string{}
	if usedPlaceholder {
		detailParts = append(detailParts, placeholderDetailConstant)
	}

	if service.dryRun {
		entityRecord.Outcome = migration.OutcomePlanned
		entityRecord.Detail = strings.Join(detailParts, detailSeparatorConstant)
		return entityRecord, nil
	}

	repositoryKeyScope := fmt.Sprintf(repositoryKeyScopeTemplateConstant, repositoryPlacement.TargetName)
	sealedValue, sealError := service.cipher.Seal(executionContext, repositoryKeyScope, func(keyContext context.Context) (githubapi.EncryptionKey, error) {
		return service.target.RepositoryPublicKey(keyContext, repositoryPlacement.TargetName)
	}, plaintextValue)
	if sealError != nil {
		return entityRecord, sealError
	}

	creationError := service.target.CreateRepositorySecret(executionContext, repositoryPlacement.TargetName, githubapi.EncryptedSecretPayload{
		Name:           artifactRow.Name,
		KeyIdentifier:  sealedValue.KeyIdentifier,
		EncryptedValue: sealedValue.EncryptedValue,
	})
	if creationError != nil {
		return entityRecord, creationError
	}

	service.logger.Info(
		secretCreatedMessageConstant,
		zap.String(logFieldRepositoryConstant, repositoryPlacement.TargetName),
		zap.String(logFieldSecretNameConstant, artifactRow.Name),
	)
	entityRecord.Outcome = migration.OutcomeCreated
	entityRecord.Detail = strings.Join(detailParts, detailSeparatorConstant)
	return entityRecord, nil
}

// resolvePlaintext selects the value to seal. Exported artifacts never carry
// real values, so the sentinel and blank values fall back to the placeholder.
func (service *Service) resolvePlaintext(artifactValue string) (string, bool) {
	if artifactValue == RedactedValueSentinel || len(strings.TrimSpace(artifactValue)) == 0 {
		return service.placeholder, true
	}
	return artifactValue, false
}
