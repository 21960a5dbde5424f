package memberships

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/temirov/orgmigrate/internal/githubapi"
	"github.com/temirov/orgmigrate/internal/migration"
	"github.com/temirov/orgmigrate/internal/report"
)

const (
	roleAdminConstant  = "admin"
	roleMemberConstant = "member"

	roleDetailTemplateConstant = "role %s"

	sourceRosterMissingMessageConstant = "memberships service requires a source roster"
	targetRosterMissingMessageConstant = "memberships service requires a target roster"
	inputPathMissingMessageConstant    = "memberships import requires an input path"
	outputPathMissingMessageConstant   = "memberships export requires an output path"
	missingUsernameMessageConstant     = "missing username"

	listSourceMembersTemplateConstant = "list source organization members: %w"
	listTargetMembersTemplateConstant = "list target organization members: %w"
	readArtifactTemplateConstant      = "read memberships artifact %s: %w"
	writeArtifactTemplateConstant     = "write memberships artifact %s: %w"
	unknownRoleTemplateConstant       = "unknown membership role %q"

	artifactWrittenMessageConstant    = "memberships artifact written"
	membershipUpsertedMessageConstant = "membership upserted"
	logFieldLoginConstant             = "login"
	logFieldRoleConstant              = "role"
	logFieldPathConstant              = "path"
	logFieldRowsConstant              = "rows"
)

// exportRoleFilters is the listing order of the export: admins first, then
// regular members. The two rosters are disjoint on the platform side.
var exportRoleFilters = []string{roleAdminConstant, roleMemberConstant}

var (
	errSourceRosterMissing = errors.New(sourceRosterMissingMessageConstant)
	errTargetRosterMissing = errors.New(targetRosterMissingMessageConstant)
	errInputPathMissing    = errors.New(inputPathMissingMessageConstant)
	errOutputPathMissing   = errors.New(outputPathMissingMessageConstant)
	errMissingUsername     = errors.New(missingUsernameMessageConstant)
)

// SourceRoster lists organization members in the source scope.
type SourceRoster interface {
	OrganizationMembers(executionContext context.Context, roleFilter string) ([]githubapi.MemberDescriptor, error)
}

// TargetRoster reads and writes memberships in the target scope.
type TargetRoster interface {
	OrganizationMembers(executionContext context.Context, roleFilter string) ([]githubapi.MemberDescriptor, error)
	UpsertOrganizationMembership(executionContext context.Context, memberLogin string, memberRole string) error
}

// ServiceDependencies wires a memberships service to its scopes and artifact
// paths. Only the dependencies the mode touches are required.
type ServiceDependencies struct {
	Mode       migration.Mode
	DryRun     bool
	InputPath  string
	OutputPath string
	Source     SourceRoster
	Target     TargetRoster
	Logger     *zap.Logger
}

// Service migrates organization memberships for one run mode.
type Service struct {
	mode       migration.Mode
	dryRun     bool
	inputPath  string
	outputPath string
	source     SourceRoster
	target     TargetRoster
	logger     *zap.Logger
}

// NewService validates the dependencies the configured mode needs.
func NewService(dependencies ServiceDependencies) (*Service, error) {
	if _, modeError := migration.ParseMode(string(dependencies.Mode)); modeError != nil {
		return nil, modeError
	}
	if dependencies.Mode.ReadsSource() && dependencies.Source == nil {
		return nil, errSourceRosterMissing
	}
	if dependencies.Mode.WritesTarget() && dependencies.Target == nil {
		return nil, errTargetRosterMissing
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
		mode:       dependencies.Mode,
		dryRun:     dependencies.DryRun,
		inputPath:  strings.TrimSpace(dependencies.InputPath),
		outputPath: strings.TrimSpace(dependencies.OutputPath),
		source:     dependencies.Source,
		target:     dependencies.Target,
		logger:     serviceLogger,
	}, nil
}

// EnvironmentServiceOptions carries the per-run settings of an
// environment-backed memberships service.
type EnvironmentServiceOptions struct {
	DryRun     bool
	InputPath  string
	OutputPath string
}

// NewEnvironmentService wires a memberships service to the sessions of one
// migration environment.
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
	}
	if targetSession := environment.Target(); targetSession != nil {
		dependencies.Target = targetSession
	}
	return NewService(dependencies)
}

// ClassName identifies the records this service emits.
func (service *Service) ClassName() migration.ClassName {
	return migration.ClassMemberships
}

// Run executes the configured mode. Export produces only the artifact;
// import and migrate return one record per roster row.
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
	collectedRows := make([]ArtifactRow, 0)
	for _, roleFilter := range exportRoleFilters {
		memberDescriptors, listError := service.source.OrganizationMembers(executionContext, roleFilter)
		if listError != nil {
			return nil, fmt.Errorf(listSourceMembersTemplateConstant, listError)
		}
		for _, memberDescriptor := range memberDescriptors {
			collectedRows = append(collectedRows, ArtifactRow{
				Username: memberDescriptor.Login,
				Role:     memberDescriptor.Role,
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
	existingMembers, listError := service.target.OrganizationMembers(executionContext, "")
	if listError != nil {
		return nil, fmt.Errorf(listTargetMembersTemplateConstant, listError)
	}
	existingLogins := make(map[string]bool, len(existingMembers))
	for _, memberDescriptor := range existingMembers {
		existingLogins[strings.ToLower(memberDescriptor.Login)] = true
	}

	migrationRecords := make([]migration.Record, 0, len(artifactRows))
	for _, artifactRow := range artifactRows {
		entityRecord, applyError := service.applyRow(executionContext, existingLogins, artifactRow)
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

func (service *Service) applyRow(executionContext context.Context, existingLogins map[string]bool, artifactRow ArtifactRow) (migration.Record, error) {
	memberLogin := strings.TrimSpace(artifactRow.Username)
	entityRecord := migration.Record{
		Class: migration.ClassMemberships,
		Scope: migration.EntityScopeOrganization,
		Name:  memberLogin,
	}

	if len(memberLogin) == 0 {
		return entityRecord, errMissingUsername
	}

	memberRole, roleError := normalizeRole(artifactRow.Role)
	if roleError != nil {
		return entityRecord, roleError
	}

	if existingLogins[strings.ToLower(memberLogin)] {
		entityRecord.Outcome = migration.OutcomeSkippedAlreadyExists
		return entityRecord, nil
	}

	if service.dryRun {
		entityRecord.Outcome = migration.OutcomePlanned
		entityRecord.Detail = fmt.Sprintf(roleDetailTemplateConstant, memberRole)
		return entityRecord, nil
	}

	if upsertError := service.target.UpsertOrganizationMembership(executionContext, memberLogin, memberRole); upsertError != nil {
		return entityRecord, upsertError
	}

	service.logger.Info(
		membershipUpsertedMessageConstant,
		zap.String(logFieldLoginConstant, memberLogin),
		zap.String(logFieldRoleConstant, memberRole),
	)
	entityRecord.Outcome = migration.OutcomeCreated
	entityRecord.Detail = fmt.Sprintf(roleDetailTemplateConstant, memberRole)
	return entityRecord, nil
}

// normalizeRole lowercases the recorded role and fills blanks with the
// regular member role. Anything outside the two platform roles is rejected.
func normalizeRole(candidateRole string) (string, error) {
	normalizedRole := strings.ToLower(strings.TrimSpace(candidateRole))
	switch normalizedRole {
	case "":
		return roleMemberConstant, nil
	case roleMemberConstant, roleAdminConstant:
		return normalizedRole, nil
	default:
		return "", fmt.Errorf(unknownRoleTemplateConstant, candidateRole)
	}
}
