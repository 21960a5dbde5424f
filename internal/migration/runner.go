package migration

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/temirov/orgmigrate/internal/githubapi"
	"github.com/temirov/orgmigrate/internal/report"
)

const (
	runnerRequiresRunnersMessageConstant = "at least one class runner must be configured"
	classRunFailedTemplateConstant       = "%s class run failed: %w"
	reportWriteFailedMessageConstant     = "migration report could not be written"
	classCompletedMessageConstant        = "class completed"
	runCompletedMessageConstant          = "run completed"
	logFieldClassConstant                = "class"
	logFieldCreatedConstant              = "created"
	logFieldAlreadyExistsConstant        = "already_exists"
	logFieldMissingTargetsConstant       = "missing_targets"
	logFieldFailedConstant               = "failed"
	logFieldPlannedConstant              = "planned"
	logFieldTotalConstant                = "total"
)

var errRunnerRequiresRunners = errors.New(runnerRequiresRunnersMessageConstant)

// ClassRunner executes one metadata class end to end and reports every
// entity it touched, including the ones touched before a failure.
type ClassRunner interface {
	ClassName() ClassName
	Run(executionContext context.Context) ([]Record, error)
}

// RunnerDependencies configures a sequential multi-class run.
type RunnerDependencies struct {
	Runners    []ClassRunner
	Preflight  func(executionContext context.Context) error
	ReportPath string
	Logger     *zap.Logger
}

// Runner drives class runners in order, accumulates their records, and
// flushes the report even when a run stops early.
type Runner struct {
	classRunners []ClassRunner
	preflight    func(executionContext context.Context) error
	reportPath   string
	logger       *zap.Logger
}

// NewRunner validates dependencies and builds a Runner.
func NewRunner(dependencies RunnerDependencies) (*Runner, error) {
	if len(dependencies.Runners) == 0 {
		return nil, errRunnerRequiresRunners
	}
	runnerLogger := dependencies.Logger
	if runnerLogger == nil {
		runnerLogger = zap.NewNop()
	}
	return &Runner{
		classRunners: dependencies.Runners,
		preflight:    dependencies.Preflight,
		reportPath:   dependencies.ReportPath,
		logger:       runnerLogger,
	}, nil
}

// Execute runs every class sequentially. Scope-level failures stop the run;
// class-local failures are reported and the remaining classes still execute.
// Accumulated records are flushed to the report in either case.
func (runner *Runner) Execute(executionContext context.Context) (Summary, error) {
	if runner.preflight != nil {
		if preflightError := runner.preflight(executionContext); preflightError != nil {
			return Summary{}, preflightError
		}
	}

	accumulatedRecords := make([]Record, 0)
	classErrors := make([]error, 0)

	for _, classRunner := range runner.classRunners {
		classRecords, runError := classRunner.Run(executionContext)
		accumulatedRecords = append(accumulatedRecords, classRecords...)

		if runError != nil {
			wrappedError := fmt.Errorf(classRunFailedTemplateConstant, classRunner.ClassName(), runError)
			classErrors = append(classErrors, wrappedError)
			if isFatalRunError(runError) {
				break
			}
			continue
		}

		classSummary := Summarize(classRecords)
		runner.logger.Info(
			classCompletedMessageConstant,
			zap.String(logFieldClassConstant, string(classRunner.ClassName())),
			zap.Int(logFieldCreatedConstant, classSummary.Created),
			zap.Int(logFieldAlreadyExistsConstant, classSummary.AlreadyExists),
			zap.Int(logFieldMissingTargetsConstant, classSummary.MissingTargets),
			zap.Int(logFieldFailedConstant, classSummary.Failed),
			zap.Int(logFieldPlannedConstant, classSummary.Planned),
		)
	}

	if len(runner.reportPath) > 0 {
		if reportError := WriteReport(runner.reportPath, accumulatedRecords); reportError != nil {
			runner.logger.Error(reportWriteFailedMessageConstant, zap.Error(reportError))
			classErrors = append(classErrors, reportError)
		}
	}

	runSummary := Summarize(accumulatedRecords)
	runner.logger.Info(
		runCompletedMessageConstant,
		zap.Int(logFieldCreatedConstant, runSummary.Created),
		zap.Int(logFieldAlreadyExistsConstant, runSummary.AlreadyExists),
		zap.Int(logFieldMissingTargetsConstant, runSummary.MissingTargets),
		zap.Int(logFieldFailedConstant, runSummary.Failed),
		zap.Int(logFieldPlannedConstant, runSummary.Planned),
		zap.Int(logFieldTotalConstant, runSummary.Total()),
	)

	return runSummary, errors.Join(classErrors...)
}

// WriteReport flushes migration records to the report destination.
func WriteReport(reportPath string, records []Record) error {
	reportWriter, openError := report.OpenOutput(reportPath)
	if openError != nil {
		return openError
	}
	defer func() {
		_ = reportWriter.Close()
	}()

	tableRows := make([]report.Row, 0, len(records))
	for _, migrationRecord := range records {
		tableRows = append(tableRows, migrationRecord)
	}
	return report.WriteCSV(reportWriter, ReportHeaderColumns, tableRows)
}

// isFatalRunError reports whether a class failure condemns the whole run:
// scope failures and failed preflight both do.
func isFatalRunError(candidateError error) bool {
	if IsScopeFatal(candidateError) {
		return true
	}
	var preflightError *PreflightError
	return errors.As(candidateError, &preflightError)
}

// IsScopeFatal reports whether an entity-level failure means the scope itself
// is unusable: cancellation, authentication failures, and exhausted quota
// waits would only repeat on every remaining entity.
func IsScopeFatal(candidateError error) bool {
	if candidateError == nil {
		return false
	}
	if errors.Is(candidateError, context.Canceled) || errors.Is(candidateError, context.DeadlineExceeded) {
		return true
	}

	var authenticationError *githubapi.AuthenticationError
	if errors.As(candidateError, &authenticationError) {
		return true
	}
	var quotaWaitError *githubapi.QuotaWaitExhaustedError
	return errors.As(candidateError, &quotaWaitError)
}
