package migration

// ClassName identifies one migratable metadata class.
type ClassName string

// Metadata class enumerations.
const (
	ClassSecrets     ClassName = "secrets"
	ClassVariables   ClassName = "variables"
	ClassRulesets    ClassName = "rulesets"
	ClassWebhooks    ClassName = "webhooks"
	ClassMemberships ClassName = "memberships"
)

// Outcome is the terminal disposition of one migrated entity.
type Outcome string

// Outcome enumerations. Planned marks entities a dry run would have written.
const (
	OutcomeCreated              Outcome = "created"
	OutcomeSkippedAlreadyExists Outcome = "skipped-already-exists"
	OutcomeSkippedNoTargetRepo  Outcome = "skipped-no-target-repo"
	OutcomeFailed               Outcome = "failed"
	OutcomePlanned              Outcome = "planned"
)

// Entity scope labels used in records and export tables.
const (
	EntityScopeOrganization = "organization"
	EntityScopeRepository   = "repository"
)

// ReportHeaderColumns is the column order of the migration report table.
var ReportHeaderColumns = []string{"class", "scope", "repository", "name", "outcome", "detail"}

// Record is one immutable per-entity migration result.
type Record struct {
	Class      ClassName
	Scope      string
	Repository string
	Name       string
	Outcome    Outcome
	Detail     string
}

// CSVRecord renders the record in report column order.
func (record Record) CSVRecord() []string {
	return []string{
		string(record.Class),
		record.Scope,
		record.Repository,
		record.Name,
		string(record.Outcome),
		record.Detail,
	}
}

// Summary aggregates record outcomes for one run.
type Summary struct {
	Created        int
	AlreadyExists  int
	MissingTargets int
	Failed         int
	Planned        int
}

// Total reports how many entities the summary covers.
func (summary Summary) Total() int {
	return summary.Created + summary.AlreadyExists + summary.MissingTargets + summary.Failed + summary.Planned
}

// Add merges another summary into this one.
func (summary Summary) Add(other Summary) Summary {
	summary.Created += other.Created
	summary.AlreadyExists += other.AlreadyExists
	summary.MissingTargets += other.MissingTargets
	summary.Failed += other.Failed
	summary.Planned += other.Planned
	return summary
}

// Summarize tallies outcomes across records.
func Summarize(records []Record) Summary {
	var summary Summary
	for _, migrationRecord := range records {
		switch migrationRecord.Outcome {
		case OutcomeCreated:
			summary.Created++
		case OutcomeSkippedAlreadyExists:
			summary.AlreadyExists++
		case OutcomeSkippedNoTargetRepo:
			summary.MissingTargets++
		case OutcomeFailed:
			summary.Failed++
		case OutcomePlanned:
			summary.Planned++
		}
	}
	return summary
}
