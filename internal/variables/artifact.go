package variables

import (
	"io"
	"strings"

	"github.com/temirov/orgmigrate/internal/report"
)

const (
	artifactScopeColumnConstant                = "scope"
	artifactRepositoryColumnConstant           = "repository"
	artifactNameColumnConstant                 = "name"
	artifactValueColumnConstant                = "value"
	artifactVisibilityColumnConstant           = "visibility"
	artifactSelectedRepositoriesColumnConstant = "selected_repositories"
	artifactCreatedAtColumnConstant            = "created_at"
	artifactUpdatedAtColumnConstant            = "updated_at"
	selectedRepositoriesSeparatorConstant      = ","
)

// ArtifactHeaderColumns is the column order of the variables CSV artifact.
var ArtifactHeaderColumns = []string{
	artifactScopeColumnConstant,
	artifactRepositoryColumnConstant,
	artifactNameColumnConstant,
	artifactValueColumnConstant,
	artifactVisibilityColumnConstant,
	artifactSelectedRepositoriesColumnConstant,
	artifactCreatedAtColumnConstant,
	artifactUpdatedAtColumnConstant,
}

// ArtifactRow is one variable in the CSV artifact. Unlike secrets, the value
// column carries the real variable value.
type ArtifactRow struct {
	EntityScope          string
	Repository           string
	Name                 string
	Value                string
	Visibility           string
	SelectedRepositories []string
	CreatedAt            string
	UpdatedAt            string
}

// CSVRecord renders the row in artifact column order.
func (row ArtifactRow) CSVRecord() []string {
	return []string{
		row.EntityScope,
		row.Repository,
		row.Name,
		row.Value,
		row.Visibility,
		strings.Join(row.SelectedRepositories, selectedRepositoriesSeparatorConstant),
		row.CreatedAt,
		row.UpdatedAt,
	}
}

// WriteArtifact writes rows as the variables CSV artifact.
func WriteArtifact(outputWriter io.Writer, rows []ArtifactRow) error {
	tableRows := make([]report.Row, 0, len(rows))
	for _, artifactRow := range rows {
		tableRows = append(tableRows, artifactRow)
	}
	return report.WriteCSV(outputWriter, ArtifactHeaderColumns, tableRows)
}

// ReadArtifact parses the variables CSV artifact.
func ReadArtifact(inputReader io.Reader) ([]ArtifactRow, error) {
	parsedRows, readError := report.ReadCSVRows(inputReader)
	if readError != nil {
		return nil, readError
	}

	artifactRows := make([]ArtifactRow, 0, len(parsedRows))
	for _, parsedRow := range parsedRows {
		artifactRows = append(artifactRows, ArtifactRow{
			EntityScope:          parsedRow[artifactScopeColumnConstant],
			Repository:           parsedRow[artifactRepositoryColumnConstant],
			Name:                 parsedRow[artifactNameColumnConstant],
			Value:                parsedRow[artifactValueColumnConstant],
			Visibility:           parsedRow[artifactVisibilityColumnConstant],
			SelectedRepositories: splitSelectedRepositories(parsedRow[artifactSelectedRepositoriesColumnConstant]),
			CreatedAt:            parsedRow[artifactCreatedAtColumnConstant],
			UpdatedAt:            parsedRow[artifactUpdatedAtColumnConstant],
		})
	}
	return artifactRows, nil
}

func splitSelectedRepositories(joinedNames string) []string {
	if len(strings.TrimSpace(joinedNames)) == 0 {
		return nil
	}

	nameSegments := strings.Split(joinedNames, selectedRepositoriesSeparatorConstant)
	repositoryNames := make([]string, 0, len(nameSegments))
	for _, nameSegment := range nameSegments {
		trimmedName := strings.TrimSpace(nameSegment)
		if len(trimmedName) == 0 {
			continue
		}
		repositoryNames = append(repositoryNames, trimmedName)
	}
	return repositoryNames
}
