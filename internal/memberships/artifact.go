package memberships

import (
	"io"

	"github.com/temirov/orgmigrate/internal/report"
)

const (
	artifactUsernameColumnConstant = "username"
	artifactRoleColumnConstant     = "role"
)

// ArtifactHeaderColumns is the column order of the memberships CSV artifact.
var ArtifactHeaderColumns = []string{
	artifactUsernameColumnConstant,
	artifactRoleColumnConstant,
}

// ArtifactRow is one organization member in the CSV artifact.
type ArtifactRow struct {
	Username string
	Role     string
}

// CSVRecord renders the row in artifact column order.
func (row ArtifactRow) CSVRecord() []string {
	return []string{row.Username, row.Role}
}

// WriteArtifact writes rows as the memberships CSV artifact.
func WriteArtifact(outputWriter io.Writer, rows []ArtifactRow) error {
	tableRows := make([]report.Row, 0, len(rows))
	for _, artifactRow := range rows {
		tableRows = append(tableRows, artifactRow)
	}
	return report.WriteCSV(outputWriter, ArtifactHeaderColumns, tableRows)
}

// ReadArtifact parses the memberships CSV artifact.
func ReadArtifact(inputReader io.Reader) ([]ArtifactRow, error) {
	parsedRows, readError := report.ReadCSVRows(inputReader)
	if readError != nil {
		return nil, readError
	}

	artifactRows := make([]ArtifactRow, 0, len(parsedRows))
	for _, parsedRow := range parsedRows {
		artifactRows = append(artifactRows, ArtifactRow{
			Username: parsedRow[artifactUsernameColumnConstant],
			Role:     parsedRow[artifactRoleColumnConstant],
		})
	}
	return artifactRows, nil
}
