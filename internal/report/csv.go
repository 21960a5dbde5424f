package report

import (
	"encoding/csv"
	"errors"
	"io"
)

const csvHeaderMissingMessageConstant = "table is missing a header row"

var errCSVHeaderMissing = errors.New(csvHeaderMissingMessageConstant)

// Row is one CSV table row.
type Row interface {
	CSVRecord() []string
}

// WriteCSV writes a header line followed by every row.
func WriteCSV(outputWriter io.Writer, headerColumns []string, rows []Row) error {
	csvWriter := csv.NewWriter(outputWriter)
	if headerError := csvWriter.Write(headerColumns); headerError != nil {
		return headerError
	}
	for _, tableRow := range rows {
		if rowError := csvWriter.Write(tableRow.CSVRecord()); rowError != nil {
			return rowError
		}
	}
	csvWriter.Flush()
	return csvWriter.Error()
}

// ReadCSVRows reads a CSV table into header-addressed rows. Short records
// leave their trailing columns empty instead of failing.
func ReadCSVRows(inputReader io.Reader) ([]map[string]string, error) {
	csvReader := csv.NewReader(inputReader)
	csvReader.FieldsPerRecord = -1

	headerColumns, headerError := csvReader.Read()
	if headerError != nil {
		if errors.Is(headerError, io.EOF) {
			return nil, errCSVHeaderMissing
		}
		return nil, headerError
	}

	tableRows := make([]map[string]string, 0)
	for {
		recordColumns, recordError := csvReader.Read()
		if recordError != nil {
			if errors.Is(recordError, io.EOF) {
				return tableRows, nil
			}
			return nil, recordError
		}

		tableRow := make(map[string]string, len(headerColumns))
		for columnIndex, columnName := range headerColumns {
			if columnIndex < len(recordColumns) {
				tableRow[columnName] = recordColumns[columnIndex]
				continue
			}
			tableRow[columnName] = ""
		}
		tableRows = append(tableRows, tableRow)
	}
}
