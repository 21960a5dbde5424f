package migration_test

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/temirov/orgmigrate/internal/migration"
)

func TestParseMode(testInstance *testing.T) {
	testCases := []struct {
		name          string
		candidateMode string
		expectedMode  migration.Mode
		expectError   bool
	}{
		{name: "export", candidateMode: "export", expectedMode: migration.ModeExport},
		{name: "import_mixed_case", candidateMode: "Import", expectedMode: migration.ModeImport},
		{name: "migrate_padded", candidateMode: "  migrate  ", expectedMode: migration.ModeMigrate},
		{name: "unsupported_value", candidateMode: "sync", expectError: true},
		{name: "blank_value", candidateMode: "   ", expectError: true},
	}

	for testCaseIndex, testCase := range testCases {
		testInstance.Run(fmt.Sprintf("%d_%s", testCaseIndex, testCase.name), func(subtestInstance *testing.T) {
			parsedMode, parseError := migration.ParseMode(testCase.candidateMode)
			if testCase.expectError {
				require.Error(subtestInstance, parseError)
				return
			}
			require.NoError(subtestInstance, parseError)
			require.Equal(subtestInstance, testCase.expectedMode, parsedMode)
		})
	}
}

func TestModeScopeUsage(testInstance *testing.T) {
	testCases := []struct {
		name                 string
		mode                 migration.Mode
		expectedReadsSource  bool
		expectedWritesTarget bool
	}{
		{name: "export_reads_source_only", mode: migration.ModeExport, expectedReadsSource: true, expectedWritesTarget: false},
		{name: "import_writes_target_only", mode: migration.ModeImport, expectedReadsSource: false, expectedWritesTarget: true},
		{name: "migrate_uses_both_scopes", mode: migration.ModeMigrate, expectedReadsSource: true, expectedWritesTarget: true},
	}

	for testCaseIndex, testCase := range testCases {
		testInstance.Run(fmt.Sprintf("%d_%s", testCaseIndex, testCase.name), func(subtestInstance *testing.T) {
			require.Equal(subtestInstance, testCase.expectedReadsSource, testCase.mode.ReadsSource())
			require.Equal(subtestInstance, testCase.expectedWritesTarget, testCase.mode.WritesTarget())
		})
	}
}

func TestModeChoices(testInstance *testing.T) {
	require.Equal(testInstance, []string{"export", "import", "migrate"}, migration.ModeChoices())
}
