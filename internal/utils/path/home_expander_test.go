package pathutils_test

import (
	"errors"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	pathutils "github.com/temirov/orgmigrate/internal/utils/path"
)

func TestHomeExpanderExpand(testInstance *testing.T) {
	homeDirectory := filepath.Join("/home", "operator")

	testCases := []struct {
		name          string
		candidatePath string
		expectedPath  string
	}{
		{name: "bare_tilde", candidatePath: "~", expectedPath: homeDirectory},
		{name: "tilde_prefix", candidatePath: "~/artifacts/report.csv", expectedPath: filepath.Join(homeDirectory, "artifacts", "report.csv")},
		{name: "absolute_path_untouched", candidatePath: "/var/artifacts/report.csv", expectedPath: "/var/artifacts/report.csv"},
		{name: "relative_path_untouched", candidatePath: "artifacts/report.csv", expectedPath: "artifacts/report.csv"},
		{name: "embedded_tilde_untouched", candidatePath: "artifacts/~backup", expectedPath: "artifacts/~backup"},
		{name: "empty_path", candidatePath: "", expectedPath: ""},
	}

	homeExpander := pathutils.NewHomeExpanderWithProvider(func() (string, error) {
		return homeDirectory, nil
	})

	for testCaseIndex, testCase := range testCases {
		testInstance.Run(fmt.Sprintf("%d_%s", testCaseIndex, testCase.name), func(subtestInstance *testing.T) {
			require.Equal(subtestInstance, testCase.expectedPath, homeExpander.Expand(testCase.candidatePath))
		})
	}
}

func TestHomeExpanderKeepsPathWhenHomeUnavailable(testInstance *testing.T) {
	homeExpander := pathutils.NewHomeExpanderWithProvider(func() (string, error) {
		return "", errors.New("home directory unavailable")
	})

	require.Equal(testInstance, "~/artifacts/report.csv", homeExpander.Expand("~/artifacts/report.csv"))
}
