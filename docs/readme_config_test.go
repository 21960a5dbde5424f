package docs_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/temirov/orgmigrate/cmd/cli"
	"github.com/temirov/orgmigrate/internal/utils"
)

const (
	readmeFileNameConstant           = "README.md"
	yamlFenceStartConstant           = "```yaml"
	yamlFenceEndConstant             = "```"
	configHeaderMarkerConstant       = "# config.yaml"
	readmeSnippetTemporaryPattern    = "readme-config-*.yaml"
	parentDirectoryReferenceConstant = ".."
	missingHeaderMessageConstant     = "README example missing config header marker"
	missingStartFenceMessageConstant = "README example missing yaml fence start"
	missingEndFenceMessageConstant   = "README example missing yaml fence end"
	unexpectedClassMessageTemplate   = "unexpected metadata class %s"
	duplicateClassMessageTemplate    = "duplicate metadata class %s"
	defaultTempDirectoryRootConstant = ""
	testConfigurationNameConstant    = "config"
	testConfigurationTypeConstant    = "yaml"
	testEnvironmentPrefixConstant    = "ORGMIGRATE"
)

var expectedMetadataClasses = map[string]struct{}{
	"secrets":     {},
	"variables":   {},
	"rulesets":    {},
	"webhooks":    {},
	"memberships": {},
}

type readmeConfigurationDocument struct {
	Classes map[string]map[string]any `yaml:"classes"`
	All     readmeAllSection          `yaml:"all"`
}

type readmeAllSection struct {
	Mode    string   `yaml:"mode"`
	Classes []string `yaml:"classes"`
}

func TestReadmeConfigurationParses(testInstance *testing.T) {
	workingDirectory, workingDirectoryError := os.Getwd()
	require.NoError(testInstance, workingDirectoryError)

	readmePath := filepath.Join(workingDirectory, parentDirectoryReferenceConstant, readmeFileNameConstant)
	contentBytes, readError := os.ReadFile(readmePath)
	require.NoError(testInstance, readError)

	contentText := string(contentBytes)
	headerIndex := strings.Index(contentText, configHeaderMarkerConstant)
	require.NotEqual(testInstance, -1, headerIndex, missingHeaderMessageConstant)

	fenceStartIndex := strings.LastIndex(contentText[:headerIndex], yamlFenceStartConstant)
	require.NotEqual(testInstance, -1, fenceStartIndex, missingStartFenceMessageConstant)

	remainingText := contentText[headerIndex:]
	fenceEndRelativeIndex := strings.Index(remainingText, yamlFenceEndConstant)
	require.NotEqual(testInstance, -1, fenceEndRelativeIndex, missingEndFenceMessageConstant)
	fenceEndIndex := headerIndex + fenceEndRelativeIndex

	snippetContent := strings.TrimSpace(contentText[fenceStartIndex+len(yamlFenceStartConstant) : fenceEndIndex])

	tempFile, tempFileError := os.CreateTemp(defaultTempDirectoryRootConstant, readmeSnippetTemporaryPattern)
	require.NoError(testInstance, tempFileError)
	testInstance.Cleanup(func() {
		require.NoError(testInstance, os.Remove(tempFile.Name()))
	})

	_, writeError := tempFile.WriteString(snippetContent)
	require.NoError(testInstance, writeError)
	require.NoError(testInstance, tempFile.Close())

	configurationLoader := utils.NewConfigurationLoader(utils.ConfigurationLoaderOptions{
		ConfigurationName: testConfigurationNameConstant,
		ConfigurationType: testConfigurationTypeConstant,
		EnvironmentPrefix: testEnvironmentPrefixConstant,
	})

	var applicationConfiguration cli.ApplicationConfiguration
	_, loadError := configurationLoader.LoadConfiguration(tempFile.Name(), nil, &applicationConfiguration)
	require.NoError(testInstance, loadError)
	require.NotEmpty(testInstance, applicationConfiguration.Source.Organization)
	require.NotEmpty(testInstance, applicationConfiguration.Target.Organization)
	require.NotEmpty(testInstance, applicationConfiguration.Source.Token)
	require.NotEmpty(testInstance, applicationConfiguration.Target.Token)

	var documentConfiguration readmeConfigurationDocument
	require.NoError(testInstance, yaml.Unmarshal([]byte(snippetContent), &documentConfiguration))

	require.Len(testInstance, documentConfiguration.Classes, len(expectedMetadataClasses))
	for className := range documentConfiguration.Classes {
		_, classExpected := expectedMetadataClasses[className]
		require.Truef(testInstance, classExpected, unexpectedClassMessageTemplate, className)
	}

	require.NotEmpty(testInstance, documentConfiguration.All.Classes)
	seenClasses := make(map[string]struct{}, len(documentConfiguration.All.Classes))
	for _, className := range documentConfiguration.All.Classes {
		normalizedName := strings.TrimSpace(strings.ToLower(className))
		_, classExpected := expectedMetadataClasses[normalizedName]
		require.Truef(testInstance, classExpected, unexpectedClassMessageTemplate, normalizedName)

		_, duplicateClass := seenClasses[normalizedName]
		require.Falsef(testInstance, duplicateClass, duplicateClassMessageTemplate, normalizedName)
		seenClasses[normalizedName] = struct{}{}
	}
}
