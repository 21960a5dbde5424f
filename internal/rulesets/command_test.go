package rulesets_test

import (
	"context"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/temirov/orgmigrate/internal/rulesets"
)

func TestCommandBuilds(testInstance *testing.T) {
	builder := rulesets.CommandBuilder{}
	command, buildError := builder.Build()
	require.NoError(testInstance, buildError)
	require.IsType(testInstance, &cobra.Command{}, command)
	require.Equal(testInstance, "rulesets", command.Use)
	require.NotNil(testInstance, command.Flags().Lookup("mode"))
	require.NotNil(testInstance, command.Flags().Lookup("dry-run"))
}

func TestCommandRejectsPositionalArguments(testInstance *testing.T) {
	builder := rulesets.CommandBuilder{
		LoggerProvider: func() *zap.Logger { return zap.NewNop() },
	}
	command, buildError := builder.Build()
	require.NoError(testInstance, buildError)

	command.SetContext(context.Background())
	require.Error(testInstance, command.RunE(command, []string{"unexpected"}))
}

func TestDefaultConfigurationEnablesEnrichment(testInstance *testing.T) {
	configuration := rulesets.DefaultConfiguration()
	require.True(testInstance, configuration.EnrichBypassActors)
	require.True(testInstance, configuration.SanitizeBypassActors)
	require.False(testInstance, configuration.RemoveAllBypassActors)
	require.Equal(testInstance, "exported_rulesets", configuration.Output)
}
