package webhooks_test

import (
	"context"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/temirov/orgmigrate/internal/webhooks"
)

func TestCommandBuilds(testInstance *testing.T) {
	builder := webhooks.CommandBuilder{}
	command, buildError := builder.Build()
	require.NoError(testInstance, buildError)
	require.IsType(testInstance, &cobra.Command{}, command)
	require.Equal(testInstance, "webhooks", command.Use)
	require.NotNil(testInstance, command.Flags().Lookup("mode"))
	require.NotNil(testInstance, command.Flags().Lookup("dry-run"))
}

func TestCommandRejectsPositionalArguments(testInstance *testing.T) {
	builder := webhooks.CommandBuilder{
		LoggerProvider: func() *zap.Logger { return zap.NewNop() },
	}
	command, buildError := builder.Build()
	require.NoError(testInstance, buildError)

	command.SetContext(context.Background())
	require.Error(testInstance, command.RunE(command, []string{"unexpected"}))
}

func TestDefaultConfigurationTargetsSharedArtifact(testInstance *testing.T) {
	configuration := webhooks.DefaultConfiguration()
	require.Equal(testInstance, "migrate", configuration.Mode)
	require.Equal(testInstance, "exported_webhooks.json", configuration.Input)
	require.Equal(testInstance, "exported_webhooks.json", configuration.Output)
	require.False(testInstance, configuration.DryRun)
}
