package memberships_test

import (
	"context"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/temirov/orgmigrate/internal/memberships"
)

func TestCommandBuilds(testInstance *testing.T) {
	builder := memberships.CommandBuilder{}
	command, buildError := builder.Build()
	require.NoError(testInstance, buildError)
	require.IsType(testInstance, &cobra.Command{}, command)
	require.Equal(testInstance, "memberships", command.Use)
	require.NotNil(testInstance, command.Flags().Lookup("mode"))
	require.NotNil(testInstance, command.Flags().Lookup("dry-run"))
}

func TestCommandRejectsPositionalArguments(testInstance *testing.T) {
	builder := memberships.CommandBuilder{
		LoggerProvider: func() *zap.Logger { return zap.NewNop() },
	}
	command, buildError := builder.Build()
	require.NoError(testInstance, buildError)

	command.SetContext(context.Background())
	require.Error(testInstance, command.RunE(command, []string{"unexpected"}))
}

func TestDefaultConfigurationTargetsRosterArtifact(testInstance *testing.T) {
	configuration := memberships.DefaultConfiguration()
	require.Equal(testInstance, "migrate", configuration.Mode)
	require.Equal(testInstance, "github_memberships_export.csv", configuration.Input)
	require.Equal(testInstance, "github_memberships_export.csv", configuration.Output)
	require.False(testInstance, configuration.DryRun)
}
