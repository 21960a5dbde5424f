package secrets_test

import (
	"context"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/temirov/orgmigrate/internal/migration"
	"github.com/temirov/orgmigrate/internal/secrets"
)

func TestCommandBuilds(testInstance *testing.T) {
	builder := secrets.CommandBuilder{}
	command, buildError := builder.Build()
	require.NoError(testInstance, buildError)
	require.IsType(testInstance, &cobra.Command{}, command)
	require.Equal(testInstance, "secrets", command.Use)
	require.NotNil(testInstance, command.Flags().Lookup("mode"))
	require.NotNil(testInstance, command.Flags().Lookup("dry-run"))
}

func TestCommandRejectsPositionalArguments(testInstance *testing.T) {
	builder := secrets.CommandBuilder{
		LoggerProvider: func() *zap.Logger { return zap.NewNop() },
	}
	command, buildError := builder.Build()
	require.NoError(testInstance, buildError)

	command.SetContext(context.Background())
	require.Error(testInstance, command.RunE(command, []string{"unexpected"}))
}

func TestCommandRejectsUnknownMode(testInstance *testing.T) {
	builder := secrets.CommandBuilder{
		LoggerProvider: func() *zap.Logger { return zap.NewNop() },
		ConfigurationProvider: func() secrets.Configuration {
			return secrets.Configuration{Mode: "sideways"}
		},
	}
	command, buildError := builder.Build()
	require.NoError(testInstance, buildError)

	command.SetContext(context.Background())
	require.Error(testInstance, command.RunE(command, nil))
}

func TestCommandRequiresScopeConfiguration(testInstance *testing.T) {
	builder := secrets.CommandBuilder{
		LoggerProvider: func() *zap.Logger { return zap.NewNop() },
		RunConfigurationProvider: func() migration.RunConfiguration {
			return migration.RunConfiguration{}
		},
	}
	command, buildError := builder.Build()
	require.NoError(testInstance, buildError)

	command.SetContext(context.Background())
	runError := command.RunE(command, nil)
	require.Error(testInstance, runError)

	scopeFailure := &migration.ScopeConfigurationError{}
	require.ErrorAs(testInstance, runError, &scopeFailure)
}
