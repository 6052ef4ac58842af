package utils_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/temirov/socialmigrate/internal/utils"
)

func TestCommandContextAccessor(testInstance *testing.T) {
	accessor := utils.NewCommandContextAccessor()

	_, configurationAvailable := accessor.ConfigurationFilePath(context.Background())
	require.False(testInstance, configurationAvailable)
	_, runAvailable := accessor.RunIdentifier(context.Background())
	require.False(testInstance, runAvailable)

	executionContext := accessor.WithConfigurationFilePath(context.Background(), "/tmp/config.yaml")
	executionContext = accessor.WithRunIdentifier(executionContext, "run-1")

	configurationFilePath, configurationAvailable := accessor.ConfigurationFilePath(executionContext)
	require.True(testInstance, configurationAvailable)
	require.Equal(testInstance, "/tmp/config.yaml", configurationFilePath)

	runIdentifier, runAvailable := accessor.RunIdentifier(executionContext)
	require.True(testInstance, runAvailable)
	require.Equal(testInstance, "run-1", runIdentifier)

	_, emptyRunAvailable := accessor.RunIdentifier(accessor.WithRunIdentifier(context.Background(), ""))
	require.False(testInstance, emptyRunAvailable)
}
