package migrate

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/temirov/socialmigrate/internal/prompt"
)

// LoggerProvider yields a zap logger for command execution.
type LoggerProvider func() *zap.Logger

// Prompter asks the operator for missing values and group selections.
type Prompter interface {
	Ask(question string, defaultValue string) (string, error)
	Select(question string, choices []prompt.Choice) (prompt.Choice, error)
}

// PrompterFactory constructs prompters scoped to a command.
type PrompterFactory func(*cobra.Command) Prompter

func resolveLogger(provider LoggerProvider) *zap.Logger {
	if provider == nil {
		return zap.NewNop()
	}
	logger := provider()
	if logger == nil {
		return zap.NewNop()
	}
	return logger
}

func resolvePrompter(factory PrompterFactory, command *cobra.Command) Prompter {
	if factory != nil {
		prompter := factory(command)
		if prompter != nil {
			return prompter
		}
	}
	return prompt.NewIOPrompter(command.InOrStdin(), command.OutOrStdout())
}

func resolveConfiguration(provider func() Configuration) Configuration {
	if provider == nil {
		return DefaultConfiguration()
	}
	return provider()
}
